package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

// EmailService sends transactional emails to members.
type EmailService interface {
	SendConfirmationCode(ctx context.Context, toEmail, code, idempotencyKey string) error
	SendApprovalNotice(ctx context.Context, toEmail, firstName string) error
	SendRejectionNotice(ctx context.Context, toEmail, firstName, reason string) error
}

// NoopEmailService is used when email delivery is disabled (local dev, tests).
type NoopEmailService struct{}

func (s *NoopEmailService) SendConfirmationCode(ctx context.Context, toEmail, code, idempotencyKey string) error {
	log.Printf("[EmailService] noop send confirmation code to=%s", toEmail)
	return nil
}

func (s *NoopEmailService) SendApprovalNotice(ctx context.Context, toEmail, firstName string) error {
	log.Printf("[EmailService] noop send approval notice to=%s", toEmail)
	return nil
}

func (s *NoopEmailService) SendRejectionNotice(ctx context.Context, toEmail, firstName, reason string) error {
	log.Printf("[EmailService] noop send rejection notice to=%s", toEmail)
	return nil
}

// ResendEmailService sends emails via the Resend REST API.
type ResendEmailService struct {
	from   string
	client *resend.Client
}

func NewResendEmailService(apiKey, from string) (*ResendEmailService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	return &ResendEmailService{
		from:   from,
		client: resend.NewClient(apiKey),
	}, nil
}

func (s *ResendEmailService) SendConfirmationCode(ctx context.Context, toEmail, code, idempotencyKey string) error {
	if toEmail == "" || code == "" {
		return fmt.Errorf("toEmail and code are required")
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{toEmail},
		Subject: "Confirm your email",
		Text:    fmt.Sprintf("Your CARE Collective confirmation code is %s. It expires in 15 minutes.", code),
		Html:    fmt.Sprintf("<p>Your CARE Collective confirmation code is <strong>%s</strong>.</p><p>It expires in 15 minutes.</p>", code),
	}
	return s.sendWithRetry(ctx, params, idempotencyKey)
}

func (s *ResendEmailService) SendApprovalNotice(ctx context.Context, toEmail, firstName string) error {
	if toEmail == "" {
		return fmt.Errorf("toEmail is required")
	}

	greeting := "Hello"
	if firstName != "" {
		greeting = "Hello " + firstName
	}
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{toEmail},
		Subject: "Your CARE Collective membership is approved",
		Text:    fmt.Sprintf("%s,\n\nYour membership has been approved. You can now post help requests and message other members.", greeting),
		Html:    fmt.Sprintf("<p>%s,</p><p>Your membership has been approved. You can now post help requests and message other members.</p>", greeting),
	}
	return s.sendWithRetry(ctx, params, "")
}

func (s *ResendEmailService) SendRejectionNotice(ctx context.Context, toEmail, firstName, reason string) error {
	if toEmail == "" {
		return fmt.Errorf("toEmail is required")
	}

	greeting := "Hello"
	if firstName != "" {
		greeting = "Hello " + firstName
	}
	body := fmt.Sprintf("%s,\n\nWe could not approve your CARE Collective membership at this time.", greeting)
	htmlBody := fmt.Sprintf("<p>%s,</p><p>We could not approve your CARE Collective membership at this time.</p>", greeting)
	if reason != "" {
		body += "\n\nReason: " + reason
		htmlBody += fmt.Sprintf("<p>Reason: %s</p>", reason)
	}
	body += "\n\nYou may update your details and re-apply."
	htmlBody += "<p>You may update your details and re-apply.</p>"

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{toEmail},
		Subject: "About your CARE Collective application",
		Text:    body,
		Html:    htmlBody,
	}
	return s.sendWithRetry(ctx, params, "")
}

func (s *ResendEmailService) sendWithRetry(ctx context.Context, params *resend.SendEmailRequest, idempotencyKey string) error {
	options := &resend.SendEmailOptions{}
	if strings.TrimSpace(idempotencyKey) != "" {
		options.IdempotencyKey = strings.TrimSpace(idempotencyKey)
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		_, err := s.client.Emails.SendWithOptions(ctx, params, options)
		if err == nil {
			return nil
		}
		lastErr = err

		if wait, ok := resendRetryDelay(err, attempt); ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		return fmt.Errorf("resend send failed: %w", err)
	}

	return fmt.Errorf("resend send failed after retries: %w", lastErr)
}

func resendRetryDelay(err error, attempt int) (time.Duration, bool) {
	var rateLimitErr *resend.RateLimitError
	if errors.As(err, &rateLimitErr) {
		if seconds, convErr := strconv.Atoi(strings.TrimSpace(rateLimitErr.RetryAfter)); convErr == nil && seconds > 0 {
			if seconds > 30 {
				seconds = 30
			}
			return time.Duration(seconds) * time.Second, true
		}
		return time.Duration(attempt+1) * time.Second, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "temporar") {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	return 0, false
}
