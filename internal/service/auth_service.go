package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	apperrors "github.com/carecollective/care-api/internal/pkg/errors"

	"github.com/carecollective/care-api/internal/domain/entity"
	"github.com/carecollective/care-api/internal/domain/repository"
	"github.com/carecollective/care-api/pkg/auth"
	"github.com/carecollective/care-api/pkg/auth/manager"
)

// AuthService handles registration, login and session management.
// New registrations always start in the pending verification status.
type AuthService struct {
	profileRepo         repository.ProfileRepository
	tokenManager        *manager.TokenManager
	jwtService          *auth.JWTService
	confirmationService *EmailConfirmationService
}

// RegisterInput carries the application form fields.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Location  string
	Phone     string
}

func NewAuthService(
	profileRepo repository.ProfileRepository,
	tokenManager *manager.TokenManager,
	jwtService *auth.JWTService,
	confirmationService *EmailConfirmationService,
) *AuthService {
	return &AuthService{
		profileRepo:         profileRepo,
		tokenManager:        tokenManager,
		jwtService:          jwtService,
		confirmationService: confirmationService,
	}
}

// Register creates a pending member profile and sends the email confirmation code.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*entity.Profile, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", apperrors.ErrValidation)
	}
	if len(input.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", apperrors.ErrValidation)
	}
	if strings.TrimSpace(input.FirstName) == "" {
		return nil, fmt.Errorf("%w: first name is required", apperrors.ErrValidation)
	}

	existing, err := s.profileRepo.GetByEmail(email)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: email is already registered", apperrors.ErrConflict)
	}

	profile := &entity.Profile{
		Email:              email,
		Password:           input.Password, // hashed by BeforeSave
		FirstName:          strings.TrimSpace(input.FirstName),
		LastName:           strings.TrimSpace(input.LastName),
		Location:           strings.TrimSpace(input.Location),
		Phone:              strings.TrimSpace(input.Phone),
		VerificationStatus: entity.StatusPending,
	}
	if err := s.profileRepo.Create(profile); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	log.Printf("[AuthService.Register] New pending member UserID=%d", profile.ID)

	// Confirmation email failure does not fail registration: the member can
	// request a resend from the verify-email page.
	if err := s.confirmationService.SendCode(ctx, profile.ID); err != nil {
		log.Printf("[AuthService.Register] Confirmation code send failed for UserID=%d: %v", profile.ID, err)
	}

	return profile, nil
}

// Login verifies credentials and issues a token pair via cookies.
// Rejected members can still log in; the access gate confines them to the
// access-denied page.
func (s *AuthService) Login(ctx context.Context, email, password, deviceID, ipAddress, userAgent string, w http.ResponseWriter) (*entity.Profile, *manager.TokenResponse, error) {
	profile, err := s.profileRepo.GetByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: invalid email or password", apperrors.ErrUnauthorized)
		}
		return nil, nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if !profile.CheckPassword(password) {
		return nil, nil, fmt.Errorf("%w: invalid email or password", apperrors.ErrUnauthorized)
	}

	tokens, err := s.tokenManager.GenerateTokenPair(ctx, profile, deviceID, ipAddress, userAgent, w)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to issue session: %w", err)
	}

	log.Printf("[AuthService.Login] UserID=%d logged in (status=%s)", profile.ID, profile.VerificationStatus)
	return profile, tokens, nil
}

// Refresh rotates the refresh token from the request cookie.
func (s *AuthService) Refresh(w http.ResponseWriter, r *http.Request) (*manager.TokenResponse, error) {
	return s.tokenManager.RefreshTokens(w, r)
}

// Logout revokes the current session and clears auth cookies.
func (s *AuthService) Logout(w http.ResponseWriter, r *http.Request) error {
	if err := s.tokenManager.RevokeCurrentSession(r); err != nil {
		// Cookie may be missing or already revoked; clear cookies regardless.
		log.Printf("[AuthService.Logout] Revoke failed: %v", err)
	}
	s.tokenManager.ClearAuthCookies(w)
	return nil
}

// ChangePassword verifies the old password, stores the new hash and revokes
// every other session of the member.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", apperrors.ErrValidation)
	}

	profile, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !profile.CheckPassword(oldPassword) {
		return fmt.Errorf("%w: current password is incorrect", apperrors.ErrUnauthorized)
	}

	if err := s.profileRepo.UpdatePassword(userID, newPassword); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.tokenManager.RevokeAllSessions(userID, "password_changed"); err != nil {
		log.Printf("[AuthService.ChangePassword] Failed to revoke sessions for UserID=%d: %v", userID, err)
	}

	log.Printf("[AuthService.ChangePassword] Password changed for UserID=%d", userID)
	return nil
}

// UpdateProfile updates the member's editable fields.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uint, firstName, lastName, location, phone string) (*entity.Profile, error) {
	updates := map[string]interface{}{}
	if strings.TrimSpace(firstName) != "" {
		updates["first_name"] = strings.TrimSpace(firstName)
	}
	if strings.TrimSpace(lastName) != "" {
		updates["last_name"] = strings.TrimSpace(lastName)
	}
	if strings.TrimSpace(location) != "" {
		updates["location"] = strings.TrimSpace(location)
	}
	if strings.TrimSpace(phone) != "" {
		updates["phone"] = strings.TrimSpace(phone)
	}
	if len(updates) > 0 {
		if err := s.profileRepo.UpdateProfile(userID, updates); err != nil {
			return nil, fmt.Errorf("failed to update profile: %w", err)
		}
	}
	return s.profileRepo.GetByID(ctx, userID)
}

// GetProfile loads a member profile by internal ID.
func (s *AuthService) GetProfile(ctx context.Context, userID uint) (*entity.Profile, error) {
	return s.profileRepo.GetByID(ctx, userID)
}
