package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRefreshToken_IsValid(t *testing.T) {
	token := NewRefreshToken(1, "hash", "device", "127.0.0.1", "ua", time.Now().Add(time.Hour))
	assert.True(t, token.IsValid())

	expired := NewRefreshToken(1, "hash", "device", "127.0.0.1", "ua", time.Now().Add(-time.Hour))
	assert.False(t, expired.IsValid())
}

func TestRefreshToken_Revoke(t *testing.T) {
	token := NewRefreshToken(1, "hash", "device", "127.0.0.1", "ua", time.Now().Add(time.Hour))

	token.Revoke("verification_rejected")

	assert.False(t, token.IsValid())
	assert.NotNil(t, token.RevokedAt)
	assert.True(t, token.IsExpired)
	assert.Equal(t, "verification_rejected", token.Reason)
}

func TestInvalidSession_CoversTokenIssuedAt(t *testing.T) {
	watermark := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	session := &InvalidSession{UserID: 1, InvalidationTime: watermark}

	assert.True(t, session.CoversTokenIssuedAt(watermark.Add(-time.Second)))
	assert.False(t, session.CoversTokenIssuedAt(watermark))
	assert.False(t, session.CoversTokenIssuedAt(watermark.Add(time.Second)))
}
