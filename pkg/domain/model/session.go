package model

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/soc-lab/kestrel/pkg/domain/types"
)

// Session represents an authenticated user session. Role is stored on the
// session at issue time rather than derived per request.
type Session struct {
	ID        types.SessionID     `json:"id"`
	Secret    types.SessionSecret `json:"-"`
	UserID    types.UserID        `json:"user_id"`
	Email     string              `json:"email"`
	Role      types.Role          `json:"role"`
	CreatedAt time.Time           `json:"created_at"`
	ExpiresAt time.Time           `json:"expires_at"`
}

// NewSession creates a new Session with a UUID v7 ID and random secret
func NewSession(user *User, duration time.Duration) (*Session, error) {
	sessionID, err := types.NewSessionID()
	if err != nil {
		return nil, err
	}

	secret, err := generateRandomSecret(24)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Session{
		ID:        sessionID,
		Secret:    types.SessionSecret(secret),
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(duration),
	}, nil
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// IsValid checks if the session is usable
func (s *Session) IsValid() bool {
	return s.ID != "" && s.Secret != "" && s.UserID != "" && !s.IsExpired()
}

// generateRandomSecret generates a URL-safe random token of byteLength
// random bytes (~1.33x longer once base64 encoded)
func generateRandomSecret(byteLength int) (string, error) {
	bytes := make([]byte, byteLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
