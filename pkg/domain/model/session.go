package model

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"time"

	"github.com/upawatch/upawatch/pkg/domain/types"
)

// sessionSecretBytes gives a 32 character secret once base64 encoded
const sessionSecretBytes = 24

// Session is an admin login held by the BFF. It wraps the backend access token, which
// never reaches the browser.
type Session struct {
	ID          types.SessionID     `json:"id"`
	Secret      types.SessionSecret `json:"-"`
	UserID      types.UserID        `json:"user_id"`
	AccessToken string              `json:"-"`
	CreatedAt   time.Time           `json:"created_at"`
	ExpiresAt   time.Time           `json:"expires_at"`
}

// NewSession opens a session for the user that lasts for duration
func NewSession(userID types.UserID, accessToken string, duration time.Duration) (*Session, error) {
	sessionID, err := types.NewSessionID()
	if err != nil {
		return nil, err
	}

	raw := make([]byte, sessionSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}

	now := time.Now()
	return &Session{
		ID:          sessionID,
		Secret:      types.SessionSecret(base64.RawURLEncoding.EncodeToString(raw)),
		UserID:      userID,
		AccessToken: accessToken,
		CreatedAt:   now,
		ExpiresAt:   now.Add(duration),
	}, nil
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return !time.Now().Before(s.ExpiresAt)
}

// MatchSecret compares the cookie secret in constant time
func (s *Session) MatchSecret(secret string) bool {
	if s.Secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.Secret), []byte(secret)) == 1
}
