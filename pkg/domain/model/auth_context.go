package model

import (
	"context"
	"time"

	"github.com/upawatch/upawatch/pkg/domain/types"
)

type authContextKey struct{}

// AuthContext identifies the admin behind a request. It is copied into background work
// started by the request.
type AuthContext struct {
	UserID    types.UserID    `json:"user_id,omitempty"`
	Role      types.UserRole  `json:"role,omitempty"`
	SessionID types.SessionID `json:"session_id,omitempty"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// NewAuthContextFromSession builds the context of an authenticated session
func NewAuthContextFromSession(session *Session, user *User) *AuthContext {
	authCtx := &AuthContext{
		UserID:    session.UserID,
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt,
	}
	if user != nil {
		authCtx.Role = user.Role
	}
	return authCtx
}

// WithAuthContext adds AuthContext to the context
func WithAuthContext(ctx context.Context, authCtx *AuthContext) context.Context {
	if authCtx == nil {
		return ctx
	}
	return context.WithValue(ctx, authContextKey{}, authCtx)
}

// GetAuthContext retrieves AuthContext from the context
func GetAuthContext(ctx context.Context) (*AuthContext, bool) {
	authCtx, ok := ctx.Value(authContextKey{}).(*AuthContext)
	return authCtx, ok && authCtx != nil
}

// Clone returns a copy safe to hand to another goroutine
func (a *AuthContext) Clone() *AuthContext {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}
