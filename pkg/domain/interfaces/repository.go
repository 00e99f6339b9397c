package interfaces

import (
	"context"

	"github.com/upawatch/upawatch/pkg/domain/model"
	"github.com/upawatch/upawatch/pkg/domain/types"
)

// Repository holds the short-lived admin session state of the BFF.
// Accounts and queue data are owned by the backend.
type Repository interface {
	// SaveUser caches the claims of a logged-in user
	SaveUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id types.UserID) (*model.User, error)

	// GetSession and DeleteSession wrap model.ErrSessionNotFound for unknown or expired sessions
	SaveSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, id types.SessionID) (*model.Session, error)
	DeleteSession(ctx context.Context, id types.SessionID) error

	// PurgeExpiredSessions drops expired sessions and returns how many were dropped
	PurgeExpiredSessions(ctx context.Context) int

	Close() error
}
