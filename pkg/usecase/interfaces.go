package usecase

import (
	"context"

	"github.com/upawatch/upawatch/pkg/domain/model"
	"github.com/upawatch/upawatch/pkg/domain/types"
)

// AuthUseCase defines the interface for admin authentication
type AuthUseCase interface {
	// Login forwards credentials to the backend and opens a session
	Login(ctx context.Context, credentials model.Credentials) (*model.Session, *model.User, error)

	// ValidateSession validates a session by ID and secret
	ValidateSession(ctx context.Context, sessionID, sessionSecret string) (*model.Session, error)

	// IsAuthenticated reports whether a session is valid
	IsAuthenticated(ctx context.Context, sessionID, sessionSecret string) bool

	// Logout deletes a session
	Logout(ctx context.Context, sessionID string) error

	// CurrentUser returns the user owning a session
	CurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// LiveBoard defines the live queue operations used by the HTTP layer
type LiveBoard interface {
	Subscribe(ctx context.Context, id types.FacilityID) (*model.QueueSnapshot, error)
	Unsubscribe(ctx context.Context, id types.FacilityID) error
	Refresh(ctx context.Context, id types.FacilityID) (*model.QueueSnapshot, error)
	Snapshot(id types.FacilityID) (*model.QueueSnapshot, error)
	Snapshots() []*model.QueueSnapshot
}

// ReportUseCase defines the report building operations
type ReportUseCase interface {
	BuildReport(ctx context.Context, query model.HistoricalQuery) (*model.ReportModel, error)
	ListFacilities(ctx context.Context) ([]*model.FacilityMetadata, error)
}
