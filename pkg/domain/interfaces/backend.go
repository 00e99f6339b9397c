package interfaces

import (
	"context"

	"github.com/upawatch/upawatch/pkg/domain/model"
	"github.com/upawatch/upawatch/pkg/domain/types"
)

// Backend is the remote REST API owning queue and historical data
type Backend interface {
	// FetchFacilitySnapshot returns the raw queue object of a facility
	FetchFacilitySnapshot(ctx context.Context, id types.FacilityID) ([]byte, error)

	// FetchHistorical returns the classification distribution of a window
	FetchHistorical(ctx context.Context, query model.HistoricalQuery) (*model.RawHistoricalPayload, error)

	// FetchNeighborhoodStats returns the bairro breakdown of a window
	FetchNeighborhoodStats(ctx context.Context, query model.HistoricalQuery) (*model.RawBairroPayload, error)

	// FetchComparisonTriple returns the last-24h/today/yesterday comparison
	FetchComparisonTriple(ctx context.Context, query model.HistoricalQuery) (*model.RawComparisonPayload, error)

	ListFacilities(ctx context.Context) ([]*model.FacilityMetadata, error)

	Login(ctx context.Context, credentials model.Credentials) (*model.LoginResult, error)
}

// DeltaHandler receives raw push-channel delta events
type DeltaHandler func(ctx context.Context, raw []byte)

// PushChannel is the backend push channel delivering queue deltas
type PushChannel interface {
	Subscribe(ctx context.Context, id types.FacilityID) error
	Unsubscribe(ctx context.Context, id types.FacilityID) error
	OnDelta(handler DeltaHandler)
}

// Notifier announces facility tier changes to operators
type Notifier interface {
	NotifyTierChange(ctx context.Context, facility *model.FacilityMetadata, previous, current model.FacilityMarkerState) error
}
