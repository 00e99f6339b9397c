package usecase

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/upawatch/upawatch/pkg/domain/interfaces"
	"github.com/upawatch/upawatch/pkg/domain/model"
	"github.com/upawatch/upawatch/pkg/domain/types"
	"github.com/upawatch/upawatch/pkg/utils/async"
)

// TierAlert notifies operators when a facility enters or leaves the HIGH tier
type TierAlert struct {
	notifier interfaces.Notifier
	catalog  *model.FacilitiesConfig
	dispatch func(ctx context.Context, handler func(ctx context.Context) error)
}

// TierAlertOption configures TierAlert
type TierAlertOption func(*TierAlert)

// WithAlertCatalog sets the catalog used to name facilities in alerts
func WithAlertCatalog(catalog *model.FacilitiesConfig) TierAlertOption {
	return func(a *TierAlert) {
		a.catalog = catalog
	}
}

// WithAlertDispatcher replaces the async dispatcher, mainly for tests
func WithAlertDispatcher(dispatch func(ctx context.Context, handler func(ctx context.Context) error)) TierAlertOption {
	return func(a *TierAlert) {
		a.dispatch = dispatch
	}
}

// NewTierAlert creates a new TierAlert
func NewTierAlert(notifier interfaces.Notifier, opts ...TierAlertOption) *TierAlert {
	a := &TierAlert{
		notifier: notifier,
		dispatch: async.Dispatch,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ShouldAlert reports whether a tier transition is worth an alert
func ShouldAlert(previous *model.FacilityMarkerState, current model.FacilityMarkerState) bool {
	if previous == nil {
		return current.Tier == types.TierHigh
	}
	if previous.Tier == current.Tier {
		return false
	}
	return current.Tier == types.TierHigh || previous.Tier == types.TierHigh
}

// Watch is a board Watcher. Notifications run in the background so board updates never wait on Slack.
func (a *TierAlert) Watch(ctx context.Context, update BoardUpdate) {
	if a.notifier == nil || update.Removed || update.Snapshot == nil {
		return
	}
	if !ShouldAlert(update.Previous, update.Marker) {
		return
	}

	facility := a.catalog.FindFacilityByID(update.FacilityID)
	if facility == nil {
		facility = &model.FacilityMetadata{ID: update.FacilityID, Name: update.FacilityID.String()}
	}
	previous := model.NewFacilityMarkerState(update.FacilityID, types.TierLow, 0)
	if update.Previous != nil {
		previous = *update.Previous
	}
	current := update.Marker

	ctxlog.From(ctx).Info("Facility tier changed",
		"facility_id", update.FacilityID,
		"from", previous.Tier,
		"to", current.Tier,
		"total", current.TotalPatients,
	)

	a.dispatch(ctx, func(ctx context.Context) error {
		return a.notifier.NotifyTierChange(ctx, facility, previous, current)
	})
}
