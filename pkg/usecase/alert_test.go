package usecase_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/upawatch/upawatch/pkg/domain/model"
	"github.com/upawatch/upawatch/pkg/domain/types"
	"github.com/upawatch/upawatch/pkg/usecase"
)

func syncDispatch(ctx context.Context, handler func(ctx context.Context) error) {
	_ = handler(ctx)
}

func marker(tier types.SeverityTier, total int) model.FacilityMarkerState {
	return model.NewFacilityMarkerState("F1", tier, total)
}

func TestShouldAlert(t *testing.T) {
	low := marker(types.TierLow, 3)
	medium := marker(types.TierMedium, 12)
	high := marker(types.TierHigh, 20)

	gt.True(t, usecase.ShouldAlert(nil, high))
	gt.False(t, usecase.ShouldAlert(nil, medium))
	gt.True(t, usecase.ShouldAlert(&medium, high))
	gt.True(t, usecase.ShouldAlert(&high, low))
	gt.False(t, usecase.ShouldAlert(&high, high))
	gt.False(t, usecase.ShouldAlert(&low, medium))
}

func TestTierAlertWithBoard(t *testing.T) {
	ctx := context.Background()
	notifier := &fakeNotifier{}
	alert := usecase.NewTierAlert(notifier,
		usecase.WithAlertCatalog(testCatalog()),
		usecase.WithAlertDispatcher(syncDispatch),
	)

	push := newFakePush()
	backend := &fakeBackend{snapshotFn: staticSnapshot(`{"porClassificacao": {"verde": 12}, "ultimaAtualizacao": "2025-01-15T10:00:00Z"}`)}
	board := usecase.NewBoard(backend, push)
	board.Watch(alert.Watch)

	_, err := board.Subscribe(ctx, "F1")
	gt.NoError(t, err).Required()
	gt.A(t, notifier.recorded()).Length(0)

	// MEDIUM -> HIGH
	push.deliver(ctx, `{"upaId": "F1", "porClassificacao": {"verde": 16}, "timestamp": "2025-01-15T10:01:00Z"}`)
	changes := notifier.recorded()
	gt.A(t, changes).Length(1)
	gt.Equal(t, changes[0].facility.Name, "UPA Bessa")
	gt.Equal(t, changes[0].previous.Tier, types.TierMedium)
	gt.Equal(t, changes[0].current.Tier, types.TierHigh)

	// still HIGH
	push.deliver(ctx, `{"upaId": "F1", "porClassificacao": {"verde": 18}, "timestamp": "2025-01-15T10:02:00Z"}`)
	gt.A(t, notifier.recorded()).Length(1)

	// HIGH -> LOW
	push.deliver(ctx, `{"upaId": "F1", "porClassificacao": {"verde": 2}, "timestamp": "2025-01-15T10:03:00Z"}`)
	changes = notifier.recorded()
	gt.A(t, changes).Length(2)
	gt.Equal(t, changes[1].current.Tier, types.TierLow)

	// removal never alerts
	gt.NoError(t, board.Unsubscribe(ctx, "F1"))
	gt.A(t, notifier.recorded()).Length(2)
}

func TestTierAlertUnknownFacility(t *testing.T) {
	notifier := &fakeNotifier{}
	alert := usecase.NewTierAlert(notifier, usecase.WithAlertDispatcher(syncDispatch))

	s := snapshotWithTotal(30)
	s.FacilityID = "F7"
	alert.Watch(context.Background(), usecase.BoardUpdate{
		FacilityID: "F7",
		Snapshot:   s,
		Marker:     usecase.MarkerState(s),
	})

	changes := notifier.recorded()
	gt.A(t, changes).Length(1)
	gt.Equal(t, changes[0].facility.Name, "F7")
	gt.Equal(t, changes[0].previous.Tier, types.TierLow)
}
