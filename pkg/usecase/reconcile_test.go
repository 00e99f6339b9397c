package usecase_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/upawatch/upawatch/pkg/domain/model"
	"github.com/upawatch/upawatch/pkg/domain/types"
	"github.com/upawatch/upawatch/pkg/usecase"
)

func newSnapshot(id types.FacilityID, at time.Time, counts map[types.ClassificationCode]int) *model.QueueSnapshot {
	s := model.NewQueueSnapshot(id)
	for code, n := range counts {
		s.Classes[code] = model.ClassStat{Count: n}
	}
	s.LastUpdated = at
	s.RecomputeTotals()
	return s
}

func TestReconcile(t *testing.T) {
	base := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	current := newSnapshot("F1", base, map[types.ClassificationCode]int{
		types.ClassBlue:   5,
		types.ClassGreen:  10,
		types.ClassYellow: 3,
		types.ClassRed:    1,
	})

	t.Run("newer delta patches counts and recomputes totals", func(t *testing.T) {
		delta := &model.QueueDelta{
			FacilityID: "F1",
			Counts:     map[types.ClassificationCode]int{types.ClassBlue: 6},
			Timestamp:  base.Add(time.Minute),
		}
		next, outcome := usecase.Reconcile(current, delta)
		gt.Equal(t, outcome, usecase.OutcomeApplied)
		gt.Equal(t, next.Count(types.ClassBlue), 6)
		gt.Equal(t, next.Count(types.ClassGreen), 10)
		gt.Equal(t, next.TotalPatients, 20)
		gt.Equal(t, next.TotalPatients, next.SumOfCounts())
		gt.Equal(t, next.LastUpdated, base.Add(time.Minute))

		// input untouched
		gt.Equal(t, current.Count(types.ClassBlue), 5)
		gt.Equal(t, current.TotalPatients, 19)
	})

	t.Run("older delta is a no-op", func(t *testing.T) {
		delta := &model.QueueDelta{
			FacilityID: "F1",
			Counts:     map[types.ClassificationCode]int{types.ClassBlue: 100},
			Timestamp:  base.Add(-time.Second),
		}
		next, outcome := usecase.Reconcile(current, delta)
		gt.Equal(t, outcome, usecase.OutcomeStale)
		gt.True(t, next == current)
		gt.Equal(t, next.Count(types.ClassBlue), 5)
	})

	t.Run("equal timestamp applies and is idempotent", func(t *testing.T) {
		delta := &model.QueueDelta{
			FacilityID: "F1",
			Counts:     map[types.ClassificationCode]int{types.ClassRed: 4},
			Timestamp:  base,
		}
		once, outcome := usecase.Reconcile(current, delta)
		gt.Equal(t, outcome, usecase.OutcomeApplied)
		twice, outcome := usecase.Reconcile(once, delta)
		gt.Equal(t, outcome, usecase.OutcomeApplied)
		gt.Equal(t, twice.Count(types.ClassRed), 4)
		gt.Equal(t, twice.TotalPatients, once.TotalPatients)
		gt.Equal(t, twice.TotalPatients, 22)
	})

	t.Run("delta for another facility is ignored", func(t *testing.T) {
		delta := &model.QueueDelta{
			FacilityID: "F2",
			Counts:     map[types.ClassificationCode]int{types.ClassBlue: 1},
			Timestamp:  base.Add(time.Hour),
		}
		next, outcome := usecase.Reconcile(current, delta)
		gt.Equal(t, outcome, usecase.OutcomeIgnored)
		gt.True(t, next == current)
	})

	t.Run("nil delta is ignored", func(t *testing.T) {
		next, outcome := usecase.Reconcile(current, nil)
		gt.Equal(t, outcome, usecase.OutcomeIgnored)
		gt.True(t, next == current)
	})

	t.Run("no current snapshot synthesizes one", func(t *testing.T) {
		occupancy := types.OccupancyModerate
		delta := &model.QueueDelta{
			FacilityID:  "F9",
			Counts:      map[types.ClassificationCode]int{types.ClassYellow: 2, types.ClassUntriaged: 3},
			WaitMinutes: map[types.ClassificationCode]float64{types.ClassYellow: 12},
			Occupancy:   &occupancy,
			Timestamp:   base,
		}
		next, outcome := usecase.Reconcile(nil, delta)
		gt.Equal(t, outcome, usecase.OutcomeApplied)
		gt.Equal(t, next.FacilityID, types.FacilityID("F9"))
		gt.Equal(t, next.Count(types.ClassBlue), 0)
		gt.Equal(t, next.TotalPatients, 5)
		gt.Equal(t, next.AwaitingTriage, 3)
		gt.Equal(t, next.Classes[types.ClassYellow].AverageWaitMinutes, 12.0)
		gt.Equal(t, next.Occupancy, types.OccupancyModerate)
		gt.Equal(t, len(next.Classes), len(types.AllClassifications))
	})

	t.Run("applied delta clears the stale flag", func(t *testing.T) {
		stale := current.Clone()
		stale.Stale = true
		next, outcome := usecase.Reconcile(stale, &model.QueueDelta{FacilityID: "F1", Timestamp: base.Add(time.Second)})
		gt.Equal(t, outcome, usecase.OutcomeApplied)
		gt.False(t, next.Stale)
		gt.Equal(t, next.TotalPatients, 19)
	})
}

func TestReconcileOutcomeString(t *testing.T) {
	gt.Equal(t, usecase.OutcomeApplied.String(), "applied")
	gt.Equal(t, usecase.OutcomeStale.String(), "stale")
	gt.Equal(t, usecase.OutcomeIgnored.String(), "ignored")
}
