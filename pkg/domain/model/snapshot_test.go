package model_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/upawatch/upawatch/pkg/domain/model"
	"github.com/upawatch/upawatch/pkg/domain/types"
)

func TestNewQueueSnapshot(t *testing.T) {
	s := model.NewQueueSnapshot("F1")
	gt.Equal(t, len(s.Classes), 5)
	gt.Equal(t, s.TotalPatients, 0)
	gt.Equal(t, s.Occupancy, types.OccupancyLow)
}

func TestQueueSnapshotRecomputeTotals(t *testing.T) {
	s := model.NewQueueSnapshot("F1")
	s.Classes[types.ClassBlue] = model.ClassStat{Count: 5}
	s.Classes[types.ClassUntriaged] = model.ClassStat{Count: 2}
	s.TotalPatients = 99

	consistent := s.RecomputeTotals()
	gt.False(t, consistent)
	gt.Equal(t, s.TotalPatients, 7)
	gt.Equal(t, s.AwaitingTriage, 2)

	gt.True(t, s.RecomputeTotals())
}

func TestQueueSnapshotClone(t *testing.T) {
	s := model.NewQueueSnapshot("F1")
	s.Classes[types.ClassRed] = model.ClassStat{Count: 1, AverageWaitMinutes: 3}
	s.LastUpdated = time.Now()

	c := s.Clone()
	c.Classes[types.ClassRed] = model.ClassStat{Count: 10}

	gt.Equal(t, s.Count(types.ClassRed), 1)
	gt.Equal(t, c.Count(types.ClassRed), 10)
	gt.True(t, c.LastUpdated.Equal(s.LastUpdated))

	var nilSnapshot *model.QueueSnapshot
	gt.V(t, nilSnapshot.Clone()).Nil()
	gt.Equal(t, nilSnapshot.SumOfCounts(), 0)
}

func TestNewFacilityMarkerState(t *testing.T) {
	high := model.NewFacilityMarkerState("F1", types.TierHigh, 20)
	gt.Equal(t, high.CircleRadiusMeters, 500)
	gt.Equal(t, high.Color, "red")

	medium := model.NewFacilityMarkerState("F1", types.TierMedium, 12)
	gt.Equal(t, medium.CircleRadiusMeters, 400)
	gt.Equal(t, medium.Color, "orange")

	low := model.NewFacilityMarkerState("F1", types.TierLow, 1)
	gt.Equal(t, low.CircleRadiusMeters, 300)
	gt.Equal(t, low.Color, "green")

	unknown := model.NewFacilityMarkerState("F1", "", 0)
	gt.Equal(t, unknown.Tier, types.TierLow)
}
