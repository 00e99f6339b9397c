package usecase

import (
	"github.com/upawatch/upawatch/pkg/domain/model"
	"github.com/upawatch/upawatch/pkg/domain/types"
)

// The functions below are pure and cheap enough to be called on every map frame.
// Totals are always taken from the class counts, never from a cached total.

// SeverityTier classifies a snapshot by total waiting patients: >15 HIGH, >9 MEDIUM, otherwise LOW
func SeverityTier(snapshot *model.QueueSnapshot) types.SeverityTier {
	total := snapshot.SumOfCounts()
	switch {
	case total > model.HighTierThreshold:
		return types.TierHigh
	case total > model.MediumTierThreshold:
		return types.TierMedium
	default:
		return types.TierLow
	}
}

// PercentageByClass returns count / max(total, 1) * 100 for every class
func PercentageByClass(snapshot *model.QueueSnapshot) map[types.ClassificationCode]float64 {
	result := make(map[types.ClassificationCode]float64, len(types.AllClassifications))
	total := snapshot.SumOfCounts()
	denominator := float64(max(total, 1))
	for _, code := range types.AllClassifications {
		result[code] = float64(snapshot.Count(code)) / denominator * 100
	}
	return result
}

// AverageWaitOverall is the count-weighted average of the per-class waits; 0 when nobody waits
func AverageWaitOverall(snapshot *model.QueueSnapshot) float64 {
	total := snapshot.SumOfCounts()
	if total == 0 {
		return 0
	}
	var weighted float64
	for _, code := range types.AllClassifications {
		stat := snapshot.Classes[code]
		weighted += float64(stat.Count) * stat.AverageWaitMinutes
	}
	return weighted / float64(total)
}

// MarkerState derives the map marker of a snapshot
func MarkerState(snapshot *model.QueueSnapshot) model.FacilityMarkerState {
	if snapshot == nil {
		return model.NewFacilityMarkerState("", types.TierLow, 0)
	}
	return model.NewFacilityMarkerState(snapshot.FacilityID, SeverityTier(snapshot), snapshot.SumOfCounts())
}

// DeriveMetrics computes the full live metric set of a snapshot
func DeriveMetrics(snapshot *model.QueueSnapshot) *model.DerivedMetrics {
	if snapshot == nil {
		return nil
	}
	classes := make(map[types.ClassificationCode]model.ClassStat, len(snapshot.Classes))
	for code, stat := range snapshot.Classes {
		classes[code] = stat
	}
	avg := AverageWaitOverall(snapshot)
	return &model.DerivedMetrics{
		FacilityID:         snapshot.FacilityID,
		TotalPatients:      snapshot.SumOfCounts(),
		AwaitingTriage:     snapshot.Count(types.ClassUntriaged),
		Occupancy:          snapshot.Occupancy,
		Percentages:        PercentageByClass(snapshot),
		AverageWaitOverall: avg,
		FormattedWait:      model.FormatMinutes(avg),
		Marker:             MarkerState(snapshot),
		Classes:            classes,
		LastUpdated:        snapshot.LastUpdated,
		Stale:              snapshot.Stale,
	}
}
