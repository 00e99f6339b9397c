package model

import "github.com/upawatch/upawatch/pkg/domain/types"

// Tier thresholds on total waiting patients; comparisons are strictly greater-than
const (
	MediumTierThreshold = 9
	HighTierThreshold   = 15
)

// FacilityMarkerState is the map marker derived from a snapshot. Never persisted.
type FacilityMarkerState struct {
	FacilityID         types.FacilityID   `json:"facility_id"`
	Tier               types.SeverityTier `json:"tier"`
	CircleRadiusMeters int                `json:"circle_radius_meters"`
	Color              string             `json:"color"`
	TotalPatients      int                `json:"total_patients"`
}

type tierStyle struct {
	radius int
	color  string
}

var tierStyles = map[types.SeverityTier]tierStyle{
	types.TierHigh:   {radius: 500, color: "red"},
	types.TierMedium: {radius: 400, color: "orange"},
	types.TierLow:    {radius: 300, color: "green"},
}

// NewFacilityMarkerState builds the marker for a tier
func NewFacilityMarkerState(facilityID types.FacilityID, tier types.SeverityTier, total int) FacilityMarkerState {
	style, ok := tierStyles[tier]
	if !ok {
		tier = types.TierLow
		style = tierStyles[types.TierLow]
	}
	return FacilityMarkerState{
		FacilityID:         facilityID,
		Tier:               tier,
		CircleRadiusMeters: style.radius,
		Color:              style.color,
		TotalPatients:      total,
	}
}
