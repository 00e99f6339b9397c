package model

import (
	"time"

	"github.com/upawatch/upawatch/pkg/domain/types"
)

// DerivedMetrics is the live metric set computed from one snapshot
type DerivedMetrics struct {
	FacilityID         types.FacilityID                       `json:"facility_id"`
	TotalPatients      int                                    `json:"total_patients"`
	AwaitingTriage     int                                    `json:"awaiting_triage"`
	Occupancy          types.OccupancyStatus                  `json:"occupancy"`
	Percentages        map[types.ClassificationCode]float64   `json:"percentages"`
	AverageWaitOverall float64                                `json:"average_wait_overall"`
	FormattedWait      string                                 `json:"formatted_wait"`
	Marker             FacilityMarkerState                    `json:"marker"`
	Classes            map[types.ClassificationCode]ClassStat `json:"classes"`
	LastUpdated        time.Time                              `json:"last_updated"`
	Stale              bool                                   `json:"stale"`
}

// ReportModel is the single serializable source for on-screen charts and file exports.
// Nil sections were not available when the report was assembled.
type ReportModel struct {
	Facility         *FacilityMetadata    `json:"facility,omitempty"`
	Live             *DerivedMetrics      `json:"live,omitempty"`
	WindowLabel      string               `json:"window_label,omitempty"`
	Distribution     []DistributionRecord `json:"distribution,omitempty"`
	HistoricalTotal  int                  `json:"historical_total"`
	WaitTimes        []ClassWaitTime      `json:"wait_times,omitempty"`
	Neighborhoods    []NeighborhoodStat   `json:"neighborhoods,omitempty"`
	TopNeighborhoods []NeighborhoodStat   `json:"top_neighborhoods,omitempty"`
	Comparison       *ComparisonTriple    `json:"comparison,omitempty"`
	HasHistorical    bool                 `json:"has_historical"`
	GeneratedAt      time.Time            `json:"generated_at"`
}
