package model

import (
	"time"

	"github.com/upawatch/upawatch/pkg/domain/types"
)

// ClassStat holds the queue state of a single triage class
type ClassStat struct {
	Count              int     `json:"count"`
	AverageWaitMinutes float64 `json:"average_wait_minutes"`
}

// QueueSnapshot is the canonical current queue state of one facility
type QueueSnapshot struct {
	FacilityID     types.FacilityID                       `json:"facility_id"`
	Classes        map[types.ClassificationCode]ClassStat `json:"classes"`
	TotalPatients  int                                    `json:"total_patients"`
	AwaitingTriage int                                    `json:"awaiting_triage"`
	Occupancy      types.OccupancyStatus                  `json:"occupancy"`
	LastUpdated    time.Time                              `json:"last_updated"`
	// Stale is set when the latest refresh failed and the data shown is the last known good one
	Stale bool `json:"stale"`
}

// NewQueueSnapshot creates an empty snapshot with every class present and zeroed
func NewQueueSnapshot(facilityID types.FacilityID) *QueueSnapshot {
	classes := make(map[types.ClassificationCode]ClassStat, len(types.AllClassifications))
	for _, code := range types.AllClassifications {
		classes[code] = ClassStat{}
	}
	return &QueueSnapshot{
		FacilityID: facilityID,
		Classes:    classes,
		Occupancy:  types.OccupancyLow,
	}
}

// Count returns the number of patients waiting in a class
func (s *QueueSnapshot) Count(code types.ClassificationCode) int {
	if s == nil {
		return 0
	}
	return s.Classes[code].Count
}

// SumOfCounts returns the sum of all five class counts
func (s *QueueSnapshot) SumOfCounts() int {
	if s == nil {
		return 0
	}
	total := 0
	for _, code := range types.AllClassifications {
		total += s.Classes[code].Count
	}
	return total
}

// RecomputeTotals derives TotalPatients and AwaitingTriage from the class counts.
// It returns false when the previous total disagreed with the sum of parts.
func (s *QueueSnapshot) RecomputeTotals() bool {
	sum := s.SumOfCounts()
	consistent := s.TotalPatients == sum
	s.TotalPatients = sum
	s.AwaitingTriage = s.Classes[types.ClassUntriaged].Count
	return consistent
}

// Clone creates a deep copy of the snapshot
func (s *QueueSnapshot) Clone() *QueueSnapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.Classes = make(map[types.ClassificationCode]ClassStat, len(s.Classes))
	for code, stat := range s.Classes {
		c.Classes[code] = stat
	}
	return &c
}

// QueueDelta is a partial push update for one facility. Nil fields are absent from the event.
type QueueDelta struct {
	FacilityID  types.FacilityID                     `json:"facility_id"`
	Counts      map[types.ClassificationCode]int     `json:"counts,omitempty"`
	WaitMinutes map[types.ClassificationCode]float64 `json:"wait_minutes,omitempty"`
	Occupancy   *types.OccupancyStatus               `json:"occupancy,omitempty"`
	Timestamp   time.Time                            `json:"timestamp"`
}
