package usecase

import (
	"github.com/upawatch/upawatch/pkg/domain/model"
)

// ReconcileOutcome tells what Reconcile did with a delta
type ReconcileOutcome int

const (
	// OutcomeApplied means the delta produced a new snapshot
	OutcomeApplied ReconcileOutcome = iota
	// OutcomeStale means the delta was older than the current snapshot and was discarded
	OutcomeStale
	// OutcomeIgnored means the delta targeted another facility or was empty
	OutcomeIgnored
)

// String returns the string representation of the outcome
func (o ReconcileOutcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeStale:
		return "stale"
	case OutcomeIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// Reconcile merges a push delta into the current snapshot with last-write-wins by timestamp.
// Deltas are partial patches: absent fields keep their previous value, while the total and the
// awaiting-triage count are always recomputed from the patched class counts.
// When current is nil a snapshot is synthesized from normalizer defaults plus the delta.
// The current snapshot is never mutated; on a stale or ignored delta it is returned as is.
func Reconcile(current *model.QueueSnapshot, delta *model.QueueDelta) (*model.QueueSnapshot, ReconcileOutcome) {
	if delta == nil || delta.FacilityID == "" {
		return current, OutcomeIgnored
	}
	if current != nil && current.FacilityID != delta.FacilityID {
		return current, OutcomeIgnored
	}
	if current != nil && delta.Timestamp.Before(current.LastUpdated) {
		return current, OutcomeStale
	}

	var next *model.QueueSnapshot
	if current != nil {
		next = current.Clone()
	} else {
		next = model.NewQueueSnapshot(delta.FacilityID)
	}

	for code, n := range delta.Counts {
		if !code.IsValid() {
			continue
		}
		if n < 0 {
			n = 0
		}
		stat := next.Classes[code]
		stat.Count = n
		next.Classes[code] = stat
	}
	for code, wait := range delta.WaitMinutes {
		if !code.IsValid() {
			continue
		}
		stat := next.Classes[code]
		stat.AverageWaitMinutes = clampWait(wait)
		next.Classes[code] = stat
	}
	if delta.Occupancy != nil && delta.Occupancy.IsValid() {
		next.Occupancy = *delta.Occupancy
	}

	next.LastUpdated = delta.Timestamp
	next.Stale = false
	next.RecomputeTotals()
	return next, OutcomeApplied
}
