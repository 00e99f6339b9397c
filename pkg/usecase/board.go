package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/upawatch/upawatch/pkg/domain/interfaces"
	"github.com/upawatch/upawatch/pkg/domain/model"
	"github.com/upawatch/upawatch/pkg/domain/types"
)

// ErrFetchDiscarded is returned when a fetch resolved after its facility was unsubscribed
// or resubscribed, and its result was dropped
var ErrFetchDiscarded = goerr.New("fetch result discarded")

// BoardUpdate is emitted to watchers after every change of a facility snapshot
type BoardUpdate struct {
	FacilityID types.FacilityID           `json:"facility_id"`
	Snapshot   *model.QueueSnapshot       `json:"snapshot"`
	Metrics    *model.DerivedMetrics      `json:"metrics"`
	Marker     model.FacilityMarkerState  `json:"marker"`
	Previous   *model.FacilityMarkerState `json:"previous,omitempty"`
	Removed    bool                       `json:"removed,omitempty"`
}

// Watcher receives board updates. Called outside the board lock.
type Watcher func(ctx context.Context, update BoardUpdate)

type boardEntry struct {
	snapshot   *model.QueueSnapshot
	generation uint64
	holders    int
}

// Board owns the facility→snapshot table of the live view. The table is written only
// through NormalizeSnapshot (REST fetch) and Reconcile (push delta).
type Board struct {
	backend interfaces.Backend
	push    interfaces.PushChannel
	now     func() time.Time

	mu          sync.Mutex
	entries     map[types.FacilityID]*boardEntry
	generations map[types.FacilityID]uint64
	watchers    []Watcher
}

// BoardOption configures Board
type BoardOption func(*Board)

// WithBoardClock sets the clock used as fallback snapshot timestamp
func WithBoardClock(now func() time.Time) BoardOption {
	return func(b *Board) {
		b.now = now
	}
}

// NewBoard creates a new Board and registers it as the push channel delta handler
func NewBoard(backend interfaces.Backend, push interfaces.PushChannel, opts ...BoardOption) *Board {
	b := &Board{
		backend:     backend,
		push:        push,
		now:         time.Now,
		entries:     make(map[types.FacilityID]*boardEntry),
		generations: make(map[types.FacilityID]uint64),
	}
	for _, opt := range opts {
		opt(b)
	}
	if push != nil {
		push.OnDelta(b.HandleDelta)
	}
	return b
}

var _ LiveBoard = (*Board)(nil)

// Watch registers a watcher for board updates
func (b *Board) Watch(w Watcher) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.watchers = append(b.watchers, w)
}

// Subscribe takes a hold on a facility. The first hold subscribes the push channel and
// fetches the initial snapshot; later holds refresh it. Every call that passes validation
// takes a hold, even when the fetch fails, and is released with Unsubscribe.
func (b *Board) Subscribe(ctx context.Context, id types.FacilityID) (*model.QueueSnapshot, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	if entry, ok := b.entries[id]; ok {
		entry.holders++
		holders := entry.holders
		b.mu.Unlock()
		ctxlog.From(ctx).Debug("Joined facility subscription", "facility_id", id, "holders", holders)
		return b.Refresh(ctx, id)
	}
	b.generations[id]++
	generation := b.generations[id]
	b.entries[id] = &boardEntry{generation: generation, holders: 1}
	b.mu.Unlock()

	ctxlog.From(ctx).Info("Subscribed facility", "facility_id", id, "generation", generation)

	if b.push != nil {
		if err := b.push.Subscribe(ctx, id); err != nil {
			// REST refreshes keep working without the push channel
			ctxlog.From(ctx).Warn("Failed to subscribe push channel",
				"facility_id", id,
				"error", err,
			)
		}
	}

	snapshot, err := b.fetch(ctx, id, generation)
	if err != nil && errors.Is(err, model.ErrFacilityNotFound) {
		b.forget(ctx, id, generation)
	}
	return snapshot, err
}

// forget drops a facility the backend does not know with all its holders, unless it was
// resubscribed meanwhile
func (b *Board) forget(ctx context.Context, id types.FacilityID, generation uint64) {
	b.mu.Lock()
	entry, ok := b.entries[id]
	if !ok || entry.generation != generation {
		b.mu.Unlock()
		return
	}
	delete(b.entries, id)
	b.generations[id]++
	b.mu.Unlock()

	ctxlog.From(ctx).Warn("Dropped unknown facility", "facility_id", id)
	if b.push != nil {
		if err := b.push.Unsubscribe(ctx, id); err != nil {
			ctxlog.From(ctx).Warn("Failed to unsubscribe push channel", "facility_id", id, "error", err)
		}
	}
}

// Refresh re-fetches the REST snapshot of a tracked facility. On transport failure the
// previous snapshot is kept and marked stale.
func (b *Board) Refresh(ctx context.Context, id types.FacilityID) (*model.QueueSnapshot, error) {
	b.mu.Lock()
	entry, ok := b.entries[id]
	if !ok {
		b.mu.Unlock()
		return nil, goerr.Wrap(model.ErrSnapshotNotFound, "facility is not subscribed", goerr.V("facility_id", id))
	}
	generation := entry.generation
	b.mu.Unlock()

	return b.fetch(ctx, id, generation)
}

func (b *Board) fetch(ctx context.Context, id types.FacilityID, generation uint64) (*model.QueueSnapshot, error) {
	logger := ctxlog.From(ctx)

	raw, err := b.backend.FetchFacilitySnapshot(ctx, id)
	if err != nil {
		b.markStale(ctx, id, generation)
		return nil, goerr.Wrap(err, "failed to fetch facility snapshot",
			goerr.V("facility_id", id),
			goerr.T(model.ErrTagTransportFailure))
	}

	snapshot, err := NormalizeSnapshot(id, raw, b.now())
	if err != nil {
		logger.Warn("Dropping malformed queue payload", "facility_id", id, "error", err)
		return nil, err
	}
	if declared, ok := DeclaredTotal(raw); ok && declared != snapshot.TotalPatients {
		logger.Warn("Invariant violation: backend total disagrees with class counts, using sum of counts",
			"facility_id", id,
			"declared", declared,
			"computed", snapshot.TotalPatients,
		)
	}

	b.mu.Lock()
	entry, ok := b.entries[id]
	if !ok || entry.generation != generation {
		b.mu.Unlock()
		logger.Debug("Discarding stale fetch result", "facility_id", id, "generation", generation)
		return nil, goerr.Wrap(ErrFetchDiscarded, "facility changed while fetching", goerr.V("facility_id", id))
	}

	previous := entry.snapshot
	if previous != nil && snapshot.LastUpdated.Before(previous.LastUpdated) {
		// A newer delta arrived while the fetch was in flight
		snapshot = previous.Clone()
		snapshot.Stale = false
	}
	entry.snapshot = snapshot
	update := newBoardUpdate(previous, snapshot)
	watchers := b.watchersLocked()
	b.mu.Unlock()

	notify(ctx, watchers, update)
	return snapshot.Clone(), nil
}

func (b *Board) markStale(ctx context.Context, id types.FacilityID, generation uint64) {
	b.mu.Lock()
	entry, ok := b.entries[id]
	if !ok || entry.generation != generation || entry.snapshot == nil || entry.snapshot.Stale {
		b.mu.Unlock()
		return
	}
	previous := entry.snapshot
	stale := previous.Clone()
	stale.Stale = true
	entry.snapshot = stale
	update := newBoardUpdate(previous, stale)
	watchers := b.watchersLocked()
	b.mu.Unlock()

	notify(ctx, watchers, update)
}

// Unsubscribe releases one hold on a facility. Releasing the last hold stops tracking it:
// in-flight fetches are discarded on arrival and the push channel subscription is torn down.
func (b *Board) Unsubscribe(ctx context.Context, id types.FacilityID) error {
	b.mu.Lock()
	entry, ok := b.entries[id]
	if !ok {
		b.mu.Unlock()
		return nil
	}
	if entry.holders > 1 {
		entry.holders--
		holders := entry.holders
		b.mu.Unlock()
		ctxlog.From(ctx).Debug("Left facility subscription", "facility_id", id, "holders", holders)
		return nil
	}
	delete(b.entries, id)
	b.generations[id]++
	update := BoardUpdate{FacilityID: id, Removed: true}
	if entry.snapshot != nil {
		marker := MarkerState(entry.snapshot)
		update.Previous = &marker
	}
	watchers := b.watchersLocked()
	b.mu.Unlock()

	ctxlog.From(ctx).Info("Unsubscribed facility", "facility_id", id)
	notify(ctx, watchers, update)

	if b.push != nil {
		if err := b.push.Unsubscribe(ctx, id); err != nil {
			return goerr.Wrap(err, "failed to unsubscribe push channel",
				goerr.V("facility_id", id),
				goerr.T(model.ErrTagTransportFailure))
		}
	}
	return nil
}

// HandleDelta reconciles a raw push-channel event. Malformed events are logged and dropped;
// events for facilities that are not subscribed are ignored.
func (b *Board) HandleDelta(ctx context.Context, raw []byte) {
	logger := ctxlog.From(ctx)

	delta, err := ParseDelta(raw)
	if err != nil {
		logger.Warn("Dropping malformed delta", "error", err)
		return
	}

	b.mu.Lock()
	entry, ok := b.entries[delta.FacilityID]
	if !ok {
		b.mu.Unlock()
		logger.Debug("Ignoring delta for unsubscribed facility", "facility_id", delta.FacilityID)
		return
	}

	previous := entry.snapshot
	next, outcome := Reconcile(previous, delta)
	if outcome != OutcomeApplied {
		b.mu.Unlock()
		logger.Debug("Delta not applied",
			"facility_id", delta.FacilityID,
			"outcome", outcome.String(),
			"delta_timestamp", delta.Timestamp,
		)
		return
	}
	entry.snapshot = next
	update := newBoardUpdate(previous, next)
	watchers := b.watchersLocked()
	b.mu.Unlock()

	notify(ctx, watchers, update)
}

// Snapshot returns a copy of the current snapshot of a facility
func (b *Board) Snapshot(id types.FacilityID) (*model.QueueSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[id]
	if !ok || entry.snapshot == nil {
		return nil, goerr.Wrap(model.ErrSnapshotNotFound, "no snapshot for facility", goerr.V("facility_id", id))
	}
	return entry.snapshot.Clone(), nil
}

// Snapshots returns copies of all known snapshots ordered by facility ID
func (b *Board) Snapshots() []*model.QueueSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	result := make([]*model.QueueSnapshot, 0, len(b.entries))
	for _, entry := range b.entries {
		if entry.snapshot != nil {
			result = append(result, entry.snapshot.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].FacilityID < result[j].FacilityID
	})
	return result
}

// Current returns one update per known snapshot, as a late watcher would have seen them
func (b *Board) Current() []BoardUpdate {
	snapshots := b.Snapshots()
	updates := make([]BoardUpdate, 0, len(snapshots))
	for _, s := range snapshots {
		updates = append(updates, newBoardUpdate(nil, s))
	}
	return updates
}

// Subscribed returns the tracked facility IDs, including those still waiting for a first snapshot
func (b *Board) Subscribed() []types.FacilityID {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]types.FacilityID, 0, len(b.entries))
	for id := range b.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (b *Board) watchersLocked() []Watcher {
	return append([]Watcher(nil), b.watchers...)
}

func newBoardUpdate(previous, current *model.QueueSnapshot) BoardUpdate {
	update := BoardUpdate{
		FacilityID: current.FacilityID,
		Snapshot:   current.Clone(),
		Metrics:    DeriveMetrics(current),
		Marker:     MarkerState(current),
	}
	if previous != nil {
		marker := MarkerState(previous)
		update.Previous = &marker
	}
	return update
}

func notify(ctx context.Context, watchers []Watcher, update BoardUpdate) {
	for _, w := range watchers {
		w(ctx, update)
	}
}
