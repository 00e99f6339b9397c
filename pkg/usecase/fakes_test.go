package usecase_test

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/upawatch/upawatch/pkg/domain/interfaces"
	"github.com/upawatch/upawatch/pkg/domain/model"
	"github.com/upawatch/upawatch/pkg/domain/types"
)

type fakeBackend struct {
	snapshotFn   func(ctx context.Context, id types.FacilityID) ([]byte, error)
	historicalFn func(ctx context.Context, q model.HistoricalQuery) (*model.RawHistoricalPayload, error)
	bairrosFn    func(ctx context.Context, q model.HistoricalQuery) (*model.RawBairroPayload, error)
	comparisonFn func(ctx context.Context, q model.HistoricalQuery) (*model.RawComparisonPayload, error)
	listFn       func(ctx context.Context) ([]*model.FacilityMetadata, error)
	loginFn      func(ctx context.Context, c model.Credentials) (*model.LoginResult, error)
}

var _ interfaces.Backend = (*fakeBackend)(nil)

func (f *fakeBackend) FetchFacilitySnapshot(ctx context.Context, id types.FacilityID) ([]byte, error) {
	if f.snapshotFn == nil {
		return nil, goerr.New("not implemented")
	}
	return f.snapshotFn(ctx, id)
}

func (f *fakeBackend) FetchHistorical(ctx context.Context, q model.HistoricalQuery) (*model.RawHistoricalPayload, error) {
	if f.historicalFn == nil {
		return &model.RawHistoricalPayload{}, nil
	}
	return f.historicalFn(ctx, q)
}

func (f *fakeBackend) FetchNeighborhoodStats(ctx context.Context, q model.HistoricalQuery) (*model.RawBairroPayload, error) {
	if f.bairrosFn == nil {
		return &model.RawBairroPayload{}, nil
	}
	return f.bairrosFn(ctx, q)
}

func (f *fakeBackend) FetchComparisonTriple(ctx context.Context, q model.HistoricalQuery) (*model.RawComparisonPayload, error) {
	if f.comparisonFn == nil {
		return nil, nil
	}
	return f.comparisonFn(ctx, q)
}

func (f *fakeBackend) ListFacilities(ctx context.Context) ([]*model.FacilityMetadata, error) {
	if f.listFn == nil {
		return nil, goerr.New("not implemented")
	}
	return f.listFn(ctx)
}

func (f *fakeBackend) Login(ctx context.Context, c model.Credentials) (*model.LoginResult, error) {
	if f.loginFn == nil {
		return nil, goerr.New("not implemented")
	}
	return f.loginFn(ctx, c)
}

type fakePush struct {
	mu           sync.Mutex
	subscribed   map[types.FacilityID]bool
	subscribeErr error
	handler      interfaces.DeltaHandler
}

var _ interfaces.PushChannel = (*fakePush)(nil)

func newFakePush() *fakePush {
	return &fakePush{subscribed: make(map[types.FacilityID]bool)}
}

func (p *fakePush) Subscribe(ctx context.Context, id types.FacilityID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.subscribeErr != nil {
		return p.subscribeErr
	}
	p.subscribed[id] = true
	return nil
}

func (p *fakePush) Unsubscribe(ctx context.Context, id types.FacilityID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.subscribed, id)
	return nil
}

func (p *fakePush) OnDelta(handler interfaces.DeltaHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = handler
}

func (p *fakePush) isSubscribed(id types.FacilityID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subscribed[id]
}

func (p *fakePush) deliver(ctx context.Context, raw string) {
	p.mu.Lock()
	h := p.handler
	p.mu.Unlock()
	if h != nil {
		h(ctx, []byte(raw))
	}
}

type tierChange struct {
	facility *model.FacilityMetadata
	previous model.FacilityMarkerState
	current  model.FacilityMarkerState
}

type fakeNotifier struct {
	mu      sync.Mutex
	changes []tierChange
}

func (n *fakeNotifier) NotifyTierChange(ctx context.Context, facility *model.FacilityMetadata, previous, current model.FacilityMarkerState) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, tierChange{facility: facility, previous: previous, current: current})
	return nil
}

func (n *fakeNotifier) recorded() []tierChange {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]tierChange(nil), n.changes...)
}

func intPtr(v int) *int {
	return &v
}
