package async

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/upawatch/upawatch/pkg/domain/model"
)

// Group runs handlers in the background and lets its owner wait for them on shutdown.
// The zero value is ready to use.
type Group struct {
	wg sync.WaitGroup
}

// Dispatch runs handler in a new goroutine. The handler gets a fresh context that outlives
// the caller but keeps its logger and auth context. Errors and panics are logged.
func (g *Group) Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	newCtx := newBackgroundContext(ctx)

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		run(newCtx, handler)
	}()
}

// Wait blocks until every dispatched handler returned or ctx is done
func (g *Group) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "background handlers still running")
	}
}

var detached Group

// Dispatch runs handler in the background without an owner waiting for it
func Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	detached.Dispatch(ctx, handler)
}

func run(ctx context.Context, handler func(ctx context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			ctxlog.From(ctx).Error("Panic in async handler",
				"recover", r,
				"stack", string(debug.Stack()),
			)
		}
	}()

	if err := handler(ctx); err != nil {
		ctxlog.From(ctx).Error("Error in async handler", "error", err)
	}
}

func newBackgroundContext(ctx context.Context) context.Context {
	newCtx := context.Background()

	if logger := ctxlog.From(ctx); logger != nil {
		newCtx = ctxlog.With(newCtx, logger)
	}
	if authCtx, ok := model.GetAuthContext(ctx); ok {
		newCtx = model.WithAuthContext(newCtx, authCtx.Clone())
	}

	return newCtx
}
