package dispatch

import (
	"context"
	"time"

	"github.com/7blacky7/ki-browser-standalone/api/schemas"
	"github.com/7blacky7/ki-browser-standalone/internal/engine"
)

// backendExecutor binds the input simulator to one page of a backend. One
// instance lives per tab worker, so a tab's simulated session state (cursor
// position, fatigue) follows the tab.
type backendExecutor struct {
	backend engine.Backend
	page    engine.PageID
}

func (e *backendExecutor) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *backendExecutor) DispatchMouse(ctx context.Context, ev schemas.MouseEventData) error {
	return e.backend.DispatchMouse(ctx, e.page, ev)
}

func (e *backendExecutor) DispatchKey(ctx context.Context, ev schemas.KeyEventData) error {
	return e.backend.DispatchKey(ctx, e.page, ev)
}

func (e *backendExecutor) ElementGeometry(ctx context.Context, selector string) (*schemas.ElementGeometry, error) {
	info, err := e.backend.QueryElement(ctx, e.page, selector)
	if err != nil {
		return nil, err
	}
	return info.Geometry(), nil
}

func (e *backendExecutor) Scroll(ctx context.Context, dx, dy float64) error {
	return e.backend.Scroll(ctx, e.page, dx, dy)
}
