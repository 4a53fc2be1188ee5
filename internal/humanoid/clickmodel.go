package humanoid

import (
	"context"
	"fmt"
	"time"

	"github.com/7blacky7/ki-browser-standalone/api/schemas"
)

// Click performs a single left click at the current cursor position with a
// realistic press-hold-release sequence.
func (h *Simulator) Click(ctx context.Context) error {
	return h.clickAtCurrent(ctx, 1)
}

// DoubleClick performs two clicks at the current cursor position separated by
// the profile's double-click gap.
func (h *Simulator) DoubleClick(ctx context.Context) error {
	if err := h.clickAtCurrent(ctx, 1); err != nil {
		return err
	}

	h.mu.Lock()
	minMs := h.dynamicConfig.DoubleClickGapMinMs
	maxMs := h.dynamicConfig.DoubleClickGapMaxMs
	rng := h.rng
	h.mu.Unlock()
	if maxMs <= minMs {
		maxMs = minMs + 1
	}
	gap := time.Duration(minMs+rng.Intn(maxMs-minMs)) * time.Millisecond
	if gap > 0 {
		if err := h.executor.Sleep(ctx, gap); err != nil {
			return err
		}
	}

	return h.clickAtCurrent(ctx, 2)
}

// ClickElement moves to the element like a human would and clicks it.
func (h *Simulator) ClickElement(ctx context.Context, selector string, field *PotentialField) error {
	if err := h.MoveTo(ctx, selector, field); err != nil {
		return fmt.Errorf("humanoid: failed to move to %q: %w", selector, err)
	}
	if err := h.reactionPause(ctx); err != nil {
		return err
	}
	return h.Click(ctx)
}

// ClickAt moves to the given coordinate and clicks there.
func (h *Simulator) ClickAt(ctx context.Context, x, y float64) error {
	if err := h.MoveToPoint(ctx, Vector2D{X: x, Y: y}, nil); err != nil {
		return err
	}
	if err := h.reactionPause(ctx); err != nil {
		return err
	}
	return h.Click(ctx)
}

// clickAtCurrent dispatches a press/hold/release at the current position.
func (h *Simulator) clickAtCurrent(ctx context.Context, clickCount int) error {
	h.updateFatigue(0.5)

	h.mu.Lock()
	pos := h.currentPos
	h.mu.Unlock()

	press := schemas.MouseEventData{
		Type:       schemas.MousePress,
		X:          pos.X,
		Y:          pos.Y,
		Button:     schemas.ButtonLeft,
		ClickCount: clickCount,
		Buttons:    1,
	}
	if err := h.executor.DispatchMouse(ctx, press); err != nil {
		return err
	}

	h.mu.Lock()
	h.currentButtonState = schemas.ButtonLeft
	h.mu.Unlock()

	if err := h.executor.Sleep(ctx, h.clickHoldDuration()); err != nil {
		return err
	}

	// Re-read the position; a tremor during the hold may have moved it.
	h.mu.Lock()
	pos = h.currentPos
	h.mu.Unlock()

	release := schemas.MouseEventData{
		Type:       schemas.MouseRelease,
		X:          pos.X,
		Y:          pos.Y,
		Button:     schemas.ButtonLeft,
		ClickCount: clickCount,
		Buttons:    0,
	}
	if err := h.executor.DispatchMouse(ctx, release); err != nil {
		return err
	}

	h.mu.Lock()
	h.currentButtonState = schemas.ButtonNone
	h.mu.Unlock()

	return nil
}

// clickHoldDuration samples the press-to-release hold time from the profile.
func (h *Simulator) clickHoldDuration() time.Duration {
	h.mu.Lock()
	minMs := h.dynamicConfig.ClickHoldMinMs
	maxMs := h.dynamicConfig.ClickHoldMaxMs
	rng := h.rng
	h.mu.Unlock()

	if maxMs <= minMs {
		maxMs = minMs + 1
	}
	return time.Duration(minMs+rng.Intn(maxMs-minMs)) * time.Millisecond
}
