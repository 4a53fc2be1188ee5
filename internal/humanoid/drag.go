package humanoid

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/7blacky7/ki-browser-standalone/api/schemas"
)

// DragAndDrop simulates a human-like drag from one element to another: grab,
// a field-shaped drag trajectory with the button held, and release.
func (h *Simulator) DragAndDrop(ctx context.Context, startSelector, endSelector string) error {
	h.updateFatigue(1.5)

	endGeo, err := h.executor.ElementGeometry(ctx, endSelector)
	if err != nil {
		h.logger.Error("drag failed to resolve drop target",
			zap.String("selector", endSelector), zap.Error(err))
		return fmt.Errorf("humanoid: drop target %q: %w", endSelector, err)
	}
	ex, ey, ok := endGeo.Center()
	if !ok {
		return fmt.Errorf("humanoid: drop target %q has invalid geometry", endSelector)
	}
	end := Vector2D{X: ex, Y: ey}

	// Move to and grab the source element.
	if err := h.MoveTo(ctx, startSelector, nil); err != nil {
		return fmt.Errorf("humanoid: drag source %q: %w", startSelector, err)
	}
	if err := h.CognitivePause(ctx, 80, 30); err != nil {
		return err
	}

	h.mu.Lock()
	grabPos := h.currentPos
	h.mu.Unlock()

	press := schemas.MouseEventData{
		Type:       schemas.MousePress,
		X:          grabPos.X,
		Y:          grabPos.Y,
		Button:     schemas.ButtonLeft,
		ClickCount: 1,
		Buttons:    1,
	}
	if err := h.executor.DispatchMouse(ctx, press); err != nil {
		return err
	}
	h.mu.Lock()
	h.currentButtonState = schemas.ButtonLeft
	start := h.currentPos
	h.mu.Unlock()

	if err := h.CognitivePause(ctx, 100, 40); err != nil {
		return err
	}

	// The drop zone attracts the cursor, the grab point gently repels it.
	field := NewPotentialField()
	h.mu.Lock()
	attractionStrength := h.dynamicConfig.FittsA
	h.mu.Unlock()
	if attractionStrength <= 0 {
		attractionStrength = 100.0
	}
	field.AddSource(end, attractionStrength, 150.0)
	field.AddSource(start, -attractionStrength*0.2, 100.0)

	// Land inside the drop target, not dead center every time.
	h.mu.Lock()
	dragVelocity := h.lastVelocity
	h.mu.Unlock()
	dropPoint := h.calculateTargetPoint(endGeo, end, dragVelocity)

	if err := h.MoveToPoint(ctx, dropPoint, field); err != nil {
		return err
	}

	if err := h.CognitivePause(ctx, 70, 30); err != nil {
		return err
	}

	h.mu.Lock()
	dropPos := h.currentPos
	h.mu.Unlock()

	release := schemas.MouseEventData{
		Type:       schemas.MouseRelease,
		X:          dropPos.X,
		Y:          dropPos.Y,
		Button:     schemas.ButtonLeft,
		ClickCount: 1,
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
