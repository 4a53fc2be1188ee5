package humanoid

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/7blacky7/ki-browser-standalone/api/schemas"
)

// MoveTo simulates human-like movement from the current position to a target
// element.
func (h *Simulator) MoveTo(ctx context.Context, selector string, field *PotentialField) error {
	// Moving is a high-intensity action.
	h.updateFatigue(1.0)

	// Cognitive pause for visual search and planning.
	if err := h.CognitivePause(ctx, 150, 50); err != nil {
		return err
	}

	geo, err := h.executor.ElementGeometry(ctx, selector)
	if err != nil {
		return fmt.Errorf("humanoid: failed to locate target element %q: %w", selector, err)
	}

	cx, cy, ok := geo.Center()
	if !ok {
		return fmt.Errorf("humanoid: element %q has invalid geometry", selector)
	}
	center := Vector2D{X: cx, Y: cy}

	// The landing point is biased by residual momentum from the previous
	// movement, then clamped inside the element.
	h.mu.Lock()
	approachVelocity := h.lastVelocity
	h.mu.Unlock()
	target := h.calculateTargetPoint(geo, center, approachVelocity)

	return h.MoveToPoint(ctx, target, field)
}

// MoveToPoint simulates human-like movement to a specific coordinate,
// including a corrective micro-movement when the main trajectory lands off
// target.
func (h *Simulator) MoveToPoint(ctx context.Context, target Vector2D, field *PotentialField) error {
	h.mu.Lock()
	start := h.currentPos
	buttonState := h.currentButtonState
	h.mu.Unlock()

	if field == nil {
		field = NewPotentialField()
	}

	finalVelocity, err := h.simulateTrajectory(ctx, start, target, field, buttonState)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.lastMovementDistance = start.Dist(target)
	h.lastVelocity = finalVelocity
	h.mu.Unlock()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	h.mu.Lock()
	finalPos := h.currentPos
	buttonState = h.currentButtonState
	h.mu.Unlock()

	// The trajectory lands on the target exactly; a corrective movement only
	// fires when an interrupted or externally nudged trajectory left the
	// cursor short.
	missDistance := target.Dist(finalPos)
	if missDistance > 1.5 {
		h.logger.Debug("corrective movement",
			zap.Float64("offset_px", missDistance),
			zap.Float64("terminal_velocity", finalVelocity.Mag()))
		_, err := h.simulateTrajectory(ctx, finalPos, target, NewPotentialField(), buttonState)
		if err == nil {
			h.mu.Lock()
			h.lastMovementDistance += missDistance
			h.mu.Unlock()
		}
		return err
	}
	return nil
}

// calculateTargetPoint determines a realistic click point within an element's
// geometry, combining a clipped Gaussian spread around the center with a bias
// in the direction of travel.
func (h *Simulator) calculateTargetPoint(geo *schemas.ElementGeometry, center Vector2D, finalVelocity Vector2D) Vector2D {
	if geo == nil || geo.Width == 0 || geo.Height == 0 {
		return center
	}

	width, height := float64(geo.Width), float64(geo.Height)

	// Effective target area is 90% of the element's dimensions.
	effectiveWidth := width * 0.9
	effectiveHeight := height * 0.9

	h.mu.Lock()
	rng := h.rng
	h.mu.Unlock()

	// Gaussian spread around the center.
	offsetX := rng.NormFloat64() * (effectiveWidth / 6.0)
	offsetY := rng.NormFloat64() * (effectiveHeight / 6.0)

	// Momentum bias in the direction of mouse travel.
	velocityMag := finalVelocity.Mag()
	normalizedVelocity := math.Min(1.0, velocityMag/4000.0)
	if velocityMag > 1e-6 {
		velDir := finalVelocity.Normalize()
		offsetX += velDir.X * normalizedVelocity * width * 0.1
		offsetY += velDir.Y * normalizedVelocity * height * 0.1
	}

	finalX := center.X + offsetX
	finalY := center.Y + offsetY

	// Clamp to the element's bounding box; the point never leaves the target.
	minX := center.X - width/2.0 + 1.0
	maxX := center.X + width/2.0 - 1.0
	minY := center.Y - height/2.0 + 1.0
	maxY := center.Y + height/2.0 - 1.0

	finalX = math.Max(minX, math.Min(maxX, finalX))
	finalY = math.Max(minY, math.Min(maxY, finalY))

	return Vector2D{X: finalX, Y: finalY}
}
