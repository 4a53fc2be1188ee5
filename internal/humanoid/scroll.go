package humanoid

import (
	"context"
	"math"
	"time"
)

// ScrollBy scrolls the page by the given total deltas in human-sized wheel
// chunks with reading pauses, occasionally overshooting and rolling back.
func (h *Simulator) ScrollBy(ctx context.Context, dx, dy float64) error {
	h.updateFatigue(0.3)

	h.mu.Lock()
	cfg := h.dynamicConfig
	rng := h.rng
	shouldOvershoot := rng.Float64() < cfg.ScrollOvershootProbability
	h.mu.Unlock()

	remainingX, remainingY := dx, dy

	for math.Abs(remainingX) > 1 || math.Abs(remainingY) > 1 {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		h.mu.Lock()
		stepRange := cfg.ScrollStepMax - cfg.ScrollStepMin
		step := cfg.ScrollStepMin
		if stepRange > 0 {
			step += rng.Float64() * stepRange
		}
		h.mu.Unlock()

		stepX := clampMagnitude(remainingX, step)
		stepY := clampMagnitude(remainingY, step)

		if err := h.executor.Scroll(ctx, stepX, stepY); err != nil {
			return err
		}
		remainingX -= stepX
		remainingY -= stepY

		if err := h.scrollPause(ctx); err != nil {
			return err
		}
	}

	if shouldOvershoot && (math.Abs(dx) > 200 || math.Abs(dy) > 200) {
		return h.scrollOvershoot(ctx, dx, dy)
	}
	return nil
}

// scrollOvershoot scrolls slightly past the target and rolls back, simulating
// a user losing the target and correcting.
func (h *Simulator) scrollOvershoot(ctx context.Context, dx, dy float64) error {
	h.mu.Lock()
	rng := h.rng
	h.mu.Unlock()

	factor := 0.05 + rng.Float64()*0.1
	overX := dx * factor
	overY := dy * factor

	if err := h.executor.Scroll(ctx, overX, overY); err != nil {
		return err
	}
	if err := h.scrollPause(ctx); err != nil {
		return err
	}
	return h.executor.Scroll(ctx, -overX, -overY)
}

// scrollPause waits the profile's inter-chunk scroll pause.
func (h *Simulator) scrollPause(ctx context.Context) error {
	h.mu.Lock()
	minMs := h.dynamicConfig.ScrollPauseMinMs
	maxMs := h.dynamicConfig.ScrollPauseMaxMs
	rng := h.rng
	h.mu.Unlock()

	if maxMs <= minMs {
		maxMs = minMs + 1
	}
	d := time.Duration(minMs+rng.Intn(maxMs-minMs)) * time.Millisecond
	if d <= 0 {
		return nil
	}
	return h.executor.Sleep(ctx, d)
}

// clampMagnitude limits value to +/- max, preserving sign.
func clampMagnitude(value, max float64) float64 {
	if value > max {
		return max
	}
	if value < -max {
		return -max
	}
	return value
}
