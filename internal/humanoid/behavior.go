package humanoid

import (
	"context"
	"math"
	"time"

	"github.com/7blacky7/ki-browser-standalone/api/schemas"
)

// CognitivePause simulates the time a user takes to think before the next
// action. Longer pauses idle the cursor with subtle movements.
func (h *Simulator) CognitivePause(ctx context.Context, meanMs, stdDevMs float64) error {
	h.mu.Lock()
	// Fatigue makes cognitive processes slower.
	fatigueFactor := 1.0 + h.fatigueLevel
	scale := h.baseConfig.PauseScale
	rng := h.rng
	h.mu.Unlock()

	duration := time.Duration(scale*fatigueFactor*(meanMs+rng.NormFloat64()*stdDevMs)) * time.Millisecond
	if duration <= 0 {
		return nil
	}

	h.recoverFatigue(duration)

	if duration > 100*time.Millisecond {
		return h.Hesitate(ctx, duration)
	}
	return h.executor.Sleep(ctx, duration)
}

// Hesitate simulates a user pausing with subtle, continuous cursor movements
// over the given duration.
func (h *Simulator) Hesitate(ctx context.Context, duration time.Duration) error {
	h.mu.Lock()
	startPos := h.currentPos
	rng := h.rng
	// Keep the held button state during hesitation (matters while dragging).
	heldButton := h.currentButtonState
	h.mu.Unlock()

	buttons := buttonsBitfield(heldButton)
	startTime := time.Now()

	for time.Since(startTime) < duration {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		h.mu.Lock()
		targetPos := startPos.Add(Vector2D{
			X: (rng.Float64() - 0.5) * 5,
			Y: (rng.Float64() - 0.5) * 5,
		})
		randIntVal := rng.Intn(100)
		h.mu.Unlock()

		eventData := schemas.MouseEventData{
			Type:    schemas.MouseMove,
			X:       targetPos.X,
			Y:       targetPos.Y,
			Button:  schemas.ButtonNone,
			Buttons: buttons,
		}
		if err := h.executor.DispatchMouse(ctx, eventData); err != nil {
			return err
		}

		h.mu.Lock()
		h.currentPos = targetPos
		h.mu.Unlock()

		pauseDuration := time.Duration(50+randIntVal) * time.Millisecond
		if remaining := duration - time.Since(startTime); pauseDuration > remaining {
			pauseDuration = remaining
		}
		if pauseDuration <= 0 {
			break
		}

		if err := h.executor.Sleep(ctx, pauseDuration); err != nil {
			return err
		}
	}
	return nil
}

// reactionPause waits the profile's reaction time before an action.
func (h *Simulator) reactionPause(ctx context.Context) error {
	h.mu.Lock()
	minMs := h.dynamicConfig.ReactionMinMs
	maxMs := h.dynamicConfig.ReactionMaxMs
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

// applyGaussianNoise adds high-frequency tremor to a mouse coordinate.
func (h *Simulator) applyGaussianNoise(point Vector2D) Vector2D {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Strength varies slightly around the dynamic config value.
	strength := h.dynamicConfig.GaussianStrength * (0.5 + h.rng.Float64())
	pX := h.rng.NormFloat64() * strength
	pY := h.rng.NormFloat64() * strength

	return Vector2D{X: point.X + pX, Y: point.Y + pY}
}

// applyFatigueEffects adjusts the dynamic configuration from the current
// fatigue level: movements get slower and less precise, typing sloppier.
// Callers must hold h.mu.
func (h *Simulator) applyFatigueEffects() {
	// fatigueFactor ranges from 1.0 (rested) to 2.0 (exhausted).
	fatigueFactor := 1.0 + h.fatigueLevel

	h.dynamicConfig.GaussianStrength = h.baseConfig.GaussianStrength * fatigueFactor
	h.dynamicConfig.PerlinAmplitude = h.baseConfig.PerlinAmplitude * fatigueFactor
	h.dynamicConfig.FittsA = h.baseConfig.FittsA * fatigueFactor

	// Typing accuracy decreases more sharply.
	h.dynamicConfig.TypoRate = h.baseConfig.TypoRate * (1.0 + h.fatigueLevel*2.0)
	h.dynamicConfig.TypoRate = math.Min(0.25, h.dynamicConfig.TypoRate)
}

// updateFatigue raises the fatigue level by action intensity (normalized load,
// typically 0.0 to 1.0 per action).
func (h *Simulator) updateFatigue(intensity float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.fatigueLevel += h.baseConfig.FatigueIncreaseRate * intensity
	h.fatigueLevel = math.Min(1.0, h.fatigueLevel)

	h.applyFatigueEffects()
}

// recoverFatigue lowers the fatigue level proportionally to pause duration.
func (h *Simulator) recoverFatigue(duration time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.fatigueLevel -= h.baseConfig.FatigueRecoveryRate * duration.Seconds()
	h.fatigueLevel = math.Max(0.0, h.fatigueLevel)

	h.applyFatigueEffects()
}

// buttonsBitfield converts a button into the bitfield representation used by
// browser automation protocols (1: left, 2: right, 4: middle).
func buttonsBitfield(button schemas.MouseButton) int64 {
	switch button {
	case schemas.ButtonLeft:
		return 1
	case schemas.ButtonRight:
		return 2
	case schemas.ButtonMiddle:
		return 4
	}
	return 0
}
