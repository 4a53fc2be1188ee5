package humanoid

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/7blacky7/ki-browser-standalone/api/schemas"
)

// computeEaseInOutCubic provides a smooth acceleration and deceleration
// profile for movement.
func computeEaseInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// calculateFittsLaw determines a realistic movement duration based on Fitts's
// Law, which models the time required to move to a target area.
func (h *Simulator) calculateFittsLaw(distance float64) time.Duration {
	const W = 30.0 // Assumed default target width in pixels.

	// Index of Difficulty.
	id := math.Log2(1.0 + distance/W)

	h.mu.Lock()
	A := h.dynamicConfig.FittsA
	B := h.dynamicConfig.FittsB
	rng := h.rng
	h.mu.Unlock()

	// Movement Time in milliseconds.
	mt := A + B*id

	// Slight randomization (+/- 15%).
	mt += mt * (rng.Float64()*0.3 - 0.15)

	return time.Duration(mt) * time.Millisecond
}

// generateIdealPath creates a human-like trajectory (a cubic Bezier curve)
// deformed by forces from a potential field.
func (h *Simulator) generateIdealPath(start, end Vector2D, field *PotentialField, numSteps int) []Vector2D {
	p0, p3 := start, end
	mainVec := end.Sub(start)
	dist := mainVec.Mag()

	if dist < 1.0 || numSteps <= 1 {
		return []Vector2D{end}
	}

	mainDir := mainVec.Normalize()

	// Sample forces at 1/3rd and 2/3rds along the path to place the control
	// points.
	samplePoint1 := start.Add(mainDir.Mul(dist / 3.0))
	force1 := field.CalculateNetForce(samplePoint1)
	samplePoint2 := start.Add(mainDir.Mul(dist * 2.0 / 3.0))
	force2 := field.CalculateNetForce(samplePoint2)

	p1 := samplePoint1.Add(force1.Mul(dist * 0.1))
	p2 := samplePoint2.Add(force2.Mul(dist * 2.0 / 3.0))

	path := make([]Vector2D, numSteps)
	for i := 0; i < numSteps; i++ {
		t := float64(i) / float64(numSteps-1)
		// Cubic Bezier curve formula.
		omt := 1.0 - t
		omt2 := omt * omt
		omt3 := omt2 * omt
		t2 := t * t
		t3 := t2 * t

		path[i] = p0.Mul(omt3).Add(p1.Mul(3 * omt2 * t)).Add(p2.Mul(3 * omt * t2)).Add(p3.Mul(t3))
	}

	// The final event must land exactly on the target.
	path[numSteps-1] = end

	return path
}

// simulateTrajectory moves the mouse along a generated path, dispatching move
// events via the executor. It returns the final velocity so the caller can
// model overshoot momentum.
func (h *Simulator) simulateTrajectory(ctx context.Context, start, end Vector2D, field *PotentialField, buttonState schemas.MouseButton) (Vector2D, error) {
	dist := start.Dist(end)
	duration := h.calculateFittsLaw(dist)
	numSteps := int(duration.Seconds() * 100)
	if numSteps < 2 {
		numSteps = 2
	}

	if field == nil {
		field = NewPotentialField()
	}

	idealPath := h.generateIdealPath(start, end, field, numSteps)
	if len(idealPath) < 2 {
		// Degenerate segment; still emit a start and an end event.
		idealPath = []Vector2D{start, end}
	}

	buttonsBitfield := buttonsBitfield(buttonState)

	var velocity Vector2D
	startTime := time.Now()
	lastPos := start
	lastTime := startTime

	for i := 0; i < len(idealPath); i++ {
		if ctx.Err() != nil {
			return velocity, ctx.Err()
		}

		// Apply easing to time to simulate acceleration and deceleration.
		t := float64(i) / float64(len(idealPath)-1)
		easedT := computeEaseInOutCubic(t)

		pathIndex := int(easedT * float64(len(idealPath)-1))
		if pathIndex >= len(idealPath) {
			pathIndex = len(idealPath) - 1
		}
		currentPos := idealPath[pathIndex]

		// Sleep until the target time for this step if we are ahead.
		currentTime := startTime.Add(time.Duration(easedT * float64(duration)))
		if sleepDur := time.Until(currentTime); sleepDur > 0 {
			if err := h.executor.Sleep(ctx, sleepDur); err != nil {
				return velocity, err
			}
		}

		now := time.Now()
		dt := now.Sub(lastTime).Seconds()
		if dt > 1e-6 {
			velocity = currentPos.Sub(lastPos).Mul(1.0 / dt).Limit(maxVelocity)
		}
		lastPos = currentPos
		lastTime = now

		// Perlin drift plus Gaussian tremor on top of the ideal point. The
		// first and final steps stay exact so the cursor starts and ends
		// precisely where requested.
		finalPoint := currentPos
		if i > 0 && i < len(idealPath)-1 {
			h.mu.Lock()
			perlinMagnitude := h.dynamicConfig.PerlinAmplitude
			h.mu.Unlock()

			const perlinFrequency = 0.8
			timeElapsed := now.Sub(startTime).Seconds()
			perlinDrift := Vector2D{
				X: h.noiseX.Noise1D(timeElapsed*perlinFrequency) * perlinMagnitude,
				Y: h.noiseY.Noise1D(timeElapsed*perlinFrequency) * perlinMagnitude,
			}
			finalPoint = h.applyGaussianNoise(currentPos.Add(perlinDrift))
		}

		eventData := schemas.MouseEventData{
			Type:   schemas.MouseMove,
			X:      finalPoint.X,
			Y:      finalPoint.Y,
			Button: schemas.ButtonNone,
		}
		if buttonsBitfield > 0 {
			// A held button (dragging) must be reflected in the bitfield.
			eventData.Button = buttonState
			eventData.Buttons = buttonsBitfield
		}

		if err := h.executor.DispatchMouse(ctx, eventData); err != nil {
			if ctx.Err() == nil {
				h.logger.Warn("failed to dispatch mouse move event", zap.Error(err))
			}
			return velocity, err
		}

		h.mu.Lock()
		h.currentPos = finalPoint
		rng := h.rng
		h.mu.Unlock()

		// Tiny delay to simulate the browser event loop cadence.
		randPart := rng.Intn(4)
		if err := h.executor.Sleep(ctx, time.Duration(2+randPart)*time.Millisecond); err != nil {
			return velocity, err
		}
	}

	return velocity, nil
}
