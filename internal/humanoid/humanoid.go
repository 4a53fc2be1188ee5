// Package humanoid simulates human input: Bezier mouse trajectories shaped by
// Fitts's Law and a potential field, rhythm-aware typing with a typo model,
// and fatigue that degrades precision over a session.
package humanoid

import (
	"math/rand"
	"sync"
	"time"

	"github.com/aquilax/go-perlin"
	"go.uber.org/zap"

	"github.com/7blacky7/ki-browser-standalone/api/schemas"
)

// maxVelocity is the maximum physiological mouse velocity in pixels per second.
const maxVelocity = 6000.0

// Simulator manages the state and execution of human-like interactions on a
// single page. It is safe for concurrent use, though callers normally
// serialize per-tab interactions anyway.
type Simulator struct {
	// baseConfig defines the session persona; dynamicConfig is the current
	// state after fatigue effects are applied.
	baseConfig    Config
	dynamicConfig Config

	executor Executor
	logger   *zap.Logger

	mu sync.Mutex

	currentPos         Vector2D
	currentButtonState schemas.MouseButton

	// fatigueLevel ranges from 0.0 (rested) to 1.0 (exhausted).
	fatigueLevel float64

	lastActionTime       time.Time
	lastMovementDistance float64
	lastVelocity         Vector2D

	rng    *rand.Rand
	noiseX *perlin.Perlin
	noiseY *perlin.Perlin
}

// New creates a Simulator driving the given executor. A nil Config.Rng gets a
// time-seeded RNG; tests inject a fixed-seed one for determinism. The Perlin
// generators are seeded from the same source, so a fixed-seed Rng reproduces
// the full sample sequence, drift included.
func New(config Config, logger *zap.Logger, executor Executor) *Simulator {
	var seed int64
	rng := config.Rng
	if rng == nil {
		seed = time.Now().UnixNano()
		rng = rand.New(rand.NewSource(seed))
	} else {
		seed = rng.Int63()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	config.NormalizeTypoRates()
	config.FinalizeSessionPersona(rng)

	// Standard Perlin parameters.
	alpha, beta, n := 2.0, 2.0, int32(3)

	return &Simulator{
		baseConfig:         config,
		dynamicConfig:      config,
		executor:           executor,
		logger:             logger,
		rng:                rng,
		lastActionTime:     time.Now(),
		currentButtonState: schemas.ButtonNone,
		noiseX:             perlin.NewPerlin(alpha, beta, n, seed),
		noiseY:             perlin.NewPerlin(alpha, beta, n, seed+1),
	}
}

// Position returns the simulator's current cursor position.
func (h *Simulator) Position() Vector2D {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentPos
}

// SetPosition moves the internal cursor tracker without dispatching events.
// Used when a page is (re)attached and the cursor position is known.
func (h *Simulator) SetPosition(pos Vector2D) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.currentPos = pos
}

// FatigueLevel reports the current fatigue in [0, 1].
func (h *Simulator) FatigueLevel() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fatigueLevel
}
