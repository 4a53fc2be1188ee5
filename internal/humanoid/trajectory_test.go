package humanoid

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/aquilax/go-perlin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/7blacky7/ki-browser-standalone/api/schemas"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockExecutor implements the Executor interface for testing, recording every
// dispatched event instead of driving a browser.
type mockExecutor struct {
	mu sync.Mutex

	mouseEvents    []schemas.MouseEventData
	keyEvents      []schemas.KeyEventData
	scrolls        [][2]float64
	sleepDurations []time.Duration

	geometry    *schemas.ElementGeometry
	geometryErr error

	returnErr    error
	failOnCall   int // DispatchMouse call number to fail on.
	cancelOnCall int // DispatchMouse call number to trigger cancellation on.
	callCount    int
	cancelFunc   context.CancelFunc

	// sleepCap, when set, makes Sleep actually block for min(d, sleepCap) so
	// wall-clock driven loops make progress without slowing the suite down.
	sleepCap time.Duration
}

func newMockExecutor() *mockExecutor {
	return &mockExecutor{
		mouseEvents:    make([]schemas.MouseEventData, 0),
		sleepDurations: make([]time.Duration, 0),
	}
}

func (m *mockExecutor) Sleep(ctx context.Context, d time.Duration) error {
	// Mimic a context-aware sleep without actually sleeping.
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m.mu.Lock()
	m.sleepDurations = append(m.sleepDurations, d)
	limit := m.sleepCap
	m.mu.Unlock()

	if limit > 0 && d > 0 {
		if d > limit {
			d = limit
		}
		time.Sleep(d)
	}
	return nil
}

func (m *mockExecutor) DispatchMouse(ctx context.Context, data schemas.MouseEventData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCount++
	if m.returnErr != nil && m.failOnCall > 0 && m.callCount >= m.failOnCall {
		return m.returnErr
	}

	m.mouseEvents = append(m.mouseEvents, data)

	if m.cancelOnCall > 0 && len(m.mouseEvents) == m.cancelOnCall && m.cancelFunc != nil {
		m.cancelFunc()
	}
	return nil
}

func (m *mockExecutor) DispatchKey(ctx context.Context, data schemas.KeyEventData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keyEvents = append(m.keyEvents, data)
	return nil
}

func (m *mockExecutor) ElementGeometry(ctx context.Context, selector string) (*schemas.ElementGeometry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.geometryErr != nil {
		return nil, m.geometryErr
	}
	if m.geometry != nil {
		return m.geometry, nil
	}
	return &schemas.ElementGeometry{
		Vertices: []float64{100, 100, 200, 100, 200, 140, 100, 140},
		Width:    100,
		Height:   40,
		TagName:  "BUTTON",
	}, nil
}

func (m *mockExecutor) Scroll(ctx context.Context, dx, dy float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scrolls = append(m.scrolls, [2]float64{dx, dy})
	return nil
}

func (m *mockExecutor) typedKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, len(m.keyEvents))
	for i, e := range m.keyEvents {
		keys[i] = e.Key
	}
	return keys
}

// newTestSimulator creates a Simulator with deterministic dependencies.
func newTestSimulator(executor Executor, cfg Config) *Simulator {
	const seed = 12345
	rng := rand.New(rand.NewSource(seed))
	cfg.Rng = rng

	h := New(cfg, zap.NewNop(), executor)
	h.rng = rng

	// Fixed-seed noise generators for determinism.
	h.noiseX = perlin.NewPerlin(2, 2, 3, seed)
	h.noiseY = perlin.NewPerlin(2, 2, 3, seed+1)

	// Pin the persona parameters so duration math is predictable.
	h.dynamicConfig.FittsA = 100.0
	h.dynamicConfig.FittsB = 150.0
	h.dynamicConfig.PerlinAmplitude = 2.0
	h.dynamicConfig.GaussianStrength = 0.5
	h.baseConfig.FittsA = 100.0
	h.baseConfig.FittsB = 150.0
	h.baseConfig.PerlinAmplitude = 2.0
	h.baseConfig.GaussianStrength = 0.5

	return h
}

func TestComputeEaseInOutCubic(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.0, computeEaseInOutCubic(0.0), 1e-9)
	assert.InDelta(t, 0.5, computeEaseInOutCubic(0.5), 1e-9)
	assert.InDelta(t, 1.0, computeEaseInOutCubic(1.0), 1e-9)

	// Monotonically increasing across the whole interval.
	prev := -1.0
	for i := 0; i <= 100; i++ {
		v := computeEaseInOutCubic(float64(i) / 100.0)
		assert.GreaterOrEqual(t, v, prev)
		prev = v
	}

	// Slow start, slow end: the first decile covers less progress than the
	// middle one.
	startSpan := computeEaseInOutCubic(0.1) - computeEaseInOutCubic(0.0)
	midSpan := computeEaseInOutCubic(0.55) - computeEaseInOutCubic(0.45)
	assert.Less(t, startSpan, midSpan)
}

func TestCalculateFittsLaw(t *testing.T) {
	t.Parallel()

	// With FittsA=100 and FittsB=150 the deterministic base duration is
	// MT = 100 + 150*log2(1 + D/30); jitter stays within +/- 15%.
	testCases := []struct {
		name     string
		distance float64
		baseMs   float64
	}{
		{name: "zero_distance", distance: 0.0, baseMs: 100.0},
		{name: "short_distance", distance: 100.0, baseMs: 417.25},
		{name: "long_distance", distance: 800.0, baseMs: 818.54},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			h := newTestSimulator(newMockExecutor(), DefaultConfig())
			duration := h.calculateFittsLaw(tc.distance)
			ms := float64(duration) / float64(time.Millisecond)
			assert.GreaterOrEqual(t, ms, tc.baseMs*0.85-1)
			assert.LessOrEqual(t, ms, tc.baseMs*1.15+1)
		})
	}
}

func TestGenerateIdealPath(t *testing.T) {
	t.Parallel()

	h := newTestSimulator(newMockExecutor(), DefaultConfig())
	start := Vector2D{X: 10, Y: 10}
	end := Vector2D{X: 400, Y: 300}

	path := h.generateIdealPath(start, end, NewPotentialField(), 50)
	require.Len(t, path, 50)

	// Endpoints are exact.
	assert.InDelta(t, start.X, path[0].X, 1e-9)
	assert.InDelta(t, start.Y, path[0].Y, 1e-9)
	assert.InDelta(t, end.X, path[49].X, 1e-9)
	assert.InDelta(t, end.Y, path[49].Y, 1e-9)

	// Degenerate cases collapse to the end point.
	assert.Equal(t, []Vector2D{end}, h.generateIdealPath(end, end, NewPotentialField(), 50))
	assert.Equal(t, []Vector2D{end}, h.generateIdealPath(start, end, NewPotentialField(), 1))
}

func TestGenerateIdealPathFieldDeformation(t *testing.T) {
	t.Parallel()

	h := newTestSimulator(newMockExecutor(), DefaultConfig())
	start := Vector2D{X: 0, Y: 100}
	end := Vector2D{X: 400, Y: 100}

	straight := h.generateIdealPath(start, end, NewPotentialField(), 50)

	// A strong attractor below the line must pull the midpoints downward.
	field := NewPotentialField()
	field.AddSource(Vector2D{X: 200, Y: 400}, 5.0, 200.0)
	bent := h.generateIdealPath(start, end, field, 50)

	assert.Greater(t, bent[25].Y, straight[25].Y)

	// The deformation never moves the endpoints.
	assert.InDelta(t, end.X, bent[49].X, 1e-9)
	assert.InDelta(t, end.Y, bent[49].Y, 1e-9)
}

func TestSimulateTrajectory(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		start, end  Vector2D
		buttonState schemas.MouseButton
		field       *PotentialField
		setupMock   func(m *mockExecutor, cancel context.CancelFunc)
		validate    func(t *testing.T, m *mockExecutor, finalVelocity Vector2D, err error)
	}{
		{
			name:        "happy_path_short_move_no_button",
			start:       Vector2D{X: 100, Y: 100},
			end:         Vector2D{X: 250, Y: 220},
			buttonState: schemas.ButtonNone,
			field:       NewPotentialField(),
			setupMock:   func(m *mockExecutor, cancel context.CancelFunc) {},
			validate: func(t *testing.T, m *mockExecutor, finalVelocity Vector2D, err error) {
				require.NoError(t, err)
				require.GreaterOrEqual(t, len(m.mouseEvents), 2)

				first := m.mouseEvents[0]
				assert.Equal(t, schemas.MouseMove, first.Type)
				assert.Equal(t, schemas.ButtonNone, first.Button)
				// The trajectory starts exactly at the start point.
				assert.InDelta(t, 100.0, first.X, 1e-6)
				assert.InDelta(t, 100.0, first.Y, 1e-6)

				last := m.mouseEvents[len(m.mouseEvents)-1]
				assert.Equal(t, schemas.MouseMove, last.Type)
				// And ends exactly on the target.
				assert.InDelta(t, 250.0, last.X, 1e-6)
				assert.InDelta(t, 220.0, last.Y, 1e-6)

				// At least the per-step render delay sleeps happened.
				assert.GreaterOrEqual(t, len(m.sleepDurations), len(m.mouseEvents))
			},
		},
		{
			name:        "left_button_drag",
			start:       Vector2D{X: 50, Y: 50},
			end:         Vector2D{X: 100, Y: 100},
			buttonState: schemas.ButtonLeft,
			field:       NewPotentialField(),
			setupMock:   func(m *mockExecutor, cancel context.CancelFunc) {},
			validate: func(t *testing.T, m *mockExecutor, finalVelocity Vector2D, err error) {
				require.NoError(t, err)
				require.NotEmpty(t, m.mouseEvents)
				for _, event := range m.mouseEvents {
					assert.Equal(t, schemas.ButtonLeft, event.Button)
					assert.Equal(t, int64(1), event.Buttons)
				}
			},
		},
		{
			name:        "context_cancellation_mid_trajectory",
			start:       Vector2D{X: 0, Y: 0},
			end:         Vector2D{X: 500, Y: 500},
			buttonState: schemas.ButtonNone,
			field:       NewPotentialField(),
			setupMock: func(m *mockExecutor, cancel context.CancelFunc) {
				m.cancelOnCall = 10
				m.cancelFunc = cancel
			},
			validate: func(t *testing.T, m *mockExecutor, finalVelocity Vector2D, err error) {
				require.Error(t, err)
				assert.ErrorIs(t, err, context.Canceled)
				// The loop terminates in the sleep after the 10th dispatch.
				assert.Len(t, m.mouseEvents, 10)
			},
		},
		{
			name:        "dependency_failure_mid_trajectory",
			start:       Vector2D{X: 0, Y: 0},
			end:         Vector2D{X: 500, Y: 500},
			buttonState: schemas.ButtonNone,
			field:       NewPotentialField(),
			setupMock: func(m *mockExecutor, cancel context.CancelFunc) {
				m.returnErr = errors.New("engine disconnected")
				m.failOnCall = 5
			},
			validate: func(t *testing.T, m *mockExecutor, finalVelocity Vector2D, err error) {
				require.Error(t, err)
				assert.EqualError(t, err, "engine disconnected")
				// 4 events recorded before the 5th dispatch fails.
				assert.Len(t, m.mouseEvents, 4)
			},
		},
		{
			name:        "zero_distance_move",
			start:       Vector2D{X: 300, Y: 300},
			end:         Vector2D{X: 300, Y: 300},
			buttonState: schemas.ButtonNone,
			field:       NewPotentialField(),
			setupMock:   func(m *mockExecutor, cancel context.CancelFunc) {},
			validate: func(t *testing.T, m *mockExecutor, finalVelocity Vector2D, err error) {
				require.NoError(t, err)
				// numSteps is clamped to a minimum of 2.
				assert.Len(t, m.mouseEvents, 2)
			},
		},
		{
			name:        "nil_potential_field",
			start:       Vector2D{X: 10, Y: 10},
			end:         Vector2D{X: 20, Y: 20},
			buttonState: schemas.ButtonNone,
			field:       nil,
			setupMock:   func(m *mockExecutor, cancel context.CancelFunc) {},
			validate: func(t *testing.T, m *mockExecutor, finalVelocity Vector2D, err error) {
				require.NoError(t, err)
				assert.NotEmpty(t, m.mouseEvents)
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mockExec := newMockExecutor()
			h := newTestSimulator(mockExec, DefaultConfig())

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			tc.setupMock(mockExec, cancel)

			finalVelocity, err := h.simulateTrajectory(ctx, tc.start, tc.end, tc.field, tc.buttonState)

			tc.validate(t, mockExec, finalVelocity, err)
		})
	}
}

func TestFixedSeedReproducesSampling(t *testing.T) {
	t.Parallel()

	build := func() *Simulator {
		cfg := DefaultConfig()
		cfg.Rng = rand.New(rand.NewSource(99))
		return New(cfg, zap.NewNop(), newMockExecutor())
	}
	a := build()
	b := build()

	// The drift generators derive from the injected source, not the wall
	// clock, so two identically seeded simulators sample identical noise.
	for _, x := range []float64{0.1, 0.37, 1.9} {
		assert.Equal(t, a.noiseX.Noise1D(x), b.noiseX.Noise1D(x))
		assert.Equal(t, a.noiseY.Noise1D(x), b.noiseY.Noise1D(x))
	}

	// Persona sampling and duration jitter land on the same values too.
	assert.Equal(t, a.dynamicConfig.FittsA, b.dynamicConfig.FittsA)
	assert.Equal(t, a.dynamicConfig.PerlinAmplitude, b.dynamicConfig.PerlinAmplitude)
	assert.Equal(t, a.calculateFittsLaw(250), b.calculateFittsLaw(250))

	start := Vector2D{X: 5, Y: 5}
	end := Vector2D{X: 300, Y: 200}
	assert.Equal(t,
		a.generateIdealPath(start, end, NewPotentialField(), 40),
		b.generateIdealPath(start, end, NewPotentialField(), 40))
}

func TestMoveToPointEndsOnTarget(t *testing.T) {
	t.Parallel()

	mockExec := newMockExecutor()
	h := newTestSimulator(mockExec, DefaultConfig())
	h.SetPosition(Vector2D{X: 10, Y: 10})

	target := Vector2D{X: 480, Y: 360}
	require.NoError(t, h.MoveToPoint(context.Background(), target, nil))

	pos := h.Position()
	assert.InDelta(t, target.X, pos.X, 1e-6)
	assert.InDelta(t, target.Y, pos.Y, 1e-6)
}
