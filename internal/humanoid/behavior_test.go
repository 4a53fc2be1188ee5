package humanoid

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/7blacky7/ki-browser-standalone/api/schemas"
)

func TestFatigueAccumulatesAndRecovers(t *testing.T) {
	t.Parallel()

	h := newTestSimulator(newMockExecutor(), DefaultConfig())
	require.InDelta(t, 0.0, h.FatigueLevel(), 1e-9)

	for i := 0; i < 50; i++ {
		h.updateFatigue(1.0)
	}
	fatigued := h.FatigueLevel()
	assert.Greater(t, fatigued, 0.1)
	assert.LessOrEqual(t, fatigued, 1.0)

	// Fatigue degrades precision.
	assert.Greater(t, h.dynamicConfig.GaussianStrength, h.baseConfig.GaussianStrength)

	h.recoverFatigue(10 * time.Second)
	assert.Less(t, h.FatigueLevel(), fatigued)

	// Never recovers below zero.
	h.recoverFatigue(time.Hour)
	assert.InDelta(t, 0.0, h.FatigueLevel(), 1e-9)
}

func TestFatigueClampsAtOne(t *testing.T) {
	t.Parallel()

	h := newTestSimulator(newMockExecutor(), DefaultConfig())
	for i := 0; i < 10000; i++ {
		h.updateFatigue(1.0)
	}
	assert.InDelta(t, 1.0, h.FatigueLevel(), 1e-9)
	// The typo rate cap holds even at full exhaustion.
	assert.LessOrEqual(t, h.dynamicConfig.TypoRate, 0.25)
}

func TestHesitateKeepsCursorNearby(t *testing.T) {
	t.Parallel()

	mockExec := newMockExecutor()
	mockExec.sleepCap = 5 * time.Millisecond
	h := newTestSimulator(mockExec, DefaultConfig())
	start := Vector2D{X: 400, Y: 300}
	h.SetPosition(start)

	require.NoError(t, h.Hesitate(context.Background(), 60*time.Millisecond))
	require.NotEmpty(t, mockExec.mouseEvents)

	for _, e := range mockExec.mouseEvents {
		assert.Equal(t, schemas.MouseMove, e.Type)
		// Micro-movements stay within a few pixels of the resting point.
		assert.InDelta(t, start.X, e.X, 3.0)
		assert.InDelta(t, start.Y, e.Y, 3.0)
	}
}

func TestCognitivePauseDisabledByPauseScale(t *testing.T) {
	t.Parallel()

	mockExec := newMockExecutor()
	h := newTestSimulator(mockExec, InstantConfig())

	require.NoError(t, h.CognitivePause(context.Background(), 500, 100))
	assert.Empty(t, mockExec.mouseEvents)
	assert.Empty(t, mockExec.sleepDurations)
}

func TestButtonsBitfield(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(0), buttonsBitfield(schemas.ButtonNone))
	assert.Equal(t, int64(1), buttonsBitfield(schemas.ButtonLeft))
	assert.Equal(t, int64(2), buttonsBitfield(schemas.ButtonRight))
	assert.Equal(t, int64(4), buttonsBitfield(schemas.ButtonMiddle))
}

func TestDragAndDropHoldsButton(t *testing.T) {
	t.Parallel()

	mockExec := newMockExecutor()
	h := newTestSimulator(mockExec, InstantConfig())
	h.SetPosition(Vector2D{X: 10, Y: 10})

	require.NoError(t, h.DragAndDrop(context.Background(), "#card", "#column"))

	events := mockExec.mouseEvents
	require.NotEmpty(t, events)

	pressIdx, releaseIdx := -1, -1
	for i, e := range events {
		switch e.Type {
		case schemas.MousePress:
			pressIdx = i
		case schemas.MouseRelease:
			releaseIdx = i
		}
	}
	require.GreaterOrEqual(t, pressIdx, 0)
	require.Greater(t, releaseIdx, pressIdx)

	// Every move between press and release carries the held-button bitfield.
	for _, e := range events[pressIdx+1 : releaseIdx] {
		if e.Type == schemas.MouseMove {
			assert.Equal(t, int64(1), e.Buttons)
		}
	}

	h.mu.Lock()
	assert.Equal(t, schemas.ButtonNone, h.currentButtonState)
	h.mu.Unlock()
}
