package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFrameTimerEmpty(t *testing.T) {
	var timer frameTimer
	require.Zero(t, timer.FrameTime())
	require.Zero(t, timer.FPS())

	timer.Tick(time.Second)
	require.Zero(t, timer.FrameTime(), "first tick only sets the reference")
}

func TestFrameTimerAverage(t *testing.T) {
	var timer frameTimer
	now := time.Second
	timer.Tick(now)
	for i := 0; i < 10; i++ {
		now += 10 * time.Millisecond
		timer.Tick(now)
	}

	require.Equal(t, 10*time.Millisecond, timer.FrameTime())
	require.InDelta(t, 100, timer.FPS(), 1e-9)
}

func TestFrameTimerWindowRolls(t *testing.T) {
	var timer frameTimer
	now := time.Second
	timer.Tick(now)
	for i := 0; i < frameWindow; i++ {
		now += 50 * time.Millisecond
		timer.Tick(now)
	}
	require.Equal(t, 50*time.Millisecond, timer.FrameTime())

	// A full window of faster frames replaces every slow sample.
	for i := 0; i < frameWindow; i++ {
		now += 5 * time.Millisecond
		timer.Tick(now)
	}
	require.Equal(t, 5*time.Millisecond, timer.FrameTime())
	require.InDelta(t, 200, timer.FPS(), 1e-9)
}
