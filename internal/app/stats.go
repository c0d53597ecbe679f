package app

import "time"

// frameWindow is how many frame intervals the rolling average covers.
const frameWindow = 120

// frameTimer keeps a rolling average of the interval between presented
// frames.
type frameTimer struct {
	last      time.Duration
	intervals [frameWindow]time.Duration
	next      int
	filled    int
	total     time.Duration
}

// Tick records a frame presented at now.
func (t *frameTimer) Tick(now time.Duration) {
	if t.last == 0 {
		t.last = now
		return
	}

	interval := now - t.last
	t.last = now

	t.total -= t.intervals[t.next]
	t.intervals[t.next] = interval
	t.total += interval
	t.next = (t.next + 1) % frameWindow
	if t.filled < frameWindow {
		t.filled++
	}
}

func (t *frameTimer) FrameTime() time.Duration {
	if t.filled == 0 {
		return 0
	}
	return t.total / time.Duration(t.filled)
}

func (t *frameTimer) FPS() float64 {
	frameTime := t.FrameTime()
	if frameTime <= 0 {
		return 0
	}
	return float64(time.Second) / float64(frameTime)
}
