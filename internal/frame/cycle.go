package frame

import (
	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
)

// MaxFramesInFlight is the size of the in-flight ring.
const MaxFramesInFlight = 2

// ErrSurfaceStale is returned by acquire and present when the presentation
// surface no longer matches the swapchain (out of date or suboptimal). It is
// the only recoverable condition in the cycle.
var ErrSurfaceStale = errors.New("presentation surface out of date")

// Surface is the window side of the cycle.
type Surface interface {
	DrawableExtent() (width, height int)
	Resized() bool
	ClearResized()
}

// Target is the device side of the cycle. Slots index the in-flight ring,
// images index the swapchain.
type Target interface {
	ImageCount() int
	// WaitSlot blocks until the fence of slot has signaled.
	WaitSlot(slot int) error
	// AcquireImage returns the next presentable image, signaling the slot's
	// image-available semaphore. May return ErrSurfaceStale.
	AcquireImage(slot int) (int, error)
	UpdateUniforms(image int) error
	ResetSlot(slot int) error
	// Submit queues the image's command buffer fenced by the slot.
	Submit(slot, image int) error
	// Present may return ErrSurfaceStale after a successful queueing.
	Present(slot, image int) error
	// Recreate rebuilds the swapchain and everything sized by it.
	Recreate() error
}

type Outcome int

const (
	// OutcomePresented means the frame was submitted and presented.
	OutcomePresented Outcome = iota
	// OutcomePresentedRecreated means the frame was presented and the
	// swapchain was then rebuilt.
	OutcomePresentedRecreated
	// OutcomeRecreated means acquire found the surface stale; nothing was
	// submitted this cycle.
	OutcomeRecreated
	// OutcomeSkipped means the surface is minimized; no device call was made.
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomePresented:
		return "presented"
	case OutcomePresentedRecreated:
		return "presented+recreated"
	case OutcomeRecreated:
		return "recreated"
	case OutcomeSkipped:
		return "skipped"
	}
	return "unknown"
}

type Stats struct {
	Presents  int
	Recreates int
	Skipped   int
}

// Cycle drives Acquire -> WaitPriorOwner -> Submit -> Present over a ring of
// MaxFramesInFlight slots.
type Cycle struct {
	surface Surface
	target  Target
	logger  *log.Logger

	current int
	owners  *Ownership
	stats   Stats
}

func NewCycle(surface Surface, target Target, logger *log.Logger) *Cycle {
	return &Cycle{
		surface: surface,
		target:  target,
		logger:  logger.With("component", "frame"),
		owners:  NewOwnership(target.ImageCount()),
	}
}

func (c *Cycle) CurrentSlot() int {
	return c.current
}

func (c *Cycle) Stats() Stats {
	return c.stats
}

func (c *Cycle) DrawFrame() (Outcome, error) {
	if width, height := c.surface.DrawableExtent(); width <= 0 || height <= 0 {
		c.stats.Skipped++
		return OutcomeSkipped, nil
	}

	slot := c.current

	// The slot's semaphores and fence are free once its last submission is done.
	if err := c.target.WaitSlot(slot); err != nil {
		return 0, errors.Wrapf(err, "wait for frame slot %d", slot)
	}

	image, err := c.target.AcquireImage(slot)
	if errors.Is(err, ErrSurfaceStale) {
		return OutcomeRecreated, c.recreate("acquire")
	} else if err != nil {
		return 0, errors.Wrap(err, "acquire swapchain image")
	}

	prev, err := c.owners.Claim(image, slot)
	if err != nil {
		return 0, err
	}
	if prev != NoOwner && prev != slot {
		if err := c.target.WaitSlot(prev); err != nil {
			return 0, errors.Wrapf(err, "wait for image %d owner slot %d", image, prev)
		}
	}

	if err := c.target.UpdateUniforms(image); err != nil {
		return 0, errors.Wrapf(err, "update uniforms for image %d", image)
	}

	if err := c.target.ResetSlot(slot); err != nil {
		return 0, errors.Wrapf(err, "reset frame slot %d", slot)
	}

	if err := c.target.Submit(slot, image); err != nil {
		return 0, errors.Wrapf(err, "submit image %d", image)
	}

	outcome := OutcomePresented
	err = c.target.Present(slot, image)
	stale := errors.Is(err, ErrSurfaceStale)
	if err != nil && !stale {
		return 0, errors.Wrap(err, "present")
	}

	// A stale present has still queued the image.
	c.stats.Presents++
	if stale || c.surface.Resized() {
		reason := "resize"
		if stale {
			reason = "present"
		}
		if err := c.recreate(reason); err != nil {
			return 0, err
		}
		outcome = OutcomePresentedRecreated
	}

	c.current = (c.current + 1) % MaxFramesInFlight
	return outcome, nil
}

func (c *Cycle) recreate(reason string) error {
	c.logger.Info("recreating swapchain", "reason", reason)

	if err := c.target.Recreate(); err != nil {
		return errors.Wrapf(err, "recreate after stale %s", reason)
	}

	// The rebuild covers any resize reported so far.
	c.surface.ClearResized()
	c.owners.Reset(c.target.ImageCount())
	c.stats.Recreates++
	return nil
}
