package frame

import (
	"io"
	"math/rand"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

type fakeSurface struct {
	width, height int
	resized       bool
}

func (s *fakeSurface) DrawableExtent() (int, int) { return s.width, s.height }
func (s *fakeSurface) Resized() bool              { return s.resized }
func (s *fakeSurface) ClearResized()              { s.resized = false }

type submission struct {
	slot, image int
	done        bool
}

// fakeTarget models a GPU that completes submissions in order, either when a
// fence is waited on or spontaneously via progress().
type fakeTarget struct {
	t *testing.T

	imageCount int
	nextImage  func() int

	signaled    [MaxFramesInFlight]bool
	pending     []*submission
	lastOnImage map[int]*submission

	staleAcquire map[int]bool
	stalePresent map[int]bool
	countAfter   int

	calls      []string
	acquires   int
	submitSlot []int
	presents   int
	recreates  int

	presentErr error
}

func newFakeTarget(t *testing.T, imageCount int) *fakeTarget {
	f := &fakeTarget{
		t:            t,
		imageCount:   imageCount,
		lastOnImage:  map[int]*submission{},
		staleAcquire: map[int]bool{},
		stalePresent: map[int]bool{},
	}
	for i := range f.signaled {
		f.signaled[i] = true
	}
	next := 0
	f.nextImage = func() int {
		img := next % f.imageCount
		next++
		return img
	}
	return f
}

func (f *fakeTarget) ImageCount() int { return f.imageCount }

func (f *fakeTarget) complete(s *submission) {
	if s.done {
		return
	}
	// in-order queue: everything before s completes first
	for len(f.pending) > 0 {
		head := f.pending[0]
		f.pending = f.pending[1:]
		head.done = true
		f.signaled[head.slot] = true
		if head == s {
			return
		}
	}
}

func (f *fakeTarget) progress() {
	if len(f.pending) > 0 {
		f.complete(f.pending[0])
	}
}

func (f *fakeTarget) WaitSlot(slot int) error {
	f.calls = append(f.calls, "wait")
	for _, s := range f.pending {
		if s.slot == slot {
			f.complete(s)
		}
	}
	require.True(f.t, f.signaled[slot])
	return nil
}

func (f *fakeTarget) AcquireImage(slot int) (int, error) {
	f.calls = append(f.calls, "acquire")
	f.acquires++
	if f.staleAcquire[f.acquires] {
		return 0, ErrSurfaceStale
	}
	return f.nextImage(), nil
}

func (f *fakeTarget) UpdateUniforms(image int) error {
	f.calls = append(f.calls, "uniforms")
	if last, ok := f.lastOnImage[image]; ok {
		require.True(f.t, last.done, "uniforms of image %d written while in flight", image)
	}
	return nil
}

func (f *fakeTarget) ResetSlot(slot int) error {
	f.calls = append(f.calls, "reset")
	require.True(f.t, f.signaled[slot], "reset of unsignaled fence %d", slot)
	f.signaled[slot] = false
	return nil
}

func (f *fakeTarget) Submit(slot, image int) error {
	f.calls = append(f.calls, "submit")
	require.False(f.t, f.signaled[slot])
	if last, ok := f.lastOnImage[image]; ok {
		require.True(f.t, last.done, "image %d resubmitted while in flight", image)
	}

	s := &submission{slot: slot, image: image}
	f.pending = append(f.pending, s)
	f.lastOnImage[image] = s
	f.submitSlot = append(f.submitSlot, slot)

	require.LessOrEqual(f.t, len(f.pending), MaxFramesInFlight)
	return nil
}

func (f *fakeTarget) Present(slot, image int) error {
	f.calls = append(f.calls, "present")
	f.presents++
	if f.presentErr != nil {
		return f.presentErr
	}
	if f.stalePresent[f.presents] {
		return ErrSurfaceStale
	}
	return nil
}

func (f *fakeTarget) Recreate() error {
	f.calls = append(f.calls, "recreate")
	f.recreates++
	// device idle
	for len(f.pending) > 0 {
		f.progress()
	}
	if f.countAfter > 0 {
		f.imageCount = f.countAfter
	}
	return nil
}

func newTestCycle(t *testing.T, surface *fakeSurface, target Target) *Cycle {
	return NewCycle(surface, target, log.New(io.Discard))
}

func TestFiveCyclesNoResize(t *testing.T) {
	surface := &fakeSurface{width: 1920, height: 1080}
	target := newFakeTarget(t, 3)
	c := newTestCycle(t, surface, target)

	for i := 0; i < 5; i++ {
		outcome, err := c.DrawFrame()
		require.NoError(t, err)
		require.Equal(t, OutcomePresented, outcome)
	}

	require.Equal(t, 5, target.presents)
	require.Equal(t, []int{0, 1, 0, 1, 0}, target.submitSlot)
	require.Equal(t, 0, target.recreates)
	require.Equal(t, Stats{Presents: 5}, c.Stats())
	require.Equal(t, 1, c.CurrentSlot())
}

func TestStaleAcquireSkipsFrame(t *testing.T) {
	surface := &fakeSurface{width: 1920, height: 1080}
	target := newFakeTarget(t, 3)
	target.staleAcquire[3] = true
	c := newTestCycle(t, surface, target)

	var outcomes []Outcome
	for i := 0; i < 5; i++ {
		outcome, err := c.DrawFrame()
		require.NoError(t, err)
		outcomes = append(outcomes, outcome)
	}

	require.Equal(t, []Outcome{OutcomePresented, OutcomePresented, OutcomeRecreated, OutcomePresented, OutcomePresented}, outcomes)
	require.Equal(t, 1, target.recreates)
	require.Equal(t, 4, target.presents)
	require.Equal(t, 5, target.acquires)
	// the stale cycle does not advance the ring
	require.Equal(t, []int{0, 1, 0, 1}, target.submitSlot)

	// cycle 3 stops right after its acquire, cycle 4 starts fresh
	idx := indexOf(target.calls, "recreate")
	require.Equal(t, []string{"acquire", "recreate", "wait", "acquire"}, target.calls[idx-1:idx+3])
}

func TestStalePresentRecreatesAfterPresenting(t *testing.T) {
	surface := &fakeSurface{width: 800, height: 600}
	target := newFakeTarget(t, 3)
	target.stalePresent[2] = true
	c := newTestCycle(t, surface, target)

	_, err := c.DrawFrame()
	require.NoError(t, err)
	outcome, err := c.DrawFrame()
	require.NoError(t, err)
	require.Equal(t, OutcomePresentedRecreated, outcome)
	require.Equal(t, 1, target.recreates)
	require.Equal(t, 0, c.CurrentSlot())
}

func TestResizeFlagTriggersRecreate(t *testing.T) {
	surface := &fakeSurface{width: 800, height: 600}
	target := newFakeTarget(t, 3)
	c := newTestCycle(t, surface, target)

	surface.resized = true
	outcome, err := c.DrawFrame()
	require.NoError(t, err)
	require.Equal(t, OutcomePresentedRecreated, outcome)
	require.False(t, surface.resized)
	require.Equal(t, 1, target.recreates)

	outcome, err = c.DrawFrame()
	require.NoError(t, err)
	require.Equal(t, OutcomePresented, outcome)
	require.Equal(t, 1, target.recreates)
}

func TestMinimizedMakesNoDeviceCalls(t *testing.T) {
	surface := &fakeSurface{width: 0, height: 0}
	target := newFakeTarget(t, 3)
	c := newTestCycle(t, surface, target)

	for i := 0; i < 4; i++ {
		outcome, err := c.DrawFrame()
		require.NoError(t, err)
		require.Equal(t, OutcomeSkipped, outcome)
	}
	require.Empty(t, target.calls)
	require.Equal(t, 4, c.Stats().Skipped)

	surface.width = 1024
	outcome, err := c.DrawFrame()
	require.NoError(t, err)
	require.Equal(t, OutcomeSkipped, outcome, "height is still zero")

	surface.height = 768
	outcome, err = c.DrawFrame()
	require.NoError(t, err)
	require.Equal(t, OutcomePresented, outcome)
	require.Equal(t, []string{"wait", "acquire", "uniforms", "reset", "submit", "present"}, target.calls)
}

func TestImageCountChangeResizesOwnership(t *testing.T) {
	surface := &fakeSurface{width: 800, height: 600}
	target := newFakeTarget(t, 2)
	target.countAfter = 4
	target.staleAcquire[2] = true
	c := newTestCycle(t, surface, target)

	for i := 0; i < 6; i++ {
		_, err := c.DrawFrame()
		require.NoError(t, err)
	}
	require.Equal(t, 4, c.owners.Len())
}

func TestAcquireErrorIsFatal(t *testing.T) {
	surface := &fakeSurface{width: 800, height: 600}
	target := newFakeTarget(t, 3)
	boom := errors.New("device lost")
	target.nextImage = func() int { panic("unreachable") }
	c := newTestCycle(t, surface, &erroringTarget{fakeTarget: target, err: boom})

	_, err := c.DrawFrame()
	require.ErrorIs(t, err, boom)
	require.Equal(t, 0, target.recreates)
}

type erroringTarget struct {
	*fakeTarget
	err error
}

func (e *erroringTarget) AcquireImage(int) (int, error) { return 0, e.err }

func TestPresentErrorIsFatalDespiteResize(t *testing.T) {
	surface := &fakeSurface{width: 800, height: 600}
	target := newFakeTarget(t, 3)
	boom := errors.New("device lost")
	target.presentErr = boom
	c := newTestCycle(t, surface, target)

	surface.resized = true
	_, err := c.DrawFrame()
	require.ErrorIs(t, err, boom)
	require.Equal(t, 0, target.recreates)
	require.Equal(t, Stats{}, c.Stats())
	require.Equal(t, 0, c.CurrentSlot())
}

func TestStaleAcquireClearsResizeFlag(t *testing.T) {
	surface := &fakeSurface{width: 800, height: 600}
	target := newFakeTarget(t, 3)
	target.staleAcquire[1] = true
	c := newTestCycle(t, surface, target)

	surface.resized = true
	outcome, err := c.DrawFrame()
	require.NoError(t, err)
	require.Equal(t, OutcomeRecreated, outcome)
	require.False(t, surface.resized)

	outcome, err = c.DrawFrame()
	require.NoError(t, err)
	require.Equal(t, OutcomePresented, outcome)
	require.Equal(t, 1, target.recreates)
	require.Equal(t, Stats{Presents: 1, Recreates: 1}, c.Stats())
}

func TestImageIndexOutOfRange(t *testing.T) {
	surface := &fakeSurface{width: 800, height: 600}
	target := newFakeTarget(t, 3)
	target.nextImage = func() int { return 7 }
	c := newTestCycle(t, surface, target)

	_, err := c.DrawFrame()
	require.Error(t, err)
	require.True(t, errors.HasAssertionFailure(err))
}

// Random image order and GPU progress: no image may be written or submitted
// while its previous submission is still running, and no more than
// MaxFramesInFlight submissions are ever pending. The fake target asserts both.
func TestRingNeverReusesInFlightImage(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		surface := &fakeSurface{width: 1280, height: 720}
		target := newFakeTarget(t, 2+rng.Intn(3))
		target.nextImage = func() int { return rng.Intn(target.imageCount) }
		c := newTestCycle(t, surface, target)

		for i := 0; i < 200; i++ {
			if rng.Intn(3) == 0 {
				target.progress()
			}
			_, err := c.DrawFrame()
			require.NoError(t, err)
		}
		require.Equal(t, 200, target.presents)
	}
}

func TestOwnership(t *testing.T) {
	o := NewOwnership(3)
	owner, err := o.Owner(1)
	require.NoError(t, err)
	require.Equal(t, NoOwner, owner)

	prev, err := o.Claim(1, 0)
	require.NoError(t, err)
	require.Equal(t, NoOwner, prev)

	prev, err = o.Claim(1, 1)
	require.NoError(t, err)
	require.Equal(t, 0, prev)

	o.Reset(5)
	require.Equal(t, 5, o.Len())
	owner, err = o.Owner(1)
	require.NoError(t, err)
	require.Equal(t, NoOwner, owner)

	_, err = o.Claim(5, 0)
	require.Error(t, err)
	_, err = o.Owner(-1)
	require.Error(t, err)
}

func indexOf(calls []string, name string) int {
	for i, c := range calls {
		if c == name {
			return i
		}
	}
	return -1
}
