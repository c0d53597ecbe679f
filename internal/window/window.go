package window

import (
	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/model-viewer/internal/config"
)

// Window owns the native SDL window. Resize notifications only set a flag;
// recreation is always driven from the main loop.
type Window struct {
	handle *sdl.Window
	logger *log.Logger

	resized     bool
	shouldClose bool
}

func New(cfg config.WindowConfig, logger *log.Logger) (*Window, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, errors.Wrap(err, "window: sdl init")
	}

	flags := uint32(sdl.WINDOW_SHOWN | sdl.WINDOW_VULKAN)
	if cfg.Resizable {
		flags |= sdl.WINDOW_RESIZABLE
	}

	handle, err := sdl.CreateWindow(cfg.Title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, int32(cfg.Width), int32(cfg.Height), flags)
	if err != nil {
		sdl.Quit()
		return nil, errors.Wrap(err, "window: create")
	}

	return &Window{
		handle: handle,
		logger: logger.With("component", "window"),
	}, nil
}

func (w *Window) Handle() *sdl.Window {
	return w.handle
}

// DrawableExtent reports the live framebuffer size in pixels.
func (w *Window) DrawableExtent() (int, int) {
	if (w.handle.GetFlags() & sdl.WINDOW_MINIMIZED) != 0 {
		return 0, 0
	}
	width, height := w.handle.VulkanGetDrawableSize()
	return int(width), int(height)
}

func (w *Window) Resized() bool {
	return w.resized
}

func (w *Window) ClearResized() {
	w.resized = false
}

func (w *Window) ShouldClose() bool {
	return w.shouldClose
}

func (w *Window) RequiredInstanceExtensions() []string {
	return w.handle.VulkanGetInstanceExtensions()
}

// PollEvents drains the SDL event queue.
func (w *Window) PollEvents() {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		w.handleEvent(event)
	}
}

// WaitOnResized blocks until the drawable size is non-degenerate or the
// window is asked to close.
func (w *Window) WaitOnResized() {
	for !w.shouldClose {
		width, height := w.DrawableExtent()
		if width > 0 && height > 0 {
			return
		}
		w.handleEvent(sdl.WaitEvent())
	}
}

func (w *Window) handleEvent(event sdl.Event) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		w.shouldClose = true
	case *sdl.KeyboardEvent:
		if e.Type == sdl.KEYDOWN && e.Keysym.Sym == sdl.K_ESCAPE {
			w.shouldClose = true
		}
	case *sdl.WindowEvent:
		switch e.Event {
		case sdl.WINDOWEVENT_RESIZED, sdl.WINDOWEVENT_SIZE_CHANGED, sdl.WINDOWEVENT_MINIMIZED, sdl.WINDOWEVENT_RESTORED:
			w.resized = true
			w.logger.Debug("resize event", "event", e.Event, "width", e.Data1, "height", e.Data2)
		case sdl.WINDOWEVENT_CLOSE:
			w.shouldClose = true
		}
	}
}

func (w *Window) Destroy() {
	if w.handle != nil {
		w.handle.Destroy()
		w.handle = nil
	}
	sdl.Quit()
}
