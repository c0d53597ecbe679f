package app

import (
	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
	"github.com/vkngwrapper/model-viewer/internal/assets"
	"github.com/vkngwrapper/model-viewer/internal/config"
	"github.com/vkngwrapper/model-viewer/internal/frame"
	"github.com/vkngwrapper/model-viewer/internal/gpu"
	"github.com/vkngwrapper/model-viewer/internal/mesh"
	"github.com/vkngwrapper/model-viewer/internal/texture"
	"github.com/vkngwrapper/model-viewer/internal/ui"
	"github.com/vkngwrapper/model-viewer/internal/window"
)

// App wires the window, device objects and frame cycle together and owns
// their shutdown order.
type App struct {
	cfg    config.Config
	logger *log.Logger

	window    *window.Window
	device    *gpu.DeviceContext
	model     *gpu.Model
	swapchain *gpu.Swapchain
	pipeline  *gpu.Pipeline
	overlay   *gpu.UIOverlay
	renderer  *gpu.Renderer
	cycle     *frame.Cycle
	watcher   *assets.Watcher

	timer frameTimer
}

func New(cfg config.Config, logger *log.Logger) (*App, error) {
	a := &App{
		cfg:    cfg,
		logger: logger,
	}

	if err := a.init(); err != nil {
		if closeErr := a.Close(); closeErr != nil {
			logger.Error("cleanup after failed start", "err", closeErr)
		}
		return nil, err
	}

	return a, nil
}

func (a *App) init() error {
	var err error
	a.window, err = window.New(a.cfg.Window, a.logger)
	if err != nil {
		return err
	}

	a.device, err = gpu.NewDeviceContext(a.window, a.cfg.Renderer, a.logger)
	if err != nil {
		return err
	}

	assetsConfig := a.cfg.Assets
	m, err := mesh.LoadFile(assetsConfig.Path(assetsConfig.Model), assetsConfig.Path(assetsConfig.Material))
	if err != nil {
		return err
	}
	a.logger.Info("mesh loaded", "vertices", len(m.Vertices), "indices", len(m.Indices))

	pixels, err := texture.LoadFile(assetsConfig.Path(assetsConfig.Texture))
	if err != nil {
		return err
	}
	a.logger.Info("texture loaded", "width", pixels.Width, "height", pixels.Height, "mips", pixels.MipLevels())

	a.model, err = gpu.NewModel(a.device, m)
	if err != nil {
		return err
	}

	a.swapchain, err = gpu.NewSwapchain(a.device)
	if err != nil {
		return err
	}

	a.pipeline = gpu.NewPipeline(a.device, assetsConfig, pixels)
	if err = a.pipeline.Create(a.swapchain); err != nil {
		return err
	}

	var overlay gpu.Overlay
	if a.cfg.Overlay.Enabled {
		if err = a.initOverlay(); err != nil {
			return err
		}
		overlay = a.overlay
	}

	a.renderer, err = gpu.NewRenderer(a.device, a.swapchain, a.pipeline, a.model, overlay)
	if err != nil {
		return err
	}

	a.cycle = frame.NewCycle(a.window, a.renderer, a.logger)

	if a.cfg.Renderer.HotReloadShaders {
		a.watcher, err = assets.NewWatcher(assetsConfig.Path(assetsConfig.ShaderDir), a.logger)
		if err != nil {
			return err
		}
	}

	return nil
}

func (a *App) initOverlay() error {
	fonts := make([]string, 0, len(a.cfg.Assets.Fonts))
	for _, font := range a.cfg.Assets.Fonts {
		fonts = append(fonts, a.cfg.Assets.Path(font))
	}

	atlas, err := ui.LoadAtlas(fonts, a.cfg.Overlay.FontSizes)
	if err != nil {
		return err
	}

	a.overlay, err = gpu.NewOverlay(a.device, a.swapchain, a.cfg.Assets, ui.NewContext(atlas), a.composeStats)
	return err
}

func (a *App) composeStats(ctx *ui.Context) {
	extent := a.swapchain.Extent()
	stats := a.cycle.Stats()

	ctx.Begin("Stats", 10, 10)
	ctx.Text("%s", a.device.Properties().DeviceName)
	ctx.Separator()
	ctx.Text("%.1f FPS", a.timer.FPS())
	ctx.Text("frame %.2f ms", float64(a.timer.FrameTime().Microseconds())/1000)
	ctx.Bar(float32(min(a.timer.FPS()/60, 1)))
	ctx.Separator()
	ctx.Text("extent %dx%d", extent.Width, extent.Height)
	ctx.Text("images %d", a.swapchain.ImageCount())
	ctx.Text("present mode %v", a.swapchain.PresentMode())
	ctx.Text("msaa %dx", a.device.SampleCount())
	ctx.Separator()
	ctx.Text("vertices %d", a.model.VertexCount())
	ctx.Text("indices %d", a.model.IndexCount())
	ctx.Text("recreates %d", stats.Recreates)
	ctx.Text("slot %d", a.cycle.CurrentSlot())
	ctx.End()
}

// Run polls window events and draws frames until the window is asked to
// close.
func (a *App) Run() error {
	for {
		a.window.PollEvents()
		if a.window.ShouldClose() {
			return nil
		}

		if a.watcher != nil && a.watcher.TakeDirty() {
			if err := a.renderer.ReloadShaders(); err != nil {
				return errors.Wrap(err, "reload shaders")
			}
		}

		outcome, err := a.cycle.DrawFrame()
		if err != nil {
			return err
		}

		switch outcome {
		case frame.OutcomePresented, frame.OutcomePresentedRecreated:
			a.timer.Tick(hrtime.Now())
		case frame.OutcomeSkipped:
			a.window.WaitOnResized()
		}
	}
}

// Close waits for the device to go idle and destroys everything in reverse
// creation order. It is safe on a partially initialised App.
func (a *App) Close() error {
	var result error

	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			result = errors.CombineErrors(result, err)
		}
		a.watcher = nil
	}

	if a.device != nil {
		if err := a.device.WaitIdle(); err != nil {
			result = errors.CombineErrors(result, err)
		}
	}

	if a.overlay != nil {
		a.overlay.Destroy()
		a.overlay = nil
	}

	if a.renderer != nil {
		a.renderer.Destroy()
		a.renderer = nil
	}

	if a.pipeline != nil {
		a.pipeline.Free()
		a.pipeline = nil
	}

	if a.model != nil {
		a.model.Destroy()
		a.model = nil
	}

	if a.swapchain != nil {
		a.swapchain.Destroy()
		a.swapchain = nil
	}

	if a.device != nil {
		if err := a.device.Destroy(); err != nil {
			result = errors.CombineErrors(result, err)
		}
		a.device = nil
	}

	if a.window != nil {
		a.window.Destroy()
		a.window = nil
	}

	return result
}
