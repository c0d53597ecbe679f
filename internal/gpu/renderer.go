package gpu

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/model-viewer/internal/frame"
)

// Overlay draws on top of the presented image after the model pass. It is
// rebuilt in lockstep with the swapchain: Release before the chain is torn
// down, Recreate once the new chain exists.
type Overlay interface {
	// RenderFrame waits on wait and returns the semaphore present must wait on.
	RenderFrame(slot, image int, wait core1_0.Semaphore) (core1_0.Semaphore, error)
	Release()
	Recreate(chain SwapchainImages) error
}

// Renderer owns the in-flight ring's semaphores and fences and implements
// frame.Target on top of the swapchain and pipeline.
type Renderer struct {
	device    *DeviceContext
	logger    *log.Logger
	swapchain *Swapchain
	pipeline  *Pipeline
	model     *Model
	overlay   Overlay

	imageAvailable []core1_0.Semaphore
	renderComplete []core1_0.Semaphore
	inFlight       []core1_0.Fence
	presentWait    []core1_0.Semaphore

	start time.Duration
}

var _ frame.Target = (*Renderer)(nil)

// NewRenderer records the pipeline's command buffers and creates the ring's
// synchronization objects. overlay may be nil.
func NewRenderer(device *DeviceContext, swapchain *Swapchain, pipeline *Pipeline, model *Model, overlay Overlay) (*Renderer, error) {
	r := &Renderer{
		device:    device,
		logger:    device.Logger().With("component", "renderer"),
		swapchain: swapchain,
		pipeline:  pipeline,
		model:     model,
		overlay:   overlay,
		start:     hrtime.Now(),
	}

	if err := pipeline.CreateCommandBuffers(model); err != nil {
		return nil, err
	}

	if err := r.createSyncObjects(); err != nil {
		r.destroySyncObjects()
		return nil, errors.Wrap(err, "renderer: sync objects")
	}

	device.Retain()
	return r, nil
}

func (r *Renderer) createSyncObjects() error {
	device := r.device.Device()
	for i := 0; i < frame.MaxFramesInFlight; i++ {
		semaphore, _, err := device.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
		if err != nil {
			return err
		}
		r.imageAvailable = append(r.imageAvailable, semaphore)

		semaphore, _, err = device.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
		if err != nil {
			return err
		}
		r.renderComplete = append(r.renderComplete, semaphore)

		fence, _, err := device.CreateFence(nil, core1_0.FenceCreateInfo{
			Flags: core1_0.FenceCreateSignaled,
		})
		if err != nil {
			return err
		}
		r.inFlight = append(r.inFlight, fence)
	}

	r.presentWait = make([]core1_0.Semaphore, frame.MaxFramesInFlight)
	return nil
}

func (r *Renderer) ImageCount() int {
	return r.swapchain.ImageCount()
}

func (r *Renderer) WaitSlot(slot int) error {
	_, err := r.device.Device().WaitForFences(true, common.NoTimeout, []core1_0.Fence{r.inFlight[slot]})
	return err
}

func (r *Renderer) AcquireImage(slot int) (int, error) {
	return r.swapchain.AcquireNextImage(r.imageAvailable[slot])
}

func (r *Renderer) UpdateUniforms(image int) error {
	ubo := ComputeUniforms(hrtime.Now()-r.start, r.swapchain.Extent())
	return r.pipeline.UpdateUniformBuffer(image, ubo)
}

func (r *Renderer) ResetSlot(slot int) error {
	_, err := r.device.Device().ResetFences([]core1_0.Fence{r.inFlight[slot]})
	return err
}

func (r *Renderer) Submit(slot, image int) error {
	commandBuffer, err := r.pipeline.CommandBuffer(image)
	if err != nil {
		return err
	}

	_, err = r.device.GraphicsQueue().Submit(r.inFlight[slot], []core1_0.SubmitInfo{
		{
			WaitSemaphores:   []core1_0.Semaphore{r.imageAvailable[slot]},
			WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
			CommandBuffers:   []core1_0.CommandBuffer{commandBuffer},
			SignalSemaphores: []core1_0.Semaphore{r.renderComplete[slot]},
		},
	})
	if err != nil {
		return err
	}

	r.presentWait[slot] = r.renderComplete[slot]
	if r.overlay == nil {
		return nil
	}

	overlayComplete, err := r.overlay.RenderFrame(slot, image, r.renderComplete[slot])
	if err != nil {
		return errors.Wrap(err, "overlay")
	}
	r.presentWait[slot] = overlayComplete
	return nil
}

func (r *Renderer) Present(slot, image int) error {
	return r.swapchain.Present(r.device.PresentQueue(), r.presentWait[slot], image)
}

// Recreate rebuilds the swapchain and everything sized by it. Dependents of
// the chain are torn down before it and rebuilt after it.
func (r *Renderer) Recreate() error {
	r.device.WaitOnWindowResized()
	if r.device.Window().ShouldClose() {
		return nil
	}

	if err := r.device.WaitIdle(); err != nil {
		return err
	}

	if r.overlay != nil {
		r.overlay.Release()
	}
	r.pipeline.Destroy()

	if err := r.swapchain.Recreate(); err != nil {
		return err
	}

	if err := r.pipeline.Create(r.swapchain); err != nil {
		return err
	}

	if err := r.pipeline.CreateCommandBuffers(r.model); err != nil {
		return err
	}

	if r.overlay != nil {
		if err := r.overlay.Recreate(r.swapchain); err != nil {
			return errors.Wrap(err, "overlay")
		}
	}

	r.logger.Info("swapchain recreated", "width", r.swapchain.Extent().Width, "height", r.swapchain.Extent().Height, "images", r.swapchain.ImageCount())
	return nil
}

// ReloadShaders rebuilds the model and overlay pipelines against the current
// swapchain. The swapchain itself is untouched.
func (r *Renderer) ReloadShaders() error {
	if err := r.pipeline.Recreate(r.swapchain); err != nil {
		return err
	}

	if err := r.pipeline.CreateCommandBuffers(r.model); err != nil {
		return err
	}

	if r.overlay != nil {
		if err := r.overlay.Recreate(r.swapchain); err != nil {
			return errors.Wrap(err, "overlay")
		}
	}

	r.logger.Info("shaders reloaded")
	return nil
}

func (r *Renderer) destroySyncObjects() {
	for _, fence := range r.inFlight {
		fence.Destroy(nil)
	}
	r.inFlight = nil

	for _, semaphore := range r.renderComplete {
		semaphore.Destroy(nil)
	}
	r.renderComplete = nil

	for _, semaphore := range r.imageAvailable {
		semaphore.Destroy(nil)
	}
	r.imageAvailable = nil
}

// Destroy frees the ring's synchronization objects. The device must be idle.
func (r *Renderer) Destroy() {
	if r.device == nil {
		return
	}

	r.destroySyncObjects()
	r.device.Release()
	r.device = nil
}
