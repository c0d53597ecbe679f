package gpu

import (
	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_surface"
	"github.com/vkngwrapper/extensions/khr_swapchain"
	"github.com/vkngwrapper/model-viewer/internal/frame"
)

// SwapchainImages is the view of the presentable chain that dependent
// components build their per-image resources from. It must not be retained
// across a swapchain recreation.
type SwapchainImages interface {
	Images() []core1_0.Image
	ImageFormat() core1_0.Format
	Extent() core1_0.Extent2D
	ImageCount() int
}

type Swapchain struct {
	device *DeviceContext
	logger *log.Logger

	extension   khr_swapchain.Extension
	handle      khr_swapchain.Swapchain
	images      []core1_0.Image
	format      core1_0.Format
	presentMode khr_surface.PresentMode
	extent      core1_0.Extent2D
}

func NewSwapchain(device *DeviceContext) (*Swapchain, error) {
	s := &Swapchain{
		device:    device,
		logger:    device.Logger().With("component", "swapchain"),
		extension: khr_swapchain.CreateExtensionFromDevice(device.Device()),
	}

	if err := s.Create(); err != nil {
		return nil, err
	}

	device.Retain()
	return s, nil
}

func (s *Swapchain) presentModeCandidates() []khr_surface.PresentMode {
	if s.device.Config().PreferMailbox {
		return []khr_surface.PresentMode{khr_surface.PresentModeMailbox}
	}
	return nil
}

// Create negotiates format, present mode and extent and builds the chain.
// The image count is whatever the driver actually returned.
func (s *Swapchain) Create() error {
	support, err := s.device.QuerySwapChainSupport()
	if err != nil {
		return errors.Wrap(err, "swapchain: query support")
	}

	surfaceFormat, err := s.device.FindSupportedSurfaceFormat(support.Formats, preferredSurfaceFormats, khr_surface.ColorSpaceSRGBNonlinear)
	if err != nil {
		return errors.Wrap(err, "swapchain: surface format")
	}
	presentMode := s.device.FindSupportedPresentMode(support.PresentModes, s.presentModeCandidates())

	width, height := s.device.Window().DrawableExtent()
	extent := chooseExtent(support.Capabilities, width, height)
	imageCount := chooseImageCount(support.Capabilities)

	sharingMode := core1_0.SharingModeExclusive
	var queueFamilyIndices []int

	indices := s.device.QueueFamilies()
	if *indices.GraphicsFamily != *indices.PresentFamily {
		sharingMode = core1_0.SharingModeConcurrent
		queueFamilyIndices = append(queueFamilyIndices, *indices.GraphicsFamily, *indices.PresentFamily)
	}

	handle, _, err := s.extension.CreateSwapchain(s.device.Device(), nil, khr_swapchain.SwapchainCreateInfo{
		Surface: s.device.Surface(),

		MinImageCount:    imageCount,
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,

		ImageSharingMode:   sharingMode,
		QueueFamilyIndices: queueFamilyIndices,

		PreTransform:   support.Capabilities.CurrentTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    presentMode,
		Clipped:        true,
	})
	if err != nil {
		return errors.Wrap(err, "swapchain: create")
	}

	images, _, err := handle.SwapchainImages()
	if err != nil {
		handle.Destroy(nil)
		return errors.Wrap(err, "swapchain: images")
	}

	s.handle = handle
	s.images = images
	s.format = surfaceFormat.Format
	s.presentMode = presentMode
	s.extent = extent

	s.logger.Info("swapchain created",
		"width", extent.Width,
		"height", extent.Height,
		"images", len(images),
		"requested", imageCount,
		"format", surfaceFormat.Format,
		"presentMode", presentMode)

	return nil
}

// Recreate waits for a drawable window and an idle device, then rebuilds the
// chain. Every SwapchainImages consumer must have released its per-image
// resources beforehand.
func (s *Swapchain) Recreate() error {
	s.device.WaitOnWindowResized()

	if err := s.device.WaitIdle(); err != nil {
		return err
	}

	s.destroyHandle()
	return s.Create()
}

func (s *Swapchain) destroyHandle() {
	if s.handle != nil {
		s.handle.Destroy(nil)
		s.handle = nil
	}
	s.images = nil
}

// Destroy frees the chain only. Image views and framebuffers belong to the
// components built on it.
func (s *Swapchain) Destroy() {
	if s.device == nil {
		return
	}

	s.destroyHandle()
	s.device.Release()
	s.device = nil
}

// AcquireNextImage returns frame.ErrSurfaceStale when the chain is out of
// date. A suboptimal chain is still used for this frame.
func (s *Swapchain) AcquireNextImage(imageAvailable core1_0.Semaphore) (int, error) {
	imageIndex, res, err := s.handle.AcquireNextImage(common.NoTimeout, imageAvailable, nil)
	if res == khr_swapchain.VKErrorOutOfDate {
		return 0, frame.ErrSurfaceStale
	} else if err != nil {
		return 0, errors.Wrap(err, "acquire next image")
	}

	return imageIndex, nil
}

// Present returns frame.ErrSurfaceStale when the chain is out of date or
// suboptimal. The image has been queued either way.
func (s *Swapchain) Present(queue core1_0.Queue, wait core1_0.Semaphore, imageIndex int) error {
	res, err := s.extension.QueuePresent(queue, khr_swapchain.PresentInfo{
		WaitSemaphores: []core1_0.Semaphore{wait},
		Swapchains:     []khr_swapchain.Swapchain{s.handle},
		ImageIndices:   []int{imageIndex},
	})
	if res == khr_swapchain.VKErrorOutOfDate || res == khr_swapchain.VKSuboptimal {
		return frame.ErrSurfaceStale
	} else if err != nil {
		return errors.Wrap(err, "present")
	}

	return nil
}

func (s *Swapchain) Images() []core1_0.Image {
	return s.images
}

func (s *Swapchain) ImageFormat() core1_0.Format {
	return s.format
}

func (s *Swapchain) Extent() core1_0.Extent2D {
	return s.extent
}

func (s *Swapchain) ImageCount() int {
	return len(s.images)
}

func (s *Swapchain) PresentMode() khr_surface.PresentMode {
	return s.presentMode
}
