package gpu

import (
	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/ext_debug_utils"
	"github.com/vkngwrapper/extensions/khr_portability_enumeration"
	"github.com/vkngwrapper/extensions/khr_portability_subset"
	"github.com/vkngwrapper/extensions/khr_surface"
	"github.com/vkngwrapper/extensions/khr_swapchain"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2"
	"github.com/vkngwrapper/model-viewer/internal/config"
)

var validationLayers = []string{"VK_LAYER_KHRONOS_validation"}
var deviceExtensions = []string{khr_swapchain.ExtensionName}

// Window is the native window the device presents to.
type Window interface {
	Handle() *sdl.Window
	DrawableExtent() (width, height int)
	RequiredInstanceExtensions() []string
	WaitOnResized()
	ShouldClose() bool
}

type QueueFamilyIndices struct {
	GraphicsFamily *int
	PresentFamily  *int
}

func (i *QueueFamilyIndices) IsComplete() bool {
	return i.GraphicsFamily != nil && i.PresentFamily != nil
}

type SwapChainSupportDetails struct {
	Capabilities *khr_surface.SurfaceCapabilities
	Formats      []khr_surface.SurfaceFormat
	PresentModes []khr_surface.PresentMode
}

// DeviceContext owns the instance, surface, logical device, queues and the
// one-shot command pool. Every other GPU component holds a shared pointer to
// it and registers itself with Retain; the context refuses to be destroyed
// while any of them is still alive.
type DeviceContext struct {
	logger *log.Logger
	cfg    config.RendererConfig
	window Window

	loader         core.Loader
	instance       core1_0.Instance
	debugMessenger ext_debug_utils.DebugUtilsMessenger
	surface        khr_surface.Surface

	physicalDevice core1_0.PhysicalDevice
	properties     *core1_0.PhysicalDeviceProperties
	device         core1_0.Device
	queueFamilies  QueueFamilyIndices

	graphicsQueue core1_0.Queue
	presentQueue  core1_0.Queue

	msaaSamples core1_0.SampleCountFlags
	commandPool core1_0.CommandPool

	dependents int
}

func NewDeviceContext(window Window, cfg config.RendererConfig, logger *log.Logger) (*DeviceContext, error) {
	dc := &DeviceContext{
		logger: logger.With("component", "device"),
		cfg:    cfg,
		window: window,
	}

	err := dc.init()
	if err != nil {
		dc.destroyHandles()
		return nil, err
	}

	return dc, nil
}

func (dc *DeviceContext) init() error {
	var err error
	dc.loader, err = core.CreateLoaderFromProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	if err != nil {
		return errors.Wrap(err, "device: create loader")
	}

	if err = dc.createInstance(); err != nil {
		return errors.Wrap(err, "device: create instance")
	}

	if err = dc.setupDebugMessenger(); err != nil {
		return errors.Wrap(err, "device: debug messenger")
	}

	if err = dc.createSurface(); err != nil {
		return errors.Wrap(err, "device: create surface")
	}

	if err = dc.pickPhysicalDevice(); err != nil {
		return err
	}

	if err = dc.createLogicalDevice(); err != nil {
		return errors.Wrap(err, "device: create logical device")
	}

	if err = dc.createCommandPool(); err != nil {
		return errors.Wrap(err, "device: create command pool")
	}

	dc.logger.Info("device selected",
		"name", dc.properties.DeviceName,
		"msaa", sampleCountValue(dc.msaaSamples),
		"graphicsFamily", *dc.queueFamilies.GraphicsFamily,
		"presentFamily", *dc.queueFamilies.PresentFamily)

	return nil
}

func (dc *DeviceContext) createInstance() error {
	instanceOptions := core1_0.InstanceCreateInfo{
		ApplicationName:    "Model Viewer",
		ApplicationVersion: common.CreateVersion(1, 0, 0),
		EngineName:         "No Engine",
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         common.Vulkan1_2,
	}

	extensions, _, err := dc.loader.AvailableExtensions()
	if err != nil {
		return err
	}

	for _, ext := range dc.window.RequiredInstanceExtensions() {
		_, hasExt := extensions[ext]
		if !hasExt {
			return errors.Newf("missing window extension %s", ext)
		}
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext)
	}

	if dc.cfg.Validation {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext_debug_utils.ExtensionName)
	}

	_, enumerationSupported := extensions[khr_portability_enumeration.ExtensionName]
	if enumerationSupported {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, khr_portability_enumeration.ExtensionName)
		instanceOptions.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	if dc.cfg.Validation {
		layers, _, err := dc.loader.AvailableLayers()
		if err != nil {
			return err
		}

		for _, layer := range validationLayers {
			_, hasValidation := layers[layer]
			if !hasValidation {
				return errors.Newf("validation layer %s not available: install the LunarG Vulkan SDK or disable renderer.validation", layer)
			}
			instanceOptions.EnabledLayerNames = append(instanceOptions.EnabledLayerNames, layer)
		}

		instanceOptions.Next = dc.debugMessengerOptions()
	}

	dc.instance, _, err = dc.loader.CreateInstance(nil, instanceOptions)
	return err
}

func (dc *DeviceContext) debugMessengerOptions() ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning | ext_debug_utils.SeverityInfo | ext_debug_utils.SeverityVerbose,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    dc.logDebug,
	}
}

func (dc *DeviceContext) setupDebugMessenger() error {
	if !dc.cfg.Validation {
		return nil
	}

	var err error
	debugLoader := ext_debug_utils.CreateExtensionFromInstance(dc.instance)
	dc.debugMessenger, _, err = debugLoader.CreateDebugUtilsMessenger(dc.instance, nil, dc.debugMessengerOptions())
	return err
}

func (dc *DeviceContext) logDebug(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	switch {
	case severity&ext_debug_utils.SeverityError != 0:
		dc.logger.Error(data.Message, "type", msgType)
	case severity&ext_debug_utils.SeverityWarning != 0:
		dc.logger.Warn(data.Message, "type", msgType)
	case severity&ext_debug_utils.SeverityInfo != 0:
		dc.logger.Info(data.Message, "type", msgType)
	default:
		dc.logger.Debug(data.Message, "type", msgType)
	}
	return false
}

func (dc *DeviceContext) createSurface() error {
	surfaceLoader := khr_surface.CreateExtensionFromInstance(dc.instance)

	surface, err := vkng_sdl2.CreateSurface(dc.instance, surfaceLoader, dc.window.Handle())
	if err != nil {
		return err
	}

	dc.surface = surface
	return nil
}

func (dc *DeviceContext) pickPhysicalDevice() error {
	physicalDevices, _, err := dc.instance.EnumeratePhysicalDevices()
	if err != nil {
		return errors.Wrap(err, "device: enumerate physical devices")
	}

	for _, device := range physicalDevices {
		if dc.isDeviceSuitable(device) {
			dc.physicalDevice = device
			break
		}
	}

	if dc.physicalDevice == nil {
		return errors.New("device: failed to find a suitable GPU")
	}

	dc.properties, err = dc.physicalDevice.Properties()
	if err != nil {
		return errors.Wrap(err, "device: read properties")
	}

	dc.queueFamilies, err = dc.findQueueFamilies(dc.physicalDevice)
	if err != nil {
		return errors.Wrap(err, "device: queue families")
	}

	dc.msaaSamples = maxUsableSampleCount(
		dc.properties.Limits.FramebufferColorSampleCounts,
		dc.properties.Limits.FramebufferDepthSampleCounts,
		dc.cfg.MaxMSAASamples)

	return nil
}

func (dc *DeviceContext) isDeviceSuitable(device core1_0.PhysicalDevice) bool {
	indices, err := dc.findQueueFamilies(device)
	if err != nil {
		return false
	}

	extensionsSupported := checkDeviceExtensionSupport(device)

	var swapChainAdequate bool
	if extensionsSupported {
		swapChainSupport, err := dc.querySwapChainSupport(device)
		if err != nil {
			return false
		}

		swapChainAdequate = len(swapChainSupport.Formats) > 0 && len(swapChainSupport.PresentModes) > 0
	}

	features := device.Features()
	return indices.IsComplete() && extensionsSupported && swapChainAdequate && features.SamplerAnisotropy
}

func checkDeviceExtensionSupport(device core1_0.PhysicalDevice) bool {
	extensions, _, err := device.EnumerateDeviceExtensionProperties()
	if err != nil {
		return false
	}

	for _, extension := range deviceExtensions {
		_, hasExtension := extensions[extension]
		if !hasExtension {
			return false
		}
	}

	return true
}

func (dc *DeviceContext) findQueueFamilies(device core1_0.PhysicalDevice) (QueueFamilyIndices, error) {
	indices := QueueFamilyIndices{}
	queueFamilies := device.QueueFamilyProperties()

	for queueFamilyIdx, queueFamily := range queueFamilies {
		if (queueFamily.QueueFlags & core1_0.QueueGraphics) != 0 {
			indices.GraphicsFamily = new(int)
			*indices.GraphicsFamily = queueFamilyIdx
		}

		supported, _, err := dc.surface.PhysicalDeviceSurfaceSupport(device, queueFamilyIdx)
		if err != nil {
			return indices, err
		}

		if supported {
			indices.PresentFamily = new(int)
			*indices.PresentFamily = queueFamilyIdx
		}

		if indices.IsComplete() {
			break
		}
	}

	return indices, nil
}

func (dc *DeviceContext) createLogicalDevice() error {
	indices := dc.queueFamilies

	uniqueQueueFamilies := []int{*indices.GraphicsFamily}
	if uniqueQueueFamilies[0] != *indices.PresentFamily {
		uniqueQueueFamilies = append(uniqueQueueFamilies, *indices.PresentFamily)
	}

	var queueFamilyOptions []core1_0.DeviceQueueCreateInfo
	queuePriority := float32(1.0)
	for _, queueFamily := range uniqueQueueFamilies {
		queueFamilyOptions = append(queueFamilyOptions, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: queueFamily,
			QueuePriorities:  []float32{queuePriority},
		})
	}

	var extensionNames []string
	extensionNames = append(extensionNames, deviceExtensions...)

	extensions, _, err := dc.physicalDevice.EnumerateDeviceExtensionProperties()
	if err != nil {
		return err
	}

	_, supported := extensions[khr_portability_subset.ExtensionName]
	if supported {
		extensionNames = append(extensionNames, khr_portability_subset.ExtensionName)
	}

	dc.device, _, err = dc.physicalDevice.CreateDevice(nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos: queueFamilyOptions,
		EnabledFeatures: &core1_0.PhysicalDeviceFeatures{
			SamplerAnisotropy: true,
		},
		EnabledExtensionNames: extensionNames,
	})
	if err != nil {
		return err
	}

	dc.graphicsQueue = dc.device.GetQueue(*indices.GraphicsFamily, 0)
	dc.presentQueue = dc.device.GetQueue(*indices.PresentFamily, 0)
	return nil
}

func (dc *DeviceContext) createCommandPool() error {
	pool, _, err := dc.device.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		QueueFamilyIndex: *dc.queueFamilies.GraphicsFamily,
	})
	if err != nil {
		return err
	}

	dc.commandPool = pool
	return nil
}

func (dc *DeviceContext) Device() core1_0.Device { return dc.device }
func (dc *DeviceContext) PhysicalDevice() core1_0.PhysicalDevice { return dc.physicalDevice }
func (dc *DeviceContext) Surface() khr_surface.Surface { return dc.surface }
func (dc *DeviceContext) GraphicsQueue() core1_0.Queue { return dc.graphicsQueue }
func (dc *DeviceContext) PresentQueue() core1_0.Queue { return dc.presentQueue }
func (dc *DeviceContext) CommandPool() core1_0.CommandPool { return dc.commandPool }
func (dc *DeviceContext) QueueFamilies() QueueFamilyIndices { return dc.queueFamilies }
func (dc *DeviceContext) MSAASamples() core1_0.SampleCountFlags { return dc.msaaSamples }
func (dc *DeviceContext) SampleCount() int { return sampleCountValue(dc.msaaSamples) }
func (dc *DeviceContext) Config() config.RendererConfig { return dc.cfg }
func (dc *DeviceContext) Logger() *log.Logger { return dc.logger }
func (dc *DeviceContext) Window() Window { return dc.window }
func (dc *DeviceContext) Properties() *core1_0.PhysicalDeviceProperties { return dc.properties }

// MaxSamplerAnisotropy is the configured cap bounded by the device limit.
func (dc *DeviceContext) MaxSamplerAnisotropy() float32 {
	return clamp(dc.cfg.MaxAnisotropy, 1, dc.properties.Limits.MaxSamplerAnisotropy)
}

func (dc *DeviceContext) QuerySwapChainSupport() (SwapChainSupportDetails, error) {
	return dc.querySwapChainSupport(dc.physicalDevice)
}

func (dc *DeviceContext) querySwapChainSupport(device core1_0.PhysicalDevice) (SwapChainSupportDetails, error) {
	var details SwapChainSupportDetails
	var err error

	details.Capabilities, _, err = dc.surface.PhysicalDeviceSurfaceCapabilities(device)
	if err != nil {
		return details, err
	}

	details.Formats, _, err = dc.surface.PhysicalDeviceSurfaceFormats(device)
	if err != nil {
		return details, err
	}

	details.PresentModes, _, err = dc.surface.PhysicalDeviceSurfacePresentModes(device)
	return details, err
}

func (dc *DeviceContext) FindSupportedSurfaceFormat(available []khr_surface.SurfaceFormat, candidates []core1_0.Format, colorSpace khr_surface.ColorSpace) (khr_surface.SurfaceFormat, error) {
	if len(available) == 0 {
		return khr_surface.SurfaceFormat{}, errors.New("surface reports no formats")
	}
	return chooseSurfaceFormat(available, candidates, colorSpace), nil
}

// FindSupportedPresentMode falls back to FIFO and never fails.
func (dc *DeviceContext) FindSupportedPresentMode(available []khr_surface.PresentMode, candidates []khr_surface.PresentMode) khr_surface.PresentMode {
	return choosePresentMode(available, candidates)
}

func (dc *DeviceContext) FindSupportedFormat(formats []core1_0.Format, tiling core1_0.ImageTiling, features core1_0.FormatFeatureFlags) (core1_0.Format, error) {
	for _, format := range formats {
		props := dc.physicalDevice.FormatProperties(format)

		if tiling == core1_0.ImageTilingLinear && (props.LinearTilingFeatures&features) == features {
			return format, nil
		} else if tiling == core1_0.ImageTilingOptimal && (props.OptimalTilingFeatures&features) == features {
			return format, nil
		}
	}

	return 0, errors.Newf("failed to find supported format for tiling %s, featureset %s", tiling, features)
}

func (dc *DeviceContext) FindDepthFormat() (core1_0.Format, error) {
	return dc.FindSupportedFormat(depthFormatCandidates,
		core1_0.ImageTilingOptimal,
		core1_0.FormatFeatureDepthStencilAttachment)
}

func (dc *DeviceContext) WaitIdle() error {
	_, err := dc.device.WaitIdle()
	return errors.Wrap(err, "device: wait idle")
}

// WaitOnWindowResized blocks until the window reports a drawable size or
// asks to close.
func (dc *DeviceContext) WaitOnWindowResized() {
	dc.window.WaitOnResized()
}

func (dc *DeviceContext) Retain() {
	dc.dependents++
}

func (dc *DeviceContext) Release() {
	if dc.dependents > 0 {
		dc.dependents--
	}
}

func (dc *DeviceContext) Dependents() int {
	return dc.dependents
}

// Destroy tears the device down. Every dependent must have been destroyed
// first.
func (dc *DeviceContext) Destroy() error {
	if dc.dependents > 0 {
		return errors.AssertionFailedf("device context destroyed with %d live dependents", dc.dependents)
	}

	dc.destroyHandles()
	return nil
}

func (dc *DeviceContext) destroyHandles() {
	if dc.commandPool != nil {
		dc.commandPool.Destroy(nil)
		dc.commandPool = nil
	}

	if dc.device != nil {
		dc.device.Destroy(nil)
		dc.device = nil
	}

	if dc.debugMessenger != nil {
		dc.debugMessenger.Destroy(nil)
		dc.debugMessenger = nil
	}

	if dc.surface != nil {
		dc.surface.Destroy(nil)
		dc.surface = nil
	}

	if dc.instance != nil {
		dc.instance.Destroy(nil)
		dc.instance = nil
	}
}
