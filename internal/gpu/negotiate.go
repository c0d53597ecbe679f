package gpu

import (
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_surface"
	"golang.org/x/exp/constraints"
)

// Surface capabilities report this width when the surface size is decided by
// the swapchain rather than the window system.
const undefinedExtent = -1

var preferredSurfaceFormats = []core1_0.Format{core1_0.FormatB8G8R8A8SRGB}

var depthFormatCandidates = []core1_0.Format{
	core1_0.FormatD32SignedFloat,
	core1_0.FormatD32SignedFloatS8UnsignedInt,
	core1_0.FormatD24UnsignedNormalizedS8UnsignedInt,
}

func clamp[T constraints.Ordered](v, low, high T) T {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

// chooseSurfaceFormat returns the first candidate available in colorSpace,
// falling back to the first format the surface offers.
func chooseSurfaceFormat(available []khr_surface.SurfaceFormat, candidates []core1_0.Format, colorSpace khr_surface.ColorSpace) khr_surface.SurfaceFormat {
	for _, candidate := range candidates {
		for _, format := range available {
			if format.Format == candidate && format.ColorSpace == colorSpace {
				return format
			}
		}
	}

	return available[0]
}

// choosePresentMode never fails: FIFO support is mandatory.
func choosePresentMode(available []khr_surface.PresentMode, candidates []khr_surface.PresentMode) khr_surface.PresentMode {
	for _, candidate := range candidates {
		for _, mode := range available {
			if mode == candidate {
				return mode
			}
		}
	}

	return khr_surface.PresentModeFIFO
}

func chooseExtent(capabilities *khr_surface.SurfaceCapabilities, drawableWidth, drawableHeight int) core1_0.Extent2D {
	if capabilities.CurrentExtent.Width != undefinedExtent {
		return capabilities.CurrentExtent
	}

	return core1_0.Extent2D{
		Width:  clamp(drawableWidth, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width),
		Height: clamp(drawableHeight, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height),
	}
}

// chooseImageCount asks for one more than the minimum. A maximum of 0 means
// unbounded.
func chooseImageCount(capabilities *khr_surface.SurfaceCapabilities) int {
	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && capabilities.MaxImageCount < imageCount {
		imageCount = capabilities.MaxImageCount
	}
	return imageCount
}

var sampleCounts = []struct {
	flag  core1_0.SampleCountFlags
	count int
}{
	{core1_0.Samples64, 64},
	{core1_0.Samples32, 32},
	{core1_0.Samples16, 16},
	{core1_0.Samples8, 8},
	{core1_0.Samples4, 4},
	{core1_0.Samples2, 2},
}

// maxUsableSampleCount picks the highest sample count supported by both color
// and depth framebuffers, capped at maxSamples.
func maxUsableSampleCount(color, depth core1_0.SampleCountFlags, maxSamples int) core1_0.SampleCountFlags {
	supported := color & depth
	for _, candidate := range sampleCounts {
		if candidate.count <= maxSamples && supported&candidate.flag != 0 {
			return candidate.flag
		}
	}
	return core1_0.Samples1
}

func sampleCountValue(flag core1_0.SampleCountFlags) int {
	for _, candidate := range sampleCounts {
		if candidate.flag == flag {
			return candidate.count
		}
	}
	return 1
}

func hasStencilComponent(format core1_0.Format) bool {
	return format == core1_0.FormatD32SignedFloatS8UnsignedInt || format == core1_0.FormatD24UnsignedNormalizedS8UnsignedInt
}

type layoutTransition struct {
	oldLayout, newLayout core1_0.ImageLayout
}

type barrierMasks struct {
	srcAccess, dstAccess core1_0.AccessFlags
	srcStage, dstStage   core1_0.PipelineStageFlags
}

var layoutTransitions = map[layoutTransition]barrierMasks{
	{core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal}: {
		srcAccess: 0,
		dstAccess: core1_0.AccessTransferWrite,
		srcStage:  core1_0.PipelineStageTopOfPipe,
		dstStage:  core1_0.PipelineStageTransfer,
	},
	{core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutShaderReadOnlyOptimal}: {
		srcAccess: core1_0.AccessTransferWrite,
		dstAccess: core1_0.AccessShaderRead,
		srcStage:  core1_0.PipelineStageTransfer,
		dstStage:  core1_0.PipelineStageFragmentShader,
	},
	{core1_0.ImageLayoutUndefined, core1_0.ImageLayoutDepthStencilAttachmentOptimal}: {
		srcAccess: 0,
		dstAccess: core1_0.AccessDepthStencilAttachmentRead | core1_0.AccessDepthStencilAttachmentWrite,
		srcStage:  core1_0.PipelineStageTopOfPipe,
		dstStage:  core1_0.PipelineStageEarlyFragmentTests,
	},
	{core1_0.ImageLayoutUndefined, core1_0.ImageLayoutColorAttachmentOptimal}: {
		srcAccess: 0,
		dstAccess: core1_0.AccessColorAttachmentRead | core1_0.AccessColorAttachmentWrite,
		srcStage:  core1_0.PipelineStageTopOfPipe,
		dstStage:  core1_0.PipelineStageColorAttachmentOutput,
	},
}

func transitionBarrierMasks(oldLayout, newLayout core1_0.ImageLayout) (barrierMasks, bool) {
	masks, ok := layoutTransitions[layoutTransition{oldLayout, newLayout}]
	return masks, ok
}

func transitionAspect(format core1_0.Format, newLayout core1_0.ImageLayout) core1_0.ImageAspectFlags {
	if newLayout != core1_0.ImageLayoutDepthStencilAttachmentOptimal {
		return core1_0.ImageAspectColor
	}

	aspect := core1_0.ImageAspectDepth
	if hasStencilComponent(format) {
		aspect |= core1_0.ImageAspectStencil
	}
	return aspect
}
