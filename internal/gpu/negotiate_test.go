package gpu

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_surface"
)

func TestChooseSurfaceFormat(t *testing.T) {
	srgb := khr_surface.SurfaceFormat{Format: core1_0.FormatB8G8R8A8SRGB, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear}
	unorm := khr_surface.SurfaceFormat{Format: core1_0.FormatB8G8R8A8UnsignedNormalized, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear}

	require.Equal(t, srgb, chooseSurfaceFormat([]khr_surface.SurfaceFormat{unorm, srgb}, preferredSurfaceFormats, khr_surface.ColorSpaceSRGBNonlinear))
	require.Equal(t, unorm, chooseSurfaceFormat([]khr_surface.SurfaceFormat{unorm}, preferredSurfaceFormats, khr_surface.ColorSpaceSRGBNonlinear))
}

func TestChoosePresentMode(t *testing.T) {
	all := []khr_surface.PresentMode{khr_surface.PresentModeImmediate, khr_surface.PresentModeFIFO, khr_surface.PresentModeMailbox}
	mailbox := []khr_surface.PresentMode{khr_surface.PresentModeMailbox}

	require.Equal(t, khr_surface.PresentModeMailbox, choosePresentMode(all, mailbox))
	require.Equal(t, khr_surface.PresentModeFIFO, choosePresentMode([]khr_surface.PresentMode{khr_surface.PresentModeFIFO}, mailbox))
	require.Equal(t, khr_surface.PresentModeFIFO, choosePresentMode(nil, mailbox))
	require.Equal(t, khr_surface.PresentModeFIFO, choosePresentMode(all, nil))
}

func capabilities(min, max int, current core1_0.Extent2D) *khr_surface.SurfaceCapabilities {
	return &khr_surface.SurfaceCapabilities{
		MinImageCount:  min,
		MaxImageCount:  max,
		CurrentExtent:  current,
		MinImageExtent: core1_0.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: core1_0.Extent2D{Width: 4096, Height: 4096},
	}
}

func TestChooseExtent(t *testing.T) {
	fixed := capabilities(2, 0, core1_0.Extent2D{Width: 1920, Height: 1080})
	require.Equal(t, core1_0.Extent2D{Width: 1920, Height: 1080}, chooseExtent(fixed, 640, 480))

	undefined := capabilities(2, 0, core1_0.Extent2D{Width: undefinedExtent, Height: undefinedExtent})
	require.Equal(t, core1_0.Extent2D{Width: 640, Height: 480}, chooseExtent(undefined, 640, 480))
	require.Equal(t, core1_0.Extent2D{Width: 4096, Height: 1}, chooseExtent(undefined, 10000, 0))
}

func TestChooseImageCountWithinBounds(t *testing.T) {
	for _, tc := range []struct {
		min, max int
		want     int
	}{
		{1, 0, 2},
		{2, 0, 3},
		{2, 3, 3},
		{3, 3, 3},
		{2, 8, 3},
		{4, 16, 5},
	} {
		caps := capabilities(tc.min, tc.max, core1_0.Extent2D{Width: 800, Height: 600})
		got := chooseImageCount(caps)
		require.Equal(t, tc.want, got, "min %d max %d", tc.min, tc.max)
		require.GreaterOrEqual(t, got, tc.min)
		if tc.max > 0 {
			require.LessOrEqual(t, got, tc.max)
		}
	}
}

func TestNegotiationIsStableAcrossRecreate(t *testing.T) {
	caps := capabilities(2, 8, core1_0.Extent2D{Width: undefinedExtent, Height: undefinedExtent})
	extent := chooseExtent(caps, 1920, 1080)
	count := chooseImageCount(caps)

	for i := 0; i < 3; i++ {
		require.Equal(t, extent, chooseExtent(caps, 1920, 1080))
		require.Equal(t, count, chooseImageCount(caps))
	}
}

func TestMaxUsableSampleCount(t *testing.T) {
	color := core1_0.Samples1 | core1_0.Samples2 | core1_0.Samples4 | core1_0.Samples8
	depth := core1_0.Samples1 | core1_0.Samples2 | core1_0.Samples4

	require.Equal(t, core1_0.Samples4, maxUsableSampleCount(color, depth, 64))
	require.Equal(t, core1_0.Samples2, maxUsableSampleCount(color, depth, 2))
	require.Equal(t, core1_0.Samples1, maxUsableSampleCount(color, depth, 1))
	require.Equal(t, core1_0.Samples1, maxUsableSampleCount(core1_0.Samples1, core1_0.Samples1, 64))

	require.Equal(t, 4, sampleCountValue(core1_0.Samples4))
	require.Equal(t, 1, sampleCountValue(core1_0.Samples1))
}

func TestTransitionTable(t *testing.T) {
	masks, ok := transitionBarrierMasks(core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal)
	require.True(t, ok)
	require.Equal(t, core1_0.AccessTransferWrite, masks.dstAccess)
	require.Equal(t, core1_0.PipelineStageTopOfPipe, masks.srcStage)
	require.Equal(t, core1_0.PipelineStageTransfer, masks.dstStage)

	masks, ok = transitionBarrierMasks(core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutShaderReadOnlyOptimal)
	require.True(t, ok)
	require.Equal(t, core1_0.AccessShaderRead, masks.dstAccess)
	require.Equal(t, core1_0.PipelineStageFragmentShader, masks.dstStage)

	_, ok = transitionBarrierMasks(core1_0.ImageLayoutShaderReadOnlyOptimal, core1_0.ImageLayoutTransferDstOptimal)
	require.False(t, ok)
}

func TestTransitionAspect(t *testing.T) {
	require.Equal(t, core1_0.ImageAspectColor, transitionAspect(core1_0.FormatR8G8B8A8SRGB, core1_0.ImageLayoutTransferDstOptimal))
	require.Equal(t, core1_0.ImageAspectDepth, transitionAspect(core1_0.FormatD32SignedFloat, core1_0.ImageLayoutDepthStencilAttachmentOptimal))
	require.Equal(t, core1_0.ImageAspectDepth|core1_0.ImageAspectStencil, transitionAspect(core1_0.FormatD24UnsignedNormalizedS8UnsignedInt, core1_0.ImageLayoutDepthStencilAttachmentOptimal))
}

func TestClamp(t *testing.T) {
	require.Equal(t, 5, clamp(5, 1, 10))
	require.Equal(t, 1, clamp(-3, 1, 10))
	require.Equal(t, float32(2.5), clamp(float32(9), 0, 2.5))
}
