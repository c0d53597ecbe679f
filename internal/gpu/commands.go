package gpu

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"
)

// BeginSingleTimeCommands allocates a primary command buffer from the device
// pool and begins recording it for one submission.
func (dc *DeviceContext) BeginSingleTimeCommands() (core1_0.CommandBuffer, error) {
	buffers, _, err := dc.device.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        dc.commandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return nil, errors.Wrap(err, "allocate one-shot command buffer")
	}

	buffer := buffers[0]
	_, err = buffer.Begin(core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	if err != nil {
		dc.device.FreeCommandBuffers([]core1_0.CommandBuffer{buffer})
		return nil, errors.Wrap(err, "begin one-shot command buffer")
	}
	return buffer, nil
}

// EndSingleTimeCommands submits buffer and blocks until the graphics queue is
// idle. Resources used by the commands may be released on return.
func (dc *DeviceContext) EndSingleTimeCommands(buffer core1_0.CommandBuffer) error {
	defer dc.device.FreeCommandBuffers([]core1_0.CommandBuffer{buffer})

	_, err := buffer.End()
	if err != nil {
		return errors.Wrap(err, "end one-shot command buffer")
	}

	_, err = dc.graphicsQueue.Submit(nil, []core1_0.SubmitInfo{
		{
			CommandBuffers: []core1_0.CommandBuffer{buffer},
		},
	})
	if err != nil {
		return errors.Wrap(err, "submit one-shot command buffer")
	}

	_, err = dc.graphicsQueue.WaitIdle()
	return errors.Wrap(err, "wait for one-shot command buffer")
}

func (dc *DeviceContext) singleTimeCommands(record func(buffer core1_0.CommandBuffer) error) error {
	buffer, err := dc.BeginSingleTimeCommands()
	if err != nil {
		return err
	}

	err = record(buffer)
	if err != nil {
		dc.device.FreeCommandBuffers([]core1_0.CommandBuffer{buffer})
		return err
	}

	return dc.EndSingleTimeCommands(buffer)
}

// TransitionImageLayout moves every mip level of image between two layouts.
// Only the transitions in the layout table are supported.
func (dc *DeviceContext) TransitionImageLayout(image core1_0.Image, format core1_0.Format, oldLayout, newLayout core1_0.ImageLayout, mipLevels int) error {
	masks, ok := transitionBarrierMasks(oldLayout, newLayout)
	if !ok {
		return errors.AssertionFailedf("unsupported layout transition: %s -> %s", oldLayout, newLayout)
	}

	return dc.singleTimeCommands(func(buffer core1_0.CommandBuffer) error {
		err := buffer.CmdPipelineBarrier(masks.srcStage, masks.dstStage, 0, nil, nil, []core1_0.ImageMemoryBarrier{
			{
				OldLayout:           oldLayout,
				NewLayout:           newLayout,
				SrcQueueFamilyIndex: -1,
				DstQueueFamilyIndex: -1,
				Image:               image,
				SubresourceRange: core1_0.ImageSubresourceRange{
					AspectMask:     transitionAspect(format, newLayout),
					BaseMipLevel:   0,
					LevelCount:     mipLevels,
					BaseArrayLayer: 0,
					LayerCount:     1,
				},
				SrcAccessMask: masks.srcAccess,
				DstAccessMask: masks.dstAccess,
			},
		})
		return errors.Wrapf(err, "transition %s -> %s", oldLayout, newLayout)
	})
}

func (dc *DeviceContext) CopyBuffer(srcBuffer core1_0.Buffer, dstBuffer core1_0.Buffer, size int) error {
	return dc.singleTimeCommands(func(buffer core1_0.CommandBuffer) error {
		err := buffer.CmdCopyBuffer(srcBuffer, dstBuffer, []core1_0.BufferCopy{
			{
				SrcOffset: 0,
				DstOffset: 0,
				Size:      size,
			},
		})
		return errors.Wrap(err, "copy buffer")
	})
}

// CopyBufferToImage fills mip level 0. The image must be in
// TransferDstOptimal layout.
func (dc *DeviceContext) CopyBufferToImage(buffer core1_0.Buffer, image core1_0.Image, width, height int) error {
	return dc.singleTimeCommands(func(cmdBuffer core1_0.CommandBuffer) error {
		err := cmdBuffer.CmdCopyBufferToImage(buffer, image, core1_0.ImageLayoutTransferDstOptimal, []core1_0.BufferImageCopy{
			{
				BufferOffset:      0,
				BufferRowLength:   0,
				BufferImageHeight: 0,

				ImageSubresource: core1_0.ImageSubresourceLayers{
					AspectMask:     core1_0.ImageAspectColor,
					MipLevel:       0,
					BaseArrayLayer: 0,
					LayerCount:     1,
				},
				ImageOffset: core1_0.Offset3D{X: 0, Y: 0, Z: 0},
				ImageExtent: core1_0.Extent3D{Width: width, Height: height, Depth: 1},
			},
		})
		return errors.Wrap(err, "copy buffer to image")
	})
}

// GenerateMipmaps fills levels 1..mipLevels-1 by repeatedly blitting the
// previous level at half size, and leaves every level in
// ShaderReadOnlyOptimal. All levels must start in TransferDstOptimal with
// level 0 populated.
func (dc *DeviceContext) GenerateMipmaps(image core1_0.Image, format core1_0.Format, width, height, mipLevels int) error {
	props := dc.physicalDevice.FormatProperties(format)
	if props.OptimalTilingFeatures&core1_0.FormatFeatureSampledImageFilterLinear == 0 {
		return errors.Newf("texture format %s does not support linear blitting", format)
	}

	return dc.singleTimeCommands(func(buffer core1_0.CommandBuffer) error {
		barrier := core1_0.ImageMemoryBarrier{
			SrcQueueFamilyIndex: -1,
			DstQueueFamilyIndex: -1,
			Image:               image,
			SubresourceRange: core1_0.ImageSubresourceRange{
				AspectMask:     core1_0.ImageAspectColor,
				BaseArrayLayer: 0,
				LayerCount:     1,
				LevelCount:     1,
			},
		}

		mipWidth, mipHeight := width, height
		for level := 1; level < mipLevels; level++ {
			barrier.SubresourceRange.BaseMipLevel = level - 1
			barrier.OldLayout = core1_0.ImageLayoutTransferDstOptimal
			barrier.NewLayout = core1_0.ImageLayoutTransferSrcOptimal
			barrier.SrcAccessMask = core1_0.AccessTransferWrite
			barrier.DstAccessMask = core1_0.AccessTransferRead

			err := buffer.CmdPipelineBarrier(core1_0.PipelineStageTransfer, core1_0.PipelineStageTransfer, 0, nil, nil, []core1_0.ImageMemoryBarrier{barrier})
			if err != nil {
				return errors.Wrapf(err, "mip %d: barrier to transfer source", level-1)
			}

			nextWidth, nextHeight := max(mipWidth/2, 1), max(mipHeight/2, 1)
			err = buffer.CmdBlitImage(image, core1_0.ImageLayoutTransferSrcOptimal, image, core1_0.ImageLayoutTransferDstOptimal, []core1_0.ImageBlit{
				{
					SrcSubresource: core1_0.ImageSubresourceLayers{
						AspectMask:     core1_0.ImageAspectColor,
						MipLevel:       level - 1,
						BaseArrayLayer: 0,
						LayerCount:     1,
					},
					SrcOffsets: [2]core1_0.Offset3D{
						{X: 0, Y: 0, Z: 0},
						{X: mipWidth, Y: mipHeight, Z: 1},
					},
					DstSubresource: core1_0.ImageSubresourceLayers{
						AspectMask:     core1_0.ImageAspectColor,
						MipLevel:       level,
						BaseArrayLayer: 0,
						LayerCount:     1,
					},
					DstOffsets: [2]core1_0.Offset3D{
						{X: 0, Y: 0, Z: 0},
						{X: nextWidth, Y: nextHeight, Z: 1},
					},
				},
			}, core1_0.FilterLinear)
			if err != nil {
				return errors.Wrapf(err, "mip %d: blit", level)
			}

			barrier.OldLayout = core1_0.ImageLayoutTransferSrcOptimal
			barrier.NewLayout = core1_0.ImageLayoutShaderReadOnlyOptimal
			barrier.SrcAccessMask = core1_0.AccessTransferRead
			barrier.DstAccessMask = core1_0.AccessShaderRead

			err = buffer.CmdPipelineBarrier(core1_0.PipelineStageTransfer, core1_0.PipelineStageFragmentShader, 0, nil, nil, []core1_0.ImageMemoryBarrier{barrier})
			if err != nil {
				return errors.Wrapf(err, "mip %d: barrier to shader read", level-1)
			}

			mipWidth, mipHeight = nextWidth, nextHeight
		}

		barrier.SubresourceRange.BaseMipLevel = mipLevels - 1
		barrier.OldLayout = core1_0.ImageLayoutTransferDstOptimal
		barrier.NewLayout = core1_0.ImageLayoutShaderReadOnlyOptimal
		barrier.SrcAccessMask = core1_0.AccessTransferWrite
		barrier.DstAccessMask = core1_0.AccessShaderRead

		err := buffer.CmdPipelineBarrier(core1_0.PipelineStageTransfer, core1_0.PipelineStageFragmentShader, 0, nil, nil, []core1_0.ImageMemoryBarrier{barrier})
		return errors.Wrapf(err, "mip %d: barrier to shader read", mipLevels-1)
	})
}
