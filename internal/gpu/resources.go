package gpu

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
)

// CreateBuffer allocates a buffer and bound memory. The memory is not zeroed.
func (dc *DeviceContext) CreateBuffer(size int, usage core1_0.BufferUsageFlags, properties core1_0.MemoryPropertyFlags) (core1_0.Buffer, core1_0.DeviceMemory, error) {
	buffer, _, err := dc.device.CreateBuffer(nil, core1_0.BufferCreateInfo{
		Size:        size,
		Usage:       usage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "create buffer")
	}

	memRequirements := buffer.MemoryRequirements()
	memoryTypeIndex, err := dc.findMemoryType(memRequirements.MemoryTypeBits, properties)
	if err != nil {
		buffer.Destroy(nil)
		return nil, nil, err
	}

	memory, _, err := dc.device.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	if err != nil {
		buffer.Destroy(nil)
		return nil, nil, errors.Wrap(err, "allocate buffer memory")
	}

	_, err = buffer.BindBufferMemory(memory, 0)
	if err != nil {
		buffer.Destroy(nil)
		memory.Free(nil)
		return nil, nil, errors.Wrap(err, "bind buffer memory")
	}

	return buffer, memory, nil
}

// CreateDeviceLocalBuffer uploads data through a staging buffer into a new
// device-local buffer.
func (dc *DeviceContext) CreateDeviceLocalBuffer(data any, usage core1_0.BufferUsageFlags) (core1_0.Buffer, core1_0.DeviceMemory, error) {
	bufferSize := binary.Size(data)
	if bufferSize <= 0 {
		return nil, nil, errors.Newf("cannot upload %T: no fixed binary size", data)
	}

	stagingBuffer, stagingBufferMemory, err := dc.CreateBuffer(bufferSize, core1_0.BufferUsageTransferSrc, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if err != nil {
		return nil, nil, err
	}
	defer stagingBuffer.Destroy(nil)
	defer stagingBufferMemory.Free(nil)

	err = writeData(stagingBufferMemory, 0, data)
	if err != nil {
		return nil, nil, err
	}

	buffer, memory, err := dc.CreateBuffer(bufferSize, core1_0.BufferUsageTransferDst|usage, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return nil, nil, err
	}

	err = dc.CopyBuffer(stagingBuffer, buffer, bufferSize)
	if err != nil {
		buffer.Destroy(nil)
		memory.Free(nil)
		return nil, nil, err
	}

	return buffer, memory, nil
}

type ImageOptions struct {
	Width, Height int
	MipLevels     int
	Samples       core1_0.SampleCountFlags
	Format        core1_0.Format
	Tiling        core1_0.ImageTiling
	Usage         core1_0.ImageUsageFlags
	Memory        core1_0.MemoryPropertyFlags
}

func (dc *DeviceContext) CreateImage(options ImageOptions) (core1_0.Image, core1_0.DeviceMemory, error) {
	mipLevels := options.MipLevels
	if mipLevels < 1 {
		mipLevels = 1
	}
	samples := options.Samples
	if samples == 0 {
		samples = core1_0.Samples1
	}

	image, _, err := dc.device.CreateImage(nil, core1_0.ImageCreateInfo{
		ImageType: core1_0.ImageType2D,
		Extent: core1_0.Extent3D{
			Width:  options.Width,
			Height: options.Height,
			Depth:  1,
		},
		MipLevels:     mipLevels,
		ArrayLayers:   1,
		Format:        options.Format,
		Tiling:        options.Tiling,
		InitialLayout: core1_0.ImageLayoutUndefined,
		Usage:         options.Usage,
		SharingMode:   core1_0.SharingModeExclusive,
		Samples:       samples,
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "create image")
	}

	memReqs := image.MemoryRequirements()
	memoryIndex, err := dc.findMemoryType(memReqs.MemoryTypeBits, options.Memory)
	if err != nil {
		image.Destroy(nil)
		return nil, nil, err
	}

	imageMemory, _, err := dc.device.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memoryIndex,
	})
	if err != nil {
		image.Destroy(nil)
		return nil, nil, errors.Wrap(err, "allocate image memory")
	}

	_, err = image.BindImageMemory(imageMemory, 0)
	if err != nil {
		image.Destroy(nil)
		imageMemory.Free(nil)
		return nil, nil, errors.Wrap(err, "bind image memory")
	}

	return image, imageMemory, nil
}

func (dc *DeviceContext) CreateImageView(image core1_0.Image, format core1_0.Format, aspect core1_0.ImageAspectFlags, mipLevels int) (core1_0.ImageView, error) {
	imageView, _, err := dc.device.CreateImageView(nil, core1_0.ImageViewCreateInfo{
		Image:    image,
		ViewType: core1_0.ImageViewType2D,
		Format:   format,
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     mipLevels,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	})
	return imageView, errors.Wrap(err, "create image view")
}

func (dc *DeviceContext) CreateShaderModule(code []uint32) (core1_0.ShaderModule, error) {
	module, _, err := dc.device.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: code,
	})
	return module, errors.Wrap(err, "create shader module")
}

func (dc *DeviceContext) findMemoryType(typeFilter uint32, properties core1_0.MemoryPropertyFlags) (int, error) {
	memProperties := dc.physicalDevice.MemoryProperties()
	for i, memoryType := range memProperties.MemoryTypes {
		typeBit := uint32(1 << i)

		if (typeFilter&typeBit) != 0 && (memoryType.PropertyFlags&properties) == properties {
			return i, nil
		}
	}

	return 0, errors.Newf("failed to find a memory type with properties %s", properties)
}

// writeData maps memory and copies the binary encoding of data into it.
func writeData(memory core1_0.DeviceMemory, offset int, data any) error {
	encoded, err := encodeData(data)
	if err != nil {
		return err
	}

	memoryPtr, _, err := memory.Map(offset, len(encoded), 0)
	if err != nil {
		return errors.Wrap(err, "map memory")
	}
	defer memory.Unmap()

	dataBuffer := unsafe.Slice((*byte)(memoryPtr), len(encoded))
	copy(dataBuffer, encoded)
	return nil
}

func encodeData(data any) ([]byte, error) {
	buf := &bytes.Buffer{}
	err := binary.Write(buf, common.ByteOrder, data)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %T", data)
	}
	return buf.Bytes(), nil
}
