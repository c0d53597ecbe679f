package gpu

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/model-viewer/internal/texture"
)

const textureFormat = core1_0.FormatR8G8B8A8SRGB

// Texture is a sampled, mip-mapped image with its view and sampler.
type Texture struct {
	device *DeviceContext

	image     core1_0.Image
	memory    core1_0.DeviceMemory
	view      core1_0.ImageView
	sampler   core1_0.Sampler
	mipLevels int
}

func createTexture(device *DeviceContext, pixels *texture.Pixels) (*Texture, error) {
	t := &Texture{device: device, mipLevels: pixels.MipLevels()}

	err := t.upload(pixels)
	if err != nil {
		t.Destroy()
		return nil, err
	}

	t.view, err = device.CreateImageView(t.image, textureFormat, core1_0.ImageAspectColor, t.mipLevels)
	if err != nil {
		t.Destroy()
		return nil, errors.Wrap(err, "texture view")
	}

	t.sampler, _, err = device.Device().CreateSampler(nil, core1_0.SamplerCreateInfo{
		MagFilter:    core1_0.FilterLinear,
		MinFilter:    core1_0.FilterLinear,
		AddressModeU: core1_0.SamplerAddressModeRepeat,
		AddressModeV: core1_0.SamplerAddressModeRepeat,
		AddressModeW: core1_0.SamplerAddressModeRepeat,

		AnisotropyEnable: true,
		MaxAnisotropy:    device.MaxSamplerAnisotropy(),

		BorderColor: core1_0.BorderColorIntOpaqueBlack,

		MipmapMode: core1_0.SamplerMipmapModeLinear,
		MinLod:     0,
		MaxLod:     float32(t.mipLevels),
	})
	if err != nil {
		t.Destroy()
		return nil, errors.Wrap(err, "texture sampler")
	}

	return t, nil
}

func (t *Texture) upload(pixels *texture.Pixels) error {
	device := t.device

	stagingBuffer, stagingMemory, err := device.CreateBuffer(pixels.Size(), core1_0.BufferUsageTransferSrc, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if err != nil {
		return errors.Wrap(err, "texture staging buffer")
	}
	defer stagingBuffer.Destroy(nil)
	defer stagingMemory.Free(nil)

	err = writeData(stagingMemory, 0, pixels.Data)
	if err != nil {
		return err
	}

	t.image, t.memory, err = device.CreateImage(ImageOptions{
		Width:     pixels.Width,
		Height:    pixels.Height,
		MipLevels: t.mipLevels,
		Samples:   core1_0.Samples1,
		Format:    textureFormat,
		Tiling:    core1_0.ImageTilingOptimal,
		Usage:     core1_0.ImageUsageTransferSrc | core1_0.ImageUsageTransferDst | core1_0.ImageUsageSampled,
		Memory:    core1_0.MemoryPropertyDeviceLocal,
	})
	if err != nil {
		return errors.Wrap(err, "texture image")
	}

	err = device.TransitionImageLayout(t.image, textureFormat, core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal, t.mipLevels)
	if err != nil {
		return err
	}

	err = device.CopyBufferToImage(stagingBuffer, t.image, pixels.Width, pixels.Height)
	if err != nil {
		return err
	}

	return device.GenerateMipmaps(t.image, textureFormat, pixels.Width, pixels.Height, t.mipLevels)
}

func (t *Texture) View() core1_0.ImageView {
	return t.view
}

func (t *Texture) Sampler() core1_0.Sampler {
	return t.sampler
}

func (t *Texture) MipLevels() int {
	return t.mipLevels
}

func (t *Texture) Destroy() {
	if t.sampler != nil {
		t.sampler.Destroy(nil)
		t.sampler = nil
	}

	if t.view != nil {
		t.view.Destroy(nil)
		t.view = nil
	}

	if t.image != nil {
		t.image.Destroy(nil)
		t.image = nil
	}

	if t.memory != nil {
		t.memory.Free(nil)
		t.memory = nil
	}
}
