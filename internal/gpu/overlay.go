package gpu

import (
	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_swapchain"
	"github.com/vkngwrapper/model-viewer/internal/assets"
	"github.com/vkngwrapper/model-viewer/internal/config"
	"github.com/vkngwrapper/model-viewer/internal/frame"
	"github.com/vkngwrapper/model-viewer/internal/ui"
)

const (
	// overlayPoolDescriptors sizes each descriptor type in the overlay pool.
	overlayPoolDescriptors = 1000
	fontFormat             = core1_0.FormatR8G8B8A8UnsignedNormalized
	minGeometryBytes       = 4096
)

// ComposeFunc declares the widgets of one UI frame.
type ComposeFunc func(ctx *ui.Context)

type hostBuffer struct {
	buffer   core1_0.Buffer
	memory   core1_0.DeviceMemory
	capacity int
}

func (b *hostBuffer) destroy() {
	if b.buffer != nil {
		b.buffer.Destroy(nil)
		b.buffer = nil
	}
	if b.memory != nil {
		b.memory.Free(nil)
		b.memory = nil
	}
	b.capacity = 0
}

// UIOverlay renders the debug UI in its own pass on top of the presented
// image. It has its own command pool, descriptor pool, synchronization
// objects and image ownership table; the only thing shared with the model
// pass is the swapchain.
type UIOverlay struct {
	device  *DeviceContext
	logger  *log.Logger
	assets  config.AssetsConfig
	ctx     *ui.Context
	compose ComposeFunc

	commandPool         core1_0.CommandPool
	descriptorPool      core1_0.DescriptorPool
	descriptorSetLayout core1_0.DescriptorSetLayout
	pipelineLayout      core1_0.PipelineLayout
	descriptorSet       core1_0.DescriptorSet

	fontImage   core1_0.Image
	fontMemory  core1_0.DeviceMemory
	fontView    core1_0.ImageView
	fontSampler core1_0.Sampler

	complete       []core1_0.Semaphore
	fences         []core1_0.Fence
	commandBuffers []core1_0.CommandBuffer
	vertexBuffers  []hostBuffer
	indexBuffers   []hostBuffer
	indexCounts    []int
	owners         *frame.Ownership

	extent       core1_0.Extent2D
	imageFormat  core1_0.Format
	renderPass   core1_0.RenderPass
	pipeline     core1_0.Pipeline
	imageViews   []core1_0.ImageView
	framebuffers []core1_0.Framebuffer
}

var _ Overlay = (*UIOverlay)(nil)

func NewOverlay(device *DeviceContext, chain SwapchainImages, assetsConfig config.AssetsConfig, ctx *ui.Context, compose ComposeFunc) (*UIOverlay, error) {
	o := &UIOverlay{
		device:  device,
		logger:  device.Logger().With("component", "overlay"),
		assets:  assetsConfig,
		ctx:     ctx,
		compose: compose,
		owners:  frame.NewOwnership(chain.ImageCount()),
	}

	steps := []struct {
		name   string
		create func() error
	}{
		{"command pool", o.createCommandPool},
		{"descriptor pool", o.createDescriptorPool},
		{"descriptor set layout", o.createDescriptorSetLayout},
		{"font texture", o.createFontTexture},
		{"descriptor set", o.createDescriptorSet},
		{"sync objects", o.createSyncObjects},
	}

	for _, step := range steps {
		if err := step.create(); err != nil {
			o.destroyPersistent()
			return nil, errors.Wrapf(err, "overlay: %s", step.name)
		}
	}

	if err := o.Recreate(chain); err != nil {
		o.destroyPersistent()
		return nil, err
	}

	device.Retain()
	return o, nil
}

func (o *UIOverlay) createCommandPool() error {
	var err error
	o.commandPool, _, err = o.device.Device().CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		QueueFamilyIndex: *o.device.QueueFamilies().GraphicsFamily,
	})
	return err
}

func (o *UIOverlay) createDescriptorPool() error {
	types := []core1_0.DescriptorType{
		core1_0.DescriptorTypeSampler,
		core1_0.DescriptorTypeCombinedImageSampler,
		core1_0.DescriptorTypeSampledImage,
		core1_0.DescriptorTypeStorageImage,
		core1_0.DescriptorTypeUniformTexelBuffer,
		core1_0.DescriptorTypeStorageTexelBuffer,
		core1_0.DescriptorTypeUniformBuffer,
		core1_0.DescriptorTypeStorageBuffer,
		core1_0.DescriptorTypeUniformBufferDynamic,
		core1_0.DescriptorTypeStorageBufferDynamic,
		core1_0.DescriptorTypeInputAttachment,
	}

	var sizes []core1_0.DescriptorPoolSize
	for _, descriptorType := range types {
		sizes = append(sizes, core1_0.DescriptorPoolSize{Type: descriptorType, DescriptorCount: overlayPoolDescriptors})
	}

	var err error
	o.descriptorPool, _, err = o.device.Device().CreateDescriptorPool(nil, core1_0.DescriptorPoolCreateInfo{
		MaxSets:   overlayPoolDescriptors * len(types),
		PoolSizes: sizes,
	})
	return err
}

func (o *UIOverlay) createDescriptorSetLayout() error {
	var err error
	o.descriptorSetLayout, _, err = o.device.Device().CreateDescriptorSetLayout(nil, core1_0.DescriptorSetLayoutCreateInfo{
		Bindings: []core1_0.DescriptorSetLayoutBinding{
			{
				Binding:         0,
				DescriptorType:  core1_0.DescriptorTypeCombinedImageSampler,
				DescriptorCount: 1,
				StageFlags:      core1_0.StageFragment,
			},
		},
	})
	if err != nil {
		return err
	}

	o.pipelineLayout, _, err = o.device.Device().CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{
		SetLayouts: []core1_0.DescriptorSetLayout{o.descriptorSetLayout},
	})
	return err
}

func (o *UIOverlay) createFontTexture() error {
	atlas := o.ctx.Atlas()
	device := o.device

	stagingBuffer, stagingMemory, err := device.CreateBuffer(len(atlas.Pixels), core1_0.BufferUsageTransferSrc, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if err != nil {
		return err
	}
	defer stagingBuffer.Destroy(nil)
	defer stagingMemory.Free(nil)

	if err = writeData(stagingMemory, 0, atlas.Pixels); err != nil {
		return err
	}

	o.fontImage, o.fontMemory, err = device.CreateImage(ImageOptions{
		Width:  atlas.Width,
		Height: atlas.Height,
		Format: fontFormat,
		Tiling: core1_0.ImageTilingOptimal,
		Usage:  core1_0.ImageUsageTransferDst | core1_0.ImageUsageSampled,
		Memory: core1_0.MemoryPropertyDeviceLocal,
	})
	if err != nil {
		return err
	}

	err = device.TransitionImageLayout(o.fontImage, fontFormat, core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal, 1)
	if err != nil {
		return err
	}

	err = device.CopyBufferToImage(stagingBuffer, o.fontImage, atlas.Width, atlas.Height)
	if err != nil {
		return err
	}

	err = device.TransitionImageLayout(o.fontImage, fontFormat, core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutShaderReadOnlyOptimal, 1)
	if err != nil {
		return err
	}

	o.fontView, err = device.CreateImageView(o.fontImage, fontFormat, core1_0.ImageAspectColor, 1)
	if err != nil {
		return err
	}

	o.fontSampler, _, err = device.Device().CreateSampler(nil, core1_0.SamplerCreateInfo{
		MagFilter:    core1_0.FilterLinear,
		MinFilter:    core1_0.FilterLinear,
		AddressModeU: core1_0.SamplerAddressModeClampToEdge,
		AddressModeV: core1_0.SamplerAddressModeClampToEdge,
		AddressModeW: core1_0.SamplerAddressModeClampToEdge,
		BorderColor:  core1_0.BorderColorIntOpaqueBlack,
		MipmapMode:   core1_0.SamplerMipmapModeLinear,
	})
	return err
}

func (o *UIOverlay) createDescriptorSet() error {
	sets, _, err := o.device.Device().AllocateDescriptorSets(core1_0.DescriptorSetAllocateInfo{
		DescriptorPool: o.descriptorPool,
		SetLayouts:     []core1_0.DescriptorSetLayout{o.descriptorSetLayout},
	})
	if err != nil {
		return err
	}
	o.descriptorSet = sets[0]

	return o.device.Device().UpdateDescriptorSets([]core1_0.WriteDescriptorSet{
		{
			DstSet:         o.descriptorSet,
			DstBinding:     0,
			DescriptorType: core1_0.DescriptorTypeCombinedImageSampler,
			ImageInfo: []core1_0.DescriptorImageInfo{
				{
					ImageView:   o.fontView,
					Sampler:     o.fontSampler,
					ImageLayout: core1_0.ImageLayoutShaderReadOnlyOptimal,
				},
			},
		},
	}, nil)
}

func (o *UIOverlay) createSyncObjects() error {
	device := o.device.Device()
	for i := 0; i < frame.MaxFramesInFlight; i++ {
		semaphore, _, err := device.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
		if err != nil {
			return err
		}
		o.complete = append(o.complete, semaphore)

		fence, _, err := device.CreateFence(nil, core1_0.FenceCreateInfo{
			Flags: core1_0.FenceCreateSignaled,
		})
		if err != nil {
			return err
		}
		o.fences = append(o.fences, fence)
	}

	o.commandBuffers = make([]core1_0.CommandBuffer, frame.MaxFramesInFlight)
	o.vertexBuffers = make([]hostBuffer, frame.MaxFramesInFlight)
	o.indexBuffers = make([]hostBuffer, frame.MaxFramesInFlight)
	o.indexCounts = make([]int, frame.MaxFramesInFlight)
	return nil
}

// Recreate rebuilds the render pass, pipeline, image views and framebuffers
// against chain.
func (o *UIOverlay) Recreate(chain SwapchainImages) error {
	o.Release()

	o.extent = chain.Extent()
	o.imageFormat = chain.ImageFormat()
	o.owners.Reset(chain.ImageCount())

	steps := []struct {
		name   string
		create func() error
	}{
		{"render pass", o.createRenderPass},
		{"pipeline", o.createPipeline},
		{"image views", func() error { return o.createImageViews(chain.Images()) }},
		{"framebuffers", o.createFramebuffers},
	}

	for _, step := range steps {
		if err := step.create(); err != nil {
			o.Release()
			return errors.Wrapf(err, "overlay: %s", step.name)
		}
	}

	return checkImageCounts(chain.ImageCount(), map[string]int{
		"overlay image views":  len(o.imageViews),
		"overlay framebuffers": len(o.framebuffers),
	})
}

func (o *UIOverlay) createRenderPass() error {
	var err error
	o.renderPass, _, err = o.device.Device().CreateRenderPass(nil, core1_0.RenderPassCreateInfo{
		Attachments: []core1_0.AttachmentDescription{
			{
				Format:         o.imageFormat,
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpLoad,
				StoreOp:        core1_0.AttachmentStoreOpStore,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  khr_swapchain.ImageLayoutPresentSrc,
				FinalLayout:    khr_swapchain.ImageLayoutPresentSrc,
			},
		},
		Subpasses: []core1_0.SubpassDescription{
			{
				PipelineBindPoint: core1_0.PipelineBindPointGraphics,
				ColorAttachments: []core1_0.AttachmentReference{
					{
						Attachment: 0,
						Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
					},
				},
			},
		},
		SubpassDependencies: []core1_0.SubpassDependency{
			{
				SrcSubpass: core1_0.SubpassExternal,
				DstSubpass: 0,

				SrcStageMask:  core1_0.PipelineStageColorAttachmentOutput,
				SrcAccessMask: 0,

				DstStageMask:  core1_0.PipelineStageColorAttachmentOutput,
				DstAccessMask: core1_0.AccessColorAttachmentRead | core1_0.AccessColorAttachmentWrite,
			},
		},
	})
	return err
}

func (o *UIOverlay) loadShader(name string) (core1_0.ShaderModule, error) {
	code, err := assets.ReadShader(o.assets.ShaderPath(name))
	if err != nil {
		return nil, err
	}

	return o.device.CreateShaderModule(code)
}

func (o *UIOverlay) createPipeline() error {
	vertShader, err := o.loadShader(o.assets.UIVertex)
	if err != nil {
		return err
	}
	defer vertShader.Destroy(nil)

	fragShader, err := o.loadShader(o.assets.UIFragment)
	if err != nil {
		return err
	}
	defer fragShader.Destroy(nil)

	pipelines, _, err := o.device.Device().CreateGraphicsPipelines(nil, nil, []core1_0.GraphicsPipelineCreateInfo{
		{
			Stages: []core1_0.PipelineShaderStageCreateInfo{
				{Stage: core1_0.StageVertex, Module: vertShader, Name: "main"},
				{Stage: core1_0.StageFragment, Module: fragShader, Name: "main"},
			},
			VertexInputState: &core1_0.PipelineVertexInputStateCreateInfo{
				VertexBindingDescriptions: []core1_0.VertexInputBindingDescription{
					{Binding: 0, Stride: ui.VertexStride, InputRate: core1_0.VertexInputRateVertex},
				},
				VertexAttributeDescriptions: []core1_0.VertexInputAttributeDescription{
					{Binding: 0, Location: 0, Format: core1_0.FormatR32G32SignedFloat, Offset: ui.PositionOffset},
					{Binding: 0, Location: 1, Format: core1_0.FormatR32G32SignedFloat, Offset: ui.TexCoordOffset},
					{Binding: 0, Location: 2, Format: core1_0.FormatR32G32B32A32SignedFloat, Offset: ui.ColorOffset},
				},
			},
			InputAssemblyState: &core1_0.PipelineInputAssemblyStateCreateInfo{
				Topology: core1_0.PrimitiveTopologyTriangleList,
			},
			ViewportState: &core1_0.PipelineViewportStateCreateInfo{
				Viewports: []core1_0.Viewport{
					{
						Width:    float32(o.extent.Width),
						Height:   float32(o.extent.Height),
						MinDepth: 0,
						MaxDepth: 1,
					},
				},
				Scissors: []core1_0.Rect2D{
					{Extent: o.extent},
				},
			},
			RasterizationState: &core1_0.PipelineRasterizationStateCreateInfo{
				PolygonMode: core1_0.PolygonModeFill,
				FrontFace:   core1_0.FrontFaceCounterClockwise,
				LineWidth:   1.0,
			},
			MultisampleState: &core1_0.PipelineMultisampleStateCreateInfo{
				RasterizationSamples: core1_0.Samples1,
				MinSampleShading:     1.0,
			},
			ColorBlendState: &core1_0.PipelineColorBlendStateCreateInfo{
				LogicOp: core1_0.LogicOpCopy,
				Attachments: []core1_0.PipelineColorBlendAttachmentState{
					{
						BlendEnabled:        true,
						SrcColorBlendFactor: core1_0.BlendFactorSrcAlpha,
						DstColorBlendFactor: core1_0.BlendFactorOneMinusSrcAlpha,
						ColorBlendOp:        core1_0.BlendOpAdd,
						SrcAlphaBlendFactor: core1_0.BlendFactorOne,
						DstAlphaBlendFactor: core1_0.BlendFactorOneMinusSrcAlpha,
						AlphaBlendOp:        core1_0.BlendOpAdd,
						ColorWriteMask:      core1_0.ColorComponentRed | core1_0.ColorComponentGreen | core1_0.ColorComponentBlue | core1_0.ColorComponentAlpha,
					},
				},
			},
			Layout:            o.pipelineLayout,
			RenderPass:        o.renderPass,
			Subpass:           0,
			BasePipelineIndex: -1,
		},
	})
	if err != nil {
		return err
	}
	o.pipeline = pipelines[0]
	return nil
}

func (o *UIOverlay) createImageViews(images []core1_0.Image) error {
	for _, image := range images {
		view, err := o.device.CreateImageView(image, o.imageFormat, core1_0.ImageAspectColor, 1)
		if err != nil {
			return err
		}
		o.imageViews = append(o.imageViews, view)
	}
	return nil
}

func (o *UIOverlay) createFramebuffers() error {
	for _, view := range o.imageViews {
		framebuffer, _, err := o.device.Device().CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
			RenderPass:  o.renderPass,
			Layers:      1,
			Attachments: []core1_0.ImageView{view},
			Width:       o.extent.Width,
			Height:      o.extent.Height,
		})
		if err != nil {
			return err
		}
		o.framebuffers = append(o.framebuffers, framebuffer)
	}
	return nil
}

// clipSpaceVertices maps pixel positions to clip space with the draw data's
// projection.
func clipSpaceVertices(data ui.DrawData) []ui.Vertex {
	scale, translate := data.Projection()
	vertices := make([]ui.Vertex, len(data.Vertices))
	for i, v := range data.Vertices {
		v.Position = mgl32.Vec2{v.Position[0]*scale[0] + translate[0], v.Position[1]*scale[1] + translate[1]}
		vertices[i] = v
	}
	return vertices
}

func (o *UIOverlay) ensureCapacity(b *hostBuffer, size int, usage core1_0.BufferUsageFlags) error {
	if b.capacity >= size {
		return nil
	}

	capacity := max(b.capacity*2, size, minGeometryBytes)
	b.destroy()

	buffer, memory, err := o.device.CreateBuffer(capacity, usage, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if err != nil {
		return err
	}

	b.buffer, b.memory, b.capacity = buffer, memory, capacity
	return nil
}

func (o *UIOverlay) upload(slot int, data ui.DrawData) error {
	o.indexCounts[slot] = len(data.Indices)
	if data.Empty() {
		return nil
	}

	vertices := clipSpaceVertices(data)
	vertexBytes, err := encodeData(vertices)
	if err != nil {
		return err
	}
	indexBytes, err := encodeData(data.Indices)
	if err != nil {
		return err
	}

	if err = o.ensureCapacity(&o.vertexBuffers[slot], len(vertexBytes), core1_0.BufferUsageVertexBuffer); err != nil {
		return errors.Wrap(err, "vertex buffer")
	}
	if err = o.ensureCapacity(&o.indexBuffers[slot], len(indexBytes), core1_0.BufferUsageIndexBuffer); err != nil {
		return errors.Wrap(err, "index buffer")
	}

	if err = writeData(o.vertexBuffers[slot].memory, 0, vertexBytes); err != nil {
		return err
	}
	return writeData(o.indexBuffers[slot].memory, 0, indexBytes)
}

func (o *UIOverlay) record(slot, image int) error {
	if o.commandBuffers[slot] != nil {
		o.device.Device().FreeCommandBuffers([]core1_0.CommandBuffer{o.commandBuffers[slot]})
		o.commandBuffers[slot] = nil
	}

	buffers, _, err := o.device.Device().AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        o.commandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return err
	}
	buffer := buffers[0]
	o.commandBuffers[slot] = buffer

	_, err = buffer.Begin(core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	if err != nil {
		return err
	}

	err = buffer.CmdBeginRenderPass(core1_0.SubpassContentsInline, core1_0.RenderPassBeginInfo{
		RenderPass:  o.renderPass,
		Framebuffer: o.framebuffers[image],
		RenderArea:  core1_0.Rect2D{Extent: o.extent},
	})
	if err != nil {
		return err
	}

	if count := o.indexCounts[slot]; count > 0 {
		buffer.CmdBindPipeline(core1_0.PipelineBindPointGraphics, o.pipeline)
		buffer.CmdBindVertexBuffers(0, []core1_0.Buffer{o.vertexBuffers[slot].buffer}, []int{0})
		buffer.CmdBindIndexBuffer(o.indexBuffers[slot].buffer, 0, core1_0.IndexTypeUInt32)
		buffer.CmdBindDescriptorSets(core1_0.PipelineBindPointGraphics, o.pipelineLayout, []core1_0.DescriptorSet{o.descriptorSet}, nil)
		buffer.CmdDrawIndexed(count, 1, 0, 0, 0)
	}

	buffer.CmdEndRenderPass()

	_, err = buffer.End()
	return err
}

// RenderFrame builds this frame's UI, records it for image and submits it
// after wait. Present must wait on the returned semaphore.
func (o *UIOverlay) RenderFrame(slot, image int, wait core1_0.Semaphore) (core1_0.Semaphore, error) {
	device := o.device.Device()

	_, err := device.WaitForFences(true, common.NoTimeout, []core1_0.Fence{o.fences[slot]})
	if err != nil {
		return nil, errors.Wrapf(err, "overlay: wait slot %d", slot)
	}

	prev, err := o.owners.Claim(image, slot)
	if err != nil {
		return nil, err
	}
	if prev != frame.NoOwner && prev != slot {
		_, err = device.WaitForFences(true, common.NoTimeout, []core1_0.Fence{o.fences[prev]})
		if err != nil {
			return nil, errors.Wrapf(err, "overlay: wait image %d owner %d", image, prev)
		}
	}

	o.ctx.NewFrame(float32(o.extent.Width), float32(o.extent.Height))
	if o.compose != nil {
		o.compose(o.ctx)
	}

	if err = o.upload(slot, o.ctx.Render()); err != nil {
		return nil, errors.Wrap(err, "overlay: upload geometry")
	}

	if err = o.record(slot, image); err != nil {
		return nil, errors.Wrap(err, "overlay: record")
	}

	_, err = device.ResetFences([]core1_0.Fence{o.fences[slot]})
	if err != nil {
		return nil, err
	}

	_, err = o.device.GraphicsQueue().Submit(o.fences[slot], []core1_0.SubmitInfo{
		{
			WaitSemaphores:   []core1_0.Semaphore{wait},
			WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
			CommandBuffers:   []core1_0.CommandBuffer{o.commandBuffers[slot]},
			SignalSemaphores: []core1_0.Semaphore{o.complete[slot]},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "overlay: submit")
	}

	return o.complete[slot], nil
}

// Release drops everything tied to the current swapchain images. The device
// must be idle.
func (o *UIOverlay) Release() {
	for _, framebuffer := range o.framebuffers {
		framebuffer.Destroy(nil)
	}
	o.framebuffers = nil

	for _, view := range o.imageViews {
		view.Destroy(nil)
	}
	o.imageViews = nil

	if o.pipeline != nil {
		o.pipeline.Destroy(nil)
		o.pipeline = nil
	}

	if o.renderPass != nil {
		o.renderPass.Destroy(nil)
		o.renderPass = nil
	}
}

func (o *UIOverlay) destroyPersistent() {
	for i := range o.vertexBuffers {
		o.vertexBuffers[i].destroy()
	}
	for i := range o.indexBuffers {
		o.indexBuffers[i].destroy()
	}

	for _, fence := range o.fences {
		fence.Destroy(nil)
	}
	o.fences = nil

	for _, semaphore := range o.complete {
		semaphore.Destroy(nil)
	}
	o.complete = nil

	if o.fontSampler != nil {
		o.fontSampler.Destroy(nil)
		o.fontSampler = nil
	}

	if o.fontView != nil {
		o.fontView.Destroy(nil)
		o.fontView = nil
	}

	if o.fontImage != nil {
		o.fontImage.Destroy(nil)
		o.fontImage = nil
	}

	if o.fontMemory != nil {
		o.fontMemory.Free(nil)
		o.fontMemory = nil
	}

	if o.pipelineLayout != nil {
		o.pipelineLayout.Destroy(nil)
		o.pipelineLayout = nil
	}

	if o.descriptorSetLayout != nil {
		o.descriptorSetLayout.Destroy(nil)
		o.descriptorSetLayout = nil
	}

	if o.descriptorPool != nil {
		o.descriptorPool.Destroy(nil)
		o.descriptorPool = nil
	}

	// destroying the pool frees its command buffers
	if o.commandPool != nil {
		o.commandPool.Destroy(nil)
		o.commandPool = nil
	}
	o.commandBuffers = nil
}

// Destroy frees everything the overlay owns. The device must be idle.
func (o *UIOverlay) Destroy() {
	if o.device == nil {
		return
	}

	o.Release()
	o.destroyPersistent()
	o.device.Release()
	o.device = nil
}
