package gpu

import (
	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_swapchain"
	"github.com/vkngwrapper/model-viewer/internal/assets"
	"github.com/vkngwrapper/model-viewer/internal/config"
	"github.com/vkngwrapper/model-viewer/internal/mesh"
	"github.com/vkngwrapper/model-viewer/internal/texture"
)

// descriptorHeadroom is added to the per-image descriptor pool sizing.
const descriptorHeadroom = 100

func vertexBindingDescriptions() []core1_0.VertexInputBindingDescription {
	return []core1_0.VertexInputBindingDescription{
		{
			Binding:   0,
			Stride:    mesh.VertexStride,
			InputRate: core1_0.VertexInputRateVertex,
		},
	}
}

func vertexAttributeDescriptions() []core1_0.VertexInputAttributeDescription {
	return []core1_0.VertexInputAttributeDescription{
		{
			Binding:  0,
			Location: 0,
			Format:   core1_0.FormatR32G32B32SignedFloat,
			Offset:   mesh.PositionOffset,
		},
		{
			Binding:  0,
			Location: 1,
			Format:   core1_0.FormatR32G32B32SignedFloat,
			Offset:   mesh.ColorOffset,
		},
		{
			Binding:  0,
			Location: 2,
			Format:   core1_0.FormatR32G32SignedFloat,
			Offset:   mesh.TexCoordOffset,
		},
	}
}

// Pipeline owns the render pass, graphics pipeline and every resource whose
// multiplicity is the swapchain image count. All of it is destroyed and
// rebuilt together on each swapchain recreation.
type Pipeline struct {
	device *DeviceContext
	logger *log.Logger
	assets config.AssetsConfig
	pixels *texture.Pixels

	imageFormat core1_0.Format
	extent      core1_0.Extent2D
	imageCount  int
	samples     core1_0.SampleCountFlags
	depthFormat core1_0.Format

	imageViews          []core1_0.ImageView
	renderPass          core1_0.RenderPass
	descriptorSetLayout core1_0.DescriptorSetLayout
	pipelineLayout      core1_0.PipelineLayout
	graphicsPipeline    core1_0.Pipeline

	colorImage       core1_0.Image
	colorImageMemory core1_0.DeviceMemory
	colorImageView   core1_0.ImageView

	depthImage       core1_0.Image
	depthImageMemory core1_0.DeviceMemory
	depthImageView   core1_0.ImageView

	framebuffers []core1_0.Framebuffer
	texture      *Texture

	uniformBuffers       []core1_0.Buffer
	uniformBuffersMemory []core1_0.DeviceMemory

	descriptorPool core1_0.DescriptorPool
	descriptorSets []core1_0.DescriptorSet

	commandBuffers []core1_0.CommandBuffer
}

// NewPipeline keeps the decoded texture for upload on every Create.
func NewPipeline(device *DeviceContext, assetsConfig config.AssetsConfig, pixels *texture.Pixels) *Pipeline {
	device.Retain()
	return &Pipeline{
		device: device,
		logger: device.Logger().With("component", "pipeline"),
		assets: assetsConfig,
		pixels: pixels,
	}
}

// Create builds every resource in dependency order. On failure everything
// built so far is destroyed again.
func (p *Pipeline) Create(chain SwapchainImages) error {
	p.imageFormat = chain.ImageFormat()
	p.extent = chain.Extent()
	p.imageCount = chain.ImageCount()
	p.samples = p.device.MSAASamples()

	steps := []struct {
		name   string
		create func() error
	}{
		{"image views", func() error { return p.createImageViews(chain.Images()) }},
		{"render pass", p.createRenderPass},
		{"descriptor set layout", p.createDescriptorSetLayout},
		{"graphics pipeline", p.createGraphicsPipeline},
		{"color resources", p.createColorResources},
		{"depth resources", p.createDepthResources},
		{"framebuffers", p.createFramebuffers},
		{"texture", p.createTexture},
		{"uniform buffers", p.createUniformBuffers},
		{"descriptor pool", p.createDescriptorPool},
		{"descriptor sets", p.createDescriptorSets},
	}

	for _, step := range steps {
		if err := step.create(); err != nil {
			p.Destroy()
			return errors.Wrapf(err, "pipeline: %s", step.name)
		}
	}

	if err := p.checkCounts(); err != nil {
		p.Destroy()
		return err
	}

	p.logger.Debug("pipeline created", "images", p.imageCount, "samples", sampleCountValue(p.samples), "mipLevels", p.texture.MipLevels())
	return nil
}

// Recreate waits for a drawable window and an idle device, then rebuilds
// everything against chain. Command buffers must be recorded again.
func (p *Pipeline) Recreate(chain SwapchainImages) error {
	p.device.WaitOnWindowResized()
	if p.device.Window().ShouldClose() {
		return nil
	}

	if err := p.device.WaitIdle(); err != nil {
		return err
	}

	p.Destroy()
	return p.Create(chain)
}

func (p *Pipeline) checkCounts() error {
	return checkImageCounts(p.imageCount, map[string]int{
		"image views":     len(p.imageViews),
		"framebuffers":    len(p.framebuffers),
		"uniform buffers": len(p.uniformBuffers),
		"descriptor sets": len(p.descriptorSets),
	})
}

func checkImageCounts(imageCount int, counts map[string]int) error {
	for name, count := range counts {
		if count != imageCount {
			return errors.AssertionFailedf("%s: have %d, swapchain has %d images", name, count, imageCount)
		}
	}
	return nil
}

func (p *Pipeline) createImageViews(images []core1_0.Image) error {
	for _, image := range images {
		view, err := p.device.CreateImageView(image, p.imageFormat, core1_0.ImageAspectColor, 1)
		if err != nil {
			return err
		}

		p.imageViews = append(p.imageViews, view)
	}

	return nil
}

func (p *Pipeline) createRenderPass() error {
	var err error
	p.depthFormat, err = p.device.FindDepthFormat()
	if err != nil {
		return err
	}

	p.renderPass, _, err = p.device.Device().CreateRenderPass(nil, core1_0.RenderPassCreateInfo{
		Attachments: []core1_0.AttachmentDescription{
			{
				Format:         p.imageFormat,
				Samples:        p.samples,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpDontCare,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutUndefined,
				FinalLayout:    core1_0.ImageLayoutColorAttachmentOptimal,
			},
			{
				Format:         p.depthFormat,
				Samples:        p.samples,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpDontCare,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutUndefined,
				FinalLayout:    core1_0.ImageLayoutDepthStencilAttachmentOptimal,
			},
			{
				Format:         p.imageFormat,
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpDontCare,
				StoreOp:        core1_0.AttachmentStoreOpStore,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutUndefined,
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
				ResolveAttachments: []core1_0.AttachmentReference{
					{
						Attachment: 2,
						Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
					},
				},
				DepthStencilAttachment: &core1_0.AttachmentReference{
					Attachment: 1,
					Layout:     core1_0.ImageLayoutDepthStencilAttachmentOptimal,
				},
			},
		},
		SubpassDependencies: []core1_0.SubpassDependency{
			{
				SrcSubpass: core1_0.SubpassExternal,
				DstSubpass: 0,

				SrcStageMask:  core1_0.PipelineStageColorAttachmentOutput | core1_0.PipelineStageEarlyFragmentTests,
				SrcAccessMask: 0,

				DstStageMask:  core1_0.PipelineStageColorAttachmentOutput | core1_0.PipelineStageEarlyFragmentTests,
				DstAccessMask: core1_0.AccessColorAttachmentWrite | core1_0.AccessDepthStencilAttachmentWrite,
			},
		},
	})
	return err
}

func (p *Pipeline) createDescriptorSetLayout() error {
	var err error
	p.descriptorSetLayout, _, err = p.device.Device().CreateDescriptorSetLayout(nil, core1_0.DescriptorSetLayoutCreateInfo{
		Bindings: []core1_0.DescriptorSetLayoutBinding{
			{
				Binding:         0,
				DescriptorType:  core1_0.DescriptorTypeUniformBuffer,
				DescriptorCount: 1,

				StageFlags: core1_0.StageVertex,
			},
			{
				Binding:         1,
				DescriptorType:  core1_0.DescriptorTypeCombinedImageSampler,
				DescriptorCount: 1,

				StageFlags: core1_0.StageFragment,
			},
		},
	})
	return err
}

func (p *Pipeline) loadShader(name string) (core1_0.ShaderModule, error) {
	code, err := assets.ReadShader(p.assets.ShaderPath(name))
	if err != nil {
		return nil, err
	}

	return p.device.CreateShaderModule(code)
}

func (p *Pipeline) createGraphicsPipeline() error {
	vertShader, err := p.loadShader(p.assets.VertexShader)
	if err != nil {
		return err
	}
	defer vertShader.Destroy(nil)

	fragShader, err := p.loadShader(p.assets.FragmentShader)
	if err != nil {
		return err
	}
	defer fragShader.Destroy(nil)

	vertexInput := &core1_0.PipelineVertexInputStateCreateInfo{
		VertexBindingDescriptions:   vertexBindingDescriptions(),
		VertexAttributeDescriptions: vertexAttributeDescriptions(),
	}

	inputAssembly := &core1_0.PipelineInputAssemblyStateCreateInfo{
		Topology:               core1_0.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: false,
	}

	vertStage := core1_0.PipelineShaderStageCreateInfo{
		Stage:  core1_0.StageVertex,
		Module: vertShader,
		Name:   "main",
	}

	fragStage := core1_0.PipelineShaderStageCreateInfo{
		Stage:  core1_0.StageFragment,
		Module: fragShader,
		Name:   "main",
	}

	viewport := &core1_0.PipelineViewportStateCreateInfo{
		Viewports: []core1_0.Viewport{
			{
				X:        0,
				Y:        0,
				Width:    float32(p.extent.Width),
				Height:   float32(p.extent.Height),
				MinDepth: 0,
				MaxDepth: 1,
			},
		},
		Scissors: []core1_0.Rect2D{
			{
				Offset: core1_0.Offset2D{X: 0, Y: 0},
				Extent: p.extent,
			},
		},
	}

	rasterization := &core1_0.PipelineRasterizationStateCreateInfo{
		DepthClampEnable:        false,
		RasterizerDiscardEnable: false,

		PolygonMode: core1_0.PolygonModeFill,
		CullMode:    core1_0.CullModeBack,
		FrontFace:   core1_0.FrontFaceCounterClockwise,

		DepthBiasEnable: false,

		LineWidth: 1.0,
	}

	multisample := &core1_0.PipelineMultisampleStateCreateInfo{
		SampleShadingEnable:  false,
		RasterizationSamples: p.samples,
		MinSampleShading:     1.0,
	}

	depthStencil := &core1_0.PipelineDepthStencilStateCreateInfo{
		DepthTestEnable:  true,
		DepthWriteEnable: true,
		DepthCompareOp:   core1_0.CompareOpLess,
	}

	colorBlend := &core1_0.PipelineColorBlendStateCreateInfo{
		LogicOpEnabled: false,
		LogicOp:        core1_0.LogicOpCopy,

		BlendConstants: [4]float32{0, 0, 0, 0},
		Attachments: []core1_0.PipelineColorBlendAttachmentState{
			{
				BlendEnabled:   false,
				ColorWriteMask: core1_0.ColorComponentRed | core1_0.ColorComponentGreen | core1_0.ColorComponentBlue | core1_0.ColorComponentAlpha,
			},
		},
	}

	p.pipelineLayout, _, err = p.device.Device().CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{
		SetLayouts: []core1_0.DescriptorSetLayout{
			p.descriptorSetLayout,
		},
	})
	if err != nil {
		return errors.Wrap(err, "pipeline layout")
	}

	pipelines, _, err := p.device.Device().CreateGraphicsPipelines(nil, nil, []core1_0.GraphicsPipelineCreateInfo{
		{
			Stages: []core1_0.PipelineShaderStageCreateInfo{
				vertStage,
				fragStage,
			},
			VertexInputState:   vertexInput,
			InputAssemblyState: inputAssembly,
			ViewportState:      viewport,
			RasterizationState: rasterization,
			MultisampleState:   multisample,
			DepthStencilState:  depthStencil,
			ColorBlendState:    colorBlend,
			Layout:             p.pipelineLayout,
			RenderPass:         p.renderPass,
			Subpass:            0,
			BasePipelineIndex:  -1,
		},
	})
	if err != nil {
		return err
	}
	p.graphicsPipeline = pipelines[0]

	return nil
}

func (p *Pipeline) createColorResources() error {
	var err error
	p.colorImage, p.colorImageMemory, err = p.device.CreateImage(ImageOptions{
		Width:   p.extent.Width,
		Height:  p.extent.Height,
		Samples: p.samples,
		Format:  p.imageFormat,
		Tiling:  core1_0.ImageTilingOptimal,
		Usage:   core1_0.ImageUsageTransientAttachment | core1_0.ImageUsageColorAttachment,
		Memory:  core1_0.MemoryPropertyDeviceLocal,
	})
	if err != nil {
		return err
	}

	p.colorImageView, err = p.device.CreateImageView(p.colorImage, p.imageFormat, core1_0.ImageAspectColor, 1)
	return err
}

func (p *Pipeline) createDepthResources() error {
	var err error
	p.depthImage, p.depthImageMemory, err = p.device.CreateImage(ImageOptions{
		Width:   p.extent.Width,
		Height:  p.extent.Height,
		Samples: p.samples,
		Format:  p.depthFormat,
		Tiling:  core1_0.ImageTilingOptimal,
		Usage:   core1_0.ImageUsageDepthStencilAttachment,
		Memory:  core1_0.MemoryPropertyDeviceLocal,
	})
	if err != nil {
		return err
	}

	p.depthImageView, err = p.device.CreateImageView(p.depthImage, p.depthFormat, core1_0.ImageAspectDepth, 1)
	if err != nil {
		return err
	}

	return p.device.TransitionImageLayout(p.depthImage, p.depthFormat, core1_0.ImageLayoutUndefined, core1_0.ImageLayoutDepthStencilAttachmentOptimal, 1)
}

func (p *Pipeline) createFramebuffers() error {
	for _, imageView := range p.imageViews {
		framebuffer, _, err := p.device.Device().CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
			RenderPass: p.renderPass,
			Layers:     1,
			Attachments: []core1_0.ImageView{
				p.colorImageView,
				p.depthImageView,
				imageView,
			},
			Width:  p.extent.Width,
			Height: p.extent.Height,
		})
		if err != nil {
			return err
		}

		p.framebuffers = append(p.framebuffers, framebuffer)
	}

	return nil
}

func (p *Pipeline) createTexture() error {
	var err error
	p.texture, err = createTexture(p.device, p.pixels)
	return err
}

func (p *Pipeline) createUniformBuffers() error {
	for i := 0; i < p.imageCount; i++ {
		buffer, memory, err := p.device.CreateBuffer(uniformBufferSize, core1_0.BufferUsageUniformBuffer, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
		if err != nil {
			return err
		}

		p.uniformBuffers = append(p.uniformBuffers, buffer)
		p.uniformBuffersMemory = append(p.uniformBuffersMemory, memory)
	}

	return nil
}

func (p *Pipeline) createDescriptorPool() error {
	var err error
	p.descriptorPool, _, err = p.device.Device().CreateDescriptorPool(nil, core1_0.DescriptorPoolCreateInfo{
		MaxSets: p.imageCount + descriptorHeadroom,
		PoolSizes: []core1_0.DescriptorPoolSize{
			{
				Type:            core1_0.DescriptorTypeUniformBuffer,
				DescriptorCount: p.imageCount + descriptorHeadroom,
			},
			{
				Type:            core1_0.DescriptorTypeCombinedImageSampler,
				DescriptorCount: p.imageCount + descriptorHeadroom,
			},
		},
	})
	return err
}

func (p *Pipeline) createDescriptorSets() error {
	var allocLayouts []core1_0.DescriptorSetLayout
	for i := 0; i < p.imageCount; i++ {
		allocLayouts = append(allocLayouts, p.descriptorSetLayout)
	}

	var err error
	p.descriptorSets, _, err = p.device.Device().AllocateDescriptorSets(core1_0.DescriptorSetAllocateInfo{
		DescriptorPool: p.descriptorPool,
		SetLayouts:     allocLayouts,
	})
	if err != nil {
		return err
	}

	for i := 0; i < p.imageCount; i++ {
		err = p.device.Device().UpdateDescriptorSets([]core1_0.WriteDescriptorSet{
			{
				DstSet:          p.descriptorSets[i],
				DstBinding:      0,
				DstArrayElement: 0,

				DescriptorType: core1_0.DescriptorTypeUniformBuffer,

				BufferInfo: []core1_0.DescriptorBufferInfo{
					{
						Buffer: p.uniformBuffers[i],
						Offset: 0,
						Range:  uniformBufferSize,
					},
				},
			},
			{
				DstSet:          p.descriptorSets[i],
				DstBinding:      1,
				DstArrayElement: 0,

				DescriptorType: core1_0.DescriptorTypeCombinedImageSampler,

				ImageInfo: []core1_0.DescriptorImageInfo{
					{
						ImageView:   p.texture.View(),
						Sampler:     p.texture.Sampler(),
						ImageLayout: core1_0.ImageLayoutShaderReadOnlyOptimal,
					},
				},
			},
		}, nil)
		if err != nil {
			return err
		}
	}

	return nil
}

// CreateCommandBuffers records one draw of the whole model per swapchain
// image, replacing any previously recorded buffers.
func (p *Pipeline) CreateCommandBuffers(model *Model) error {
	p.freeCommandBuffers()

	buffers, _, err := p.device.Device().AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        p.device.CommandPool(),
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: p.imageCount,
	})
	if err != nil {
		return errors.Wrap(err, "pipeline: allocate command buffers")
	}
	p.commandBuffers = buffers

	clearColor := p.device.Config().ClearColor
	for bufferIdx, buffer := range buffers {
		_, err = buffer.Begin(core1_0.CommandBufferBeginInfo{})
		if err != nil {
			return errors.Wrapf(err, "pipeline: begin command buffer %d", bufferIdx)
		}

		err = buffer.CmdBeginRenderPass(core1_0.SubpassContentsInline,
			core1_0.RenderPassBeginInfo{
				RenderPass:  p.renderPass,
				Framebuffer: p.framebuffers[bufferIdx],
				RenderArea: core1_0.Rect2D{
					Offset: core1_0.Offset2D{X: 0, Y: 0},
					Extent: p.extent,
				},
				ClearValues: []core1_0.ClearValue{
					core1_0.ClearValueFloat{clearColor[0], clearColor[1], clearColor[2], clearColor[3]},
					core1_0.ClearValueDepthStencil{Depth: 1.0, Stencil: 0},
				},
			})
		if err != nil {
			return errors.Wrapf(err, "pipeline: begin render pass %d", bufferIdx)
		}

		buffer.CmdBindPipeline(core1_0.PipelineBindPointGraphics, p.graphicsPipeline)
		model.Bind(buffer)
		buffer.CmdBindDescriptorSets(core1_0.PipelineBindPointGraphics, p.pipelineLayout, []core1_0.DescriptorSet{
			p.descriptorSets[bufferIdx],
		}, nil)
		buffer.CmdDrawIndexed(model.IndexCount(), 1, 0, 0, 0)
		buffer.CmdEndRenderPass()

		_, err = buffer.End()
		if err != nil {
			return errors.Wrapf(err, "pipeline: end command buffer %d", bufferIdx)
		}
	}

	return nil
}

func (p *Pipeline) CommandBuffer(image int) (core1_0.CommandBuffer, error) {
	if image < 0 || image >= len(p.commandBuffers) {
		return nil, errors.AssertionFailedf("no command buffer for image %d of %d", image, len(p.commandBuffers))
	}
	return p.commandBuffers[image], nil
}

func (p *Pipeline) UpdateUniformBuffer(image int, ubo UniformBufferObject) error {
	if image < 0 || image >= len(p.uniformBuffersMemory) {
		return errors.AssertionFailedf("no uniform buffer for image %d of %d", image, len(p.uniformBuffersMemory))
	}
	return writeData(p.uniformBuffersMemory[image], 0, &ubo)
}

func (p *Pipeline) Extent() core1_0.Extent2D {
	return p.extent
}

func (p *Pipeline) ImageCount() int {
	return p.imageCount
}

func (p *Pipeline) Samples() int {
	return sampleCountValue(p.samples)
}

func (p *Pipeline) freeCommandBuffers() {
	if len(p.commandBuffers) > 0 {
		p.device.Device().FreeCommandBuffers(p.commandBuffers)
		p.commandBuffers = nil
	}
}

// Destroy releases everything Create built, dependents first. It is safe on a
// partially created pipeline.
func (p *Pipeline) Destroy() {
	p.freeCommandBuffers()

	if p.descriptorPool != nil {
		p.descriptorPool.Destroy(nil)
		p.descriptorPool = nil
	}
	p.descriptorSets = nil

	for i := range p.uniformBuffers {
		p.uniformBuffers[i].Destroy(nil)
	}
	p.uniformBuffers = nil

	for i := range p.uniformBuffersMemory {
		p.uniformBuffersMemory[i].Free(nil)
	}
	p.uniformBuffersMemory = nil

	if p.texture != nil {
		p.texture.Destroy()
		p.texture = nil
	}

	for _, framebuffer := range p.framebuffers {
		framebuffer.Destroy(nil)
	}
	p.framebuffers = nil

	if p.depthImageView != nil {
		p.depthImageView.Destroy(nil)
		p.depthImageView = nil
	}

	if p.depthImage != nil {
		p.depthImage.Destroy(nil)
		p.depthImage = nil
	}

	if p.depthImageMemory != nil {
		p.depthImageMemory.Free(nil)
		p.depthImageMemory = nil
	}

	if p.colorImageView != nil {
		p.colorImageView.Destroy(nil)
		p.colorImageView = nil
	}

	if p.colorImage != nil {
		p.colorImage.Destroy(nil)
		p.colorImage = nil
	}

	if p.colorImageMemory != nil {
		p.colorImageMemory.Free(nil)
		p.colorImageMemory = nil
	}

	if p.graphicsPipeline != nil {
		p.graphicsPipeline.Destroy(nil)
		p.graphicsPipeline = nil
	}

	if p.pipelineLayout != nil {
		p.pipelineLayout.Destroy(nil)
		p.pipelineLayout = nil
	}

	if p.renderPass != nil {
		p.renderPass.Destroy(nil)
		p.renderPass = nil
	}

	for _, imageView := range p.imageViews {
		imageView.Destroy(nil)
	}
	p.imageViews = nil

	if p.descriptorSetLayout != nil {
		p.descriptorSetLayout.Destroy(nil)
		p.descriptorSetLayout = nil
	}

	p.imageCount = 0
}

// Free destroys the pipeline and drops its hold on the device.
func (p *Pipeline) Free() {
	if p.device == nil {
		return
	}

	p.Destroy()
	p.device.Release()
	p.device = nil
}
