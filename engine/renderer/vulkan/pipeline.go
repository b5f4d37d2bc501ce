package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// Bindings of descriptor set 0, shared by every shader.
const (
	BINDING_VERTEX_UNIFORMS   = 0
	BINDING_FRAGMENT_UNIFORMS = 1
	BINDING_SAMPLER           = 2
	BINDING_FIRST_IMAGE       = 3
)

/**
 * @brief Holds a Vulkan pipeline, its layout and the description it was
 * built from.
 */
type VulkanPipeline struct {
	/** @brief The internal pipeline handle. */
	Handle vk.Pipeline
	/** @brief The pipeline layout. */
	PipelineLayout vk.PipelineLayout
	/** @brief The layout of descriptor set 0. */
	DescriptorSetLayout vk.DescriptorSetLayout
	Module              vk.ShaderModule
	Desc                metadata.PipelineDesc
}

// firstBufferBinding is the binding of the first storage buffer.
func firstBufferBinding(desc metadata.PipelineDesc) uint32 {
	return uint32(BINDING_FIRST_IMAGE + desc.ImageCount)
}

func descriptorSetLayoutBindings(desc metadata.PipelineDesc) []vk.DescriptorSetLayoutBinding {
	fragment := vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
	var bindings []vk.DescriptorSetLayoutBinding
	if desc.VertexUniformSize > 0 {
		bindings = append(bindings, vk.DescriptorSetLayoutBinding{
			Binding:         BINDING_VERTEX_UNIFORMS,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		})
	}
	if desc.FragmentUniformSize > 0 {
		bindings = append(bindings, vk.DescriptorSetLayoutBinding{
			Binding:         BINDING_FRAGMENT_UNIFORMS,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      fragment,
		})
	}
	if desc.ImageCount > 0 {
		bindings = append(bindings, vk.DescriptorSetLayoutBinding{
			Binding:         BINDING_SAMPLER,
			DescriptorType:  vk.DescriptorTypeSampler,
			DescriptorCount: 1,
			StageFlags:      fragment,
		})
	}
	for i := 0; i < desc.ImageCount; i++ {
		bindings = append(bindings, vk.DescriptorSetLayoutBinding{
			Binding:         uint32(BINDING_FIRST_IMAGE + i),
			DescriptorType:  vk.DescriptorTypeSampledImage,
			DescriptorCount: 1,
			StageFlags:      fragment,
		})
	}
	for i := 0; i < desc.BufferCount; i++ {
		bindings = append(bindings, vk.DescriptorSetLayoutBinding{
			Binding:         firstBufferBinding(desc) + uint32(i),
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			DescriptorCount: 1,
			StageFlags:      fragment,
		})
	}
	return bindings
}

/**
 * @brief Builds the pipeline described by desc. renderpass only needs to be
 * compatible with the passes the pipeline is later used in.
 */
func NewGraphicsPipeline(context *VulkanContext, renderpass *VulkanRenderpass, desc metadata.PipelineDesc) (*VulkanPipeline, error) {
	outPipeline := &VulkanPipeline{Desc: desc}

	module, stages, err := NewShaderModule(context, desc.Shader)
	if err != nil {
		return nil, err
	}
	outPipeline.Module = module

	// Viewport and scissor are dynamic; these only fix the counts.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                vulkanCullMode(desc.CullMode),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
	}

	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   vk.False,
		RasterizationSamples:  vk.SampleCount1Bit,
		MinSampleShading:      1.0,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   vk.False,
		DepthWriteEnable:  vk.False,
		StencilTestEnable: vk.False,
	}
	if desc.DepthFormat != metadata.PixelFormatNone {
		depthStencil.DepthTestEnable = vk.True
		depthStencil.DepthCompareOp = vk.CompareOpLess
	}
	if desc.DepthWrite {
		depthStencil.DepthWriteEnable = vk.True
	}

	// Capture targets hold data, not colors, so nothing blends.
	colorWriteMask := vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit |
		vk.ColorComponentBBit | vk.ColorComponentABit)
	blendAttachments := make([]vk.PipelineColorBlendAttachmentState, len(desc.ColorFormats))
	for i := range blendAttachments {
		blendAttachments[i] = vk.PipelineColorBlendAttachmentState{
			BlendEnable:    vk.False,
			ColorWriteMask: colorWriteMask,
		}
	}
	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: uint32(len(blendAttachments)),
		PAttachments:    blendAttachments,
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}
	if desc.VertexStride > 0 {
		attributes := make([]vk.VertexInputAttributeDescription, len(desc.VertexAttributes))
		for i, a := range desc.VertexAttributes {
			attributes[i] = vk.VertexInputAttributeDescription{
				Location: a.Location,
				Binding:  0,
				Format:   vulkanVertexFormat(a.Format),
				Offset:   a.Offset,
			}
		}
		vertexInputInfo.VertexBindingDescriptionCount = 1
		vertexInputInfo.PVertexBindingDescriptions = []vk.VertexInputBindingDescription{{
			Binding:   0,
			Stride:    desc.VertexStride,
			InputRate: vk.VertexInputRateVertex,
		}}
		vertexInputInfo.VertexAttributeDescriptionCount = uint32(len(attributes))
		vertexInputInfo.PVertexAttributeDescriptions = attributes
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	bindings := descriptorSetLayoutBindings(desc)
	setLayoutCreateInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var setLayout vk.DescriptorSetLayout
	if err := vkCheck(vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &setLayoutCreateInfo, context.Allocator, &setLayout), "vkCreateDescriptorSetLayout"); err != nil {
		outPipeline.Destroy(context)
		return nil, err
	}
	outPipeline.DescriptorSetLayout = setLayout

	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vk.DescriptorSetLayout{setLayout},
	}
	var pipelineLayout vk.PipelineLayout
	if err := vkCheck(vk.CreatePipelineLayout(context.Device.LogicalDevice, &pipelineLayoutCreateInfo, context.Allocator, &pipelineLayout), "vkCreatePipelineLayout"); err != nil {
		outPipeline.Destroy(context)
		return nil, err
	}
	outPipeline.PipelineLayout = pipelineLayout

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              pipelineLayout,
		RenderPass:          renderpass.Handle,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if err := vkCheck(vk.CreateGraphicsPipelines(context.Device.LogicalDevice, vk.NullPipelineCache, 1,
		[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo}, context.Allocator, pipelines), "vkCreateGraphicsPipelines"); err != nil {
		outPipeline.Destroy(context)
		return nil, fmt.Errorf("pipeline `%s`: %w", desc.Label, err)
	}
	outPipeline.Handle = pipelines[0]

	core.LogDebug("graphics pipeline `%s` created", desc.Label)
	return outPipeline, nil
}

func (pipeline *VulkanPipeline) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if pipeline.Handle != nil {
		vk.DestroyPipeline(device, pipeline.Handle, context.Allocator)
		pipeline.Handle = nil
	}
	if pipeline.PipelineLayout != nil {
		vk.DestroyPipelineLayout(device, pipeline.PipelineLayout, context.Allocator)
		pipeline.PipelineLayout = nil
	}
	if pipeline.DescriptorSetLayout != nil {
		vk.DestroyDescriptorSetLayout(device, pipeline.DescriptorSetLayout, context.Allocator)
		pipeline.DescriptorSetLayout = nil
	}
	if pipeline.Module != nil {
		vk.DestroyShaderModule(device, pipeline.Module, context.Allocator)
		pipeline.Module = nil
	}
}

func (pipeline *VulkanPipeline) Bind(commandBuffer *VulkanCommandBuffer) {
	vk.CmdBindPipeline(commandBuffer.Handle, vk.PipelineBindPointGraphics, pipeline.Handle)
}
