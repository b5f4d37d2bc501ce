package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/renderer/shaders"
)

/**
 * @brief Compiles the named embedded shader and returns its vertex and
 * fragment stages. Both stages share one module.
 */
func NewShaderModule(context *VulkanContext, name string) (vk.ShaderModule, []vk.PipelineShaderStageCreateInfo, error) {
	code, err := shaders.Compile(name)
	if err != nil {
		return nil, nil, err
	}

	createInfo := shaderModuleCreateInfo(code)
	var module vk.ShaderModule
	if err := vkCheck(vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &module), "vkCreateShaderModule"); err != nil {
		return nil, nil, err
	}

	stage := func(flag vk.ShaderStageFlagBits, entry string) vk.PipelineShaderStageCreateInfo {
		return vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  flag,
			Module: module,
			PName:  VulkanSafeString(entry),
		}
	}
	return module, []vk.PipelineShaderStageCreateInfo{
		stage(vk.ShaderStageVertexBit, shaders.VERTEX_ENTRY_POINT),
		stage(vk.ShaderStageFragmentBit, shaders.FRAGMENT_ENTRY_POINT),
	}, nil
}

// CodeSize is in bytes; code holds SPIR-V words.
func shaderModuleCreateInfo(code []uint32) vk.ShaderModuleCreateInfo {
	return vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code) * 4),
		PCode:    code,
	}
}
