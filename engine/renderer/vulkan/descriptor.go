package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

const (
	DESCRIPTOR_POOL_MAX_SETS = 512
	UNIFORM_CHUNK_SIZE       = 1 << 20
)

/**
 * @brief Transient per-frame state: descriptor sets and uniform data written
 * by draws of one frame. Everything is reset once the frame's fence signals.
 */
type VulkanFrameResources struct {
	descriptorPools []vk.DescriptorPool
	poolIndex       int

	uniformChunks []*VulkanBuffer
	chunkIndex    int
	chunkOffset   uint64
}

func newDescriptorPool(context *VulkanContext) (vk.DescriptorPool, error) {
	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: 2 * DESCRIPTOR_POOL_MAX_SETS},
		{Type: vk.DescriptorTypeSampler, DescriptorCount: DESCRIPTOR_POOL_MAX_SETS},
		{Type: vk.DescriptorTypeSampledImage, DescriptorCount: 8 * DESCRIPTOR_POOL_MAX_SETS},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: 4 * DESCRIPTOR_POOL_MAX_SETS},
	}
	poolCreateInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       DESCRIPTOR_POOL_MAX_SETS,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	var pool vk.DescriptorPool
	if err := vkCheck(vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolCreateInfo, context.Allocator, &pool), "vkCreateDescriptorPool"); err != nil {
		return nil, err
	}
	return pool, nil
}

// Reset recycles every set and uniform range handed out for the frame.
func (f *VulkanFrameResources) Reset(context *VulkanContext) {
	for _, pool := range f.descriptorPools {
		vk.ResetDescriptorPool(context.Device.LogicalDevice, pool, 0)
	}
	f.poolIndex = 0
	f.chunkIndex = 0
	f.chunkOffset = 0
}

// AllocateSet returns a set of the given layout, adding a pool when the
// current ones are exhausted.
func (f *VulkanFrameResources) AllocateSet(context *VulkanContext, layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	for {
		if f.poolIndex == len(f.descriptorPools) {
			pool, err := newDescriptorPool(context)
			if err != nil {
				return nil, err
			}
			f.descriptorPools = append(f.descriptorPools, pool)
			core.LogDebug("descriptor pool %d created", len(f.descriptorPools))
		}

		allocateInfo := vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     f.descriptorPools[f.poolIndex],
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{layout},
		}
		var set vk.DescriptorSet
		result := vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocateInfo, &set)
		switch result {
		case vk.Success:
			return set, nil
		case vk.ErrorOutOfPoolMemory, vk.ErrorFragmentedPool:
			f.poolIndex++
		default:
			return nil, fmt.Errorf("vkAllocateDescriptorSets failed with %s", VulkanResultString(result))
		}
	}
}

// PushUniforms copies data into the frame's uniform memory and returns the
// buffer and offset it landed at.
func (f *VulkanFrameResources) PushUniforms(context *VulkanContext, data []byte, alignment uint64) (vk.Buffer, uint64, error) {
	size := uint64(len(data))
	if size > UNIFORM_CHUNK_SIZE {
		return nil, 0, fmt.Errorf("uniform block of %d bytes exceeds chunk size %d", size, UNIFORM_CHUNK_SIZE)
	}
	offset := alignUp(f.chunkOffset, alignment)
	if f.chunkIndex < len(f.uniformChunks) && offset+size > UNIFORM_CHUNK_SIZE {
		f.chunkIndex++
		offset = 0
	}
	if f.chunkIndex == len(f.uniformChunks) {
		chunk, err := BufferCreate(context, UNIFORM_CHUNK_SIZE, vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit))
		if err != nil {
			return nil, 0, err
		}
		f.uniformChunks = append(f.uniformChunks, chunk)
		offset = 0
	}
	chunk := f.uniformChunks[f.chunkIndex]
	if err := chunk.Write(offset, data); err != nil {
		return nil, 0, err
	}
	f.chunkOffset = offset + size
	return chunk.Handle, offset, nil
}

func (f *VulkanFrameResources) Destroy(context *VulkanContext) {
	for _, pool := range f.descriptorPools {
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, pool, context.Allocator)
	}
	f.descriptorPools = nil
	for _, chunk := range f.uniformChunks {
		chunk.Destroy(context)
	}
	f.uniformChunks = nil
}
