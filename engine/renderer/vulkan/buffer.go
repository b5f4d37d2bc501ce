package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

/**
 * @brief A host-visible, host-coherent buffer that stays mapped for its
 * whole life.
 */
type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   uint64
	Usage  vk.BufferUsageFlags
	mapped []byte
}

func BufferCreate(context *VulkanContext, size uint64, usage vk.BufferUsageFlags) (*VulkanBuffer, error) {
	if size == 0 {
		return nil, fmt.Errorf("cannot create an empty buffer")
	}
	buffer := &VulkanBuffer{Size: size, Usage: usage}

	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var handle vk.Buffer
	if err := vkCheck(vk.CreateBuffer(context.Device.LogicalDevice, &bufferCreateInfo, context.Allocator, &handle), "vkCreateBuffer"); err != nil {
		return nil, err
	}
	buffer.Handle = handle

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, handle, &requirements)
	requirements.Deref()

	memory, err := context.allocateMemory(requirements,
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		buffer.Destroy(context)
		return nil, fmt.Errorf("failed to allocate buffer memory: %w", err)
	}
	buffer.Memory = memory

	if err := vkCheck(vk.BindBufferMemory(context.Device.LogicalDevice, handle, memory, 0), "vkBindBufferMemory"); err != nil {
		buffer.Destroy(context)
		return nil, err
	}

	var data unsafe.Pointer
	if err := vkCheck(vk.MapMemory(context.Device.LogicalDevice, memory, 0, vk.DeviceSize(size), 0, &data), "vkMapMemory"); err != nil {
		buffer.Destroy(context)
		return nil, err
	}
	buffer.mapped = unsafe.Slice((*byte)(data), size)
	return buffer, nil
}

// Write copies data to offset. The caller guarantees no queued work still
// reads that range.
func (b *VulkanBuffer) Write(offset uint64, data []byte) error {
	if offset+uint64(len(data)) > b.Size {
		return fmt.Errorf("write of %d bytes at %d exceeds buffer size %d", len(data), offset, b.Size)
	}
	copy(b.mapped[offset:], data)
	return nil
}

func (b *VulkanBuffer) Destroy(context *VulkanContext) {
	if b.mapped != nil {
		vk.UnmapMemory(context.Device.LogicalDevice, b.Memory)
		b.mapped = nil
	}
	if b.Memory != nil {
		vk.FreeMemory(context.Device.LogicalDevice, b.Memory, context.Allocator)
		b.Memory = nil
	}
	if b.Handle != nil {
		vk.DestroyBuffer(context.Device.LogicalDevice, b.Handle, context.Allocator)
		b.Handle = nil
	}
}
