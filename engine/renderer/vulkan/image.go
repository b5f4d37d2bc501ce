package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

/**
 * @brief A device-local image. View covers every layer and is what shaders
 * sample: a cube view for cube images, a 2D view otherwise.
 */
type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Width  uint32
	Height uint32
	Layers uint32
	Format vk.Format
	Aspect vk.ImageAspectFlags
	Cube   bool
}

type ImageCreateInfo struct {
	Width  uint32
	Height uint32
	Format vk.Format
	Layers uint32
	Cube   bool
	Usage  vk.ImageUsageFlags
	Aspect vk.ImageAspectFlags
	/** @brief Also create the whole-image view. */
	CreateViews bool
}

func ImageCreate(context *VulkanContext, info ImageCreateInfo) (*VulkanImage, error) {
	if info.Layers == 0 {
		info.Layers = 1
	}
	image := &VulkanImage{
		Width:  info.Width,
		Height: info.Height,
		Layers: info.Layers,
		Format: info.Format,
		Aspect: info.Aspect,
		Cube:   info.Cube,
	}

	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    info.Format,
		Extent: vk.Extent3D{
			Width:  info.Width,
			Height: info.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   info.Layers,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         info.Usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	if info.Cube {
		imageCreateInfo.Flags = vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit)
	}

	var handle vk.Image
	if err := vkCheck(vk.CreateImage(context.Device.LogicalDevice, &imageCreateInfo, context.Allocator, &handle), "vkCreateImage"); err != nil {
		return nil, err
	}
	image.Handle = handle

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(context.Device.LogicalDevice, handle, &requirements)
	requirements.Deref()

	memory, err := context.allocateMemory(requirements, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		image.ImageDestroy(context)
		return nil, fmt.Errorf("failed to allocate image memory: %w", err)
	}
	image.Memory = memory

	if err := vkCheck(vk.BindImageMemory(context.Device.LogicalDevice, handle, memory, 0), "vkBindImageMemory"); err != nil {
		image.ImageDestroy(context)
		return nil, err
	}

	if info.CreateViews {
		viewType := vk.ImageViewType2d
		switch {
		case info.Cube:
			viewType = vk.ImageViewTypeCube
		case info.Layers > 1:
			viewType = vk.ImageViewType2dArray
		}
		view, err := image.createView(context, viewType, samplingAspect(info.Aspect), 0, info.Layers)
		if err != nil {
			image.ImageDestroy(context)
			return nil, err
		}
		image.View = view
	}
	return image, nil
}

// LayerView creates a single-layer 2D view usable as an attachment.
func (image *VulkanImage) LayerView(context *VulkanContext, layer uint32) (vk.ImageView, error) {
	if layer >= image.Layers {
		return nil, fmt.Errorf("layer %d out of range for image with %d layers", layer, image.Layers)
	}
	return image.createView(context, vk.ImageViewType2d, image.Aspect, layer, 1)
}

func (image *VulkanImage) createView(context *VulkanContext, viewType vk.ImageViewType, aspect vk.ImageAspectFlags, baseLayer, layerCount uint32) (vk.ImageView, error) {
	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image.Handle,
		ViewType: viewType,
		Format:   image.Format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: baseLayer,
			LayerCount:     layerCount,
		},
	}
	var view vk.ImageView
	if err := vkCheck(vk.CreateImageView(context.Device.LogicalDevice, &viewCreateInfo, context.Allocator, &view), "vkCreateImageView"); err != nil {
		return nil, err
	}
	return view, nil
}

// samplingAspect drops stencil, since a view sampled by a shader may only
// expose one aspect.
func samplingAspect(aspect vk.ImageAspectFlags) vk.ImageAspectFlags {
	depth := vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	if aspect&depth != 0 {
		return depth
	}
	return aspect
}

/**
 * @brief Records a barrier moving every layer of the image from oldLayout
 * to newLayout.
 */
func (image *VulkanImage) TransitionLayout(commandBuffer *VulkanCommandBuffer, oldLayout, newLayout vk.ImageLayout) error {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image.Handle,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     image.Aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     image.Layers,
		},
	}

	var srcStage, dstStage vk.PipelineStageFlags
	switch {
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutTransferDstOptimal:
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case oldLayout == vk.ImageLayoutTransferDstOptimal && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	default:
		return fmt.Errorf("unsupported layout transition %d -> %d", oldLayout, newLayout)
	}

	vk.CmdPipelineBarrier(commandBuffer.Handle, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	return nil
}

// CopyFromBuffer copies tightly packed layers from buffer into the image.
// The image must be in TRANSFER_DST_OPTIMAL.
func (image *VulkanImage) CopyFromBuffer(commandBuffer *VulkanCommandBuffer, buffer vk.Buffer) {
	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     image.Aspect,
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     image.Layers,
		},
		ImageExtent: vk.Extent3D{
			Width:  image.Width,
			Height: image.Height,
			Depth:  1,
		},
	}
	vk.CmdCopyBufferToImage(commandBuffer.Handle, buffer, image.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
}

func (image *VulkanImage) ImageDestroy(context *VulkanContext) {
	if image.View != nil {
		vk.DestroyImageView(context.Device.LogicalDevice, image.View, context.Allocator)
		image.View = nil
	}
	if image.Memory != nil {
		vk.FreeMemory(context.Device.LogicalDevice, image.Memory, context.Allocator)
		image.Memory = nil
	}
	if image.Handle != nil {
		vk.DestroyImage(context.Device.LogicalDevice, image.Handle, context.Allocator)
		image.Handle = nil
	}
}
