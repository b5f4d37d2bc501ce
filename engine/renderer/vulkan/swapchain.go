package vulkan

import (
	"fmt"
	"math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

const MAX_FRAMES_IN_FLIGHT = 2

type VulkanSwapchain struct {
	ImageFormat       vk.SurfaceFormat
	MaxFramesInFlight uint8
	Handle            vk.Swapchain
	ImageCount        uint32
	Images            []vk.Image
	Views             []vk.ImageView
	Extent            vk.Extent2D

	DepthAttachment *VulkanImage
}

type VulkanSwapchainSupportInfo struct {
	Capabilities     vk.SurfaceCapabilities
	FormatCount      uint32
	Formats          []vk.SurfaceFormat
	PresentModeCount uint32
	PresentModes     []vk.PresentMode
}

func SwapchainCreate(context *VulkanContext, width uint32, height uint32) (*VulkanSwapchain, error) {
	return createSwapchain(context, width, height)
}

func (vs *VulkanSwapchain) SwapchainRecreate(context *VulkanContext, width uint32, height uint32) (*VulkanSwapchain, error) {
	vs.destroySwapchain(context)
	return createSwapchain(context, width, height)
}

func (vs *VulkanSwapchain) SwapchainDestroy(context *VulkanContext) {
	vs.destroySwapchain(context)
}

// SwapchainAcquireNextImageIndex returns false when the swapchain is out of
// date and the frame must be skipped.
func (vs *VulkanSwapchain) SwapchainAcquireNextImageIndex(context *VulkanContext, timeoutNS uint64, imageAvailableSemaphore vk.Semaphore, fence vk.Fence) (uint32, bool, error) {
	var imageIndex uint32
	result := vk.AcquireNextImage(context.Device.LogicalDevice, vs.Handle, timeoutNS, imageAvailableSemaphore, fence, &imageIndex)
	switch result {
	case vk.Success, vk.Suboptimal:
		return imageIndex, true, nil
	case vk.ErrorOutOfDate:
		return 0, false, nil
	default:
		return 0, false, fmt.Errorf("failed to acquire swapchain image: %s", VulkanResultString(result))
	}
}

// SwapchainPresent returns false when the swapchain must be recreated.
func (vs *VulkanSwapchain) SwapchainPresent(context *VulkanContext, presentQueue vk.Queue, renderCompleteSemaphore vk.Semaphore, presentImageIndex uint32) (bool, error) {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderCompleteSemaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{presentImageIndex},
	}

	result := vk.QueuePresent(presentQueue, &presentInfo)

	// Increment (and loop) the index.
	context.CurrentFrame = (context.CurrentFrame + 1) % uint32(vs.MaxFramesInFlight)

	switch result {
	case vk.Success:
		return true, nil
	case vk.ErrorOutOfDate, vk.Suboptimal:
		return false, nil
	default:
		return false, fmt.Errorf("failed to present swapchain image: %s", VulkanResultString(result))
	}
}

// Format is the engine pixel format matching the surface format.
func (vs *VulkanSwapchain) Format() metadata.PixelFormat {
	if vs.ImageFormat.Format == vk.FormatR8g8b8a8Unorm {
		return metadata.PixelFormatRGBA8
	}
	return metadata.PixelFormatBGRA8
}

func createSwapchain(context *VulkanContext, width, height uint32) (*VulkanSwapchain, error) {
	support := context.Device.SwapchainSupport
	swapchain := &VulkanSwapchain{
		MaxFramesInFlight: MAX_FRAMES_IN_FLIGHT,
		Extent:            vk.Extent2D{Width: width, Height: height},
	}

	// Choose a swap surface format.
	swapchain.ImageFormat = support.Formats[0]
	for _, format := range support.Formats {
		if format.Format == vk.FormatB8g8r8a8Unorm && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			swapchain.ImageFormat = format
			break
		}
	}

	presentMode := vk.PresentModeFifo
	for _, mode := range support.PresentModes {
		if mode == vk.PresentModeMailbox {
			presentMode = mode
			break
		}
	}

	capabilities := support.Capabilities
	if capabilities.CurrentExtent.Width != math.MaxUint32 {
		swapchain.Extent = capabilities.CurrentExtent
	}
	// Clamp to the value allowed by the GPU.
	swapchain.Extent.Width = clampU32(swapchain.Extent.Width, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width)
	swapchain.Extent.Height = clampU32(swapchain.Extent.Height, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height)

	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && imageCount > capabilities.MaxImageCount {
		imageCount = capabilities.MaxImageCount
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      swapchain.ImageFormat.Format,
		ImageColorSpace:  swapchain.ImageFormat.ColorSpace,
		ImageExtent:      swapchain.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
	}
	if context.Device.GraphicsQueueIndex != context.Device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			uint32(context.Device.GraphicsQueueIndex),
			uint32(context.Device.PresentQueueIndex),
		}
	}

	var handle vk.Swapchain
	if err := vkCheck(vk.CreateSwapchain(context.Device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &handle), "vkCreateSwapchainKHR"); err != nil {
		return nil, err
	}
	swapchain.Handle = handle

	// Start with a zero frame index.
	context.CurrentFrame = 0

	if err := vkCheck(vk.GetSwapchainImages(context.Device.LogicalDevice, handle, &swapchain.ImageCount, nil), "vkGetSwapchainImagesKHR"); err != nil {
		return nil, err
	}
	swapchain.Images = make([]vk.Image, swapchain.ImageCount)
	swapchain.Views = make([]vk.ImageView, swapchain.ImageCount)
	if err := vkCheck(vk.GetSwapchainImages(context.Device.LogicalDevice, handle, &swapchain.ImageCount, swapchain.Images), "vkGetSwapchainImagesKHR"); err != nil {
		return nil, err
	}

	for i := range swapchain.Images {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    swapchain.Images[i],
			ViewType: vk.ImageViewType2d,
			Format:   swapchain.ImageFormat.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		if err := vkCheck(vk.CreateImageView(context.Device.LogicalDevice, &viewInfo, context.Allocator, &swapchain.Views[i]), "vkCreateImageView"); err != nil {
			return nil, err
		}
	}

	if !DeviceDetectDepthFormat(context.Device) {
		context.Device.DepthFormat = vk.FormatUndefined
		return nil, fmt.Errorf("%w: no depth attachment format", core.ErrUnsupportedFormat)
	}
	depthAttachment, err := ImageCreate(context, ImageCreateInfo{
		Width:       swapchain.Extent.Width,
		Height:      swapchain.Extent.Height,
		Format:      context.Device.DepthFormat,
		Layers:      1,
		Usage:       vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		Aspect:      vk.ImageAspectFlags(vk.ImageAspectDepthBit),
		CreateViews: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create swapchain depth attachment: %w", err)
	}
	swapchain.DepthAttachment = depthAttachment

	core.LogInfo("Swapchain created successfully (%dx%d, %d images).", swapchain.Extent.Width, swapchain.Extent.Height, swapchain.ImageCount)
	return swapchain, nil
}

func (vs *VulkanSwapchain) destroySwapchain(context *VulkanContext) {
	vk.DeviceWaitIdle(context.Device.LogicalDevice)
	if vs.DepthAttachment != nil {
		vs.DepthAttachment.ImageDestroy(context)
		vs.DepthAttachment = nil
	}

	// Only destroy the views, not the images, since those are owned by the swapchain and are thus
	// destroyed when it is.
	for _, view := range vs.Views {
		vk.DestroyImageView(context.Device.LogicalDevice, view, context.Allocator)
	}
	vs.Views = nil
	vs.Images = nil

	vk.DestroySwapchain(context.Device.LogicalDevice, vs.Handle, context.Allocator)
	vs.Handle = nil
}
