package vulkan

import (
	"fmt"
	"runtime"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

const portabilitySubsetExtension = "VK_KHR_portability_subset"

type VulkanDevice struct {
	PhysicalDevice     vk.PhysicalDevice
	LogicalDevice      vk.Device
	SwapchainSupport   *VulkanSwapchainSupportInfo
	GraphicsQueueIndex int32
	PresentQueueIndex  int32
	TransferQueueIndex int32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue
	TransferQueue vk.Queue

	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties

	DepthFormat vk.Format
	/** @brief Formats that can be sampled with a linear filter. */
	LinearFilterable map[metadata.PixelFormat]bool
}

type VulkanPhysicalDeviceRequirements struct {
	Graphics             bool
	Present              bool
	Transfer             bool
	DeviceExtensionNames []string
	SamplerAnisotropy    bool
	DiscreteGPU          bool
	/** @brief Formats every capture pass renders into. */
	ColorAttachmentFormats []vk.Format
}

type VulkanPhysicalDeviceQueueFamilyInfo struct {
	GraphicsFamilyIndex int32
	PresentFamilyIndex  int32
	ComputeFamilyIndex  int32
	TransferFamilyIndex int32
}

func DeviceCreate(context *VulkanContext) error {
	if err := SelectPhysicalDevice(context); err != nil {
		return err
	}

	core.LogInfo("Creating logical device...")

	// NOTE: Do not create additional queues for shared indices.
	indices := []uint32{uint32(context.Device.GraphicsQueueIndex)}
	if context.Device.PresentQueueIndex != context.Device.GraphicsQueueIndex {
		indices = append(indices, uint32(context.Device.PresentQueueIndex))
	}
	if context.Device.TransferQueueIndex != context.Device.GraphicsQueueIndex &&
		context.Device.TransferQueueIndex != context.Device.PresentQueueIndex {
		indices = append(indices, uint32(context.Device.TransferQueueIndex))
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i, index := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: index,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	deviceFeatures := vk.PhysicalDeviceFeatures{
		SamplerAnisotropy: context.Device.Features.SamplerAnisotropy,
	}

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	available, err := deviceExtensionNames(context.Device.PhysicalDevice)
	if err != nil {
		return err
	}
	if available[portabilitySubsetExtension] {
		core.LogInfo("Adding required extension '%s'.", portabilitySubsetExtension)
		extensionNames = append(extensionNames, portabilitySubsetExtension)
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	var logical vk.Device
	if err := vkCheck(vk.CreateDevice(context.Device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &logical), "vkCreateDevice"); err != nil {
		return err
	}
	context.Device.LogicalDevice = logical
	core.LogInfo("Logical device created.")

	vk.GetDeviceQueue(logical, uint32(context.Device.GraphicsQueueIndex), 0, &context.Device.GraphicsQueue)
	vk.GetDeviceQueue(logical, uint32(context.Device.PresentQueueIndex), 0, &context.Device.PresentQueue)
	vk.GetDeviceQueue(logical, uint32(context.Device.TransferQueueIndex), 0, &context.Device.TransferQueue)
	core.LogInfo("Queues obtained.")

	// Create command pool for graphics queue.
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(context.Device.GraphicsQueueIndex),
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if err := vkCheck(vk.CreateCommandPool(logical, &poolCreateInfo, context.Allocator, &pool), "vkCreateCommandPool"); err != nil {
		return err
	}
	context.Device.GraphicsCommandPool = pool
	core.LogInfo("Graphics command pool created.")

	context.Device.LinearFilterable = make(map[metadata.PixelFormat]bool, len(pixelFormats))
	for pf, f := range pixelFormats {
		var properties vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(context.Device.PhysicalDevice, f, &properties)
		properties.Deref()
		linear := vk.FormatFeatureFlags(vk.FormatFeatureSampledImageFilterLinearBit)
		context.Device.LinearFilterable[pf] = properties.OptimalTilingFeatures&linear == linear
	}
	return nil
}

func DeviceDestroy(context *VulkanContext) {
	// Unset queues
	context.Device.GraphicsQueue = nil
	context.Device.PresentQueue = nil
	context.Device.TransferQueue = nil

	core.LogInfo("Destroying command pools...")
	if context.Device.GraphicsCommandPool != nil {
		vk.DestroyCommandPool(context.Device.LogicalDevice, context.Device.GraphicsCommandPool, context.Allocator)
		context.Device.GraphicsCommandPool = nil
	}

	core.LogInfo("Destroying logical device...")
	if context.Device.LogicalDevice != nil {
		vk.DestroyDevice(context.Device.LogicalDevice, context.Allocator)
		context.Device.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	context.Device.PhysicalDevice = nil
	context.Device.SwapchainSupport = &VulkanSwapchainSupportInfo{}
	context.Device.GraphicsQueueIndex = -1
	context.Device.PresentQueueIndex = -1
	context.Device.TransferQueueIndex = -1
}

func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface, supportInfo *VulkanSwapchainSupportInfo) error {
	if err := vkCheck(vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &supportInfo.Capabilities), "vkGetPhysicalDeviceSurfaceCapabilitiesKHR"); err != nil {
		return err
	}
	supportInfo.Capabilities.Deref()
	supportInfo.Capabilities.CurrentExtent.Deref()
	supportInfo.Capabilities.MinImageExtent.Deref()
	supportInfo.Capabilities.MaxImageExtent.Deref()

	// Surface formats
	if err := vkCheck(vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &supportInfo.FormatCount, nil), "vkGetPhysicalDeviceSurfaceFormatsKHR"); err != nil {
		return err
	}
	supportInfo.Formats = make([]vk.SurfaceFormat, supportInfo.FormatCount)
	if supportInfo.FormatCount != 0 {
		if err := vkCheck(vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &supportInfo.FormatCount, supportInfo.Formats), "vkGetPhysicalDeviceSurfaceFormatsKHR"); err != nil {
			return err
		}
		for i := range supportInfo.Formats {
			supportInfo.Formats[i].Deref()
		}
	}

	// Present modes
	if err := vkCheck(vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &supportInfo.PresentModeCount, nil), "vkGetPhysicalDeviceSurfacePresentModesKHR"); err != nil {
		return err
	}
	supportInfo.PresentModes = make([]vk.PresentMode, supportInfo.PresentModeCount)
	if supportInfo.PresentModeCount != 0 {
		if err := vkCheck(vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &supportInfo.PresentModeCount, supportInfo.PresentModes), "vkGetPhysicalDeviceSurfacePresentModesKHR"); err != nil {
			return err
		}
	}
	return nil
}

func DeviceDetectDepthFormat(device *VulkanDevice) bool {
	candidates := []vk.Format{
		vk.FormatD32Sfloat,
		vk.FormatD32SfloatS8Uint,
		vk.FormatD24UnormS8Uint,
	}
	flags := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	for _, candidate := range candidates {
		var properties vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(device.PhysicalDevice, candidate, &properties)
		properties.Deref()
		if properties.LinearTilingFeatures&flags == flags || properties.OptimalTilingFeatures&flags == flags {
			device.DepthFormat = candidate
			return true
		}
	}
	return false
}

func SelectPhysicalDevice(context *VulkanContext) error {
	var physicalDeviceCount uint32
	if err := vkCheck(vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil), "vkEnumeratePhysicalDevices"); err != nil {
		return err
	}
	if physicalDeviceCount == 0 {
		return fmt.Errorf("%w: no devices which support Vulkan were found", core.ErrNoSuitableDevice)
	}
	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if err := vkCheck(vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices), "vkEnumeratePhysicalDevices"); err != nil {
		return err
	}

	requirements := VulkanPhysicalDeviceRequirements{
		Graphics:             true,
		Present:              true,
		Transfer:             true,
		DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
		// Probe baking runs on integrated GPUs as well.
		DiscreteGPU: false,
		ColorAttachmentFormats: []vk.Format{
			vk.FormatR32g32b32a32Sfloat,
			vk.FormatR16g16b16a16Sfloat,
			vk.FormatR32Sfloat,
		},
	}

	for _, candidate := range physicalDevices {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(candidate, &properties)
		properties.Deref()
		properties.Limits.Deref()

		var features vk.PhysicalDeviceFeatures
		vk.GetPhysicalDeviceFeatures(candidate, &features)
		features.Deref()

		var memory vk.PhysicalDeviceMemoryProperties
		vk.GetPhysicalDeviceMemoryProperties(candidate, &memory)
		memory.Deref()

		support := &VulkanSwapchainSupportInfo{}
		queueInfo, ok := PhysicalDeviceMeetsRequirements(candidate, context.Surface, &properties, &features, &requirements, support)
		if !ok {
			continue
		}

		core.LogInfo("Selected device: '%s' (%s).", cString(properties.DeviceName[:]), deviceTypeName(properties.DeviceType))
		core.LogInfo("GPU Driver version: %d.%d.%d",
			vk.Version(properties.DriverVersion).Major(),
			vk.Version(properties.DriverVersion).Minor(),
			vk.Version(properties.DriverVersion).Patch())
		core.LogInfo("Vulkan API version: %d.%d.%d",
			vk.Version(properties.ApiVersion).Major(),
			vk.Version(properties.ApiVersion).Minor(),
			vk.Version(properties.ApiVersion).Patch())
		for j := 0; j < int(memory.MemoryHeapCount); j++ {
			memory.MemoryHeaps[j].Deref()
			memorySizeGib := float64(memory.MemoryHeaps[j].Size) / 1024.0 / 1024.0 / 1024.0
			if memory.MemoryHeaps[j].Flags&vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit) != 0 {
				core.LogInfo("Local GPU memory: %.2f GiB", memorySizeGib)
			} else {
				core.LogInfo("Shared System memory: %.2f GiB", memorySizeGib)
			}
		}

		context.Device.PhysicalDevice = candidate
		context.Device.GraphicsQueueIndex = queueInfo.GraphicsFamilyIndex
		context.Device.PresentQueueIndex = queueInfo.PresentFamilyIndex
		context.Device.TransferQueueIndex = queueInfo.TransferFamilyIndex
		context.Device.SwapchainSupport = support
		context.Device.Properties = properties
		context.Device.Features = features
		context.Device.Memory = memory
		core.LogInfo("Physical device selected.")
		return nil
	}

	return fmt.Errorf("%w: no physical devices were found which meet the requirements", core.ErrNoSuitableDevice)
}

func deviceTypeName(t vk.PhysicalDeviceType) string {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "integrated"
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "discrete"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "virtual"
	case vk.PhysicalDeviceTypeCpu:
		return "cpu"
	default:
		return "unknown"
	}
}

func deviceExtensionNames(device vk.PhysicalDevice) (map[string]bool, error) {
	var count uint32
	if err := vkCheck(vk.EnumerateDeviceExtensionProperties(device, "", &count, nil), "vkEnumerateDeviceExtensionProperties"); err != nil {
		return nil, err
	}
	names := make(map[string]bool, count)
	if count == 0 {
		return names, nil
	}
	properties := make([]vk.ExtensionProperties, count)
	if err := vkCheck(vk.EnumerateDeviceExtensionProperties(device, "", &count, properties), "vkEnumerateDeviceExtensionProperties"); err != nil {
		return nil, err
	}
	for i := range properties {
		properties[i].Deref()
		names[cString(properties[i].ExtensionName[:])] = true
	}
	return names, nil
}

func PhysicalDeviceMeetsRequirements(
	device vk.PhysicalDevice,
	surface vk.Surface,
	properties *vk.PhysicalDeviceProperties,
	features *vk.PhysicalDeviceFeatures,
	requirements *VulkanPhysicalDeviceRequirements,
	outSwapchainSupport *VulkanSwapchainSupportInfo,
) (VulkanPhysicalDeviceQueueFamilyInfo, bool) {
	queueInfo := VulkanPhysicalDeviceQueueFamilyInfo{
		GraphicsFamilyIndex: -1,
		PresentFamilyIndex:  -1,
		ComputeFamilyIndex:  -1,
		TransferFamilyIndex: -1,
	}
	name := cString(properties.DeviceName[:])

	if requirements.DiscreteGPU && properties.DeviceType != vk.PhysicalDeviceTypeDiscreteGpu {
		core.LogInfo("Device '%s' is not a discrete GPU, and one is required. Skipping.", name)
		return queueInfo, false
	}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	minTransferScore := 255
	for i := range queueFamilies {
		queueFamilies[i].Deref()
		flags := queueFamilies[i].QueueFlags
		currentTransferScore := 0

		if flags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			if queueInfo.GraphicsFamilyIndex < 0 {
				queueInfo.GraphicsFamilyIndex = int32(i)
			}
			currentTransferScore++
		}
		if flags&vk.QueueFlags(vk.QueueComputeBit) != 0 {
			if queueInfo.ComputeFamilyIndex < 0 {
				queueInfo.ComputeFamilyIndex = int32(i)
			}
			currentTransferScore++
		}
		// Prefer the family doing the least besides transfer.
		if flags&vk.QueueFlags(vk.QueueTransferBit) != 0 && currentTransferScore <= minTransferScore {
			minTransferScore = currentTransferScore
			queueInfo.TransferFamilyIndex = int32(i)
		}

		var supportsPresent vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &supportsPresent); res != vk.Success {
			return queueInfo, false
		}
		if supportsPresent == vk.True && queueInfo.PresentFamilyIndex < 0 {
			queueInfo.PresentFamilyIndex = int32(i)
		}
	}

	core.LogDebug("Graphics | Present | Compute | Transfer | Name")
	core.LogDebug("%8d | %7d | %7d | %8d | %s",
		queueInfo.GraphicsFamilyIndex,
		queueInfo.PresentFamilyIndex,
		queueInfo.ComputeFamilyIndex,
		queueInfo.TransferFamilyIndex,
		name)

	if (requirements.Graphics && queueInfo.GraphicsFamilyIndex < 0) ||
		(requirements.Present && queueInfo.PresentFamilyIndex < 0) ||
		(requirements.Transfer && queueInfo.TransferFamilyIndex < 0) {
		core.LogInfo("Device '%s' does not meet queue requirements. Skipping.", name)
		return queueInfo, false
	}

	if err := DeviceQuerySwapchainSupport(device, surface, outSwapchainSupport); err != nil {
		core.LogWarn("Device '%s' swapchain query failed: %s", name, err)
		return queueInfo, false
	}
	if outSwapchainSupport.FormatCount < 1 || outSwapchainSupport.PresentModeCount < 1 {
		core.LogInfo("Required swapchain support not present, skipping device.")
		return queueInfo, false
	}

	available, err := deviceExtensionNames(device)
	if err != nil {
		return queueInfo, false
	}
	for _, required := range requirements.DeviceExtensionNames {
		if !available[required] {
			core.LogInfo("Required extension not found: '%s', skipping device.", required)
			return queueInfo, false
		}
	}

	if requirements.SamplerAnisotropy && features.SamplerAnisotropy == vk.False {
		core.LogInfo("Device does not support samplerAnisotropy, skipping.")
		return queueInfo, false
	}

	attachment := vk.FormatFeatureFlags(vk.FormatFeatureColorAttachmentBit | vk.FormatFeatureSampledImageBit)
	for _, format := range requirements.ColorAttachmentFormats {
		var fp vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(device, format, &fp)
		fp.Deref()
		if fp.OptimalTilingFeatures&attachment != attachment {
			core.LogInfo("Device cannot render to and sample format %d, skipping.", format)
			return queueInfo, false
		}
	}

	// Device meets all requirements.
	return queueInfo, true
}

// On macOS the loader only lists portability drivers when asked to.
func portabilityEnumeration() bool {
	return runtime.GOOS == "darwin"
}
