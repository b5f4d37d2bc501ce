package vulkan

import (
	"fmt"
	"math"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/platform"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

// garbage is a destruction deferred until the frame it was queued in has
// finished on the GPU.
type garbage struct {
	frame   uint64
	destroy func()
}

/**
 * @brief The Vulkan implementation of the render device. Every call is made
 * from the frame thread.
 */
type Device struct {
	platform    *platform.Platform
	context     *VulkanContext
	FrameNumber uint64
	validation  bool

	cachedFramebufferWidth  uint32
	cachedFramebufferHeight uint32

	images    *core.IdentifierPool
	views     *core.IdentifierPool
	buffers   *core.IdentifierPool
	pipelines *core.IdentifierPool

	renderpasses map[string]*VulkanRenderpass
	framebuffers []*VulkanFramebuffer
	frames       []*VulkanFrameResources
	garbage      []garbage

	linearSampler  vk.Sampler
	nearestSampler vk.Sampler
	uniformAlign   uint64

	defaultImage     metadata.ImageHandle
	defaultCubeImage metadata.ImageHandle

	recorder
}

func New(p *platform.Platform, validation bool) *Device {
	return &Device{
		platform:     p,
		context:      &VulkanContext{},
		validation:   validation,
		images:       core.NewIdentifierPool(64),
		views:        core.NewIdentifierPool(64),
		buffers:      core.NewIdentifierPool(16),
		pipelines:    core.NewIdentifierPool(8),
		renderpasses: make(map[string]*VulkanRenderpass),
	}
}

func (d *Device) Initialize(appName string, width, height uint32) error {
	procAddr := d.platform.GetInstanceProcAddress()
	if procAddr == nil {
		return fmt.Errorf("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return fmt.Errorf("failed to initialize vk: %w", err)
	}

	d.context.FramebufferWidth = width
	d.context.FramebufferHeight = height

	if err := d.createInstance(appName); err != nil {
		return err
	}

	if d.validation {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := vkCheck(vk.CreateDebugReportCallback(d.context.Instance, &debugCreateInfo, d.context.Allocator, &dbg), "vkCreateDebugReportCallbackEXT"); err != nil {
			return err
		}
		d.context.debugMessenger = dbg
		core.LogDebug("Vulkan debugger created.")
	}

	surface, err := d.platform.CreateWindowSurface(d.context.Instance)
	if err != nil {
		return fmt.Errorf("failed to create window surface: %w", err)
	}
	d.context.Surface = vk.SurfaceFromPointer(surface)
	core.LogDebug("Vulkan surface created.")

	if err := DeviceCreate(d.context); err != nil {
		return fmt.Errorf("failed to create device: %w", err)
	}
	limits := d.context.Device.Properties.Limits
	limits.Deref()
	d.uniformAlign = uint64(limits.MinUniformBufferOffsetAlignment)

	sc, err := SwapchainCreate(d.context, width, height)
	if err != nil {
		return err
	}
	d.context.Swapchain = sc

	if err := d.createFrameObjects(); err != nil {
		return err
	}
	if err := d.createSamplers(); err != nil {
		return err
	}

	d.defaultImage, err = d.CreateImage(metadata.ImageDesc{
		Label: "default", Width: 1, Height: 1, Format: metadata.PixelFormatRGBA8, Layers: 1,
		Pixels: []byte{255, 255, 255, 255},
	})
	if err != nil {
		return err
	}
	d.defaultCubeImage, err = d.CreateImage(metadata.ImageDesc{
		Label: "default_cube", Width: 1, Height: 1, Format: metadata.PixelFormatRGBA8,
		Layers: uint32(metadata.CUBE_FACE_COUNT), Cube: true,
	})
	if err != nil {
		return err
	}

	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

func (d *Device) createInstance(appName string) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Lumen"),
	}
	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := d.platform.GetRequiredExtensionNames()
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	var layers []string
	if d.validation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		available, err := availableLayers()
		if err != nil {
			return err
		}
		if available[validationLayerName] {
			layers = append(layers, validationLayerName)
			core.LogInfo("Validation layers enabled.")
		} else {
			core.LogWarn("Validation layer `%s` is not installed, continuing without it.", validationLayerName)
		}
	}
	for _, ext := range requiredExtensions {
		core.LogDebug("Required extension: %s", ext)
	}

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	var instance vk.Instance
	if err := vkCheck(vk.CreateInstance(&createInfo, d.context.Allocator, &instance), "vkCreateInstance"); err != nil {
		return err
	}
	d.context.Instance = instance
	if err := vk.InitInstance(instance); err != nil {
		return err
	}
	core.LogInfo("Vulkan Instance created.")
	return nil
}

func availableLayers() (map[string]bool, error) {
	var count uint32
	if err := vkCheck(vk.EnumerateInstanceLayerProperties(&count, nil), "vkEnumerateInstanceLayerProperties"); err != nil {
		return nil, err
	}
	properties := make([]vk.LayerProperties, count)
	if err := vkCheck(vk.EnumerateInstanceLayerProperties(&count, properties), "vkEnumerateInstanceLayerProperties"); err != nil {
		return nil, err
	}
	names := make(map[string]bool, count)
	for i := range properties {
		properties[i].Deref()
		names[cString(properties[i].LayerName[:])] = true
	}
	return names, nil
}

// createFrameObjects creates one command buffer, sync object set and
// transient resource set per frame in flight.
func (d *Device) createFrameObjects() error {
	ctx := d.context
	ctx.GraphicsCommandBuffers = make([]*VulkanCommandBuffer, MAX_FRAMES_IN_FLIGHT)
	ctx.ImageAvailableSemaphores = make([]vk.Semaphore, MAX_FRAMES_IN_FLIGHT)
	ctx.QueueCompleteSemaphores = make([]vk.Semaphore, MAX_FRAMES_IN_FLIGHT)
	ctx.InFlightFences = make([]*VulkanFence, MAX_FRAMES_IN_FLIGHT)
	d.frames = make([]*VulkanFrameResources, MAX_FRAMES_IN_FLIGHT)

	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	for i := 0; i < MAX_FRAMES_IN_FLIGHT; i++ {
		cb, err := NewVulkanCommandBuffer(ctx, ctx.Device.GraphicsCommandPool, true)
		if err != nil {
			return err
		}
		ctx.GraphicsCommandBuffers[i] = cb

		if err := vkCheck(vk.CreateSemaphore(ctx.Device.LogicalDevice, &semaphoreCreateInfo, ctx.Allocator, &ctx.ImageAvailableSemaphores[i]), "vkCreateSemaphore"); err != nil {
			return err
		}
		if err := vkCheck(vk.CreateSemaphore(ctx.Device.LogicalDevice, &semaphoreCreateInfo, ctx.Allocator, &ctx.QueueCompleteSemaphores[i]), "vkCreateSemaphore"); err != nil {
			return err
		}

		// Signaled, so the first wait on each slot returns at once.
		fence, err := NewFence(ctx, true)
		if err != nil {
			return err
		}
		ctx.InFlightFences[i] = fence
		d.frames[i] = &VulkanFrameResources{}
	}

	// Fences here are owned by InFlightFences.
	ctx.ImagesInFlight = make([]*VulkanFence, ctx.Swapchain.ImageCount)
	core.LogDebug("Vulkan command buffers and sync objects created.")
	return nil
}

func (d *Device) createSamplers() error {
	create := func(filter vk.Filter) (vk.Sampler, error) {
		samplerCreateInfo := vk.SamplerCreateInfo{
			SType:                   vk.StructureTypeSamplerCreateInfo,
			MagFilter:               filter,
			MinFilter:               filter,
			MipmapMode:              vk.SamplerMipmapModeNearest,
			AddressModeU:            vk.SamplerAddressModeClampToEdge,
			AddressModeV:            vk.SamplerAddressModeClampToEdge,
			AddressModeW:            vk.SamplerAddressModeClampToEdge,
			AnisotropyEnable:        vk.False,
			MaxAnisotropy:           1,
			CompareEnable:           vk.False,
			CompareOp:               vk.CompareOpAlways,
			MinLod:                  0,
			MaxLod:                  0,
			BorderColor:             vk.BorderColorFloatOpaqueBlack,
			UnnormalizedCoordinates: vk.False,
		}
		var sampler vk.Sampler
		err := vkCheck(vk.CreateSampler(d.context.Device.LogicalDevice, &samplerCreateInfo, d.context.Allocator, &sampler), "vkCreateSampler")
		return sampler, err
	}
	var err error
	if d.linearSampler, err = create(vk.FilterLinear); err != nil {
		return err
	}
	d.nearestSampler, err = create(vk.FilterNearest)
	return err
}

func (d *Device) Shutdown() error {
	ctx := d.context
	if ctx.Device == nil || ctx.Device.LogicalDevice == nil {
		return nil
	}
	vk.DeviceWaitIdle(ctx.Device.LogicalDevice)
	device := ctx.Device.LogicalDevice

	if d.defaultImage.Valid() {
		d.DestroyImage(d.defaultImage)
		d.defaultImage = 0
	}
	if d.defaultCubeImage.Valid() {
		d.DestroyImage(d.defaultCubeImage)
		d.defaultCubeImage = 0
	}
	for _, fb := range d.framebuffers {
		fb.Destroy(ctx)
	}
	d.framebuffers = nil
	d.flushGarbage(math.MaxUint64)
	if n := d.images.Live() + d.views.Live() + d.buffers.Live() + d.pipelines.Live(); n > 0 {
		core.LogWarn("Vulkan device shut down with %d live objects", n)
	}
	for key, rp := range d.renderpasses {
		rp.RenderpassDestroy(ctx)
		delete(d.renderpasses, key)
	}

	if d.linearSampler != nil {
		vk.DestroySampler(device, d.linearSampler, ctx.Allocator)
		d.linearSampler = nil
	}
	if d.nearestSampler != nil {
		vk.DestroySampler(device, d.nearestSampler, ctx.Allocator)
		d.nearestSampler = nil
	}

	for i := range d.frames {
		if d.frames[i] != nil {
			d.frames[i].Destroy(ctx)
		}
	}
	d.frames = nil

	for i := range ctx.InFlightFences {
		if ctx.ImageAvailableSemaphores[i] != vk.NullSemaphore {
			vk.DestroySemaphore(device, ctx.ImageAvailableSemaphores[i], ctx.Allocator)
		}
		if ctx.QueueCompleteSemaphores[i] != vk.NullSemaphore {
			vk.DestroySemaphore(device, ctx.QueueCompleteSemaphores[i], ctx.Allocator)
		}
		if ctx.InFlightFences[i] != nil {
			ctx.InFlightFences[i].FenceDestroy(ctx)
		}
	}
	ctx.ImageAvailableSemaphores = nil
	ctx.QueueCompleteSemaphores = nil
	ctx.InFlightFences = nil
	ctx.ImagesInFlight = nil

	for _, cb := range ctx.GraphicsCommandBuffers {
		if cb != nil {
			cb.Free(ctx, ctx.Device.GraphicsCommandPool)
		}
	}
	ctx.GraphicsCommandBuffers = nil

	if ctx.Swapchain != nil {
		ctx.Swapchain.SwapchainDestroy(ctx)
		ctx.Swapchain = nil
	}

	core.LogDebug("Destroying Vulkan device...")
	DeviceDestroy(ctx)

	if ctx.Surface != vk.NullSurface {
		vk.DestroySurface(ctx.Instance, ctx.Surface, ctx.Allocator)
		ctx.Surface = vk.NullSurface
	}
	if ctx.debugMessenger != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(ctx.Instance, ctx.debugMessenger, ctx.Allocator)
		ctx.debugMessenger = vk.NullDebugReportCallback
	}

	core.LogDebug("Destroying Vulkan instance...")
	vk.DestroyInstance(ctx.Instance, ctx.Allocator)
	ctx.Instance = nil
	return nil
}

func (d *Device) Resized(width, height uint32) error {
	// The generation counter tells BeginFrame the swapchain is stale.
	d.cachedFramebufferWidth = width
	d.cachedFramebufferHeight = height
	d.context.FramebufferSizeGeneration++
	core.LogInfo("Vulkan renderer backend->resized: w/h/gen: %d/%d/%d", width, height, d.context.FramebufferSizeGeneration)
	return nil
}

/**
 * @brief Waits for the frame slot to free up, releases what it held and
 * starts recording. Returns core.ErrSwapchainBooting when the frame must be
 * skipped because the swapchain is being rebuilt.
 */
func (d *Device) BeginFrame(deltaTime float64) error {
	ctx := d.context
	core.Assert(!d.frameActive, "frame began inside another frame")

	if ctx.RecreatingSwapchain {
		if err := vkCheck(vk.DeviceWaitIdle(ctx.Device.LogicalDevice), "vkDeviceWaitIdle"); err != nil {
			return err
		}
		core.LogInfo("Recreating swapchain, booting.")
		return core.ErrSwapchainBooting
	}

	if ctx.FramebufferSizeGeneration != ctx.FramebufferSizeLastGeneration {
		if err := d.recreateSwapchain(); err != nil {
			return err
		}
		core.LogInfo("Resized, booting.")
		return core.ErrSwapchainBooting
	}

	if err := ctx.InFlightFences[ctx.CurrentFrame].FenceWait(ctx, math.MaxUint64); err != nil {
		core.LogWarn("In-flight fence wait failure: %s", err)
		return err
	}
	// The slot's previous frame is done, and so is every frame before it.
	if d.FrameNumber >= MAX_FRAMES_IN_FLIGHT {
		d.flushGarbage(d.FrameNumber - MAX_FRAMES_IN_FLIGHT)
	}
	frame := d.frames[ctx.CurrentFrame]
	frame.Reset(ctx)

	imageIndex, ok, err := ctx.Swapchain.SwapchainAcquireNextImageIndex(ctx, math.MaxUint64, ctx.ImageAvailableSemaphores[ctx.CurrentFrame], vk.NullFence)
	if err != nil {
		return err
	}
	if !ok {
		d.markSwapchainStale()
		return core.ErrSwapchainBooting
	}
	ctx.ImageIndex = imageIndex

	commandBuffer := ctx.GraphicsCommandBuffers[ctx.CurrentFrame]
	if err := commandBuffer.Reset(); err != nil {
		return err
	}
	if err := commandBuffer.Begin(true, false, false); err != nil {
		return err
	}

	d.recorder = recorder{
		frameActive:   true,
		commandBuffer: commandBuffer,
		frame:         frame,
	}
	return nil
}

func (d *Device) EndFrame(deltaTime float64) error {
	ctx := d.context
	core.Assert(d.frameActive, "frame ended without a matching begin")
	core.Assert(!d.inPass, "frame ended inside pass `%s`", d.passName)

	// The acquired image must reach PRESENT_SRC even if nothing drew to it.
	if !d.presented {
		d.BeginPass(metadata.PassBeginInfo{Name: "present", Swapchain: true})
		d.EndPass()
	}

	commandBuffer := d.commandBuffer
	d.recorder = recorder{}
	if err := commandBuffer.End(); err != nil {
		return err
	}

	// Make sure the previous frame is not using this image.
	if fence := ctx.ImagesInFlight[ctx.ImageIndex]; fence != nil {
		if err := fence.FenceWait(ctx, math.MaxUint64); err != nil {
			return err
		}
	}
	ctx.ImagesInFlight[ctx.ImageIndex] = ctx.InFlightFences[ctx.CurrentFrame]

	if err := ctx.InFlightFences[ctx.CurrentFrame].FenceReset(ctx); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{commandBuffer.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{ctx.QueueCompleteSemaphores[ctx.CurrentFrame]},
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{ctx.ImageAvailableSemaphores[ctx.CurrentFrame]},
		// Color writes wait until the image is available.
		PWaitDstStageMask: []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
	}
	if err := vkCheck(vk.QueueSubmit(ctx.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, ctx.InFlightFences[ctx.CurrentFrame].Handle), "vkQueueSubmit"); err != nil {
		return err
	}
	commandBuffer.UpdateSubmitted()
	d.FrameNumber++

	ok, err := ctx.Swapchain.SwapchainPresent(ctx, ctx.Device.PresentQueue, ctx.QueueCompleteSemaphores[ctx.CurrentFrame], ctx.ImageIndex)
	if err != nil {
		return err
	}
	if !ok {
		d.markSwapchainStale()
	}
	return nil
}

// markSwapchainStale schedules a rebuild at the current window size.
func (d *Device) markSwapchainStale() {
	w, h := d.platform.FramebufferSize()
	if err := d.Resized(w, h); err != nil {
		core.LogWarn("failed to schedule swapchain rebuild: %s", err)
	}
}

func (d *Device) recreateSwapchain() error {
	ctx := d.context
	if ctx.RecreatingSwapchain {
		core.LogDebug("recreate_swapchain called when already recreating. Booting.")
		return nil
	}
	if d.cachedFramebufferWidth == 0 || d.cachedFramebufferHeight == 0 {
		// Minimized. Keep booting until a real size arrives.
		core.LogDebug("recreate_swapchain called when window is < 1 in a dimension. Booting.")
		return nil
	}
	ctx.RecreatingSwapchain = true
	defer func() { ctx.RecreatingSwapchain = false }()

	if err := vkCheck(vk.DeviceWaitIdle(ctx.Device.LogicalDevice), "vkDeviceWaitIdle"); err != nil {
		return err
	}
	for _, view := range ctx.Swapchain.Views {
		d.destroyFramebuffersUsing(view)
	}
	if ctx.Swapchain.DepthAttachment != nil {
		d.destroyFramebuffersUsing(ctx.Swapchain.DepthAttachment.View)
	}
	d.flushGarbage(math.MaxUint64)
	for i := range ctx.ImagesInFlight {
		ctx.ImagesInFlight[i] = nil
	}

	if err := DeviceQuerySwapchainSupport(ctx.Device.PhysicalDevice, ctx.Surface, ctx.Device.SwapchainSupport); err != nil {
		return err
	}

	sc, err := ctx.Swapchain.SwapchainRecreate(ctx, d.cachedFramebufferWidth, d.cachedFramebufferHeight)
	if err != nil {
		return err
	}
	ctx.Swapchain = sc
	if uint32(len(ctx.ImagesInFlight)) != sc.ImageCount {
		ctx.ImagesInFlight = make([]*VulkanFence, sc.ImageCount)
	}

	ctx.FramebufferWidth = sc.Extent.Width
	ctx.FramebufferHeight = sc.Extent.Height
	ctx.FramebufferSizeLastGeneration = ctx.FramebufferSizeGeneration
	d.cachedFramebufferWidth = 0
	d.cachedFramebufferHeight = 0
	return nil
}

// queueDestroy runs fn once the frame being recorded has completed.
func (d *Device) queueDestroy(fn func()) {
	d.garbage = append(d.garbage, garbage{frame: d.FrameNumber, destroy: fn})
}

// flushGarbage destroys everything queued in frames up to and including
// completed.
func (d *Device) flushGarbage(completed uint64) {
	kept := d.garbage[:0]
	for _, g := range d.garbage {
		if g.frame <= completed {
			g.destroy()
		} else {
			kept = append(kept, g)
		}
	}
	for i := len(kept); i < len(d.garbage); i++ {
		d.garbage[i] = garbage{}
	}
	d.garbage = kept
}

func (d *Device) DefaultImage() metadata.ImageHandle     { return d.defaultImage }
func (d *Device) DefaultCubeImage() metadata.ImageHandle { return d.defaultCubeImage }

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
