package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type imageEntry struct {
	image *VulkanImage
	desc  metadata.ImageDesc
}

type viewEntry struct {
	view  vk.ImageView
	image metadata.ImageHandle
	layer int
}

type bufferEntry struct {
	buffer *VulkanBuffer
	desc   metadata.BufferDesc
}

func (d *Device) image(h metadata.ImageHandle) (*imageEntry, bool) {
	e, ok := d.images.Owner(uint32(h)).(*imageEntry)
	return e, ok
}

func (d *Device) view(h metadata.ViewHandle) (*viewEntry, bool) {
	e, ok := d.views.Owner(uint32(h)).(*viewEntry)
	return e, ok
}

func (d *Device) buffer(h metadata.BufferHandle) (*bufferEntry, bool) {
	e, ok := d.buffers.Owner(uint32(h)).(*bufferEntry)
	return e, ok
}

func (d *Device) pipeline(h metadata.PipelineHandle) (*VulkanPipeline, bool) {
	p, ok := d.pipelines.Owner(uint32(h)).(*VulkanPipeline)
	return p, ok
}

func vulkanFormat(format metadata.PixelFormat) (vk.Format, error) {
	f, ok := pixelFormats[format]
	if !ok {
		return vk.FormatUndefined, fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, format)
	}
	return f, nil
}

// colorFormat resolves the format of a color attachment. BGRA8 stands for
// whatever the surface was created with.
func (d *Device) colorFormat(format metadata.PixelFormat) (vk.Format, error) {
	if format == metadata.PixelFormatBGRA8 && d.context.Swapchain != nil {
		return d.context.Swapchain.ImageFormat.Format, nil
	}
	return vulkanFormat(format)
}

/**
 * @brief Creates an image and leaves it in SHADER_READ_ONLY_OPTIMAL, the
 * layout every image rests in between passes. Pixels, when set, are uploaded
 * through a staging buffer.
 */
func (d *Device) CreateImage(desc metadata.ImageDesc) (metadata.ImageHandle, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return 0, fmt.Errorf("image `%s` has zero size", desc.Label)
	}
	if desc.Layers == 0 {
		desc.Layers = 1
	}
	if desc.Cube && desc.Layers != uint32(metadata.CUBE_FACE_COUNT) {
		return 0, fmt.Errorf("cube image `%s` has %d layers", desc.Label, desc.Layers)
	}
	format, err := vulkanFormat(desc.Format)
	if err != nil {
		return 0, fmt.Errorf("image `%s`: %w", desc.Label, err)
	}

	usage := vk.ImageUsageFlags(vk.ImageUsageSampledBit | vk.ImageUsageTransferDstBit)
	if desc.RenderTarget {
		if desc.Format.IsDepth() {
			usage |= vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)
		} else {
			usage |= vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
		}
	}

	image, err := ImageCreate(d.context, ImageCreateInfo{
		Width:       desc.Width,
		Height:      desc.Height,
		Format:      format,
		Layers:      desc.Layers,
		Cube:        desc.Cube,
		Usage:       usage,
		Aspect:      aspectFor(desc.Format),
		CreateViews: true,
	})
	if err != nil {
		return 0, fmt.Errorf("image `%s`: %w", desc.Label, err)
	}

	if err := d.initializeImage(image, desc); err != nil {
		image.ImageDestroy(d.context)
		return 0, fmt.Errorf("image `%s`: %w", desc.Label, err)
	}

	// The pixels are on the GPU now.
	desc.Pixels = nil
	h := metadata.ImageHandle(d.images.Acquire(&imageEntry{image: image, desc: desc}))
	core.LogDebug("image `%s` created (%dx%dx%d %s)", desc.Label, desc.Width, desc.Height, desc.Layers, desc.Format)
	return h, nil
}

func (d *Device) initializeImage(image *VulkanImage, desc metadata.ImageDesc) error {
	var staging *VulkanBuffer
	if len(desc.Pixels) > 0 {
		expected := uint64(desc.Width) * uint64(desc.Height) * uint64(desc.Layers) * uint64(desc.Format.BytesPerPixel())
		if uint64(len(desc.Pixels)) != expected {
			return fmt.Errorf("initial contents are %d bytes, expected %d", len(desc.Pixels), expected)
		}
		var err error
		staging, err = BufferCreate(d.context, expected, vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit))
		if err != nil {
			return err
		}
		defer staging.Destroy(d.context)
		if err := staging.Write(0, desc.Pixels); err != nil {
			return err
		}
	}

	pool := d.context.Device.GraphicsCommandPool
	cb, err := AllocateAndBeginSingleUse(d.context, pool)
	if err != nil {
		return err
	}
	if staging != nil {
		if err := image.TransitionLayout(cb, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
			cb.Free(d.context, pool)
			return err
		}
		image.CopyFromBuffer(cb, staging.Handle)
		err = image.TransitionLayout(cb, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
	} else {
		err = image.TransitionLayout(cb, vk.ImageLayoutUndefined, vk.ImageLayoutShaderReadOnlyOptimal)
	}
	if err != nil {
		cb.Free(d.context, pool)
		return err
	}
	return cb.EndSingleUse(d.context, pool, d.context.Device.GraphicsQueue)
}

func (d *Device) DestroyImage(image metadata.ImageHandle) {
	e, ok := d.image(image)
	if err := d.images.Release(uint32(image)); err != nil || !ok {
		core.LogFatal("destroy image: %v", err)
		return
	}
	d.destroyFramebuffersUsing(e.image.View)
	d.queueDestroy(func() { e.image.ImageDestroy(d.context) })
}

func (d *Device) CreateAttachmentView(image metadata.ImageHandle, layer int) (metadata.ViewHandle, error) {
	e, ok := d.image(image)
	if !ok {
		return 0, fmt.Errorf("%w: image %d", core.ErrInvalidHandle, image)
	}
	if layer < 0 || uint32(layer) >= e.desc.Layers {
		return 0, fmt.Errorf("layer %d out of range for image `%s` with %d layers", layer, e.desc.Label, e.desc.Layers)
	}
	view, err := e.image.LayerView(d.context, uint32(layer))
	if err != nil {
		return 0, err
	}
	return metadata.ViewHandle(d.views.Acquire(&viewEntry{view: view, image: image, layer: layer})), nil
}

func (d *Device) DestroyView(view metadata.ViewHandle) {
	e, ok := d.view(view)
	if err := d.views.Release(uint32(view)); err != nil || !ok {
		core.LogFatal("destroy view: %v", err)
		return
	}
	d.destroyFramebuffersUsing(e.view)
	d.queueDestroy(func() {
		vk.DestroyImageView(d.context.Device.LogicalDevice, e.view, d.context.Allocator)
	})
}

func vulkanBufferUsage(usage metadata.BufferUsage) vk.BufferUsageFlags {
	switch usage {
	case metadata.BufferUsageVertex:
		return vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)
	case metadata.BufferUsageIndex:
		return vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)
	case metadata.BufferUsageUniform:
		return vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)
	default:
		return vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)
	}
}

func (d *Device) CreateBuffer(desc metadata.BufferDesc) (metadata.BufferHandle, error) {
	if uint64(len(desc.Data)) > desc.Size {
		return 0, fmt.Errorf("buffer `%s` initial data (%d bytes) exceeds size %d", desc.Label, len(desc.Data), desc.Size)
	}
	buffer, err := BufferCreate(d.context, desc.Size, vulkanBufferUsage(desc.Usage))
	if err != nil {
		return 0, fmt.Errorf("buffer `%s`: %w", desc.Label, err)
	}
	if err := buffer.Write(0, desc.Data); err != nil {
		buffer.Destroy(d.context)
		return 0, err
	}
	desc.Data = nil
	return metadata.BufferHandle(d.buffers.Acquire(&bufferEntry{buffer: buffer, desc: desc})), nil
}

/**
 * @brief Overwrites the start of the buffer. Waits for queued work first, so
 * draws already recorded in the current frame also see the new contents.
 */
func (d *Device) UpdateBuffer(buffer metadata.BufferHandle, data []byte) error {
	e, ok := d.buffer(buffer)
	if !ok {
		return fmt.Errorf("%w: buffer %d", core.ErrInvalidHandle, buffer)
	}
	if uint64(len(data)) > e.buffer.Size {
		return fmt.Errorf("update of %d bytes exceeds buffer size %d", len(data), e.buffer.Size)
	}
	if err := vkCheck(vk.QueueWaitIdle(d.context.Device.GraphicsQueue), "vkQueueWaitIdle"); err != nil {
		return err
	}
	return e.buffer.Write(0, data)
}

func (d *Device) DestroyBuffer(buffer metadata.BufferHandle) {
	e, ok := d.buffer(buffer)
	if err := d.buffers.Release(uint32(buffer)); err != nil || !ok {
		core.LogFatal("destroy buffer: %v", err)
		return
	}
	d.queueDestroy(func() { e.buffer.Destroy(d.context) })
}

func (d *Device) CreatePipeline(desc metadata.PipelineDesc) (metadata.PipelineHandle, error) {
	if desc.Kind == metadata.PipelineKindUnknown {
		return 0, fmt.Errorf("pipeline `%s` has no kind", desc.Label)
	}
	// Load and store ops do not affect compatibility, only formats do.
	config := RenderpassConfig{}
	for _, f := range desc.ColorFormats {
		format, err := d.colorFormat(f)
		if err != nil {
			return 0, fmt.Errorf("pipeline `%s`: %w", desc.Label, err)
		}
		config.Colors = append(config.Colors, RenderpassAttachment{Format: format})
	}
	if desc.DepthFormat != metadata.PixelFormatNone {
		format, err := vulkanFormat(desc.DepthFormat)
		if err != nil {
			return 0, fmt.Errorf("pipeline `%s`: %w", desc.Label, err)
		}
		config.Depth = &RenderpassAttachment{Format: format}
	}
	renderpass, err := d.renderpass(config)
	if err != nil {
		return 0, err
	}

	pipeline, err := NewGraphicsPipeline(d.context, renderpass, desc)
	if err != nil {
		return 0, err
	}
	return metadata.PipelineHandle(d.pipelines.Acquire(pipeline)), nil
}

func (d *Device) DestroyPipeline(pipeline metadata.PipelineHandle) {
	p, ok := d.pipeline(pipeline)
	if err := d.pipelines.Release(uint32(pipeline)); err != nil || !ok {
		core.LogFatal("destroy pipeline: %v", err)
		return
	}
	d.queueDestroy(func() { p.Destroy(d.context) })
}

// renderpass returns the cached render pass for config, creating it on
// first use.
func (d *Device) renderpass(config RenderpassConfig) (*VulkanRenderpass, error) {
	key := config.Key()
	if rp, ok := d.renderpasses[key]; ok {
		return rp, nil
	}
	rp, err := RenderpassCreate(d.context, config)
	if err != nil {
		return nil, err
	}
	d.renderpasses[key] = rp
	return rp, nil
}

// framebuffer returns the cached framebuffer over attachments, creating it
// on first use.
func (d *Device) framebuffer(renderpass *VulkanRenderpass, width, height uint32, attachments []vk.ImageView) (*VulkanFramebuffer, error) {
	for _, fb := range d.framebuffers {
		if fb.Renderpass == renderpass && fb.Width == width && fb.Height == height && sameViews(fb.Attachments, attachments) {
			return fb, nil
		}
	}
	fb, err := FramebufferCreate(d.context, renderpass, width, height, attachments)
	if err != nil {
		return nil, err
	}
	d.framebuffers = append(d.framebuffers, fb)
	return fb, nil
}

func sameViews(a, b []vk.ImageView) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// destroyFramebuffersUsing drops every cached framebuffer over view. The
// framebuffers are destroyed once in-flight frames are done with them.
func (d *Device) destroyFramebuffersUsing(view vk.ImageView) {
	if view == nil {
		return
	}
	kept := d.framebuffers[:0]
	for _, fb := range d.framebuffers {
		if fb.Uses(view) {
			stale := fb
			d.queueDestroy(func() { stale.Destroy(d.context) })
		} else {
			kept = append(kept, fb)
		}
	}
	for i := len(kept); i < len(d.framebuffers); i++ {
		d.framebuffers[i] = nil
	}
	d.framebuffers = kept
}
