package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// recorder is the state of the frame being recorded. It is reset at every
// frame boundary.
type recorder struct {
	frameActive   bool
	commandBuffer *VulkanCommandBuffer
	frame         *VulkanFrameResources
	// The swapchain image was rendered to this frame.
	presented bool

	inPass           bool
	passName         string
	activeRenderpass *VulkanRenderpass

	current          *VulkanPipeline
	bindings         metadata.Bindings
	vertexUniforms   []byte
	fragmentUniforms []byte
}

/**
 * @brief Begins a GPU pass over the given attachments, or over the acquired
 * swapchain image, and sets a viewport covering all of it.
 */
func (d *Device) BeginPass(info metadata.PassBeginInfo) {
	core.Assert(d.frameActive, "pass `%s` began outside a frame", info.Name)
	core.Assert(!d.inPass, "pass `%s` began inside pass `%s`", info.Name, d.passName)

	config, views, clears, width, height, err := d.passTargets(info)
	if err != nil {
		core.LogFatal("pass `%s`: %s", info.Name, err)
		return
	}
	renderpass, err := d.renderpass(config)
	if err != nil {
		core.LogFatal("pass `%s`: %s", info.Name, err)
		return
	}
	framebuffer, err := d.framebuffer(renderpass, width, height, views)
	if err != nil {
		core.LogFatal("pass `%s`: %s", info.Name, err)
		return
	}

	renderpass.RenderpassBegin(d.commandBuffer, framebuffer, clears)
	d.inPass = true
	d.passName = info.Name
	d.activeRenderpass = renderpass
	d.presented = d.presented || info.Swapchain
	d.ApplyViewport(metadata.Viewport{Width: int32(width), Height: int32(height)})
}

func outputAt(outputs []metadata.RenderPassOutputDesc, i int) metadata.RenderPassOutputDesc {
	if i < len(outputs) {
		return outputs[i]
	}
	return metadata.RenderPassOutputDesc{}
}

func depthOutput(out *metadata.RenderPassOutputDesc) metadata.RenderPassOutputDesc {
	if out != nil {
		return *out
	}
	return metadata.RenderPassOutputDesc{Clear: metadata.ClearValue{Depth: 1}}
}

// passTargets resolves the render pass shape, the attachment views and the
// clear values of a pass.
func (d *Device) passTargets(info metadata.PassBeginInfo) (RenderpassConfig, []vk.ImageView, []metadata.ClearValue, uint32, uint32, error) {
	var (
		config RenderpassConfig
		views  []vk.ImageView
		clears []metadata.ClearValue
	)

	if info.Swapchain {
		sc := d.context.Swapchain
		color := outputAt(info.ColorOutputs, 0)
		config.Present = true
		config.Colors = []RenderpassAttachment{{Format: sc.ImageFormat.Format, Load: color.Load, Store: color.Store}}
		views = append(views, sc.Views[d.context.ImageIndex])
		clears = append(clears, color.Clear)
		if info.DepthOutput != nil && sc.DepthAttachment != nil {
			depth := depthOutput(info.DepthOutput)
			config.Depth = &RenderpassAttachment{Format: sc.DepthAttachment.Format, Load: depth.Load, Store: depth.Store}
			views = append(views, sc.DepthAttachment.View)
			clears = append(clears, depth.Clear)
		}
		return config, views, clears, sc.Extent.Width, sc.Extent.Height, nil
	}

	set := info.Attachments
	if set == nil {
		return config, nil, nil, 0, 0, fmt.Errorf("no attachments")
	}
	attachment := func(h metadata.ViewHandle) (vk.ImageView, vk.Format, error) {
		v, ok := d.view(h)
		if !ok {
			return nil, vk.FormatUndefined, fmt.Errorf("%w: view %d", core.ErrInvalidHandle, h)
		}
		img, ok := d.image(v.image)
		if !ok {
			return nil, vk.FormatUndefined, fmt.Errorf("%w: image %d", core.ErrInvalidHandle, v.image)
		}
		format, err := vulkanFormat(img.desc.Format)
		return v.view, format, err
	}

	for i, h := range set.Colors {
		view, format, err := attachment(h)
		if err != nil {
			return config, nil, nil, 0, 0, err
		}
		out := outputAt(info.ColorOutputs, i)
		config.Colors = append(config.Colors, RenderpassAttachment{Format: format, Load: out.Load, Store: out.Store})
		views = append(views, view)
		clears = append(clears, out.Clear)
	}
	if set.Depth.Valid() {
		view, format, err := attachment(set.Depth)
		if err != nil {
			return config, nil, nil, 0, 0, err
		}
		out := depthOutput(info.DepthOutput)
		config.Depth = &RenderpassAttachment{Format: format, Load: out.Load, Store: out.Store}
		views = append(views, view)
		clears = append(clears, out.Clear)
	}
	return config, views, clears, set.Width, set.Height, nil
}

func (d *Device) ApplyPipeline(pipeline metadata.PipelineHandle) {
	d.assertInPass("apply pipeline")
	p, ok := d.pipeline(pipeline)
	core.Assert(ok, "apply of unknown pipeline %d", pipeline)

	p.Bind(d.commandBuffer)
	d.current = p
	d.bindings = metadata.Bindings{}
	d.vertexUniforms = resetBlock(d.vertexUniforms, p.Desc.VertexUniformSize)
	d.fragmentUniforms = resetBlock(d.fragmentUniforms, p.Desc.FragmentUniformSize)
}

func resetBlock(block []byte, size uint32) []byte {
	if uint32(cap(block)) < size {
		return make([]byte, size)
	}
	block = block[:size]
	for i := range block {
		block[i] = 0
	}
	return block
}

// ApplyViewport flips the viewport so clip space is y-up, as the shaders
// expect.
func (d *Device) ApplyViewport(viewport metadata.Viewport) {
	d.assertInPass("apply viewport")
	vp := vk.Viewport{
		X:        float32(viewport.X),
		Y:        float32(viewport.Y + viewport.Height),
		Width:    float32(viewport.Width),
		Height:   -float32(viewport.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: max(viewport.X, 0), Y: max(viewport.Y, 0)},
		Extent: vk.Extent2D{Width: uint32(max(viewport.Width, 0)), Height: uint32(max(viewport.Height, 0))},
	}
	vk.CmdSetViewport(d.commandBuffer.Handle, 0, 1, []vk.Viewport{vp})
	vk.CmdSetScissor(d.commandBuffer.Handle, 0, 1, []vk.Rect2D{scissor})
}

func (d *Device) ApplyBindings(bindings metadata.Bindings) {
	d.assertInPass("apply bindings")
	for _, img := range bindings.Images {
		_, ok := d.image(img)
		core.Assert(ok, "binding of unknown image %d", img)
	}
	d.bindings = bindings

	if bindings.VertexBuffer.Valid() {
		e, ok := d.buffer(bindings.VertexBuffer)
		core.Assert(ok, "binding of unknown vertex buffer %d", bindings.VertexBuffer)
		vk.CmdBindVertexBuffers(d.commandBuffer.Handle, 0, 1, []vk.Buffer{e.buffer.Handle}, []vk.DeviceSize{0})
	}
	if bindings.IndexBuffer.Valid() {
		e, ok := d.buffer(bindings.IndexBuffer)
		core.Assert(ok, "binding of unknown index buffer %d", bindings.IndexBuffer)
		vk.CmdBindIndexBuffer(d.commandBuffer.Handle, e.buffer.Handle, 0, vk.IndexTypeUint32)
	}
}

func (d *Device) ApplyUniforms(stage metadata.ShaderStage, slot int, data []byte) {
	d.assertInPass("apply uniforms")
	core.Assert(d.current != nil, "uniforms applied before a pipeline in pass `%s`", d.passName)

	block := d.vertexUniforms
	if stage == metadata.ShaderStageFragment {
		block = d.fragmentUniforms
	}
	offset := slot * metadata.UNIFORM_SLOT_SIZE
	core.Assert(slot >= 0 && offset+len(data) <= len(block),
		"uniform write of %d bytes at slot %d overflows the %d byte block of `%s`", len(data), slot, len(block), d.current.Desc.Label)
	copy(block[offset:], data)
}

func (d *Device) Draw(baseElement, count, instances int) {
	d.assertInPass("draw")
	core.Assert(d.current != nil, "draw before a pipeline in pass `%s`", d.passName)
	if count <= 0 || instances <= 0 {
		return
	}

	set, err := d.descriptorSet()
	if err != nil {
		core.LogFatal("pass `%s`: %s", d.passName, err)
		return
	}
	cb := d.commandBuffer.Handle
	if set != nil {
		vk.CmdBindDescriptorSets(cb, vk.PipelineBindPointGraphics, d.current.PipelineLayout, 0, 1, []vk.DescriptorSet{set}, 0, nil)
	}
	if d.current.Desc.IndexedDraw {
		vk.CmdDrawIndexed(cb, uint32(count), uint32(instances), uint32(baseElement), 0, 0)
	} else {
		vk.CmdDraw(cb, uint32(count), uint32(instances), uint32(baseElement), 0)
	}
}

// descriptorSet writes the current uniforms and bindings into a fresh set.
// It returns nil when the pipeline binds nothing.
func (d *Device) descriptorSet() (vk.DescriptorSet, error) {
	desc := d.current.Desc
	if desc.VertexUniformSize == 0 && desc.FragmentUniformSize == 0 && desc.ImageCount == 0 && desc.BufferCount == 0 {
		return nil, nil
	}
	set, err := d.frame.AllocateSet(d.context, d.current.DescriptorSetLayout)
	if err != nil {
		return nil, err
	}

	var writes []vk.WriteDescriptorSet
	uniforms := func(binding uint32, block []byte) error {
		buffer, offset, err := d.frame.PushUniforms(d.context, block, d.uniformAlign)
		if err != nil {
			return err
		}
		writes = append(writes, vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      binding,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: buffer,
				Offset: vk.DeviceSize(offset),
				Range:  vk.DeviceSize(len(block)),
			}},
		})
		return nil
	}
	if desc.VertexUniformSize > 0 {
		if err := uniforms(BINDING_VERTEX_UNIFORMS, d.vertexUniforms); err != nil {
			return nil, err
		}
	}
	if desc.FragmentUniformSize > 0 {
		if err := uniforms(BINDING_FRAGMENT_UNIFORMS, d.fragmentUniforms); err != nil {
			return nil, err
		}
	}

	if desc.ImageCount > 0 {
		sampler := d.linearSampler
		for i := 0; i < desc.ImageCount; i++ {
			img := d.boundImage(i)
			if !d.context.Device.LinearFilterable[img.desc.Format] {
				sampler = d.nearestSampler
			}
			writes = append(writes, vk.WriteDescriptorSet{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          set,
				DstBinding:      uint32(BINDING_FIRST_IMAGE + i),
				DescriptorCount: 1,
				DescriptorType:  vk.DescriptorTypeSampledImage,
				PImageInfo: []vk.DescriptorImageInfo{{
					ImageView:   img.image.View,
					ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
				}},
			})
		}
		writes = append(writes, vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      BINDING_SAMPLER,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeSampler,
			PImageInfo:      []vk.DescriptorImageInfo{{Sampler: sampler}},
		})
	}

	for i := 0; i < desc.BufferCount; i++ {
		core.Assert(i < len(d.bindings.Buffers), "pipeline `%s` needs %d buffers, %d bound", desc.Label, desc.BufferCount, len(d.bindings.Buffers))
		e, ok := d.buffer(d.bindings.Buffers[i])
		core.Assert(ok, "binding of unknown buffer %d", d.bindings.Buffers[i])
		writes = append(writes, vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      firstBufferBinding(desc) + uint32(i),
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: e.buffer.Handle,
				Offset: 0,
				Range:  vk.DeviceSize(e.buffer.Size),
			}},
		})
	}

	vk.UpdateDescriptorSets(d.context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
	return set, nil
}

// boundImage returns the image bound at slot i, or the default image when
// the slot is empty.
func (d *Device) boundImage(i int) *imageEntry {
	if i < len(d.bindings.Images) && d.bindings.Images[i].Valid() {
		if e, ok := d.image(d.bindings.Images[i]); ok {
			return e
		}
	}
	e, _ := d.image(d.defaultImage)
	return e
}

func (d *Device) EndPass() {
	d.assertInPass("end pass")
	d.activeRenderpass.RenderpassEnd(d.commandBuffer)
	d.inPass = false
	d.passName = ""
	d.activeRenderpass = nil
	d.current = nil
}

func (d *Device) assertInPass(op string) {
	core.Assert(d.inPass, "%s called outside a pass", op)
}
