package headless

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type CommandKind int

const (
	CmdCreateImage CommandKind = iota
	CmdDestroyImage
	CmdCreateView
	CmdDestroyView
	CmdCreateBuffer
	CmdUpdateBuffer
	CmdDestroyBuffer
	CmdCreatePipeline
	CmdDestroyPipeline
	CmdBeginPass
	CmdApplyPipeline
	CmdApplyViewport
	CmdApplyBindings
	CmdApplyUniforms
	CmdDraw
	CmdEndPass
)

var commandNames = map[CommandKind]string{
	CmdCreateImage:     "create_image",
	CmdDestroyImage:    "destroy_image",
	CmdCreateView:      "create_view",
	CmdDestroyView:     "destroy_view",
	CmdCreateBuffer:    "create_buffer",
	CmdUpdateBuffer:    "update_buffer",
	CmdDestroyBuffer:   "destroy_buffer",
	CmdCreatePipeline:  "create_pipeline",
	CmdDestroyPipeline: "destroy_pipeline",
	CmdBeginPass:       "begin_pass",
	CmdApplyPipeline:   "apply_pipeline",
	CmdApplyViewport:   "apply_viewport",
	CmdApplyBindings:   "apply_bindings",
	CmdApplyUniforms:   "apply_uniforms",
	CmdDraw:            "draw",
	CmdEndPass:         "end_pass",
}

func (k CommandKind) String() string {
	return commandNames[k]
}

// Command is one recorded device call. Only the fields relevant to Kind are set.
type Command struct {
	Kind      CommandKind
	Image     metadata.ImageHandle
	View      metadata.ViewHandle
	Buffer    metadata.BufferHandle
	Pipeline  metadata.PipelineHandle
	Layer     int
	Pass      metadata.PassBeginInfo
	Viewport  metadata.Viewport
	Bindings  metadata.Bindings
	Stage     metadata.ShaderStage
	Slot      int
	Data      []byte
	Base      int
	Count     int
	Instances int
}

type viewInfo struct {
	image metadata.ImageHandle
	layer int
}

/**
 * @brief A GPU device that allocates nothing and records every call. Used
 * by tests and by the bake demo when no window is available.
 */
type Device struct {
	images    *core.IdentifierPool
	views     *core.IdentifierPool
	buffers   *core.IdentifierPool
	pipelines *core.IdentifierPool

	imageDescs    map[metadata.ImageHandle]metadata.ImageDesc
	viewInfos     map[metadata.ViewHandle]viewInfo
	bufferData    map[metadata.BufferHandle][]byte
	pipelineDescs map[metadata.PipelineHandle]metadata.PipelineDesc

	defaultImage     metadata.ImageHandle
	defaultCubeImage metadata.ImageHandle

	inPass bool
	frames uint64
	width  uint32
	height uint32

	/** @brief Every recorded call, oldest first. */
	Commands []Command
	/** @brief When set, the next CreateImage fails with this error. */
	FailNextImage error
}

func New() *Device {
	return &Device{
		images:        core.NewIdentifierPool(64),
		views:         core.NewIdentifierPool(64),
		buffers:       core.NewIdentifierPool(16),
		pipelines:     core.NewIdentifierPool(8),
		imageDescs:    make(map[metadata.ImageHandle]metadata.ImageDesc),
		viewInfos:     make(map[metadata.ViewHandle]viewInfo),
		bufferData:    make(map[metadata.BufferHandle][]byte),
		pipelineDescs: make(map[metadata.PipelineHandle]metadata.PipelineDesc),
	}
}

func (d *Device) Initialize(appName string, width, height uint32) error {
	d.width = width
	d.height = height

	var err error
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
	core.LogInfo("headless device initialized for `%s` (%dx%d)", appName, width, height)
	return nil
}

func (d *Device) Shutdown() error {
	if d.defaultImage.Valid() {
		d.DestroyImage(d.defaultImage)
		d.defaultImage = 0
	}
	if d.defaultCubeImage.Valid() {
		d.DestroyImage(d.defaultCubeImage)
		d.defaultCubeImage = 0
	}
	if n := d.images.Live() + d.views.Live() + d.buffers.Live() + d.pipelines.Live(); n > 0 {
		core.LogWarn("headless device shut down with %d live objects", n)
	}
	return nil
}

func (d *Device) Resized(width, height uint32) error {
	d.width = width
	d.height = height
	return nil
}

func (d *Device) BeginFrame(deltaTime float64) error {
	core.Assert(!d.inPass, "frame began inside a pass")
	return nil
}

func (d *Device) EndFrame(deltaTime float64) error {
	core.Assert(!d.inPass, "frame ended inside a pass")
	d.frames++
	return nil
}

func (d *Device) record(cmd Command) {
	d.Commands = append(d.Commands, cmd)
}

func (d *Device) CreateImage(desc metadata.ImageDesc) (metadata.ImageHandle, error) {
	if err := d.FailNextImage; err != nil {
		d.FailNextImage = nil
		return 0, err
	}
	if desc.Width == 0 || desc.Height == 0 {
		return 0, fmt.Errorf("image `%s` has zero size", desc.Label)
	}
	if desc.Layers == 0 {
		desc.Layers = 1
	}
	if desc.Cube && desc.Layers != uint32(metadata.CUBE_FACE_COUNT) {
		return 0, fmt.Errorf("cube image `%s` has %d layers", desc.Label, desc.Layers)
	}
	h := metadata.ImageHandle(d.images.Acquire(desc.Label))
	d.imageDescs[h] = desc
	d.record(Command{Kind: CmdCreateImage, Image: h})
	return h, nil
}

func (d *Device) DestroyImage(image metadata.ImageHandle) {
	if err := d.images.Release(uint32(image)); err != nil {
		core.LogFatal("destroy image: %s", err)
	}
	delete(d.imageDescs, image)
	d.record(Command{Kind: CmdDestroyImage, Image: image})
}

func (d *Device) CreateAttachmentView(image metadata.ImageHandle, layer int) (metadata.ViewHandle, error) {
	desc, ok := d.imageDescs[image]
	if !ok {
		return 0, fmt.Errorf("%w: image %d", core.ErrInvalidHandle, image)
	}
	if layer < 0 || uint32(layer) >= desc.Layers {
		return 0, fmt.Errorf("layer %d out of range for image `%s` with %d layers", layer, desc.Label, desc.Layers)
	}
	h := metadata.ViewHandle(d.views.Acquire(image))
	d.viewInfos[h] = viewInfo{image: image, layer: layer}
	d.record(Command{Kind: CmdCreateView, View: h, Image: image, Layer: layer})
	return h, nil
}

func (d *Device) DestroyView(view metadata.ViewHandle) {
	if err := d.views.Release(uint32(view)); err != nil {
		core.LogFatal("destroy view: %s", err)
	}
	delete(d.viewInfos, view)
	d.record(Command{Kind: CmdDestroyView, View: view})
}

func (d *Device) CreateBuffer(desc metadata.BufferDesc) (metadata.BufferHandle, error) {
	if uint64(len(desc.Data)) > desc.Size {
		return 0, fmt.Errorf("buffer `%s` initial data (%d bytes) exceeds size %d", desc.Label, len(desc.Data), desc.Size)
	}
	h := metadata.BufferHandle(d.buffers.Acquire(desc.Label))
	data := make([]byte, desc.Size)
	copy(data, desc.Data)
	d.bufferData[h] = data
	d.record(Command{Kind: CmdCreateBuffer, Buffer: h})
	return h, nil
}

func (d *Device) UpdateBuffer(buffer metadata.BufferHandle, data []byte) error {
	contents, ok := d.bufferData[buffer]
	if !ok {
		return fmt.Errorf("%w: buffer %d", core.ErrInvalidHandle, buffer)
	}
	if len(data) > len(contents) {
		return fmt.Errorf("update of %d bytes exceeds buffer size %d", len(data), len(contents))
	}
	copy(contents, data)
	d.record(Command{Kind: CmdUpdateBuffer, Buffer: buffer, Data: append([]byte(nil), data...)})
	return nil
}

func (d *Device) DestroyBuffer(buffer metadata.BufferHandle) {
	if err := d.buffers.Release(uint32(buffer)); err != nil {
		core.LogFatal("destroy buffer: %s", err)
	}
	delete(d.bufferData, buffer)
	d.record(Command{Kind: CmdDestroyBuffer, Buffer: buffer})
}

func (d *Device) CreatePipeline(desc metadata.PipelineDesc) (metadata.PipelineHandle, error) {
	if desc.Kind == metadata.PipelineKindUnknown {
		return 0, fmt.Errorf("pipeline `%s` has no kind", desc.Label)
	}
	h := metadata.PipelineHandle(d.pipelines.Acquire(desc.Kind))
	d.pipelineDescs[h] = desc
	d.record(Command{Kind: CmdCreatePipeline, Pipeline: h})
	return h, nil
}

func (d *Device) DestroyPipeline(pipeline metadata.PipelineHandle) {
	if err := d.pipelines.Release(uint32(pipeline)); err != nil {
		core.LogFatal("destroy pipeline: %s", err)
	}
	delete(d.pipelineDescs, pipeline)
	d.record(Command{Kind: CmdDestroyPipeline, Pipeline: pipeline})
}

func (d *Device) BeginPass(info metadata.PassBeginInfo) {
	core.Assert(!d.inPass, "pass `%s` began inside another pass", info.Name)
	if !info.Swapchain {
		core.Assert(info.Attachments != nil, "pass `%s` began without attachments", info.Name)
		for _, v := range info.Attachments.Colors {
			_, ok := d.viewInfos[v]
			core.Assert(ok, "pass `%s` uses released color view %d", info.Name, v)
		}
		if info.Attachments.Depth.Valid() {
			_, ok := d.viewInfos[info.Attachments.Depth]
			core.Assert(ok, "pass `%s` uses released depth view %d", info.Name, info.Attachments.Depth)
		}
	}
	d.inPass = true
	d.record(Command{Kind: CmdBeginPass, Pass: info})
}

func (d *Device) ApplyPipeline(pipeline metadata.PipelineHandle) {
	d.assertInPass("apply pipeline")
	_, ok := d.pipelineDescs[pipeline]
	core.Assert(ok, "apply of unknown pipeline %d", pipeline)
	d.record(Command{Kind: CmdApplyPipeline, Pipeline: pipeline})
}

func (d *Device) ApplyViewport(viewport metadata.Viewport) {
	d.assertInPass("apply viewport")
	d.record(Command{Kind: CmdApplyViewport, Viewport: viewport})
}

func (d *Device) ApplyBindings(bindings metadata.Bindings) {
	d.assertInPass("apply bindings")
	for _, img := range bindings.Images {
		_, ok := d.imageDescs[img]
		core.Assert(ok, "binding of unknown image %d", img)
	}
	d.record(Command{Kind: CmdApplyBindings, Bindings: bindings})
}

func (d *Device) ApplyUniforms(stage metadata.ShaderStage, slot int, data []byte) {
	d.assertInPass("apply uniforms")
	d.record(Command{Kind: CmdApplyUniforms, Stage: stage, Slot: slot, Data: append([]byte(nil), data...)})
}

func (d *Device) Draw(baseElement, count, instances int) {
	d.assertInPass("draw")
	d.record(Command{Kind: CmdDraw, Base: baseElement, Count: count, Instances: instances})
}

func (d *Device) EndPass() {
	d.assertInPass("end pass")
	d.inPass = false
	d.record(Command{Kind: CmdEndPass})
}

func (d *Device) assertInPass(op string) {
	core.Assert(d.inPass, "%s called outside a pass", op)
}

func (d *Device) DefaultImage() metadata.ImageHandle     { return d.defaultImage }
func (d *Device) DefaultCubeImage() metadata.ImageHandle { return d.defaultCubeImage }
