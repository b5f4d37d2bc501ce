package renderer

import (
	"errors"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type RendererType uint8

const (
	Headless RendererType = iota
	Vulkan
)

/**
 * @brief The frame-level front end: owns the device and the pipeline cache
 * and brackets every frame.
 */
type Renderer struct {
	device Device
	cache  *PipelineCache
	width  uint32
	height uint32
}

func New(device Device) *Renderer {
	return &Renderer{
		device: device,
		cache:  NewPipelineCache(device),
	}
}

// Initialize brings up the device and builds every pipeline up front.
func (r *Renderer) Initialize(appName string, width, height uint32, pipelines []metadata.PipelineDesc) error {
	if err := r.device.Initialize(appName, width, height); err != nil {
		core.LogError("%s", err)
		return err
	}
	if err := r.cache.Initialize(pipelines); err != nil {
		core.LogError("%s", err)
		return err
	}
	r.width = width
	r.height = height
	return nil
}

func (r *Renderer) Shutdown() error {
	r.cache.Destroy()
	return r.device.Shutdown()
}

func (r *Renderer) OnResize(width, height uint32) error {
	r.width = width
	r.height = height
	return r.device.Resized(width, height)
}

// DrawFrame brackets drawFn with the device's frame begin and end. Frames
// that begin while the swapchain is being recreated are skipped.
func (r *Renderer) DrawFrame(deltaTime float64, drawFn func()) error {
	if err := r.device.BeginFrame(deltaTime); err != nil {
		if errors.Is(err, core.ErrSwapchainBooting) {
			return nil
		}
		core.LogError("%s", err)
		return err
	}
	drawFn()
	if err := r.device.EndFrame(deltaTime); err != nil {
		core.LogError("RendererEndFrame failed. Application shutting down...")
		return err
	}
	return nil
}

func (r *Renderer) Device() Device                 { return r.device }
func (r *Renderer) Pipelines() *PipelineCache      { return r.cache }
func (r *Renderer) FramebufferSize() (w, h uint32) { return r.width, r.height }
