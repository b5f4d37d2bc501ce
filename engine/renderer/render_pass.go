package renderer

import (
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

/**
 * @brief A render pass bound to its target pool and optional pipeline.
 * Execute runs every sub-pass of the topology in index order.
 */
type RenderPass struct {
	device   Device
	desc     metadata.RenderPassDesc
	pool     *RenderTargetPool
	pipeline metadata.PipelineHandle
}

func NewRenderPass(device Device, cache *PipelineCache, desc metadata.RenderPassDesc) *RenderPass {
	rp := &RenderPass{
		device: device,
		desc:   desc,
		pool:   NewRenderTargetPool(device, desc),
	}
	if desc.Pipeline != nil {
		rp.pipeline = cache.Get(desc.Pipeline.Kind)
	}
	return rp
}

/**
 * @brief Recreates the pool at the given size. Must be called before the
 * first Execute and only between frames.
 */
func (rp *RenderPass) Resize(width, height uint32) error {
	if err := rp.pool.Resize(width, height); err != nil {
		return err
	}
	core.LogDebug("render pass `%s` (%s) resized to %dx%d", rp.desc.Name, rp.desc.Topology, width, height)
	return nil
}

/**
 * @brief Begins one GPU pass per sub-pass, applies the pipeline if there is
 * one and hands the sub-pass index to drawFn.
 */
func (rp *RenderPass) Execute(drawFn func(subpass int)) {
	core.Assert(rp.pool.Ready(), "render pass `%s` executed before resize", rp.desc.Name)

	topology := rp.desc.Topology
	sets := rp.pool.AttachmentSets()
	for i := 0; i < topology.SubpassCount(); i++ {
		info := metadata.PassBeginInfo{
			Name:         rp.desc.Name,
			Subpass:      i,
			Swapchain:    topology.Presents(),
			ColorOutputs: rp.desc.ColorOutputs,
			DepthOutput:  rp.desc.DepthOutput,
		}
		if !info.Swapchain {
			info.Attachments = &sets[i]
		}

		rp.device.BeginPass(info)
		if rp.pipeline.Valid() {
			rp.device.ApplyPipeline(rp.pipeline)
		}
		if drawFn != nil {
			drawFn(i)
		}
		rp.device.EndPass()
	}
}

func (rp *RenderPass) Desc() metadata.RenderPassDesc { return rp.desc }
func (rp *RenderPass) Pool() *RenderTargetPool       { return rp.pool }

func (rp *RenderPass) Release() {
	rp.pool.Release()
}
