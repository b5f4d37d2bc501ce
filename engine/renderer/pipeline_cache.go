package renderer

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"golang.org/x/exp/slices"
)

type cachedPipeline struct {
	desc   metadata.PipelineDesc
	handle metadata.PipelineHandle
}

/**
 * @brief Every graphics pipeline the renderer uses, built once at
 * initialization and looked up by kind afterwards.
 */
type PipelineCache struct {
	device    Device
	pipelines map[metadata.PipelineKind]cachedPipeline
}

func NewPipelineCache(device Device) *PipelineCache {
	return &PipelineCache{
		device:    device,
		pipelines: make(map[metadata.PipelineKind]cachedPipeline),
	}
}

// Initialize builds one pipeline per description. Kinds must be unique.
func (c *PipelineCache) Initialize(descs []metadata.PipelineDesc) error {
	for _, desc := range descs {
		if _, exists := c.pipelines[desc.Kind]; exists {
			return fmt.Errorf("pipeline `%s` registered twice", desc.Kind)
		}
		handle, err := c.device.CreatePipeline(desc)
		if err != nil {
			c.Destroy()
			return fmt.Errorf("failed to create pipeline `%s`: %w", desc.Kind, err)
		}
		c.pipelines[desc.Kind] = cachedPipeline{desc: desc, handle: handle}
		core.LogDebug("pipeline `%s` created", desc.Kind)
	}
	return nil
}

// Get returns the pipeline of the given kind. Asking for a kind that was
// never initialized is fatal.
func (c *PipelineCache) Get(kind metadata.PipelineKind) metadata.PipelineHandle {
	p, ok := c.pipelines[kind]
	core.Assert(ok, "pipeline `%s` was not created at initialization", kind)
	return p.handle
}

// Desc returns the description the pipeline of the given kind was built from.
func (c *PipelineCache) Desc(kind metadata.PipelineKind) metadata.PipelineDesc {
	p, ok := c.pipelines[kind]
	core.Assert(ok, "pipeline `%s` was not created at initialization", kind)
	return p.desc
}

func (c *PipelineCache) Has(kind metadata.PipelineKind) bool {
	_, ok := c.pipelines[kind]
	return ok
}

// Kinds lists the cached kinds in ascending order.
func (c *PipelineCache) Kinds() []metadata.PipelineKind {
	kinds := make([]metadata.PipelineKind, 0, len(c.pipelines))
	for kind := range c.pipelines {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)
	return kinds
}

func (c *PipelineCache) Destroy() {
	for _, kind := range c.Kinds() {
		c.device.DestroyPipeline(c.pipelines[kind].handle)
	}
	c.pipelines = make(map[metadata.PipelineKind]cachedPipeline)
}
