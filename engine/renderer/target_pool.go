package renderer

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

/**
 * @brief The images and attachment views a render pass renders into. The pool
 * is rebuilt wholesale on every resize.
 */
type RenderTargetPool struct {
	device Device
	desc   metadata.RenderPassDesc
	label  string

	width  uint32
	height uint32

	/** @brief Color images indexed by [output][image]. */
	colorImages [][]*OwnedImage
	depthImages []*OwnedImage
	views       []*OwnedView
	sets        []metadata.AttachmentSet
}

func NewRenderTargetPool(device Device, desc metadata.RenderPassDesc) *RenderTargetPool {
	validatePassDesc(desc)
	return &RenderTargetPool{
		device: device,
		desc:   desc,
		label:  fmt.Sprintf("%s_%s", desc.Name, uuid.New().String()),
	}
}

func validatePassDesc(desc metadata.RenderPassDesc) {
	core.Assert(desc.Topology != nil, "render pass `%s` has no topology", desc.Name)
	if m, ok := desc.Topology.(metadata.Multi); ok {
		core.Assert(m.Count > 0, "render pass `%s` uses multi topology with %d sub-passes", desc.Name, m.Count)
	}
	if !desc.Topology.Presents() {
		core.Assert(len(desc.ColorOutputs) > 0, "render pass `%s` has no color outputs", desc.Name)
	}
	if desc.DepthOutput != nil {
		core.Assert(desc.DepthOutput.Format.IsDepth(), "render pass `%s` depth output uses non-depth format %s", desc.Name, desc.DepthOutput.Format)
		if desc.Pipeline != nil {
			core.Assert(desc.Pipeline.DepthFormat == desc.DepthOutput.Format,
				"render pass `%s` depth format %s does not match pipeline depth format %s",
				desc.Name, desc.DepthOutput.Format, desc.Pipeline.DepthFormat)
		}
	}
}

/**
 * @brief Releases every owned image and view, then allocates new ones of the
 * given size and rebuilds one attachment set per sub-pass.
 */
func (p *RenderTargetPool) Resize(width, height uint32) error {
	core.Assert(width > 0 && height > 0, "render pass `%s` resized to %dx%d", p.desc.Name, width, height)
	p.Release()

	p.width = width
	p.height = height

	topology := p.desc.Topology
	if topology.Presents() {
		return nil
	}

	var err error
	p.colorImages = make([][]*OwnedImage, len(p.desc.ColorOutputs))
	for i, output := range p.desc.ColorOutputs {
		if p.colorImages[i], err = p.createImages(fmt.Sprintf("color%d", i), output.Format); err != nil {
			p.Release()
			return err
		}
	}
	if p.desc.DepthOutput != nil {
		if p.depthImages, err = p.createImages("depth", p.desc.DepthOutput.Format); err != nil {
			p.Release()
			return err
		}
	}

	refs := topology.AttachmentRefs()
	p.sets = make([]metadata.AttachmentSet, 0, len(refs))
	for _, ref := range refs {
		set := metadata.AttachmentSet{
			Colors: make([]metadata.ViewHandle, 0, len(p.colorImages)),
			Width:  width,
			Height: height,
		}
		for _, images := range p.colorImages {
			view, err := p.createView(images[ref.Image], ref.Layer)
			if err != nil {
				p.Release()
				return err
			}
			set.Colors = append(set.Colors, view)
		}
		if p.depthImages != nil {
			view, err := p.createView(p.depthImages[ref.Image], ref.Layer)
			if err != nil {
				p.Release()
				return err
			}
			set.Depth = view
		}
		p.sets = append(p.sets, set)
	}

	core.Assert(len(p.sets) == topology.SubpassCount(),
		"render pass `%s` built %d attachment sets for %d sub-passes", p.desc.Name, len(p.sets), topology.SubpassCount())
	return nil
}

func (p *RenderTargetPool) createImages(kind string, format metadata.PixelFormat) ([]*OwnedImage, error) {
	topology := p.desc.Topology
	count := topology.ImagesPerOutput()
	layers := topology.ImageLayers()
	_, cube := topology.(metadata.Cubemap)

	images := make([]*OwnedImage, 0, count)
	for i := 0; i < count; i++ {
		img, err := NewOwnedImage(p.device, metadata.ImageDesc{
			Label:        fmt.Sprintf("%s_%s_%d", p.label, kind, i),
			Width:        p.width,
			Height:       p.height,
			Format:       format,
			Layers:       uint32(layers),
			Cube:         cube,
			RenderTarget: true,
		})
		if err != nil {
			for _, created := range images {
				created.Release()
			}
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

func (p *RenderTargetPool) createView(image *OwnedImage, layer int) (metadata.ViewHandle, error) {
	view, err := NewOwnedView(p.device, image, layer)
	if err != nil {
		return 0, err
	}
	p.views = append(p.views, view)
	return view.Handle(), nil
}

// Release destroys every view and image the pool owns.
func (p *RenderTargetPool) Release() {
	for _, v := range p.views {
		v.Release()
	}
	for _, images := range p.colorImages {
		for _, img := range images {
			img.Release()
		}
	}
	for _, img := range p.depthImages {
		img.Release()
	}
	p.views = nil
	p.colorImages = nil
	p.depthImages = nil
	p.sets = nil
}

// Ready reports whether Resize has succeeded at least once.
func (p *RenderTargetPool) Ready() bool {
	if p.desc.Topology.Presents() {
		return p.width > 0
	}
	return len(p.sets) > 0
}

func (p *RenderTargetPool) AttachmentSets() []metadata.AttachmentSet {
	return p.sets
}

// ColorImage returns image index of color output output, or the zero handle.
func (p *RenderTargetPool) ColorImage(output, index int) metadata.ImageHandle {
	if output < 0 || output >= len(p.colorImages) {
		return 0
	}
	images := p.colorImages[output]
	if index < 0 || index >= len(images) {
		return 0
	}
	return images[index].Handle()
}

// DepthImage returns the depth image at index, or the zero handle.
func (p *RenderTargetPool) DepthImage(index int) metadata.ImageHandle {
	if index < 0 || index >= len(p.depthImages) {
		return 0
	}
	return p.depthImages[index].Handle()
}

func (p *RenderTargetPool) Width() uint32  { return p.width }
func (p *RenderTargetPool) Height() uint32 { return p.height }
