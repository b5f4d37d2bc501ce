package headless

import "github.com/spaghettifunk/lumen/engine/renderer/metadata"

// ImageDesc returns the description of a live image.
func (d *Device) ImageDesc(image metadata.ImageHandle) (metadata.ImageDesc, bool) {
	desc, ok := d.imageDescs[image]
	return desc, ok
}

// ViewTarget returns the image and layer a live view points at.
func (d *Device) ViewTarget(view metadata.ViewHandle) (metadata.ImageHandle, int, bool) {
	info, ok := d.viewInfos[view]
	return info.image, info.layer, ok
}

// BufferContents returns the current contents of a live buffer.
func (d *Device) BufferContents(buffer metadata.BufferHandle) ([]byte, bool) {
	data, ok := d.bufferData[buffer]
	return data, ok
}

// PipelineDesc returns the description of a live pipeline.
func (d *Device) PipelineDesc(pipeline metadata.PipelineHandle) (metadata.PipelineDesc, bool) {
	desc, ok := d.pipelineDescs[pipeline]
	return desc, ok
}

func (d *Device) LiveImages() int    { return d.images.Live() }
func (d *Device) LiveViews() int     { return d.views.Live() }
func (d *Device) LiveBuffers() int   { return d.buffers.Live() }
func (d *Device) LivePipelines() int { return d.pipelines.Live() }
func (d *Device) Frames() uint64     { return d.frames }
func (d *Device) InPass() bool       { return d.inPass }

// Count returns how many recorded commands are of the given kind.
func (d *Device) Count(kind CommandKind) int {
	n := 0
	for _, c := range d.Commands {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// Filter returns the recorded commands of the given kinds, in order.
func (d *Device) Filter(kinds ...CommandKind) []Command {
	var out []Command
	for _, c := range d.Commands {
		for _, k := range kinds {
			if c.Kind == k {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Reset forgets the recorded commands. Live objects are kept.
func (d *Device) Reset() {
	d.Commands = nil
}
