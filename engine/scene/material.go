package scene

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// NO_IMAGE marks a material slot without an image.
const NO_IMAGE int32 = -1

/**
 * @brief Surface parameters of a mesh. Image fields index the image registry.
 */
type Material struct {
	Name           string
	BaseColor      math.Vec4
	Metallic       float32
	Roughness      float32
	Emission       math.Vec3
	BaseColorImage int32
	MetallicImage  int32
	RoughnessImage int32
	EmissionImage  int32
}

func NewMaterial(name string) Material {
	return Material{
		Name:           name,
		BaseColor:      math.NewVec4(1, 1, 1, 1),
		Roughness:      1,
		BaseColorImage: NO_IMAGE,
		MetallicImage:  NO_IMAGE,
		RoughnessImage: NO_IMAGE,
		EmissionImage:  NO_IMAGE,
	}
}

// MATERIAL_STRIDE is the size in bytes of one packed material.
const MATERIAL_STRIDE = 12 * 4

func (m Material) pack() []byte {
	return metadata.Float32Bytes(
		m.BaseColor.X, m.BaseColor.Y, m.BaseColor.Z, m.BaseColor.W,
		m.Emission.X, m.Emission.Y, m.Emission.Z, m.Metallic,
		m.Roughness, 0, 0, 0,
	)
}

/**
 * @brief Images uploaded for materials, plus the device defaults used when a
 * material has no image or refers to one that does not exist.
 */
type ImageRegistry struct {
	images           []metadata.ImageHandle
	defaultImage     metadata.ImageHandle
	defaultCubeImage metadata.ImageHandle
}

func NewImageRegistry(device renderer.Device) *ImageRegistry {
	return &ImageRegistry{
		defaultImage:     device.DefaultImage(),
		defaultCubeImage: device.DefaultCubeImage(),
	}
}

// Add registers an image and returns its index.
func (r *ImageRegistry) Add(image metadata.ImageHandle) int32 {
	r.images = append(r.images, image)
	return int32(len(r.images) - 1)
}

// Resolve returns the image at index, falling back to the default image.
func (r *ImageRegistry) Resolve(index int32) metadata.ImageHandle {
	if index < 0 || int(index) >= len(r.images) || !r.images[index].Valid() {
		return r.defaultImage
	}
	return r.images[index]
}

func (r *ImageRegistry) Default() metadata.ImageHandle     { return r.defaultImage }
func (r *ImageRegistry) DefaultCube() metadata.ImageHandle { return r.defaultCubeImage }
func (r *ImageRegistry) Len() int                          { return len(r.images) }

/**
 * @brief Materials in index order, mirrored in a GPU storage buffer.
 */
type MaterialRegistry struct {
	device    renderer.Device
	materials []Material
	buffer    *renderer.OwnedBuffer
	dirty     bool
}

func NewMaterialRegistry(device renderer.Device) *MaterialRegistry {
	return &MaterialRegistry{device: device, dirty: true}
}

func (r *MaterialRegistry) Add(m Material) int32 {
	r.materials = append(r.materials, m)
	r.dirty = true
	return int32(len(r.materials) - 1)
}

// Get returns the material at index; ok is false for unknown indices.
func (r *MaterialRegistry) Get(index int32) (Material, bool) {
	if index < 0 || int(index) >= len(r.materials) {
		return Material{}, false
	}
	return r.materials[index], true
}

func (r *MaterialRegistry) Len() int { return len(r.materials) }

// Images resolves the four images of a material in binding order: base
// color, metallic, roughness, emission.
func (r *MaterialRegistry) Images(index int32, images *ImageRegistry) [4]metadata.ImageHandle {
	m, ok := r.Get(index)
	if !ok {
		m = NewMaterial("")
	}
	return [4]metadata.ImageHandle{
		images.Resolve(m.BaseColorImage),
		images.Resolve(m.MetallicImage),
		images.Resolve(m.RoughnessImage),
		images.Resolve(m.EmissionImage),
	}
}

// Sync uploads the materials when they changed. The buffer is recreated when
// it is too small.
func (r *MaterialRegistry) Sync() error {
	if !r.dirty {
		return nil
	}
	count := max(len(r.materials), 1)
	data := make([]byte, 0, count*MATERIAL_STRIDE)
	for _, m := range r.materials {
		data = append(data, m.pack()...)
	}
	size := uint64(count * MATERIAL_STRIDE)

	if r.buffer == nil || r.buffer.Desc.Size < size {
		r.buffer.Release()
		buf, err := renderer.NewOwnedBuffer(r.device, metadata.BufferDesc{
			Label: "materials",
			Usage: metadata.BufferUsageStorage,
			Size:  size,
			Data:  data,
		})
		if err != nil {
			return fmt.Errorf("failed to upload materials: %w", err)
		}
		r.buffer = buf
	} else if err := r.buffer.Update(data); err != nil {
		return fmt.Errorf("failed to upload materials: %w", err)
	}
	r.dirty = false
	return nil
}

func (r *MaterialRegistry) Buffer() metadata.BufferHandle {
	return r.buffer.Handle()
}

func (r *MaterialRegistry) Release() {
	r.buffer.Release()
	r.buffer = nil
}
