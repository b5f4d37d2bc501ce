package scene

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type LightType uint8

const (
	LightTypePoint LightType = iota
	LightTypeSpot
	LightTypeSun
	LightTypeArea
)

func (t LightType) String() string {
	switch t {
	case LightTypePoint:
		return "point"
	case LightTypeSpot:
		return "spot"
	case LightTypeSun:
		return "sun"
	case LightTypeArea:
		return "area"
	}
	return "unknown"
}

/**
 * @brief A light attached to an object. Position and direction come from the
 * object's transform; lights point down their local -Z axis.
 */
type Light struct {
	Type  LightType
	Color math.Vec3
	Power float32
	/** @brief Spot cone angle in radians. */
	BeamAngle float32
	/** @brief Spot edge softness in [0, 1]. */
	EdgeBlend float32
}

const (
	// Strides in bytes of one packed light of each kind.
	POINT_LIGHT_STRIDE = 8 * 4
	SPOT_LIGHT_STRIDE  = 12 * 4
	SUN_LIGHT_STRIDE   = 8 * 4
	// Every light buffer starts with a 16 byte header holding the count.
	LIGHT_HEADER_SIZE = 16
)

func lightDirection(t math.Transform) math.Vec3 {
	forward := math.NewVec4(0, 0, -1, 0).Transform(t.Rotation.ToMat4())
	return forward.ToVec3().Normalize()
}

func packPoint(obj *Object) []byte {
	p, l := obj.Transform.Position, obj.Light
	return metadata.Float32Bytes(
		p.X, p.Y, p.Z, l.Power,
		l.Color.X, l.Color.Y, l.Color.Z, 0,
	)
}

func packSpot(obj *Object) []byte {
	p, l := obj.Transform.Position, obj.Light
	d := lightDirection(obj.Transform)
	return metadata.Float32Bytes(
		p.X, p.Y, p.Z, l.Power,
		d.X, d.Y, d.Z, l.BeamAngle,
		l.Color.X, l.Color.Y, l.Color.Z, l.EdgeBlend,
	)
}

func packSun(obj *Object) []byte {
	l := obj.Light
	d := lightDirection(obj.Transform)
	return metadata.Float32Bytes(
		d.X, d.Y, d.Z, l.Power,
		l.Color.X, l.Color.Y, l.Color.Z, 0,
	)
}

type lightBuffer struct {
	name     string
	stride   int
	capacity int
	count    int
	data     []byte
	buffer   *renderer.OwnedBuffer
}

func newLightBuffer(device renderer.Device, name string, stride, capacity int) (*lightBuffer, error) {
	size := uint64(LIGHT_HEADER_SIZE + stride*capacity)
	buf, err := renderer.NewOwnedBuffer(device, metadata.BufferDesc{
		Label: name,
		Usage: metadata.BufferUsageStorage,
		Size:  size,
	})
	if err != nil {
		return nil, err
	}
	return &lightBuffer{name: name, stride: stride, capacity: capacity, buffer: buf}, nil
}

func (b *lightBuffer) reset() {
	b.count = 0
	b.data = b.data[:0]
}

func (b *lightBuffer) push(id int32, packed []byte) {
	if b.count == b.capacity {
		core.LogWarn("%s buffer full (%d), light on object %d dropped", b.name, b.capacity, id)
		return
	}
	b.data = append(b.data, packed...)
	b.count++
}

func (b *lightBuffer) upload() error {
	out := make([]byte, 0, LIGHT_HEADER_SIZE+len(b.data))
	out = append(out, metadata.Int32Bytes(int32(b.count), 0, 0, 0)...)
	out = append(out, b.data...)
	return b.buffer.Update(out)
}

/**
 * @brief Three fixed-capacity storage buffers holding the point, spot and sun
 * lights of the scene.
 */
type LightBuffers struct {
	points *lightBuffer
	spots  *lightBuffer
	suns   *lightBuffer
}

func NewLightBuffers(device renderer.Device, capacity int) (*LightBuffers, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: light buffer capacity %d", core.ErrInvalidConfig, capacity)
	}
	lb := &LightBuffers{}
	var err error
	if lb.points, err = newLightBuffer(device, "point_lights", POINT_LIGHT_STRIDE, capacity); err != nil {
		return nil, err
	}
	if lb.spots, err = newLightBuffer(device, "spot_lights", SPOT_LIGHT_STRIDE, capacity); err != nil {
		lb.Release()
		return nil, err
	}
	if lb.suns, err = newLightBuffer(device, "sun_lights", SUN_LIGHT_STRIDE, capacity); err != nil {
		lb.Release()
		return nil, err
	}
	return lb, nil
}

/**
 * @brief Repacks every light of the store when it is marked dirty. Area
 * lights are not supported and are skipped.
 */
func (lb *LightBuffers) Refresh(store *Store) error {
	if !store.LightsDirty() {
		return nil
	}
	lb.points.reset()
	lb.spots.reset()
	lb.suns.reset()

	for _, id := range store.IDs() {
		obj, _ := store.Get(id)
		if obj.Light == nil {
			continue
		}
		switch obj.Light.Type {
		case LightTypePoint:
			lb.points.push(id, packPoint(obj))
		case LightTypeSpot:
			lb.spots.push(id, packSpot(obj))
		case LightTypeSun:
			lb.suns.push(id, packSun(obj))
		default:
			core.LogDebug("light type %s on object %d is not supported, skipping", obj.Light.Type, id)
		}
	}

	for _, b := range []*lightBuffer{lb.points, lb.spots, lb.suns} {
		if err := b.upload(); err != nil {
			return fmt.Errorf("failed to upload %s: %w", b.name, err)
		}
	}
	store.clearLightsDirty()
	return nil
}

// Counts returns the number of packed point, spot and sun lights.
func (lb *LightBuffers) Counts() (points, spots, suns int) {
	return lb.points.count, lb.spots.count, lb.suns.count
}

// Handles returns the point, spot and sun buffers in binding order.
func (lb *LightBuffers) Handles() [3]metadata.BufferHandle {
	return [3]metadata.BufferHandle{
		lb.points.buffer.Handle(),
		lb.spots.buffer.Handle(),
		lb.suns.buffer.Handle(),
	}
}

func (lb *LightBuffers) Release() {
	for _, b := range []*lightBuffer{lb.points, lb.spots, lb.suns} {
		if b != nil {
			b.buffer.Release()
		}
	}
}
