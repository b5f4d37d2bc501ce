package scene

import (
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"golang.org/x/exp/slices"
)

/** @brief Renderable geometry already uploaded to the GPU. */
type Mesh struct {
	VertexBuffer metadata.BufferHandle
	IndexBuffer  metadata.BufferHandle
	IndexCount   int
	/** @brief Object-space bounds. */
	Bounds math.Extents3D
	/** @brief Material per primitive; the first one is used for drawing. */
	MaterialIndices []int32

	vertices *renderer.OwnedBuffer
	indices  *renderer.OwnedBuffer
}

// MaterialIndex returns the material of the mesh, or -1 when it has none.
func (m *Mesh) MaterialIndex() int32 {
	if len(m.MaterialIndices) == 0 {
		return -1
	}
	return m.MaterialIndices[0]
}

/**
 * @brief A scene entity. Mesh and Light are optional.
 */
type Object struct {
	ID        int32
	Name      string
	Visible   bool
	Transform math.Transform
	Mesh      *Mesh
	Light     *Light
}

// WorldBounds returns the world-space box of the object's mesh.
func (o *Object) WorldBounds() math.Extents3D {
	if o.Mesh == nil {
		p := o.Transform.Position
		return math.Extents3D{Min: p, Max: p}
	}
	return o.Mesh.Bounds.Transform(o.Transform.World())
}

/**
 * @brief Active objects keyed by their stable id.
 */
type Store struct {
	objects     map[int32]*Object
	nextID      int32
	lightsDirty bool
}

func NewStore() *Store {
	return &Store{
		objects:     make(map[int32]*Object),
		nextID:      1,
		lightsDirty: true,
	}
}

// Add inserts obj. A zero ID is replaced by a fresh one; an existing object
// with the same ID is overwritten.
func (s *Store) Add(obj *Object) int32 {
	if obj.ID == 0 {
		obj.ID = s.nextID
	}
	if obj.ID >= s.nextID {
		s.nextID = obj.ID + 1
	}
	if prev, ok := s.objects[obj.ID]; ok && prev.Light != nil {
		s.lightsDirty = true
	}
	if obj.Light != nil {
		s.lightsDirty = true
	}
	s.objects[obj.ID] = obj
	return obj.ID
}

func (s *Store) Get(id int32) (*Object, bool) {
	obj, ok := s.objects[id]
	return obj, ok
}

func (s *Store) Remove(id int32) {
	if obj, ok := s.objects[id]; ok {
		if obj.Light != nil {
			s.lightsDirty = true
		}
		delete(s.objects, id)
	}
}

// Objects exposes the live map; callers must not add or remove entries.
func (s *Store) Objects() map[int32]*Object {
	return s.objects
}

func (s *Store) Len() int {
	return len(s.objects)
}

// IDs returns the ids in ascending order.
func (s *Store) IDs() []int32 {
	ids := make([]int32, 0, len(s.objects))
	for id := range s.objects {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// MarkLightsDirty requests a light buffer refresh, e.g. after moving a light.
func (s *Store) MarkLightsDirty() {
	s.lightsDirty = true
}

func (s *Store) LightsDirty() bool {
	return s.lightsDirty
}

func (s *Store) clearLightsDirty() {
	s.lightsDirty = false
}
