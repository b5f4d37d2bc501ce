package scene

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

/** @brief One mesh vertex as the geometry pipeline reads it (32 bytes). */
type Vertex struct {
	Position math.Vec3
	Normal   math.Vec3
	Texcoord math.Vec2
}

// VERTEX_STRIDE is the size in bytes of one packed Vertex.
const VERTEX_STRIDE = 8 * 4

/**
 * @brief CPU-side geometry before upload.
 */
type MeshData struct {
	Name     string
	Vertices []Vertex
	Indices  []uint32
	Bounds   math.Extents3D
}

func (d MeshData) packVertices() []byte {
	values := make([]float32, 0, len(d.Vertices)*8)
	for _, v := range d.Vertices {
		values = append(values,
			v.Position.X, v.Position.Y, v.Position.Z,
			v.Normal.X, v.Normal.Y, v.Normal.Z,
			v.Texcoord.X, v.Texcoord.Y)
	}
	return metadata.Float32Bytes(values...)
}

func (d MeshData) packIndices() []byte {
	values := make([]int32, len(d.Indices))
	for i, idx := range d.Indices {
		values[i] = int32(idx)
	}
	return metadata.Int32Bytes(values...)
}

/**
 * @brief Generates a plane on the XZ axes facing +Y.
 * @param width The overall width of the plane. Must be non-zero.
 * @param depth The overall depth of the plane. Must be non-zero.
 * @param xSegments The number of segments along the x-axis.
 * @param zSegments The number of segments along the z-axis.
 * @param tile How many times the texture repeats across the plane.
 */
func GeneratePlane(width, depth float32, xSegments, zSegments uint32, tile float32, name string) MeshData {
	if width == 0 {
		core.LogWarn("Width must be nonzero. Defaulting to one.")
		width = 1
	}
	if depth == 0 {
		core.LogWarn("Depth must be nonzero. Defaulting to one.")
		depth = 1
	}
	if xSegments < 1 {
		xSegments = 1
	}
	if zSegments < 1 {
		zSegments = 1
	}
	if tile == 0 {
		tile = 1
	}

	data := MeshData{
		Name:     name,
		Vertices: make([]Vertex, 0, xSegments*zSegments*4),
		Indices:  make([]uint32, 0, xSegments*zSegments*6),
		Bounds: math.Extents3D{
			Min: math.NewVec3(-width*0.5, 0, -depth*0.5),
			Max: math.NewVec3(width*0.5, 0, depth*0.5),
		},
	}

	segWidth := width / float32(xSegments)
	segDepth := depth / float32(zSegments)
	up := math.NewVec3(0, 1, 0)
	for z := uint32(0); z < zSegments; z++ {
		for x := uint32(0); x < xSegments; x++ {
			minX := float32(x)*segWidth - width*0.5
			minZ := float32(z)*segDepth - depth*0.5
			maxX := minX + segWidth
			maxZ := minZ + segDepth
			minU := float32(x) / float32(xSegments) * tile
			minV := float32(z) / float32(zSegments) * tile
			maxU := float32(x+1) / float32(xSegments) * tile
			maxV := float32(z+1) / float32(zSegments) * tile

			base := uint32(len(data.Vertices))
			data.Vertices = append(data.Vertices,
				Vertex{Position: math.NewVec3(minX, 0, maxZ), Normal: up, Texcoord: math.NewVec2(minU, maxV)},
				Vertex{Position: math.NewVec3(maxX, 0, minZ), Normal: up, Texcoord: math.NewVec2(maxU, minV)},
				Vertex{Position: math.NewVec3(minX, 0, minZ), Normal: up, Texcoord: math.NewVec2(minU, minV)},
				Vertex{Position: math.NewVec3(maxX, 0, maxZ), Normal: up, Texcoord: math.NewVec2(maxU, maxV)},
			)
			data.Indices = append(data.Indices, base, base+1, base+2, base, base+3, base+1)
		}
	}
	return data
}

/**
 * @brief Generates an axis-aligned box centered on the origin with outward
 * facing, counter-clockwise triangles.
 */
func GenerateCube(width, height, depth float32, name string) MeshData {
	if width == 0 {
		core.LogWarn("Width must be nonzero. Defaulting to one.")
		width = 1
	}
	if height == 0 {
		core.LogWarn("Height must be nonzero. Defaulting to one.")
		height = 1
	}
	if depth == 0 {
		core.LogWarn("Depth must be nonzero. Defaulting to one.")
		depth = 1
	}

	minX, maxX := -width*0.5, width*0.5
	minY, maxY := -height*0.5, height*0.5
	minZ, maxZ := -depth*0.5, depth*0.5

	// Four corners per face in the order min/min, max/max, min/max, max/min
	// of the face's own UV axes.
	faces := []struct {
		normal  math.Vec3
		corners [4]math.Vec3
	}{
		{math.NewVec3(0, 0, 1), [4]math.Vec3{{X: minX, Y: minY, Z: maxZ}, {X: maxX, Y: maxY, Z: maxZ}, {X: minX, Y: maxY, Z: maxZ}, {X: maxX, Y: minY, Z: maxZ}}},
		{math.NewVec3(0, 0, -1), [4]math.Vec3{{X: maxX, Y: minY, Z: minZ}, {X: minX, Y: maxY, Z: minZ}, {X: maxX, Y: maxY, Z: minZ}, {X: minX, Y: minY, Z: minZ}}},
		{math.NewVec3(-1, 0, 0), [4]math.Vec3{{X: minX, Y: minY, Z: minZ}, {X: minX, Y: maxY, Z: maxZ}, {X: minX, Y: maxY, Z: minZ}, {X: minX, Y: minY, Z: maxZ}}},
		{math.NewVec3(1, 0, 0), [4]math.Vec3{{X: maxX, Y: minY, Z: maxZ}, {X: maxX, Y: maxY, Z: minZ}, {X: maxX, Y: maxY, Z: maxZ}, {X: maxX, Y: minY, Z: minZ}}},
		{math.NewVec3(0, -1, 0), [4]math.Vec3{{X: maxX, Y: minY, Z: maxZ}, {X: minX, Y: minY, Z: minZ}, {X: maxX, Y: minY, Z: minZ}, {X: minX, Y: minY, Z: maxZ}}},
		{math.NewVec3(0, 1, 0), [4]math.Vec3{{X: minX, Y: maxY, Z: maxZ}, {X: maxX, Y: maxY, Z: minZ}, {X: minX, Y: maxY, Z: minZ}, {X: maxX, Y: maxY, Z: maxZ}}},
	}
	uvs := [4]math.Vec2{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: 1, Y: 0}}

	data := MeshData{
		Name:     name,
		Vertices: make([]Vertex, 0, 24),
		Indices:  make([]uint32, 0, 36),
		Bounds: math.Extents3D{
			Min: math.NewVec3(minX, minY, minZ),
			Max: math.NewVec3(maxX, maxY, maxZ),
		},
	}
	for _, f := range faces {
		base := uint32(len(data.Vertices))
		for i, c := range f.corners {
			data.Vertices = append(data.Vertices, Vertex{Position: c, Normal: f.normal, Texcoord: uvs[i]})
		}
		data.Indices = append(data.Indices, base, base+1, base+2, base, base+3, base+1)
	}
	return data
}

// NewMesh uploads data into a vertex and an index buffer.
func NewMesh(device renderer.Device, data MeshData, materials ...int32) (*Mesh, error) {
	if len(data.Vertices) == 0 || len(data.Indices) == 0 {
		return nil, fmt.Errorf("mesh `%s` has no geometry", data.Name)
	}
	label := data.Name
	if label == "" {
		label = uuid.NewString()
	}

	vertices, err := renderer.NewOwnedBuffer(device, metadata.BufferDesc{
		Label: label + "_vertices",
		Usage: metadata.BufferUsageVertex,
		Size:  uint64(len(data.Vertices) * VERTEX_STRIDE),
		Data:  data.packVertices(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload vertices of `%s`: %w", label, err)
	}
	indices, err := renderer.NewOwnedBuffer(device, metadata.BufferDesc{
		Label: label + "_indices",
		Usage: metadata.BufferUsageIndex,
		Size:  uint64(len(data.Indices) * 4),
		Data:  data.packIndices(),
	})
	if err != nil {
		vertices.Release()
		return nil, fmt.Errorf("failed to upload indices of `%s`: %w", label, err)
	}

	return &Mesh{
		VertexBuffer:    vertices.Handle(),
		IndexBuffer:     indices.Handle(),
		IndexCount:      len(data.Indices),
		Bounds:          data.Bounds,
		MaterialIndices: materials,
		vertices:        vertices,
		indices:         indices,
	}, nil
}

// Release frees the buffers of meshes created by NewMesh.
func (m *Mesh) Release() {
	if m.vertices != nil {
		m.vertices.Release()
	}
	if m.indices != nil {
		m.indices.Release()
	}
}
