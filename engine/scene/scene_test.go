package scene

import (
	"encoding/binary"
	gomath "math"
	"testing"

	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/headless"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

func newDevice(t *testing.T) *headless.Device {
	t.Helper()
	d := headless.New()
	if err := d.Initialize("scene-test", 4, 4); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return d
}

func floatAt(data []byte, index int) float32 {
	return gomath.Float32frombits(binary.LittleEndian.Uint32(data[index*4:]))
}

func TestStoreIDs(t *testing.T) {
	s := NewStore()
	a := s.Add(&Object{Name: "a"})
	b := s.Add(&Object{Name: "b"})
	c := s.Add(&Object{ID: 10, Name: "c"})
	d := s.Add(&Object{Name: "d"})
	if a != 1 || b != 2 || c != 10 || d != 11 {
		t.Fatalf("ids = %d %d %d %d", a, b, c, d)
	}
	s.Remove(b)
	ids := s.IDs()
	want := []int32{1, 10, 11}
	if len(ids) != len(want) {
		t.Fatalf("IDs() = %v", ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("IDs() = %v, want %v", ids, want)
		}
	}
}

func TestImageFallback(t *testing.T) {
	d := newDevice(t)
	images := NewImageRegistry(d)
	materials := NewMaterialRegistry(d)

	albedo, err := d.CreateImage(metadata.ImageDesc{Label: "albedo", Width: 2, Height: 2, Layers: 1})
	if err != nil {
		t.Fatalf("CreateImage: %v", err)
	}
	m := NewMaterial("brick")
	m.BaseColorImage = images.Add(albedo)
	m.EmissionImage = 42
	idx := materials.Add(m)

	got := materials.Images(idx, images)
	want := [4]metadata.ImageHandle{albedo, d.DefaultImage(), d.DefaultImage(), d.DefaultImage()}
	if got != want {
		t.Fatalf("Images() = %v, want %v", got, want)
	}
	if got := materials.Images(99, images); got[0] != d.DefaultImage() {
		t.Errorf("unknown material resolved to %v", got)
	}
	if images.DefaultCube() != d.DefaultCubeImage() {
		t.Error("registry lost the default cube image")
	}
}

func TestMaterialSync(t *testing.T) {
	d := newDevice(t)
	materials := NewMaterialRegistry(d)
	m := NewMaterial("gold")
	m.Metallic = 1
	materials.Add(m)
	if err := materials.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	data, ok := d.BufferContents(materials.Buffer())
	if !ok || len(data) != MATERIAL_STRIDE {
		t.Fatalf("materials buffer = %d bytes", len(data))
	}
	if floatAt(data, 7) != 1 {
		t.Errorf("metallic = %v", floatAt(data, 7))
	}

	materials.Add(NewMaterial("stone"))
	if err := materials.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if data, _ := d.BufferContents(materials.Buffer()); len(data) != 2*MATERIAL_STRIDE {
		t.Errorf("buffer holds %d bytes after growing, want %d", len(data), 2*MATERIAL_STRIDE)
	}
	if d.LiveBuffers() != 1 {
		t.Errorf("%d buffers alive, want 1", d.LiveBuffers())
	}
}

func TestLightPacking(t *testing.T) {
	d := newDevice(t)
	world, err := NewWorld(d, 4)
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}

	point := math.NewTransformFromPosition(math.NewVec3(1, 2, 3))
	world.Objects.Add(&Object{Transform: point, Light: &Light{Type: LightTypePoint, Color: math.NewVec3(1, 0, 0), Power: 100}})
	world.Objects.Add(&Object{Transform: math.NewTransform(), Light: &Light{Type: LightTypeSpot, Power: 50, BeamAngle: 0.5, EdgeBlend: 0.25}})
	world.Objects.Add(&Object{Transform: math.NewTransform(), Light: &Light{Type: LightTypeSun, Power: 3}})
	world.Objects.Add(&Object{Transform: math.NewTransform(), Light: &Light{Type: LightTypeArea, Power: 9}})
	world.Objects.Add(&Object{Name: "no light"})

	if err := world.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	points, spots, suns := world.Lights.Counts()
	if points != 1 || spots != 1 || suns != 1 {
		t.Fatalf("counts = %d/%d/%d, want 1/1/1", points, spots, suns)
	}
	if world.Objects.LightsDirty() {
		t.Error("store still dirty after refresh")
	}

	handles := world.Lights.Handles()
	data, _ := d.BufferContents(handles[0])
	if n := binary.LittleEndian.Uint32(data); n != 1 {
		t.Fatalf("point header count = %d", n)
	}
	header := LIGHT_HEADER_SIZE / 4
	want := []float32{1, 2, 3, 100, 1, 0, 0}
	for i, w := range want {
		if got := floatAt(data, header+i); got != w {
			t.Errorf("point float %d = %v, want %v", i, got, w)
		}
	}

	spot, _ := d.BufferContents(handles[1])
	// default orientation points down -Z
	if got := floatAt(spot, header+6); got != -1 {
		t.Errorf("spot direction z = %v, want -1", got)
	}
	if floatAt(spot, header+7) != 0.5 || floatAt(spot, header+11) != 0.25 {
		t.Error("spot beam angle or edge blend misplaced")
	}
}

func TestLightCapacity(t *testing.T) {
	d := newDevice(t)
	lights, err := NewLightBuffers(d, 2)
	if err != nil {
		t.Fatalf("NewLightBuffers: %v", err)
	}
	store := NewStore()
	for i := 0; i < 5; i++ {
		store.Add(&Object{Transform: math.NewTransform(), Light: &Light{Type: LightTypePoint}})
	}
	if err := lights.Refresh(store); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if points, _, _ := lights.Counts(); points != 2 {
		t.Fatalf("packed %d points, want capacity 2", points)
	}

	if _, err := NewLightBuffers(d, 0); err == nil {
		t.Error("expected an error for zero capacity")
	}
}

func TestWorldBounds(t *testing.T) {
	obj := &Object{
		Transform: math.NewTransformFromPosition(math.NewVec3(10, 0, 0)),
		Mesh:      &Mesh{Bounds: math.Extents3D{Min: math.NewVec3(-1, -1, -1), Max: math.NewVec3(1, 1, 1)}},
	}
	b := obj.WorldBounds()
	if !b.Min.Compare(math.NewVec3(9, -1, -1), 1e-5) || !b.Max.Compare(math.NewVec3(11, 1, 1), 1e-5) {
		t.Fatalf("world bounds = %+v", b)
	}
	if (&Mesh{}).MaterialIndex() != -1 {
		t.Error("mesh without materials should report -1")
	}
}

func TestCubeWindingFacesOutward(t *testing.T) {
	data := GenerateCube(2, 2, 2, "cube")
	if len(data.Vertices) != 24 || len(data.Indices) != 36 {
		t.Fatalf("expected 24 vertices and 36 indices, got %d and %d", len(data.Vertices), len(data.Indices))
	}
	for tri := 0; tri < len(data.Indices); tri += 3 {
		a := data.Vertices[data.Indices[tri]]
		b := data.Vertices[data.Indices[tri+1]]
		c := data.Vertices[data.Indices[tri+2]]
		n := b.Position.Sub(a.Position).Cross(c.Position.Sub(a.Position))
		if n.Dot(a.Normal) <= 0 {
			t.Fatalf("triangle %d winds away from its normal %+v", tri/3, a.Normal)
		}
	}
	if !data.Bounds.Min.Compare(math.NewVec3(-1, -1, -1), 1e-6) || !data.Bounds.Max.Compare(math.NewVec3(1, 1, 1), 1e-6) {
		t.Fatalf("unexpected bounds %+v", data.Bounds)
	}
}

func TestPlaneFacesUp(t *testing.T) {
	data := GeneratePlane(4, 4, 2, 2, 1, "floor")
	if len(data.Vertices) != 16 || len(data.Indices) != 24 {
		t.Fatalf("expected 16 vertices and 24 indices, got %d and %d", len(data.Vertices), len(data.Indices))
	}
	up := math.NewVec3(0, 1, 0)
	for tri := 0; tri < len(data.Indices); tri += 3 {
		a := data.Vertices[data.Indices[tri]].Position
		b := data.Vertices[data.Indices[tri+1]].Position
		c := data.Vertices[data.Indices[tri+2]].Position
		if b.Sub(a).Cross(c.Sub(a)).Dot(up) <= 0 {
			t.Fatalf("triangle %d faces down", tri/3)
		}
	}
}

func TestNewMeshUploadsBuffers(t *testing.T) {
	d := newDevice(t)
	mesh, err := NewMesh(d, GenerateCube(1, 1, 1, "box"), 3)
	if err != nil {
		t.Fatalf("NewMesh: %v", err)
	}
	if mesh.IndexCount != 36 || mesh.MaterialIndex() != 3 {
		t.Fatalf("unexpected mesh %+v", mesh)
	}
	vertices, ok := d.BufferContents(mesh.VertexBuffer)
	if !ok || len(vertices) != 24*VERTEX_STRIDE {
		t.Fatalf("expected %d vertex bytes, got %d", 24*VERTEX_STRIDE, len(vertices))
	}
	// The first vertex normal of the front face is +Z.
	if floatAt(vertices, 5) != 1 {
		t.Fatalf("expected packed normal z of 1, got %v", floatAt(vertices, 5))
	}
	if d.LiveBuffers() != 2 {
		t.Fatalf("expected 2 live buffers, got %d", d.LiveBuffers())
	}
	mesh.Release()
	mesh.Release()
	if d.LiveBuffers() != 0 {
		t.Fatalf("expected buffers released, got %d", d.LiveBuffers())
	}

	if _, err := NewMesh(d, MeshData{Name: "empty"}); err == nil {
		t.Fatal("expected an error for an empty mesh")
	}
}
