package culling

import (
	"testing"

	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/scene"
)

func unitMesh() *scene.Mesh {
	return &scene.Mesh{
		IndexCount: 36,
		Bounds:     math.Extents3D{Min: math.NewVec3(-0.5, -0.5, -0.5), Max: math.NewVec3(0.5, 0.5, 0.5)},
	}
}

func at(x, y, z float32) math.Transform {
	return math.NewTransformFromPosition(math.NewVec3(x, y, z))
}

func TestCull(t *testing.T) {
	view := math.NewMat4LookAt(math.NewVec3Zero(), math.NewVec3(0, 0, -1), math.NewVec3(0, 1, 0))
	proj := math.NewMat4Perspective(math.DegToRad(90), 1, 0.01, 100)
	viewProj := view.Mul(proj)

	objects := map[int32]*scene.Object{
		1: {ID: 1, Visible: true, Transform: at(0, 0, -5), Mesh: unitMesh()},
		2: {ID: 2, Visible: true, Transform: at(0, 0, 5), Mesh: unitMesh()},
		3: {ID: 3, Visible: false, Transform: at(0, 0, -5), Mesh: unitMesh()},
		4: {ID: 4, Visible: true, Transform: at(0, 0, -5)},
		5: {ID: 5, Visible: true, Transform: at(2, 0, -3), Mesh: unitMesh()},
		6: {ID: 6, Visible: true, Transform: at(0, 0, -500), Mesh: unitMesh()},
		// hidden and without mesh counts as non-renderable
		7: {ID: 7, Visible: false, Transform: at(0, 0, -5)},
	}

	r := Cull(objects, viewProj)

	if r.Accepted != 2 || len(r.Objects) != 2 {
		t.Fatalf("accepted %d (%d objects), want 2", r.Accepted, len(r.Objects))
	}
	if r.Objects[1] != objects[1] || r.Objects[5] != objects[5] {
		t.Error("accepted objects are not the originals")
	}
	if r.NonRenderable != 2 || r.Invisible != 1 || r.FrustumCulled != 2 {
		t.Errorf("reasons = %d/%d/%d, want 2/1/2", r.NonRenderable, r.Invisible, r.FrustumCulled)
	}
	if r.Culled != r.NonRenderable+r.Invisible+r.FrustumCulled {
		t.Errorf("culled %d does not add up", r.Culled)
	}
	ids := r.SortedIDs()
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 5 {
		t.Errorf("SortedIDs() = %v", ids)
	}
	if objects[1].Visible != true || len(objects) != 7 {
		t.Error("Cull modified its input")
	}
}

func TestCullEmpty(t *testing.T) {
	r := Cull(map[int32]*scene.Object{}, math.NewMat4Identity())
	if r.Accepted != 0 || r.Culled != 0 || r.Objects == nil {
		t.Fatalf("empty cull = %+v", r)
	}
}
