package math

import "testing"

const tol float32 = 1e-4

func TestMat4InverseRoundTrip(t *testing.T) {
	m := NewMat4Scale(NewVec3(2, 3, 4)).
		Mul(NewQuatFromAxisAngle(NewVec3(0, 1, 0), 0.7, true).ToMat4()).
		Mul(NewMat4Translation(NewVec3(1, -2, 3)))

	got := m.Mul(m.Inverse())
	if !got.Compare(NewMat4Identity(), tol) {
		t.Fatalf("m * inverse(m) = %v, want identity", got.Data)
	}
}

func TestLookAt(t *testing.T) {
	eye := NewVec3(1, 2, 3)
	target := NewVec3(1, 2, -7)
	view := NewMat4LookAt(eye, target, NewVec3(0, 1, 0))

	if p := eye.Transform(view); !p.Compare(NewVec3Zero(), tol) {
		t.Errorf("eye in view space = %+v, want origin", p)
	}
	if p := target.Transform(view); !p.Compare(NewVec3(0, 0, -10), tol) {
		t.Errorf("target in view space = %+v, want (0,0,-10)", p)
	}
	// +Y stays up
	if p := NewVec3(1, 3, 3).Transform(view); !p.Compare(NewVec3(0, 1, 0), tol) {
		t.Errorf("up point in view space = %+v, want (0,1,0)", p)
	}
}

func TestQuaternionRotation(t *testing.T) {
	q := NewQuatFromAxisAngle(NewVec3(0, 0, 1), K_HALF_PI, true)
	got := NewVec3(1, 0, 0).Transform(q.ToMat4())
	if !got.Compare(NewVec3(0, 1, 0), tol) {
		t.Fatalf("rotated x axis = %+v, want (0,1,0)", got)
	}
}

func TestTransformWorld(t *testing.T) {
	tr := Transform{
		Position: NewVec3(10, 0, 0),
		Rotation: NewQuatFromAxisAngle(NewVec3(0, 0, 1), K_HALF_PI, true),
		Scale:    NewVec3(2, 2, 2),
	}
	got := NewVec3(1, 0, 0).Transform(tr.World())
	if !got.Compare(NewVec3(10, 2, 0), tol) {
		t.Fatalf("world point = %+v, want (10,2,0)", got)
	}

	if got := NewVec3(1, 2, 3).Transform(NewTransform().World()); !got.Compare(NewVec3(1, 2, 3), tol) {
		t.Errorf("default transform moved the point to %+v", got)
	}
}

func TestFrustumIdentity(t *testing.T) {
	f := NewFrustumFromMatrix(NewMat4Identity())

	tests := []struct {
		name  string
		point Vec3
		want  bool
	}{
		{"origin", NewVec3Zero(), true},
		{"corner", NewVec3(1, 1, 1), true},
		{"right of cube", NewVec3(2, 0, 0), false},
		{"below cube", NewVec3(0, -1.5, 0), false},
		{"behind cube", NewVec3(0, 0, 3), false},
		{"before near plane", NewVec3(0, 0, -0.5), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.ContainsPoint(tt.point); got != tt.want {
				t.Errorf("ContainsPoint(%+v) = %v, want %v", tt.point, got, tt.want)
			}
		})
	}
}

func TestFrustumPerspective(t *testing.T) {
	view := NewMat4LookAt(NewVec3Zero(), NewVec3(0, 0, -1), NewVec3(0, 1, 0))
	proj := NewMat4Perspective(DegToRad(90), 1, 0.1, 100)
	f := NewFrustumFromMatrix(view.Mul(proj))

	tests := []struct {
		name string
		box  Extents3D
		want bool
	}{
		{"in front", Extents3D{NewVec3(-1, -1, -6), NewVec3(1, 1, -4)}, true},
		{"behind camera", Extents3D{NewVec3(-1, -1, 4), NewVec3(1, 1, 6)}, false},
		{"beyond far plane", Extents3D{NewVec3(-1, -1, -300), NewVec3(1, 1, -200)}, false},
		{"far to the left", Extents3D{NewVec3(-60, -1, -6), NewVec3(-50, 1, -4)}, false},
		{"straddles left plane", Extents3D{NewVec3(-8, -1, -6), NewVec3(-4, 1, -4)}, true},
		{"contains camera", Extents3D{NewVec3(-1, -1, -1), NewVec3(1, 1, 1)}, true},
		{"closer than near plane", Extents3D{NewVec3(-0.01, -0.01, -0.05), NewVec3(0.01, 0.01, -0.02)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.IntersectsAABB(tt.box); got != tt.want {
				t.Errorf("IntersectsAABB(%+v) = %v, want %v", tt.box, got, tt.want)
			}
		})
	}
}

func TestPerspectiveDepthRange(t *testing.T) {
	const near, far = 0.1, 100
	proj := NewMat4Perspective(DegToRad(90), 1, near, far)

	tests := []struct {
		name  string
		viewZ float32
		want  float32
	}{
		{"near plane", -near, 0},
		{"far plane", -far, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewVec4(0, 0, tt.viewZ, 1).Transform(proj).PerspectiveDivide().Z
			if Abs(got-tt.want) > 1e-5 {
				t.Errorf("depth at z=%v is %v, want %v", tt.viewZ, got, tt.want)
			}
		})
	}

	mid := NewVec4(0, 0, -10, 1).Transform(proj).PerspectiveDivide().Z
	if mid <= 0 || mid >= 1 {
		t.Errorf("depth at z=-10 is %v, want inside (0, 1)", mid)
	}
}

func TestExtentsTransform(t *testing.T) {
	box := Extents3D{NewVec3(-1, -1, -1), NewVec3(1, 1, 1)}
	got := box.Transform(NewMat4Scale(NewVec3(2, 1, 1)).Mul(NewMat4Translation(NewVec3(5, 0, 0))))
	if !got.Min.Compare(NewVec3(3, -1, -1), tol) || !got.Max.Compare(NewVec3(7, 1, 1), tol) {
		t.Fatalf("transformed box = %+v", got)
	}
	if c := got.Center(); !c.Compare(NewVec3(5, 0, 0), tol) {
		t.Errorf("center = %+v, want (5,0,0)", c)
	}
}

func TestClamp(t *testing.T) {
	if Clamp(5, 0, 3) != 3 || Clamp(-1, 0, 3) != 0 || Clamp(2, 0, 3) != 2 {
		t.Fatal("Clamp returned a value outside the range")
	}
	if Clamp(float32(0.5), 0, 1) != 0.5 {
		t.Fatal("Clamp changed an in-range float")
	}
}
