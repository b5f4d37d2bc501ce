package math

/**
 * @brief Extracts the six clipping planes from a combined view-projection
 * matrix with 0..1 clip depth. Planes are normalized and point inwards.
 *
 * @param viewProj The view matrix multiplied by the projection matrix.
 * @return The frustum.
 */
func NewFrustumFromMatrix(viewProj Mat4) Frustum {
	d := viewProj.Data
	col := func(j int) Vec4 {
		return Vec4{d[j], d[4+j], d[8+j], d[12+j]}
	}
	c0, c1, c2, c3 := col(0), col(1), col(2), col(3)

	add := func(a, b Vec4) Vec4 { return Vec4{a.X + b.X, a.Y + b.Y, a.Z + b.Z, a.W + b.W} }
	sub := func(a, b Vec4) Vec4 { return Vec4{a.X - b.X, a.Y - b.Y, a.Z - b.Z, a.W - b.W} }

	raw := [6]Vec4{
		add(c3, c0), // left
		sub(c3, c0), // right
		add(c3, c1), // bottom
		sub(c3, c1), // top
		c2,          // near
		sub(c3, c2), // far
	}

	f := Frustum{}
	for i, p := range raw {
		f.Planes[i] = NewPlane(p)
	}
	return f
}

/**
 * @brief Builds a normalized plane from its (a, b, c, d) coefficients.
 */
func NewPlane(coefficients Vec4) Plane {
	n := Vec3{coefficients.X, coefficients.Y, coefficients.Z}
	length := n.Length()
	if length == 0 {
		return Plane{}
	}
	return Plane{
		Normal:   n.MulScalar(1.0 / length),
		Distance: coefficients.W / length,
	}
}

/**
 * @brief Returns the signed distance from the plane to the point.
 */
func (p Plane) SignedDistance(point Vec3) float32 {
	return p.Normal.Dot(point) + p.Distance
}

/**
 * @brief Reports whether the point lies inside every plane.
 */
func (f Frustum) ContainsPoint(point Vec3) bool {
	for _, p := range f.Planes {
		if p.SignedDistance(point) < 0 {
			return false
		}
	}
	return true
}

/**
 * @brief Reports whether the axis-aligned box touches the frustum. The test
 * is conservative: boxes near a frustum corner may be reported as visible.
 */
func (f Frustum) IntersectsAABB(box Extents3D) bool {
	for _, p := range f.Planes {
		positive := box.Min
		if p.Normal.X >= 0 {
			positive.X = box.Max.X
		}
		if p.Normal.Y >= 0 {
			positive.Y = box.Max.Y
		}
		if p.Normal.Z >= 0 {
			positive.Z = box.Max.Z
		}
		if p.SignedDistance(positive) < 0 {
			return false
		}
	}
	return true
}

/**
 * @brief Returns the box that encloses the eight corners of e after
 * transformation by m.
 */
func (e Extents3D) Transform(m Mat4) Extents3D {
	corners := [8]Vec3{
		{e.Min.X, e.Min.Y, e.Min.Z},
		{e.Max.X, e.Min.Y, e.Min.Z},
		{e.Min.X, e.Max.Y, e.Min.Z},
		{e.Max.X, e.Max.Y, e.Min.Z},
		{e.Min.X, e.Min.Y, e.Max.Z},
		{e.Max.X, e.Min.Y, e.Max.Z},
		{e.Min.X, e.Max.Y, e.Max.Z},
		{e.Max.X, e.Max.Y, e.Max.Z},
	}
	first := corners[0].Transform(m)
	out := Extents3D{Min: first, Max: first}
	for _, c := range corners[1:] {
		p := c.Transform(m)
		out.Min = out.Min.Min(p)
		out.Max = out.Max.Max(p)
	}
	return out
}

/**
 * @brief Returns the center point of the extents.
 */
func (e Extents3D) Center() Vec3 {
	return e.Min.Add(e.Max).MulScalar(0.5)
}
