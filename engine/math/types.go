package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

/** @brief A quaternion, used to represent rotational orientation. */
type Quaternion Vec4

/**
 * @brief a 4x4 matrix, typically used to represent object transformations.
 * Points are treated as row vectors, so a point is transformed as v * M and
 * the translation lives in elements 12, 13 and 14.
 */
type Mat4 struct {
	/** @brief The matrix elements */
	Data [16]float32
}

/**
 * @brief Represents the extents of a 3d object.
 */
type Extents3D struct {
	/** @brief The minimum extents of the object. */
	Min Vec3
	/** @brief The maximum extents of the object. */
	Max Vec3
}

/**
 * @brief A plane in the form Normal.p + Distance = 0. Points with a
 * positive signed distance are on the inner side.
 */
type Plane struct {
	Normal   Vec3
	Distance float32
}

/**
 * @brief The six clipping planes of a view frustum, in the order
 * left, right, bottom, top, near, far.
 */
type Frustum struct {
	Planes [6]Plane
}

/**
 * @brief Position, rotation and scale of an object in the world.
 */
type Transform struct {
	/** @brief The position in the world. */
	Position Vec3
	/** @brief The rotation in the world. */
	Rotation Quaternion
	/** @brief The scale in the world. */
	Scale Vec3
}
