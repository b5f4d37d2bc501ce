package gi

import (
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// ATLAS_GUTTER_SIZE is the border, in texels, around the data of every tile.
const ATLAS_GUTTER_SIZE float32 = 2.0

func signNotZero(x float32) float32 {
	if x >= 0 {
		return 1
	}
	return -1
}

/**
 * @brief Maps a unit vector onto the [-1, 1] square. The lower hemisphere is
 * folded over the diagonals.
 */
func OctEncode(v math.Vec3) math.Vec2 {
	l1norm := math.Abs(v.X) + math.Abs(v.Y) + math.Abs(v.Z)
	p := math.NewVec2(v.X/l1norm, v.Y/l1norm)
	if v.Z < 0 {
		folded := p.YX().Abs()
		p = math.NewVec2(
			(1-folded.X)*signNotZero(p.X),
			(1-folded.Y)*signNotZero(p.Y),
		)
	}
	return p
}

/**
 * @brief Inverse of OctEncode. Returns a unit vector.
 */
func OctDecode(p math.Vec2) math.Vec3 {
	v := math.NewVec3(p.X, p.Y, 1-math.Abs(p.X)-math.Abs(p.Y))
	if v.Z < 0 {
		x := (1 - math.Abs(v.Y)) * signNotZero(v.X)
		y := (1 - math.Abs(v.X)) * signNotZero(v.Y)
		v.X, v.Y = x, y
	}
	return v.Normalize()
}

/**
 * @brief Remaps a [0, 1] tile coordinate so that the gutter falls outside
 * [-1, 1], ready for OctDecode.
 */
func PadUV(uv math.Vec2, entrySize float32) math.Vec2 {
	active := entrySize - ATLAS_GUTTER_SIZE*2
	remapped := uv.MulScalar(entrySize).Sub(math.NewVec2(ATLAS_GUTTER_SIZE, ATLAS_GUTTER_SIZE)).DivScalar(active)
	return remapped.MulScalar(2).Sub(math.NewVec2(1, 1))
}

/**
 * @brief Returns the atlas-wide UV at which the tile of probe slot index
 * stores the direction n.
 */
func PaddedAtlasUVFromNormal(n math.Vec3, index, totalSize, entrySize int) math.Vec2 {
	local := OctEncode(n.Normalize()).MulScalar(0.5).Add(math.NewVec2(0.5, 0.5))

	total := float32(totalSize)
	scaleToEntry := (float32(entrySize) - ATLAS_GUTTER_SIZE*2) / total
	marginOffset := ATLAS_GUTTER_SIZE / total

	slotsPerDim := totalSize / entrySize
	slotOffset := math.NewVec2(float32(index%slotsPerDim), float32(index/slotsPerDim)).MulScalar(float32(entrySize) / total)

	return local.MulScalar(scaleToEntry).Add(math.NewVec2(marginOffset, marginOffset)).Add(slotOffset)
}

/**
 * @brief Returns the pixel rectangle of tile index in a row-major grid of
 * totalSize/entrySize tiles per row. Violated preconditions are fatal.
 */
func AtlasViewport(index, totalSize, entrySize int) metadata.Viewport {
	core.Assert(totalSize > 0 && entrySize > 0, "atlas sizes must be positive (total=%d, entry=%d)", totalSize, entrySize)
	core.Assert(totalSize >= entrySize, "atlas total size %d smaller than entry size %d", totalSize, entrySize)
	core.Assert(totalSize%entrySize == 0, "atlas total size %d is not a multiple of entry size %d", totalSize, entrySize)

	slotsPerDim := totalSize / entrySize
	core.Assert(index >= 0 && index < slotsPerDim*slotsPerDim, "atlas slot %d out of range [0, %d)", index, slotsPerDim*slotsPerDim)

	return metadata.Viewport{
		X:      int32((index % slotsPerDim) * entrySize),
		Y:      int32((index / slotsPerDim) * entrySize),
		Width:  int32(entrySize),
		Height: int32(entrySize),
	}
}

// AtlasSlots returns how many tiles fit in the atlas.
func AtlasSlots(totalSize, entrySize int) int {
	if entrySize <= 0 {
		return 0
	}
	slotsPerDim := totalSize / entrySize
	return slotsPerDim * slotsPerDim
}
