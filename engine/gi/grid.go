package gi

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/math"
)

const (
	/** @brief Edge length of one lattice cell in world units. */
	CELL_EXTENT float32 = 2.0
	/** @brief Cells along each axis. */
	CELL_DIMENSIONS         int = 8
	CELL_DIMENSIONS_SQUARED int = CELL_DIMENSIONS * CELL_DIMENSIONS
	/** @brief Probes along each axis; one more than cells. */
	PROBE_DIMENSIONS         int = CELL_DIMENSIONS + 1
	PROBE_DIMENSIONS_SQUARED int = PROBE_DIMENSIONS * PROBE_DIMENSIONS

	CELL_COUNT  int = CELL_DIMENSIONS * CELL_DIMENSIONS * CELL_DIMENSIONS
	PROBE_COUNT int = PROBE_DIMENSIONS * PROBE_DIMENSIONS * PROBE_DIMENSIONS

	/** @brief The farthest a shaded point can be from a probe of its cell. */
	PROBE_MAX_DIST float32 = CELL_EXTENT * math.K_SQRT_THREE

	CORNERS_PER_CELL int = 8

	/** @brief Value of an atlas slot that has not been assigned yet. */
	UNASSIGNED_SLOT int32 = -1
)

// SCENE_CENTER is the center of the lattice in world space.
var SCENE_CENTER = math.NewVec3(0, 0, 0)

// SceneMin returns the world-space corner of cell (0,0,0).
func SceneMin() math.Vec3 {
	half := CELL_EXTENT * float32(CELL_DIMENSIONS) / 2.0
	return SCENE_CENTER.Sub(math.NewVec3(half, half, half))
}

/** @brief Integer lattice coordinates of a cell or probe. */
type Coords struct {
	X, Y, Z int
}

func (c Coords) String() string {
	return fmt.Sprintf("(%d, %d, %d)", c.X, c.Y, c.Z)
}

/** @brief The eight probes at the corners of a cell, by corner = x + 2y + 4z. */
type Cell struct {
	ProbeIndices [CORNERS_PER_CELL]int32
}

/** @brief A lattice probe and the atlas tile its capture lives in. */
type Probe struct {
	AtlasSlot int32
}

// CellCoordsFromPosition truncates toward zero, like the shaders do.
func CellCoordsFromPosition(p math.Vec3) Coords {
	adjusted := p.Sub(SceneMin())
	return Coords{
		X: int(adjusted.X / CELL_EXTENT),
		Y: int(adjusted.Y / CELL_EXTENT),
		Z: int(adjusted.Z / CELL_EXTENT),
	}
}

func CellCoordsFromIndex(index int) Coords {
	return Coords{
		X: index % CELL_DIMENSIONS,
		Y: (index / CELL_DIMENSIONS) % CELL_DIMENSIONS,
		Z: index / CELL_DIMENSIONS_SQUARED,
	}
}

func ProbeCoordsFromIndex(index int) Coords {
	return Coords{
		X: index % PROBE_DIMENSIONS,
		Y: (index / PROBE_DIMENSIONS) % PROBE_DIMENSIONS,
		Z: index / PROBE_DIMENSIONS_SQUARED,
	}
}

func CellIndexFromCoords(c Coords) int {
	return c.X + c.Y*CELL_DIMENSIONS + c.Z*CELL_DIMENSIONS_SQUARED
}

func ProbeIndexFromCoords(c Coords) int {
	return c.X + c.Y*PROBE_DIMENSIONS + c.Z*PROBE_DIMENSIONS_SQUARED
}

func CellCenterFromCoords(c Coords) math.Vec3 {
	return SceneMin().Add(math.NewVec3(
		(float32(c.X)+0.5)*CELL_EXTENT,
		(float32(c.Y)+0.5)*CELL_EXTENT,
		(float32(c.Z)+0.5)*CELL_EXTENT,
	))
}

func ProbePositionFromCoords(c Coords) math.Vec3 {
	return SceneMin().Add(math.NewVec3(
		float32(c.X)*CELL_EXTENT,
		float32(c.Y)*CELL_EXTENT,
		float32(c.Z)*CELL_EXTENT,
	))
}

func ProbePositionFromIndex(index int) math.Vec3 {
	return ProbePositionFromCoords(ProbeCoordsFromIndex(index))
}

/**
 * @brief Builds every cell of the lattice with its corner probe indices.
 */
func BuildCells() []Cell {
	cells := make([]Cell, CELL_COUNT)
	for i := range cells {
		cc := CellCoordsFromIndex(i)
		for z := 0; z < 2; z++ {
			for y := 0; y < 2; y++ {
				for x := 0; x < 2; x++ {
					probe := Coords{X: cc.X + x, Y: cc.Y + y, Z: cc.Z + z}
					cells[i].ProbeIndices[x+y*2+z*4] = int32(ProbeIndexFromCoords(probe))
				}
			}
		}
	}
	return cells
}

/**
 * @brief Checks that every corner of every cell refers to a valid probe whose
 * offset from the cell matches the bits of its corner index.
 */
func ValidateCells(cells []Cell) error {
	for i, cell := range cells {
		cc := CellCoordsFromIndex(i)
		for corner, idx := range cell.ProbeIndices {
			if idx < 0 || int(idx) >= PROBE_COUNT {
				return fmt.Errorf("cell %d corner %d: probe index %d out of range", i, corner, idx)
			}
			pc := ProbeCoordsFromIndex(int(idx))
			if pc.X-cc.X != corner&1 || pc.Y-cc.Y != (corner>>1)&1 || pc.Z-cc.Z != (corner>>2)&1 {
				return fmt.Errorf("cell %d %s corner %d: probe %s does not match corner bits", i, cc, corner, pc)
			}
		}
	}
	return nil
}

// NewProbes returns PROBE_COUNT probes without atlas slots.
func NewProbes() []Probe {
	probes := make([]Probe, PROBE_COUNT)
	for i := range probes {
		probes[i].AtlasSlot = UNASSIGNED_SLOT
	}
	return probes
}
