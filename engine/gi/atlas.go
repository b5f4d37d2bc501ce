package gi

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/core"
)

/**
 * @brief Checks that an atlas of totalSize texels splits evenly into tiles of
 * entrySize texels and that there is one tile for every probe.
 */
func ValidateAtlas(totalSize, entrySize, probeCount int) error {
	if totalSize <= 0 || entrySize <= 0 {
		return fmt.Errorf("%w: total=%d entry=%d", core.ErrInvalidAtlasLayout, totalSize, entrySize)
	}
	if entrySize <= int(ATLAS_GUTTER_SIZE)*2 {
		return fmt.Errorf("%w: entry size %d leaves no room inside the %v texel gutter", core.ErrInvalidAtlasLayout, entrySize, ATLAS_GUTTER_SIZE)
	}
	if totalSize < entrySize || totalSize%entrySize != 0 {
		return fmt.Errorf("%w: total size %d is not a multiple of entry size %d", core.ErrInvalidAtlasLayout, totalSize, entrySize)
	}
	if slots := AtlasSlots(totalSize, entrySize); slots < probeCount {
		return fmt.Errorf("%w: %d tiles for %d probes (total=%d, entry=%d)", core.ErrAtlasCapacity, slots, probeCount, totalSize, entrySize)
	}
	return nil
}
