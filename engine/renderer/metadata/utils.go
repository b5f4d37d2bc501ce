package metadata

import (
	"encoding/binary"
	"math"
)

/** @brief A range of memory, aligned to the device's requirements. */
type MemoryRange struct {
	Offset uint64
	Size   uint64
}

func GetAlignedRange(offset, size, granularity uint64) MemoryRange {
	return MemoryRange{
		Offset: GetAligned(offset, granularity),
		Size:   GetAligned(size, granularity),
	}
}

func GetAligned(operand, granularity uint64) uint64 {
	val := (operand + (granularity - 1)) &^ (granularity - 1)
	return val
}

// Float32Bytes packs values little-endian, the layout shaders read uniforms
// and storage arrays in.
func Float32Bytes(values ...float32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

// Int32Bytes packs values little-endian.
func Int32Bytes(values ...int32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], uint32(v))
	}
	return out
}
