package core

import (
	"errors"
)

var (
	ErrSwapchainBooting   = errors.New("swapchain resized or recreated, booting")
	ErrUnknownLogLevel    = errors.New("unknown log level")
	ErrInvalidAtlasLayout = errors.New("atlas total size is not a multiple of the entry size")
	ErrAtlasCapacity      = errors.New("atlas cannot hold a tile for every probe")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrUnknownBackend     = errors.New("unknown renderer backend")
	ErrInvalidHandle      = errors.New("invalid gpu handle")
	ErrShaderNotFound     = errors.New("shader source not found")
	ErrNoMemoryType       = errors.New("no suitable gpu memory type")
	ErrNoSuitableDevice   = errors.New("no gpu meets the requirements")
	ErrUnsupportedFormat  = errors.New("pixel format not supported by the device")
	ErrUnknown            = errors.New("unknown")
)
