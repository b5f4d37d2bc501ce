package shaders

import (
	"embed"
	"fmt"
	"path"
	"strings"

	"github.com/gogpu/naga"
	"github.com/spaghettifunk/lumen/engine/core"
	"golang.org/x/exp/slices"
)

const (
	VERTEX_ENTRY_POINT   = "vs_main"
	FRAGMENT_ENTRY_POINT = "fs_main"
)

//go:embed wgsl/*.wgsl
var sources embed.FS

// Names lists the embedded shader modules in sorted order.
func Names() []string {
	entries, err := sources.ReadDir("wgsl")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".wgsl"))
	}
	slices.Sort(names)
	return names
}

// Source returns the WGSL text of the named shader module.
func Source(name string) (string, error) {
	data, err := sources.ReadFile(path.Join("wgsl", name+".wgsl"))
	if err != nil {
		return "", fmt.Errorf("%w: `%s`", core.ErrShaderNotFound, name)
	}
	return string(data), nil
}

/**
 * @brief Compiles the named WGSL module to SPIR-V words. Both entry points
 * live in the same module.
 */
func Compile(name string) ([]uint32, error) {
	src, err := Source(name)
	if err != nil {
		return nil, err
	}
	spirvBytes, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("failed to compile shader `%s`: %w", name, err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("shader `%s` produced %d bytes of SPIR-V, not a whole number of words", name, len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	core.LogDebug("shader `%s` compiled (%d words)", name, len(code))
	return code, nil
}
