package shaders

import (
	"errors"
	"strings"
	"testing"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

const spirvMagic uint32 = 0x07230203

func TestEveryPipelineKindHasSource(t *testing.T) {
	for _, kind := range metadata.PipelineKinds() {
		src, err := Source(kind.String())
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		for _, entry := range []string{VERTEX_ENTRY_POINT, FRAGMENT_ENTRY_POINT} {
			if !strings.Contains(src, "fn "+entry+"(") {
				t.Errorf("%s: missing entry point %s", kind, entry)
			}
		}
	}
	if got, want := len(Names()), len(metadata.PipelineKinds()); got != want {
		t.Fatalf("embedded %d shaders for %d pipeline kinds: %v", got, want, Names())
	}
}

func TestUnknownShader(t *testing.T) {
	if _, err := Source("missing"); !errors.Is(err, core.ErrShaderNotFound) {
		t.Fatalf("Source(missing) = %v", err)
	}
	if _, err := Compile("missing"); !errors.Is(err, core.ErrShaderNotFound) {
		t.Fatalf("Compile(missing) = %v", err)
	}
}

func TestCompile(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			code, err := Compile(name)
			if err != nil {
				msg := err.Error()
				if strings.Contains(msg, "not yet implemented") || strings.Contains(msg, "not supported") || strings.Contains(msg, "unsupported") {
					t.Skipf("naga feature not available: %v", err)
				}
				t.Fatalf("Compile: %v", err)
			}
			if len(code) == 0 || code[0] != spirvMagic {
				t.Fatalf("output is not SPIR-V")
			}
		})
	}
}
