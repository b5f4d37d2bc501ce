//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
	"github.com/spaghettifunk/lumen/engine/renderer/shaders"
)

type Build mg.Namespace

// Compiles every embedded WGSL shader to SPIR-V through naga.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the bake demo binary into bin/.
func (Build) Bake() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", "bin/lumen", "."), withStream())
	return err
}

func buildShaders() error {
	failed := 0
	for _, name := range shaders.Names() {
		words, err := shaders.Compile(name)
		if err != nil {
			fmt.Printf("  %-24s FAILED: %v\n", name, err)
			failed++
			continue
		}
		fmt.Printf("  %-24s %6d words\n", name, len(words))
	}
	if failed > 0 {
		return fmt.Errorf("%d shader(s) failed to compile", failed)
	}
	return nil
}
