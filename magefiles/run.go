//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Validates the shaders and bakes the testbed scene on the headless backend.
func (Run) Bake() error {
	if err := buildShaders(); err != nil {
		return err
	}
	fmt.Println("Run bake...")
	_, err := executeCmd("go", withArgs("run", ".", "-config", "lumen.toml", "-backend", "headless"), withStream())
	return err
}

// Opens a window and bakes on the Vulkan backend, presenting the atlas.
func (Run) Vulkan() error {
	if err := buildShaders(); err != nil {
		return err
	}
	_, err := executeCmd("go", withArgs("run", ".", "-config", "lumen.toml", "-backend", "vulkan", "-frames", "0"), withStream())
	return err
}

type Test mg.Namespace

// Runs every package test.
func (Test) All() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withStream())
	return err
}

// Runs the tests of the probe bake and the render layer only.
func (Test) GI() error {
	_, err := executeCmd("go", withArgs("test", "./engine/gi/...", "./engine/renderer/..."), withStream())
	return err
}
