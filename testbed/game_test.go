package testbed

import (
	"context"
	"testing"

	"github.com/spaghettifunk/lumen/engine"
	"github.com/spaghettifunk/lumen/engine/config"
	"github.com/spaghettifunk/lumen/engine/renderer/headless"
)

func TestCheckerPixels(t *testing.T) {
	pixels := checkerPixels(4, 2)
	if len(pixels) != 4*4*4 {
		t.Fatalf("expected 64 bytes, got %d", len(pixels))
	}
	// (0,0) is light, (2,0) starts the next tile.
	if pixels[0] != 200 || pixels[2*4] != 60 || pixels[3] != 255 {
		t.Fatalf("unexpected checker pattern %v", pixels[:16])
	}
}

func TestTestbedBakesHeadless(t *testing.T) {
	cfg := config.Default()
	cfg.Renderer.Backend = config.BACKEND_HEADLESS
	cfg.Renderer.LogLevel = "error"
	cfg.GI.CubemapCaptureSize = 16
	cfg.GI.ProbesPerUpdate = 4
	cfg.Application.Frames = 2

	game := NewTestGame()
	e, err := engine.New(game.Game, cfg, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	ctx := e.Context()

	// Five walls, two boxes and the lamp carry meshes; four objects are lights.
	if got := ctx.World.Objects.Len(); got != 12 {
		t.Fatalf("expected 12 objects, got %d", got)
	}
	if got := ctx.World.Materials.Len(); got != 5 {
		t.Fatalf("expected 5 materials, got %d", got)
	}

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := ctx.GI.Metrics().Captures; got != 8 {
		t.Fatalf("expected 8 captures, got %d", got)
	}
	points, spots, suns := ctx.World.Lights.Counts()
	if points != 1 || spots != 1 || suns != 1 {
		t.Fatalf("expected one light of each supported kind, got %d/%d/%d", points, spots, suns)
	}

	ctx.GI.SetStopAfterFullCycle(true)
	if err := game.RotateShortBox(ctx, 45); err != nil {
		t.Fatalf("RotateShortBox: %v", err)
	}
	if !ctx.GI.Updating() {
		t.Fatal("rotating the box must restart the bake")
	}

	device := ctx.Renderer.Device().(*headless.Device)
	if err := e.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if device.LiveBuffers() != 0 || device.LiveImages() != 0 {
		t.Fatalf("leaked %d buffers and %d images", device.LiveBuffers(), device.LiveImages())
	}
}
