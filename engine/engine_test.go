package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/spaghettifunk/lumen/engine/config"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/headless"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Renderer.Backend = config.BACKEND_HEADLESS
	cfg.Renderer.LogLevel = "error"
	cfg.Application.StartWidth = 64
	cfg.Application.StartHeight = 64
	cfg.GI.CubemapCaptureSize = 16
	return cfg
}

type hookCounts struct {
	initialize, update, render, resize, shutdown int
}

func countingGame(counts *hookCounts) *Game {
	return &Game{
		Name: "test",
		FnInitialize: func(ctx *Context) error {
			counts.initialize++
			if ctx.World == nil {
				return errors.New("world missing at initialize")
			}
			return nil
		},
		FnUpdate: func(ctx *Context, deltaTime float64) error {
			counts.update++
			return nil
		},
		FnRender: func(ctx *Context, deltaTime float64) error {
			counts.render++
			return nil
		},
		FnOnResize: func(ctx *Context, width, height uint32) error {
			counts.resize++
			return nil
		},
		FnShutdown: func(ctx *Context) error {
			counts.shutdown++
			return nil
		},
	}
}

func TestRunHeadlessFrames(t *testing.T) {
	cfg := testConfig()
	cfg.Application.Frames = 3
	cfg.GI.ProbesPerUpdate = 2

	var counts hookCounts
	e, err := New(countingGame(&counts), cfg, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if e.Frames() != 3 {
		t.Fatalf("expected 3 frames, got %d", e.Frames())
	}
	if counts.initialize != 1 || counts.update != 3 || counts.render != 3 || counts.resize != 1 {
		t.Fatalf("unexpected hook counts %+v", counts)
	}
	s := e.Context().GI
	if s == nil {
		t.Fatal("expected a gi scene")
	}
	if got := s.Metrics().Captures; got != 6 {
		t.Fatalf("expected 6 captures, got %d", got)
	}
	if s.NextProbeIndex() != 6 {
		t.Fatalf("expected the cursor at 6, got %d", s.NextProbeIndex())
	}
	device := e.Context().Renderer.Device().(*headless.Device)
	if device.Frames() != 3 {
		t.Fatalf("expected 3 device frames, got %d", device.Frames())
	}

	if err := e.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if counts.shutdown != 1 {
		t.Fatalf("expected one shutdown call, got %d", counts.shutdown)
	}
	if device.LiveBuffers() != 0 || device.LiveImages() != 0 || device.LiveViews() != 0 || device.LivePipelines() != 0 {
		t.Fatalf("leaked objects: %d buffers, %d images, %d views, %d pipelines",
			device.LiveBuffers(), device.LiveImages(), device.LiveViews(), device.LivePipelines())
	}
}

func TestRunStopsWhenContextIsDone(t *testing.T) {
	cfg := testConfig()
	ctx, cancel := context.WithCancel(context.Background())

	var counts hookCounts
	game := countingGame(&counts)
	game.FnUpdate = func(*Context, float64) error {
		counts.update++
		if counts.update == 2 {
			cancel()
		}
		return nil
	}
	if err := Run(ctx, game, cfg, ""); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if counts.update != 2 || counts.shutdown != 1 {
		t.Fatalf("unexpected hook counts %+v", counts)
	}
}

func TestUpdateErrorStopsRun(t *testing.T) {
	cfg := testConfig()
	cfg.Application.Frames = 10
	boom := errors.New("boom")

	var counts hookCounts
	game := countingGame(&counts)
	game.FnUpdate = func(*Context, float64) error { return boom }
	if err := Run(context.Background(), game, cfg, ""); !errors.Is(err, boom) {
		t.Fatalf("expected the update error, got %v", err)
	}
	if counts.shutdown != 1 {
		t.Fatal("shutdown must run after a failed frame")
	}
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	cfg := testConfig()
	cfg.Renderer.Backend = "metal"
	if _, err := New(&Game{}, cfg, ""); !errors.Is(err, core.ErrUnknownBackend) {
		t.Fatalf("expected ErrUnknownBackend, got %v", err)
	}
}

func TestInitializeReportsAtlasCapacity(t *testing.T) {
	cfg := testConfig()
	cfg.GI.AtlasTotalSize = 64
	cfg.GI.AtlasEntrySize = 16

	e, err := New(&Game{}, cfg, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Shutdown()
	if err := e.Initialize(); !errors.Is(err, core.ErrAtlasCapacity) {
		t.Fatalf("expected ErrAtlasCapacity, got %v", err)
	}
}

func TestApplyConfig(t *testing.T) {
	cfg := testConfig()
	cfg.GI.Enabled = false

	e, err := New(&Game{}, cfg, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Shutdown()
	if err := e.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if e.Context().GI != nil {
		t.Fatal("disabled bake must not create a gi scene")
	}

	var reloaded *config.Config
	listener := &struct{}{}
	e.Context().Events.Register(core.EVENT_CODE_CONFIG_RELOADED, listener,
		func(code core.SystemEventCode, sender, inst interface{}, data core.EventContext) bool {
			reloaded, _ = data.Payload.(*config.Config)
			return true
		})

	next := testConfig()
	next.GI.Enabled = true
	next.GI.ProbesPerUpdate = 4
	next.GI.StopAfterFullCycle = true
	if err := e.applyConfig(next); err != nil {
		t.Fatalf("applyConfig: %v", err)
	}

	s := e.Context().GI
	if s == nil {
		t.Fatal("enabling the bake must create the gi scene")
	}
	if s.Config().ProbesPerUpdate != 4 || !s.Config().StopAfterFullCycle {
		t.Fatalf("runtime settings not applied: %+v", s.Config())
	}
	if reloaded != next {
		t.Fatal("expected the reload event to carry the new config")
	}

	off := testConfig()
	off.GI.Enabled = false
	if err := e.applyConfig(off); err != nil {
		t.Fatalf("applyConfig: %v", err)
	}
	if e.giEnabled || e.Context().Config.GI.Enabled {
		t.Fatal("expected the bake to be paused")
	}
}

func TestBakeCycleEvent(t *testing.T) {
	cfg := testConfig()
	cfg.GI.ProbesPerUpdate = 729
	cfg.GI.StopAfterFullCycle = true
	cfg.Application.Frames = 2

	e, err := New(&Game{}, cfg, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Shutdown()
	if err := e.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	var cycles []uint32
	listener := &struct{}{}
	e.Context().Events.Register(core.EVENT_CODE_BAKE_CYCLE_COMPLETE, listener,
		func(code core.SystemEventCode, sender, inst interface{}, data core.EventContext) bool {
			cycles = append(cycles, data.U32[0])
			return false
		})
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(cycles) != 1 || cycles[0] != 1 {
		t.Fatalf("expected one cycle event, got %v", cycles)
	}
	if e.Context().GI.Updating() {
		t.Fatal("bake should stop after the full cycle")
	}
}
