package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spaghettifunk/lumen/engine/config"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/gi"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/platform"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/headless"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
	"github.com/spaghettifunk/lumen/engine/scene"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// How long a minimized window sleeps between event polls.
const suspendedPollInterval = 10 * time.Millisecond

type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    bool
	isSuspended  bool
	// nil for the headless backend.
	platform *platform.Platform
	renderer *renderer.Renderer
	preview  *gi.AtlasPreviewPass
	watcher  *config.Watcher
	ctx      *Context
	width    uint32
	height   uint32
	clock    *core.Clock
	lastTime float64
	frames   int
	// Whether the probe bake runs, toggled by the gi.enabled setting.
	giEnabled  bool
	lastCycles uint64
}

// New selects the backend named by the configuration. For the Vulkan backend
// the window is opened here so the device can create its surface.
func New(g *Game, cfg *config.Config, configPath string) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	core.SetLogLevel(cfg.LogLevel())

	e := &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		clock:        core.NewClock(),
		isRunning:    true,
		width:        cfg.Application.StartWidth,
		height:       cfg.Application.StartHeight,
		giEnabled:    cfg.GI.Enabled,
	}

	var device renderer.Device
	switch strings.ToLower(cfg.Renderer.Backend) {
	case config.BACKEND_HEADLESS:
		device = headless.New()
	case config.BACKEND_VULKAN:
		p, err := platform.New()
		if err != nil {
			return nil, err
		}
		app := cfg.Application
		if err := p.Startup(app.Name, app.StartPosX, app.StartPosY, app.StartWidth, app.StartHeight); err != nil {
			return nil, fmt.Errorf("failed to open window: %w", err)
		}
		e.platform = p
		device = vulkan.New(p, cfg.Renderer.Validation)
	default:
		return nil, fmt.Errorf("%w `%s`", core.ErrUnknownBackend, cfg.Renderer.Backend)
	}

	e.renderer = renderer.New(device)
	e.ctx = &Context{
		Config:   cfg,
		Renderer: e.renderer,
		Events:   core.NewEventBus(),
	}

	if configPath != "" {
		w, err := config.NewWatcher(configPath)
		if err != nil {
			core.LogWarn("config hot reload disabled: %s", err)
		} else {
			e.watcher = w
		}
	}
	return e, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	cfg := e.ctx.Config

	e.ctx.Events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.ctx.Events.Register(core.EVENT_CODE_RESIZED, e, e.onResized)
	if e.platform != nil {
		e.platform.SetResizeHandler(func(width, height uint32) {
			e.ctx.Events.Fire(core.EVENT_CODE_RESIZED, e.platform, core.EventContext{U32: [4]uint32{width, height}})
		})
		e.width, e.height = e.platform.FramebufferSize()
	}

	if err := e.renderer.Initialize(cfg.Application.Name, e.width, e.height, gi.PipelineDescs()); err != nil {
		return err
	}

	world, err := scene.NewWorld(e.renderer.Device(), cfg.Renderer.LightCapacity)
	if err != nil {
		return fmt.Errorf("failed to create scene world: %w", err)
	}
	e.ctx.World = world

	core.LogInfo("initializing `%s` on the %s backend", e.gameInstance.Name, cfg.Renderer.Backend)
	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e.ctx); err != nil {
			return err
		}
	}

	if e.giEnabled {
		if err := e.createGIScene(); err != nil {
			return err
		}
	}

	if e.platform != nil {
		clear := cfg.Renderer.ClearColor
		e.preview, err = gi.NewAtlasPreviewPass(e.ctx.GIContext(), e.width, e.height, math.NewVec4(clear[0], clear[1], clear[2], clear[3]))
		if err != nil {
			return fmt.Errorf("failed to create atlas preview: %w", err)
		}
	}

	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.ctx, e.width, e.height); err != nil {
			return err
		}
	}

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) createGIScene() error {
	cfg := e.ctx.Config.GI
	s, err := gi.NewScene(e.ctx.GIContext(), gi.SceneConfig{
		CubemapSize:        cfg.CubemapCaptureSize,
		AtlasTotalSize:     cfg.AtlasTotalSize,
		AtlasEntrySize:     cfg.AtlasEntrySize,
		ProbesPerUpdate:    cfg.ProbesPerUpdate,
		StopAfterFullCycle: cfg.StopAfterFullCycle,
	})
	if err != nil {
		return fmt.Errorf("failed to create gi scene: %w", err)
	}
	e.ctx.GI = s
	e.lastCycles = 0
	return nil
}

// Run drives frames until the window closes, the configured frame count is
// reached or ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	limit := e.ctx.Config.Application.Frames
	if e.platform == nil && limit == 0 {
		core.LogWarn("headless backend without a frame limit, running until interrupted")
	}

	for e.isRunning {
		select {
		case <-ctx.Done():
			core.LogInfo("interrupted, shutting down")
			e.ctx.Events.Fire(core.EVENT_CODE_APPLICATION_QUIT, nil, core.EventContext{})
			continue
		default:
		}

		if e.platform != nil && !e.platform.PumpMessages() {
			e.ctx.Events.Fire(core.EVENT_CODE_APPLICATION_QUIT, e.platform, core.EventContext{})
			continue
		}

		if err := e.applyConfigReloads(); err != nil {
			return err
		}

		if e.isSuspended {
			time.Sleep(suspendedPollInterval)
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime

		if err := e.frame(delta); err != nil {
			return err
		}

		e.lastTime = currentTime
		e.frames++
		if limit > 0 && e.frames >= limit {
			core.LogInfo("rendered %d frames, shutting down", e.frames)
			e.isRunning = false
		}
	}
	return nil
}

func (e *Engine) frame(delta float64) error {
	if fn := e.gameInstance.FnUpdate; fn != nil {
		if err := fn(e.ctx, delta); err != nil {
			return fmt.Errorf("game update failed: %w", err)
		}
	}

	var frameErr error
	err := e.renderer.DrawFrame(delta, func() {
		if err := e.ctx.World.Sync(); err != nil {
			frameErr = fmt.Errorf("failed to sync scene: %w", err)
			return
		}
		if e.giEnabled && e.ctx.GI != nil {
			if err := e.ctx.GI.Update(e.ctx.GIContext()); err != nil {
				frameErr = err
				return
			}
		}
		if fn := e.gameInstance.FnRender; fn != nil {
			if err := fn(e.ctx, delta); err != nil {
				frameErr = fmt.Errorf("game render failed: %w", err)
				return
			}
		}
		if e.preview != nil && e.ctx.GI != nil {
			e.preview.Draw(e.ctx.GIContext(), e.ctx.GI)
		}
	})
	if frameErr != nil {
		core.LogError("%s", frameErr)
		return frameErr
	}
	if err != nil {
		return err
	}

	e.fireBakeProgress()
	return nil
}

func (e *Engine) fireBakeProgress() {
	if e.ctx.GI == nil {
		return
	}
	m := e.ctx.GI.Metrics()
	if m.FullCycles == e.lastCycles {
		return
	}
	e.lastCycles = m.FullCycles
	core.LogInfo("probe bake cycle %d complete, %d captures, avg %.3fms", m.FullCycles, m.Captures, m.AverageMS())
	e.ctx.Events.Fire(core.EVENT_CODE_BAKE_CYCLE_COMPLETE, e.ctx.GI, core.EventContext{
		U32: [4]uint32{uint32(m.FullCycles)},
		F64: [2]float64{m.AverageMS()},
	})
}

// applyConfigReloads applies the settings that are safe to change between
// frames. Everything else needs a restart.
func (e *Engine) applyConfigReloads() error {
	if e.watcher == nil {
		return nil
	}
	for drained := false; !drained; {
		select {
		case err := <-e.watcher.Errors():
			core.LogWarn("config reload: %s", err)
		default:
			drained = true
		}
	}

	next := e.watcher.Drain()
	if next == nil {
		return nil
	}
	return e.applyConfig(next)
}

func (e *Engine) applyConfig(next *config.Config) error {
	cfg := e.ctx.Config
	if cfg.Renderer.LogLevel != next.Renderer.LogLevel {
		core.SetLogLevel(next.LogLevel())
		cfg.Renderer.LogLevel = next.Renderer.LogLevel
	}

	cfg.GI.ProbesPerUpdate = next.GI.ProbesPerUpdate
	cfg.GI.StopAfterFullCycle = next.GI.StopAfterFullCycle
	if s := e.ctx.GI; s != nil {
		s.SetProbesPerUpdate(next.GI.ProbesPerUpdate)
		s.SetStopAfterFullCycle(next.GI.StopAfterFullCycle)
	}

	if next.GI.Enabled != e.giEnabled {
		e.giEnabled = next.GI.Enabled
		cfg.GI.Enabled = next.GI.Enabled
		if e.giEnabled {
			if e.ctx.GI == nil {
				if err := e.createGIScene(); err != nil {
					return err
				}
			} else {
				e.ctx.GI.RestartBake()
			}
			core.LogInfo("probe bake enabled")
		} else {
			core.LogInfo("probe bake paused")
		}
	}

	if next.Renderer.Backend != cfg.Renderer.Backend || next.GI.AtlasTotalSize != cfg.GI.AtlasTotalSize ||
		next.GI.AtlasEntrySize != cfg.GI.AtlasEntrySize || next.GI.CubemapCaptureSize != cfg.GI.CubemapCaptureSize {
		core.LogWarn("backend and atlas settings only take effect after a restart")
	}

	e.ctx.Events.Fire(core.EVENT_CODE_CONFIG_RELOADED, e.watcher, core.EventContext{Payload: next})
	return nil
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if e.watcher != nil {
		keep(e.watcher.Close())
		e.watcher = nil
	}
	if fn := e.gameInstance.FnShutdown; fn != nil && e.ctx.World != nil {
		keep(fn(e.ctx))
	}
	if e.preview != nil {
		e.preview.Release()
		e.preview = nil
	}
	if e.ctx.GI != nil {
		e.ctx.GI.Release()
		e.ctx.GI = nil
	}
	if e.ctx.World != nil {
		e.ctx.World.Release()
		e.ctx.World = nil
	}
	keep(e.renderer.Shutdown())
	if e.platform != nil {
		keep(e.platform.Shutdown())
		e.platform = nil
	}
	e.ctx.Events.Shutdown()
	e.currentStage = EngineStageUninitialized
	return firstErr
}

// Context exposes the engine context, e.g. for writing bake results after Run.
func (e *Engine) Context() *Context { return e.ctx }

func (e *Engine) Stage() Stage { return e.currentStage }

func (e *Engine) Frames() int { return e.frames }

func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	switch code {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning = false
		return true
	}
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	width, height := data.U32[0], data.U32[1]
	if width == e.width && height == e.height {
		return false
	}
	e.width = width
	e.height = height
	core.LogDebug("Window resize: %d, %d", width, height)

	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return false
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}

	if err := e.renderer.OnResize(width, height); err != nil {
		core.LogError("%s", err)
	}
	if e.preview != nil {
		if err := e.preview.Resize(width, height); err != nil {
			core.LogError("%s", err)
		}
	}
	if fn := e.gameInstance.FnOnResize; fn != nil {
		if err := fn(e.ctx, width, height); err != nil {
			core.LogError("%s", err)
		}
	}
	return false
}
