package engine

import (
	"context"

	"github.com/spaghettifunk/lumen/engine/config"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/gi"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/scene"
)

/**
 * @brief Everything a game hook may touch. The engine owns every field;
 * nothing here is global.
 */
type Context struct {
	Config   *config.Config
	Renderer *renderer.Renderer
	World    *scene.World
	/** @brief nil until the probe bake is enabled. */
	GI     *gi.Scene
	Events *core.EventBus
}

// GIContext returns the collaborators a probe capture reads from.
func (c *Context) GIContext() *gi.Context {
	return &gi.Context{
		Device:    c.Renderer.Device(),
		Pipelines: c.Renderer.Pipelines(),
		World:     c.World,
	}
}

/**
 * @brief Creates, runs and shuts down an engine for the game. configPath may
 * be empty; when set, the file is watched and runtime-safe settings are
 * applied between frames. The frame loop stops when ctx is done.
 */
func Run(ctx context.Context, game *Game, cfg *config.Config, configPath string) error {
	e, err := New(game, cfg, configPath)
	if err != nil {
		return err
	}
	if err := e.Initialize(); err != nil {
		e.Shutdown()
		return err
	}
	runErr := e.Run(ctx)
	if err := e.Shutdown(); err != nil && runErr == nil {
		return err
	}
	return runErr
}
