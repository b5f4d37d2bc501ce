/*
Bakes the probe lattice of the testbed scene and writes the atlas slot
layout as a PNG once the frame loop ends.
*/
package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/lumen/engine"
	"github.com/spaghettifunk/lumen/engine/config"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/testbed"
)

func main() {
	configPath := flag.String("config", "lumen.toml", "path to the TOML configuration")
	backend := flag.String("backend", "", "renderer backend override (headless|vulkan)")
	frames := flag.Int("frames", -1, "frames to render before exiting, 0 runs until closed")
	preview := flag.String("preview", "", "atlas preview output path override")
	flag.Parse()

	if err := run(*configPath, *backend, *frames, *preview); err != nil {
		core.LogError("%s", err)
		os.Exit(1)
	}
}

func run(configPath, backend string, frames int, preview string) error {
	cfg, err := config.Load(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		core.LogWarn("config `%s` not found, using defaults", configPath)
		cfg = config.Default()
		configPath = ""
	case err != nil:
		return err
	}
	if backend != "" {
		cfg.Renderer.Backend = backend
	}
	if frames >= 0 {
		cfg.Application.Frames = frames
	}
	if preview != "" {
		cfg.Application.AtlasPreviewPath = preview
	}

	// signal context to capture system calls
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	tb := testbed.NewTestGame()
	e, err := engine.New(tb.Game, cfg, configPath)
	if err != nil {
		return err
	}
	if err := e.Initialize(); err != nil {
		e.Shutdown()
		return err
	}

	runErr := e.Run(ctx)
	if runErr == nil && cfg.Application.AtlasPreviewPath != "" {
		if s := e.Context().GI; s != nil {
			if err := s.WriteAtlasPreview(cfg.Application.AtlasPreviewPath, cfg.Application.AtlasPreviewScale); err != nil {
				runErr = err
			} else {
				core.LogInfo("atlas preview written to %s", cfg.Application.AtlasPreviewPath)
			}
		}
	}
	if err := e.Shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
