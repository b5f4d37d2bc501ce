package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/lumen/engine/core"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
	gi := cfg.GI
	if gi.CubemapCaptureSize != 256 || gi.AtlasTotalSize != 512 || gi.AtlasEntrySize != 16 || gi.ProbesPerUpdate != 1 || gi.StopAfterFullCycle {
		t.Fatalf("gi defaults = %+v", gi)
	}
	if cfg.Renderer.Backend != BACKEND_HEADLESS {
		t.Fatalf("backend = %s", cfg.Renderer.Backend)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	data := []byte(`
[application]
name = "bake"
frames = 30

[renderer]
log_level = "warn"
clear_color = [1.0, 0.5, 0.25, 1.0]
validation = true

[gi]
probes_per_update = 4
stop_after_full_cycle = true
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Application.Name != "bake" || cfg.Application.Frames != 30 {
		t.Fatalf("application = %+v", cfg.Application)
	}
	if cfg.Application.StartWidth != 1280 {
		t.Fatalf("missing keys should keep defaults, width = %d", cfg.Application.StartWidth)
	}
	if cfg.LogLevel() != core.LOG_LEVEL_WARN {
		t.Fatalf("log level = %d", cfg.LogLevel())
	}
	if cfg.Renderer.ClearColor != [4]float32{1, 0.5, 0.25, 1} {
		t.Fatalf("clear color = %v", cfg.Renderer.ClearColor)
	}
	if !cfg.Renderer.Validation {
		t.Fatal("validation should be enabled")
	}
	if cfg.GI.ProbesPerUpdate != 4 || !cfg.GI.StopAfterFullCycle || cfg.GI.AtlasTotalSize != 512 {
		t.Fatalf("gi = %+v", cfg.GI)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"malformed", "[gi\nprobes_per_update = ", core.ErrInvalidConfig},
		{"unknown key", "[gi]\nprobes = 3\n", core.ErrInvalidConfig},
		{"backend", "[renderer]\nbackend = \"metal\"\n", core.ErrUnknownBackend},
		{"log level", "[renderer]\nlog_level = \"loud\"\n", core.ErrUnknownLogLevel},
		{"atlas layout", "[gi]\natlas_total_size = 500\n", core.ErrInvalidAtlasLayout},
		{"probes per update", "[gi]\nprobes_per_update = 0\n", core.ErrInvalidConfig},
		{"light capacity", "[renderer]\nlight_capacity = -1\n", core.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.data))
			if cfg != nil || !errors.Is(err, tt.want) {
				t.Fatalf("Parse = %v, %v; want %v", cfg, err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v", err)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.GI.ProbesPerUpdate = 7
	data, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	back, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if *back != *cfg {
		t.Fatalf("round trip = %+v, want %+v", back, cfg)
	}
}

func TestWatcherReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lumen.toml")
	if err := os.WriteFile(path, []byte("[gi]\nprobes_per_update = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if cfg := w.Drain(); cfg != nil {
		t.Fatalf("drain before any change = %+v", cfg)
	}
	if err := os.WriteFile(path, []byte("[gi]\nprobes_per_update = 9\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-w.Updates():
			// A write can surface as several events; wait for the full file.
			if cfg.GI.ProbesPerUpdate == 9 {
				return
			}
		case <-deadline:
			t.Fatal("no reload published")
		}
	}
}

func TestWatcherIgnoresInvalidReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lumen.toml")
	if err := os.WriteFile(path, []byte("[gi]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("[gi]\natlas_total_size = 500\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-w.Errors():
		if !errors.Is(err, core.ErrInvalidConfig) {
			t.Fatalf("err = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload error published")
	}
}

func TestWatcherCloseTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lumen.toml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err == nil {
		t.Fatal("second Close should fail")
	}
}
