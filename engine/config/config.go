package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/lumen/engine/core"
)

const (
	BACKEND_HEADLESS = "headless"
	BACKEND_VULKAN   = "vulkan"
)

type ApplicationConfig struct {
	// The application name used in windowing, if applicable.
	Name string `toml:"name"`
	// Window starting position x axis, if applicable.
	StartPosX uint32 `toml:"start_pos_x"`
	// Window starting position y axis, if applicable.
	StartPosY uint32 `toml:"start_pos_y"`
	// Window starting width, if applicable.
	StartWidth uint32 `toml:"start_width"`
	// Window starting height, if applicable.
	StartHeight uint32 `toml:"start_height"`
	// Frames to run before exiting. Zero runs until the window closes.
	Frames int `toml:"frames"`
	// Where the bake demo writes the atlas layout preview. Empty disables it.
	AtlasPreviewPath  string `toml:"atlas_preview_path"`
	AtlasPreviewScale int    `toml:"atlas_preview_scale"`
}

type RendererConfig struct {
	Backend  string `toml:"backend"`
	LogLevel string `toml:"log_level"`
	// Capacity of each of the point, spot and sun light buffers.
	LightCapacity int        `toml:"light_capacity"`
	ClearColor    [4]float32 `toml:"clear_color"`
	// Enables the Vulkan validation layer when it is installed.
	Validation bool `toml:"validation"`
}

type GIConfig struct {
	Enabled            bool `toml:"enabled"`
	CubemapCaptureSize int  `toml:"cubemap_capture_size"`
	AtlasTotalSize     int  `toml:"atlas_total_size"`
	AtlasEntrySize     int  `toml:"atlas_entry_size"`
	ProbesPerUpdate    int  `toml:"probes_per_update"`
	StopAfterFullCycle bool `toml:"stop_after_full_cycle"`
}

type Config struct {
	Application ApplicationConfig `toml:"application"`
	Renderer    RendererConfig    `toml:"renderer"`
	GI          GIConfig          `toml:"gi"`
}

// Default returns the configuration used for every key a file leaves out.
func Default() *Config {
	return &Config{
		Application: ApplicationConfig{
			Name:              "Lumen",
			StartPosX:         100,
			StartPosY:         100,
			StartWidth:        1280,
			StartHeight:       720,
			AtlasPreviewScale: 2,
		},
		Renderer: RendererConfig{
			Backend:       BACKEND_HEADLESS,
			LogLevel:      "info",
			LightCapacity: 64,
			ClearColor:    [4]float32{0, 0, 0.2, 1},
		},
		GI: GIConfig{
			Enabled:            true,
			CubemapCaptureSize: 256,
			AtlasTotalSize:     512,
			AtlasEntrySize:     16,
			ProbesPerUpdate:    1,
		},
	}
}

// Load reads a TOML file on top of the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: %s", core.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal encodes the configuration back to TOML.
func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Renderer.Backend) {
	case BACKEND_HEADLESS, BACKEND_VULKAN:
	default:
		return fmt.Errorf("%w: %w `%s`", core.ErrInvalidConfig, core.ErrUnknownBackend, c.Renderer.Backend)
	}
	if _, err := core.ParseLogLevel(c.Renderer.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", core.ErrInvalidConfig, err)
	}
	if c.Renderer.LightCapacity <= 0 {
		return fmt.Errorf("%w: light capacity %d", core.ErrInvalidConfig, c.Renderer.LightCapacity)
	}
	if c.Application.StartWidth == 0 || c.Application.StartHeight == 0 {
		return fmt.Errorf("%w: window size %dx%d", core.ErrInvalidConfig, c.Application.StartWidth, c.Application.StartHeight)
	}
	if c.Application.Frames < 0 {
		return fmt.Errorf("%w: frames %d", core.ErrInvalidConfig, c.Application.Frames)
	}

	gi := c.GI
	if gi.CubemapCaptureSize <= 0 {
		return fmt.Errorf("%w: cubemap capture size %d", core.ErrInvalidConfig, gi.CubemapCaptureSize)
	}
	if gi.ProbesPerUpdate <= 0 {
		return fmt.Errorf("%w: probes per update %d", core.ErrInvalidConfig, gi.ProbesPerUpdate)
	}
	if gi.AtlasTotalSize <= 0 || gi.AtlasEntrySize <= 0 || gi.AtlasTotalSize%gi.AtlasEntrySize != 0 {
		return fmt.Errorf("%w: %w (total=%d, entry=%d)", core.ErrInvalidConfig, core.ErrInvalidAtlasLayout, gi.AtlasTotalSize, gi.AtlasEntrySize)
	}
	return nil
}

// LogLevel returns the parsed renderer log level. Validate has already
// rejected unknown names.
func (c *Config) LogLevel() core.LogLevel {
	level, _ := core.ParseLogLevel(c.Renderer.LogLevel)
	return level
}
