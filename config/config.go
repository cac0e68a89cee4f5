// Package config loads and saves the application's TOML settings file.
// A missing file is not an error: defaults are written out so the user has
// something to edit.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config is the on-disk settings layout.
type Config struct {
	Window WindowConfig `toml:"window"`
	Render RenderConfig `toml:"render"`
	Debug  DebugConfig  `toml:"debug"`
}

// WindowConfig holds windowing settings.
type WindowConfig struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

// RenderConfig holds rendering settings.
type RenderConfig struct {
	// ClearColor is the frame clear color as sRGB components in [0,1].
	ClearColor [4]float64 `toml:"clear_color"`

	// VSync toggles presentation synchronization.
	VSync bool `toml:"vsync"`

	// UIScale is the pixels-per-point factor for the UI layer. Zero means
	// autodetect from the windowing layer.
	UIScale float64 `toml:"ui_scale"`
}

// DebugConfig holds debug overlay settings.
type DebugConfig struct {
	// ShowMenu toggles the debug menu overlay.
	ShowMenu bool `toml:"show_menu"`

	// DrawEnabled toggles the 3D debug draw layer.
	DrawEnabled bool `toml:"draw_enabled"`
}

// Default returns the settings used when no config file exists.
func Default() Config {
	return Config{
		Window: WindowConfig{
			Title:  "toybox",
			Width:  1366,
			Height: 768,
		},
		Render: RenderConfig{
			ClearColor: [4]float64{0.1, 0.1, 0.1, 1},
			VSync:      true,
		},
		Debug: DebugConfig{
			DrawEnabled: true,
		},
	}
}

// Load reads the config file at path. If the file does not exist, the
// defaults are written there and returned.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg := Default()
		if err := Save(path, cfg); err != nil {
			return cfg, fmt.Errorf("config: write defaults: %w", err)
		}
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories as needed.
func Save(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
