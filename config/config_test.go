package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Render.Width != 512 || cfg.Export.FPS != 20 || cfg.Export.Duration != 12*time.Second {
		t.Errorf("defaults = %+v / %+v", cfg.Render, cfg.Export)
	}
	if cfg.Playback.Speed != 7 {
		t.Errorf("speed = %v, want 7", cfg.Playback.Speed)
	}
	if cfg.Cache.Backend != "badger" || cfg.Source.API.PerPage != 200 {
		t.Errorf("cache/source = %+v / %+v", cfg.Cache, cfg.Source.API)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routereel.yaml")
	yaml := `
render:
  width: 800
  height: 600
  palette: "Run=#ff0000"
export:
  fps: 10
  duration: 4s
  timezone: Europe/Berlin
cache:
  backend: sqlite
  path: /tmp/c.db
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Render.Width != 800 || cfg.Render.Height != 600 || cfg.Render.Palette != "Run=#ff0000" {
		t.Errorf("render = %+v", cfg.Render)
	}
	if cfg.Export.FPS != 10 || cfg.Export.Duration != 4*time.Second {
		t.Errorf("export = %+v", cfg.Export)
	}
	if cfg.Render.Margin != 0.05 {
		t.Errorf("unset margin lost its default: %v", cfg.Render.Margin)
	}
	loc, err := cfg.Export.Location()
	if err != nil || loc.String() != "Europe/Berlin" {
		t.Errorf("Location = %v, %v", loc, err)
	}
	if cfg.Cache.Backend != "sqlite" {
		t.Errorf("cache = %+v", cfg.Cache)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(path, []byte("export:\n  fps: 10\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ROUTEREEL_EXPORT__FPS", "15")
	t.Setenv("ROUTEREEL_EXPORT__DURATION", "3s")
	t.Setenv("ROUTEREEL_RENDER__TYPES", "Run, Ride")
	t.Setenv("ROUTEREEL_SOURCE__API__PER_PAGE", "50")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Export.FPS != 15 || cfg.Export.Duration != 3*time.Second {
		t.Errorf("export = %+v", cfg.Export)
	}
	if strings.Join(cfg.Render.Types, "|") != "Run|Ride" {
		t.Errorf("types = %q", cfg.Render.Types)
	}
	if cfg.Source.API.PerPage != 50 {
		t.Errorf("per_page = %d", cfg.Source.API.PerPage)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"small size":    func(c *Config) { c.Render.Width = 32 },
		"huge size":     func(c *Config) { c.Render.Height = 5000 },
		"margin":        func(c *Config) { c.Render.Margin = 0.25 },
		"opacity":       func(c *Config) { c.Render.BaseOpacity = 0 },
		"fps":           func(c *Config) { c.Export.FPS = 0 },
		"palette":       func(c *Config) { c.Render.Palette = "Run=red" },
		"background":    func(c *Config) { c.Tiles.Background = "#12" },
		"timezone":      func(c *Config) { c.Export.Timezone = "Mars/Olympus" },
		"cache backend": func(c *Config) { c.Cache.Backend = "redis" },
		"zero duration": func(c *Config) { c.Export.Duration = 0 },
	}
	for name, mut := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mut(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate accepted invalid config")
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}

func TestValidateClampsSpeed(t *testing.T) {
	cfg := Default()
	cfg.Playback.Speed = 500
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Playback.Speed != 100 {
		t.Errorf("speed = %v, want 100", cfg.Playback.Speed)
	}
	cfg.Playback.Speed = 0
	_ = cfg.Validate()
	if cfg.Playback.Speed != 0.1 {
		t.Errorf("speed = %v, want 0.1", cfg.Playback.Speed)
	}
}

func TestEnvKey(t *testing.T) {
	if got := envKey("ROUTEREEL_TILES__CACHE_DIR"); got != "tiles.cache_dir" {
		t.Errorf("envKey = %q", got)
	}
	if got := envKey("ROUTEREEL_CONFIG"); got != "" {
		t.Errorf("config path leaked into keys: %q", got)
	}
}
