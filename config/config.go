// Package config loads routereel settings: struct defaults, then an optional
// YAML file, then ROUTEREEL_* environment variables.
package config

import (
	"time"
	_ "time/tzdata" // export.timezone must resolve on minimal images

	"github.com/s0ultr4d3r/routereel/logging"
	"github.com/s0ultr4d3r/routereel/source"
	"github.com/s0ultr4d3r/routereel/store"
)

type Config struct {
	Log      logging.Config `koanf:"log"`
	Source   SourceConfig   `koanf:"source"`
	Cache    store.Config   `koanf:"cache"`
	Tiles    TilesConfig    `koanf:"tiles"`
	Render   RenderConfig   `koanf:"render"`
	Playback PlaybackConfig `koanf:"playback"`
	Export   ExportConfig   `koanf:"export"`
	Debug    DebugConfig    `koanf:"debug"`
}

// SourceConfig selects where activities come from. Input, when set, is a
// JSON file and the API is not used.
type SourceConfig struct {
	Input string             `koanf:"input"`
	Key   string             `koanf:"key"` // cache key
	Token string             `koanf:"token"`
	API   source.Config      `koanf:"api"`
	OAuth source.OAuthConfig `koanf:"oauth"`
}

// TilesConfig picks the map backdrop. Static wins over Preset.
type TilesConfig struct {
	Preset     string        `koanf:"preset"`
	StaticURL  string        `koanf:"static_url"`
	CacheDir   string        `koanf:"cache_dir"`
	RPS        float64       `koanf:"rps"`
	Burst      int           `koanf:"burst"`
	Timeout    time.Duration `koanf:"timeout"`
	UserAgent  string        `koanf:"user_agent"`
	Background string        `koanf:"background"` // hex, used without a map
}

type RenderConfig struct {
	Width       int           `koanf:"width"`
	Height      int           `koanf:"height"`
	Margin      float64       `koanf:"margin"`
	WeightScale float64       `koanf:"weight_scale"`
	Palette     string        `koanf:"palette"` // Type=#hex,... overrides
	BaseOpacity float64       `koanf:"base_opacity"`
	FadeWindow  time.Duration `koanf:"fade_window"`
	Resolution  float64       `koanf:"overlap_resolution"`
	Types       []string      `koanf:"types"`
}

type PlaybackConfig struct {
	Speed         float64       `koanf:"speed"`
	FrameInterval time.Duration `koanf:"frame_interval"`
}

type ExportConfig struct {
	Duration        time.Duration `koanf:"duration"`
	FPS             float64       `koanf:"fps"`
	Settle          time.Duration `koanf:"settle"`
	Timezone        string        `koanf:"timezone"`
	Dir             string        `koanf:"dir"`
	Dither          bool          `koanf:"dither"`
	CoverageOpacity float64       `koanf:"coverage_opacity"`
	CoverageWeight  float64       `koanf:"coverage_weight"`
	Timeout         time.Duration `koanf:"timeout"`
}

// DebugConfig enables the /metrics and pprof listener when Addr is set.
type DebugConfig struct {
	Addr string `koanf:"addr"`
}

// Location resolves the export time zone.
func (e ExportConfig) Location() (*time.Location, error) {
	if e.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(e.Timezone)
}

func defaultConfig() *Config {
	return &Config{
		Log: logging.Config{Level: "info", Format: "console"},
		Source: SourceConfig{
			Key: "athlete",
			API: source.Config{
				BaseURL: source.DefaultBaseURL,
				PerPage: source.DefaultPerPage,
				RPS:     1,
				Burst:   5,
				Timeout: 30 * time.Second,
			},
			OAuth: source.OAuthConfig{
				TokenURL: "https://www.strava.com/oauth/token",
			},
		},
		Cache: store.Config{
			Backend: "badger",
			Path:    ".routereel/cache",
			TTL:     6 * time.Hour,
		},
		Tiles: TilesConfig{
			Preset:     "",
			CacheDir:   ".tilecache",
			RPS:        8,
			Burst:      8,
			Timeout:    20 * time.Second,
			UserAgent:  "routereel/1.0",
			Background: "#000000",
		},
		Render: RenderConfig{
			Width:       512,
			Height:      512,
			Margin:      0.05,
			WeightScale: 1.5,
			BaseOpacity: 0.5,
			FadeWindow:  90 * 24 * time.Hour,
			Resolution:  0.0005,
		},
		Playback: PlaybackConfig{
			Speed:         7,
			FrameInterval: time.Second / 60,
		},
		Export: ExportConfig{
			Duration:        12 * time.Second,
			FPS:             20,
			Settle:          0,
			Timezone:        "UTC",
			Dir:             ".",
			Dither:          true,
			CoverageOpacity: 0.25,
			CoverageWeight:  1.5,
			Timeout:         10 * time.Minute,
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config { return defaultConfig() }
