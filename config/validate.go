package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/s0ultr4d3r/routereel/playback"
	"github.com/s0ultr4d3r/routereel/style"
)

// Validate checks ranges and clamps the playback speed.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	r := c.Render
	check(r.Width >= 64 && r.Width <= 4096, "render.width %d out of 64..4096", r.Width)
	check(r.Height >= 64 && r.Height <= 4096, "render.height %d out of 64..4096", r.Height)
	check(r.Margin >= 0 && r.Margin < 0.25, "render.margin %.3f out of [0, 0.25)", r.Margin)
	check(r.BaseOpacity > 0 && r.BaseOpacity <= 1, "render.base_opacity %.2f out of (0, 1]", r.BaseOpacity)
	check(r.FadeWindow > 0, "render.fade_window must be > 0")
	check(r.Resolution > 0, "render.overlap_resolution must be > 0")
	check(r.WeightScale > 0, "render.weight_scale must be > 0")
	if r.Palette != "" {
		if _, err := style.ParsePalette(style.DefaultPalette(), r.Palette); err != nil {
			errs = append(errs, fmt.Errorf("render.palette: %w", err))
		}
	}
	if c.Tiles.Background != "" {
		if _, err := style.ParseHexColor(c.Tiles.Background); err != nil {
			errs = append(errs, fmt.Errorf("tiles.background: %w", err))
		}
	}

	e := c.Export
	check(e.FPS > 0, "export.fps must be > 0")
	check(e.Duration > 0, "export.duration must be > 0")
	check(e.Settle >= 0, "export.settle must be >= 0")
	check(e.CoverageOpacity > 0 && e.CoverageOpacity <= 1, "export.coverage_opacity %.2f out of (0, 1]", e.CoverageOpacity)
	if _, err := e.Location(); err != nil {
		errs = append(errs, fmt.Errorf("export.timezone: %w", err))
	}

	switch c.Cache.Backend {
	case "", "none", "badger", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("cache.backend %q: want badger, sqlite or none", c.Cache.Backend))
	}

	c.Playback.Speed = min(max(c.Playback.Speed, playback.MinSpeed), playback.MaxSpeed)
	if c.Playback.FrameInterval <= 0 {
		c.Playback.FrameInterval = time.Second / 60
	}
	return errors.Join(errs...)
}
