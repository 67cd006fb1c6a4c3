// Package style turns a route's age and overlap into paint parameters.
// Everything here is a pure function of its inputs so that live playback
// and export produce the same frames.
package style

import (
	"image/color"
	"time"
)

const (
	// DefaultFadeWindow is the virtual age after which a route has no recency.
	DefaultFadeWindow = 90 * 24 * time.Hour
	// DefaultBaseOpacity is the density control the opacity ranges are
	// expressed against.
	DefaultBaseOpacity = 0.5

	recencyShare = 0.7
	overlapShare = 0.3
	maxDarken    = 0.3
)

// Range is a [Min, Max] opacity interval.
type Range struct {
	Min, Max float64
}

func (r Range) lerp(t float64) float64 { return r.Min + (r.Max-r.Min)*t }

// Default opacity ranges at DefaultBaseOpacity.
var (
	DefaultRecencyRange = Range{Min: 0.15, Max: 1.0}
	DefaultOverlapRange = Range{Min: 0.15, Max: 0.75}
)

// RenderConfig is the immutable set of style knobs for a render session.
type RenderConfig struct {
	Colors       Provider
	FadeWindow   time.Duration
	BaseOpacity  float64
	RecencyRange Range
	OverlapRange Range
}

// DefaultRenderConfig returns the stock configuration.
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		Colors:       DefaultPalette(),
		FadeWindow:   DefaultFadeWindow,
		BaseOpacity:  DefaultBaseOpacity,
		RecencyRange: DefaultRecencyRange,
		OverlapRange: DefaultOverlapRange,
	}
}

// density scales a range linearly with BaseOpacity.
func (c RenderConfig) density(r Range) Range {
	base := c.BaseOpacity
	if base <= 0 {
		base = DefaultBaseOpacity
	}
	f := base / DefaultBaseOpacity
	return Range{Min: clamp01(r.Min * f), Max: clamp01(r.Max * f)}
}

// Style is the per-tick paint state of one route.
type Style struct {
	Opacity      float64
	Weight       float64
	RecencyScore float64
	Color        color.RGBA
}

// Recency is 1 for routes at or after now, decaying linearly to 0 over the
// fade window.
func Recency(start, now time.Time, fade time.Duration) float64 {
	age := now.Sub(start)
	if age <= 0 {
		return 1
	}
	if fade <= 0 || age >= fade {
		return 0
	}
	return 1 - float64(age)/float64(fade)
}

// For computes the style of a route of type kind that started at start,
// given the clock time now and the route's overlap score.
func (c RenderConfig) For(kind string, start, now time.Time, overlapScore float64) Style {
	fade := c.FadeWindow
	if fade <= 0 {
		fade = DefaultFadeWindow
	}
	rec := Recency(start, now, fade)
	recOpacity := c.density(c.RecencyRange).lerp(rec)
	ovOpacity := c.density(c.OverlapRange).lerp(clamp01(overlapScore))

	var base color.RGBA
	if c.Colors != nil {
		base = c.Colors.ColorFor(kind)
	} else {
		base = DefaultPalette().ColorFor(kind)
	}

	return Style{
		Opacity:      clamp01(recencyShare*recOpacity + overlapShare*ovOpacity),
		Weight:       1 + 1.5*rec,
		RecencyScore: rec,
		Color:        Darken(base, maxDarken*rec),
	}
}

// Darken scales the colour channels of c by (1 - amount).
func Darken(c color.RGBA, amount float64) color.RGBA {
	f := 1 - clamp01(amount)
	return color.RGBA{
		R: uint8(float64(c.R)*f + 0.5),
		G: uint8(float64(c.G)*f + 0.5),
		B: uint8(float64(c.B)*f + 0.5),
		A: c.A,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
