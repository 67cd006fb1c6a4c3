// Package render paints routes over a background raster.
//
// Coordinates are mapped linearly between geographic bounds and pixels, and
// map backgrounds are resampled onto the same mapping. The live view and the
// export share one Projection so routes line up with the captured background.
package render

import (
	"errors"
	"image"
	"math"

	"github.com/golang/geo/s2"
)

// Bounds is a geographic rectangle in degrees.
type Bounds struct {
	North, South, East, West float64
}

// BoundsFromRect converts an s2 rectangle.
func BoundsFromRect(r s2.Rect) Bounds {
	return Bounds{
		North: r.Hi().Lat.Degrees(),
		South: r.Lo().Lat.Degrees(),
		East:  r.Hi().Lng.Degrees(),
		West:  r.Lo().Lng.Degrees(),
	}
}

// Valid reports whether the bounds span a positive area.
func (b Bounds) Valid() bool {
	return b.North > b.South && b.East > b.West
}

// Pad grows the bounds by margin (a fraction of each span) on every side.
// Degenerate spans are widened to a small minimum first.
func (b Bounds) Pad(margin float64) Bounds {
	const minSpan = 0.002
	if d := b.North - b.South; d < minSpan {
		b.North += (minSpan - d) / 2
		b.South -= (minSpan - d) / 2
	}
	if d := b.East - b.West; d < minSpan {
		b.East += (minSpan - d) / 2
		b.West -= (minSpan - d) / 2
	}
	padLat := (b.North - b.South) * margin
	padLng := (b.East - b.West) * margin
	return Bounds{
		North: b.North + padLat,
		South: b.South - padLat,
		East:  b.East + padLng,
		West:  b.West - padLng,
	}
}

// FitAspect widens the shorter side so that a w x h raster shows the area
// without stretching (longitude scaled by cos(latitude) at the centre).
func (b Bounds) FitAspect(w, h int) Bounds {
	if w <= 0 || h <= 0 || !b.Valid() {
		return b
	}
	midLat := (b.North + b.South) / 2
	k := math.Cos(midLat * math.Pi / 180)
	if k < 0.01 {
		k = 0.01
	}
	spanLat := b.North - b.South
	spanLng := b.East - b.West
	target := float64(w) / float64(h) // wanted (spanLng*k) / spanLat

	if spanLng*k/spanLat < target {
		grow := (spanLat*target/k - spanLng) / 2
		b.East += grow
		b.West -= grow
	} else {
		grow := (spanLng*k/target - spanLat) / 2
		b.North += grow
		b.South -= grow
	}
	return b
}

// Projection maps Bounds onto a Width x Height pixel raster.
type Projection struct {
	Bounds
	Width, Height int
}

var ErrInvalidProjection = errors.New("render: projection needs positive size and bounds")

// NewProjection validates and builds a projection.
func NewProjection(b Bounds, w, h int) (Projection, error) {
	if w <= 0 || h <= 0 || !b.Valid() {
		return Projection{}, ErrInvalidProjection
	}
	return Projection{Bounds: b, Width: w, Height: h}, nil
}

// Project converts a coordinate to pixel space.
func (p Projection) Project(lat, lng float64) (x, y float64) {
	x = (lng - p.West) / (p.East - p.West) * float64(p.Width)
	y = (p.North - lat) / (p.North - p.South) * float64(p.Height)
	return x, y
}

// Unproject converts a pixel to a coordinate.
func (p Projection) Unproject(x, y float64) (lat, lng float64) {
	lng = p.West + x/float64(p.Width)*(p.East-p.West)
	lat = p.North - y/float64(p.Height)*(p.North-p.South)
	return lat, lng
}

// Region returns the projection of a pixel sub-rectangle of p, keeping the
// same degrees-per-pixel so the crop lines up with p.
func (p Projection) Region(r image.Rectangle) (Projection, error) {
	r = r.Intersect(image.Rect(0, 0, p.Width, p.Height))
	if r.Empty() {
		return Projection{}, ErrInvalidProjection
	}
	north, west := p.Unproject(float64(r.Min.X), float64(r.Min.Y))
	south, east := p.Unproject(float64(r.Max.X), float64(r.Max.Y))
	return NewProjection(Bounds{North: north, South: south, East: east, West: west}, r.Dx(), r.Dy())
}
