package render

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"

	"github.com/s0ultr4d3r/routereel/polyline"
)

// DefaultWeightScale thickens strokes for export resolution.
const DefaultWeightScale = 1.5

// Stroke is one route with its paint parameters.
type Stroke struct {
	Points  []polyline.LatLng
	Color   color.RGBA
	Weight  float64
	Opacity float64
}

// CoverageStyle is the fixed paint used for the cumulative coverage frame.
type CoverageStyle struct {
	Opacity float64
	Weight  float64
}

// DefaultCoverage draws every route faintly so repeated paths build up.
var DefaultCoverage = CoverageStyle{Opacity: 0.25, Weight: 1.5}

// Renderer paints frames. The zero value uses DefaultWeightScale and a black
// background.
type Renderer struct {
	WeightScale float64
	Background  color.Color
}

// Render draws bg scaled to w x h, then strokes in order.
func (r Renderer) Render(w, h int, bg image.Image, bounds Bounds, strokes []Stroke) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	r.paintBackground(canvas, bg)

	proj := Projection{Bounds: bounds, Width: w, Height: h}
	if !bounds.Valid() || w <= 0 || h <= 0 {
		return canvas
	}

	scale := r.WeightScale
	if scale <= 0 {
		scale = DefaultWeightScale
	}

	dc := gg.NewContextForRGBA(canvas)
	dc.SetLineCapRound()
	dc.SetLineJoinRound()
	for _, s := range strokes {
		if len(s.Points) == 0 || s.Opacity <= 0 {
			continue
		}
		dc.SetRGBA(float64(s.Color.R)/255, float64(s.Color.G)/255, float64(s.Color.B)/255, s.Opacity)
		width := s.Weight * scale

		if len(s.Points) == 1 {
			x, y := proj.Project(s.Points[0].Lat, s.Points[0].Lng)
			dc.DrawPoint(x, y, width/2)
			dc.Fill()
			continue
		}
		dc.SetLineWidth(width)
		dc.NewSubPath()
		for i, p := range s.Points {
			x, y := proj.Project(p.Lat, p.Lng)
			if i == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
		dc.Stroke()
	}
	return canvas
}

// Coverage returns strokes that draw every route at the fixed coverage
// style, in the route's base colour.
func Coverage(routes []Stroke, cs CoverageStyle) []Stroke {
	out := make([]Stroke, len(routes))
	for i, s := range routes {
		out[i] = Stroke{Points: s.Points, Color: s.Color, Weight: cs.Weight, Opacity: cs.Opacity}
	}
	return out
}

func (r Renderer) paintBackground(dst *image.RGBA, bg image.Image) {
	if bg != nil {
		xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), bg, bg.Bounds(), draw.Src, nil)
		return
	}
	fill := r.Background
	if fill == nil {
		fill = color.Black
	}
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: fill}, image.Point{}, draw.Src)
}

// Crop returns the part of img under r, translated to the origin.
func Crop(img image.Image, r image.Rectangle) image.Image {
	r = r.Add(img.Bounds().Min).Intersect(img.Bounds())
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), img, r.Min, draw.Src)
	return out
}
