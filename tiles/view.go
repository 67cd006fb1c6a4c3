package tiles

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"net/http"

	"github.com/s0ultr4d3r/routereel/render"
)

// Source produces a background raster for geographic bounds.
type Source interface {
	Image(ctx context.Context, b render.Bounds, w, h int) (image.Image, error)
}

// MosaicSource stitches XYZ tiles.
type MosaicSource struct {
	Fetcher *Fetcher
	Preset  Preset
}

func (s MosaicSource) Image(ctx context.Context, b render.Bounds, w, h int) (image.Image, error) {
	img, _, err := BuildMosaic(ctx, s.Fetcher, s.Preset, b.West, b.South, b.East, b.North, w, h)
	return img, err
}

// StaticSource fetches one image from a static-map URL template.
type StaticSource struct {
	URLTemplate string
	Client      *http.Client
}

func (s StaticSource) Image(ctx context.Context, b render.Bounds, w, h int) (image.Image, error) {
	img, err := FetchStaticMap(ctx, s.Client, ExpandStaticURL(s.URLTemplate, b, w, h))
	if err != nil {
		return nil, err
	}
	if img.Bounds().Dx() == w && img.Bounds().Dy() == h {
		return img, nil
	}
	return scaleTo(img, w, h), nil
}

// SolidSource is a flat colour, used when no map is configured.
type SolidSource struct {
	Color color.Color
}

func (s SolidSource) Image(_ context.Context, _ render.Bounds, w, h int) (image.Image, error) {
	c := s.Color
	if c == nil {
		c = color.Black
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img, nil
}

// View is an offscreen stand-in for the interactive map: fixed bounds,
// fixed pixel size, and a background source.
type View struct {
	proj render.Projection
	src  Source
}

func NewView(proj render.Projection, src Source) *View {
	if src == nil {
		src = SolidSource{}
	}
	return &View{proj: proj, src: src}
}

func (v *View) Projection() render.Projection { return v.proj }

// PointToLatLng converts a view pixel to a coordinate.
func (v *View) PointToLatLng(pt image.Point) (lat, lng float64) {
	return v.proj.Unproject(float64(pt.X), float64(pt.Y))
}

// Capture renders the background of the whole view.
func (v *View) Capture(ctx context.Context) (image.Image, error) {
	img, err := v.src.Image(ctx, v.proj.Bounds, v.proj.Width, v.proj.Height)
	if err != nil {
		return nil, fmt.Errorf("capture background: %w", err)
	}
	return img, nil
}
