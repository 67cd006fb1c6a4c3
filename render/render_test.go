package render

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/s0ultr4d3r/routereel/polyline"
)

var box = Bounds{North: 47, South: 46, East: 8, West: 7}

func TestProjectCorners(t *testing.T) {
	p, err := NewProjection(box, 200, 100)
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		lat, lng float64
		x, y     float64
	}{
		{47, 7, 0, 0},
		{46, 8, 200, 100},
		{46.5, 7.5, 100, 50},
	}
	for _, tc := range cases {
		x, y := p.Project(tc.lat, tc.lng)
		if math.Abs(x-tc.x) > 1e-9 || math.Abs(y-tc.y) > 1e-9 {
			t.Errorf("Project(%v,%v) = %v,%v want %v,%v", tc.lat, tc.lng, x, y, tc.x, tc.y)
		}
		lat, lng := p.Unproject(x, y)
		if math.Abs(lat-tc.lat) > 1e-9 || math.Abs(lng-tc.lng) > 1e-9 {
			t.Errorf("Unproject round trip = %v,%v", lat, lng)
		}
	}
}

func TestNewProjectionRejectsDegenerate(t *testing.T) {
	if _, err := NewProjection(box, 0, 10); err == nil {
		t.Error("zero width accepted")
	}
	if _, err := NewProjection(Bounds{North: 1, South: 1, East: 2, West: 1}, 10, 10); err == nil {
		t.Error("flat bounds accepted")
	}
}

func TestRegionKeepsAlignment(t *testing.T) {
	full, _ := NewProjection(box, 200, 100)
	sub, err := full.Region(image.Rect(50, 25, 150, 75))
	if err != nil {
		t.Fatal(err)
	}
	if sub.Width != 100 || sub.Height != 50 {
		t.Fatalf("size = %dx%d", sub.Width, sub.Height)
	}
	// A point projected through the full view minus the crop offset must
	// land on the same pixel in the region.
	fx, fy := full.Project(46.6, 7.3)
	sx, sy := sub.Project(46.6, 7.3)
	if math.Abs(fx-50-sx) > 1e-9 || math.Abs(fy-25-sy) > 1e-9 {
		t.Errorf("region pixel %v,%v vs full %v,%v", sx, sy, fx, fy)
	}
}

func TestPadAndFitAspect(t *testing.T) {
	b := Bounds{North: 46.01, South: 46.0, East: 7.01, West: 7.0}.Pad(0.1)
	if math.Abs((b.North-b.South)-0.012) > 1e-9 {
		t.Errorf("padded lat span = %v", b.North-b.South)
	}

	f := box.FitAspect(100, 100)
	k := math.Cos(46.5 * math.Pi / 180)
	if math.Abs((f.East-f.West)*k-(f.North-f.South)) > 1e-9 {
		t.Errorf("FitAspect not square: %+v", f)
	}
	if f.North < box.North || f.West > box.West {
		t.Error("FitAspect must only grow the bounds")
	}
}

func TestRenderDrawsStrokeOverBackground(t *testing.T) {
	bg := image.NewUniform(color.RGBA{10, 20, 30, 255})
	stroke := Stroke{
		Points:  []polyline.LatLng{{Lat: 46.5, Lng: 7.0}, {Lat: 46.5, Lng: 8.0}},
		Color:   color.RGBA{255, 0, 0, 255},
		Weight:  4,
		Opacity: 1,
	}
	img := Renderer{}.Render(100, 100, bgImage(bg), box, []Stroke{stroke})

	if c := img.RGBAAt(50, 50); c.R < 200 || c.G > 50 {
		t.Errorf("pixel on the route = %v, want red", c)
	}
	if c := img.RGBAAt(50, 10); c != (color.RGBA{10, 20, 30, 255}) {
		t.Errorf("background pixel = %v", c)
	}
}

func TestRenderOpacityBlends(t *testing.T) {
	stroke := Stroke{
		Points:  []polyline.LatLng{{Lat: 46.5, Lng: 7.0}, {Lat: 46.5, Lng: 8.0}},
		Color:   color.RGBA{255, 255, 255, 255},
		Weight:  6,
		Opacity: 0.5,
	}
	img := Renderer{Background: color.Black}.Render(100, 100, nil, box, []Stroke{stroke})
	c := img.RGBAAt(50, 50)
	if c.R < 100 || c.R > 160 {
		t.Errorf("half-opacity white over black = %v, want ~128", c)
	}
}

func TestCoverageDoesNotTouchInput(t *testing.T) {
	in := []Stroke{{Points: []polyline.LatLng{{Lat: 46, Lng: 7}}, Color: color.RGBA{1, 2, 3, 255}, Weight: 2.5, Opacity: 0.9}}
	out := Coverage(in, DefaultCoverage)
	if in[0].Opacity != 0.9 || in[0].Weight != 2.5 {
		t.Error("Coverage mutated its input")
	}
	if out[0].Opacity != DefaultCoverage.Opacity || out[0].Weight != DefaultCoverage.Weight || out[0].Color != in[0].Color {
		t.Errorf("coverage stroke = %+v", out[0])
	}
}

func TestCrop(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 10))
	src.Set(5, 5, color.RGBA{9, 9, 9, 255})
	out := Crop(src, image.Rect(4, 4, 8, 8))
	if out.Bounds().Dx() != 4 {
		t.Fatalf("crop width = %d", out.Bounds().Dx())
	}
	if c := color.RGBAModel.Convert(out.At(1, 1)).(color.RGBA); c.R != 9 {
		t.Errorf("cropped pixel = %v", c)
	}
}

func bgImage(u *image.Uniform) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			img.Set(x, y, u.C)
		}
	}
	return img
}
