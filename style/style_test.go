package style

import (
	"image/color"
	"math"
	"testing"
	"time"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestRecencyEdges(t *testing.T) {
	fade := DefaultFadeWindow
	cases := []struct {
		name  string
		start time.Time
		want  float64
	}{
		{"same instant", now, 1},
		{"future", now.Add(time.Hour), 1},
		{"half window", now.Add(-fade / 2), 0.5},
		{"exactly window", now.Add(-fade), 0},
		{"older", now.Add(-2 * fade), 0},
	}
	for _, tc := range cases {
		if got := Recency(tc.start, now, fade); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("%s: Recency = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestRecencyMonotonic(t *testing.T) {
	prev := -1.0
	for d := 120; d >= 0; d-- {
		r := Recency(now.Add(-time.Duration(d)*24*time.Hour), now, DefaultFadeWindow)
		if r < prev {
			t.Fatalf("recency decreased for a later start: day %d got %v after %v", d, r, prev)
		}
		prev = r
	}
}

func TestForDefaults(t *testing.T) {
	cfg := DefaultRenderConfig()

	fresh := cfg.For("Run", now, now, 0)
	// 0.7*1.0 + 0.3*0.15
	if math.Abs(fresh.Opacity-0.745) > 1e-9 {
		t.Errorf("fresh opacity = %v, want 0.745", fresh.Opacity)
	}
	if fresh.Weight != 2.5 {
		t.Errorf("fresh weight = %v, want 2.5", fresh.Weight)
	}

	old := cfg.For("Run", now.Add(-365*24*time.Hour), now, 1)
	// 0.7*0.15 + 0.3*0.75
	if math.Abs(old.Opacity-0.33) > 1e-9 {
		t.Errorf("old opacity = %v, want 0.33", old.Opacity)
	}
	if old.Weight != 1 || old.RecencyScore != 0 {
		t.Errorf("old weight/recency = %v/%v", old.Weight, old.RecencyScore)
	}
	if old.Color != DefaultPalette().ColorFor("Run") {
		t.Errorf("old color = %v, want base", old.Color)
	}
}

func TestForDarkensRecentRoutes(t *testing.T) {
	cfg := DefaultRenderConfig()
	cfg.Colors = Palette{DefaultColor: color.RGBA{200, 100, 50, 255}}

	got := cfg.For("Anything", now, now, 0).Color
	want := color.RGBA{140, 70, 35, 255}
	if got != want {
		t.Errorf("color = %v, want %v", got, want)
	}
}

func TestForDensityScalesAndClamps(t *testing.T) {
	cfg := DefaultRenderConfig()
	cfg.BaseOpacity = 1.0
	s := cfg.For("Ride", now, now, 1)
	if math.Abs(s.Opacity-1) > 1e-9 {
		t.Errorf("opacity at full density = %v, want 1", s.Opacity)
	}

	cfg.BaseOpacity = 0.25
	s = cfg.For("Ride", now.Add(-365*24*time.Hour), now, 0)
	// ranges halve: 0.7*0.075 + 0.3*0.075
	if math.Abs(s.Opacity-0.075) > 1e-9 {
		t.Errorf("opacity at low density = %v, want 0.075", s.Opacity)
	}
}

func TestForDeterministic(t *testing.T) {
	cfg := DefaultRenderConfig()
	start := now.Add(-17 * 24 * time.Hour)
	a := cfg.For("Hike", start, now, 0.4)
	b := cfg.For("Hike", start, now, 0.4)
	if a != b {
		t.Errorf("styles differ: %+v vs %+v", a, b)
	}
}

func TestParsePalette(t *testing.T) {
	p, err := ParsePalette(DefaultPalette(), "Run=#112233, default=#80ffffff")
	if err != nil {
		t.Fatal(err)
	}
	if c := p.ColorFor("run"); c != (color.RGBA{0x11, 0x22, 0x33, 0xff}) {
		t.Errorf("Run = %v", c)
	}
	if p.DefaultColor != (color.RGBA{0xff, 0xff, 0xff, 0x80}) {
		t.Errorf("default = %v", p.DefaultColor)
	}
	if DefaultPalette().ColorFor("Run") == p.ColorFor("Run") {
		t.Error("ParsePalette mutated the base palette")
	}
	if _, err := ParsePalette(DefaultPalette(), "Run"); err == nil {
		t.Error("expected error for entry without colour")
	}
}

func TestPaletteCaseVariantsResolveOneWay(t *testing.T) {
	p, err := ParsePalette(DefaultPalette(), "run=#010101,RUN=#020202")
	if err != nil {
		t.Fatal(err)
	}
	want := color.RGBA{2, 2, 2, 0xff}
	for _, name := range []string{"Run", "run", "RUN", "rUn"} {
		if c := p.ColorFor(name); c != want {
			t.Errorf("ColorFor(%q) = %v, want the last entry %v", name, c, want)
		}
	}

	lit := Palette{TypeToColor: map[string]color.RGBA{
		"RIDE": {1, 0, 0, 0xff},
		"Ride": {2, 0, 0, 0xff},
		"ride": {3, 0, 0, 0xff},
	}}
	for range 20 {
		if c := lit.ColorFor("rIDE"); c != (color.RGBA{1, 0, 0, 0xff}) {
			t.Fatalf("ColorFor(rIDE) = %v, want the first key in sorted order", c)
		}
	}
}
