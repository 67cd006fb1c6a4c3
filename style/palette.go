package style

import (
	"errors"
	"fmt"
	"image/color"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Provider maps an activity type to its base colour.
type Provider interface {
	ColorFor(activityType string) color.RGBA
}

// Palette is the fixed {typeToColor, defaultColor} provider.
type Palette struct {
	TypeToColor  map[string]color.RGBA
	DefaultColor color.RGBA
}

// ColorFor prefers an exact key, then the first case-insensitive match in
// sorted key order.
func (p Palette) ColorFor(activityType string) color.RGBA {
	if c, ok := p.TypeToColor[activityType]; ok {
		return c
	}
	for _, k := range slices.Sorted(maps.Keys(p.TypeToColor)) {
		if strings.EqualFold(k, activityType) {
			return p.TypeToColor[k]
		}
	}
	return p.DefaultColor
}

// DefaultPalette covers the common activity types.
func DefaultPalette() Palette {
	return Palette{
		TypeToColor: map[string]color.RGBA{
			"Run":         {0xfc, 0x4c, 0x02, 0xff},
			"Ride":        {0x00, 0x74, 0xd9, 0xff},
			"VirtualRide": {0x7f, 0x3f, 0xbf, 0xff},
			"Swim":        {0x00, 0xa6, 0xa6, 0xff},
			"Walk":        {0x2e, 0xa0, 0x43, 0xff},
			"Hike":        {0x8b, 0x5a, 0x2b, 0xff},
		},
		DefaultColor: color.RGBA{0x66, 0x66, 0x66, 0xff},
	}
}

// ParseHexColor accepts #RRGGBB or #AARRGGBB.
func ParseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		return color.RGBA{}, errors.New("hex color must start with #")
	}
	h := strings.TrimPrefix(s, "#")
	if len(h) != 6 && len(h) != 8 {
		return color.RGBA{}, errors.New("hex color format: #RRGGBB or #AARRGGBB")
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("hex color %q: %w", s, err)
	}
	if len(h) == 6 {
		return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 0xff}, nil
	}
	return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), uint8(v >> 24)}, nil
}

// ParsePalette reads "Type=#hex,Type=#hex" overrides on top of base. Type
// names match case-insensitively and a later entry wins.
func ParsePalette(base Palette, csv string) (Palette, error) {
	out := Palette{TypeToColor: make(map[string]color.RGBA, len(base.TypeToColor)), DefaultColor: base.DefaultColor}
	for k, v := range base.TypeToColor {
		out.TypeToColor[k] = v
	}
	csv = strings.TrimSpace(csv)
	if csv == "" {
		return out, nil
	}
	for _, part := range strings.Split(csv, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			return Palette{}, fmt.Errorf("palette entry %q: want Type=#RRGGBB", part)
		}
		c, err := ParseHexColor(kv[1])
		if err != nil {
			return Palette{}, err
		}
		name := strings.TrimSpace(kv[0])
		if strings.EqualFold(name, "default") {
			out.DefaultColor = c
			continue
		}
		for k := range out.TypeToColor {
			if strings.EqualFold(k, name) {
				delete(out.TypeToColor, k)
			}
		}
		out.TypeToColor[name] = c
	}
	return out, nil
}
