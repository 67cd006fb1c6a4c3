package tiles

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
)

// ErrMissingKey is returned by FillURL when a ${VAR} placeholder has no value
// in the environment.
var ErrMissingKey = errors.New("tile url: missing api key")

// Preset describes an XYZ tile server. URLTmpl holds {z}, {x}, {y} and may
// reference environment variables as ${NAME}.
type Preset struct {
	Name        string
	URLTmpl     string
	Attribution string
	MinZoom     int
	MaxZoom     int
	Headers     map[string]string
}

const (
	osmCredit    = "© OpenStreetMap contributors"
	stadiaCredit = "© Stadia Maps, © OpenMapTiles, " + osmCredit
)

var presets = map[string]Preset{
	"osm": {
		Name: "OpenStreetMap", URLTmpl: "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: osmCredit, MaxZoom: 19,
	},
	"topo": {
		Name: "OpenTopoMap", URLTmpl: "https://tile.opentopomap.org/{z}/{x}/{y}.png",
		Attribution: "© OpenTopoMap (CC-BY-SA), " + osmCredit, MaxZoom: 17,
	},
	"satellite": {
		Name:        "Esri World Imagery",
		URLTmpl:     "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}",
		Attribution: "© Esri", MaxZoom: 19,
	},
	"dark": {
		Name:        "Stadia Alidade Smooth Dark",
		URLTmpl:     "https://tiles.stadiamaps.com/tiles/alidade_smooth_dark/{z}/{x}/{y}.png?api_key=${STADIA_KEY}",
		Attribution: stadiaCredit, MaxZoom: 20,
	},
	"light": {
		Name:        "Stadia Alidade Smooth",
		URLTmpl:     "https://tiles.stadiamaps.com/tiles/alidade_smooth/{z}/{x}/{y}.png?api_key=${STADIA_KEY}",
		Attribution: stadiaCredit, MaxZoom: 20,
	},
}

// aliases keep older preset names working.
var aliases = map[string]string{
	"opentopomap":        "topo",
	"esri-satellite":     "satellite",
	"stadia-smooth-dark": "dark",
	"stadia-smooth":      "light",
}

// PresetNames lists the built-in presets in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for k := range presets {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Lookup resolves a preset name or alias. A string carrying all three of
// {z}, {x}, {y} is accepted as a custom template.
func Lookup(s string) (Preset, error) {
	s = strings.TrimSpace(s)
	key := strings.ToLower(s)
	if a, ok := aliases[key]; ok {
		key = a
	}
	if p, ok := presets[key]; ok {
		return p, nil
	}
	if strings.Contains(s, "{z}") && strings.Contains(s, "{x}") && strings.Contains(s, "{y}") {
		return Preset{Name: "custom", URLTmpl: s, MaxZoom: 20}, nil
	}
	return Preset{}, fmt.Errorf("unknown tile preset %q (known: %s)", s, strings.Join(PresetNames(), ", "))
}

// FillURL substitutes tile coordinates and environment placeholders.
func (p Preset) FillURL(z, x, y int) (string, error) {
	var missing []string
	u := os.Expand(p.URLTmpl, func(name string) string {
		v, ok := os.LookupEnv(name)
		if !ok || v == "" {
			missing = append(missing, name)
		}
		return v
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingKey, strings.Join(missing, ", "))
	}
	u = strings.NewReplacer(
		"{z}", strconv.Itoa(z),
		"{x}", strconv.Itoa(x),
		"{y}", strconv.Itoa(y),
	).Replace(u)
	if _, err := url.Parse(u); err != nil {
		return "", err
	}
	return u, nil
}

// ClampZoom bounds z to the preset's zoom range.
func ClampZoom(z int, p Preset) int {
	return min(max(z, p.MinZoom), p.MaxZoom)
}
