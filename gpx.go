package main

import (
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/s0ultr4d3r/routereel/activity"
	"github.com/s0ultr4d3r/routereel/polyline"
)

// ParseGPXFile превращает каждый <trk> в активность: полилиния из точек,
// старт по первой отметке времени (или mtime файла).
func ParseGPXFile(path string) ([]activity.Activity, error) {
	g, err := gpx.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parse gpx: %w", err)
	}

	var fallback time.Time
	if st, err := os.Stat(path); err == nil {
		fallback = st.ModTime().UTC()
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	out := make([]activity.Activity, 0, len(g.Tracks))
	for i := range g.Tracks {
		tr := &g.Tracks[i]
		var pts []polyline.LatLng
		var start time.Time
		for _, s := range tr.Segments {
			for _, p := range s.Points {
				pts = append(pts, polyline.LatLng{Lat: p.Latitude, Lng: p.Longitude})
				if start.IsZero() && !p.Timestamp.IsZero() {
					start = p.Timestamp
				}
			}
		}
		if len(pts) == 0 {
			continue
		}
		a := activity.Activity{
			ID:        gpxID(path, i),
			Name:      tr.Name,
			Type:      gpxType(tr.Type),
			StartDate: fallback,
			Distance:  tr.Length2D(),
			Polyline:  polyline.Encode(pts),
		}
		if !start.IsZero() {
			a.StartDate = start.UTC()
		}
		if a.Name == "" {
			a.Name = base
		}
		out = append(out, a)
	}
	return out, nil
}

// gpxID стабилен между запусками: от пути и номера трека.
func gpxID(path string, i int) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s#%d", path, i)
	return int64(h.Sum64() & math.MaxInt64)
}

// в GPX тип бывает "running", "cycling" или уже "Run"
func gpxType(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ""
	case "running", "run", "9":
		return "Run"
	case "cycling", "biking", "ride", "1":
		return "Ride"
	case "walking", "walk":
		return "Walk"
	case "hiking", "hike":
		return "Hike"
	case "swimming", "swim":
		return "Swim"
	}
	return s
}
