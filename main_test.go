package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/s0ultr4d3r/routereel/activity"
	"github.com/s0ultr4d3r/routereel/playback"
	"github.com/s0ultr4d3r/routereel/polyline"
	"github.com/s0ultr4d3r/routereel/style"
)

const sampleGPX = `<?xml version="1.0"?>
<gpx version="1.1" creator="test">
  <trk>
    <name>Утренний забег</name>
    <type>running</type>
    <trkseg>
      <trkpt lat="46.00000" lon="7.00000"><time>2024-03-01T06:30:00Z</time></trkpt>
      <trkpt lat="46.01000" lon="7.00000"><time>2024-03-01T06:35:00Z</time></trkpt>
      <trkpt lat="46.01000" lon="7.01000"><time>2024-03-01T06:40:00Z</time></trkpt>
    </trkseg>
  </trk>
  <trk>
    <trkseg></trkseg>
  </trk>
</gpx>`

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestParseGPXFile(t *testing.T) {
	p := writeTemp(t, "run.gpx", sampleGPX)
	acts, err := ParseGPXFile(p)
	if err != nil {
		t.Fatalf("ParseGPXFile: %v", err)
	}
	if len(acts) != 1 {
		t.Fatalf("got %d activities, empty track must be skipped", len(acts))
	}
	a := acts[0]
	if a.Type != "Run" || a.Name != "Утренний забег" {
		t.Errorf("activity = %+v", a)
	}
	if !a.StartDate.Equal(time.Date(2024, 3, 1, 6, 30, 0, 0, time.UTC)) {
		t.Errorf("StartDate = %v", a.StartDate)
	}
	// ~1112 m north plus ~772 m east at 46°N
	if a.Distance < 1800 || a.Distance > 1960 {
		t.Errorf("Distance = %.0f m", a.Distance)
	}
	pts := polyline.Decode(a.Polyline)
	if len(pts) != 3 || pts[2].Lng != 7.01 {
		t.Errorf("decoded = %v", pts)
	}
	again, _ := ParseGPXFile(p)
	if again[0].ID != a.ID {
		t.Error("GPX activity id is not stable")
	}
}

func TestLoadFilesJSON(t *testing.T) {
	list := writeTemp(t, "acts.json", `[{"id":1,"name":"a","type":"Ride","start_date":"2024-01-01T08:00:00Z","distance":1000,"polyline":"_p~iF~ps|U"}]`)
	snap := writeTemp(t, "snap.json", `{"activities":[{"id":2,"type":"Run","start_date":"2024-01-02T08:00:00Z"}],"cachedAt":"2024-02-01T00:00:00Z","count":1}`)

	files := 0
	acts, err := loadFiles([]string{list, snap}, func() { files++ })
	if err != nil {
		t.Fatalf("loadFiles: %v", err)
	}
	if len(acts) != 2 || acts[0].ID != 1 || acts[1].ID != 2 || files != 2 {
		t.Errorf("acts = %+v, files = %d", acts, files)
	}

	bad := writeTemp(t, "bad.json", `{"activities": 5}`)
	if _, err := loadFiles([]string{bad}, nil); err == nil {
		t.Error("malformed JSON accepted")
	}
}

func TestLoadFilesGivesEveryRecordItsOwnID(t *testing.T) {
	run := polyline.Encode([]polyline.LatLng{{Lat: 10, Lng: 10}, {Lat: 10.01, Lng: 10.01}})
	ride := polyline.Encode([]polyline.LatLng{{Lat: 50, Lng: 50}, {Lat: 50.01, Lng: 50.01}})
	at := func(d int) time.Time { return time.Date(2024, 1, d, 8, 0, 0, 0, time.UTC) }
	writeActs := func(name string, acts ...activity.Activity) string {
		b, err := json.Marshal(acts)
		if err != nil {
			t.Fatal(err)
		}
		return writeTemp(t, name, string(b))
	}
	noIDs := writeActs("noid.json",
		activity.Activity{Type: "Run", StartDate: at(1), Polyline: run},
		activity.Activity{Type: "Ride", StartDate: at(2), Polyline: ride})
	refresh := writeActs("refresh.json", activity.Activity{ID: 7, Type: "Run", StartDate: at(3), Polyline: run})
	again := writeActs("again.json", activity.Activity{ID: 7, Type: "Run", StartDate: at(3), Polyline: ride})

	acts, err := loadFiles([]string{noIDs, refresh, again}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(acts) != 3 {
		t.Fatalf("got %d activities, want 3", len(acts))
	}
	seen := map[int64]bool{}
	for _, a := range acts {
		if a.ID == 0 || seen[a.ID] {
			t.Errorf("id %d is zero or repeated", a.ID)
		}
		seen[a.ID] = true
		if a.ID == 7 && a.Polyline != ride {
			t.Error("repeated id kept the older record")
		}
	}

	e := playback.New(acts, playback.Options{Config: style.DefaultRenderConfig(), Manual: true})
	defer e.Close()
	for _, v := range e.AllRoutes() {
		if v.Activity.Type == "Ride" && v.Route.Points[0].Lat != 50 {
			t.Errorf("Ride drawn at %v", v.Route.Points[0])
		}
	}
}

func TestWriteFileAtomic(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "routes.gif")
	if err := writeFileAtomic(out, []byte("GIF89a")); err != nil {
		t.Fatalf("writeFileAtomic: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil || string(got) != "GIF89a" {
		t.Errorf("content = %q, %v", got, err)
	}
	if _, err := os.Stat(out + ".part"); !os.IsNotExist(err) {
		t.Error(".part file left behind")
	}
}

func TestParseDay(t *testing.T) {
	start, err := parseDay("2024-01-10", time.UTC, false)
	if err != nil || !start.Equal(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v, %v", start, err)
	}
	end, err := parseDay("2024-01-10", time.UTC, true)
	if err != nil || end.Day() != 10 || end.Hour() != 23 {
		t.Errorf("end = %v, %v", end, err)
	}
	if _, err := parseDay("10.01.2024", time.UTC, false); err == nil {
		t.Error("wrong format accepted")
	}
}

func TestFitProjection(t *testing.T) {
	line := polyline.Encode([]polyline.LatLng{{Lat: 46, Lng: 7}, {Lat: 46.1, Lng: 7.2}})
	e := playback.New([]activity.Activity{
		{ID: 1, Type: "Run", StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Polyline: line},
		{ID: 2, Type: "Run", StartDate: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
	}, playback.Options{Config: style.DefaultRenderConfig(), Manual: true})
	defer e.Close()

	proj, err := fitProjection(e, 400, 200, 0.05)
	if err != nil {
		t.Fatalf("fitProjection: %v", err)
	}
	if proj.North < 46.1 || proj.South > 46 || proj.East < 7.2 || proj.West > 7 {
		t.Errorf("bounds %+v do not cover the route", proj.Bounds)
	}
	x, y := proj.Project(46, 7)
	if x < 0 || x > 400 || y < 0 || y > 200 {
		t.Errorf("route start projects outside the frame: %.1f,%.1f", x, y)
	}

	empty := playback.New(nil, playback.Options{Config: style.DefaultRenderConfig(), Manual: true})
	defer empty.Close()
	if _, err := fitProjection(empty, 100, 100, 0); err == nil {
		t.Error("empty engine produced a projection")
	}
}
