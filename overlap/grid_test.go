package overlap

import (
	"math"
	"testing"

	"github.com/s0ultr4d3r/routereel/activity"
	"github.com/s0ultr4d3r/routereel/polyline"
)

// line returns n points spaced one cell apart along a parallel.
func line(id int64, lat, lng0 float64, n int) *activity.Route {
	pts := make([]polyline.LatLng, n)
	for i := range pts {
		pts[i] = polyline.LatLng{Lat: lat, Lng: lng0 + float64(i)*DefaultResolution}
	}
	return &activity.Route{ActivityID: id, Points: pts}
}

func TestBuildCountsEachRouteOncePerCell(t *testing.T) {
	dense := &activity.Route{ActivityID: 1, Points: []polyline.LatLng{
		{Lat: 46.0, Lng: 7.0}, {Lat: 46.00001, Lng: 7.00001}, {Lat: 46.00002, Lng: 7.0}, {Lat: 46.0, Lng: 7.00002},
	}}
	g := Build([]*activity.Route{dense}, 0)

	if g.Cells() != 1 {
		t.Fatalf("Cells = %d, want 1", g.Cells())
	}
	if n := g.Count(g.Key(46.0, 7.0)); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
	if g.MaxOverlap() != 1 {
		t.Errorf("MaxOverlap = %d, want 1", g.MaxOverlap())
	}
}

func TestScoreNoOverlapIsZero(t *testing.T) {
	a := line(1, 46.0, 7.0, 10)
	b := line(2, 47.0, 8.0, 10)
	g := Build([]*activity.Route{a, b}, 0)

	if g.MaxOverlap() != 1 {
		t.Fatalf("MaxOverlap = %d, want 1", g.MaxOverlap())
	}
	for _, rt := range []*activity.Route{a, b} {
		if s := g.Score(rt); s != 0 {
			t.Errorf("Score(%d) = %v, want 0", rt.ActivityID, s)
		}
	}
}

func TestScoreSharedAndLoneRoutes(t *testing.T) {
	shared := []*activity.Route{
		line(1, 46.0, 7.0, 10),
		line(2, 46.0, 7.0, 10),
		line(3, 46.0, 7.0, 10),
	}
	lone := line(4, 48.0, 9.0, 10)
	g := Build(append(shared, lone), 0)

	if g.MaxOverlap() != 3 {
		t.Fatalf("MaxOverlap = %d, want 3", g.MaxOverlap())
	}
	for _, rt := range shared {
		if s := g.Score(rt); math.Abs(s-1) > 1e-9 {
			t.Errorf("Score(%d) = %v, want 1", rt.ActivityID, s)
		}
	}
	if s := g.Score(lone); s != 0 {
		t.Errorf("Score(lone) = %v, want 0", s)
	}
}

func TestScoreBounds(t *testing.T) {
	routes := []*activity.Route{
		line(1, 46.0, 7.0, 20),
		line(2, 46.0, 7.005, 20), // half overlaps route 1
		line(3, 46.0, 7.0, 5),
		line(4, 46.1, 7.0, 5),
	}
	g := Build(routes, 0)
	for _, rt := range routes {
		s := g.Score(rt)
		if s < 0 || s > 1 {
			t.Errorf("Score(%d) = %v out of [0,1]", rt.ActivityID, s)
		}
	}
	if g.Score(routes[2]) <= g.Score(routes[3]) {
		t.Error("route inside the shared corridor should outscore the isolated one")
	}
}

func TestScoreNilAndEmpty(t *testing.T) {
	g := Build(nil, 0)
	if g.Score(nil) != 0 {
		t.Error("Score(nil) != 0")
	}
	if g.Score(&activity.Route{ActivityID: 5}) != 0 {
		t.Error("Score(empty) != 0")
	}
}
