package activity

import (
	"sync"

	"github.com/golang/geo/s2"
	"github.com/rs/zerolog"

	"github.com/s0ultr4d3r/routereel/logging"
	"github.com/s0ultr4d3r/routereel/polyline"
)

// Route is the decoded geometry of one activity.
type Route struct {
	ActivityID int64
	Points     []polyline.LatLng
}

// Routes decodes polylines lazily and keeps the result for the lifetime of
// the cache. An entry is reused only while the activity still carries the
// same polyline.
type Routes struct {
	mu      sync.Mutex
	byID    map[int64]cached
	skipped int
	log     zerolog.Logger
}

// cached holds a nil route for an activity without usable geometry.
type cached struct {
	polyline string
	route    *Route
}

func NewRoutes() *Routes {
	return &Routes{
		byID: make(map[int64]cached),
		log:  logging.Component("routes"),
	}
}

// Get returns the route for a, decoding it on first use. It returns nil when
// the activity has no polyline or the polyline is malformed.
func (r *Routes) Get(a *Activity) *Route {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.byID[a.ID]; ok && c.polyline == a.Polyline {
		return c.route
	}
	pts, err := polyline.DecodeStrict(a.Polyline)
	if err != nil {
		r.skipped++
		r.log.Debug().Int64("activity_id", a.ID).Err(err).Msg("skipping route geometry")
	}
	var rt *Route
	if len(pts) > 0 {
		rt = &Route{ActivityID: a.ID, Points: pts}
	}
	r.byID[a.ID] = cached{polyline: a.Polyline, route: rt}
	return rt
}

// All returns the routes of acts that have geometry, in input order.
func (r *Routes) All(acts []Activity) []*Route {
	out := make([]*Route, 0, len(acts))
	for i := range acts {
		if rt := r.Get(&acts[i]); rt != nil {
			out = append(out, rt)
		}
	}
	return out
}

// Skipped is the number of malformed polylines seen so far.
func (r *Routes) Skipped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.skipped
}

// Bounds returns the bounding rectangle of all points in routes.
func Bounds(routes []*Route) (s2.Rect, bool) {
	rect := s2.EmptyRect()
	for _, rt := range routes {
		for _, p := range rt.Points {
			rect = rect.AddPoint(s2.LatLngFromDegrees(p.Lat, p.Lng))
		}
	}
	return rect, !rect.IsEmpty()
}
