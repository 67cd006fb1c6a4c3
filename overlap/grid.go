// Package overlap counts how many distinct routes pass through each small
// geographic cell and scores routes by how much they share with others.
package overlap

import (
	"math"

	"github.com/s0ultr4d3r/routereel/activity"
	"github.com/s0ultr4d3r/routereel/polyline"
)

// DefaultResolution is the cell size in degrees (about 50 m).
const DefaultResolution = 0.0005

// CellKey identifies a cell: lat and lng divided by the resolution, rounded.
type CellKey struct {
	Lat, Lng int32
}

// Grid is built once per active set and is read-only afterwards.
type Grid struct {
	resolution float64
	counts     map[CellKey]int
	maxOverlap int
	scores     map[int64]float64
}

// Build counts, for every cell, the number of routes that visit it at least
// once. resolution <= 0 selects DefaultResolution.
func Build(routes []*activity.Route, resolution float64) *Grid {
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	g := &Grid{
		resolution: resolution,
		counts:     make(map[CellKey]int),
		maxOverlap: 1,
		scores:     make(map[int64]float64, len(routes)),
	}

	cellsByRoute := make([][]CellKey, len(routes))
	for i, rt := range routes {
		cells := g.cellsOf(rt.Points)
		cellsByRoute[i] = cells
		for _, k := range cells {
			g.counts[k]++
		}
	}
	for _, n := range g.counts {
		if n > g.maxOverlap {
			g.maxOverlap = n
		}
	}
	for i, rt := range routes {
		g.scores[rt.ActivityID] = g.score(cellsByRoute[i])
	}
	return g
}

// Key returns the cell containing (lat, lng).
func (g *Grid) Key(lat, lng float64) CellKey {
	return CellKey{
		Lat: int32(math.Round(lat / g.resolution)),
		Lng: int32(math.Round(lng / g.resolution)),
	}
}

// cellsOf returns the distinct cells visited by pts, in first-visit order.
func (g *Grid) cellsOf(pts []polyline.LatLng) []CellKey {
	seen := make(map[CellKey]struct{}, len(pts))
	cells := make([]CellKey, 0, len(pts))
	for _, p := range pts {
		k := g.Key(p.Lat, p.Lng)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		cells = append(cells, k)
	}
	return cells
}

func (g *Grid) score(cells []CellKey) float64 {
	if g.maxOverlap <= 1 || len(cells) == 0 {
		return 0
	}
	sum := 0
	for _, k := range cells {
		sum += g.counts[k]
	}
	avg := float64(sum) / float64(len(cells))
	s := (avg - 1) / float64(g.maxOverlap-1)
	return math.Max(0, math.Min(1, s))
}

// Score returns the overlap score of rt in [0, 1]. Routes that were not part
// of the build are scored against the current counts.
func (g *Grid) Score(rt *activity.Route) float64 {
	if rt == nil {
		return 0
	}
	if s, ok := g.scores[rt.ActivityID]; ok {
		return s
	}
	return g.score(g.cellsOf(rt.Points))
}

// Count returns the number of routes visiting the cell.
func (g *Grid) Count(k CellKey) int { return g.counts[k] }

// MaxOverlap is the largest cell count, at least 1.
func (g *Grid) MaxOverlap() int { return g.maxOverlap }

// Cells is the number of non-empty cells.
func (g *Grid) Cells() int { return len(g.counts) }

// Resolution is the cell size in degrees.
func (g *Grid) Resolution() float64 { return g.resolution }
