// Package metrics defines the Prometheus instruments of the renderer and
// the debug HTTP server that exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "routereel_exports_total",
		Help: "Export runs by result (ok, busy, failed).",
	}, []string{"result"})

	ExportFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "routereel_export_frames_total",
		Help: "Frames rendered by the export sequencer, coverage frames included.",
	})

	ExportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "routereel_export_duration_seconds",
		Help:    "Wall time of successful exports.",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
	})

	PlaybackTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "routereel_playback_ticks_total",
		Help: "Animation clock ticks processed.",
	})

	VisibleRoutes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "routereel_visible_routes",
		Help: "Routes materialised by the playback engine.",
	})

	OverlapBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "routereel_overlap_build_seconds",
		Help:    "Time spent rebuilding the overlap grid.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	})

	SourceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "routereel_source_requests_total",
		Help: "Activity source HTTP requests by status code.",
	}, []string{"status"})

	TileRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "routereel_tile_requests_total",
		Help: "Tile lookups by outcome (cache, fetch, error).",
	}, []string{"outcome"})
)
