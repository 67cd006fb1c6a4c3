package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/s0ultr4d3r/routereel/logging"
)

// Router serves /metrics and /debug/pprof/*.
func Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/debug", middleware.Profiler())
	return r
}

// Serve starts the debug server on addr in the background. The returned
// function shuts it down.
func Serve(addr string) func(context.Context) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	log := logging.Component("debug")
	go func() {
		log.Info().Str("addr", "http://"+addr).Msg("debug server: /metrics, /debug/pprof/")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("debug server stopped")
		}
	}()
	return srv.Shutdown
}
