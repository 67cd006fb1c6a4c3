// Package export renders a date range of the animation into an animated
// image. The view is captured once, every frame re-draws routes over the
// same background, and a final coverage frame shows every route at once.
package export

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/s0ultr4d3r/routereel/logging"
	"github.com/s0ultr4d3r/routereel/metrics"
	"github.com/s0ultr4d3r/routereel/playback"
	"github.com/s0ultr4d3r/routereel/render"
	"github.com/s0ultr4d3r/routereel/style"
)

// MapView is the visible map: a projection and a way to capture its
// background at that projection's size.
type MapView interface {
	Projection() render.Projection
	Capture(ctx context.Context) (image.Image, error)
}

// FrameInfo describes one rendered frame.
type FrameInfo struct {
	At       time.Time
	RouteIDs []int64
	Coverage bool
}

// Result is a finished export.
type Result struct {
	Data     []byte
	Frames   []FrameInfo
	Filename string
	Width    int
	Height   int
	Delay    time.Duration
}

// Config of an Exporter.
type Config struct {
	Renderer render.Renderer
	Encoder  Encoder // GIFEncoder{} if nil
	Coverage render.CoverageStyle
	// Settle is waited after every seek before reading the engine state.
	Settle time.Duration
	// Location defines calendar days, UTC if nil.
	Location *time.Location
}

// Exporter runs at most one export at a time.
type Exporter struct {
	engine *playback.Engine
	view   MapView
	cfg    Config
	busy   atomic.Bool
	log    zerolog.Logger
}

func New(engine *playback.Engine, view MapView, cfg Config) *Exporter {
	if cfg.Encoder == nil {
		cfg.Encoder = GIFEncoder{}
	}
	if cfg.Coverage == (render.CoverageStyle{}) {
		cfg.Coverage = render.DefaultCoverage
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Exporter{engine: engine, view: view, cfg: cfg, log: logging.Component("export")}
}

// Busy reports whether an export is running.
func (x *Exporter) Busy() bool { return x.busy.Load() }

// Export renders opts into an animated image. progress, if set, receives
// monotonically increasing values in [0, 1]: capture covers the first half,
// encoding the second. The engine's time and play state are restored before
// encoding starts and on every failure. The closing coverage frame draws every
// route of the engine's type filter, whatever its date bounds.
func (x *Exporter) Export(ctx context.Context, opts Options, progress func(float64)) (*Result, error) {
	if !x.busy.CompareAndSwap(false, true) {
		metrics.ExportsTotal.WithLabelValues("busy").Inc()
		return nil, ErrExportInProgress
	}
	defer x.busy.Store(false)

	if err := opts.validate(); err != nil {
		return nil, err
	}

	began := time.Now()
	log := x.log.With().Str("export_id", uuid.NewString()).Logger()
	report := progressFunc(progress)

	res, err := x.run(ctx, log, opts, report)
	if err != nil {
		metrics.ExportsTotal.WithLabelValues("failed").Inc()
		log.Error().Err(err).Msg("export failed")
		return nil, err
	}
	metrics.ExportsTotal.WithLabelValues("ok").Inc()
	metrics.ExportDuration.Observe(time.Since(began).Seconds())
	log.Info().
		Int("frames", len(res.Frames)).
		Int("bytes", len(res.Data)).
		Dur("took", time.Since(began)).
		Str("file", res.Filename).
		Msg("export done")
	return res, nil
}

func (x *Exporter) run(ctx context.Context, log zerolog.Logger, opts Options, report func(float64)) (*Result, error) {
	var once sync.Once
	resume := x.engine.Suspend()
	restore := func() { once.Do(resume) }
	defer restore()

	proj := x.view.Projection()
	bg, err := x.view.Capture(ctx)
	if err != nil {
		return nil, &StageError{Stage: StageCapture, Err: err}
	}
	if opts.Region != nil {
		sub, err := proj.Region(*opts.Region)
		if err != nil {
			return nil, &StageError{Stage: StageCapture, Err: err}
		}
		bg = render.Crop(bg, opts.Region.Intersect(image.Rect(0, 0, proj.Width, proj.Height)))
		proj = sub
	}
	w, h := opts.Width, opts.Height
	if w == 0 {
		w = proj.Width
	}
	if h == 0 {
		h = proj.Height
	}

	active := x.engine.Active()
	starts := make([]time.Time, len(active))
	for i := range active {
		starts[i] = active[i].StartDate
	}
	n := opts.FrameCount()
	days := ActivityDays(starts, opts.Start, opts.End, x.cfg.Location)
	stamps := Timestamps(days, n, opts.Start, opts.End)
	log.Info().
		Int("frames", n).
		Int("days", len(days)).
		Int("width", w).
		Int("height", h).
		Time("start", opts.Start).
		Time("end", opts.End).
		Msg("export started")
	if len(days) == 0 {
		log.Warn().Msg("no activities in range, sampling uniformly")
	}

	frames := make([]*image.RGBA, 0, n+1)
	infos := make([]FrameInfo, 0, n+1)
	total := float64(n + 1)
	for i, at := range stamps {
		if err := ctx.Err(); err != nil {
			return nil, &StageError{Stage: StageRender, Err: err}
		}
		x.engine.Seek(at)
		if err := settle(ctx, x.cfg.Settle); err != nil {
			return nil, &StageError{Stage: StageRender, Err: err}
		}
		snap := x.engine.Snapshot()
		frames = append(frames, x.cfg.Renderer.Render(w, h, bg, proj.Bounds, strokes(snap.Routes)))
		infos = append(infos, FrameInfo{At: at, RouteIDs: routeIDs(snap.Routes)})
		report(0.5 * float64(i+1) / total)
	}

	all := x.engine.CoverageRoutes()
	var colors style.Provider = style.DefaultPalette()
	if c := x.engine.Config().Colors; c != nil {
		colors = c
	}
	base := make([]render.Stroke, len(all))
	for i, v := range all {
		base[i] = render.Stroke{Points: v.Route.Points, Color: colors.ColorFor(v.Activity.Kind())}
	}
	frames = append(frames, x.cfg.Renderer.Render(w, h, bg, proj.Bounds, render.Coverage(base, x.cfg.Coverage)))
	infos = append(infos, FrameInfo{At: opts.End, RouteIDs: routeIDs(all), Coverage: true})
	metrics.ExportFrames.Add(float64(len(frames)))
	report(0.5)

	restore()

	delay := opts.Delay()
	data, err := x.cfg.Encoder.Encode(ctx, frames, delay, func(done, total int) {
		report(0.5 + 0.5*float64(done)/float64(total))
	})
	if err != nil {
		return nil, &StageError{Stage: StageEncode, Err: err}
	}
	report(1)

	name := Filename(opts.Start, opts.End, x.cfg.Location)
	if ext := x.cfg.Encoder.Ext(); ext != ".gif" {
		name = name[:len(name)-len(".gif")] + ext
	}
	return &Result{Data: data, Frames: infos, Filename: name, Width: w, Height: h, Delay: delay}, nil
}

func strokes(vs []playback.Visible) []render.Stroke {
	out := make([]render.Stroke, len(vs))
	for i, v := range vs {
		out[i] = render.Stroke{
			Points:  v.Route.Points,
			Color:   v.Style.Color,
			Weight:  v.Style.Weight,
			Opacity: v.Style.Opacity,
		}
	}
	return out
}

func routeIDs(vs []playback.Visible) []int64 {
	ids := make([]int64, len(vs))
	for i, v := range vs {
		ids[i] = v.Activity.ID
	}
	return ids
}

// progressFunc drops regressions so callers see a monotonic sequence.
func progressFunc(fn func(float64)) func(float64) {
	if fn == nil {
		return func(float64) {}
	}
	var mu sync.Mutex
	last := -1.0
	return func(p float64) {
		mu.Lock()
		defer mu.Unlock()
		if p <= last {
			return
		}
		last = p
		fn(p)
	}
}

func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
