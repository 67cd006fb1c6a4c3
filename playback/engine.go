// Package playback owns the animation clock: a virtual "now" that advances at
// speed days per real second, and the set of routes visible at that time.
//
// Routes accumulate: once an activity's start date has been reached it stays
// visible until Reset or a seek to an earlier time.
package playback

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/s0ultr4d3r/routereel/activity"
	"github.com/s0ultr4d3r/routereel/logging"
	"github.com/s0ultr4d3r/routereel/metrics"
	"github.com/s0ultr4d3r/routereel/overlap"
	"github.com/s0ultr4d3r/routereel/style"
)

const (
	MinSpeed     = 0.1
	MaxSpeed     = 100
	DefaultSpeed = 7

	// DefaultFrameInterval is the tick cadence of the internal scheduler.
	DefaultFrameInterval = time.Second / 60

	virtualDay = 24 * time.Hour
)

// State of the clock. AtEnd is a paused clock whose time equals the end.
type State int

const (
	Stopped State = iota
	Playing
	Paused
	AtEnd
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case AtEnd:
		return "at_end"
	}
	return "unknown"
}

// Visible is a materialised route with its current style.
type Visible struct {
	Activity activity.Activity
	Route    *activity.Route
	Overlap  float64
	Style    style.Style
}

// Snapshot is a consistent copy of the engine state.
type Snapshot struct {
	State   State
	Speed   float64
	Current time.Time
	Start   time.Time
	End     time.Time
	Routes  []Visible
}

// Options configures an Engine.
type Options struct {
	Config     style.RenderConfig
	Filter     activity.Filter
	Resolution float64 // overlap cell size in degrees
	Speed      float64 // virtual days per real second

	// FrameInterval is the cadence of the internal ticker.
	FrameInterval time.Duration
	// Manual disables the internal ticker; the caller drives the clock with
	// Advance while playing.
	Manual bool
	// Now is the wall clock, time.Now by default.
	Now func() time.Time
}

// ticker is one run of the tick goroutine.
type ticker struct {
	cancel context.CancelFunc
	done   chan struct{}
	// painting is set while this goroutine is inside an OnFrame callback.
	painting atomic.Bool
}

// Engine is safe for concurrent use. The route cache and overlap grid are
// replaced only while holding the lock, so readers never see a partial
// rebuild.
type Engine struct {
	mu sync.Mutex

	all        []activity.Activity
	active     []activity.Activity
	filter     activity.Filter
	cfg        style.RenderConfig
	resolution float64
	routes     *activity.Routes
	grid       *overlap.Grid

	state    State
	speed    float64
	current  time.Time
	start    time.Time
	end      time.Time
	next     int
	visible  []Visible
	lastTick time.Time

	manual   bool
	interval time.Duration
	now      func() time.Time
	run      *ticker
	closed   bool

	onFrame func(Snapshot)

	log zerolog.Logger
}

// New builds an engine over acts. The overlap grid and time range are
// computed before New returns.
func New(acts []activity.Activity, opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultFrameInterval
	}
	if opts.Speed == 0 {
		opts.Speed = DefaultSpeed
	}
	e := &Engine{
		filter:     opts.Filter,
		cfg:        opts.Config,
		resolution: opts.Resolution,
		routes:     activity.NewRoutes(),
		speed:      clampSpeed(opts.Speed),
		manual:     opts.Manual,
		interval:   opts.FrameInterval,
		now:        opts.Now,
		log:        logging.Component("playback"),
	}
	e.all = e.prepare(acts)
	e.rebuild()
	return e
}

// prepare gives every record a distinct id and orders the set by start.
func (e *Engine) prepare(acts []activity.Activity) []activity.Activity {
	uniq, merged := activity.Unique(acts)
	if merged > 0 {
		e.log.Warn().Int("merged", merged).Msg("duplicate activity ids, keeping the latest record")
	}
	return activity.Sorted(uniq)
}

func clampSpeed(s float64) float64 {
	if s < MinSpeed {
		return MinSpeed
	}
	if s > MaxSpeed {
		return MaxSpeed
	}
	return s
}

// rebuild recomputes the active set, overlap grid and time range, and
// rewinds the clock. Caller holds mu or has exclusive access.
func (e *Engine) rebuild() {
	began := time.Now()
	e.active = e.filter.Apply(e.all)
	e.grid = overlap.Build(e.routes.All(e.active), e.resolution)
	metrics.OverlapBuildDuration.Observe(time.Since(began).Seconds())

	e.start, e.end, _ = activity.TimeRange(e.active)
	e.rewind()
	e.log.Debug().
		Int("active", len(e.active)).
		Int("cells", e.grid.Cells()).
		Int("max_overlap", e.grid.MaxOverlap()).
		Dur("took", time.Since(began)).
		Msg("active set rebuilt")
}

func (e *Engine) rewind() {
	e.state = Stopped
	e.current = e.start
	e.next = 0
	e.visible = nil
	metrics.VisibleRoutes.Set(0)
}

// materialize adds every activity whose start has been reached.
func (e *Engine) materialize() {
	for e.next < len(e.active) && !e.active[e.next].StartDate.After(e.current) {
		a := e.active[e.next]
		e.next++
		rt := e.routes.Get(&a)
		if rt == nil {
			continue
		}
		e.visible = append(e.visible, Visible{
			Activity: a,
			Route:    rt,
			Overlap:  e.grid.Score(rt),
		})
	}
	metrics.VisibleRoutes.Set(float64(len(e.visible)))
}

func (e *Engine) restyle() {
	for i := range e.visible {
		v := &e.visible[i]
		v.Style = e.cfg.For(v.Activity.Kind(), v.Activity.StartDate, e.current, v.Overlap)
	}
}

func (e *Engine) snapshotLocked() Snapshot {
	st := e.state
	if st == Paused && e.current.Equal(e.end) {
		st = AtEnd
	}
	routes := make([]Visible, len(e.visible))
	copy(routes, e.visible)
	return Snapshot{
		State:   st,
		Speed:   e.speed,
		Current: e.current,
		Start:   e.start,
		End:     e.end,
		Routes:  routes,
	}
}

// OnFrame registers fn to be called after every tick, seek and reset. fn
// runs outside the engine lock and may call Pause, but not Close.
func (e *Engine) OnFrame(fn func(Snapshot)) {
	e.mu.Lock()
	e.onFrame = fn
	e.mu.Unlock()
}

func (e *Engine) notify(s Snapshot, fn func(Snapshot)) {
	if fn != nil {
		fn(s)
	}
}

// Play starts or resumes playback. Playing from AtEnd rewinds first.
func (e *Engine) Play() {
	e.mu.Lock()
	if e.closed || e.state == Playing || len(e.active) == 0 {
		e.mu.Unlock()
		return
	}
	if e.state == Paused && !e.current.Before(e.end) {
		e.rewind()
	}
	e.state = Playing
	e.lastTick = e.now()
	e.materialize()
	e.restyle()

	if !e.manual {
		ctx, cancel := context.WithCancel(context.Background())
		e.run = &ticker{cancel: cancel, done: make(chan struct{})}
		go e.loop(ctx, e.run)
	}
	snap, fn := e.snapshotLocked(), e.onFrame
	e.mu.Unlock()
	e.notify(snap, fn)
}

func (e *Engine) loop(ctx context.Context, run *ticker) {
	defer close(run.done)
	t := time.NewTicker(e.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			snap, fn, ok, more := e.tick(ctx, e.now())
			// the final tick cancels ctx itself and must still be painted
			if ok && (!more || ctx.Err() == nil) {
				run.painting.Store(true)
				e.notify(snap, fn)
				run.painting.Store(false)
			}
			if !more {
				return
			}
		}
	}
}

// tick advances the clock to wall time now. ok reports whether state
// changed; more whether the loop should keep running.
func (e *Engine) tick(ctx context.Context, now time.Time) (snap Snapshot, fn func(Snapshot), ok, more bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ctx.Err() != nil || e.state != Playing {
		return Snapshot{}, nil, false, false
	}
	elapsed := now.Sub(e.lastTick)
	e.lastTick = now
	more = e.advance(elapsed)
	return e.snapshotLocked(), e.onFrame, true, more
}

// advance moves the virtual clock by elapsed real time. Caller holds mu.
func (e *Engine) advance(elapsed time.Duration) bool {
	if elapsed < 0 {
		elapsed = 0
	}
	metrics.PlaybackTicks.Inc()
	delta := time.Duration(float64(elapsed) * e.speed * float64(virtualDay) / float64(time.Second))
	e.current = e.current.Add(delta)

	if !e.current.Before(e.end) {
		e.current = e.end
		e.materialize()
		e.restyle()
		e.state = Paused
		if e.run != nil {
			e.run.cancel()
			e.run = nil
		}
		e.log.Debug().Time("end", e.end).Msg("playback reached end")
		return false
	}
	e.materialize()
	e.restyle()
	return true
}

// Advance performs one tick as if elapsed real time had passed. It is a
// no-op unless playing, and reports whether playback is still running.
func (e *Engine) Advance(elapsed time.Duration) bool {
	e.mu.Lock()
	if e.state != Playing {
		e.mu.Unlock()
		return false
	}
	e.lastTick = e.lastTick.Add(elapsed)
	more := e.advance(elapsed)
	snap, fn := e.snapshotLocked(), e.onFrame
	e.mu.Unlock()
	e.notify(snap, fn)
	return more
}

// Pause stops playback and cancels the pending tick.
func (e *Engine) Pause() {
	e.mu.Lock()
	if e.state != Playing {
		e.mu.Unlock()
		return
	}
	e.state = Paused
	run := e.stopLocked()
	e.mu.Unlock()
	e.wait(run)
}

// stopLocked cancels the ticker; the tick goroutine observes the cancelled
// context under mu, so no tick applies after this returns.
func (e *Engine) stopLocked() *ticker {
	run := e.run
	if run != nil {
		run.cancel()
	}
	e.run = nil
	return run
}

// wait blocks until the stopped tick goroutine exits. A call made from that
// goroutine's own frame callback returns at once; its frame has already
// started and the goroutine exits when the callback returns.
func (e *Engine) wait(run *ticker) {
	if run == nil || run.painting.Load() {
		return
	}
	<-run.done
}

// Reset stops playback, clears every rendered route and rewinds to the start.
func (e *Engine) Reset() {
	e.mu.Lock()
	run := e.stopLocked()
	e.rewind()
	snap, fn := e.snapshotLocked(), e.onFrame
	e.mu.Unlock()
	e.wait(run)
	e.notify(snap, fn)
}

// Seek jumps to t, clamped to the active range, keeping the play state.
// Visibility and styles are recomputed before Seek returns.
func (e *Engine) Seek(t time.Time) {
	e.mu.Lock()
	e.seekLocked(t)
	snap, fn := e.snapshotLocked(), e.onFrame
	e.mu.Unlock()
	e.notify(snap, fn)
}

func (e *Engine) seekLocked(t time.Time) {
	if t.Before(e.start) {
		t = e.start
	}
	if t.After(e.end) {
		t = e.end
	}
	e.current = t
	e.next = 0
	e.visible = e.visible[:0]
	e.materialize()
	e.restyle()
	if e.state == Stopped {
		e.state = Paused
	}
	e.lastTick = e.now()
}

// SetSpeed sets virtual days per real second, clamped to [MinSpeed, MaxSpeed].
func (e *Engine) SetSpeed(s float64) {
	e.mu.Lock()
	e.speed = clampSpeed(s)
	e.mu.Unlock()
}

// SetFilter changes the active set. The overlap grid and time range are
// rebuilt synchronously and the clock is reset.
func (e *Engine) SetFilter(f activity.Filter) {
	e.mu.Lock()
	if f.Equal(e.filter) {
		e.mu.Unlock()
		return
	}
	run := e.stopLocked()
	e.filter = f
	e.rebuild()
	snap, fn := e.snapshotLocked(), e.onFrame
	e.mu.Unlock()
	e.wait(run)
	e.notify(snap, fn)
}

// SetActivities replaces the input set and rebuilds as SetFilter does.
// Decoded routes are dropped, so refreshed records get their new geometry.
func (e *Engine) SetActivities(acts []activity.Activity) {
	e.mu.Lock()
	run := e.stopLocked()
	e.all = e.prepare(acts)
	e.routes = activity.NewRoutes()
	e.rebuild()
	snap, fn := e.snapshotLocked(), e.onFrame
	e.mu.Unlock()
	e.wait(run)
	e.notify(snap, fn)
}

// SetConfig swaps the style configuration and restyles in place.
func (e *Engine) SetConfig(cfg style.RenderConfig) {
	e.mu.Lock()
	e.cfg = cfg
	e.restyle()
	snap, fn := e.snapshotLocked(), e.onFrame
	e.mu.Unlock()
	e.notify(snap, fn)
}

// Suspend pauses playback and returns a function that restores the time and
// play state captured here.
func (e *Engine) Suspend() (restore func()) {
	e.mu.Lock()
	state, current := e.state, e.current
	e.mu.Unlock()
	e.Pause()

	return func() {
		if state == Stopped {
			e.Reset()
			return
		}
		e.Seek(current)
		if state == Playing {
			e.Play()
		}
	}
}

// Close stops the ticker and waits for it to exit. The engine cannot be
// played afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	if e.state == Playing {
		e.state = Paused
	}
	run := e.stopLocked()
	e.mu.Unlock()
	if run != nil {
		<-run.done
	}
}

// Snapshot returns the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// State returns the current clock state.
func (e *Engine) State() State { return e.Snapshot().State }

// Current returns the virtual time.
func (e *Engine) Current() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Range returns the active time range.
func (e *Engine) Range() (start, end time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.start, e.end
}

// Active returns a copy of the active activity set, sorted by start.
func (e *Engine) Active() []activity.Activity {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]activity.Activity, len(e.active))
	copy(out, e.active)
	return out
}

// AllRoutes returns every route of the active set, ignoring the clock.
func (e *Engine) AllRoutes() []Visible {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Visible, 0, len(e.active))
	for i := range e.active {
		a := e.active[i]
		if rt := e.routes.Get(&a); rt != nil {
			out = append(out, Visible{Activity: a, Route: rt, Overlap: e.grid.Score(rt)})
		}
	}
	return out
}

// CoverageRoutes returns every route that passes the type filter, ignoring
// the filter's date bounds and the clock.
func (e *Engine) CoverageRoutes() []Visible {
	e.mu.Lock()
	defer e.mu.Unlock()
	acts := activity.Filter{Types: e.filter.Types}.Apply(e.all)
	out := make([]Visible, 0, len(acts))
	for i := range acts {
		a := acts[i]
		if rt := e.routes.Get(&a); rt != nil {
			out = append(out, Visible{Activity: a, Route: rt, Overlap: e.grid.Score(rt)})
		}
	}
	return out
}

// Grid returns the overlap grid of the active set.
func (e *Engine) Grid() *overlap.Grid {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.grid
}

// Stats summarises the active set.
func (e *Engine) Stats() activity.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return activity.Summarize(e.active, e.routes)
}

// Config returns the style configuration.
func (e *Engine) Config() style.RenderConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}
