package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/s0ultr4d3r/routereel/activity"
	"github.com/s0ultr4d3r/routereel/config"
	"github.com/s0ultr4d3r/routereel/export"
	"github.com/s0ultr4d3r/routereel/logging"
	"github.com/s0ultr4d3r/routereel/metrics"
	"github.com/s0ultr4d3r/routereel/playback"
	"github.com/s0ultr4d3r/routereel/render"
	"github.com/s0ultr4d3r/routereel/tiles"
)

type multiIn []string

func (m *multiIn) String() string     { return strings.Join(*m, ",") }
func (m *multiIn) Set(s string) error { *m = append(*m, s); return nil }

var (
	inMany     multiIn
	configPath = flag.String("config", "", "YAML-конфиг (по умолчанию routereel.yaml или $ROUTEREEL_CONFIG)")
	outGIF     = flag.String("out", "", "куда сохранить GIF (пусто = routes_<from>_to_<to>.gif в export.dir)")
	fromStr    = flag.String("from", "", "начало экспорта YYYY-MM-DD (пусто = первая активность)")
	toStr      = flag.String("to", "", "конец экспорта YYYY-MM-DD включительно (пусто = последняя активность)")
	size       = flag.Int("size", 0, "размер кадра (квадрат), перекрывает render.width/height")
	fps        = flag.Float64("fps", 0, "кадров в секунду")
	duration   = flag.Duration("duration", 0, "длительность итогового GIF (например, 12s)")
	margin     = flag.Float64("margin", 0, "поля от краёв bbox (0..0.25)")
	speed      = flag.Float64("speed", 0, "скорость живого проигрывания, дней в секунду (0.1..100)")
	bgHex      = flag.String("bg", "", "цвет фона (hex, если нет карты)")
	paletteStr = flag.String("palette", "", "цвета по типам: Run=#fc4c02,Ride=#0066cc,default=#666666")
	typesStr   = flag.String("types", "", "только эти типы активностей, через запятую")
	logLevel   = flag.String("log", "", "уровень логов: trace, debug, info, warn, error")
	debugAddr  = flag.String("debug", "", "адрес для /metrics и pprof (например 127.0.0.1:6060), пусто = выключено")

	// статичная картинка (Mapbox/MapTiler и др.)
	staticURL = flag.String("staticURL", "", "шаблон URL статической карты с плейсхолдерами {minLon},{minLat},{maxLon},{maxLat},{w},{h}")
	// тайловая схема: пресет или шаблон {z}/{x}/{y}
	tilesURL = flag.String("tiles", "", "пресет тайлов (osm, topo, satellite, dark, light) или шаблон URL")

	preview = flag.String("preview", "", "вместо GIF сохранить один PNG-кадр на момент -at")
	atStr   = flag.String("at", "", "момент для -preview, YYYY-MM-DD")
	play    = flag.Bool("play", false, "проиграть анимацию в реальном времени и выйти")
	refresh = flag.Bool("refresh", false, "игнорировать кэш активностей")
	quiet   = flag.Bool("quiet", false, "без прогресс-баров")

	timeout = flag.Duration("timeout", 0, "жёсткий таймаут всего процесса")
)

func main() {
	flag.Var(&inMany, "in", "путь к JSON с активностями или GPX (можно указывать много раз)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("❌ конфиг")
	}
	if err := applyFlags(cfg); err != nil {
		logging.Fatal().Err(err).Msg("❌ флаги")
	}
	logging.Init(cfg.Log)

	if cfg.Debug.Addr != "" {
		shutdown := metrics.Serve(cfg.Debug.Addr)
		defer func() { _ = shutdown(context.Background()) }()
	}

	ctx, cancel := withTimeout(context.Background(), cfg.Export.Timeout)
	defer cancel()

	out, err := run(ctx, cfg)
	if err != nil {
		logging.Error().Err(err).Msg("❌ Ошибка")
		cancel()
		os.Exit(1)
	}
	if out != "" {
		logging.Info().Str("file", out).Msg("✅ Готово")
	}
}

// applyFlags: явно заданные флаги перекрывают конфиг.
func applyFlags(cfg *config.Config) error {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "size":
			cfg.Render.Width, cfg.Render.Height = *size, *size
		case "fps":
			cfg.Export.FPS = *fps
		case "duration":
			cfg.Export.Duration = *duration
		case "margin":
			cfg.Render.Margin = *margin
		case "speed":
			cfg.Playback.Speed = *speed
		case "bg":
			cfg.Tiles.Background = *bgHex
		case "palette":
			cfg.Render.Palette = *paletteStr
		case "types":
			cfg.Render.Types = splitCSV(*typesStr)
		case "log":
			cfg.Log.Level = *logLevel
		case "debug":
			cfg.Debug.Addr = *debugAddr
		case "staticURL":
			cfg.Tiles.StaticURL = *staticURL
		case "tiles":
			cfg.Tiles.Preset = *tilesURL
		case "timeout":
			cfg.Export.Timeout = *timeout
		}
	})
	return cfg.Validate()
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func run(ctx context.Context, cfg *config.Config) (string, error) {
	loc, err := cfg.Export.Location()
	if err != nil {
		return "", err
	}
	rc, err := renderConfig(cfg.Render)
	if err != nil {
		return "", err
	}

	bars := NewBars(*quiet)
	defer bars.Done()

	acts, err := loadActivities(ctx, cfg, inMany, *refresh, bars)
	if err != nil {
		return "", fmt.Errorf("load activities: %w", err)
	}
	if len(acts) == 0 {
		return "", errors.New("нет активностей")
	}

	engine := playback.New(acts, playback.Options{
		Config:        rc,
		Filter:        activity.Filter{Types: cfg.Render.Types},
		Resolution:    cfg.Render.Resolution,
		Speed:         cfg.Playback.Speed,
		FrameInterval: cfg.Playback.FrameInterval,
	})
	defer engine.Close()
	logStats(engine.Stats())

	w, h := cfg.Render.Width, cfg.Render.Height
	proj, err := fitProjection(engine, w, h, cfg.Render.Margin)
	if err != nil {
		return "", err
	}
	src, err := backdrop(cfg.Tiles)
	if err != nil {
		return "", err
	}
	view := tiles.NewView(proj, src)
	renderer := render.Renderer{WeightScale: cfg.Render.WeightScale}

	switch {
	case *play:
		return "", runPlay(ctx, engine)
	case *preview != "":
		at, err := parseDay(*atStr, loc, false)
		if err != nil {
			return "", fmt.Errorf("-at: %w", err)
		}
		return *preview, writePreview(ctx, engine, view, renderer, at, *preview)
	}

	start, end := engine.Range()
	if *fromStr != "" {
		if start, err = parseDay(*fromStr, loc, false); err != nil {
			return "", fmt.Errorf("-from: %w", err)
		}
	}
	if *toStr != "" {
		if end, err = parseDay(*toStr, loc, true); err != nil {
			return "", fmt.Errorf("-to: %w", err)
		}
	}

	x := export.New(engine, view, export.Config{
		Renderer: renderer,
		Encoder:  export.GIFEncoder{NoDither: !cfg.Export.Dither},
		Coverage: render.CoverageStyle{Opacity: cfg.Export.CoverageOpacity, Weight: cfg.Export.CoverageWeight},
		Settle:   cfg.Export.Settle,
		Location: loc,
	})
	bars.StartExport("[GIF] экспорт")
	res, err := x.Export(ctx, export.Options{
		Start:    start,
		End:      end,
		Duration: cfg.Export.Duration,
		FPS:      cfg.Export.FPS,
	}, bars.SetExport)
	if err != nil {
		return "", err
	}

	out := *outGIF
	if out == "" {
		out = filepath.Join(cfg.Export.Dir, res.Filename)
	}
	if err := writeFileAtomic(out, res.Data); err != nil {
		return "", err
	}
	return out, nil
}

// parseDay: YYYY-MM-DD в зоне loc; endOfDay — последний момент суток.
func parseDay(s string, loc *time.Location, endOfDay bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("дата не задана")
	}
	t, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, nil
}

func writePreview(ctx context.Context, e *playback.Engine, view *tiles.View, r render.Renderer, at time.Time, path string) error {
	e.Seek(at)
	bg, err := view.Capture(ctx)
	if err != nil {
		return err
	}
	snap := e.Snapshot()
	strokes := make([]render.Stroke, len(snap.Routes))
	for i, v := range snap.Routes {
		strokes[i] = render.Stroke{Points: v.Route.Points, Color: v.Style.Color, Weight: v.Style.Weight, Opacity: v.Style.Opacity}
	}
	proj := view.Projection()
	img := r.Render(proj.Width, proj.Height, bg, proj.Bounds, strokes)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	logging.Info().Time("at", snap.Current).Int("routes", len(snap.Routes)).Msg("превью")
	return writeFileAtomic(path, buf.Bytes())
}

// runPlay крутит живую анимацию до конца диапазона или отмены.
func runPlay(ctx context.Context, e *playback.Engine) error {
	start, end := e.Range()
	days := int(end.Sub(start).Hours()/24) + 1
	bar := NewBars(*quiet).bar(days, "[PLAY] дни", true)
	defer func() { _ = bar.Finish() }()

	done := make(chan struct{})
	var once sync.Once
	e.OnFrame(func(s playback.Snapshot) {
		_ = bar.Set(int(s.Current.Sub(s.Start).Hours() / 24))
		if s.State == playback.AtEnd {
			once.Do(func() { close(done) })
		}
	})
	e.Play()
	logging.Info().Time("from", start).Time("to", end).Float64("speed", e.Snapshot().Speed).Msg("проигрывание")

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		e.Pause()
		return ctx.Err()
	}
}

func logStats(s activity.Stats) {
	ev := logging.Info().Int("activities", s.Count).Int("with_geometry", s.WithGeometry).Float64("km", s.Distance/1000)
	for kind, ts := range s.ByType {
		ev = ev.Int(kind, ts.Count)
	}
	ev.Msg("активности")
}
