package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/s0ultr4d3r/routereel/activity"
	"github.com/s0ultr4d3r/routereel/config"
	"github.com/s0ultr4d3r/routereel/playback"
	"github.com/s0ultr4d3r/routereel/render"
	"github.com/s0ultr4d3r/routereel/style"
	"github.com/s0ultr4d3r/routereel/tiles"
)

// fitProjection: bbox всех маршрутов, поля margin, затем подгонка под
// пропорции кадра.
func fitProjection(e *playback.Engine, w, h int, margin float64) (render.Projection, error) {
	all := e.AllRoutes()
	routes := make([]*activity.Route, len(all))
	for i, v := range all {
		routes[i] = v.Route
	}
	rect, ok := activity.Bounds(routes)
	if !ok {
		return render.Projection{}, errors.New("нет маршрутов с геометрией")
	}
	b := render.BoundsFromRect(rect).Pad(margin).FitAspect(w, h)
	return render.NewProjection(b, w, h)
}

// backdrop: статичная карта важнее тайлов, без обоих — однотонный фон.
func backdrop(cfg config.TilesConfig) (tiles.Source, error) {
	bg, err := style.ParseHexColor(cfg.Background)
	if err != nil {
		return nil, fmt.Errorf("bg color: %w", err)
	}
	switch {
	case cfg.StaticURL != "":
		return tiles.StaticSource{URLTemplate: cfg.StaticURL, Client: &http.Client{Timeout: cfg.Timeout}}, nil
	case cfg.Preset != "":
		p, err := tiles.Lookup(cfg.Preset)
		if err != nil {
			return nil, err
		}
		f, err := tiles.NewFetcher(tiles.FetcherConfig{
			CacheDir:  cfg.CacheDir,
			RPS:       cfg.RPS,
			Burst:     cfg.Burst,
			Timeout:   cfg.Timeout,
			UserAgent: cfg.UserAgent,
		})
		if err != nil {
			return nil, fmt.Errorf("tile cache: %w", err)
		}
		return tiles.MosaicSource{Fetcher: f, Preset: p}, nil
	}
	return tiles.SolidSource{Color: bg}, nil
}

func renderConfig(cfg config.RenderConfig) (style.RenderConfig, error) {
	pal, err := style.ParsePalette(style.DefaultPalette(), cfg.Palette)
	if err != nil {
		return style.RenderConfig{}, fmt.Errorf("palette: %w", err)
	}
	rc := style.DefaultRenderConfig()
	rc.Colors = pal
	rc.BaseOpacity = cfg.BaseOpacity
	rc.FadeWindow = cfg.FadeWindow
	return rc, nil
}
