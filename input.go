package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/s0ultr4d3r/routereel/activity"
	"github.com/s0ultr4d3r/routereel/config"
	"github.com/s0ultr4d3r/routereel/logging"
	"github.com/s0ultr4d3r/routereel/source"
	"github.com/s0ultr4d3r/routereel/store"
)

// loadFiles читает активности из JSON (массив или снимок кэша) и GPX.
// Записи без id получают синтетический, повторный id заменяет прежнюю запись.
func loadFiles(paths []string, onFile func()) ([]activity.Activity, error) {
	var all []activity.Activity
	for _, p := range paths {
		var acts []activity.Activity
		var err error
		switch strings.ToLower(filepath.Ext(p)) {
		case ".gpx":
			acts, err = ParseGPXFile(p)
		default:
			acts, err = readJSON(p)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		all = append(all, acts...)
		if onFile != nil {
			onFile()
		}
	}
	uniq, merged := activity.Unique(all)
	if merged > 0 {
		logging.Warn().Int("merged", merged).Msg("повторные id активностей, оставлена последняя запись")
	}
	return uniq, nil
}

func readJSON(path string) ([]activity.Activity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var list []activity.Activity
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var snap store.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return snap.Activities, nil
}

// loadActivities берёт активности из файлов, из свежего кэша или из API.
// Ответ API кладётся в кэш целиком.
func loadActivities(ctx context.Context, cfg *config.Config, inputs []string, refresh bool, bars *Bars) ([]activity.Activity, error) {
	if len(inputs) == 0 && cfg.Source.Input != "" {
		inputs = []string{cfg.Source.Input}
	}
	if len(inputs) > 0 {
		bars.StartFetch(len(inputs), "[IN] файлы")
		defer bars.FinishFetch()
		return loadFiles(inputs, func() { bars.AddFetch(1) })
	}

	st, err := store.Open(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if st != nil {
		defer st.Close()
	}
	key := cfg.Source.Key

	if st != nil && !refresh {
		snap, err := st.Load(ctx, key)
		switch {
		case err == nil && snap.Fresh(time.Now(), cfg.Cache.TTL):
			logging.Info().Int("count", snap.Count).Time("cached_at", snap.CachedAt).Msg("активности из кэша")
			return snap.Activities, nil
		case err == nil:
			logging.Info().Time("cached_at", snap.CachedAt).Msg("кэш устарел, обновляем")
		case !errors.Is(err, store.ErrNotFound):
			logging.Warn().Err(err).Msg("кэш не читается, идём в API")
		}
	}

	client := source.NewClient(cfg.Source.API, tokenProvider(cfg.Source))
	bars.StartFetch(-1, "[API] активности")
	acts, err := client.Activities(ctx, func(n int) { bars.SetFetch(n) })
	bars.FinishFetch()
	if err != nil {
		return nil, err
	}
	if st != nil {
		if err := st.Save(ctx, key, store.NewSnapshot(acts, time.Now())); err != nil {
			logging.Warn().Err(err).Msg("не удалось сохранить кэш")
		}
	}
	return acts, nil
}

func tokenProvider(c config.SourceConfig) source.TokenProvider {
	if c.OAuth.RefreshToken != "" {
		oc := c.OAuth
		if oc.AccessToken == "" {
			oc.AccessToken = c.Token
		}
		return source.NewOAuthTokens(oc, &http.Client{Timeout: c.API.Timeout})
	}
	return source.StaticToken(c.Token)
}
