package tiles

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/s0ultr4d3r/routereel/logging"
	"github.com/s0ultr4d3r/routereel/metrics"
)

// DefaultUserAgent identifies the tool to tile servers that require it.
const DefaultUserAgent = "routereel/1.0 (+https://github.com/s0ultr4d3r/routereel)"

// HTTPError is a non-200 tile response.
type HTTPError struct {
	Status int
	URL    string
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("tile HTTP %d for %s: %s", e.Status, e.URL, e.Body)
}

// permanent reports whether retrying cannot help.
func (e *HTTPError) permanent() bool {
	return e.Status >= 400 && e.Status < 500 && e.Status != http.StatusTooManyRequests
}

// FetcherConfig holds the knobs for NewFetcher. Zero values pick defaults.
type FetcherConfig struct {
	CacheDir  string
	RPS       float64
	Burst     int
	Timeout   time.Duration
	UserAgent string
	Retries   int
}

// Fetcher downloads tiles through a shared rate limiter and keeps every
// body on disk keyed by URL.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	dir     string
	ua      string
	retries int
	log     zerolog.Logger
}

func NewFetcher(cfg FetcherConfig) (*Fetcher, error) {
	if cfg.CacheDir == "" {
		cfg.CacheDir = ".tilecache"
	}
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, err
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 8
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	return &Fetcher{
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		dir:     cfg.CacheDir,
		ua:      cfg.UserAgent,
		retries: cfg.Retries,
		log:     logging.Component("tiles"),
	}, nil
}

// cachePath shards by hash prefix and keeps a short image extension when the
// URL has one, so the cache dir stays browsable.
func (f *Fetcher) cachePath(u string) string {
	sum := sha1.Sum([]byte(u))
	id := hex.EncodeToString(sum[:])
	if i := strings.IndexByte(u, '?'); i >= 0 {
		u = u[:i]
	}
	ext := path.Ext(u)
	switch strings.ToLower(ext) {
	case ".png", ".jpg", ".jpeg", ".webp":
	default:
		ext = ".tile"
	}
	return filepath.Join(f.dir, id[:2], id+ext)
}

// GetTile returns the tile body, from the cache when present.
func (f *Fetcher) GetTile(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	cp := f.cachePath(url)
	if b, err := os.ReadFile(cp); err == nil {
		metrics.TileRequests.WithLabelValues("cache").Inc()
		return b, nil
	}

	var lastErr error
	for attempt := range f.retries {
		if attempt > 0 {
			if err := sleepCtx(ctx, time.Duration(attempt)*300*time.Millisecond); err != nil {
				return nil, err
			}
		}
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		body, err := f.fetchOnce(ctx, url, headers)
		if err == nil {
			metrics.TileRequests.WithLabelValues("fetch").Inc()
			if err := writeCache(cp, body); err != nil {
				f.log.Warn().Err(err).Str("path", cp).Msg("tile cache write failed")
			}
			return body, nil
		}
		lastErr = err
		f.log.Debug().Err(err).Int("attempt", attempt+1).Msg("tile fetch failed")
		var he *HTTPError
		if errors.As(err, &he) && he.permanent() {
			break
		}
	}
	metrics.TileRequests.WithLabelValues("error").Inc()
	return nil, lastErr
}

func writeCache(p string, body []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.ua)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
		return nil, &HTTPError{Status: resp.StatusCode, URL: url, Body: strings.TrimSpace(string(b))}
	}
	return io.ReadAll(resp.Body)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
