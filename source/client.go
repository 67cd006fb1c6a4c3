// Package source fetches the athlete's activity list from the upstream API.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/s0ultr4d3r/routereel/activity"
	"github.com/s0ultr4d3r/routereel/logging"
	"github.com/s0ultr4d3r/routereel/metrics"
)

const (
	DefaultBaseURL = "https://www.strava.com/api/v3"
	DefaultPerPage = 200
)

// Config of the API client.
type Config struct {
	BaseURL  string        `koanf:"base_url"`
	PerPage  int           `koanf:"per_page"`
	MaxPages int           `koanf:"max_pages"` // 0 = until a short page
	RPS      float64       `koanf:"rps"`
	Burst    int           `koanf:"burst"`
	Timeout  time.Duration `koanf:"timeout"`
}

// Client pages through /athlete/activities. Requests go through a rate
// limiter and a circuit breaker; a 401 triggers one token refresh and one
// retry.
type Client struct {
	cfg     Config
	http    *http.Client
	tokens  TokenProvider
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]activity.Activity]
	log     zerolog.Logger
}

func NewClient(cfg Config, tokens TokenProvider) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = DefaultPerPage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if cfg.RPS > 0 {
		lim = rate.NewLimiter(rate.Limit(cfg.RPS), max(cfg.Burst, 1))
	}
	log := logging.Component("source")

	cb := gobreaker.NewCircuitBreaker[[]activity.Activity](gobreaker.Settings{
		Name:        "activity-api",
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
		// Client errors are answers, not outages.
		IsSuccessful: func(err error) bool {
			var fe *FetchError
			if errors.As(err, &fe) {
				return fe.Status < 500 && fe.Status != http.StatusTooManyRequests
			}
			return err == nil || errors.Is(err, ErrAuthRequired) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		tokens:  tokens,
		limiter: lim,
		cb:      cb,
		log:     log,
	}
}

// Activities returns every activity, newest pages last. progress, if set,
// is called with the running count after each page.
func (c *Client) Activities(ctx context.Context, progress func(count int)) ([]activity.Activity, error) {
	var all []activity.Activity
	for page := 1; ; page++ {
		batch, err := c.cb.Execute(func() ([]activity.Activity, error) {
			return c.fetchPage(ctx, page)
		})
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if progress != nil {
			progress(len(all))
		}
		c.log.Debug().Int("page", page).Int("count", len(all)).Msg("activities page fetched")
		if len(batch) < c.cfg.PerPage || (c.cfg.MaxPages > 0 && page >= c.cfg.MaxPages) {
			break
		}
	}
	c.log.Info().Int("count", len(all)).Msg("activities fetched")
	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, page int) ([]activity.Activity, error) {
	tok, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	acts, err := c.get(ctx, tok, page)
	if errors.Is(err, ErrAuthRequired) {
		c.log.Info().Msg("access token rejected, refreshing")
		if tok, err = c.tokens.Refresh(ctx); err != nil {
			return nil, err
		}
		acts, err = c.get(ctx, tok, page)
	}
	return acts, err
}

func (c *Client) get(ctx context.Context, token string, page int) ([]activity.Activity, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(c.cfg.PerPage))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/athlete/activities?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.SourceRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("activities page %d: %w", page, err)
	}
	defer resp.Body.Close()
	metrics.SourceRequests.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("activities page %d: %w", page, err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, &FetchError{Status: resp.StatusCode, Message: apiMessage(body), Hint: hintFor(resp.StatusCode)}
	}

	var wire []wireActivity
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("activities page %d: decode: %w", page, err)
	}
	acts := make([]activity.Activity, len(wire))
	for i, w := range wire {
		acts[i] = w.activity()
	}
	return acts, nil
}

type wireActivity struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	SportType string    `json:"sport_type"`
	StartDate time.Time `json:"start_date"`
	Distance  float64   `json:"distance"`
	Map       struct {
		SummaryPolyline string `json:"summary_polyline"`
	} `json:"map"`
}

func (w wireActivity) activity() activity.Activity {
	kind := w.Type
	if kind == "" {
		kind = w.SportType
	}
	return activity.Activity{
		ID:        w.ID,
		Name:      w.Name,
		Type:      kind,
		StartDate: w.StartDate,
		Distance:  w.Distance,
		Polyline:  w.Map.SummaryPolyline,
	}
}

func apiMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil {
		return e.Message
	}
	return ""
}
