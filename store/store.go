// Package store persists the fetched activity list as one JSON blob per key.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/s0ultr4d3r/routereel/activity"
)

// ErrNotFound is returned by Load for a missing key.
var ErrNotFound = errors.New("store: snapshot not found")

// Snapshot is the cached activity list. Blobs are written and read whole.
type Snapshot struct {
	Activities []activity.Activity `json:"activities"`
	CachedAt   time.Time           `json:"cachedAt"`
	Count      int                 `json:"count"`
}

// NewSnapshot stamps acts with the current time.
func NewSnapshot(acts []activity.Activity, now time.Time) *Snapshot {
	return &Snapshot{Activities: acts, CachedAt: now.UTC(), Count: len(acts)}
}

// Fresh reports whether the snapshot is younger than ttl. A zero ttl never
// expires.
func (s *Snapshot) Fresh(now time.Time, ttl time.Duration) bool {
	if s == nil {
		return false
	}
	return ttl <= 0 || now.Sub(s.CachedAt) < ttl
}

// Store is a key to snapshot map.
type Store interface {
	Load(ctx context.Context, key string) (*Snapshot, error)
	Save(ctx context.Context, key string, snap *Snapshot) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Config selects a backend.
type Config struct {
	Backend string        `koanf:"backend"` // badger, sqlite or none
	Path    string        `koanf:"path"`
	TTL     time.Duration `koanf:"ttl"`
}

// Open returns the configured backend, or nil for "none".
func Open(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "badger":
		b, err := OpenBadger(cfg.Path)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "sqlite":
		s, err := OpenSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("store: unknown backend %q", cfg.Backend)
}

func decodeCheck(key string, s *Snapshot) error {
	if s.Count != len(s.Activities) {
		return fmt.Errorf("store: snapshot %q count %d does not match %d activities", key, s.Count, len(s.Activities))
	}
	return nil
}
