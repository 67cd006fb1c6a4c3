package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/s0ultr4d3r/routereel/logging"
)

const badgerPrefix = "activities:"

// Badger stores snapshots in an embedded BadgerDB.
type Badger struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a database in dir. An empty dir keeps the
// database in memory.
func OpenBadger(dir string) (*Badger, error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{logging.Component("badger")})
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger %q: %w", dir, err)
	}
	return &Badger{db: db}, nil
}

func (b *Badger) Load(ctx context.Context, key string) (*Snapshot, error) {
	var snap Snapshot
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get snapshot: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snap)
		})
	})
	if err != nil {
		return nil, err
	}
	if err := decodeCheck(key, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (b *Badger) Save(ctx context.Context, key string, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerPrefix+key), data)
	})
}

func (b *Badger) Delete(ctx context.Context, key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(badgerPrefix + key))
	})
}

func (b *Badger) Close() error { return b.db.Close() }

// badgerLogger routes badger's own logging into zerolog.
type badgerLogger struct{ l zerolog.Logger }

func (g badgerLogger) Errorf(f string, v ...interface{})   { g.l.Error().Msgf(f, v...) }
func (g badgerLogger) Warningf(f string, v ...interface{}) { g.l.Warn().Msgf(f, v...) }
func (g badgerLogger) Infof(f string, v ...interface{})    { g.l.Debug().Msgf(f, v...) }
func (g badgerLogger) Debugf(f string, v ...interface{})   { g.l.Trace().Msgf(f, v...) }
