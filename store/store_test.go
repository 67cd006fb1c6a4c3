package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/s0ultr4d3r/routereel/activity"
)

func sample() *Snapshot {
	acts := []activity.Activity{
		{ID: 1, Name: "Morning Run", Type: "Run", StartDate: time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC), Distance: 5000, Polyline: "_p~iF~ps|U"},
		{ID: 2, Name: "Commute", Type: "Ride", StartDate: time.Date(2024, 1, 2, 8, 30, 0, 0, time.UTC), Distance: 12000},
	}
	return NewSnapshot(acts, time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC))
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	b, err := OpenBadger("")
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		b.Close()
		s.Close()
	})
	return map[string]Store{"badger": b, "sqlite": s}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := st.Load(ctx, "athlete-1"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Load missing: err = %v, want ErrNotFound", err)
			}
			want := sample()
			if err := st.Save(ctx, "athlete-1", want); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := st.Load(ctx, "athlete-1")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got.Count != 2 || len(got.Activities) != 2 || !got.CachedAt.Equal(want.CachedAt) {
				t.Fatalf("got %+v", got)
			}
			if a := got.Activities[0]; a.Name != "Morning Run" || a.Polyline != "_p~iF~ps|U" || !a.StartDate.Equal(want.Activities[0].StartDate) {
				t.Errorf("activity = %+v", a)
			}
		})
	}
}

func TestStoreOverwriteAndDelete(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := st.Save(ctx, "k", sample()); err != nil {
				t.Fatal(err)
			}
			if err := st.Save(ctx, "k", NewSnapshot(nil, time.Now())); err != nil {
				t.Fatal(err)
			}
			got, err := st.Load(ctx, "k")
			if err != nil {
				t.Fatal(err)
			}
			if got.Count != 0 {
				t.Errorf("Count = %d after overwrite, want 0", got.Count)
			}
			if err := st.Delete(ctx, "k"); err != nil {
				t.Fatal(err)
			}
			if _, err := st.Load(ctx, "k"); !errors.Is(err, ErrNotFound) {
				t.Errorf("after Delete err = %v", err)
			}
		})
	}
}

func TestFresh(t *testing.T) {
	s := sample()
	if !s.Fresh(s.CachedAt.Add(time.Hour), 2*time.Hour) {
		t.Error("one hour old snapshot should be fresh with a 2h ttl")
	}
	if s.Fresh(s.CachedAt.Add(3*time.Hour), 2*time.Hour) {
		t.Error("three hour old snapshot should be stale with a 2h ttl")
	}
	if !s.Fresh(s.CachedAt.Add(1000*time.Hour), 0) {
		t.Error("zero ttl never expires")
	}
	var missing *Snapshot
	if missing.Fresh(time.Now(), time.Hour) {
		t.Error("nil snapshot is never fresh")
	}
}

func TestOpen(t *testing.T) {
	st, err := Open(Config{Backend: "none"})
	if err != nil || st != nil {
		t.Errorf("none backend = %v, %v", st, err)
	}
	if _, err := Open(Config{Backend: "redis"}); err == nil {
		t.Error("unknown backend accepted")
	}
	st, err = Open(Config{Backend: "sqlite", Path: filepath.Join(t.TempDir(), "c.db")})
	if err != nil {
		t.Fatal(err)
	}
	st.Close()
}
