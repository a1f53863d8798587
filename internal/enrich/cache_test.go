package enrich

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/everstacklabs/modelscout/internal/normalize"
)

func testStore(t *testing.T, ttl, maxStale time.Duration, maxEntries int, now *time.Time) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prices.json")
	return OpenStore(path, ttl, maxStale, maxEntries, WithStoreClock(func() time.Time { return *now }))
}

func TestStateTransitions(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0)
	now := t0
	ttl := 24 * time.Hour
	maxStale := 72 * time.Hour
	s := testStore(t, ttl, maxStale, 100, &now)

	s.Put("owner/model", []Rate{{Unit: normalize.UnitPerSecond, USD: 0.1}}, SourceBilling)

	tests := []struct {
		name string
		at   time.Time
		want State
	}{
		{"immediately after write", t0, StateFresh},
		{"just before expiry", t0.Add(ttl - time.Second), StateFresh},
		{"at expiry", t0.Add(ttl), StateStale},
		{"within max-stale window", t0.Add(ttl + maxStale - time.Second), StateStale},
		{"at end of max-stale window", t0.Add(ttl + maxStale), StateExpired},
		{"long after", t0.Add(30 * 24 * time.Hour), StateExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now = tt.at
			_, state := s.Get("owner/model")
			if state != tt.want {
				t.Errorf("state at %v = %v, want %v", tt.at.Sub(t0), state, tt.want)
			}
		})
	}
}

func TestGetAbsent(t *testing.T) {
	now := time.Now()
	s := testStore(t, time.Hour, time.Hour, 100, &now)
	if _, state := s.Get("nobody/nothing"); state != StateAbsent {
		t.Errorf("state = %v, want absent", state)
	}
}

func TestEvictionOldestFirstTiesByKey(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := testStore(t, time.Hour, time.Hour, 3, &now)

	// Two entries at t0 (tie broken by key), two later.
	s.Put("zeta/old", nil, SourceBilling)
	s.Put("alpha/old", nil, SourceBilling)
	now = now.Add(time.Minute)
	s.Put("mid/model", nil, SourceBilling)
	now = now.Add(time.Minute)
	s.Put("new/model", nil, SourceBilling)

	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3 after eviction", s.Len())
	}
	// "alpha/old" sorts before "zeta/old" at the same fetch time, so it is
	// evicted first.
	if _, state := s.Get("alpha/old"); state != StateAbsent {
		t.Error("alpha/old survived eviction; oldest-fetched with lowest key must go first")
	}
	for _, key := range []string{"zeta/old", "mid/model", "new/model"} {
		if _, state := s.Get(key); state == StateAbsent {
			t.Errorf("%s was evicted, want kept", key)
		}
	}
}

func TestSaveAndReload(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	path := filepath.Join(t.TempDir(), "prices.json")
	clock := func() time.Time { return now }

	s := OpenStore(path, time.Hour, time.Hour, 100, WithStoreClock(clock))
	rates := []Rate{{Unit: normalize.UnitPer1MTokens, USD: 2.5}}
	s.Put("google/gemini", rates, SourceBilling)
	if err := s.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reloaded := OpenStore(path, time.Hour, time.Hour, 100, WithStoreClock(clock))
	entry, state := reloaded.Get("google/gemini")
	if state != StateFresh {
		t.Fatalf("state after reload = %v, want fresh", state)
	}
	if len(entry.Rates) != 1 || entry.Rates[0].USD != 2.5 {
		t.Errorf("rates after reload = %v, want %v", entry.Rates, rates)
	}
	if entry.Source != SourceBilling {
		t.Errorf("source = %q, want %q", entry.Source, SourceBilling)
	}
}

func TestOpenStoreDiscardsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.json")
	if err := os.WriteFile(path, []byte(`{"version":99,"entries":{"a/b":{}}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	s := OpenStore(path, time.Hour, time.Hour, 100)
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0 for unknown version", s.Len())
	}
}

func TestCountByState(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := testStore(t, time.Hour, time.Hour, 100, &now)
	for i := 0; i < 3; i++ {
		s.Put(fmt.Sprintf("fresh/m%d", i), nil, SourceBilling)
	}
	counts := s.CountByState()
	if counts[StateFresh] != 3 {
		t.Errorf("fresh count = %d, want 3", counts[StateFresh])
	}
}
