package enrich

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/everstacklabs/modelscout/internal/normalize"
)

type fakeFetcher struct {
	mu      sync.Mutex
	calls   []string
	active  atomic.Int32
	maxSeen atomic.Int32
	rates   map[string][]Rate
	err     error
}

func (f *fakeFetcher) Fetch(ctx context.Context, key string) ([]Rate, string, error) {
	cur := f.active.Add(1)
	for {
		peak := f.maxSeen.Load()
		if cur <= peak || f.maxSeen.CompareAndSwap(peak, cur) {
			break
		}
	}
	time.Sleep(time.Millisecond)
	f.active.Add(-1)

	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.mu.Unlock()

	if f.err != nil {
		return nil, "", f.err
	}
	if r, ok := f.rates[key]; ok {
		return r, SourceBilling, nil
	}
	return nil, "", errors.New("no pricing")
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newEnricherForTest(t *testing.T, now *time.Time, fetcher PageFetcher, budget, workers int) (*Enricher, *Store) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prices.json")
	store := OpenStore(path, time.Hour, time.Hour, 100, WithStoreClock(func() time.Time { return *now }))
	return New(store, fetcher, budget, workers), store
}

func TestFreshEntryAppliesWithoutFetch(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	fetcher := &fakeFetcher{}
	e, store := newEnricherForTest(t, &now, fetcher, 40, 4)

	want := []Rate{{Unit: normalize.UnitPerSecond, USD: 0.1}}
	store.Put("owner/fresh", want, SourceBilling)

	got := e.PricesFor(context.Background(), []string{"owner/fresh"})
	if len(got["owner/fresh"]) != 1 {
		t.Fatalf("rates = %v, want cached rates", got)
	}
	if fetcher.callCount() != 0 {
		t.Errorf("fetch calls = %d, want 0 for a fresh entry", fetcher.callCount())
	}
}

func TestStaleEntryAppliesAndRefreshes(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	refreshed := []Rate{{Unit: normalize.UnitPerSecond, USD: 0.2}}
	fetcher := &fakeFetcher{rates: map[string][]Rate{"owner/stale": refreshed}}
	e, store := newEnricherForTest(t, &now, fetcher, 40, 4)

	store.Put("owner/stale", []Rate{{Unit: normalize.UnitPerSecond, USD: 0.1}}, SourceBilling)
	now = now.Add(90 * time.Minute) // past 1h TTL, within 1h max-stale

	got := e.PricesFor(context.Background(), []string{"owner/stale"})
	if fetcher.callCount() != 1 {
		t.Errorf("fetch calls = %d, want 1 (stale entries re-queue)", fetcher.callCount())
	}
	// The refreshed rate wins for this invocation's result.
	if got["owner/stale"][0].USD != 0.2 {
		t.Errorf("rate = %v, want the refreshed value", got["owner/stale"])
	}
	entry, state := store.Get("owner/stale")
	if state != StateFresh || entry.Rates[0].USD != 0.2 {
		t.Errorf("cache not renewed: state=%v rates=%v", state, entry.Rates)
	}
}

func TestExpiredEntryIsRefetched(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	fetcher := &fakeFetcher{rates: map[string][]Rate{"owner/gone": {{Unit: normalize.UnitPerImage, USD: 0.04}}}}
	e, store := newEnricherForTest(t, &now, fetcher, 40, 4)

	store.Put("owner/gone", []Rate{{Unit: normalize.UnitPerImage, USD: 9.99}}, SourceBilling)
	now = now.Add(3 * time.Hour) // past TTL + max-stale

	got := e.PricesFor(context.Background(), []string{"owner/gone"})
	if fetcher.callCount() != 1 {
		t.Errorf("fetch calls = %d, want 1", fetcher.callCount())
	}
	if got["owner/gone"][0].USD != 0.04 {
		t.Errorf("rate = %v, want the refetched value, never the expired one", got["owner/gone"])
	}
}

func TestFetchBudgetCapsQueue(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	fetcher := &fakeFetcher{}
	e, _ := newEnricherForTest(t, &now, fetcher, 5, 4)

	keys := make([]string, 20)
	for i := range keys {
		keys[i] = fmt.Sprintf("owner/m%02d", i)
	}
	_ = e.PricesFor(context.Background(), keys)

	if got := fetcher.callCount(); got != 5 {
		t.Errorf("fetch calls = %d, want budget of 5", got)
	}
}

func TestConcurrencyCap(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	fetcher := &fakeFetcher{}
	e, _ := newEnricherForTest(t, &now, fetcher, 40, 2)
	// Widen the politeness limiter so the worker cap is what is measured.
	e.limiter.SetLimit(1000)
	e.limiter.SetBurst(1000)

	keys := make([]string, 12)
	for i := range keys {
		keys[i] = fmt.Sprintf("owner/m%02d", i)
	}
	_ = e.PricesFor(context.Background(), keys)

	if peak := fetcher.maxSeen.Load(); peak > 2 {
		t.Errorf("max concurrent fetches = %d, want <= 2", peak)
	}
}

func TestFetchFailuresAreSwallowed(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	fetcher := &fakeFetcher{err: errors.New("boom")}
	e, store := newEnricherForTest(t, &now, fetcher, 40, 4)

	got := e.PricesFor(context.Background(), []string{"owner/broken", "owner/also-broken"})
	if len(got) != 0 {
		t.Errorf("results = %v, want none (failures leave models unpriced)", got)
	}
	if store.Len() != 0 {
		t.Errorf("store recorded %d entries for failed fetches", store.Len())
	}
}
