package enrich

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"
)

// Enricher resolves pricing for models the primary API left unpriced.
// Lookups hit the Store first; cache misses and stale refreshes go through a
// fixed-size worker pool bounded by a per-invocation fetch budget. A page
// failure never fails the catalog fetch — it only leaves that model
// unpriced.
type Enricher struct {
	store   *Store
	fetcher PageFetcher
	budget  int
	workers int
	limiter *rate.Limiter
}

// New creates an Enricher. budget caps network fetches per invocation;
// workers caps concurrent fetches.
func New(store *Store, fetcher PageFetcher, budget, workers int) *Enricher {
	if budget <= 0 {
		budget = 40
	}
	if workers <= 0 {
		workers = 4
	}
	return &Enricher{
		store:   store,
		fetcher: fetcher,
		budget:  budget,
		workers: workers,
		// Politeness cap against the scraped site, distinct from the
		// concurrency cap.
		limiter: rate.NewLimiter(rate.Limit(4), 1),
	}
}

// PricesFor resolves rates for the given model keys ("owner/name"). Fresh
// cache entries apply directly; stale entries apply now and are re-queued
// for refresh; expired or absent entries are fetched, budget permitting.
// The updated cache is persisted before returning.
func (e *Enricher) PricesFor(ctx context.Context, keys []string) map[string][]Rate {
	results := make(map[string][]Rate, len(keys))
	var queue []string

	for _, key := range keys {
		entry, state := e.store.Get(key)
		switch state {
		case StateFresh:
			results[key] = entry.Rates
		case StateStale:
			// Usable now, but due for renewal.
			results[key] = entry.Rates
			queue = append(queue, key)
		default:
			queue = append(queue, key)
		}
	}

	if len(queue) > e.budget {
		slog.Debug("price enrichment queue truncated by fetch budget",
			"queued", len(queue), "budget", e.budget)
		queue = queue[:e.budget]
	}

	if len(queue) > 0 {
		for key, rates := range e.fetchAll(ctx, queue) {
			results[key] = rates
		}
		if err := e.store.Save(); err != nil {
			slog.Warn("failed to persist price cache", "error", err)
		}
	}

	return results
}

// fetchAll runs the fixed-size worker pool over the queue.
func (e *Enricher) fetchAll(ctx context.Context, queue []string) map[string][]Rate {
	work := make(chan string, len(queue))
	for _, key := range queue {
		work <- key
	}
	close(work)

	var mu sync.Mutex
	fetched := make(map[string][]Rate)

	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range work {
				if err := e.limiter.Wait(ctx); err != nil {
					return
				}
				rates, source, err := e.fetcher.Fetch(ctx, key)
				if err != nil {
					// Swallowed per candidate.
					slog.Debug("price enrichment fetch failed", "model", key, "error", err)
					continue
				}
				mu.Lock()
				e.store.Put(key, rates, source)
				fetched[key] = rates
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return fetched
}
