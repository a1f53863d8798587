// Package pipeline orchestrates one invocation: fan out to the configured
// source adapters, merge their catalogs, and hand the result to the
// recommender or the caller.
package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/everstacklabs/modelscout/internal/adapter"
	"github.com/everstacklabs/modelscout/internal/cache"
	"github.com/everstacklabs/modelscout/internal/catalog"
	"github.com/everstacklabs/modelscout/internal/config"
	"github.com/everstacklabs/modelscout/internal/enrich"
	"github.com/everstacklabs/modelscout/internal/errs"
	"github.com/everstacklabs/modelscout/internal/httpclient"
	"github.com/everstacklabs/modelscout/internal/recommend"
	"github.com/everstacklabs/modelscout/internal/validate"

	// Provider registrations.
	_ "github.com/everstacklabs/modelscout/internal/adapter/providers/huggingface"
	_ "github.com/everstacklabs/modelscout/internal/adapter/providers/openrouter"
	_ "github.com/everstacklabs/modelscout/internal/adapter/providers/replicate"
)

// Pipeline wires configuration into adapters and the recommender.
type Pipeline struct {
	cfg *config.Config

	// buildAdapter is swapped in tests to inject fake adapters.
	buildAdapter func(name string) (adapter.Adapter, error)
}

// New creates a Pipeline from loaded configuration.
func New(cfg *config.Config) *Pipeline {
	p := &Pipeline{cfg: cfg}
	p.buildAdapter = p.defaultAdapter
	return p
}

func (p *Pipeline) defaultAdapter(name string) (adapter.Adapter, error) {
	deps := adapter.Deps{
		Client:    httpclient.New(),
		APIKey:    p.cfg.APIKeyFor(name),
		BaseURL:   p.cfg.BaseURLFor(name),
		MaxPages:  p.cfg.MaxPages,
		MaxModels: p.cfg.MaxModels,
	}
	if !p.cfg.NoCache {
		store, err := cache.New(p.cfg.CacheDir, p.cfg.CacheTTLDuration())
		if err != nil {
			slog.Warn("catalog cache unavailable", "error", err)
		} else {
			deps.Cache = store
		}
	}
	if name == "replicate" {
		deps.Enricher = p.enricher()
	}
	return adapter.New(name, deps)
}

// enricher builds the price-enrichment subsystem from config.
func (p *Pipeline) enricher() *enrich.Enricher {
	store := enrich.OpenStore(
		filepath.Join(cache.Dir(p.cfg.CacheDir), "prices.json"),
		p.cfg.EnrichTTL(), p.cfg.EnrichMaxStale(), p.cfg.Enrich.MaxEntries)
	scraper := enrich.NewScraper(p.cfg.Enrich.PageBaseURL, httpclient.DefaultTimeout)
	return enrich.New(store, scraper, p.cfg.Enrich.FetchBudget, p.cfg.Enrich.Concurrency)
}

// sourceResult is one adapter's outcome.
type sourceResult struct {
	source  string
	entries []catalog.Entry
	err     error
}

// FetchCatalog runs every configured source concurrently and merges the
// results. A failing source is logged as a warning as long as at least one
// source succeeds; if all fail, the error is the single source's own error
// or a synthesized listing of every failure.
func (p *Pipeline) FetchCatalog(ctx context.Context) ([]catalog.Entry, error) {
	sources := p.cfg.Sources
	if len(sources) == 0 {
		return nil, errs.NoModels("no sources configured",
			"add a sources list to the config file")
	}

	results := make(chan sourceResult, len(sources))
	var wg sync.WaitGroup
	for _, name := range sources {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			entries, err := p.fetchSource(ctx, name)
			results <- sourceResult{source: name, entries: entries, err: err}
		}(name)
	}
	wg.Wait()
	close(results)

	perSource := make(map[string][]catalog.Entry, len(sources))
	failures := make(map[string]error)
	for r := range results {
		if r.err != nil {
			failures[r.source] = r.err
			slog.Warn("source failed", "source", r.source, "error", r.err)
			continue
		}
		perSource[r.source] = r.entries
	}

	if len(perSource) == 0 {
		return nil, errs.AllFailed(failures)
	}

	// Merge in configured-source order so first-seen tie-breaks are
	// deterministic regardless of goroutine completion order.
	lists := make([][]catalog.Entry, 0, len(perSource))
	for _, name := range sources {
		if entries, ok := perSource[name]; ok {
			lists = append(lists, entries)
		}
	}
	merged := catalog.Merge(lists...)

	// Adapters should never emit invariant-breaking entries; log loudly if
	// one slips through rather than poisoning the recommendation.
	if result := validate.ValidateEntries(merged); result.HasErrors() {
		for _, issue := range result.Errors() {
			slog.Warn("invalid catalog entry", "issue", issue.String())
		}
	}

	slog.Info("catalog assembled",
		"sources_ok", len(perSource), "sources_failed", len(failures),
		"models", len(merged))

	if len(merged) == 0 {
		return nil, errs.NoModels("every source returned zero usable models",
			"models without a usable price are dropped; try another source")
	}
	return merged, nil
}

func (p *Pipeline) fetchSource(ctx context.Context, name string) ([]catalog.Entry, error) {
	a, err := p.buildAdapter(name)
	if err != nil {
		return nil, err
	}
	return a.Fetch(ctx)
}

// Recommend fetches the catalog and runs the recommendation pipeline.
func (p *Pipeline) Recommend(ctx context.Context, task string, cons recommend.Constraints) (*recommend.Recommendation, error) {
	entries, err := p.FetchCatalog(ctx)
	if err != nil {
		return nil, err
	}

	var client recommend.LLMClient
	if p.cfg.LLM.APIKey != "" {
		client = recommend.NewOpenAIClient(
			p.cfg.LLM.APIKey, p.cfg.LLM.BaseURL, p.cfg.LLM.Model, p.cfg.LLM.MaxTokens)
	} else {
		slog.Debug("no LLM credential, recommendations use the heuristic")
	}

	return recommend.New(client).Recommend(ctx, task, cons, entries)
}
