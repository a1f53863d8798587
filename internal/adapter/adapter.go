// Package adapter defines the source adapter contract and the registry
// mapping configured source names to constructors.
package adapter

import (
	"context"
	"sort"

	"github.com/everstacklabs/modelscout/internal/cache"
	"github.com/everstacklabs/modelscout/internal/catalog"
	"github.com/everstacklabs/modelscout/internal/enrich"
	"github.com/everstacklabs/modelscout/internal/httpclient"
)

// Adapter fetches one provider's model listing as canonical entries.
type Adapter interface {
	// Name returns the source name (e.g. "openrouter").
	Name() string
	// Fetch pages through the provider's listing and returns normalized
	// entries. Fails with an auth error when the credential is missing
	// or rejected, a network error when retries are exhausted.
	Fetch(ctx context.Context) ([]catalog.Entry, error)
}

// Default fetch bounds shared by every adapter.
const (
	DefaultMaxPages  = 8
	DefaultMaxModels = 300
)

// Deps carries everything a constructor needs. Cache may be nil to disable
// catalog caching; Enricher is consulted only by sources whose API omits
// pricing.
type Deps struct {
	Client    *httpclient.Client
	Cache     *cache.Store
	APIKey    string
	BaseURL   string
	MaxPages  int
	MaxModels int
	Enricher  *enrich.Enricher
}

// MaxPagesOrDefault returns the configured page cap or the default.
func (d Deps) MaxPagesOrDefault() int {
	if d.MaxPages > 0 {
		return d.MaxPages
	}
	return DefaultMaxPages
}

// MaxModelsOrDefault returns the configured candidate cap or the default.
func (d Deps) MaxModelsOrDefault() int {
	if d.MaxModels > 0 {
		return d.MaxModels
	}
	return DefaultMaxModels
}

// Candidate pairs a provider record with its popularity signal so every
// adapter truncates the same way: stable sort by popularity descending, ties
// by lexicographic key, then cap. Deterministic across repeated empty-cache
// runs.
type Candidate[T any] struct {
	Key        string
	Popularity int64
	Record     T
}

// SortAndCap orders candidates and drops everything beyond limit.
func SortAndCap[T any](candidates []Candidate[T], limit int) []Candidate[T] {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Popularity != candidates[j].Popularity {
			return candidates[i].Popularity > candidates[j].Popularity
		}
		return candidates[i].Key < candidates[j].Key
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}
