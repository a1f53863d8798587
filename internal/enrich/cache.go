// Package enrich implements the best-effort price enrichment subsystem:
// scraping public model pages for structured pricing, normalizing units, and
// maintaining a persistent cache with fresh/stale/expired semantics.
package enrich

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/everstacklabs/modelscout/internal/normalize"
)

// cacheVersion identifies the on-disk cache schema.
const cacheVersion = 1

// Extraction strategy provenance tags.
const (
	SourceBilling = "billing-config" // structured billing-configuration block
	SourcePage    = "page-price"     // loose top-level price string
)

// State classifies a cached entry relative to now.
type State int

const (
	// StateAbsent means no entry exists for the key.
	StateAbsent State = iota
	// StateFresh means the entry is before its expiry.
	StateFresh
	// StateStale means the entry is past expiry but within the max-stale
	// window: usable, but due for refresh.
	StateStale
	// StateExpired means the entry is beyond the max-stale window and must
	// be treated as absent.
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	case StateExpired:
		return "expired"
	default:
		return "absent"
	}
}

// Rate is one normalized per-unit price.
type Rate struct {
	Unit normalize.Unit `json:"unit"`
	USD  float64        `json:"usd"`
}

// Entry is one cached enrichment result, keyed by "owner/name".
type Entry struct {
	Rates     []Rate `json:"pricing"`
	Source    string `json:"source"` // extraction strategy provenance
	FetchedAt int64  `json:"fetchedAt"`
	ExpiresAt int64  `json:"expiresAt"`
}

type cacheFile struct {
	Version   int              `json:"version"`
	UpdatedAt int64            `json:"updatedAt"`
	Entries   map[string]Entry `json:"entries"`
}

// Store is the file-backed price-enrichment cache. Capacity-bounded: when
// the entry count exceeds maxEntries, the globally oldest-fetched entries
// are evicted first, ties broken by key.
type Store struct {
	path       string
	ttl        time.Duration
	maxStale   time.Duration
	maxEntries int
	now        func() time.Time
	entries    map[string]Entry
}

// StoreOption configures the Store.
type StoreOption func(*Store)

// WithStoreClock replaces the clock. Test use.
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// OpenStore loads (or initializes) the cache file at path. A missing or
// unreadable file starts an empty cache; a version mismatch discards the old
// contents.
func OpenStore(path string, ttl, maxStale time.Duration, maxEntries int, opts ...StoreOption) *Store {
	s := &Store{
		path:       path,
		ttl:        ttl,
		maxStale:   maxStale,
		maxEntries: maxEntries,
		now:        time.Now,
		entries:    make(map[string]Entry),
	}
	for _, opt := range opts {
		opt(s)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var f cacheFile
	if err := json.Unmarshal(data, &f); err != nil || f.Version != cacheVersion {
		return s
	}
	if f.Entries != nil {
		s.entries = f.Entries
	}
	return s
}

// Get returns the entry for key and its temporal state. Expired entries are
// returned with StateExpired so callers can treat them as absent.
func (s *Store) Get(key string) (Entry, State) {
	e, ok := s.entries[key]
	if !ok {
		return Entry{}, StateAbsent
	}
	return e, s.stateOf(e)
}

// Put records a fetch result for key, stamping fetched-at and expires-at
// from the store's TTL.
func (s *Store) Put(key string, rates []Rate, source string) {
	now := s.now()
	s.entries[key] = Entry{
		Rates:     rates,
		Source:    source,
		FetchedAt: now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
	}
	s.evict()
}

// Len returns the entry count.
func (s *Store) Len() int { return len(s.entries) }

// CountByState tallies entries per temporal state, for cache introspection.
func (s *Store) CountByState() map[State]int {
	out := make(map[State]int)
	for _, e := range s.entries {
		out[s.stateOf(e)]++
	}
	return out
}

// Save atomically writes the cache file (write-to-temp, rename).
func (s *Store) Save() error {
	f := cacheFile{
		Version:   cacheVersion,
		UpdatedAt: s.now().Unix(),
		Entries:   s.entries,
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling price cache: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".prices-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing price cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing price cache: %w", err)
	}
	return nil
}

func (s *Store) stateOf(e Entry) State {
	now := s.now().Unix()
	expires := e.ExpiresAt
	switch {
	case now < expires:
		return StateFresh
	case now < expires+int64(s.maxStale/time.Second):
		return StateStale
	default:
		return StateExpired
	}
}

// evict drops the oldest-fetched entries, ties broken by key, until the
// store is back within capacity.
func (s *Store) evict() {
	if s.maxEntries <= 0 || len(s.entries) <= s.maxEntries {
		return
	}
	type keyed struct {
		key       string
		fetchedAt int64
	}
	all := make([]keyed, 0, len(s.entries))
	for k, e := range s.entries {
		all = append(all, keyed{k, e.FetchedAt})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].fetchedAt != all[j].fetchedAt {
			return all[i].fetchedAt < all[j].fetchedAt
		}
		return all[i].key < all[j].key
	})
	for _, k := range all[:len(all)-s.maxEntries] {
		delete(s.entries, k.key)
	}
}
