// Package cache provides the file-based TTL cache for normalized catalogs.
// One JSON document per source; writes are atomic (write-to-temp, rename) so
// a crash mid-write never corrupts the previous snapshot.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// metaFile is the companion metadata file removed on full invalidation.
const metaFile = "meta.json"

// Entry wraps cached data with its write time and TTL.
type Entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"` // Unix seconds at write
	TTL       int64           `json:"ttl"`       // seconds
	Source    string          `json:"source"`
}

// Valid reports whether the entry is within its TTL at now.
func (e *Entry) Valid(now time.Time) bool {
	return now.Unix()-e.Timestamp <= e.TTL
}

// Age returns the entry age at now.
func (e *Entry) Age(now time.Time) time.Duration {
	return time.Duration(now.Unix()-e.Timestamp) * time.Second
}

// Store is a file-based TTL cache keyed by source name.
type Store struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// Dir resolves the platform cache directory for the application. override
// takes precedence so tests and config can redirect it without touching
// process environment.
func Dir(override string) string {
	if override != "" {
		return override
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "modelscout")
	}
	return filepath.Join(base, "modelscout")
}

// Option configures the Store.
type Option func(*Store)

// WithClock replaces the clock. Test use.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store rooted at dir with the given default TTL.
func New(dir string, ttl time.Duration, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	s := &Store{dir: dir, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Get reads the cached document for source into v. The second return is
// false when the entry is absent, unreadable, or past its TTL; expired or
// corrupt files simply fall through to a live re-fetch.
func (s *Store) Get(source string, v any) (time.Time, bool) {
	entry, ok := s.read(source)
	if !ok || !entry.Valid(s.now()) {
		return time.Time{}, false
	}
	if err := json.Unmarshal(entry.Data, v); err != nil {
		return time.Time{}, false
	}
	return time.Unix(entry.Timestamp, 0), true
}

// Set atomically writes the document for source with the store's TTL.
func (s *Store) Set(source string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling cache data: %w", err)
	}
	entry := Entry{
		Data:      data,
		Timestamp: s.now().Unix(),
		TTL:       int64(s.ttl / time.Second),
		Source:    source,
	}
	return s.writeEntry(s.path(source), &entry)
}

// Invalidate removes the cached document for one source.
func (s *Store) Invalidate(source string) error {
	err := os.Remove(s.path(source))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Clear removes every JSON document in the cache directory and the companion
// metadata file. That includes documents owned by other subsystems, such as
// the price-enrichment cache: "clear" empties the whole directory.
func (s *Store) Clear() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		if name == metaFile || strings.HasSuffix(name, ".json") {
			if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
	}
	return nil
}

// Status describes one cached source for introspection.
type Status struct {
	Source    string
	Age       time.Duration
	TTL       time.Duration
	Valid     bool
	SizeBytes int64
}

// Statuses reports every cached source, sorted by file name.
func (s *Store) Statuses() ([]Status, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	now := s.now()
	var out []Status
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") || de.Name() == metaFile {
			continue
		}
		source := strings.TrimSuffix(de.Name(), ".json")
		entry, ok := s.read(source)
		if !ok || entry.Source == "" {
			// Other subsystems keep their own JSON documents in this
			// directory (the price-enrichment cache); only catalog
			// snapshots carry a source name.
			continue
		}
		info, err := de.Info()
		var size int64
		if err == nil {
			size = info.Size()
		}
		out = append(out, Status{
			Source:    entry.Source,
			Age:       entry.Age(now),
			TTL:       time.Duration(entry.TTL) * time.Second,
			Valid:     entry.Valid(now),
			SizeBytes: size,
		})
	}
	return out, nil
}

func (s *Store) read(source string) (*Entry, bool) {
	data, err := os.ReadFile(s.path(source))
	if err != nil {
		return nil, false
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	return &entry, true
}

func (s *Store) writeEntry(path string, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, ".cache-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing cache entry: %w", err)
	}
	return nil
}

func (s *Store) path(source string) string {
	return filepath.Join(s.dir, source+".json")
}
