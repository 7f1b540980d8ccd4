// Package cache is the listing result cache: an in-memory scope map backed
// by a JSON snapshot file. The snapshot is written behind the lock by a
// background goroutine and loaded once at construction, so a process restart
// inside the TTL window serves listings without spending any fetch budget.
package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"rentradar/internal/domain/model"
	"rentradar/pkg/logger"
	"rentradar/pkg/metrics"
)

// DefaultTTL is how long a scope entry counts as fresh.
const DefaultTTL = 7 * 24 * time.Hour

// Entry is one cached result set. The JSON tags define the snapshot file
// format.
type Entry struct {
	Listings  []model.Listing `json:"entries"`
	FetchedAt time.Time       `json:"ts"`
}

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithSnapshotPath enables persistence to the given file. An empty path
// keeps the store memory-only.
func WithSnapshotPath(path string) Option {
	return func(s *Store) { s.path = path }
}

// WithTTL sets the freshness window.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source (used by tests).
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// Store holds cached listing batches keyed by scope (region + price range).
type Store struct {
	path string
	ttl  time.Duration
	now  func() time.Time
	log  logger.Logger

	mu      sync.RWMutex
	entries map[string]Entry

	writes sync.WaitGroup
}

// New creates a Store and, when a snapshot path is configured, loads the
// previous snapshot. A missing or corrupt snapshot is not an error; the
// store just starts empty.
func New(opts ...Option) *Store {
	s := &Store{
		ttl:     DefaultTTL,
		now:     time.Now,
		log:     logger.Named("cache"),
		entries: make(map[string]Entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.load()
	return s
}

// Get returns the entry for a scope, fresh or stale.
func (s *Store) Get(scope string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[scope]
	return e, ok
}

// Fresh returns the cached listings for a scope when the entry is inside
// the TTL window and non-empty.
func (s *Store) Fresh(scope string) ([]model.Listing, bool) {
	e, ok := s.Get(scope)
	if !ok || len(e.Listings) == 0 || s.now().Sub(e.FetchedAt) >= s.ttl {
		return nil, false
	}
	return e.Listings, true
}

// Put overwrites a scope entry and schedules a snapshot write. The write
// happens on a background goroutine so refresh paths never block on disk.
func (s *Store) Put(scope string, listings []model.Listing) {
	s.mu.Lock()
	s.entries[scope] = Entry{Listings: listings, FetchedAt: s.now()}
	n := len(s.entries)
	s.mu.Unlock()
	metrics.UpdateCacheScopes(n)

	if s.path == "" {
		return
	}
	s.writes.Add(1)
	go func() {
		defer s.writes.Done()
		s.persist()
	}()
}

// Age returns how old a scope entry is. The second return is false when the
// scope is absent.
func (s *Store) Age(scope string) (time.Duration, bool) {
	e, ok := s.Get(scope)
	if !ok {
		return 0, false
	}
	return s.now().Sub(e.FetchedAt), true
}

// Flush waits for pending snapshot writes. Call on shutdown.
func (s *Store) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.writes.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) load() {
	if s.path == "" {
		return
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn(context.Background(), "failed to read cache snapshot", logger.Error(err))
		}
		return
	}
	var entries map[string]Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.log.Warn(context.Background(), "corrupt cache snapshot ignored", logger.Error(err))
		return
	}
	s.mu.Lock()
	s.entries = entries
	n := len(entries)
	s.mu.Unlock()
	metrics.UpdateCacheScopes(n)
	s.log.Info(context.Background(), "cache snapshot loaded",
		logger.String("path", s.path), logger.Int("scopes", n))
}

// persist writes the whole map to the snapshot file via a temp file and
// rename, so readers of the file never observe a partial write.
func (s *Store) persist() {
	s.mu.RLock()
	snapshot := make(map[string]Entry, len(s.entries))
	for k, v := range s.entries {
		snapshot[k] = v
	}
	s.mu.RUnlock()

	data, err := json.Marshal(snapshot)
	if err != nil {
		s.log.Warn(context.Background(), "failed to encode cache snapshot", logger.Error(err))
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.log.Warn(context.Background(), "failed to create cache dir", logger.Error(err))
		return
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		s.log.Warn(context.Background(), "failed to write cache snapshot", logger.Error(err))
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.log.Warn(context.Background(), "failed to replace cache snapshot", logger.Error(err))
	}
}
