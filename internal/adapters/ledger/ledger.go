// Package ledger implements the durable monthly call budget. Every paid API
// call must pass TryIncrement, which performs an atomic conditional update
// so concurrent callers can never push the counter past the cap.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Default ledger configuration constants.
const (
	defaultCap      = 50
	defaultCountTTL = 5 * time.Second
	periodLayout    = "2006-01"
)

// Ledger gates paid external calls against a per-period cap.
type Ledger interface {
	// TryIncrement durably increments the counter for period iff it is
	// strictly below the cap. Returns true when the call was recorded.
	TryIncrement(ctx context.Context, period string) (bool, error)

	// Count returns the current counter for period. May serve a briefly
	// cached value; TryIncrement never consults that cache.
	Count(ctx context.Context, period string) (int, error)

	// Cap returns the hard maximum per period.
	Cap() int

	Close() error
}

// CurrentPeriod returns the calendar period key for now, e.g. "2026-08".
func CurrentPeriod() string {
	return time.Now().Format(periodLayout)
}

// Option applies a configuration option to the SQLiteLedger.
type Option func(*SQLiteLedger)

// WithCap sets the hard per-period call cap.
func WithCap(limit int) Option {
	return func(l *SQLiteLedger) {
		if limit > 0 {
			l.cap = limit
		}
	}
}

// WithCountCacheTTL sets how long Count may serve a cached value.
func WithCountCacheTTL(ttl time.Duration) Option {
	return func(l *SQLiteLedger) {
		if ttl > 0 {
			l.countTTL = ttl
		}
	}
}

// SQLiteLedger implements Ledger on a single-file sqlite database.
type SQLiteLedger struct {
	db       *sql.DB
	cap      int
	countTTL time.Duration

	mu          sync.Mutex
	cachedCount int
	cachedFor   string
	cachedAt    time.Time
}

// Open creates (or reuses) the ledger database at dbPath and prunes rows
// from previous periods.
func Open(dbPath string, opts ...Option) (*SQLiteLedger, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening ledger db: %w", err)
	}
	db.SetMaxOpenConns(1)

	l := &SQLiteLedger{
		db:       db,
		cap:      defaultCap,
		countTTL: defaultCountTTL,
	}
	for _, opt := range opts {
		opt(l)
	}
	if err := l.init(); err != nil {
		db.Close()
		return nil, err
	}
	if err := l.pruneOtherPeriods(context.Background(), CurrentPeriod()); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *SQLiteLedger) init() error {
	_, err := l.db.Exec(`
		CREATE TABLE IF NOT EXISTS api_call_counter (
			month_year TEXT PRIMARY KEY,
			call_count INTEGER NOT NULL DEFAULT 0,
			last_reset TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing ledger schema: %w", err)
	}
	return nil
}

// TryIncrement performs the check-and-increment as a single conditional
// UPDATE; success is decided by the affected row count, never by a prior
// read, so two concurrent callers cannot both pass a stale under-cap check.
func (l *SQLiteLedger) TryIncrement(ctx context.Context, period string) (bool, error) {
	if err := l.pruneOtherPeriods(ctx, period); err != nil {
		return false, err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := l.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO api_call_counter (month_year, call_count, last_reset) VALUES (?, 0, ?)`,
		period, now,
	); err != nil {
		return false, fmt.Errorf("ensuring ledger row: %w", err)
	}
	res, err := l.db.ExecContext(ctx,
		`UPDATE api_call_counter SET call_count = call_count + 1 WHERE month_year = ? AND call_count < ?`,
		period, l.cap,
	)
	if err != nil {
		return false, fmt.Errorf("incrementing ledger: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading ledger result: %w", err)
	}
	l.invalidateCount()
	return n > 0, nil
}

// Count returns the counter for period, serving a value at most countTTL
// old to keep call-site checks cheap.
func (l *SQLiteLedger) Count(ctx context.Context, period string) (int, error) {
	l.mu.Lock()
	if l.cachedFor == period && time.Since(l.cachedAt) < l.countTTL {
		count := l.cachedCount
		l.mu.Unlock()
		return count, nil
	}
	l.mu.Unlock()

	count, err := l.readCount(ctx, period)
	if err != nil {
		return 0, err
	}
	l.mu.Lock()
	l.cachedCount = count
	l.cachedFor = period
	l.cachedAt = time.Now()
	l.mu.Unlock()
	return count, nil
}

func (l *SQLiteLedger) readCount(ctx context.Context, period string) (int, error) {
	var count int
	err := l.db.QueryRowContext(ctx,
		`SELECT call_count FROM api_call_counter WHERE month_year = ?`, period,
	).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading ledger count: %w", err)
	}
	return count, nil
}

// Cap returns the hard per-period maximum.
func (l *SQLiteLedger) Cap() int {
	return l.cap
}

// Close releases the underlying database.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

func (l *SQLiteLedger) invalidateCount() {
	l.mu.Lock()
	l.cachedAt = time.Time{}
	l.mu.Unlock()
}

// pruneOtherPeriods lazily deletes rows for any period other than the
// current one; a new month therefore starts from zero.
func (l *SQLiteLedger) pruneOtherPeriods(ctx context.Context, period string) error {
	if _, err := l.db.ExecContext(ctx,
		`DELETE FROM api_call_counter WHERE month_year != ?`, period,
	); err != nil {
		return fmt.Errorf("pruning ledger periods: %w", err)
	}
	return nil
}
