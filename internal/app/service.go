// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"rentradar/internal/adapters/ai"
	"rentradar/internal/adapters/ledger"
	"rentradar/internal/adapters/portal"
	"rentradar/internal/adapters/scrape"
	"rentradar/internal/cache"
	"rentradar/internal/config"
	"rentradar/internal/domain/dedupe"
	"rentradar/internal/domain/enrich"
	"rentradar/internal/domain/market"
	"rentradar/internal/domain/model"
	"rentradar/internal/domain/scoring"
	"rentradar/internal/pool"
	"rentradar/pkg/logger"
	"rentradar/pkg/metrics"
)

// defaultScrapeLimit caps the number of listings taken from one scrape.
const defaultScrapeLimit = 250

// ScrapeSource fetches listings from the free HTML source.
type ScrapeSource interface {
	Fetch(ctx context.Context, area, defaultLabel string, minPrice, maxPrice, limit int) []model.Listing
}

// PortalSource fetches raw records from the paid listings API.
type PortalSource interface {
	FetchCity(ctx context.Context, city, state string, minPrice, maxPrice int) ([]portal.Record, error)
}

// Result is one served listings batch. Stale marks batches that include
// previously cached data served because the fetch budget ran out.
type Result struct {
	Listings  []model.Listing `json:"listings"`
	FetchedAt time.Time       `json:"fetched_at"`
	Stale     bool            `json:"stale"`
}

// BudgetInfo reports the state of the monthly API call budget.
type BudgetInfo struct {
	Period       string `json:"period"`
	Used         int    `json:"current_month_calls"`
	Cap          int    `json:"monthly_limit"`
	Remaining    int    `json:"remaining_calls"`
	LimitReached bool   `json:"limit_reached"`
}

// Service implements the API dependencies for the listings system.
type Service struct {
	mu sync.RWMutex

	// Core components
	scraper  ScrapeSource
	portal   PortalSource
	scorer   *scoring.DealScorer
	enricher *enrich.Enricher
	store    *cache.Store
	budget   ledger.Ledger

	// Configuration
	cfg         *config.Config
	scrapeLimit int

	// State
	started   bool
	refreshMu sync.Mutex
	refreshes map[string]*sync.Mutex

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithScrapeSource injects a scrape source (used by tests).
func WithScrapeSource(src ScrapeSource) Option {
	return func(s *Service) {
		if src != nil {
			s.scraper = src
		}
	}
}

// WithPortalSource injects a portal source (used by tests).
func WithPortalSource(src PortalSource) Option {
	return func(s *Service) {
		if src != nil {
			s.portal = src
		}
	}
}

// WithLedger injects a budget ledger.
func WithLedger(l ledger.Ledger) Option {
	return func(s *Service) {
		if l != nil {
			s.budget = l
		}
	}
}

// WithCache injects a listing cache store.
func WithCache(store *cache.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithEnricher injects an enricher.
func WithEnricher(e *enrich.Enricher) Option {
	return func(s *Service) {
		if e != nil {
			s.enricher = e
		}
	}
}

// WithScrapeLimit caps listings taken per scrape.
func WithScrapeLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.scrapeLimit = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// New constructs a new Service around a config.
func New(cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		cfg:         cfg,
		scrapeLimit: defaultScrapeLimit,
		refreshes:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the service components that were not injected.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting listings service...")

	if s.store == nil {
		s.store = cache.New(
			cache.WithSnapshotPath(s.cfg.CacheSnapshotPath),
			cache.WithTTL(time.Duration(s.cfg.CacheTTLSeconds)*time.Second),
		)
	}
	if s.budget == nil {
		l, err := ledger.Open(s.cfg.LedgerPath, ledger.WithCap(s.cfg.PortalMonthlyCap))
		if err != nil {
			return fmt.Errorf("open budget ledger: %w", err)
		}
		s.budget = l
	}
	if s.scraper == nil {
		s.scraper = scrape.NewScraper(scrape.WithBaseURL(s.cfg.ScrapeBaseURL))
	}
	if s.portal == nil && s.cfg.PortalAPIKey != "" {
		s.portal = portal.NewClient(s.cfg.PortalAPIKey, s.budget,
			portal.WithBaseURL(s.cfg.PortalBaseURL),
			portal.WithPageLimit(s.cfg.PortalPageLimit),
			portal.WithRateLimiter(pool.NewRateLimiter(time.Duration(s.cfg.MinRequestIntervalSeconds)*time.Second)),
		)
	}
	if s.scorer == nil {
		s.scorer = scoring.NewDealScorer(scoring.WithWorkerCount(s.cfg.ScoreWorkers))
	}
	if s.enricher == nil {
		var analyzer ai.Analyzer
		if s.cfg.AIAPIKey != "" {
			a, err := ai.New(s.cfg.AIProvider, s.cfg.AIModel, s.cfg.AIAPIKey)
			if err != nil {
				s.logger.Warn(ctx, "analysis disabled", logger.Error(err))
			} else {
				analyzer = a
			}
		}
		s.enricher = enrich.New(analyzer,
			enrich.WithTopN(s.cfg.AITopN),
			enrich.WithWorkers(s.cfg.AIWorkers),
			enrich.WithCacheTTL(time.Duration(s.cfg.AICacheTTLSeconds)*time.Second),
		)
	}

	s.started = true
	s.logger.Info(ctx, "listings service started",
		logger.Bool("portal", s.portal != nil),
		logger.Int("budgetCap", s.budget.Cap()),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.Flush(ctx); err != nil {
		s.logger.Warn(ctx, "cache flush interrupted", logger.Error(err))
	}
	if err := s.budget.Close(); err != nil {
		s.logger.Warn(ctx, "ledger close failed", logger.Error(err))
	}

	s.started = false
	s.logger.Info(context.Background(), "listings service stopped")
}

// GetListings serves the scored listing set for a region and price range.
// maxReturn caps the batch size per call; zero or negative means the
// configured maximum. Fresh cache entries are re-scored in place and served;
// stale or missing entries trigger a refresh; when the fetch budget is
// exhausted the previous generation is served instead. Upstream problems
// never surface as errors, only validation does.
func (s *Service) GetListings(ctx context.Context, regionName string, minPrice, maxPrice, maxReturn int) (Result, error) {
	region, ok := market.Lookup(regionName)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownRegion, regionName)
	}
	if minPrice <= 0 {
		minPrice = region.MinPrice
	}
	if maxPrice <= 0 {
		maxPrice = region.MaxPrice
	}
	if minPrice > maxPrice {
		return Result{}, fmt.Errorf("%w: %d > %d", ErrInvalidPriceRange, minPrice, maxPrice)
	}
	limit := s.cfg.MaxReturn
	if maxReturn > 0 && maxReturn < limit {
		limit = maxReturn
	}

	scope := fmt.Sprintf("%s_%d_%d", region.Name, minPrice, maxPrice)

	if result, ok := s.serveFresh(ctx, scope, region, limit); ok {
		return result, nil
	}

	// One refresh per scope at a time; late arrivals reuse the result.
	lock := s.scopeLock(scope)
	lock.Lock()
	defer lock.Unlock()

	if result, ok := s.serveFresh(ctx, scope, region, limit); ok {
		return result, nil
	}
	metrics.RecordCacheMiss()

	stale, hadStale := s.store.Get(scope)
	listings, usedStale := s.fetchAll(ctx, region, minPrice, maxPrice, stale.Listings)

	if len(listings) == 0 {
		if hadStale && len(stale.Listings) > 0 {
			metrics.RecordCacheStaleServe()
			s.logger.Warn(ctx, "refresh produced nothing; serving stale entry",
				logger.String("scope", scope))
			return Result{Listings: trim(stale.Listings, limit), FetchedAt: stale.FetchedAt, Stale: true}, nil
		}
		return Result{FetchedAt: time.Now()}, nil
	}

	s.rescore(ctx, listings, region)
	s.store.Put(scope, listings)
	return Result{Listings: trim(listings, limit), FetchedAt: time.Now(), Stale: usedStale}, nil
}

// serveFresh serves a scope entry inside the TTL window. The cached slice
// is copied before the re-scoring pass so concurrent readers never mutate
// shared state.
func (s *Service) serveFresh(ctx context.Context, scope string, region market.Region, limit int) (Result, bool) {
	listings, ok := s.store.Fresh(scope)
	if !ok {
		return Result{}, false
	}
	metrics.RecordCacheHit()
	entry, _ := s.store.Get(scope)

	batch := make([]model.Listing, len(listings))
	copy(batch, listings)
	s.rescore(ctx, batch, region)
	return Result{Listings: trim(batch, limit), FetchedAt: entry.FetchedAt}, true
}

// Budget reports the monthly API budget state.
func (s *Service) Budget(ctx context.Context) (BudgetInfo, error) {
	period := ledger.CurrentPeriod()
	used, err := s.budget.Count(ctx, period)
	if err != nil {
		return BudgetInfo{}, err
	}
	remaining := s.budget.Cap() - used
	if remaining < 0 {
		remaining = 0
	}
	return BudgetInfo{
		Period:       period,
		Used:         used,
		Cap:          s.budget.Cap(),
		Remaining:    remaining,
		LimitReached: remaining == 0,
	}, nil
}

// Regions lists the known region names.
func (s *Service) Regions() []string {
	names := make([]string, 0, len(market.Regions()))
	for name := range market.Regions() {
		names = append(names, name)
	}
	return names
}

// fetchAll gathers listings from all sources concurrently and merges them,
// deduplicated by key. When the portal budget runs out mid-refresh, portal
// listings from the previous generation are salvaged so paid data is not
// silently dropped; the second return reports that case.
func (s *Service) fetchAll(ctx context.Context, region market.Region, minPrice, maxPrice int, stale []model.Listing) ([]model.Listing, bool) {
	var (
		mu        sync.Mutex
		fetched   []model.Listing
		exhausted bool
	)

	workers := pool.New(len(region.PortalCities) + 1)
	workers.Submit(func() {
		got := s.scraper.Fetch(ctx, region.ScrapeArea, region.DefaultLabel, minPrice, maxPrice, s.scrapeLimit)
		mu.Lock()
		fetched = append(fetched, got...)
		mu.Unlock()
	})
	if s.portal != nil {
		for _, city := range region.PortalCities {
			city := city
			workers.Submit(func() {
				records, err := s.portal.FetchCity(ctx, city.Name, city.State, minPrice, maxPrice)
				if err != nil {
					mu.Lock()
					exhausted = exhausted || errors.Is(err, portal.ErrBudgetExhausted)
					mu.Unlock()
					if !errors.Is(err, portal.ErrBudgetExhausted) {
						s.logger.Warn(ctx, "portal fetch failed",
							logger.String("city", city.Name), logger.Error(err))
					}
					return
				}
				got := portal.NormalizeAll(records, region.DefaultLabel)
				mu.Lock()
				fetched = append(fetched, got...)
				mu.Unlock()
			})
		}
	}
	workers.Wait()

	if exhausted {
		metrics.RecordCacheStaleServe()
		for _, l := range stale {
			if l.Source == portal.Source {
				fetched = append(fetched, l)
			}
		}
	}

	seen := dedupe.NewKeySet()
	merged := fetched[:0]
	for _, l := range fetched {
		if seen.SeenAndRecord(l.Key) {
			continue
		}
		if !region.InAllowedArea(l.Neighborhood) {
			continue
		}
		merged = append(merged, l)
	}
	return merged, exhausted
}

// rescore runs the scoring and enrichment passes in place and orders the
// batch best deal first.
func (s *Service) rescore(ctx context.Context, listings []model.Listing, region market.Region) {
	rates := region.Rates()
	s.scorer.ScoreAll(ctx, listings, rates)
	s.enricher.Enrich(ctx, listings, rates)
	scoring.SortByScore(listings)
}

func trim(listings []model.Listing, limit int) []model.Listing {
	if limit > 0 && len(listings) > limit {
		return listings[:limit]
	}
	return listings
}

func (s *Service) scopeLock(scope string) *sync.Mutex {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	lock, ok := s.refreshes[scope]
	if !ok {
		lock = &sync.Mutex{}
		s.refreshes[scope] = lock
	}
	return lock
}
