// Package enrich decides which listings earn an LLM analysis call and fills
// every other listing with a locally generated summary. Calls are expensive,
// so only the best candidates by discount are sent out, bounded by a worker
// pool, and results are cached so a page refresh never respends.
package enrich

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rentradar/internal/adapters/ai"
	"rentradar/internal/domain/model"
	"rentradar/internal/domain/scoring"
	"rentradar/internal/pool"
	"rentradar/pkg/logger"
	"rentradar/pkg/metrics"
)

// Default enrichment parameters.
const (
	defaultTopN     = 20
	defaultWorkers  = 10
	defaultCacheTTL = time.Hour
)

// Option applies a configuration option to the Enricher.
type Option func(*Enricher)

// WithTopN sets how many listings per batch get an analyzer call.
func WithTopN(n int) Option {
	return func(e *Enricher) {
		if n > 0 {
			e.topN = n
		}
	}
}

// WithWorkers sets the analyzer call concurrency.
func WithWorkers(n int) Option {
	return func(e *Enricher) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithCacheTTL sets how long a verdict is reused before the listing is
// eligible for another analyzer call.
func WithCacheTTL(ttl time.Duration) Option {
	return func(e *Enricher) {
		if ttl > 0 {
			e.cacheTTL = ttl
		}
	}
}

// WithClock overrides the time source (used by tests).
func WithClock(now func() time.Time) Option {
	return func(e *Enricher) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(e *Enricher) {
		if log != nil {
			e.log = log
		}
	}
}

type cachedVerdict struct {
	score    *int
	analysis string
	discount *float64
	at       time.Time
}

// Enricher selects and runs analyzer calls over scored listing batches.
// The analyzer may be nil; everything then falls back to local summaries.
type Enricher struct {
	analyzer ai.Analyzer
	topN     int
	workers  int
	cacheTTL time.Duration
	now      func() time.Time
	log      logger.Logger

	mu    sync.Mutex
	cache map[string]cachedVerdict
}

// New creates an Enricher around an analyzer.
func New(analyzer ai.Analyzer, opts ...Option) *Enricher {
	e := &Enricher{
		analyzer: analyzer,
		topN:     defaultTopN,
		workers:  defaultWorkers,
		cacheTTL: defaultCacheTTL,
		now:      time.Now,
		log:      logger.Named("enrich"),
		cache:    make(map[string]cachedVerdict),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich fills DealScore refinements and DealAnalysis for a scored batch,
// in place. Listings already carrying a terminal analysis (missing price or
// bedrooms) are left alone. Among the rest, cached verdicts apply first;
// the top candidates by discount go to the analyzer; everyone else gets a
// local summary. Enrich never fails: analyzer errors degrade per listing.
func (e *Enricher) Enrich(ctx context.Context, listings []model.Listing, rates model.MarketRateTable) {
	if len(listings) == 0 {
		return
	}

	candidates := make([]*model.Listing, 0, len(listings))
	for i := range listings {
		l := &listings[i]
		if l.DiscountPct == nil {
			continue // terminal: no market comparison possible
		}
		if e.applyCached(l) {
			metrics.RecordEnrichmentCacheHit()
			continue
		}
		candidates = append(candidates, l)
	}

	selected := e.selectTop(candidates)

	if e.analyzer != nil && len(selected) > 0 {
		e.analyzeAll(ctx, selected, rates)
	}

	for _, l := range candidates {
		if l.DealAnalysis == "" || !isEnriched(l) {
			l.DealAnalysis = localSummary(l, e.topN)
		}
		e.store(l)
	}
}

// applyCached copies a fresh cached verdict onto the listing.
func (e *Enricher) applyCached(l *model.Listing) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.cache[l.Key]
	if !ok || e.now().Sub(v.at) >= e.cacheTTL {
		return false
	}
	if v.score != nil {
		l.DealScore = model.IntPtr(*v.score)
	}
	l.DealAnalysis = v.analysis
	if v.discount != nil {
		l.DiscountPct = model.Float64Ptr(*v.discount)
	}
	return true
}

func (e *Enricher) store(l *model.Listing) {
	if l.Key == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache[l.Key] = cachedVerdict{
		score:    l.DealScore,
		analysis: l.DealAnalysis,
		discount: l.DiscountPct,
		at:       e.now(),
	}
}

// selectTop returns the best candidates by discount, nil discounts last.
func (e *Enricher) selectTop(candidates []*model.Listing) []*model.Listing {
	if len(candidates) == 0 {
		return nil
	}
	ordered := make([]model.Listing, len(candidates))
	for i, l := range candidates {
		ordered[i] = *l
	}
	scoring.SortByDiscount(ordered)

	byKey := make(map[string]*model.Listing, len(candidates))
	for _, l := range candidates {
		byKey[l.Key] = l
	}
	n := e.topN
	if n > len(ordered) {
		n = len(ordered)
	}
	selected := make([]*model.Listing, 0, n)
	for _, l := range ordered[:n] {
		if ptr, ok := byKey[l.Key]; ok {
			selected = append(selected, ptr)
		}
	}
	return selected
}

func (e *Enricher) analyzeAll(ctx context.Context, selected []*model.Listing, rates model.MarketRateTable) {
	workers := pool.New(e.workers)
	for _, l := range selected {
		l := l
		workers.Submit(func() {
			e.analyzeOne(ctx, l, rates)
		})
	}
	workers.Wait()
}

func (e *Enricher) analyzeOne(ctx context.Context, l *model.Listing, rates model.MarketRateTable) {
	bedrooms := 0
	if l.Bedrooms != nil {
		bedrooms = *l.Bedrooms
	}
	rate := scoring.MarketRate(rates, l.Neighborhood, bedrooms)

	metrics.RecordEnrichmentCall()
	verdict, err := e.analyzer.Analyze(ctx, *l, rate)
	if err != nil {
		metrics.RecordEnrichmentFailure()
		e.log.Warn(ctx, "listing analysis failed", logger.String("key", l.Key), logger.Error(err))
		l.DealAnalysis = "AI analysis unavailable — manual review recommended."
		return
	}
	if verdict.Score != nil {
		l.DealScore = verdict.Score
	}
	l.DealAnalysis = verdict.Analysis
}

// isEnriched reports whether the listing already carries a real analysis
// rather than an empty or placeholder-pending value.
func isEnriched(l *model.Listing) bool {
	return l.DealAnalysis != "" && l.DealAnalysis != "Listed via portal. Contact agent for details."
}

// localSummary builds an analysis line without an LLM call, from the market
// comparison and amenities.
func localSummary(l *model.Listing, topN int) string {
	var comparison string
	switch {
	case l.DiscountPct != nil && *l.DiscountPct >= 1:
		comparison = fmt.Sprintf("About %.0f%% below market.", *l.DiscountPct)
	case l.DiscountPct != nil && *l.DiscountPct <= -1:
		comparison = fmt.Sprintf("About %.0f%% above market.", -*l.DiscountPct)
	default:
		comparison = "Roughly at market rate."
	}

	var perks []string
	switch l.Laundry {
	case model.LaundryInUnit:
		perks = append(perks, "in-unit laundry")
	case model.LaundryInBuilding:
		perks = append(perks, "laundry in building")
	}
	if l.Parking {
		perks = append(perks, "parking")
	}
	if len(perks) > 0 {
		return comparison + " Includes " + joinAnd(perks) + "."
	}
	return comparison + fmt.Sprintf(" Not in top %d by discount; see price vs market above.", topN)
}

func joinAnd(items []string) string {
	switch len(items) {
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		out := ""
		for i, item := range items {
			switch {
			case i == 0:
				out = item
			case i == len(items)-1:
				out += ", and " + item
			default:
				out += ", " + item
			}
		}
		return out
	}
}
