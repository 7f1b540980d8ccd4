// Package scoring computes market-relative discounts and composite deal
// scores for listings. Scoring is pure and local: it never blocks on any
// external call, so a full batch can always be ranked before enrichment.
package scoring

import (
	"context"
	"math"
	"sort"
	"strings"

	"rentradar/internal/domain/model"
	"rentradar/internal/pool"
)

// Composite score parameters.
const (
	scoreBase      = 50
	scoreMax       = 100
	scoreNoPrice   = 0  // terminal: listing cannot be evaluated at all
	scoreNoBedroom = 40 // terminal: bucket unknown, discount unknowable

	bonusLaundryInUnit     = 6
	bonusLaundryInBuilding = 2
	bonusParking           = 4
	bonusBathRatioFull     = 3 // every bedroom has its own bath
	bonusBathRatioGood     = 1 // >= 0.75 baths per bedroom
	bonusRoomySqftPerBed   = 2 // >= 600 sqft per bedroom
	bonusDecentSqftPerBed  = 1 // >= 500 sqft per bedroom

	defaultWorkerCount = 16
)

// Diagnostic analysis strings for terminal scoring outcomes.
const (
	MsgMissingPrice    = "Price information missing."
	MsgMissingBedrooms = "Bedroom count not specified — difficult to evaluate value."
)

// Option applies a configuration option to the DealScorer.
type Option func(*DealScorer)

// WithWorkerCount sets the number of workers for batch scoring passes.
func WithWorkerCount(n int) Option {
	return func(s *DealScorer) {
		if n > 0 {
			s.workerCount = n
		}
	}
}

// DealScorer scores listings against a market-rate table.
type DealScorer struct {
	workerCount int
}

// NewDealScorer creates a scorer with configuration options.
func NewDealScorer(opts ...Option) *DealScorer {
	s := &DealScorer{workerCount: defaultWorkerCount}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score sets DiscountPct, DealScore and, for terminal outcomes, DealAnalysis
// on the listing. It returns false when the listing is terminal (missing
// price or bedroom count) and received a diagnostic score instead of a
// market comparison.
func (s *DealScorer) Score(l *model.Listing, rates model.MarketRateTable) bool {
	if l.Price == nil {
		l.DealScore = model.IntPtr(scoreNoPrice)
		l.DealAnalysis = MsgMissingPrice
		l.DiscountPct = nil
		return false
	}
	if l.Bedrooms == nil {
		l.DealScore = model.IntPtr(scoreNoBedroom)
		l.DealAnalysis = MsgMissingBedrooms
		l.DiscountPct = nil
		return false
	}

	rate := MarketRate(rates, l.Neighborhood, *l.Bedrooms)
	discount := 0.0
	if rate > 0 {
		discount = math.Round((float64(rate)-float64(*l.Price))/float64(rate)*1000) / 10
	}
	l.DiscountPct = model.Float64Ptr(discount)

	score := scoreBase + int(math.Round(discount))
	switch l.Laundry {
	case model.LaundryInUnit:
		score += bonusLaundryInUnit
	case model.LaundryInBuilding:
		score += bonusLaundryInBuilding
	}
	if l.Parking {
		score += bonusParking
	}
	if l.Bathrooms != nil && *l.Bedrooms >= 2 {
		ratio := *l.Bathrooms / float64(*l.Bedrooms)
		if ratio >= 1.0 {
			score += bonusBathRatioFull
		} else if ratio >= 0.75 {
			score += bonusBathRatioGood
		}
	}
	if l.Sqft != nil && *l.Bedrooms > 0 {
		perBed := float64(*l.Sqft) / float64(*l.Bedrooms)
		if perBed >= 600 {
			score += bonusRoomySqftPerBed
		} else if perBed >= 500 {
			score += bonusDecentSqftPerBed
		}
	}
	if score < 0 {
		score = 0
	}
	if score > scoreMax {
		score = scoreMax
	}
	l.DealScore = &score
	return true
}

// ScoreAll scores a batch in place with a bounded worker pool. Terminal
// listings keep their diagnostic score; the batch is never aborted.
func (s *DealScorer) ScoreAll(ctx context.Context, listings []model.Listing, rates model.MarketRateTable) {
	p := pool.New(s.workerCount)
	for i := range listings {
		l := &listings[i]
		p.Submit(func() {
			if ctx.Err() != nil {
				return
			}
			s.Score(l, rates)
		})
	}
	p.Wait()
}

// MarketRate looks up the expected rent for a neighborhood and bedroom
// count. The neighborhood key is lowercased; hyphen and space spellings are
// both tried before falling back to the table's default bucket. A missing
// bedroom bucket falls back to the 1br rate.
func MarketRate(rates model.MarketRateTable, neighborhood string, bedrooms int) int {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(neighborhood)), " ", "-")
	hood, ok := rates[key]
	if !ok {
		hood, ok = rates[strings.ReplaceAll(key, "-", " ")]
	}
	if !ok {
		hood = rates["default"]
	}
	if rate, ok := hood[model.BedroomBucket(bedrooms)]; ok {
		return rate
	}
	return hood["1br"]
}

// SortByScore orders listings by deal score descending, unscored last.
func SortByScore(listings []model.Listing) {
	sort.SliceStable(listings, func(i, j int) bool {
		si, sj := listings[i].DealScore, listings[j].DealScore
		if si == nil {
			return false
		}
		if sj == nil {
			return true
		}
		return *si > *sj
	})
}

// SortByDiscount orders listings by discount percentage descending, listings
// without a discount last. Discount is the purer economic signal used to
// pick enrichment candidates.
func SortByDiscount(listings []model.Listing) {
	sort.SliceStable(listings, func(i, j int) bool {
		di, dj := listings[i].DiscountPct, listings[j].DiscountPct
		if di == nil {
			return false
		}
		if dj == nil {
			return true
		}
		return *di > *dj
	})
}
