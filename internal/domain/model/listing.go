// Package model contains domain models passed between layers.
package model

import (
	"strings"

	"github.com/google/uuid"
)

// LaundryType classifies a listing's laundry situation. In-unit is best.
type LaundryType string

// Laundry tiers.
const (
	LaundryNone       LaundryType = ""
	LaundryInBuilding LaundryType = "in_building"
	LaundryInUnit     LaundryType = "in_unit"
)

// Listing is the canonical unit of rental data produced by any adapter.
// Price, Bedrooms and the scoring fields are independently nullable; a listing
// is never dropped for missing optional fields.
type Listing struct {
	Key          string      `json:"key"` // stable dedup key: source id, else normalized URL
	Title        string      `json:"title"`
	URL          string      `json:"url"`
	Price        *int        `json:"price"`        // monthly rent, whole currency units
	Neighborhood string      `json:"neighborhood"` // never empty; defaults to the region label
	Bedrooms     *int        `json:"bedrooms"`     // 0 = studio
	Bathrooms    *float64    `json:"bathrooms"`    // fractional allowed
	Sqft         *int        `json:"sqft"`
	PricePerSqft *float64    `json:"price_per_sqft"`
	PricePerBed  *float64    `json:"price_per_bedroom"`
	PostedDate   string      `json:"posted_date,omitempty"`
	Laundry      LaundryType `json:"laundry_type,omitempty"`
	Parking      bool        `json:"parking"`
	ThumbnailURL string      `json:"thumbnail_url,omitempty"`
	Latitude     *float64    `json:"latitude,omitempty"`
	Longitude    *float64    `json:"longitude,omitempty"`
	Source       string      `json:"source"`

	// Scoring fields, set by the scorer and the enrichment pass.
	DiscountPct  *float64 `json:"discount_pct"`
	DealScore    *int     `json:"deal_score"`
	DealAnalysis string   `json:"deal_analysis"`
}

// DedupKey returns a stable key for a listing: the source listing id when
// available, else the normalized URL, else a random uuid so the listing is
// still representable in caches.
func DedupKey(sourceID, url string) string {
	if id := strings.TrimSpace(sourceID); id != "" {
		return id
	}
	if u := NormalizeKeyURL(url); u != "" {
		return u
	}
	return uuid.NewString()
}

// NormalizeKeyURL strips the fragment and trailing slash so the same listing
// URL always maps to the same key.
func NormalizeKeyURL(url string) string {
	u := strings.TrimSpace(url)
	if u == "" {
		return ""
	}
	if i := strings.IndexByte(u, '#'); i >= 0 {
		u = u[:i]
	}
	return strings.TrimRight(u, "/")
}

// DeriveUnitPrices fills price-per-sqft and price-per-bedroom when both
// operands are present.
func (l *Listing) DeriveUnitPrices() {
	if l.Price == nil {
		return
	}
	if l.Sqft != nil && *l.Sqft > 0 {
		v := round2(float64(*l.Price) / float64(*l.Sqft))
		l.PricePerSqft = &v
	}
	if l.Bedrooms != nil && *l.Bedrooms > 0 {
		v := round2(float64(*l.Price) / float64(*l.Bedrooms))
		l.PricePerBed = &v
	}
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

// IntPtr, Float64Ptr are small helpers for building listings from parsed data.
func IntPtr(v int) *int             { return &v }
func Float64Ptr(v float64) *float64 { return &v }
