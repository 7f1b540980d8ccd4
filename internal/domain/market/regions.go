package market

import (
	"regexp"
	"strings"

	"rentradar/internal/domain/model"
)

// nonAreaChars strips punctuation before area matching so variants like
// "Palo Alto (downtown)" still match.
var nonAreaChars = regexp.MustCompile(`[^\w\s/-]`)

// Region describes one logical search market.
type Region struct {
	Name         string // registry key, e.g. "sf"
	ScrapeArea   string // area code in the scrape target's search path
	DefaultLabel string // neighborhood label when nothing better is known
	PortalCities []City // cities queried against the paid API
	MinPrice     int
	MaxPrice     int
	Rates        func() model.MarketRateTable

	// AllowedAreas, when non-empty, restricts results to listings whose
	// neighborhood matches one of these names (substring, either way).
	AllowedAreas []string
}

// InAllowedArea reports whether a neighborhood passes the region's area
// filter. Regions without a filter accept everything.
func (r Region) InAllowedArea(neighborhood string) bool {
	if len(r.AllowedAreas) == 0 {
		return true
	}
	n := nonAreaChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(neighborhood)), "")
	n = strings.TrimSpace(n)
	if n == "" {
		return false
	}
	for _, allowed := range r.AllowedAreas {
		if strings.Contains(n, allowed) || strings.Contains(allowed, n) {
			return true
		}
	}
	return false
}

// City is one city/state pair for the paid API.
type City struct {
	Name  string
	State string
}

// stanfordAreas limits the stanford region to cities within commute range
// of the campus and hospital. Lowercase; matched by substring in either
// direction.
var stanfordAreas = []string{
	"palo alto", "menlo park", "east palo alto", "stanford", "redwood city", "mountain view",
	"downtown palo alto", "old palo alto", "south palo alto", "north palo alto",
	"college terrace", "crescent park", "duveneck", "downtown menlo park", "willow",
	"belle haven", "shoreline", "redwood shores", "woodside", "atherton",
	"portola valley", "los altos", "los altos hills",
}

// Regions returns the built-in region registry.
func Regions() map[string]Region {
	return map[string]Region{
		"sf": {
			Name:         "sf",
			ScrapeArea:   "sfc",
			DefaultLabel: "San Francisco",
			PortalCities: []City{{Name: "San Francisco", State: "CA"}},
			MinPrice:     2000,
			MaxPrice:     5000,
			Rates:        SFRates,
		},
		"stanford": {
			Name:         "stanford",
			ScrapeArea:   "pen",
			DefaultLabel: "Palo Alto",
			PortalCities: []City{{Name: "Palo Alto", State: "CA"}, {Name: "Menlo Park", State: "CA"}},
			MinPrice:     1500,
			MaxPrice:     6500,
			Rates:        PeninsulaRates,
			AllowedAreas: stanfordAreas,
		},
	}
}

// Lookup resolves a region by name (case-insensitive). The second return is
// false for unknown regions.
func Lookup(name string) (Region, bool) {
	r, ok := Regions()[strings.ToLower(strings.TrimSpace(name))]
	return r, ok
}
