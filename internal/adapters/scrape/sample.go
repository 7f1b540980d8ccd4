package scrape

import "rentradar/internal/domain/model"

// sampleSeed describes one canned listing. Samples keep the pipeline usable
// when the live source blocks or changes markup.
type sampleSeed struct {
	title    string
	price    int
	hood     string
	bedrooms int
	baths    float64
	sqft     int
	laundry  model.LaundryType
	parking  bool
}

var sfSamples = []sampleSeed{
	{"Sunny 2BR in the Mission w/ in-unit laundry", 3400, "Mission District", 2, 1, 950, model.LaundryInUnit, false},
	{"Top-floor 1BR near Golden Gate Park", 2750, "Inner Richmond", 1, 1, 680, model.LaundryInBuilding, false},
	{"Spacious studio, great light, Nob Hill", 2150, "Nob Hill", 0, 1, 480, model.LaundryInBuilding, false},
	{"Remodeled 3BR/2BA with parking", 4900, "Noe Valley", 3, 2, 1400, model.LaundryInUnit, true},
	{"Classic 1BR in Hayes Valley", 2950, "Hayes Valley", 1, 1, 700, "", false},
	{"Bright 2BR/2BA SOMA loft, parking included", 4100, "SOMA", 2, 2, 1100, model.LaundryInUnit, true},
}

var peninsulaSamples = []sampleSeed{
	{"Charming 1BR cottage near downtown Palo Alto", 2900, "Palo Alto", 1, 1, 650, "", true},
	{"Updated 2BR in Menlo Park, washer/dryer in unit", 3800, "Menlo Park", 2, 1.5, 1000, model.LaundryInUnit, true},
	{"Studio walkable to Caltrain", 2200, "Palo Alto", 0, 1, 450, model.LaundryInBuilding, false},
	{"Large 3BR house with garage, Menlo Park", 5600, "Menlo Park", 3, 2, 1650, model.LaundryInUnit, true},
}

// SampleListings returns the canned payload for an area, tagged with the
// sample source so callers and clients can tell it apart from live data.
func SampleListings(area, defaultLabel string) []model.Listing {
	seeds := sfSamples
	if area != "sfc" {
		seeds = peninsulaSamples
	}

	listings := make([]model.Listing, 0, len(seeds))
	for _, seed := range seeds {
		hood := seed.hood
		if hood == "" {
			hood = defaultLabel
		}
		l := model.Listing{
			Key:          model.DedupKey("", ""),
			Title:        seed.title,
			Neighborhood: hood,
			Price:        model.IntPtr(seed.price),
			Bedrooms:     model.IntPtr(seed.bedrooms),
			Bathrooms:    model.Float64Ptr(seed.baths),
			Sqft:         model.IntPtr(seed.sqft),
			Laundry:      seed.laundry,
			Parking:      seed.parking,
			Source:       SourceSample,
		}
		l.DeriveUnitPrices()
		listings = append(listings, l)
	}
	return listings
}
