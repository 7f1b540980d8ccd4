// Package market holds the built-in market-rate tables and the region
// registry that ties a region name to its search area, price bounds, and
// rate table. The numbers are approximate and refreshed by hand; the scorer
// only cares about the table shape.
package market

import "rentradar/internal/domain/model"

// SFRates returns SF neighborhood market rates by bedroom bucket.
func SFRates() model.MarketRateTable {
	return model.MarketRateTable{
		"mission":         {"studio": 2300, "1br": 2900, "2br": 3900, "3br": 4800},
		"soma":            {"studio": 2500, "1br": 3200, "2br": 4400, "3br": 5200},
		"nob hill":        {"studio": 2400, "1br": 3000, "2br": 4100, "3br": 5000},
		"nob-hill":        {"studio": 2400, "1br": 3000, "2br": 4100, "3br": 5000},
		"marina":          {"studio": 2600, "1br": 3300, "2br": 4600, "3br": 5500},
		"sunset":          {"studio": 2000, "1br": 2500, "2br": 3400, "3br": 4300},
		"richmond":        {"studio": 2000, "1br": 2500, "2br": 3400, "3br": 4400},
		"castro":          {"studio": 2400, "1br": 2900, "2br": 4000, "3br": 4900},
		"haight":          {"studio": 2200, "1br": 2800, "2br": 3700, "3br": 4700},
		"haight-ashbury":  {"studio": 2200, "1br": 2800, "2br": 3700, "3br": 4700},
		"pac heights":     {"studio": 2700, "1br": 3400, "2br": 4700, "3br": 5800},
		"pacific heights": {"studio": 2700, "1br": 3400, "2br": 4700, "3br": 5800},
		"inner sunset":    {"studio": 2100, "1br": 2600, "2br": 3500, "3br": 4400},
		"default":         {"studio": 2300, "1br": 2900, "2br": 3900, "3br": 4900},
	}
}

// PeninsulaRates returns Stanford-area market rates (Palo Alto, Menlo Park
// and nearby cities).
func PeninsulaRates() model.MarketRateTable {
	return model.MarketRateTable{
		"palo alto":      {"studio": 2200, "1br": 2800, "2br": 3800, "3br": 4800},
		"palo-alto":      {"studio": 2200, "1br": 2800, "2br": 3800, "3br": 4800},
		"menlo park":     {"studio": 2100, "1br": 2700, "2br": 3600, "3br": 4500},
		"menlo-park":     {"studio": 2100, "1br": 2700, "2br": 3600, "3br": 4500},
		"redwood city":   {"studio": 1900, "1br": 2500, "2br": 3300, "3br": 4200},
		"redwood-city":   {"studio": 1900, "1br": 2500, "2br": 3300, "3br": 4200},
		"mountain view":  {"studio": 2100, "1br": 2700, "2br": 3500, "3br": 4400},
		"mountain-view":  {"studio": 2100, "1br": 2700, "2br": 3500, "3br": 4400},
		"stanford":       {"studio": 2300, "1br": 2900, "2br": 3900, "3br": 4900},
		"east palo alto": {"studio": 1700, "1br": 2200, "2br": 2900, "3br": 3700},
		"east-palo-alto": {"studio": 1700, "1br": 2200, "2br": 2900, "3br": 3700},
		"default":        {"studio": 2100, "1br": 2700, "2br": 3600, "3br": 4500},
	}
}
