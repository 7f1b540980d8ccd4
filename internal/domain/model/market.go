package model

// BedroomRates maps a bedroom bucket ("studio", "1br", "2br", "3br") to the
// expected monthly rent for that unit type.
type BedroomRates map[string]int

// MarketRateTable maps a lowercased neighborhood key to its bedroom rates.
// Tables must carry a "default" entry used when a neighborhood is unknown.
// Read-only per scoring pass; supplied by the caller of the scorer.
type MarketRateTable map[string]BedroomRates

// BedroomBucket returns the rate-table bucket for a bedroom count. Anything
// at or above three bedrooms maps to "3br"; finer buckets are too sparse to
// be reliable.
func BedroomBucket(bedrooms int) string {
	if bedrooms == 0 {
		return "studio"
	}
	if bedrooms > 3 {
		bedrooms = 3
	}
	switch bedrooms {
	case 1:
		return "1br"
	case 2:
		return "2br"
	default:
		return "3br"
	}
}
