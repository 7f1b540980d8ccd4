package scrape

import (
	"regexp"
	"strconv"
	"strings"

	"rentradar/internal/domain/model"
)

// Plausible monthly rent bounds; dollar amounts outside this range found by
// text regex are treated as extraction noise, not prices.
const (
	minPlausibleRent = 500
	maxPlausibleRent = 15000
)

var (
	dollarAmountRe = regexp.MustCompile(`\$\s*([\d,]+)`)

	studioRe          = regexp.MustCompile(`(?i)\bstudio\b|\b0\s*br\b|0br|0-bed`)
	bedroomsRe        = regexp.MustCompile(`(?i)(?:^|[\s/\-])(\d+)\s*-?\s*(?:br|bed|bedroom|bd)s?\b`)
	bedroomsCompactRe = regexp.MustCompile(`(?i)\b([1-6])br\b`)
	bathroomsRe       = regexp.MustCompile(`(?i)([\d.]+)\s*(?:ba|bath|bathroom)s?`)
	sqftRe            = regexp.MustCompile(`(?i)(\d+)\s*(?:sqft|sq\.?\s*ft\.?|sf|ft²)`)

	laundryInUnitRe     = regexp.MustCompile(`in[- ]?unit\s*(?:w/?d|washer|laundry)|w/?d\s*in\s*unit|washer\s*(?:&|and)\s*dryer\s*in\s*unit|in-unit\s*laundry`)
	laundryInBuildingRe = regexp.MustCompile(`laundry\s*(?:in\s*building|on[- ]?site)|in\s*building\s*laundry|on[- ]?site\s*laundry|shared\s*laundry|laundry\s*on\s*site`)
	laundryAnyRe        = regexp.MustCompile(`washer|dryer|w/d|w&d|laundry`)
	parkingRe           = regexp.MustCompile(`parking|garage|car\s*space|pkg\s*(?:incl|avail)`)
)

// extractPrice returns the first plausible rent-like dollar amount in text,
// or nil when none is found within [500, 15000].
func extractPrice(text string) *int {
	for _, m := range dollarAmountRe.FindAllStringSubmatch(text, -1) {
		v, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
		if err != nil {
			continue
		}
		if v >= minPlausibleRent && v <= maxPlausibleRent {
			return &v
		}
	}
	return nil
}

// extractBedrooms handles "2br", "2 br", "2-bed", "2 bd", "studio" and the
// compact "1br".."6br" forms. Counts above 6 are rejected as noise.
func extractBedrooms(text string) *int {
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)
	if studioRe.MatchString(lower) {
		return model.IntPtr(0)
	}
	if m := bedroomsRe.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 0 && n <= 6 {
			return &n
		}
	}
	if m := bedroomsCompactRe.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return &n
		}
	}
	return nil
}

func extractBathrooms(text string) *float64 {
	if m := bathroomsRe.FindStringSubmatch(strings.ToLower(text)); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return &v
		}
	}
	return nil
}

func extractSqft(text string) *int {
	if m := sqftRe.FindStringSubmatch(strings.ToLower(text)); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			return &v
		}
	}
	return nil
}

// extractLaundry classifies free text into a laundry tier. A generic washer
// or dryer mention without an in-unit signal is assumed to be in-building.
func extractLaundry(text string) model.LaundryType {
	t := strings.ToLower(text)
	if t == "" {
		return model.LaundryNone
	}
	if laundryInUnitRe.MatchString(t) {
		return model.LaundryInUnit
	}
	if laundryInBuildingRe.MatchString(t) {
		return model.LaundryInBuilding
	}
	if laundryAnyRe.MatchString(t) {
		return model.LaundryInBuilding
	}
	return model.LaundryNone
}

func extractParking(text string) bool {
	if text == "" {
		return false
	}
	return parkingRe.MatchString(strings.ToLower(text))
}

// firstIntOf returns the first non-nil extraction over the given text
// blobs, best blob first.
func firstIntOf(extract func(string) *int, texts ...string) *int {
	for _, t := range texts {
		if v := extract(t); v != nil {
			return v
		}
	}
	return nil
}

func firstFloatOf(extract func(string) *float64, texts ...string) *float64 {
	for _, t := range texts {
		if v := extract(t); v != nil {
			return v
		}
	}
	return nil
}
