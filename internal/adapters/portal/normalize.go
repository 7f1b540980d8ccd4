package portal

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"rentradar/internal/domain/model"
)

// flexNumber tolerates the API returning numeric fields as either JSON
// numbers or strings.
type flexNumber struct {
	value float64
	valid bool
}

func (f *flexNumber) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		return nil
	}
	s = strings.Trim(s, `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil // unparseable values read as absent, not as errors
	}
	f.value = v
	f.valid = true
	return nil
}

func (f flexNumber) Int() *int {
	if !f.valid {
		return nil
	}
	return model.IntPtr(int(f.value))
}

func (f flexNumber) Float() *float64 {
	if !f.valid {
		return nil
	}
	return model.Float64Ptr(f.value)
}

// contact is an agent, office, or builder record.
type contact struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Website string `json:"website"`
}

// urlHolder covers the nested objects that sometimes carry a listing link.
type urlHolder struct {
	URL        string `json:"url"`
	Link       string `json:"link"`
	ListingURL string `json:"listingUrl"`
	SourceURL  string `json:"sourceUrl"`
	Website    string `json:"website"`
}

func (u urlHolder) first() string {
	for _, candidate := range []string{u.URL, u.Link, u.ListingURL, u.SourceURL, u.Website} {
		if isHTTP(candidate) {
			return strings.TrimSpace(candidate)
		}
	}
	return ""
}

// Record is one raw listing record from the listings endpoint.
type Record struct {
	ID               string     `json:"id"`
	FormattedAddress string     `json:"formattedAddress"`
	AddressLine1     string     `json:"addressLine1"`
	City             string     `json:"city"`
	State            string     `json:"state"`
	ZipCode          string     `json:"zipCode"`
	Latitude         *float64   `json:"latitude"`
	Longitude        *float64   `json:"longitude"`
	Price            flexNumber `json:"price"`
	Bedrooms         flexNumber `json:"bedrooms"`
	Bathrooms        flexNumber `json:"bathrooms"`
	SquareFootage    flexNumber `json:"squareFootage"`
	PropertyType     string     `json:"propertyType"`
	Status           string     `json:"status"`
	ListedDate       string     `json:"listedDate"`
	RemovedDate      string     `json:"removedDate"`

	URL           string    `json:"url"`
	Link          string    `json:"link"`
	ListingURL    string    `json:"listingUrl"`
	ListingLink   string    `json:"listingLink"`
	SourceURL     string    `json:"sourceUrl"`
	PropertyURL   string    `json:"propertyUrl"`
	MLSURL        string    `json:"mlsUrl"`
	OriginalURL   string    `json:"originalUrl"`
	ExternalURL   string    `json:"externalUrl"`
	PropertyLink  string    `json:"propertyLink"`
	SourceObj     urlHolder `json:"source"`
	MLSObj        urlHolder `json:"mls"`
	ListingObj    urlHolder `json:"listing"`
	PropertyObj   urlHolder `json:"property"`
	ListingAgent  contact   `json:"listingAgent"`
	ListingOffice contact   `json:"listingOffice"`
	Builder       contact   `json:"builder"`
}

// publiclyListed keeps active, not-removed listings. A missing status counts
// as active because the endpoint omits it on some plans.
func (a Record) publiclyListed() bool {
	status := strings.ToLower(strings.TrimSpace(a.Status))
	if status != "" && status != "active" {
		return false
	}
	return a.RemovedDate == ""
}

// Normalize maps a raw API record into the shared listing shape.
// defaultLabel names the generic city whose records need finer-grained
// neighborhood inference.
func (a Record) Normalize(defaultLabel string) model.Listing {
	address := a.FormattedAddress
	if address == "" {
		address = a.AddressLine1
	}
	title := address
	if title == "" {
		title = "Rental listing"
	}

	u := a.listingURL(address)
	l := model.Listing{
		Key:          model.DedupKey(a.ID, u),
		Title:        title,
		URL:          u,
		Neighborhood: a.inferNeighborhood(address, defaultLabel),
		Price:        a.Price.Int(),
		Bedrooms:     a.Bedrooms.Int(),
		Bathrooms:    a.Bathrooms.Float(),
		Sqft:         a.SquareFootage.Int(),
		Latitude:     a.Latitude,
		Longitude:    a.Longitude,
		Source:       Source,
		DealAnalysis: "Listed via portal. Contact agent for details.",
	}
	if len(a.ListedDate) >= 10 {
		l.PostedDate = a.ListedDate[:10]
	}
	l.DeriveUnitPrices()
	return l
}

func isHTTP(u string) bool {
	u = strings.TrimSpace(u)
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

// listingURL resolves the best available link for a record: direct listing
// URL fields, nested source objects, agent or office sites, a contact email,
// then a web search for the address.
func (a Record) listingURL(address string) string {
	for _, candidate := range []string{
		a.URL, a.Link, a.ListingURL, a.ListingLink, a.SourceURL,
		a.PropertyURL, a.MLSURL, a.OriginalURL, a.ExternalURL, a.PropertyLink,
	} {
		if isHTTP(candidate) {
			return strings.TrimSpace(candidate)
		}
	}
	for _, obj := range []urlHolder{a.SourceObj, a.MLSObj, a.ListingObj, a.PropertyObj} {
		if u := obj.first(); u != "" {
			return u
		}
	}
	for _, c := range []contact{a.ListingAgent, a.ListingOffice, a.Builder} {
		if isHTTP(c.Website) {
			return strings.TrimSpace(c.Website)
		}
	}
	for _, c := range []contact{a.ListingAgent, a.ListingOffice} {
		if email := strings.TrimSpace(c.Email); email != "" {
			return "mailto:" + email
		}
	}
	query := address
	if query == "" {
		query = a.City
	}
	return "https://www.google.com/search?q=" + url.QueryEscape(query+" rental listing")
}

// sfZipNeighborhoods maps San Francisco ZIP codes to neighborhood names.
var sfZipNeighborhoods = map[string]string{
	"94014": "Daly City / Outer Mission",
	"94102": "Tenderloin", "94103": "SoMa", "94104": "Financial District",
	"94105": "SoMa", "94107": "Potrero Hill", "94108": "Chinatown",
	"94109": "Nob Hill", "94110": "Mission", "94111": "Financial District",
	"94112": "Ingleside", "94114": "Castro", "94115": "Western Addition",
	"94116": "Sunset", "94117": "Haight-Ashbury", "94118": "Richmond",
	"94121": "Outer Richmond", "94122": "Sunset", "94123": "Marina",
	"94124": "Bayview", "94127": "West Portal", "94129": "Presidio",
	"94130": "Treasure Island", "94131": "Noe Valley", "94132": "Parkmerced",
	"94133": "North Beach", "94134": "Visitacion Valley",
}

var zipRe = regexp.MustCompile(`\b94\d{3}\b`)

// inferNeighborhood picks the most specific area name available. The API
// usually returns only the generic city, so records inside the default city
// fall through to ZIP and then coordinate inference.
func (a Record) inferNeighborhood(address, defaultLabel string) string {
	city := strings.TrimSpace(a.City)
	if city != "" && !isGenericCity(city, defaultLabel) {
		return city
	}

	if hood, ok := sfZipNeighborhoods[strings.TrimSpace(a.ZipCode)]; ok {
		return hood
	}
	if m := zipRe.FindString(address); m != "" {
		if hood, ok := sfZipNeighborhoods[m]; ok {
			return hood
		}
	}

	if a.Latitude != nil && a.Longitude != nil {
		if hood := coordinateNeighborhood(*a.Latitude, *a.Longitude); hood != "" {
			return hood
		}
	}
	if city != "" {
		return city
	}
	return defaultLabel
}

func isGenericCity(city, defaultLabel string) bool {
	c := strings.ToLower(city)
	return c == strings.ToLower(defaultLabel) || c == "san francisco" || c == "sf"
}

// coordinateNeighborhood maps a point to a rough San Francisco area. The
// boundaries are coarse rectangles checked north to south.
func coordinateNeighborhood(lat, lon float64) string {
	switch {
	case lat > 37.79 && lon > -122.45:
		return "Marina / Pacific Heights"
	case lat > 37.79 && lon > -122.42:
		return "Nob Hill / North Beach"
	case lat > 37.78 && lon > -122.41:
		return "Downtown / Financial District"
	case lat > 37.77 && lon > -122.40:
		return "SoMa"
	case lat > 37.75 && lon > -122.42:
		return "Mission"
	case lat > 37.75 && lon > -122.44:
		return "Castro / Noe Valley"
	case lat > 37.77 && lon > -122.45:
		return "Haight-Ashbury"
	case lat < 37.75 && lon < -122.48:
		return "Sunset"
	case lat > 37.77 && lon < -122.48:
		return "Richmond"
	case lat < 37.77 && lon > -122.40:
		return "Potrero Hill"
	default:
		return ""
	}
}

// NormalizeAll maps and filters a fetched batch.
func NormalizeAll(items []Record, defaultLabel string) []model.Listing {
	listings := make([]model.Listing, 0, len(items))
	for _, item := range items {
		listings = append(listings, item.Normalize(defaultLabel))
	}
	return listings
}
