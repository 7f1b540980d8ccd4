package scrape

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"rentradar/internal/domain/model"
)

// minLDResults is the acceptance floor for the JSON-LD strategy. Small
// result sets in the embedded block are usually a truncated teaser; the
// container markup on the same page carries the full set.
const minLDResults = 20

// listingLinkRe matches direct listing paths like
// /sfc/apa/d/san-francisco-sunny-2br/7712345678.html and the older
// /sfc/apa/7712345678.html form.
var listingLinkRe = regexp.MustCompile(`/apa/(?:d/[^/]+/)?(\d+)\.html`)

// parseLDJSON reads the embedded search-results JSON-LD block. This is the
// most reliable source when present: structured fields, no text scraping.
func (s *Scraper) parseLDJSON(doc *goquery.Document, q query) []model.Listing {
	var listings []model.Listing
	doc.Find(`script[type="application/ld+json"]#ld_searchpage_results`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		var payload map[string]any
		if err := json.Unmarshal([]byte(sel.Text()), &payload); err != nil {
			return true
		}
		for _, record := range ldRecords(payload) {
			if l, ok := s.listingFromLDRecord(record, q); ok {
				listings = append(listings, l)
			}
		}
		return false
	})
	if len(listings) < minLDResults {
		return nil
	}
	return listings
}

// ldRecords extracts the item records from either an ItemList
// ("itemListElement" with nested "item") or a flat "about" array.
func ldRecords(payload map[string]any) []map[string]any {
	var records []map[string]any
	if elems, ok := payload["itemListElement"].([]any); ok {
		for _, e := range elems {
			wrapper, ok := e.(map[string]any)
			if !ok {
				continue
			}
			if item, ok := wrapper["item"].(map[string]any); ok {
				records = append(records, item)
			} else {
				records = append(records, wrapper)
			}
		}
		return records
	}
	if elems, ok := payload["about"].([]any); ok {
		for _, e := range elems {
			if item, ok := e.(map[string]any); ok {
				records = append(records, item)
			}
		}
	}
	return records
}

func (s *Scraper) listingFromLDRecord(record map[string]any, q query) (model.Listing, bool) {
	title := strings.TrimSpace(ldString(record, "name"))
	if title == "" {
		return model.Listing{}, false
	}

	l := model.Listing{
		Title:        title,
		URL:          s.normalizeListingURL(ldString(record, "url")),
		Neighborhood: q.defaultLabel,
		Source:       SourceScrape,
	}

	if price, ok := ldPrice(record); ok && price >= minPlausibleRent && price <= maxPlausibleRent {
		l.Price = model.IntPtr(price)
	}
	if beds, ok := ldNumber(record, "numberOfBedrooms", "numberOfBedroomsTotal"); ok {
		n := int(beds)
		if n >= 0 && n <= 6 {
			l.Bedrooms = model.IntPtr(n)
		}
	} else if b := extractBedrooms(title); b != nil {
		l.Bedrooms = b
	}
	if baths, ok := ldNumber(record, "numberOfBathroomsTotal", "numberOfBathrooms"); ok && baths > 0 {
		l.Bathrooms = model.Float64Ptr(baths)
	}
	if size, ok := record["floorSize"].(map[string]any); ok {
		if v, ok := ldNumber(size, "value"); ok && v > 0 {
			l.Sqft = model.IntPtr(int(v))
		}
	}
	if addr, ok := record["address"].(map[string]any); ok {
		if loc := strings.TrimSpace(ldString(addr, "addressLocality")); loc != "" {
			l.Neighborhood = loc
		}
	}
	if lat, ok := ldNumber(record, "latitude"); ok {
		l.Latitude = model.Float64Ptr(lat)
	}
	if lon, ok := ldNumber(record, "longitude"); ok {
		l.Longitude = model.Float64Ptr(lon)
	}
	switch img := record["image"].(type) {
	case string:
		l.ThumbnailURL = img
	case []any:
		if len(img) > 0 {
			if u, ok := img[0].(string); ok {
				l.ThumbnailURL = u
			}
		}
	}

	l.Key = model.DedupKey("", l.URL)
	l.DeriveUnitPrices()
	return l, true
}

func ldString(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

// ldNumber reads the first present key as a number, accepting both JSON
// numbers and numeric strings.
func ldNumber(m map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		switch v := m[key].(type) {
		case float64:
			return v, true
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func ldPrice(record map[string]any) (int, bool) {
	if offers, ok := record["offers"].(map[string]any); ok {
		if v, ok := ldNumber(offers, "price"); ok {
			return int(v), true
		}
	}
	if v, ok := ldNumber(record, "price"); ok {
		return int(v), true
	}
	return 0, false
}

// Container selectors in order of markup generation, newest first.
var containerSelectors = []string{
	"li.cl-search-result",
	"li.cl-static-search-result",
	"li.result-row",
	"li[data-pid]",
}

// parseContainers walks result-row list items and extracts one listing per
// container, trying several price locations because the markup varies by
// page generation.
func (s *Scraper) parseContainers(doc *goquery.Document, q query) []model.Listing {
	var sel *goquery.Selection
	for _, css := range containerSelectors {
		if found := doc.Find(css); found.Length() > 0 {
			sel = found
			break
		}
	}
	if sel == nil {
		return nil
	}

	var listings []model.Listing
	sel.Each(func(_ int, row *goquery.Selection) {
		l, ok := s.listingFromContainer(row, q)
		if ok {
			listings = append(listings, l)
		}
	})
	return listings
}

func (s *Scraper) listingFromContainer(row *goquery.Selection, q query) (model.Listing, bool) {
	title, href := containerTitle(row)
	if title == "" {
		return model.Listing{}, false
	}
	text := row.Text()

	l := model.Listing{
		Title:        title,
		URL:          s.normalizeListingURL(href),
		Neighborhood: containerNeighborhood(row, q.defaultLabel),
		Source:       SourceScrape,
	}

	price := containerPrice(row, title, text)
	if price == nil {
		return model.Listing{}, false
	}
	l.Price = price
	l.Bedrooms = firstIntOf(extractBedrooms, title, text)
	l.Bathrooms = firstFloatOf(extractBathrooms, title, text)
	l.Sqft = firstIntOf(extractSqft, title, text)
	l.Laundry = extractLaundry(text)
	l.Parking = extractParking(text)

	if img := row.Find("img").First(); img.Length() > 0 {
		if src, ok := img.Attr("src"); ok {
			l.ThumbnailURL = src
		}
	}
	if t := row.Find("time").First(); t.Length() > 0 {
		if dt, ok := t.Attr("datetime"); ok {
			if parsed, err := time.Parse("2006-01-02 15:04", dt); err == nil {
				l.PostedDate = parsed.Format("2006-01-02")
			} else if len(dt) >= 10 {
				l.PostedDate = dt[:10]
			}
		}
	}

	l.Key = model.DedupKey(containerPID(row), l.URL)
	l.DeriveUnitPrices()
	return l, true
}

func containerTitle(row *goquery.Selection) (title, href string) {
	for _, css := range []string{"a.cl-app-anchor .label", ".titlestring", "a.result-title", ".result-heading a", "a"} {
		found := row.Find(css).First()
		if found.Length() == 0 {
			continue
		}
		title = strings.TrimSpace(found.Text())
		if title == "" {
			continue
		}
		if h, ok := found.Attr("href"); ok {
			href = h
		} else if h, ok := found.Closest("a").Attr("href"); ok {
			href = h
		}
		return title, href
	}
	if a := row.Find("a[href]").First(); a.Length() > 0 {
		href, _ = a.Attr("href")
	}
	return "", href
}

// containerPrice tries the known price locations in order: dedicated price
// elements, any class mentioning price, a data-price attribute, then a
// dollar amount anywhere in the row text or title.
func containerPrice(row *goquery.Selection, title, text string) *int {
	for _, css := range []string{".priceinfo", ".price", ".result-price", ".meta .price", `[class*="price"]`} {
		found := row.Find(css).First()
		if found.Length() == 0 {
			continue
		}
		if p := extractPrice(found.Text()); p != nil {
			return p
		}
	}
	for _, attr := range []string{"data-price"} {
		if v, ok := row.Attr(attr); ok {
			if p := extractPrice("$" + v); p != nil {
				return p
			}
		}
	}
	return firstIntOf(extractPrice, text, title)
}

func containerNeighborhood(row *goquery.Selection, fallback string) string {
	for _, css := range []string{".location", ".result-hood", ".supertitle", ".meta .separator + span"} {
		found := row.Find(css).First()
		if found.Length() == 0 {
			continue
		}
		hood := strings.TrimSpace(found.Text())
		hood = strings.TrimPrefix(hood, "(")
		hood = strings.TrimSuffix(hood, ")")
		hood = strings.TrimSpace(hood)
		if hood != "" {
			return hood
		}
	}
	return fallback
}

func containerPID(row *goquery.Selection) string {
	if pid, ok := row.Attr("data-pid"); ok {
		return pid
	}
	return ""
}

// parseLinks is the last-resort strategy: collect anchors whose href looks
// like a listing detail page and recover fields from the surrounding text.
func (s *Scraper) parseLinks(doc *goquery.Document, q query) []model.Listing {
	var listings []model.Listing
	seen := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !listingLinkRe.MatchString(href) {
			return
		}
		u := s.normalizeListingURL(href)
		if u == "" {
			return
		}
		key := model.DedupKey("", u)
		if _, dup := seen[key]; dup {
			return
		}

		title := strings.TrimSpace(a.Text())
		text := linkContext(a, title)
		if title == "" {
			title = firstLine(text)
		}
		if title == "" {
			return
		}
		seen[key] = struct{}{}

		l := model.Listing{
			Key:          key,
			Title:        title,
			URL:          u,
			Neighborhood: q.defaultLabel,
			Source:       SourceScrape,
		}
		l.Price = firstIntOf(extractPrice, text, title)
		l.Bedrooms = firstIntOf(extractBedrooms, title, text)
		l.Bathrooms = firstFloatOf(extractBathrooms, title, text)
		l.Sqft = firstIntOf(extractSqft, title, text)
		l.Laundry = extractLaundry(text)
		l.Parking = extractParking(text)
		l.DeriveUnitPrices()
		listings = append(listings, l)
	})
	return listings
}

// linkContext widens the text window around a bare link: the anchor text
// alone rarely carries price or unit details, the enclosing rows usually do.
func linkContext(a *goquery.Selection, title string) string {
	text := title
	for parent := a.Parent(); parent.Length() > 0 && len(text) < 40; parent = parent.Parent() {
		text = strings.TrimSpace(parent.Text())
	}
	return text
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}
