package scrape_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"rentradar/internal/adapters/scrape"
)

// ldSearchPage builds a search page whose JSON-LD block carries n records.
func ldSearchPage(n int) string {
	var items []string
	for i := 0; i < n; i++ {
		items = append(items, fmt.Sprintf(`{"item":{
			"name":"Sunny 2BR in the Mission #%d",
			"url":"/sfc/apa/d/sunny-2br/77123%05d.html",
			"offers":{"price":"%d"},
			"numberOfBedrooms":2,
			"numberOfBathroomsTotal":1,
			"floorSize":{"value":900},
			"address":{"addressLocality":"Mission District"},
			"latitude":37.75,"longitude":-122.41,
			"image":["https://images.example.com/a.jpg"]
		}}`, i, i, 3000+i))
	}
	return `<html><head><script type="application/ld+json" id="ld_searchpage_results">` +
		`{"itemListElement":[` + strings.Join(items, ",") + `]}` +
		`</script></head><body></body></html>`
}

const containerPage = `<html><body><ul>
<li class="cl-search-result" data-pid="771001">
  <a class="cl-app-anchor" href="/sfc/apa/d/sunny-two/771001.html"><span class="label">Sunny 2BR w/ in-unit laundry</span></a>
  <span class="priceinfo">$3,400</span>
  <div class="location">(Mission District)</div>
  <time datetime="2026-08-20 10:15">aug 20</time>
</li>
<li class="cl-search-result" data-pid="771002">
  <a class="cl-app-anchor" href="/sfc/apa/d/nob-studio/771002.html"><span class="label">Studio on Nob Hill, 480 sqft</span></a>
  <span class="priceinfo">$2,150</span>
</li>
<li class="cl-search-result" data-pid="771003">
  <a class="cl-app-anchor" href="/sfc/apa/d/soma-loft/771003.html"><span class="label">2BR/2BA SOMA loft, parking</span></a>
  <span class="priceinfo">$4,100</span>
</li>
<li class="cl-search-result" data-pid="771004">
  <a class="cl-app-anchor" href="/sfc/apa/d/no-price/771004.html"><span class="label">1BR, inquire for pricing</span></a>
</li>
</ul></body></html>`

const linkPage = `<html><body>
<p><a href="/sfc/apa/d/bright-1br/9000000001.html">Bright 1BR near the park - $2,750</a></p>
<p><a href="/sfc/apa/d/bright-1br/9000000001.html">same place again</a></p>
<p><a href="/about/help.html">help</a></p>
</body></html>`

func serve(page string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
}

func TestFetchStrategies(t *testing.T) {
	ctx := context.Background()

	Convey("Given a search page with a full JSON-LD result set", t, func() {
		ts := serve(ldSearchPage(25))
		defer ts.Close()
		s := scrape.NewScraper(scrape.WithBaseURL(ts.URL))

		Convey("When fetching", func() {
			listings := s.Fetch(ctx, "sfc", "San Francisco", 1000, 5000, 100)

			Convey("Then structured fields come from the JSON-LD records", func() {
				So(listings, ShouldHaveLength, 25)
				l := listings[0]
				So(l.Title, ShouldEqual, "Sunny 2BR in the Mission #0")
				So(l.URL, ShouldEqual, ts.URL+"/sfc/apa/d/sunny-2br/7712300000.html")
				So(*l.Price, ShouldEqual, 3000)
				So(*l.Bedrooms, ShouldEqual, 2)
				So(*l.Bathrooms, ShouldEqual, 1)
				So(*l.Sqft, ShouldEqual, 900)
				So(l.Neighborhood, ShouldEqual, "Mission District")
				So(l.ThumbnailURL, ShouldEqual, "https://images.example.com/a.jpg")
				So(l.Source, ShouldEqual, scrape.SourceScrape)
				So(l.PricePerSqft, ShouldNotBeNil)
			})
		})

		Convey("When fetching with a limit below the result count", func() {
			listings := s.Fetch(ctx, "sfc", "San Francisco", 1000, 5000, 10)

			Convey("Then the result is trimmed", func() {
				So(listings, ShouldHaveLength, 10)
			})
		})
	})

	Convey("Given a page carrying both a full JSON-LD set and containers", t, func() {
		ts := serve(ldSearchPage(25) + containerPage)
		defer ts.Close()
		s := scrape.NewScraper(scrape.WithBaseURL(ts.URL))

		Convey("When fetching", func() {
			listings := s.Fetch(ctx, "sfc", "San Francisco", 1000, 5000, 100)

			Convey("Then the first producing strategy wins", func() {
				So(listings, ShouldHaveLength, 25)
				So(listings[0].Title, ShouldStartWith, "Sunny 2BR in the Mission")
			})
		})
	})

	Convey("Given a page whose JSON-LD block is a short teaser", t, func() {
		ts := serve(ldSearchPage(3) + containerPage)
		defer ts.Close()
		s := scrape.NewScraper(scrape.WithBaseURL(ts.URL))

		Convey("When fetching", func() {
			listings := s.Fetch(ctx, "sfc", "San Francisco", 1000, 5000, 100)

			Convey("Then the container strategy takes over", func() {
				So(listings, ShouldHaveLength, 3)
				So(listings[0].Title, ShouldEqual, "Sunny 2BR w/ in-unit laundry")
			})
		})
	})

	Convey("Given a search page with result-row containers", t, func() {
		ts := serve(containerPage)
		defer ts.Close()
		s := scrape.NewScraper(scrape.WithBaseURL(ts.URL))

		Convey("When fetching", func() {
			listings := s.Fetch(ctx, "sfc", "San Francisco", 1000, 5000, 100)

			Convey("Then each priced container becomes a listing", func() {
				So(listings, ShouldHaveLength, 3)
				l := listings[0]
				So(l.Title, ShouldEqual, "Sunny 2BR w/ in-unit laundry")
				So(*l.Price, ShouldEqual, 3400)
				So(*l.Bedrooms, ShouldEqual, 2)
				So(l.Neighborhood, ShouldEqual, "Mission District")
				So(l.PostedDate, ShouldEqual, "2026-08-20")
				So(l.Source, ShouldEqual, scrape.SourceScrape)
			})

			Convey("Then the priceless row is rejected", func() {
				for _, l := range listings {
					So(l.Title, ShouldNotContainSubstring, "inquire for pricing")
				}
			})

			Convey("Then text extraction fills unit details", func() {
				So(*listings[1].Bedrooms, ShouldEqual, 0)
				So(*listings[1].Sqft, ShouldEqual, 480)
				So(listings[1].Neighborhood, ShouldEqual, "San Francisco")
				So(listings[2].Parking, ShouldBeTrue)
			})
		})
	})

	Convey("Given a page with only bare listing links", t, func() {
		ts := serve(linkPage)
		defer ts.Close()
		s := scrape.NewScraper(scrape.WithBaseURL(ts.URL))

		Convey("When fetching", func() {
			listings := s.Fetch(ctx, "sfc", "San Francisco", 1000, 5000, 100)

			Convey("Then duplicate links collapse and non-listing links are skipped", func() {
				So(listings, ShouldHaveLength, 1)
				So(listings[0].Title, ShouldEqual, "Bright 1BR near the park - $2,750")
				So(*listings[0].Price, ShouldEqual, 2750)
				So(*listings[0].Bedrooms, ShouldEqual, 1)
			})
		})
	})
}

func TestFetchFallsBackToSamples(t *testing.T) {
	ctx := context.Background()

	Convey("Given a source that returns a server error", t, func() {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "blocked", http.StatusForbidden)
		}))
		defer ts.Close()
		s := scrape.NewScraper(scrape.WithBaseURL(ts.URL))

		Convey("When fetching", func() {
			listings := s.Fetch(ctx, "sfc", "San Francisco", 1000, 5000, 100)

			Convey("Then the sample payload is served, tagged as such", func() {
				So(listings, ShouldNotBeEmpty)
				for _, l := range listings {
					So(l.Source, ShouldEqual, scrape.SourceSample)
				}
			})
		})
	})

	Convey("Given a page whose markup matches no strategy", t, func() {
		ts := serve(`<html><body><div>nothing here</div></body></html>`)
		defer ts.Close()
		s := scrape.NewScraper(scrape.WithBaseURL(ts.URL))

		Convey("When fetching", func() {
			listings := s.Fetch(ctx, "pen", "Peninsula", 1000, 5000, 100)

			Convey("Then the area-specific samples are served", func() {
				So(listings, ShouldNotBeEmpty)
				So(listings[0].Source, ShouldEqual, scrape.SourceSample)
			})
		})
	})
}

func TestFetchRequestShape(t *testing.T) {
	Convey("Given a recording server", t, func() {
		var gotPath, gotQuery string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotQuery = r.URL.RawQuery
			w.Write([]byte(containerPage))
		}))
		defer ts.Close()
		s := scrape.NewScraper(scrape.WithBaseURL(ts.URL))

		Convey("When fetching an area with a price window", func() {
			s.Fetch(context.Background(), "sfc", "San Francisco", 1500, 4500, 100)

			Convey("Then the search path and filters are on the request", func() {
				So(gotPath, ShouldEqual, "/search/sfc/apa")
				So(gotQuery, ShouldContainSubstring, "min_price=1500")
				So(gotQuery, ShouldContainSubstring, "max_price=4500")
				So(gotQuery, ShouldContainSubstring, "availabilityMode=0")
			})
		})
	})
}
