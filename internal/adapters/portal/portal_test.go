package portal_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"rentradar/internal/adapters/portal"
	"rentradar/internal/pool"
)

// fakeLedger is an in-memory budget ledger for client tests.
type fakeLedger struct {
	mu    sync.Mutex
	count int
	limit int
}

func (f *fakeLedger) TryIncrement(ctx context.Context, period string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.count >= f.limit {
		return false, nil
	}
	f.count++
	return true, nil
}

func (f *fakeLedger) Count(ctx context.Context, period string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count, nil
}

func (f *fakeLedger) Cap() int     { return f.limit }
func (f *fakeLedger) Close() error { return nil }

func mustRecord(t *testing.T, raw string) portal.Record {
	t.Helper()
	var r portal.Record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("unmarshaling record: %v", err)
	}
	return r
}

func TestNormalize(t *testing.T) {
	Convey("Given a raw record with string-typed numbers", t, func() {
		r := mustRecord(t, `{
			"id": "1234-Main-St-San-Francisco-CA-94110",
			"formattedAddress": "1234 Main St, San Francisco, CA 94110",
			"city": "San Francisco", "state": "CA", "zipCode": "94110",
			"price": "3200", "bedrooms": 2, "bathrooms": "1.5",
			"squareFootage": 950,
			"listedDate": "2026-08-01T00:00:00.000Z",
			"listingUrl": "https://listings.example.com/1234"
		}`)

		Convey("When normalized", func() {
			l := r.Normalize("San Francisco")

			Convey("Then numbers coerce and fields map through", func() {
				So(l.Key, ShouldEqual, "1234-Main-St-San-Francisco-CA-94110")
				So(l.Title, ShouldEqual, "1234 Main St, San Francisco, CA 94110")
				So(l.URL, ShouldEqual, "https://listings.example.com/1234")
				So(*l.Price, ShouldEqual, 3200)
				So(*l.Bedrooms, ShouldEqual, 2)
				So(*l.Bathrooms, ShouldEqual, 1.5)
				So(*l.Sqft, ShouldEqual, 950)
				So(l.PostedDate, ShouldEqual, "2026-08-01")
				So(l.Source, ShouldEqual, portal.Source)
			})

			Convey("Then the generic city resolves to a ZIP neighborhood", func() {
				So(l.Neighborhood, ShouldEqual, "Mission")
			})
		})
	})

	Convey("Given a record with null and unparseable numbers", t, func() {
		r := mustRecord(t, `{
			"id": "x", "city": "Oakland",
			"price": null, "bedrooms": "", "bathrooms": "n/a"
		}`)

		Convey("When normalized", func() {
			l := r.Normalize("San Francisco")

			Convey("Then absent values stay nil instead of failing", func() {
				So(l.Price, ShouldBeNil)
				So(l.Bedrooms, ShouldBeNil)
				So(l.Bathrooms, ShouldBeNil)
				So(l.Title, ShouldEqual, "Rental listing")
			})
		})
	})
}

func TestNeighborhoodInference(t *testing.T) {
	Convey("Given records with varying location detail", t, func() {
		Convey("A specific city wins outright", func() {
			r := mustRecord(t, `{"city": "Palo Alto"}`)
			So(r.Normalize("Peninsula").Neighborhood, ShouldEqual, "Palo Alto")
		})

		Convey("A ZIP in the address text is used when the field is empty", func() {
			r := mustRecord(t, `{
				"city": "San Francisco",
				"formattedAddress": "500 Hyde St, San Francisco, CA 94109"
			}`)
			So(r.Normalize("San Francisco").Neighborhood, ShouldEqual, "Nob Hill")
		})

		Convey("Coordinates break the tie for generic-city records", func() {
			r := mustRecord(t, `{
				"city": "SF", "latitude": 37.76, "longitude": -122.41
			}`)
			So(r.Normalize("San Francisco").Neighborhood, ShouldEqual, "Mission")
		})

		Convey("With nothing to go on, the region label is used", func() {
			r := mustRecord(t, `{"city": "San Francisco"}`)
			So(r.Normalize("San Francisco").Neighborhood, ShouldEqual, "San Francisco")
		})
	})
}

func TestListingURLCascade(t *testing.T) {
	Convey("Given records with different link shapes", t, func() {
		Convey("A direct URL field wins", func() {
			r := mustRecord(t, `{
				"url": "https://direct.example.com/1",
				"listingAgent": {"website": "https://agent.example.com"}
			}`)
			So(r.Normalize("SF").URL, ShouldEqual, "https://direct.example.com/1")
		})

		Convey("A nested source object is next", func() {
			r := mustRecord(t, `{
				"source": {"url": "https://nested.example.com/2"},
				"listingAgent": {"website": "https://agent.example.com"}
			}`)
			So(r.Normalize("SF").URL, ShouldEqual, "https://nested.example.com/2")
		})

		Convey("An agent website beats a contact email", func() {
			r := mustRecord(t, `{
				"listingAgent": {"website": "https://agent.example.com", "email": "agent@example.com"}
			}`)
			So(r.Normalize("SF").URL, ShouldEqual, "https://agent.example.com")
		})

		Convey("A contact email becomes a mailto link", func() {
			r := mustRecord(t, `{"listingOffice": {"email": "office@example.com"}}`)
			So(r.Normalize("SF").URL, ShouldEqual, "mailto:office@example.com")
		})

		Convey("The last resort is a web search for the address", func() {
			r := mustRecord(t, `{"formattedAddress": "9 Elm St"}`)
			u := r.Normalize("SF").URL
			So(u, ShouldStartWith, "https://www.google.com/search?q=")
			So(u, ShouldContainSubstring, "9+Elm+St")
		})
	})
}

func TestFetchCity(t *testing.T) {
	ctx := context.Background()
	limiter := pool.NewRateLimiter(time.Millisecond)

	Convey("Given an exhausted budget", t, func() {
		budget := &fakeLedger{count: 3, limit: 3}
		var requests int
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
		}))
		defer ts.Close()
		c := portal.NewClient("key", budget,
			portal.WithBaseURL(ts.URL), portal.WithRateLimiter(limiter))

		Convey("When fetching", func() {
			_, err := c.FetchCity(ctx, "San Francisco", "CA", 1000, 5000)

			Convey("Then the call is refused without touching the network", func() {
				So(errors.Is(err, portal.ErrBudgetExhausted), ShouldBeTrue)
				So(requests, ShouldEqual, 0)
			})
		})
	})

	Convey("Given a healthy API and remaining budget", t, func() {
		budget := &fakeLedger{limit: 3}
		var gotKey, gotQuery string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotKey = r.Header.Get("X-Api-Key")
			gotQuery = r.URL.RawQuery
			w.Write([]byte(`{"data": [
				{"id": "a", "city": "San Francisco", "price": 3000, "status": "Active"},
				{"id": "b", "city": "San Francisco", "price": 2800, "status": "Inactive"},
				{"id": "c", "city": "San Francisco", "price": 3100, "removedDate": "2026-07-01"}
			]}`))
		}))
		defer ts.Close()
		c := portal.NewClient("secret", budget,
			portal.WithBaseURL(ts.URL), portal.WithRateLimiter(limiter))

		Convey("When fetching", func() {
			records, err := c.FetchCity(ctx, "San Francisco", "CA", 1500, 4500)

			Convey("Then only publicly listed records survive", func() {
				So(err, ShouldBeNil)
				So(records, ShouldHaveLength, 1)
				So(records[0].ID, ShouldEqual, "a")
			})

			Convey("Then the request carries the key and filters", func() {
				So(gotKey, ShouldEqual, "secret")
				So(gotQuery, ShouldContainSubstring, "city=San+Francisco")
				So(gotQuery, ShouldContainSubstring, "state=CA")
				So(gotQuery, ShouldContainSubstring, "price=1500%3A4500")
				So(gotQuery, ShouldContainSubstring, "status=Active")
			})

			Convey("Then the budget is spent exactly once", func() {
				count, _ := budget.Count(ctx, "")
				So(count, ShouldEqual, 1)

				remaining, err := c.BudgetRemaining(ctx)
				So(err, ShouldBeNil)
				So(remaining, ShouldEqual, 2)
			})
		})
	})

	Convey("Given an upstream failure", t, func() {
		budget := &fakeLedger{limit: 3}
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}))
		defer ts.Close()
		c := portal.NewClient("key", budget,
			portal.WithBaseURL(ts.URL), portal.WithRateLimiter(limiter))

		Convey("When fetching", func() {
			_, err := c.FetchCity(ctx, "San Francisco", "CA", 1000, 5000)

			Convey("Then the failure does not spend budget", func() {
				So(errors.Is(err, portal.ErrRequest), ShouldBeTrue)
				count, _ := budget.Count(ctx, "")
				So(count, ShouldEqual, 0)
			})
		})
	})

	Convey("Given a client without an API key", t, func() {
		c := portal.NewClient("", &fakeLedger{limit: 3},
			portal.WithRateLimiter(limiter))

		Convey("When fetching", func() {
			_, err := c.FetchCity(ctx, "San Francisco", "CA", 1000, 5000)

			Convey("Then the call is refused", func() {
				So(errors.Is(err, portal.ErrNoAPIKey), ShouldBeTrue)
			})
		})
	})

	Convey("Given API responses in each envelope shape", t, func() {
		budget := &fakeLedger{limit: 10}
		for _, body := range []string{
			`[{"id": "bare", "status": "Active"}]`,
			`{"results": [{"id": "bare", "status": "Active"}]}`,
			`{"listings": [{"id": "bare", "status": "Active"}]}`,
		} {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			c := portal.NewClient("key", budget,
				portal.WithBaseURL(ts.URL), portal.WithRateLimiter(limiter))

			records, err := c.FetchCity(ctx, "San Francisco", "CA", 1000, 5000)
			So(err, ShouldBeNil)
			So(records, ShouldHaveLength, 1)
			So(records[0].ID, ShouldEqual, "bare")
			ts.Close()
		}
	})
}
