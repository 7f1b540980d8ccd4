package ai

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"rentradar/internal/domain/model"
)

func TestNew(t *testing.T) {
	Convey("Given provider selection inputs", t, func() {
		Convey("An empty provider defaults to claude", func() {
			a, err := New("", "", "key")
			So(err, ShouldBeNil)
			So(a, ShouldHaveSameTypeAs, &claudeProvider{})
			So(a.(*claudeProvider).model, ShouldEqual, "claude-sonnet-4-20250514")
		})

		Convey("The openai provider gets its own default model", func() {
			a, err := New("openai", "", "key")
			So(err, ShouldBeNil)
			So(a, ShouldHaveSameTypeAs, &openaiProvider{})
			So(a.(*openaiProvider).model, ShouldEqual, "gpt-4o-mini")
		})

		Convey("An explicit model overrides the default", func() {
			a, err := New("claude", "claude-haiku-test", "key")
			So(err, ShouldBeNil)
			So(a.(*claudeProvider).model, ShouldEqual, "claude-haiku-test")
		})

		Convey("A missing key is refused", func() {
			_, err := New("claude", "", "")
			So(errors.Is(err, ErrNotConfigured), ShouldBeTrue)
		})

		Convey("An unknown provider is refused", func() {
			_, err := New("bard", "", "key")
			So(errors.Is(err, ErrUnknownProvider), ShouldBeTrue)
		})
	})
}

func TestParseVerdict(t *testing.T) {
	Convey("Given well-formed model output", t, func() {
		v := parseVerdict("SCORE: 82\nANALYSIS: Well below market. In-unit laundry is rare here.")

		Convey("Then both lines parse", func() {
			So(*v.Score, ShouldEqual, 82)
			So(v.Analysis, ShouldEqual, "Well below market. In-unit laundry is rare here.")
		})
	})

	Convey("Given a rambling analysis", t, func() {
		v := parseVerdict("SCORE: 70\nANALYSIS: One. Two. Three. Four. Five.")

		Convey("Then it is trimmed to three sentences", func() {
			So(v.Analysis, ShouldEqual, "One. Two. Three.")
		})
	})

	Convey("Given output without a score line", t, func() {
		v := parseVerdict("ANALYSIS: Solid unit for the price.")

		Convey("Then the score stays nil", func() {
			So(v.Score, ShouldBeNil)
			So(v.Analysis, ShouldEqual, "Solid unit for the price.")
		})
	})

	Convey("Given an out-of-range score", t, func() {
		v := parseVerdict("SCORE: 250\nANALYSIS: fine.")

		Convey("Then the score is rejected", func() {
			So(v.Score, ShouldBeNil)
		})
	})

	Convey("Given output with neither line", t, func() {
		v := parseVerdict("I cannot rate this listing.")

		Convey("Then a neutral placeholder is supplied", func() {
			So(v.Score, ShouldBeNil)
			So(v.Analysis, ShouldEqual, "Reasonable option in this price range.")
		})
	})
}

func TestListingContext(t *testing.T) {
	Convey("Given a fully populated listing", t, func() {
		l := model.Listing{
			Title:        "Sunny 2BR in the Mission",
			Neighborhood: "Mission",
			Price:        model.IntPtr(3400),
			Bedrooms:     model.IntPtr(2),
			Bathrooms:    model.Float64Ptr(1.5),
			Sqft:         model.IntPtr(950),
			PricePerSqft: model.Float64Ptr(3.58),
			DiscountPct:  model.Float64Ptr(12.8),
			Laundry:      model.LaundryInUnit,
			Parking:      true,
		}

		Convey("Then the facts block carries every field", func() {
			out := listingContext(l, 3900)
			So(out, ShouldContainSubstring, "$3400/month")
			So(out, ShouldContainSubstring, "2 bedroom")
			So(out, ShouldContainSubstring, "1.5 bath")
			So(out, ShouldContainSubstring, "950 sqft")
			So(out, ShouldContainSubstring, "Market rate for this unit type: $3900")
			So(out, ShouldContainSubstring, "+12.8%")
			So(out, ShouldContainSubstring, "In-unit washer/dryer")
			So(out, ShouldContainSubstring, "Parking mentioned")
		})
	})

	Convey("Given a studio with missing fields", t, func() {
		l := model.Listing{
			Title:        "Compact studio",
			Neighborhood: "Nob Hill",
			Price:        model.IntPtr(2100),
			Bedrooms:     model.IntPtr(0),
		}

		Convey("Then absences read as unknowns, not zeros", func() {
			out := listingContext(l, 2300)
			So(out, ShouldContainSubstring, "Studio")
			So(out, ShouldContainSubstring, "bath unknown")
			So(out, ShouldContainSubstring, "size unknown")
			So(out, ShouldContainSubstring, "Laundry not specified")
		})
	})
}
