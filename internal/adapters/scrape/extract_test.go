package scrape

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"rentradar/internal/domain/model"
)

func TestExtractPrice(t *testing.T) {
	Convey("Given listing text with dollar amounts", t, func() {
		Convey("When the amount is a plausible rent", func() {
			So(*extractPrice("$3,400/month"), ShouldEqual, 3400)
			So(*extractPrice("only $ 2500 per month"), ShouldEqual, 2500)
		})

		Convey("When the amount is below the plausible range", func() {
			Convey("Then it is rejected as noise", func() {
				So(extractPrice("$50 application fee"), ShouldBeNil)
			})
		})

		Convey("When the amount is above the plausible range", func() {
			So(extractPrice("$950,000 asking"), ShouldBeNil)
		})

		Convey("When several amounts appear", func() {
			Convey("Then the first plausible one wins", func() {
				So(*extractPrice("$25 fee, rent $2,100, deposit $4,200"), ShouldEqual, 2100)
			})
		})

		Convey("When no dollar amount appears", func() {
			So(extractPrice("call for pricing"), ShouldBeNil)
		})
	})
}

func TestExtractBedrooms(t *testing.T) {
	Convey("Given listing titles", t, func() {
		Convey("Then common bedroom spellings parse", func() {
			So(*extractBedrooms("Sunny 2br in the Mission"), ShouldEqual, 2)
			So(*extractBedrooms("3 bed 2 bath house"), ShouldEqual, 3)
			So(*extractBedrooms("1-bedroom near park"), ShouldEqual, 1)
			So(*extractBedrooms("spacious 2 bd flat"), ShouldEqual, 2)
		})

		Convey("Then studios map to zero bedrooms", func() {
			So(*extractBedrooms("Bright Studio downtown"), ShouldEqual, 0)
		})

		Convey("Then implausible counts are rejected", func() {
			So(extractBedrooms("unit 42br tower"), ShouldBeNil)
		})

		Convey("Then text without a bedroom mention yields nil", func() {
			So(extractBedrooms("charming flat with views"), ShouldBeNil)
		})
	})
}

func TestExtractBathroomsAndSqft(t *testing.T) {
	Convey("Given listing text", t, func() {
		Convey("Then bathroom counts parse including halves", func() {
			So(*extractBathrooms("2br 1.5ba"), ShouldEqual, 1.5)
			So(*extractBathrooms("2 bath"), ShouldEqual, 2)
			So(extractBathrooms("no facilities listed"), ShouldBeNil)
		})

		Convey("Then square footage spellings parse", func() {
			So(*extractSqft("950 sqft"), ShouldEqual, 950)
			So(*extractSqft("1100 sq. ft."), ShouldEqual, 1100)
			So(*extractSqft("about 800ft²"), ShouldEqual, 800)
			So(extractSqft("cozy place"), ShouldBeNil)
		})
	})
}

func TestExtractLaundryAndParking(t *testing.T) {
	Convey("Given listing text", t, func() {
		Convey("Then in-unit signals win", func() {
			So(extractLaundry("in-unit washer/dryer"), ShouldEqual, model.LaundryInUnit)
			So(extractLaundry("w/d in unit"), ShouldEqual, model.LaundryInUnit)
		})

		Convey("Then building signals classify as in-building", func() {
			So(extractLaundry("laundry in building"), ShouldEqual, model.LaundryInBuilding)
			So(extractLaundry("on-site laundry"), ShouldEqual, model.LaundryInBuilding)
		})

		Convey("Then a bare laundry mention is assumed in-building", func() {
			So(extractLaundry("laundry, elevator, roof deck"), ShouldEqual, model.LaundryInBuilding)
		})

		Convey("Then no mention yields none", func() {
			So(extractLaundry("hardwood floors"), ShouldEqual, model.LaundryNone)
		})

		Convey("Then parking mentions are detected", func() {
			So(extractParking("garage parking included"), ShouldBeTrue)
			So(extractParking("street cleaning weekly"), ShouldBeFalse)
		})
	})
}
