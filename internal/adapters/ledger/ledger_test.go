package ledger_test

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"rentradar/internal/adapters/ledger"
)

func openTestLedger(t *testing.T, opts ...ledger.Option) *ledger.SQLiteLedger {
	t.Helper()
	l, err := ledger.Open(filepath.Join(t.TempDir(), "budget.db"), opts...)
	if err != nil {
		t.Fatalf("opening test ledger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestTryIncrement(t *testing.T) {
	ctx := context.Background()
	period := ledger.CurrentPeriod()

	Convey("Given a ledger with a cap of 3", t, func() {
		l := openTestLedger(t, ledger.WithCap(3))

		Convey("When incrementing up to the cap", func() {
			for i := 0; i < 3; i++ {
				ok, err := l.TryIncrement(ctx, period)
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
			}

			Convey("Then further increments are refused", func() {
				ok, err := l.TryIncrement(ctx, period)
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)

				count, err := l.Count(ctx, period)
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 3)
			})
		})

		Convey("When the period is fresh", func() {
			count, err := l.Count(ctx, period)

			Convey("Then the counter starts at zero", func() {
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 0)
				So(l.Cap(), ShouldEqual, 3)
			})
		})
	})
}

func TestTryIncrementConcurrent(t *testing.T) {
	ctx := context.Background()
	period := ledger.CurrentPeriod()

	Convey("Given a ledger with a cap of 10 and 40 concurrent callers", t, func() {
		l := openTestLedger(t, ledger.WithCap(10))

		var granted int64
		var wg sync.WaitGroup
		for i := 0; i < 40; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := l.TryIncrement(ctx, period)
				if err == nil && ok {
					atomic.AddInt64(&granted, 1)
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly cap increments succeed", func() {
			So(granted, ShouldEqual, 10)

			count, err := l.Count(ctx, period)
			So(err, ShouldBeNil)
			So(count, ShouldEqual, 10)
		})
	})
}

func TestPeriodRollover(t *testing.T) {
	ctx := context.Background()

	Convey("Given counts recorded for a past period", t, func() {
		l := openTestLedger(t, ledger.WithCap(5))

		ok, err := l.TryIncrement(ctx, "2020-01")
		So(err, ShouldBeNil)
		So(ok, ShouldBeTrue)

		Convey("When the next period starts counting", func() {
			current := ledger.CurrentPeriod()
			ok, err := l.TryIncrement(ctx, current)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)

			Convey("Then the stale period's rows are gone", func() {
				old, err := l.Count(ctx, "2020-01")
				So(err, ShouldBeNil)
				So(old, ShouldEqual, 0)

				count, err := l.Count(ctx, current)
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 1)
			})
		})
	})
}

func TestCountCache(t *testing.T) {
	ctx := context.Background()
	period := ledger.CurrentPeriod()

	Convey("Given a ledger with a long count cache", t, func() {
		l := openTestLedger(t, ledger.WithCap(5), ledger.WithCountCacheTTL(time.Hour))

		first, err := l.Count(ctx, period)
		So(err, ShouldBeNil)
		So(first, ShouldEqual, 0)

		Convey("When an increment lands", func() {
			ok, err := l.TryIncrement(ctx, period)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)

			Convey("Then the cached count is invalidated, not served stale", func() {
				count, err := l.Count(ctx, period)
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 1)
			})
		})
	})
}

func TestPersistenceAcrossReopen(t *testing.T) {
	ctx := context.Background()
	period := ledger.CurrentPeriod()

	Convey("Given a ledger file with recorded calls", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "budget.db")

		l, err := ledger.Open(path, ledger.WithCap(5))
		So(err, ShouldBeNil)
		for i := 0; i < 2; i++ {
			ok, err := l.TryIncrement(ctx, period)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
		}
		So(l.Close(), ShouldBeNil)

		Convey("When the ledger is reopened", func() {
			reopened, err := ledger.Open(path, ledger.WithCap(5))
			So(err, ShouldBeNil)
			defer reopened.Close()

			Convey("Then the counter survives the restart", func() {
				count, err := reopened.Count(ctx, period)
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 2)
			})
		})
	})
}
