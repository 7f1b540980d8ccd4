package pool_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"rentradar/internal/pool"
)

func TestPool(t *testing.T) {
	Convey("Given a pool with 3 workers", t, func() {
		p := pool.New(3)

		Convey("When 20 jobs are submitted", func() {
			var current, peak, done int64
			var mu sync.Mutex
			for i := 0; i < 20; i++ {
				p.Submit(func() {
					n := atomic.AddInt64(&current, 1)
					mu.Lock()
					if n > peak {
						peak = n
					}
					mu.Unlock()
					time.Sleep(2 * time.Millisecond)
					atomic.AddInt64(&current, -1)
					atomic.AddInt64(&done, 1)
				})
			}
			p.Wait()

			Convey("Then all jobs run with bounded concurrency", func() {
				So(done, ShouldEqual, 20)
				So(peak, ShouldBeLessThanOrEqualTo, 3)
			})
		})
	})

	Convey("Given a pool sized below one", t, func() {
		p := pool.New(0)

		Convey("Then it still runs jobs, one at a time", func() {
			var done int64
			for i := 0; i < 3; i++ {
				p.Submit(func() { atomic.AddInt64(&done, 1) })
			}
			p.Wait()
			So(done, ShouldEqual, 3)
		})
	})
}

func TestRateLimiter(t *testing.T) {
	Convey("Given a limiter with a 30ms floor", t, func() {
		rl := pool.NewRateLimiter(30 * time.Millisecond)

		Convey("When the same key is waited on twice", func() {
			start := time.Now()
			rl.Wait("portal")
			rl.Wait("portal")

			Convey("Then the second call is spaced out", func() {
				So(time.Since(start), ShouldBeGreaterThanOrEqualTo, 30*time.Millisecond)
			})
		})

		Convey("When different keys are waited on", func() {
			rl.Wait("portal")
			start := time.Now()
			rl.Wait("scrape")

			Convey("Then they do not block each other", func() {
				So(time.Since(start), ShouldBeLessThan, 30*time.Millisecond)
			})
		})
	})
}
