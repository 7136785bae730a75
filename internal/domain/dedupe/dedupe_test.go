package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/palantir/internal/domain/dedupe"
	"github.com/okian/palantir/internal/domain/model"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()

		Convey("When recording ids", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then a new id should be recorded once", func() {
				So(d.SeenAndRecord(ctx, "db1/load@1"), ShouldBeFalse)
				So(d.SeenAndRecord(ctx, "db1/load@1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("Then a forgotten id should count as new again", func() {
				d.SeenAndRecord(ctx, "db1/load@1")
				d.Forget(ctx, "db1/load@1")
				d.Forget(ctx, "never-seen")

				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "db1/load@1"), ShouldBeFalse)
			})
		})

		Convey("When the deduper is bounded", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(2))
			d.SeenAndRecord(ctx, "a")
			d.SeenAndRecord(ctx, "b")
			d.SeenAndRecord(ctx, "c")

			Convey("Then the oldest id should be evicted first", func() {
				So(d.Size(), ShouldEqual, 2)
				So(d.SeenAndRecord(ctx, "c"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "b"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
			})
		})

		Convey("When the deduper is unbounded", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
			for i := 0; i < 10000; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("id-%d", i))
			}

			So(d.Size(), ShouldEqual, 10000)
		})

		Convey("When recording concurrently", func() {
			d := dedupe.NewInMemoryDeduper()
			var (
				wg    sync.WaitGroup
				mu    sync.Mutex
				fresh int
			)
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if !d.SeenAndRecord(ctx, "same") {
						mu.Lock()
						fresh++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			So(fresh, ShouldEqual, 1)
		})
	})
}

func TestAlertID(t *testing.T) {
	Convey("Given alerts", t, func() {
		created := model.UnixTime{Time: time.Unix(1700000000, 0)}
		a := &model.Alert{CheckStatus: model.CheckStatus{Minion: "db1", Check: "load"}, Created: created}
		again := &model.Alert{CheckStatus: model.CheckStatus{Minion: "db1", Check: "load"}, Created: model.UnixTime{Time: created.Add(time.Minute)}}

		So(dedupe.AlertID(a), ShouldEqual, "db1/load@1700000000000000000")
		So(dedupe.AlertID(again), ShouldNotEqual, dedupe.AlertID(a))

		listed := &model.Alert{CheckStatus: model.CheckStatus{Minion: "db1", Check: "load"}}
		So(dedupe.AlertID(listed), ShouldEqual, "db1/load")
	})
}
