package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	queue "github.com/okian/palantir/internal/adapters/mq/queue"
	worker "github.com/okian/palantir/internal/adapters/mq/worker"
	"github.com/okian/palantir/internal/domain/dedupe"
	model "github.com/okian/palantir/internal/domain/model"
	logging "github.com/okian/palantir/pkg/logger"
)

func init() {
	_ = logging.Init()
}

type mockLister struct {
	mu     sync.Mutex
	alerts []model.Alert
	err    error
	calls  int
}

func (m *mockLister) ListAlerts(ctx context.Context) ([]model.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.alerts, m.err
}

func (m *mockLister) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockPublisher struct {
	mu        sync.Mutex
	snapshots []queue.Snapshot
}

func (m *mockPublisher) Publish(s queue.Snapshot) (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, s)
	return 1, 0
}

func (m *mockPublisher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.snapshots)
}

func TestPollerPoll(t *testing.T) {
	convey.Convey("Given a poller", t, func() {
		lister := &mockLister{alerts: []model.Alert{
			{CheckStatus: model.CheckStatus{Minion: "db1", Check: "load", Retcode: 2}},
		}}
		pub := &mockPublisher{}
		p := worker.NewPoller(lister, pub, worker.WithName("test"))

		convey.Convey("When a poll succeeds", func() {
			snap, published := p.Poll(context.Background())

			convey.Convey("Then the alerts should be published as new", func() {
				convey.So(published, convey.ShouldBeTrue)
				convey.So(snap.Error, convey.ShouldBeEmpty)
				convey.So(snap.Alerts, convey.ShouldHaveLength, 1)
				convey.So(snap.New, convey.ShouldResemble, []model.AlertRef{{Minion: "db1", Check: "load"}})
				convey.So(snap.Taken.IsZero(), convey.ShouldBeFalse)
				convey.So(pub.count(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When nothing changes between polls", func() {
			p.Poll(context.Background())
			snap, published := p.Poll(context.Background())

			convey.Convey("Then the second snapshot should not be published", func() {
				convey.So(published, convey.ShouldBeFalse)
				convey.So(snap.New, convey.ShouldBeEmpty)
				convey.So(pub.count(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When an alert changes status or a new one appears", func() {
			p.Poll(context.Background())
			lister.mu.Lock()
			lister.alerts = []model.Alert{
				{CheckStatus: model.CheckStatus{Minion: "db1", Check: "load", Retcode: 1}},
				{CheckStatus: model.CheckStatus{Minion: "web1", Check: "disk", Retcode: 2}},
			}
			lister.mu.Unlock()
			snap, published := p.Poll(context.Background())

			convey.Convey("Then it should be published with only the new alert marked", func() {
				convey.So(published, convey.ShouldBeTrue)
				convey.So(snap.New, convey.ShouldResemble, []model.AlertRef{{Minion: "web1", Check: "disk"}})
				convey.So(pub.count(), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When a poll fails", func() {
			lister.alerts = nil
			lister.err = errors.New("connection refused")
			snap, published := p.Poll(context.Background())

			convey.Convey("Then a snapshot carrying the error should be published", func() {
				convey.So(published, convey.ShouldBeTrue)
				convey.So(snap.Error, convey.ShouldContainSubstring, "connection refused")
				convey.So(snap.Alerts, convey.ShouldNotBeNil)
				convey.So(snap.Alerts, convey.ShouldBeEmpty)
				convey.So(pub.count(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When an alert clears and is raised again", func() {
			raised := lister.alerts
			first, _ := p.Poll(context.Background())
			lister.mu.Lock()
			lister.alerts = []model.Alert{}
			lister.mu.Unlock()
			p.Poll(context.Background())
			lister.mu.Lock()
			lister.alerts = raised
			lister.mu.Unlock()
			again, published := p.Poll(context.Background())

			convey.Convey("Then it should be announced as new both times", func() {
				convey.So(first.New, convey.ShouldResemble, []model.AlertRef{{Minion: "db1", Check: "load"}})
				convey.So(published, convey.ShouldBeTrue)
				convey.So(again.New, convey.ShouldResemble, []model.AlertRef{{Minion: "db1", Check: "load"}})
			})
		})

		convey.Convey("When a poll fails between two identical polls", func() {
			p.Poll(context.Background())
			lister.mu.Lock()
			raised := lister.alerts
			lister.alerts, lister.err = nil, errors.New("timeout")
			lister.mu.Unlock()
			p.Poll(context.Background())
			lister.mu.Lock()
			lister.alerts, lister.err = raised, nil
			lister.mu.Unlock()
			snap, published := p.Poll(context.Background())

			convey.Convey("Then the alert should not be announced again", func() {
				convey.So(published, convey.ShouldBeTrue)
				convey.So(snap.New, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When a shared deduper already announced the alert", func() {
			d := dedupe.NewInMemoryDeduper()
			d.SeenAndRecord(context.Background(), dedupe.AlertID(&lister.alerts[0]))
			other := worker.NewPoller(lister, pub, worker.WithDeduper(d))
			snap, _ := other.Poll(context.Background())

			convey.So(snap.New, convey.ShouldBeEmpty)
		})
	})
}

func TestPollerRun(t *testing.T) {
	convey.Convey("Given a running poller with a short interval", t, func() {
		lister := &mockLister{}
		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		sub, err := q.Subscribe()
		convey.So(err, convey.ShouldBeNil)
		defer sub.Close()

		p := worker.NewPoller(lister, q, worker.WithInterval(10*time.Millisecond))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go p.Run(ctx)

		convey.Convey("Then it should poll immediately and keep polling", func() {
			select {
			case snap := <-sub.C():
				convey.So(snap.Alerts, convey.ShouldBeEmpty)
			case <-time.After(time.Second):
				convey.So("no snapshot received", convey.ShouldBeEmpty)
			}
			time.Sleep(50 * time.Millisecond)
			convey.So(lister.callCount(), convey.ShouldBeGreaterThan, 1)
		})

		convey.Convey("Then shutdown should stop it", func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), time.Second)
			defer done()
			convey.So(p.Shutdown(shutdownCtx), convey.ShouldBeNil)
			convey.So(p.Shutdown(shutdownCtx), convey.ShouldBeNil)

			calls := lister.callCount()
			time.Sleep(30 * time.Millisecond)
			convey.So(lister.callCount(), convey.ShouldEqual, calls)
		})
	})
}

func TestPollerShutdownTimeout(t *testing.T) {
	convey.Convey("Given a poller that never ran", t, func() {
		p := worker.NewPoller(&mockLister{}, &mockPublisher{})

		convey.Convey("When shutdown's context expires", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			defer cancel()
			err := p.Shutdown(ctx)

			convey.Convey("Then it should report the timeout", func() {
				convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
			})
		})
	})
}
