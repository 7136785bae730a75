package feed_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/palantir/internal/adapters/http/feed"
	"github.com/okian/palantir/internal/adapters/mq/queue"
	"github.com/okian/palantir/internal/domain/model"
	"github.com/okian/palantir/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type stoppedFeed struct{}

func (stoppedFeed) Subscribe() (*queue.Subscription, error) {
	return nil, errors.New("alert feed is not running")
}

func dial(srv *httptest.Server) (*websocket.Conn, *http.Response, error) {
	return websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/alerts", nil)
}

func TestFeed(t *testing.T) {
	Convey("Given a running alert feed", t, func() {
		q := queue.NewInMemoryQueue()
		mux := http.NewServeMux()
		feed.Register(context.Background(), mux, q)
		srv := httptest.NewServer(mux)
		defer srv.Close()
		defer func() { _ = q.Close() }()

		q.Publish(queue.Snapshot{
			Alerts: []model.Alert{{CheckStatus: model.CheckStatus{Minion: "db1", Check: "load", Retcode: 2}}},
			Taken:  time.Now(),
		})

		Convey("When a client connects", func() {
			conn, _, err := dial(srv)
			So(err, ShouldBeNil)
			defer conn.Close()
			_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

			Convey("Then it should get the latest snapshot first", func() {
				var snap queue.Snapshot
				So(conn.ReadJSON(&snap), ShouldBeNil)
				So(snap.Alerts, ShouldHaveLength, 1)
				So(snap.Alerts[0].Minion, ShouldEqual, "db1")
			})

			Convey("Then later snapshots should follow, with an empty list as []", func() {
				var first queue.Snapshot
				So(conn.ReadJSON(&first), ShouldBeNil)

				q.Publish(queue.Snapshot{Taken: time.Now(), Error: "list alerts: connection refused"})
				_, raw, err := conn.ReadMessage()
				So(err, ShouldBeNil)
				So(string(raw), ShouldContainSubstring, `"alerts":[]`)
				So(string(raw), ShouldContainSubstring, "connection refused")
			})

			Convey("Then closing the feed should close the socket", func() {
				var first queue.Snapshot
				So(conn.ReadJSON(&first), ShouldBeNil)

				So(q.Close(), ShouldBeNil)
				_, _, err := conn.ReadMessage()
				So(websocket.IsCloseError(err, websocket.CloseGoingAway), ShouldBeTrue)
			})
		})
	})

	Convey("Given a feed that is not running", t, func() {
		mux := http.NewServeMux()
		feed.Register(context.Background(), mux, stoppedFeed{})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("When a client connects", func() {
			_, resp, err := dial(srv)

			Convey("Then the handshake should be refused with 503", func() {
				So(err, ShouldNotBeNil)
				So(resp, ShouldNotBeNil)
				So(resp.StatusCode, ShouldEqual, http.StatusServiceUnavailable)
			})
		})
	})
}
