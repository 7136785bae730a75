package config_test

import (
	"testing"
	"time"

	"github.com/okian/palantir/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.ServerURL, convey.ShouldEqual, "http://localhost:6543")
			convey.So(cfg.RequestTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.RefreshInterval(), convey.ShouldEqual, 15*time.Second)
			convey.So(cfg.FeedQueueSize, convey.ShouldEqual, 8)
			convey.So(cfg.Routes, convey.ShouldBeEmpty)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
