package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/palantir/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.ServerURL, convey.ShouldEqual, "http://localhost:6543")
				convey.So(cfg.RequestTimeoutMS, convey.ShouldEqual, 10_000)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("PALANTIR_ADDR", ":8080")
			_ = os.Setenv("PALANTIR_SERVER_URL", "https://steward.example.com/api")
			_ = os.Setenv("PALANTIR_AUTH_TOKEN", "s3cret")
			_ = os.Setenv("PALANTIR_REQUEST_TIMEOUT_MS", "2500")
			_ = os.Setenv("PALANTIR_ROUTES_PALANTIR_LIST_ALERTS", "/v2/alerts")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.ServerURL, convey.ShouldEqual, "https://steward.example.com/api")
				convey.So(cfg.AuthToken, convey.ShouldEqual, "s3cret")
				convey.So(cfg.RequestTimeoutMS, convey.ShouldEqual, 2500)
				convey.So(cfg.Routes["palantir_list_alerts"], convey.ShouldEqual, "/v2/alerts")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
server_url: "http://palantir.internal:6543"
refresh_interval_ms: 5000
feed_queue_size: 16
routes:
  palantir_get_check: /palantir/check/detail
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("PALANTIR_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.ServerURL, convey.ShouldEqual, "http://palantir.internal:6543")
				convey.So(cfg.RefreshIntervalMS, convey.ShouldEqual, 5000)
				convey.So(cfg.FeedQueueSize, convey.ShouldEqual, 16)
				convey.So(cfg.Routes["palantir_get_check"], convey.ShouldEqual, "/palantir/check/detail")
				convey.So(cfg.RequestTimeoutMS, convey.ShouldEqual, 10_000) // From defaults
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
log_level: debug
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("PALANTIR_CONFIG", tmpFile)
			_ = os.Setenv("PALANTIR_ADDR", ":8080")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")      // Overridden by env
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug") // From file
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("PALANTIR_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			cfg, err := config.LoadFile(ctx, "/non/existent/file.yaml")

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("PALANTIR_ADDR", "")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a relative server url", func() {
			_ = os.Setenv("PALANTIR_SERVER_URL", "palantir/api")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should be rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "server_url")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a zero timeout", func() {
			_ = os.Setenv("PALANTIR_REQUEST_TIMEOUT_MS", "0")

			_, err := config.Load(ctx)

			convey.Convey("Then it should be rejected", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "request_timeout_ms")
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("PALANTIR_REFRESH_INTERVAL_MS", "soon")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"PALANTIR_CONFIG",
		"PALANTIR_ADDR",
		"PALANTIR_LOG_LEVEL",
		"PALANTIR_SERVER_URL",
		"PALANTIR_AUTH_TOKEN",
		"PALANTIR_REQUEST_TIMEOUT_MS",
		"PALANTIR_REFRESH_INTERVAL_MS",
		"PALANTIR_FEED_QUEUE_SIZE",
		"PALANTIR_ROUTES_PALANTIR_LIST_ALERTS",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "palantir-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
