// Package upstream is a typed client for the palantir server's HTTP API.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/palantir/pkg/logger"
	"github.com/okian/palantir/pkg/metrics"
)

// Default client configuration.
const (
	defaultTimeout  = 10 * time.Second
	requestIDHeader = "X-Request-ID"
	maxResponseBody = 16 << 20
)

// Client calls the palantir server. All requests are POSTs with a JSON body.
// A Client is safe for concurrent use.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	token   string
	routes  map[string]string
	log     logger.Logger
}

// New creates a client for the server at serverURL.
func New(serverURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(serverURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if !base.IsAbs() || base.Host == "" {
		return nil, fmt.Errorf("%w: %q is not absolute", ErrInvalidURL, serverURL)
	}

	c := &Client{
		base:    base,
		http:    &http.Client{},
		timeout: defaultTimeout,
		routes:  DefaultRoutes(),
		log:     logger.Get().Named("upstream"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// URL returns the absolute URL of a route, or "" when the route is unknown.
func (c *Client) URL(route string) string {
	path, ok := c.routes[route]
	if !ok {
		return ""
	}
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String()
}

// call posts body to route and returns the raw 2xx response body.
func (c *Client) call(ctx context.Context, route string, body any) ([]byte, error) {
	endpoint := c.URL(route)
	if endpoint == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRoute, route)
	}

	payload := []byte("{}")
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("%w: encode %s: %v", ErrRequest, route, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRequest, route, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	requestID := logger.RequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
		ctx = logger.WithRequestID(ctx, requestID)
	}
	req.Header.Set(requestIDHeader, requestID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	latency := time.Since(start)
	metrics.RecordUpstreamLatency(route, float64(latency.Milliseconds()))
	if err != nil {
		metrics.RecordUpstreamRequest(route, "error")
		metrics.RecordUpstreamError(route, "transport")
		c.log.Error(ctx, "upstream request failed",
			logger.String("route", route),
			logger.Duration("latency", latency),
			logger.Error(err),
		)
		return nil, fmt.Errorf("%w: %s: %v", ErrRequest, route, err)
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.RecordUpstreamRequest(route, strconv.Itoa(resp.StatusCode))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		metrics.RecordUpstreamError(route, "read")
		return nil, fmt.Errorf("%w: %s: read body: %v", ErrRequest, route, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordUpstreamError(route, "status")
		c.log.Warn(ctx, "upstream returned error status",
			logger.String("route", route),
			logger.Int("status", resp.StatusCode),
		)
		msg := strings.TrimSpace(string(data))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, &StatusError{Route: route, Code: resp.StatusCode, Body: msg}
	}

	c.log.Debug(ctx, "upstream call",
		logger.String("route", route),
		logger.Int("status", resp.StatusCode),
		logger.Duration("latency", latency),
	)
	return data, nil
}

// decode unmarshals a response body into out.
func decode(route string, data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		metrics.RecordUpstreamError(route, "decode")
		return fmt.Errorf("%w: %s: %v", ErrDecode, route, err)
	}
	return nil
}

// isNull reports whether a body carries no record.
func isNull(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) == 0 || bytes.Equal(data, []byte("null"))
}
