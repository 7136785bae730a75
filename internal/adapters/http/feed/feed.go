// Package feed streams alert snapshots to browsers over a websocket.
package feed

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/palantir/internal/adapters/mq/queue"
	"github.com/okian/palantir/internal/domain/model"
	"github.com/okian/palantir/pkg/logger"
	"github.com/okian/palantir/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Subscriber hands out alert feed subscriptions. *service.Service implements it.
type Subscriber interface {
	Subscribe() (*queue.Subscription, error)
}

// Handler upgrades requests and writes every snapshot as a JSON text frame.
type Handler struct {
	sub      Subscriber
	upgrader websocket.Upgrader
	logger   logger.Logger
}

// NewHandler creates a feed handler. Origins are checked by gorilla's
// same-host default.
func NewHandler(sub Subscriber) *Handler {
	return &Handler{
		sub: sub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		logger: logger.Get().Named("feed"),
	}
}

// Register attaches GET /ws/alerts to mux.
func Register(_ context.Context, mux *http.ServeMux, sub Subscriber) {
	if mux == nil {
		panic("mux is nil")
	}
	h := NewHandler(sub)
	mux.HandleFunc("GET /ws/alerts", h.ServeHTTP)
}

// ServeHTTP handles GET /ws/alerts.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, err := h.sub.Subscribe()
	if err != nil {
		h.logger.Warn(ctx, "feed unavailable", logger.Error(err))
		metrics.RecordErrorByComponent("feed", "subscribe")
		http.Error(w, "alert feed unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		s.Close()
		h.logger.Warn(ctx, "websocket upgrade failed", logger.Error(err))
		return
	}
	h.logger.Debug(ctx, "feed client connected", logger.String("remote", r.RemoteAddr))

	done := make(chan struct{})
	go h.readPump(conn, done)
	h.writePump(ctx, conn, s, done)
	h.logger.Debug(ctx, "feed client disconnected", logger.String("remote", r.RemoteAddr))
}

// readPump discards client frames and tracks pongs. It closes done when the
// peer goes away.
func (h *Handler) readPump(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump owns every write to conn.
func (h *Handler) writePump(ctx context.Context, conn *websocket.Conn, s *queue.Subscription, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
		_ = conn.Close()
	}()

	for {
		select {
		case snap, ok := <-s.C():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed"))
				return
			}
			if snap.Alerts == nil {
				snap.Alerts = []model.Alert{}
			}
			if err := conn.WriteJSON(snap); err != nil {
				h.logger.Debug(ctx, "feed write failed", logger.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}
