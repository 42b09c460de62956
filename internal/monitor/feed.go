// ABOUTME: Live position feed over WebSocket
// ABOUTME: Each subscriber gets the latest value at a capped rate
package monitor

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const writeDeadline = 10 * time.Second

// FeedMessage is sent to feed subscribers
type FeedMessage struct {
	Position int   `json:"position"`
	Time     int64 `json:"time"` // unix milliseconds
}

// Feed fans the latest display value out to WebSocket subscribers
type Feed struct {
	rate     rate.Limit
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	latest  FeedMessage
	changed chan struct{}
}

// NewFeed creates a feed delivering at most perSecond messages per subscriber
func NewFeed(perSecond int, logger *slog.Logger) *Feed {
	if perSecond <= 0 {
		perSecond = 20
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Feed{
		rate: rate.Limit(perSecond),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  logger,
		changed: make(chan struct{}),
	}
}

// Observe publishes a display value. It never blocks on subscribers.
func (f *Feed) Observe(display int) {
	f.mu.Lock()
	f.latest = FeedMessage{Position: display, Time: time.Now().UnixMilli()}
	close(f.changed)
	f.changed = make(chan struct{})
	f.mu.Unlock()
}

func (f *Feed) current() (FeedMessage, <-chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest, f.changed
}

// ServeHTTP upgrades the request and streams updates until the peer leaves
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Warn("Feed upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reader detects the peer closing
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	f.logger.Debug("Feed subscriber connected", "remote", r.RemoteAddr)
	limiter := rate.NewLimiter(f.rate, 1)
	_, changed := f.current()

	for {
		select {
		case <-changed:
		case <-ctx.Done():
			return
		}

		if err := limiter.Wait(ctx); err != nil {
			return
		}

		var msg FeedMessage
		msg, changed = f.current()

		conn.SetWriteDeadline(time.Now().Add(writeDeadline))
		if err := conn.WriteJSON(msg); err != nil {
			f.logger.Debug("Feed subscriber gone", "remote", r.RemoteAddr, "error", err)
			return
		}
	}
}
