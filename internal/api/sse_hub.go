package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"taskquest/domain/core"
	"taskquest/domain/metrics"
	"taskquest/ports"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const (
	sseClientBuffer = 10
	ssePingInterval = 30 * time.Second
)

// SSEHub fans freshly built insights out to each user's open event streams.
// It is an InsightSink, so the analytics service publishes to it like any other sink.
type SSEHub struct {
	clients   map[core.UserID]map[chan ports.FeedEntry]struct{}
	clientsMu sync.RWMutex
}

var _ ports.InsightSink = (*SSEHub)(nil)

// NewSSEHub creates a new SSE hub
func NewSSEHub() *SSEHub {
	return &SSEHub{clients: make(map[core.UserID]map[chan ports.FeedEntry]struct{})}
}

// Subscribe registers a client channel for user; cancel unregisters and closes it
func (h *SSEHub) Subscribe(user core.UserID) (<-chan ports.FeedEntry, func()) {
	ch := make(chan ports.FeedEntry, sseClientBuffer)
	h.clientsMu.Lock()
	if h.clients[user] == nil {
		h.clients[user] = make(map[chan ports.FeedEntry]struct{})
	}
	h.clients[user][ch] = struct{}{}
	log.WithFields(log.Fields{"user_id": user, "clients": len(h.clients[user])}).Debug("SSE client registered")
	h.clientsMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.clientsMu.Lock()
			defer h.clientsMu.Unlock()
			if clients, ok := h.clients[user]; ok {
				delete(clients, ch)
				if len(clients) == 0 {
					delete(h.clients, user)
				}
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Broadcast sends an entry to every client of user. Clients whose buffer is
// full miss the entry.
func (h *SSEHub) Broadcast(user core.UserID, entry ports.FeedEntry) {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	for ch := range h.clients[user] {
		select {
		case ch <- entry:
		default:
			log.WithField("user_id", user).Warn("SSE client channel full, skipping insight")
		}
	}
}

// Save implements ports.InsightSink
func (h *SSEHub) Save(_ context.Context, user core.UserID, section string, insight metrics.Insight, at time.Time) error {
	h.Broadcast(user, ports.FeedEntry{Section: section, GeneratedAt: at, Insight: insight})
	return nil
}

// GetClientCount returns the number of open streams for user
func (h *SSEHub) GetClientCount(user core.UserID) int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients[user])
}

// HandleSSE streams the caller's insights as they are generated
func (h *SSEHub) HandleSSE(c *gin.Context) {
	user := userFrom(c)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	events, cancel := h.Subscribe(user)
	defer cancel()

	ctx := c.Request.Context()
	ping := time.NewTicker(ssePingInterval)
	defer ping.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case entry, ok := <-events:
			if !ok {
				return false
			}
			payload, err := json.Marshal(entry)
			if err != nil {
				log.WithError(err).Warn("Failed to marshal insight event")
				return true
			}
			c.SSEvent("insight", string(payload))
			return true
		case t := <-ping.C:
			c.SSEvent("ping", t.UTC().Format(time.RFC3339))
			return true
		case <-ctx.Done():
			return false
		}
	})
}
