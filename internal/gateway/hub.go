// Package gateway serves analysis results over REST and websocket. Live
// updates arrive from the ingest daemon via Redis pub/sub and fan out to
// connected websocket clients.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"

	redisstore "stockpulse/internal/store/redis"
)

// Hub manages websocket clients and the Redis pub/sub fan-in.
type Hub struct {
	rdb *goredis.Client

	mu      sync.RWMutex
	clients map[*Client]bool
	latest  map[string]latestEntry // per symbol
	seq     int64
}

type latestEntry struct {
	Data []byte
	TS   time.Time
}

// NewHub creates a Hub backed by the given Redis client.
func NewHub(rdb *goredis.Client) *Hub {
	return &Hub{
		rdb:     rdb,
		clients: make(map[*Client]bool),
		latest:  make(map[string]latestEntry),
	}
}

// Run subscribes to the analysis updates channel and broadcasts every
// message. Blocks until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	sub := h.rdb.Subscribe(ctx, redisstore.UpdatesChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			payload := []byte(msg.Payload)
			var partial struct {
				Symbol string `json:"symbol"`
			}
			if err := json.Unmarshal(payload, &partial); err != nil || partial.Symbol == "" {
				slog.Warn("dropping malformed update", "err", err)
				continue
			}
			h.Broadcast(partial.Symbol, payload)
		}
	}
}

// Broadcast wraps data in an envelope and fans it out to all clients. Slow
// clients with a full send queue are skipped, never blocked on.
func (h *Hub) Broadcast(symbol string, data []byte) {
	now := time.Now().UTC()

	h.mu.Lock()
	h.latest[symbol] = latestEntry{Data: data, TS: now}
	h.seq++
	seq := h.seq
	h.mu.Unlock()

	buf := buildEnvelope(symbol, data, now, seq)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- buf:
		default:
		}
	}
}

// buildEnvelope hand-crafts the envelope JSON:
// {"symbol":"...","data":...,"ts":"...","seq":N}.
func buildEnvelope(symbol string, data []byte, now time.Time, seq int64) []byte {
	buf := make([]byte, 0, len(symbol)+len(data)+96)
	buf = append(buf, `{"symbol":"`...)
	buf = append(buf, symbol...)
	buf = append(buf, `","data":`...)
	buf = append(buf, data...)
	buf = append(buf, `,"ts":"`...)
	buf = now.AppendFormat(buf, time.RFC3339Nano)
	buf = append(buf, `","seq":`...)
	buf = strconv.AppendInt(buf, seq, 10)
	buf = append(buf, '}')
	return buf
}

// AddClient registers a client and replays the latest entry per symbol so
// new connections start with current state.
func (h *Hub) AddClient(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for symbol, entry := range h.latest {
		envelope := buildEnvelope(symbol, entry.Data, entry.TS, 0)
		select {
		case c.send <- envelope:
		default:
		}
	}
}

// RemoveClient unregisters a client and closes its send queue.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
