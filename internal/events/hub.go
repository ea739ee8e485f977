package events

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"solana-staking-ledger/internal/domain"
	"solana-staking-ledger/internal/observability"
)

// Hub configuration defaults.
const (
	DefaultWriteTimeout = 10 * time.Second
	DefaultPingInterval = 30 * time.Second
	DefaultSendBuffer   = 256
)

// Hub streams ledger events to websocket subscribers.
// A subscriber may restrict the stream to one pool with the "pool" query parameter.
// Subscribers that fall behind by more than the send buffer are disconnected.
type Hub struct {
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	pingInterval time.Duration
	sendBuffer   int

	mu      sync.RWMutex
	clients map[*subscriber]struct{}
}

type subscriber struct {
	pool string
	send chan Message
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.send) })
}

// HubOption configures Hub.
type HubOption func(*Hub)

// WithPingInterval sets the keepalive ping period.
func WithPingInterval(d time.Duration) HubOption {
	return func(h *Hub) {
		h.pingInterval = d
	}
}

// WithSendBuffer sets the per-subscriber queue length.
func WithSendBuffer(n int) HubOption {
	return func(h *Hub) {
		h.sendBuffer = n
	}
}

// NewHub creates an empty Hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		writeTimeout: DefaultWriteTimeout,
		pingInterval: DefaultPingInterval,
		sendBuffer:   DefaultSendBuffer,
		clients:      make(map[*subscriber]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name implements Sink.
func (h *Hub) Name() string { return "websocket" }

// Deliver implements Sink. It never blocks on a subscriber.
func (h *Hub) Deliver(_ context.Context, events []*domain.LedgerEvent) error {
	h.mu.RLock()
	var slow []*subscriber
	for sub := range h.clients {
		for _, e := range events {
			if sub.pool != "" && sub.pool != e.Pool {
				continue
			}
			select {
			case sub.send <- NewMessage(e):
			default:
				slow = append(slow, sub)
			}
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		h.remove(sub)
	}
	return nil
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams events until the peer leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	sub := &subscriber{
		pool: r.URL.Query().Get("pool"),
		send: make(chan Message, h.sendBuffer),
	}
	h.add(sub)

	go h.readLoop(conn, sub)
	h.writeLoop(conn, sub)
}

func (h *Hub) add(sub *subscriber) {
	h.mu.Lock()
	h.clients[sub] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	observability.UpdateStreamSubscribers(n)
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	if _, ok := h.clients[sub]; ok {
		delete(h.clients, sub)
		sub.close()
	}
	n := len(h.clients)
	h.mu.Unlock()
	observability.UpdateStreamSubscribers(n)
}

// readLoop discards client frames and unregisters the subscriber on close.
func (h *Hub) readLoop(conn *websocket.Conn, sub *subscriber) {
	defer h.remove(sub)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(conn *websocket.Conn, sub *subscriber) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-sub.send:
			conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				h.remove(sub)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(sub)
				return
			}
		}
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	for sub := range h.clients {
		delete(h.clients, sub)
		sub.close()
	}
	h.mu.Unlock()
	observability.UpdateStreamSubscribers(0)
}
