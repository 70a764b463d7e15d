package notify

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"PulseWatch/internal/domain/models"
	"PulseWatch/pkg/logger"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type subscriber struct {
	conn   *websocket.Conn
	userID string
	mu     sync.Mutex
}

func (s *subscriber) write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(v)
}

func (s *subscriber) ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Hub pushes notifications to websocket subscribers of the target user.
type Hub struct {
	mu      sync.RWMutex
	clients map[*subscriber]struct{}
	log     *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{clients: make(map[*subscriber]struct{}), log: log}
}

func (h *Hub) Name() string { return "websocket" }

// Serve registers conn for userID and blocks until the peer goes away or
// ctx is done.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, userID string) {
	s := &subscriber{conn: conn, userID: userID}
	h.add(s)
	defer h.remove(s)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			if err := s.ping(); err != nil {
				return
			}
		}
	}
}

func (h *Hub) Dispatch(_ context.Context, n models.Notification) error {
	for _, s := range h.subscribers(n.UserID) {
		if err := s.write(n); err != nil {
			h.log.Debug("drop websocket subscriber", logger.String("user_id", s.userID), logger.Error(err))
			h.remove(s)
		}
	}
	return nil
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*subscriber]struct{})
	h.mu.Unlock()
	for s := range clients {
		_ = s.conn.Close()
	}
}

func (h *Hub) subscribers(userID string) []*subscriber {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*subscriber, 0, len(h.clients))
	for s := range h.clients {
		if s.userID == userID {
			out = append(out, s)
		}
	}
	return out
}

func (h *Hub) add(s *subscriber) {
	h.mu.Lock()
	h.clients[s] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	_, ok := h.clients[s]
	delete(h.clients, s)
	h.mu.Unlock()
	if ok {
		_ = s.conn.Close()
	}
}
