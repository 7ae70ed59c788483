package notify

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mmeshcher/escrow-auction/internal/model"
)

const (
	subscriberBuffer = 256
	writeTimeout     = 10 * time.Second
	pongTimeout      = 60 * time.Second
	pingInterval     = 30 * time.Second
)

// Hub рассылает события подключённым WebSocket-клиентам.
// Медленный подписчик, у которого переполнен буфер, отключается.
type Hub struct {
	mu          sync.Mutex
	subscribers map[int]chan model.Event
	nextID      int

	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHub создаёт пустой хаб.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subscribers: make(map[int]chan model.Event),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Name возвращает имя приёмника.
func (h *Hub) Name() string { return "websocket" }

// Deliver рассылает события всем подписчикам без блокировки.
func (h *Hub) Deliver(_ context.Context, events []model.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subscribers {
		if offer(ch, events) {
			continue
		}
		close(ch)
		delete(h.subscribers, id)
		h.logger.Warn("evicted slow websocket subscriber", zap.Int("subscriber", id))
	}
	return nil
}

func offer(ch chan<- model.Event, events []model.Event) bool {
	for _, ev := range events {
		select {
		case ch <- ev:
		default:
			return false
		}
	}
	return true
}

// Subscribe регистрирует подписчика и возвращает функцию отписки.
func (h *Hub) Subscribe() (<-chan model.Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan model.Event, subscriberBuffer)
	h.subscribers[id] = ch

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subscribers[id]; ok {
			delete(h.subscribers, id)
			close(c)
		}
	}
}

// Subscribers возвращает число подключённых подписчиков.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// ServeHTTP переводит соединение в WebSocket и пересылает события клиенту в JSON.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events, cancel := h.Subscribe()
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	// Клиент ничего не отправляет; чтение нужно только для обработки pong и закрытия.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "subscriber too slow"),
					time.Now().Add(writeTimeout))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
