package notify

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Hub fans countChanged messages out to server-sent-event subscribers.
type Hub struct {
	mu        sync.Mutex
	clients   map[chan Message]struct{}
	last      int
	closed    bool
	heartbeat time.Duration
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[chan Message]struct{}),
		heartbeat: 25 * time.Second,
	}
}

// Notify never blocks: a subscriber with a full buffer misses this message
// and catches up on the next one.
func (h *Hub) Notify(count int) {
	if err := h.broadcast(Message{Kind: KindCountChanged, Count: count}); err != nil {
		slog.Debug("Count notification dropped", "count", count, "error", err)
	}
}

func (h *Hub) broadcast(msg Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.last = msg.Count

	if h.closed {
		return &NotifyError{Count: msg.Count, Err: ErrHubClosed}
	}
	if len(h.clients) == 0 {
		return &NotifyError{Count: msg.Count, Err: ErrNoReceiver}
	}

	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

// Subscribe registers a receiver. The channel starts with the last count.
func (h *Hub) Subscribe() (<-chan Message, func()) {
	ch := make(chan Message, 32)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.clients[ch] = struct{}{}
	ch <- Message{Kind: KindCountChanged, Count: h.last}
	h.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.clients[ch]; ok {
				delete(h.clients, ch)
				close(ch)
			}
		})
	}
	return ch, unsubscribe
}

func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every subscriber; later notifications are dropped.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.clients {
		delete(h.clients, ch)
		close(ch)
	}
}

// Serve streams countChanged events to one client until it disconnects.
func (h *Hub) Serve(c *gin.Context) {
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	messages, unsubscribe := h.Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctxDone := c.Request.Context().Done()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctxDone:
			return false
		case msg, ok := <-messages:
			if !ok {
				return false
			}
			c.SSEvent(msg.Kind, msg)
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{})
			return true
		}
	})
}
