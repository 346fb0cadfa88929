package server

import (
	"context"
	"sync"

	"github.com/amzilayoub/nft-marketplace/internal/events"
	"github.com/amzilayoub/nft-marketplace/pkg/logger"
)

const clientBuffer = 64

// hub 把总线上的事件扇出给 websocket 订阅者；跟不上的订阅者直接断开
type hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool
}

type wsClient struct {
	send  chan events.Envelope
	kinds map[events.Kind]bool // 为空表示订阅全部
	done  chan struct{}
	once  sync.Once
}

func newHub() *hub {
	return &hub{clients: make(map[*wsClient]struct{})}
}

func (c *wsClient) wants(kind events.Kind) bool {
	return len(c.kinds) == 0 || c.kinds[kind]
}

func (c *wsClient) stop() {
	c.once.Do(func() { close(c.done) })
}

func (h *hub) add(kinds []events.Kind) *wsClient {
	c := &wsClient{
		send: make(chan events.Envelope, clientBuffer),
		done: make(chan struct{}),
	}
	if len(kinds) > 0 {
		c.kinds = make(map[events.Kind]bool, len(kinds))
		for _, k := range kinds {
			c.kinds[k] = true
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		c.stop()
		return c
	}
	h.clients[c] = struct{}{}
	return c
}

func (h *hub) remove(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.stop()
}

func (h *hub) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) HandleEvent(_ context.Context, env events.Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.wants(env.Kind) {
			continue
		}
		select {
		case c.send <- env:
		default:
			logger.WithField("event_id", env.ID).Warn("[ws] subscriber too slow, dropping")
			delete(h.clients, c)
			c.stop()
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		c.stop()
	}
}
