package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Envelope 带唯一 ID 的事件包装，下游（journal / websocket）统一消费
type Envelope struct {
	ID    string    `json:"id"`
	Kind  Kind      `json:"kind"`
	At    time.Time `json:"at"`
	Event Event     `json:"event"`
}

// MarshalJSON 保证 event 字段按具体类型序列化
func (e Envelope) MarshalJSON() ([]byte, error) {
	type alias struct {
		ID    string    `json:"id"`
		Kind  Kind      `json:"kind"`
		At    time.Time `json:"at"`
		Event any       `json:"event"`
	}
	return json.Marshal(alias{ID: e.ID, Kind: e.Kind, At: e.At, Event: e.Event})
}

// Handler 事件处理器（同步调用，不应阻塞太久）
type Handler interface {
	HandleEvent(ctx context.Context, env Envelope)
}

// HandlerFunc 函数适配
type HandlerFunc func(ctx context.Context, env Envelope)

func (f HandlerFunc) HandleEvent(ctx context.Context, env Envelope) { f(ctx, env) }

// Bus 同步事件总线：Publish 返回时所有 handler 都已执行完毕
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers []subscription
}

type subscription struct {
	id int
	h  Handler
}

func NewBus(handlers ...Handler) *Bus {
	b := &Bus{}
	for _, h := range handlers {
		b.Subscribe(h)
	}
	return b
}

// Subscribe 注册 handler，返回注销函数
func (b *Bus) Subscribe(h Handler) func() {
	if h == nil {
		return func() {}
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers = append(b.handlers, subscription{id: id, h: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, cur := range b.handlers {
				if cur.id == id {
					b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish 包装事件并依次投递
func (b *Bus) Publish(ctx context.Context, ev Event) {
	if ev == nil {
		return
	}
	at := ev.OccurredAt()
	if at.IsZero() {
		at = time.Now()
	}
	env := Envelope{ID: uuid.NewString(), Kind: ev.Kind(), At: at, Event: ev}

	b.mu.RLock()
	subs := append([]subscription(nil), b.handlers...)
	b.mu.RUnlock()

	for _, sub := range subs {
		sub.h.HandleEvent(ctx, env)
	}
}
