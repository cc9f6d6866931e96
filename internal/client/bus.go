package client

import (
	"context"
	"fmt"
	"sync"

	"pkt.systems/pslog"
)

// Handler receives bus events. Handlers run on the delivering goroutine and
// must not block for long.
type Handler func(Event)

type subscriber struct {
	id uint64
	h  Handler
}

// Bus fans decoded inbound messages and status transitions out to
// subscribers in registration order. A failing subscriber never prevents the
// others from receiving the same event.
type Bus struct {
	mu     sync.Mutex
	subs   []subscriber
	nextID uint64
	log    pslog.Logger
}

// NewBus constructs a Bus.
func NewBus(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{log: logger}
}

// Subscribe registers h and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscriber{id: id, h: h})
	count := len(b.subs)
	b.mu.Unlock()
	b.log.Debug("bus subscribe", "subs", count)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					break
				}
			}
			remaining := len(b.subs)
			b.mu.Unlock()
			b.log.Debug("bus unsubscribe", "subs", remaining)
		})
	}
}

// Len returns the number of registered subscribers.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Dispatch decodes a raw frame and publishes it. Frames that fail to decode
// are logged and dropped.
func (b *Bus) Dispatch(frame []byte) {
	msg, err := Decode(frame)
	if err != nil {
		b.log.Warn("bus dropped frame", "err", err, "bytes", len(frame))
		return
	}
	if !msg.Type.Known() {
		b.log.Debug("bus unknown message type", "type", msg.Type)
	}
	b.Publish(MessageEvent(msg))
}

// Publish delivers ev to every subscriber registered at the time of the call.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	subs := make([]subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		b.deliver(s, ev)
	}
}

func (b *Bus) deliver(s subscriber, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("bus subscriber failed", "subscriber", s.id, "kind", ev.Kind, "type", ev.Message.Type, "err", fmt.Sprint(r))
		}
	}()
	s.h(ev)
}
