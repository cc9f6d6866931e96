package client

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"pkt.systems/pslog"
)

type logCapture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

func (c *logCapture) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

func newTestLogger(w *logCapture) pslog.Logger {
	return pslog.NewWithOptions(w, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.DebugLevel,
		VerboseFields: true,
	})
}

func collect(b *Bus) *[]Event {
	var got []Event
	b.Subscribe(func(ev Event) { got = append(got, ev) })
	return &got
}

func TestBusParseFailureDoesNotBlockNextFrame(t *testing.T) {
	capture := &logCapture{}
	b := NewBus(newTestLogger(capture))
	got := collect(b)

	b.Dispatch([]byte(`{"type":"agent_thinking"`))
	b.Dispatch([]byte(`{"type":"pong"}`))

	if len(*got) != 1 {
		t.Fatalf("expected 1 delivered event, got %d", len(*got))
	}
	if (*got)[0].Message.Type != MsgPong {
		t.Errorf("delivered type = %q, want pong", (*got)[0].Message.Type)
	}
	if !strings.Contains(capture.String(), "bus dropped frame") {
		t.Errorf("parse failure should be logged, log was %q", capture.String())
	}
}

func TestBusIsolatesPanickingSubscriber(t *testing.T) {
	capture := &logCapture{}
	b := NewBus(newTestLogger(capture))

	first := collect(b)
	b.Subscribe(func(Event) { panic("malformed agent key") })
	third := collect(b)

	b.Dispatch([]byte(`{"type":"agent_selected","agent":"SA"}`))
	b.Dispatch([]byte(`{"type":"agent_response","agent":"SA"}`))

	if len(*first) != 2 || len(*third) != 2 {
		t.Fatalf("healthy subscribers got %d and %d events, want 2 each", len(*first), len(*third))
	}
	if !strings.Contains(capture.String(), "malformed agent key") {
		t.Errorf("panic value should be logged, log was %q", capture.String())
	}
}

func TestBusDeliversInRegistrationOrder(t *testing.T) {
	b := NewBus(nil)
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		b.Subscribe(func(Event) { order = append(order, i) })
	}
	b.Publish(StatusEvent(StatusOpen))

	if len(order) != 5 {
		t.Fatalf("expected 5 deliveries, got %d", len(order))
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("delivery order = %v, want ascending", order)
		}
	}
}

func TestBusUnsubscribe(t *testing.T) {
	b := NewBus(nil)
	got := 0
	unsub := b.Subscribe(func(Event) { got++ })
	other := collect(b)

	b.Publish(StatusEvent(StatusOpen))
	unsub()
	unsub()
	b.Publish(StatusEvent(StatusClosed))

	if got != 1 {
		t.Errorf("unsubscribed handler got %d events, want 1", got)
	}
	if len(*other) != 2 {
		t.Errorf("remaining handler got %d events, want 2", len(*other))
	}
	if b.Len() != 1 {
		t.Errorf("Len() = %d, want 1", b.Len())
	}
}

func TestBusHandlerMayUnsubscribeItself(t *testing.T) {
	b := NewBus(nil)
	calls := 0
	var unsub func()
	unsub = b.Subscribe(func(Event) {
		calls++
		unsub()
	})
	after := collect(b)

	b.Publish(StatusEvent(StatusOpen))
	b.Publish(StatusEvent(StatusClosed))

	if calls != 1 {
		t.Errorf("self-removing handler called %d times, want 1", calls)
	}
	if len(*after) != 2 {
		t.Errorf("later handler got %d events, want 2", len(*after))
	}
}
