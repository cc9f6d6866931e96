package debug

import (
	"strings"
	"testing"

	"github.com/layer97/pulse/internal/client"
)

func TestAddEntry(t *testing.T) {
	m := New()
	m.Add(KindConn, "connected")
	if len(m.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(m.Entries))
	}
	if m.Entries[0].Kind != KindConn {
		t.Errorf("expected kind 'conn', got %q", m.Entries[0].Kind)
	}
}

func TestMaxEntries(t *testing.T) {
	m := New()
	for i := 0; i < maxEntries+50; i++ {
		m.Add(KindInbound, "msg")
	}
	if len(m.Entries) != maxEntries {
		t.Errorf("expected %d entries, got %d", maxEntries, len(m.Entries))
	}
}

func TestScrollUpDown(t *testing.T) {
	m := New()
	for i := 0; i < 20; i++ {
		m.Add(KindInbound, "msg")
	}
	if m.Offset != 0 {
		t.Fatal("expected offset 0 after adds")
	}

	m.ScrollUp(5)
	if m.Offset != 5 {
		t.Errorf("expected offset 5, got %d", m.Offset)
	}

	m.ScrollDown(3)
	if m.Offset != 2 {
		t.Errorf("expected offset 2, got %d", m.Offset)
	}

	m.ScrollDown(10) // shouldn't go below 0
	if m.Offset != 0 {
		t.Errorf("expected offset 0, got %d", m.Offset)
	}
}

func TestScrollUpCapped(t *testing.T) {
	m := New()
	for i := 0; i < 5; i++ {
		m.Add(KindInbound, "msg")
	}
	m.ScrollUp(100)
	if m.Offset != 4 { // max is len-1
		t.Errorf("expected offset 4, got %d", m.Offset)
	}
}

func TestViewEmpty(t *testing.T) {
	m := New()
	v := m.View(80, 20)
	if !strings.Contains(v, "No events") {
		t.Error("empty view should show 'No events' message")
	}
}

func TestViewWithEntries(t *testing.T) {
	m := New()
	m.Add(KindConn, "connected")
	m.Add(KindErr, "timeout")
	v := m.View(80, 20)
	if !strings.Contains(v, "connected") {
		t.Error("view should contain 'connected'")
	}
	if !strings.Contains(v, "timeout") {
		t.Error("view should contain 'timeout'")
	}
}

func TestAddResetsScroll(t *testing.T) {
	m := New()
	for i := 0; i < 10; i++ {
		m.Add(KindInbound, "msg")
	}
	m.ScrollUp(5)
	m.Add(KindInbound, "new")
	if m.Offset != 0 {
		t.Error("adding entry should reset scroll to 0")
	}
}

func TestRecordBusEvents(t *testing.T) {
	m := New()
	m.Record(client.StatusEvent(client.StatusOpen))
	m.Record(client.MessageEvent(client.InboundMessage{Type: client.MsgAgentSelected, Agent: "TD"}))
	m.Record(client.MessageEvent(client.InboundMessage{Type: client.MsgAgentError, Error: "timeout"}))

	if len(m.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(m.Entries))
	}
	want := []Entry{
		{Kind: KindConn, Message: "open"},
		{Kind: KindInbound, Message: "agent_selected agent=TD"},
		{Kind: KindErr, Message: "agent_error error=timeout"},
	}
	for i, w := range want {
		got := m.Entries[i]
		if got.Kind != w.Kind || got.Message != w.Message {
			t.Errorf("entry %d = %q %q, want %q %q", i, got.Kind, got.Message, w.Kind, w.Message)
		}
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		msg  client.InboundMessage
		want string
	}{
		{
			name: "response counts runes",
			msg:  client.InboundMessage{Type: client.MsgAgentResponse, Agent: "CD", Message: "안녕하세요"},
			want: "agent_response agent=CD (5 chars)",
		},
		{
			name: "sync",
			msg: client.InboundMessage{
				Type: client.MsgSyncStateUpdate,
				Sync: &client.SyncSnapshot{ActiveNode: client.NodeGCPVM, Location: "GCP_VM"},
			},
			want: "sync_state_update active=gcp_vm location=GCP_VM",
		},
		{
			name: "pong",
			msg:  client.InboundMessage{Type: client.MsgPong},
			want: "pong",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Describe(tt.msg); got != tt.want {
				t.Errorf("Describe() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestViewTruncatesWideMessages(t *testing.T) {
	m := New()
	m.Add(KindInbound, strings.Repeat("가", 200))
	v := m.View(60, 20)
	if !strings.Contains(v, "...") {
		t.Error("long message should be truncated with ellipsis")
	}
}
