// Package projection folds the bus event stream into the state the console
// renders: the chat thread, the agent roster and the sync/health panel.
// Each projection is an independent subscriber guarded by its own mutex so
// the UI goroutine can take snapshots while the read loop applies events.
package projection

import (
	"sync"
	"time"

	"github.com/layer97/pulse/internal/client"
)

// TimestampLayout is the ISO-8601 UTC form used for locally stamped messages.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

const (
	TextSelecting      = "에이전트 선택 중..."
	TextThinking       = "에이전트가 사고 중..."
	respondingSuffix   = " 응답 생성 중..."
	errorPrefix        = "오류: "
	unknownErrorDetail = "알 수 없는 오류"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ChatMessage is one rendered chat turn. Messages are never mutated after
// they are appended.
type ChatMessage struct {
	ID        uint64
	Role      Role
	Content   string
	Agent     string
	AgentName string
	Timestamp string
}

// Phase is the in-flight state of an assistant turn.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSelecting
	PhaseThinking
	PhaseResponding
)

func (p Phase) String() string {
	switch p {
	case PhaseSelecting:
		return "selecting"
	case PhaseThinking:
		return "thinking"
	case PhaseResponding:
		return "responding"
	default:
		return "idle"
	}
}

// Overlay describes the thinking indicator shown under the thread.
type Overlay struct {
	Phase Phase
	Text  string
	Agent string
}

// Active reports whether an assistant turn is in flight.
func (o Overlay) Active() bool { return o.Phase != PhaseIdle }

// ThreadSnapshot is a copy of the thread state. Version increases on every
// change so renderers can skip unchanged frames.
type ThreadSnapshot struct {
	Messages []ChatMessage
	Overlay  Overlay
	Version  uint64
}

// Thread is the chat thread projection.
type Thread struct {
	mu       sync.Mutex
	messages []ChatMessage
	overlay  Overlay
	nextID   uint64
	version  uint64
	now      func() time.Time
}

func NewThread() *Thread {
	return &Thread{nextID: 1, now: time.Now}
}

// Submit appends the user's message and moves the overlay to selecting.
// Callers reject empty input before calling Submit. Submitting while a turn
// is in flight is allowed and simply restarts the overlay.
func (t *Thread) Submit(text string) ChatMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	msg := t.appendLocked(ChatMessage{
		Role:      RoleUser,
		Content:   text,
		Timestamp: t.stampLocked(),
	})
	t.overlay = Overlay{Phase: PhaseSelecting, Text: TextSelecting}
	return msg
}

// Seed places persisted turns ahead of anything already in the thread.
func (t *Thread) Seed(entries []client.HistoryEntry) {
	if len(entries) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	seeded := make([]ChatMessage, 0, len(entries)+len(t.messages))
	for _, e := range entries {
		seeded = append(seeded, ChatMessage{
			ID:        t.takeIDLocked(),
			Role:      Role(e.Role),
			Content:   e.Content,
			Timestamp: e.Timestamp,
		})
	}
	t.messages = append(seeded, t.messages...)
	t.version++
}

// Apply folds one bus event into the thread. It has the client.Handler
// signature so it can be subscribed directly.
func (t *Thread) Apply(ev client.Event) {
	if ev.Kind != client.EventMessage {
		return
	}
	msg := ev.Message
	t.mu.Lock()
	defer t.mu.Unlock()

	switch msg.Type {
	case client.MsgAgentThinking:
		text := msg.Message
		if text == "" {
			text = TextThinking
		}
		t.overlay = Overlay{Phase: PhaseThinking, Text: text, Agent: t.overlay.Agent}
	case client.MsgAgentSelected:
		name := msg.AgentName
		if name == "" {
			name = msg.Agent
		}
		t.overlay = Overlay{Phase: PhaseResponding, Text: name + respondingSuffix, Agent: msg.Agent}
	case client.MsgAgentResponse:
		ts := msg.Timestamp
		if ts == "" {
			ts = t.stampLocked()
		}
		t.appendLocked(ChatMessage{
			Role:      RoleAssistant,
			Content:   msg.Message,
			Agent:     msg.Agent,
			AgentName: msg.AgentName,
			Timestamp: ts,
		})
		t.overlay = Overlay{}
	case client.MsgAgentError:
		detail := msg.Error
		if detail == "" {
			detail = unknownErrorDetail
		}
		t.appendLocked(ChatMessage{
			Role:      RoleSystem,
			Content:   errorPrefix + detail,
			Timestamp: t.stampLocked(),
		})
		t.overlay = Overlay{}
	default:
		return
	}
	t.version++
}

// Snapshot returns a copy safe to read without further locking.
func (t *Thread) Snapshot() ThreadSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return ThreadSnapshot{
		Messages: append([]ChatMessage(nil), t.messages...),
		Overlay:  t.overlay,
		Version:  t.version,
	}
}

// Len returns the number of messages in the thread.
func (t *Thread) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}

func (t *Thread) appendLocked(m ChatMessage) ChatMessage {
	m.ID = t.takeIDLocked()
	t.messages = append(t.messages, m)
	t.version++
	return m
}

func (t *Thread) takeIDLocked() uint64 {
	id := t.nextID
	t.nextID++
	return id
}

func (t *Thread) stampLocked() string {
	return t.now().UTC().Format(TimestampLayout)
}
