package projection

import (
	"sync"
	"time"

	"github.com/layer97/pulse/internal/client"
)

type AgentStatus string

const (
	AgentIdle     AgentStatus = "idle"
	AgentThinking AgentStatus = "thinking"
)

// Agent is a roster member: the routing key the backend uses and a display
// name.
type Agent struct {
	Key  string
	Name string
}

// DefaultAgents returns the stock five-agent roster.
func DefaultAgents() []Agent {
	return []Agent{
		{Key: "CD", Name: "Creative Director"},
		{Key: "SA", Name: "Strategy Analyst"},
		{Key: "TD", Name: "Technical Director"},
		{Key: "CE", Name: "Chief Editor"},
		{Key: "AD", Name: "Art Director"},
	}
}

// AgentEntry is a roster row with its derived status.
type AgentEntry struct {
	Key        string
	Name       string
	Status     AgentStatus
	LastUpdate time.Time
}

// Roster tracks which agent, if any, is composing a response. At most one
// agent is active; every entry's status is derived from the active key.
type Roster struct {
	mu         sync.Mutex
	agents     []Agent
	index      map[string]int
	active     string
	lastUpdate map[string]time.Time
	now        func() time.Time
}

// NewRoster builds a roster of agents in display order. An empty list selects
// DefaultAgents. Duplicate keys keep their first position.
func NewRoster(agents []Agent) *Roster {
	if len(agents) == 0 {
		agents = DefaultAgents()
	}
	r := &Roster{
		index:      make(map[string]int, len(agents)),
		lastUpdate: make(map[string]time.Time, len(agents)),
		now:        time.Now,
	}
	for _, a := range agents {
		if a.Key == "" {
			continue
		}
		if _, dup := r.index[a.Key]; dup {
			continue
		}
		if a.Name == "" {
			a.Name = a.Key
		}
		r.index[a.Key] = len(r.agents)
		r.agents = append(r.agents, a)
	}
	return r
}

// Apply folds one bus event into the roster.
func (r *Roster) Apply(ev client.Event) {
	if ev.Kind != client.EventMessage {
		return
	}
	msg := ev.Message
	r.mu.Lock()
	defer r.mu.Unlock()

	switch msg.Type {
	case client.MsgAgentSelected:
		if _, ok := r.index[msg.Agent]; ok {
			r.active = msg.Agent
		} else {
			r.active = ""
		}
	case client.MsgAgentResponse:
		if msg.Agent == "" {
			return
		}
		if r.active == msg.Agent {
			r.active = ""
		}
		if _, ok := r.index[msg.Agent]; ok {
			r.lastUpdate[msg.Agent] = r.now()
		}
	case client.MsgAgentError:
		// The payload does not say which agent failed.
		r.active = ""
	}
}

// Active returns the key of the thinking agent, or "" when none is.
func (r *Roster) Active() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Name returns the display name for key, or key itself when unknown.
func (r *Roster) Name(key string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.index[key]; ok {
		return r.agents[i].Name
	}
	return key
}

// Snapshot returns the roster in display order with derived statuses.
func (r *Roster) Snapshot() []AgentEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]AgentEntry, len(r.agents))
	for i, a := range r.agents {
		status := AgentIdle
		if a.Key == r.active {
			status = AgentThinking
		}
		out[i] = AgentEntry{
			Key:        a.Key,
			Name:       a.Name,
			Status:     status,
			LastUpdate: r.lastUpdate[a.Key],
		}
	}
	return out
}
