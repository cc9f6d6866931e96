package projection

import (
	"sync"
	"time"

	"github.com/layer97/pulse/internal/client"
)

// HealthState is a copy of what the health panel shows.
type HealthState struct {
	// Sync is the last snapshot received, nil until the first one arrives.
	Sync       *client.SyncSnapshot
	ReceivedAt time.Time
	Transport  client.Status
	Version    uint64
}

// Health holds the last sync snapshot verbatim plus the transport status.
type Health struct {
	mu         sync.Mutex
	sync       *client.SyncSnapshot
	receivedAt time.Time
	transport  client.Status
	version    uint64
	now        func() time.Time
}

func NewHealth() *Health {
	return &Health{transport: client.StatusClosed, now: time.Now}
}

// Apply replaces the snapshot on sync_state_update and records status
// transitions. Updates without a data object are ignored.
func (h *Health) Apply(ev client.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch ev.Kind {
	case client.EventStatus:
		h.transport = ev.Status
	case client.EventMessage:
		if ev.Message.Type != client.MsgSyncStateUpdate || ev.Message.Sync == nil {
			return
		}
		snap := *ev.Message.Sync
		h.sync = &snap
		h.receivedAt = h.now()
	default:
		return
	}
	h.version++
}

// Snapshot returns the current state. The Sync pointer refers to a private
// copy that Apply never mutates.
func (h *Health) Snapshot() HealthState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return HealthState{
		Sync:       h.sync,
		ReceivedAt: h.receivedAt,
		Transport:  h.transport,
		Version:    h.version,
	}
}
