package mock

import (
	"sync"

	"github.com/layer97/pulse/internal/client"
)

// DefaultHistoryCap bounds the turns kept per user.
const DefaultHistoryCap = 200

// History is an in-memory, per-user chat log.
type History struct {
	mu    sync.RWMutex
	cap   int
	turns map[string][]client.HistoryEntry
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCap
	}
	return &History{cap: capacity, turns: make(map[string][]client.HistoryEntry)}
}

// Append records a turn, dropping the oldest once the cap is reached.
func (h *History) Append(userID string, entry client.HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	turns := append(h.turns[userID], entry)
	if over := len(turns) - h.cap; over > 0 {
		turns = append([]client.HistoryEntry(nil), turns[over:]...)
	}
	h.turns[userID] = turns
}

// History returns up to limit of the user's most recent turns, oldest first.
func (h *History) History(userID string, limit int) []client.HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	turns := h.turns[userID]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return append([]client.HistoryEntry(nil), turns...)
}
