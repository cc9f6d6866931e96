package mock

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"pkt.systems/pslog"

	"github.com/layer97/pulse/internal/client"
	"github.com/layer97/pulse/internal/server"
)

// SyncState holds the backend's view of the two-node pair.
type SyncState struct {
	mu   sync.RWMutex
	snap client.SyncSnapshot
}

// NewSyncState starts with active as the active node and both nodes'
// health unknown.
func NewSyncState(active client.Node, location string, now time.Time) *SyncState {
	ts := now.Format(TimestampLayout)
	return &SyncState{snap: client.SyncSnapshot{
		LastSync:      ts,
		Location:      location,
		ActiveNode:    active,
		LastHeartbeat: ts,
		Health:        client.NodeHealthMap{Macbook: client.HealthUnknown, GCPVM: client.HealthUnknown},
	}}
}

// Snapshot returns a copy of the current state.
func (s *SyncState) Snapshot() client.SyncSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.snap
	snap.PendingChanges = append([]json.RawMessage(nil), s.snap.PendingChanges...)
	snap.NodeHistory = append([]json.RawMessage(nil), s.snap.NodeHistory...)
	return snap
}

// Heartbeat stamps the heartbeat and records the local node's health.
func (s *SyncState) Heartbeat(now time.Time, location string, node client.Node, health client.NodeHealth) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := now.Format(TimestampLayout)
	s.snap.LastHeartbeat = ts
	s.snap.LastSync = ts
	if location != "" {
		s.snap.Location = location
	}
	setHealth(&s.snap.Health, node, health)
}

type handoverRecord struct {
	From      client.Node `json:"from"`
	To        client.Node `json:"to"`
	Timestamp string      `json:"timestamp"`
	Reason    string      `json:"reason"`
}

// Handover moves the active role to the other node.
func (s *SyncState) Handover(now time.Time, reason string) client.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	from := s.snap.ActiveNode
	to := client.NodeGCPVM
	if from == client.NodeGCPVM {
		to = client.NodeMacbook
	}
	ts := now.Format(TimestampLayout)
	s.snap.ActiveNode = to
	s.snap.LastHeartbeat = ts
	s.snap.PendingHandover = false
	setHealth(&s.snap.Health, from, client.HealthOffline)
	setHealth(&s.snap.Health, to, client.HealthOnline)
	if rec, err := json.Marshal(handoverRecord{From: from, To: to, Timestamp: ts, Reason: reason}); err == nil {
		s.snap.NodeHistory = append(s.snap.NodeHistory, rec)
	}
	return to
}

// SetPendingHandover flags an upcoming handover.
func (s *SyncState) SetPendingHandover(pending bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.PendingHandover = pending
}

func setHealth(m *client.NodeHealthMap, node client.Node, h client.NodeHealth) {
	switch node {
	case client.NodeMacbook:
		m.Macbook = h
	case client.NodeGCPVM:
		m.GCPVM = h
	}
}

// SyncGenerator refreshes the sync state on a ticker and broadcasts it.
type SyncGenerator struct {
	state    *SyncState
	pub      Publisher
	prober   Prober
	interval time.Duration
	handover time.Duration
	now      func() time.Time

	lastHandover time.Time
}

// NewSyncGenerator creates a generator. handover <= 0 disables automatic
// handovers.
func NewSyncGenerator(state *SyncState, pub Publisher, prober Prober, interval, handover time.Duration) *SyncGenerator {
	if prober == nil {
		prober = HostProber{}
	}
	return &SyncGenerator{
		state:    state,
		pub:      pub,
		prober:   prober,
		interval: interval,
		handover: handover,
		now:      time.Now,
	}
}

// Start runs one refresh immediately and then ticks until ctx is done.
func (g *SyncGenerator) Start(ctx context.Context) {
	g.lastHandover = g.now()
	g.Tick(ctx)
	go g.run(ctx)
}

func (g *SyncGenerator) run(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Tick(ctx)
		}
	}
}

// Tick performs one refresh and broadcast.
func (g *SyncGenerator) Tick(ctx context.Context) {
	log := pslog.Ctx(ctx)
	now := g.now()

	st, err := g.prober.Probe(ctx)
	if err != nil {
		log.Warn("host probe failed", "err", err)
		g.state.Heartbeat(now, "", g.state.Snapshot().ActiveNode, client.HealthUnknown)
	} else {
		g.state.Heartbeat(now, st.Location, st.Node(), client.HealthOnline)
		log.Debug("host probed", "host", st.Hostname, "location", st.Location, "load1", st.Load1)
	}

	if g.handover > 0 {
		due := g.lastHandover.Add(g.handover)
		switch {
		case !now.Before(due):
			to := g.state.Handover(now, "scheduled")
			g.lastHandover = now
			log.Info("node handover", "active", to)
		case due.Sub(now) <= g.interval:
			g.state.SetPendingHandover(true)
		}
	}

	g.pub.Broadcast(server.SyncFrame(g.state.Snapshot()))
}
