package health

import (
	"strings"
	"testing"
	"time"

	"github.com/layer97/pulse/internal/client"
	"github.com/layer97/pulse/internal/projection"
)

func TestRelative(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		ts   string
		want string
	}{
		{"empty", "", "Never"},
		{"garbage", "yesterday", "yesterday"},
		{"seconds", "2025-03-01T11:59:15Z", "45초 전"},
		{"future clamps", "2025-03-01T12:00:05Z", "0초 전"},
		{"minutes", "2025-03-01T11:50:00Z", "10분 전"},
		{"hours", "2025-03-01T09:00:00Z", "3시간 전"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Relative(tt.ts, now); got != tt.want {
				t.Errorf("Relative(%q) = %q, want %q", tt.ts, got, tt.want)
			}
		})
	}
}

func TestRelativeOlderThanDayIsAbsolute(t *testing.T) {
	now := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)
	got := Relative("2025-03-01T09:00:00Z", now)
	if strings.Contains(got, "전") {
		t.Errorf("Relative() = %q, want absolute time", got)
	}
	if !strings.HasPrefix(got, "2025. ") {
		t.Errorf("Relative() = %q, want ko-KR style date", got)
	}
}

func TestViewLoading(t *testing.T) {
	m := New()
	m.Width = 80
	if v := m.View(time.Now()); !strings.Contains(v, "Loading system state") {
		t.Errorf("view without snapshot should show loading:\n%s", v)
	}
}

func TestViewSnapshot(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m := New()
	m.Width = 100
	m.State = projection.HealthState{
		Sync: &client.SyncSnapshot{
			LastSync:        "2025-03-01T11:59:30Z",
			Location:        "GCP_VM",
			ActiveNode:      client.NodeGCPVM,
			Health:          client.NodeHealthMap{Macbook: client.HealthOffline, GCPVM: "degraded"},
			LastHeartbeat:   "2025-03-01T11:58:00Z",
			PendingHandover: true,
		},
		ReceivedAt: now,
	}

	v := m.View(now)
	for _, want := range []string{"GCP VM", "GCP_VM", "offline", "unknown", "30초 전", "2분 전", "Handover pending", "ACTIVE", "Last updated"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q:\n%s", want, v)
		}
	}
	if strings.Contains(v, "degraded") {
		t.Error("unrecognised health should render as unknown")
	}
}

func TestNodeLabel(t *testing.T) {
	if got := NodeLabel(client.NodeMacbook); got != "MacBook" {
		t.Errorf("NodeLabel(macbook) = %q", got)
	}
	if got := NodeLabel(""); got != "unknown" {
		t.Errorf("NodeLabel(\"\") = %q", got)
	}
	if got := NodeLabel("edge"); got != "edge" {
		t.Errorf("NodeLabel(edge) = %q", got)
	}
}
