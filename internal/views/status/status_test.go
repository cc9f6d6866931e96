package status

import (
	"strings"
	"testing"

	"github.com/layer97/pulse/internal/client"
)

func TestLabel(t *testing.T) {
	tests := []struct {
		status client.Status
		want   string
	}{
		{client.StatusOpen, "Real-time Connected"},
		{client.StatusConnecting, "Connecting..."},
		{client.StatusClosing, "Closing..."},
		{client.StatusClosed, "Disconnected"},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := Label(tt.status); !strings.Contains(got, tt.want) {
				t.Errorf("Label(%q) = %q, want containing %q", tt.status, got, tt.want)
			}
		})
	}
}

func TestOpenClearsConnectError(t *testing.T) {
	m := New("ws://127.0.0.1:8080/ws", "pwa_user")
	m.ConnectErr = "dial refused"
	m.SetStatus(client.StatusConnecting)
	if m.ConnectErr == "" {
		t.Fatal("connecting should keep the previous error visible")
	}
	m.SetStatus(client.StatusOpen)
	if m.ConnectErr != "" {
		t.Errorf("ConnectErr = %q after open, want empty", m.ConnectErr)
	}
}

func TestViewShowsState(t *testing.T) {
	m := New("ws://127.0.0.1:8080/ws", "pwa_user")
	m.Width = 120
	m.Active = "Technical Director"
	m.ConnectErr = "dial refused"

	v := m.View()
	for _, want := range []string{"Disconnected", "pwa_user", "Technical Director working", "dial refused"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q:\n%s", want, v)
		}
	}
}
