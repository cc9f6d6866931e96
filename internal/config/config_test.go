package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Client.URL != "ws://127.0.0.1:8080/ws" {
		t.Errorf("Client.URL = %q, want default", cfg.Client.URL)
	}
	if cfg.Client.UserID != "pwa_user" {
		t.Errorf("Client.UserID = %q, want pwa_user", cfg.Client.UserID)
	}
	if cfg.Client.ReconnectDelay != 3*time.Second {
		t.Errorf("Client.ReconnectDelay = %v, want 3s", cfg.Client.ReconnectDelay)
	}
	if cfg.Client.HeartbeatInterval != 30*time.Second {
		t.Errorf("Client.HeartbeatInterval = %v, want 30s", cfg.Client.HeartbeatInterval)
	}
	if cfg.Client.HistoryLimit != 20 {
		t.Errorf("Client.HistoryLimit = %d, want 20", cfg.Client.HistoryLimit)
	}
	if len(cfg.Agents) != 5 || cfg.Agents[0].Key != "CD" {
		t.Errorf("Agents = %v, want default roster", cfg.Agents)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
client:
  url: wss://chat.example.com/ws
  user_id: mina
  reconnect_delay: 500ms
agents:
  - key: OPS
    name: Operations
server:
  port: 9090
  think_delay: 2s
  allowed_origins:
    - https://chat.example.com
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Client.URL != "wss://chat.example.com/ws" {
		t.Errorf("Client.URL = %q", cfg.Client.URL)
	}
	if cfg.Client.UserID != "mina" {
		t.Errorf("Client.UserID = %q, want mina", cfg.Client.UserID)
	}
	if cfg.Client.ReconnectDelay != 500*time.Millisecond {
		t.Errorf("Client.ReconnectDelay = %v, want 500ms", cfg.Client.ReconnectDelay)
	}
	if len(cfg.Agents) != 1 || cfg.Agents[0].Name != "Operations" {
		t.Errorf("Agents = %v, want [OPS]", cfg.Agents)
	}
	if cfg.Server.Port != 9090 || cfg.Server.ThinkDelay != 2*time.Second {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if len(cfg.Server.AllowedOrigins) != 1 {
		t.Errorf("Server.AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}

	// Unspecified fields keep defaults.
	if cfg.Client.HeartbeatInterval != 30*time.Second {
		t.Errorf("Client.HeartbeatInterval = %v, want default", cfg.Client.HeartbeatInterval)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want default", cfg.Server.Host)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
client:
  user_id: from-file
`)
	t.Setenv("PULSE_CLIENT_USER_ID", "from-env")
	t.Setenv("PULSE_SERVER_SYNC_INTERVAL", "1m")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Client.UserID != "from-env" {
		t.Errorf("Client.UserID = %q, want from-env", cfg.Client.UserID)
	}
	if cfg.Server.SyncInterval != time.Minute {
		t.Errorf("Server.SyncInterval = %v, want 1m", cfg.Server.SyncInterval)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, ":::not valid yaml")
	if _, err := Load(path); err == nil {
		t.Fatal("Load() with invalid YAML should return error")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"http url", "client:\n  url: http://127.0.0.1:8080/ws", "client.url scheme"},
		{"no host", "client:\n  url: ws:///ws", "client.url"},
		{"empty user", "client:\n  user_id: \"  \"", "client.user_id"},
		{"bad http base", "client:\n  http_base: example.com", "client.http_base"},
		{"port", "server:\n  port: 70000", "server.port"},
		{"agent key", "agents:\n  - name: nameless", "agents[0].key"},
		{"zero heartbeat", "client:\n  heartbeat_interval: 0s", "client durations"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load() err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestWriteDefaultRespectsOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	written, err := WriteDefault(path, false)
	if err != nil {
		t.Fatalf("WriteDefault() error: %v", err)
	}
	if written != path {
		t.Fatalf("expected path %q, got %q", path, written)
	}
	if _, err := WriteDefault(path, false); err == nil {
		t.Fatal("expected error when config exists")
	}
	if _, err := WriteDefault(path, true); err != nil {
		t.Fatalf("expected overwrite to succeed: %v", err)
	}
}

func TestWriteDefaultLoadsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if _, err := WriteDefault(path, false); err != nil {
		t.Fatalf("WriteDefault() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "reconnect_delay: 3s") {
		t.Errorf("durations should be written as strings:\n%s", data)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	def := DefaultConfig()
	if cfg.Client != def.Client {
		t.Errorf("Client = %+v, want %+v", cfg.Client, def.Client)
	}
	if cfg.Server.ThinkDelay != def.Server.ThinkDelay || cfg.Server.SyncInterval != def.Server.SyncInterval {
		t.Errorf("Server durations = %v/%v", cfg.Server.ThinkDelay, cfg.Server.SyncInterval)
	}
	if len(cfg.Agents) != len(def.Agents) {
		t.Errorf("Agents = %v", cfg.Agents)
	}
}

func TestServerAddr(t *testing.T) {
	s := ServerConfig{Host: "0.0.0.0", Port: 9000}
	if got := s.Addr(); got != "0.0.0.0:9000" {
		t.Errorf("Addr() = %q", got)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
