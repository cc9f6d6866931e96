package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config is the on-disk configuration for both the console and the
// development backend.
type Config struct {
	Client ClientConfig `mapstructure:"client" yaml:"client"`
	Agents []Agent      `mapstructure:"agents" yaml:"agents"`
	UI     UIConfig     `mapstructure:"ui" yaml:"ui"`
	Server ServerConfig `mapstructure:"server" yaml:"server"`
}

// ClientConfig configures the connection manager and history loading.
type ClientConfig struct {
	URL               string        `mapstructure:"url" yaml:"url"`
	HTTPBase          string        `mapstructure:"http_base" yaml:"http_base"`
	UserID            string        `mapstructure:"user_id" yaml:"user_id"`
	HistoryLimit      int           `mapstructure:"history_limit" yaml:"history_limit"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay" yaml:"reconnect_delay"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval" yaml:"heartbeat_interval"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// Agent is a roster entry.
type Agent struct {
	Key  string `mapstructure:"key" yaml:"key"`
	Name string `mapstructure:"name" yaml:"name"`
}

// UIConfig configures the console.
type UIConfig struct {
	// LogFile receives structured logs while the console owns the terminal.
	LogFile  string `mapstructure:"log_file" yaml:"log_file"`
	Markdown bool   `mapstructure:"markdown" yaml:"markdown"`
}

// ServerConfig configures the development backend.
type ServerConfig struct {
	Host             string        `mapstructure:"host" yaml:"host"`
	Port             int           `mapstructure:"port" yaml:"port"`
	AllowedOrigins   []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	ThinkDelay       time.Duration `mapstructure:"think_delay" yaml:"think_delay"`
	SyncInterval     time.Duration `mapstructure:"sync_interval" yaml:"sync_interval"`
	HandoverInterval time.Duration `mapstructure:"handover_interval" yaml:"handover_interval"`
	HistoryCap       int           `mapstructure:"history_cap" yaml:"history_cap"`
	ErrorTrigger     string        `mapstructure:"error_trigger" yaml:"error_trigger"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() Config {
	return Config{
		Client: ClientConfig{
			URL:               "ws://127.0.0.1:8080/ws",
			UserID:            "pwa_user",
			HistoryLimit:      20,
			ReconnectDelay:    3 * time.Second,
			HeartbeatInterval: 30 * time.Second,
			WriteTimeout:      10 * time.Second,
		},
		Agents: []Agent{
			{Key: "CD", Name: "Creative Director"},
			{Key: "SA", Name: "Strategy Analyst"},
			{Key: "TD", Name: "Technical Director"},
			{Key: "CE", Name: "Chief Editor"},
			{Key: "AD", Name: "Art Director"},
		},
		UI: UIConfig{
			LogFile:  DefaultLogPath(),
			Markdown: true,
		},
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8080,
			ThinkDelay:   1500 * time.Millisecond,
			SyncInterval: 10 * time.Second,
			HistoryCap:   200,
			ErrorTrigger: "!fail",
		},
	}
}

// DefaultConfigPath returns ~/.pulse/config.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".pulse", "config.yaml"), nil
}

// DefaultLogPath returns the console log location, falling back to the
// temp dir when no home directory is available.
func DefaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), "pulse.log")
	}
	return filepath.Join(home, ".pulse", "pulse.log")
}

// Validate checks values that would otherwise fail late at dial or listen time.
func (c Config) Validate() error {
	u, err := url.Parse(strings.TrimSpace(c.Client.URL))
	if err != nil || u.Host == "" {
		return fmt.Errorf("client.url must include scheme and host (e.g. ws://127.0.0.1:8080/ws)")
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("client.url scheme must be ws or wss, got %q", u.Scheme)
	}
	if base := strings.TrimSpace(c.Client.HTTPBase); base != "" {
		parsed, err := url.Parse(base)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("client.http_base must include scheme and host (e.g. http://127.0.0.1:8080)")
		}
	}
	if strings.TrimSpace(c.Client.UserID) == "" {
		return fmt.Errorf("client.user_id is required")
	}
	if c.Client.HistoryLimit < 0 {
		return fmt.Errorf("client.history_limit must not be negative")
	}
	if c.Client.ReconnectDelay <= 0 || c.Client.HeartbeatInterval <= 0 || c.Client.WriteTimeout <= 0 {
		return fmt.Errorf("client durations must be positive")
	}
	for i, a := range c.Agents {
		if strings.TrimSpace(a.Key) == "" {
			return fmt.Errorf("agents[%d].key is required", i)
		}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.SyncInterval <= 0 {
		return fmt.Errorf("server.sync_interval must be positive")
	}
	if c.Server.ThinkDelay < 0 || c.Server.HandoverInterval < 0 {
		return fmt.Errorf("server durations must not be negative")
	}
	return nil
}

// MarshalYAML writes durations as Go duration strings.
func (c ClientConfig) MarshalYAML() (interface{}, error) {
	return struct {
		URL               string `yaml:"url"`
		HTTPBase          string `yaml:"http_base"`
		UserID            string `yaml:"user_id"`
		HistoryLimit      int    `yaml:"history_limit"`
		ReconnectDelay    string `yaml:"reconnect_delay"`
		HeartbeatInterval string `yaml:"heartbeat_interval"`
		WriteTimeout      string `yaml:"write_timeout"`
	}{
		URL:               c.URL,
		HTTPBase:          c.HTTPBase,
		UserID:            c.UserID,
		HistoryLimit:      c.HistoryLimit,
		ReconnectDelay:    c.ReconnectDelay.String(),
		HeartbeatInterval: c.HeartbeatInterval.String(),
		WriteTimeout:      c.WriteTimeout.String(),
	}, nil
}

// MarshalYAML writes durations as Go duration strings.
func (s ServerConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Host             string   `yaml:"host"`
		Port             int      `yaml:"port"`
		AllowedOrigins   []string `yaml:"allowed_origins"`
		ThinkDelay       string   `yaml:"think_delay"`
		SyncInterval     string   `yaml:"sync_interval"`
		HandoverInterval string   `yaml:"handover_interval"`
		HistoryCap       int      `yaml:"history_cap"`
		ErrorTrigger     string   `yaml:"error_trigger"`
	}{
		Host:             s.Host,
		Port:             s.Port,
		AllowedOrigins:   s.AllowedOrigins,
		ThinkDelay:       s.ThinkDelay.String(),
		SyncInterval:     s.SyncInterval.String(),
		HandoverInterval: s.HandoverInterval.String(),
		HistoryCap:       s.HistoryCap,
		ErrorTrigger:     s.ErrorTrigger,
	}, nil
}
