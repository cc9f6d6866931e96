package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. PULSE_CLIENT_URL.
const EnvPrefix = "PULSE"

// Load reads configuration from path, layering defaults < file < env. A
// missing file is not an error. If path is empty, DefaultConfigPath is used.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("client.url", cfg.Client.URL)
	v.SetDefault("client.http_base", cfg.Client.HTTPBase)
	v.SetDefault("client.user_id", cfg.Client.UserID)
	v.SetDefault("client.history_limit", cfg.Client.HistoryLimit)
	v.SetDefault("client.reconnect_delay", cfg.Client.ReconnectDelay)
	v.SetDefault("client.heartbeat_interval", cfg.Client.HeartbeatInterval)
	v.SetDefault("client.write_timeout", cfg.Client.WriteTimeout)
	v.SetDefault("agents", cfg.Agents)
	v.SetDefault("ui.log_file", cfg.UI.LogFile)
	v.SetDefault("ui.markdown", cfg.UI.Markdown)
	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.allowed_origins", cfg.Server.AllowedOrigins)
	v.SetDefault("server.think_delay", cfg.Server.ThinkDelay)
	v.SetDefault("server.sync_interval", cfg.Server.SyncInterval)
	v.SetDefault("server.handover_interval", cfg.Server.HandoverInterval)
	v.SetDefault("server.history_cap", cfg.Server.HistoryCap)
	v.SetDefault("server.error_trigger", cfg.Server.ErrorTrigger)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	cfg.UI.LogFile = os.ExpandEnv(cfg.UI.LogFile)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WriteDefault writes the default config to path and returns the path
// written. An existing file is only replaced when overwrite is set.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
