package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeevan-health/triage/internal/connectivity"
	"github.com/jeevan-health/triage/internal/scheduler"
)

// Config holds server and agent configuration.
// Priority: flags > env vars > settings.yaml > defaults.
type Config struct {
	ListenAddr     string        `yaml:"listen_addr"`
	DBPath         string        `yaml:"db_path"`
	AgentDBPath    string        `yaml:"agent_db_path"`
	AgentAddr      string        `yaml:"agent_addr,omitempty"`
	ServerURL      string        `yaml:"server_url"`
	LogLevel       string        `yaml:"log_level"`
	LogFormat      string        `yaml:"log_format"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	PollSchedule   string        `yaml:"poll_schedule"`
	ProbeHost      string        `yaml:"probe_host"`
	Operator       string        `yaml:"operator,omitempty"`
}

func defaultConfig() Config {
	return Config{
		ListenAddr:     ":3000",
		DBPath:         filepath.Join(triageDir(), "server.db"),
		AgentDBPath:    filepath.Join(triageDir(), "agent.db"),
		ServerURL:      "http://localhost:3000",
		LogLevel:       "info",
		LogFormat:      "text",
		RequestTimeout: 5 * time.Second,
		PollSchedule:   scheduler.DefaultSchedule,
		ProbeHost:      connectivity.DefaultHost,
	}
}

func triageDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".triage"
	}
	return filepath.Join(home, ".triage")
}

func settingsPath() string {
	return filepath.Join(triageDir(), "settings.yaml")
}

func pidPath() string {
	return filepath.Join(triageDir(), "triage.pid")
}

// loadConfig layers settings.yaml and the environment over the defaults.
// A missing settings file is not an error; a malformed one is.
func loadConfig() (Config, error) {
	return loadConfigFrom(settingsPath(), os.Getenv)
}

func loadConfigFrom(path string, getenv func(string) string) (Config, error) {
	cfg := defaultConfig()

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if v := getenv("TRIAGE_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := getenv("TRIAGE_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := getenv("TRIAGE_AGENT_DB_PATH"); v != "" {
		cfg.AgentDBPath = v
	}
	if v := getenv("TRIAGE_AGENT_ADDR"); v != "" {
		cfg.AgentAddr = v
	}
	if v := getenv("TRIAGE_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := getenv("TRIAGE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("TRIAGE_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := getenv("TRIAGE_REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("TRIAGE_REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}
	if v := getenv("TRIAGE_POLL_SCHEDULE"); v != "" {
		cfg.PollSchedule = v
	}
	if v := getenv("TRIAGE_PROBE_HOST"); v != "" {
		cfg.ProbeHost = v
	}
	if v := getenv("TRIAGE_OPERATOR"); v != "" {
		cfg.Operator = v
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}
	return cfg, nil
}

// writeConfig persists cfg as settings.yaml.
func writeConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// configDiff describes what changed between two configurations.
type configDiff struct {
	LogLevelChanged bool
	RestartNeeded   []string // fields that only apply after a restart
}

func diffConfigs(old, new Config) configDiff {
	var d configDiff
	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
	}
	if old.ListenAddr != new.ListenAddr {
		d.RestartNeeded = append(d.RestartNeeded, "listen_addr")
	}
	if old.DBPath != new.DBPath {
		d.RestartNeeded = append(d.RestartNeeded, "db_path")
	}
	if old.LogFormat != new.LogFormat {
		d.RestartNeeded = append(d.RestartNeeded, "log_format")
	}
	if old.ProbeHost != new.ProbeHost {
		d.RestartNeeded = append(d.RestartNeeded, "probe_host")
	}
	return d
}
