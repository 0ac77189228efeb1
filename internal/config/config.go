package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the network monitor.
type Config struct {
	// API server
	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool
	ActivateOnStart  bool

	// Capture scope and limits
	Domains      []string
	RulesFile    string
	MaxBodyBytes int
	Redact       bool
	// Redaction overrides the default rules when set by the rules file.
	Redaction *RedactionRules

	// JSONL export; disabled when ExportDir is empty
	ExportDir        string
	ExportMaxSizeMB  int
	ExportBufferSize int

	// Log snapshots; disabled when SnapshotDir is empty
	SnapshotDir string

	// Failure notifications; disabled when NotifyURL is empty
	NotifyURL string

	// Logging
	LogLevel string
	LogFile  string

	// Browser bridge
	CDPEnabled   bool
	CDPAddress   string
	CDPPort      int
	TabURLFilter string

	// Probe traffic; disabled when ProbeURL is empty
	ProbeURL        string
	ProbeIntervalMS int
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		BindAddr:         getEnvOrDefault("MONITOR_BIND_ADDR", "127.0.0.1:8190"),
		PortCandidates:   getEnvListOrDefault("MONITOR_PORT_CANDIDATES", []string{"127.0.0.1:8191", "127.0.0.1:8192"}),
		PortAutoFallback: getEnvBoolOrDefault("MONITOR_PORT_AUTO_FALLBACK", true),
		ActivateOnStart:  getEnvBoolOrDefault("MONITOR_ACTIVATE_ON_START", true),
		Domains:          getEnvListOrDefault("MONITOR_DOMAINS", []string{"events.launchdarkly.com"}),
		RulesFile:        getEnvOrDefault("MONITOR_RULES_FILE", ""),
		MaxBodyBytes:     getEnvIntOrDefault("MONITOR_MAX_BODY_BYTES", 1024*1024),
		Redact:           getEnvBoolOrDefault("MONITOR_REDACT", false),
		ExportDir:        getEnvOrDefault("MONITOR_EXPORT_DIR", ""),
		ExportMaxSizeMB:  getEnvIntOrDefault("MONITOR_EXPORT_MAX_SIZE_MB", 100),
		ExportBufferSize: getEnvIntOrDefault("MONITOR_EXPORT_BUFFER_SIZE", 1000),
		SnapshotDir:      getEnvOrDefault("MONITOR_SNAPSHOT_DIR", "snapshots"),
		NotifyURL:        getEnvOrDefault("MONITOR_NOTIFY_URL", ""),
		LogLevel:         strings.ToLower(getEnvOrDefault("MONITOR_LOG_LEVEL", "info")),
		LogFile:          getEnvOrDefault("MONITOR_LOG_FILE", "logs/netmonitor.log"),
		CDPEnabled:       getEnvBoolOrDefault("MONITOR_CDP_ENABLED", false),
		CDPAddress:       getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:          getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9220),
		TabURLFilter:     getEnvOrDefault("MONITOR_TAB_URL_FILTER", ""),
		ProbeURL:         getEnvOrDefault("MONITOR_PROBE_URL", ""),
		ProbeIntervalMS:  getEnvIntOrDefault("MONITOR_PROBE_INTERVAL_MS", 5000),
	}
	if cfg.ProbeIntervalMS < 100 {
		cfg.ProbeIntervalMS = 100
	}
	if cfg.ExportBufferSize < 1 {
		cfg.ExportBufferSize = 1
	}

	if cfg.RulesFile != "" {
		rules, err := LoadRules(cfg.RulesFile)
		if err != nil {
			return nil, err
		}
		rules.Apply(cfg)
	}

	return cfg, nil
}

// GetCDPURL returns the full CDP HTTP endpoint used by chromedp remote allocator.
func (c *Config) GetCDPURL() string {
	return fmt.Sprintf("http://%s:%d", c.CDPAddress, c.CDPPort)
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvListOrDefault splits a comma-separated variable, dropping blanks.
func getEnvListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
