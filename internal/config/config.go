// Package config loads runtime settings for the capture agent.
package config

import "time"

// Config holds runtime settings shared by the agent daemon and the CLI.
//
// Fields:
//   - APIBaseURL: base URL of the capture backend.
//   - DatabasePath: path of the local SQLite store.
//   - WebAppStatePath: path of the companion web app's exported session
//     state file; empty disables the session bridge.
//   - SyncInterval: cadence of the unconditional background sync.
//   - BridgePollInterval: how often the bridge re-checks the state file.
//   - RequestTimeout: per-request timeout for backend calls. A call that
//     exceeds it is treated as failed and retried on the next trigger.
type Config struct {
	APIBaseURL         string
	DatabasePath       string
	WebAppStatePath    string
	SyncInterval       time.Duration
	BridgePollInterval time.Duration
	RequestTimeout     time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8787"
	c.DatabasePath = "leetloop.db"
	c.WebAppStatePath = ""
	c.SyncInterval = 5 * time.Minute
	c.BridgePollInterval = 2 * time.Second
	c.RequestTimeout = 10 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present). Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
