package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/NicholasARossi/leetloop-sub000/internal/flagx"
	"github.com/NicholasARossi/leetloop-sub000/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies
// on timex.Duration so intervals can be given either as strings like "5m"
// or as integer nanoseconds. Parsed values are copied into the runtime
// Config.
type JsonConfig struct {
	APIBaseURL         string         `json:"api_base_url"`
	DatabasePath       string         `json:"database_path"`
	WebAppStatePath    string         `json:"webapp_state_path"`
	SyncInterval       timex.Duration `json:"sync_interval"`
	BridgePollInterval timex.Duration `json:"bridge_poll_interval"`
	RequestTimeout     timex.Duration `json:"request_timeout"`
}

// parseJson overlays cfg with values from the JSON file named by the -c or
// -config flag. If no file is named, nothing happens. Only fields actually
// present in the file override defaults.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.APIBaseURL != "" {
		cfg.APIBaseURL = jc.APIBaseURL
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.WebAppStatePath != "" {
		cfg.WebAppStatePath = jc.WebAppStatePath
	}
	if jc.SyncInterval.Duration > 0 {
		cfg.SyncInterval = time.Duration(jc.SyncInterval.Duration)
	}
	if jc.BridgePollInterval.Duration > 0 {
		cfg.BridgePollInterval = time.Duration(jc.BridgePollInterval.Duration)
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
}
