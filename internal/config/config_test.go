package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8787", cfg.APIBaseURL)
	assert.Equal(t, "leetloop.db", cfg.DatabasePath)
	assert.Empty(t, cfg.WebAppStatePath)
	assert.Equal(t, 5*time.Minute, cfg.SyncInterval)
	assert.Equal(t, 2*time.Second, cfg.BridgePollInterval)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
}

func TestJsonConfig_ParsesDurationsAsStrings(t *testing.T) {
	var jc JsonConfig
	require.NoError(t, json.Unmarshal([]byte(`{
		"api_base_url": "https://api.example.com",
		"database_path": "/tmp/agent.db",
		"sync_interval": "90s",
		"request_timeout": "3s"
	}`), &jc))

	assert.Equal(t, "https://api.example.com", jc.APIBaseURL)
	assert.Equal(t, "/tmp/agent.db", jc.DatabasePath)
	assert.Equal(t, 90*time.Second, jc.SyncInterval.Duration)
	assert.Equal(t, 3*time.Second, jc.RequestTimeout.Duration)
}
