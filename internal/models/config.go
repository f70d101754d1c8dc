package models

// StoredConfig is the user-facing settings record kept under the "config"
// storage key. It is distinct from the runtime config (file/flags): this
// one is mutated at runtime and survives restarts alongside the
// submission buffer.
type StoredConfig struct {
	Enabled     bool `json:"enabled"`
	CaptureCode bool `json:"capture_code"`
}

// DefaultStoredConfig is what a fresh profile starts with.
func DefaultStoredConfig() StoredConfig {
	return StoredConfig{Enabled: true}
}
