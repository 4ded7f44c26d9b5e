package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zarlcorp/core/pkg/zstore"
	"github.com/zarlcorp/vaayu/internal/config"
)

const nodeSettingsKey = "aptos"

// configEnvelope wraps a JSON-encoded config value so we can store
// heterogeneous config types in a single zstore collection.
type configEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// NodeSettings are the Aptos settings edited in the settings view. Empty
// fields fall back to the config file.
type NodeSettings struct {
	NodeURL       string `json:"node_url"`
	ModuleAddress string `json:"module_address"`
}

func (s NodeSettings) Configured() bool {
	return s.NodeURL != "" || s.ModuleAddress != ""
}

// Apply overlays the stored settings on base.
func (s NodeSettings) Apply(base config.AptosConfig) config.AptosConfig {
	if v := strings.TrimSpace(s.NodeURL); v != "" {
		base.NodeURL = v
	}
	if v := strings.TrimSpace(s.ModuleAddress); v != "" {
		base.ModuleAddress = v
	}
	return base
}

// loadConfig reads a typed config from the envelope collection.
func loadConfig[T any](col *zstore.Collection[configEnvelope], key string) T {
	var zero T
	if col == nil {
		return zero
	}

	env, err := col.Get(key)
	if err != nil {
		return zero
	}

	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		return zero
	}

	return v
}

// saveConfig persists a typed config into the envelope collection.
func saveConfig[T any](col *zstore.Collection[configEnvelope], key string, v T) error {
	if col == nil {
		return fmt.Errorf("settings store not open")
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return col.Put(key, configEnvelope{Data: data})
}
