// Package config loads vaayu's YAML configuration and environment overlay.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const appName = "vaayu"

// DefaultNodeURL is the Aptos testnet fullnode REST endpoint.
const DefaultNodeURL = "https://fullnode.testnet.aptoslabs.com/v1"

var (
	ErrNoDataDir     = errors.New("data_dir is required")
	ErrNoNodeURL     = errors.New("aptos.node_url is required")
	ErrNoModule      = errors.New("aptos.module_address is required")
	ErrBadTimeout    = errors.New("aptos.timeout must be positive")
	ErrBadLogLevel   = errors.New("log.level must be debug, info, warn or error")
	ErrBadLogFormat  = errors.New("log.format must be text or json")
	ErrBadModuleAddr = errors.New("aptos.module_address must start with 0x")
)

type IdentityConfig struct {
	Email       string `yaml:"email"`
	ID          string `yaml:"id"`
	TokenFile   string `yaml:"token_file"`
	TokenSecret string `yaml:"token_secret"`
	Issuer      string `yaml:"issuer"`
}

type AptosConfig struct {
	NodeURL       string        `yaml:"node_url"`
	ModuleAddress string        `yaml:"module_address"`
	APIKey        string        `yaml:"api_key"`
	Timeout       time.Duration `yaml:"timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"` // empty means <data_dir>/vaayu.log for the TUI
}

type Config struct {
	DataDir  string         `yaml:"data_dir"`
	Identity IdentityConfig `yaml:"identity"`
	Aptos    AptosConfig    `yaml:"aptos"`
	Log      LogConfig      `yaml:"log"`
}

func DefaultConfig() *Config {
	return &Config{
		DataDir: DataDir(),
		Aptos: AptosConfig{
			NodeURL: DefaultNodeURL,
			Timeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML config file and merges it with defaults. A missing file
// is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.DataDir = expandHome(cfg.DataDir)
	cfg.Identity.TokenFile = expandHome(cfg.Identity.TokenFile)
	cfg.Log.File = expandHome(cfg.Log.File)

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays environment variables on top of config values.
func (c *Config) applyEnv() {
	overlay := []struct {
		name string
		dst  *string
	}{
		{"VAAYU_DATA_DIR", &c.DataDir},
		{"VAAYU_EMAIL", &c.Identity.Email},
		{"VAAYU_USER_ID", &c.Identity.ID},
		{"VAAYU_TOKEN_FILE", &c.Identity.TokenFile},
		{"VAAYU_TOKEN_SECRET", &c.Identity.TokenSecret},
		{"VAAYU_APTOS_NODE_URL", &c.Aptos.NodeURL},
		{"VAAYU_APTOS_MODULE_ADDRESS", &c.Aptos.ModuleAddress},
		{"VAAYU_APTOS_API_KEY", &c.Aptos.APIKey},
		{"VAAYU_LOG_LEVEL", &c.Log.Level},
	}

	for _, o := range overlay {
		if v := os.Getenv(o.name); v != "" {
			*o.dst = v
		}
	}
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	var errs []error

	if c.DataDir == "" {
		errs = append(errs, ErrNoDataDir)
	}
	if c.Aptos.Timeout <= 0 {
		errs = append(errs, ErrBadTimeout)
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, ErrBadLogLevel)
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, ErrBadLogFormat)
	}

	return errors.Join(errs...)
}

// Validate checks the settings needed to fetch a profile.
func (a AptosConfig) Validate() error {
	var errs []error

	if a.NodeURL == "" {
		errs = append(errs, ErrNoNodeURL)
	}
	switch {
	case a.ModuleAddress == "":
		errs = append(errs, ErrNoModule)
	case !strings.HasPrefix(a.ModuleAddress, "0x"):
		errs = append(errs, ErrBadModuleAddr)
	}
	if a.Timeout <= 0 {
		errs = append(errs, ErrBadTimeout)
	}

	return errors.Join(errs...)
}

// Path returns the config file location, honouring VAAYU_CONFIG and
// XDG_CONFIG_HOME.
func Path() string {
	if p := os.Getenv("VAAYU_CONFIG"); p != "" {
		return p
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName, "config.yaml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appName, "config.yaml")
}

// DataDir returns the default data directory, honouring XDG_DATA_HOME.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", appName)
}

// WalletDir is where the encrypted wallet store lives.
func (c *Config) WalletDir() string {
	return filepath.Join(c.DataDir, "wallets")
}

// SettingsDir is where the encrypted settings collection lives.
func (c *Config) SettingsDir() string {
	return filepath.Join(c.DataDir, "settings")
}

// LogPath returns the log file used when the terminal is taken by the TUI.
func (c *Config) LogPath() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(c.DataDir, appName+".log")
}

func expandHome(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, p[1:])
}
