// Package config loads webmon configuration from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/eliteGoblin/focusd/web_mon/internal/infra"
	"github.com/eliteGoblin/focusd/web_mon/internal/policy"
)

// Config is the top-level webmon configuration.
type Config struct {
	DataDir         string        `yaml:"data_dir"`
	BlocklistFile   string        `yaml:"blocklist_file"`
	ScanInterval    time.Duration `yaml:"scan_interval"`
	NuclearInterval time.Duration `yaml:"nuclear_interval"`
	Log             LogConfig     `yaml:"log"`
	Host            HostConfig    `yaml:"host"`
}

// LogConfig controls daemon logging.
type LogConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
	File  string `yaml:"file"`  // empty = stdout only
}

// HostConfig controls how the host application is reached.
type HostConfig struct {
	ControlURL    string `yaml:"control_url"`  // ws:// URL or host:port; empty = discover by process
	ProcessName   string `yaml:"process_name"` // matched case-insensitively
	FieldSelector string `yaml:"field_selector"`
	ViewType      string `yaml:"view_type"`
}

// ErrExists is returned by Init when a config file is already present.
var ErrExists = errors.New("config file already exists")

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults(infra.DetectExecMode())
	return cfg
}

// ResolvePath returns path, or the execution mode's config path when empty.
func ResolvePath(path string) string {
	if path == "" {
		return infra.DetectExecMode().ConfigPath
	}
	return path
}

// Init writes the default configuration to path. An existing file is kept
// unless force is set. It returns the path written.
func Init(path string, force bool) (string, error) {
	path = ResolvePath(path)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return path, fmt.Errorf("%w: %s", ErrExists, path)
		}
	}
	if err := Default().Save(path); err != nil {
		return path, err
	}
	return path, nil
}

// Load reads the YAML file at path. A missing file yields defaults.
func Load(path string) (*Config, error) {
	mode := infra.DetectExecMode()
	path = ResolvePath(path)

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyDefaults(mode)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults(mode *infra.ExecModeConfig) {
	if c.DataDir == "" {
		c.DataDir = mode.DataDir
	}
	if c.BlocklistFile == "" {
		c.BlocklistFile = infra.DefaultBlocklistPath(c.DataDir)
	}
	if c.ScanInterval <= 0 {
		c.ScanInterval = policy.DefaultScanInterval
	}
	if c.NuclearInterval <= 0 {
		c.NuclearInterval = policy.DefaultNuclearInterval
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.File == "" {
		c.Log.File = filepath.Join(c.DataDir, "webmon.log")
	}
	if c.Host.ProcessName == "" {
		c.Host.ProcessName = "obsidian"
	}
	if c.Host.FieldSelector == "" {
		c.Host.FieldSelector = infra.DefaultFieldSelector
	}
	if c.Host.ViewType == "" {
		c.Host.ViewType = policy.DefaultViewType
	}
}

// Validate checks values that defaults cannot fix.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.ScanInterval < 10*time.Millisecond {
		return fmt.Errorf("scan_interval %s is too short", c.ScanInterval)
	}
	if c.NuclearInterval < time.Second {
		return fmt.Errorf("nuclear_interval %s is too short", c.NuclearInterval)
	}
	return nil
}

// LogLevel returns the parsed log level. Call after Validate.
func (c *Config) LogLevel() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return data, nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
