// Package config handles configuration loading and home directory resolution.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultAddr is the loopback address the control API binds to.
const DefaultAddr = "127.0.0.1:8420"

// Context source backends.
const (
	BackendAuto = "auto"
	BackendPush = "push"
	BackendPoll = "poll"
)

// Template is the starter config.yaml written by `homie init` and
// `homie config init`.
const Template = `# Homie configuration

# Control API listener. Keep it on loopback: anyone who can reach it can
# switch your devices.
server:
  addr: 127.0.0.1:8420

# Where the frontmost-app signal comes from.
# auto picks push on Hyprland, poll on X11.
context:
  backend: auto                 # auto | push | poll
  poll_interval: 1.5s

# How often to check whether the API port is reachable from the network.
probe:
  interval: 5m

logging:
  level: info                   # debug | info | warn | error
  format: text                  # text | json

# database:
#   path: /path/to/devices.db   # default: <home>/devices.db

# Devices and scenes registered in the local directory at startup.
# Existing device state survives a restart.
home:
  devices:
    - id: desk-lamp
      name: Desk Lamp
      room: Office
      type: light
      brightness: 80
  scenes:
    - name: Good Night
      actions:
        - device: desk-lamp
          on: false
`

// ---------------------------------------------------------------------------
// Config types
// ---------------------------------------------------------------------------

// ServerConfig holds the control API listener settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// ContextConfig selects and tunes the context source.
type ContextConfig struct {
	Backend      string        `yaml:"backend"` // "auto" | "push" | "poll"
	PollInterval time.Duration `yaml:"-"`
}

// ProbeConfig controls the port exposure check.
type ProbeConfig struct {
	Interval time.Duration `yaml:"-"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// DatabaseConfig points at the local device directory database.
type DatabaseConfig struct {
	Path string `yaml:"path"` // empty → <home>/devices.db
}

// DeviceSeed describes a device registered in the local directory at startup.
type DeviceSeed struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Room       string `yaml:"room"`
	Type       string `yaml:"type"`
	On         bool   `yaml:"on"`
	Brightness *int   `yaml:"brightness"`
}

// SceneActionSeed is one device change performed by a seeded scene.
type SceneActionSeed struct {
	Device     string `yaml:"device"`
	On         bool   `yaml:"on"`
	Brightness *int   `yaml:"brightness"`
}

// SceneSeed describes a scene registered in the local directory at startup.
type SceneSeed struct {
	ID      string            `yaml:"id"`
	Name    string            `yaml:"name"`
	Home    string            `yaml:"home"`
	Actions []SceneActionSeed `yaml:"actions"`
}

// HomeConfig seeds the local device directory.
type HomeConfig struct {
	Devices []DeviceSeed `yaml:"devices"`
	Scenes  []SceneSeed  `yaml:"scenes"`
}

// Config is the root daemon configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Context  ContextConfig  `yaml:"context"`
	Probe    ProbeConfig    `yaml:"probe"`
	Logging  LoggingConfig  `yaml:"logging"`
	Database DatabaseConfig `yaml:"database"`
	Home     HomeConfig     `yaml:"home"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Addr: DefaultAddr},
		Context: ContextConfig{Backend: BackendAuto, PollInterval: 1500 * time.Millisecond},
		Probe:   ProbeConfig{Interval: 5 * time.Minute},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads config.yaml from path.
// If the file does not exist it returns Default() with no error.
// Missing keys retain their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	// Unmarshal into a plain map so we can apply only the keys that are present.
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config.Load: parse %s: %w", path, err)
	}

	if srv, ok := raw["server"].(map[string]any); ok {
		if v, ok := srv["addr"].(string); ok && v != "" {
			cfg.Server.Addr = v
		}
	}

	if ctx, ok := raw["context"].(map[string]any); ok {
		if v, ok := ctx["backend"].(string); ok && v != "" {
			cfg.Context.Backend = strings.ToLower(v)
		}
		if v, ok := ctx["poll_interval"].(string); ok && v != "" {
			if cfg.Context.PollInterval, err = time.ParseDuration(v); err != nil {
				return nil, fmt.Errorf("config.Load: parsing context.poll_interval %q: %w", v, err)
			}
		}
	}

	if probe, ok := raw["probe"].(map[string]any); ok {
		if v, ok := probe["interval"].(string); ok && v != "" {
			if cfg.Probe.Interval, err = time.ParseDuration(v); err != nil {
				return nil, fmt.Errorf("config.Load: parsing probe.interval %q: %w", v, err)
			}
		}
	}

	if lg, ok := raw["logging"].(map[string]any); ok {
		if v, ok := lg["level"].(string); ok && v != "" {
			cfg.Logging.Level = strings.ToLower(v)
		}
		if v, ok := lg["format"].(string); ok && v != "" {
			cfg.Logging.Format = strings.ToLower(v)
		}
	}

	if db, ok := raw["database"].(map[string]any); ok {
		if v, ok := db["path"].(string); ok {
			cfg.Database.Path = v
		}
	}

	if _, ok := raw["home"]; ok {
		var seeds struct {
			Home HomeConfig `yaml:"home"`
		}
		if err := yaml.Unmarshal(data, &seeds); err != nil {
			return nil, fmt.Errorf("config.Load: parse home section: %w", err)
		}
		cfg.Home = seeds.Home
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return cfg, nil
}

// Validate checks field values that Load cannot repair.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		return fmt.Errorf("server.addr %q: %w", c.Server.Addr, err)
	}
	switch c.Context.Backend {
	case BackendAuto, BackendPush, BackendPoll:
	default:
		return fmt.Errorf("context.backend must be auto, push or poll (got %q)", c.Context.Backend)
	}
	if c.Context.PollInterval <= 0 {
		return fmt.Errorf("context.poll_interval must be positive")
	}
	if c.Probe.Interval <= 0 {
		return fmt.Errorf("probe.interval must be positive")
	}
	seen := make(map[string]bool, len(c.Home.Devices))
	for _, d := range c.Home.Devices {
		if d.ID == "" || d.Name == "" {
			return fmt.Errorf("home.devices: id and name are required")
		}
		if seen[d.ID] {
			return fmt.Errorf("home.devices: duplicate id %q", d.ID)
		}
		seen[d.ID] = true
	}
	for _, s := range c.Home.Scenes {
		if s.Name == "" {
			return fmt.Errorf("home.scenes: name is required")
		}
		for _, a := range s.Actions {
			if !seen[a.Device] {
				return fmt.Errorf("home.scenes: scene %q references unknown device %q", s.Name, a.Device)
			}
		}
	}
	return nil
}

// DatabasePath returns the configured database path, defaulting into home.
func (c *Config) DatabasePath(home string) string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(home, "devices.db")
}

// ---------------------------------------------------------------------------
// Home resolution
// ---------------------------------------------------------------------------

// globalConfigPath returns the path to the global homie config file.
// This file stores only the home location (and future global settings).
func globalConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "homie", "config.yaml"), nil
}

// normalizePath expands ~ and makes the path absolute.
func normalizePath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[2:])
	}
	return filepath.Abs(os.ExpandEnv(path))
}

// defaultHome is the per-user application directory.
func defaultHome() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "Homie")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".homie")
}

// ResolveHome returns the home path and the source of the resolution.
// Priority: HOMIE_HOME env → persisted global config → user config dir.
// source is one of "env", "config", or "default".
func ResolveHome() (path, source string) {
	if env := os.Getenv("HOMIE_HOME"); env != "" {
		p, err := normalizePath(env)
		if err == nil {
			return p, "env"
		}
	}

	if persisted, ok, _ := GetPersistedHome(); ok {
		return persisted, "config"
	}

	return defaultHome(), "default"
}

// GetHome returns the resolved home path.
func GetHome() string {
	path, _ := ResolveHome()
	return path
}

// GetPersistedHome reads home from the global config.
// Returns ("", false, nil) if not set.
func GetPersistedHome() (string, bool, error) {
	cfgPath, err := globalConfigPath()
	if err != nil {
		return "", false, err
	}

	data, err := os.ReadFile(cfgPath)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return "", false, nil
	}

	val, _ := raw["home"].(string)
	val = strings.TrimSpace(val)
	if val == "" {
		return "", false, nil
	}

	p, err := normalizePath(val)
	if err != nil {
		return "", false, err
	}
	return p, true, nil
}

// SetPersistedHome normalizes path and persists it in the global config.
// Returns the normalized path.
func SetPersistedHome(path string) (string, error) {
	normalized, err := normalizePath(path)
	if err != nil {
		return "", err
	}

	cfgPath, err := globalConfigPath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return "", err
	}

	// Read existing global config, preserving any other keys.
	var raw map[string]any
	if data, err := os.ReadFile(cfgPath); err == nil {
		_ = yaml.Unmarshal(data, &raw)
	}
	if raw == nil {
		raw = make(map[string]any)
	}
	raw["home"] = normalized

	out, err := yaml.Marshal(raw)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(cfgPath, out, 0o600); err != nil {
		return "", err
	}
	return normalized, nil
}

// ClearPersistedHome removes home from the global config.
// Returns true if the key was present and removed.
// If the file becomes empty after removal it is deleted.
func ClearPersistedHome() (bool, error) {
	cfgPath, err := globalConfigPath()
	if err != nil {
		return false, err
	}

	data, err := os.ReadFile(cfgPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return false, nil
	}

	if _, ok := raw["home"]; !ok {
		return false, nil
	}
	delete(raw, "home")

	if len(raw) == 0 {
		_ = os.Remove(cfgPath)
		return true, nil
	}

	out, err := yaml.Marshal(raw)
	if err != nil {
		return false, err
	}
	return true, os.WriteFile(cfgPath, out, 0o600)
}
