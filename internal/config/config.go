package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	EnvDebug     = "DEBUG"
	EnvShellType = "SHELL_TYPE"
	EnvConfig    = "VSH_CONFIG"
)

// PipelinePolicy selects how pipelines are placed into processes.
type PipelinePolicy int

const (
	// DetachedSession runs every pipeline in a new session, as a job the
	// shell never waits for.
	DetachedSession PipelinePolicy = iota
	// ForegroundCapable spawns pipeline members from the shell and waits
	// for them unless the group is marked background.
	ForegroundCapable
)

func (p PipelinePolicy) String() string {
	switch p {
	case DetachedSession:
		return "detached-session"
	case ForegroundCapable:
		return "foreground-capable"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePipelinePolicy accepts the policy names and the SHELL_TYPE value
// DEFAULT, which selects the conventional foreground behavior.
func ParsePipelinePolicy(s string) (PipelinePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "detached-session", "detached", "project":
		return DetachedSession, nil
	case "foreground-capable", "foreground", "default":
		return ForegroundCapable, nil
	default:
		return 0, fmt.Errorf("unknown pipeline policy: %q", s)
	}
}

func (p PipelinePolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *PipelinePolicy) UnmarshalText(text []byte) error {
	v, err := ParsePipelinePolicy(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

type Config struct {
	Debug          bool           `yaml:"debug" toml:"debug"`
	PipelinePolicy PipelinePolicy `yaml:"pipeline_policy" toml:"pipeline_policy"`
	Prompt         PromptConfig   `yaml:"prompt" toml:"prompt"`
	Log            LogConfig      `yaml:"log" toml:"log"`
}

type PromptConfig struct {
	ShellName string `yaml:"shell_name" toml:"shell_name"`
	// Color disables styling when false.
	Color bool `yaml:"color" toml:"color"`
}

type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" toml:"level"`
	// Format is text or json.
	Format string `yaml:"format" toml:"format"`
}

func DefaultConfig() *Config {
	return &Config{
		PipelinePolicy: DetachedSession,
		Prompt: PromptConfig{
			ShellName: "vsh",
			Color:     true,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Load reads the config file named by path, $VSH_CONFIG or the standard
// location, in that order, then applies environment overrides. A missing
// standard file yields the defaults.
func Load(path string, getenv func(string) string) (*Config, error) {
	if path == "" {
		path = getenv(EnvConfig)
	}
	var (
		cfg *Config
		err error
	)
	if path != "" {
		cfg, err = LoadFrom(path)
	} else {
		cfg, err = loadStandard()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadStandard() (*Config, error) {
	dir := ConfigDir()
	if dir == "" {
		return DefaultConfig(), nil
	}
	for _, name := range []string{"config.yaml", "config.yml", "config.toml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFrom(path)
		}
	}
	return DefaultConfig(), nil
}

// LoadFrom reads the config at path; the extension picks the format.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("parse config %s: unsupported format %q", path, filepath.Ext(path))
	}
	return cfg, nil
}

// ApplyEnv overrides the config from DEBUG and SHELL_TYPE.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvDebug); v != "" {
		c.Debug = v == "true" || v == "1"
	}
	if v := getenv(EnvShellType); v != "" {
		if strings.EqualFold(v, "DEFAULT") {
			c.PipelinePolicy = ForegroundCapable
		} else {
			c.PipelinePolicy = DetachedSession
		}
	}
	if c.Debug {
		c.Log.Level = "debug"
	}
	return nil
}

// ConfigDir is ~/.config/vsh, or empty when the home is unknown.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "vsh")
}
