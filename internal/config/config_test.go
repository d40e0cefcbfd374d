package config

import (
	"os"
	"path/filepath"
	"testing"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.PipelinePolicy != DetachedSession {
		t.Errorf("expected detached-session default, got %s", cfg.PipelinePolicy)
	}
	if cfg.Prompt.ShellName != "vsh" {
		t.Errorf("expected shell name vsh, got %q", cfg.Prompt.ShellName)
	}
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		env    map[string]string
		debug  bool
		policy PipelinePolicy
	}{
		{map[string]string{}, false, DetachedSession},
		{map[string]string{"DEBUG": "true"}, true, DetachedSession},
		{map[string]string{"DEBUG": "1"}, true, DetachedSession},
		{map[string]string{"DEBUG": "yes"}, false, DetachedSession},
		{map[string]string{"SHELL_TYPE": "DEFAULT"}, false, ForegroundCapable},
		{map[string]string{"SHELL_TYPE": "PROJECT"}, false, DetachedSession},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		if err := cfg.ApplyEnv(envOf(tt.env)); err != nil {
			t.Fatal(err)
		}
		if cfg.Debug != tt.debug {
			t.Errorf("%v: expected debug %t, got %t", tt.env, tt.debug, cfg.Debug)
		}
		if cfg.PipelinePolicy != tt.policy {
			t.Errorf("%v: expected %s, got %s", tt.env, tt.policy, cfg.PipelinePolicy)
		}
	}
}

func TestDebugRaisesLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyEnv(envOf(map[string]string{"DEBUG": "1"}))
	if cfg.Log.Level != "debug" {
		t.Errorf("expected debug log level, got %q", cfg.Log.Level)
	}
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
pipeline_policy: foreground-capable
prompt:
  shell_name: mysh
log:
  format: json
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PipelinePolicy != ForegroundCapable {
		t.Errorf("expected foreground-capable, got %s", cfg.PipelinePolicy)
	}
	if cfg.Prompt.ShellName != "mysh" {
		t.Errorf("expected mysh, got %q", cfg.Prompt.ShellName)
	}
	if !cfg.Prompt.Color {
		t.Error("unset color should keep the default")
	}
	if cfg.Log.Format != "json" {
		t.Errorf("expected json, got %q", cfg.Log.Format)
	}
}

func TestLoadFromTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
debug = true
pipeline_policy = "detached-session"

[prompt]
shell_name = "tsh"
color = false
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("expected debug")
	}
	if cfg.Prompt.ShellName != "tsh" || cfg.Prompt.Color {
		t.Errorf("unexpected prompt config %+v", cfg.Prompt)
	}
}

func TestLoadFromBadPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("pipeline_policy: sideways\n"), 0o600)
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("pipeline_policy: detached-session\n"), 0o600)
	cfg, err := Load("", envOf(map[string]string{
		"VSH_CONFIG": path,
		"SHELL_TYPE": "DEFAULT",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PipelinePolicy != ForegroundCapable {
		t.Errorf("expected env to win, got %s", cfg.PipelinePolicy)
	}
}

func TestLoadMissingExplicitPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), envOf(nil))
	if err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestParsePipelinePolicy(t *testing.T) {
	for in, want := range map[string]PipelinePolicy{
		"DEFAULT":            ForegroundCapable,
		"foreground-capable": ForegroundCapable,
		"detached-session":   DetachedSession,
	} {
		got, err := ParsePipelinePolicy(in)
		if err != nil {
			t.Errorf("%q: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("%q: expected %s, got %s", in, want, got)
		}
	}
}
