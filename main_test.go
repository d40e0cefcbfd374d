package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vsh/internal/executor"
)

func TestResolveError(t *testing.T) {
	if got := resolveError(fmt.Errorf("pipe: %w", executor.ErrSpawnFailed)); got != executor.ExitSpawnFailed {
		t.Errorf("expected %d, got %d", executor.ExitSpawnFailed, got)
	}
	if got := resolveError(errors.New("bad config")); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("pipeline_policy: sideways\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := run([]string{"--config", path}); got != 1 {
		t.Errorf("expected exit 1, got %d", got)
	}
}

func TestRunRejectsArguments(t *testing.T) {
	if got := run([]string{"script.sh"}); got != 1 {
		t.Errorf("expected exit 1, got %d", got)
	}
}

func TestLongHelpListsBuiltins(t *testing.T) {
	help := longHelp()
	for _, name := range []string{"cd", "exit", "jobs", "pwd", "liberamoita", "armageddon"} {
		if !strings.Contains(help, "  "+name+" ") {
			t.Errorf("expected %s in help:\n%s", name, help)
		}
	}
}
