package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/tsukumogami/typoscan/internal/config"
)

// NewTestConfig points TYPOSCAN_HOME at a temporary directory, clears the
// environment overrides a developer may have set, and creates the layout.
func NewTestConfig(t *testing.T) *config.Config {
	t.Helper()
	home := t.TempDir()

	t.Setenv(config.EnvHome, home)
	for _, env := range []string{
		config.EnvThreshold,
		config.EnvCheckpointInterval,
		config.EnvWorkers,
		config.EnvAPITimeout,
		config.EnvIndexURL,
	} {
		t.Setenv(env, "")
	}

	cfg, err := config.DefaultConfig()
	if err != nil {
		t.Fatalf("failed to build config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("failed to create directories: %v", err)
	}
	return cfg
}

// WriteCorpus writes names as a plain JSON corpus in dir and returns its path.
func WriteCorpus(t *testing.T, dir string, names ...string) string {
	t.Helper()
	data, err := json.Marshal(names)
	if err != nil {
		t.Fatalf("failed to encode corpus: %v", err)
	}
	path := filepath.Join(dir, "pypi.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write corpus: %v", err)
	}
	return path
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// AssertFileExists checks if a file exists at the given path
func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if !FileExists(path) {
		t.Errorf("file does not exist: %s", path)
	}
}

// AssertFileNotExists checks if a file does NOT exist at the given path
func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if FileExists(path) {
		t.Errorf("file should not exist: %s", path)
	}
}
