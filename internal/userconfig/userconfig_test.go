package userconfig

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/tsukumogami/typoscan/internal/config"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Threshold != 0 || cfg.CheckpointInterval != 0 || cfg.IndexURL != "" || cfg.ResultsFormat != "" {
		t.Errorf("expected an empty default config, got %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := loadFromPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Threshold != 0 {
		t.Errorf("expected unset Threshold when file missing, got %v", cfg.Threshold)
	}
}

func TestLoadExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "threshold = 0.85\ncheckpoint_interval = 50\nresults_format = \"yaml\"\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	cfg, err := loadFromPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Threshold != 0.85 {
		t.Errorf("Threshold = %v, want 0.85", cfg.Threshold)
	}
	if cfg.CheckpointInterval != 50 {
		t.Errorf("CheckpointInterval = %d, want 50", cfg.CheckpointInterval)
	}
	if cfg.ResultsFormat != "yaml" {
		t.Errorf("ResultsFormat = %q, want yaml", cfg.ResultsFormat)
	}
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("this is not valid toml [[["), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	if _, err := loadFromPath(path); err == nil {
		t.Error("expected error for invalid TOML")
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "config.toml")

	cfg := &Config{
		Threshold: 0.9,
		IndexURL:  "https://mirror.example/simple/",
		Secrets:   map[string]string{"github_token": "ghp_saved"},
	}
	if err := cfg.saveToPath(path); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read saved file: %v", err)
	}
	if strings.Contains(string(data), "checkpoint_interval") {
		t.Errorf("unset keys should be omitted, got:\n%s", data)
	}

	loaded, err := loadFromPath(path)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if !reflect.DeepEqual(loaded, cfg) {
		t.Errorf("loaded %+v, want %+v", loaded, cfg)
	}
}

func TestLoadUsesHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv(config.EnvHome, home)

	cfg := &Config{CheckpointInterval: 7}
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, "config.toml")); err != nil {
		t.Fatalf("config.toml not written under TYPOSCAN_HOME: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if loaded.CheckpointInterval != 7 {
		t.Errorf("CheckpointInterval = %d, want 7", loaded.CheckpointInterval)
	}
}

func TestGetSet(t *testing.T) {
	tests := []struct {
		key   string
		value string
		want  string
	}{
		{"threshold", "0.75", "0.75"},
		{"THRESHOLD", "1", "1"},
		{"checkpoint_interval", "250", "250"},
		{"index_url", "https://mirror.example/simple/", "https://mirror.example/simple/"},
		{"results_format", "YML", "yaml"},
		{"results_format", "json", "json"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg := DefaultConfig()
			if err := cfg.Set(tt.key, tt.value); err != nil {
				t.Fatalf("Set(%q, %q) failed: %v", tt.key, tt.value, err)
			}
			got, ok := cfg.Get(tt.key)
			if !ok {
				t.Fatalf("Get(%q) reported unknown key", tt.key)
			}
			if got != tt.want {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestSetInvalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"threshold", "0"},
		{"threshold", "1.01"},
		{"threshold", "high"},
		{"checkpoint_interval", "0"},
		{"checkpoint_interval", "200000"},
		{"checkpoint_interval", "many"},
		{"index_url", "pypi.org/simple"},
		{"results_format", "xml"},
		{"telemetry", "true"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg := DefaultConfig()
			if err := cfg.Set(tt.key, tt.value); err == nil {
				t.Errorf("Set(%q, %q) should fail", tt.key, tt.value)
			}
			if !reflect.DeepEqual(cfg, DefaultConfig()) {
				t.Errorf("failed Set modified config: %+v", cfg)
			}
		})
	}
}

func TestGetUnknownAndUnset(t *testing.T) {
	cfg := DefaultConfig()
	if _, ok := cfg.Get("nonexistent"); ok {
		t.Error("Get(nonexistent) should report unknown key")
	}
	if v, ok := cfg.Get("threshold"); !ok || v != "" {
		t.Errorf("Get(threshold) on empty config = %q, %v; want \"\", true", v, ok)
	}
}

func TestAvailableKeys(t *testing.T) {
	keys := SortedKeys()
	want := []string{"checkpoint_interval", "index_url", "results_format", "threshold"}
	if strings.Join(keys, ",") != strings.Join(want, ",") {
		t.Errorf("SortedKeys() = %v, want %v", keys, want)
	}

	cfg := DefaultConfig()
	for _, k := range keys {
		if _, ok := cfg.Get(k); !ok {
			t.Errorf("listed key %q is not readable", k)
		}
	}
}

func TestEffectiveThreshold(t *testing.T) {
	cfg := &Config{Threshold: 0.85}

	t.Setenv(config.EnvThreshold, "")
	if got, err := cfg.EffectiveThreshold(0, false); err != nil || got != 0.85 {
		t.Errorf("config.toml value not used: %v, %v", got, err)
	}
	if got, _ := DefaultConfig().EffectiveThreshold(0, false); got != config.DefaultThreshold {
		t.Errorf("default not used: %v", got)
	}

	t.Setenv(config.EnvThreshold, "0.7")
	if got, _ := cfg.EffectiveThreshold(0, false); got != 0.7 {
		t.Errorf("environment should beat config.toml, got %v", got)
	}
	if got, _ := cfg.EffectiveThreshold(0.95, true); got != 0.95 {
		t.Errorf("flag should beat environment, got %v", got)
	}

	// Out of range values pass through so the scanner can reject them.
	t.Setenv(config.EnvThreshold, "1.5")
	if got, err := cfg.EffectiveThreshold(0, false); err != nil || got != 1.5 {
		t.Errorf("EffectiveThreshold() = %v, %v; want 1.5, nil", got, err)
	}

	t.Setenv(config.EnvThreshold, "high")
	if _, err := cfg.EffectiveThreshold(0, false); err == nil {
		t.Error("unparsable TYPOSCAN_THRESHOLD should be an error")
	}
}

func TestEffectiveCheckpointInterval(t *testing.T) {
	cfg := &Config{CheckpointInterval: 20}

	t.Setenv(config.EnvCheckpointInterval, "")
	if got := cfg.EffectiveCheckpointInterval(0, false); got != 20 {
		t.Errorf("got %d, want 20", got)
	}
	if got := DefaultConfig().EffectiveCheckpointInterval(0, false); got != config.DefaultCheckpointInterval {
		t.Errorf("got %d, want default", got)
	}

	t.Setenv(config.EnvCheckpointInterval, "30")
	if got := cfg.EffectiveCheckpointInterval(0, false); got != 30 {
		t.Errorf("got %d, want 30", got)
	}
	if got := cfg.EffectiveCheckpointInterval(2, true); got != 2 {
		t.Errorf("got %d, want 2", got)
	}
}

func TestEffectiveIndexURL(t *testing.T) {
	cfg := &Config{IndexURL: "https://toml.example/simple/"}

	t.Setenv(config.EnvIndexURL, "")
	if got := cfg.EffectiveIndexURL(""); got != "https://toml.example/simple/" {
		t.Errorf("got %q", got)
	}
	if got := DefaultConfig().EffectiveIndexURL(""); got != config.DefaultIndexURL {
		t.Errorf("got %q", got)
	}

	t.Setenv(config.EnvIndexURL, "https://env.example/simple/")
	if got := cfg.EffectiveIndexURL(""); got != "https://env.example/simple/" {
		t.Errorf("got %q", got)
	}
	if got := cfg.EffectiveIndexURL("https://flag.example/simple/"); got != "https://flag.example/simple/" {
		t.Errorf("got %q", got)
	}
}

func TestSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := DefaultConfig()

	if v, ok := cfg.Get("secrets.github_token"); !ok || v != "" {
		t.Errorf("unset secret: Get = %q, %v", v, ok)
	}
	if err := cfg.Set("secrets.github_token", "ghp_abc"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, _ := cfg.Get("secrets.github_token"); v != "(set)" {
		t.Errorf("Get should mask the value, got %q", v)
	}
	if err := cfg.saveToPath(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file mode = %o, want 600", perm)
	}

	loaded, err := loadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Secrets["github_token"] != "ghp_abc" {
		t.Errorf("secret not persisted: %+v", loaded.Secrets)
	}

	if err := loaded.Set("secrets.github_token", ""); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok := loaded.Secrets["github_token"]; ok {
		t.Error("empty value should remove the secret")
	}
	if err := loaded.Set("secrets.", "x"); err == nil {
		t.Error("expected an error for an empty secret name")
	}
}
