// Package userconfig provides user configuration management for typoscan.
// Configuration is stored in ~/.typoscan/config.toml and can be modified
// via the `typoscan config` command.
//
// Values here sit below environment variables and command-line flags:
// a flag beats TYPOSCAN_* which beats config.toml which beats the
// built-in default.
package userconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/tsukumogami/typoscan/internal/config"
)

// Config represents user-configurable settings. Zero values mean "not set".
type Config struct {
	// Threshold is the similarity above which a corpus name is reported.
	Threshold float64 `toml:"threshold,omitempty"`

	// CheckpointInterval is the number of candidates between result flushes.
	CheckpointInterval int `toml:"checkpoint_interval,omitempty"`

	// IndexURL is the package index `typoscan update` downloads from.
	IndexURL string `toml:"index_url,omitempty"`

	// ResultsFormat is "json" or "yaml".
	ResultsFormat string `toml:"results_format,omitempty"`

	// Secrets holds tokens under [secrets], keyed by canonical name.
	// Environment variables take precedence; see package secrets.
	Secrets map[string]string `toml:"secrets,omitempty"`
}

// SecretPrefix marks config keys that address the [secrets] table.
const SecretPrefix = "secrets."

// DefaultConfig returns a Config with nothing set.
func DefaultConfig() *Config {
	return &Config{}
}

// Load reads the config file and returns the configuration.
// Returns default values if the file doesn't exist.
// Returns an error only for file parsing issues, not missing files.
func Load() (*Config, error) {
	cfg, err := config.DefaultConfig()
	if err != nil {
		return DefaultConfig(), nil
	}

	return loadFromPath(cfg.ConfigFile)
}

// loadFromPath reads config from a specific file path (for testing).
func loadFromPath(path string) (*Config, error) {
	userCfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return userCfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if _, err := toml.Decode(string(data), userCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return userCfg, nil
}

// Save writes the configuration to the config file.
func (c *Config) Save() error {
	cfg, err := config.DefaultConfig()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	return c.saveToPath(cfg.ConfigFile)
}

// saveToPath writes config to a specific file path (for testing).
func (c *Config) saveToPath(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file may hold tokens under [secrets].
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Get returns the value of a config key as a string.
// Returns empty string and false if the key doesn't exist.
// A known key that is unset returns an empty string and true.
func (c *Config) Get(key string) (string, bool) {
	switch strings.ToLower(key) {
	case "threshold":
		if c.Threshold == 0 {
			return "", true
		}
		return strconv.FormatFloat(c.Threshold, 'f', -1, 64), true
	case "checkpoint_interval":
		if c.CheckpointInterval == 0 {
			return "", true
		}
		return strconv.Itoa(c.CheckpointInterval), true
	case "index_url":
		return c.IndexURL, true
	case "results_format":
		return c.ResultsFormat, true
	}
	if name, ok := strings.CutPrefix(strings.ToLower(key), SecretPrefix); ok && name != "" {
		// Secret values are never echoed back.
		if c.Secrets[name] != "" {
			return "(set)", true
		}
		return "", true
	}
	return "", false
}

// Set updates a config value from a string.
// Returns an error if the key doesn't exist or the value is invalid.
func (c *Config) Set(key, value string) error {
	switch strings.ToLower(key) {
	case "threshold":
		t, err := strconv.ParseFloat(value, 64)
		if err != nil || t <= 0 || t > 1 {
			return fmt.Errorf("invalid value for threshold: must be a number greater than 0 and at most 1")
		}
		c.Threshold = t
		return nil
	case "checkpoint_interval":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > config.MaxCheckpointInterval {
			return fmt.Errorf("invalid value for checkpoint_interval: must be an integer from 1 to %d", config.MaxCheckpointInterval)
		}
		c.CheckpointInterval = n
		return nil
	case "index_url":
		if !strings.HasPrefix(value, "https://") && !strings.HasPrefix(value, "http://") {
			return fmt.Errorf("invalid value for index_url: must be an http(s) URL")
		}
		c.IndexURL = value
		return nil
	case "results_format":
		switch v := strings.ToLower(value); v {
		case "json", "yaml":
			c.ResultsFormat = v
			return nil
		case "yml":
			c.ResultsFormat = "yaml"
			return nil
		}
		return fmt.Errorf("invalid value for results_format: must be json or yaml")
	}
	if name, ok := strings.CutPrefix(strings.ToLower(key), SecretPrefix); ok && name != "" {
		if value == "" {
			delete(c.Secrets, name)
			return nil
		}
		if c.Secrets == nil {
			c.Secrets = make(map[string]string)
		}
		c.Secrets[name] = value
		return nil
	}
	return fmt.Errorf("unknown config key: %s", key)
}

// AvailableKeys returns a list of all configurable keys with descriptions.
func AvailableKeys() map[string]string {
	return map[string]string{
		"threshold":           "Similarity above which names are reported (0 < t <= 1, default 0.8)",
		"checkpoint_interval": "Candidates scored between result checkpoints (default 100)",
		"index_url":           "Package index used by `typoscan update` (default https://pypi.org/simple/)",
		"results_format":      "Results file format when the extension doesn't say (json/yaml)",
	}
}

// SortedKeys returns AvailableKeys in lexical order.
func SortedKeys() []string {
	keys := make([]string, 0, 4)
	for k := range AvailableKeys() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EffectiveThreshold resolves the threshold. flag is used when set is
// true; otherwise TYPOSCAN_THRESHOLD, then config.toml, then the default.
// An unparsable TYPOSCAN_THRESHOLD is an error; range checks are left to
// the scanner so that every source is validated the same way.
func (c *Config) EffectiveThreshold(flag float64, set bool) (float64, error) {
	if set {
		return flag, nil
	}
	if v := os.Getenv(config.EnvThreshold); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q", config.EnvThreshold, v)
		}
		return t, nil
	}
	if c.Threshold != 0 {
		return c.Threshold, nil
	}
	return config.DefaultThreshold, nil
}

// EffectiveCheckpointInterval resolves the checkpoint interval with the
// same precedence as EffectiveThreshold.
func (c *Config) EffectiveCheckpointInterval(flag int, set bool) int {
	switch {
	case set:
		return flag
	case os.Getenv(config.EnvCheckpointInterval) != "":
		return config.GetCheckpointInterval()
	case c.CheckpointInterval != 0:
		return c.CheckpointInterval
	default:
		return config.DefaultCheckpointInterval
	}
}

// EffectiveIndexURL resolves the index URL with the same precedence as
// EffectiveThreshold.
func (c *Config) EffectiveIndexURL(flag string) string {
	switch {
	case flag != "":
		return flag
	case os.Getenv(config.EnvIndexURL) != "":
		return config.GetIndexURL()
	case c.IndexURL != "":
		return c.IndexURL
	default:
		return config.DefaultIndexURL
	}
}
