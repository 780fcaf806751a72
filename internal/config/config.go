package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"
)

const (
	// EnvHome is the environment variable to override the default typoscan home directory
	EnvHome = "TYPOSCAN_HOME"

	// EnvThreshold is the environment variable to configure the similarity threshold
	EnvThreshold = "TYPOSCAN_THRESHOLD"

	// EnvCheckpointInterval is the environment variable to configure how many
	// candidates are scored between checkpoints
	EnvCheckpointInterval = "TYPOSCAN_CHECKPOINT_INTERVAL"

	// EnvWorkers is the environment variable to configure the worker pool size
	EnvWorkers = "TYPOSCAN_WORKERS"

	// EnvAPITimeout is the environment variable to configure network request timeout
	EnvAPITimeout = "TYPOSCAN_API_TIMEOUT"

	// EnvIndexURL is the environment variable to override the package index URL
	EnvIndexURL = "TYPOSCAN_INDEX_URL"

	// DefaultThreshold is the default similarity threshold
	DefaultThreshold = 0.8

	// DefaultCheckpointInterval is the default number of candidates between checkpoints
	DefaultCheckpointInterval = 100

	// MaxCheckpointInterval bounds TYPOSCAN_CHECKPOINT_INTERVAL
	MaxCheckpointInterval = 100000

	// DefaultAPITimeout is the default timeout for network requests (60 seconds).
	// The PyPI simple index is large, so this is higher than a typical API call.
	DefaultAPITimeout = 60 * time.Second

	// DefaultIndexURL is the PyPI simple index
	DefaultIndexURL = "https://pypi.org/simple/"
)

// GetThreshold returns the similarity threshold from TYPOSCAN_THRESHOLD.
// If not set or invalid, returns DefaultThreshold (0.8).
// The value must lie in (0, 1]; anything else is rejected rather than clamped.
func GetThreshold() float64 {
	envValue := os.Getenv(EnvThreshold)
	if envValue == "" {
		return DefaultThreshold
	}

	t, err := strconv.ParseFloat(envValue, 64)
	if err != nil || t <= 0 || t > 1 {
		fmt.Fprintf(os.Stderr, "Warning: invalid %s value %q, using default %v\n",
			EnvThreshold, envValue, DefaultThreshold)
		return DefaultThreshold
	}

	return t
}

// GetCheckpointInterval returns the checkpoint interval from TYPOSCAN_CHECKPOINT_INTERVAL.
// If not set or invalid, returns DefaultCheckpointInterval (100).
func GetCheckpointInterval() int {
	envValue := os.Getenv(EnvCheckpointInterval)
	if envValue == "" {
		return DefaultCheckpointInterval
	}

	n, err := strconv.Atoi(envValue)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid %s value %q, using default %d\n",
			EnvCheckpointInterval, envValue, DefaultCheckpointInterval)
		return DefaultCheckpointInterval
	}

	if n < 1 {
		fmt.Fprintf(os.Stderr, "Warning: %s too low (%d), using minimum 1\n",
			EnvCheckpointInterval, n)
		return 1
	}
	if n > MaxCheckpointInterval {
		fmt.Fprintf(os.Stderr, "Warning: %s too high (%d), using maximum %d\n",
			EnvCheckpointInterval, n, MaxCheckpointInterval)
		return MaxCheckpointInterval
	}

	return n
}

// GetWorkers returns the worker pool size from TYPOSCAN_WORKERS.
// If not set or invalid, returns the number of CPUs.
func GetWorkers() int {
	defaultWorkers := runtime.NumCPU()
	envValue := os.Getenv(EnvWorkers)
	if envValue == "" {
		return defaultWorkers
	}

	n, err := strconv.Atoi(envValue)
	if err != nil || n < 1 {
		fmt.Fprintf(os.Stderr, "Warning: invalid %s value %q, using default %d\n",
			EnvWorkers, envValue, defaultWorkers)
		return defaultWorkers
	}

	// More workers than this only adds scheduling overhead for CPU-bound work.
	if limit := 4 * defaultWorkers; n > limit {
		fmt.Fprintf(os.Stderr, "Warning: %s too high (%d), using maximum %d\n",
			EnvWorkers, n, limit)
		return limit
	}

	return n
}

// GetAPITimeout returns the configured network timeout from TYPOSCAN_API_TIMEOUT.
// If not set or invalid, returns DefaultAPITimeout (60 seconds).
// Accepts duration strings like "30s", "1m", "2m30s".
func GetAPITimeout() time.Duration {
	envValue := os.Getenv(EnvAPITimeout)
	if envValue == "" {
		return DefaultAPITimeout
	}

	duration, err := time.ParseDuration(envValue)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid %s value %q, using default %v\n",
			EnvAPITimeout, envValue, DefaultAPITimeout)
		return DefaultAPITimeout
	}

	// Validate reasonable range (1 second to 10 minutes)
	if duration < 1*time.Second {
		fmt.Fprintf(os.Stderr, "Warning: %s too low (%v), using minimum 1s\n",
			EnvAPITimeout, duration)
		return 1 * time.Second
	}
	if duration > 10*time.Minute {
		fmt.Fprintf(os.Stderr, "Warning: %s too high (%v), using maximum 10m\n",
			EnvAPITimeout, duration)
		return 10 * time.Minute
	}

	return duration
}

// GetIndexURL returns the package index URL from TYPOSCAN_INDEX_URL,
// or DefaultIndexURL when unset.
func GetIndexURL() string {
	if v := os.Getenv(EnvIndexURL); v != "" {
		return v
	}
	return DefaultIndexURL
}

// DefaultHomeOverride can be set by the binary's main package to change the
// default home directory. TYPOSCAN_HOME still takes precedence.
var DefaultHomeOverride string

// Config holds typoscan paths
type Config struct {
	HomeDir    string // $TYPOSCAN_HOME
	CorpusDir  string // $TYPOSCAN_HOME/corpus
	CorpusFile string // $TYPOSCAN_HOME/corpus/pypi.json.zst
	ResultsDir string // $TYPOSCAN_HOME/results
	ConfigFile string // $TYPOSCAN_HOME/config.toml
}

// DefaultConfig returns the default configuration
func DefaultConfig() (*Config, error) {
	home := os.Getenv(EnvHome)
	if home == "" {
		if DefaultHomeOverride != "" {
			home = DefaultHomeOverride
		} else {
			userHome, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get user home directory: %w", err)
			}
			home = filepath.Join(userHome, ".typoscan")
		}
	}

	return &Config{
		HomeDir:    home,
		CorpusDir:  filepath.Join(home, "corpus"),
		CorpusFile: filepath.Join(home, "corpus", "pypi.json.zst"),
		ResultsDir: filepath.Join(home, "results"),
		ConfigFile: filepath.Join(home, "config.toml"),
	}, nil
}

// EnsureDirectories creates all necessary directories
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.HomeDir, c.CorpusDir, c.ResultsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ResultsFile returns the default results path for a run, named after the
// time it started.
func (c *Config) ResultsFile(start time.Time, ext string) string {
	return filepath.Join(c.ResultsDir, fmt.Sprintf("results-%s%s", start.UTC().Format("20060102T150405Z"), ext))
}
