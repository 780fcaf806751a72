// Package secrets resolves tokens from the environment and the [secrets]
// table in $TYPOSCAN_HOME/config.toml, in that order.
//
// Only names listed in knownKeys (specs.go) can be resolved.
package secrets

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/tsukumogami/typoscan/internal/userconfig"
)

// KeyInfo describes a registered secret for external consumers.
type KeyInfo struct {
	Name    string
	EnvVars []string
	Desc    string
}

var (
	configOnce  sync.Once
	cachedCfg   *userconfig.Config
	configError error
)

func getConfig() (*userconfig.Config, error) {
	configOnce.Do(func() {
		cachedCfg, configError = userconfig.Load()
	})
	return cachedCfg, configError
}

// ResetConfig drops the cached config so the next lookup rereads the file.
// Tests that change TYPOSCAN_HOME call it.
func ResetConfig() {
	configOnce = sync.Once{}
	cachedCfg = nil
	configError = nil
}

// IsKnown reports whether name is a registered secret.
func IsKnown(name string) bool {
	_, ok := knownKeys[name]
	return ok
}

// lookup returns the value and where it came from.
func lookup(name string) (value, source string, err error) {
	spec, ok := knownKeys[name]
	if !ok {
		return "", "", fmt.Errorf("unknown secret key: %q", name)
	}
	for _, env := range spec.EnvVars {
		if v := os.Getenv(env); v != "" {
			return v, env, nil
		}
	}
	if cfg, err := getConfig(); err == nil && cfg != nil {
		if v := cfg.Secrets[name]; v != "" {
			return v, "config.toml", nil
		}
	}
	return "", "", nil
}

// Get resolves a secret by name. It fails for unknown names and when no
// source has a value.
func Get(name string) (string, error) {
	v, _, err := lookup(name)
	if err != nil {
		return "", err
	}
	if v == "" {
		envList := strings.Join(knownKeys[name].EnvVars, " or ")
		return "", fmt.Errorf(
			"%s not configured. Set %s, or run 'typoscan config set %s%s <value>'",
			name, envList, userconfig.SecretPrefix, name,
		)
	}
	return v, nil
}

// Source names where a secret would be read from: an environment variable,
// "config.toml", or "" when it is not set.
func Source(name string) string {
	_, src, _ := lookup(name)
	return src
}

// KnownKeys returns metadata for all registered secrets, sorted by name.
func KnownKeys() []KeyInfo {
	keys := make([]KeyInfo, 0, len(knownKeys))
	for name, spec := range knownKeys {
		keys = append(keys, KeyInfo{Name: name, EnvVars: spec.EnvVars, Desc: spec.Desc})
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Name < keys[j].Name
	})
	return keys
}
