package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tsukumogami/typoscan/internal/secrets"
	"github.com/tsukumogami/typoscan/internal/userconfig"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage typoscan configuration",
	Long: `Manage typoscan configuration settings.

Configuration is stored in $TYPOSCAN_HOME/config.toml (~/.typoscan by
default). Command-line flags and TYPOSCAN_* environment variables take
precedence over these values.

Available settings:
  checkpoint_interval  Candidates scored between result checkpoints
  index_url            Package index used by 'typoscan update'
  results_format       Results file format (json/yaml)
  threshold            Similarity above which names are reported
  secrets.github_token Token for --github (GITHUB_TOKEN takes precedence)

Examples:
  typoscan config get threshold
  typoscan config set threshold 0.85
  typoscan config set secrets.github_token ghp_xxx
  typoscan config list`,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		key := args[0]

		cfg, err := userconfig.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			exitWithCode(ExitGeneral)
		}

		value, ok := cfg.Get(key)
		if !ok {
			fmt.Fprintf(os.Stderr, "Unknown config key: %s\n", key)
			fmt.Fprintf(os.Stderr, "\nAvailable keys:\n")
			printAvailableKeys(os.Stderr)
			exitWithCode(ExitUsage)
		}

		fmt.Println(value)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		key := args[0]
		value := args[1]

		cfg, err := userconfig.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			exitWithCode(ExitGeneral)
		}

		if name, ok := strings.CutPrefix(key, userconfig.SecretPrefix); ok && !secrets.IsKnown(name) {
			fmt.Fprintf(os.Stderr, "Error: unknown secret: %s\n", name)
			fmt.Fprintf(os.Stderr, "\nAvailable keys:\n")
			printAvailableKeys(os.Stderr)
			exitWithCode(ExitUsage)
		}

		if err := cfg.Set(key, value); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			fmt.Fprintf(os.Stderr, "\nAvailable keys:\n")
			printAvailableKeys(os.Stderr)
			exitWithCode(ExitUsage)
		}

		if err := cfg.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
			exitWithCode(ExitGeneral)
		}

		stored, _ := cfg.Get(key)
		fmt.Printf("%s = %s\n", key, stored)
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configuration values",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := userconfig.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			exitWithCode(ExitGeneral)
		}
		listConfig(os.Stdout, cfg)
	},
}

// listConfig prints every key with its stored value, or "(unset)".
// Secrets show only whether config.toml holds one.
func listConfig(w io.Writer, cfg *userconfig.Config) {
	keys := userconfig.SortedKeys()
	for _, s := range secrets.KnownKeys() {
		keys = append(keys, userconfig.SecretPrefix+s.Name)
	}
	for _, k := range keys {
		v, _ := cfg.Get(k)
		if v == "" {
			v = "(unset)"
		}
		fmt.Fprintf(w, "%s = %s\n", k, v)
	}
}

func printAvailableKeys(w io.Writer) {
	keys := userconfig.AvailableKeys()
	for _, k := range userconfig.SortedKeys() {
		fmt.Fprintf(w, "  %s - %s\n", k, keys[k])
	}
	for _, s := range secrets.KnownKeys() {
		fmt.Fprintf(w, "  %s%s - %s (env: %s)\n", userconfig.SecretPrefix, s.Name, s.Desc, strings.Join(s.EnvVars, ", "))
	}
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configListCmd)
}
