package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tsukumogami/typoscan/internal/buildinfo"
	"github.com/tsukumogami/typoscan/internal/log"
)

// Global flags for output verbosity
var (
	quietFlag   bool
	verboseFlag bool
	debugFlag   bool
)

// globalCtx is cancelled on SIGINT/SIGTERM. Commands pass it down so a
// scan stops dispatching, flushes what it has and exits.
var globalCtx = context.Background()

var rootCmd = &cobra.Command{
	Use:   "typoscan",
	Short: "Find dependencies whose names are suspiciously close to real packages",
	Long: `typoscan compares the names of a project's dependencies against every
package registered on PyPI and reports near-misses that may be typosquats.

It scores each dependency with a Damerau-Levenshtein similarity, reports
every registered name scoring above the threshold, and writes results to
disk in checkpoints so long scans survive interruption.

Examples:
  typoscan update
  typoscan scan -r requirements.txt
  typoscan scan reqeusts numpyy --threshold 0.85
  typoscan check flask`,
	Version:       buildinfo.Version(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A .env in the working directory fills in unset variables only.
		_ = godotenv.Load()
		log.SetDefault(log.NewCLI(os.Stderr, determineLogLevel()))
	},
}

// determineLogLevel resolves the log level from flags and environment.
// Flags beat environment variables; within each, debug beats verbose beats quiet.
func determineLogLevel() slog.Level {
	switch {
	case debugFlag:
		return slog.LevelDebug
	case verboseFlag:
		return slog.LevelInfo
	case quietFlag:
		return slog.LevelError
	}

	switch {
	case isTruthy(os.Getenv("TYPOSCAN_DEBUG")):
		return slog.LevelDebug
	case isTruthy(os.Getenv("TYPOSCAN_VERBOSE")):
		return slog.LevelInfo
	case isTruthy(os.Getenv("TYPOSCAN_QUIET")):
		return slog.LevelError
	}

	return slog.LevelWarn
}

func isTruthy(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Show only errors")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Show progress messages")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Show debug output")

	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	globalCtx = ctx

	err := rootCmd.Execute()
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitWithCode(ExitUsage)
	}
}
