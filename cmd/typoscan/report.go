package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tsukumogami/typoscan/internal/errmsg"
	"github.com/tsukumogami/typoscan/internal/results"
)

var (
	reportHighRisk     float64
	reportIncludeExact bool
	reportFailOnMatch  bool
)

var reportCmd = &cobra.Command{
	Use:   "report <results-file>",
	Short: "Print a markdown report for a results file",
	Long: `Render a results file written by 'typoscan scan' as markdown: a metrics
table followed by one table per dependency with similar names.

Matches at or above --high-risk are marked. A dependency matching its own
registered name (similarity 1) is not a finding and is left out unless
--include-exact is given.

The output is suitable for a pull request comment or a CI job summary.

Examples:
  typoscan report results.json
  typoscan report results.yaml --high-risk 0.85 >> "$GITHUB_STEP_SUMMARY"`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rs, err := results.Load(args[0])
		if err != nil {
			fail(fmt.Errorf("read results: %w", err), &errmsg.ErrorContext{ResultsPath: args[0]})
		}

		fmt.Print(results.Summary(rs, results.ReportOptions{
			HighRisk:     reportHighRisk,
			IncludeExact: reportIncludeExact,
		}))

		if reportFailOnMatch && len(results.Flagged(rs)) > 0 {
			exitWithCode(ExitMatchesFound)
		}
	},
}

func init() {
	reportCmd.Flags().Float64Var(&reportHighRisk, "high-risk", results.DefaultHighRisk, "Mark matches at or above this similarity")
	reportCmd.Flags().BoolVar(&reportIncludeExact, "include-exact", false, "Include dependencies matching their own name")
	reportCmd.Flags().BoolVar(&reportFailOnMatch, "fail-on-match", false, "Exit with status 8 when the report lists similar names")
}
