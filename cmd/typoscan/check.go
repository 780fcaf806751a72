package main

import (
	"github.com/spf13/cobra"

	"github.com/tsukumogami/typoscan/internal/deps"
	"github.com/tsukumogami/typoscan/internal/errmsg"
	"github.com/tsukumogami/typoscan/internal/log"
)

var (
	checkOpts   scanFlags
	checkPython string
)

var checkCmd = &cobra.Command{
	Use:   "check <package>",
	Short: "Scan the dependency tree of an installed package",
	Long: `Resolve the full dependency tree of a package installed in the current
Python environment with pipdeptree, then scan every name in it.

The package itself is included. pipdeptree must be installed in the
environment of the Python interpreter used (python3 unless --python is
given). Installed versions that violate a declared requirement are
reported as warnings.

Examples:
  typoscan check flask
  typoscan check requests --python .venv/bin/python --summary`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		errCtx := &errmsg.ErrorContext{Package: args[0]}
		src := &deps.PipdeptreeSource{
			Package: args[0],
			Python:  checkPython,
			Logger:  log.Default(),
		}
		raw, err := deps.Collect(globalCtx, src)
		if err != nil {
			fail(err, errCtx)
		}
		exitWithCode(executeScan(globalCtx, cmd.Flags(), raw, checkOpts, errCtx))
	},
}

func init() {
	checkOpts.register(checkCmd.Flags())
	checkCmd.Flags().StringVar(&checkPython, "python", "", "Python interpreter that has the package installed (default python3)")
}
