package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/tsukumogami/typoscan/internal/buildinfo"
	"github.com/tsukumogami/typoscan/internal/config"
	"github.com/tsukumogami/typoscan/internal/errmsg"
	"github.com/tsukumogami/typoscan/internal/httputil"
)

// errNoInput is returned when no dependency source was given at all.
var errNoInput = errors.New("no dependencies to scan: pass package names, -r, --github or --tree-file")

// printInfof prints a formatted informational message unless quiet mode is enabled
func printInfof(format string, a ...interface{}) {
	if !quietFlag {
		fmt.Printf(format, a...)
	}
}

// printError prints an error to stderr with suggestions if available.
func printError(err error, ctx *errmsg.ErrorContext) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", errmsg.Format(err, ctx))
}

// fail prints err and exits with the code matching its kind.
func fail(err error, ctx *errmsg.ErrorContext) {
	printError(err, ctx)
	exitWithCode(exitCodeFor(err))
}

// newHTTPClient returns the client used for the package index and GitHub,
// honouring TYPOSCAN_API_TIMEOUT.
func newHTTPClient() *http.Client {
	return httputil.NewClient(httputil.Options{
		Timeout:   config.GetAPITimeout(),
		UserAgent: buildinfo.UserAgent(),
	})
}
