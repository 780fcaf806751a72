package main

import (
	"errors"
	"net"
	"os"

	"github.com/google/go-github/v57/github"

	"github.com/tsukumogami/typoscan/internal/corpus"
	"github.com/tsukumogami/typoscan/internal/deps"
	"github.com/tsukumogami/typoscan/internal/scan"
	"github.com/tsukumogami/typoscan/internal/similarity"
)

// Exit codes for different error types.
// These enable scripts to distinguish between failure modes.
const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0

	// ExitGeneral indicates a general error
	ExitGeneral = 1

	// ExitUsage indicates invalid arguments or configuration, such as a
	// threshold outside (0, 1]
	ExitUsage = 2

	// ExitCorpus indicates the reference corpus is missing or empty
	ExitCorpus = 3

	// ExitNoInput indicates no dependency names could be read
	ExitNoInput = 4

	// ExitNetwork indicates a network error
	ExitNetwork = 5

	// ExitPersistence indicates results could not be written
	ExitPersistence = 6

	// ExitAllFailed indicates every candidate failed to score. A clean
	// scan that finds nothing exits with ExitSuccess instead.
	ExitAllFailed = 7

	// ExitMatchesFound indicates similar names were found and
	// --fail-on-match was given
	ExitMatchesFound = 8
)

// exitWithCode exits with the specified exit code
func exitWithCode(code int) {
	os.Exit(code)
}

// exitCodeFor maps an error to the exit code scripts can rely on.
func exitCodeFor(err error) int {
	var netErr net.Error
	var rateErr *github.RateLimitError
	var ghErr *github.ErrorResponse

	switch {
	case err == nil:
		return ExitSuccess
	case scan.IsKind(err, scan.KindPersistence):
		return ExitPersistence
	case errors.Is(err, similarity.ErrInvalidThreshold),
		errors.Is(err, deps.ErrInvalidGitHubRef):
		return ExitUsage
	case errors.Is(err, corpus.ErrCorpusNotFound),
		errors.Is(err, corpus.ErrEmptyCorpus),
		errors.Is(err, scan.ErrEmptyCorpus):
		return ExitCorpus
	case errors.Is(err, scan.ErrNoCandidates),
		errors.Is(err, errNoInput),
		errors.Is(err, os.ErrNotExist):
		return ExitNoInput
	case scan.IsKind(err, scan.KindConfiguration):
		return ExitUsage
	case errors.Is(err, corpus.ErrFetch),
		errors.As(err, &netErr),
		errors.As(err, &rateErr),
		errors.As(err, &ghErr):
		return ExitNetwork
	}
	return ExitGeneral
}
