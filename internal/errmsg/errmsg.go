// Package errmsg provides enhanced error message formatting with actionable suggestions.
package errmsg

import (
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strings"

	"github.com/google/go-github/v57/github"

	"github.com/tsukumogami/typoscan/internal/corpus"
	"github.com/tsukumogami/typoscan/internal/deps"
	"github.com/tsukumogami/typoscan/internal/scan"
	"github.com/tsukumogami/typoscan/internal/similarity"
)

// ErrorContext provides additional context for error formatting
type ErrorContext struct {
	Package     string // package passed to `typoscan check`
	CorpusPath  string // corpus file in use
	ResultsPath string // results file being written
}

// Format returns a formatted error message with possible causes and suggestions.
// The context parameter is optional - pass nil for generic formatting.
func Format(err error, ctx *ErrorContext) string {
	if err == nil {
		return ""
	}
	if ctx == nil {
		ctx = &ErrorContext{}
	}

	errMsg := err.Error()

	switch {
	case errors.Is(err, similarity.ErrInvalidThreshold):
		return formatThresholdError(errMsg)
	case errors.Is(err, corpus.ErrCorpusNotFound), errors.Is(err, corpus.ErrEmptyCorpus), errors.Is(err, scan.ErrEmptyCorpus):
		return formatCorpusError(errMsg, ctx)
	case errors.Is(err, scan.ErrNoCandidates):
		return formatNoCandidatesError(errMsg)
	case errors.Is(err, deps.ErrInvalidGitHubRef):
		return formatGitHubRefError(errMsg)
	case scan.IsKind(err, scan.KindPersistence):
		return formatPersistenceError(err, ctx)
	case isPipdeptreeMissing(err):
		return formatPipdeptreeError(errMsg, ctx)
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) || isRateLimitError(errMsg) {
		return formatRateLimitError(errMsg)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return formatNetworkError(netErr)
	}

	if errors.Is(err, corpus.ErrFetch) || isNetworkError(errMsg) {
		return formatGenericNetworkError(errMsg)
	}

	if isPermissionError(errMsg) {
		return formatPermissionError(errMsg)
	}

	return errMsg
}

func formatThresholdError(errMsg string) string {
	var sb strings.Builder
	sb.WriteString(errMsg)
	sb.WriteString("\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Use a threshold greater than 0 and at most 1, for example --threshold 0.8\n")
	sb.WriteString("  - Check TYPOSCAN_THRESHOLD and 'typoscan config get threshold'\n")

	return sb.String()
}

func formatCorpusError(errMsg string, ctx *ErrorContext) string {
	var sb strings.Builder
	sb.WriteString(errMsg)
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - The package name corpus has not been downloaded yet\n")
	sb.WriteString("  - The corpus file is empty or was truncated\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Run 'typoscan update' to download the PyPI package list\n")
	if ctx.CorpusPath != "" {
		sb.WriteString(fmt.Sprintf("  - Check the file passed with --corpus: %s\n", ctx.CorpusPath))
	}
	sb.WriteString("  - Use 'typoscan scan --update' to refresh the corpus before scanning\n")

	return sb.String()
}

func formatNoCandidatesError(errMsg string) string {
	var sb strings.Builder
	sb.WriteString(errMsg)
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - The requirements file lists no packages\n")
	sb.WriteString("  - Every line was a comment, option or URL\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Pass package names as arguments: typoscan scan requests numpy\n")
	sb.WriteString("  - Point -r at a requirements file that lists dependencies\n")

	return sb.String()
}

func formatGitHubRefError(errMsg string) string {
	var sb strings.Builder
	sb.WriteString(errMsg)
	sb.WriteString("\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Use the form owner/repo[:path][@ref], for example psf/requests:requirements-dev.txt@main\n")

	return sb.String()
}

func formatPersistenceError(err error, ctx *ErrorContext) string {
	var sb strings.Builder
	sb.WriteString(err.Error())
	sb.WriteString("\n")

	var se *scan.Error
	if errors.As(err, &se) && len(se.Pending) > 0 {
		sb.WriteString(fmt.Sprintf("\n%d scored candidates were not written.\n", len(se.Pending)))
	}

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - The results directory is not writable\n")
	sb.WriteString("  - The disk is full\n")

	sb.WriteString("\nSuggestions:\n")
	if ctx.ResultsPath != "" {
		sb.WriteString(fmt.Sprintf("  - Check permissions and free space for %s\n", ctx.ResultsPath))
	}
	sb.WriteString("  - Choose another destination with --output\n")
	sb.WriteString("  - Re-run with --append to keep the checkpoints already written\n")

	return sb.String()
}

func formatPipdeptreeError(errMsg string, ctx *ErrorContext) string {
	var sb strings.Builder
	sb.WriteString(errMsg)
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - pipdeptree is not installed in the active Python environment\n")
	sb.WriteString("  - python3 is not on PATH\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Install it with: python3 -m pip install pipdeptree\n")
	if ctx.Package != "" {
		sb.WriteString(fmt.Sprintf("  - Or export the tree yourself: pipdeptree -p %s --json > tree.json && typoscan scan --tree-file tree.json\n", ctx.Package))
	}

	return sb.String()
}

func formatRateLimitError(errMsg string) string {
	var sb strings.Builder
	sb.WriteString(errMsg)
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - Too many requests to the API\n")
	sb.WriteString("  - Unauthenticated requests have lower limits\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Set GITHUB_TOKEN environment variable to increase rate limit\n")
	sb.WriteString("  - Or store a token with: typoscan config set secrets.github_token <token>\n")
	sb.WriteString("  - Wait a few minutes before retrying\n")

	return sb.String()
}

func formatNetworkError(err net.Error) string {
	var sb strings.Builder
	sb.WriteString(err.Error())
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	if err.Timeout() {
		sb.WriteString("  - Request timed out\n")
		sb.WriteString("  - The package index is large and the connection is slow\n")
	} else {
		sb.WriteString("  - Network connectivity issue\n")
		sb.WriteString("  - DNS resolution failure\n")
	}
	sb.WriteString("  - Firewall or proxy blocking the connection\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Check your internet connection\n")
	if err.Timeout() {
		sb.WriteString("  - Raise TYPOSCAN_API_TIMEOUT, for example TYPOSCAN_API_TIMEOUT=5m\n")
	}
	sb.WriteString("  - Try again in a few minutes\n")

	return sb.String()
}

func formatGenericNetworkError(errMsg string) string {
	var sb strings.Builder
	sb.WriteString(errMsg)
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - Network connectivity issue\n")
	sb.WriteString("  - The package index is temporarily unavailable\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Check your internet connection\n")
	sb.WriteString("  - Use a mirror with --index-url or TYPOSCAN_INDEX_URL\n")
	sb.WriteString("  - Try again in a few minutes\n")

	return sb.String()
}

func formatPermissionError(errMsg string) string {
	var sb strings.Builder
	sb.WriteString(errMsg)
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - Insufficient permissions on $TYPOSCAN_HOME directory\n")
	sb.WriteString("  - File or directory owned by different user\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Check permissions on ~/.typoscan directory\n")
	sb.WriteString("  - Set TYPOSCAN_HOME to a directory you own\n")

	return sb.String()
}

func isPipdeptreeMissing(err error) bool {
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}
	return strings.Contains(err.Error(), "No module named pipdeptree")
}

// isRateLimitError checks if the error message indicates a rate limit
func isRateLimitError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "rate-limit") ||
		strings.Contains(lower, "too many requests")
}

// isNetworkError checks if the error message indicates a network issue
func isNetworkError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "network is unreachable") ||
		strings.Contains(lower, "dial tcp") ||
		strings.Contains(lower, "timeout")
}

// isPermissionError checks if the error message indicates a permission issue
func isPermissionError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "permission denied") ||
		strings.Contains(lower, "access denied") ||
		strings.Contains(lower, "operation not permitted")
}
