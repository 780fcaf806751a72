package scan

import (
	"errors"
	"fmt"

	"github.com/tsukumogami/typoscan/internal/similarity"
)

// Kind classifies scan errors by how the caller should react.
type Kind int

const (
	// KindConfiguration means the run could not start: empty corpus,
	// no candidates, bad threshold. Nothing was scored.
	KindConfiguration Kind = iota
	// KindCandidate means one candidate could not be scored. The run
	// carries on without it.
	KindCandidate
	// KindPersistence means a checkpoint could not be written. The run
	// stops and the unwritten results travel with the error.
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindCandidate:
		return "candidate"
	case KindPersistence:
		return "persistence"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var (
	// ErrEmptyCorpus is returned when there is nothing to compare against.
	ErrEmptyCorpus = errors.New("reference corpus is empty")

	// ErrNoCandidates is returned when no dependency names were supplied.
	ErrNoCandidates = errors.New("no candidate names to scan")

	// ErrNoStore is returned when no checkpoint destination was configured.
	ErrNoStore = errors.New("no checkpoint store configured")
)

// Error is a classified scan failure.
type Error struct {
	Kind      Kind
	Candidate string // set for KindCandidate
	Message   string
	Err       error

	// Pending holds results that were not persisted when a KindPersistence
	// error stopped the run. Callers may retry writing them.
	Pending similarity.ResultSet
}

func (e *Error) Error() string {
	prefix := e.Kind.String() + " error"
	if e.Candidate != "" {
		prefix += fmt.Sprintf(" for %q", e.Candidate)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a scan Error of the given kind.
func IsKind(err error, k Kind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == k
}

func configError(msg string, err error) *Error {
	return &Error{Kind: KindConfiguration, Message: msg, Err: err}
}
