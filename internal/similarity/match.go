package similarity

import (
	"errors"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/tsukumogami/typoscan/internal/log"
)

var (
	// ErrInvalidThreshold is returned when a threshold falls outside (0, 1].
	ErrInvalidThreshold = errors.New("similarity threshold must be in (0, 1]")

	// ErrMalformedName is returned for candidate names that are not valid UTF-8.
	ErrMalformedName = errors.New("malformed candidate name")
)

// Match is a reference name whose similarity to a candidate cleared the threshold.
type Match struct {
	Name  string
	Score float64
}

// ValidateThreshold reports whether t is usable as a similarity threshold.
// Out-of-range values are rejected, never clamped.
func ValidateThreshold(t float64) error {
	if !(t > 0 && t <= 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, t)
	}
	return nil
}

// Matcher scores candidate names against a fixed reference corpus.
// A Matcher is read-only after construction and safe for concurrent use.
type Matcher struct {
	names     []string
	runes     [][]rune
	threshold float64
}

// NewMatcher decodes the corpus once and returns a Matcher for the threshold.
func NewMatcher(corpus []string, threshold float64) (*Matcher, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	m := &Matcher{
		names:     corpus,
		runes:     make([][]rune, len(corpus)),
		threshold: threshold,
	}
	for i, name := range corpus {
		m.runes[i] = []rune(name)
	}
	return m, nil
}

// Threshold returns the threshold the Matcher filters on.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Len returns the number of reference names.
func (m *Matcher) Len() int {
	return len(m.names)
}

// Match returns every reference name scoring strictly above the threshold,
// ordered by score descending and then by name.
func (m *Matcher) Match(candidate string) ([]Match, error) {
	if !utf8.ValidString(candidate) {
		return nil, fmt.Errorf("%w: %q", ErrMalformedName, candidate)
	}

	cand := []rune(candidate)
	r := newRows(len(cand))
	matches := []Match{}

	for i, ref := range m.runes {
		if scoreCeiling(len(ref), len(cand)) <= m.threshold {
			continue
		}
		s := r.score(ref, cand)
		if s > m.threshold {
			matches = append(matches, Match{Name: m.names[i], Score: s})
		}
	}

	SortMatches(matches)
	return matches, nil
}

// SortMatches orders matches by score descending, breaking ties by name.
func SortMatches(matches []Match) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Name < matches[j].Name
	})
}

// ScoreAll scores each candidate against the corpus one after another.
// A candidate that fails to score is logged and left out of the result;
// only an invalid threshold aborts the call.
func ScoreAll(candidates, corpus []string, threshold float64, logger log.Logger) (ResultSet, error) {
	if logger == nil {
		logger = log.Default()
	}
	m, err := NewMatcher(corpus, threshold)
	if err != nil {
		return nil, err
	}

	rs := make(ResultSet, len(candidates))
	for _, c := range candidates {
		matches, err := m.Match(c)
		if err != nil {
			logger.Warn("skipping candidate", "candidate", c, "error", err)
			continue
		}
		rs.Add(c, matches...)
	}
	return rs, nil
}
