// Package deps turns dependency specifiers into comparable candidate names
// and collects them from the places a project declares its dependencies.
package deps

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// specifierDelims start the version, constraint or marker part of a specifier.
const specifierDelims = "<=>!@~`"

// Normalize reduces a raw dependency specifier to a bare lowercase name by
// cutting everything from the first constraint delimiter onward.
// It is total and idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) string {
	if i := strings.IndexAny(raw, specifierDelims); i >= 0 {
		raw = raw[:i]
	}
	return Lower(raw)
}

// Lower lowercases s using Unicode case mapping.
func Lower(s string) string {
	// A Caser keeps state, so one is built per call.
	return cases.Lower(language.Und).String(s)
}

// Requirement is the structured form of one dependency specifier.
type Requirement struct {
	Raw        string
	Name       string
	Extras     []string
	Constraint string
	Marker     string

	// Version is the parsed Constraint, nil when it has no semver equivalent.
	Version *semver.Constraints
}

// ParseSpecifier splits a specifier such as
// `requests[security]>=2.8.1,<3; python_version >= "3.8"` into its parts.
// It never fails: anything it cannot interpret is kept as raw text.
func ParseSpecifier(raw string) Requirement {
	req := Requirement{Raw: raw}
	s := strings.TrimSpace(raw)

	if i := strings.IndexByte(s, ';'); i >= 0 {
		req.Marker = strings.TrimSpace(s[i+1:])
		s = s[:i]
	}

	namePart := s
	if i := strings.IndexAny(s, specifierDelims); i >= 0 {
		namePart = s[:i]
		req.Constraint = strings.Trim(strings.TrimSpace(s[i:]), "()")
	}

	if i := strings.IndexByte(namePart, '['); i >= 0 {
		extras := namePart[i+1:]
		if j := strings.IndexByte(extras, ']'); j >= 0 {
			extras = extras[:j]
		}
		for _, e := range strings.Split(extras, ",") {
			if e = strings.TrimSpace(e); e != "" {
				req.Extras = append(req.Extras, Lower(e))
			}
		}
		namePart = namePart[:i]
	}

	req.Name = Normalize(strings.TrimSpace(strings.TrimRight(strings.TrimSpace(namePart), "(")))
	req.Version = parseConstraint(req.Constraint)
	return req
}

// Allows reports whether version satisfies the requirement's constraint.
// Requirements without a parsed constraint allow everything.
func (r Requirement) Allows(version string) (bool, error) {
	if r.Version == nil {
		return true, nil
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false, err
	}
	return r.Version.Check(v), nil
}

// parseConstraint maps the PEP 440 operators that have a direct semver
// counterpart and parses the result. "~=", "===" and URL references have
// no equivalent and yield nil.
func parseConstraint(c string) *semver.Constraints {
	if c == "" || strings.Contains(c, "~=") || strings.Contains(c, "===") || strings.HasPrefix(c, "@") {
		return nil
	}
	c = strings.ReplaceAll(c, "==", "=")
	parsed, err := semver.NewConstraint(c)
	if err != nil {
		return nil
	}
	return parsed
}

// Unique drops empty and repeated names, keeping first occurrences in order.
func Unique(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// Candidates parses every raw specifier and returns the unique names.
func Candidates(raw []string) []string {
	names := make([]string, 0, len(raw))
	for _, r := range raw {
		names = append(names, ParseSpecifier(r).Name)
	}
	return Unique(names)
}
