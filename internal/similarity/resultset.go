package similarity

import "sort"

// ResultSet maps a candidate name to the matches found for it.
// A candidate that scored cleanly but matched nothing is present with an
// empty list, which keeps "scanned and clean" apart from "never scanned".
type ResultSet map[string][]Match

// Add appends matches to the candidate's entry, creating it if needed.
// Existing matches are never replaced.
func (rs ResultSet) Add(candidate string, matches ...Match) {
	existing, ok := rs[candidate]
	if !ok || existing == nil {
		existing = make([]Match, 0, len(matches))
	}
	rs[candidate] = append(existing, matches...)
}

// Merge appends every entry of other into rs.
func (rs ResultSet) Merge(other ResultSet) {
	for c, ms := range other {
		rs.Add(c, ms...)
	}
}

// MatchCount returns the total number of matches across all candidates.
func (rs ResultSet) MatchCount() int {
	n := 0
	for _, ms := range rs {
		n += len(ms)
	}
	return n
}

// Candidates returns the candidate names in lexical order.
func (rs ResultSet) Candidates() []string {
	names := make([]string, 0, len(rs))
	for c := range rs {
		names = append(names, c)
	}
	sort.Strings(names)
	return names
}

// Sorted returns a copy with every match list in SortMatches order.
func (rs ResultSet) Sorted() ResultSet {
	out := make(ResultSet, len(rs))
	for c, ms := range rs {
		cp := make([]Match, len(ms))
		copy(cp, ms)
		SortMatches(cp)
		out[c] = cp
	}
	return out
}
