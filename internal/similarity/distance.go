// Package similarity implements the fuzzy matching engine used to flag
// dependency names that sit suspiciously close to known registry names.
//
// Names are compared with the restricted Damerau-Levenshtein distance
// (optimal string alignment), which treats an adjacent transposition such as
// "reqeusts" -> "requests" as a single edit. The distance is turned into a
// similarity in [0, 1] by normalizing against the longer of the two names.
package similarity

// Distance returns the restricted Damerau-Levenshtein distance between a and b.
// Insertions, deletions, substitutions and transpositions of two adjacent
// characters each cost 1. Strings are compared rune by rune.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	return newRows(len(rb)).distance(ra, rb)
}

// Score returns 1 - Distance(a, b) / max(len(a), len(b)), measured in runes.
// Two empty strings are identical and score 1.
func Score(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	return newRows(len(rb)).score(ra, rb)
}

// rows holds the three DP rows needed for the transposition lookback.
// A rows value is owned by one goroutine and reused across comparisons
// against the same inner string.
type rows struct {
	prev2, prev, curr []int
}

func newRows(n int) *rows {
	return &rows{
		prev2: make([]int, n+1),
		prev:  make([]int, n+1),
		curr:  make([]int, n+1),
	}
}

// distance computes the edit distance with b as the inner (row) string.
// The rows must have been sized for len(b).
func (r *rows) distance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	n := len(b)
	prev2, prev, curr := r.prev2[:n+1], r.prev[:n+1], r.curr[:n+1]
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			v := min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
			if i > 1 && j > 1 && a[i-1] == b[j-2] && a[i-2] == b[j-1] {
				v = min(v, prev2[j-2]+1) // transposition
			}
			curr[j] = v
		}
		prev2, prev, curr = prev, curr, prev2
	}

	return prev[n]
}

func (r *rows) score(a, b []rune) float64 {
	longest := max(len(a), len(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(r.distance(a, b))/float64(longest)
}

// scoreCeiling is the best score two strings of these lengths could reach.
// The distance is never smaller than the length difference, so a pair whose
// ceiling does not clear the threshold can be skipped without computing it.
func scoreCeiling(la, lb int) float64 {
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	diff := la - lb
	if diff < 0 {
		diff = -diff
	}
	return 1 - float64(diff)/float64(longest)
}
