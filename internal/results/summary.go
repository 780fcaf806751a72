package results

import (
	"fmt"
	"strings"

	"github.com/tsukumogami/typoscan/internal/similarity"
)

// DefaultHighRisk is the similarity at which a near-miss is highlighted.
const DefaultHighRisk = 0.9

// ReportOptions controls Summary output.
type ReportOptions struct {
	// HighRisk marks matches scoring at or above it. Zero uses DefaultHighRisk.
	HighRisk float64

	// IncludeExact keeps matches with similarity 1, which only say that the
	// candidate itself is a registered name.
	IncludeExact bool
}

// Flagged returns the candidates that have at least one match other than
// themselves, in lexical order.
func Flagged(rs similarity.ResultSet) []string {
	var out []string
	for _, c := range rs.Candidates() {
		for _, m := range rs[c] {
			if !isExact(c, m) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Summary renders a markdown report with one table per candidate.
func Summary(rs similarity.ResultSet, opts ReportOptions) string {
	highRisk := opts.HighRisk
	if highRisk == 0 {
		highRisk = DefaultHighRisk
	}
	sorted := rs.Sorted()
	flagged := Flagged(rs)

	var sb strings.Builder
	sb.WriteString("## Typosquatting check\n\n")
	sb.WriteString("| Metric | Count |\n|--------|-------|\n")
	fmt.Fprintf(&sb, "| Candidates scanned | %d |\n", len(rs))
	fmt.Fprintf(&sb, "| Candidates with similar names | %d |\n", len(flagged))
	fmt.Fprintf(&sb, "| Similar names | %d |\n", countReported(sorted, opts.IncludeExact))

	if len(flagged) == 0 && !opts.IncludeExact {
		sb.WriteString("\nNo similar package names found.\n")
		return sb.String()
	}

	var rows strings.Builder
	for _, c := range sorted.Candidates() {
		rows.Reset()
		risky := 0
		for _, m := range sorted[c] {
			if isExact(c, m) && !opts.IncludeExact {
				continue
			}
			mark := ""
			if m.Score >= highRisk && !isExact(c, m) {
				mark = " ⚠️"
				risky++
			}
			fmt.Fprintf(&rows, "| %s | %.2f%s |\n", m.Name, m.Score, mark)
		}
		if rows.Len() == 0 {
			continue
		}

		fmt.Fprintf(&sb, "\n### %s", c)
		if risky > 0 {
			fmt.Fprintf(&sb, " (%d high-risk)", risky)
		}
		sb.WriteString("\n\n| Package | Similarity |\n|---------|------------|\n")
		sb.WriteString(rows.String())
	}
	return sb.String()
}

func countReported(rs similarity.ResultSet, includeExact bool) int {
	n := 0
	for c, ms := range rs {
		for _, m := range ms {
			if includeExact || !isExact(c, m) {
				n++
			}
		}
	}
	return n
}

// isExact reports whether m is the candidate matching itself.
func isExact(candidate string, m similarity.Match) bool {
	return m.Score == 1 && m.Name == candidate
}
