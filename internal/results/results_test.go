package results

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tsukumogami/typoscan/internal/log"
	"github.com/tsukumogami/typoscan/internal/similarity"
)

func TestMarshalJSONShape(t *testing.T) {
	rs := similarity.ResultSet{}
	rs.Add("reqeusts", similarity.Match{Name: "requests", Score: 0.875})
	rs.Add("clean")

	data, err := Marshal(rs, FormatJSON)
	require.NoError(t, err)

	out := string(data)
	require.Contains(t, out, `"reqeusts": [`)
	require.Contains(t, out, `"requests",`)
	require.Contains(t, out, `0.875`)
	require.Contains(t, out, `"clean": []`)

	back, err := Unmarshal(data, FormatJSON)
	require.NoError(t, err)
	require.Equal(t, rs, back)
}

func TestMarshalYAMLShape(t *testing.T) {
	rs := similarity.ResultSet{}
	rs.Add("flsk",
		similarity.Match{Name: "flask", Score: 0.8},
		similarity.Match{Name: "flsk", Score: 1},
		similarity.Match{Name: "null", Score: 0.5},
	)

	data, err := Marshal(rs, FormatYAML)
	require.NoError(t, err)

	out := string(data)
	require.Contains(t, out, "[flsk, 1.0]")
	require.Contains(t, out, "[flask, 0.8]")

	back, err := Unmarshal(data, FormatYAML)
	require.NoError(t, err)
	require.Equal(t, rs.Sorted(), back)
}

func TestUnmarshalRejectsBadPairs(t *testing.T) {
	_, err := Unmarshal([]byte(`{"a": [["b"]]}`), FormatJSON)
	require.Error(t, err)

	_, err = Unmarshal([]byte(`{"a": [["b", "high"]]}`), FormatJSON)
	require.Error(t, err)

	_, err = Unmarshal([]byte("a:\n  - [b, high]\n"), FormatYAML)
	require.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"json": FormatJSON, "": FormatJSON, "YAML": FormatYAML, "yml": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		require.Equal(t, want, got, in)
	}
	_, err := ParseFormat("xml")
	require.Error(t, err)

	require.Equal(t, FormatYAML, FormatFromPath("out/results.yml"))
	require.Equal(t, FormatJSON, FormatFromPath("results.json"))
	require.Equal(t, FormatJSON, FormatFromPath("results"))
}

func TestStoreMergesCheckpoints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.json")
	store := NewStore(path, WithLogger(log.NewNoop()))

	first := similarity.ResultSet{}
	first.Add("flsk", similarity.Match{Name: "flask", Score: 0.8})
	first.Add("numpyy", similarity.Match{Name: "numpy", Score: 0.833})
	require.NoError(t, store.Flush(first))

	second := similarity.ResultSet{}
	second.Add("flsk", similarity.Match{Name: "flash", Score: 0.6})
	second.Add("reqeusts", similarity.Match{Name: "requests", Score: 0.875})
	require.NoError(t, store.Flush(second))

	require.Equal(t, 2, store.Flushes())

	got, err := Load(path)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Len(t, got["flsk"], 2, "matches for a repeated candidate are appended")
	require.Equal(t, 4, got.MatchCount())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestStoreReplacesStaleFileOnFirstFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"old": [["older", 0.9]]}`), 0644))

	store := NewStore(path, WithLogger(log.NewNoop()))
	require.NoError(t, store.Flush(similarity.ResultSet{"new": {}}))

	got, err := Load(path)
	require.NoError(t, err)
	require.NotContains(t, got, "old")
	require.Contains(t, got, "new")
}

func TestStoreAppendKeepsPreviousRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.yaml")
	require.NoError(t, os.WriteFile(path, []byte("old:\n  - [older, 0.9]\n"), 0644))

	store := NewStore(path, WithAppend(), WithLogger(log.NewNoop()))
	require.NoError(t, store.Flush(similarity.ResultSet{"old": {{Name: "oldest", Score: 0.85}}}))

	got, err := Load(path)
	require.NoError(t, err)
	require.Len(t, got["old"], 2)
}

func TestStoreFlushFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	store := NewStore(filepath.Join(blocker, "results.json"), WithLogger(log.NewNoop()))
	err := store.Flush(similarity.ResultSet{"a": {}})
	require.Error(t, err)
	require.Equal(t, 0, store.Flushes())
}

func TestStoreFormatOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.out")
	store := NewStore(path, WithFormat(FormatYAML), WithLogger(log.NewNoop()))
	require.NoError(t, store.Flush(similarity.ResultSet{"a": {{Name: "b", Score: 0.9}}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "a:\n")
}

func TestSummary(t *testing.T) {
	rs := similarity.ResultSet{}
	rs.Add("reqeusts", similarity.Match{Name: "requests", Score: 0.875}, similarity.Match{Name: "reqeust", Score: 0.75})
	rs.Add("flask", similarity.Match{Name: "flask", Score: 1}, similarity.Match{Name: "flasks", Score: 0.8333333})
	rs.Add("numpy", similarity.Match{Name: "numpy", Score: 1})
	rs.Add("clean")

	out := Summary(rs, ReportOptions{HighRisk: 0.85})

	require.Contains(t, out, "| Candidates scanned | 4 |")
	require.Contains(t, out, "| Candidates with similar names | 2 |")
	require.Contains(t, out, "| Similar names | 3 |")
	require.Contains(t, out, "### reqeusts (1 high-risk)")
	require.Contains(t, out, "| requests | 0.88 ⚠️ |")
	require.Contains(t, out, "| reqeust | 0.75 |")
	require.Contains(t, out, "### flask\n")
	require.NotContains(t, out, "| flask | 1.00")
	require.NotContains(t, out, "### numpy")

	// Highest score first.
	require.Less(t, strings.Index(out, "| requests |"), strings.Index(out, "| reqeust |"))

	withExact := Summary(rs, ReportOptions{IncludeExact: true})
	require.Contains(t, withExact, "| flask | 1.00 |")
	require.Contains(t, withExact, "### numpy")
}

func TestSummaryLargeResultSet(t *testing.T) {
	const n = 5000
	rs := similarity.ResultSet{}
	for i := 0; i < n; i++ {
		c := fmt.Sprintf("pkg%05d", i)
		rs.Add(c,
			similarity.Match{Name: c + "a", Score: 0.9},
			similarity.Match{Name: c + "b", Score: 0.85},
			similarity.Match{Name: c + "c", Score: 0.81},
		)
	}

	out := Summary(rs, ReportOptions{})
	require.Contains(t, out, fmt.Sprintf("| Candidates scanned | %d |", n))
	require.Contains(t, out, fmt.Sprintf("| Similar names | %d |", 3*n))
	require.Equal(t, n, strings.Count(out, "\n### "))
	require.Equal(t, n, strings.Count(out, "(1 high-risk)"))
	require.Equal(t, 3*n, strings.Count(out, "| pkg"))

	// Each section holds only its own rows.
	start := strings.Index(out, "### pkg00001")
	end := strings.Index(out, "### pkg00002")
	section := out[start:end]
	require.Equal(t, 3, strings.Count(section, "| pkg00001"))
	require.NotContains(t, section, "pkg00000")
}

func TestSummaryNothingFound(t *testing.T) {
	rs := similarity.ResultSet{"numpy": {{Name: "numpy", Score: 1}}, "clean": {}}
	out := Summary(rs, ReportOptions{})
	require.Contains(t, out, "No similar package names found.")
	require.Empty(t, Flagged(rs))
}
