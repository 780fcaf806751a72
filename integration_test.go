//go:build integration

package main_test

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// knownTyposquat is a name that was published on PyPI to impersonate a
// popular package, paired with the package it imitates.
type knownTyposquat struct {
	Name   string
	Target string
}

// Names taken from public PyPI malware reports. They only need to be
// similar to their target; whether they are still registered does not matter.
var knownTyposquats = []knownTyposquat{
	{"reqeusts", "requests"},
	{"urlib3", "urllib3"},
	{"djanga", "django"},
	{"colourama", "colorama"},
	{"python-dateutils", "python-dateutil"},
	{"beautifulsoup", "beautifulsoup4"},
}

const binaryName = "typoscan-integration"

var (
	// Command-line flags for filtering tests
	nameFilter = flag.String("name", "", "Run only the case for one candidate (e.g., -name=reqeusts)")
	corpusPath = flag.String("corpus", "", "Use an existing corpus instead of downloading one")
)

func TestMain(m *testing.M) {
	flag.Parse()
	os.Exit(m.Run())
}

// TestIntegration downloads the live PyPI index and scans known typosquats.
func TestIntegration(t *testing.T) {
	projectRoot, err := findProjectRoot()
	if err != nil {
		t.Fatalf("Failed to find project root: %v", err)
	}

	bin := filepath.Join(t.TempDir(), binaryName)
	if err := buildBinary(t, projectRoot, bin); err != nil {
		t.Fatalf("Failed to build typoscan: %v", err)
	}

	home := t.TempDir()
	corpus := *corpusPath
	if corpus == "" {
		corpus = filepath.Join(home, "corpus", "pypi.json.zst")
		if _, err := run(t, bin, home, "update", "-o", corpus); err != nil {
			t.Fatalf("Failed to download corpus: %v", err)
		}
	}

	for _, tc := range knownTyposquats {
		if *nameFilter != "" && tc.Name != *nameFilter {
			continue
		}
		t.Run(tc.Name, func(t *testing.T) {
			t.Parallel()
			out := filepath.Join(t.TempDir(), "results.json")
			if _, err := run(t, bin, home, "scan", tc.Name, "--corpus", corpus, "-o", out); err != nil {
				t.Fatalf("scan failed: %v", err)
			}

			results, err := readResults(out)
			if err != nil {
				t.Fatal(err)
			}
			for _, m := range results[tc.Name] {
				if m[0] == tc.Target {
					return
				}
			}
			t.Errorf("%s not reported as similar to %s: %v", tc.Name, tc.Target, results[tc.Name])
		})
	}
}

// findProjectRoot finds the project root directory (where go.mod is)
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	// Walk up until we find go.mod
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find go.mod in any parent directory")
		}
		dir = parent
	}
}

// buildBinary builds cmd/typoscan for the host platform.
func buildBinary(t *testing.T, projectRoot, output string) error {
	t.Log("Building typoscan binary...")

	cmd := exec.Command("go", "build", "-o", output, "./cmd/typoscan")
	cmd.Dir = projectRoot
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("go build failed: %w\nStderr: %s", err, stderr.String())
	}
	return nil
}

// run executes the binary with an isolated home directory.
func run(t *testing.T, bin, home string, args ...string) (string, error) {
	cmd := exec.Command(bin, args...)
	cmd.Env = append(os.Environ(), "TYPOSCAN_HOME="+home)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if stderr.Len() > 0 {
		t.Logf("stderr:\n%s", stderr.String())
	}
	if err != nil {
		return stdout.String(), fmt.Errorf("%s %v: %w", bin, args, err)
	}
	return stdout.String(), nil
}

func readResults(path string) (map[string][][]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	var doc map[string][][]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse results: %w", err)
	}
	return doc, nil
}
