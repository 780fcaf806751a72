package functional

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"
	"gopkg.in/yaml.v3"
)

// aCleanTyposcanEnvironment is a no-op because the Before hook already sets
// up the environment. This step exists so feature files read naturally.
func aCleanTyposcanEnvironment(ctx context.Context) (context.Context, error) {
	return ctx, nil
}

// aCorpusContaining writes corpus.json to the work dir. Scenarios pass it
// with --corpus so scans never touch the network.
func aCorpusContaining(ctx context.Context, names string) (context.Context, error) {
	state := getState(ctx)
	var list []string
	for _, n := range strings.Split(names, ",") {
		if n = strings.TrimSpace(n); n != "" {
			list = append(list, n)
		}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return ctx, err
	}

	path := filepath.Join(state.workDir, "corpus.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return ctx, err
	}
	return ctx, nil
}

func aFileContaining(ctx context.Context, name string, body *godog.DocString) (context.Context, error) {
	state := getState(ctx)
	path := filepath.Join(state.workDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ctx, err
	}
	return ctx, os.WriteFile(path, []byte(body.Content+"\n"), 0o644)
}

// iRun executes a command string, replacing "typoscan" with the test binary path.
func iRun(ctx context.Context, command string) (context.Context, error) {
	state := getState(ctx)
	if state == nil {
		return ctx, fmt.Errorf("no test state; is the Before hook running?")
	}

	args := strings.Fields(command)
	if len(args) > 0 && args[0] == "typoscan" {
		args[0] = state.binPath
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = state.workDir

	// Isolate home, keep the index unreachable and quiet the logger
	env := append(os.Environ(),
		"TYPOSCAN_HOME="+state.homeDir,
		"TYPOSCAN_INDEX_URL=http://127.0.0.1:1/simple/",
		"TYPOSCAN_API_TIMEOUT=2s",
		"TYPOSCAN_DEBUG=",
		"TYPOSCAN_VERBOSE=",
	)
	if len(state.hiddenBinaries) > 0 {
		path := filteredPATH(state.hiddenBinaries)
		for _, bin := range state.hiddenBinaries {
			if lookPathIn(bin, path) {
				return ctx, fmt.Errorf("could not hide %s from PATH", bin)
			}
		}
		env = append(env, "PATH="+path)
	}
	cmd.Env = env

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	state.stdout = stdout.String()
	state.stderr = stderr.String()

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			state.exitCode = exitErr.ExitCode()
		} else {
			return ctx, fmt.Errorf("command execution failed: %w", err)
		}
	} else {
		state.exitCode = 0
	}

	return ctx, nil
}

func theExitCodeIs(ctx context.Context, expected int) error {
	state := getState(ctx)
	if state.exitCode != expected {
		return fmt.Errorf("expected exit code %d, got %d\nstdout: %s\nstderr: %s",
			expected, state.exitCode, state.stdout, state.stderr)
	}
	return nil
}

func theExitCodeIsNot(ctx context.Context, notExpected int) error {
	state := getState(ctx)
	if state.exitCode == notExpected {
		return fmt.Errorf("expected exit code to not be %d\nstdout: %s\nstderr: %s",
			notExpected, state.stdout, state.stderr)
	}
	return nil
}

func theOutputContains(ctx context.Context, text string) error {
	state := getState(ctx)
	if !strings.Contains(state.stdout, text) {
		return fmt.Errorf("expected stdout to contain %q, got:\n%s", text, state.stdout)
	}
	return nil
}

func theOutputDoesNotContain(ctx context.Context, text string) error {
	state := getState(ctx)
	if strings.Contains(state.stdout, text) {
		return fmt.Errorf("expected stdout not to contain %q, got:\n%s", text, state.stdout)
	}
	return nil
}

func theErrorOutputContains(ctx context.Context, text string) error {
	state := getState(ctx)
	if !strings.Contains(state.stderr, text) {
		return fmt.Errorf("expected stderr to contain %q, got:\n%s", text, state.stderr)
	}
	return nil
}

func theErrorOutputDoesNotContain(ctx context.Context, text string) error {
	state := getState(ctx)
	if strings.Contains(state.stderr, text) {
		return fmt.Errorf("expected stderr not to contain %q, got:\n%s", text, state.stderr)
	}
	return nil
}

// resolve maps "~/x" to the scenario home and anything else to the work dir.
func (s *testState) resolve(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		return filepath.Join(s.homeDir, rest)
	}
	return filepath.Join(s.workDir, path)
}

func theFileExists(ctx context.Context, path string) error {
	state := getState(ctx)
	fullPath := state.resolve(path)
	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return fmt.Errorf("expected file %q to exist", fullPath)
	}
	return nil
}

func theFileDoesNotExist(ctx context.Context, path string) error {
	state := getState(ctx)
	fullPath := state.resolve(path)
	if _, err := os.Stat(fullPath); err == nil {
		return fmt.Errorf("expected file %q not to exist", fullPath)
	}
	return nil
}

// readResults decodes a results file without going through the internal
// packages, the way any downstream consumer would.
func readResults(path string) (map[string][][]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc map[string][][]any
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc, nil
}

func theResultsFileReports(ctx context.Context, path, candidate, name string) error {
	state := getState(ctx)
	doc, err := readResults(state.resolve(path))
	if err != nil {
		return err
	}
	matches, ok := doc[candidate]
	if !ok {
		return fmt.Errorf("results have no entry for %q: %v", candidate, doc)
	}
	for _, m := range matches {
		if len(m) == 2 && m[0] == name {
			return nil
		}
	}
	return fmt.Errorf("expected %q to be reported as similar to %q, got %v", candidate, name, matches)
}

func theResultsFileHasNoMatchesFor(ctx context.Context, path, candidate string) error {
	state := getState(ctx)
	doc, err := readResults(state.resolve(path))
	if err != nil {
		return err
	}
	matches, ok := doc[candidate]
	if !ok {
		return fmt.Errorf("results have no entry for %q: %v", candidate, doc)
	}
	if len(matches) != 0 {
		return fmt.Errorf("expected no matches for %q, got %v", candidate, matches)
	}
	return nil
}
