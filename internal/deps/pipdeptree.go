package deps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/tsukumogami/typoscan/internal/log"
)

// pipdeptreeNode is one entry of `pipdeptree --json` output.
type pipdeptreeNode struct {
	Package struct {
		Key              string `json:"key"`
		PackageName      string `json:"package_name"`
		InstalledVersion string `json:"installed_version"`
	} `json:"package"`
	Dependencies []struct {
		Key              string `json:"key"`
		PackageName      string `json:"package_name"`
		InstalledVersion string `json:"installed_version"`
		RequiredVersion  string `json:"required_version"`
	} `json:"dependencies"`
}

// Runner executes a command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// execRunner runs the command on the host.
func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// PipdeptreeSource resolves an installed package's dependency tree by
// running pipdeptree. The package must already be installed in the
// interpreter's environment; nothing is installed here.
type PipdeptreeSource struct {
	Package string
	Python  string // interpreter, "python3" when empty
	Runner  Runner // command runner, host exec when nil
	Logger  log.Logger
}

// Names returns the package and every dependency in its tree.
func (s *PipdeptreeSource) Names(ctx context.Context) ([]string, error) {
	python := s.Python
	if python == "" {
		python = "python3"
	}
	run := s.Runner
	if run == nil {
		run = execRunner
	}

	out, err := run(ctx, python, "-m", "pipdeptree", "-p", s.Package, "--json")
	if err != nil {
		return nil, fmt.Errorf("resolve dependency tree of %s: %w", s.Package, err)
	}
	return ParsePipdeptree(out, s.Logger)
}

// Describe names the source for log output.
func (s *PipdeptreeSource) Describe() string {
	return "dependency tree of " + s.Package
}

// ParsePipdeptree flattens `pipdeptree --json` output into the unique
// package names it mentions. Installed versions that violate the declared
// requirement are reported at WARN level.
func ParsePipdeptree(data []byte, logger log.Logger) ([]string, error) {
	if logger == nil {
		logger = log.Default()
	}

	var nodes []pipdeptreeNode
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("parse pipdeptree output: %w", err)
	}

	var names []string
	for _, n := range nodes {
		names = append(names, n.Package.PackageName)
		for _, d := range n.Dependencies {
			names = append(names, d.PackageName)

			if d.RequiredVersion == "" || strings.EqualFold(d.RequiredVersion, "any") {
				continue
			}
			req := ParseSpecifier(d.PackageName + d.RequiredVersion)
			if ok, err := req.Allows(d.InstalledVersion); err == nil && !ok {
				logger.Warn("installed version does not satisfy requirement",
					"package", n.Package.PackageName,
					"dependency", d.PackageName,
					"required", d.RequiredVersion,
					"installed", d.InstalledVersion)
			}
		}
	}
	return Unique(names), nil
}

// TreeFileSource reads pre-generated `pipdeptree --json` output.
type TreeFileSource struct {
	Path   string
	Read   func(string) ([]byte, error) // os.ReadFile when nil
	Logger log.Logger
}

// Names returns the flattened tree.
func (s *TreeFileSource) Names(context.Context) ([]string, error) {
	read := s.Read
	if read == nil {
		read = os.ReadFile
	}
	data, err := read(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read dependency tree: %w", err)
	}
	return ParsePipdeptree(data, s.Logger)
}

// Describe names the source for log output.
func (s *TreeFileSource) Describe() string {
	return "dependency tree file " + s.Path
}
