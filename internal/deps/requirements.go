package deps

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ParseRequirements reads a pip requirements file.
// Blank lines, comments, option lines (-r, -e, --index-url, ...) and bare
// paths or URLs are skipped; backslash continuations are joined.
func ParseRequirements(r io.Reader) ([]Requirement, error) {
	var reqs []Requirement
	var pending strings.Builder

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasSuffix(line, `\`) {
			pending.WriteString(strings.TrimSuffix(line, `\`))
			pending.WriteByte(' ')
			continue
		}
		if pending.Len() > 0 {
			pending.WriteString(line)
			line = pending.String()
			pending.Reset()
		}

		if spec, ok := requirementLine(line); ok {
			reqs = append(reqs, ParseSpecifier(spec))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read requirements: %w", err)
	}
	if pending.Len() > 0 {
		if spec, ok := requirementLine(pending.String()); ok {
			reqs = append(reqs, ParseSpecifier(spec))
		}
	}
	return reqs, nil
}

// requirementLine strips comments and reports whether what remains names a package.
func requirementLine(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "#") {
		return "", false
	}
	// pip only treats '#' as a comment when preceded by whitespace.
	if i := strings.Index(line, " #"); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	if i := strings.Index(line, "\t#"); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}

	switch {
	case line == "":
		return "", false
	case strings.HasPrefix(line, "-"):
		return "", false
	case strings.HasPrefix(line, ".") || strings.HasPrefix(line, "/"):
		return "", false
	case strings.Contains(line, "://") && !strings.Contains(line, "@"):
		return "", false
	}
	return line, true
}
