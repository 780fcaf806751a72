package deps

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Source yields the raw dependency specifiers of a project.
// Implementations are opaque providers: they may return names with
// versions, extras or markers attached, which the caller normalizes.
type Source interface {
	Names(ctx context.Context) ([]string, error)
	Describe() string
}

// FileSource reads a requirements file from disk, or stdin when Path is "-".
type FileSource struct {
	Path  string
	Stdin io.Reader
}

// Names returns the specifiers listed in the file.
func (s *FileSource) Names(ctx context.Context) ([]string, error) {
	var r io.Reader
	if s.Path == "-" {
		r = s.Stdin
		if r == nil {
			r = os.Stdin
		}
	} else {
		f, err := os.Open(s.Path)
		if err != nil {
			return nil, fmt.Errorf("open requirements file: %w", err)
		}
		defer f.Close()
		r = f
	}

	reqs, err := ParseRequirements(r)
	if err != nil {
		return nil, err
	}
	return rawSpecifiers(reqs), nil
}

// Describe names the file for log output.
func (s *FileSource) Describe() string {
	if s.Path == "-" {
		return "requirements from stdin"
	}
	return "requirements file " + s.Path
}

// StaticSource returns a fixed list, used for names given on the command line.
type StaticSource []string

// Names returns the list unchanged.
func (s StaticSource) Names(context.Context) ([]string, error) {
	return []string(s), nil
}

// Describe names the source for log output.
func (s StaticSource) Describe() string {
	return "command line"
}

// Collect gathers the specifiers of every source in order.
func Collect(ctx context.Context, sources ...Source) ([]string, error) {
	var all []string
	for _, src := range sources {
		names, err := src.Names(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", src.Describe(), err)
		}
		all = append(all, names...)
	}
	return all, nil
}

func rawSpecifiers(reqs []Requirement) []string {
	out := make([]string, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, r.Raw)
	}
	return out
}
