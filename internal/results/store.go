package results

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tsukumogami/typoscan/internal/log"
	"github.com/tsukumogami/typoscan/internal/similarity"
)

// Store writes checkpoints of a run to a single results file.
//
// Each Flush merges the new results into what earlier flushes of the same
// run wrote: matches for a repeated candidate are appended, never replaced.
// The first flush of a run starts a fresh file unless appending was
// requested, in which case results from earlier runs are kept as well.
//
// Flush is exclusive and atomic: the merged document is written to a
// temporary file that is renamed over the destination, so a failed flush
// leaves the previous checkpoint intact.
type Store struct {
	path   string
	format Format
	append bool
	logger log.Logger

	mu      sync.Mutex
	flushes int
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithAppend keeps results already in the file from earlier runs.
func WithAppend() StoreOption {
	return func(s *Store) {
		s.append = true
	}
}

// WithFormat overrides the format implied by the file extension.
func WithFormat(f Format) StoreOption {
	return func(s *Store) {
		s.format = f
	}
}

// WithLogger sets the logger used for checkpoint messages.
func WithLogger(l log.Logger) StoreOption {
	return func(s *Store) {
		s.logger = l
	}
}

// NewStore returns a Store writing to path.
func NewStore(path string, opts ...StoreOption) *Store {
	s := &Store{
		path:   path,
		format: FormatFromPath(path),
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the destination file.
func (s *Store) Path() string {
	return s.path
}

// Flushes returns the number of successful flushes so far.
func (s *Store) Flushes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushes
}

// Flush merges rs into the results file.
func (s *Store) Flush(rs similarity.ResultSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make(similarity.ResultSet, len(rs))
	if s.flushes > 0 || s.append {
		existing, err := LoadFormat(s.path, s.format)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return fmt.Errorf("read previous checkpoint: %w", err)
		default:
			merged.Merge(existing)
		}
	}
	merged.Merge(rs)

	data, err := Marshal(merged, s.format)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	if err := writeAtomic(s.path, data); err != nil {
		return err
	}

	s.flushes++
	s.logger.Info("checkpoint written",
		"path", s.path,
		"checkpoint", s.flushes,
		"candidates", len(rs),
		"matches", rs.MatchCount())
	return nil
}

// Load reads a results file, choosing the format from its extension.
func Load(path string) (similarity.ResultSet, error) {
	return LoadFormat(path, FormatFromPath(path))
}

// LoadFormat reads a results file in the given format.
func LoadFormat(path string, f Format) (similarity.ResultSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data, f)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create results directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary results file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("set results file mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write results: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync results: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close results: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace results file: %w", err)
	}
	return nil
}
