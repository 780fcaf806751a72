// Package corpus loads, fetches and stores the reference corpus: the
// catalog of known registry package names that candidates are compared to.
package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/sorairolake/lzip-go"
	"github.com/ulikunitz/xz"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// ErrCorpusNotFound is returned when the corpus file does not exist.
	ErrCorpusNotFound = errors.New("reference corpus not found")

	// ErrEmptyCorpus is returned when a corpus holds no names.
	ErrEmptyCorpus = errors.New("reference corpus is empty")
)

// Corpus is an ordered, de-duplicated list of lowercase package names.
// It is read-only once loaded and may be shared between goroutines.
type Corpus []string

// New lowercases, trims and de-duplicates names, keeping first occurrences.
func New(names []string) Corpus {
	seen := make(map[string]struct{}, len(names))
	out := make(Corpus, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(cases.Lower(language.Und).String(n))
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Load reads a corpus file. JSON arrays (".json") and newline separated
// text are accepted, optionally compressed with gzip (".gz"), zstd
// (".zst"), xz (".xz") or lzip (".lz").
func Load(path string) (Corpus, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrCorpusNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()

	r, closeFn, err := decompress(path, f)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var names []string
	if strings.HasSuffix(baseName(path), ".json") {
		if err := json.NewDecoder(r).Decode(&names); err != nil {
			return nil, fmt.Errorf("parse corpus %s: %w", path, err)
		}
	} else {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			names = append(names, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read corpus %s: %w", path, err)
		}
	}

	c := New(names)
	if len(c) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyCorpus, path)
	}
	return c, nil
}

// Save writes the corpus as a JSON array, compressed according to the
// path's suffix (".gz" or ".zst"). The file is replaced atomically.
func Save(path string, c Corpus) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create corpus directory: %w", err)
	}

	data, err := json.Marshal([]string(c))
	if err != nil {
		return fmt.Errorf("marshal corpus: %w", err)
	}

	var buf bytes.Buffer
	switch filepath.Ext(path) {
	case ".gz":
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return fmt.Errorf("compress corpus: %w", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("compress corpus: %w", err)
		}
	case ".zst":
		zw, err := zstd.NewWriter(&buf)
		if err != nil {
			return fmt.Errorf("create zstd writer: %w", err)
		}
		if _, err := zw.Write(data); err != nil {
			return fmt.Errorf("compress corpus: %w", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("compress corpus: %w", err)
		}
	case ".json":
		buf.Write(data)
		buf.WriteByte('\n')
	default:
		return fmt.Errorf("unsupported corpus output format %q (use .json, .json.gz or .json.zst)", filepath.Ext(path))
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write corpus: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write corpus: %w", err)
	}
	return nil
}

// decompress wraps r in the reader matching the path's compression suffix.
func decompress(path string, r io.Reader) (io.Reader, func(), error) {
	noop := func() {}
	switch filepath.Ext(path) {
	case ".gz":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return zr, func() { zr.Close() }, nil
	case ".zst":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		return zr, zr.Close, nil
	case ".xz":
		xzr, err := xz.NewReader(r)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create xz reader: %w", err)
		}
		return xzr, noop, nil
	case ".lz":
		lr, err := lzip.NewReader(r)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create lzip reader: %w", err)
		}
		return lr, noop, nil
	default:
		return r, noop, nil
	}
}

// baseName strips a compression suffix so the content format can be read.
func baseName(path string) string {
	switch ext := filepath.Ext(path); ext {
	case ".gz", ".zst", ".xz", ".lz":
		return strings.TrimSuffix(path, ext)
	default:
		return path
	}
}
