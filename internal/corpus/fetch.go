package corpus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"
)

// DefaultIndexURL is the PyPI simple repository index.
const DefaultIndexURL = "https://pypi.org/simple/"

// maxIndexSize bounds the index download. The full PyPI simple page is
// a few tens of megabytes.
const maxIndexSize = 512 * 1024 * 1024

// ErrFetch wraps every failure to download the index.
var ErrFetch = errors.New("fetch package index")

// FetchOption configures Fetch.
type FetchOption func(*fetchOptions)

type fetchOptions struct {
	progress func(total int64) io.Writer
}

// WithProgress copies the response body to the writer returned by fn as it
// is read. total is the Content-Length, or -1 when the server didn't send one.
func WithProgress(fn func(total int64) io.Writer) FetchOption {
	return func(o *fetchOptions) {
		o.progress = fn
	}
}

// Fetch downloads a PEP 503 simple index and returns the project names
// it links to.
func Fetch(ctx context.Context, client *http.Client, indexURL string, opts ...FetchOption) (Corpus, error) {
	var o fetchOptions
	for _, opt := range opts {
		opt(&o)
	}
	if client == nil {
		client = http.DefaultClient
	}
	if indexURL == "" {
		indexURL = DefaultIndexURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, indexURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrFetch, indexURL, resp.StatusCode)
	}

	var body io.Reader = io.LimitReader(resp.Body, maxIndexSize)
	if o.progress != nil {
		if w := o.progress(resp.ContentLength); w != nil {
			body = io.TeeReader(body, w)
		}
	}

	names, err := ParseIndex(body)
	if err != nil {
		return nil, err
	}
	c := New(names)
	if len(c) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyCorpus, indexURL)
	}
	return c, nil
}

// ParseIndex returns the text of every anchor in an HTML index page.
func ParseIndex(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse package index: %w", err)
	}

	var names []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			var sb strings.Builder
			anchorText(n, &sb)
			if name := strings.TrimSpace(sb.String()); name != "" {
				names = append(names, name)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return names, nil
}

func anchorText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		anchorText(c, sb)
	}
}
