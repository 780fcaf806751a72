package deps

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/tsukumogami/typoscan/internal/secrets"
)

// DefaultRequirementsPath is read when a GitHub reference names no file.
const DefaultRequirementsPath = "requirements.txt"

var ownerRepoRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ErrInvalidGitHubRef is returned for references that are not owner/repo[:path][@ref].
var ErrInvalidGitHubRef = errors.New("invalid GitHub reference")

// GitHubSource reads a requirements file from a GitHub repository.
type GitHubSource struct {
	Owner string
	Repo  string
	Path  string
	Ref   string // branch, tag or commit; default branch when empty

	Client *github.Client
}

// NewGitHubClient returns a client authenticated with the github_token
// secret when one is configured, anonymous otherwise. Requests go through
// base, or http.DefaultClient when base is nil.
func NewGitHubClient(ctx context.Context, base *http.Client) *github.Client {
	httpClient := base
	if token, err := secrets.Get("github_token"); err == nil {
		if base != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
		}
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, ts)
	}
	return github.NewClient(httpClient)
}

// ParseGitHubRef parses "owner/repo", "owner/repo:path/to/requirements.txt"
// and either form followed by "@ref".
func ParseGitHubRef(ref string) (*GitHubSource, error) {
	src := &GitHubSource{Path: DefaultRequirementsPath}

	if i := strings.LastIndexByte(ref, '@'); i >= 0 {
		src.Ref = ref[i+1:]
		ref = ref[:i]
		if src.Ref == "" {
			return nil, fmt.Errorf("%w: empty ref", ErrInvalidGitHubRef)
		}
	}
	if i := strings.IndexByte(ref, ':'); i >= 0 {
		src.Path = strings.TrimPrefix(ref[i+1:], "/")
		ref = ref[:i]
		if src.Path == "" || strings.Contains(src.Path, "..") {
			return nil, fmt.Errorf("%w: bad path %q", ErrInvalidGitHubRef, src.Path)
		}
	}

	parts := strings.Split(ref, "/")
	if len(parts) != 2 || !ownerRepoRegex.MatchString(parts[0]) || !ownerRepoRegex.MatchString(parts[1]) {
		return nil, fmt.Errorf("%w: expected owner/repo, got %q", ErrInvalidGitHubRef, ref)
	}
	src.Owner, src.Repo = parts[0], parts[1]
	return src, nil
}

// Names downloads the file and returns its specifiers.
func (s *GitHubSource) Names(ctx context.Context) ([]string, error) {
	client := s.Client
	if client == nil {
		client = NewGitHubClient(ctx, nil)
	}

	var opts *github.RepositoryContentGetOptions
	if s.Ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: s.Ref}
	}

	file, _, _, err := client.Repositories.GetContents(ctx, s.Owner, s.Repo, s.Path, opts)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.Describe(), err)
	}
	if file == nil {
		return nil, fmt.Errorf("fetch %s: path is a directory", s.Describe())
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.Describe(), err)
	}

	reqs, err := ParseRequirements(strings.NewReader(content))
	if err != nil {
		return nil, err
	}
	return rawSpecifiers(reqs), nil
}

// Describe names the file for log output.
func (s *GitHubSource) Describe() string {
	d := fmt.Sprintf("github.com/%s/%s/%s", s.Owner, s.Repo, s.Path)
	if s.Ref != "" {
		d += "@" + s.Ref
	}
	return d
}
