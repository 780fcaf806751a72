// Package httputil builds the HTTP clients typoscan uses to reach package
// indexes and the GitHub API.
package httputil

import (
	"fmt"
	"net"
	"net/http"
	"time"
)

// Options configures a client built by NewClient.
type Options struct {
	// Timeout bounds a whole request including the body. Default: 60s.
	// Downloading the full PyPI index takes a while on slow links.
	Timeout time.Duration

	// DialTimeout is the TCP dial timeout. Default: 30s.
	DialTimeout time.Duration

	// ResponseHeaderTimeout is the time to wait for response headers. Default: 30s.
	ResponseHeaderTimeout time.Duration

	// MaxRedirects is the maximum redirect depth. Default: 10.
	MaxRedirects int

	// UserAgent is sent with every request when set.
	UserAgent string

	// Base is the transport requests are sent through. Default: a new
	// http.Transport built from the options above.
	Base http.RoundTripper
}

func (o *Options) applyDefaults() {
	if o.Timeout == 0 {
		o.Timeout = 60 * time.Second
	}
	if o.DialTimeout == 0 {
		o.DialTimeout = 30 * time.Second
	}
	if o.ResponseHeaderTimeout == 0 {
		o.ResponseHeaderTimeout = 30 * time.Second
	}
	if o.MaxRedirects == 0 {
		o.MaxRedirects = 10
	}
}

// NewClient returns a client for talking to package indexes.
//
// Redirects must stay on HTTPS and may not lead to private, loopback or
// link-local addresses, so a compromised mirror cannot point the download
// at internal services. The initial URL is not restricted; users may point
// --index-url at a local mirror on purpose.
func NewClient(opts Options) *http.Client {
	opts.applyDefaults()

	base := opts.Base
	if base == nil {
		base = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   opts.DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: opts.ResponseHeaderTimeout,
			ExpectContinueTimeout: 1 * time.Second,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
		}
	}

	var rt http.RoundTripper = base
	if opts.UserAgent != "" {
		rt = &userAgentTransport{base: base, userAgent: opts.UserAgent}
	}

	return &http.Client{
		Timeout:       opts.Timeout,
		Transport:     rt,
		CheckRedirect: redirectChecker(opts.MaxRedirects),
	}
}

// userAgentTransport sets the User-Agent header on every request.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}

// redirectChecker rejects downgrades, long chains and internal targets.
func redirectChecker(maxRedirects int) func(req *http.Request, via []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if req.URL.Scheme != "https" {
			return fmt.Errorf("redirect to non-HTTPS URL is not allowed: %s", req.URL)
		}
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}

		host := req.URL.Hostname()
		if ip := net.ParseIP(host); ip != nil {
			return ValidateIP(ip, host)
		}

		// Resolve and check every address to defeat DNS rebinding.
		ips, err := net.LookupIP(host)
		if err != nil {
			return fmt.Errorf("failed to resolve redirect host %s: %w", host, err)
		}
		for _, ip := range ips {
			if err := ValidateIP(ip, host); err != nil {
				return fmt.Errorf("refusing redirect: %s resolves to blocked IP %s", host, ip)
			}
		}
		return nil
	}
}
