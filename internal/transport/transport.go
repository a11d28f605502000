// Package transport builds the HTTP clients handed to provider SDKs. Proxy
// settings come only from explicit configuration; the process environment is
// never consulted.
package transport

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// NewHTTPClient returns a client with an explicit proxy (empty for direct
// connections) and an overall request timeout (0 for none).
func NewHTTPClient(proxyURL string, timeout time.Duration) (*http.Client, error) {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, fmt.Errorf("unexpected default transport %T", http.DefaultTransport)
	}
	tr := base.Clone()
	tr.Proxy = nil
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("parse proxy url: %q is not absolute", proxyURL)
		}
		tr.Proxy = http.ProxyURL(u)
	}
	return &http.Client{Transport: tr, Timeout: timeout}, nil
}
