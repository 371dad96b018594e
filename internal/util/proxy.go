package util

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// NewProxyFunc creates a proxy function based on configuration.
// If no proxy URLs are provided, falls back to environment variables.
// noProxy is a comma-separated list of hosts or domain suffixes that bypass the proxy.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	bypass := parseNoProxy(noProxy)

	return func(req *http.Request) (*url.URL, error) {
		if bypassed(req.URL.Hostname(), bypass) {
			return nil, nil
		}
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

// BrowserProxy picks the single proxy server Chrome is launched with, preferring the HTTPS one.
func BrowserProxy(httpProxy, httpsProxy string) string {
	if httpsProxy != "" {
		return httpsProxy
	}
	return httpProxy
}

func parseNoProxy(noProxy string) []string {
	var out []string
	for _, part := range strings.Split(noProxy, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if h, _, err := net.SplitHostPort(part); err == nil {
			part = h
		}
		out = append(out, part)
	}
	return out
}

func bypassed(host string, patterns []string) bool {
	host = strings.ToLower(host)
	for _, p := range patterns {
		if p == "*" || host == p {
			return true
		}
		suffix := p
		if !strings.HasPrefix(suffix, ".") {
			suffix = "." + suffix
		}
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}
