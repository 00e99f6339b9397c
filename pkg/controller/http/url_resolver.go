package http

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// GetFrontendURL returns the public dashboard origin. An empty configuredURL makes it
// follow the proxy headers of the request.
func GetFrontendURL(r *http.Request, configuredURL string) string {
	if configuredURL != "" {
		return strings.TrimRight(configuredURL, "/")
	}

	// TLS is terminated at the reverse proxy
	scheme := "https"
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" {
		scheme = "http"
	}

	host := r.Host
	if forwardedHost := r.Header.Get("X-Forwarded-Host"); forwardedHost != "" {
		// the first entry is the client-facing host
		host = strings.TrimSpace(strings.Split(forwardedHost, ",")[0])
	}
	if host == "" {
		host = "localhost"
	}

	return fmt.Sprintf("%s://%s", scheme, host)
}

// OriginChecker returns a WebSocket origin policy accepting the dashboard origin only.
// Requests without Origin come from non-browser clients and are accepted.
func OriginChecker(configuredURL string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}

		expected, err := url.Parse(GetFrontendURL(r, configuredURL))
		if err != nil {
			return false
		}
		if strings.EqualFold(u.Host, expected.Host) {
			return configuredURL == "" || strings.EqualFold(u.Scheme, expected.Scheme)
		}
		return isLocalhost(r) && strings.EqualFold(u.Hostname(), "localhost")
	}
}
