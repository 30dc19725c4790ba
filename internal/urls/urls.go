// Package urls derives the externally reachable ReductStore URLs from the URL an
// ingress provider hands out and the configured API base path.
//
// Every function here is pure: the stored ingress URL is the only input that
// changes over time, and derived URLs are recomputed from it on each use.
package urls

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/reductstore/reductstore-operator/internal/constants"
)

// NormalizeBasePath prefixes p with "/" when missing and strips one trailing "/"
// unless the result is the root path.
func NormalizeBasePath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if p != "/" && strings.HasSuffix(p, "/") {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

// DefaultBasePath is the base path used when api-base-path is not configured.
// Model and application names are platform-constrained identifiers, so no escaping
// is applied.
func DefaultBasePath(model, app string) string {
	return fmt.Sprintf("/%s-%s", model, app)
}

// NormalizeIngressURL parses an ingress URL the way the ingress requirer library
// does: it must be absolute, and an empty path becomes "/".
func NormalizeIngressURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("failed to parse ingress URL %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("ingress URL %q is not absolute", raw)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// ExternalAPIURL returns scheme://[userinfo@]host of ingressURL joined with basePath, or "/" when
// basePath is empty. The ingress URL's own path, query and fragment are discarded.
// An empty or unparsable ingress URL yields "".
func ExternalAPIURL(ingressURL, basePath string) string {
	origin, ok := origin(ingressURL)
	if !ok {
		return ""
	}
	if basePath == "" {
		basePath = "/"
	}
	return origin + basePath
}

// ExternalUIURL returns scheme://host of ingressURL joined with basePath and the
// dashboard suffix. An empty or unparsable ingress URL yields "".
func ExternalUIURL(ingressURL, basePath string) string {
	origin, ok := origin(ingressURL)
	if !ok {
		return ""
	}
	// A root base path must not produce "//ui/dashboard".
	return origin + strings.TrimSuffix(basePath, "/") + constants.APIPathUIDashboard
}

// InfoURL returns the server info endpoint below an external API URL.
func InfoURL(apiURL string) string {
	if apiURL == "" {
		return ""
	}
	return strings.TrimRight(apiURL, "/") + constants.APIPathInfo
}

func origin(ingressURL string) (string, bool) {
	if ingressURL == "" {
		return "", false
	}
	u, err := url.Parse(ingressURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	host := u.Host
	if u.User != nil {
		host = u.User.String() + "@" + host
	}
	return u.Scheme + "://" + host, true
}
