package util

import (
	"net/url"
	"strings"
)

// IsRedirectSafe reports whether a caller-supplied post-login redirect
// target may be followed. Allowed targets are same-site relative paths
// and absolute http(s) URLs on the baseURL host; anything else is an
// open-redirect vector and is refused.
func IsRedirectSafe(redirectURL, baseURL string) bool {
	if redirectURL == "" {
		// Caller falls back to the landing page.
		return true
	}
	// CR/LF would let the value escape into response headers.
	if strings.ContainsAny(redirectURL, "\r\n") {
		return false
	}

	if strings.HasPrefix(redirectURL, "/") {
		// "//host" is scheme-relative, and backslash variants normalize
		// to it in some browsers.
		return !strings.HasPrefix(redirectURL, "//") &&
			!strings.Contains(redirectURL, "\\")
	}

	target, err := url.Parse(redirectURL)
	if err != nil {
		return false
	}
	switch target.Scheme {
	case "", "http", "https":
	default:
		// javascript:, data:, and friends
		return false
	}
	if target.Host == "" {
		return true
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	return target.Host == base.Host
}
