package kiwoom

import (
	"net/http"
	"strings"

	"github.com/mlstock/kiwoom-connector/pkg/settings"
)

// Hard-coded environment defaults. Construction never fails on a missing
// base URL because these always apply last.
const (
	defaultLiveBaseURL  = "https://api.kiwoom.com"
	defaultPaperBaseURL = "https://mockapi.kiwoom.com"
)

const defaultContentType = "application/json;charset=UTF-8"

// resolveBaseURL picks the base URL for the current environment. Resolution
// order, first non-empty wins: the hosts table keyed by the current
// environment, then the "paper" and "live" keys as in-table fallbacks, then
// a flat base_url string, then the hard-coded default.
func resolveBaseURL(cfg settings.BaseURL, live bool) (string, error) {
	env := "paper"
	if live {
		env = "live"
	}

	candidates := []string{
		cfg.Hosts[env],
		cfg.Hosts["paper"],
		cfg.Hosts["live"],
		cfg.Flat,
	}
	if live {
		candidates = append(candidates, defaultLiveBaseURL)
	} else {
		candidates = append(candidates, defaultPaperBaseURL)
	}

	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return strings.TrimSuffix(c, "/"), nil
		}
	}

	// Unreachable while the defaults above are non-empty; guards a bad edit
	// of the default pair.
	return "", &ConfigError{Message: "kiwoom base URL could not be resolved"}
}

// normalizeHeaders trims header keys, rewrites any case-insensitive spelling
// of the content-type key to its canonical form, and injects a default
// content type when absent.
func normalizeHeaders(raw map[string]string) map[string]string {
	headers := make(map[string]string, len(raw)+1)
	for k, v := range raw {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		if isContentTypeKey(key) {
			key = "Content-Type"
		}
		headers[key] = v
	}
	if _, ok := headers["Content-Type"]; !ok {
		headers["Content-Type"] = defaultContentType
	}
	return headers
}

// isContentTypeKey matches "Content-Type" ignoring case and the separator
// character (vendor configs have shipped "content_type" and "Content type").
func isContentTypeKey(key string) bool {
	normalized := strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', ' ':
			return -1
		}
		return r
	}, key)
	return strings.EqualFold(normalized, "contenttype")
}

// headerValue does a case-insensitive lookup of name in h. Vendor response
// header casing is inconsistent across endpoints, so the canonical-key
// lookup of http.Header.Get is complemented with a full scan.
func headerValue(h http.Header, name string) string {
	if v := h.Get(name); v != "" {
		return v
	}
	for k, vs := range h {
		if strings.EqualFold(k, name) && len(vs) > 0 {
			return vs[0]
		}
	}
	return ""
}
