package utils

import (
	"fmt"
	"net/url"
	"strings"

	"expansion-evaluator/internal/types"
)

// NormalizeDomain returns the lowercased host of rawURL without a leading "www.".
// Bare hosts ("example.com") are accepted.
func NormalizeDomain(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// BaseURL returns scheme://host of rawURL
func BaseURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q", types.ErrInvalidURL, rawURL)
	}
	return u.Scheme + "://" + u.Host, nil
}

// RootURL is BaseURL for callers building paths off the store root. Input
// that BaseURL rejects is returned without its trailing slash.
func RootURL(rawURL string) string {
	if base, err := BaseURL(rawURL); err == nil {
		return base
	}
	return strings.TrimRight(strings.TrimSpace(rawURL), "/")
}

// ResolveURL resolves href against base. It returns "" for fragments,
// javascript:/mailto:/tel: links and unparsable input.
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	lower := strings.ToLower(href)
	for _, scheme := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, scheme) {
			return ""
		}
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := baseURL.ResolveReference(ref)
	resolved.Fragment = ""
	return resolved.String()
}

// SameSite reports whether link points at the same normalized domain as storeURL
func SameSite(storeURL, link string) bool {
	return NormalizeDomain(storeURL) == NormalizeDomain(link)
}

// EnsureScheme prefixes https:// onto bare hosts
func EnsureScheme(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	if raw == "" || strings.Contains(raw, "://") {
		return raw
	}
	return "https://" + raw
}
