// Package reconcile merges company records from the directory and the network
// profiles into one canonical dataset.
package reconcile

import (
	"regexp"
	"strings"
)

var (
	parenthesized = regexp.MustCompile(`\(.*?\)`)
	nonAlnum      = regexp.MustCompile(`[^a-z0-9]`)
)

const linkedInMarker = "linkedin.com/"

// NormalizeName returns the comparison key for a company name: lower-cased,
// parenthesized annotations such as "(YC S25)" removed, and every character
// outside [a-z0-9] dropped. The empty key never matches anything.
func NormalizeName(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	name = parenthesized.ReplaceAllString(name, "")
	return nonAlnum.ReplaceAllString(name, "")
}

// NormalizeURL returns the comparison form of a profile URL, or nil for a
// missing or empty URL. See NormalizeURLString.
func NormalizeURL(raw *string) *string {
	if raw == nil {
		return nil
	}
	normalized := NormalizeURLString(*raw)
	if normalized == "" {
		return nil
	}
	return &normalized
}

// NormalizeURLString strips one trailing slash and, for network-profile URLs,
// everything up to and including the first "linkedin.com/". Scheme and
// subdomain variants of the same profile therefore compare equal.
// The result is for comparison only and is never stored.
func NormalizeURLString(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}
	u = strings.TrimSuffix(u, "/")
	if i := strings.Index(u, linkedInMarker); i >= 0 {
		return u[i+len(linkedInMarker):]
	}
	return u
}
