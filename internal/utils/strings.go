package utils

import (
	"fmt"
	"net/url"
	"unicode/utf8"
)

const (
	// DefaultMaxStringLength is the default maximum length for truncated strings
	DefaultMaxStringLength = 500
)

// sensitiveQueryKeys lists query parameters that carry credentials.
var sensitiveQueryKeys = []string{"key", "api_key", "access_token"}

// TruncateString shortens s to at most maxLen bytes, appending a suffix
// that records the original total length so callers know data was omitted.
// The cut never splits a multi-byte rune. If maxLen is zero or negative,
// [DefaultMaxStringLength] is used instead.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxStringLength
	}
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return fmt.Sprintf("%s... (truncated, total: %d chars)", s[:cut], len(s))
}

// RedactURL masks credential-bearing query parameters so the URL can be
// logged. Unparseable input is returned unchanged.
func RedactURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.RawQuery == "" {
		return raw
	}

	query := parsed.Query()
	changed := false
	for _, key := range sensitiveQueryKeys {
		if query.Has(key) {
			query.Set(key, "REDACTED")
			changed = true
		}
	}
	if !changed {
		return raw
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}
