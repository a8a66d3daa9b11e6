package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short string untouched", "hello", 10, "hello"},
		{"exact length untouched", "hello", 5, "hello"},
		{"truncated with suffix", "hello world", 5, "hello... (truncated, total: 11 chars)"},
		{"cut backs off to rune start", "h\u00e9llo", 2, "h... (truncated, total: 6 chars)"},
		{"cut on rune boundary keeps rune", "h\u00e9llo", 3, "h\u00e9... (truncated, total: 6 chars)"},
		{"non-positive uses default", strings.Repeat("a", DefaultMaxStringLength+1), 0,
			strings.Repeat("a", DefaultMaxStringLength) + "... (truncated, total: 501 chars)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateString(tt.input, tt.maxLen)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestRedactURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no query", "https://example.test/v1/models", "https://example.test/v1/models"},
		{"unrelated query", "https://example.test/v1?alt=sse", "https://example.test/v1?alt=sse"},
		{"gemini key", "https://example.test/v1beta/models?key=secret", "https://example.test/v1beta/models?key=REDACTED"},
		{"key among others", "https://example.test/x?alt=sse&key=secret", "https://example.test/x?alt=sse&key=REDACTED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RedactURL(tt.input))
		})
	}
}
