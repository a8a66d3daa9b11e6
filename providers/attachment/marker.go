package attachment

import (
	"regexp"
	"strings"
)

// Kind is the attachment type named by a marker.
type Kind string

const (
	KindImage Kind = "image"
	KindFile  Kind = "file"
)

// Marker is one <kind-uuid>ID</kind-uuid> reference found in message text.
type Marker struct {
	Kind Kind
	ID   string
}

// markerPattern matches both marker forms. The closing tag is checked against
// the opening one in ParseMarkers.
var markerPattern = regexp.MustCompile(`<(image|file)-uuid>\s*([^<]*?)\s*</(image|file)-uuid>`)

// HasMarkers reports whether text contains at least one attachment marker.
func HasMarkers(text string) bool {
	for _, match := range markerPattern.FindAllStringSubmatch(text, -1) {
		if match[1] == match[3] {
			return true
		}
	}
	return false
}

// ParseMarkers removes every well-formed marker from text and returns the
// remaining text, trimmed, with the markers in order of appearance.
func ParseMarkers(text string) (string, []Marker) {
	var markers []Marker
	stripped := markerPattern.ReplaceAllStringFunc(text, func(raw string) string {
		match := markerPattern.FindStringSubmatch(raw)
		if match[1] != match[3] {
			return raw
		}
		markers = append(markers, Marker{Kind: Kind(match[1]), ID: match[2]})
		return ""
	})
	return strings.TrimSpace(stripped), markers
}
