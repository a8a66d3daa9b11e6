package attachment

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// DefaultImageMIME is used when the image bytes cannot be sniffed.
const DefaultImageMIME = "image/jpeg"

// Resolver loads attachment payloads by id. It is supplied by the host
// application; implementations must be safe for concurrent use.
type Resolver interface {
	LoadImage(id string) ([]byte, bool)
	LoadFileText(id string) (string, bool)
}

// Image is a resolved inline image.
type Image struct {
	Data []byte
	MIME string
}

// Base64 returns the standard base64 encoding of the image bytes.
func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// DataURL returns the image as a data: URL.
func (i Image) DataURL() string {
	return "data:" + i.MIME + ";base64," + i.Base64()
}

// Content is a message body after marker resolution.
type Content struct {
	Text   string
	Images []Image
}

// HasImages reports whether any image was resolved.
func (c Content) HasImages() bool { return len(c.Images) > 0 }

// Resolve strips markers from text, inlines resolvable images, and appends
// resolvable file contents after the text separated by a blank line.
// Markers the resolver cannot satisfy are dropped. A nil resolver drops all
// markers.
func Resolve(text string, resolver Resolver) Content {
	stripped, markers := ParseMarkers(text)
	content := Content{Text: stripped}
	if resolver == nil || len(markers) == 0 {
		return content
	}

	sections := []string{}
	if stripped != "" {
		sections = append(sections, stripped)
	}
	for _, marker := range markers {
		switch marker.Kind {
		case KindImage:
			data, ok := resolver.LoadImage(marker.ID)
			if !ok || len(data) == 0 {
				continue
			}
			content.Images = append(content.Images, Image{Data: data, MIME: ImageMIME(data)})
		case KindFile:
			fileText, ok := resolver.LoadFileText(marker.ID)
			if !ok || strings.TrimSpace(fileText) == "" {
				continue
			}
			sections = append(sections, strings.TrimSpace(fileText))
		}
	}
	content.Text = strings.Join(sections, "\n\n")
	return content
}

// ImageMIME sniffs the media type of image bytes, falling back to
// DefaultImageMIME for anything not recognized as an image.
func ImageMIME(data []byte) string {
	detected := http.DetectContentType(data)
	if strings.HasPrefix(detected, "image/") {
		return detected
	}
	return DefaultImageMIME
}

// MapResolver is an in-memory Resolver, keyed by id.
type MapResolver struct {
	Images map[string][]byte
	Files  map[string]string
}

func (m MapResolver) LoadImage(id string) ([]byte, bool) {
	data, ok := m.Images[id]
	return data, ok
}

func (m MapResolver) LoadFileText(id string) (string, bool) {
	text, ok := m.Files[id]
	return text, ok
}
