package attachment

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/google/uuid"
)

// DirResolver serves attachments stored as files named after their id
// (optionally with an extension) under Root. Ids must be UUIDs, which keeps
// lookups inside Root. HTML files are converted to Markdown before being
// handed to the model.
type DirResolver struct {
	Root string
}

var _ Resolver = DirResolver{}

// LoadImage reads the image stored under id.
func (d DirResolver) LoadImage(id string) ([]byte, bool) {
	path, ok := d.locate(id)
	if !ok {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("failed to read image attachment", "id", id, "error", err.Error())
		return nil, false
	}
	return data, true
}

// LoadFileText reads the file stored under id as text. Binary content is
// rejected.
func (d DirResolver) LoadFileText(id string) (string, bool) {
	path, ok := d.locate(id)
	if !ok {
		return "", false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("failed to read file attachment", "id", id, "error", err.Error())
		return "", false
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		markdown, err := htmltomarkdown.ConvertString(string(data))
		if err != nil {
			slog.Warn("failed to convert HTML attachment", "id", id, "error", err.Error())
			return "", false
		}
		return markdown, true
	}

	if !utf8.Valid(data) {
		return "", false
	}
	return string(data), true
}

func (d DirResolver) locate(id string) (string, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}

	// Hosts differ in UUID casing; try the id as written, then both canonical forms.
	names := []string{id, parsed.String(), strings.ToUpper(parsed.String())}
	for i, name := range names {
		if slices.Contains(names[:i], name) {
			continue
		}
		if path, ok := d.find(name); ok {
			return path, true
		}
	}
	return "", false
}

func (d DirResolver) find(name string) (string, bool) {
	candidates, err := filepath.Glob(filepath.Join(d.Root, name+"*"))
	if err != nil {
		return "", false
	}
	for _, candidate := range candidates {
		base := filepath.Base(candidate)
		if base != name && !strings.HasPrefix(base, name+".") {
			continue
		}
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, true
		}
	}
	return "", false
}
