package local

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ModelKind is the capability class of a model folder.
type ModelKind int

const (
	KindText ModelKind = iota
	KindVision
	KindImageGeneration
)

// String returns a short name used in logs and runner arguments.
func (k ModelKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindVision:
		return "vision"
	case KindImageGeneration:
		return "image"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ClassifyModel inspects the top level of dir:
//   - image generation: model_index.json, or both unet/ and vae/ folders
//   - vision: a file whose name contains "mmproj", or preprocessor_config.json
//   - text: config.json, tokenizer.json or any *.gguf file
func ClassifyModel(dir string) (ModelKind, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read model folder: %w", err)
	}

	files := map[string]bool{}
	folders := map[string]bool{}
	hasProjector, hasGGUF := false, false
	for _, entry := range entries {
		name := strings.ToLower(entry.Name())
		if entry.IsDir() {
			folders[name] = true
			continue
		}
		files[name] = true
		if strings.Contains(name, "mmproj") {
			hasProjector = true
		}
		if filepath.Ext(name) == ".gguf" {
			hasGGUF = true
		}
	}

	switch {
	case files["model_index.json"] || (folders["unet"] && folders["vae"]):
		return KindImageGeneration, nil
	case hasProjector || files["preprocessor_config.json"]:
		return KindVision, nil
	case files["config.json"] || files["tokenizer.json"] || hasGGUF:
		return KindText, nil
	default:
		return 0, fmt.Errorf("%s does not look like a model folder", dir)
	}
}
