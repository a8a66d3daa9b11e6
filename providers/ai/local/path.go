package local

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolveModelPath returns the absolute, symlink-free folder of model. A
// relative model is joined under modelsRoot; both may start with "~".
func ResolveModelPath(modelsRoot, model string) (string, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return "", fmt.Errorf("model path is empty")
	}

	expanded, err := expandHome(model)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(expanded) {
		root, err := expandHome(strings.TrimSpace(modelsRoot))
		if err != nil {
			return "", err
		}
		if root == "" {
			return "", fmt.Errorf("model %q is relative and no models folder is configured", model)
		}
		expanded = filepath.Join(root, expanded)
	}

	absolute, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolve model path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(absolute)
	if err != nil {
		return "", fmt.Errorf("resolve model path: %w", err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("stat model path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("model path %s is not a folder", resolved)
	}
	return resolved, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand ~: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
