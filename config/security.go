package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Manifest files arrive as operator-supplied paths, usually straight off a
// command line. The checks here reject traversal tricks and oversized or
// irregular files before any YAML parsing happens.

const (
	maxManifestSize = 10 << 20
	maxPathLen      = 4096
)

var manifestExtensions = []string{".yaml", ".yml", ".json"}

// validateManifestPath rejects empty paths, overlong paths, traversal
// attempts, and non-manifest extensions. YAML is a JSON superset, so .json
// manifests load through the same decoder.
func validateManifestPath(path string) error {
	if path == "" {
		return errors.New("empty manifest path")
	}
	if len(path) > maxPathLen {
		return fmt.Errorf("path too long: %d > %d", len(path), maxPathLen)
	}
	if !hasManifestExtension(path) {
		return fmt.Errorf("only YAML or JSON manifests allowed: %s", path)
	}

	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("cannot resolve absolute path: %w", err)
	}

	if filepath.IsAbs(path) {
		// An absolute path must not retain parent references once resolved.
		if strings.Contains(filepath.ToSlash(abs), "..") {
			return fmt.Errorf("path traversal not allowed: %s", path)
		}
		return nil
	}

	// A relative path must stay inside the working directory after
	// resolution, which blocks "../../../etc/passwd" style arguments.
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("cannot get working directory: %w", err)
	}
	rel, err := filepath.Rel(cwd, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("path traversal not allowed: %s resolves outside working directory", path)
	}
	return nil
}

func hasManifestExtension(path string) bool {
	for _, ext := range manifestExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// safeReadFile validates the path, refuses irregular or oversized files,
// and returns the manifest bytes.
func safeReadFile(path string) ([]byte, error) {
	if err := validateManifestPath(path); err != nil {
		return nil, fmt.Errorf("invalid manifest path: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot stat manifest file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", path)
	}
	if info.Size() > maxManifestSize {
		return nil, fmt.Errorf("manifest file too large: %d bytes > %d", info.Size(), maxManifestSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read manifest file: %w", err)
	}
	return data, nil
}
