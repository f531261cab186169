// Package pathutil confines file writes requested by MCP clients to
// known directories.
package pathutil

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrOutside is returned for names that resolve outside their directory.
var ErrOutside = errors.New("path leaves the export directory")

// RedactPath keeps only the last two elements of path for error messages:
// "/home/u/.narloop/exports/run.jsonl" becomes ".../exports/run.jsonl".
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	path = filepath.Clean(path)
	base, parent := filepath.Base(path), filepath.Base(filepath.Dir(path))
	if parent == "." || parent == string(filepath.Separator) {
		return base
	}
	return ".../" + parent + "/" + base
}

// ResolveUnder joins the client-supplied relative name to dir and returns
// the path only if it stays strictly below dir once existing symlinks on
// both sides are followed. Missing subdirectories are allowed.
func ResolveUnder(dir, name string) (string, error) {
	switch {
	case name == "":
		return "", errors.New("file name is empty")
	case strings.ContainsRune(name, 0):
		return "", errors.New("file name contains a null byte")
	case filepath.IsAbs(name):
		return "", fmt.Errorf("%q must be relative", RedactPath(name))
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("export directory: %w", err)
	}
	path := filepath.Join(root, name)

	realRoot, err := resolveExisting(root)
	if err != nil {
		return "", err
	}
	realPath, err := resolveExisting(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(realRoot, realPath)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%q: %w", name, ErrOutside)
	}
	return path, nil
}

// resolveExisting follows symlinks on the longest existing prefix of path
// and appends the rest unchanged.
func resolveExisting(path string) (string, error) {
	var tail []string
	for {
		if resolved, err := filepath.EvalSymlinks(path); err == nil {
			return filepath.Join(append([]string{resolved}, tail...)...), nil
		}
		parent := filepath.Dir(path)
		if parent == path {
			return "", fmt.Errorf("cannot resolve %s", RedactPath(path))
		}
		tail = append([]string{filepath.Base(path)}, tail...)
		path = parent
	}
}
