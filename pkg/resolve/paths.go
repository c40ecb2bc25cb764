package resolve

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// PathMode selects how directory paths are compared
type PathMode string

const (
	// PathModeAuto compares case-insensitively on Windows and case-sensitively elsewhere
	PathModeAuto PathMode = "auto"
	// PathModeSensitive always compares case-sensitively
	PathModeSensitive PathMode = "sensitive"
	// PathModeInsensitive always compares case-insensitively, like Windows filesystems
	PathModeInsensitive PathMode = "insensitive"
)

// ParsePathMode parses a path mode name. The empty string means auto.
func ParsePathMode(s string) (PathMode, error) {
	switch PathMode(strings.ToLower(s)) {
	case "", PathModeAuto:
		return PathModeAuto, nil
	case PathModeSensitive:
		return PathModeSensitive, nil
	case PathModeInsensitive:
		return PathModeInsensitive, nil
	default:
		return "", fmt.Errorf("invalid path mode: %s", s)
	}
}

// CaseInsensitive reports whether paths differing only in case are equal
func (m PathMode) CaseInsensitive() bool {
	switch m {
	case PathModeInsensitive:
		return true
	case PathModeSensitive:
		return false
	default:
		return runtime.GOOS == "windows"
	}
}

func (m PathMode) fold(path string) string {
	if m.CaseInsensitive() {
		return strings.ToLower(path)
	}
	return path
}

// Compare orders two paths lexicographically under the mode's case rule
func (m PathMode) Compare(a, b string) int {
	return strings.Compare(m.fold(a), m.fold(b))
}

// Equal reports whether two paths name the same directory under the mode's case rule
func (m PathMode) Equal(a, b string) bool {
	return m.fold(a) == m.fold(b)
}

// Contains reports whether child is dir itself or lies underneath it.
// Matching is per path segment: /a/b contains /a/b/c but not /a/bc.
func (m PathMode) Contains(dir, child string) bool {
	d, c := m.fold(dir), m.fold(child)
	if d == c {
		return true
	}
	if d == "" {
		return false
	}
	if !strings.HasPrefix(c, d) {
		return false
	}
	if isSeparator(d[len(d)-1]) {
		return true
	}
	return isSeparator(c[len(d)])
}

func isSeparator(b byte) bool {
	return b == '/' || b == filepath.Separator
}

// normalizePath returns the absolute, cleaned form of path. With canonicalize
// set, symlinks are resolved as well, which fails for paths that don't exist.
func normalizePath(path string, canonicalize bool) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path of %s: %w", path, err)
	}
	if !canonicalize {
		return abs, nil
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize %s: %w", abs, err)
	}
	return canonical, nil
}
