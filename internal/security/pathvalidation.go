// Package security guards the file paths a project run touches.
package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	ErrTraversal   = errors.New("path traversal detected")
	ErrClientName  = errors.New("invalid client name")
	clientNameExpr = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
)

// maxClientNameLen bounds client directory names.
const maxClientNameLen = 64

// ValidateClientName accepts names usable as a single directory under
// projects/: letters, digits, dot, underscore and dash, not starting with a
// dot or dash.
func ValidateClientName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrClientName)
	case len(name) > maxClientNameLen:
		return fmt.Errorf("%w: longer than %d characters", ErrClientName, maxClientNameLen)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrClientName, name)
	case !clientNameExpr.MatchString(name):
		return fmt.Errorf("%w: %q may only contain letters, digits, '.', '_' and '-'", ErrClientName, name)
	}
	return nil
}

// ValidatePathWithinDirectory checks that filePath resolves inside dir,
// following symlinks in the existing part of the path.
func ValidatePathWithinDirectory(filePath, dir string) error {
	absPath, err := filepath.Abs(filepath.Clean(filePath))
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve directory path: %w", err)
	}
	canonicalDir, err := filepath.EvalSymlinks(absDir)
	if err != nil {
		return fmt.Errorf("failed to resolve directory symlinks: %w", err)
	}

	relPath, err := filepath.Rel(canonicalDir, canonical(absPath))
	if err != nil {
		return fmt.Errorf("%w: %s is outside %s", ErrTraversal, filePath, dir)
	}
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) || filepath.IsAbs(relPath) {
		return fmt.Errorf("%w: %s escapes %s", ErrTraversal, filePath, dir)
	}
	return nil
}

// canonical resolves symlinks in the longest existing prefix of an absolute
// path. The missing tail is appended unchanged.
func canonical(absPath string) string {
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		return resolved
	}
	for check := absPath; ; {
		parent := filepath.Dir(check)
		if parent == check {
			return absPath
		}
		if resolved, err := filepath.EvalSymlinks(parent); err == nil {
			rel, _ := filepath.Rel(parent, absPath)
			return filepath.Join(resolved, rel)
		}
		check = parent
	}
}
