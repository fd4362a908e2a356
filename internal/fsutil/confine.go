// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package fsutil keeps filesystem access for session data inside its root.
package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrEscapesRoot is returned for a path that resolves outside its root.
var ErrEscapesRoot = errors.New("path escapes root")

// ConfineRelPath joins root and rel and returns the resolved result, which
// is guaranteed to lie strictly below root after symlink resolution. rel
// must be relative and free of backslashes.
func ConfineRelPath(root, rel string) (string, error) {
	if strings.Contains(rel, `\`) {
		return "", fmt.Errorf("path contains backslash: %s", rel)
	}
	clean := filepath.Clean(rel)
	if filepath.IsAbs(clean) {
		return "", fmt.Errorf("target path must be relative: %s", rel)
	}
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrEscapesRoot, rel)
	}
	realRoot, err := resolveRoot(root)
	if err != nil {
		return "", err
	}
	return confine(realRoot, filepath.Join(realRoot, clean))
}

// ConfineAbsPath checks that the absolute target lies strictly below root
// after symlink resolution and returns its resolved form.
func ConfineAbsPath(root, target string) (string, error) {
	if strings.Contains(target, `\`) {
		return "", fmt.Errorf("path contains backslash: %s", target)
	}
	if !filepath.IsAbs(target) {
		return "", fmt.Errorf("target path must be absolute: %s", target)
	}
	realRoot, err := resolveRoot(root)
	if err != nil {
		return "", err
	}
	return confine(realRoot, filepath.Clean(target))
}

func resolveRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("invalid root path: %w", err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			// Nothing below a missing root can be a symlink yet.
			return abs, nil
		}
		return "", fmt.Errorf("resolve root: %w", err)
	}
	return real, nil
}

// confine resolves full, or its parent when full does not exist yet, and
// rejects anything that is not below realRoot.
func confine(realRoot, full string) (string, error) {
	real, err := filepath.EvalSymlinks(full)
	switch {
	case err == nil:
	case os.IsNotExist(err):
		parent, perr := filepath.EvalSymlinks(filepath.Dir(full))
		switch {
		case perr == nil:
			real = filepath.Join(parent, filepath.Base(full))
		case os.IsNotExist(perr):
			real = full
		default:
			return "", fmt.Errorf("resolve parent: %w", perr)
		}
	default:
		return "", fmt.Errorf("resolve path: %w", err)
	}

	rel, err := filepath.Rel(realRoot, real)
	if err != nil {
		return "", fmt.Errorf("rel computation failed: %w", err)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrEscapesRoot, real)
	}
	return real, nil
}
