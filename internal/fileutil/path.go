package fileutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned by Within for absolute paths and paths that
// climb out of the root, textually or through a symlink.
var ErrOutsideRoot = errors.New("path escapes its root")

// Within joins a relative name onto root, refusing names that would resolve
// outside of it. Symlinks in the part of the path that already exists are
// followed before the check.
func Within(root, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", ErrOutsideRoot
	}
	clean := filepath.Clean(name)
	if !inside(".", clean) {
		return "", ErrOutsideRoot
	}
	joined := filepath.Join(root, clean)
	if err := resolvesWithin(root, joined); err != nil {
		return "", err
	}
	return joined, nil
}

func resolvesWithin(root, path string) error {
	realRoot, err := filepath.EvalSymlinks(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	for existing := path; ; {
		real, err := filepath.EvalSymlinks(existing)
		if err == nil {
			if !inside(realRoot, real) {
				return ErrOutsideRoot
			}
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return nil
		}
		existing = parent
	}
}

func inside(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
