package attachment

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// resolveUnderRoot maps a stored reference to a local filesystem path under
// root. It rejects any traversal outside root, including via existing
// symlinks, returning ErrInvalidPath.
func resolveUnderRoot(root, ref string) (string, error) {
	if root == "" {
		return "", fmt.Errorf("%w: storage root is not configured", ErrInvalidPath)
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	rootAbs = filepath.Clean(rootAbs)

	if filepath.IsAbs(ref) {
		return "", fmt.Errorf("%w: absolute reference %q", ErrInvalidPath, ref)
	}

	// Force relative paths.
	rel := filepath.FromSlash(strings.TrimLeft(ref, "/\\"))
	joined := filepath.Clean(filepath.Join(rootAbs, rel))

	if !isWithin(rootAbs, joined) {
		return "", fmt.Errorf("%w: %q escapes storage root", ErrInvalidPath, ref)
	}

	// If any existing component resolves to a symlink target outside root,
	// block it.
	if existing := nearestExisting(joined); existing != "" {
		resolved, err := filepath.EvalSymlinks(existing)
		if err != nil {
			return "", err
		}
		rootResolved, err := filepath.EvalSymlinks(rootAbs)
		if err != nil {
			rootResolved = rootAbs
		}
		if !isWithin(filepath.Clean(rootResolved), filepath.Clean(resolved)) {
			return "", fmt.Errorf("%w: %q escapes storage root", ErrInvalidPath, ref)
		}
	}

	return joined, nil
}

func isWithin(root, candidate string) bool {
	root = filepath.Clean(root)
	candidate = filepath.Clean(candidate)
	if root == candidate {
		return true
	}
	sep := string(filepath.Separator)
	if !strings.HasSuffix(root, sep) {
		root += sep
	}
	return strings.HasPrefix(candidate, root)
}

func nearestExisting(p string) string {
	cur := p
	for {
		if _, err := os.Lstat(cur); err == nil {
			return cur
		} else if !os.IsNotExist(err) {
			return ""
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return ""
		}
		cur = parent
	}
}
