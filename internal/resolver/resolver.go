// Package resolver locates the file a #include "name" directive refers to:
// first relative to the directory of the including file, then across the
// configured user-include search directories, in order.
package resolver

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ikanago/cxx-bundle/internal/cache"
)

// Resolve finds the file header refers to, searching relative to from (the
// including file) first, then each of dirs in order. The returned path is
// canonicalized (absolute, symlinks resolved where possible).
func Resolve(header string, from string, dirs []string) (string, error) {
	candidates := make([]string, 0, 1+len(dirs))
	candidates = append(candidates, filepath.Join(filepath.Dir(from), header))
	for _, dir := range dirs {
		candidates = append(candidates, filepath.Join(dir, header))
	}

	for _, candidate := range candidates {
		if exists(candidate) {
			return canonicalize(candidate), nil
		}
	}

	return "", fmt.Errorf("no such header: %s", header)
}

// ResolveCached behaves like Resolve, but memoizes the search-directory
// portion of the lookup in c. The relative-to-from candidate is never
// cached, since the same header name resolves to a different file
// depending on which file includes it; but a header not found there
// resolves to the same place across every including file, so the dirs
// walk for it only needs to happen once per process.
func ResolveCached(header string, from string, dirs []string, c *cache.Cache) (string, error) {
	if candidate := filepath.Join(filepath.Dir(from), header); exists(candidate) {
		return canonicalize(candidate), nil
	}

	if resolved, ok := c.GetResolved(header); ok {
		if resolved == "" {
			return "", fmt.Errorf("no such header: %s", header)
		}
		return resolved, nil
	}

	for _, dir := range dirs {
		if candidate := filepath.Join(dir, header); exists(candidate) {
			resolved := canonicalize(candidate)
			c.AddResolved(header, resolved)
			return resolved, nil
		}
	}

	c.AddResolved(header, "")
	return "", fmt.Errorf("no such header: %s", header)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// canonicalize returns an absolute path with symlinks resolved. If the
// filesystem lookup fails (a dangling symlink, a race with deletion), it
// falls back to the plain absolute path rather than erroring — Resolve has
// already confirmed the file exists by the time canonicalize runs.
func canonicalize(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real
	}
	return abs
}

// Canonicalize exposes the same normalization Resolve applies to every
// candidate, so a caller's root file (reached without going through
// Resolve) keys into the "seen" tracking the same way an #include does.
func Canonicalize(path string) string {
	return canonicalize(path)
}
