package bundler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BundleError is a generic, whole-process failure: a missing/misidentified
// compiler driver, an I/O error, a bad configuration. It carries no file
// location because none applies.
type BundleError struct {
	Message string
}

func (e *BundleError) Error() string {
	return e.Message
}

func newBundleError(format string, args ...interface{}) *BundleError {
	return &BundleError{Message: fmt.Sprintf(format, args...)}
}

// BundleErrorAt is a located failure during bundling: a structural problem
// (unmatched #endif), a policy violation (#pragma once after real code), an
// unresolvable #include, or a cyclic inclusion. Line is -1 when the error
// pertains to the file as a whole rather than one specific line.
type BundleErrorAt struct {
	Path    string
	Line    int
	Message string
}

func (e *BundleErrorAt) Error() string {
	return fmt.Sprintf("%s: line %d: %s", displayPath(e.Path), e.Line, e.Message)
}

func newBundleErrorAt(path string, line int, format string, args ...interface{}) *BundleErrorAt {
	return &BundleErrorAt{Path: path, Line: line, Message: fmt.Sprintf(format, args...)}
}

// displayPath renders path relative to the current working directory when
// it lies underneath it, and falls back to the original path otherwise
// (including when path isn't really a filesystem path at all, e.g. an
// unresolved header name reported in a resolution error).
func displayPath(path string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(cwd, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
