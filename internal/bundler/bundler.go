// Package bundler expands a single C/C++ translation unit into one
// self-contained stream: every user #include is inlined in place (a header
// with #pragma once or a classic include guard only at its first reachable
// occurrence, any other header at each one), every recognized standard-library #include is
// deduplicated, and #line directives are threaded through so a compiler
// error against the bundled output still points at the original file and
// line.
//
// The engine walks each file twice in spirit, once per line: the raw bytes
// decide what gets emitted, a parallel comment-stripped view (produced by
// internal/stripper, cached by internal/cache) decides what a line *means* —
// whether it is a directive at all, and if so which one — so that a
// directive-shaped token sitting inside a comment or a string literal never
// confuses the state machine.
package bundler

import (
	"bytes"
	"fmt"
	"os"
	"regexp"

	"github.com/ikanago/cxx-bundle/internal/cache"
	"github.com/ikanago/cxx-bundle/internal/catalog"
	"github.com/ikanago/cxx-bundle/internal/probe"
	"github.com/ikanago/cxx-bundle/internal/resolver"
	"github.com/ikanago/cxx-bundle/internal/stripper"
)

var (
	reNestOpen     = regexp.MustCompile(`^\s*#\s*(if|ifdef|ifndef)\b`)
	reElseElif     = regexp.MustCompile(`^\s*#\s*(else|elif)\b`)
	reEndif        = regexp.MustCompile(`^\s*#\s*endif\b`)
	rePragmaOnce   = regexp.MustCompile(`^\s*#\s*pragma\s+once\b`)
	reIfndefGuard  = regexp.MustCompile(`^\s*#\s*ifndef\s+(\w+)`)
	reDefineGuard  = regexp.MustCompile(`^\s*#\s*define\s+(\w+)`)
	reIncludeAngle = regexp.MustCompile(`^\s*#\s*include\s*<(.*)>`)
	reIncludeQuote = regexp.MustCompile(`^\s*#\s*include\s*"(.*)"`)
)

// Bundler accumulates the expanded output of one or more root files. State
// persists across calls to Update on the same Bundler: a guarded or
// #pragma once header #included from two different root files is still only
// emitted once.
type Bundler struct {
	searchDirs []string
	driver     string
	cache      *cache.Cache

	seenGuarded map[string]bool // canonical path -> already fully emitted
	seenSystem  map[string]bool // <name> -> already emitted at top level
	pathStack   map[string]bool // canonical path -> currently being expanded

	out [][]byte

	// stripFn obtains the comment-stripped view of a file. It defaults to
	// stripper.Strip; tests substitute a fake so they don't need a real
	// compiler on PATH.
	stripFn func(path string, dirs []string, driver string) ([]byte, error)
}

// New constructs a Bundler. driver is the compiler to both shell out to for
// comment-stripping and to validate as GCC-compatible; searchDirs are the
// -I-style directories consulted, in order, when a #include "name" isn't
// found relative to its including file.
func New(driver string, searchDirs []string, c *cache.Cache) (*Bundler, error) {
	if err := probe.RequireGcc(driver); err != nil {
		return nil, newBundleError("%s", err)
	}
	return &Bundler{
		searchDirs: searchDirs,
		driver:     driver,
		cache:      c,

		seenGuarded: make(map[string]bool),
		seenSystem:  make(map[string]bool),
		pathStack:   make(map[string]bool),

		stripFn: stripper.Strip,
	}, nil
}

// newUnchecked builds a Bundler without validating driver via internal/probe
// and with a caller-supplied stripFn, for tests that exercise the state
// machine against synthetic "already stripped" views instead of shelling
// out to a real compiler.
func newUnchecked(searchDirs []string, c *cache.Cache, stripFn func(string, []string, string) ([]byte, error)) *Bundler {
	return &Bundler{
		searchDirs: searchDirs,
		driver:     "g++",
		cache:      c,

		seenGuarded: make(map[string]bool),
		seenSystem:  make(map[string]bool),
		pathStack:   make(map[string]bool),

		stripFn: stripFn,
	}
}

// Bytes returns the bundled output accumulated so far.
func (b *Bundler) Bytes() []byte {
	var out bytes.Buffer
	for _, line := range b.out {
		out.Write(line)
	}
	return out.Bytes()
}

// emitLine drops any #line directive just written (it would otherwise sit
// unused immediately before another one) and appends
// a fresh one announcing that output now continues from line n of path.
func (b *Bundler) emitLine(n int, path string) {
	for len(b.out) > 0 && bytes.HasPrefix(b.out[len(b.out)-1], []byte("#line ")) {
		b.out = b.out[:len(b.out)-1]
	}
	b.out = append(b.out, []byte(fmt.Sprintf("#line %d \"%s\"\n", n, displayPath(path))))
}

// Update expands path into the bundle. It recurses into every #include
// "name" it resolves and is idempotent: a path already fully emitted (via a
// #pragma once or a classic include guard) is a silent no-op on a second
// call.
func (b *Bundler) Update(path string) error {
	canon := resolver.Canonicalize(path)
	if b.seenGuarded[canon] {
		return nil
	}
	if b.pathStack[canon] {
		return newBundleErrorAt(path, -1, "cycle found in inclusion relations")
	}
	b.pathStack[canon] = true
	defer delete(b.pathStack, canon)

	raw, err := os.ReadFile(path)
	if err != nil {
		return newBundleError("%s", err)
	}
	if len(raw) == 0 || raw[len(raw)-1] != '\n' {
		raw = append(raw, '\n')
	}
	rawLines := splitLinesKeepEnds(raw)

	strippedLines, err := b.strippedLines(path, len(rawLines))
	if err != nil {
		return err
	}

	var (
		nonGuardLineFound bool
		pragmaOnceFound   bool
		guardMacro        []byte // nil: no guard candidate open
		guardDefineFound  bool
		guardEndifFound   bool
		nest              int
	)

	b.emitLine(1, path)

	for i, line := range rawLines {
		stripped := strippedLines[i]

		if reNestOpen.Match(stripped) {
			nest++
		}
		if reElseElif.Match(stripped) && nest == 0 {
			return newBundleErrorAt(path, i+1, "unmatched #else / #elif")
		}
		if reEndif.Match(stripped) {
			nest--
			if nest < 0 {
				return newBundleErrorAt(path, i+1, "unmatched #endif")
			}
		}
		isTopLevel := nest == 0 || (nest == 1 && guardMacro != nil)

		// #pragma once is recognized on the raw line: it must never be
		// hidden behind a comment-stripped rewrite of itself.
		if rePragmaOnce.Match(line) {
			if nonGuardLineFound {
				return newBundleErrorAt(path, i+1, "#pragma once found after other content")
			}
			if guardMacro != nil {
				return newBundleErrorAt(path, i+1, "#pragma once found inside an #ifndef include guard")
			}
			if b.seenGuarded[canon] {
				return nil
			}
			pragmaOnceFound = true
			b.seenGuarded[canon] = true
			b.out = append(b.out, []byte("\n"))
			b.emitLine(i+2, path)
			continue
		}

		if !pragmaOnceFound && !nonGuardLineFound && guardMacro == nil {
			if m := reIfndefGuard.FindSubmatch(stripped); m != nil {
				guardMacro = append([]byte(nil), m[1]...)
				b.out = append(b.out, []byte("\n"))
				continue
			}
		}

		if guardMacro != nil && !guardDefineFound {
			if m := reDefineGuard.FindSubmatch(stripped); m != nil && bytes.Equal(m[1], guardMacro) {
				b.seenGuarded[canon] = true
				guardDefineFound = true
				b.out = append(b.out, []byte("\n"))
				continue
			}
		}

		if guardDefineFound && nest == 0 && !guardEndifFound && reEndif.Match(stripped) {
			guardEndifFound = true
			b.out = append(b.out, []byte("\n"))
			continue
		}

		if len(stripped) > 0 {
			nonGuardLineFound = true
			if guardMacro != nil && !guardDefineFound {
				// The candidate #ifndef turned out not to guard the whole
				// file: something else appears before its #define.
				guardMacro = nil
			}
			if guardEndifFound {
				return newBundleErrorAt(path, i+1, "found code after the include guard's #endif")
			}
		}

		if m := reIncludeAngle.FindSubmatch(stripped); m != nil {
			included := string(m[1])
			switch {
			case b.seenSystem[included] || b.seenSystem[catalog.UmbrellaHeader]:
				b.emitLine(i+2, path)
			case isTopLevel && catalog.IsStandardLibrary(included):
				b.seenSystem[included] = true
				b.out = append(b.out, line)
			default:
				b.out = append(b.out, line)
			}
			continue
		}

		if m := reIncludeQuote.FindSubmatch(stripped); m != nil {
			included := string(m[1])
			if !isTopLevel {
				return newBundleErrorAt(path, i+1, "#include inside #if / #ifdef / #ifndef other than an include guard")
			}
			resolved, err := resolver.ResolveCached(included, path, b.searchDirs, b.cache)
			if err != nil {
				return newBundleErrorAt(included, -1, "no such header")
			}
			if err := b.Update(resolved); err != nil {
				return err
			}
			b.emitLine(i+2, path)
			continue
		}

		b.out = append(b.out, line)
	}

	if nest != 0 {
		return newBundleErrorAt(path, len(rawLines), "unmatched #if / #ifdef / #ifndef")
	}
	if guardMacro != nil && !guardEndifFound {
		return newBundleErrorAt(path, len(rawLines), "unmatched #ifndef")
	}

	return nil
}

// strippedLines returns path's comment-stripped view split into
// raw-line-aligned lines, consulting and populating the cache.
func (b *Bundler) strippedLines(path string, rawLineCount int) ([][]byte, error) {
	data, ok := b.cache.GetStripped(path, b.searchDirs, b.driver)
	if !ok {
		stripped, err := b.stripFn(path, b.searchDirs, b.driver)
		if err != nil {
			return nil, newBundleError("%s", err)
		}
		b.cache.AddStripped(path, b.searchDirs, b.driver, stripped)
		data = stripped
	}

	lines := splitLinesKeepEnds(data)
	for len(lines) < rawLineCount {
		lines = append(lines, []byte{})
	}
	return lines[:rawLineCount], nil
}

// splitLinesKeepEnds splits data on '\n', keeping the terminator attached to
// the line that precedes it.
func splitLinesKeepEnds(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, c := range data {
		if c == '\n' {
			lines = append(lines, data[start:i+1])
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}
