// Package catalog holds the closed, hard-coded set of system header names
// the bundler is allowed to deduplicate. Unlike internal/probe, which
// classifies a *compiler*, this package classifies a *header name*: it
// never touches the filesystem, it is pure static data plus a couple of
// lookups.
package catalog

// UmbrellaHeader is the GNU libstdc++ "include everything" convenience
// header. Once it has been emitted, every other recognized standard
// library include becomes redundant.
const UmbrellaHeader = "bits/stdc++.h"

// cxxStandardLibraries are the C++ standard headers (no extension).
var cxxStandardLibraries = []string{
	"algorithm", "array", "bitset", "chrono", "codecvt", "complex",
	"condition_variable", "deque", "exception", "forward_list", "fstream",
	"functional", "future", "iomanip", "ios", "iosfwd", "iostream",
	"istream", "iterator", "limits", "list", "locale", "map", "memory",
	"mutex", "new", "numeric", "ostream", "queue", "random", "regex",
	"set", "sstream", "stack", "stdexcept", "streambuf", "string",
	"thread", "tuple", "typeinfo", "unordered_map", "unordered_set",
	"utility", "valarray", "vector",
}

// cStandardLibraries are the C standard headers, with their conventional
// ".h" suffix.
var cStandardLibraries = []string{
	"assert.h", "complex.h", "ctype.h", "errno.h", "fenv.h", "float.h",
	"inttypes.h", "iso646.h", "limits.h", "locale.h", "math.h",
	"setjmp.h", "signal.h", "stdalign.h", "stdarg.h", "stdatomic.h",
	"stdbool.h", "stddef.h", "stdint.h", "stdio.h", "stdlib.h",
	"stdnoreturn.h", "string.h", "tgmath.h", "threads.h", "time.h",
	"uchar.h", "wchar.h", "wctype.h",
}

// standardLibraries is the full closed set: the umbrella header, the C++
// headers, the C headers, and the "c"-prefixed/suffix-stripped C++ wrapper
// names (e.g. "cstdio" for "stdio.h").
var standardLibraries = buildStandardLibraries()

func buildStandardLibraries() map[string]struct{} {
	set := make(map[string]struct{}, 2*len(cStandardLibraries)+len(cxxStandardLibraries)+1)
	set[UmbrellaHeader] = struct{}{}
	for _, name := range cxxStandardLibraries {
		set[name] = struct{}{}
	}
	for _, name := range cStandardLibraries {
		set[name] = struct{}{}
		set["c"+name[:len(name)-len(".h")]] = struct{}{}
	}
	return set
}

// IsStandardLibrary reports whether name (the argument of a
// #include <name>) is a recognized system header eligible for dedup.
func IsStandardLibrary(name string) bool {
	_, ok := standardLibraries[name]
	return ok
}

// IsUmbrella reports whether name is the all-headers convenience include.
func IsUmbrella(name string) bool {
	return name == UmbrellaHeader
}
