package bundler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/ikanago/cxx-bundle/internal/cache"
)

// assertGolden compares got against want and, on mismatch, renders a
// character-level diff instead of dumping two raw multi-line blobs.
func assertGolden(t *testing.T, got, want string) {
	t.Helper()
	if got == want {
		return
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(want, got, false)
	t.Errorf("bundled output mismatch:\n%s", dmp.DiffPrettyText(diffs))
}

func writeFile(t *testing.T, path string, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// identityStrip stands in for a real compiler's -fpreprocessed -dD -E pass:
// every test file here is already comment-free, so the "stripped" view is
// just the file's own bytes.
func identityStrip(path string, _ []string, _ string) ([]byte, error) {
	return os.ReadFile(path)
}

func newTestBundler(searchDirs []string) *Bundler {
	return newUnchecked(searchDirs, cache.New(), identityStrip)
}

// chdir makes dir the working directory for the rest of the test, so the
// #line directives (which name files relative to the working directory)
// carry bare file names.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func Test_Update_pragmaOnce(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	a := filepath.Join(dir, "a.h")
	writeFile(t, a, "#pragma once\nint a;\n")

	b := newTestBundler(nil)
	if err := b.Update(a); err != nil {
		t.Fatalf("Update: %v", err)
	}
	want := "#line 1 \"a.h\"\n\n#line 2 \"a.h\"\nint a;\n"
	assertGolden(t, string(b.Bytes()), want)

	// a second pass over the same file is a silent no-op
	before := string(b.Bytes())
	if err := b.Update(a); err != nil {
		t.Fatalf("second Update: %v", err)
	}
	if got := string(b.Bytes()); got != before {
		t.Errorf("Bytes() changed after re-Update: %q -> %q", before, got)
	}
}

func Test_Update_classicGuard(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	bh := filepath.Join(dir, "b.h")
	writeFile(t, bh, "#ifndef B_H\n#define B_H\nint b;\n#endif\n")

	b := newTestBundler(nil)
	if err := b.Update(bh); err != nil {
		t.Fatalf("Update: %v", err)
	}
	want := "#line 1 \"b.h\"\n\n\nint b;\n\n"
	if got := string(b.Bytes()); got != want {
		t.Errorf("Bytes() = %q, want %q", got, want)
	}

	if err := b.Update(bh); err != nil {
		t.Fatalf("second Update: %v", err)
	}
	if got := string(b.Bytes()); got != want {
		t.Errorf("Bytes() changed after re-Update: %q, want %q", got, want)
	}
}

func Test_Update_systemIncludeDedupAndUmbrella(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	main := filepath.Join(dir, "main.cpp")
	writeFile(t, main, "#include <vector>\n#include <bits/stdc++.h>\n#include <vector>\n#include <map>\n")

	b := newTestBundler(nil)
	if err := b.Update(main); err != nil {
		t.Fatalf("Update: %v", err)
	}
	want := "#line 1 \"main.cpp\"\n#include <vector>\n#include <bits/stdc++.h>\n#line 5 \"main.cpp\"\n"
	if got := string(b.Bytes()); got != want {
		t.Errorf("Bytes() = %q, want %q", got, want)
	}
}

func Test_Update_nestedUserInclude(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	main := filepath.Join(dir, "main.cpp")
	ah := filepath.Join(dir, "a.h")
	bh := filepath.Join(dir, "b.h")
	writeFile(t, main, "#include \"a.h\"\nint main() {}\n")
	writeFile(t, ah, "#include \"b.h\"\nint a;\n")
	writeFile(t, bh, "int b;\n")

	b := newTestBundler(nil)
	if err := b.Update(main); err != nil {
		t.Fatalf("Update: %v", err)
	}
	// #line 1 "main.cpp" and #line 1 "a.h" are each replaced by the next
	// file's #line 1 before any real line follows them.
	want := "" +
		"#line 1 \"b.h\"\n" +
		"int b;\n" +
		"#line 2 \"a.h\"\n" +
		"int a;\n" +
		"#line 2 \"main.cpp\"\n" +
		"int main() {}\n"
	assertGolden(t, string(b.Bytes()), want)
}

func Test_Update_diamondInclude(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	main := filepath.Join(dir, "main.cpp")
	common := filepath.Join(dir, "common.h")
	left := filepath.Join(dir, "left.h")
	right := filepath.Join(dir, "right.h")
	writeFile(t, main, "#include \"left.h\"\n#include \"right.h\"\nint main() {}\n")
	writeFile(t, left, "#ifndef LEFT_H\n#define LEFT_H\n#include \"common.h\"\nint left;\n#endif\n")
	writeFile(t, right, "#ifndef RIGHT_H\n#define RIGHT_H\n#include \"common.h\"\nint right;\n#endif\n")
	writeFile(t, common, "#pragma once\nint shared;\n")

	b := newTestBundler(nil)
	if err := b.Update(main); err != nil {
		t.Fatalf("Update: %v", err)
	}
	want := "" +
		"#line 1 \"left.h\"\n" + // replaces main.cpp's #line 1
		"\n\n" + // #ifndef LEFT_H / #define LEFT_H
		"#line 1 \"common.h\"\n" +
		"\n" + // #pragma once
		"#line 2 \"common.h\"\n" +
		"int shared;\n" +
		"#line 4 \"left.h\"\n" +
		"int left;\n" +
		"\n" + // left.h's #endif
		"#line 1 \"right.h\"\n" + // replaces #line 2 "main.cpp"
		"\n\n" + // #ifndef RIGHT_H / #define RIGHT_H; common.h already emitted, so its own #include is a silent no-op
		"#line 4 \"right.h\"\n" +
		"int right;\n" +
		"\n" + // right.h's #endif
		"#line 3 \"main.cpp\"\n" +
		"int main() {}\n"
	assertGolden(t, string(b.Bytes()), want)
}

func Test_Update_cycleDetected(t *testing.T) {
	dir := t.TempDir()
	ah := filepath.Join(dir, "a.h")
	bh := filepath.Join(dir, "b.h")
	writeFile(t, ah, "#include \"b.h\"\n")
	writeFile(t, bh, "#include \"a.h\"\n")

	b := newTestBundler(nil)
	err := b.Update(ah)
	if err == nil {
		t.Fatalf("expected a cycle error")
	}
	located, ok := err.(*BundleErrorAt)
	if !ok {
		t.Fatalf("expected *BundleErrorAt, got %T: %v", err, err)
	}
	if located.Line != -1 {
		t.Errorf("Line = %d, want -1", located.Line)
	}
}

func Test_Update_includeInsideConditionalRejected(t *testing.T) {
	dir := t.TempDir()
	ch := filepath.Join(dir, "c.h")
	writeFile(t, filepath.Join(dir, "d.h"), "int d;\n")
	writeFile(t, ch, "#if 1\n#include \"d.h\"\n#endif\n")

	b := newTestBundler(nil)
	err := b.Update(ch)
	if err == nil {
		t.Fatalf("expected an error for #include nested in #if")
	}
	located, ok := err.(*BundleErrorAt)
	if !ok {
		t.Fatalf("expected *BundleErrorAt, got %T: %v", err, err)
	}
	if located.Line != 2 {
		t.Errorf("Line = %d, want 2", located.Line)
	}
}

func Test_Update_pragmaOnceMidFileRejected(t *testing.T) {
	dir := t.TempDir()
	eh := filepath.Join(dir, "e.h")
	writeFile(t, eh, "int e;\n#pragma once\n")

	b := newTestBundler(nil)
	err := b.Update(eh)
	if err == nil {
		t.Fatalf("expected an error for #pragma once after other content")
	}
	located, ok := err.(*BundleErrorAt)
	if !ok {
		t.Fatalf("expected *BundleErrorAt, got %T: %v", err, err)
	}
	if located.Line != 2 {
		t.Errorf("Line = %d, want 2", located.Line)
	}
}

func Test_Update_unresolvedIncludeIsBundleErrorAt(t *testing.T) {
	dir := t.TempDir()
	main := filepath.Join(dir, "main.cpp")
	writeFile(t, main, "#include \"missing.h\"\n")

	b := newTestBundler(nil)
	err := b.Update(main)
	if err == nil {
		t.Fatalf("expected an error for an unresolvable header")
	}
	located, ok := err.(*BundleErrorAt)
	if !ok {
		t.Fatalf("expected *BundleErrorAt, got %T: %v", err, err)
	}
	if located.Path != "missing.h" {
		t.Errorf("Path = %q, want %q", located.Path, "missing.h")
	}
}

func Test_Update_unmatchedEndif(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "f.h")
	writeFile(t, f, "#endif\n")

	b := newTestBundler(nil)
	if err := b.Update(f); err == nil {
		t.Fatalf("expected an error for an unmatched #endif")
	}
}

func Test_Update_unmatchedIf(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "f.h")
	writeFile(t, f, "#if 1\nint x;\n")

	b := newTestBundler(nil)
	if err := b.Update(f); err == nil {
		t.Fatalf("expected an error for an unterminated #if")
	}
}
