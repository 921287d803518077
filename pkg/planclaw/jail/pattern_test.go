package jail

import "testing"

func TestCompilePattern(t *testing.T) {
	if _, err := CompilePattern(""); err == nil {
		t.Error("empty pattern accepted")
	}
	if _, err := CompilePattern("  "); err == nil {
		t.Error("blank pattern accepted")
	}
	if _, err := CompilePattern("[unclosed"); err == nil {
		t.Error("malformed pattern accepted")
	}
}

func TestMatcherMatch(t *testing.T) {
	cases := []struct {
		pattern string
		path    string
		want    bool
	}{
		// extension patterns match at any depth
		{"*.md", "README.md", true},
		{"*.md", "docs/notes.md", true},
		{"*.md", "a/b/c/deep.md", true},
		// but stay anchored to the segment end
		{"*.md", "notes.md.bak", false},
		{"*.md", "docs/notes.md.bak", false},
		{"*.md", "mdfile.txt", false},

		// slashed patterns are anchored
		{"src/*.go", "src/main.go", true},
		{"src/*.go", "main.go", false},
		{"src/*.go", "pkg/src/main.go", false},

		// explicit ** crosses directories
		{"**/*_test.go", "pkg/jail/walker_test.go", true},
		{"src/**/*.go", "src/a/b/x.go", true},

		// Deliberate relaxation beyond strict glob semantics: a
		// *literal* pattern also matches when any path segment contains
		// the literal, so directory names count too.
		{"*note*", "notes.md.bak", true},
		{"*note*", "docs/keynotes.txt", true},
		{"*note*", "notes/agenda.txt", true},
		{"*note*", "docs/plain.txt", false},

		// exact names
		{"Makefile", "Makefile", true},
		{"Makefile", "build/Makefile", true},
		{"Makefile", "Makefile.am", false},
	}
	for _, tc := range cases {
		t.Run(tc.pattern+" vs "+tc.path, func(t *testing.T) {
			m, err := CompilePattern(tc.pattern)
			if err != nil {
				t.Fatalf("CompilePattern(%q): %v", tc.pattern, err)
			}
			if got := m.Match(tc.path); got != tc.want {
				t.Errorf("Match(%q, %q) = %v, want %v", tc.pattern, tc.path, got, tc.want)
			}
		})
	}
}

func TestSubstrLiteral(t *testing.T) {
	cases := []struct {
		pattern string
		inner   string
		ok      bool
	}{
		{"*note*", "note", true},
		{"*.md", "", false},
		{"*a/b*", "", false},
		{"*a?b*", "", false},
		{"**", "", false},
		{"plain", "", false},
	}
	for _, tc := range cases {
		inner, ok := substrLiteral(tc.pattern)
		if ok != tc.ok || inner != tc.inner {
			t.Errorf("substrLiteral(%q) = %q, %v; want %q, %v", tc.pattern, inner, ok, tc.inner, tc.ok)
		}
	}
}
