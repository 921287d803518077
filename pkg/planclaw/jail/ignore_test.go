package jail

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseRules(t *testing.T) {
	src := strings.NewReader(`
# build artifacts
build/
*.log

!build/keep.txt
[broken
`)
	rs := ParseRules("/jail", src)
	if rs.Len() != 3 {
		t.Fatalf("parsed %d rules, want 3", rs.Len())
	}
	if !rs.hasNegation {
		t.Error("negation not detected")
	}
}

func TestRuleSetIgnored(t *testing.T) {
	rs := ParseRules("/jail", strings.NewReader("build/\n*.log\n!build/keep.txt\n/top.txt\n"))

	cases := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{"build", true, true},
		{"build/out.bin", false, true},
		{"build/nested/x.o", false, true},
		{"build/keep.txt", false, false},
		{"rebuild", true, false},
		{"app.log", false, true},
		{"sub/app.log", false, true},
		{"app.log.txt", false, false},
		{"top.txt", false, true},
		{"sub/top.txt", false, false},
		{"src/main.go", false, false},
		// dir-only rule does not match a plain file named build
		{"build", false, false},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			if got := rs.Ignored(tc.path, tc.isDir); got != tc.want {
				t.Errorf("Ignored(%q, dir=%v) = %v, want %v", tc.path, tc.isDir, got, tc.want)
			}
		})
	}
}

func TestLastMatchWins(t *testing.T) {
	rs := ParseRules("/jail", strings.NewReader("*.txt\n!notes.txt\nnotes.txt\n"))
	if !rs.Ignored("notes.txt", false) {
		t.Error("later re-ignore rule did not win")
	}

	rs = ParseRules("/jail", strings.NewReader("*.txt\n!notes.txt\n"))
	if rs.Ignored("notes.txt", false) {
		t.Error("negation did not win")
	}
	if !rs.Ignored("other.txt", false) {
		t.Error("unnegated file not ignored")
	}
}

func TestCanSkipSubtree(t *testing.T) {
	plain := ParseRules("/jail", strings.NewReader("build/\n"))
	if !plain.CanSkipSubtree("build") {
		t.Error("prunable subtree not pruned")
	}
	if plain.CanSkipSubtree("src") {
		t.Error("unignored subtree pruned")
	}

	negated := ParseRules("/jail", strings.NewReader("build/\n!build/keep.txt\n"))
	if negated.CanSkipSubtree("build") {
		t.Error("subtree pruned despite negation rules")
	}
}

func TestLoadRuleSet(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file yields empty set", func(t *testing.T) {
		rs, err := LoadRuleSet(dir, "")
		if err != nil {
			t.Fatalf("LoadRuleSet: %v", err)
		}
		if rs.Len() != 0 || rs.Ignored("anything", false) {
			t.Error("empty set ignores something")
		}
	})

	t.Run("reads default file name", func(t *testing.T) {
		mkFile(t, filepath.Join(dir, DefaultIgnoreFile), "*.tmp\n")
		rs, err := LoadRuleSet(dir, "")
		if err != nil {
			t.Fatalf("LoadRuleSet: %v", err)
		}
		if !rs.Ignored("scratch.tmp", false) {
			t.Error("rule from file not applied")
		}
	})
}

func TestIgnoreRootFor(t *testing.T) {
	r := newTestRoot(t)

	t.Run("plain subdirectory uses jail root", func(t *testing.T) {
		sub := filepath.Join(r.Dir(), "src")
		if err := os.MkdirAll(sub, 0o755); err != nil {
			t.Fatal(err)
		}
		if got := r.IgnoreRootFor(sub); got != r.Dir() {
			t.Errorf("ignore root = %q, want jail root", got)
		}
	})

	t.Run("external symlink uses link target", func(t *testing.T) {
		shared, err := filepath.EvalSymlinks(t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
		link := filepath.Join(r.Dir(), "shared")
		mustSymlink(t, shared, link)

		if got := r.IgnoreRootFor(link); got != shared {
			t.Errorf("ignore root = %q, want %q", got, shared)
		}
	})
}

func TestIgnoreCache(t *testing.T) {
	root := t.TempDir()
	mkFile(t, filepath.Join(root, DefaultIgnoreFile), "*.log\n")

	c := NewIgnoreCache("", slog.Default())
	defer c.Close()

	rs := c.Get(root)
	if !rs.Ignored("a.log", false) {
		t.Fatal("rules not loaded")
	}
	if again := c.Get(root); again != rs {
		t.Error("cache did not reuse parsed set")
	}

	mkFile(t, filepath.Join(root, DefaultIgnoreFile), "*.log\n!keep.log\n")
	c.Invalidate(root)
	fresh := c.Get(root)
	if fresh == rs {
		t.Error("invalidated set was reused")
	}
	if fresh.Ignored("keep.log", false) {
		t.Error("reloaded rules not applied")
	}
}
