package jail

import (
	"path/filepath"
	"testing"
)

func TestCheckCommand(t *testing.T) {
	r := newTestRoot(t)
	mkFile(t, filepath.Join(r.Dir(), "notes.txt"), "n")
	mkFile(t, filepath.Join(r.Dir(), "sub", "a.txt"), "a")

	allowed := []struct {
		name string
		cmd  string
	}{
		{"relative file", "cat notes.txt"},
		{"no paths at all", "echo hello world"},
		{"cd inside jail", "cd sub"},
		{"dotdot resolving inside", "cat sub/../notes.txt"},
		{"cd dash exempt", "cd -"},
		{"tilde exempt", "ls ~"},
		{"tilde user exempt", "ls ~deploy"},
		{"absolute path inside jail", "cat " + filepath.Join(r.Dir(), "notes.txt")},
	}
	for _, tc := range allowed {
		t.Run("allows "+tc.name, func(t *testing.T) {
			if err := r.CheckCommand(tc.cmd); err != nil {
				t.Errorf("CheckCommand(%q) = %v, want nil", tc.cmd, err)
			}
		})
	}

	t.Run("cd dotdot depends on the working directory", func(t *testing.T) {
		if err := r.CheckCommandFrom("sub", "cd .."); err != nil {
			t.Errorf("cd .. from sub = %v, want nil", err)
		}
		if err := r.CheckCommandFrom("", "cd .."); !IsAccessDenied(err) {
			t.Errorf("cd .. from root = %v, want access denied", err)
		}
	})

	denied := []struct {
		name string
		cmd  string
	}{
		{"absolute system path", "cat /etc/passwd"},
		{"cd out of jail", "cd .."},
		{"dotdot escape", "cat ../../secrets.txt"},
		{"violation after separator", "echo ok && cat /etc/shadow"},
		{"cd after separator", "true; cd /tmp"},
		{"quoted absolute path", `grep root "/etc/passwd"`},
	}
	for _, tc := range denied {
		t.Run("rejects "+tc.name, func(t *testing.T) {
			if err := r.CheckCommand(tc.cmd); !IsAccessDenied(err) {
				t.Errorf("CheckCommand(%q) = %v, want access denied", tc.cmd, err)
			}
		})
	}
}

func TestCommandPathTokens(t *testing.T) {
	got := commandPathTokens("cd /tmp && cat ../x | grep y")
	want := []string{"/tmp", "../x"}
	if len(got) != len(want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
