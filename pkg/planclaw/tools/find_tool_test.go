package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jholhewres/planclaw/pkg/planclaw/jail"
	"github.com/jholhewres/planclaw/pkg/planclaw/workspace"
)

func newFindEnv(t *testing.T) (*Executor, context.Context, *workspace.Plan) {
	t.Helper()
	mgr, err := workspace.NewManager(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	plan, err := mgr.Create()
	if err != nil {
		t.Fatal(err)
	}

	ignore := jail.NewIgnoreCache("", nil)
	t.Cleanup(func() { ignore.Close() })

	e := NewExecutor(nil, nil)
	RegisterFindTool(e, mgr, ignore, nil)
	return e, ContextWithPlan(context.Background(), plan.ID), plan
}

func seed(t *testing.T, plan *workspace.Plan, rel, content string) {
	t.Helper()
	path := filepath.Join(plan.Dir(), filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFindFiles(t *testing.T) {
	e, ctx, plan := newFindEnv(t)
	seed(t, plan, "README.md", "r")
	seed(t, plan, "docs/guide.md", "g")
	seed(t, plan, "src/main.go", "m")

	res := runTool(t, e, ctx, "find_files", `{"pattern":"*.md"}`)
	if res.Error != nil {
		t.Fatalf("find_files: %v", res.Error)
	}
	if !strings.Contains(res.Content, "README.md") || !strings.Contains(res.Content, "docs/guide.md") {
		t.Errorf("content = %q", res.Content)
	}
	if strings.Contains(res.Content, "main.go") {
		t.Errorf("non-matching file returned: %q", res.Content)
	}
}

func TestFindFilesScoped(t *testing.T) {
	e, ctx, plan := newFindEnv(t)
	seed(t, plan, "a/x.txt", "1")
	seed(t, plan, "b/y.txt", "2")

	res := runTool(t, e, ctx, "find_files", `{"pattern":"*.txt","path":"a"}`)
	if res.Error != nil {
		t.Fatalf("find_files: %v", res.Error)
	}
	if !strings.Contains(res.Content, "a/x.txt") || strings.Contains(res.Content, "b/y.txt") {
		t.Errorf("content = %q", res.Content)
	}
}

func TestFindFilesLimit(t *testing.T) {
	e, ctx, plan := newFindEnv(t)
	for _, name := range []string{"1.txt", "2.txt", "3.txt", "4.txt"} {
		seed(t, plan, name, "x")
	}

	res := runTool(t, e, ctx, "find_files", `{"pattern":"*.txt","limit":2}`)
	if res.Error != nil {
		t.Fatalf("find_files: %v", res.Error)
	}
	if !strings.Contains(res.Content, "stopped at 2 results") {
		t.Errorf("content = %q", res.Content)
	}
}

func TestFindFilesHonorsIgnores(t *testing.T) {
	e, ctx, plan := newFindEnv(t)
	seed(t, plan, jail.DefaultIgnoreFile, "build/\n")
	seed(t, plan, "keep.txt", "k")
	seed(t, plan, "build/out.txt", "o")

	res := runTool(t, e, ctx, "find_files", `{"pattern":"*.txt"}`)
	if res.Error != nil {
		t.Fatalf("find_files: %v", res.Error)
	}
	if !strings.Contains(res.Content, "keep.txt") || strings.Contains(res.Content, "build/out.txt") {
		t.Errorf("content = %q", res.Content)
	}
}

func TestFindFilesNoMatches(t *testing.T) {
	e, ctx, _ := newFindEnv(t)
	res := runTool(t, e, ctx, "find_files", `{"pattern":"*.rs"}`)
	if res.Error != nil || !strings.Contains(res.Content, "No files match") {
		t.Errorf("res = %+v", res)
	}
}
