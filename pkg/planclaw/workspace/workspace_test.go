package workspace

import (
	"os"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestCreate(t *testing.T) {
	m := newTestManager(t)

	plan, err := m.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.HasPrefix(plan.ID, PlanIDPrefix) {
		t.Errorf("plan ID = %q, want %q prefix", plan.ID, PlanIDPrefix)
	}
	if info, err := os.Stat(plan.Dir()); err != nil || !info.IsDir() {
		t.Errorf("plan dir missing: %v", err)
	}

	got, err := m.Get(plan.ID)
	if err != nil || got != plan {
		t.Errorf("Get = %v, %v", got, err)
	}

	if _, err := m.Get("plan-nope"); err == nil {
		t.Error("unknown plan returned")
	}
}

func TestCreateSubPlan(t *testing.T) {
	m := newTestManager(t)
	parent, err := m.Create()
	if err != nil {
		t.Fatal(err)
	}

	sub, err := m.CreateSubPlan(parent.ID)
	if err != nil {
		t.Fatalf("CreateSubPlan: %v", err)
	}
	if sub.ParentID != parent.ID {
		t.Errorf("ParentID = %q", sub.ParentID)
	}
	if !strings.HasPrefix(sub.Dir(), parent.Dir()) {
		t.Errorf("sub dir %q not under parent %q", sub.Dir(), parent.Dir())
	}

	// The sub-plan jail must not reach the parent's files.
	if err := os.WriteFile(parent.Dir()+"/parent.txt", []byte("p"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := sub.Root.Secure("../parent.txt"); err == nil {
		t.Error("sub-plan escaped into parent workspace")
	}

	if _, err := m.CreateSubPlan("plan-missing"); err == nil {
		t.Error("sub-plan of unknown parent created")
	}
}

func TestRemove(t *testing.T) {
	m := newTestManager(t)
	parent, _ := m.Create()
	sub, err := m.CreateSubPlan(parent.ID)
	if err != nil {
		t.Fatal(err)
	}
	grand, err := m.CreateSubPlan(sub.ID)
	if err != nil {
		t.Fatal(err)
	}

	if err := m.Remove(parent.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(parent.Dir()); !os.IsNotExist(err) {
		t.Error("plan dir still exists")
	}
	for _, id := range []string{parent.ID, sub.ID, grand.ID} {
		if _, err := m.Get(id); err == nil {
			t.Errorf("plan %s still registered", id)
		}
	}

	if err := m.Remove(parent.ID); err == nil {
		t.Error("double remove succeeded")
	}
}

func TestRemoveCascadeWideTree(t *testing.T) {
	m := newTestManager(t)

	// Map iteration order varies between runs; a removal that resolves
	// ancestry through a half-deleted map strands grandchildren only
	// sometimes. Repeat with a wide tree so any such ordering bug
	// surfaces reliably.
	for i := 0; i < 20; i++ {
		parent, err := m.Create()
		if err != nil {
			t.Fatal(err)
		}
		var ids []string
		for j := 0; j < 4; j++ {
			sub, err := m.CreateSubPlan(parent.ID)
			if err != nil {
				t.Fatal(err)
			}
			grand, err := m.CreateSubPlan(sub.ID)
			if err != nil {
				t.Fatal(err)
			}
			ids = append(ids, sub.ID, grand.ID)
		}

		if err := m.Remove(parent.ID); err != nil {
			t.Fatalf("Remove: %v", err)
		}
		for _, id := range ids {
			if _, err := m.Get(id); err == nil {
				t.Fatalf("plan %s still registered after removing %s", id, parent.ID)
			}
		}
	}
}

func TestListOrder(t *testing.T) {
	m := newTestManager(t)
	a, _ := m.Create()
	b, _ := m.Create()

	list := m.List()
	if len(list) != 2 {
		t.Fatalf("len = %d", len(list))
	}
	if list[0].CreatedAt.After(list[1].CreatedAt) {
		t.Errorf("not oldest first: %s, %s", a.ID, b.ID)
	}
}

func TestIdleSince(t *testing.T) {
	m := newTestManager(t)
	plan, _ := m.Create()
	sub, err := m.CreateSubPlan(plan.ID)
	if err != nil {
		t.Fatal(err)
	}

	idle := m.IdleSince(time.Now().Add(time.Minute))
	if len(idle) != 1 || idle[0].ID != plan.ID {
		t.Errorf("idle = %v, want only top-level plan (sub %s excluded)", idle, sub.ID)
	}

	m.Touch(plan.ID)
	if idle := m.IdleSince(time.Now().Add(-time.Minute)); len(idle) != 0 {
		t.Errorf("touched plan reported idle: %v", idle)
	}
}

func TestPlanResults(t *testing.T) {
	m := newTestManager(t)
	plan, _ := m.Create()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			plan.StoreResult(string(rune('a'+n)), n)
		}(i)
	}
	wg.Wait()

	results := plan.Results()
	if len(results) != 8 {
		t.Errorf("results = %d entries, want 8", len(results))
	}
	if results["a"] != 0 {
		t.Errorf("results[a] = %v", results["a"])
	}
}

func TestJanitorSweep(t *testing.T) {
	m := newTestManager(t)
	plan, _ := m.Create()

	j := NewJanitor(m, JanitorConfig{Schedule: "@every 1h", TTL: time.Nanosecond}, nil)
	time.Sleep(time.Millisecond)
	j.Sweep()

	if _, err := m.Get(plan.ID); err == nil {
		t.Error("idle plan survived sweep")
	}
	if _, err := os.Stat(plan.Dir()); !os.IsNotExist(err) {
		t.Error("plan dir survived sweep")
	}
}
