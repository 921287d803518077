// Package workspace manages per-plan working directories.
//
// Every execution plan gets one directory under the workspace base,
// which doubles as the plan's path jail: tools resolve every path
// against it and nothing outside is reachable. Sub-plans run in
// subdirectories of their parent's jail, so a sub-plan can never see
// more than its parent. Finished or abandoned plans are swept by the
// janitor (see janitor.go).
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jholhewres/planclaw/pkg/planclaw/jail"
)

// PlanIDPrefix is the prefix of generated plan identifiers. It is also
// what path normalization strips when a caller echoes the plan
// directory name back in a relative path.
const PlanIDPrefix = "plan-"

// Plan is one isolated execution context.
type Plan struct {
	// ID is the unique plan identifier (e.g. "plan-1f3a9c2e").
	ID string

	// ParentID is set for sub-plans.
	ParentID string

	// Root is the plan's path jail.
	Root *jail.Root

	// CreatedAt is when the plan was created.
	CreatedAt time.Time

	// lastUsed is updated on every tool call for the plan.
	lastUsed time.Time

	// results collects outputs of parallel sub-tasks by key. Writes
	// from concurrently running sub-plans land here without caller
	// locking.
	results sync.Map
}

// Dir returns the plan's workspace directory.
func (p *Plan) Dir() string { return p.Root.Dir() }

// StoreResult records a sub-task result under key, overwriting any
// previous value for that key.
func (p *Plan) StoreResult(key string, value any) {
	p.results.Store(key, value)
}

// Results returns a snapshot of all recorded sub-task results.
func (p *Plan) Results() map[string]any {
	out := make(map[string]any)
	p.results.Range(func(k, v any) bool {
		out[k.(string)] = v
		return true
	})
	return out
}

// Manager creates and tracks plan workspaces.
type Manager struct {
	baseDir string
	logger  *slog.Logger

	// plans stores live plans by ID.
	plans map[string]*Plan
	mu    sync.RWMutex
}

// NewManager creates a manager rooted at baseDir, creating the
// directory if needed.
func NewManager(baseDir string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace base: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating workspace base: %w", err)
	}
	return &Manager{
		baseDir: abs,
		logger:  logger.With("component", "workspace"),
		plans:   make(map[string]*Plan),
	}, nil
}

// BaseDir returns the workspace base directory.
func (m *Manager) BaseDir() string { return m.baseDir }

// Create makes a fresh plan workspace and returns the plan.
func (m *Manager) Create() (*Plan, error) {
	id := PlanIDPrefix + shortID()
	return m.createAt(id, "", filepath.Join(m.baseDir, id))
}

// CreateSubPlan makes a workspace for a sub-plan as a subdirectory of
// the parent's jail, so the sub-plan's reach is a subset of the
// parent's.
func (m *Manager) CreateSubPlan(parentID string) (*Plan, error) {
	parent, err := m.Get(parentID)
	if err != nil {
		return nil, err
	}
	id := PlanIDPrefix + shortID()
	return m.createAt(id, parentID, filepath.Join(parent.Dir(), id))
}

func (m *Manager) createAt(id, parentID, dir string) (*Plan, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating plan workspace: %w", err)
	}
	root, err := jail.NewRootWithPrefix(dir, PlanIDPrefix)
	if err != nil {
		return nil, fmt.Errorf("jailing plan workspace: %w", err)
	}

	now := time.Now()
	plan := &Plan{
		ID:        id,
		ParentID:  parentID,
		Root:      root,
		CreatedAt: now,
		lastUsed:  now,
	}

	m.mu.Lock()
	m.plans[id] = plan
	m.mu.Unlock()

	m.logger.Info("plan workspace created", "plan", id, "dir", dir, "parent", parentID)
	return plan, nil
}

// Get returns the plan with the given ID.
func (m *Manager) Get(id string) (*Plan, error) {
	m.mu.RLock()
	plan, ok := m.plans[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown plan: %s", id)
	}
	return plan, nil
}

// Touch marks the plan as recently used.
func (m *Manager) Touch(id string) {
	m.mu.Lock()
	if plan, ok := m.plans[id]; ok {
		plan.lastUsed = time.Now()
	}
	m.mu.Unlock()
}

// List returns all live plans, oldest first.
func (m *Manager) List() []*Plan {
	m.mu.RLock()
	out := make([]*Plan, 0, len(m.plans))
	for _, p := range m.plans {
		out = append(out, p)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Remove deletes the plan's workspace directory and forgets the plan
// along with all of its sub-plans.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	plan, ok := m.plans[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("unknown plan: %s", id)
	}
	// Collect the full descendant set before deleting anything:
	// removing entries mid-walk breaks parent chains through the map
	// and can strand a grandchild depending on iteration order.
	doomed := []string{id}
	for subID, sub := range m.plans {
		if m.isDescendant(sub, id) {
			doomed = append(doomed, subID)
		}
	}
	for _, subID := range doomed {
		delete(m.plans, subID)
	}
	m.mu.Unlock()

	if err := os.RemoveAll(plan.Dir()); err != nil {
		return fmt.Errorf("removing plan workspace: %w", err)
	}
	m.logger.Info("plan workspace removed", "plan", id)
	return nil
}

// isDescendant reports whether p transitively descends from ancestorID.
// Caller holds the lock.
func (m *Manager) isDescendant(p *Plan, ancestorID string) bool {
	for p != nil && p.ParentID != "" {
		if p.ParentID == ancestorID {
			return true
		}
		p = m.plans[p.ParentID]
	}
	return false
}

// IdleSince returns plans whose last use is before cutoff. Sub-plans
// are excluded: they go when their parent goes.
func (m *Manager) IdleSince(cutoff time.Time) []*Plan {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var idle []*Plan
	for _, p := range m.plans {
		if p.ParentID == "" && p.lastUsed.Before(cutoff) {
			idle = append(idle, p)
		}
	}
	return idle
}

// shortID returns the first uuid block, enough uniqueness for
// directory names while keeping paths readable.
func shortID() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}
