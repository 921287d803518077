// Package jail – walker.go is the bounded, ignore-aware directory
// traversal behind the file-search tool. The walk is synchronous and
// produces an ordered event sequence folded through a caller callback;
// returning false from the callback stops the walk.
package jail

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// MaxWalkDepth bounds traversal depth below the walk root.
	MaxWalkDepth = 100

	// MaxWalkPathLen bounds the absolute path length of visited nodes.
	MaxWalkPathLen = 1000
)

// EventKind discriminates walk events.
type EventKind int

const (
	EnterDir EventKind = iota
	ExitDir
	FileMatch
)

func (k EventKind) String() string {
	switch k {
	case EnterDir:
		return "enter_dir"
	case ExitDir:
		return "exit_dir"
	case FileMatch:
		return "file_match"
	default:
		return "unknown"
	}
}

// Event is one step of a walk. Rel is always relative to the jail
// root, slash-separated. Match is set for FileMatch events only.
type Event struct {
	Kind  EventKind
	Rel   string
	Match *Match
}

// Match is one file found by a search.
type Match struct {
	Rel     string
	Size    int64
	ModTime time.Time
}

// Walker traverses jail directories. Safe for concurrent use: all walk
// state lives in the per-call frame.
type Walker struct {
	root   *Root
	ignore *IgnoreCache
	logger *slog.Logger
}

// NewWalker creates a walker over root. ignore may be nil to disable
// ignore rules.
func NewWalker(root *Root, ignore *IgnoreCache, logger *slog.Logger) *Walker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Walker{
		root:   root,
		ignore: ignore,
		logger: logger.With("component", "walker"),
	}
}

type walkFrame struct {
	matcher *Matcher
	fn      func(Event) bool
	rules   *RuleSet
	visited map[string]struct{}
	stopped bool

	// bounded is set when a depth or path-length guard cut part of the
	// tree off: the walk still succeeds, but the result is partial.
	bounded bool
}

// Walk traverses the tree rooted at startRel (jail-relative; "" walks
// the whole jail), emitting EnterDir/ExitDir per directory and
// FileMatch per regular file accepted by matcher (nil matcher accepts
// everything). Symlinked directories are followed only when classified
// LinkSafe; symlinked files are skipped. Unreadable nodes are logged
// and skipped. Returns ErrTraversalAborted when fn stops the walk or a
// depth or path-length guard cut part of the tree off; results gathered
// up to that point are valid.
func (w *Walker) Walk(startRel string, matcher *Matcher, fn func(Event) bool) error {
	c, err := w.root.Resolve(startRel)
	if err != nil {
		return err
	}
	// The walk root is confined lexically only: a search root that is
	// itself a symlink to a shared directory outside the jail is a
	// deliberate share. Its canonical identity is still registered so
	// links pointing back at it are caught.
	if !isWithin(w.root.Dir(), c.Lexical) {
		return &PathError{Path: startRel, Reason: "outside workspace " + w.root.Dir()}
	}
	start := c.Lexical
	info, err := os.Stat(start)
	if err != nil {
		return ErrNotFound
	}
	if !info.IsDir() {
		return &PathError{Path: startRel, Reason: "not a directory"}
	}

	frame := &walkFrame{
		matcher: matcher,
		fn:      fn,
		visited: make(map[string]struct{}),
	}
	if w.ignore != nil {
		frame.rules = w.ignore.Get(w.root.IgnoreRootFor(start))
	}
	frame.visited[c.Real] = struct{}{}

	w.walkDir(start, c.Real, 0, frame)
	if frame.stopped || frame.bounded {
		return ErrTraversalAborted
	}
	return nil
}

func (w *Walker) walkDir(dir, canonDir string, depth int, f *walkFrame) {
	rel := w.relOf(canonDir, dir)

	// Refuse before emitting: consumers never see directories beyond
	// the depth bound.
	if depth > MaxWalkDepth {
		w.logger.Debug("max depth reached", "dir", rel, "depth", depth)
		f.bounded = true
		return
	}

	if !f.fn(Event{Kind: EnterDir, Rel: rel}) {
		f.stopped = true
		return
	}
	defer func() {
		if !f.stopped && !f.fn(Event{Kind: ExitDir, Rel: rel}) {
			f.stopped = true
		}
	}()

	entries, err := os.ReadDir(dir)
	if err != nil {
		w.logger.Warn("reading directory", "dir", rel, "error", err)
		return
	}

	for _, entry := range entries {
		if f.stopped {
			return
		}
		child := filepath.Join(dir, entry.Name())
		if len(child) > MaxWalkPathLen {
			w.logger.Debug("path too long", "path", child)
			f.bounded = true
			continue
		}

		isLink := entry.Type()&os.ModeSymlink != 0
		isDir := entry.IsDir()
		canonChild := filepath.Join(canonDir, entry.Name())

		if isLink {
			class, target := w.root.ClassifyLink(child)
			if class != LinkSafe {
				w.logger.Debug("skipping symlink", "path", w.relOf(child, child), "class", class.String())
				continue
			}
			ti, err := os.Stat(target)
			if err != nil {
				continue
			}
			if !ti.IsDir() {
				// Symlinked files are never reported as matches.
				continue
			}
			isDir = true
			canonChild = target
		}

		if isDir {
			if _, seen := f.visited[canonChild]; seen {
				continue
			}
			if w.ignoredBy(f.rules, canonChild, child, true) {
				if f.rules.CanSkipSubtree(w.ruleRel(f.rules, canonChild, child)) {
					continue
				}
			}
			f.visited[canonChild] = struct{}{}
			w.walkDir(child, canonChild, depth+1, f)
			continue
		}

		if !entry.Type().IsRegular() {
			continue
		}
		if w.ignoredBy(f.rules, canonChild, child, false) {
			continue
		}
		childRel := w.relOf(canonChild, child)
		if f.matcher != nil && !f.matcher.Match(childRel) {
			continue
		}

		m := &Match{Rel: childRel}
		if fi, err := entry.Info(); err == nil {
			m.Size = fi.Size()
			m.ModTime = fi.ModTime()
		} else {
			w.logger.Warn("stat failed", "path", childRel, "error", err)
		}
		if !f.fn(Event{Kind: FileMatch, Rel: childRel, Match: m}) {
			f.stopped = true
			return
		}
	}
}

// ignoredBy checks a node against the rule set. Rules anchored outside
// the node's tree never apply.
func (w *Walker) ignoredBy(rules *RuleSet, canonPath, lexPath string, isDir bool) bool {
	if rules == nil || rules.Len() == 0 {
		return false
	}
	rel := w.ruleRel(rules, canonPath, lexPath)
	if rel == "" {
		return false
	}
	return rules.Ignored(rel, isDir)
}

// ruleRel computes the path form matched against ignore rules,
// relative to the rule set's root.
func (w *Walker) ruleRel(rules *RuleSet, canonPath, lexPath string) string {
	for _, p := range []string{canonPath, lexPath} {
		if rel, err := filepath.Rel(rules.Root(), p); err == nil && !strings.HasPrefix(rel, "..") && rel != "." {
			return filepath.ToSlash(rel)
		}
	}
	return ""
}

// relOf converts a walked node to its jail-relative form, preferring
// the lexical path so results under symlinked search roots keep the
// caller's spelling.
func (w *Walker) relOf(canonPath, lexPath string) string {
	if rel, err := w.root.Rel(lexPath); err == nil {
		return rel
	}
	if rel, err := w.root.Rel(canonPath); err == nil {
		return rel
	}
	return filepath.ToSlash(lexPath)
}

// Search walks from startRel collecting files that match pattern,
// newest first; files whose timestamp could not be read sort last.
// limit <= 0 means unlimited. When the limit cuts the walk short the
// results are returned together with ErrTraversalAborted.
func (w *Walker) Search(startRel, pattern string, limit int) ([]Match, error) {
	matcher, err := CompilePattern(pattern)
	if err != nil {
		return nil, err
	}

	var matches []Match
	err = w.Walk(startRel, matcher, func(ev Event) bool {
		if ev.Kind != FileMatch {
			return true
		}
		matches = append(matches, *ev.Match)
		return limit <= 0 || len(matches) < limit
	})

	sortMatches(matches)
	return matches, err
}

// sortMatches orders matches newest first, stable for ties. A zero
// ModTime means the timestamp could not be read; it sinks last because
// it is After nothing.
func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].ModTime.After(matches[j].ModTime)
	})
}
