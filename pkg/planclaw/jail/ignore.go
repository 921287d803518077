// Package jail – ignore.go implements gitignore-syntax exclusion rules
// for the walker, plus a per-root cache invalidated by filesystem
// notifications.
package jail

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// DefaultIgnoreFile is the rule-file name loaded from the ignore root.
const DefaultIgnoreFile = ".gitignore"

// rule is one parsed ignore line. Matching follows gitignore semantics:
// a pattern with a slash is anchored to the ignore root, one without
// matches at any depth, a trailing slash restricts the rule to
// directories, and "!" negates.
type rule struct {
	raw     string
	negate  bool
	dirOnly bool

	self glob.Glob // the path itself
	kids glob.Glob // anything below a matched directory
}

func parseRule(line string) (*rule, error) {
	r := &rule{raw: line}

	pat := line
	if strings.HasPrefix(pat, "!") {
		r.negate = true
		pat = pat[1:]
	}
	if strings.HasSuffix(pat, "/") {
		r.dirOnly = true
		pat = strings.TrimRight(pat, "/")
	}
	anchored := strings.HasPrefix(pat, "/")
	pat = strings.TrimPrefix(pat, "/")
	if pat == "" {
		return nil, fmt.Errorf("empty pattern")
	}

	anchored = anchored || strings.Contains(pat, "/")
	selfPat := pat
	if !anchored {
		selfPat = "{" + pat + ",**/" + pat + "}"
	}

	var err error
	if r.self, err = glob.Compile(selfPat, '/'); err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", line, err)
	}
	if r.kids, err = glob.Compile(selfPat+"/**", '/'); err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", line, err)
	}
	return r, nil
}

// matches reports whether the rule applies to rel. Directory-only rules
// still apply to files below a matched directory.
func (r *rule) matches(rel string, isDir bool) bool {
	if r.self.Match(rel) {
		return !r.dirOnly || isDir
	}
	return r.kids.Match(rel)
}

// RuleSet is an ordered list of ignore rules rooted at one directory.
// The zero value ignores nothing.
type RuleSet struct {
	root        string // ignore root, canonical absolute
	rules       []*rule
	hasNegation bool
}

// ParseRules reads gitignore-syntax lines. Blank lines and "#" comments
// are skipped; malformed patterns are skipped too, matching how git
// itself tolerates bad lines.
func ParseRules(root string, src io.Reader) *RuleSet {
	rs := &RuleSet{root: root}
	sc := bufio.NewScanner(src)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		r, err := parseRule(line)
		if err != nil {
			continue
		}
		rs.rules = append(rs.rules, r)
		if r.negate {
			rs.hasNegation = true
		}
	}
	return rs
}

// LoadRuleSet reads the ignore file from dir. A missing file yields an
// empty set.
func LoadRuleSet(dir, fileName string) (*RuleSet, error) {
	if fileName == "" {
		fileName = DefaultIgnoreFile
	}
	f, err := os.Open(filepath.Join(dir, fileName))
	if err != nil {
		if os.IsNotExist(err) {
			return &RuleSet{root: dir}, nil
		}
		return nil, err
	}
	defer f.Close()
	return ParseRules(dir, f), nil
}

// Root returns the directory the rules are anchored to.
func (rs *RuleSet) Root() string { return rs.root }

// Len returns the number of rules.
func (rs *RuleSet) Len() int { return len(rs.rules) }

// Ignored reports whether rel (slash-separated, relative to the ignore
// root) is excluded. The last matching rule wins.
func (rs *RuleSet) Ignored(rel string, isDir bool) bool {
	rel = strings.Trim(filepath.ToSlash(rel), "/")
	if rel == "" || rel == "." {
		return false
	}
	ignored := false
	for _, r := range rs.rules {
		if r.matches(rel, isDir) {
			ignored = !r.negate
		}
	}
	return ignored
}

// CanSkipSubtree reports whether an ignored directory's whole subtree
// can be pruned without visiting it. Negation rules can re-include
// files below an ignored directory, so pruning is only sound when the
// set has none.
func (rs *RuleSet) CanSkipSubtree(rel string) bool {
	return !rs.hasNegation && rs.Ignored(rel, true)
}

// IgnoreRootFor finds the directory whose ignore file governs
// searchRoot. That is normally the jail root, but when searchRoot lies
// under a symlink whose canonical target is outside the jail (a
// deliberately shared directory), the rules live at the link target,
// not inside the jail.
func (r *Root) IgnoreRootFor(searchRoot string) string {
	rel, err := filepath.Rel(r.dir, searchRoot)
	if err != nil || strings.HasPrefix(rel, "..") {
		return searchRoot
	}
	if rel == "." {
		return r.dir
	}

	cur := r.dir
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		cur = filepath.Join(cur, seg)
		if !IsSymlink(cur) {
			continue
		}
		target, err := filepath.EvalSymlinks(cur)
		if err != nil {
			continue
		}
		if !isWithin(r.dir, target) {
			return target
		}
	}
	return r.dir
}

// ---------- Cache ----------

type cacheEntry struct {
	set   *RuleSet
	stale bool
}

// IgnoreCache caches parsed rule sets per ignore root and invalidates
// them when the underlying ignore file changes on disk.
type IgnoreCache struct {
	mu       sync.RWMutex
	entries  map[string]*cacheEntry
	fileName string
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	done     chan struct{}
}

// NewIgnoreCache creates a cache watching for ignore-file changes.
// fileName defaults to DefaultIgnoreFile. The watcher is best effort:
// if it cannot be created the cache still works, it just never
// invalidates.
func NewIgnoreCache(fileName string, logger *slog.Logger) *IgnoreCache {
	if fileName == "" {
		fileName = DefaultIgnoreFile
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &IgnoreCache{
		entries:  make(map[string]*cacheEntry),
		fileName: fileName,
		logger:   logger.With("component", "ignore_cache"),
		done:     make(chan struct{}),
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		c.logger.Warn("ignore watcher unavailable", "error", err)
		return c
	}
	c.watcher = w
	go c.watch()
	return c
}

// Get returns the rule set for root, loading and caching it on first
// use or after invalidation.
func (c *IgnoreCache) Get(root string) *RuleSet {
	c.mu.RLock()
	e, ok := c.entries[root]
	c.mu.RUnlock()
	if ok && !e.stale {
		return e.set
	}

	set, err := LoadRuleSet(root, c.fileName)
	if err != nil {
		c.logger.Warn("loading ignore rules", "root", root, "error", err)
		set = &RuleSet{root: root}
	}

	c.mu.Lock()
	c.entries[root] = &cacheEntry{set: set}
	c.mu.Unlock()

	if c.watcher != nil {
		if err := c.watcher.Add(root); err != nil {
			c.logger.Debug("watching ignore root", "root", root, "error", err)
		}
	}
	return set
}

// Invalidate drops the cached set for root.
func (c *IgnoreCache) Invalidate(root string) {
	c.mu.Lock()
	if e, ok := c.entries[root]; ok {
		e.stale = true
	}
	c.mu.Unlock()
}

// Close stops the watcher.
func (c *IgnoreCache) Close() error {
	close(c.done)
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}

func (c *IgnoreCache) watch() {
	for {
		select {
		case <-c.done:
			return
		case ev, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != c.fileName {
				continue
			}
			root := filepath.Dir(ev.Name)
			c.Invalidate(root)
			c.logger.Debug("ignore rules invalidated", "root", root, "op", ev.Op.String())
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.logger.Warn("ignore watcher error", "error", err)
		}
	}
}
