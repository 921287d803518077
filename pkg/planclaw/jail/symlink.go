// Package jail – symlink.go classifies symbolic links before the walker
// follows them. Links are never trusted lexically: classification works
// on canonical targets, and any link that cannot be resolved is treated
// as circular rather than safe.
package jail

import (
	"os"
	"path/filepath"
)

// LinkClass is the verdict for a symbolic link encountered during a
// walk.
type LinkClass int

const (
	// LinkSafe: the target resolves inside the jail and does not point
	// back at an ancestor of the link. Safe to follow.
	LinkSafe LinkClass = iota

	// LinkCircular: the target is the link's own ancestor (or the jail
	// root's ancestor), or could not be resolved at all. Following it
	// would loop or is unverifiable.
	LinkCircular

	// LinkEscapes: the target resolves outside the jail.
	LinkEscapes
)

func (c LinkClass) String() string {
	switch c {
	case LinkSafe:
		return "safe"
	case LinkCircular:
		return "circular"
	case LinkEscapes:
		return "escapes"
	default:
		return "unknown"
	}
}

// IsSymlink reports whether path is a symbolic link, without following
// it.
func IsSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

// ClassifyLink resolves the symlink at linkPath and classifies its
// canonical target relative to the jail. linkPath must be an absolute
// path; it does not need to be canonical itself.
//
// The checks, in order:
//
//  1. an unresolvable target classifies as LinkCircular (fail safe)
//  2. a target that is the link's parent directory, or an ancestor of
//     it, classifies as LinkCircular: following it would revisit
//     directories already on the walk path
//  3. a target that is an ancestor of the jail root also classifies as
//     LinkCircular, since the jail root lies under it
//  4. a target outside the jail classifies as LinkEscapes
func (r *Root) ClassifyLink(linkPath string) (LinkClass, string) {
	target, err := filepath.EvalSymlinks(linkPath)
	if err != nil {
		return LinkCircular, ""
	}

	parent, err := filepath.EvalSymlinks(filepath.Dir(linkPath))
	if err != nil {
		return LinkCircular, target
	}

	if target == parent || isAncestor(target, parent) {
		return LinkCircular, target
	}
	if isAncestor(target, r.dir) {
		return LinkCircular, target
	}
	if !isWithin(r.dir, target) {
		return LinkEscapes, target
	}
	return LinkSafe, target
}

// ReadTarget returns the literal (unresolved) target of the symlink at
// path.
func ReadTarget(path string) (string, error) {
	return os.Readlink(path)
}
