// Package jail – errors.go defines the error taxonomy for the path
// confinement engine. The default posture is fail-closed: any ambiguous
// resolution (unreadable symlink, unresolvable real path) resolves to
// the least permissive outcome.
package jail

import (
	"errors"
	"fmt"
)

// PathError reports a confinement violation. It is returned whenever a
// candidate path resolves outside the jail root or cannot be resolved
// at all.
type PathError struct {
	// Path is the original user-supplied path or extracted token.
	Path string

	// Reason explains why the path was rejected.
	Reason string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("access denied: %s (%s)", e.Path, e.Reason)
}

// UnsupportedTypeError reports a file whose extension is outside the
// allow-list used by text-oriented tools.
type UnsupportedTypeError struct {
	Path string
	Ext  string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported file type %q: %s", e.Ext, e.Path)
}

// ErrNotFound is returned when a confined path does not exist on disk.
var ErrNotFound = errors.New("path not found")

// ErrTraversalAborted is returned when a walk stopped before visiting
// the whole tree, either because the caller's fold returned false or a
// result cap was reached. Results gathered up to that point are valid.
var ErrTraversalAborted = errors.New("traversal aborted")

// IsAccessDenied reports whether err is a confinement violation.
func IsAccessDenied(err error) bool {
	var pe *PathError
	return errors.As(err, &pe)
}
