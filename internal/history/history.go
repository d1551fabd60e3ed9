// Package history manages the per-session edit timeline: an ordered list
// of committed versions with an undo/redo cursor.
//
// The timeline holds the session's active path from the root (upload)
// version to its tip. Committing while the cursor sits before the tip
// discards everything after the cursor — classic branch-on-edit. The
// discarded versions still exist in the asset's version tree on the
// store side; they just stop being reachable through undo/redo here.
package history

import (
	"errors"

	"photoedit-backend/internal/models"
	"photoedit-backend/internal/params"
)

// Sentinel errors — callers use errors.Is() instead of string matching.
var (
	ErrNoRootVersion        = errors.New("history: timeline has no root version")
	ErrInvalidRestoreTarget = errors.New("history: version index not in timeline")
	ErrParentMismatch       = errors.New("history: commit parent is not the cursor version")
)

// Timeline is the history state for one open edit session. Not safe for
// concurrent use: a session is owned by a single client and history
// operations are strictly sequential.
type Timeline struct {
	versions []models.Version
	cursor   int
}

// New builds a timeline rooted at the asset's upload version.
func New(root models.Version) (*Timeline, error) {
	if !root.IsRoot() {
		return nil, ErrNoRootVersion
	}
	return &Timeline{versions: []models.Version{root}}, nil
}

// Load rebuilds a timeline from an already-ordered active path, cursor at
// the tip. Used when reopening a session from stored history.
func Load(path []models.Version) (*Timeline, error) {
	if len(path) == 0 || !path[0].IsRoot() {
		return nil, ErrNoRootVersion
	}
	vs := make([]models.Version, len(path))
	copy(vs, path)
	return &Timeline{versions: vs, cursor: len(vs) - 1}, nil
}

// Head returns the version at the cursor.
func (t *Timeline) Head() models.Version { return t.versions[t.cursor] }

// Len returns the number of versions on the active path.
func (t *Timeline) Len() int { return len(t.versions) }

// Cursor returns the current cursor index.
func (t *Timeline) Cursor() int { return t.cursor }

// CanUndo reports whether the cursor can move back.
func (t *Timeline) CanUndo() bool { return t.cursor > 0 }

// CanRedo reports whether the cursor can move forward.
func (t *Timeline) CanRedo() bool { return t.cursor < len(t.versions)-1 }

// Append records a freshly committed version. The version's parent must
// be the cursor version; anything after the cursor on the active path is
// discarded, then the cursor advances to the new tip. A later Redo is a
// no-op — the abandoned branch is gone from this session.
func (t *Timeline) Append(v models.Version) error {
	if v.ParentID != t.Head().ID {
		return ErrParentMismatch
	}
	t.versions = append(t.versions[:t.cursor+1], v)
	t.cursor = len(t.versions) - 1
	return nil
}

// Undo moves the cursor back one step and returns the version now under
// it, whose stack the session reloads. No-op at the root.
func (t *Timeline) Undo() models.Version {
	if t.cursor > 0 {
		t.cursor--
	}
	return t.Head()
}

// Redo moves the cursor forward one step. No-op at the tip.
func (t *Timeline) Redo() models.Version {
	if t.cursor < len(t.versions)-1 {
		t.cursor++
	}
	return t.Head()
}

// JumpPreview returns the stack at an arbitrary index without moving the
// cursor. Used for hover-preview in the history panel; mutates nothing.
func (t *Timeline) JumpPreview(index int) (params.Stack, error) {
	if index < 0 || index >= len(t.versions) {
		return params.Stack{}, ErrInvalidRestoreTarget
	}
	return t.versions[index].Stack.Clone(), nil
}

// RestoreSource returns a copy of the stack at index for committing as a
// new version. Restore never rewinds the cursor — it preserves provenance
// by branching forward instead of destroying history.
func (t *Timeline) RestoreSource(index int) (params.Stack, error) {
	if index < 0 || index >= len(t.versions) {
		return params.Stack{}, ErrInvalidRestoreTarget
	}
	return t.versions[index].Stack.Clone(), nil
}

// MarkCheckpoint names a version as a checkpoint. Metadata only — the
// tree structure does not change.
func (t *Timeline) MarkCheckpoint(index int, label string) error {
	if index < 0 || index >= len(t.versions) {
		return ErrInvalidRestoreTarget
	}
	t.versions[index].Checkpoint = label
	return nil
}

// Versions returns a copy of the active path, root first.
func (t *Timeline) Versions() []models.Version {
	out := make([]models.Version, len(t.versions))
	copy(out, t.versions)
	return out
}
