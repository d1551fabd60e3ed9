package models

import (
	"time"

	"github.com/google/uuid"

	"photoedit-backend/internal/params"
)

// Action records what kind of edit produced a version.
type Action string

const (
	ActionUpload Action = "upload"
	ActionAdjust Action = "adjust"
	ActionFilter Action = "filter"
	ActionCrop   Action = "crop"
	ActionMask   Action = "mask"
	ActionRemix  Action = "remix"
)

// ValidAction reports whether a is a known action kind.
func ValidAction(a Action) bool {
	switch a {
	case ActionUpload, ActionAdjust, ActionFilter, ActionCrop, ActionMask, ActionRemix:
		return true
	}
	return false
}

// Asset identifies the image being edited. The reference is immutable;
// all edit state hangs off versions, never off the asset itself.
type Asset struct {
	ID          uuid.UUID `json:"id"`
	OriginalURL string    `json:"original_url"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Version is an immutable committed snapshot of a parameter stack.
// IDs increase monotonically per asset. ParentID is 0 only for the root
// (upload) version. The stack is a full snapshot, not a diff — restore is
// a plain copy back into the editing session.
type Version struct {
	ID           int64        `json:"id"`
	ParentID     int64        `json:"parent_id"`
	AssetID      uuid.UUID    `json:"asset_id"`
	Stack        params.Stack `json:"parameter_stack"`
	Label        string       `json:"label"`
	Action       Action       `json:"action"`
	AuthorID     string       `json:"author_id"`
	ThumbnailRef string       `json:"thumbnail_ref,omitempty"`
	Checkpoint   string       `json:"checkpoint,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// IsRoot reports whether v is the asset's upload version.
func (v Version) IsRoot() bool { return v.ParentID == 0 && v.Action == ActionUpload }

// AssignmentStatus is the review lifecycle state of an asset.
type AssignmentStatus string

const (
	StatusPending        AssignmentStatus = "pending"
	StatusInProgress     AssignmentStatus = "in-progress"
	StatusReady          AssignmentStatus = "ready"
	StatusApproved       AssignmentStatus = "approved"
	StatusRevisionNeeded AssignmentStatus = "revision-needed"
)

// Assignment tracks who is editing an asset and where it sits in the
// review flow. Mutated only through the review state machine.
type Assignment struct {
	AssetID    uuid.UUID        `json:"asset_id"`
	AssigneeID string           `json:"assignee_id"`
	Status     AssignmentStatus `json:"status"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// Comment is one append-only note on an asset, optionally pinned to a
// specific version. Comments are never edited or deleted — corrections
// are new comments.
type Comment struct {
	ID         uuid.UUID `json:"id"`
	AssetID    uuid.UUID `json:"asset_id"`
	AuthorID   string    `json:"author_id"`
	Content    string    `json:"content"`
	Mentions   []string  `json:"mentions,omitempty"`
	VersionID  *int64    `json:"version_id,omitempty"`
	IsInternal bool      `json:"is_internal"`
	CreatedAt  time.Time `json:"created_at"`
}

// Tool is the editor tool a collaborator currently has focused.
type Tool string

const (
	ToolAdjust Tool = "adjust"
	ToolFilter Tool = "filter"
	ToolCrop   Tool = "crop"
	ToolMask   Tool = "mask"
)

// CursorPosition is a collaborator's pointer in image coordinates.
type CursorPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PresenceEntry is ephemeral per-collaborator liveness data. It is never
// persisted and never enters version history.
type PresenceEntry struct {
	UserID      string         `json:"user_id"`
	CurrentTool Tool           `json:"current_tool,omitempty"`
	Cursor      CursorPosition `json:"cursor"`
	LastSeenAt  time.Time      `json:"last_seen_at"`
}

// ActivityEvent is one append-only entry in the per-asset activity feed.
// The feed is observational only — it never drives state transitions.
type ActivityEvent struct {
	ID        int64     `json:"id"`
	ActorID   string    `json:"actor_id"`
	Kind      string    `json:"kind"`
	Summary   string    `json:"summary"`
	Timestamp time.Time `json:"timestamp"`
}
