// Package store persists the asset version tree and its review/comment
// satellites, and arbitrates concurrent commits.
//
// Versions are append-only: once committed they are immutable and never
// deleted, so any number of readers (history panels, review UI, export)
// can share them without locking. Writes are serialized per asset by the
// tip check in AppendVersion — optimistic concurrency, not merge.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"photoedit-backend/internal/models"
)

// Sentinel errors — callers use errors.Is() instead of string matching.
var (
	ErrAssetNotFound      = errors.New("store: asset not found")
	ErrVersionNotFound    = errors.New("store: version not found")
	ErrAssignmentNotFound = errors.New("store: assignment not found")
	ErrRootExists         = errors.New("store: asset already has a root version")
	ErrVersionConflict    = errors.New("store: version conflict")
)

// ConflictError is returned when a commit raced with another session.
// It carries the asset's actual tip so the caller can re-base and retry.
// Matches ErrVersionConflict under errors.Is.
type ConflictError struct {
	CurrentTip int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict: current tip is %d", e.CurrentTip)
}

func (e *ConflictError) Is(target error) bool { return target == ErrVersionConflict }

// VersionStore is the commit arbiter and version-tree persistence.
//
// AppendVersion is the only write path for versions. lastKnownTip is the
// newest version id the committing session has seen; if the stored tip
// has moved past it, the commit is rejected with a *ConflictError and
// nothing is written. The version's ParentID may be any existing version
// of the asset (branch commits point mid-tree after an undo).
type VersionStore interface {
	CreateAsset(ctx context.Context, asset *models.Asset) error
	GetAsset(ctx context.Context, id uuid.UUID) (*models.Asset, error)

	AppendVersion(ctx context.Context, assetID uuid.UUID, lastKnownTip int64, v *models.Version) (*models.Version, error)
	GetVersion(ctx context.Context, assetID uuid.UUID, versionID int64) (*models.Version, error)
	ListVersions(ctx context.Context, assetID uuid.UUID) ([]*models.Version, error)
	Tip(ctx context.Context, assetID uuid.UUID) (int64, error)
}

// AssignmentStore persists review assignments. Status values are only
// ever written through the review state machine.
type AssignmentStore interface {
	GetAssignment(ctx context.Context, assetID uuid.UUID) (*models.Assignment, error)
	PutAssignment(ctx context.Context, a *models.Assignment) error
}

// CommentStore persists the append-only comment thread per asset.
type CommentStore interface {
	AppendComment(ctx context.Context, c *models.Comment) error
	ListComments(ctx context.Context, assetID uuid.UUID) ([]*models.Comment, error)
}

// Store bundles the three persistence concerns behind one constructor so
// main.go wires a single dependency.
type Store interface {
	VersionStore
	AssignmentStore
	CommentStore
}
