// Package service coordinates the editing core: it owns the uncommitted
// parameter stack for an open session, recomposes the render descriptor
// on every change, and commits snapshots through the store's arbiter.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"photoedit-backend/internal/comments"
	"photoedit-backend/internal/compose"
	"photoedit-backend/internal/history"
	"photoedit-backend/internal/models"
	"photoedit-backend/internal/params"
	"photoedit-backend/internal/review"
	"photoedit-backend/internal/store"
)

// Sentinel errors — callers use errors.Is() instead of string matching.
var (
	ErrInvalidAction = errors.New("service: unknown edit action")
)

// ActivityRecorder receives observational events from commits and review
// transitions. The presence hub implements it; tests pass nil.
type ActivityRecorder interface {
	Record(assetID uuid.UUID, actorID, kind, summary string) models.ActivityEvent
}

const opTimeout = 5 * time.Second

// SessionService is the application core behind the HTTP surface.
type SessionService struct {
	Store    store.Store
	Thread   *comments.Thread
	Activity ActivityRecorder
	Logger   *slog.Logger
}

// NewSessionService wires the service. activity may be nil.
func NewSessionService(s store.Store, activity ActivityRecorder, logger *slog.Logger) *SessionService {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SessionService{
		Store:    s,
		Thread:   comments.NewThread(s),
		Activity: activity,
		Logger:   logger.With("component", "service"),
	}
}

func (s *SessionService) record(assetID uuid.UUID, actorID, kind, summary string) {
	if s.Activity != nil {
		s.Activity.Record(assetID, actorID, kind, summary)
	}
}

// CreateAsset registers an uploaded image and commits its root version:
// the default stack, which composes to the identity descriptor.
func (s *SessionService) CreateAsset(ctx context.Context, originalURL, ownerID string) (*models.Asset, *models.Version, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	asset := &models.Asset{OriginalURL: originalURL, OwnerID: ownerID}
	if err := s.Store.CreateAsset(ctx, asset); err != nil {
		return nil, nil, err
	}

	root := &models.Version{
		ParentID: 0,
		Stack:    params.DefaultStack(),
		Label:    "Original",
		Action:   models.ActionUpload,
		AuthorID: ownerID,
	}
	committed, err := s.Store.AppendVersion(ctx, asset.ID, 0, root)
	if err != nil {
		return nil, nil, err
	}
	s.record(asset.ID, ownerID, "upload", "uploaded original image")
	return asset, committed, nil
}

// History returns the asset's full version list plus the current tip id.
func (s *SessionService) History(ctx context.Context, assetID uuid.UUID) ([]*models.Version, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	versions, err := s.Store.ListVersions(ctx, assetID)
	if err != nil {
		return nil, 0, err
	}
	var tip int64
	if n := len(versions); n > 0 {
		tip = versions[n-1].ID
	}
	return versions, tip, nil
}

// VersionStack fetches one version's snapshot for preview or restore.
func (s *SessionService) VersionStack(ctx context.Context, assetID uuid.UUID, versionID int64) (*models.Version, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return s.Store.GetVersion(ctx, assetID, versionID)
}

// CommitVersion appends a snapshot for a session committing from
// lastKnownTip. The stack is clamped, never rejected, on the way in.
// A *store.ConflictError propagates untouched so the caller can re-base.
func (s *SessionService) CommitVersion(ctx context.Context, assetID uuid.UUID, lastKnownTip, parentID int64, stack params.Stack, label string, action models.Action, authorID string) (*models.Version, error) {
	if !models.ValidAction(action) {
		return nil, ErrInvalidAction
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	v := &models.Version{
		ParentID: parentID,
		Stack:    stack.Clamp(),
		Label:    label,
		Action:   action,
		AuthorID: authorID,
	}
	committed, err := s.Store.AppendVersion(ctx, assetID, lastKnownTip, v)
	if err != nil {
		return nil, err
	}
	s.record(assetID, authorID, "commit", fmt.Sprintf("committed %s %q as v%d", action, label, committed.ID))
	return committed, nil
}

// Transition runs one review event against the asset's assignment.
// Nothing is written when the transition is rejected.
func (s *SessionService) Transition(ctx context.Context, assetID uuid.UUID, target models.AssignmentStatus, actorID string, role review.Role) (*models.Assignment, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	a, err := s.Store.GetAssignment(ctx, assetID)
	if err != nil {
		return nil, err
	}

	event, ok := review.EventForStatus(target)
	if !ok {
		return nil, review.ErrInvalidTransition
	}
	if target == models.StatusInProgress {
		event = review.ResolveInProgress(a.Status)
	}

	next, err := review.Apply(*a, event, role, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.Store.PutAssignment(ctx, &next); err != nil {
		return nil, err
	}
	s.record(assetID, actorID, "review", fmt.Sprintf("assignment moved to %s", next.Status))
	return &next, nil
}

// Assign creates or replaces the asset's assignment in pending state.
func (s *SessionService) Assign(ctx context.Context, assetID uuid.UUID, assigneeID string) (*models.Assignment, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	a := &models.Assignment{
		AssetID:    assetID,
		AssigneeID: assigneeID,
		Status:     models.StatusPending,
	}
	if err := s.Store.PutAssignment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// AddComment appends to the asset's thread after checking the asset and,
// when the comment pins a version, that the version exists.
func (s *SessionService) AddComment(ctx context.Context, assetID uuid.UUID, authorID, content string, versionID *int64, internal bool) (*models.Comment, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := s.Store.GetAsset(ctx, assetID); err != nil {
		return nil, err
	}
	if versionID != nil {
		if _, err := s.Store.GetVersion(ctx, assetID, *versionID); err != nil {
			return nil, err
		}
	}
	c, err := s.Thread.Add(ctx, assetID, authorID, content, versionID, internal)
	if err != nil {
		return nil, err
	}
	s.record(assetID, authorID, "comment", "left a comment")
	return c, nil
}

// Comments returns the asset's thread, oldest first.
func (s *SessionService) Comments(ctx context.Context, assetID uuid.UUID) ([]*models.Comment, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return s.Thread.List(ctx, assetID)
}

// Assignment reads the asset's current assignment.
func (s *SessionService) Assignment(ctx context.Context, assetID uuid.UUID) (*models.Assignment, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return s.Store.GetAssignment(ctx, assetID)
}

// ── In-process edit session ──────────────────────────────────────────────

// Session is one open, single-owner edit session: the mutable parameter
// stack, its history timeline, and the recomposed descriptor. Not safe
// for concurrent use — the stack is exclusively owned by its client.
type Session struct {
	svc     *SessionService
	assetID uuid.UUID
	userID  string

	timeline     *history.Timeline
	stack        params.Stack
	lastKnownTip int64
}

// OpenSession loads the asset's active path (tip back to root) and hands
// back a session positioned at the tip.
func (s *SessionService) OpenSession(ctx context.Context, assetID uuid.UUID, userID string) (*Session, error) {
	versions, tip, err := s.History(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, history.ErrNoRootVersion
	}

	// Walk parent pointers from the tip: committed branches that fell
	// off the active path stay in the tree but not in this timeline.
	byID := make(map[int64]*models.Version, len(versions))
	for _, v := range versions {
		byID[v.ID] = v
	}
	var path []models.Version
	for cur := byID[tip]; cur != nil; cur = byID[cur.ParentID] {
		path = append(path, *cur)
		if cur.ParentID == 0 {
			break
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	tl, err := history.Load(path)
	if err != nil {
		return nil, err
	}
	return &Session{
		svc:          s,
		assetID:      assetID,
		userID:       userID,
		timeline:     tl,
		stack:        tl.Head().Stack.Clone(),
		lastKnownTip: tip,
	}, nil
}

// Stack returns a copy of the uncommitted stack.
func (e *Session) Stack() params.Stack { return e.stack.Clone() }

// Descriptor recomposes the render descriptor from the current stack.
// Pure and cheap — called on every parameter change.
func (e *Session) Descriptor() compose.RenderDescriptor { return compose.Compose(e.stack) }

// SetAdjustments replaces the tonal group, clamped silently.
func (e *Session) SetAdjustments(a params.Adjustments) {
	e.stack.Adjustments = a
	e.stack = e.stack.Clamp()
}

// SetFilter replaces the filter group, clamped silently.
func (e *Session) SetFilter(f params.Filter) {
	e.stack.Filter = f
	e.stack = e.stack.Clamp()
}

// SetTransform replaces the geometry group, clamped silently.
func (e *Session) SetTransform(t params.Transform) {
	e.stack.Transform = t
	e.stack = e.stack.Clamp()
}

// SetMask replaces the mask group, clamped silently.
func (e *Session) SetMask(m params.Mask) {
	e.stack.Mask = m
	e.stack = e.stack.Clamp()
}

// Commit snapshots the current stack as a new version branching off the
// cursor. On *store.ConflictError nothing is written locally or remotely;
// the caller decides whether to Rebase and retry.
func (e *Session) Commit(ctx context.Context, label string, action models.Action) (*models.Version, error) {
	committed, err := e.svc.CommitVersion(ctx, e.assetID, e.lastKnownTip, e.timeline.Head().ID, e.stack, label, action, e.userID)
	if err != nil {
		return nil, err
	}
	if err := e.timeline.Append(*committed); err != nil {
		return nil, err
	}
	e.lastKnownTip = committed.ID
	return committed, nil
}

// Undo steps the cursor back and reloads that version's stack. No-op at
// the root.
func (e *Session) Undo() models.Version {
	v := e.timeline.Undo()
	e.stack = v.Stack.Clone()
	return v
}

// Redo steps the cursor forward and reloads that version's stack. No-op
// at the tip.
func (e *Session) Redo() models.Version {
	v := e.timeline.Redo()
	e.stack = v.Stack.Clone()
	return v
}

// CanUndo reports whether the cursor can move back.
func (e *Session) CanUndo() bool { return e.timeline.CanUndo() }

// CanRedo reports whether the cursor can move forward.
func (e *Session) CanRedo() bool { return e.timeline.CanRedo() }

// JumpPreview returns the stack at index without moving the cursor or
// touching the working stack.
func (e *Session) JumpPreview(index int) (params.Stack, error) {
	return e.timeline.JumpPreview(index)
}

// Restore commits a copy of the stack at index as a new version — a
// branch forward, never a rewind, so provenance survives.
func (e *Session) Restore(ctx context.Context, index int) (*models.Version, error) {
	src, err := e.timeline.RestoreSource(index)
	if err != nil {
		return nil, err
	}
	sourceID := e.timeline.Versions()[index].ID
	e.stack = src
	return e.Commit(ctx, fmt.Sprintf("Restored v%d", sourceID), models.ActionRemix)
}

// Snapshot names a version as a checkpoint. Metadata only.
func (e *Session) Snapshot(index int, label string) error {
	return e.timeline.MarkCheckpoint(index, label)
}

// History returns the session's active path, root first.
func (e *Session) History() []models.Version { return e.timeline.Versions() }

// Cursor returns the session's history cursor index.
func (e *Session) Cursor() int { return e.timeline.Cursor() }

// Rebase reopens the session against the asset's current tip after a
// conflict, replaying the uncommitted stack on top when keepStack is set.
func (e *Session) Rebase(ctx context.Context, keepStack bool) error {
	fresh, err := e.svc.OpenSession(ctx, e.assetID, e.userID)
	if err != nil {
		return err
	}
	if keepStack {
		fresh.stack = e.stack.Clone()
	}
	*e = *fresh
	return nil
}
