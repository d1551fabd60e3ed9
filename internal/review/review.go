// Package review implements the approval lifecycle for an asset:
//
//	pending → in-progress → ready → approved
//	                          ↓
//	                  revision-needed → in-progress
//
// Approved is terminal here; reopening an approved asset is a separately
// authorized action outside this state machine. Assignees drive the edit
// transitions, reviewers drive approve/reject.
package review

import (
	"errors"
	"time"

	"photoedit-backend/internal/models"
)

// Sentinel errors — callers use errors.Is() instead of string matching.
var (
	ErrInvalidTransition = errors.New("review: transition not allowed from current status")
	ErrPermissionDenied  = errors.New("review: role not authorized for this transition")
	ErrUnknownEvent      = errors.New("review: unknown event")
)

// Role is the permission level of the actor requesting a transition.
type Role string

const (
	RoleAssignee Role = "assignee"
	RoleReviewer Role = "reviewer"
)

// Event is something that happens to an assignment.
type Event string

const (
	EventOpenEditor Event = "open-editor" // assignee starts working
	EventSaveDraft  Event = "save-draft"  // touch only, no status change
	EventMarkReady  Event = "mark-ready"  // assignee hands off for review
	EventApprove    Event = "approve"     // reviewer signs off
	EventReject     Event = "reject"      // reviewer sends back
	EventResumeEdit Event = "resume-edit" // assignee picks up a rejection
)

// ValidEvent reports whether e is part of the transition table.
func ValidEvent(e Event) bool {
	switch e {
	case EventOpenEditor, EventSaveDraft, EventMarkReady, EventApprove, EventReject, EventResumeEdit:
		return true
	}
	return false
}

type transition struct {
	from models.AssignmentStatus
	to   models.AssignmentStatus
	role Role
}

// The full transition table. Anything not listed is illegal.
var transitions = map[Event]transition{
	EventOpenEditor: {models.StatusPending, models.StatusInProgress, RoleAssignee},
	EventSaveDraft:  {models.StatusInProgress, models.StatusInProgress, RoleAssignee},
	EventMarkReady:  {models.StatusInProgress, models.StatusReady, RoleAssignee},
	EventApprove:    {models.StatusReady, models.StatusApproved, RoleReviewer},
	EventReject:     {models.StatusReady, models.StatusRevisionNeeded, RoleReviewer},
	EventResumeEdit: {models.StatusRevisionNeeded, models.StatusInProgress, RoleAssignee},
}

// Apply runs one event against an assignment and returns the updated
// copy. The input is never mutated: on any error the stored assignment
// stays exactly as it was.
//
// Role is checked before status so a reviewer probing an edit-only event
// gets ErrPermissionDenied rather than leaking lifecycle state.
func Apply(a models.Assignment, e Event, role Role, now time.Time) (models.Assignment, error) {
	tr, ok := transitions[e]
	if !ok {
		return a, ErrUnknownEvent
	}
	if role != tr.role {
		return a, ErrPermissionDenied
	}
	if a.Status != tr.from {
		return a, ErrInvalidTransition
	}
	a.Status = tr.to
	a.UpdatedAt = now
	return a, nil
}

// EventForStatus maps a requested target status to the event that reaches
// it. Used by the PATCH handler, which speaks statuses, not events.
func EventForStatus(target models.AssignmentStatus) (Event, bool) {
	switch target {
	case models.StatusInProgress:
		// Ambiguous between open-editor, save-draft and resume-edit;
		// resolved by the current status in ResolveInProgress.
		return EventOpenEditor, true
	case models.StatusReady:
		return EventMarkReady, true
	case models.StatusApproved:
		return EventApprove, true
	case models.StatusRevisionNeeded:
		return EventReject, true
	}
	return "", false
}

// ResolveInProgress picks the right event for a transition into
// in-progress given where the assignment currently sits: resuming after
// a rejection, saving a draft while already editing, or opening fresh.
func ResolveInProgress(current models.AssignmentStatus) Event {
	switch current {
	case models.StatusRevisionNeeded:
		return EventResumeEdit
	case models.StatusInProgress:
		return EventSaveDraft
	}
	return EventOpenEditor
}

// ApplyBatch runs the same event across several assignments, stopping at
// the first failure and reporting which asset failed. Used by the batch
// ready/approve flows in the team workspace.
func ApplyBatch(as []models.Assignment, e Event, role Role, now time.Time) ([]models.Assignment, error) {
	out := make([]models.Assignment, 0, len(as))
	for _, a := range as {
		next, err := Apply(a, e, role, now)
		if err != nil {
			return nil, err
		}
		out = append(out, next)
	}
	return out, nil
}
