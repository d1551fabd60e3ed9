package review

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"photoedit-backend/internal/models"
)

func assignment(status models.AssignmentStatus) models.Assignment {
	return models.Assignment{
		AssetID:    uuid.New(),
		AssigneeID: "maya",
		Status:     status,
	}
}

func TestHappyPathToApproved(t *testing.T) {
	now := time.Now().UTC()
	a := assignment(models.StatusPending)

	steps := []struct {
		event Event
		role  Role
		want  models.AssignmentStatus
	}{
		{EventOpenEditor, RoleAssignee, models.StatusInProgress},
		{EventMarkReady, RoleAssignee, models.StatusReady},
		{EventApprove, RoleReviewer, models.StatusApproved},
	}
	for _, step := range steps {
		var err error
		a, err = Apply(a, step.event, step.role, now)
		if err != nil {
			t.Fatalf("%s: %v", step.event, err)
		}
		if a.Status != step.want {
			t.Fatalf("%s: status = %s, want %s", step.event, a.Status, step.want)
		}
	}
}

func TestRejectionLoop(t *testing.T) {
	now := time.Now().UTC()
	a := assignment(models.StatusReady)

	a, err := Apply(a, EventReject, RoleReviewer, now)
	if err != nil {
		t.Fatal(err)
	}
	if a.Status != models.StatusRevisionNeeded {
		t.Fatalf("status = %s, want revision-needed", a.Status)
	}

	a, err = Apply(a, EventResumeEdit, RoleAssignee, now)
	if err != nil {
		t.Fatal(err)
	}
	if a.Status != models.StatusInProgress {
		t.Fatalf("status = %s, want in-progress", a.Status)
	}
}

func TestSaveDraftKeepsStatusTouchesTimestamp(t *testing.T) {
	then := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	now := then.Add(time.Hour)

	a := assignment(models.StatusInProgress)
	a.UpdatedAt = then

	a, err := Apply(a, EventSaveDraft, RoleAssignee, now)
	if err != nil {
		t.Fatal(err)
	}
	if a.Status != models.StatusInProgress {
		t.Fatalf("status = %s, want in-progress", a.Status)
	}
	if !a.UpdatedAt.Equal(now) {
		t.Fatalf("updatedAt = %v, want %v", a.UpdatedAt, now)
	}
}

// Every state × event pair outside the transition table must fail, and
// must leave the assignment untouched.
func TestTransitionTableClosure(t *testing.T) {
	now := time.Now().UTC()
	allStatuses := []models.AssignmentStatus{
		models.StatusPending, models.StatusInProgress, models.StatusReady,
		models.StatusApproved, models.StatusRevisionNeeded,
	}
	allEvents := []Event{
		EventOpenEditor, EventSaveDraft, EventMarkReady,
		EventApprove, EventReject, EventResumeEdit,
	}

	for _, status := range allStatuses {
		for _, event := range allEvents {
			tr := transitions[event]
			legal := tr.from == status

			for _, role := range []Role{RoleAssignee, RoleReviewer} {
				a := assignment(status)
				got, err := Apply(a, event, role, now)

				switch {
				case legal && role == tr.role:
					if err != nil {
						t.Errorf("%s + %s as %s: unexpected error %v", status, event, role, err)
					}
				case role != tr.role:
					if !errors.Is(err, ErrPermissionDenied) {
						t.Errorf("%s + %s as %s: err = %v, want ErrPermissionDenied", status, event, role, err)
					}
				default:
					if !errors.Is(err, ErrInvalidTransition) {
						t.Errorf("%s + %s as %s: err = %v, want ErrInvalidTransition", status, event, role, err)
					}
				}

				if err != nil && got.Status != status {
					t.Errorf("%s + %s: failed transition mutated status to %s", status, event, got.Status)
				}
			}
		}
	}
}

func TestApprovedIsTerminal(t *testing.T) {
	now := time.Now().UTC()
	for _, event := range []Event{EventOpenEditor, EventSaveDraft, EventMarkReady, EventApprove, EventReject, EventResumeEdit} {
		a := assignment(models.StatusApproved)
		tr := transitions[event]
		if _, err := Apply(a, event, tr.role, now); err == nil {
			t.Errorf("%s succeeded from approved", event)
		}
	}
}

func TestPendingCannotSkipToApproved(t *testing.T) {
	a := assignment(models.StatusPending)
	if _, err := Apply(a, EventApprove, RoleReviewer, time.Now()); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestUnknownEvent(t *testing.T) {
	a := assignment(models.StatusPending)
	if _, err := Apply(a, Event("archive"), RoleReviewer, time.Now()); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("err = %v, want ErrUnknownEvent", err)
	}
}

func TestResolveInProgress(t *testing.T) {
	if got := ResolveInProgress(models.StatusRevisionNeeded); got != EventResumeEdit {
		t.Fatalf("got %s, want resume-edit", got)
	}
	if got := ResolveInProgress(models.StatusInProgress); got != EventSaveDraft {
		t.Fatalf("got %s, want save-draft", got)
	}
	if got := ResolveInProgress(models.StatusPending); got != EventOpenEditor {
		t.Fatalf("got %s, want open-editor", got)
	}
}

func TestApplyBatch(t *testing.T) {
	now := time.Now().UTC()
	batch := []models.Assignment{
		assignment(models.StatusInProgress),
		assignment(models.StatusInProgress),
	}
	out, err := ApplyBatch(batch, EventMarkReady, RoleAssignee, now)
	if err != nil {
		t.Fatal(err)
	}
	for i, a := range out {
		if a.Status != models.StatusReady {
			t.Errorf("batch[%d] = %s, want ready", i, a.Status)
		}
	}

	mixed := []models.Assignment{
		assignment(models.StatusInProgress),
		assignment(models.StatusPending), // illegal for mark-ready
	}
	if _, err := ApplyBatch(mixed, EventMarkReady, RoleAssignee, now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}
