package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"photoedit-backend/internal/models"
	"photoedit-backend/internal/params"
)

func newAssetWithRoot(t *testing.T, s *MemoryStore) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	asset := &models.Asset{OriginalURL: "https://cdn.example.com/raw.jpg", OwnerID: "maya"}
	if err := s.CreateAsset(ctx, asset); err != nil {
		t.Fatal(err)
	}
	root := &models.Version{
		Stack:  params.DefaultStack(),
		Label:  "Original",
		Action: models.ActionUpload,
	}
	if _, err := s.AppendVersion(ctx, asset.ID, 0, root); err != nil {
		t.Fatal(err)
	}
	return asset.ID
}

func adjustVersion(parentID int64, exposure float64) *models.Version {
	stack := params.DefaultStack()
	stack.Adjustments.Exposure = exposure
	return &models.Version{
		ParentID: parentID,
		Stack:    stack,
		Action:   models.ActionAdjust,
		AuthorID: "maya",
	}
}

func TestAppendVersionAssignsMonotonicIDs(t *testing.T) {
	s := NewMemoryStore()
	assetID := newAssetWithRoot(t, s)
	ctx := context.Background()

	v2, err := s.AppendVersion(ctx, assetID, 1, adjustVersion(1, 30))
	if err != nil {
		t.Fatal(err)
	}
	v3, err := s.AppendVersion(ctx, assetID, 2, adjustVersion(2, 60))
	if err != nil {
		t.Fatal(err)
	}
	if v2.ID != 2 || v3.ID != 3 {
		t.Fatalf("ids = %d, %d; want 2, 3", v2.ID, v3.ID)
	}
}

func TestConcurrentCommitConflict(t *testing.T) {
	s := NewMemoryStore()
	assetID := newAssetWithRoot(t, s)
	ctx := context.Background()

	// Sessions A and B both open against tip v1.
	a, err := s.AppendVersion(ctx, assetID, 1, adjustVersion(1, 30))
	if err != nil {
		t.Fatalf("session A commit failed: %v", err)
	}

	// B commits against the stale tip and must be rejected with A's id.
	_, err = s.AppendVersion(ctx, assetID, 1, adjustVersion(1, -20))
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("err = %v, want ErrVersionConflict", err)
	}
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err %T does not carry ConflictError", err)
	}
	if conflict.CurrentTip != a.ID {
		t.Fatalf("conflict tip = %d, want %d", conflict.CurrentTip, a.ID)
	}

	// The rejected commit wrote nothing.
	tip, _ := s.Tip(ctx, assetID)
	if tip != a.ID {
		t.Fatalf("tip = %d after rejected commit, want %d", tip, a.ID)
	}

	// B re-bases against the new tip and retries successfully.
	if _, err := s.AppendVersion(ctx, assetID, a.ID, adjustVersion(a.ID, -20)); err != nil {
		t.Fatalf("rebased commit failed: %v", err)
	}
}

func TestBranchCommitAfterUndo(t *testing.T) {
	s := NewMemoryStore()
	assetID := newAssetWithRoot(t, s)
	ctx := context.Background()

	s.AppendVersion(ctx, assetID, 1, adjustVersion(1, 30)) // v2
	s.AppendVersion(ctx, assetID, 2, adjustVersion(2, 60)) // v3

	// Session undid to v2 but has seen v3 — branch commit succeeds.
	v4, err := s.AppendVersion(ctx, assetID, 3, adjustVersion(2, 90))
	if err != nil {
		t.Fatal(err)
	}
	if v4.ID != 4 || v4.ParentID != 2 {
		t.Fatalf("v4 = id %d parent %d, want id 4 parent 2", v4.ID, v4.ParentID)
	}

	// v3 remains in the tree.
	if _, err := s.GetVersion(ctx, assetID, 3); err != nil {
		t.Fatalf("discarded-branch version lost: %v", err)
	}
}

func TestAppendVersionRootRules(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	asset := &models.Asset{OriginalURL: "u", OwnerID: "o"}
	s.CreateAsset(ctx, asset)

	// First version must be an upload with no parent.
	if _, err := s.AppendVersion(ctx, asset.ID, 0, adjustVersion(0, 10)); !errors.Is(err, ErrVersionNotFound) {
		t.Fatalf("non-upload root: err = %v", err)
	}
	root := &models.Version{Stack: params.DefaultStack(), Action: models.ActionUpload}
	if _, err := s.AppendVersion(ctx, asset.ID, 0, root); err != nil {
		t.Fatal(err)
	}
	// A second root is rejected.
	second := &models.Version{Stack: params.DefaultStack(), Action: models.ActionUpload}
	if _, err := s.AppendVersion(ctx, asset.ID, 1, second); !errors.Is(err, ErrRootExists) {
		t.Fatalf("second root: err = %v", err)
	}
}

func TestAppendVersionUnknownParent(t *testing.T) {
	s := NewMemoryStore()
	assetID := newAssetWithRoot(t, s)

	_, err := s.AppendVersion(context.Background(), assetID, 1, adjustVersion(42, 10))
	if !errors.Is(err, ErrVersionNotFound) {
		t.Fatalf("err = %v, want ErrVersionNotFound", err)
	}
}

func TestVersionsAreImmutableCopies(t *testing.T) {
	s := NewMemoryStore()
	assetID := newAssetWithRoot(t, s)
	ctx := context.Background()

	v, err := s.GetVersion(ctx, assetID, 1)
	if err != nil {
		t.Fatal(err)
	}
	v.Stack.Adjustments.Exposure = 99
	v.Label = "tampered"

	again, _ := s.GetVersion(ctx, assetID, 1)
	if again.Stack.Adjustments.Exposure != 0 || again.Label != "Original" {
		t.Fatal("caller mutation leaked into the store")
	}
}

func TestAssignmentRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	assetID := newAssetWithRoot(t, s)
	ctx := context.Background()

	if _, err := s.GetAssignment(ctx, assetID); !errors.Is(err, ErrAssignmentNotFound) {
		t.Fatalf("err = %v, want ErrAssignmentNotFound", err)
	}

	a := &models.Assignment{AssetID: assetID, AssigneeID: "maya", Status: models.StatusPending}
	if err := s.PutAssignment(ctx, a); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetAssignment(ctx, assetID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.StatusPending || got.AssigneeID != "maya" {
		t.Fatalf("assignment = %+v", got)
	}
}

func TestCommentsOrderedByCreation(t *testing.T) {
	s := NewMemoryStore()
	assetID := newAssetWithRoot(t, s)
	ctx := context.Background()

	for _, content := range []string{"first", "second", "third"} {
		c := &models.Comment{AssetID: assetID, AuthorID: "maya", Content: content}
		if err := s.AppendComment(ctx, c); err != nil {
			t.Fatal(err)
		}
	}

	cs, err := s.ListComments(ctx, assetID)
	if err != nil {
		t.Fatal(err)
	}
	if len(cs) != 3 {
		t.Fatalf("got %d comments, want 3", len(cs))
	}
	for i, want := range []string{"first", "second", "third"} {
		if cs[i].Content != want {
			t.Errorf("comment[%d] = %q, want %q", i, cs[i].Content, want)
		}
	}
}
