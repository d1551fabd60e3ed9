package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"photoedit-backend/internal/models"
)

// MemoryStore implements Store with in-memory maps. It backs
// single-process deployments and tests; the Postgres store is the
// production path.
type MemoryStore struct {
	mu          sync.RWMutex
	assets      map[uuid.UUID]*models.Asset
	versions    map[uuid.UUID][]*models.Version // creation order per asset
	assignments map[uuid.UUID]*models.Assignment
	comments    map[uuid.UUID][]*models.Comment
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assets:      make(map[uuid.UUID]*models.Asset),
		versions:    make(map[uuid.UUID][]*models.Version),
		assignments: make(map[uuid.UUID]*models.Assignment),
		comments:    make(map[uuid.UUID][]*models.Comment),
	}
}

func (s *MemoryStore) CreateAsset(ctx context.Context, asset *models.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now().UTC()
	}
	cp := *asset
	s.assets[asset.ID] = &cp
	return nil
}

func (s *MemoryStore) GetAsset(ctx context.Context, id uuid.UUID) (*models.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assets[id]
	if !ok {
		return nil, ErrAssetNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) AppendVersion(ctx context.Context, assetID uuid.UUID, lastKnownTip int64, v *models.Version) (*models.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assets[assetID]; !ok {
		return nil, ErrAssetNotFound
	}

	vs := s.versions[assetID]
	var tip int64
	if n := len(vs); n > 0 {
		tip = vs[n-1].ID
	}

	if len(vs) == 0 {
		// Root bootstrap: the upload version has no parent and no tip
		// to race against.
		if v.ParentID != 0 || v.Action != models.ActionUpload {
			return nil, ErrVersionNotFound
		}
	} else {
		if v.ParentID == 0 {
			return nil, ErrRootExists
		}
		if tip != lastKnownTip {
			return nil, &ConflictError{CurrentTip: tip}
		}
		if s.findVersionLocked(assetID, v.ParentID) == nil {
			return nil, ErrVersionNotFound
		}
	}

	cp := *v
	cp.AssetID = assetID
	cp.ID = tip + 1
	cp.Stack = v.Stack.Clone()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.versions[assetID] = append(vs, &cp)

	out := cp
	return &out, nil
}

func (s *MemoryStore) findVersionLocked(assetID uuid.UUID, versionID int64) *models.Version {
	for _, v := range s.versions[assetID] {
		if v.ID == versionID {
			return v
		}
	}
	return nil
}

func (s *MemoryStore) GetVersion(ctx context.Context, assetID uuid.UUID, versionID int64) (*models.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := s.findVersionLocked(assetID, versionID)
	if v == nil {
		return nil, ErrVersionNotFound
	}
	cp := *v
	cp.Stack = v.Stack.Clone()
	return &cp, nil
}

func (s *MemoryStore) ListVersions(ctx context.Context, assetID uuid.UUID) ([]*models.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.assets[assetID]; !ok {
		return nil, ErrAssetNotFound
	}
	vs := s.versions[assetID]
	out := make([]*models.Version, 0, len(vs))
	for _, v := range vs {
		cp := *v
		cp.Stack = v.Stack.Clone()
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) Tip(ctx context.Context, assetID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.assets[assetID]; !ok {
		return 0, ErrAssetNotFound
	}
	vs := s.versions[assetID]
	if len(vs) == 0 {
		return 0, nil
	}
	return vs[len(vs)-1].ID, nil
}

func (s *MemoryStore) GetAssignment(ctx context.Context, assetID uuid.UUID) (*models.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assignments[assetID]
	if !ok {
		return nil, ErrAssignmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) PutAssignment(ctx context.Context, a *models.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = time.Now().UTC()
	}
	cp := *a
	s.assignments[a.AssetID] = &cp
	return nil
}

func (s *MemoryStore) AppendComment(ctx context.Context, c *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	cp := *c
	cp.Mentions = append([]string(nil), c.Mentions...)
	s.comments[c.AssetID] = append(s.comments[c.AssetID], &cp)
	return nil
}

func (s *MemoryStore) ListComments(ctx context.Context, assetID uuid.UUID) ([]*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cs := s.comments[assetID]
	out := make([]*models.Comment, 0, len(cs))
	for _, c := range cs {
		cp := *c
		cp.Mentions = append([]string(nil), c.Mentions...)
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
