package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"photoedit-backend/internal/models"
)

// PostgresStore implements Store on database/sql + lib/pq.
//
// Schema (migrations live with infra):
//
//	assets          (id uuid PK, original_url text, owner_id text, created_at timestamptz)
//	asset_versions  (asset_id uuid, id bigint, parent_id bigint, stack jsonb,
//	                 label text, action text, author_id text, thumbnail_ref text,
//	                 checkpoint text, created_at timestamptz,
//	                 PRIMARY KEY (asset_id, id))
//	assignments     (asset_id uuid PK, assignee_id text, status text, updated_at timestamptz)
//	comments        (id uuid PK, asset_id uuid, author_id text, content text,
//	                 mentions text[], version_id bigint, is_internal bool, created_at timestamptz)
type PostgresStore struct {
	DB *sql.DB
}

// NewPostgresStore wraps an open connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{DB: db}
}

func (s *PostgresStore) CreateAsset(ctx context.Context, asset *models.Asset) error {
	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}
	query := `
		INSERT INTO assets (id, original_url, owner_id)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	return s.DB.QueryRowContext(ctx, query, asset.ID, asset.OriginalURL, asset.OwnerID).
		Scan(&asset.CreatedAt)
}

func (s *PostgresStore) GetAsset(ctx context.Context, id uuid.UUID) (*models.Asset, error) {
	query := `
		SELECT id, original_url, owner_id, created_at
		FROM assets
		WHERE id = $1
	`
	a := &models.Asset{}
	err := s.DB.QueryRowContext(ctx, query, id).
		Scan(&a.ID, &a.OriginalURL, &a.OwnerID, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAssetNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// AppendVersion runs the commit arbitration inside one transaction: lock
// the asset row, read the tip, reject stale commits, insert tip+1. A
// rejected commit writes nothing.
func (s *PostgresStore) AppendVersion(ctx context.Context, assetID uuid.UUID, lastKnownTip int64, v *models.Version) (*models.Version, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Serializes concurrent commits for this asset.
	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT true FROM assets WHERE id = $1 FOR UPDATE`, assetID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAssetNotFound
	}
	if err != nil {
		return nil, err
	}

	var tip int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(id), 0) FROM asset_versions WHERE asset_id = $1`, assetID).Scan(&tip)
	if err != nil {
		return nil, err
	}

	if tip == 0 {
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
		var parentExists bool
		err = tx.QueryRowContext(ctx,
			`SELECT true FROM asset_versions WHERE asset_id = $1 AND id = $2`,
			assetID, v.ParentID).Scan(&parentExists)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVersionNotFound
		}
		if err != nil {
			return nil, err
		}
	}

	stackJSON, err := json.Marshal(v.Stack)
	if err != nil {
		return nil, fmt.Errorf("marshal stack: %w", err)
	}

	out := *v
	out.AssetID = assetID
	out.ID = tip + 1

	query := `
		INSERT INTO asset_versions
			(asset_id, id, parent_id, stack, label, action, author_id, thumbnail_ref, checkpoint)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`
	err = tx.QueryRowContext(ctx, query,
		assetID, out.ID, out.ParentID, stackJSON,
		out.Label, out.Action, out.AuthorID, out.ThumbnailRef, out.Checkpoint,
	).Scan(&out.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &out, nil
}

const versionColumns = `
	asset_id, id, parent_id, stack, label, action, author_id, thumbnail_ref, checkpoint, created_at
`

func scanVersion(row interface{ Scan(...any) error }) (*models.Version, error) {
	v := &models.Version{}
	var stackJSON []byte
	err := row.Scan(
		&v.AssetID, &v.ID, &v.ParentID, &stackJSON,
		&v.Label, &v.Action, &v.AuthorID, &v.ThumbnailRef, &v.Checkpoint, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(stackJSON) > 0 {
		if err := json.Unmarshal(stackJSON, &v.Stack); err != nil {
			return nil, fmt.Errorf("unmarshal stack: %w", err)
		}
	}
	return v, nil
}

func (s *PostgresStore) GetVersion(ctx context.Context, assetID uuid.UUID, versionID int64) (*models.Version, error) {
	query := `SELECT ` + versionColumns + `
		FROM asset_versions
		WHERE asset_id = $1 AND id = $2
	`
	v, err := scanVersion(s.DB.QueryRowContext(ctx, query, assetID, versionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVersionNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *PostgresStore) ListVersions(ctx context.Context, assetID uuid.UUID) ([]*models.Version, error) {
	if _, err := s.GetAsset(ctx, assetID); err != nil {
		return nil, err
	}
	query := `SELECT ` + versionColumns + `
		FROM asset_versions
		WHERE asset_id = $1
		ORDER BY id ASC
	`
	rows, err := s.DB.QueryContext(ctx, query, assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Tip(ctx context.Context, assetID uuid.UUID) (int64, error) {
	if _, err := s.GetAsset(ctx, assetID); err != nil {
		return 0, err
	}
	var tip int64
	err := s.DB.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(id), 0) FROM asset_versions WHERE asset_id = $1`, assetID).Scan(&tip)
	return tip, err
}

func (s *PostgresStore) GetAssignment(ctx context.Context, assetID uuid.UUID) (*models.Assignment, error) {
	query := `
		SELECT asset_id, assignee_id, status, updated_at
		FROM assignments
		WHERE asset_id = $1
	`
	a := &models.Assignment{}
	err := s.DB.QueryRowContext(ctx, query, assetID).
		Scan(&a.AssetID, &a.AssigneeID, &a.Status, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAssignmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *PostgresStore) PutAssignment(ctx context.Context, a *models.Assignment) error {
	query := `
		INSERT INTO assignments (asset_id, assignee_id, status, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (asset_id) DO UPDATE
		SET assignee_id = EXCLUDED.assignee_id,
		    status      = EXCLUDED.status,
		    updated_at  = NOW()
		RETURNING updated_at
	`
	return s.DB.QueryRowContext(ctx, query, a.AssetID, a.AssigneeID, a.Status).
		Scan(&a.UpdatedAt)
}

func (s *PostgresStore) AppendComment(ctx context.Context, c *models.Comment) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	query := `
		INSERT INTO comments (id, asset_id, author_id, content, mentions, version_id, is_internal)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	return s.DB.QueryRowContext(ctx, query,
		c.ID, c.AssetID, c.AuthorID, c.Content,
		pq.Array(c.Mentions), c.VersionID, c.IsInternal,
	).Scan(&c.CreatedAt)
}

func (s *PostgresStore) ListComments(ctx context.Context, assetID uuid.UUID) ([]*models.Comment, error) {
	query := `
		SELECT id, asset_id, author_id, content, mentions, version_id, is_internal, created_at
		FROM comments
		WHERE asset_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.DB.QueryContext(ctx, query, assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Comment
	for rows.Next() {
		c := &models.Comment{}
		var mentions pq.StringArray
		err := rows.Scan(
			&c.ID, &c.AssetID, &c.AuthorID, &c.Content,
			&mentions, &c.VersionID, &c.IsInternal, &c.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		c.Mentions = []string(mentions)
		out = append(out, c)
	}
	return out, rows.Err()
}
