// Package comments implements the append-only note thread on an asset.
// Comments can pin to a specific version for context and carry @mentions
// extracted from their content. Notification dispatch is someone else's
// job — this package only records who was mentioned.
package comments

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"photoedit-backend/internal/models"
	"photoedit-backend/internal/store"
)

var ErrEmptyContent = errors.New("comments: content is empty")

// Handles are word characters, dots and dashes after an @.
var mentionPattern = regexp.MustCompile(`@([\w.-]+)`)

// ExtractMentions returns the deduplicated set of handles mentioned in
// content, in first-appearance order.
func ExtractMentions(content string) []string {
	matches := mentionPattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		handle := strings.TrimRight(m[1], ".-")
		if handle == "" || seen[handle] {
			continue
		}
		seen[handle] = true
		out = append(out, handle)
	}
	return out
}

// Thread reads and appends the comment list for assets.
type Thread struct {
	Store store.CommentStore
}

// NewThread wraps a comment store.
func NewThread(s store.CommentStore) *Thread {
	return &Thread{Store: s}
}

// Add appends a comment to the asset's thread. Mentions are extracted
// from the content; callers never supply them directly.
func (t *Thread) Add(ctx context.Context, assetID uuid.UUID, authorID, content string, versionID *int64, internal bool) (*models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	c := &models.Comment{
		AssetID:    assetID,
		AuthorID:   authorID,
		Content:    content,
		Mentions:   ExtractMentions(content),
		VersionID:  versionID,
		IsInternal: internal,
	}
	if err := t.Store.AppendComment(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// List returns the thread in createdAt ascending order.
func (t *Thread) List(ctx context.Context, assetID uuid.UUID) ([]*models.Comment, error) {
	return t.Store.ListComments(ctx, assetID)
}
