package validation

import (
	"errors"
	"strings"

	"photoedit-backend/internal/models"
)

const (
	MaxLabelLength   = 255
	MaxCommentLength = 4000
	MaxURLLength     = 2048
)

var (
	ErrMissingUserID   = errors.New("X-User-ID header is required")
	ErrLabelTooLong    = errors.New("label too long - maximum 255 characters")
	ErrInvalidAction   = errors.New("action must be one of upload, adjust, filter, crop, mask, remix")
	ErrEmptyComment    = errors.New("comment content is required")
	ErrCommentTooLong  = errors.New("comment too long - maximum 4000 characters")
	ErrMissingURL      = errors.New("original_url is required")
	ErrURLTooLong      = errors.New("original_url too long - maximum 2048 characters")
	ErrUnknownStatus   = errors.New("status must be one of pending, in-progress, ready, approved, revision-needed")
	ErrMissingAssignee = errors.New("assignee_id is required")
)

func ValidateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrMissingUserID
	}
	return nil
}

func ValidateLabel(label string) error {
	if len(label) > MaxLabelLength {
		return ErrLabelTooLong
	}
	return nil
}

func ValidateAction(action models.Action) error {
	if !models.ValidAction(action) {
		return ErrInvalidAction
	}
	return nil
}

func ValidateComment(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyComment
	}
	if len(content) > MaxCommentLength {
		return ErrCommentTooLong
	}
	return nil
}

func ValidateOriginalURL(url string) error {
	if strings.TrimSpace(url) == "" {
		return ErrMissingURL
	}
	if len(url) > MaxURLLength {
		return ErrURLTooLong
	}
	return nil
}

func ValidateStatus(status models.AssignmentStatus) error {
	switch status {
	case models.StatusPending, models.StatusInProgress, models.StatusReady,
		models.StatusApproved, models.StatusRevisionNeeded:
		return nil
	}
	return ErrUnknownStatus
}

func ValidateAssignee(assigneeID string) error {
	if strings.TrimSpace(assigneeID) == "" {
		return ErrMissingAssignee
	}
	return nil
}
