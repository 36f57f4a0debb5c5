package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common tag validation errors
var (
	ErrEmptyTagID      = errors.New("tag ID cannot be empty")
	ErrEmptyTagOwner   = errors.New("tag owner cannot be empty")
	ErrEmptyTagName    = errors.New("tag name cannot be empty")
	ErrTagNameTooLong  = errors.New("tag name must be at most 50 characters")
	ErrInvalidTagColor = errors.New("tag color must be a hex color like #RRGGBB")
)

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Tag is a user-owned label attached to tasks. Name is unique per owner among
// non-deleted tags (enforced by a partial unique index in the store).
// UsageCount is computed at read time as the number of non-deleted tasks
// referencing the tag; it is never persisted.
type Tag struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	Description string    `json:"description"`

	UsageCount int `json:"usage_count"`

	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTag creates a tag owned by the given user.
// Returns an error if validation fails.
func NewTag(userID uuid.UUID, name, color, description string) (*Tag, error) {
	if color == "" {
		color = "#808080"
	}
	now := time.Now().UTC()
	tag := &Tag{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        strings.TrimSpace(name),
		Color:       color,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := tag.Validate(); err != nil {
		return nil, err
	}

	return tag, nil
}

// Validate checks if the Tag has valid data.
func (t *Tag) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTagID
	}
	if t.UserID == uuid.Nil {
		return ErrEmptyTagOwner
	}
	if t.Name == "" {
		return ErrEmptyTagName
	}
	if len(t.Name) > 50 {
		return ErrTagNameTooLong
	}
	if !hexColorPattern.MatchString(t.Color) {
		return ErrInvalidTagColor
	}
	return nil
}

// IsDeleted reports whether the tag has been soft-deleted.
func (t *Tag) IsDeleted() bool {
	return t.DeletedAt != nil
}
