package domain

import (
	"bytes"
	"encoding/json"
	"net/mail"
	"strings"
	"time"
)

// Nullable distinguishes an absent JSON field from an explicit null.
// Set is true whenever the field was present; Value is nil for null.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// UnmarshalJSON implements json.Unmarshaler
func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// SettingsPatch is a shallow merge into list settings
type SettingsPatch struct {
	HideCompleted *bool   `json:"hideCompleted"`
	Theme         *string `json:"theme"`
}

// Validate checks the patch
func (p *SettingsPatch) Validate() error {
	if p.Theme != nil {
		switch *p.Theme {
		case ThemeAuto, ThemeLight, ThemeDark:
		default:
			return NewError(ErrValidation, "Invalid theme: %s", *p.Theme)
		}
	}
	return nil
}

// SectionPatch updates title and collapsed state. Position changes go through reorder.
type SectionPatch struct {
	Title     *string `json:"title"`
	Collapsed *bool   `json:"collapsed"`
}

// ItemPatch lists the item fields a client may change
type ItemPatch struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	Completed   *bool              `json:"completed"`
	Priority    Nullable[Priority] `json:"priority"`
	DueDate     Nullable[string]   `json:"dueDate"`
	Position    *int               `json:"position"`
}

// Validate checks the patch
func (p *ItemPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return NewError(ErrValidation, "Title cannot be empty")
	}
	if p.Priority.Value != nil && !p.Priority.Value.Valid() {
		return NewError(ErrValidation, "Invalid priority: %s", *p.Priority.Value)
	}
	if p.DueDate.Value != nil && !validDate(*p.DueDate.Value) {
		return NewError(ErrValidation, "Invalid due date: %s", *p.DueDate.Value)
	}
	if p.Position != nil && *p.Position < 0 {
		return NewError(ErrValidation, "Position must not be negative")
	}
	return nil
}

// ChildPatch lists the child fields a client may change
type ChildPatch struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
	Position  *int    `json:"position"`
}

// Validate checks the patch
func (p *ChildPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return NewError(ErrValidation, "Title cannot be empty")
	}
	if p.Position != nil && *p.Position < 0 {
		return NewError(ErrValidation, "Position must not be negative")
	}
	return nil
}

// UserPatch is the admin-editable part of a user
type UserPatch struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Role  *Role   `json:"role"`
}

// Empty reports whether no field was provided
func (p *UserPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Role == nil
}

// Validate checks the patch
func (p *UserPatch) Validate() error {
	if p.Empty() {
		return NewError(ErrValidation, "No data provided")
	}
	if p.Email != nil && !ValidEmail(*p.Email) {
		return NewError(ErrValidation, "Invalid email format")
	}
	if p.Role != nil && !p.Role.Valid() {
		return NewError(ErrValidation, "Invalid role")
	}
	return nil
}

// ValidEmail accepts a bare address such as "a@b.example"
func ValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email && strings.Contains(email, "@")
}

func validDate(s string) bool {
	if _, err := time.Parse("2006-01-02", s); err == nil {
		return true
	}
	_, err := time.Parse(time.RFC3339, s)
	return err == nil
}
