package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound: the comment or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden: the caller may not act on the entity.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict: a non-idempotent create hit an existing row.
	ErrConflict = errors.New("conflict")
	// ErrBadCredentials: unknown username or wrong password.
	ErrBadCredentials = errors.New("invalid username or password")
	// ErrInternal: store or context failure.
	ErrInternal = errors.New("internal")
)

// ValidationError rejects one input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Fields renders the error the way form handlers consume it.
func (e *ValidationError) Fields() map[string]string {
	return map[string]string{e.Field: e.Reason}
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// DuplicateScope names the guard that matched.
type DuplicateScope string

const (
	ScopeAuthor DuplicateScope = "author"
	ScopeThread DuplicateScope = "thread"
	ScopeReply  DuplicateScope = "reply"
	// ScopeParent: the author already replied to this parent.
	ScopeParent DuplicateScope = "parent"
)

// DuplicateError points at the comment that already holds the content.
type DuplicateError struct {
	Scope      DuplicateScope
	ExistingID uint
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate %s content, see comment %d", e.Scope, e.ExistingID)
}
