package entities

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrUnknownModel      = errors.New("unknown model")
	ErrUnknownRelation   = errors.New("unknown relationship")
	ErrInvalidRecord     = errors.New("invalid record")
	ErrDanglingReference = errors.New("dangling reference")
	ErrConflict          = errors.New("conflict")
	ErrInvalidSchema     = errors.New("invalid schema")
	ErrSchemaNotFound    = errors.New("schema not found")
	ErrKeyNotFound       = errors.New("api key not found")

	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrKeyExpired       = fmt.Errorf("api key expired: %w", ErrUnauthenticated)
	ErrKeyRevoked       = fmt.Errorf("api key revoked: %w", ErrUnauthenticated)
	ErrPermissionDenied = errors.New("permission denied")
)

// FieldIssue is one problem found while validating a record
type FieldIssue struct {
	Field   string
	Message string
}

// ValidationError carries every issue found in a record
type ValidationError struct {
	Model  string
	Issues []FieldIssue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", issue.Field, issue.Message))
	}
	return fmt.Sprintf("invalid %s: %s", e.Model, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRecord }

// Add appends an issue
func (e *ValidationError) Add(field, format string, args ...any) {
	e.Issues = append(e.Issues, FieldIssue{Field: field, Message: fmt.Sprintf(format, args...)})
}

// HasIssues reports whether any issue was recorded
func (e *ValidationError) HasIssues() bool {
	return len(e.Issues) > 0
}

// DependentsError is returned when deleting a record that other records still reference
type DependentsError struct {
	Model      string
	ID         string
	Dependents map[string]int // dependent model -> row count
}

func (e *DependentsError) Error() string {
	names := make([]string, 0, len(e.Dependents))
	for name := range e.Dependents {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%d %s", e.Dependents[name], name))
	}
	return fmt.Sprintf("cannot delete %s %s: referenced by %s", e.Model, e.ID, strings.Join(parts, ", "))
}

func (e *DependentsError) Unwrap() error { return ErrConflict }
