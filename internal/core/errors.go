package core

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("record not found")

// ValidationError carries every rule a draft failed, one "- " line each.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed:\n" + strings.Join(e.Messages, "\n")
}

// UnknownCategoryError is returned for labels outside the category set.
type UnknownCategoryError struct {
	Label string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown category %q", e.Label)
}

// FilterError reports an inconsistent read filter.
type FilterError struct {
	Field  string
	Reason string
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("invalid filter %s: %s", e.Field, e.Reason)
}

// StoreError wraps a failure reported by the persistence layer.
type StoreError struct {
	Op    string
	Table string
	Err   error
}

func (e *StoreError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// DuplicateRegistrationError means sales were already registered for the
// date and entity.
type DuplicateRegistrationError struct {
	Date   Date
	Entity Entity
}

func (e *DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("sales for %s already registered for this date (%s)", e.Entity, e.Date)
}
