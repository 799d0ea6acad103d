package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyDataset is returned when a stage has no usable input at all
var ErrEmptyDataset = errors.New("dataset is empty")

// ValidationError represents a data validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// IsTransient returns false as not found errors are permanent
func (e *NotFoundError) IsTransient() bool {
	return false
}

// SchemaMismatchError is returned when an artifact's feature schema cannot
// be satisfied at inference time
type SchemaMismatchError struct {
	Missing []string
	Unknown []string
	Reason  string
}

func (e *SchemaMismatchError) Error() string {
	parts := []string{"feature schema mismatch"}
	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}
	if len(e.Missing) > 0 {
		parts = append(parts, "missing: "+strings.Join(e.Missing, ","))
	}
	if len(e.Unknown) > 0 {
		parts = append(parts, "unknown: "+strings.Join(e.Unknown, ","))
	}
	return strings.Join(parts, "; ")
}

// IsTransient returns false, retrying with the same artifact cannot succeed
func (e *SchemaMismatchError) IsTransient() bool {
	return false
}

// InsufficientDataError is returned when a stage has fewer rows than it needs
type InsufficientDataError struct {
	Stage string
	Have  int
	Need  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: insufficient data: have %d rows, need at least %d", e.Stage, e.Have, e.Need)
}

// IsTransient returns false as the input itself is too small
func (e *InsufficientDataError) IsTransient() bool {
	return false
}

// IsSchemaMismatch reports whether err wraps a SchemaMismatchError
func IsSchemaMismatch(err error) bool {
	var sm *SchemaMismatchError
	return errors.As(err, &sm)
}

// IsNotFound reports whether err wraps a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err wraps a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
