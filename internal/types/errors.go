// README: Error kinds surfaced by the scoring core.
package types

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("data validation")
	ErrNotFound            = errors.New("not found")
	ErrProviderUnavailable = errors.New("distance provider unavailable")
)

// ValidationError reports a missing or malformed field on a specific record.
type ValidationError struct {
	RecordID string
	Field    string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.RecordID == "" {
		return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("record %s: invalid field %q: %s", e.RecordID, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports an unknown user or ride id.
type NotFoundError struct {
	Kind string
	ID   ID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, string(e.ID))
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func Invalid(recordID, field, reason string) error {
	return &ValidationError{RecordID: recordID, Field: field, Reason: reason}
}

func NotFound(kind string, id ID) error {
	return &NotFoundError{Kind: kind, ID: id}
}
