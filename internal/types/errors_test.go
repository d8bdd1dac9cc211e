package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError_IsAndAs(t *testing.T) {
	err := fmt.Errorf("extract: %w", Invalid("r1", "distance", "missing"))
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected errors.Is(err, ErrValidation)")
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError")
	}
	if ve.RecordID != "r1" || ve.Field != "distance" {
		t.Errorf("unexpected fields: %+v", ve)
	}
	if errors.Is(err, ErrNotFound) {
		t.Errorf("validation error must not match ErrNotFound")
	}
}

func TestNotFoundError_Message(t *testing.T) {
	err := NotFound("user", "U9")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected errors.Is(err, ErrNotFound)")
	}
	if got, want := err.Error(), "user U9 not found"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
