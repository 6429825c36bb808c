package errors

import (
	"errors"
	"fmt"
	"testing"
)

// =============================================================================
// Constructors
// =============================================================================

func TestConstructors(t *testing.T) {
	tests := []struct {
		name    string
		err     *Error
		kind    Kind
		message string
	}{
		{"NotFound", NotFound("pitch not found"), ErrNotFound, "pitch not found"},
		{"NotFoundf", NotFoundf("pitch %s not found", "abc"), ErrNotFound, "pitch abc not found"},
		{"Validation", Validation("score is required"), ErrValidation, "score is required"},
		{"Validationf", Validationf("field %s is required", "title"), ErrValidation, "field title is required"},
		{"Conflict", Conflict("ratings changed"), ErrConflict, "ratings changed"},
		{"Conflictf", Conflictf("category %q exists", "VFX"), ErrConflict, `category "VFX" exists`},
		{"InvalidInput", InvalidInput("bad id"), ErrInvalidInput, "bad id"},
		{"InvalidInputf", InvalidInputf("bad id %d", 7), ErrInvalidInput, "bad id 7"},
		{"Internalf", Internalf("broken %s", "pipe"), ErrInternal, "broken pipe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("expected kind %v, got %v", tt.kind, tt.err.Kind)
			}
			if tt.err.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, tt.err.Message)
			}
			if tt.err.Err != nil {
				t.Errorf("expected no underlying error, got %v", tt.err.Err)
			}
		})
	}
}

func TestInternal_WrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Internal(cause)

	if err.Kind != ErrInternal {
		t.Errorf("expected ErrInternal, got %v", err.Kind)
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if err.Error() != "internal error: disk full" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestTransient_IsRetryable(t *testing.T) {
	err := Transient(errors.New("database is locked"))

	if !IsRetryable(err) {
		t.Error("expected transient error to be retryable")
	}
	if IsRetryable(NotFound("x")) {
		t.Error("expected not-found error to not be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("expected plain error to not be retryable")
	}
}

func TestValidationFields(t *testing.T) {
	err := ValidationFields("invalid pitch", map[string]string{"title": "required"})

	if err.Kind != ErrValidation {
		t.Errorf("expected ErrValidation, got %v", err.Kind)
	}
	if err.Fields["title"] != "required" {
		t.Errorf("expected title field detail, got %v", err.Fields)
	}
}

func TestWithDetail(t *testing.T) {
	err := Conflict("stale").WithDetail(map[string]int{"count": 2})

	detail, ok := err.Detail.(map[string]int)
	if !ok || detail["count"] != 2 {
		t.Errorf("expected detail to be attached, got %v", err.Detail)
	}
}

// =============================================================================
// Kind inspection
// =============================================================================

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("service: %w", NotFound("gone"))

	if KindOf(wrapped) != ErrNotFound {
		t.Errorf("expected ErrNotFound through wrapping, got %v", KindOf(wrapped))
	}
	if KindOf(errors.New("plain")) != ErrInternal {
		t.Error("expected plain errors to be internal")
	}
	if !Is(wrapped, ErrNotFound) {
		t.Error("expected Is to match wrapped kind")
	}
}

func TestKind_String(t *testing.T) {
	tests := map[Kind]string{
		ErrInternal:     "internal",
		ErrNotFound:     "not_found",
		ErrValidation:   "validation",
		ErrConflict:     "conflict",
		ErrInvalidInput: "invalid_input",
		ErrTransient:    "transient",
	}
	for kind, want := range tests {
		if kind.String() != want {
			t.Errorf("Kind(%d).String() = %q, want %q", kind, kind.String(), want)
		}
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("timeout")
	err := Wrap(cause, ErrTransient, "append rating")

	if err.Kind != ErrTransient {
		t.Errorf("expected ErrTransient, got %v", err.Kind)
	}
	if errors.Unwrap(err) != cause {
		t.Error("expected Unwrap to return cause")
	}
}
