package util

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIdentifierError(t *testing.T) {
	err := NewIdentifierError("openflow:1", 2, 3)

	msg := err.Error()
	if !strings.Contains(msg, "openflow:1") {
		t.Errorf("Error message should contain identifier: %s", msg)
	}
	if !strings.Contains(msg, "2 segments, want 3") {
		t.Errorf("Error message should contain segment counts: %s", msg)
	}
	if !errors.Is(err, ErrInvalidIdentifier) {
		t.Errorf("IdentifierError should unwrap to ErrInvalidIdentifier")
	}

	wrapped := fmt.Errorf("building flow: %w", err)
	var idErr *IdentifierError
	if !errors.As(wrapped, &idErr) {
		t.Fatal("errors.As should find IdentifierError through wrapping")
	}
	if idErr.ID != "openflow:1" {
		t.Errorf("ID = %q, want %q", idErr.ID, "openflow:1")
	}
}

func TestModificationKindError(t *testing.T) {
	tests := []struct {
		name string
		kind string
		path string
		want string
	}{
		{"with path", "rename", "TOPOLOGY|flow:1|NODE|openflow:1", `unhandled modification kind "rename" at TOPOLOGY|flow:1|NODE|openflow:1`},
		{"without path", "rename", "", `unhandled modification kind "rename"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModificationKindError(tt.kind, tt.path)
			if got := err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			if !errors.Is(err, ErrUnhandledModification) {
				t.Errorf("ModificationKindError should unwrap to ErrUnhandledModification")
			}
			if errors.Is(err, ErrInvalidIdentifier) {
				t.Errorf("ModificationKindError should not match ErrInvalidIdentifier")
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := NewValidationError("field is required")
		msg := err.Error()
		if !strings.Contains(msg, "field is required") {
			t.Errorf("Error message should contain the error: %s", msg)
		}
		if !errors.Is(err, ErrValidationFailed) {
			t.Errorf("ValidationError should unwrap to ErrValidationFailed")
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		err := NewValidationError("redis.addr is required", "topology_id is required")
		msg := err.Error()
		if !strings.Contains(msg, "redis.addr is required") || !strings.Contains(msg, "topology_id is required") {
			t.Errorf("Error message should list every failure: %s", msg)
		}
	})
}

func TestValidationBuilder(t *testing.T) {
	var v ValidationBuilder
	if v.Build() != nil {
		t.Error("empty builder should build nil")
	}

	v.Add(true, "not added").Add(false, "added").AddErrorf("port %d out of range", 70000)
	if !v.HasErrors() {
		t.Fatal("HasErrors() = false, want true")
	}

	err := v.Build()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Build() = %T, want *ValidationError", err)
	}
	if len(ve.Errors) != 2 {
		t.Errorf("Errors = %v, want 2 entries", ve.Errors)
	}
	if ve.Errors[1] != "port 70000 out of range" {
		t.Errorf("Errors[1] = %q", ve.Errors[1])
	}
}
