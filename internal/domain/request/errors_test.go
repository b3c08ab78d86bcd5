package request

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		wantKind Kind
		wantCode string
	}{
		{"not found", NotFound("req-1"), KindNotFound, "REQUEST_NOT_FOUND"},
		{"forbidden", Forbidden("accept", "user-2"), KindForbidden, "FORBIDDEN"},
		{"illegal accept", IllegalTransition("accept", "pending"), KindIllegalTransition, "CANNOT_ACCEPT"},
		{"illegal assign", IllegalTransition("assign", "completed"), KindIllegalTransition, "CANNOT_ASSIGN"},
		{"validation", Validation("title is required"), KindValidation, "VALIDATION_ERROR"},
		{"technician", TechnicianNotFound("tech-9"), KindTechnicianNotFound, "TECHNICIAN_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", tt.err.Kind, tt.wantKind)
			}
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.wantCode)
			}
		})
	}
}

func TestKindOf_WrappedError(t *testing.T) {
	wrapped := fmt.Errorf("transition failed: %w", IllegalTransition("start", "pending"))
	if got := KindOf(wrapped); got != KindIllegalTransition {
		t.Errorf("KindOf(wrapped) = %v, want illegal transition", got)
	}
	if got := CodeOf(wrapped); got != "CANNOT_START" {
		t.Errorf("CodeOf(wrapped) = %v, want CANNOT_START", got)
	}
}

func TestKindOf_ForeignError(t *testing.T) {
	if got := KindOf(errors.New("disk full")); got != KindUnknown {
		t.Errorf("KindOf(foreign) = %v, want unknown", got)
	}
	if got := CodeOf(errors.New("disk full")); got != "" {
		t.Errorf("CodeOf(foreign) = %q, want empty", got)
	}
}
