package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without wrapped error",
			err:  New(CodeValidation, "invalid input"),
			want: "VALIDATION_ERROR: invalid input",
		},
		{
			name: "with wrapped error",
			err:  Wrap(CodeInternal, "something failed", errors.New("underlying")),
			want: "INTERNAL_ERROR: something failed: underlying",
		},
		{
			name: "ground truth lookup",
			err:  GroundTruthNotFoundError("track-07"),
			want: "GROUND_TRUTH_NOT_FOUND: no ground truth for track track-07",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := Wrap(CodeInternal, "wrapped", underlying)

	if unwrapped := err.Unwrap(); unwrapped != underlying {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, underlying)
	}
}

func TestAppError_WithDetail(t *testing.T) {
	err := New(CodeValidation, "invalid").
		WithDetail("field", "name").
		WithDetail("reason", "required")

	if err.Details["field"] != "name" {
		t.Errorf("Details[field] = %s, want name", err.Details["field"])
	}

	if err.Details["reason"] != "required" {
		t.Errorf("Details[reason] = %s, want required", err.Details["reason"])
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("StructuralMismatchError", func(t *testing.T) {
		err := StructuralMismatchError("job-a", "fold sets differ")
		if err.Code != CodeStructuralMismatch {
			t.Errorf("Code = %s, want %s", err.Code, CodeStructuralMismatch)
		}
		if err.Details["job"] != "job-a" {
			t.Errorf("Details[job] = %s, want job-a", err.Details["job"])
		}
	})

	t.Run("InvalidGroundTruthError", func(t *testing.T) {
		err := InvalidGroundTruthError("t1", "zero length")
		if err.Code != CodeInvalidGroundTruth {
			t.Errorf("Code = %s, want %s", err.Code, CodeInvalidGroundTruth)
		}
		if err.Details["track"] != "t1" {
			t.Errorf("Details[track] = %s, want t1", err.Details["track"])
		}
	})

	t.Run("NotFoundError", func(t *testing.T) {
		err := NotFoundError("run")
		if err.Message != "run not found" {
			t.Errorf("Message = %s, want 'run not found'", err.Message)
		}
	})
}

func TestIsHelpers_WrappedChain(t *testing.T) {
	base := GroundTruthNotFoundError("t9")
	wrapped := fmt.Errorf("fold f1: %w", base)

	if !IsGroundTruthNotFound(wrapped) {
		t.Error("IsGroundTruthNotFound(wrapped) = false, want true")
	}
	if IsNotFound(wrapped) {
		t.Error("IsNotFound(wrapped ground truth error) = true, want false")
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Error("CodeOf(plain error) should be empty")
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), true},
		{"structural mismatch", StructuralMismatchError("j", "x"), true},
		{"missing ground truth", GroundTruthNotFoundError("t"), true},
		{"invalid ground truth", InvalidGroundTruthError("t", "x"), true},
		{"invalid result", InvalidResultError("t", "x"), false},
		{"wrapped invalid result", fmt.Errorf("ctx: %w", InvalidResultError("t", "x")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatal(tt.err); got != tt.want {
				t.Errorf("IsFatal() = %v, want %v", got, tt.want)
			}
		})
	}
}
