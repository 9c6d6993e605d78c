package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := Wrap(CodeReadFailure, "load cards", errors.New("disk gone"))

	if !errors.Is(err, ErrReadFailure) {
		t.Error("expected errors.Is to match ErrReadFailure")
	}
	if errors.Is(err, ErrWriteFailure) {
		t.Error("expected errors.Is not to match ErrWriteFailure")
	}
}

func TestError_WrappedChain(t *testing.T) {
	cause := errors.New("disk gone")
	err := fmt.Errorf("page 2: %w", Wrap(CodeReadFailure, "load cards", cause))

	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable through the chain")
	}
	if got := CodeOf(err); got != CodeReadFailure {
		t.Errorf("CodeOf() = %q, want %q", got, CodeReadFailure)
	}
	if got := err.Error(); got != "page 2: load cards: disk gone" {
		t.Errorf("Error() = %q", got)
	}
}

func TestCodeOf_PlainError(t *testing.T) {
	if got := CodeOf(errors.New("plain")); got != "" {
		t.Errorf("CodeOf() = %q, want empty", got)
	}
	if got := CodeOf(nil); got != "" {
		t.Errorf("CodeOf(nil) = %q, want empty", got)
	}
}
