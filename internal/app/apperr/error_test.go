package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestInternal_PassesTypedErrorsThrough(t *testing.T) {
	t.Parallel()

	orig := New(CodeNotFound, "plan not found")
	wrapped := fmt.Errorf("lookup: %w", orig)

	got := Internal(context.Background(), "test", wrapped)
	ae, ok := As(got)
	if !ok || ae != orig {
		t.Fatalf("got=%v (type=%T), want original *Error", got, got)
	}
}

func TestInternal_HidesUntypedErrors(t *testing.T) {
	t.Parallel()

	got := Internal(context.Background(), "test", errors.New("pg: connection refused"))
	ae, ok := As(got)
	if !ok || ae.Code != CodeInternal || ae.Message != InternalMessage {
		t.Fatalf("got=%v, want generic INTERNAL", got)
	}
	if Internal(context.Background(), "test", nil) != nil {
		t.Fatalf("nil must stay nil")
	}
}
