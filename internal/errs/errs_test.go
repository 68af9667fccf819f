package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(KindValidation, "field %s is required", "email")
	if err.Kind != KindValidation {
		t.Errorf("expected validation kind, got %s", err.Kind)
	}
	if err.Error() != "validation: field email is required" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestWrapAndUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(KindInternal, cause, "saving order")

	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to be reachable via errors.Is")
	}
	if err.Error() != "internal: saving order: disk full" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(New(KindNotFound, "gone")); got != KindNotFound {
		t.Errorf("expected not_found, got %s", got)
	}
	if got := KindOf(errors.New("plain")); got != KindInternal {
		t.Errorf("expected internal for unkinded error, got %s", got)
	}
	// Kind survives wrapping by third parties.
	wrapped := fmt.Errorf("outer: %w", New(KindConflict, "busy"))
	if got := KindOf(wrapped); got != KindConflict {
		t.Errorf("expected conflict through wrapping, got %s", got)
	}
}

func TestIs(t *testing.T) {
	err := New(KindAuth, "bad signature")
	if !Is(err, KindAuth) {
		t.Error("expected Is to match the kind")
	}
	if Is(err, KindNotFound) {
		t.Error("expected Is to reject a different kind")
	}
	if Is(nil, KindAuth) {
		t.Error("expected Is(nil) to be false")
	}
}
