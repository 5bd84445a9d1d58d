package store

import (
	"context"
	"errors"
	"testing"
)

type fakeUniqueErr struct{}

func (fakeUniqueErr) Error() string {
	return "constraint failed: UNIQUE constraint failed: brands.username (2067)"
}

func TestIsUniqueViolationByMessage(t *testing.T) {
	err := fakeUniqueErr{}

	if !isUniqueViolation(err, "") {
		t.Error("expected match without column filter")
	}
	if !isUniqueViolation(err, "brands.username") {
		t.Error("expected match on named column")
	}
	if isUniqueViolation(err, "customers.username") {
		t.Error("unexpected match on unrelated column")
	}
	if isUniqueViolation(nil, "") {
		t.Error("nil error must not match")
	}
}

func TestMapErrContext(t *testing.T) {
	err := mapErr("op", context.DeadlineExceeded)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("deadline err = %v, want ErrTimeout", err)
	}

	err = mapErr("op", context.Canceled)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("canceled err = %v, want ErrTimeout", err)
	}

	if mapErr("op", nil) != nil {
		t.Error("nil must map to nil")
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := required("username", "   ")
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if vErr.Field != "username" {
		t.Errorf("field = %q, want username", vErr.Field)
	}

	if required("username", "jane") != nil {
		t.Error("non-empty value must pass")
	}
}
