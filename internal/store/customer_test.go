package store

import (
	"context"
	"errors"
	"testing"
)

func TestRegisterCustomer(t *testing.T) {
	cs := NewCustomerStore(setupTestDB(t))
	ctx := context.Background()

	customer, err := cs.Register(ctx, "Jane", "555-0100", "2 Side St", "jane", "secret")
	if err != nil {
		t.Fatalf("register customer: %v", err)
	}
	if customer.ID == 0 {
		t.Error("expected non-zero id")
	}
	if customer.Phone != "555-0100" {
		t.Errorf("phone = %q, want %q", customer.Phone, "555-0100")
	}

	got, err := cs.GetByID(ctx, customer.ID)
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if got == nil || got.Username != "jane" {
		t.Fatalf("get customer = %+v, want username jane", got)
	}
}

func TestRegisterCustomerDuplicateUsername(t *testing.T) {
	db := setupTestDB(t)
	cs := NewCustomerStore(db)
	ctx := context.Background()

	if _, err := cs.Register(ctx, "Jane", "", "", "jane", "secret"); err != nil {
		t.Fatalf("register first customer: %v", err)
	}

	_, err := cs.Register(ctx, "Janet", "", "", "jane", "other")
	if !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("err = %v, want ErrDuplicateUsername", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM customers`).Scan(&count); err != nil {
		t.Fatalf("count customers: %v", err)
	}
	if count != 1 {
		t.Errorf("customer count = %d, want 1", count)
	}
}

func TestRegisterCustomerValidation(t *testing.T) {
	cs := NewCustomerStore(setupTestDB(t))
	ctx := context.Background()

	_, err := cs.Register(ctx, "", "", "", "jane", "secret")
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}

	_, err = cs.Register(ctx, "Jane", "", "", "jane", "")
	if !errors.As(err, &vErr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestCustomerVerifyPassword(t *testing.T) {
	cs := NewCustomerStore(setupTestDB(t))
	ctx := context.Background()

	registered, err := cs.Register(ctx, "Jane", "", "", "jane", "secret")
	if err != nil {
		t.Fatalf("register customer: %v", err)
	}

	customer, err := cs.VerifyPassword(ctx, "jane", "secret")
	if err != nil {
		t.Fatalf("verify password: %v", err)
	}
	if customer == nil || customer.ID != registered.ID {
		t.Fatalf("verify = %+v, want id %d", customer, registered.ID)
	}

	customer, err = cs.VerifyPassword(ctx, "jane", "wrong")
	if err != nil {
		t.Fatalf("verify wrong password: %v", err)
	}
	if customer != nil {
		t.Error("expected nil for wrong password")
	}
}
