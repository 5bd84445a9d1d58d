package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/greyfiles/loyalty/internal/database"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRegisterBrand(t *testing.T) {
	bs := NewBrandStore(setupTestDB(t))
	ctx := context.Background()

	brand, err := bs.Register(ctx, "Acme", "1 Main St", "acme", "secret")
	if err != nil {
		t.Fatalf("register brand: %v", err)
	}
	if brand.ID == 0 {
		t.Error("expected non-zero id")
	}
	if brand.Name != "Acme" {
		t.Errorf("name = %q, want %q", brand.Name, "Acme")
	}

	got, err := bs.GetByUsername(ctx, "acme")
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if got == nil || got.ID != brand.ID {
		t.Fatalf("get by username = %+v, want id %d", got, brand.ID)
	}
}

func TestRegisterBrandDuplicateUsername(t *testing.T) {
	db := setupTestDB(t)
	bs := NewBrandStore(db)
	ctx := context.Background()

	if _, err := bs.Register(ctx, "Acme", "", "acme", "secret"); err != nil {
		t.Fatalf("register first brand: %v", err)
	}

	_, err := bs.Register(ctx, "Other", "", "acme", "hunter2")
	if !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("err = %v, want ErrDuplicateUsername", err)
	}

	// Exactly one row survives.
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM brands`).Scan(&count); err != nil {
		t.Fatalf("count brands: %v", err)
	}
	if count != 1 {
		t.Errorf("brand count = %d, want 1", count)
	}
}

func TestRegisterBrandValidation(t *testing.T) {
	bs := NewBrandStore(setupTestDB(t))
	ctx := context.Background()

	cases := []struct {
		name, brand, username, password string
	}{
		{"empty name", "", "acme", "secret"},
		{"empty username", "Acme", "", "secret"},
		{"empty password", "Acme", "acme", ""},
		{"blank name", "   ", "acme", "secret"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := bs.Register(ctx, tc.brand, "", tc.username, tc.password)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
		})
	}
}

func TestBrandPasswordStoredHashed(t *testing.T) {
	db := setupTestDB(t)
	bs := NewBrandStore(db)
	ctx := context.Background()

	if _, err := bs.Register(ctx, "Acme", "", "acme", "secret"); err != nil {
		t.Fatalf("register brand: %v", err)
	}

	var hash string
	if err := db.QueryRow(`SELECT password_hash FROM brands WHERE username = 'acme'`).Scan(&hash); err != nil {
		t.Fatalf("read hash: %v", err)
	}
	if hash == "secret" || hash == "" {
		t.Errorf("password stored as %q, want a hash", hash)
	}
}

func TestBrandVerifyPassword(t *testing.T) {
	bs := NewBrandStore(setupTestDB(t))
	ctx := context.Background()

	registered, err := bs.Register(ctx, "Acme", "", "acme", "secret")
	if err != nil {
		t.Fatalf("register brand: %v", err)
	}

	brand, err := bs.VerifyPassword(ctx, "acme", "secret")
	if err != nil {
		t.Fatalf("verify password: %v", err)
	}
	if brand == nil || brand.ID != registered.ID {
		t.Fatalf("verify = %+v, want id %d", brand, registered.ID)
	}

	brand, err = bs.VerifyPassword(ctx, "acme", "wrong")
	if err != nil {
		t.Fatalf("verify wrong password: %v", err)
	}
	if brand != nil {
		t.Error("expected nil for wrong password")
	}

	brand, err = bs.VerifyPassword(ctx, "nobody", "secret")
	if err != nil {
		t.Fatalf("verify unknown username: %v", err)
	}
	if brand != nil {
		t.Error("expected nil for unknown username")
	}
}
