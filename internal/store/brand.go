package store

import (
	"context"
	"database/sql"

	"golang.org/x/crypto/bcrypt"

	"github.com/greyfiles/loyalty/internal/model"
)

type BrandStore struct {
	db *sql.DB
}

func NewBrandStore(db *sql.DB) *BrandStore {
	return &BrandStore{db: db}
}

func scanBrand(scanner interface{ Scan(...any) error }) (*model.Brand, error) {
	var b model.Brand
	err := scanner.Scan(&b.ID, &b.Name, &b.Address, &b.Username, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

const brandCols = `id, name, address, username, created_at`

// Register validates the sign-up fields, hashes the password, and inserts
// the brand. A username collision surfaces as ErrDuplicateUsername; no row
// is written on any failure.
func (s *BrandStore) Register(ctx context.Context, name, address, username, password string) (*model.Brand, error) {
	if err := required("name", name); err != nil {
		return nil, err
	}
	if err := required("username", username); err != nil {
		return nil, err
	}
	if err := required("password", password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, mapErr("hash password", err)
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO brands (name, address, username, password_hash) VALUES (?, ?, ?, ?)`,
		name, address, username, string(hash),
	)
	if isUniqueViolation(err, "brands.username") {
		return nil, ErrDuplicateUsername
	}
	if err != nil {
		return nil, mapErr("insert brand", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, mapErr("last insert id", err)
	}
	return s.GetByID(ctx, id)
}

func (s *BrandStore) GetByID(ctx context.Context, id int64) (*model.Brand, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+brandCols+` FROM brands WHERE id = ?`, id)
	b, err := scanBrand(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr("get brand", err)
	}
	return b, nil
}

func (s *BrandStore) GetByUsername(ctx context.Context, username string) (*model.Brand, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+brandCols+` FROM brands WHERE username = ?`, username)
	b, err := scanBrand(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr("get brand by username", err)
	}
	return b, nil
}

// VerifyPassword checks the given password against the stored hash.
// Returns the brand on success, nil when the username is unknown or the
// password does not match.
func (s *BrandStore) VerifyPassword(ctx context.Context, username, password string) (*model.Brand, error) {
	var hash string
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, password_hash FROM brands WHERE username = ?`, username,
	).Scan(&id, &hash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr("get brand credentials", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, nil
	}
	return s.GetByID(ctx, id)
}
