package store

import (
	"context"
	"database/sql"

	"golang.org/x/crypto/bcrypt"

	"github.com/greyfiles/loyalty/internal/model"
)

type CustomerStore struct {
	db *sql.DB
}

func NewCustomerStore(db *sql.DB) *CustomerStore {
	return &CustomerStore{db: db}
}

func scanCustomer(scanner interface{ Scan(...any) error }) (*model.Customer, error) {
	var c model.Customer
	err := scanner.Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &c.Username, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const customerCols = `id, name, phone, address, username, created_at`

// Register validates the sign-up fields, hashes the password, and inserts
// the customer. Mirrors BrandStore.Register.
func (s *CustomerStore) Register(ctx context.Context, name, phone, address, username, password string) (*model.Customer, error) {
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
		`INSERT INTO customers (name, phone, address, username, password_hash) VALUES (?, ?, ?, ?, ?)`,
		name, phone, address, username, string(hash),
	)
	if isUniqueViolation(err, "customers.username") {
		return nil, ErrDuplicateUsername
	}
	if err != nil {
		return nil, mapErr("insert customer", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, mapErr("last insert id", err)
	}
	return s.GetByID(ctx, id)
}

func (s *CustomerStore) GetByID(ctx context.Context, id int64) (*model.Customer, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+customerCols+` FROM customers WHERE id = ?`, id)
	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr("get customer", err)
	}
	return c, nil
}

func (s *CustomerStore) GetByUsername(ctx context.Context, username string) (*model.Customer, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+customerCols+` FROM customers WHERE username = ?`, username)
	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr("get customer by username", err)
	}
	return c, nil
}

// VerifyPassword checks the given password against the stored hash.
func (s *CustomerStore) VerifyPassword(ctx context.Context, username, password string) (*model.Customer, error) {
	var hash string
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, password_hash FROM customers WHERE username = ?`, username,
	).Scan(&id, &hash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr("get customer credentials", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, nil
	}
	return s.GetByID(ctx, id)
}
