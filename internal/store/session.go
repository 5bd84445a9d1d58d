package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/greyfiles/loyalty/internal/model"
)

const sessionTTL = 30 * 24 * time.Hour

type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

func scanSession(scanner interface{ Scan(...any) error }) (*model.Session, error) {
	var s model.Session
	err := scanner.Scan(&s.ID, &s.Token, &s.PrincipalKind, &s.PrincipalID, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

const sessionCols = `id, token, principal_kind, principal_id, expires_at, created_at`

// Create generates a session with a crypto-random token for the given
// brand or customer principal.
func (s *SessionStore) Create(ctx context.Context, principalKind string, principalID int64) (*model.Session, error) {
	if principalKind != model.PrincipalBrand && principalKind != model.PrincipalCustomer {
		return nil, &ValidationError{Field: "principal_kind", Reason: "must be brand or customer"}
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, mapErr("generate token", err)
	}
	token := hex.EncodeToString(tokenBytes)
	expiresAt := time.Now().UTC().Add(sessionTTL)

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (token, principal_kind, principal_id, expires_at) VALUES (?, ?, ?, ?)`,
		token, principalKind, principalID, expiresAt,
	)
	if err != nil {
		return nil, mapErr("insert session", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, mapErr("last insert id", err)
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionCols+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err != nil {
		return nil, mapErr("get session", err)
	}
	return sess, nil
}

// GetByToken returns the session for the given token, or nil if expired
// or not found.
func (s *SessionStore) GetByToken(ctx context.Context, token string) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionCols+` FROM sessions WHERE token = ? AND expires_at > datetime('now')`,
		token,
	)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr("get session by token", err)
	}
	return sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return mapErr("delete session", err)
}

func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= datetime('now')`)
	if err != nil {
		return 0, mapErr("delete expired sessions", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, mapErr("rows affected", err)
	}
	return count, nil
}
