package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Sentinel errors returned by store operations. Raw driver errors never
// cross the store boundary; everything is mapped to one of these or to a
// ValidationError.
var (
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrProgramExists      = errors.New("brand already owns a loyalty program")
	ErrUnknownRule        = errors.New("no rule matches the program, version and code")
	ErrRuleInUse          = errors.New("rule is referenced by recorded instances")
	ErrInsufficientPoints = errors.New("wallet balance below redemption cost")
	ErrNotEnrolled        = errors.New("wallet is not enrolled in the program")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrTimeout            = errors.New("store operation timed out")
	ErrConstraint         = errors.New("store constraint violated")
)

// ValidationError reports malformed input rejected before any store
// mutation is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Reason: "must not be empty"}
	}
	return nil
}

// mapErr translates driver and context errors into the store taxonomy.
// sql.ErrNoRows is left alone; callers handle it per query.
func mapErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	}

	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED:
			return fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
		case sqlite3lib.SQLITE_CANTOPEN, sqlite3lib.SQLITE_IOERR:
			return fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
		}
		if sqliteErr.Code()&0xff == sqlite3lib.SQLITE_CONSTRAINT {
			return fmt.Errorf("%s: %w", op, ErrConstraint)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isUniqueViolation reports whether err is a SQLite unique or primary key
// constraint failure, optionally on the named column.
func isUniqueViolation(err error, column string) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			if column == "" {
				return true
			}
			return strings.Contains(sqliteErr.Error(), column)
		}
	}
	message := strings.ToLower(err.Error())
	if !strings.Contains(message, "unique constraint failed") {
		return false
	}
	return column == "" || strings.Contains(message, column)
}

// isBusy reports whether err is a transient lock conflict worth retrying.
func isBusy(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED:
			return true
		}
	}
	return false
}
