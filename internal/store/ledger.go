package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/greyfiles/loyalty/internal/model"
)

// LedgerStore tracks wallet enrollment and point balances. Every mutation
// that touches a balance also appends its event row in the same
// transaction, so the event log and the balances can never disagree.
type LedgerStore struct {
	db *sql.DB
}

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

const dateLayout = "2006-01-02"

// fmtDate normalizes an event date to day precision. All instance dates
// compare at day granularity.
func fmtDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// withRetry runs fn, retrying on transient SQLite lock conflicts with
// exponential backoff. Contention between concurrent ledger writers shows
// up as SQLITE_BUSY rather than a serialization failure.
func withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(5, retry.NewExponential(10*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if isBusy(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// Enroll creates a wallet and its zero-balance participation row for the
// (customer, program) pair. Idempotent: an existing enrollment is
// returned as-is.
func (s *LedgerStore) Enroll(ctx context.Context, customerID, programID int64) (*model.Wallet, error) {
	var wallet *model.Wallet
	err := withRetry(ctx, func(ctx context.Context) error {
		w, err := s.enroll(ctx, customerID, programID)
		if err != nil {
			return err
		}
		wallet = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

func (s *LedgerStore) enroll(ctx context.Context, customerID, programID int64) (*model.Wallet, error) {
	existing, err := s.GetWallet(ctx, customerID, programID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapErr("begin", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO customer_wallets (customer_id, program_id) VALUES (?, ?)`,
		customerID, programID,
	)
	if isUniqueViolation(err, "customer_wallets") {
		// Lost a race with a concurrent enroll; the winner's wallet is ours.
		tx.Rollback()
		return s.GetWallet(ctx, customerID, programID)
	}
	if err != nil {
		return nil, mapErr("insert wallet", err)
	}
	walletID, err := result.LastInsertId()
	if err != nil {
		return nil, mapErr("last insert id", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO wallet_participation (wallet_id, program_id, points, all_time_points) VALUES (?, ?, 0, 0)`,
		walletID, programID,
	)
	if err != nil {
		return nil, mapErr("insert participation", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, mapErr("commit", err)
	}
	return s.getWalletByID(ctx, walletID)
}

func scanWallet(scanner interface{ Scan(...any) error }) (*model.Wallet, error) {
	var w model.Wallet
	err := scanner.Scan(&w.ID, &w.CustomerID, &w.ProgramID, &w.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

const walletCols = `id, customer_id, program_id, created_at`

// GetWallet returns the wallet for the (customer, program) pair, or nil.
func (s *LedgerStore) GetWallet(ctx context.Context, customerID, programID int64) (*model.Wallet, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+walletCols+` FROM customer_wallets WHERE customer_id = ? AND program_id = ?`,
		customerID, programID,
	)
	w, err := scanWallet(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr("get wallet", err)
	}
	return w, nil
}

func (s *LedgerStore) getWalletByID(ctx context.Context, id int64) (*model.Wallet, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+walletCols+` FROM customer_wallets WHERE id = ?`, id)
	w, err := scanWallet(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr("get wallet by id", err)
	}
	return w, nil
}

// GetParticipation returns the balance row for a wallet in a program, or
// nil when the wallet is not enrolled.
func (s *LedgerStore) GetParticipation(ctx context.Context, walletID, programID int64) (*model.Participation, error) {
	var p model.Participation
	err := s.db.QueryRowContext(ctx,
		`SELECT wallet_id, program_id, points, all_time_points
		 FROM wallet_participation WHERE wallet_id = ? AND program_id = ?`,
		walletID, programID,
	).Scan(&p.WalletID, &p.ProgramID, &p.Points, &p.AllTimePoints)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr("get participation", err)
	}
	return &p, nil
}

// RecordActivity applies the matching earning rule to the wallet: both
// balances grow by the rule's point grant and the activity event is
// appended, in one transaction.
func (s *LedgerStore) RecordActivity(ctx context.Context, walletID, programID int64, ruleVersion int, ruleCode string, date time.Time) (*model.ActivityInstance, error) {
	if err := required("rule_code", ruleCode); err != nil {
		return nil, err
	}

	var instance *model.ActivityInstance
	err := withRetry(ctx, func(ctx context.Context) error {
		inst, err := s.recordActivity(ctx, walletID, programID, ruleVersion, ruleCode, date)
		if err != nil {
			return err
		}
		instance = inst
		return nil
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func (s *LedgerStore) recordActivity(ctx context.Context, walletID, programID int64, ruleVersion int, ruleCode string, date time.Time) (*model.ActivityInstance, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapErr("begin", err)
	}
	defer tx.Rollback()

	var grant int
	err = tx.QueryRowContext(ctx,
		`SELECT points FROM reward_earning_rules
		 WHERE program_id = ? AND rule_version = ? AND rule_code = ?`,
		programID, ruleVersion, ruleCode,
	).Scan(&grant)
	if err == sql.ErrNoRows {
		return nil, ErrUnknownRule
	}
	if err != nil {
		return nil, mapErr("get earning rule", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE wallet_participation
		 SET points = points + ?, all_time_points = all_time_points + ?
		 WHERE wallet_id = ? AND program_id = ?`,
		grant, grant, walletID, programID,
	)
	if err != nil {
		return nil, mapErr("add points", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, mapErr("rows affected", err)
	}
	if affected == 0 {
		return nil, ErrNotEnrolled
	}

	insert, err := tx.ExecContext(ctx,
		`INSERT INTO activity_instances (wallet_id, program_id, rule_version, rule_code, occurred_on)
		 VALUES (?, ?, ?, ?, ?)`,
		walletID, programID, ruleVersion, ruleCode, fmtDate(date),
	)
	if err != nil {
		return nil, mapErr("insert activity instance", err)
	}
	id, err := insert.LastInsertId()
	if err != nil {
		return nil, mapErr("last insert id", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, mapErr("commit", err)
	}

	return &model.ActivityInstance{
		ID:          id,
		WalletID:    walletID,
		ProgramID:   programID,
		RuleVersion: ruleVersion,
		RuleCode:    ruleCode,
		OccurredOn:  date.UTC().Truncate(24 * time.Hour),
	}, nil
}

// RecordRedemption applies the matching redeeming rule: the cost comes
// off the current balance (all-time points untouched) and the redemption
// event is appended, in one transaction. The guarded UPDATE keeps two
// concurrent redemptions from both spending the same points.
func (s *LedgerStore) RecordRedemption(ctx context.Context, walletID, programID int64, ruleVersion int, ruleCode string, date time.Time) (*model.RewardInstance, error) {
	if err := required("rule_code", ruleCode); err != nil {
		return nil, err
	}

	var instance *model.RewardInstance
	err := withRetry(ctx, func(ctx context.Context) error {
		inst, err := s.recordRedemption(ctx, walletID, programID, ruleVersion, ruleCode, date)
		if err != nil {
			return err
		}
		instance = inst
		return nil
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func (s *LedgerStore) recordRedemption(ctx context.Context, walletID, programID int64, ruleVersion int, ruleCode string, date time.Time) (*model.RewardInstance, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapErr("begin", err)
	}
	defer tx.Rollback()

	var cost int
	err = tx.QueryRowContext(ctx,
		`SELECT points FROM reward_redeeming_rules
		 WHERE program_id = ? AND rule_version = ? AND rule_code = ?`,
		programID, ruleVersion, ruleCode,
	).Scan(&cost)
	if err == sql.ErrNoRows {
		return nil, ErrUnknownRule
	}
	if err != nil {
		return nil, mapErr("get redeeming rule", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE wallet_participation SET points = points - ?
		 WHERE wallet_id = ? AND program_id = ? AND points >= ?`,
		cost, walletID, programID, cost,
	)
	if err != nil {
		return nil, mapErr("spend points", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, mapErr("rows affected", err)
	}
	if affected == 0 {
		// Distinguish a short balance from a missing enrollment.
		var exists int
		err = tx.QueryRowContext(ctx,
			`SELECT 1 FROM wallet_participation WHERE wallet_id = ? AND program_id = ?`,
			walletID, programID,
		).Scan(&exists)
		if err == sql.ErrNoRows {
			return nil, ErrNotEnrolled
		}
		if err != nil {
			return nil, mapErr("get participation", err)
		}
		return nil, ErrInsufficientPoints
	}

	insert, err := tx.ExecContext(ctx,
		`INSERT INTO reward_instances (wallet_id, program_id, rule_version, rule_code, occurred_on)
		 VALUES (?, ?, ?, ?, ?)`,
		walletID, programID, ruleVersion, ruleCode, fmtDate(date),
	)
	if err != nil {
		return nil, mapErr("insert reward instance", err)
	}
	id, err := insert.LastInsertId()
	if err != nil {
		return nil, mapErr("last insert id", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, mapErr("commit", err)
	}

	return &model.RewardInstance{
		ID:          id,
		WalletID:    walletID,
		ProgramID:   programID,
		RuleVersion: ruleVersion,
		RuleCode:    ruleCode,
		OccurredOn:  date.UTC().Truncate(24 * time.Hour),
	}, nil
}
