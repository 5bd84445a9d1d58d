package store

import (
	"context"
	"database/sql"

	"github.com/greyfiles/loyalty/internal/model"
)

// ProgramStore manages loyalty programs and their rule catalogs: activity
// categories, rewards, and the versioned earning/redeeming rules.
type ProgramStore struct {
	db *sql.DB
}

func NewProgramStore(db *sql.DB) *ProgramStore {
	return &ProgramStore{db: db}
}

func scanProgram(scanner interface{ Scan(...any) error }) (*model.LoyaltyProgram, error) {
	var p model.LoyaltyProgram
	err := scanner.Scan(&p.ID, &p.Name, &p.BrandID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const programCols = `id, name, brand_id, created_at`

// Create inserts the brand's loyalty program. The unique constraint on
// brand_id enforces one program per brand; a second create returns
// ErrProgramExists.
func (s *ProgramStore) Create(ctx context.Context, brandID int64, name string) (*model.LoyaltyProgram, error) {
	if err := required("name", name); err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO loyalty_programs (name, brand_id) VALUES (?, ?)`,
		name, brandID,
	)
	if isUniqueViolation(err, "loyalty_programs.brand_id") {
		return nil, ErrProgramExists
	}
	if err != nil {
		return nil, mapErr("insert program", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, mapErr("last insert id", err)
	}
	return s.GetByID(ctx, id)
}

func (s *ProgramStore) GetByID(ctx context.Context, id int64) (*model.LoyaltyProgram, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+programCols+` FROM loyalty_programs WHERE id = ?`, id)
	p, err := scanProgram(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr("get program", err)
	}
	return p, nil
}

func (s *ProgramStore) GetByBrand(ctx context.Context, brandID int64) (*model.LoyaltyProgram, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+programCols+` FROM loyalty_programs WHERE brand_id = ?`, brandID)
	p, err := scanProgram(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr("get program by brand", err)
	}
	return p, nil
}

// --- Activity categories ---

func (s *ProgramStore) CreateCategory(ctx context.Context, name string) (*model.ActivityCategory, error) {
	if err := required("name", name); err != nil {
		return nil, err
	}
	result, err := s.db.ExecContext(ctx, `INSERT INTO activity_categories (name) VALUES (?)`, name)
	if err != nil {
		return nil, mapErr("insert category", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, mapErr("last insert id", err)
	}
	return &model.ActivityCategory{ID: id, Name: name}, nil
}

func (s *ProgramStore) ListCategories(ctx context.Context) ([]model.ActivityCategory, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM activity_categories ORDER BY name ASC`)
	if err != nil {
		return nil, mapErr("list categories", err)
	}
	defer rows.Close()

	var categories []model.ActivityCategory
	for rows.Next() {
		var c model.ActivityCategory
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, mapErr("scan category", err)
		}
		categories = append(categories, c)
	}
	return categories, mapErr("iterate categories", rows.Err())
}

// --- Rewards ---

func (s *ProgramStore) CreateReward(ctx context.Context, programID int64, name string) (*model.Reward, error) {
	if err := required("name", name); err != nil {
		return nil, err
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO rewards (program_id, name) VALUES (?, ?)`,
		programID, name,
	)
	if err != nil {
		return nil, mapErr("insert reward", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, mapErr("last insert id", err)
	}
	return &model.Reward{ID: id, ProgramID: programID, Name: name}, nil
}

func (s *ProgramStore) ListRewards(ctx context.Context, programID int64) ([]model.Reward, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, program_id, name FROM rewards WHERE program_id = ? ORDER BY name ASC`,
		programID,
	)
	if err != nil {
		return nil, mapErr("list rewards", err)
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		var r model.Reward
		if err := rows.Scan(&r.ID, &r.ProgramID, &r.Name); err != nil {
			return nil, mapErr("scan reward", err)
		}
		rewards = append(rewards, r)
	}
	return rewards, mapErr("iterate rewards", rows.Err())
}

// --- Earning rules ---

func (s *ProgramStore) CreateEarningRule(ctx context.Context, rule model.EarningRule) error {
	if err := required("rule_code", rule.RuleCode); err != nil {
		return err
	}
	if rule.Points <= 0 {
		return &ValidationError{Field: "points", Reason: "must be positive"}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reward_earning_rules (program_id, rule_version, rule_code, category_id, points)
		 VALUES (?, ?, ?, ?, ?)`,
		rule.ProgramID, rule.RuleVersion, rule.RuleCode, rule.CategoryID, rule.Points,
	)
	return mapErr("insert earning rule", err)
}

func (s *ProgramStore) GetEarningRule(ctx context.Context, programID int64, ruleVersion int, ruleCode string) (*model.EarningRule, error) {
	var r model.EarningRule
	err := s.db.QueryRowContext(ctx,
		`SELECT program_id, rule_version, rule_code, category_id, points
		 FROM reward_earning_rules
		 WHERE program_id = ? AND rule_version = ? AND rule_code = ?`,
		programID, ruleVersion, ruleCode,
	).Scan(&r.ProgramID, &r.RuleVersion, &r.RuleCode, &r.CategoryID, &r.Points)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr("get earning rule", err)
	}
	return &r, nil
}

// UpdateEarningRule changes the category or point grant of a rule version.
// Refused with ErrRuleInUse once any activity instance references the
// triple; recorded history must keep pointing at the values it was
// scored under.
func (s *ProgramStore) UpdateEarningRule(ctx context.Context, rule model.EarningRule) error {
	if rule.Points <= 0 {
		return &ValidationError{Field: "points", Reason: "must be positive"}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapErr("begin", err)
	}
	defer tx.Rollback()

	var refs int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM activity_instances
		 WHERE program_id = ? AND rule_version = ? AND rule_code = ?`,
		rule.ProgramID, rule.RuleVersion, rule.RuleCode,
	).Scan(&refs)
	if err != nil {
		return mapErr("count rule references", err)
	}
	if refs > 0 {
		return ErrRuleInUse
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE reward_earning_rules SET category_id = ?, points = ?
		 WHERE program_id = ? AND rule_version = ? AND rule_code = ?`,
		rule.CategoryID, rule.Points, rule.ProgramID, rule.RuleVersion, rule.RuleCode,
	)
	if err != nil {
		return mapErr("update earning rule", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return mapErr("rows affected", err)
	}
	if affected == 0 {
		return ErrUnknownRule
	}
	return mapErr("commit", tx.Commit())
}

// --- Redeeming rules ---

func (s *ProgramStore) CreateRedeemingRule(ctx context.Context, rule model.RedeemingRule) error {
	if err := required("rule_code", rule.RuleCode); err != nil {
		return err
	}
	if rule.Points <= 0 {
		return &ValidationError{Field: "points", Reason: "must be positive"}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reward_redeeming_rules (program_id, rule_version, rule_code, reward_id, points)
		 VALUES (?, ?, ?, ?, ?)`,
		rule.ProgramID, rule.RuleVersion, rule.RuleCode, rule.RewardID, rule.Points,
	)
	return mapErr("insert redeeming rule", err)
}

func (s *ProgramStore) GetRedeemingRule(ctx context.Context, programID int64, ruleVersion int, ruleCode string) (*model.RedeemingRule, error) {
	var r model.RedeemingRule
	err := s.db.QueryRowContext(ctx,
		`SELECT program_id, rule_version, rule_code, reward_id, points
		 FROM reward_redeeming_rules
		 WHERE program_id = ? AND rule_version = ? AND rule_code = ?`,
		programID, ruleVersion, ruleCode,
	).Scan(&r.ProgramID, &r.RuleVersion, &r.RuleCode, &r.RewardID, &r.Points)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr("get redeeming rule", err)
	}
	return &r, nil
}

// UpdateRedeemingRule mirrors UpdateEarningRule: immutable once redeemed
// against.
func (s *ProgramStore) UpdateRedeemingRule(ctx context.Context, rule model.RedeemingRule) error {
	if rule.Points <= 0 {
		return &ValidationError{Field: "points", Reason: "must be positive"}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapErr("begin", err)
	}
	defer tx.Rollback()

	var refs int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reward_instances
		 WHERE program_id = ? AND rule_version = ? AND rule_code = ?`,
		rule.ProgramID, rule.RuleVersion, rule.RuleCode,
	).Scan(&refs)
	if err != nil {
		return mapErr("count rule references", err)
	}
	if refs > 0 {
		return ErrRuleInUse
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE reward_redeeming_rules SET reward_id = ?, points = ?
		 WHERE program_id = ? AND rule_version = ? AND rule_code = ?`,
		rule.RewardID, rule.Points, rule.ProgramID, rule.RuleVersion, rule.RuleCode,
	)
	if err != nil {
		return mapErr("update redeeming rule", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return mapErr("rows affected", err)
	}
	if affected == 0 {
		return ErrUnknownRule
	}
	return mapErr("commit", tx.Commit())
}
