package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/greyfiles/loyalty/internal/model"
)

// Default thresholds for the parameterized reports.
const (
	DefaultMinRedemptions = 2
	DefaultPointThreshold = 500
)

// ReportStore runs the fixed analytical queries. All of them are pure
// reads with bound parameters; an empty result is not an error.
type ReportStore struct {
	db *sql.DB
}

func NewReportStore(db *sql.DB) *ReportStore {
	return &ReportStore{db: db}
}

func (s *ReportStore) queryNames(ctx context.Context, op, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(op, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, mapErr(op, err)
		}
		names = append(names, name)
	}
	return names, mapErr(op, rows.Err())
}

// CustomersNotInProgram lists customers with no wallet in the given
// program.
func (s *ReportStore) CustomersNotInProgram(ctx context.Context, programID int64) ([]string, error) {
	return s.queryNames(ctx, "customers not in program",
		`SELECT c.name FROM customers c
		 WHERE NOT EXISTS (
		     SELECT 1 FROM customer_wallets w
		     WHERE w.customer_id = c.id AND w.program_id = ?
		 )
		 ORDER BY c.name ASC`,
		programID,
	)
}

// EnrolledInactiveCustomers lists (customer, program) pairs whose wallet
// joined a program but never earned a point: both balances still zero.
func (s *ReportStore) EnrolledInactiveCustomers(ctx context.Context) ([]model.EnrolledInactive, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT w.customer_id, wp.program_id
		 FROM wallet_participation wp
		 JOIN customer_wallets w ON w.id = wp.wallet_id
		 WHERE wp.points = 0 AND wp.all_time_points = 0
		 ORDER BY w.customer_id ASC, wp.program_id ASC`,
	)
	if err != nil {
		return nil, mapErr("enrolled inactive customers", err)
	}
	defer rows.Close()

	var results []model.EnrolledInactive
	for rows.Next() {
		var r model.EnrolledInactive
		if err := rows.Scan(&r.CustomerID, &r.ProgramID); err != nil {
			return nil, mapErr("scan enrolled inactive", err)
		}
		results = append(results, r)
	}
	return results, mapErr("enrolled inactive customers", rows.Err())
}

// RewardsOfBrandProgram lists the rewards reachable through the brand's
// program's redeeming rules.
func (s *ReportStore) RewardsOfBrandProgram(ctx context.Context, brandID int64) ([]string, error) {
	return s.queryNames(ctx, "rewards of brand program",
		`SELECT DISTINCT r.name
		 FROM brands b
		 JOIN loyalty_programs lp ON lp.brand_id = b.id
		 JOIN reward_redeeming_rules rr ON rr.program_id = lp.id
		 JOIN rewards r ON r.id = rr.reward_id
		 WHERE b.id = ?
		 ORDER BY r.name ASC`,
		brandID,
	)
}

// ProgramsWithActivity lists programs that grant points for the named
// activity category through at least one earning rule.
func (s *ReportStore) ProgramsWithActivity(ctx context.Context, activityName string) ([]string, error) {
	if err := required("activity name", activityName); err != nil {
		return nil, err
	}
	return s.queryNames(ctx, "programs with activity",
		`SELECT DISTINCT lp.name
		 FROM loyalty_programs lp
		 JOIN reward_earning_rules er ON er.program_id = lp.id
		 JOIN activity_categories ac ON ac.id = er.category_id
		 WHERE ac.name = ?
		 ORDER BY lp.name ASC`,
		activityName,
	)
}

// ActivityCountsByCategory counts recorded activity instances in the
// brand's program, grouped by the earning rule's category.
func (s *ReportStore) ActivityCountsByCategory(ctx context.Context, brandName string) ([]model.CategoryCount, error) {
	if err := required("brand name", brandName); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT ac.name, COUNT(*)
		 FROM brands b
		 JOIN loyalty_programs lp ON lp.brand_id = b.id
		 JOIN activity_instances ai ON ai.program_id = lp.id
		 JOIN reward_earning_rules er
		     ON er.program_id = ai.program_id
		     AND er.rule_version = ai.rule_version
		     AND er.rule_code = ai.rule_code
		 JOIN activity_categories ac ON ac.id = er.category_id
		 WHERE b.name = ?
		 GROUP BY ac.name
		 ORDER BY ac.name ASC`,
		brandName,
	)
	if err != nil {
		return nil, mapErr("activity counts by category", err)
	}
	defer rows.Close()

	var counts []model.CategoryCount
	for rows.Next() {
		var c model.CategoryCount
		if err := rows.Scan(&c.CategoryName, &c.Count); err != nil {
			return nil, mapErr("scan category count", err)
		}
		counts = append(counts, c)
	}
	return counts, mapErr("activity counts by category", rows.Err())
}

// RepeatRedeemers lists customers of the brand's program with at least
// minRedemptions recorded redemption events. A non-positive threshold
// falls back to DefaultMinRedemptions.
func (s *ReportStore) RepeatRedeemers(ctx context.Context, brandName string, minRedemptions int) ([]string, error) {
	if err := required("brand name", brandName); err != nil {
		return nil, err
	}
	if minRedemptions <= 0 {
		minRedemptions = DefaultMinRedemptions
	}
	return s.queryNames(ctx, "repeat redeemers",
		`SELECT c.name
		 FROM brands b
		 JOIN loyalty_programs lp ON lp.brand_id = b.id
		 JOIN reward_instances ri ON ri.program_id = lp.id
		 JOIN customer_wallets w ON w.id = ri.wallet_id
		 JOIN customers c ON c.id = w.customer_id
		 WHERE b.name = ?
		 GROUP BY c.id, c.name
		 HAVING COUNT(*) >= ?
		 ORDER BY c.name ASC`,
		brandName, minRedemptions,
	)
}

// LowRedemptionBrands lists brands whose total redeemed points fall
// strictly below the threshold. Per redeeming rule the total is
// redemption count times rule cost; brands with no redemptions total
// zero and are included. A non-positive threshold falls back to
// DefaultPointThreshold.
func (s *ReportStore) LowRedemptionBrands(ctx context.Context, pointThreshold int) ([]string, error) {
	if pointThreshold <= 0 {
		pointThreshold = DefaultPointThreshold
	}
	return s.queryNames(ctx, "low redemption brands",
		`SELECT b.name
		 FROM brands b
		 LEFT JOIN (
		     SELECT lp.brand_id AS brand_id, SUM(spent.total) AS total
		     FROM loyalty_programs lp
		     JOIN (
		         SELECT rr.program_id, rr.rule_version, rr.rule_code,
		                COUNT(ri.id) * rr.points AS total
		         FROM reward_redeeming_rules rr
		         JOIN reward_instances ri
		             ON ri.program_id = rr.program_id
		             AND ri.rule_version = rr.rule_version
		             AND ri.rule_code = rr.rule_code
		         GROUP BY rr.program_id, rr.rule_version, rr.rule_code
		     ) spent ON spent.program_id = lp.id
		     GROUP BY lp.brand_id
		 ) redeemed ON redeemed.brand_id = b.id
		 WHERE COALESCE(redeemed.total, 0) < ?
		 ORDER BY b.name ASC`,
		pointThreshold,
	)
}

// ActivityCountInWindow counts the customer's activity instances in the
// brand's program within the inclusive [start, end] date range.
func (s *ReportStore) ActivityCountInWindow(ctx context.Context, customerID int64, brandName string, start, end time.Time) (int, error) {
	if err := required("brand name", brandName); err != nil {
		return 0, err
	}
	if end.Before(start) {
		return 0, &ValidationError{Field: "date range", Reason: "end precedes start"}
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*)
		 FROM brands b
		 JOIN loyalty_programs lp ON lp.brand_id = b.id
		 JOIN customer_wallets w ON w.program_id = lp.id AND w.customer_id = ?
		 JOIN activity_instances ai ON ai.wallet_id = w.id AND ai.program_id = lp.id
		 WHERE b.name = ? AND ai.occurred_on >= ? AND ai.occurred_on <= ?`,
		customerID, brandName, fmtDate(start), fmtDate(end),
	).Scan(&count)
	if err != nil {
		return 0, mapErr("activity count in window", err)
	}
	return count, nil
}
