package store

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/greyfiles/loyalty/internal/model"
)

type fixture struct {
	brands    *BrandStore
	customers *CustomerStore
	programs  *ProgramStore
	ledger    *LedgerStore
	reports   *ReportStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	return &fixture{
		brands:    NewBrandStore(db),
		customers: NewCustomerStore(db),
		programs:  NewProgramStore(db),
		ledger:    NewLedgerStore(db),
		reports:   NewReportStore(db),
	}
}

// seedProgram registers a brand and its program with one earning rule
// (code EARN, worth earnPoints) and one redeeming rule (code SPEND,
// costing spendPoints).
func (f *fixture) seedProgram(t *testing.T, brandName, username string, earnPoints, spendPoints int) *model.LoyaltyProgram {
	t.Helper()
	ctx := context.Background()

	brand, err := f.brands.Register(ctx, brandName, "", username, "secret")
	if err != nil {
		t.Fatalf("register brand %s: %v", brandName, err)
	}
	program, err := f.programs.Create(ctx, brand.ID, brandName+" Rewards")
	if err != nil {
		t.Fatalf("create program: %v", err)
	}
	category, err := f.programs.CreateCategory(ctx, brandName+" Purchase")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	reward, err := f.programs.CreateReward(ctx, program.ID, brandName+" Gift")
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	err = f.programs.CreateEarningRule(ctx, model.EarningRule{
		ProgramID: program.ID, RuleVersion: 1, RuleCode: "EARN",
		CategoryID: category.ID, Points: earnPoints,
	})
	if err != nil {
		t.Fatalf("create earning rule: %v", err)
	}
	err = f.programs.CreateRedeemingRule(ctx, model.RedeemingRule{
		ProgramID: program.ID, RuleVersion: 1, RuleCode: "SPEND",
		RewardID: reward.ID, Points: spendPoints,
	})
	if err != nil {
		t.Fatalf("create redeeming rule: %v", err)
	}
	return program
}

func (f *fixture) seedCustomer(t *testing.T, name, username string) *model.Customer {
	t.Helper()
	customer, err := f.customers.Register(context.Background(), name, "", "", username, "secret")
	if err != nil {
		t.Fatalf("register customer %s: %v", name, err)
	}
	return customer
}

func TestEnrollIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	program := f.seedProgram(t, "Acme", "acme", 50, 30)
	customer := f.seedCustomer(t, "Jane", "jane")

	w1, err := f.ledger.Enroll(ctx, customer.ID, program.ID)
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	w2, err := f.ledger.Enroll(ctx, customer.ID, program.ID)
	if err != nil {
		t.Fatalf("second enroll: %v", err)
	}
	if w1.ID != w2.ID {
		t.Errorf("wallet ids differ: %d vs %d", w1.ID, w2.ID)
	}

	participation, err := f.ledger.GetParticipation(ctx, w1.ID, program.ID)
	if err != nil {
		t.Fatalf("get participation: %v", err)
	}
	if participation == nil || participation.Points != 0 || participation.AllTimePoints != 0 {
		t.Fatalf("participation = %+v, want zero balances", participation)
	}
}

// The sign-up-through-redemption walkthrough: earn 50, redeem 30, and
// the two balances diverge the way the ledger promises.
func TestEarnThenRedeemScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	program := f.seedProgram(t, "Acme", "acme", 50, 30)
	customer := f.seedCustomer(t, "Jane", "jane")

	wallet, err := f.ledger.Enroll(ctx, customer.ID, program.ID)
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}

	if _, err := f.ledger.RecordActivity(ctx, wallet.ID, program.ID, 1, "EARN", time.Now()); err != nil {
		t.Fatalf("record activity: %v", err)
	}
	p, err := f.ledger.GetParticipation(ctx, wallet.ID, program.ID)
	if err != nil {
		t.Fatalf("get participation: %v", err)
	}
	if p.Points != 50 || p.AllTimePoints != 50 {
		t.Fatalf("after earn: points = %d, all-time = %d, want 50/50", p.Points, p.AllTimePoints)
	}

	if _, err := f.ledger.RecordRedemption(ctx, wallet.ID, program.ID, 1, "SPEND", time.Now()); err != nil {
		t.Fatalf("record redemption: %v", err)
	}
	p, err = f.ledger.GetParticipation(ctx, wallet.ID, program.ID)
	if err != nil {
		t.Fatalf("get participation: %v", err)
	}
	if p.Points != 20 {
		t.Errorf("after redeem: points = %d, want 20", p.Points)
	}
	if p.AllTimePoints != 50 {
		t.Errorf("after redeem: all-time = %d, want 50 (unchanged)", p.AllTimePoints)
	}
}

func TestRecordActivityUnknownRule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	program := f.seedProgram(t, "Acme", "acme", 50, 30)
	customer := f.seedCustomer(t, "Jane", "jane")
	wallet, err := f.ledger.Enroll(ctx, customer.ID, program.ID)
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}

	_, err = f.ledger.RecordActivity(ctx, wallet.ID, program.ID, 1, "NOPE", time.Now())
	if !errors.Is(err, ErrUnknownRule) {
		t.Fatalf("err = %v, want ErrUnknownRule", err)
	}
	_, err = f.ledger.RecordActivity(ctx, wallet.ID, program.ID, 9, "EARN", time.Now())
	if !errors.Is(err, ErrUnknownRule) {
		t.Fatalf("wrong version err = %v, want ErrUnknownRule", err)
	}

	// No event row leaked out of the rolled-back attempt.
	p, err := f.ledger.GetParticipation(ctx, wallet.ID, program.ID)
	if err != nil {
		t.Fatalf("get participation: %v", err)
	}
	if p.Points != 0 || p.AllTimePoints != 0 {
		t.Errorf("balances changed: %+v", p)
	}
}

func TestRecordRedemptionInsufficientPoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	program := f.seedProgram(t, "Acme", "acme", 10, 30)
	customer := f.seedCustomer(t, "Jane", "jane")
	wallet, err := f.ledger.Enroll(ctx, customer.ID, program.ID)
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}

	// 10 points earned, rule costs 30.
	if _, err := f.ledger.RecordActivity(ctx, wallet.ID, program.ID, 1, "EARN", time.Now()); err != nil {
		t.Fatalf("record activity: %v", err)
	}

	_, err = f.ledger.RecordRedemption(ctx, wallet.ID, program.ID, 1, "SPEND", time.Now())
	if !errors.Is(err, ErrInsufficientPoints) {
		t.Fatalf("err = %v, want ErrInsufficientPoints", err)
	}

	p, err := f.ledger.GetParticipation(ctx, wallet.ID, program.ID)
	if err != nil {
		t.Fatalf("get participation: %v", err)
	}
	if p.Points != 10 || p.AllTimePoints != 10 {
		t.Errorf("balances = %d/%d, want 10/10 (unchanged)", p.Points, p.AllTimePoints)
	}
}

func TestRecordRequiresEnrollment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	program := f.seedProgram(t, "Acme", "acme", 50, 30)

	_, err := f.ledger.RecordActivity(ctx, 999, program.ID, 1, "EARN", time.Now())
	if !errors.Is(err, ErrNotEnrolled) {
		t.Fatalf("activity err = %v, want ErrNotEnrolled", err)
	}
	_, err = f.ledger.RecordRedemption(ctx, 999, program.ID, 1, "SPEND", time.Now())
	if !errors.Is(err, ErrNotEnrolled) {
		t.Fatalf("redemption err = %v, want ErrNotEnrolled", err)
	}
}

// Random interleavings of earn and redeem must never break
// points <= allTimePoints, and both balances must track the arithmetic
// exactly.
func TestBalanceInvariantUnderInterleaving(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	program := f.seedProgram(t, "Acme", "acme", 7, 5)
	customer := f.seedCustomer(t, "Jane", "jane")
	wallet, err := f.ledger.Enroll(ctx, customer.ID, program.ID)
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}

	rng := rand.New(rand.NewSource(1))
	wantPoints, wantAllTime := 0, 0

	for i := 0; i < 200; i++ {
		if rng.Intn(2) == 0 {
			if _, err := f.ledger.RecordActivity(ctx, wallet.ID, program.ID, 1, "EARN", time.Now()); err != nil {
				t.Fatalf("step %d earn: %v", i, err)
			}
			wantPoints += 7
			wantAllTime += 7
		} else {
			_, err := f.ledger.RecordRedemption(ctx, wallet.ID, program.ID, 1, "SPEND", time.Now())
			switch {
			case err == nil:
				wantPoints -= 5
			case errors.Is(err, ErrInsufficientPoints):
				if wantPoints >= 5 {
					t.Fatalf("step %d: spurious ErrInsufficientPoints at %d points", i, wantPoints)
				}
			default:
				t.Fatalf("step %d redeem: %v", i, err)
			}
		}

		p, err := f.ledger.GetParticipation(ctx, wallet.ID, program.ID)
		if err != nil {
			t.Fatalf("step %d participation: %v", i, err)
		}
		if p.Points != wantPoints || p.AllTimePoints != wantAllTime {
			t.Fatalf("step %d: balances = %d/%d, want %d/%d", i, p.Points, p.AllTimePoints, wantPoints, wantAllTime)
		}
		if p.Points > p.AllTimePoints {
			t.Fatalf("step %d: points %d exceeds all-time %d", i, p.Points, p.AllTimePoints)
		}
	}
}
