package model

import "time"

// ActivityInstance records that an earning rule fired for a wallet on a
// date. Append-only; never updated or deleted.
type ActivityInstance struct {
	ID          int64     `json:"id"`
	WalletID    int64     `json:"wallet_id"`
	ProgramID   int64     `json:"program_id"`
	RuleVersion int       `json:"rule_version"`
	RuleCode    string    `json:"rule_code"`
	OccurredOn  time.Time `json:"occurred_on"`
}

// RewardInstance records a redemption event. Append-only.
type RewardInstance struct {
	ID          int64     `json:"id"`
	WalletID    int64     `json:"wallet_id"`
	ProgramID   int64     `json:"program_id"`
	RuleVersion int       `json:"rule_version"`
	RuleCode    string    `json:"rule_code"`
	OccurredOn  time.Time `json:"occurred_on"`
}
