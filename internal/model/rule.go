package model

// EarningRule grants points for an activity in a category. Identified by
// the (program, version, code) triple; immutable once any activity
// instance references it.
type EarningRule struct {
	ProgramID   int64  `json:"program_id"`
	RuleVersion int    `json:"rule_version"`
	RuleCode    string `json:"rule_code"`
	CategoryID  int64  `json:"category_id"`
	Points      int    `json:"points"`
}

// RedeemingRule prices a reward in points. Same identity and immutability
// as EarningRule.
type RedeemingRule struct {
	ProgramID   int64  `json:"program_id"`
	RuleVersion int    `json:"rule_version"`
	RuleCode    string `json:"rule_code"`
	RewardID    int64  `json:"reward_id"`
	Points      int    `json:"points"`
}
