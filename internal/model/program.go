package model

import "time"

// LoyaltyProgram is owned by exactly one brand.
type LoyaltyProgram struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	BrandID   int64     `json:"brand_id"`
	CreatedAt time.Time `json:"created_at"`
}

type ActivityCategory struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Reward is a catalog entry; name is unique within a program.
type Reward struct {
	ID        int64  `json:"id"`
	ProgramID int64  `json:"program_id"`
	Name      string `json:"name"`
}
