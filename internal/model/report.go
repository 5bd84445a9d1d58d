package model

// EnrolledInactive identifies a wallet that joined a program but never
// earned a point.
type EnrolledInactive struct {
	CustomerID int64 `json:"customer_id"`
	ProgramID  int64 `json:"program_id"`
}

// CategoryCount is one row of the per-category activity report.
type CategoryCount struct {
	CategoryName string `json:"category_name"`
	Count        int    `json:"count"`
}
