package model

import "time"

const (
	PrincipalBrand    = "brand"
	PrincipalCustomer = "customer"
)

type Session struct {
	ID            int64     `json:"id"`
	Token         string    `json:"token"`
	PrincipalKind string    `json:"principal_kind"`
	PrincipalID   int64     `json:"principal_id"`
	ExpiresAt     time.Time `json:"expires_at"`
	CreatedAt     time.Time `json:"created_at"`
}
