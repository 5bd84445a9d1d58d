package model

import "time"

type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}
