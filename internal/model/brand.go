package model

import "time"

type Brand struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}
