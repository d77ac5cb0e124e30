package models

import "time"

// Account is the reward ledger row for one user. Balance only changes through
// atomic increments at the storage layer, never read-modify-write.
type Account struct {
	UserID    int64     `gorm:"primarykey;autoIncrement:false" json:"user_id" example:"100000001"`
	Balance   int64     `gorm:"not null;default:0" json:"balance" example:"40"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}
