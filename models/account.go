package models

import (
	"time"
)

// Account represents a player with a token balance
type Account struct {
	ID           int64      `db:"id"`
	Username     string     `db:"username"`
	Tokens       int64      `db:"tokens"`
	Diamonds     int64      `db:"diamonds"`
	PacksOpened  int64      `db:"packs_opened"`
	FeeReduction bool       `db:"fee_reduction"`
	LastClaimed  *time.Time `db:"last_claimed"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

// CanAfford checks if the account holds at least amount tokens
func (a *Account) CanAfford(amount int64) bool {
	return a.Tokens >= amount
}

// HasClaimedSince reports whether the periodic reward was claimed at or after periodStart
func (a *Account) HasClaimedSince(periodStart time.Time) bool {
	return a.LastClaimed != nil && !a.LastClaimed.Before(periodStart)
}
