package models

import (
	"time"
)

// RewardTier is one row of the periodic token reward table
type RewardTier struct {
	Chance int64
	Tokens int64
}

// RewardClaimResult is returned after a successful periodic reward claim
type RewardClaimResult struct {
	Tokens      int64
	NewBalance  int64
	ClaimedAt   time.Time
	NextClaimAt time.Time
}
