package testutil

import (
	"time"

	"economy/models"
)

// CreateTestAccount creates an account model with default values
func CreateTestAccount(id int64, username string) *models.Account {
	now := time.Now()
	return &models.Account{
		ID:        id,
		Username:  username,
		Tokens:    100,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CreateTestAccountWithTokens creates an account model with a specific balance
func CreateTestAccountWithTokens(id int64, username string, tokens int64) *models.Account {
	account := CreateTestAccount(id, username)
	account.Tokens = tokens
	return account
}

// CreateTestBalanceHistory creates a balance history entry for a tax debit
func CreateTestBalanceHistory(accountID int64, transactionType models.TransactionType) *models.BalanceHistory {
	return &models.BalanceHistory{
		AccountID:       accountID,
		BalanceBefore:   100,
		BalanceAfter:    85,
		ChangeAmount:    -15,
		TransactionType: transactionType,
		TransactionMetadata: map[string]any{
			"test": true,
		},
	}
}

// CreateTestAuction creates an active blook auction model expiring after the given duration
func CreateTestAuction(sellerID, blookInstanceID, price int64, expiresIn time.Duration) *models.Auction {
	return &models.Auction{
		Kind:      models.AssetKindBlook,
		BlookID:   &blookInstanceID,
		SellerID:  sellerID,
		Price:     price,
		ExpiresAt: time.Now().Add(expiresIn),
	}
}

// CreateTestItemAuction creates an active item auction model
func CreateTestItemAuction(sellerID, itemInstanceID, price int64, expiresIn time.Duration) *models.Auction {
	return &models.Auction{
		Kind:      models.AssetKindItem,
		ItemID:    &itemInstanceID,
		SellerID:  sellerID,
		Price:     price,
		ExpiresAt: time.Now().Add(expiresIn),
	}
}
