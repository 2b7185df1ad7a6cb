package models

import (
	"fmt"
	"time"
)

// AssetKind identifies which table an asset instance lives in
type AssetKind string

const (
	AssetKindBlook AssetKind = "BLOOK"
	AssetKindItem  AssetKind = "ITEM"
)

// Validate checks that the kind is one of the known asset kinds
func (k AssetKind) Validate() error {
	switch k {
	case AssetKindBlook, AssetKindItem:
		return nil
	default:
		return fmt.Errorf("unknown asset kind %q", string(k))
	}
}

// BlookInstance is one owned copy of a collectible blook
type BlookInstance struct {
	ID                int64     `db:"id"`
	OwnerID           int64     `db:"owner_id"`
	BlookID           int64     `db:"blook_id"`
	InitialObtainerID int64     `db:"initial_obtainer_id"`
	Sold              bool      `db:"sold"`
	CreatedAt         time.Time `db:"created_at"`
}

// IsEligibleForAuction reports whether the instance could be listed by ownerID,
// ignoring whether an active auction already references it
func (b *BlookInstance) IsEligibleForAuction(ownerID int64) bool {
	return b.OwnerID == ownerID && !b.Sold
}

// ItemInstance is one owned consumable item
type ItemInstance struct {
	ID        int64     `db:"id"`
	OwnerID   int64     `db:"owner_id"`
	ItemID    int64     `db:"item_id"`
	UsesLeft  int       `db:"uses_left"`
	CreatedAt time.Time `db:"created_at"`
}

// IsExhausted reports whether the item has no charges left
func (i *ItemInstance) IsExhausted() bool {
	return i.UsesLeft <= 0
}

// IsEligibleForAuction reports whether the instance could be listed by ownerID,
// ignoring whether an active auction already references it
func (i *ItemInstance) IsEligibleForAuction(ownerID int64) bool {
	return i.OwnerID == ownerID && !i.IsExhausted()
}

// GrantedAsset describes an asset instance created by the ledger
type GrantedAsset struct {
	Kind         AssetKind `json:"kind"`
	InstanceID   int64     `json:"instance_id"`
	DefinitionID int64     `json:"definition_id"`
	OwnerID      int64     `json:"owner_id"`
}
