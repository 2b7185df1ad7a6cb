package models

import (
	"time"
)

// PackDefinition is a priced pack read from the content catalog
type PackDefinition struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Price   int64  `json:"price"`
	Enabled bool   `json:"enabled"`
}

// AssetDefinition is a blook or item definition read from the content catalog
type AssetDefinition struct {
	ID     int64     `json:"id"`
	Kind   AssetKind `json:"kind"`
	Name   string    `json:"name"`
	Price  int64     `json:"price"`
	Rarity string    `json:"rarity"`
	// MaxUses is the charge count given to new item instances
	MaxUses int `json:"max_uses,omitempty"`
}

// PackAsset is one weighted entry of a pack's pool
type PackAsset struct {
	PackID  int64     `json:"pack_id"`
	AssetID int64     `json:"asset_id"`
	Kind    AssetKind `json:"kind"`
	Chance  float64   `json:"chance"`
	// OnlyOnDay restricts the entry to a single UTC weekday when set
	OnlyOnDay *time.Weekday `json:"only_on_day,omitempty"`
}

// AvailableOn reports whether the entry can be drawn on the given UTC time
func (p *PackAsset) AvailableOn(t time.Time) bool {
	if p.OnlyOnDay == nil {
		return true
	}
	return t.UTC().Weekday() == *p.OnlyOnDay
}

// PackOpenResult is returned to the caller after a pack is opened
type PackOpenResult struct {
	PackID     int64
	Asset      *GrantedAsset
	Definition *AssetDefinition
	NewBalance int64
}
