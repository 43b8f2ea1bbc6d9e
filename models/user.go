// models/user.go
package models

import "github.com/google/uuid"

// Ranks derived from rating.
const (
	RankBronze   = "Bronze"
	RankSilver   = "Silver"
	RankGold     = "Gold"
	RankPlatinum = "Platinum"
	RankDiamond  = "Diamond"
	RankLegend   = "Legend"
)

// User is a player profile with rating, soft currency and inventory.
type User struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Email     string   `json:"email,omitempty"`
	Rating    int      `json:"rating"`
	Rank      string   `json:"rank"`
	Coins     int      `json:"coin"`
	Gems      int      `json:"gem"`
	Inventory []string `json:"inventory"`
}

// NewUser creates a profile with starting rating and currency.
func NewUser(id, name, email string) *User {
	if id == "" {
		id = uuid.NewString()
	}
	u := &User{
		ID:        id,
		Name:      name,
		Email:     email,
		Rating:    100,
		Coins:     100,
		Gems:      5,
		Inventory: []string{},
	}
	u.UpdateRank()
	return u
}

// UpdateRank recomputes the rank tier from the current rating.
func (u *User) UpdateRank() {
	switch {
	case u.Rating < 100:
		u.Rank = RankBronze
	case u.Rating < 200:
		u.Rank = RankSilver
	case u.Rating < 400:
		u.Rank = RankGold
	case u.Rating < 600:
		u.Rank = RankPlatinum
	case u.Rating < 800:
		u.Rank = RankDiamond
	default:
		u.Rank = RankLegend
	}
}

// AddToInventory appends an item id if not already owned.
func (u *User) AddToInventory(itemID string) {
	if u.HasItem(itemID) {
		return
	}
	u.Inventory = append(u.Inventory, itemID)
}

// HasItem reports whether the item is in the inventory.
func (u *User) HasItem(itemID string) bool {
	for _, id := range u.Inventory {
		if id == itemID {
			return true
		}
	}
	return false
}
