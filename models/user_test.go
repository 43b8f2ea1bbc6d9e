package models

import "testing"

func TestUpdateRankTiers(t *testing.T) {
	tests := []struct {
		rating int
		want   string
	}{
		{0, RankBronze},
		{99, RankBronze},
		{100, RankSilver},
		{199, RankSilver},
		{200, RankGold},
		{399, RankGold},
		{400, RankPlatinum},
		{599, RankPlatinum},
		{600, RankDiamond},
		{799, RankDiamond},
		{800, RankLegend},
		{5000, RankLegend},
	}

	for _, tc := range tests {
		u := &User{Rating: tc.rating}
		u.UpdateRank()
		if u.Rank != tc.want {
			t.Errorf("rating %d: rank = %q, want %q", tc.rating, u.Rank, tc.want)
		}
	}
}

func TestNewUserGeneratesIDWhenEmpty(t *testing.T) {
	u := NewUser("", "Alice", "")
	if u.ID == "" {
		t.Fatal("expected generated id")
	}
	if u.Inventory == nil || len(u.Inventory) != 0 {
		t.Fatalf("inventory = %v, want empty slice", u.Inventory)
	}
}

func TestInventoryHelpers(t *testing.T) {
	u := NewUser("u1", "Alice", "")

	u.AddToInventory("sword")
	u.AddToInventory("sword")
	u.AddToInventory("shield")

	if len(u.Inventory) != 2 {
		t.Fatalf("inventory = %v, want sword and shield once each", u.Inventory)
	}
	if !u.HasItem("sword") || !u.HasItem("shield") {
		t.Fatalf("missing expected items in %v", u.Inventory)
	}
	if u.HasItem("bow") {
		t.Fatal("unexpected bow in inventory")
	}
}
