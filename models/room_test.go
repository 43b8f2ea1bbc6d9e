package models

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestNewRoomDefaults(t *testing.T) {
	room := NewRoom("h1", "Alice", map[string]any{"id": "samurai"})

	if room.RoomID == "" {
		t.Fatal("expected generated room id")
	}
	if room.Status != RoomStatusWaiting {
		t.Fatalf("status = %q, want waiting", room.Status)
	}
	if !room.HostReady || room.GuestReady {
		t.Fatalf("ready flags = host:%v guest:%v, want host only", room.HostReady, room.GuestReady)
	}
	if room.CreatedAt == 0 || room.LastUpdated == 0 {
		t.Fatal("timestamps should be set")
	}
	if room.HostCharacter["id"] != "samurai" {
		t.Fatalf("host character = %v", room.HostCharacter)
	}
}

func TestAddGuest(t *testing.T) {
	room := NewRoom("h1", "Alice", nil)

	if !room.AddGuest("g1", "Bob", nil) {
		t.Fatal("first guest should be accepted")
	}
	if room.Status != RoomStatusPlaying {
		t.Fatalf("status = %q, want playing once full", room.Status)
	}
	if room.AddGuest("g2", "Carol", nil) {
		t.Fatal("second guest should be rejected")
	}
	if room.GuestID != "g1" {
		t.Fatalf("guest = %q, want g1", room.GuestID)
	}
}

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{RoomStatusWaiting, RoomStatusPlaying, true},
		{RoomStatusWaiting, RoomStatusCompleted, true},
		{RoomStatusPlaying, RoomStatusCompleted, true},
		{RoomStatusPlaying, RoomStatusPlaying, true},
		{RoomStatusCompleted, RoomStatusCompleted, true},
		{RoomStatusPlaying, RoomStatusWaiting, false},
		{RoomStatusCompleted, RoomStatusPlaying, false},
		{RoomStatusCompleted, RoomStatusWaiting, false},
		{RoomStatusWaiting, "paused", false},
	}

	for _, tc := range tests {
		room := &Room{Status: tc.from}
		if got := room.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestSanitizeCharacter(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		want map[string]any
	}{
		{
			name: "nil map gets defaults",
			in:   nil,
			want: map[string]any{"id": "default", "name": "Unknown"},
		},
		{
			name: "nil values dropped",
			in:   map[string]any{"id": "ninja", "name": "Shadow", "skin": nil},
			want: map[string]any{"id": "ninja", "name": "Shadow"},
		},
		{
			name: "numbers coerced to float64",
			in:   map[string]any{"id": "ninja", "name": "Shadow", "speed": 7, "power": json.Number("12")},
			want: map[string]any{"id": "ninja", "name": "Shadow", "speed": float64(7), "power": float64(12)},
		},
		{
			name: "non-scalar values stringified",
			in:   map[string]any{"id": "ninja", "name": "Shadow", "unlocked": true},
			want: map[string]any{"id": "ninja", "name": "Shadow", "unlocked": "true"},
		},
		{
			name: "nested map sanitized one level",
			in: map[string]any{
				"id":   "ninja",
				"name": "Shadow",
				"stats": map[string]any{
					"attack":  10,
					"defense": nil,
				},
			},
			want: map[string]any{
				"id":    "ninja",
				"name":  "Shadow",
				"stats": map[string]any{"attack": float64(10)},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := SanitizeCharacter(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("SanitizeCharacter() = %v, want %v", got, tc.want)
			}
		})
	}
}
