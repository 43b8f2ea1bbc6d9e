// models/room.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Room lifecycle statuses. Transitions are strictly forward:
// waiting -> playing -> completed.
const (
	RoomStatusWaiting   = "waiting"
	RoomStatusPlaying   = "playing"
	RoomStatusCompleted = "completed"
)

// Winner markers stored on a completed room.
const (
	WinnerHost  = "host"
	WinnerGuest = "guest"
)

// Room is a pairing session for two players. The host creates it, a guest
// joins it, and once both slots are filled the room moves to "playing" and a
// match is attached via GameID.
type Room struct {
	RoomID         string         `json:"roomId"`
	HostID         string         `json:"hostId"`
	HostName       string         `json:"hostName"`
	HostCharacter  map[string]any `json:"hostCharacter"`
	GuestID        string         `json:"guestId,omitempty"`
	GuestName      string         `json:"guestName,omitempty"`
	GuestCharacter map[string]any `json:"guestCharacter,omitempty"`
	Status         string         `json:"status"`
	GameID         string         `json:"gameId,omitempty"`
	Winner         string         `json:"winner,omitempty"` // "", "host", "guest"
	CreatedAt      int64          `json:"createdAt"`
	LastUpdated    int64          `json:"lastUpdated"`
	HostReady      bool           `json:"hostReady"`
	GuestReady     bool           `json:"guestReady"`
}

// NewRoom creates a waiting room owned by the given host. The character
// descriptor is sanitized so the stored shape is stable regardless of what
// the client sent.
func NewRoom(hostID, hostName string, hostCharacter map[string]any) *Room {
	now := time.Now().UnixMilli()
	return &Room{
		RoomID:        uuid.NewString(),
		HostID:        hostID,
		HostName:      hostName,
		HostCharacter: SanitizeCharacter(hostCharacter),
		Status:        RoomStatusWaiting,
		CreatedAt:     now,
		LastUpdated:   now,
		HostReady:     true,
	}
}

// HasAllPlayers reports whether both the host and guest slots are filled.
func (r *Room) HasAllPlayers() bool {
	return r.HostID != "" && r.GuestID != "" &&
		r.HostName != "" && r.GuestName != "" &&
		r.HostCharacter != nil && r.GuestCharacter != nil
}

// AddGuest fills the guest slot. It returns false if a guest is already
// present. When both slots end up filled the room advances to "playing".
func (r *Room) AddGuest(guestID, guestName string, guestCharacter map[string]any) bool {
	if r.GuestID != "" {
		return false
	}
	r.GuestID = guestID
	r.GuestName = guestName
	r.GuestCharacter = SanitizeCharacter(guestCharacter)
	if r.HasAllPlayers() {
		r.Status = RoomStatusPlaying
	}
	r.Touch()
	return true
}

// Touch bumps the last-updated timestamp.
func (r *Room) Touch() {
	r.LastUpdated = time.Now().UnixMilli()
}

// statusRank orders room statuses for the forward-only transition check.
func statusRank(status string) int {
	switch status {
	case RoomStatusWaiting:
		return 0
	case RoomStatusPlaying:
		return 1
	case RoomStatusCompleted:
		return 2
	}
	return -1
}

// CanTransitionTo reports whether moving to the given status would be a
// forward transition. Re-asserting the current status is allowed.
func (r *Room) CanTransitionTo(status string) bool {
	from, to := statusRank(r.Status), statusRank(status)
	return to >= 0 && to >= from
}

// SanitizeCharacter normalizes a character descriptor before storage: nil
// values are dropped, numbers are coerced to float64 (one level of nesting
// included), everything else is stringified, and the "id" and "name" keys are
// guaranteed to exist.
func SanitizeCharacter(character map[string]any) map[string]any {
	sanitized := make(map[string]any)
	for key, value := range character {
		if value == nil {
			continue
		}
		switch v := value.(type) {
		case map[string]any:
			nested := make(map[string]any)
			for nk, nv := range v {
				if nv == nil {
					continue
				}
				if n, ok := toFloat(nv); ok {
					nested[nk] = n
				} else {
					nested[nk] = stringify(nv)
				}
			}
			sanitized[key] = nested
		default:
			if n, ok := toFloat(v); ok {
				sanitized[key] = n
			} else {
				sanitized[key] = stringify(v)
			}
		}
	}
	if _, ok := sanitized["id"]; !ok {
		sanitized["id"] = "default"
	}
	if _, ok := sanitized["name"]; !ok {
		sanitized["name"] = "Unknown"
	}
	return sanitized
}
