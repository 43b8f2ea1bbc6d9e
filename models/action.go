// models/action.go
package models

// Action types accepted by the ingestion pipeline.
const (
	ActionMove     = "move"
	ActionAttack   = "attack"
	ActionJump     = "jump"
	ActionHealth   = "health"
	ActionGameOver = "gameOver"
	ActionPing     = "ping"
)

// Player types identifying which slot of the room an action came from.
const (
	PlayerTypeHost  = "host"
	PlayerTypeGuest = "guest"
)

// Attack variants. Attack2 is the heavy variant and deals extra damage.
const (
	AttackLight = "attack1"
	AttackHeavy = "attack2"
)

// Position is an optional client-reported coordinate attached to move
// actions, validated against the visible arena bounds.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// HealthData carries an authoritative health snapshot for both players.
// Synthesized server-side after every registered hit.
type HealthData struct {
	HostHealth  int `json:"hostHealth"`
	GuestHealth int `json:"guestHealth"`
}

// GameOverData names the winning slot when a match finishes.
type GameOverData struct {
	Winner string `json:"winner"` // "host" or "guest"
}

// ActionData is the typed payload attached to health and gameOver actions.
// Exactly one field is set, matching the action type.
type ActionData struct {
	Health   *HealthData   `json:"health,omitempty"`
	GameOver *GameOverData `json:"gameOver,omitempty"`
}

// Action is a single client- or server-originated event. The pipeline assigns
// Sequence and ServerTimestamp; IsCritical exempts server-synthesized
// corrections from rate limiting.
type Action struct {
	GameID          string      `json:"gameId,omitempty"`
	RoomID          string      `json:"roomId,omitempty"`
	PlayerID        string      `json:"playerId,omitempty"`
	PlayerType      string      `json:"playerType,omitempty"`
	Type            string      `json:"type"`
	Direction       string      `json:"direction,omitempty"`  // left, right (move)
	AttackType      string      `json:"attackType,omitempty"` // attack1, attack2
	Data            *ActionData `json:"data,omitempty"`
	Position        *Position   `json:"position,omitempty"`
	Timestamp       int64       `json:"timestamp,omitempty"`
	ServerTimestamp int64       `json:"serverTimestamp,omitempty"`
	Sequence        int64       `json:"sequence,omitempty"`
	IsCritical      bool        `json:"isCritical,omitempty"`
}
