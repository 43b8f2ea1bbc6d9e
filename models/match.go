// models/match.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Match statuses.
const (
	MatchStatusRunning  = "running"
	MatchStatusFinished = "finished"
)

// Facing directions.
const (
	FacingLeft  = "left"
	FacingRight = "right"
)

// Animation tags mirrored to clients.
const (
	AnimationIdle = "idle"
	AnimationRun  = "run"
	AnimationJump = "jump"
	AnimationHit  = "hit"
)

// PlayerState is the per-combatant mutable state inside a match.
type PlayerState struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Health           int    `json:"health"`
	X                int    `json:"x"`
	Y                int    `json:"y"`
	Facing           string `json:"facing"`
	Wins             int    `json:"wins"`
	CurrentAnimation string `json:"currentAnimation"`
	IsAttacking      bool   `json:"isAttacking"`
}

// Match is the authoritative combat state for one active session, tied 1:1
// to a room once play starts.
type Match struct {
	ID          string      `json:"id"`
	Player1     PlayerState `json:"player1"`
	Player2     PlayerState `json:"player2"`
	Round       int         `json:"round"`
	Status      string      `json:"status"`
	Winner      string      `json:"winner,omitempty"`
	LastUpdated int64       `json:"lastUpdated"`
}

// NewMatch creates a running match. Spawn positions are assigned by the
// match service.
func NewMatch(player1, player2 PlayerState) *Match {
	return &Match{
		ID:          uuid.NewString(),
		Player1:     player1,
		Player2:     player2,
		Round:       1,
		Status:      MatchStatusRunning,
		LastUpdated: time.Now().UnixMilli(),
	}
}

// IsOver reports whether either combatant has been knocked out this round.
func (m *Match) IsOver() bool {
	return m.Player1.Health <= 0 || m.Player2.Health <= 0
}

// Touch bumps the last-updated timestamp.
func (m *Match) Touch() {
	m.LastUpdated = time.Now().UnixMilli()
}
