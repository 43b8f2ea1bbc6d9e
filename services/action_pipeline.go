// services/action_pipeline.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"arena-combat-server/models"
)

// Rate limits keyed by (room, player type, action type). Movement streams at
// roughly 30 Hz; attacks are capped at two per second. Everything else is
// unthrottled. Critical (server-synthesized) actions bypass the limiter.
const (
	movementRateLimit = 33 * time.Millisecond
	attackRateLimit   = 500 * time.Millisecond
)

// Arena bounds visible to clients, used to validate reported move positions.
const (
	maxPositionX = 1280
	maxPositionY = 720
)

// ErrInvalidAction rejects a malformed or out-of-bounds action. The action is
// dropped without mutating state; nothing is broadcast to other clients.
var ErrInvalidAction = errors.New("invalid action")

// ActionPipeline ingests inbound actions for a room: rate-limit, sequence,
// validate, apply through the match engine, then broadcast. Any failure
// short-circuits without mutating state.
type ActionPipeline struct {
	rooms       *RoomService
	matches     *MatchService
	broadcaster Broadcaster

	mu        sync.Mutex
	lastSeen  map[string]time.Time // rate-limit key -> last accepted time
	sequences map[string]*int64    // room id -> next sequence source
	now       func() time.Time
}

func NewActionPipeline(rooms *RoomService, matches *MatchService, broadcaster Broadcaster) *ActionPipeline {
	return &ActionPipeline{
		rooms:       rooms,
		matches:     matches,
		broadcaster: broadcaster,
		lastSeen:    make(map[string]time.Time),
		sequences:   make(map[string]*int64),
		now:         time.Now,
	}
}

// Process runs one action through the pipeline. A rate-limited action is a
// silent drop, not an error: callers may safely re-deliver. The returned
// match is non-nil when the action mutated combat state.
func (p *ActionPipeline) Process(ctx context.Context, roomID string, action *models.Action) (*models.Match, error) {
	action.RoomID = roomID

	// 1. Rate limit, unless the action is a critical server correction.
	if !action.IsCritical && !p.allow(roomID, action) {
		log.Printf("[pipeline] rate limited %s action for room %s player %s",
			action.Type, roomID, action.PlayerType)
		return nil, nil
	}

	// 2. Room resolution. Sequence numbers are only issued for rooms that
	// exist, so the sequence space never leaks to stray traffic.
	room, err := p.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, fmt.Errorf("%w: unknown room %s", ErrInvalidAction, roomID)
	}

	// 3. Sequence and timestamp assignment.
	p.sequence(roomID, action)

	// 4. Validation.
	if err := validateAction(action); err != nil {
		return nil, err
	}

	switch action.Type {
	case models.ActionPing:
		p.broadcaster.Publish(RoomChannel(roomID), models.Action{
			RoomID:          roomID,
			PlayerID:        action.PlayerID,
			Type:            "pong",
			ServerTimestamp: p.now().UnixMilli(),
		})
		return nil, nil

	case models.ActionHealth:
		// Client-side health resyncs are rebroadcast on the reliable
		// channel but never applied: authoritative health only changes
		// through attack resolution.
		p.broadcaster.Publish(RoomReliableChannel(roomID), action)
		p.broadcaster.Publish(RoomChannel(roomID), action)
		return nil, nil
	}

	// 5. State-affecting dispatch through the single authoritative resolver.
	if room.GameID == "" {
		return nil, fmt.Errorf("%w: room %s has no active match", ErrInvalidAction, roomID)
	}
	action.GameID = room.GameID

	match, outcome, err := p.matches.ApplyAction(ctx, action)
	if err != nil {
		return nil, err
	}

	// 6. Broadcast the accepted action, then any synthesized follow-ups.
	p.broadcaster.Publish(RoomChannel(roomID), action)

	if outcome.Hit || outcome.RoundEnded {
		p.publishHealth(room, match, action.PlayerType)
	}
	if outcome.Finished {
		if err := p.finishRoom(ctx, room, match, outcome); err != nil {
			return match, err
		}
	}
	return match, nil
}

// allow checks and updates the rate-limit window for the action's key.
func (p *ActionPipeline) allow(roomID string, action *models.Action) bool {
	var minInterval time.Duration
	switch action.Type {
	case models.ActionMove:
		minInterval = movementRateLimit
	case models.ActionAttack:
		minInterval = attackRateLimit
	default:
		return true
	}

	key := roomID + "|" + action.PlayerType + "|" + action.Type
	now := p.now()

	p.mu.Lock()
	defer p.mu.Unlock()
	if last, ok := p.lastSeen[key]; ok && now.Sub(last) < minInterval {
		return false
	}
	p.lastSeen[key] = now
	return true
}

// sequence assigns the next per-room sequence number (starting at 1, gapless
// under this single ingestion point) and stamps timestamps.
func (p *ActionPipeline) sequence(roomID string, action *models.Action) {
	p.mu.Lock()
	seq, ok := p.sequences[roomID]
	if !ok {
		seq = new(int64)
		p.sequences[roomID] = seq
	}
	*seq++
	action.Sequence = *seq
	p.mu.Unlock()

	now := p.now().UnixMilli()
	action.ServerTimestamp = now
	if action.Timestamp <= 0 {
		action.Timestamp = now
	}
}

// validateAction enforces required fields, known action types and arena
// bounds on reported positions.
func validateAction(action *models.Action) error {
	if action.PlayerType == "" || action.Type == "" {
		return fmt.Errorf("%w: playerType and type are required", ErrInvalidAction)
	}
	switch action.Type {
	case models.ActionMove, models.ActionAttack, models.ActionJump,
		models.ActionHealth, models.ActionPing:
	case models.ActionGameOver:
		// Only the server synthesizes game-over notices.
		if !action.IsCritical {
			return fmt.Errorf("%w: gameOver is server-originated", ErrInvalidAction)
		}
	default:
		return fmt.Errorf("%w: unknown action type %q", ErrInvalidAction, action.Type)
	}
	if action.Type == models.ActionMove && action.Position != nil {
		pos := action.Position
		if pos.X < 0 || pos.X > maxPositionX || pos.Y < 0 || pos.Y > maxPositionY {
			return fmt.Errorf("%w: position out of bounds (%.0f,%.0f)", ErrInvalidAction, pos.X, pos.Y)
		}
	}
	return nil
}

// publishHealth synthesizes a critical health snapshot mapped onto the room's
// host/guest slots and publishes it on the reliable and primary channels.
func (p *ActionPipeline) publishHealth(room *models.Room, match *models.Match, attackerType string) {
	hostHealth, guestHealth := match.Player1.Health, match.Player2.Health
	if match.Player1.ID != room.HostID {
		hostHealth, guestHealth = guestHealth, hostHealth
	}

	healthAction := &models.Action{
		GameID:          match.ID,
		RoomID:          room.RoomID,
		PlayerType:      attackerType,
		Type:            models.ActionHealth,
		Data:            &models.ActionData{Health: &models.HealthData{HostHealth: hostHealth, GuestHealth: guestHealth}},
		Timestamp:       p.now().UnixMilli(),
		ServerTimestamp: p.now().UnixMilli(),
		IsCritical:      true,
	}
	p.broadcaster.Publish(RoomReliableChannel(room.RoomID), healthAction)
	p.broadcaster.Publish(RoomChannel(room.RoomID), healthAction)
}

// finishRoom synthesizes the critical game-over notice and completes the
// room.
func (p *ActionPipeline) finishRoom(ctx context.Context, room *models.Room, match *models.Match, outcome ApplyOutcome) error {
	winner := models.WinnerGuest
	if outcome.WinnerID == room.HostID {
		winner = models.WinnerHost
	}

	gameOver := &models.Action{
		GameID:          match.ID,
		RoomID:          room.RoomID,
		Type:            models.ActionGameOver,
		Data:            &models.ActionData{GameOver: &models.GameOverData{Winner: winner}},
		ServerTimestamp: p.now().UnixMilli(),
		IsCritical:      true,
	}
	p.broadcaster.Publish(RoomReliableChannel(room.RoomID), gameOver)
	p.broadcaster.Publish(RoomChannel(room.RoomID), gameOver)

	updated, err := p.rooms.UpdateStatus(ctx, room.RoomID, models.RoomStatusCompleted, winner)
	if err != nil {
		log.Printf("[pipeline] failed to complete room %s: %v", room.RoomID, err)
		return err
	}
	if updated != nil {
		p.PublishRoomState(updated)
	}
	return nil
}

// PublishRoomState pushes a room snapshot on the room's state channel.
func (p *ActionPipeline) PublishRoomState(room *models.Room) {
	state := map[string]any{
		"roomId":    room.RoomID,
		"status":    room.Status,
		"timestamp": p.now().UnixMilli(),
		"host":      map[string]any{"id": room.HostID, "name": room.HostName},
	}
	guest := map[string]any{}
	if room.GuestID != "" {
		guest["id"] = room.GuestID
		guest["name"] = room.GuestName
	}
	state["guest"] = guest
	if room.Winner != "" {
		state["winner"] = room.Winner
	}
	p.broadcaster.Publish(RoomStateChannel(room.RoomID), state)
}
