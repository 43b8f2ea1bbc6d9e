package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"arena-combat-server/models"
)

type pipelineFixture struct {
	rooms    *RoomService
	matches  *MatchService
	bus      *recordingBroadcaster
	pipeline *ActionPipeline
	room     *models.Room
	match    *models.Match
	clock    time.Time
}

// newPipelineFixture builds a playing room with an active match and a
// pipeline on a manually advanced clock.
func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	ctx := context.Background()
	store := newMemStore()

	f := &pipelineFixture{
		rooms:   NewRoomService(store),
		matches: NewMatchService(store),
		bus:     newRecordingBroadcaster(),
		clock:   time.UnixMilli(1_700_000_000_000),
	}
	f.pipeline = NewActionPipeline(f.rooms, f.matches, f.bus)
	f.pipeline.now = func() time.Time { return f.clock }

	room, err := f.rooms.CreateRoom(ctx, "h1", "Alice", nil)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	result, err := f.rooms.JoinRoom(ctx, room.RoomID, "g1", "Bob", nil)
	if err != nil || !result.Success {
		t.Fatalf("JoinRoom: err=%v code=%s", err, result.ErrorCode)
	}
	match, err := f.matches.CreateFromRoom(ctx, result.Room)
	if err != nil {
		t.Fatalf("CreateFromRoom: %v", err)
	}
	f.match = match
	f.room, err = f.rooms.SetGameID(ctx, room.RoomID, match.ID)
	if err != nil {
		t.Fatalf("SetGameID: %v", err)
	}
	return f
}

func (f *pipelineFixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func (f *pipelineFixture) jump(playerID, playerType string) *models.Action {
	return &models.Action{
		PlayerID:   playerID,
		PlayerType: playerType,
		Type:       models.ActionJump,
	}
}

func decodeActions(t *testing.T, docs []json.RawMessage) []models.Action {
	t.Helper()
	actions := make([]models.Action, 0, len(docs))
	for _, doc := range docs {
		var a models.Action
		if err := json.Unmarshal(doc, &a); err != nil {
			t.Fatalf("decode broadcast action: %v", err)
		}
		actions = append(actions, a)
	}
	return actions
}

func TestProcessAssignsGaplessSequences(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		action := f.jump("h1", models.PlayerTypeHost)
		if _, err := f.pipeline.Process(ctx, f.room.RoomID, action); err != nil {
			t.Fatalf("Process: %v", err)
		}
		if action.Sequence != want {
			t.Fatalf("sequence = %d, want %d", action.Sequence, want)
		}
		if action.ServerTimestamp != f.clock.UnixMilli() {
			t.Fatalf("serverTimestamp = %d, want clock", action.ServerTimestamp)
		}
		if action.Timestamp == 0 {
			t.Fatal("client timestamp should be backfilled")
		}
	}

	// A second room counts from 1 on its own.
	other, err := f.rooms.CreateRoom(ctx, "h2", "Carol", nil)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	action := &models.Action{PlayerType: models.PlayerTypeHost, Type: models.ActionPing}
	if _, err := f.pipeline.Process(ctx, other.RoomID, action); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if action.Sequence != 1 {
		t.Fatalf("sequence = %d, want 1 for new room", action.Sequence)
	}
}

func TestProcessRateLimitsMovement(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	move := func() *models.Action {
		return &models.Action{
			PlayerID:   "h1",
			PlayerType: models.PlayerTypeHost,
			Type:       models.ActionMove,
			Direction:  models.FacingRight,
		}
	}

	first := move()
	if _, err := f.pipeline.Process(ctx, f.room.RoomID, first); err != nil {
		t.Fatalf("first move: %v", err)
	}

	// Within the movement window: dropped silently, no sequence consumed.
	burst := move()
	match, err := f.pipeline.Process(ctx, f.room.RoomID, burst)
	if err != nil {
		t.Fatalf("burst move: %v", err)
	}
	if match != nil || burst.Sequence != 0 {
		t.Fatalf("burst move should be dropped: match=%v seq=%d", match, burst.Sequence)
	}

	// The guest's window is independent of the host's.
	guestMove := &models.Action{
		PlayerID: "g1", PlayerType: models.PlayerTypeGuest,
		Type: models.ActionMove, Direction: models.FacingLeft,
	}
	if m, err := f.pipeline.Process(ctx, f.room.RoomID, guestMove); err != nil || m == nil {
		t.Fatalf("guest move should pass: match=%v err=%v", m, err)
	}

	// Past the window the host can move again.
	f.advance(40 * time.Millisecond)
	late := move()
	if m, err := f.pipeline.Process(ctx, f.room.RoomID, late); err != nil || m == nil {
		t.Fatalf("late move should pass: match=%v err=%v", m, err)
	}
}

func TestProcessRateLimitsAttacks(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	attack := func() *models.Action {
		return &models.Action{
			PlayerID:   "h1",
			PlayerType: models.PlayerTypeHost,
			Type:       models.ActionAttack,
			AttackType: models.AttackLight,
		}
	}

	if _, err := f.pipeline.Process(ctx, f.room.RoomID, attack()); err != nil {
		t.Fatalf("first attack: %v", err)
	}

	f.advance(100 * time.Millisecond)
	spam := attack()
	if m, err := f.pipeline.Process(ctx, f.room.RoomID, spam); err != nil || m != nil {
		t.Fatalf("attack within 500ms should be dropped: match=%v err=%v", m, err)
	}

	f.advance(500 * time.Millisecond)
	if m, err := f.pipeline.Process(ctx, f.room.RoomID, attack()); err != nil || m == nil {
		t.Fatalf("attack after window should pass: match=%v err=%v", m, err)
	}
}

func TestProcessValidation(t *testing.T) {
	tests := []struct {
		name   string
		action *models.Action
	}{
		{
			name:   "missing player type",
			action: &models.Action{Type: models.ActionJump, PlayerID: "h1"},
		},
		{
			name:   "missing action type",
			action: &models.Action{PlayerType: models.PlayerTypeHost, PlayerID: "h1"},
		},
		{
			name:   "unknown action type",
			action: &models.Action{PlayerType: models.PlayerTypeHost, PlayerID: "h1", Type: "teleport"},
		},
		{
			name:   "client-originated game over",
			action: &models.Action{PlayerType: models.PlayerTypeHost, PlayerID: "h1", Type: models.ActionGameOver},
		},
		{
			name: "position out of bounds",
			action: &models.Action{
				PlayerType: models.PlayerTypeHost, PlayerID: "h1",
				Type: models.ActionMove, Direction: models.FacingRight,
				Position: &models.Position{X: 5000, Y: 100},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newPipelineFixture(t)
			_, err := f.pipeline.Process(context.Background(), f.room.RoomID, tc.action)
			if !errors.Is(err, ErrInvalidAction) {
				t.Fatalf("err = %v, want ErrInvalidAction", err)
			}
		})
	}
}

func TestProcessPingAnswersPong(t *testing.T) {
	f := newPipelineFixture(t)

	ping := &models.Action{PlayerID: "h1", PlayerType: models.PlayerTypeHost, Type: models.ActionPing}
	match, err := f.pipeline.Process(context.Background(), f.room.RoomID, ping)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if match != nil {
		t.Fatal("ping must not touch combat state")
	}

	published := decodeActions(t, f.bus.published(RoomChannel(f.room.RoomID)))
	if len(published) != 1 || published[0].Type != "pong" {
		t.Fatalf("published = %+v, want a single pong", published)
	}
}

func TestProcessHealthIsRebroadcastNotApplied(t *testing.T) {
	f := newPipelineFixture(t)

	health := &models.Action{
		PlayerID:   "h1",
		PlayerType: models.PlayerTypeHost,
		Type:       models.ActionHealth,
		Data: &models.ActionData{
			Health: &models.HealthData{HostHealth: 1, GuestHealth: 1},
		},
	}
	match, err := f.pipeline.Process(context.Background(), f.room.RoomID, health)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if match != nil {
		t.Fatal("health resync must not touch combat state")
	}

	// Rebroadcast on both the reliable and primary channels.
	if n := len(f.bus.published(RoomReliableChannel(f.room.RoomID))); n != 1 {
		t.Fatalf("reliable broadcasts = %d, want 1", n)
	}
	if n := len(f.bus.published(RoomChannel(f.room.RoomID))); n != 1 {
		t.Fatalf("primary broadcasts = %d, want 1", n)
	}

	// Authoritative health is untouched.
	current, err := f.matches.GetMatch(context.Background(), f.match.ID)
	if err != nil {
		t.Fatalf("GetMatch: %v", err)
	}
	if current.Player1.Health != 100 || current.Player2.Health != 100 {
		t.Fatalf("health = %d/%d, want 100/100", current.Player1.Health, current.Player2.Health)
	}
}

func TestProcessHitSynthesizesHealthSnapshot(t *testing.T) {
	f := newPipelineFixture(t)
	adjust(f.matches, f.match.ID, func(m *models.Match) {
		m.Player1.X = 300
		m.Player2.X = 400
	})

	attack := &models.Action{
		PlayerID:   "h1",
		PlayerType: models.PlayerTypeHost,
		Type:       models.ActionAttack,
		AttackType: models.AttackLight,
	}
	if _, err := f.pipeline.Process(context.Background(), f.room.RoomID, attack); err != nil {
		t.Fatalf("Process: %v", err)
	}

	reliable := decodeActions(t, f.bus.published(RoomReliableChannel(f.room.RoomID)))
	if len(reliable) != 1 {
		t.Fatalf("reliable broadcasts = %d, want 1 health snapshot", len(reliable))
	}
	snap := reliable[0]
	if snap.Type != models.ActionHealth || !snap.IsCritical {
		t.Fatalf("snapshot = type:%q critical:%v", snap.Type, snap.IsCritical)
	}
	if snap.Data == nil || snap.Data.Health == nil {
		t.Fatal("snapshot missing health data")
	}
	if snap.Data.Health.HostHealth != 100 || snap.Data.Health.GuestHealth != 90 {
		t.Fatalf("health = %d/%d, want 100/90", snap.Data.Health.HostHealth, snap.Data.Health.GuestHealth)
	}
}

func TestProcessMatchFinishCompletesRoom(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()
	adjust(f.matches, f.match.ID, func(m *models.Match) {
		m.Player1.X = 300
		m.Player2.X = 400
		m.Player1.Wins = 1
		m.Player2.Health = 10
	})

	attack := &models.Action{
		PlayerID:   "h1",
		PlayerType: models.PlayerTypeHost,
		Type:       models.ActionAttack,
		AttackType: models.AttackLight,
	}
	match, err := f.pipeline.Process(ctx, f.room.RoomID, attack)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if match.Status != models.MatchStatusFinished {
		t.Fatalf("match status = %q, want finished", match.Status)
	}

	reliable := decodeActions(t, f.bus.published(RoomReliableChannel(f.room.RoomID)))
	var gameOver *models.Action
	for i := range reliable {
		if reliable[i].Type == models.ActionGameOver {
			gameOver = &reliable[i]
		}
	}
	if gameOver == nil {
		t.Fatal("no gameOver broadcast on reliable channel")
	}
	if !gameOver.IsCritical || gameOver.Data == nil || gameOver.Data.GameOver == nil {
		t.Fatalf("gameOver = %+v, want critical with winner data", gameOver)
	}
	if gameOver.Data.GameOver.Winner != models.WinnerHost {
		t.Fatalf("winner = %q, want host", gameOver.Data.GameOver.Winner)
	}

	room, err := f.rooms.GetRoom(ctx, f.room.RoomID)
	if err != nil {
		t.Fatalf("GetRoom: %v", err)
	}
	if room.Status != models.RoomStatusCompleted || room.Winner != models.WinnerHost {
		t.Fatalf("room = status:%q winner:%q, want completed/host", room.Status, room.Winner)
	}

	if n := len(f.bus.published(RoomStateChannel(f.room.RoomID))); n == 0 {
		t.Fatal("expected room state snapshot after completion")
	}
}

func TestProcessRejectsUnknownRoom(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	ping := &models.Action{PlayerType: models.PlayerTypeHost, Type: models.ActionPing}
	_, err := f.pipeline.Process(ctx, "no-such-room", ping)
	if !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("err = %v, want ErrInvalidAction", err)
	}
	if ping.Sequence != 0 {
		t.Fatalf("sequence = %d, want none issued for an unknown room", ping.Sequence)
	}
	if n := len(f.bus.published(RoomChannel("no-such-room"))); n != 0 {
		t.Fatalf("broadcasts = %d, want none for an unknown room", n)
	}

	health := &models.Action{PlayerType: models.PlayerTypeHost, Type: models.ActionHealth}
	if _, err := f.pipeline.Process(ctx, "no-such-room", health); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("health err = %v, want ErrInvalidAction", err)
	}
	if n := len(f.bus.published(RoomReliableChannel("no-such-room"))); n != 0 {
		t.Fatalf("reliable broadcasts = %d, want none for an unknown room", n)
	}
}

func TestProcessConcurrentActionsSequenceWithoutGaps(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	const n = 50
	sequences := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			action := f.jump("h1", models.PlayerTypeHost)
			if _, err := f.pipeline.Process(ctx, f.room.RoomID, action); err != nil {
				t.Errorf("Process: %v", err)
				return
			}
			sequences <- action.Sequence
		}()
	}
	wg.Wait()
	close(sequences)

	seen := make(map[int64]bool, n)
	for seq := range sequences {
		if seq < 1 || seq > n {
			t.Fatalf("sequence %d outside 1..%d", seq, n)
		}
		if seen[seq] {
			t.Fatalf("sequence %d issued twice", seq)
		}
		seen[seq] = true
	}
	if len(seen) != n {
		t.Fatalf("issued %d distinct sequences, want %d", len(seen), n)
	}
}

func TestProcessRejectsRoomWithoutMatch(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	idle, err := f.rooms.CreateRoom(ctx, "h2", "Carol", nil)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	_, err = f.pipeline.Process(ctx, idle.RoomID, f.jump("h2", models.PlayerTypeHost))
	if !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("err = %v, want ErrInvalidAction", err)
	}
}

func TestCriticalActionBypassesRateLimit(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	attack := func(critical bool) *models.Action {
		return &models.Action{
			PlayerID:   "h1",
			PlayerType: models.PlayerTypeHost,
			Type:       models.ActionAttack,
			AttackType: models.AttackLight,
			IsCritical: critical,
		}
	}

	if _, err := f.pipeline.Process(ctx, f.room.RoomID, attack(false)); err != nil {
		t.Fatalf("first attack: %v", err)
	}
	// Still inside the attack window, but critical actions pass.
	m, err := f.pipeline.Process(ctx, f.room.RoomID, attack(true))
	if err != nil || m == nil {
		t.Fatalf("critical attack should pass: match=%v err=%v", m, err)
	}
}
