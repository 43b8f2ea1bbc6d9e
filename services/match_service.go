// services/match_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"arena-combat-server/models"
)

// Combat tuning. The arena is one-dimensional: players slide along x and the
// hit test is a range-and-facing check.
const (
	moveSpeed         = 8
	attackDamage      = 10
	heavyAttackDamage = 15
	attackRange       = 250
	arenaWidth        = 1200
	spriteWidth       = 500
	maxHealth         = 100
	winsToFinish      = 2
)

var (
	// ErrMatchNotRunning rejects actions against a finished or missing match.
	ErrMatchNotRunning = errors.New("match is not running")
	// ErrUnknownPlayer rejects actions whose player id is not in the match.
	ErrUnknownPlayer = errors.New("player is not part of this match")
)

// ApplyOutcome summarizes what a single action actually did, so the pipeline
// can synthesize critical follow-up events without re-deriving combat math.
type ApplyOutcome struct {
	Hit        bool
	Damage     int
	RoundEnded bool
	Finished   bool
	WinnerID   string
	WinnerName string
}

// MatchService owns authoritative combat state. All mutations of a match are
// funneled through a per-match lock, so two concurrent attacks can never read
// stale health.
type MatchService struct {
	store Store

	mu      sync.RWMutex
	matches map[string]*models.Match
	gates   map[string]*sync.Mutex
}

func NewMatchService(store Store) *MatchService {
	return &MatchService{
		store:   store,
		matches: make(map[string]*models.Match),
		gates:   make(map[string]*sync.Mutex),
	}
}

// gate returns the per-match mutex, creating it on first use.
func (s *MatchService) gate(matchID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gates[matchID]
	if !ok {
		g = &sync.Mutex{}
		s.gates[matchID] = g
	}
	return g
}

// CreateMatch starts a running match with player1 at arena-left facing right
// and player2 at arena-right facing left.
func (s *MatchService) CreateMatch(ctx context.Context, player1, player2 models.PlayerState) (*models.Match, error) {
	resetToSpawn(&player1, &player2)
	match := models.NewMatch(player1, player2)

	if err := s.store.Save(ctx, CollectionMatches, match.ID, match); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.matches[match.ID] = match
	s.mu.Unlock()

	log.Printf("[matches] created match %s: %s vs %s", match.ID, player1.Name, player2.Name)
	return match, nil
}

// CreateFromRoom starts the match for a room that just transitioned to
// playing: host is player1, guest is player2.
func (s *MatchService) CreateFromRoom(ctx context.Context, room *models.Room) (*models.Match, error) {
	host := models.PlayerState{ID: room.HostID, Name: room.HostName}
	guest := models.PlayerState{ID: room.GuestID, Name: room.GuestName}
	return s.CreateMatch(ctx, host, guest)
}

// GetMatch returns the cached match, falling back to the durable store. A
// missing match returns (nil, nil).
func (s *MatchService) GetMatch(ctx context.Context, matchID string) (*models.Match, error) {
	s.mu.RLock()
	match, ok := s.matches[matchID]
	s.mu.RUnlock()
	if ok {
		return match, nil
	}

	var loaded models.Match
	found, err := s.store.Load(ctx, CollectionMatches, matchID, &loaded)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	s.mu.Lock()
	s.matches[matchID] = &loaded
	s.mu.Unlock()
	return &loaded, nil
}

// ListMatches reads every match through from the durable store.
func (s *MatchService) ListMatches(ctx context.Context) ([]*models.Match, error) {
	docs, err := s.store.LoadAll(ctx, CollectionMatches)
	if err != nil {
		return nil, err
	}
	matches := make([]*models.Match, 0, len(docs))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range docs {
		var match models.Match
		if err := json.Unmarshal(doc, &match); err != nil {
			log.Printf("[matches] skipping undecodable match record: %v", err)
			continue
		}
		s.matches[match.ID] = &match
		matches = append(matches, &match)
	}
	return matches, nil
}

// CachedMatchCount reports how many matches are resident in memory.
func (s *MatchService) CachedMatchCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matches)
}

// ApplyAction applies a single combat action to the match named by
// action.GameID and persists the result before returning. It is the only
// place combat state is resolved.
func (s *MatchService) ApplyAction(ctx context.Context, action *models.Action) (*models.Match, ApplyOutcome, error) {
	match, err := s.GetMatch(ctx, action.GameID)
	if err != nil {
		return nil, ApplyOutcome{}, err
	}
	if match == nil || match.Status != models.MatchStatusRunning {
		return nil, ApplyOutcome{}, ErrMatchNotRunning
	}

	g := s.gate(match.ID)
	g.Lock()
	defer g.Unlock()

	// Re-read inside the gate: another action may have finished the match.
	s.mu.RLock()
	if cached, ok := s.matches[match.ID]; ok {
		match = cached
	}
	s.mu.RUnlock()
	if match.Status != models.MatchStatusRunning {
		return nil, ApplyOutcome{}, ErrMatchNotRunning
	}

	updated := *match
	var player, opponent *models.PlayerState
	switch action.PlayerID {
	case updated.Player1.ID:
		player, opponent = &updated.Player1, &updated.Player2
	case updated.Player2.ID:
		player, opponent = &updated.Player2, &updated.Player1
	default:
		return nil, ApplyOutcome{}, ErrUnknownPlayer
	}

	var outcome ApplyOutcome
	switch action.Type {
	case models.ActionMove:
		applyMove(player, action.Direction)
	case models.ActionAttack:
		outcome.Hit, outcome.Damage = applyAttack(player, opponent, action.AttackType)
	case models.ActionJump:
		player.CurrentAnimation = models.AnimationJump
	}

	if updated.IsOver() {
		nextRound(&updated)
		outcome.RoundEnded = true

		if winner := matchWinner(&updated); winner != nil {
			updated.Status = models.MatchStatusFinished
			updated.Winner = winner.Name
			outcome.Finished = true
			outcome.WinnerID = winner.ID
			outcome.WinnerName = winner.Name
			log.Printf("[matches] match %s finished, winner: %s", updated.ID, winner.Name)
		}
	}
	updated.Touch()

	if err := s.store.Save(ctx, CollectionMatches, updated.ID, &updated); err != nil {
		return nil, ApplyOutcome{}, err
	}
	s.mu.Lock()
	s.matches[updated.ID] = &updated
	s.mu.Unlock()

	return &updated, outcome, nil
}

// applyMove slides the player one tick in the requested direction, clamped to
// the arena.
func applyMove(player *models.PlayerState, direction string) {
	switch direction {
	case models.FacingLeft:
		player.X -= moveSpeed
		if player.X < 0 {
			player.X = 0
		}
		player.Facing = models.FacingLeft
		player.CurrentAnimation = models.AnimationRun
	case models.FacingRight:
		player.X += moveSpeed
		if player.X > arenaWidth-spriteWidth {
			player.X = arenaWidth - spriteWidth
		}
		player.Facing = models.FacingRight
		player.CurrentAnimation = models.AnimationRun
	}
}

// applyAttack performs the range-and-facing hit test and, on a hit, deals
// damage clamped at zero health.
func applyAttack(attacker, defender *models.PlayerState, attackType string) (bool, int) {
	attacker.IsAttacking = true
	if attackType == "" {
		attackType = models.AttackLight
	}
	attacker.CurrentAnimation = attackType

	distance := attacker.X - defender.X
	if distance < 0 {
		distance = -distance
	}
	facingDefender := (attacker.Facing == models.FacingRight && attacker.X < defender.X) ||
		(attacker.Facing == models.FacingLeft && attacker.X > defender.X)
	if distance > attackRange || !facingDefender {
		return false, 0
	}

	damage := attackDamage
	if attackType == models.AttackHeavy {
		damage = heavyAttackDamage
	}
	defender.Health -= damage
	if defender.Health < 0 {
		defender.Health = 0
	}
	defender.CurrentAnimation = models.AnimationHit
	return true, damage
}

// nextRound credits the survivor, resets both combatants to spawn state and
// advances the round counter.
func nextRound(match *models.Match) {
	if match.Player1.Health <= 0 {
		match.Player2.Wins++
	} else if match.Player2.Health <= 0 {
		match.Player1.Wins++
	}
	resetToSpawn(&match.Player1, &match.Player2)
	match.Round++
}

// matchWinner returns the player who has taken enough rounds, or nil.
func matchWinner(match *models.Match) *models.PlayerState {
	if match.Player1.Wins >= winsToFinish {
		return &match.Player1
	}
	if match.Player2.Wins >= winsToFinish {
		return &match.Player2
	}
	return nil
}

// resetToSpawn puts both combatants back at their corners at full health.
func resetToSpawn(p1, p2 *models.PlayerState) {
	p1.Health = maxHealth
	p1.X = 0
	p1.Facing = models.FacingRight
	p1.CurrentAnimation = models.AnimationIdle
	p1.IsAttacking = false

	p2.Health = maxHealth
	p2.X = arenaWidth - spriteWidth
	p2.Facing = models.FacingLeft
	p2.CurrentAnimation = models.AnimationIdle
	p2.IsAttacking = false
}
