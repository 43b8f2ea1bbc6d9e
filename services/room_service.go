// services/room_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"arena-combat-server/models"
)

// ErrStatusRegression is returned when a status update would move a room
// backward (e.g. completed -> playing).
var ErrStatusRegression = errors.New("room status cannot move backward")

// RoomService owns the room lifecycle: create, join, status transitions and
// cleanup. It keeps a fast in-memory index in front of the durable store;
// every mutation is written through to the store before the cache is updated,
// so a storage failure leaves the cached view untouched.
type RoomService struct {
	store Store

	mu    sync.RWMutex
	rooms map[string]*models.Room
}

func NewRoomService(store Store) *RoomService {
	return &RoomService{
		store: store,
		rooms: make(map[string]*models.Room),
	}
}

// CreateRoom creates a waiting room for the host, persists it and indexes it
// in memory. It fails only on a storage error.
func (s *RoomService) CreateRoom(ctx context.Context, hostID, hostName string, hostCharacter map[string]any) (*models.Room, error) {
	room := models.NewRoom(hostID, hostName, hostCharacter)
	if err := s.store.Save(ctx, CollectionRooms, room.RoomID, room); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.rooms[room.RoomID] = room
	s.mu.Unlock()
	log.Printf("[rooms] created room %s for host %s", room.RoomID, hostName)
	return room, nil
}

// JoinRoom fills the guest slot of a waiting room. Conflicts are reported via
// the result's error code; only storage failures surface as errors. When both
// slots end up filled the room status flips to "playing". Match creation is
// the caller's responsibility: the join flow drives MatchService.CreateFromRoom
// and writes the game id back via SetGameID.
func (s *RoomService) JoinRoom(ctx context.Context, roomID, guestID, guestName string, guestCharacter map[string]any) (models.RoomJoinResult, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return models.JoinError(models.JoinErrInternal, "storage error"), err
	}
	if room == nil {
		return models.JoinError(models.JoinErrRoomNotFound, "Room not found"), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-read under the write lock: a concurrent join may have already
	// filled the slot.
	if cached, ok := s.rooms[roomID]; ok {
		room = cached
	}

	switch room.Status {
	case models.RoomStatusWaiting:
		// joinable
	case models.RoomStatusPlaying:
		return models.JoinError(models.JoinErrRoomInProgress, "Game is already in progress"), nil
	case models.RoomStatusCompleted:
		return models.JoinError(models.JoinErrRoomFinished, "Game has already finished"), nil
	default:
		return models.JoinError(models.JoinErrRoomNotAvailable, "Room is not available for joining"), nil
	}

	if room.GuestID != "" {
		return models.JoinError(models.JoinErrRoomFull, "Room already has two players"), nil
	}

	updated := *room
	if !updated.AddGuest(guestID, guestName, guestCharacter) {
		return models.JoinError(models.JoinErrRoomFull, "Room already has two players"), nil
	}
	updated.GuestReady = true

	if err := s.store.Save(ctx, CollectionRooms, updated.RoomID, &updated); err != nil {
		return models.JoinError(models.JoinErrInternal, "storage error"), err
	}
	s.rooms[updated.RoomID] = &updated

	log.Printf("[rooms] guest %s joined room %s (status=%s)", guestName, roomID, updated.Status)
	return models.JoinSuccess(&updated), nil
}

// GetRoom returns the cached room, falling back to the durable store and
// populating the cache on a hit. A missing room returns (nil, nil).
func (s *RoomService) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	s.mu.RLock()
	room, ok := s.rooms[roomID]
	s.mu.RUnlock()
	if ok {
		return room, nil
	}

	var loaded models.Room
	found, err := s.store.Load(ctx, CollectionRooms, roomID, &loaded)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	s.mu.Lock()
	s.rooms[roomID] = &loaded
	s.mu.Unlock()
	return &loaded, nil
}

// SetGameID attaches a match id to the room once play begins.
func (s *RoomService) SetGameID(ctx context.Context, roomID, gameID string) (*models.Room, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil || room == nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := *room
	updated.GameID = gameID
	updated.Touch()
	if err := s.store.Save(ctx, CollectionRooms, roomID, &updated); err != nil {
		return nil, err
	}
	s.rooms[roomID] = &updated
	return &updated, nil
}

// UpdateStatus moves a room to a new status and records the winner. Status
// transitions are forward-only: an attempt to move a completed room back to
// playing fails with ErrStatusRegression. A missing room returns (nil, nil).
func (s *RoomService) UpdateStatus(ctx context.Context, roomID, status, winner string) (*models.Room, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil || room == nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.rooms[roomID]; ok {
		room = cached
	}

	if !room.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrStatusRegression, room.Status, status)
	}

	updated := *room
	updated.Status = status
	updated.Winner = winner
	updated.Touch()
	if err := s.store.Save(ctx, CollectionRooms, roomID, &updated); err != nil {
		return nil, err
	}
	s.rooms[roomID] = &updated

	log.Printf("[rooms] room %s status -> %s (winner=%s)", roomID, status, winner)
	return &updated, nil
}

// ListRooms reads every room through from the durable store, refreshing the
// cache entry by entry.
func (s *RoomService) ListRooms(ctx context.Context) ([]*models.Room, error) {
	docs, err := s.store.LoadAll(ctx, CollectionRooms)
	if err != nil {
		return nil, err
	}

	rooms := make([]*models.Room, 0, len(docs))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range docs {
		var room models.Room
		if err := json.Unmarshal(doc, &room); err != nil {
			log.Printf("[rooms] skipping undecodable room record: %v", err)
			continue
		}
		s.rooms[room.RoomID] = &room
		rooms = append(rooms, &room)
	}
	return rooms, nil
}

// ListAvailable returns rooms that are waiting and still have an open guest
// slot.
func (s *RoomService) ListAvailable(ctx context.Context) ([]*models.Room, error) {
	rooms, err := s.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	available := make([]*models.Room, 0, len(rooms))
	for _, room := range rooms {
		if room.Status == models.RoomStatusWaiting && room.GuestID == "" {
			available = append(available, room)
		}
	}
	return available, nil
}

// RemoveRoom deletes a room from the store and the cache.
func (s *RoomService) RemoveRoom(ctx context.Context, roomID string) error {
	if err := s.store.Delete(ctx, CollectionRooms, roomID); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.rooms, roomID)
	s.mu.Unlock()
	return nil
}

// CleanupStaleRooms removes completed rooms and rooms idle for longer than
// maxAge. Returns how many rooms were removed.
func (s *RoomService) CleanupStaleRooms(ctx context.Context, maxAge time.Duration) (int, error) {
	rooms, err := s.ListRooms(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-maxAge).UnixMilli()

	removed := 0
	for _, room := range rooms {
		if room.Status != models.RoomStatusCompleted && room.LastUpdated >= cutoff {
			continue
		}
		if err := s.RemoveRoom(ctx, room.RoomID); err != nil {
			log.Printf("[rooms] failed to remove stale room %s: %v", room.RoomID, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		log.Printf("[rooms] cleaned up %d stale rooms", removed)
	}
	return removed, nil
}

// Clear deletes every room. Debug aid only.
func (s *RoomService) Clear(ctx context.Context) (int64, error) {
	deleted, err := s.store.DeleteAll(ctx, CollectionRooms)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.rooms = make(map[string]*models.Room)
	s.mu.Unlock()
	return deleted, nil
}

// CachedRoomCount reports the in-memory index size (debug endpoint).
func (s *RoomService) CachedRoomCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}
