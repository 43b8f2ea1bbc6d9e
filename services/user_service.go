// services/user_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"arena-combat-server/models"
)

// ErrUserNotFound is returned for operations against a missing profile.
var ErrUserNotFound = errors.New("user not found")

// Rating and reward deltas applied after a match.
const (
	ratingWinDelta  = 15
	ratingLossDelta = -10
	coinsWinReward  = 25
	coinsLossReward = 5
	gemsWinReward   = 1
)

// UserService manages player profiles, currency and inventory.
type UserService struct {
	store Store
}

func NewUserService(store Store) *UserService {
	return &UserService{store: store}
}

// CreateUser persists a new profile. A missing id is generated.
func (s *UserService) CreateUser(ctx context.Context, id, name, email string) (*models.User, error) {
	user := models.NewUser(id, name, email)
	if err := s.store.Save(ctx, CollectionUsers, user.ID, user); err != nil {
		return nil, err
	}
	log.Printf("[users] created user %s (%s)", user.Name, user.ID)
	return user, nil
}

// GetUser returns (nil, nil) when the profile does not exist.
func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	found, err := s.store.Load(ctx, CollectionUsers, userID, &user)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &user, nil
}

// ListUsers returns every stored profile.
func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	docs, err := s.store.LoadAll(ctx, CollectionUsers)
	if err != nil {
		return nil, err
	}
	users := make([]*models.User, 0, len(docs))
	for _, doc := range docs {
		var user models.User
		if err := json.Unmarshal(doc, &user); err != nil {
			log.Printf("[users] skipping undecodable user record: %v", err)
			continue
		}
		users = append(users, &user)
	}
	return users, nil
}

// UpdateUser overwrites an existing profile.
func (s *UserService) UpdateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		return ErrUserNotFound
	}
	user.UpdateRank()
	return s.store.Save(ctx, CollectionUsers, user.ID, user)
}

// DeleteUser removes a profile.
func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	return s.store.Delete(ctx, CollectionUsers, userID)
}

// ApplyMatchResult adjusts rating, rank and currency after a match: winners
// gain rating, coins and a gem; losers lose rating but keep a participation
// reward.
func (s *UserService) ApplyMatchResult(ctx context.Context, userID string, won bool) (*models.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	ratingDelta, coinDelta, gemDelta := ratingLossDelta, coinsLossReward, 0
	if won {
		ratingDelta, coinDelta, gemDelta = ratingWinDelta, coinsWinReward, gemsWinReward
	}

	user.Rating += ratingDelta
	if user.Rating < 0 {
		user.Rating = 0
	}
	user.Coins += coinDelta
	user.Gems += gemDelta
	user.UpdateRank()

	if err := s.store.Save(ctx, CollectionUsers, user.ID, user); err != nil {
		return nil, err
	}
	return user, nil
}

// AdjustCurrency applies coin/gem deltas, flooring both balances at zero.
func (s *UserService) AdjustCurrency(ctx context.Context, userID string, coinDelta, gemDelta int) (*models.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	user.Coins += coinDelta
	if user.Coins < 0 {
		user.Coins = 0
	}
	user.Gems += gemDelta
	if user.Gems < 0 {
		user.Gems = 0
	}

	if err := s.store.Save(ctx, CollectionUsers, user.ID, user); err != nil {
		return nil, err
	}
	return user, nil
}

// AddToInventory grants an item (idempotent).
func (s *UserService) AddToInventory(ctx context.Context, userID, itemID string) (*models.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	user.AddToInventory(itemID)
	if err := s.store.Save(ctx, CollectionUsers, user.ID, user); err != nil {
		return nil, err
	}
	return user, nil
}

// HasItem reports whether the user owns the given item.
func (s *UserService) HasItem(ctx context.Context, userID, itemID string) (bool, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, ErrUserNotFound
	}
	return user.HasItem(itemID), nil
}
