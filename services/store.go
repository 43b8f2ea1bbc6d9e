// services/store.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"arena-combat-server/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Collections used by the services.
const (
	CollectionRooms   = "rooms"
	CollectionMatches = "matches"
	CollectionUsers   = "users"
)

// Store is the durable read/write boundary. Implementations are synchronous;
// failures surface as errors and are never retried here.
type Store interface {
	Save(ctx context.Context, collection, key string, record any) error
	Load(ctx context.Context, collection, key string, out any) (bool, error)
	LoadAll(ctx context.Context, collection string) ([]json.RawMessage, error)
	Delete(ctx context.Context, collection, key string) error
	DeleteAll(ctx context.Context, collection string) (int64, error)
}

// GormStore persists JSON documents into the stored_records table.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

// Save upserts the record as a JSON document under (collection, key).
func (s *GormStore) Save(ctx context.Context, collection, key string, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", collection, key, err)
	}
	row := models.StoredRecord{Collection: collection, Key: key, Data: string(data)}
	if err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&row).Error; err != nil {
		return fmt.Errorf("save %s/%s: %w", collection, key, err)
	}
	return nil
}

// Load reads the record into out. The second return is false when no record
// exists.
func (s *GormStore) Load(ctx context.Context, collection, key string, out any) (bool, error) {
	var row models.StoredRecord
	err := s.DB.WithContext(ctx).
		First(&row, "collection = ? AND key = ?", collection, key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s/%s: %w", collection, key, err)
	}
	if err := json.Unmarshal([]byte(row.Data), out); err != nil {
		return false, fmt.Errorf("decode %s/%s: %w", collection, key, err)
	}
	return true, nil
}

// LoadAll returns every document in a collection as raw JSON.
func (s *GormStore) LoadAll(ctx context.Context, collection string) ([]json.RawMessage, error) {
	var rows []models.StoredRecord
	if err := s.DB.WithContext(ctx).
		Where("collection = ?", collection).
		Order("key ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load all %s: %w", collection, err)
	}
	docs := make([]json.RawMessage, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, json.RawMessage(row.Data))
	}
	return docs, nil
}

// Delete removes a single document. Deleting a missing document is not an
// error.
func (s *GormStore) Delete(ctx context.Context, collection, key string) error {
	if err := s.DB.WithContext(ctx).
		Delete(&models.StoredRecord{}, "collection = ? AND key = ?", collection, key).Error; err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, key, err)
	}
	return nil
}

// DeleteAll drops an entire collection and reports how many documents went.
func (s *GormStore) DeleteAll(ctx context.Context, collection string) (int64, error) {
	res := s.DB.WithContext(ctx).
		Delete(&models.StoredRecord{}, "collection = ?", collection)
	if res.Error != nil {
		return 0, fmt.Errorf("clear %s: %w", collection, res.Error)
	}
	return res.RowsAffected, nil
}
