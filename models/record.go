// models/record.go
package models

import "time"

// StoredRecord is the durable row behind the document store: one JSON
// document per (collection, key) pair.
type StoredRecord struct {
	Collection string    `gorm:"primaryKey;size:64" json:"collection"`
	Key        string    `gorm:"primaryKey;size:64" json:"key"`
	Data       string    `gorm:"type:text;not null" json:"data"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
