// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// OfflineEntry holds one durable snapshot row of the offline mutation queue,
// keyed by (namespace, key). The namespace is "offline_<table>" so each
// entity type keeps an independent queue; the blob is the JSON-encoded
// mutation. A later write for the same (namespace, key) replaces the earlier
// row, mirroring the last-write-wins semantics of the in-memory queue.
type OfflineEntry struct {
	Namespace string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Key       string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Blob      []byte    `gorm:"type:BLOB NOT NULL"`
	UpdatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoUpdateTime"`
}

// TableName implements the GORM tabler interface.
func (OfflineEntry) TableName() string { return "offline_queue" }
