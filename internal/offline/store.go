// Package offline implements the offline mutation queue: write intents
// captured while the remote backend is unreachable, persisted durably, and
// replayed sequentially once connectivity returns.
//
// This file defines the durable snapshot store behind the queue. The store
// is a plain namespace/key → JSON blob mapping; the queue persists its whole
// map on every change, mirroring the overwrite-the-snapshot semantics of the
// original client-side storage. No schema versioning is applied.
package offline

import (
	"context"

	"gorm.io/gorm"

	"github.com/henrimbassi12/gulfmaintain-backend/internal/domain"
)

// Store is the durable blob store used by Queue. Implementations must make
// Save atomic per namespace: a reload after Save observes exactly the saved
// snapshot, never a partial one.
type Store interface {
	// Load returns every blob saved under the namespace, keyed by entity key.
	// An unknown namespace yields an empty map, not an error.
	Load(ctx context.Context, namespace string) (map[string][]byte, error)

	// Save replaces the namespace's snapshot with the given map. An empty or
	// nil map clears the namespace.
	Save(ctx context.Context, namespace string, blobs map[string][]byte) error
}

// GormStore persists queue snapshots in the offline_queue table of the local
// SQLite database, so queued mutations survive process restarts alongside
// the optimistic rows they describe.
type GormStore struct {
	DB *gorm.DB
}

// NewGormStore returns a Store backed by the given GORM handle.
func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{DB: db} }

// Load implements Store.
func (s *GormStore) Load(ctx context.Context, namespace string) (map[string][]byte, error) {
	var rows []domain.OfflineEntry
	err := s.DB.WithContext(ctx).
		Where("namespace = ?", namespace).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Blob
	}
	return out, nil
}

// Save implements Store. The snapshot swap runs in one transaction so a
// crash mid-save never leaves a mixed snapshot.
func (s *GormStore) Save(ctx context.Context, namespace string, blobs map[string][]byte) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("namespace = ?", namespace).Delete(&domain.OfflineEntry{}).Error; err != nil {
			return err
		}
		for key, blob := range blobs {
			row := domain.OfflineEntry{Namespace: namespace, Key: key, Blob: blob}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// MemStore is an in-memory Store for tests. It is not safe for concurrent
// use across namespaces being saved and loaded simultaneously; tests are
// sequential.
type MemStore struct {
	data map[string]map[string][]byte
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string]map[string][]byte)}
}

// Load implements Store.
func (s *MemStore) Load(_ context.Context, namespace string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(s.data[namespace]))
	for k, v := range s.data[namespace] {
		out[k] = append([]byte(nil), v...)
	}
	return out, nil
}

// Save implements Store.
func (s *MemStore) Save(_ context.Context, namespace string, blobs map[string][]byte) error {
	cp := make(map[string][]byte, len(blobs))
	for k, v := range blobs {
		cp[k] = append([]byte(nil), v...)
	}
	s.data[namespace] = cp
	return nil
}
