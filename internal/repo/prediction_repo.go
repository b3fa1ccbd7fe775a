// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// FailurePrediction history model.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/henrimbassi12/gulfmaintain-backend/internal/domain"
)

// CreatePrediction inserts a failure prediction history row.
func CreatePrediction(ctx context.Context, db *gorm.DB, p *domain.FailurePrediction) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(p).Error
}

// ListPredictions returns prediction history for an equipment (or all rows
// when equipmentID is empty), newest first.
func ListPredictions(ctx context.Context, db *gorm.DB, equipmentID string) ([]domain.FailurePrediction, error) {
	var out []domain.FailurePrediction
	q := db.WithContext(ctx).Order("created_at desc")
	if equipmentID != "" {
		q = q.Where("equipment_id = ?", equipmentID)
	}
	err := q.Find(&out).Error
	return out, err
}

// SetPredictionRemoteID records the server-assigned id for a locally created
// prediction once the remote backend has confirmed the insert.
func SetPredictionRemoteID(ctx context.Context, db *gorm.DB, id, remoteID string) error {
	res := db.WithContext(ctx).
		Model(&domain.FailurePrediction{}).
		Where("id = ?", id).
		Update("remote_id", remoteID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
