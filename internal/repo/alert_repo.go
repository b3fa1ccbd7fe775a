// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Alert
// model.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/henrimbassi12/gulfmaintain-backend/internal/domain"
)

// CreateAlert inserts an alert row.
func CreateAlert(ctx context.Context, db *gorm.DB, a *domain.Alert) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(a).Error
}

// ListAlerts returns alerts ordered by creation time descending, optionally
// filtered by status.
func ListAlerts(ctx context.Context, db *gorm.DB, status string) ([]domain.Alert, error) {
	var out []domain.Alert
	q := db.WithContext(ctx).Order("created_at desc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Find(&out).Error
	return out, err
}

// GetAlert fetches a single alert by id, or ErrNotFound.
func GetAlert(ctx context.Context, db *gorm.DB, id string) (*domain.Alert, error) {
	var a domain.Alert
	err := db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// AssignAlert sets the technician and transitions the alert to assigned.
// If no rows are affected, it returns ErrNotFound.
func AssignAlert(ctx context.Context, db *gorm.DB, id, technician string) error {
	res := db.WithContext(ctx).
		Model(&domain.Alert{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"technician": technician,
			"status":     domain.AlertAssigned,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ResolveAlert transitions the alert to resolved, or ErrNotFound.
func ResolveAlert(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.Alert{}).
		Where("id = ?", id).
		Update("status", domain.AlertResolved)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
