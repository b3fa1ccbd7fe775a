// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Technician
// profile model used by the assignment scorer and the geolocation views.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/henrimbassi12/gulfmaintain-backend/internal/domain"
)

// CreateTechnician inserts a technician profile row.
func CreateTechnician(ctx context.Context, db *gorm.DB, t *domain.Technician) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(t).Error
}

// ListTechnicians returns all technician profiles ordered by name. Roster
// order matters to the assignment scorer (ties are broken by iteration
// order), so the ordering here must stay deterministic.
func ListTechnicians(ctx context.Context, db *gorm.DB) ([]domain.Technician, error) {
	var out []domain.Technician
	err := db.WithContext(ctx).Order("name asc").Find(&out).Error
	return out, err
}

// GetTechnician fetches a single profile by id, or ErrNotFound.
func GetTechnician(ctx context.Context, db *gorm.DB, id string) (*domain.Technician, error) {
	var t domain.Technician
	err := db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTechnician applies a partial column update to the profile identified
// by id (availability, distance, success rate). If no rows are affected, it
// returns ErrNotFound.
func UpdateTechnician(ctx context.Context, db *gorm.DB, id string, patch map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.Technician{}).
		Where("id = ?", id).
		Updates(patch)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
