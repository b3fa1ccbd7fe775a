// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/henrimbassi12/gulfmaintain-backend/internal/domain"
)

// EquipmentsStats returns aggregate metadata for equipments, optionally
// scoped to one agency: the total number of rows and the maximum UpdatedAt
// timestamp among those rows. When there are no rows, the returned count is
// 0 and maxUpdatedAt is nil.
func EquipmentsStats(ctx context.Context, db *gorm.DB, agency string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Equipment{})
	if agency != "" {
		q = q.Where("agency = ?", agency)
	}

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// ReportsStats returns aggregate metadata for maintenance reports, optionally
// scoped to one equipment: row count and the greatest UpdatedAt, or (0, nil)
// when empty.
func ReportsStats(ctx context.Context, db *gorm.DB, equipmentID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.MaintenanceReport{})
	if equipmentID != "" {
		q = q.Where("equipment_id = ?", equipmentID)
	}

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
