// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// MaintenanceReport model.
//
// The repository follows a "thin" approach: it performs persistence and
// simple query composition, leaving business rules (validation, offline
// queueing, cost normalization) to the services package.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/henrimbassi12/gulfmaintain-backend/internal/domain"
)

// CreateReport inserts the given maintenance report row. The caller assigns
// the local ID; CreatedAt defaults to UTC now when unset.
func CreateReport(ctx context.Context, db *gorm.DB, r *domain.MaintenanceReport) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(r).Error
}

// ListReports returns all reports for an equipment (or all reports when
// equipmentID is empty), ordered by creation time descending.
func ListReports(ctx context.Context, db *gorm.DB, equipmentID string) ([]domain.MaintenanceReport, error) {
	var out []domain.MaintenanceReport
	q := db.WithContext(ctx).Order("created_at desc")
	if equipmentID != "" {
		q = q.Where("equipment_id = ?", equipmentID)
	}
	err := q.Find(&out).Error
	return out, err
}

// CountReports returns the total number of reports, optionally scoped to one
// equipment.
func CountReports(ctx context.Context, db *gorm.DB, equipmentID string) (int64, error) {
	var total int64
	q := db.WithContext(ctx).Model(&domain.MaintenanceReport{})
	if equipmentID != "" {
		q = q.Where("equipment_id = ?", equipmentID)
	}
	err := q.Count(&total).Error
	return total, err
}

// ListReportsPage returns a paginated slice of reports ordered by creation
// time descending.
func ListReportsPage(ctx context.Context, db *gorm.DB, equipmentID string, offset, limit int) ([]domain.MaintenanceReport, error) {
	var out []domain.MaintenanceReport
	q := db.WithContext(ctx).Order("created_at desc").Offset(offset).Limit(limit)
	if equipmentID != "" {
		q = q.Where("equipment_id = ?", equipmentID)
	}
	err := q.Find(&out).Error
	return out, err
}

// GetReport fetches a single report by its local id, or ErrNotFound.
func GetReport(ctx context.Context, db *gorm.DB, id string) (*domain.MaintenanceReport, error) {
	var r domain.MaintenanceReport
	err := db.WithContext(ctx).Where("id = ?", id).First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateReport applies a partial column update to the report identified by
// id. If no rows are affected, it returns ErrNotFound.
func UpdateReport(ctx context.Context, db *gorm.DB, id string, patch map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.MaintenanceReport{}).
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

// DeleteReport soft-deletes the report identified by id, or ErrNotFound.
func DeleteReport(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.MaintenanceReport{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetReportRemoteID records the server-assigned id for a locally created
// report once the remote backend has confirmed the insert.
func SetReportRemoteID(ctx context.Context, db *gorm.DB, id, remoteID string) error {
	res := db.WithContext(ctx).
		Model(&domain.MaintenanceReport{}).
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
