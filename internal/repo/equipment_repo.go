// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Equipment
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When an equipment is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations such as a duplicate serial number,
//     connectivity issues, etc.), the raw gorm error is propagated. The
//     service layer translates unique violations into ErrDuplicateSerial.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/henrimbassi12/gulfmaintain-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateEquipment inserts the given equipment row. The caller is responsible
// for assigning the local ID (UUID) and any remote id; CreatedAt is set to
// UTC here when unset.
func CreateEquipment(ctx context.Context, db *gorm.DB, e *domain.Equipment) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(e).Error
}

// ListEquipments returns all equipments, optionally filtered by agency,
// ordered by creation time descending. It returns an empty slice when no
// rows match.
func ListEquipments(ctx context.Context, db *gorm.DB, agency string) ([]domain.Equipment, error) {
	var out []domain.Equipment
	q := db.WithContext(ctx).Order("created_at desc")
	if agency != "" {
		q = q.Where("agency = ?", agency)
	}
	err := q.Find(&out).Error
	return out, err
}

// CountEquipments returns the total number of equipments, optionally filtered
// by agency.
func CountEquipments(ctx context.Context, db *gorm.DB, agency string) (int64, error) {
	var total int64
	q := db.WithContext(ctx).Model(&domain.Equipment{})
	if agency != "" {
		q = q.Where("agency = ?", agency)
	}
	err := q.Count(&total).Error
	return total, err
}

// ListEquipmentsPage returns a paginated slice of equipments ordered by
// creation time descending. Use CountEquipments to obtain the total for
// pagination metadata.
func ListEquipmentsPage(ctx context.Context, db *gorm.DB, agency string, offset, limit int) ([]domain.Equipment, error) {
	var out []domain.Equipment
	q := db.WithContext(ctx).Order("created_at desc").Offset(offset).Limit(limit)
	if agency != "" {
		q = q.Where("agency = ?", agency)
	}
	err := q.Find(&out).Error
	return out, err
}

// GetEquipment fetches a single equipment by its local id. If the record does
// not exist, it returns ErrNotFound.
func GetEquipment(ctx context.Context, db *gorm.DB, id string) (*domain.Equipment, error) {
	var e domain.Equipment
	err := db.WithContext(ctx).Where("id = ?", id).First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// UpdateEquipment applies a partial column update to the equipment identified
// by id. If no rows are affected, it returns ErrNotFound.
func UpdateEquipment(ctx context.Context, db *gorm.DB, id string, patch map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.Equipment{}).
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

// DeleteEquipment soft-deletes the equipment identified by id. If no rows are
// affected, it returns ErrNotFound.
func DeleteEquipment(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Equipment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetEquipmentByRemoteID fetches an equipment by its server-assigned id.
// Used when reconciling change events pushed by the remote backend.
func GetEquipmentByRemoteID(ctx context.Context, db *gorm.DB, remoteID string) (*domain.Equipment, error) {
	var e domain.Equipment
	err := db.WithContext(ctx).Where("remote_id = ?", remoteID).First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetEquipmentBySerial fetches an equipment by serial number.
func GetEquipmentBySerial(ctx context.Context, db *gorm.DB, serial string) (*domain.Equipment, error) {
	var e domain.Equipment
	err := db.WithContext(ctx).Where("serial_number = ?", serial).First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// SetEquipmentRemoteID records the server-assigned id for a locally created
// equipment once the remote backend has confirmed the insert.
func SetEquipmentRemoteID(ctx context.Context, db *gorm.DB, id, remoteID string) error {
	res := db.WithContext(ctx).
		Model(&domain.Equipment{}).
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
