// Package domain defines the persistence models for equipments, maintenance
// reports, failure predictions, technician profiles, and alerts. These types
// are mapped with GORM and form the core data layer of the maintenance
// tracking application.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Equipment statuses.
const (
	EquipmentOperational = "operational"
	EquipmentMaintenance = "maintenance"
	EquipmentOutOfOrder  = "out_of_order"
)

// Maintenance report types.
const (
	ReportPreventive = "preventive"
	ReportCorrective = "corrective"
	ReportUrgent     = "urgent"
)

// Technician availability states.
const (
	AvailabilityAvailable   = "available"
	AvailabilityBusy        = "busy"
	AvailabilityUnavailable = "unavailable"
)

// Alert statuses.
const (
	AlertOpen     = "open"
	AlertAssigned = "assigned"
	AlertResolved = "resolved"
)

// Alert priorities.
const (
	AlertPriorityLow    = "low"
	AlertPriorityMedium = "medium"
	AlertPriorityHigh   = "high"
)

// StringList is a JSON-serialized list of strings stored in a single TEXT
// column. Used for technician specializations so the roster stays a flat
// table in SQLite.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		return json.Unmarshal([]byte(v), l)
	case []byte:
		return json.Unmarshal(v, l)
	default:
		return errors.New("domain: unsupported source type for StringList")
	}
}

// Equipment represents a refrigeration unit tracked by the dashboard.
//
// Fields:
//   - ID: stable UUID primary key (char(36)), assigned locally.
//   - RemoteID: server-assigned id once the record has been confirmed by the
//     remote backend; empty while the create is still queued offline.
//   - SerialNumber: manufacturer serial; unique (duplicate inserts are
//     rejected by the database and mapped to a user-readable message).
//   - Temperature: last reported temperature in °C.
//   - AFNORID: normalized AFNOR intervention identifier.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (retains row for audit/history).
type Equipment struct {
	ID           string         `json:"id"            gorm:"type:char(36);primaryKey"`
	RemoteID     string         `json:"remote_id"     gorm:"type:varchar(64);index"`
	Name         string         `json:"name"          gorm:"type:varchar(255);not null"`
	SerialNumber string         `json:"serial_number" gorm:"type:varchar(64);not null;uniqueIndex:ux_equipment_serial"`
	Type         string         `json:"type"          gorm:"type:varchar(64);not null"`
	Brand        string         `json:"brand"         gorm:"type:varchar(64)"`
	Agency       string         `json:"agency"        gorm:"type:varchar(64);index:idx_equipment_agency"`
	Location     string         `json:"location"      gorm:"type:varchar(255)"`
	Temperature  float64        `json:"temperature"`
	Status       string         `json:"status"        gorm:"type:varchar(16);not null;default:'operational';check:status IN ('operational','maintenance','out_of_order')"`
	AFNORID      string         `json:"afnor_id"      gorm:"column:afnor_id;type:varchar(64)"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-"             gorm:"index"`
}

// TableName returns the database table name for Equipment.
func (Equipment) TableName() string { return "equipments" }

// MaintenanceReport represents a technician's intervention report on a piece
// of equipment. Reports reference equipment by local id so they remain valid
// while the equipment create is still queued offline.
//
// Fields:
//   - Cost: intervention cost in XAF, stored as an exact decimal.
//   - Type: preventive, corrective, or urgent (enforced by DB constraint).
type MaintenanceReport struct {
	ID          string          `json:"id"           gorm:"type:char(36);primaryKey"`
	RemoteID    string          `json:"remote_id"    gorm:"type:varchar(64);index"`
	EquipmentID string          `json:"equipment_id" gorm:"type:char(36);not null;index:idx_report_equipment"`
	Technician  string          `json:"technician"   gorm:"type:varchar(128)"`
	Type        string          `json:"type"         gorm:"type:varchar(16);not null;check:type IN ('preventive','corrective','urgent')"`
	Description string          `json:"description"  gorm:"type:text"`
	Cost        decimal.Decimal `json:"cost"         gorm:"type:decimal(12,2)"`
	Status      string          `json:"status"       gorm:"type:varchar(16);not null;default:'draft'"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `json:"-"            gorm:"index"`
}

// TableName returns the database table name for MaintenanceReport.
func (MaintenanceReport) TableName() string { return "maintenance_reports" }

// FailurePrediction records one AI (or simulated) failure analysis for a
// piece of equipment. Simulated results are kept in history like real ones;
// the flag only marks their origin.
type FailurePrediction struct {
	ID                string         `json:"id"                 gorm:"type:char(36);primaryKey"`
	RemoteID          string         `json:"remote_id"          gorm:"type:varchar(64);index"`
	EquipmentID       string         `json:"equipment_id"       gorm:"type:char(36);not null;index:idx_prediction_equipment"`
	FailureRisk       float64        `json:"failure_risk"`
	PredictedType     string         `json:"predicted_type"     gorm:"type:varchar(64)"`
	Confidence        float64        `json:"confidence"`
	RecommendedAction string         `json:"recommended_action" gorm:"type:text"`
	Simulated         bool           `json:"simulated"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `json:"-"                  gorm:"index"`
}

// TableName returns the database table name for FailurePrediction.
func (FailurePrediction) TableName() string { return "failure_predictions" }

// Technician is a field technician profile used by the assignment scorer.
//
// Fields:
//   - Specializations: tags such as "Électricité" or "Climatisation",
//     matched against alert descriptions during auto-assignment.
//   - DistanceKM: current distance to the reported site in kilometers.
//   - SuccessRate: historical intervention success percentage (0–100).
//   - Availability: available, busy, or unavailable. Only available
//     technicians are ever auto-assigned.
type Technician struct {
	ID              string         `json:"id"              gorm:"type:char(36);primaryKey"`
	Name            string         `json:"name"            gorm:"type:varchar(128);not null"`
	Specializations StringList     `json:"specializations" gorm:"type:text"`
	DistanceKM      float64        `json:"distance_km"`
	ExperienceYears float64        `json:"experience_years"`
	SuccessRate     float64        `json:"success_rate"`
	Availability    string         `json:"availability"    gorm:"type:varchar(16);not null;default:'available';check:availability IN ('available','busy','unavailable')"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-"               gorm:"index"`
}

// TableName returns the database table name for Technician.
func (Technician) TableName() string { return "profiles" }

// Alert is an incident raised against a piece of equipment. Assignment sets
// Technician and transitions Status from open to assigned.
type Alert struct {
	ID          string         `json:"id"           gorm:"type:char(36);primaryKey"`
	EquipmentID string         `json:"equipment_id" gorm:"type:char(36);index:idx_alert_equipment"`
	Description string         `json:"description"  gorm:"type:text;not null"`
	Priority    string         `json:"priority"     gorm:"type:varchar(16);not null;default:'medium'"`
	Status      string         `json:"status"       gorm:"type:varchar(16);not null;default:'open';check:status IN ('open','assigned','resolved')"`
	Technician  string         `json:"technician"   gorm:"type:varchar(128)"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"            gorm:"index"`
}

// TableName returns the database table name for Alert.
func (Alert) TableName() string { return "alerts" }
