// Package services defines the business logic for equipments, maintenance
// reports, failure predictions, alerts, and technician assignment. This file
// centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

var (
	// ErrEquipmentNotFound indicates that the requested equipment does not
	// exist locally.
	ErrEquipmentNotFound = errors.New("equipment not found")

	// ErrReportNotFound indicates that the requested maintenance report does
	// not exist locally.
	ErrReportNotFound = errors.New("report not found")

	// ErrAlertNotFound indicates that the requested alert does not exist.
	ErrAlertNotFound = errors.New("alert not found")

	// ErrTechnicianNotFound indicates that the requested technician profile
	// does not exist.
	ErrTechnicianNotFound = errors.New("technician not found")

	// ErrMissingFields is returned when a create request lacks required
	// fields. It is caught before any backend call.
	ErrMissingFields = errors.New("required fields missing")

	// ErrDuplicateSerial is returned when an equipment create collides with
	// an existing serial number (unique constraint).
	ErrDuplicateSerial = errors.New("serial number already registered")

	// ErrNoTechnicianAvailable is returned by auto-assignment when the roster
	// contains no available technician. The alert is left unassigned.
	ErrNoTechnicianAvailable = errors.New("no technician available")

	// ErrAlertNotOpen is returned when auto-assignment targets an alert that
	// is already assigned or resolved.
	ErrAlertNotOpen = errors.New("alert is not open")
)
