// Package services – AlertService
//
// Alerts are local-only operational state (they drive the dashboard and the
// assignment flow); they are not mirrored to the remote backend. Creation
// against an out-of-order equipment is allowed; raising a high-priority
// alert flips the equipment status to out_of_order.
package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/henrimbassi12/gulfmaintain-backend/internal/domain"
	"github.com/henrimbassi12/gulfmaintain-backend/internal/repo"
)

// AlertService owns the alert lifecycle up to assignment, which is handled by
// AssignmentService.
type AlertService struct {
	DB       *gorm.DB
	Notifier Notifier
	Log      zerolog.Logger
}

// NewAlertService wires an AlertService.
func NewAlertService(db *gorm.DB, notifier Notifier, log zerolog.Logger) *AlertService {
	return &AlertService{
		DB:       db,
		Notifier: notifier,
		Log:      log.With().Str("component", "alert_service").Logger(),
	}
}

// Create raises a new alert against an equipment. High-priority alerts mark
// the equipment out of order.
func (s *AlertService) Create(ctx context.Context, a *domain.Alert) error {
	tr := otel.Tracer("services/AlertService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("equipment.id", a.EquipmentID)),
	)
	defer span.End()

	if a.EquipmentID == "" || a.Description == "" {
		return ErrMissingFields
	}
	if _, err := repo.GetEquipment(ctx, s.DB, a.EquipmentID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrEquipmentNotFound
		}
		return err
	}
	if a.ID == "" {
		a.ID = NewLocalID()
	}
	if a.Status == "" {
		a.Status = domain.AlertOpen
	}
	if a.Priority == "" {
		a.Priority = domain.AlertPriorityMedium
	}
	if err := repo.CreateAlert(ctx, s.DB, a); err != nil {
		return err
	}

	if a.Priority == domain.AlertPriorityHigh {
		if err := repo.UpdateEquipment(ctx, s.DB, a.EquipmentID, map[string]any{
			"status": domain.EquipmentOutOfOrder,
		}); err != nil {
			s.Log.Warn().Str("equipment_id", a.EquipmentID).Err(err).
				Msg("marking equipment out of order failed")
		}
	}
	s.Notifier.Notify(Notification{
		Level:   NoticeWarning,
		Message: "Nouvelle alerte: " + a.Description,
	})
	return nil
}

// List returns alerts, optionally filtered by status.
func (s *AlertService) List(ctx context.Context, status string) ([]domain.Alert, error) {
	return repo.ListAlerts(ctx, s.DB, status)
}

// Get returns one alert by id.
func (s *AlertService) Get(ctx context.Context, id string) (*domain.Alert, error) {
	a, err := repo.GetAlert(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}
	return a, nil
}

// Resolve closes an alert.
func (s *AlertService) Resolve(ctx context.Context, id string) error {
	tr := otel.Tracer("services/AlertService")
	ctx, span := tr.Start(ctx, "Resolve",
		trace.WithAttributes(attribute.String("alert.id", id)),
	)
	defer span.End()

	if err := repo.ResolveAlert(ctx, s.DB, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrAlertNotFound
		}
		return err
	}
	s.Notifier.Notify(Notification{Level: NoticeInfo, Message: "Alerte résolue"})
	return nil
}
