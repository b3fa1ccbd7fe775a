// Package services – ProfileService
//
// Technician profiles are reference data for the assignment scorer. They are
// managed locally; availability and distance are expected to be refreshed by
// dispatch as technicians move between sites.
package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/henrimbassi12/gulfmaintain-backend/internal/domain"
	"github.com/henrimbassi12/gulfmaintain-backend/internal/repo"
)

// ProfileService owns technician profile CRUD.
type ProfileService struct {
	DB  *gorm.DB
	Log zerolog.Logger
}

// NewProfileService wires a ProfileService.
func NewProfileService(db *gorm.DB, log zerolog.Logger) *ProfileService {
	return &ProfileService{
		DB:  db,
		Log: log.With().Str("component", "profile_service").Logger(),
	}
}

// Create registers a technician profile.
func (s *ProfileService) Create(ctx context.Context, t *domain.Technician) error {
	tr := otel.Tracer("services/ProfileService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("technician.name", t.Name)),
	)
	defer span.End()

	if t.Name == "" {
		return ErrMissingFields
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Availability == "" {
		t.Availability = domain.AvailabilityAvailable
	}
	return repo.CreateTechnician(ctx, s.DB, t)
}

// List returns the full roster in deterministic order.
func (s *ProfileService) List(ctx context.Context) ([]domain.Technician, error) {
	return repo.ListTechnicians(ctx, s.DB)
}

// Get returns one profile by id.
func (s *ProfileService) Get(ctx context.Context, id string) (*domain.Technician, error) {
	t, err := repo.GetTechnician(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrTechnicianNotFound
		}
		return nil, err
	}
	return t, nil
}

// Update applies a partial patch (availability, distance_km, success_rate,
// specializations) to a profile.
func (s *ProfileService) Update(ctx context.Context, id string, patch map[string]any) error {
	tr := otel.Tracer("services/ProfileService")
	ctx, span := tr.Start(ctx, "Update",
		trace.WithAttributes(attribute.String("technician.id", id)),
	)
	defer span.End()

	if err := repo.UpdateTechnician(ctx, s.DB, id, patch); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrTechnicianNotFound
		}
		return err
	}
	return nil
}
