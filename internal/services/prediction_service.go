// Package services – PredictionService
//
// PredictionService runs failure analyses through the prediction client and
// keeps the results as local history. The prediction client itself never
// fails (it simulates instead), so the only failure paths here are storage
// ones. History rows are mirrored to the remote backend like other entities,
// through the offline queue when disconnected.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/henrimbassi12/gulfmaintain-backend/internal/backend"
	"github.com/henrimbassi12/gulfmaintain-backend/internal/domain"
	"github.com/henrimbassi12/gulfmaintain-backend/internal/offline"
	"github.com/henrimbassi12/gulfmaintain-backend/internal/predict"
	"github.com/henrimbassi12/gulfmaintain-backend/internal/repo"
)

// predictionTable is the remote backend table mirrored by this service.
const predictionTable = "failure_predictions"

// Predictor is the prediction client contract, satisfied by *predict.Client.
type Predictor interface {
	Predict(ctx context.Context, req predict.Request) predict.Result
}

// PredictionService runs and records failure analyses.
type PredictionService struct {
	DB        *gorm.DB
	Predictor Predictor
	Remote    backend.Client
	Monitor   *offline.Monitor
	Queue     *offline.Queue
	Notifier  Notifier
	Log       zerolog.Logger
}

// NewPredictionService wires the service and reloads its offline queue.
func NewPredictionService(ctx context.Context, db *gorm.DB, predictor Predictor, remote backend.Client, monitor *offline.Monitor, store offline.Store, notifier Notifier, log zerolog.Logger) (*PredictionService, error) {
	queue, err := offline.NewQueue(ctx, predictionTable, store, log)
	if err != nil {
		return nil, err
	}
	s := &PredictionService{
		DB:        db,
		Predictor: predictor,
		Remote:    remote,
		Monitor:   monitor,
		Queue:     queue,
		Notifier:  notifier,
		Log:       log.With().Str("component", "prediction_service").Logger(),
	}
	monitor.OnTransition(func(online bool) {
		if online && s.Queue.Len() > 0 {
			s.Sync(context.Background())
		}
	})
	return s, nil
}

// predictionRow flattens a prediction into the remote backend's row shape.
func predictionRow(p *domain.FailurePrediction) backend.Row {
	return backend.Row{
		"equipment_id":       p.EquipmentID,
		"failure_risk":       p.FailureRisk,
		"predicted_type":     p.PredictedType,
		"confidence":         p.Confidence,
		"recommended_action": p.RecommendedAction,
		"simulated":          p.Simulated,
	}
}

// maintenanceGapDays returns the whole days elapsed since the equipment's
// most recent maintenance report. Equipment with no report yet counts from
// its registration date.
func (s *PredictionService) maintenanceGapDays(ctx context.Context, e *domain.Equipment) (int, error) {
	since := e.CreatedAt
	reports, err := repo.ListReportsPage(ctx, s.DB, e.ID, 0, 1)
	if err != nil {
		return 0, err
	}
	if len(reports) > 0 {
		since = reports[0].CreatedAt
	}
	if since.IsZero() {
		return 0, nil
	}
	return int(time.Since(since).Hours() / 24), nil
}

// Analyze runs a failure analysis for the equipment, persists the result as a
// history row, and mirrors it to the backend. The equipment must exist
// locally. The request carries the unit's age and the days since its last
// maintenance report so both the real model and the simulation can weigh
// neglect.
func (s *PredictionService) Analyze(ctx context.Context, equipmentID string) (*domain.FailurePrediction, error) {
	tr := otel.Tracer("services/PredictionService")
	ctx, span := tr.Start(ctx, "Analyze",
		trace.WithAttributes(attribute.String("equipment.id", equipmentID)),
	)
	defer span.End()

	e, err := repo.GetEquipment(ctx, s.DB, equipmentID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrEquipmentNotFound
		}
		return nil, err
	}

	gapDays, err := s.maintenanceGapDays(ctx, e)
	if err != nil {
		return nil, err
	}
	var ageYears float64
	if !e.CreatedAt.IsZero() {
		ageYears = time.Since(e.CreatedAt).Hours() / (24 * 365)
	}

	res := s.Predictor.Predict(ctx, predict.Request{
		EquipmentID:         e.ID,
		Type:                e.Type,
		Temperature:         e.Temperature,
		AgeYears:            ageYears,
		LastMaintenanceDays: gapDays,
	})
	p := &domain.FailurePrediction{
		ID:                NewLocalID(),
		EquipmentID:       e.ID,
		FailureRisk:       res.FailureRisk,
		PredictedType:     res.PredictedType,
		Confidence:        res.Confidence,
		RecommendedAction: res.RecommendedAction,
		Simulated:         res.Simulated,
	}
	if err := repo.CreatePrediction(ctx, s.DB, p); err != nil {
		return nil, err
	}
	if res.Simulated {
		s.Notifier.Notify(Notification{
			Level:   NoticeWarning,
			Message: "Analyse IA indisponible, résultat simulé affiché",
		})
	}

	if s.Monitor.Online() {
		serverID, err := s.Remote.Insert(ctx, predictionTable, predictionRow(p))
		if err == nil {
			p.RemoteID = serverID
			if err := repo.SetPredictionRemoteID(ctx, s.DB, p.ID, serverID); err != nil {
				return nil, err
			}
			return p, nil
		}
		if backend.IsRejection(err) {
			s.Log.Warn().Str("id", p.ID).Err(err).Msg("backend rejected prediction insert")
		} else {
			s.Monitor.SetOnline(false)
		}
	}

	payload, err := json.Marshal(predictionRow(p))
	if err != nil {
		return nil, err
	}
	if _, err := s.Queue.Enqueue(ctx, offline.Mutation{
		Key:     p.ID,
		Table:   predictionTable,
		Action:  offline.ActionCreate,
		Payload: payload,
	}); err != nil {
		return nil, err
	}
	return p, nil
}

// History returns prediction history, optionally scoped to one equipment.
func (s *PredictionService) History(ctx context.Context, equipmentID string) ([]domain.FailurePrediction, error) {
	return repo.ListPredictions(ctx, s.DB, equipmentID)
}

// Sync drains the offline prediction queue against the remote backend.
func (s *PredictionService) Sync(ctx context.Context) map[string]bool {
	tr := otel.Tracer("services/PredictionService")
	ctx, span := tr.Start(ctx, "Sync",
		trace.WithAttributes(attribute.Int("queue.depth", s.Queue.Len())),
	)
	defer span.End()

	return s.Queue.Drain(ctx, s.applyMutation)
}

// applyMutation replays one queued prediction mutation. Predictions are
// insert-only; anything else queued is a bug and is dropped with a log.
func (s *PredictionService) applyMutation(ctx context.Context, m offline.Mutation) error {
	if m.Action != offline.ActionCreate {
		s.Log.Error().Str("action", string(m.Action)).Msg("unexpected queued action for prediction dropped")
		return nil
	}
	var row backend.Row
	if err := json.Unmarshal(m.Payload, &row); err != nil {
		return err
	}
	serverID, err := s.Remote.Insert(ctx, predictionTable, row)
	if err != nil {
		return err
	}
	if err := repo.SetPredictionRemoteID(ctx, s.DB, m.Key, serverID); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	return nil
}
