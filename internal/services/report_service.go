// Package services – ReportService
//
// ReportService mirrors the equipment write path for maintenance reports:
// local-first writes, synchronous remote mirror when online, offline queue
// otherwise. Reports additionally support idempotent creation: a client
// resubmitting the same Idempotency-Key within the TTL gets the original
// report back instead of a duplicate row. Costs are carried as exact
// decimals end to end.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/henrimbassi12/gulfmaintain-backend/internal/backend"
	"github.com/henrimbassi12/gulfmaintain-backend/internal/domain"
	"github.com/henrimbassi12/gulfmaintain-backend/internal/offline"
	"github.com/henrimbassi12/gulfmaintain-backend/internal/repo"
)

// reportTable is the remote backend table mirrored by this service.
const reportTable = "maintenance_reports"

// idempotencyTTL is how long a report creation key shields against
// resubmission.
const idempotencyTTL = 24 * time.Hour

// ReportService owns the maintenance report lifecycle.
type ReportService struct {
	DB       *gorm.DB
	Remote   backend.Client
	Monitor  *offline.Monitor
	Queue    *offline.Queue
	Notifier Notifier
	Log      zerolog.Logger
}

// NewReportService wires the service, reloads the persisted offline queue for
// reports, and registers the reconnect drain hook.
func NewReportService(ctx context.Context, db *gorm.DB, remote backend.Client, monitor *offline.Monitor, store offline.Store, notifier Notifier, log zerolog.Logger) (*ReportService, error) {
	queue, err := offline.NewQueue(ctx, reportTable, store, log)
	if err != nil {
		return nil, err
	}
	s := &ReportService{
		DB:       db,
		Remote:   remote,
		Monitor:  monitor,
		Queue:    queue,
		Notifier: notifier,
		Log:      log.With().Str("component", "report_service").Logger(),
	}
	monitor.OnTransition(func(online bool) {
		if online && s.Queue.Len() > 0 {
			s.Sync(context.Background())
		}
	})
	return s, nil
}

// reportRow flattens a report into the remote backend's row shape. The cost
// is serialized as its decimal string so no precision is lost on the wire.
func reportRow(r *domain.MaintenanceReport) backend.Row {
	return backend.Row{
		"equipment_id": r.EquipmentID,
		"technician":   r.Technician,
		"type":         r.Type,
		"description":  r.Description,
		"cost":         r.Cost.String(),
		"status":       r.Status,
	}
}

// Create registers a new maintenance report. When idemKey is non-empty and a
// non-expired record exists for (userID, idemKey), the original report is
// returned unchanged and created reads false.
func (s *ReportService) Create(ctx context.Context, userID, idemKey string, r *domain.MaintenanceReport) (created bool, err error) {
	tr := otel.Tracer("services/ReportService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("equipment.id", r.EquipmentID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	if r.EquipmentID == "" || r.Type == "" {
		return false, ErrMissingFields
	}
	switch r.Type {
	case domain.ReportPreventive, domain.ReportCorrective, domain.ReportUrgent:
	default:
		return false, ErrMissingFields
	}

	if idemKey != "" {
		if rec, err := repo.GetIdempotency(ctx, s.DB, userID, idemKey, time.Now().UTC()); err == nil {
			prev, err := repo.GetReport(ctx, s.DB, rec.ResourceID)
			if err != nil {
				return false, err
			}
			*r = *prev
			return false, nil
		} else if !errors.Is(err, repo.ErrNotFound) {
			return false, err
		}
	}

	if r.ID == "" {
		r.ID = NewLocalID()
	}
	if r.Status == "" {
		r.Status = "draft"
	}
	if err := repo.CreateReport(ctx, s.DB, r); err != nil {
		return false, err
	}

	if idemKey != "" {
		if _, err := repo.CreateIdempotency(ctx, s.DB, userID, idemKey, r.ID, 201, idempotencyTTL); err != nil && !errors.Is(err, repo.ErrDuplicate) {
			s.Log.Warn().Str("report_id", r.ID).Err(err).Msg("recording idempotency key failed")
		}
	}

	if s.Monitor.Online() {
		serverID, err := s.Remote.Insert(ctx, reportTable, reportRow(r))
		if err == nil {
			r.RemoteID = serverID
			return true, repo.SetReportRemoteID(ctx, s.DB, r.ID, serverID)
		}
		if backend.IsRejection(err) {
			s.Log.Warn().Str("id", r.ID).Err(err).Msg("backend rejected report create")
		} else {
			s.Monitor.SetOnline(false)
		}
	}
	return true, s.enqueueCreate(ctx, r)
}

func (s *ReportService) enqueueCreate(ctx context.Context, r *domain.MaintenanceReport) error {
	payload, err := json.Marshal(reportRow(r))
	if err != nil {
		return err
	}
	if _, err := s.Queue.Enqueue(ctx, offline.Mutation{
		Key:     r.ID,
		Table:   reportTable,
		Action:  offline.ActionCreate,
		Payload: payload,
	}); err != nil {
		return err
	}
	s.Notifier.Notify(Notification{
		Level:   NoticeInfo,
		Message: "Rapport sauvegardé hors ligne, synchronisation à la reconnexion",
	})
	return nil
}

// Update applies a partial patch to a report.
func (s *ReportService) Update(ctx context.Context, id string, patch map[string]any) error {
	tr := otel.Tracer("services/ReportService")
	ctx, span := tr.Start(ctx, "Update",
		trace.WithAttributes(attribute.String("report.id", id)),
	)
	defer span.End()

	if err := repo.UpdateReport(ctx, s.DB, id, patch); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrReportNotFound
		}
		return err
	}

	r, err := repo.GetReport(ctx, s.DB, id)
	if err != nil {
		return err
	}
	if r.RemoteID == "" {
		return s.enqueueCreate(ctx, r)
	}

	if s.Monitor.Online() {
		err := s.Remote.Update(ctx, reportTable, r.RemoteID, backend.Row(patch))
		if err == nil {
			return nil
		}
		if backend.IsRejection(err) {
			s.Log.Warn().Str("id", id).Err(err).Msg("backend rejected report update")
		} else {
			s.Monitor.SetOnline(false)
		}
	}

	payload, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	_, err = s.Queue.Enqueue(ctx, offline.Mutation{
		Key:     id,
		Table:   reportTable,
		Action:  offline.ActionUpdate,
		Payload: payload,
	})
	return err
}

// Delete removes a report locally and mirrors or queues the remote delete.
func (s *ReportService) Delete(ctx context.Context, id string) error {
	tr := otel.Tracer("services/ReportService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(attribute.String("report.id", id)),
	)
	defer span.End()

	r, err := repo.GetReport(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrReportNotFound
		}
		return err
	}
	if err := repo.DeleteReport(ctx, s.DB, id); err != nil {
		return err
	}

	if r.RemoteID != "" && s.Monitor.Online() {
		err := s.Remote.Delete(ctx, reportTable, r.RemoteID)
		if err == nil {
			return nil
		}
		if backend.IsRejection(err) {
			s.Log.Warn().Str("id", id).Err(err).Msg("backend rejected report delete")
		} else {
			s.Monitor.SetOnline(false)
		}
	}

	payload, err := json.Marshal(deletePayload{RemoteID: r.RemoteID})
	if err != nil {
		return err
	}
	_, err = s.Queue.Enqueue(ctx, offline.Mutation{
		Key:     id,
		Table:   reportTable,
		Action:  offline.ActionDelete,
		Payload: payload,
	})
	return err
}

// Get returns one report by local id.
func (s *ReportService) Get(ctx context.Context, id string) (*domain.MaintenanceReport, error) {
	r, err := repo.GetReport(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	return r, nil
}

// List returns reports, optionally filtered by equipment.
func (s *ReportService) List(ctx context.Context, equipmentID string) ([]domain.MaintenanceReport, error) {
	return repo.ListReports(ctx, s.DB, equipmentID)
}

// ListPage returns one page of reports plus the total.
func (s *ReportService) ListPage(ctx context.Context, equipmentID string, offset, limit int) ([]domain.MaintenanceReport, int64, error) {
	total, err := repo.CountReports(ctx, s.DB, equipmentID)
	if err != nil {
		return nil, 0, err
	}
	items, err := repo.ListReportsPage(ctx, s.DB, equipmentID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Sync drains the offline report queue against the remote backend.
func (s *ReportService) Sync(ctx context.Context) map[string]bool {
	tr := otel.Tracer("services/ReportService")
	ctx, span := tr.Start(ctx, "Sync",
		trace.WithAttributes(attribute.Int("queue.depth", s.Queue.Len())),
	)
	defer span.End()

	results := s.Queue.Drain(ctx, s.applyMutation)
	var failed int
	for _, success := range results {
		if !success {
			failed++
		}
	}
	if failed > 0 {
		s.Notifier.Notify(Notification{
			Level:   NoticeWarning,
			Message: fmt.Sprintf("%d rapport(s) en attente de synchronisation", failed),
		})
	}
	return results
}

// applyMutation replays one queued report mutation against the backend.
func (s *ReportService) applyMutation(ctx context.Context, m offline.Mutation) error {
	switch m.Action {
	case offline.ActionCreate:
		var row backend.Row
		if err := json.Unmarshal(m.Payload, &row); err != nil {
			return err
		}
		serverID, err := s.Remote.Insert(ctx, reportTable, row)
		if err != nil {
			return err
		}
		if err := repo.SetReportRemoteID(ctx, s.DB, m.Key, serverID); err != nil && !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		return nil

	case offline.ActionUpdate:
		r, err := repo.GetReport(ctx, s.DB, m.Key)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil
			}
			return err
		}
		if r.RemoteID == "" {
			return fmt.Errorf("report %s has no remote id yet", m.Key)
		}
		var patch backend.Row
		if err := json.Unmarshal(m.Payload, &patch); err != nil {
			return err
		}
		return s.Remote.Update(ctx, reportTable, r.RemoteID, patch)

	case offline.ActionDelete:
		var p deletePayload
		if len(m.Payload) > 0 {
			if err := json.Unmarshal(m.Payload, &p); err != nil {
				return err
			}
		}
		if p.RemoteID == "" {
			return nil
		}
		return s.Remote.Delete(ctx, reportTable, p.RemoteID)

	default:
		s.Log.Error().Str("action", string(m.Action)).Msg("unknown queued action dropped")
		return nil
	}
}
