// Package services – EquipmentService
//
// EquipmentService implements the local-first write path for equipments:
//
//  1. Every write lands in the local database immediately, whatever the
//     connectivity state. The local row is the optimistic view the dashboard
//     reads from.
//  2. When the agent is online, the write is mirrored to the remote backend
//     synchronously. A transient remote failure flips the connectivity
//     monitor offline and falls through to the offline path.
//  3. When the agent is offline, the write intent is buffered in the offline
//     mutation queue and replayed on the next reconnect.
//
// Rows created offline carry a locally generated "local-" prefixed id and an
// empty RemoteID until their create is confirmed by the backend; the drain
// reconciliation then records the server-assigned id. Updates to a row whose
// create is still queued are buffered as a fresh create of the full current
// row, so the queue keeps exactly one entry per record (last write wins)
// without ever producing a patch against a row the backend has never seen.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
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

// equipmentTable is the remote backend table mirrored by this service.
const equipmentTable = "equipments"

// EquipmentService owns the equipment lifecycle across the local database,
// the remote backend, and the offline queue.
type EquipmentService struct {
	DB       *gorm.DB
	Remote   backend.Client
	Monitor  *offline.Monitor
	Queue    *offline.Queue
	Notifier Notifier
	Log      zerolog.Logger

	unsubscribe func()
}

// NewEquipmentService wires the service, reloads the persisted offline queue
// for equipments, registers the reconnect drain hook, and subscribes to
// remote change events.
func NewEquipmentService(ctx context.Context, db *gorm.DB, remote backend.Client, monitor *offline.Monitor, store offline.Store, notifier Notifier, log zerolog.Logger) (*EquipmentService, error) {
	queue, err := offline.NewQueue(ctx, equipmentTable, store, log)
	if err != nil {
		return nil, err
	}
	s := &EquipmentService{
		DB:       db,
		Remote:   remote,
		Monitor:  monitor,
		Queue:    queue,
		Notifier: notifier,
		Log:      log.With().Str("component", "equipment_service").Logger(),
	}
	monitor.OnTransition(func(online bool) {
		if online && s.Queue.Len() > 0 {
			s.Sync(context.Background())
		}
	})
	s.unsubscribe = remote.Subscribe(equipmentTable, s.applyRemoteChange)
	return s, nil
}

// Close detaches the service from remote change events.
func (s *EquipmentService) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// NewLocalID returns a fresh locally generated temporary id.
func NewLocalID() string {
	return "local-" + uuid.NewString()
}

// isUniqueViolation reports whether err is a unique-constraint failure from
// the pure-Go sqlite driver or GORM's translated form.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// equipmentRow flattens an equipment into the remote backend's row shape.
func equipmentRow(e *domain.Equipment) backend.Row {
	return backend.Row{
		"name":          e.Name,
		"serial_number": e.SerialNumber,
		"type":          e.Type,
		"brand":         e.Brand,
		"agency":        e.Agency,
		"location":      e.Location,
		"temperature":   e.Temperature,
		"status":        e.Status,
		"afnor_id":      e.AFNORID,
	}
}

// Create registers a new equipment. The row is written locally first; the
// remote mirror happens synchronously when online, or is queued otherwise.
func (s *EquipmentService) Create(ctx context.Context, e *domain.Equipment) error {
	tr := otel.Tracer("services/EquipmentService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("equipment.serial", e.SerialNumber)),
	)
	defer span.End()

	if e.Name == "" || e.SerialNumber == "" || e.Type == "" {
		return ErrMissingFields
	}
	if e.ID == "" {
		e.ID = NewLocalID()
	}
	if e.Status == "" {
		e.Status = domain.EquipmentOperational
	}

	if err := repo.CreateEquipment(ctx, s.DB, e); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSerial
		}
		return err
	}

	if s.Monitor.Online() {
		serverID, err := s.Remote.Insert(ctx, equipmentTable, equipmentRow(e))
		if err == nil {
			e.RemoteID = serverID
			return repo.SetEquipmentRemoteID(ctx, s.DB, e.ID, serverID)
		}
		if backend.IsRejection(err) {
			s.Log.Warn().Str("id", e.ID).Err(err).Msg("backend rejected equipment create")
		} else {
			s.Monitor.SetOnline(false)
		}
	}
	return s.enqueueCreate(ctx, e)
}

// enqueueCreate buffers the full row as a create mutation keyed by local id.
func (s *EquipmentService) enqueueCreate(ctx context.Context, e *domain.Equipment) error {
	payload, err := json.Marshal(equipmentRow(e))
	if err != nil {
		return err
	}
	if _, err := s.Queue.Enqueue(ctx, offline.Mutation{
		Key:     e.ID,
		Table:   equipmentTable,
		Action:  offline.ActionCreate,
		Payload: payload,
	}); err != nil {
		return err
	}
	s.Notifier.Notify(Notification{
		Level:   NoticeInfo,
		Message: "Équipement sauvegardé hors ligne, synchronisation à la reconnexion",
	})
	return nil
}

// Update applies a partial patch to an equipment. The patch keys are column
// names from the equipment row shape.
func (s *EquipmentService) Update(ctx context.Context, id string, patch map[string]any) error {
	tr := otel.Tracer("services/EquipmentService")
	ctx, span := tr.Start(ctx, "Update",
		trace.WithAttributes(attribute.String("equipment.id", id)),
	)
	defer span.End()

	if err := repo.UpdateEquipment(ctx, s.DB, id, patch); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrEquipmentNotFound
		}
		if isUniqueViolation(err) {
			return ErrDuplicateSerial
		}
		return err
	}

	e, err := repo.GetEquipment(ctx, s.DB, id)
	if err != nil {
		return err
	}

	// A row the backend has never confirmed cannot be patched remotely; its
	// pending create is refreshed with the merged state instead.
	if e.RemoteID == "" {
		return s.enqueueCreate(ctx, e)
	}

	if s.Monitor.Online() {
		err := s.Remote.Update(ctx, equipmentTable, e.RemoteID, backend.Row(patch))
		if err == nil {
			return nil
		}
		if backend.IsRejection(err) {
			s.Log.Warn().Str("id", id).Err(err).Msg("backend rejected equipment update")
		} else {
			s.Monitor.SetOnline(false)
		}
	}

	payload, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	if _, err := s.Queue.Enqueue(ctx, offline.Mutation{
		Key:     id,
		Table:   equipmentTable,
		Action:  offline.ActionUpdate,
		Payload: payload,
	}); err != nil {
		return err
	}
	s.Notifier.Notify(Notification{
		Level:   NoticeInfo,
		Message: "Modification sauvegardée hors ligne",
	})
	return nil
}

// deletePayload carries the remote identity of a deleted row through the
// queue, since the soft-deleted local row is no longer queryable at replay
// time.
type deletePayload struct {
	RemoteID string `json:"remote_id,omitempty"`
}

// Delete removes an equipment locally and mirrors or queues the remote
// delete. Deleting a row whose create never reached the backend simply
// retires the queued create.
func (s *EquipmentService) Delete(ctx context.Context, id string) error {
	tr := otel.Tracer("services/EquipmentService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(attribute.String("equipment.id", id)),
	)
	defer span.End()

	e, err := repo.GetEquipment(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrEquipmentNotFound
		}
		return err
	}
	if err := repo.DeleteEquipment(ctx, s.DB, id); err != nil {
		return err
	}

	if e.RemoteID != "" && s.Monitor.Online() {
		err := s.Remote.Delete(ctx, equipmentTable, e.RemoteID)
		if err == nil {
			return nil
		}
		if backend.IsRejection(err) {
			s.Log.Warn().Str("id", id).Err(err).Msg("backend rejected equipment delete")
		} else {
			s.Monitor.SetOnline(false)
		}
	}

	payload, err := json.Marshal(deletePayload{RemoteID: e.RemoteID})
	if err != nil {
		return err
	}
	_, err = s.Queue.Enqueue(ctx, offline.Mutation{
		Key:     id,
		Table:   equipmentTable,
		Action:  offline.ActionDelete,
		Payload: payload,
	})
	return err
}

// Get returns one equipment by local id.
func (s *EquipmentService) Get(ctx context.Context, id string) (*domain.Equipment, error) {
	e, err := repo.GetEquipment(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrEquipmentNotFound
		}
		return nil, err
	}
	return e, nil
}

// List returns equipments, optionally filtered by agency.
func (s *EquipmentService) List(ctx context.Context, agency string) ([]domain.Equipment, error) {
	return repo.ListEquipments(ctx, s.DB, agency)
}

// ListPage returns one page of equipments plus the unfiltered total.
func (s *EquipmentService) ListPage(ctx context.Context, agency string, offset, limit int) ([]domain.Equipment, int64, error) {
	total, err := repo.CountEquipments(ctx, s.DB, agency)
	if err != nil {
		return nil, 0, err
	}
	items, err := repo.ListEquipmentsPage(ctx, s.DB, agency, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Sync drains the offline queue against the remote backend and reports the
// outcome as a notification. It returns the per-key result map.
func (s *EquipmentService) Sync(ctx context.Context) map[string]bool {
	tr := otel.Tracer("services/EquipmentService")
	ctx, span := tr.Start(ctx, "Sync",
		trace.WithAttributes(attribute.Int("queue.depth", s.Queue.Len())),
	)
	defer span.End()

	results := s.Queue.Drain(ctx, s.applyMutation)
	if len(results) == 0 {
		return results
	}
	var ok, failed int
	for _, success := range results {
		if success {
			ok++
		} else {
			failed++
		}
	}
	if ok > 0 {
		s.Notifier.Notify(Notification{
			Level:   NoticeInfo,
			Message: fmt.Sprintf("%d modification(s) d'équipement synchronisée(s)", ok),
		})
	}
	if failed > 0 {
		s.Notifier.Notify(Notification{
			Level:   NoticeWarning,
			Message: fmt.Sprintf("%d modification(s) d'équipement en attente de synchronisation", failed),
		})
	}
	return results
}

// applyMutation replays one queued mutation against the remote backend. It is
// the drain callback; returning an error keeps the entry queued.
func (s *EquipmentService) applyMutation(ctx context.Context, m offline.Mutation) error {
	switch m.Action {
	case offline.ActionCreate:
		var row backend.Row
		if err := json.Unmarshal(m.Payload, &row); err != nil {
			return err
		}
		serverID, err := s.Remote.Insert(ctx, equipmentTable, row)
		if err != nil {
			return err
		}
		// The local row may have been deleted while the create was queued;
		// losing the remote id link is acceptable then.
		if err := repo.SetEquipmentRemoteID(ctx, s.DB, m.Key, serverID); err != nil && !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		return nil

	case offline.ActionUpdate:
		e, err := repo.GetEquipment(ctx, s.DB, m.Key)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				// Row deleted locally after the update was queued. Nothing
				// left to mirror.
				return nil
			}
			return err
		}
		if e.RemoteID == "" {
			return fmt.Errorf("equipment %s has no remote id yet", m.Key)
		}
		var patch backend.Row
		if err := json.Unmarshal(m.Payload, &patch); err != nil {
			return err
		}
		return s.Remote.Update(ctx, equipmentTable, e.RemoteID, patch)

	case offline.ActionDelete:
		var p deletePayload
		if len(m.Payload) > 0 {
			if err := json.Unmarshal(m.Payload, &p); err != nil {
				return err
			}
		}
		if p.RemoteID == "" {
			// The create never reached the backend; there is nothing to
			// delete remotely.
			return nil
		}
		return s.Remote.Delete(ctx, equipmentTable, p.RemoteID)

	default:
		s.Log.Error().Str("action", string(m.Action)).Msg("unknown queued action dropped")
		return nil
	}
}

// equipmentPatchColumns are the remote row fields accepted back into the
// local table when reconciling change events.
var equipmentPatchColumns = map[string]bool{
	"name":          true,
	"serial_number": true,
	"type":          true,
	"brand":         true,
	"agency":        true,
	"location":      true,
	"temperature":   true,
	"status":        true,
	"afnor_id":      true,
}

// applyRemoteChange reconciles one confirmed backend change into the local
// table. Reconciliation is by remote id, last write wins.
func (s *EquipmentService) applyRemoteChange(ch backend.Change) {
	ctx := context.Background()
	switch ch.Type {
	case backend.ChangeInsert:
		if _, err := repo.GetEquipmentByRemoteID(ctx, s.DB, ch.ID); err == nil {
			return
		}
		if serial, ok := ch.Row["serial_number"].(string); ok && serial != "" {
			// Our own confirmed insert echoes back before the remote id is
			// recorded locally; match it by serial instead of duplicating.
			if e, err := repo.GetEquipmentBySerial(ctx, s.DB, serial); err == nil {
				if e.RemoteID == "" {
					if err := repo.SetEquipmentRemoteID(ctx, s.DB, e.ID, ch.ID); err != nil {
						s.Log.Warn().Str("remote_id", ch.ID).Err(err).Msg("recording remote id from change event failed")
					}
				}
				return
			}
		}
		e := equipmentFromRow(ch.Row)
		e.ID = NewLocalID()
		e.RemoteID = ch.ID
		if err := repo.CreateEquipment(ctx, s.DB, e); err != nil {
			s.Log.Warn().Str("remote_id", ch.ID).Err(err).Msg("applying remote insert failed")
		}

	case backend.ChangeUpdate:
		e, err := repo.GetEquipmentByRemoteID(ctx, s.DB, ch.ID)
		if err != nil {
			return
		}
		patch := make(map[string]any, len(ch.Row))
		for k, v := range ch.Row {
			if equipmentPatchColumns[k] {
				patch[k] = v
			}
		}
		if len(patch) == 0 {
			return
		}
		if err := repo.UpdateEquipment(ctx, s.DB, e.ID, patch); err != nil {
			s.Log.Warn().Str("remote_id", ch.ID).Err(err).Msg("applying remote update failed")
		}

	case backend.ChangeDelete:
		e, err := repo.GetEquipmentByRemoteID(ctx, s.DB, ch.ID)
		if err != nil {
			return
		}
		if err := repo.DeleteEquipment(ctx, s.DB, e.ID); err != nil && !errors.Is(err, repo.ErrNotFound) {
			s.Log.Warn().Str("remote_id", ch.ID).Err(err).Msg("applying remote delete failed")
		}
	}
}

// equipmentFromRow builds a local equipment from a remote row.
func equipmentFromRow(row backend.Row) *domain.Equipment {
	e := &domain.Equipment{Status: domain.EquipmentOperational}
	if v, ok := row["name"].(string); ok {
		e.Name = v
	}
	if v, ok := row["serial_number"].(string); ok {
		e.SerialNumber = v
	}
	if v, ok := row["type"].(string); ok {
		e.Type = v
	}
	if v, ok := row["brand"].(string); ok {
		e.Brand = v
	}
	if v, ok := row["agency"].(string); ok {
		e.Agency = v
	}
	if v, ok := row["location"].(string); ok {
		e.Location = v
	}
	if v, ok := row["temperature"].(float64); ok {
		e.Temperature = v
	}
	if v, ok := row["status"].(string); ok && v != "" {
		e.Status = v
	}
	if v, ok := row["afnor_id"].(string); ok {
		e.AFNORID = v
	}
	return e
}
