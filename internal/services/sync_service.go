// Package services – SyncService
//
// SyncService is the operator's view over connectivity and the per-table
// offline queues: inspect what is buffered, force a drain, clear a wedged
// queue, and toggle the reported network state. The toggle exists because
// connectivity is event-based; dispatch tooling (or a health probe) tells
// the agent when the link is back rather than the agent polling for it.
package services

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/henrimbassi12/gulfmaintain-backend/internal/offline"
)

// Syncable is the slice of a domain service the sync surface needs: its
// queue plus the drain entrypoint.
type Syncable interface {
	Sync(ctx context.Context) map[string]bool
}

// tableSync pairs a queue with its owning service's drain method.
type tableSync struct {
	queue *offline.Queue
	sync  Syncable
}

// SyncService aggregates the offline queues of all domain services.
type SyncService struct {
	Monitor *offline.Monitor
	Log     zerolog.Logger

	tables map[string]tableSync
	order  []string
}

// NewSyncService wires a SyncService over the connectivity monitor.
func NewSyncService(monitor *offline.Monitor, log zerolog.Logger) *SyncService {
	return &SyncService{
		Monitor: monitor,
		Log:     log.With().Str("component", "sync_service").Logger(),
		tables:  make(map[string]tableSync),
	}
}

// Register adds a queue and its drain entrypoint under its table name.
// Registration order is preserved for reporting.
func (s *SyncService) Register(q *offline.Queue, sync Syncable) {
	s.tables[q.Table()] = tableSync{queue: q, sync: sync}
	s.order = append(s.order, q.Table())
}

// QueueState describes the buffered mutations of one table.
type QueueState struct {
	Table    string             `json:"table"`
	Depth    int                `json:"depth"`
	Pending  []offline.Mutation `json:"pending"`
}

// State returns the current connectivity flag and every queue's contents in
// registration order.
func (s *SyncService) State() (online bool, queues []QueueState) {
	online = s.Monitor.Online()
	for _, table := range s.order {
		q := s.tables[table].queue
		queues = append(queues, QueueState{
			Table:   table,
			Depth:   q.Len(),
			Pending: q.Pending(),
		})
	}
	return online, queues
}

// Drain replays every registered queue and returns per-table, per-key
// results.
func (s *SyncService) Drain(ctx context.Context) map[string]map[string]bool {
	tr := otel.Tracer("services/SyncService")
	ctx, span := tr.Start(ctx, "Drain",
		trace.WithAttributes(attribute.Int("tables", len(s.order))),
	)
	defer span.End()

	out := make(map[string]map[string]bool, len(s.order))
	for _, table := range s.order {
		out[table] = s.tables[table].sync.Sync(ctx)
	}
	return out
}

// Clear drops every buffered mutation unconditionally. Local state is kept;
// only the replay intents are discarded.
func (s *SyncService) Clear(ctx context.Context) error {
	tr := otel.Tracer("services/SyncService")
	ctx, span := tr.Start(ctx, "Clear")
	defer span.End()

	for _, table := range s.order {
		if err := s.tables[table].queue.Clear(ctx); err != nil {
			return err
		}
	}
	s.Log.Info().Msg("offline queues cleared")
	return nil
}

// SetOnline updates the reported connectivity. The offline→online edge
// triggers the registered reconnect drains synchronously.
func (s *SyncService) SetOnline(online bool) {
	s.Monitor.SetOnline(online)
}
