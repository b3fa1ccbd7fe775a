// Package offline implements the offline mutation queue.
//
// This file contains the queue itself. Semantics, in order of importance:
//
//   - Durability: every enqueue and every successful replay rewrites the
//     whole snapshot through the Store, so the queue survives restarts.
//   - Last-write-wins per key: at most one mutation is retained per entity
//     key; a later enqueue for the same key silently replaces the earlier
//     one. Multiple offline edits to the same record collapse into one
//     mutation (intermediate states are lost).
//   - Sequential drain: replays run one at a time so queued operations
//     against the same backend never race each other from this client.
//   - At-least-once: a failed replay keeps its entry pending and is retried
//     on the next drain, with no backoff and no retry cap. There is no
//     dead-letter; a permanently rejected payload retries forever.
package offline

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Action identifies the kind of write a queued mutation represents.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Mutation statuses, exposed for queue introspection only. The queue does
// not persist IN_FLIGHT: a crash mid-drain reloads the entry as pending.
const (
	StatusPending  = "pending"
	StatusInFlight = "in_flight"
)

// Mutation is one buffered write intent.
//
// Key is the affected entity's identifier: the server-assigned id for an
// existing record, or the locally generated temporary id for a record whose
// create has not reached the backend yet. Payload is the full record for
// creates, the partial diff for updates, and empty for deletes. Timestamp is
// bookkeeping only; it carries no ordering guarantee.
type Mutation struct {
	Key       string          `json:"key"`
	Table     string          `json:"table"`
	Action    Action          `json:"action"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Status    string          `json:"status"`
}

// ApplyFunc performs the actual backend call for one mutation during drain.
type ApplyFunc func(ctx context.Context, m Mutation) error

// Queue buffers mutations for a single entity table. It is safe for
// concurrent use; drain holds no lock while the apply function runs.
type Queue struct {
	namespace string
	store     Store
	log       zerolog.Logger

	mu    sync.Mutex
	items map[string]*Mutation
}

// NewQueue constructs a queue for the given table and reloads any snapshot
// previously persisted under "offline_<table>". Entries that fail to decode
// are dropped with a warning rather than wedging the queue.
func NewQueue(ctx context.Context, table string, store Store, log zerolog.Logger) (*Queue, error) {
	q := &Queue{
		namespace: "offline_" + table,
		store:     store,
		log:       log.With().Str("component", "offline_queue").Str("table", table).Logger(),
		items:     make(map[string]*Mutation),
	}
	blobs, err := store.Load(ctx, q.namespace)
	if err != nil {
		return nil, err
	}
	for key, blob := range blobs {
		var m Mutation
		if err := json.Unmarshal(blob, &m); err != nil {
			q.log.Warn().Str("key", key).Err(err).Msg("dropping undecodable queue entry")
			continue
		}
		m.Status = StatusPending
		q.items[key] = &m
	}
	queueDepth.WithLabelValues(table).Set(float64(len(q.items)))
	return q, nil
}

// Table returns the entity table this queue buffers writes for.
func (q *Queue) Table() string { return q.namespace[len("offline_"):] }

// Enqueue buffers a write intent under m.Key, replacing any mutation already
// queued for that key, and persists the updated snapshot. It returns the key
// the entry was stored under.
func (q *Queue) Enqueue(ctx context.Context, m Mutation) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	m.Status = StatusPending
	if prev, ok := q.items[m.Key]; ok {
		q.log.Debug().Str("key", m.Key).
			Str("previous_action", string(prev.Action)).
			Str("action", string(m.Action)).
			Msg("overwriting queued mutation for key")
	}
	q.items[m.Key] = &m

	if err := q.persistLocked(ctx); err != nil {
		return "", err
	}
	queueDepth.WithLabelValues(q.Table()).Set(float64(len(q.items)))
	q.log.Info().Str("key", m.Key).Str("action", string(m.Action)).Msg("mutation queued")
	return m.Key, nil
}

// Pending returns a copy of the queued mutations ordered by capture time
// (oldest first; ties broken by key for determinism).
func (q *Queue) Pending() []Mutation {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Mutation, 0, len(q.items))
	for _, m := range q.items {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Key < out[j].Key
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// Len returns the number of queued mutations.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain replays every queued mutation sequentially through apply. On success
// the entry is removed and the snapshot persisted; on failure the entry
// stays pending for the next drain. The returned map records per-key
// success for aggregate reporting.
//
// Mutations enqueued while a drain is running are not picked up by that
// drain; they wait for the next one.
func (q *Queue) Drain(ctx context.Context, apply ApplyFunc) map[string]bool {
	batch := q.Pending()
	results := make(map[string]bool, len(batch))
	table := q.Table()

	for _, m := range batch {
		q.setStatus(m.Key, StatusInFlight)
		err := apply(ctx, m)
		if err != nil {
			q.setStatus(m.Key, StatusPending)
			results[m.Key] = false
			replaysFailed.WithLabelValues(table, string(m.Action)).Inc()
			q.log.Warn().Str("key", m.Key).Str("action", string(m.Action)).Err(err).
				Msg("replay failed, mutation kept for retry")
			continue
		}

		q.mu.Lock()
		// The entry may have been overwritten while in flight; only remove it
		// if it is still the one we replayed.
		if cur, ok := q.items[m.Key]; ok && cur.Timestamp.Equal(m.Timestamp) {
			delete(q.items, m.Key)
		}
		perr := q.persistLocked(ctx)
		depth := len(q.items)
		q.mu.Unlock()

		if perr != nil {
			q.log.Error().Str("key", m.Key).Err(perr).Msg("persisting queue after replay failed")
		}
		queueDepth.WithLabelValues(table).Set(float64(depth))
		results[m.Key] = true
		replaysDrained.WithLabelValues(table, string(m.Action)).Inc()
	}
	return results
}

// Clear drops all queued entries unconditionally and persists the empty
// snapshot. Intended for manual reset only.
func (q *Queue) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = make(map[string]*Mutation)
	queueDepth.WithLabelValues(q.Table()).Set(0)
	return q.persistLocked(ctx)
}

// setStatus updates the in-memory status of one entry if it still exists.
func (q *Queue) setStatus(key, status string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if m, ok := q.items[key]; ok {
		m.Status = status
	}
}

// persistLocked writes the full snapshot through the store. Caller holds q.mu.
func (q *Queue) persistLocked(ctx context.Context) error {
	blobs := make(map[string][]byte, len(q.items))
	for key, m := range q.items {
		b, err := json.Marshal(m)
		if err != nil {
			return err
		}
		blobs[key] = b
	}
	return q.store.Save(ctx, q.namespace, blobs)
}
