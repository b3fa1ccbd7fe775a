// Package backend abstracts the remote hosted backend: row-based table
// storage with CRUD plus change subscriptions per table. Domain services
// depend only on this interface; the transport lives in rest.go.
package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Row is one record as exchanged with the remote backend.
type Row map[string]any

// Change event types.
const (
	ChangeInsert = "insert"
	ChangeUpdate = "update"
	ChangeDelete = "delete"
)

// Change describes one confirmed write on a table, delivered to subscribers.
// Consumers reconcile by primary key, last write wins.
type Change struct {
	Table string
	Type  string
	ID    string
	Row   Row
}

// ChangeFunc receives change events for a subscribed table.
type ChangeFunc func(Change)

// Client is the remote backend contract used by the domain services and the
// offline queue's drain path.
type Client interface {
	// Insert creates a row and returns the server-assigned id.
	Insert(ctx context.Context, table string, row Row) (string, error)
	// Update applies a partial patch to the row identified by id.
	Update(ctx context.Context, table, id string, patch Row) error
	// Delete removes the row identified by id.
	Delete(ctx context.Context, table, id string) error
	// Select returns all rows of a table.
	Select(ctx context.Context, table string) ([]Row, error)
	// Subscribe registers fn for change events on table and returns a
	// cancellation function.
	Subscribe(table string, fn ChangeFunc) (cancel func())
}

// RejectionError is a non-transient backend rejection (4xx): constraint
// violations, malformed payloads. Callers map Code to a user-readable
// message and do not retry automatically. A queued replay will still retry
// per offline-queue semantics.
type RejectionError struct {
	Status  int
	Code    string
	Message string
}

// Error implements the error interface.
func (e *RejectionError) Error() string {
	return fmt.Sprintf("backend rejected request (%d %s): %s", e.Status, e.Code, e.Message)
}

// IsRejection reports whether err is a backend rejection (as opposed to a
// transient network or server failure).
func IsRejection(err error) bool {
	var re *RejectionError
	return errors.As(err, &re)
}

// Hub fans change events out to per-table subscribers. It backs Subscribe
// for both the REST client and test fakes. Safe for concurrent use;
// callbacks run synchronously on the publishing goroutine.
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]ChangeFunc
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]ChangeFunc)}
}

// Subscribe registers fn for events on table.
func (h *Hub) Subscribe(table string, fn ChangeFunc) (cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[table] == nil {
		h.subs[table] = make(map[int]ChangeFunc)
	}
	id := h.next
	h.next++
	h.subs[table][id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[table], id)
	}
}

// Publish delivers ev to every subscriber of ev.Table.
func (h *Hub) Publish(ev Change) {
	h.mu.Lock()
	fns := make([]ChangeFunc, 0, len(h.subs[ev.Table]))
	for _, fn := range h.subs[ev.Table] {
		fns = append(fns, fn)
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
