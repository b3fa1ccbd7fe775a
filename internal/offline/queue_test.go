package offline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestQueue(t *testing.T, store Store) *Queue {
	t.Helper()
	q, err := NewQueue(context.Background(), "equipments", store, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}
	return q
}

func mut(key string, action Action, payload string) Mutation {
	return Mutation{
		Key:     key,
		Table:   "equipments",
		Action:  action,
		Payload: json.RawMessage(payload),
	}
}

func TestQueue_Enqueue_LastWriteWinsPerKey(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t, NewMemStore())

	if _, err := q.Enqueue(ctx, mut("local-1", ActionCreate, `{"name":"v1"}`)); err != nil {
		t.Fatalf("enqueue create: %v", err)
	}
	if _, err := q.Enqueue(ctx, mut("local-1", ActionCreate, `{"name":"v2"}`)); err != nil {
		t.Fatalf("enqueue overwrite: %v", err)
	}
	if _, err := q.Enqueue(ctx, mut("local-2", ActionUpdate, `{"status":"maintenance"}`)); err != nil {
		t.Fatalf("enqueue second key: %v", err)
	}

	if q.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", q.Len())
	}
	var got *Mutation
	for _, m := range q.Pending() {
		if m.Key == "local-1" {
			m := m
			got = &m
		}
	}
	if got == nil {
		t.Fatalf("local-1 missing from pending")
	}
	if string(got.Payload) != `{"name":"v2"}` {
		t.Fatalf("expected later payload to win, got %s", got.Payload)
	}
}

func TestQueue_Pending_OrderedOldestFirst(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t, NewMemStore())

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, key := range []string{"c", "a", "b"} {
		m := mut(key, ActionCreate, `{}`)
		m.Timestamp = base.Add(time.Duration(i) * time.Minute)
		if _, err := q.Enqueue(ctx, m); err != nil {
			t.Fatalf("enqueue %s: %v", key, err)
		}
	}

	pending := q.Pending()
	want := []string{"c", "a", "b"}
	for i, m := range pending {
		if m.Key != want[i] {
			t.Fatalf("pending[%d]=%s, want %s", i, m.Key, want[i])
		}
		if m.Status != StatusPending {
			t.Fatalf("pending[%d] status=%s", i, m.Status)
		}
	}
}

func TestQueue_Drain_RemovesSuccesses_KeepsFailures(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	q := newTestQueue(t, store)

	for _, key := range []string{"ok-1", "bad-1", "ok-2"} {
		if _, err := q.Enqueue(ctx, mut(key, ActionCreate, `{}`)); err != nil {
			t.Fatalf("enqueue %s: %v", key, err)
		}
	}

	var applied []string
	results := q.Drain(ctx, func(_ context.Context, m Mutation) error {
		applied = append(applied, m.Key)
		if m.Key == "bad-1" {
			return errors.New("backend rejected")
		}
		return nil
	})

	if len(applied) != 3 {
		t.Fatalf("expected every entry attempted, got %v", applied)
	}
	if !results["ok-1"] || !results["ok-2"] || results["bad-1"] {
		t.Fatalf("unexpected results: %v", results)
	}
	if q.Len() != 1 {
		t.Fatalf("expected only the failure retained, len=%d", q.Len())
	}
	if rest := q.Pending(); rest[0].Key != "bad-1" || rest[0].Status != StatusPending {
		t.Fatalf("retained entry wrong: %+v", rest[0])
	}

	// The failure is retried on the next drain.
	results = q.Drain(ctx, func(context.Context, Mutation) error { return nil })
	if !results["bad-1"] || q.Len() != 0 {
		t.Fatalf("retry did not clear the queue: results=%v len=%d", results, q.Len())
	}
}

func TestQueue_Drain_OverwriteDuringFlightIsKept(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t, NewMemStore())

	if _, err := q.Enqueue(ctx, mut("local-1", ActionCreate, `{"name":"old"}`)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	// Simulate a concurrent edit landing while the entry is being replayed:
	// the replay of the old payload succeeds, but the fresher mutation must
	// not be dropped with it.
	results := q.Drain(ctx, func(_ context.Context, m Mutation) error {
		newer := mut("local-1", ActionUpdate, `{"name":"new"}`)
		newer.Timestamp = m.Timestamp.Add(time.Second)
		if _, err := q.Enqueue(ctx, newer); err != nil {
			t.Fatalf("enqueue during drain: %v", err)
		}
		return nil
	})

	if !results["local-1"] {
		t.Fatalf("replay should have succeeded: %v", results)
	}
	if q.Len() != 1 {
		t.Fatalf("in-flight overwrite lost, len=%d", q.Len())
	}
	if p := q.Pending(); string(p[0].Payload) != `{"name":"new"}` {
		t.Fatalf("retained wrong payload: %s", p[0].Payload)
	}
}

func TestQueue_SurvivesRestartThroughStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	q1 := newTestQueue(t, store)
	if _, err := q1.Enqueue(ctx, mut("local-9", ActionCreate, `{"serial_number":"SN-9"}`)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := q1.Enqueue(ctx, mut("r-4", ActionDelete, `{"remote_id":"r-4"}`)); err != nil {
		t.Fatalf("enqueue delete: %v", err)
	}

	// New queue over the same store stands in for a process restart.
	q2 := newTestQueue(t, store)
	if q2.Len() != 2 {
		t.Fatalf("expected 2 reloaded entries, got %d", q2.Len())
	}
	for _, m := range q2.Pending() {
		if m.Status != StatusPending {
			t.Fatalf("reloaded entry not pending: %+v", m)
		}
	}
}

func TestQueue_ReloadDropsUndecodableEntries(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	if err := store.Save(ctx, "offline_equipments", map[string][]byte{
		"good": mustJSON(t, mut("good", ActionCreate, `{}`)),
		"bad":  []byte("not json"),
	}); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	q := newTestQueue(t, store)
	if q.Len() != 1 {
		t.Fatalf("expected undecodable entry dropped, len=%d", q.Len())
	}
	if p := q.Pending(); p[0].Key != "good" {
		t.Fatalf("wrong survivor: %+v", p[0])
	}
}

func TestQueue_Clear_EmptiesQueueAndStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	q := newTestQueue(t, store)

	for _, key := range []string{"a", "b"} {
		if _, err := q.Enqueue(ctx, mut(key, ActionUpdate, `{}`)); err != nil {
			t.Fatalf("enqueue %s: %v", key, err)
		}
	}
	if err := q.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if q.Len() != 0 {
		t.Fatalf("queue not empty after clear")
	}
	blobs, err := store.Load(ctx, "offline_equipments")
	if err != nil || len(blobs) != 0 {
		t.Fatalf("store not cleared: blobs=%v err=%v", blobs, err)
	}
}

func TestQueue_Table(t *testing.T) {
	q := newTestQueue(t, NewMemStore())
	if q.Table() != "equipments" {
		t.Fatalf("Table()=%q", q.Table())
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}
