package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/henrimbassi12/gulfmaintain-backend/internal/backend"
	"github.com/henrimbassi12/gulfmaintain-backend/internal/domain"
	"github.com/henrimbassi12/gulfmaintain-backend/internal/offline"
)

// fakeBackend is an in-memory backend.Client. failTransient simulates a
// network outage; reject simulates a non-transient 4xx rejection.
type fakeBackend struct {
	mu            sync.Mutex
	hub           *backend.Hub
	nextID        int
	inserted      []backend.Row
	updated       map[string][]backend.Row
	deleted       []string
	failTransient bool
	reject        bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{hub: backend.NewHub(), updated: make(map[string][]backend.Row)}
}

func (f *fakeBackend) callErr() error {
	if f.failTransient {
		return errors.New("dial tcp: connection refused")
	}
	if f.reject {
		return &backend.RejectionError{Status: 422, Code: "invalid", Message: "rejected"}
	}
	return nil
}

func (f *fakeBackend) Insert(_ context.Context, table string, row backend.Row) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.callErr(); err != nil {
		return "", err
	}
	f.nextID++
	id := fmt.Sprintf("srv-%d", f.nextID)
	f.inserted = append(f.inserted, row)
	return id, nil
}

func (f *fakeBackend) Update(_ context.Context, table, id string, patch backend.Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.callErr(); err != nil {
		return err
	}
	f.updated[id] = append(f.updated[id], patch)
	return nil
}

func (f *fakeBackend) Delete(_ context.Context, table, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.callErr(); err != nil {
		return err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeBackend) Select(context.Context, string) ([]backend.Row, error) { return nil, nil }

func (f *fakeBackend) Subscribe(table string, fn backend.ChangeFunc) func() {
	return f.hub.Subscribe(table, fn)
}

func (f *fakeBackend) insertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inserted)
}

func newEquipmentFixture(t *testing.T, online bool) (*EquipmentService, *fakeBackend, *offline.Monitor, *captureNotifier) {
	t.Helper()
	db := newTestDB(t)
	remote := newFakeBackend()
	monitor := offline.NewMonitor(online, zerolog.Nop())
	notifier := &captureNotifier{}
	svc, err := NewEquipmentService(context.Background(), db, remote, monitor, offline.NewMemStore(), notifier, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEquipmentService: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc, remote, monitor, notifier
}

func TestEquipmentCreate_Online_MirrorsAndRecordsRemoteID(t *testing.T) {
	svc, remote, _, _ := newEquipmentFixture(t, true)

	e := &domain.Equipment{Name: "Frigo vitrine", SerialNumber: "SN-1", Type: "Réfrigérateur"}
	if err := svc.Create(context.Background(), e); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.HasPrefix(e.ID, "local-") {
		t.Fatalf("expected local- prefixed id, got %q", e.ID)
	}
	if e.RemoteID != "srv-1" {
		t.Fatalf("remote id not recorded: %q", e.RemoteID)
	}
	if remote.insertCount() != 1 || svc.Queue.Len() != 0 {
		t.Fatalf("expected one mirrored insert and empty queue")
	}

	got, err := svc.Get(context.Background(), e.ID)
	if err != nil || got.RemoteID != "srv-1" {
		t.Fatalf("persisted remote id missing: err=%v got=%+v", err, got)
	}
}

func TestEquipmentCreate_Validation(t *testing.T) {
	svc, _, _, _ := newEquipmentFixture(t, true)
	err := svc.Create(context.Background(), &domain.Equipment{Name: "sans série"})
	if !errors.Is(err, ErrMissingFields) {
		t.Fatalf("expected ErrMissingFields, got %v", err)
	}
}

func TestEquipmentCreate_DuplicateSerial(t *testing.T) {
	svc, _, _, _ := newEquipmentFixture(t, true)
	ctx := context.Background()

	if err := svc.Create(ctx, &domain.Equipment{Name: "A", SerialNumber: "SN-DUP", Type: "T"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	err := svc.Create(ctx, &domain.Equipment{Name: "B", SerialNumber: "SN-DUP", Type: "T"})
	if !errors.Is(err, ErrDuplicateSerial) {
		t.Fatalf("expected ErrDuplicateSerial, got %v", err)
	}
}

func TestEquipmentCreate_Offline_QueuesAndDrainsOnReconnect(t *testing.T) {
	svc, remote, monitor, notifier := newEquipmentFixture(t, false)
	ctx := context.Background()

	e := &domain.Equipment{Name: "Congélateur", SerialNumber: "SN-OFF", Type: "Congélateur"}
	if err := svc.Create(ctx, e); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if e.RemoteID != "" || svc.Queue.Len() != 1 {
		t.Fatalf("offline create should queue: remote_id=%q queue=%d", e.RemoteID, svc.Queue.Len())
	}
	if remote.insertCount() != 0 {
		t.Fatalf("offline create must not hit the backend")
	}
	if len(notifier.notes) == 0 || notifier.notes[0].Level != NoticeInfo {
		t.Fatalf("expected offline-save notification, got %+v", notifier.notes)
	}

	// The reconnect edge triggers the drain synchronously.
	monitor.SetOnline(true)

	if svc.Queue.Len() != 0 || remote.insertCount() != 1 {
		t.Fatalf("reconnect did not drain: queue=%d inserts=%d", svc.Queue.Len(), remote.insertCount())
	}
	got, err := svc.Get(ctx, e.ID)
	if err != nil || got.RemoteID != "srv-1" {
		t.Fatalf("remote id not reconciled after drain: err=%v got=%+v", err, got)
	}
}

func TestEquipmentCreate_TransientFailureFlipsOffline(t *testing.T) {
	svc, remote, monitor, _ := newEquipmentFixture(t, true)
	remote.failTransient = true

	e := &domain.Equipment{Name: "Frigo", SerialNumber: "SN-T", Type: "T"}
	if err := svc.Create(context.Background(), e); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if monitor.Online() {
		t.Fatalf("transient failure should flip the monitor offline")
	}
	if svc.Queue.Len() != 1 || e.RemoteID != "" {
		t.Fatalf("write should be queued after transient failure")
	}
}

func TestEquipmentCreate_RejectionQueuesWithoutFlippingOffline(t *testing.T) {
	svc, _, monitor, _ := newEquipmentFixture(t, true)

	remoteFake := svc.Remote.(*fakeBackend)
	remoteFake.reject = true

	e := &domain.Equipment{Name: "Frigo", SerialNumber: "SN-R", Type: "T"}
	if err := svc.Create(context.Background(), e); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !monitor.Online() {
		t.Fatalf("a 4xx rejection must not flip connectivity")
	}
	if svc.Queue.Len() != 1 {
		t.Fatalf("rejected create should stay queued")
	}
}

func TestEquipmentUpdate_UnconfirmedRow_RefreshesQueuedCreate(t *testing.T) {
	svc, _, _, _ := newEquipmentFixture(t, false)
	ctx := context.Background()

	e := &domain.Equipment{Name: "Vitrine", SerialNumber: "SN-U", Type: "T"}
	if err := svc.Create(ctx, e); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Update(ctx, e.ID, map[string]any{"name": "Vitrine réparée"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// One entry per record: the queued create absorbs the edit.
	if svc.Queue.Len() != 1 {
		t.Fatalf("expected single collapsed entry, got %d", svc.Queue.Len())
	}
	m := svc.Queue.Pending()[0]
	if m.Action != offline.ActionCreate {
		t.Fatalf("update of unconfirmed row must requeue as create, got %s", m.Action)
	}
	if !strings.Contains(string(m.Payload), "Vitrine réparée") {
		t.Fatalf("queued create lacks merged state: %s", m.Payload)
	}
}

func TestEquipmentUpdate_ConfirmedRow_Offline_QueuesPatch(t *testing.T) {
	svc, remote, monitor, _ := newEquipmentFixture(t, true)
	ctx := context.Background()

	e := &domain.Equipment{Name: "Frigo", SerialNumber: "SN-P", Type: "T"}
	if err := svc.Create(ctx, e); err != nil {
		t.Fatalf("Create: %v", err)
	}
	monitor.SetOnline(false)

	if err := svc.Update(ctx, e.ID, map[string]any{"status": domain.EquipmentMaintenance}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if svc.Queue.Len() != 1 || svc.Queue.Pending()[0].Action != offline.ActionUpdate {
		t.Fatalf("expected queued update patch, got %+v", svc.Queue.Pending())
	}

	monitor.SetOnline(true)
	if svc.Queue.Len() != 0 {
		t.Fatalf("reconnect did not drain the patch")
	}
	remote.mu.Lock()
	patches := remote.updated["srv-1"]
	remote.mu.Unlock()
	if len(patches) != 1 || patches[0]["status"] != domain.EquipmentMaintenance {
		t.Fatalf("patch not replayed against the remote id: %+v", patches)
	}
}

func TestEquipmentDelete_NeverSyncedRow_NoRemoteCall(t *testing.T) {
	svc, remote, monitor, _ := newEquipmentFixture(t, false)
	ctx := context.Background()

	e := &domain.Equipment{Name: "Éphémère", SerialNumber: "SN-D", Type: "T"}
	if err := svc.Create(ctx, e); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Delete(ctx, e.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, e.ID); !errors.Is(err, ErrEquipmentNotFound) {
		t.Fatalf("expected local row gone, got %v", err)
	}

	monitor.SetOnline(true)
	if svc.Queue.Len() != 0 {
		t.Fatalf("queue should drain fully, len=%d", svc.Queue.Len())
	}
	remote.mu.Lock()
	defer remote.mu.Unlock()
	if len(remote.deleted) != 0 || len(remote.inserted) != 0 {
		t.Fatalf("never-synced row must not reach the backend: deletes=%v inserts=%d", remote.deleted, len(remote.inserted))
	}
}

func TestEquipmentRemoteChange_InsertEchoRecordsRemoteID(t *testing.T) {
	svc, remote, _, _ := newEquipmentFixture(t, false)
	ctx := context.Background()

	e := &domain.Equipment{Name: "Frigo", SerialNumber: "SN-ECHO", Type: "T"}
	if err := svc.Create(ctx, e); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// The backend echoes our own confirmed insert before the drain records
	// the id; it must be matched by serial, not duplicated.
	remote.hub.Publish(backend.Change{
		Table: "equipments",
		Type:  backend.ChangeInsert,
		ID:    "srv-echo",
		Row:   backend.Row{"serial_number": "SN-ECHO", "name": "Frigo"},
	})

	got, err := svc.Get(ctx, e.ID)
	if err != nil || got.RemoteID != "srv-echo" {
		t.Fatalf("echo not reconciled: err=%v got=%+v", err, got)
	}
	all, err := svc.List(ctx, "")
	if err != nil || len(all) != 1 {
		t.Fatalf("echo duplicated the row: err=%v n=%d", err, len(all))
	}
}

func TestEquipmentRemoteChange_UpdateAndDelete(t *testing.T) {
	svc, remote, _, _ := newEquipmentFixture(t, true)
	ctx := context.Background()

	e := &domain.Equipment{Name: "Frigo", SerialNumber: "SN-RC", Type: "T"}
	if err := svc.Create(ctx, e); err != nil {
		t.Fatalf("Create: %v", err)
	}

	remote.hub.Publish(backend.Change{
		Table: "equipments",
		Type:  backend.ChangeUpdate,
		ID:    e.RemoteID,
		Row:   backend.Row{"status": domain.EquipmentOutOfOrder, "ignored_column": "x"},
	})
	got, err := svc.Get(ctx, e.ID)
	if err != nil || got.Status != domain.EquipmentOutOfOrder {
		t.Fatalf("remote update not applied: err=%v got=%+v", err, got)
	}

	remote.hub.Publish(backend.Change{
		Table: "equipments",
		Type:  backend.ChangeDelete,
		ID:    e.RemoteID,
	})
	if _, err := svc.Get(ctx, e.ID); !errors.Is(err, ErrEquipmentNotFound) {
		t.Fatalf("remote delete not applied: %v", err)
	}
}
