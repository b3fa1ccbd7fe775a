package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/henrimbassi12/gulfmaintain-backend/internal/domain"
	"github.com/henrimbassi12/gulfmaintain-backend/internal/offline"
	"github.com/henrimbassi12/gulfmaintain-backend/internal/predict"
	"github.com/henrimbassi12/gulfmaintain-backend/internal/repo"
)

// stubPredictor returns a canned result and records the request it saw.
type stubPredictor struct {
	result  predict.Result
	lastReq predict.Request
}

func (p *stubPredictor) Predict(_ context.Context, req predict.Request) predict.Result {
	p.lastReq = req
	return p.result
}

func newPredictionFixture(t *testing.T, online bool, predictor Predictor) (*PredictionService, *EquipmentService, *fakeBackend, *offline.Monitor, *captureNotifier) {
	t.Helper()
	db := newTestDB(t)
	remote := newFakeBackend()
	monitor := offline.NewMonitor(online, zerolog.Nop())
	notifier := &captureNotifier{}
	store := offline.NewMemStore()

	equipSvc, err := NewEquipmentService(context.Background(), db, remote, monitor, store, notifier, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEquipmentService: %v", err)
	}
	t.Cleanup(equipSvc.Close)

	svc, err := NewPredictionService(context.Background(), db, predictor, remote, monitor, store, notifier, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewPredictionService: %v", err)
	}
	return svc, equipSvc, remote, monitor, notifier
}

func TestAnalyze_PersistsResultAndMirrors(t *testing.T) {
	predictor := &stubPredictor{result: predict.Result{
		FailureRisk:       0.72,
		PredictedType:     "Panne compresseur",
		Confidence:        0.9,
		RecommendedAction: "Remplacer le compresseur sous 7 jours",
	}}
	svc, equipSvc, _, _, notifier := newPredictionFixture(t, true, predictor)
	ctx := context.Background()

	e := &domain.Equipment{Name: "Frigo", SerialNumber: "SN-AI", Type: "Réfrigérateur", Temperature: 9.5}
	if err := equipSvc.Create(ctx, e); err != nil {
		t.Fatalf("seed equipment: %v", err)
	}

	p, err := svc.Analyze(ctx, e.ID)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if predictor.lastReq.EquipmentID != e.ID || predictor.lastReq.Temperature != 9.5 {
		t.Fatalf("predictor saw wrong request: %+v", predictor.lastReq)
	}
	if p.FailureRisk != 0.72 || p.Simulated {
		t.Fatalf("unexpected prediction: %+v", p)
	}
	if p.RemoteID == "" {
		t.Fatalf("online analysis should be mirrored")
	}
	for _, n := range notifier.notes {
		if n.Message == "Analyse IA indisponible, résultat simulé affiché" {
			t.Fatalf("real result must not raise the simulated warning")
		}
	}

	hist, err := svc.History(ctx, e.ID)
	if err != nil || len(hist) != 1 || hist[0].ID != p.ID {
		t.Fatalf("history readback: err=%v hist=%+v", err, hist)
	}
}

func TestAnalyze_SimulatedResultWarnsAndIsKept(t *testing.T) {
	predictor := &stubPredictor{result: predict.Result{
		FailureRisk:   0.4,
		PredictedType: "Givrage",
		Confidence:    0.5,
		Simulated:     true,
	}}
	svc, equipSvc, _, _, notifier := newPredictionFixture(t, true, predictor)
	ctx := context.Background()

	e := &domain.Equipment{Name: "Frigo", SerialNumber: "SN-SIM", Type: "T"}
	if err := equipSvc.Create(ctx, e); err != nil {
		t.Fatalf("seed equipment: %v", err)
	}

	p, err := svc.Analyze(ctx, e.ID)
	if err != nil || !p.Simulated {
		t.Fatalf("Analyze: err=%v p=%+v", err, p)
	}
	found := false
	for _, n := range notifier.notes {
		if n.Level == NoticeWarning && n.Message == "Analyse IA indisponible, résultat simulé affiché" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected simulated-result warning, got %+v", notifier.notes)
	}
}

func TestAnalyze_RequestCarriesAgeAndMaintenanceGap(t *testing.T) {
	predictor := &stubPredictor{result: predict.Result{FailureRisk: 0.3}}
	svc, equipSvc, _, _, _ := newPredictionFixture(t, true, predictor)
	ctx := context.Background()

	e := &domain.Equipment{Name: "Frigo", SerialNumber: "SN-GAP", Type: "Congélateur", Temperature: 5}
	if err := equipSvc.Create(ctx, e); err != nil {
		t.Fatalf("seed equipment: %v", err)
	}

	// Fresh equipment, no report yet: the gap counts from registration.
	if _, err := svc.Analyze(ctx, e.ID); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if predictor.lastReq.LastMaintenanceDays != 0 {
		t.Fatalf("fresh equipment gap = %d; want 0", predictor.lastReq.LastMaintenanceDays)
	}
	if predictor.lastReq.AgeYears < 0 || predictor.lastReq.AgeYears > 0.01 {
		t.Fatalf("fresh equipment age = %v; want ~0", predictor.lastReq.AgeYears)
	}

	// A backdated report moves the gap to the days since that intervention.
	old := &domain.MaintenanceReport{
		ID:          NewLocalID(),
		EquipmentID: e.ID,
		Type:        domain.ReportPreventive,
		Status:      "draft",
		CreatedAt:   time.Now().UTC().AddDate(0, 0, -120),
	}
	if err := repo.CreateReport(ctx, svc.DB, old); err != nil {
		t.Fatalf("seed report: %v", err)
	}
	if _, err := svc.Analyze(ctx, e.ID); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got := predictor.lastReq.LastMaintenanceDays; got < 119 || got > 121 {
		t.Fatalf("maintenance gap = %d days; want ~120", got)
	}

	// A newer report wins over the old one.
	recent := &domain.MaintenanceReport{
		ID:          NewLocalID(),
		EquipmentID: e.ID,
		Type:        domain.ReportCorrective,
		Status:      "draft",
		CreatedAt:   time.Now().UTC().AddDate(0, 0, -3),
	}
	if err := repo.CreateReport(ctx, svc.DB, recent); err != nil {
		t.Fatalf("seed report: %v", err)
	}
	if _, err := svc.Analyze(ctx, e.ID); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got := predictor.lastReq.LastMaintenanceDays; got < 2 || got > 4 {
		t.Fatalf("maintenance gap = %d days; want ~3", got)
	}
}

func TestAnalyze_UnknownEquipment(t *testing.T) {
	svc, _, _, _, _ := newPredictionFixture(t, true, &stubPredictor{})
	if _, err := svc.Analyze(context.Background(), "missing"); !errors.Is(err, ErrEquipmentNotFound) {
		t.Fatalf("expected ErrEquipmentNotFound, got %v", err)
	}
}

func TestAnalyze_Offline_QueuesHistoryRow(t *testing.T) {
	svc, equipSvc, remote, monitor, _ := newPredictionFixture(t, false, &stubPredictor{
		result: predict.Result{FailureRisk: 0.2, Simulated: true},
	})
	ctx := context.Background()

	e := &domain.Equipment{Name: "Frigo", SerialNumber: "SN-OFFAI", Type: "T"}
	if err := equipSvc.Create(ctx, e); err != nil {
		t.Fatalf("seed equipment: %v", err)
	}
	insertsBefore := remote.insertCount()

	p, err := svc.Analyze(ctx, e.ID)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if p.RemoteID != "" || svc.Queue.Len() != 1 {
		t.Fatalf("offline analysis should queue the row: remote_id=%q queue=%d", p.RemoteID, svc.Queue.Len())
	}

	monitor.SetOnline(true)
	if svc.Queue.Len() != 0 || remote.insertCount() != insertsBefore+2 {
		// +2: the queued equipment create drains alongside the prediction.
		t.Fatalf("reconnect did not drain predictions: queue=%d inserts=%d", svc.Queue.Len(), remote.insertCount())
	}
	hist, err := svc.History(ctx, e.ID)
	if err != nil || len(hist) != 1 || hist[0].RemoteID == "" {
		t.Fatalf("prediction remote id not reconciled: err=%v hist=%+v", err, hist)
	}
}
