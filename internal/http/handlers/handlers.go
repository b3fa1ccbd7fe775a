// Handler wiring for the maintenance API.
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
// Service dependencies are expressed as interfaces so transport concerns stay
// separate from business logic and tests can substitute fakes.
package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/henrimbassi12/gulfmaintain-backend/internal/domain"
	"github.com/henrimbassi12/gulfmaintain-backend/internal/services"
	"github.com/henrimbassi12/gulfmaintain-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// EquipmentService defines equipment lifecycle operations consumed by HTTP
// handlers. Implementations must honor the provided context.
type EquipmentService interface {
	Create(ctx context.Context, e *domain.Equipment) error
	Update(ctx context.Context, id string, patch map[string]any) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*domain.Equipment, error)
	ListPage(ctx context.Context, agency string, offset, limit int) ([]domain.Equipment, int64, error)
}

// ReportService defines maintenance report operations.
type ReportService interface {
	// Create persists a report; created is false when idemKey replayed an
	// earlier submission and r was overwritten with the stored resource.
	Create(ctx context.Context, userID, idemKey string, r *domain.MaintenanceReport) (created bool, err error)
	Update(ctx context.Context, id string, patch map[string]any) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*domain.MaintenanceReport, error)
	ListPage(ctx context.Context, equipmentID string, offset, limit int) ([]domain.MaintenanceReport, int64, error)
}

// PredictionService defines failure-analysis operations.
type PredictionService interface {
	Analyze(ctx context.Context, equipmentID string) (*domain.FailurePrediction, error)
	History(ctx context.Context, equipmentID string) ([]domain.FailurePrediction, error)
}

// ProfileService defines technician roster operations.
type ProfileService interface {
	Create(ctx context.Context, t *domain.Technician) error
	List(ctx context.Context) ([]domain.Technician, error)
	Get(ctx context.Context, id string) (*domain.Technician, error)
	Update(ctx context.Context, id string, patch map[string]any) error
}

// AlertService defines alert lifecycle operations up to assignment.
type AlertService interface {
	Create(ctx context.Context, a *domain.Alert) error
	List(ctx context.Context, status string) ([]domain.Alert, error)
	Get(ctx context.Context, id string) (*domain.Alert, error)
	Resolve(ctx context.Context, id string) error
}

// AssignmentService defines technician selection operations.
type AssignmentService interface {
	ScoreCandidates(ctx context.Context, description string) ([]services.Candidate, error)
	AutoAssign(ctx context.Context, alertID string) (*domain.Technician, error)
}

// SyncService defines offline-queue introspection and control operations.
type SyncService interface {
	State() (online bool, queues []services.QueueState)
	Drain(ctx context.Context) map[string]map[string]bool
	Clear(ctx context.Context) error
	SetOnline(online bool)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints of the maintenance API.
type Handlers struct {
	equipSvc   EquipmentService
	reportSvc  ReportService
	predictSvc PredictionService
	profileSvc ProfileService
	alertSvc   AlertService
	assignSvc  AssignmentService
	syncSvc    SyncService
}

// New constructs a Handlers instance bound to the given services.
func New(equip EquipmentService, report ReportService, predict PredictionService, profile ProfileService, alert AlertService, assign AssignmentService, sync SyncService) *Handlers {
	return &Handlers{
		equipSvc:   equip,
		reportSvc:  report,
		predictSvc: predict,
		profileSvc: profile,
		alertSvc:   alert,
		assignSvc:  assign,
		syncSvc:    sync,
	}
}

// userID extracts the caller identity from the Gin context (set by upstream
// middleware). If absent, it falls back to the "X-User-ID" header (tests use
// it), and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

//
// Shared DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// paginate converts a total and page geometry into response metadata.
func paginate(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}
