// Maintenance report HTTP handlers.
//
// This file exposes REST endpoints for maintenance report resources:
//   - POST   /reports       (create, supports Idempotency-Key)
//   - GET    /reports       (list, paginated, equipment filter, ETag support)
//   - GET    /reports/{id}  (fetch)
//   - PATCH  /reports/{id}  (partial update)
//   - DELETE /reports/{id}  (delete)
//
// Creation accepts an Idempotency-Key header; resubmitting the same key
// within its TTL returns the original report with 200 instead of creating a
// duplicate with 201.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/henrimbassi12/gulfmaintain-backend/internal/domain"
	"github.com/henrimbassi12/gulfmaintain-backend/internal/http/middleware"
	"github.com/henrimbassi12/gulfmaintain-backend/internal/repo"
	"github.com/henrimbassi12/gulfmaintain-backend/internal/services"
)

// CreateReportRequest is the JSON payload for filing a maintenance report.
// Cost is a decimal string so amounts survive the wire exactly.
type CreateReportRequest struct {
	EquipmentID string `json:"equipment_id" binding:"required" example:"local-7f6f0f1e"`
	Technician  string `json:"technician" example:"NDJOKO IV Paul"`
	Type        string `json:"type" binding:"required" example:"corrective"`
	Description string `json:"description" example:"Remplacement du thermostat"`
	Cost        string `json:"cost" example:"12500.50"`
	Status      string `json:"status" example:"draft"`
}

// UpdateReportRequest is the JSON payload for a partial report update.
type UpdateReportRequest struct {
	Technician  *string `json:"technician"`
	Type        *string `json:"type"`
	Description *string `json:"description"`
	Cost        *string `json:"cost"`
	Status      *string `json:"status"`
}

// patch flattens the non-nil fields into a column patch. The cost string is
// validated as a decimal before being accepted.
func (r UpdateReportRequest) patch() (map[string]any, error) {
	p := make(map[string]any)
	if r.Technician != nil {
		p["technician"] = *r.Technician
	}
	if r.Type != nil {
		p["type"] = *r.Type
	}
	if r.Description != nil {
		p["description"] = *r.Description
	}
	if r.Cost != nil {
		d, err := decimal.NewFromString(*r.Cost)
		if err != nil {
			return nil, err
		}
		p["cost"] = d
	}
	if r.Status != nil {
		p["status"] = *r.Status
	}
	return p, nil
}

// ListReportsResponse wraps a page of reports and pagination metadata.
type ListReportsResponse struct {
	Reports    []domain.MaintenanceReport `json:"reports"`
	Pagination Pagination                 `json:"pagination"`
}

// CreateReport godoc
// @ID          createReport
// @Summary     File a maintenance report
// @Description Creates a report locally and mirrors it to the backend (or queues it offline). Safe to resubmit with the same Idempotency-Key.
// @Tags        Reports
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"
// @Param       Idempotency-Key  header  string  false "Resubmission protection key"
// @Param       body             body    handlers.CreateReportRequest  true  "Report payload"
//
// @Success     201  {object}  domain.MaintenanceReport
// @Success     200  {object}  domain.MaintenanceReport "Idempotent replay"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /reports [post]
func (h *Handlers) CreateReport(c *gin.Context) {
	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	cost := decimal.Zero
	if strings.TrimSpace(req.Cost) != "" {
		var err error
		cost, err = decimal.NewFromString(req.Cost)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "cost must be a decimal number")
			return
		}
	}

	r := &domain.MaintenanceReport{
		EquipmentID: req.EquipmentID,
		Technician:  req.Technician,
		Type:        req.Type,
		Description: req.Description,
		Cost:        cost,
		Status:      req.Status,
	}
	created, err := h.reportSvc.Create(c.Request.Context(), userID(c), middleware.IdempotencyKey(c), r)
	if err != nil {
		if errors.Is(err, services.ErrMissingFields) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "equipment_id and a valid type are required")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	ok(c, status, r)
}

// ListReports godoc
// @ID          listReports
// @Summary     List maintenance reports (paginated)
// @Description Returns a page of reports, optionally filtered by equipment. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Reports
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       equipment_id   query   string  false "Filter by equipment"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListReportsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /reports [get]
func (h *Handlers) ListReports(c *gin.Context) {
	ctx := c.Request.Context()
	equipmentID := strings.TrimSpace(c.Query("equipment_id"))
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, ok := h.reportSvc.(*services.ReportService); ok {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.ReportsStats(ctx, db, equipmentID)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"reports:%s:%d:%d"`, equipmentID, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.reportSvc.ListPage(ctx, equipmentID, (page-1)*pageSize, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListReportsResponse{
		Reports:    items,
		Pagination: paginate(page, pageSize, total),
	})
}

// GetReport godoc
// @ID          getReport
// @Summary     Fetch one report
// @Tags        Reports
// @Produce     json
//
// @Param       id  path  string  true  "Report ID"
//
// @Success     200  {object} domain.MaintenanceReport
// @Failure     404  {object} handlers.ErrorResponse "Report not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /reports/{id} [get]
func (h *Handlers) GetReport(c *gin.Context) {
	r, err := h.reportSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrReportNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "report not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, r)
}

// UpdateReport godoc
// @ID          updateReport
// @Summary     Update a report
// @Tags        Reports
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Report ID"
// @Param       body  body  handlers.UpdateReportRequest  true  "Fields to update"
//
// @Success     200  {object} domain.MaintenanceReport
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Report not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /reports/{id} [patch]
func (h *Handlers) UpdateReport(c *gin.Context) {
	var req UpdateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	patch, err := req.patch()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "cost must be a decimal number")
		return
	}
	if len(patch) == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "no fields to update")
		return
	}

	id := c.Param("id")
	if err := h.reportSvc.Update(c.Request.Context(), id, patch); err != nil {
		if errors.Is(err, services.ErrReportNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "report not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, err.Error())
		return
	}

	r, err := h.reportSvc.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, r)
}

// DeleteReport godoc
// @ID          deleteReport
// @Summary     Delete a report
// @Tags        Reports
//
// @Param       id  path  string  true  "Report ID"
//
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "Report not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /reports/{id} [delete]
func (h *Handlers) DeleteReport(c *gin.Context) {
	if err := h.reportSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, services.ErrReportNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "report not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, err.Error())
		return
	}
	noContent(c)
}
