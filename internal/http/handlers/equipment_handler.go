// Equipment HTTP handlers.
//
// This file exposes REST endpoints for equipment resources:
//   - POST   /equipments       (create)
//   - GET    /equipments       (list, paginated, agency filter, ETag support)
//   - GET    /equipments/{id}  (fetch)
//   - PATCH  /equipments/{id}  (partial update)
//   - DELETE /equipments/{id}  (delete)
//
// Writes always succeed against the local store; whether they reached the
// remote backend or were queued offline is not surfaced per request (the sync
// endpoints expose queue state).
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/henrimbassi12/gulfmaintain-backend/internal/domain"
	"github.com/henrimbassi12/gulfmaintain-backend/internal/repo"
	"github.com/henrimbassi12/gulfmaintain-backend/internal/services"
)

// CreateEquipmentRequest is the JSON payload for registering an equipment.
type CreateEquipmentRequest struct {
	Name         string  `json:"name" binding:"required" example:"Frigo vitrine 450L"`
	SerialNumber string  `json:"serial_number" binding:"required" example:"SN-2024-00123"`
	Type         string  `json:"type" binding:"required" example:"Réfrigérateur"`
	Brand        string  `json:"brand" example:"Haier"`
	Agency       string  `json:"agency" example:"Douala"`
	Location     string  `json:"location" example:"Marché central, allée 4"`
	Temperature  float64 `json:"temperature" example:"4.5"`
	Status       string  `json:"status" example:"operational"`
	AFNORID      string  `json:"afnor_id" example:"AF-2024-118"`
}

// UpdateEquipmentRequest is the JSON payload for a partial update. Nil fields
// are left untouched.
type UpdateEquipmentRequest struct {
	Name        *string  `json:"name"`
	Type        *string  `json:"type"`
	Brand       *string  `json:"brand"`
	Agency      *string  `json:"agency"`
	Location    *string  `json:"location"`
	Temperature *float64 `json:"temperature"`
	Status      *string  `json:"status"`
	AFNORID     *string  `json:"afnor_id"`
}

// patch flattens the non-nil fields into a column patch.
func (r UpdateEquipmentRequest) patch() map[string]any {
	p := make(map[string]any)
	if r.Name != nil {
		p["name"] = *r.Name
	}
	if r.Type != nil {
		p["type"] = *r.Type
	}
	if r.Brand != nil {
		p["brand"] = *r.Brand
	}
	if r.Agency != nil {
		p["agency"] = *r.Agency
	}
	if r.Location != nil {
		p["location"] = *r.Location
	}
	if r.Temperature != nil {
		p["temperature"] = *r.Temperature
	}
	if r.Status != nil {
		p["status"] = *r.Status
	}
	if r.AFNORID != nil {
		p["afnor_id"] = *r.AFNORID
	}
	return p
}

// ListEquipmentsResponse wraps a page of equipments and pagination metadata.
type ListEquipmentsResponse struct {
	Equipments []domain.Equipment `json:"equipments"`
	Pagination Pagination         `json:"pagination"`
}

// CreateEquipment godoc
// @ID          createEquipment
// @Summary     Register an equipment
// @Description Creates an equipment record locally and mirrors it to the backend (or queues it offline).
// @Tags        Equipments
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreateEquipmentRequest  true  "Equipment payload"
//
// @Success     201  {object}  domain.Equipment
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Duplicate serial number"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /equipments [post]
func (h *Handlers) CreateEquipment(c *gin.Context) {
	var req CreateEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	e := &domain.Equipment{
		Name:         strings.TrimSpace(req.Name),
		SerialNumber: strings.TrimSpace(req.SerialNumber),
		Type:         strings.TrimSpace(req.Type),
		Brand:        req.Brand,
		Agency:       req.Agency,
		Location:     req.Location,
		Temperature:  req.Temperature,
		Status:       req.Status,
		AFNORID:      req.AFNORID,
	}
	if err := h.equipSvc.Create(c.Request.Context(), e); err != nil {
		switch {
		case errors.Is(err, services.ErrMissingFields):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name, serial_number and type are required")
		case errors.Is(err, services.ErrDuplicateSerial):
			fail(c, http.StatusConflict, ErrCodeDuplicateSerial, "serial number already registered")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, e)
}

// ListEquipments godoc
// @ID          listEquipments
// @Summary     List equipments (paginated)
// @Description Returns a page of equipments, optionally filtered by agency. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Equipments
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       agency         query   string  false "Filter by agency"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListEquipmentsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /equipments [get]
func (h *Handlers) ListEquipments(c *gin.Context) {
	ctx := c.Request.Context()
	agency := strings.TrimSpace(c.Query("agency"))
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, ok := h.equipSvc.(*services.EquipmentService); ok {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.EquipmentsStats(ctx, db, agency)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"equipments:%s:%d:%d"`, agency, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.equipSvc.ListPage(ctx, agency, (page-1)*pageSize, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListEquipmentsResponse{
		Equipments: items,
		Pagination: paginate(page, pageSize, total),
	})
}

// GetEquipment godoc
// @ID          getEquipment
// @Summary     Fetch one equipment
// @Tags        Equipments
// @Produce     json
//
// @Param       id  path  string  true  "Equipment ID"
//
// @Success     200  {object} domain.Equipment
// @Failure     404  {object} handlers.ErrorResponse "Equipment not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /equipments/{id} [get]
func (h *Handlers) GetEquipment(c *gin.Context) {
	e, err := h.equipSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrEquipmentNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "equipment not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, e)
}

// UpdateEquipment godoc
// @ID          updateEquipment
// @Summary     Update an equipment
// @Description Applies a partial update locally and mirrors it to the backend (or queues it offline).
// @Tags        Equipments
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Equipment ID"
// @Param       body  body  handlers.UpdateEquipmentRequest  true  "Fields to update"
//
// @Success     200  {object} domain.Equipment
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Equipment not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /equipments/{id} [patch]
func (h *Handlers) UpdateEquipment(c *gin.Context) {
	var req UpdateEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	patch := req.patch()
	if len(patch) == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "no fields to update")
		return
	}

	id := c.Param("id")
	if err := h.equipSvc.Update(c.Request.Context(), id, patch); err != nil {
		switch {
		case errors.Is(err, services.ErrEquipmentNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "equipment not found")
		case errors.Is(err, services.ErrDuplicateSerial):
			fail(c, http.StatusConflict, ErrCodeDuplicateSerial, "serial number already registered")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, err.Error())
		}
		return
	}

	e, err := h.equipSvc.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, e)
}

// DeleteEquipment godoc
// @ID          deleteEquipment
// @Summary     Delete an equipment
// @Tags        Equipments
//
// @Param       id  path  string  true  "Equipment ID"
//
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "Equipment not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /equipments/{id} [delete]
func (h *Handlers) DeleteEquipment(c *gin.Context) {
	if err := h.equipSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, services.ErrEquipmentNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "equipment not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, err.Error())
		return
	}
	noContent(c)
}
