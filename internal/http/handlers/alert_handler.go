// Alert HTTP handlers.
//
// This file exposes REST endpoints for incident alerts and technician
// assignment:
//   - POST /alerts                  (raise)
//   - GET  /alerts                  (list, status filter)
//   - GET  /alerts/{id}             (fetch)
//   - GET  /alerts/{id}/candidates  (scored technician ranking, read-only)
//   - POST /alerts/{id}/assign      (auto-assign best technician)
//   - POST /alerts/{id}/resolve     (close)
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/henrimbassi12/gulfmaintain-backend/internal/domain"
	"github.com/henrimbassi12/gulfmaintain-backend/internal/services"
)

// CreateAlertRequest is the JSON payload for raising an alert.
type CreateAlertRequest struct {
	EquipmentID string `json:"equipment_id" binding:"required" example:"local-7f6f0f1e"`
	Description string `json:"description" binding:"required" example:"Surchauffe du compresseur, bruit anormal"`
	Priority    string `json:"priority" example:"high"`
}

// AssignResponse is returned after a successful auto-assignment.
type AssignResponse struct {
	Alert      *domain.Alert      `json:"alert"`
	Technician *domain.Technician `json:"technician"`
}

// CreateAlert godoc
// @ID          createAlert
// @Summary     Raise an alert
// @Description Raises an incident alert against an equipment. High priority marks the equipment out of order.
// @Tags        Alerts
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreateAlertRequest  true  "Alert payload"
//
// @Success     201  {object}  domain.Alert
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Equipment not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /alerts [post]
func (h *Handlers) CreateAlert(c *gin.Context) {
	var req CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	a := &domain.Alert{
		EquipmentID: strings.TrimSpace(req.EquipmentID),
		Description: strings.TrimSpace(req.Description),
		Priority:    req.Priority,
	}
	if err := h.alertSvc.Create(c.Request.Context(), a); err != nil {
		switch {
		case errors.Is(err, services.ErrMissingFields):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "equipment_id and description are required")
		case errors.Is(err, services.ErrEquipmentNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "equipment not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, a)
}

// ListAlerts godoc
// @ID          listAlerts
// @Summary     List alerts
// @Tags        Alerts
// @Produce     json
//
// @Param       status  query  string  false "Filter by status (open|assigned|resolved)"
//
// @Success     200  {array}  domain.Alert
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /alerts [get]
func (h *Handlers) ListAlerts(c *gin.Context) {
	items, err := h.alertSvc.List(c.Request.Context(), strings.TrimSpace(c.Query("status")))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, items)
}

// GetAlert godoc
// @ID          getAlert
// @Summary     Fetch one alert
// @Tags        Alerts
// @Produce     json
//
// @Param       id  path  string  true  "Alert ID"
//
// @Success     200  {object} domain.Alert
// @Failure     404  {object} handlers.ErrorResponse "Alert not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /alerts/{id} [get]
func (h *Handlers) GetAlert(c *gin.Context) {
	a, err := h.alertSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrAlertNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "alert not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, a)
}

// AlertCandidates godoc
// @ID          alertCandidates
// @Summary     Rank technicians for an alert
// @Description Returns every available technician with its assignment score for this alert, in roster order. Read-only; nothing is assigned.
// @Tags        Alerts
// @Produce     json
//
// @Param       id  path  string  true  "Alert ID"
//
// @Success     200  {array}  services.Candidate
// @Failure     404  {object} handlers.ErrorResponse "Alert not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /alerts/{id}/candidates [get]
func (h *Handlers) AlertCandidates(c *gin.Context) {
	a, err := h.alertSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrAlertNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "alert not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	candidates, err := h.assignSvc.ScoreCandidates(c.Request.Context(), a.Description)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, candidates)
}

// AssignAlert godoc
// @ID          assignAlert
// @Summary     Auto-assign the best technician
// @Description Scores available technicians against the alert description and assigns the best one. Returns 409 when no technician is available or the alert is not open.
// @Tags        Alerts
// @Produce     json
//
// @Param       id  path  string  true  "Alert ID"
//
// @Success     200  {object} handlers.AssignResponse
// @Failure     404  {object} handlers.ErrorResponse "Alert not found"
// @Failure     409  {object} handlers.ErrorResponse "No technician available / alert not open"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /alerts/{id}/assign [post]
func (h *Handlers) AssignAlert(c *gin.Context) {
	id := c.Param("id")
	tech, err := h.assignSvc.AutoAssign(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAlertNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "alert not found")
		case errors.Is(err, services.ErrNoTechnicianAvailable):
			fail(c, http.StatusConflict, ErrCodeNoTechnician, "no technician available")
		case errors.Is(err, services.ErrAlertNotOpen):
			fail(c, http.StatusConflict, ErrCodeConflict, "alert is not open")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	a, err := h.alertSvc.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, AssignResponse{Alert: a, Technician: tech})
}

// ResolveAlert godoc
// @ID          resolveAlert
// @Summary     Resolve an alert
// @Tags        Alerts
//
// @Param       id  path  string  true  "Alert ID"
//
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "Alert not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /alerts/{id}/resolve [post]
func (h *Handlers) ResolveAlert(c *gin.Context) {
	if err := h.alertSvc.Resolve(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, services.ErrAlertNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "alert not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}
