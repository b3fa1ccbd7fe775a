// Technician profile HTTP handlers.
//
// This file exposes REST endpoints for the technician roster:
//   - POST  /profiles       (register)
//   - GET   /profiles       (roster, deterministic order)
//   - GET   /profiles/{id}  (fetch)
//   - PATCH /profiles/{id}  (partial update: availability, distance, ...)
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/henrimbassi12/gulfmaintain-backend/internal/domain"
	"github.com/henrimbassi12/gulfmaintain-backend/internal/services"
)

// CreateProfileRequest is the JSON payload for registering a technician.
type CreateProfileRequest struct {
	Name            string   `json:"name" binding:"required" example:"VOUKENG Michel"`
	Specializations []string `json:"specializations" example:"Réfrigération,Électricité"`
	DistanceKM      float64  `json:"distance_km" example:"2"`
	ExperienceYears float64  `json:"experience_years" example:"5"`
	SuccessRate     float64  `json:"success_rate" example:"90"`
	Availability    string   `json:"availability" example:"available"`
}

// UpdateProfileRequest is the JSON payload for a partial profile update.
type UpdateProfileRequest struct {
	Specializations *[]string `json:"specializations"`
	DistanceKM      *float64  `json:"distance_km"`
	ExperienceYears *float64  `json:"experience_years"`
	SuccessRate     *float64  `json:"success_rate"`
	Availability    *string   `json:"availability"`
}

// patch flattens the non-nil fields into a column patch.
func (r UpdateProfileRequest) patch() map[string]any {
	p := make(map[string]any)
	if r.Specializations != nil {
		p["specializations"] = domain.StringList(*r.Specializations)
	}
	if r.DistanceKM != nil {
		p["distance_km"] = *r.DistanceKM
	}
	if r.ExperienceYears != nil {
		p["experience_years"] = *r.ExperienceYears
	}
	if r.SuccessRate != nil {
		p["success_rate"] = *r.SuccessRate
	}
	if r.Availability != nil {
		p["availability"] = *r.Availability
	}
	return p
}

// CreateProfile godoc
// @ID          createProfile
// @Summary     Register a technician
// @Tags        Profiles
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreateProfileRequest  true  "Technician payload"
//
// @Success     201  {object}  domain.Technician
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /profiles [post]
func (h *Handlers) CreateProfile(c *gin.Context) {
	var req CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	t := &domain.Technician{
		Name:            strings.TrimSpace(req.Name),
		Specializations: req.Specializations,
		DistanceKM:      req.DistanceKM,
		ExperienceYears: req.ExperienceYears,
		SuccessRate:     req.SuccessRate,
		Availability:    req.Availability,
	}
	if err := h.profileSvc.Create(c.Request.Context(), t); err != nil {
		if errors.Is(err, services.ErrMissingFields) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name is required")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, t)
}

// ListProfiles godoc
// @ID          listProfiles
// @Summary     List the technician roster
// @Tags        Profiles
// @Produce     json
//
// @Success     200  {array}  domain.Technician
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /profiles [get]
func (h *Handlers) ListProfiles(c *gin.Context) {
	items, err := h.profileSvc.List(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, items)
}

// GetProfile godoc
// @ID          getProfile
// @Summary     Fetch one technician profile
// @Tags        Profiles
// @Produce     json
//
// @Param       id  path  string  true  "Profile ID"
//
// @Success     200  {object} domain.Technician
// @Failure     404  {object} handlers.ErrorResponse "Technician not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /profiles/{id} [get]
func (h *Handlers) GetProfile(c *gin.Context) {
	t, err := h.profileSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrTechnicianNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "technician not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, t)
}

// UpdateProfile godoc
// @ID          updateProfile
// @Summary     Update a technician profile
// @Tags        Profiles
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Profile ID"
// @Param       body  body  handlers.UpdateProfileRequest  true  "Fields to update"
//
// @Success     200  {object} domain.Technician
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Technician not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /profiles/{id} [patch]
func (h *Handlers) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
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
	if err := h.profileSvc.Update(c.Request.Context(), id, patch); err != nil {
		if errors.Is(err, services.ErrTechnicianNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "technician not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, err.Error())
		return
	}

	t, err := h.profileSvc.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, t)
}
