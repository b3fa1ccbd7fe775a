// Failure prediction HTTP handlers.
//
// This file exposes the AI failure-analysis endpoints:
//   - POST /predictions/analyze  (run an analysis for one equipment)
//   - GET  /predictions          (history, equipment filter)
//
// Analysis never fails on the prediction side: when the external API is
// unreachable the result is simulated and flagged as such.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/henrimbassi12/gulfmaintain-backend/internal/services"
)

// AnalyzeRequest is the JSON payload for running a failure analysis.
type AnalyzeRequest struct {
	EquipmentID string `json:"equipment_id" binding:"required" example:"local-7f6f0f1e"`
}

// Analyze godoc
// @ID          analyzeEquipment
// @Summary     Run a failure analysis
// @Description Runs an AI failure analysis for the equipment and stores the result in history. Falls back to a simulated result when the prediction API is unavailable.
// @Tags        Predictions
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.AnalyzeRequest  true  "Analysis target"
//
// @Success     201  {object}  domain.FailurePrediction
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Equipment not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /predictions/analyze [post]
func (h *Handlers) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "equipment_id is required")
		return
	}
	p, err := h.predictSvc.Analyze(c.Request.Context(), strings.TrimSpace(req.EquipmentID))
	if err != nil {
		if errors.Is(err, services.ErrEquipmentNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "equipment not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, p)
}

// ListPredictions godoc
// @ID          listPredictions
// @Summary     List prediction history
// @Tags        Predictions
// @Produce     json
//
// @Param       equipment_id  query  string  false "Filter by equipment"
//
// @Success     200  {array}  domain.FailurePrediction
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /predictions [get]
func (h *Handlers) ListPredictions(c *gin.Context) {
	items, err := h.predictSvc.History(c.Request.Context(), strings.TrimSpace(c.Query("equipment_id")))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, items)
}
