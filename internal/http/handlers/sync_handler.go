// Offline sync HTTP handlers.
//
// This file exposes the operator surface over connectivity and the offline
// mutation queues:
//   - GET    /sync/queue    (connectivity + buffered mutations per table)
//   - POST   /sync/drain    (force a replay of every queue)
//   - DELETE /sync/queue    (drop all buffered mutations)
//   - PUT    /sync/network  (report the network state; online edge drains)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/henrimbassi12/gulfmaintain-backend/internal/services"
)

// SyncStateResponse describes connectivity and queue contents.
type SyncStateResponse struct {
	Online bool                  `json:"online"`
	Queues []services.QueueState `json:"queues"`
}

// NetworkRequest is the JSON payload for reporting connectivity.
type NetworkRequest struct {
	Online *bool `json:"online" binding:"required"`
}

// SyncState godoc
// @ID          syncState
// @Summary     Inspect the offline queues
// @Tags        Sync
// @Produce     json
//
// @Success     200  {object} handlers.SyncStateResponse
// @Router      /sync/queue [get]
func (h *Handlers) SyncState(c *gin.Context) {
	online, queues := h.syncSvc.State()
	ok(c, http.StatusOK, SyncStateResponse{Online: online, Queues: queues})
}

// SyncDrain godoc
// @ID          syncDrain
// @Summary     Force a queue drain
// @Description Replays every buffered mutation against the remote backend and returns per-table, per-key results. Failed entries stay queued.
// @Tags        Sync
// @Produce     json
//
// @Success     200  {object} map[string]map[string]bool
// @Router      /sync/drain [post]
func (h *Handlers) SyncDrain(c *gin.Context) {
	ok(c, http.StatusOK, h.syncSvc.Drain(c.Request.Context()))
}

// SyncClear godoc
// @ID          syncClear
// @Summary     Drop all buffered mutations
// @Description Unconditionally clears every offline queue. Local data is untouched; only unsynchronized write intents are lost.
// @Tags        Sync
//
// @Success     204  {string} string "No Content"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /sync/queue [delete]
func (h *Handlers) SyncClear(c *gin.Context) {
	if err := h.syncSvc.Clear(c.Request.Context()); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeSyncFailed, err.Error())
		return
	}
	noContent(c)
}

// SyncNetwork godoc
// @ID          syncNetwork
// @Summary     Report the network state
// @Description Tells the agent whether the backend is reachable. The offline→online transition triggers a drain of all queues.
// @Tags        Sync
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.NetworkRequest  true  "New network state"
//
// @Success     200  {object} handlers.SyncStateResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Router      /sync/network [put]
func (h *Handlers) SyncNetwork(c *gin.Context) {
	var req NetworkRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Online == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "online (boolean) is required")
		return
	}
	h.syncSvc.SetOnline(*req.Online)
	online, queues := h.syncSvc.State()
	ok(c, http.StatusOK, SyncStateResponse{Online: online, Queues: queues})
}
