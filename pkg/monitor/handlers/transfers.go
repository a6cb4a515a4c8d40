package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/manelneto/penguin/pkg/history"
	"github.com/manelneto/penguin/pkg/monitor/types"
)

const defaultTransfersLimit = 50

// TransfersHandler serves the read-only transfer ledger from pkg/history.
type TransfersHandler struct {
	store *history.Store
}

// NewTransfersHandler wires a transfers handler to a history store.
func NewTransfersHandler(store *history.Store) *TransfersHandler {
	return &TransfersHandler{store: store}
}

// List handles GET /api/v1/transfers?limit=N.
func (h *TransfersHandler) List(c *gin.Context) {
	limit := defaultTransfersLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := h.store.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "query_failed", Message: err.Error()})
		return
	}

	resp := types.TransfersListResponse{
		Transfers: make([]types.TransferResponse, 0, len(entries)),
		Count:     len(entries),
	}
	for _, e := range entries {
		resp.Transfers = append(resp.Transfers, toResponse(e))
	}
	c.JSON(http.StatusOK, resp)
}

// Get handles GET /api/v1/transfers/:id.
func (h *TransfersHandler) Get(c *gin.Context) {
	id := c.Param("id")

	entry, err := h.store.Get(c.Request.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "not_found", Message: "no transfer with that id"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "query_failed", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, toResponse(entry))
}

func toResponse(e history.Entry) types.TransferResponse {
	return types.TransferResponse{
		ID:                 e.ID,
		Role:               e.Role,
		Device:             e.Device,
		FileName:           e.FileName,
		StartedAt:          e.StartedAt,
		EndedAt:            e.EndedAt,
		BytesSent:          e.BytesSent,
		BytesReceived:      e.BytesReceived,
		FramesSent:         e.FramesSent,
		FramesReceived:     e.FramesReceived,
		Retransmissions:    e.Retransmissions,
		TimerExpirations:   e.TimerExpirations,
		RejectsSent:        e.RejectsSent,
		RejectsReceived:    e.RejectsReceived,
		DuplicatesReceived: e.DuplicatesReceived,
		Error:              e.Error,
	}
}
