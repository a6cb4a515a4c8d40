package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/manelneto/penguin/pkg/monitor/types"
)

// HealthHandler reports whether a link connection is currently open.
type HealthHandler struct {
	snapshot func() types.Snapshot
}

// NewHealthHandler wires a health handler to a snapshot source, in
// practice (*monitor.ConnectionState).Snapshot.
func NewHealthHandler(snapshot func() types.Snapshot) *HealthHandler {
	return &HealthHandler{snapshot: snapshot}
}

// Health handles GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	snap := h.snapshot()

	status := "idle"
	httpStatus := http.StatusOK
	if snap.Open {
		status = "connected"
	}

	c.JSON(httpStatus, types.HealthResponse{
		Status:    status,
		Open:      snap.Open,
		Role:      snap.Role,
		Device:    snap.Device,
		Timestamp: time.Now(),
	})
}
