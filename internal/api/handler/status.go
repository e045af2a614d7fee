package handler

import (
	"net/http"
	"strconv"

	"github.com/davidlin/dataport/internal/repository"
	"github.com/davidlin/dataport/internal/workflow"
	"github.com/gin-gonic/gin"
)

// StatusHandler serves read-only views of the active migration and the
// local session journal.
type StatusHandler struct {
	store    *workflow.SnapshotStore
	sessions *repository.SessionRepository
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(store *workflow.SnapshotStore, sessions *repository.SessionRepository) *StatusHandler {
	return &StatusHandler{store: store, sessions: sessions}
}

// GetJob handles GET /api/v1/jobs/:id. Only the active job's snapshot is
// held locally; anything else is a 404 here, not a remote lookup.
func (h *StatusHandler) GetJob(c *gin.Context) {
	id := c.Param("id")
	snap := h.store.Get()
	if snap == nil || snap.ID != id {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "no local snapshot for job " + id,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"job":  snap,
		"step": workflow.ResolveStep(snap.Status).String(),
	})
}

// GetProgress handles GET /api/v1/jobs/:id/progress.
func (h *StatusHandler) GetProgress(c *gin.Context) {
	id := c.Param("id")
	snap := h.store.Get()
	if snap == nil || snap.ID != id {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "no local snapshot for job " + id,
		})
		return
	}
	resp := gin.H{"status": snap.Status}
	if snap.Counters != nil {
		resp["processed_rows"] = snap.Counters.ProcessedRows
		resp["total_rows"] = snap.Counters.TotalRows
		resp["progress_percent"] = snap.Counters.ProgressPercent()
	}
	c.JSON(http.StatusOK, resp)
}

// ListSessions handles GET /api/v1/sessions.
func (h *StatusHandler) ListSessions(c *gin.Context) {
	if h.sessions == nil {
		c.JSON(http.StatusOK, gin.H{"sessions": []any{}})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	sessions, err := h.sessions.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list sessions: " + err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}
