package v1

import (
	"mashub/api/internal/domain"
	"mashub/api/internal/logger"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) adminErr(c *gin.Context, message string, err error) {
	status := domain.GetStatusByErr(err)
	if status != http.StatusInternalServerError {
		responseErr(c, status, domain.GetMsgByErr(err), "")
		return
	}

	errid := logger.GenErrorId()
	h.log.Error(message, logger.LS_HTTP, false, "error", err, "error_id", errid, "uri", c.Request.RequestURI)
	responseErr(c, status, domain.ErrMsgInternalServerError, errid)
}

// /{version}/admin/webhooks/stats
func (h *Handler) adminStats(c *gin.Context) {
	stats, err := h.services.Retries.Stats(c.Request.Context())
	if err != nil {
		h.adminErr(c, "stats failed", err)
		return
	}
	c.JSON(http.StatusOK, responseStats{Stats: *stats})
}

// /{version}/admin/webhooks/logs?status=&limit=
func (h *Handler) adminLogs(c *gin.Context) {
	q, ok := filterLogsQuery(c)
	if !ok {
		return
	}

	logs, err := h.services.Retries.Logs(c.Request.Context(), domain.WebhookState(q.Status), q.Limit)
	if err != nil {
		h.adminErr(c, "list logs failed", err)
		return
	}
	c.JSON(http.StatusOK, responseLogs{Count: len(logs), Logs: logs})
}

// /{version}/admin/webhooks/logs/:id/replay
func (h *Handler) adminReplay(c *gin.Context) {
	id := c.Param("id")
	if err := h.services.Retries.Replay(c.Request.Context(), id); err != nil {
		h.adminErr(c, "replay failed", err)
		return
	}

	h.log.Info("webhook replay requested", logger.LS_HTTP, false, "webhook_id", id, "ip", c.ClientIP())
	c.JSON(http.StatusOK, responseReplay{WebhookID: id, Status: string(domain.WEBHOOK_PENDING)})
}

// /{version}/admin/webhooks/sweep
func (h *Handler) adminSweep(c *gin.Context) {
	report, err := h.services.Retries.ProcessPendingRetries(c.Request.Context())
	if err != nil {
		h.adminErr(c, "manual sweep failed", err)
		return
	}
	c.JSON(http.StatusOK, responseSweep{Report: report})
}

func (h *Handler) initAdminRoutes(g *gin.RouterGroup) {
	admin := g.Group("/admin/webhooks", h.adminAccessMiddleware())

	admin.GET("/stats", h.adminStats)
	admin.GET("/logs", h.adminLogs)
	admin.POST("/logs/:id/replay", h.adminReplay)
	admin.POST("/sweep", h.adminSweep)
}
