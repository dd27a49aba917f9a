package v1

import (
	"io"
	"mashub/api/internal/domain"
	"mashub/api/internal/logger"
	"mashub/api/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// /{version}/webhook
func (h *Handler) webhookReceive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		if isBodyTooLarge(err) {
			responseErr(c, http.StatusRequestEntityTooLarge, domain.ErrMsgBodyTooLarge, "")
			return
		}
		responseErr(c, http.StatusBadRequest, domain.ErrMsgInvalidPayload, "")
		return
	}

	res, err := h.services.Webhooks.Receive(c.Request.Context(), service.IncomingWebhook{
		Body:      body,
		Signature: c.GetHeader(h.config.Webhook.SignatureHeader),
		Timestamp: c.GetHeader(h.config.Webhook.TimestampHeader),
		UserAgent: c.Request.UserAgent(),
		RemoteIP:  c.ClientIP(),
	})
	if err != nil {
		status := domain.GetStatusByErr(err)

		switch {
		case domain.IsAuthError(err):
			h.log.Warn("webhook rejected", logger.LS_WEBHOOKS, false, "ip", c.ClientIP(), "reason", err.Error())
			responseErr(c, status, domain.GetMsgByErr(err), "")
		case status == http.StatusBadRequest:
			h.log.Info("webhook payload rejected", logger.LS_WEBHOOKS, false, "ip", c.ClientIP(), "reason", err.Error())
			responseErr(c, status, domain.GetMsgByErr(err), "")
		default:
			errid := h.log.TemplWebhookErr("webhook ingest failed", logger.GenErrorId(), logger.NA, logger.NA, c.ClientIP(), err)
			responseErr(c, status, domain.GetMsgByErr(err), errid)
		}
		return
	}

	c.JSON(http.StatusOK, domain.ResponseWebhook{
		Success:   true,
		Processed: res.Processed,
		WebhookID: res.WebhookID,
	})
}

func (h *Handler) initWebhookRoutes(g *gin.RouterGroup) {
	g.POST("/webhook", h.rateLimitMiddleware(), h.bodyLimitMiddleware(), h.webhookReceive)
}
