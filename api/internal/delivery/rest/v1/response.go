package v1

import (
	"mashub/api/internal/domain"
	"mashub/api/internal/service"
	"time"

	"github.com/gin-gonic/gin"
)

type responseError struct {
	Error   bool   `json:"error"`
	ErrorID string `json:"error_id"`
	Msg     string `json:"msg"`
}

// /health
type responseHealth struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Version     string    `json:"version"`
	Environment string    `json:"environment"`
	Database    string    `json:"database"`
}

// /admin/webhooks/stats
type responseStats struct {
	Error bool              `json:"error"`
	Stats domain.RetryStats `json:"stats"`
}

// /admin/webhooks/logs
type responseLogs struct {
	Error bool                `json:"error"`
	Count int                 `json:"count"`
	Logs  []domain.WebhookLog `json:"logs"`
}

// /admin/webhooks/logs/:id/replay
type responseReplay struct {
	Error     bool   `json:"error"`
	WebhookID string `json:"webhook_id"`
	Status    string `json:"status"`
}

// /admin/webhooks/sweep
type responseSweep struct {
	Error  bool                `json:"error"`
	Report service.SweepReport `json:"report"`
}

func responseErr(c *gin.Context, statusCode int, msg, errorID string) {
	c.AbortWithStatusJSON(statusCode, responseError{true, errorID, msg})
}
