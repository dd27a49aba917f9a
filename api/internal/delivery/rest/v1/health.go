package v1

import (
	"context"
	"errors"
	"mashub/api/internal/domain"
	"mashub/api/internal/infra/database"
	"mashub/api/internal/logger"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const HEALTH_TIMEOUT = 2 * time.Second

var errUnhealthy = errors.New("database unreachable")

// /{version}/health
func (h *Handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), HEALTH_TIMEOUT)
	defer cancel()

	if err := database.Ping(ctx, h.db); err != nil {
		h.log.Error("health check failed", logger.LS_HTTP, false, "error", errUnhealthy, "cause", err)
		c.JSON(http.StatusServiceUnavailable, h.healthBody("unhealthy", "down"))
		return
	}

	c.JSON(http.StatusOK, h.healthBody("healthy", "ok"))
}

func (h *Handler) healthBody(status, dbState string) responseHealth {
	env := "development"
	if h.config.ProdEnv {
		env = "production"
	}

	return responseHealth{
		Status:      status,
		Timestamp:   h.clock.Now(),
		Version:     domain.VERSION,
		Environment: env,
		Database:    dbState,
	}
}

func (h *Handler) initHealthRoutes(g *gin.RouterGroup) {
	g.GET("/health", h.health)
}
