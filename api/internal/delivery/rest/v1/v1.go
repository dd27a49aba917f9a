package v1

import (
	"mashub/api/internal/config"
	"mashub/api/internal/infra/cache"
	"mashub/api/internal/logger"
	"mashub/api/internal/service"
	"mashub/pkg/clock"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	services   *service.Services
	db         *gorm.DB
	config     *config.Config
	log        logger.Logger
	rateLimits *cache.Cache
	clock      clock.Clock
}

func (h *Handler) InitRoutes(g *gin.RouterGroup) {
	{
		h.initWebhookRoutes(g)
		h.initHealthRoutes(g)

		// no key - no admin surface
		if h.config.Admin.AccessKey != "" {
			h.initAdminRoutes(g)
		}
	}
}

func NewHandler(services *service.Services, db *gorm.DB, config *config.Config, log logger.Logger) *Handler {
	return &Handler{
		config:     config,
		log:        log,
		services:   services,
		db:         db,
		rateLimits: cache.InitStorage(),
		clock:      clock.New(),
	}
}
