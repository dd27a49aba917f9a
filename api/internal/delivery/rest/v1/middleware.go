package v1

import (
	"crypto/subtle"
	"errors"
	"mashub/api/internal/domain"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const RATE_LIMIT_WINDOW = time.Minute

// returns true if rate limit is exceeded
func (h *Handler) rateLimited(key string, limit int) bool {
	if limit <= 0 {
		return false
	}
	return h.rateLimits.Hit(key, RATE_LIMIT_WINDOW, h.clock.Now()) > limit
}

func (h *Handler) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.rateLimited(c.ClientIP(), h.config.Webhook.RateLimit) {
			responseErr(c, http.StatusTooManyRequests, domain.ErrMsgRateLimitExceeded, "")
			return
		}
		c.Next()
	}
}

func (h *Handler) bodyLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.config.Api.MaxBodyBytes)
		c.Next()
	}
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func (h *Handler) adminAccessMiddleware() gin.HandlerFunc {
	key := []byte(h.config.Admin.AccessKey)

	return func(c *gin.Context) {
		got := []byte(c.Request.Header.Get("Access"))
		if len(key) == 0 || subtle.ConstantTimeCompare(key, got) != 1 {
			responseErr(c, http.StatusUnauthorized, domain.ErrMsgAccessError, "")
			return
		}
		c.Next()
	}
}
