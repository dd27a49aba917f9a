package v1

import (
	"errors"
	"fmt"
	"mashub/api/internal/domain"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var queryValidator = validator.New()

type logsQuery struct {
	Status string `form:"status" validate:"omitempty,oneof=pending processed failed"`
	Limit  int    `form:"limit" validate:"omitempty,gte=1,lte=500"`
}

// filterLogsQuery binds and checks /admin/webhooks/logs params.
// returns false if the response is already written
func filterLogsQuery(c *gin.Context) (*logsQuery, bool) {
	var q logsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		responseErr(c, http.StatusBadRequest, domain.ErrMsgBadRequest, "")
		return nil, false
	}

	if err := queryValidator.Struct(q); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Field() == "Status" {
			responseErr(c, http.StatusBadRequest, domain.ErrMsgInvalidLogStatus, "")
			return nil, false
		}
		responseErr(c, http.StatusBadRequest, fmt.Sprintf(domain.ErrMsgParamsBadRequest, "limit must be between 1 and 500"), "")
		return nil, false
	}

	return &q, true
}
