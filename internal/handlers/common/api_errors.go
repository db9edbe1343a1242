package common

import (
	apperrors "deepclaude-go/internal/errors"
	"github.com/gin-gonic/gin"
)

// AbortWithAPIError writes a single JSON error response in the OpenAI
// envelope and aborts the request.
func AbortWithAPIError(c *gin.Context, apiErr *apperrors.APIError) {
	payload, err := apiErr.ToJSON()
	if err != nil {
		c.AbortWithStatus(apiErr.HTTPStatus)
		return
	}
	c.Data(apiErr.HTTPStatus, "application/json", payload)
	c.Abort()
}
