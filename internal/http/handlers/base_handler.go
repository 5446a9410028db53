// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dronequote/internal/modules/pricing"
)

type errorResponse struct {
	Error  string               `json:"error"`
	Fields []pricing.FieldError `json:"fields,omitempty"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeValidationError(c *gin.Context, verr *pricing.ValidationError) {
	writeJSON(c, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: verr.Fields})
}

// writePricingError keeps bad input (400), missing configuration (404) and
// infrastructure trouble (5xx) apart.
func writePricingError(c *gin.Context, logger *zap.Logger, err error) {
	var verr *pricing.ValidationError
	switch {
	case errors.As(err, &verr):
		writeValidationError(c, verr)
	case errors.Is(err, pricing.ErrRateCardNotFound), errors.Is(err, pricing.ErrQuoteNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, pricing.ErrStoreUnavailable):
		writeError(c, http.StatusServiceUnavailable, err.Error())
	default:
		logger.Error("pricing request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// MethodNotAllowed answers requests whose path exists under another method.
func MethodNotAllowed(c *gin.Context) {
	writeError(c, http.StatusMethodNotAllowed, "method not allowed")
}

func NotFound(c *gin.Context) {
	writeError(c, http.StatusNotFound, "not found")
}
