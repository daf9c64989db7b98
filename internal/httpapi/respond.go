package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/safar/go-logistics/internal/apperror"
	"github.com/safar/go-logistics/internal/logging"
)

type ErrorResponse struct {
	Code      apperror.Code     `json:"code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
	Timestamp string            `json:"timestamp"`
	Path      string            `json:"path"`
}

func abortWithError(c *gin.Context, err error) {
	appErr := apperror.From(err)
	logError(c, appErr)

	c.AbortWithStatusJSON(appErr.HTTPStatus, ErrorResponse{
		Code:      appErr.Code,
		Message:   appErr.Message,
		Details:   appErr.Details,
		RequestID: c.GetString(keyRequestID),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      c.Request.URL.Path,
	})
}

func logError(c *gin.Context, appErr *apperror.AppError) {
	logger := logging.FromContext(c.Request.Context())
	fields := []zap.Field{
		zap.String("code", string(appErr.Code)),
		zap.String("message", appErr.Message),
		zap.Int("status", appErr.HTTPStatus),
	}
	if appErr.Err != nil {
		fields = append(fields, zap.Error(appErr.Err))
	}
	if len(appErr.Details) > 0 {
		fields = append(fields, zap.Any("details", appErr.Details))
	}
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Error("api error", fields...)
		return
	}
	logger.Warn("api error", fields...)
}

func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, apperror.Validationf("id must be a positive integer, got %q", c.Param("id")).WithDetail("field", "id")
	}
	return id, nil
}

func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		if appErr, ok := apperror.FromValidator(err); ok {
			return appErr
		}
		return apperror.BadRequest("invalid request body").WithDetail("error", err.Error())
	}
	return nil
}

func bindQuery(c *gin.Context, dst any) error {
	if err := c.ShouldBindQuery(dst); err != nil {
		if appErr, ok := apperror.FromValidator(err); ok {
			return appErr
		}
		return apperror.Validation("invalid query parameters").WithDetail("error", err.Error())
	}
	return nil
}
