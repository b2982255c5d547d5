package httputil

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/wellness-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	OK    bool        `json:"ok"`
	Value interface{} `json:"value,omitempty"`
	Error *Error      `json:"error,omitempty"`
}

// Error represents API error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Pagination represents pagination metadata
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

func NewPagination(page, limit int, total int64) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: pages,
	}
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	RespondWithStatus(c, http.StatusOK, data)
}

func RespondWithCreated(c *gin.Context, data interface{}) {
	RespondWithStatus(c, http.StatusCreated, data)
}

func RespondWithStatus(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{
		OK:    true,
		Value: data,
	})
}

// RespondWithError sends an error response. Anything that is not an
// AppError is reported as a generic internal error.
func RespondWithError(c *gin.Context, err error) {
	statusCode := http.StatusInternalServerError
	message := "internal server error"

	if appErr, ok := errors.As(err); ok {
		statusCode = appErr.Status()
		message = appErr.Message
	}

	if statusCode >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Str("request_id", c.GetString("request_id")).
			Msg("request failed")
		sentry.CaptureException(err)
	}

	c.AbortWithStatusJSON(statusCode, Response{
		OK: false,
		Error: &Error{
			Code:    statusCode,
			Message: message,
		},
	})
}

// RespondWithPagination sends a list under key together with its pagination block
func RespondWithPagination(c *gin.Context, key string, data interface{}, pagination Pagination) {
	c.JSON(http.StatusOK, Response{
		OK: true,
		Value: gin.H{
			key:          data,
			"pagination": pagination,
		},
	})
}
