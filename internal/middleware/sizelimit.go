package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/wellness-api/pkg/errors"
	"github.com/jwalitptl/wellness-api/pkg/httputil"
)

// SizeLimitConfig represents size limit configuration
type SizeLimitConfig struct {
	MaxBodySize   int64 // in bytes
	MaxUploadSize int64 // in bytes, for UploadPaths
	MaxHeaderSize int   // in bytes
	UploadPaths   []string
}

func DefaultSizeLimitConfig() SizeLimitConfig {
	return SizeLimitConfig{
		MaxBodySize:   1 << 20,      // 1MB
		MaxUploadSize: 2<<20 + 4096, // logo plus multipart overhead
		MaxHeaderSize: 1 << 14,      // 16KB
	}
}

// SizeLimit rejects oversized requests up front and caps how much of the
// body handlers can read.
func SizeLimit(config SizeLimitConfig) gin.HandlerFunc {
	uploads := make(map[string]bool, len(config.UploadPaths))
	for _, p := range config.UploadPaths {
		uploads[p] = true
	}

	return func(c *gin.Context) {
		limit := config.MaxBodySize
		if uploads[c.FullPath()] {
			limit = config.MaxUploadSize
		}

		if c.Request.ContentLength > limit {
			httputil.RespondWithError(c, apperrors.TooLarge(fmt.Sprintf("request body exceeds %d bytes", limit)))
			return
		}

		headerSize := 0
		for name, values := range c.Request.Header {
			headerSize += len(name)
			for _, value := range values {
				headerSize += len(value)
			}
		}
		if headerSize > config.MaxHeaderSize {
			httputil.RespondWithError(c, apperrors.TooLarge(fmt.Sprintf("request headers exceed %d bytes", config.MaxHeaderSize)))
			return
		}

		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
