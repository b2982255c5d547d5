package practice

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/wellness-api/internal/handler"
	"github.com/jwalitptl/wellness-api/internal/middleware"
	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/service/practice"
	apperrors "github.com/jwalitptl/wellness-api/pkg/errors"
	"github.com/jwalitptl/wellness-api/pkg/httputil"
)

// LogoField is the multipart field carrying the logo file.
const LogoField = "logo"

type Handler struct {
	service practice.PracticeService
}

func NewHandler(service practice.PracticeService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	admin := middleware.RequireRole(model.RoleAdmin)
	provider := middleware.RequireRole(model.RoleProvider)

	p := r.Group("/practice")
	{
		p.GET("", h.GetSettings)
		p.PUT("", admin, h.UpdateSettings)
		p.GET("/logo", h.GetLogo)
		p.POST("/logo", provider, h.UploadLogo)
		p.DELETE("/logo", provider, h.DeleteLogo)
	}
}

func (h *Handler) GetSettings(c *gin.Context) {
	s, err := h.service.Get(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, s)
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	var req model.UpdatePracticeRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	s, err := h.service.Update(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, s)
}

func (h *Handler) GetLogo(c *gin.Context) {
	obj, err := h.service.Logo(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Content-Security-Policy", "default-src 'none'; sandbox")
	c.Data(http.StatusOK, obj.ContentType, obj.Data)
}

func (h *Handler) UploadLogo(c *gin.Context) {
	fh, err := c.FormFile(LogoField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.RespondWithError(c, apperrors.Validation("logo must be at most 2MB"))
			return
		}
		httputil.RespondWithError(c, apperrors.BadRequest("logo file is required", err))
		return
	}
	if fh.Size > practice.MaxLogoSize {
		httputil.RespondWithError(c, apperrors.Validation("logo must be at most 2MB"))
		return
	}

	f, err := fh.Open()
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("could not read logo file", err))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, practice.MaxLogoSize+1))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("could not read logo file", err))
		return
	}

	s, err := h.service.UploadLogo(c.Request.Context(), fh.Header.Get("Content-Type"), data)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, s)
}

func (h *Handler) DeleteLogo(c *gin.Context) {
	s, err := h.service.DeleteLogo(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, s)
}
