package template

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/wellness-api/internal/handler"
	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/service/template"
	"github.com/jwalitptl/wellness-api/pkg/httputil"
)

type Handler struct {
	service template.TemplateService
}

func NewHandler(service template.TemplateService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	templates := r.Group("/templates")
	{
		templates.POST("", h.CreateTemplate)
		templates.GET("", h.ListTemplates)
		templates.GET("/:id", h.GetTemplate)
		templates.PUT("/:id", h.UpdateTemplate)
		templates.DELETE("/:id", h.DeleteTemplate)
		templates.POST("/:id/sections", h.AddSection)
		templates.POST("/:id/sections/:sectionId/questions", h.AddQuestion)
	}
}

func (h *Handler) CreateTemplate(c *gin.Context) {
	var req model.CreateTemplateRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	tpl, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, tpl)
}

func (h *Handler) GetTemplate(c *gin.Context) {
	tpl, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, tpl)
}

func (h *Handler) UpdateTemplate(c *gin.Context) {
	var req model.UpdateTemplateRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	tpl, err := h.service.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, tpl)
}

func (h *Handler) AddSection(c *gin.Context) {
	var req model.AddSectionRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	section, err := h.service.AddSection(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, section)
}

func (h *Handler) AddQuestion(c *gin.Context) {
	var req model.AddQuestionRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	q, err := h.service.AddQuestion(c.Request.Context(), c.Param("id"), c.Param("sectionId"), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, q)
}

func (h *Handler) DeleteTemplate(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"id": id, "deleted": true})
}

func (h *Handler) ListTemplates(c *gin.Context) {
	opts, err := handler.ListOptions(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	page, err := h.service.List(c.Request.Context(), opts)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	handler.RespondWithPage(c, "templates", page)
}
