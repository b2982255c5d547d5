package visit

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/wellness-api/internal/handler"
	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/service/visit"
	"github.com/jwalitptl/wellness-api/pkg/httputil"
)

type Handler struct {
	service visit.VisitService
}

func NewHandler(service visit.VisitService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	visits := r.Group("/visits")
	{
		visits.POST("", h.CreateVisit)
		visits.GET("", h.ListVisits)
		visits.GET("/:id", h.GetVisit)
		visits.PUT("/:id", h.UpdateVisit)
		visits.DELETE("/:id", h.DeleteVisit)
		visits.PUT("/:id/responses", h.RecordResponses)
		visits.POST("/:id/complete", h.CompleteVisit)
	}
}

func (h *Handler) CreateVisit(c *gin.Context) {
	var req model.CreateVisitRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	v, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, v)
}

func (h *Handler) GetVisit(c *gin.Context) {
	v, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, v)
}

func (h *Handler) UpdateVisit(c *gin.Context) {
	var req model.UpdateVisitRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	v, err := h.service.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, v)
}

func (h *Handler) RecordResponses(c *gin.Context) {
	var req model.RecordResponsesRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	v, err := h.service.RecordResponses(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, v)
}

func (h *Handler) CompleteVisit(c *gin.Context) {
	var req model.RecordResponsesRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	v, err := h.service.Complete(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, v)
}

func (h *Handler) DeleteVisit(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"id": id, "deleted": true})
}

func (h *Handler) ListVisits(c *gin.Context) {
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
	handler.RespondWithPage(c, "visits", page)
}
