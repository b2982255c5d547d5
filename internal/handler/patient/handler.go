package patient

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/wellness-api/internal/handler"
	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/service/patient"
	"github.com/jwalitptl/wellness-api/internal/service/visit"
	"github.com/jwalitptl/wellness-api/pkg/httputil"
)

type Handler struct {
	service patient.PatientService
	visits  visit.VisitService
}

func NewHandler(service patient.PatientService, visits visit.VisitService) *Handler {
	return &Handler{service: service, visits: visits}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.POST("", h.CreatePatient)
		patients.GET("", h.ListPatients)
		patients.GET("/:id", h.GetPatient)
		patients.PUT("/:id", h.UpdatePatient)
		patients.DELETE("/:id", h.DeletePatient)
		patients.GET("/:id/visits", h.ListPatientVisits)
	}
}

func (h *Handler) CreatePatient(c *gin.Context) {
	var req model.CreatePatientRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	p, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, p)
}

func (h *Handler) GetPatient(c *gin.Context) {
	p, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) UpdatePatient(c *gin.Context) {
	var req model.UpdatePatientRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	p, err := h.service.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) DeletePatient(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"id": id, "deleted": true})
}

func (h *Handler) ListPatients(c *gin.Context) {
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
	handler.RespondWithPage(c, "patients", page)
}

func (h *Handler) ListPatientVisits(c *gin.Context) {
	opts, err := handler.ListOptions(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	page, err := h.visits.ListByPatient(c.Request.Context(), c.Param("id"), opts)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	handler.RespondWithPage(c, "visits", page)
}
