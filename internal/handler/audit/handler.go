package audit

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/wellness-api/internal/handler"
	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/pkg/httputil"
)

// Lister reads the audit trail.
type Lister interface {
	List(ctx context.Context, filter model.AuditFilter) ([]*model.AuditLog, int64, error)
}

type Handler struct {
	service Lister
}

func NewHandler(service Lister) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	audit := r.Group("/audit")
	{
		audit.GET("/logs", h.ListLogs)
		audit.GET("/logs/entity/:type/:id", h.GetEntityLogs)
		audit.GET("/logs/user/:id", h.GetUserLogs)
	}
}

func (h *Handler) ListLogs(c *gin.Context) {
	h.list(c, model.AuditFilter{
		Action:     c.Query("action"),
		EntityType: c.Query("entityType"),
		EntityID:   c.Query("entityId"),
		UserID:     c.Query("userId"),
	})
}

func (h *Handler) GetEntityLogs(c *gin.Context) {
	h.list(c, model.AuditFilter{
		EntityType: c.Param("type"),
		EntityID:   c.Param("id"),
	})
}

func (h *Handler) GetUserLogs(c *gin.Context) {
	h.list(c, model.AuditFilter{UserID: c.Param("id")})
}

func (h *Handler) list(c *gin.Context, filter model.AuditFilter) {
	opts, err := handler.ListOptions(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	filter.From, filter.To = opts.From, opts.To
	filter.Page, filter.Limit = opts.Page, opts.Limit

	logs, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if logs == nil {
		logs = []*model.AuditLog{}
	}
	httputil.RespondWithPagination(c, "logs", logs, httputil.NewPagination(opts.Page, opts.Limit, total))
}
