package user

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/wellness-api/internal/handler"
	"github.com/jwalitptl/wellness-api/internal/middleware"
	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/service/user"
	"github.com/jwalitptl/wellness-api/pkg/httputil"
)

type Handler struct {
	service user.UserServicer
}

func NewHandler(service user.UserServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	admin := middleware.RequireRole(model.RoleAdmin)

	users := r.Group("/users")
	{
		users.GET("", admin, h.ListUsers)
		users.GET("/me", h.Me)
		users.POST("/invite", admin, h.InviteUser)
		users.POST("/invite/accept", h.AcceptInvite)
		users.PUT("/:id", admin, h.UpdateUser)
		users.DELETE("/:id", admin, h.DeleteUser)
	}
}

func (h *Handler) Me(c *gin.Context) {
	u, err := h.service.Me(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, u)
}

func (h *Handler) ListUsers(c *gin.Context) {
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
	handler.RespondWithPage(c, "users", page)
}

func (h *Handler) InviteUser(c *gin.Context) {
	var req model.InviteUserRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	summary, err := h.service.Invite(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, summary)
}

func (h *Handler) AcceptInvite(c *gin.Context) {
	var req model.AcceptInviteRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	u, err := h.service.AcceptInvite(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, u)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	var req model.UpdateUserRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	u, err := h.service.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, u)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"id": id, "deleted": true})
}
