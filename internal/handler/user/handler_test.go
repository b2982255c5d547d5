package user

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/wellness-api/internal/handler/handlertest"
	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/service/mocks"
	apperrors "github.com/jwalitptl/wellness-api/pkg/errors"
)

func setup(role model.Role) (*gin.Engine, *mocks.UserService) {
	svc := &mocks.UserService{}
	r := handlertest.Engine(&model.Actor{Email: "caller@example.com", Role: role})
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r, svc
}

func TestInviteRequiresAdmin(t *testing.T) {
	for _, role := range []model.Role{model.RoleProvider, model.RoleStaff, ""} {
		r, svc := setup(role)
		w, env := handlertest.Do(t, r, http.MethodPost, "/api/v1/users/invite", `{"email":"new@example.com","name":"New","role":"staff"}`)
		assert.Equal(t, http.StatusForbidden, w.Code, role)
		assert.Equal(t, 403, env.Error.Code)
		svc.AssertNotCalled(t, "Invite", mock.Anything, mock.Anything)
	}
}

func TestInvite(t *testing.T) {
	r, svc := setup(model.RoleAdmin)
	expires := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)
	svc.On("Invite", mock.Anything, &model.InviteUserRequest{Email: "new@example.com", Name: "New", Role: "doctor"}).
		Return(&model.InvitationSummary{
			UserID:    "64b7f0c2a1b2c3d4e5f60718",
			Email:     "new@example.com",
			Name:      "New",
			Role:      model.RoleProvider,
			Status:    model.UserStatusPending,
			ExpiresAt: expires,
			EmailSent: true,
		}, nil)

	w, env := handlertest.Do(t, r, http.MethodPost, "/api/v1/users/invite", `{"email":"new@example.com","name":"New","role":"doctor"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var got model.InvitationSummary
	require.NoError(t, json.Unmarshal(env.Value, &got))
	assert.Equal(t, model.RoleProvider, got.Role)
	assert.True(t, got.EmailSent)
}

func TestInviteExistingEmail(t *testing.T) {
	r, svc := setup(model.RoleAdmin)
	svc.On("Invite", mock.Anything, mock.Anything).Return(nil, apperrors.Conflict("a user with this email already exists", nil))

	w, env := handlertest.Do(t, r, http.MethodPost, "/api/v1/users/invite", `{"email":"old@example.com","name":"Old","role":"staff"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "a user with this email already exists", env.Error.Message)
}

func TestInviteValidation(t *testing.T) {
	r, _ := setup(model.RoleAdmin)

	w, env := handlertest.Do(t, r, http.MethodPost, "/api/v1/users/invite", `{"email":"nope","name":"X","role":"staff"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "email must be a valid email address", env.Error.Message)
}

func TestAcceptInviteWithoutRole(t *testing.T) {
	r, svc := setup("")
	svc.On("AcceptInvite", mock.Anything, &model.AcceptInviteRequest{Token: "tok"}).
		Return(&model.User{Email: "caller@example.com", Role: model.RoleStaff, Status: model.UserStatusActive}, nil)

	w, _ := handlertest.Do(t, r, http.MethodPost, "/api/v1/users/invite/accept", `{"token":"tok"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMeNotFound(t *testing.T) {
	r, svc := setup("")
	svc.On("Me", mock.Anything).Return(nil, apperrors.NotFound("user", nil))

	w, _ := handlertest.Do(t, r, http.MethodGet, "/api/v1/users/me", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateAndDeleteUser(t *testing.T) {
	r, svc := setup(model.RoleAdmin)
	svc.On("Update", mock.Anything, "u1", mock.MatchedBy(func(req *model.UpdateUserRequest) bool {
		return req.Role != nil && *req.Role == "provider"
	})).Return(&model.User{Role: model.RoleProvider}, nil)
	svc.On("Delete", mock.Anything, "u2").Return(apperrors.Validation("cannot remove the last active admin"))

	w, _ := handlertest.Do(t, r, http.MethodPut, "/api/v1/users/u1", `{"role":"provider"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := handlertest.Do(t, r, http.MethodDelete, "/api/v1/users/u2", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error.Message, "last active admin")
}

func TestListUsersAsStaff(t *testing.T) {
	r, _ := setup(model.RoleStaff)

	w, _ := handlertest.Do(t, r, http.MethodGet, "/api/v1/users", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}
