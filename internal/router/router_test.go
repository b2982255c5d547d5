package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/wellness-api/internal/handler/audit"
	"github.com/jwalitptl/wellness-api/internal/handler/health"
	"github.com/jwalitptl/wellness-api/internal/handler/patient"
	"github.com/jwalitptl/wellness-api/internal/handler/practice"
	"github.com/jwalitptl/wellness-api/internal/handler/prometheus"
	"github.com/jwalitptl/wellness-api/internal/handler/template"
	"github.com/jwalitptl/wellness-api/internal/handler/user"
	"github.com/jwalitptl/wellness-api/internal/handler/visit"
	"github.com/jwalitptl/wellness-api/internal/middleware"
	"github.com/jwalitptl/wellness-api/internal/model"
	auditsvc "github.com/jwalitptl/wellness-api/internal/service/audit"
	"github.com/jwalitptl/wellness-api/internal/service/mocks"
	"github.com/jwalitptl/wellness-api/pkg/auth"
)

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type fixture struct {
	engine   *gin.Engine
	verifier *auth.JWTVerifier
	users    *mocks.UserService
	patients *mocks.PatientService
}

func setup(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	verifier, err := auth.NewJWTVerifier(auth.Config{Secret: "router-secret"})
	require.NoError(t, err)

	f := &fixture{
		verifier: verifier,
		users:    &mocks.UserService{},
		patients: &mocks.PatientService{},
	}
	visits := &mocks.VisitService{}

	r := NewRouter(middleware.NewAuthMiddleware(verifier, f.users), Handlers{
		Health:   health.NewHandler(okPinger{}),
		Patient:  patient.NewHandler(f.patients, visits),
		Visit:    visit.NewHandler(visits),
		Template: template.NewHandler(&mocks.TemplateService{}),
		User:     user.NewHandler(f.users),
		Practice: practice.NewHandler(&mocks.PracticeService{}),
		Audit:    audit.NewHandler(auditsvc.NewService(nil)),
		Metrics:  prometheus.New(promclient.NewRegistry(), "wellness"),
	}, RouterConfig{
		RateLimitEnabled: true,
		RateLimit:        rate.Limit(1000),
		RateBurst:        1000,
		CORSConfig:       middleware.DefaultCORSConfig(),
		RequestTimeout:   time.Second,
		SizeLimit:        middleware.DefaultSizeLimitConfig(),
	})
	r.Setup()
	f.engine = r.Engine()
	return f
}

func (f *fixture) request(t *testing.T, method, path string, role model.Role) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if role != "" {
		token, err := f.verifier.Issue("sub-"+string(role), string(role)+"@example.com", "", time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		f.users.On("Resolve", mock.Anything, "sub-"+string(role), string(role)+"@example.com").
			Return(&model.User{Role: role, Status: model.UserStatusActive}, nil).Maybe()
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestPublicRoutes(t *testing.T) {
	f := setup(t)

	assert.Equal(t, http.StatusOK, f.request(t, http.MethodGet, "/health/live", "").Code)
	assert.Equal(t, http.StatusOK, f.request(t, http.MethodGet, "/health/ready", "").Code)
	assert.Equal(t, http.StatusOK, f.request(t, http.MethodGet, "/metrics", "").Code)
}

func TestAPIRequiresToken(t *testing.T) {
	f := setup(t)

	w := f.request(t, http.MethodGet, "/api/v1/patients", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"ok":false,"error":{"code":401,"message":"unauthorized"}}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderXRequestID))
}

func TestAuthenticatedRequest(t *testing.T) {
	f := setup(t)
	f.patients.On("List", mock.Anything, mock.Anything).Return(&model.Page[*model.Patient]{Page: 1, Limit: 20}, nil)

	w := f.request(t, http.MethodGet, "/api/v1/patients", model.RoleStaff)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuditIsAdminOnly(t *testing.T) {
	f := setup(t)

	assert.Equal(t, http.StatusForbidden, f.request(t, http.MethodGet, "/api/v1/audit/logs", model.RoleProvider).Code)
}

func TestUnknownRoute(t *testing.T) {
	f := setup(t)

	w := f.request(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"ok":false,"error":{"code":404,"message":"route not found"}}`, w.Body.String())
}

func TestWrongMethod(t *testing.T) {
	f := setup(t)

	w := f.request(t, http.MethodDelete, "/health/live", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.JSONEq(t, `{"ok":false,"error":{"code":405,"message":"method not allowed"}}`, w.Body.String())
}
