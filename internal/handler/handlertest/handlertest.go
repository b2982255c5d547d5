// Package handlertest has helpers for exercising gin handlers in tests.
package handlertest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/pkg/validator"
)

type Envelope struct {
	OK    bool            `json:"ok"`
	Value json.RawMessage `json:"value"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Engine returns a test-mode engine with the custom binding tags
// registered. When actor is non-nil it is attached to every request.
func Engine(actor *model.Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	validator.RegisterGin()

	r := gin.New()
	if actor != nil {
		r.Use(func(c *gin.Context) {
			c.Request = c.Request.WithContext(model.WithActor(c.Request.Context(), actor))
			c.Next()
		})
	}
	return r
}

// Do sends a JSON request and decodes the envelope.
func Do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}
