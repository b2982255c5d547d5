package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/wellness-api/internal/model"
)

func queryContext(rawQuery string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/x?"+rawQuery, nil)
	return c
}

func TestListOptionsDefaults(t *testing.T) {
	opts, err := ListOptions(queryContext(""))
	require.NoError(t, err)
	assert.Equal(t, 1, opts.Page)
	assert.Equal(t, model.DefaultPageSize, opts.Limit)
	assert.Nil(t, opts.From)
	assert.Nil(t, opts.Active)
}

func TestListOptionsParses(t *testing.T) {
	opts, err := ListOptions(queryContext("page=2&limit=500&search=+ada+&status=completed&fromDate=2025-01-01&toDate=2025-01-31&sort=scheduledDate&order=ASC&active=false"))
	require.NoError(t, err)
	assert.Equal(t, 2, opts.Page)
	assert.Equal(t, model.MaxPageSize, opts.Limit)
	assert.Equal(t, "ada", opts.Search)
	assert.Equal(t, "completed", opts.Status)
	assert.Equal(t, model.SortAsc, opts.Order)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), *opts.From)
	assert.Equal(t, time.Date(2025, 1, 31, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC), *opts.To)
	require.NotNil(t, opts.Active)
	assert.False(t, *opts.Active)
}

func TestListOptionsRejects(t *testing.T) {
	for _, q := range []string{
		"page=abc",
		"limit=-1",
		"fromDate=yesterday",
		"toDate=2025-13-01",
		"fromDate=2025-02-01&toDate=2025-01-01",
		"active=maybe",
		"order=sideways",
	} {
		_, err := ListOptions(queryContext(q))
		assert.Error(t, err, q)
	}
}
