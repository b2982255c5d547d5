package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/wellness-api/internal/model"
	apperrors "github.com/jwalitptl/wellness-api/pkg/errors"
	"github.com/jwalitptl/wellness-api/pkg/httputil"
	"github.com/jwalitptl/wellness-api/pkg/validator"
)

// Router is implemented by every entity handler.
type Router interface {
	RegisterRoutes(*gin.RouterGroup)
}

// BindJSON decodes the body into dst and writes a 400 envelope on failure.
func BindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(validator.Humanize(err).Error(), err))
		return false
	}
	return true
}

// ListOptions reads the common list query parameters.
func ListOptions(c *gin.Context) (model.ListOptions, error) {
	opts := model.ListOptions{
		Search: c.Query("search"),
		Status: c.Query("status"),
		Role:   c.Query("role"),
		Sort:   c.Query("sort"),
		Order:  model.SortDirection(c.Query("order")),
	}

	var err error
	if opts.Page, err = intQuery(c, "page"); err != nil {
		return opts, err
	}
	if opts.Limit, err = intQuery(c, "limit"); err != nil {
		return opts, err
	}

	if v := c.Query("fromDate"); v != "" {
		t, err := model.ParseDate(v)
		if err != nil {
			return opts, apperrors.Validation("invalid fromDate %q", v)
		}
		opts.From = &t
	}
	if v := c.Query("toDate"); v != "" {
		t, err := model.ParseRangeEnd(v)
		if err != nil {
			return opts, apperrors.Validation("invalid toDate %q", v)
		}
		opts.To = &t
	}
	if opts.From != nil && opts.To != nil && opts.To.Before(*opts.From) {
		return opts, apperrors.Validation("toDate must not be before fromDate")
	}

	if v := c.Query("active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, apperrors.Validation("invalid active %q", v)
		}
		opts.Active = &b
	}

	opts.Order = model.SortDirection(strings.ToLower(string(opts.Order)))
	if opts.Order != "" && opts.Order != model.SortAsc && opts.Order != model.SortDesc {
		return opts, apperrors.Validation("order must be asc or desc")
	}

	opts.Normalize()
	return opts, nil
}

func intQuery(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, apperrors.Validation("%s must be a positive integer", key)
	}
	return n, nil
}

// RespondWithPage writes a page under key with its pagination block.
func RespondWithPage[T any](c *gin.Context, key string, page *model.Page[T]) {
	items := page.Items
	if items == nil {
		items = []T{}
	}
	httputil.RespondWithPagination(c, key, items, httputil.NewPagination(page.Page, page.Limit, page.Total))
}
