// Package client is a Go client for the wellness API. It unwraps the
// response envelope so callers deal with plain values and errors.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jwalitptl/wellness-api/pkg/httputil"
)

const apiPrefix = "/api/v1"

// APIError is returned for any non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListParams are the list query parameters shared by every collection.
type ListParams struct {
	Page     int
	Limit    int
	Search   string
	Status   string
	Role     string
	Sort     string
	Order    string
	FromDate string
	ToDate   string
	Active   *bool
}

func (p ListParams) values() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	set := func(key, val string) {
		if val != "" {
			v.Set(key, val)
		}
	}
	set("search", p.Search)
	set("status", p.Status)
	set("role", p.Role)
	set("sort", p.Sort)
	set("order", p.Order)
	set("fromDate", p.FromDate)
	set("toDate", p.ToDate)
	if p.Active != nil {
		v.Set("active", strconv.FormatBool(*p.Active))
	}
	return v
}

// List is one page of a collection.
type List[T any] struct {
	Items      []T
	Pagination httputil.Pagination
}

func decodeList[T any](raw json.RawMessage, key string) (*List[T], error) {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("failed to decode list: %w", err)
	}
	out := &List[T]{Items: []T{}}
	if items, ok := body[key]; ok && string(items) != "null" {
		if err := json.Unmarshal(items, &out.Items); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", key, err)
		}
	}
	if p, ok := body["pagination"]; ok {
		if err := json.Unmarshal(p, &out.Pagination); err != nil {
			return nil, fmt.Errorf("failed to decode pagination: %w", err)
		}
	}
	return out, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Request, error) {
	u := c.baseURL + apiPrefix + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// do sends a JSON request and decodes the unwrapped value into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}

	req, err := c.newRequest(ctx, method, path, query, body, contentType)
	if err != nil {
		return err
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	value, err := unwrap(resp.StatusCode, raw)
	if err != nil {
		return err
	}
	if out == nil || len(value) == 0 {
		return nil
	}
	if err := json.Unmarshal(value, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// envelope covers both the {ok, value, error} shape and the older
// {success, data, error} shape.
type envelope struct {
	OK      *bool           `json:"ok"`
	Value   json.RawMessage `json:"value"`
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

func unwrap(status int, raw []byte) (json.RawMessage, error) {
	var env envelope
	isEnvelope := json.Unmarshal(raw, &env) == nil && (env.OK != nil || env.Success != nil)

	if status < 200 || status > 299 || (isEnvelope && !envelopeOK(env)) {
		return nil, &APIError{Status: status, Message: errorMessage(status, raw, env, isEnvelope)}
	}
	if !isEnvelope {
		return raw, nil
	}
	if env.OK != nil {
		return env.Value, nil
	}
	return env.Data, nil
}

func envelopeOK(env envelope) bool {
	if env.OK != nil {
		return *env.OK
	}
	return *env.Success
}

func errorMessage(status int, raw []byte, env envelope, isEnvelope bool) string {
	if isEnvelope && len(env.Error) > 0 {
		var structured struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(env.Error, &structured) == nil && structured.Message != "" {
			return structured.Message
		}
		var plain string
		if json.Unmarshal(env.Error, &plain) == nil && plain != "" {
			return plain
		}
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" && !isEnvelope {
		return msg
	}
	return http.StatusText(status)
}
