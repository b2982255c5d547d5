package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	"github.com/jwalitptl/wellness-api/internal/model"
)

// Deleted is the body returned by delete endpoints.
type Deleted struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func call[T any](ctx context.Context, c *Client, method, path string, in interface{}) (*T, error) {
	var out T
	if err := c.do(ctx, method, path, nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func listOf[T any](ctx context.Context, c *Client, path, key string, params ListParams) (*List[T], error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, params.values(), nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[T](raw, key)
}

// Patients

func (c *Client) ListPatients(ctx context.Context, params ListParams) (*List[*model.Patient], error) {
	return listOf[*model.Patient](ctx, c, "/patients", "patients", params)
}

func (c *Client) GetPatient(ctx context.Context, id string) (*model.Patient, error) {
	return call[model.Patient](ctx, c, http.MethodGet, "/patients/"+url.PathEscape(id), nil)
}

func (c *Client) CreatePatient(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	return call[model.Patient](ctx, c, http.MethodPost, "/patients", req)
}

func (c *Client) UpdatePatient(ctx context.Context, id string, req *model.UpdatePatientRequest) (*model.Patient, error) {
	return call[model.Patient](ctx, c, http.MethodPut, "/patients/"+url.PathEscape(id), req)
}

func (c *Client) DeletePatient(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/patients/"+url.PathEscape(id), nil, nil, &Deleted{})
}

func (c *Client) ListPatientVisits(ctx context.Context, patientID string, params ListParams) (*List[*model.Visit], error) {
	return listOf[*model.Visit](ctx, c, "/patients/"+url.PathEscape(patientID)+"/visits", "visits", params)
}

// Visits

func (c *Client) ListVisits(ctx context.Context, params ListParams) (*List[*model.Visit], error) {
	return listOf[*model.Visit](ctx, c, "/visits", "visits", params)
}

func (c *Client) GetVisit(ctx context.Context, id string) (*model.Visit, error) {
	return call[model.Visit](ctx, c, http.MethodGet, "/visits/"+url.PathEscape(id), nil)
}

func (c *Client) CreateVisit(ctx context.Context, req *model.CreateVisitRequest) (*model.Visit, error) {
	return call[model.Visit](ctx, c, http.MethodPost, "/visits", req)
}

func (c *Client) UpdateVisit(ctx context.Context, id string, req *model.UpdateVisitRequest) (*model.Visit, error) {
	return call[model.Visit](ctx, c, http.MethodPut, "/visits/"+url.PathEscape(id), req)
}

func (c *Client) RecordResponses(ctx context.Context, id string, req *model.RecordResponsesRequest) (*model.Visit, error) {
	return call[model.Visit](ctx, c, http.MethodPut, "/visits/"+url.PathEscape(id)+"/responses", req)
}

func (c *Client) CompleteVisit(ctx context.Context, id string, req *model.RecordResponsesRequest) (*model.Visit, error) {
	return call[model.Visit](ctx, c, http.MethodPost, "/visits/"+url.PathEscape(id)+"/complete", req)
}

func (c *Client) DeleteVisit(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/visits/"+url.PathEscape(id), nil, nil, &Deleted{})
}

// Templates

func (c *Client) ListTemplates(ctx context.Context, params ListParams) (*List[*model.Template], error) {
	return listOf[*model.Template](ctx, c, "/templates", "templates", params)
}

func (c *Client) GetTemplate(ctx context.Context, id string) (*model.Template, error) {
	return call[model.Template](ctx, c, http.MethodGet, "/templates/"+url.PathEscape(id), nil)
}

func (c *Client) CreateTemplate(ctx context.Context, req *model.CreateTemplateRequest) (*model.Template, error) {
	return call[model.Template](ctx, c, http.MethodPost, "/templates", req)
}

func (c *Client) UpdateTemplate(ctx context.Context, id string, req *model.UpdateTemplateRequest) (*model.Template, error) {
	return call[model.Template](ctx, c, http.MethodPut, "/templates/"+url.PathEscape(id), req)
}

func (c *Client) DeleteTemplate(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/templates/"+url.PathEscape(id), nil, nil, &Deleted{})
}

func (c *Client) AddSection(ctx context.Context, templateID string, req *model.AddSectionRequest) (*model.Section, error) {
	return call[model.Section](ctx, c, http.MethodPost, "/templates/"+url.PathEscape(templateID)+"/sections", req)
}

func (c *Client) AddQuestion(ctx context.Context, templateID, sectionID string, req *model.AddQuestionRequest) (*model.Question, error) {
	path := fmt.Sprintf("/templates/%s/sections/%s/questions", url.PathEscape(templateID), url.PathEscape(sectionID))
	return call[model.Question](ctx, c, http.MethodPost, path, req)
}

// Users

func (c *Client) Me(ctx context.Context) (*model.User, error) {
	return call[model.User](ctx, c, http.MethodGet, "/users/me", nil)
}

func (c *Client) ListUsers(ctx context.Context, params ListParams) (*List[*model.User], error) {
	return listOf[*model.User](ctx, c, "/users", "users", params)
}

func (c *Client) InviteUser(ctx context.Context, req *model.InviteUserRequest) (*model.InvitationSummary, error) {
	return call[model.InvitationSummary](ctx, c, http.MethodPost, "/users/invite", req)
}

func (c *Client) AcceptInvite(ctx context.Context, req *model.AcceptInviteRequest) (*model.User, error) {
	return call[model.User](ctx, c, http.MethodPost, "/users/invite/accept", req)
}

func (c *Client) UpdateUser(ctx context.Context, id string, req *model.UpdateUserRequest) (*model.User, error) {
	return call[model.User](ctx, c, http.MethodPut, "/users/"+url.PathEscape(id), req)
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil, &Deleted{})
}

// Practice

func (c *Client) GetPractice(ctx context.Context) (*model.PracticeSettings, error) {
	return call[model.PracticeSettings](ctx, c, http.MethodGet, "/practice", nil)
}

func (c *Client) UpdatePractice(ctx context.Context, req *model.UpdatePracticeRequest) (*model.PracticeSettings, error) {
	return call[model.PracticeSettings](ctx, c, http.MethodPut, "/practice", req)
}

// UploadLogo sends the image as the "logo" multipart field.
func (c *Client) UploadLogo(ctx context.Context, filename, contentType string, r io.Reader) (*model.PracticeSettings, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="logo"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create logo part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to copy logo: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/practice/logo", nil, &buf, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}
	var s model.PracticeSettings
	if err := c.send(req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Logo downloads the current logo and its content type.
func (c *Client) Logo(ctx context.Context) ([]byte, string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/practice/logo", nil, nil, "")
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Accept", "image/*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read logo: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_, err := unwrap(resp.StatusCode, data)
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (c *Client) DeleteLogo(ctx context.Context) (*model.PracticeSettings, error) {
	return call[model.PracticeSettings](ctx, c, http.MethodDelete, "/practice/logo", nil)
}

// Audit

func (c *Client) ListAuditLogs(ctx context.Context, params ListParams) (*List[*model.AuditLog], error) {
	return listOf[*model.AuditLog](ctx, c, "/audit/logs", "logs", params)
}

func (c *Client) EntityAuditLogs(ctx context.Context, entityType, entityID string, params ListParams) (*List[*model.AuditLog], error) {
	path := fmt.Sprintf("/audit/logs/entity/%s/%s", url.PathEscape(entityType), url.PathEscape(entityID))
	return listOf[*model.AuditLog](ctx, c, path, "logs", params)
}

func (c *Client) UserAuditLogs(ctx context.Context, userID string, params ListParams) (*List[*model.AuditLog], error) {
	return listOf[*model.AuditLog](ctx, c, "/audit/logs/user/"+url.PathEscape(userID), "logs", params)
}
