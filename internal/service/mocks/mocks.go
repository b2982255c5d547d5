// Package mocks holds testify mocks of the service interfaces used by the
// HTTP handlers and middleware.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/pkg/blobstore"
)

func ptr[T any](args mock.Arguments, i int) *T {
	if v := args.Get(i); v != nil {
		return v.(*T)
	}
	return nil
}

type PatientService struct{ mock.Mock }

func (m *PatientService) Create(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	args := m.Called(ctx, req)
	return ptr[model.Patient](args, 0), args.Error(1)
}

func (m *PatientService) Get(ctx context.Context, id string) (*model.Patient, error) {
	args := m.Called(ctx, id)
	return ptr[model.Patient](args, 0), args.Error(1)
}

func (m *PatientService) Update(ctx context.Context, id string, req *model.UpdatePatientRequest) (*model.Patient, error) {
	args := m.Called(ctx, id, req)
	return ptr[model.Patient](args, 0), args.Error(1)
}

func (m *PatientService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *PatientService) List(ctx context.Context, opts model.ListOptions) (*model.Page[*model.Patient], error) {
	args := m.Called(ctx, opts)
	return ptr[model.Page[*model.Patient]](args, 0), args.Error(1)
}

type VisitService struct{ mock.Mock }

func (m *VisitService) Create(ctx context.Context, req *model.CreateVisitRequest) (*model.Visit, error) {
	args := m.Called(ctx, req)
	return ptr[model.Visit](args, 0), args.Error(1)
}

func (m *VisitService) Get(ctx context.Context, id string) (*model.Visit, error) {
	args := m.Called(ctx, id)
	return ptr[model.Visit](args, 0), args.Error(1)
}

func (m *VisitService) Update(ctx context.Context, id string, req *model.UpdateVisitRequest) (*model.Visit, error) {
	args := m.Called(ctx, id, req)
	return ptr[model.Visit](args, 0), args.Error(1)
}

func (m *VisitService) RecordResponses(ctx context.Context, id string, req *model.RecordResponsesRequest) (*model.Visit, error) {
	args := m.Called(ctx, id, req)
	return ptr[model.Visit](args, 0), args.Error(1)
}

func (m *VisitService) Complete(ctx context.Context, id string, req *model.RecordResponsesRequest) (*model.Visit, error) {
	args := m.Called(ctx, id, req)
	return ptr[model.Visit](args, 0), args.Error(1)
}

func (m *VisitService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *VisitService) List(ctx context.Context, opts model.ListOptions) (*model.Page[*model.Visit], error) {
	args := m.Called(ctx, opts)
	return ptr[model.Page[*model.Visit]](args, 0), args.Error(1)
}

func (m *VisitService) ListByPatient(ctx context.Context, patientID string, opts model.ListOptions) (*model.Page[*model.Visit], error) {
	args := m.Called(ctx, patientID, opts)
	return ptr[model.Page[*model.Visit]](args, 0), args.Error(1)
}

type TemplateService struct{ mock.Mock }

func (m *TemplateService) Create(ctx context.Context, req *model.CreateTemplateRequest) (*model.Template, error) {
	args := m.Called(ctx, req)
	return ptr[model.Template](args, 0), args.Error(1)
}

func (m *TemplateService) Get(ctx context.Context, id string) (*model.Template, error) {
	args := m.Called(ctx, id)
	return ptr[model.Template](args, 0), args.Error(1)
}

func (m *TemplateService) Update(ctx context.Context, id string, req *model.UpdateTemplateRequest) (*model.Template, error) {
	args := m.Called(ctx, id, req)
	return ptr[model.Template](args, 0), args.Error(1)
}

func (m *TemplateService) AddSection(ctx context.Context, id string, req *model.AddSectionRequest) (*model.Section, error) {
	args := m.Called(ctx, id, req)
	return ptr[model.Section](args, 0), args.Error(1)
}

func (m *TemplateService) AddQuestion(ctx context.Context, id, sectionID string, req *model.AddQuestionRequest) (*model.Question, error) {
	args := m.Called(ctx, id, sectionID, req)
	return ptr[model.Question](args, 0), args.Error(1)
}

func (m *TemplateService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *TemplateService) List(ctx context.Context, opts model.ListOptions) (*model.Page[*model.Template], error) {
	args := m.Called(ctx, opts)
	return ptr[model.Page[*model.Template]](args, 0), args.Error(1)
}

type UserService struct{ mock.Mock }

func (m *UserService) Me(ctx context.Context) (*model.User, error) {
	args := m.Called(ctx)
	return ptr[model.User](args, 0), args.Error(1)
}

func (m *UserService) List(ctx context.Context, opts model.ListOptions) (*model.Page[*model.User], error) {
	args := m.Called(ctx, opts)
	return ptr[model.Page[*model.User]](args, 0), args.Error(1)
}

func (m *UserService) Invite(ctx context.Context, req *model.InviteUserRequest) (*model.InvitationSummary, error) {
	args := m.Called(ctx, req)
	return ptr[model.InvitationSummary](args, 0), args.Error(1)
}

func (m *UserService) AcceptInvite(ctx context.Context, req *model.AcceptInviteRequest) (*model.User, error) {
	args := m.Called(ctx, req)
	return ptr[model.User](args, 0), args.Error(1)
}

func (m *UserService) Update(ctx context.Context, id string, req *model.UpdateUserRequest) (*model.User, error) {
	args := m.Called(ctx, id, req)
	return ptr[model.User](args, 0), args.Error(1)
}

func (m *UserService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *UserService) Resolve(ctx context.Context, externalID, email string) (*model.User, error) {
	args := m.Called(ctx, externalID, email)
	return ptr[model.User](args, 0), args.Error(1)
}

type PracticeService struct{ mock.Mock }

func (m *PracticeService) Get(ctx context.Context) (*model.PracticeSettings, error) {
	args := m.Called(ctx)
	return ptr[model.PracticeSettings](args, 0), args.Error(1)
}

func (m *PracticeService) Update(ctx context.Context, req *model.UpdatePracticeRequest) (*model.PracticeSettings, error) {
	args := m.Called(ctx, req)
	return ptr[model.PracticeSettings](args, 0), args.Error(1)
}

func (m *PracticeService) UploadLogo(ctx context.Context, contentType string, data []byte) (*model.PracticeSettings, error) {
	args := m.Called(ctx, contentType, data)
	return ptr[model.PracticeSettings](args, 0), args.Error(1)
}

func (m *PracticeService) Logo(ctx context.Context) (*blobstore.Object, error) {
	args := m.Called(ctx)
	return ptr[blobstore.Object](args, 0), args.Error(1)
}

func (m *PracticeService) DeleteLogo(ctx context.Context) (*model.PracticeSettings, error) {
	args := m.Called(ctx)
	return ptr[model.PracticeSettings](args, 0), args.Error(1)
}
