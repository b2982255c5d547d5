// Package mocks holds testify mocks of the repository interfaces and the
// service-side collaborators built on them.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/repository"
)

func ptr[T any](args mock.Arguments, i int) *T {
	if v := args.Get(i); v != nil {
		return v.(*T)
	}
	return nil
}

type PatientRepository struct{ mock.Mock }

func (m *PatientRepository) Create(ctx context.Context, p *model.Patient) error {
	return m.Called(ctx, p).Error(0)
}

func (m *PatientRepository) Get(ctx context.Context, id primitive.ObjectID) (*model.Patient, error) {
	args := m.Called(ctx, id)
	return ptr[model.Patient](args, 0), args.Error(1)
}

func (m *PatientRepository) Update(ctx context.Context, p *model.Patient) error {
	return m.Called(ctx, p).Error(0)
}

func (m *PatientRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *PatientRepository) List(ctx context.Context, opts model.ListOptions) (*model.Page[*model.Patient], error) {
	args := m.Called(ctx, opts)
	return ptr[model.Page[*model.Patient]](args, 0), args.Error(1)
}

func (m *PatientRepository) FindIDsBySearch(ctx context.Context, search string) ([]primitive.ObjectID, error) {
	args := m.Called(ctx, search)
	ids, _ := args.Get(0).([]primitive.ObjectID)
	return ids, args.Error(1)
}

func (m *PatientRepository) GetMany(ctx context.Context, ids []primitive.ObjectID) ([]*model.Patient, error) {
	args := m.Called(ctx, ids)
	patients, _ := args.Get(0).([]*model.Patient)
	return patients, args.Error(1)
}

func (m *PatientRepository) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type VisitRepository struct{ mock.Mock }

func (m *VisitRepository) Create(ctx context.Context, v *model.Visit) error {
	return m.Called(ctx, v).Error(0)
}

func (m *VisitRepository) Get(ctx context.Context, id primitive.ObjectID) (*model.Visit, error) {
	args := m.Called(ctx, id)
	return ptr[model.Visit](args, 0), args.Error(1)
}

func (m *VisitRepository) Update(ctx context.Context, v *model.Visit) error {
	return m.Called(ctx, v).Error(0)
}

func (m *VisitRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *VisitRepository) List(ctx context.Context, f repository.VisitFilter) (*model.Page[*model.Visit], error) {
	args := m.Called(ctx, f)
	return ptr[model.Page[*model.Visit]](args, 0), args.Error(1)
}

func (m *VisitRepository) CountByPatient(ctx context.Context, id primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *VisitRepository) CountByTemplate(ctx context.Context, id primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

type TemplateRepository struct{ mock.Mock }

func (m *TemplateRepository) Create(ctx context.Context, t *model.Template) error {
	return m.Called(ctx, t).Error(0)
}

func (m *TemplateRepository) Get(ctx context.Context, id primitive.ObjectID) (*model.Template, error) {
	args := m.Called(ctx, id)
	return ptr[model.Template](args, 0), args.Error(1)
}

func (m *TemplateRepository) Replace(ctx context.Context, t *model.Template) error {
	return m.Called(ctx, t).Error(0)
}

func (m *TemplateRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *TemplateRepository) List(ctx context.Context, opts model.ListOptions) (*model.Page[*model.Template], error) {
	args := m.Called(ctx, opts)
	return ptr[model.Page[*model.Template]](args, 0), args.Error(1)
}

type UserRepository struct{ mock.Mock }

func (m *UserRepository) Create(ctx context.Context, u *model.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *UserRepository) Get(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	args := m.Called(ctx, id)
	return ptr[model.User](args, 0), args.Error(1)
}

func (m *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	return ptr[model.User](args, 0), args.Error(1)
}

func (m *UserRepository) GetByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	args := m.Called(ctx, externalID)
	return ptr[model.User](args, 0), args.Error(1)
}

func (m *UserRepository) Update(ctx context.Context, u *model.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *UserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *UserRepository) List(ctx context.Context, opts model.ListOptions) (*model.Page[*model.User], error) {
	args := m.Called(ctx, opts)
	return ptr[model.Page[*model.User]](args, 0), args.Error(1)
}

func (m *UserRepository) CountByRole(ctx context.Context, role model.Role, status model.UserStatus) (int64, error) {
	args := m.Called(ctx, role, status)
	return args.Get(0).(int64), args.Error(1)
}

type PracticeRepository struct{ mock.Mock }

func (m *PracticeRepository) Get(ctx context.Context) (*model.PracticeSettings, error) {
	args := m.Called(ctx)
	return ptr[model.PracticeSettings](args, 0), args.Error(1)
}

func (m *PracticeRepository) Upsert(ctx context.Context, s *model.PracticeSettings) error {
	return m.Called(ctx, s).Error(0)
}

type AuditRepository struct{ mock.Mock }

func (m *AuditRepository) Create(ctx context.Context, log *model.AuditLog) error {
	return m.Called(ctx, log).Error(0)
}

func (m *AuditRepository) List(ctx context.Context, f model.AuditFilter) ([]*model.AuditLog, int64, error) {
	args := m.Called(ctx, f)
	logs, _ := args.Get(0).([]*model.AuditLog)
	return logs, args.Get(1).(int64), args.Error(2)
}

func (m *AuditRepository) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

type OutboxRepository struct{ mock.Mock }

func (m *OutboxRepository) Create(ctx context.Context, e *model.OutboxEvent) error {
	return m.Called(ctx, e).Error(0)
}

func (m *OutboxRepository) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	args := m.Called(ctx, limit)
	events, _ := args.Get(0).([]*model.OutboxEvent)
	return events, args.Error(1)
}

func (m *OutboxRepository) MarkProcessed(ctx context.Context, id primitive.ObjectID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *OutboxRepository) MarkFailed(ctx context.Context, id primitive.ObjectID, errMsg string, final bool) error {
	return m.Called(ctx, id, errMsg, final).Error(0)
}

// Recorder mocks the audit recorder used by services.
type Recorder struct{ mock.Mock }

func (m *Recorder) Record(ctx context.Context, action, entityType, entityID string, changes interface{}) {
	m.Called(ctx, action, entityType, entityID, changes)
}

// Emitter mocks the domain event emitter used by services.
type Emitter struct{ mock.Mock }

func (m *Emitter) Emit(ctx context.Context, eventType, aggregateID string, payload interface{}) error {
	return m.Called(ctx, eventType, aggregateID, payload).Error(0)
}
