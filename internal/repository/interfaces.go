package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jwalitptl/wellness-api/internal/model"
)

// All repository interfaces in one file
type (
	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id primitive.ObjectID) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		Delete(ctx context.Context, id primitive.ObjectID) error
		List(ctx context.Context, opts model.ListOptions) (*model.Page[*model.Patient], error)
		FindIDsBySearch(ctx context.Context, search string) ([]primitive.ObjectID, error)
		GetMany(ctx context.Context, ids []primitive.ObjectID) ([]*model.Patient, error)
		Exists(ctx context.Context, id primitive.ObjectID) (bool, error)
	}

	VisitFilter struct {
		model.ListOptions
		// PatientIDs restricts results when non-nil. An empty non-nil
		// slice matches nothing.
		PatientIDs []primitive.ObjectID
		ProviderID *primitive.ObjectID
	}

	VisitRepository interface {
		Create(ctx context.Context, visit *model.Visit) error
		Get(ctx context.Context, id primitive.ObjectID) (*model.Visit, error)
		Update(ctx context.Context, visit *model.Visit) error
		Delete(ctx context.Context, id primitive.ObjectID) error
		List(ctx context.Context, filter VisitFilter) (*model.Page[*model.Visit], error)
		CountByPatient(ctx context.Context, patientID primitive.ObjectID) (int64, error)
		CountByTemplate(ctx context.Context, templateID primitive.ObjectID) (int64, error)
	}

	TemplateRepository interface {
		Create(ctx context.Context, tpl *model.Template) error
		Get(ctx context.Context, id primitive.ObjectID) (*model.Template, error)
		Replace(ctx context.Context, tpl *model.Template) error
		Delete(ctx context.Context, id primitive.ObjectID) error
		List(ctx context.Context, opts model.ListOptions) (*model.Page[*model.Template], error)
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id primitive.ObjectID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		GetByExternalID(ctx context.Context, externalID string) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
		Delete(ctx context.Context, id primitive.ObjectID) error
		List(ctx context.Context, opts model.ListOptions) (*model.Page[*model.User], error)
		CountByRole(ctx context.Context, role model.Role, status model.UserStatus) (int64, error)
	}

	PracticeRepository interface {
		Get(ctx context.Context) (*model.PracticeSettings, error)
		Upsert(ctx context.Context, settings *model.PracticeSettings) error
	}

	AuditRepository interface {
		Create(ctx context.Context, log *model.AuditLog) error
		List(ctx context.Context, filter model.AuditFilter) ([]*model.AuditLog, int64, error)
		Cleanup(ctx context.Context, before time.Time) (int64, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id primitive.ObjectID) error
		MarkFailed(ctx context.Context, id primitive.ObjectID, errMsg string, final bool) error
	}
)
