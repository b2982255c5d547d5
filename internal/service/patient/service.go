package patient

import (
	"context"
	"fmt"

	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/repository"
	"github.com/jwalitptl/wellness-api/internal/service/audit"
	apperrors "github.com/jwalitptl/wellness-api/pkg/errors"
)

type PatientService interface {
	Create(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error)
	Get(ctx context.Context, id string) (*model.Patient, error)
	Update(ctx context.Context, id string, req *model.UpdatePatientRequest) (*model.Patient, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts model.ListOptions) (*model.Page[*model.Patient], error)
}

type Service struct {
	repo    repository.PatientRepository
	visits  repository.VisitRepository
	auditor audit.Recorder
}

func NewService(repo repository.PatientRepository, visits repository.VisitRepository, auditor audit.Recorder) *Service {
	return &Service{
		repo:    repo,
		visits:  visits,
		auditor: auditor,
	}
}

func (s *Service) Create(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	patient := req.ToPatient()
	if err := validatePatient(patient); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}

	s.auditor.Record(ctx, model.AuditActionCreate, model.AuditEntityPatient, patient.ID.Hex(), patient)
	return patient, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Patient, error) {
	oid, err := model.ParseID(id, "patient")
	if err != nil {
		return nil, err
	}

	patient, err := s.repo.Get(ctx, oid)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return patient, nil
}

func (s *Service) Update(ctx context.Context, id string, req *model.UpdatePatientRequest) (*model.Patient, error) {
	patient, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	req.Apply(patient)
	if err := validatePatient(patient); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}

	s.auditor.Record(ctx, model.AuditActionUpdate, model.AuditEntityPatient, patient.ID.Hex(), req)
	return patient, nil
}

// Delete removes a patient with no visits.
func (s *Service) Delete(ctx context.Context, id string) error {
	oid, err := model.ParseID(id, "patient")
	if err != nil {
		return err
	}

	n, err := s.visits.CountByPatient(ctx, oid)
	if err != nil {
		return fmt.Errorf("failed to count patient visits: %w", err)
	}
	if n > 0 {
		return apperrors.Conflict(fmt.Sprintf("patient has %d visit(s) and cannot be deleted", n), nil)
	}

	if err := s.repo.Delete(ctx, oid); err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}

	s.auditor.Record(ctx, model.AuditActionDelete, model.AuditEntityPatient, id, nil)
	return nil
}

func (s *Service) List(ctx context.Context, opts model.ListOptions) (*model.Page[*model.Patient], error) {
	page, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return page, nil
}

func validatePatient(p *model.Patient) error {
	if p.FirstName == "" {
		return apperrors.Validation("firstName is required")
	}
	if p.LastName == "" {
		return apperrors.Validation("lastName is required")
	}
	if p.DateOfBirth != "" {
		if _, err := model.ParseDate(p.DateOfBirth); err != nil {
			return apperrors.Validation("dateOfBirth must be a date (YYYY-MM-DD)")
		}
	}
	if p.MedicalHistory == nil {
		p.MedicalHistory = []string{}
	}
	return nil
}
