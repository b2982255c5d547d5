package visit

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/repository"
	"github.com/jwalitptl/wellness-api/internal/service/audit"
	"github.com/jwalitptl/wellness-api/internal/service/event"
	apperrors "github.com/jwalitptl/wellness-api/pkg/errors"
)

type VisitService interface {
	Create(ctx context.Context, req *model.CreateVisitRequest) (*model.Visit, error)
	Get(ctx context.Context, id string) (*model.Visit, error)
	Update(ctx context.Context, id string, req *model.UpdateVisitRequest) (*model.Visit, error)
	RecordResponses(ctx context.Context, id string, req *model.RecordResponsesRequest) (*model.Visit, error)
	Complete(ctx context.Context, id string, req *model.RecordResponsesRequest) (*model.Visit, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts model.ListOptions) (*model.Page[*model.Visit], error)
	ListByPatient(ctx context.Context, patientID string, opts model.ListOptions) (*model.Page[*model.Visit], error)
}

type Service struct {
	repo      repository.VisitRepository
	patients  repository.PatientRepository
	templates repository.TemplateRepository
	auditor   audit.Recorder
	events    event.Emitter
	now       func() time.Time
}

func NewService(
	repo repository.VisitRepository,
	patients repository.PatientRepository,
	templates repository.TemplateRepository,
	auditor audit.Recorder,
	events event.Emitter,
) *Service {
	return &Service{
		repo:      repo,
		patients:  patients,
		templates: templates,
		auditor:   auditor,
		events:    events,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Create(ctx context.Context, req *model.CreateVisitRequest) (*model.Visit, error) {
	if req.Patient == "" {
		return nil, apperrors.Validation("patient is required")
	}
	if req.ScheduledDate == "" {
		return nil, apperrors.Validation("scheduledDate is required")
	}
	patientID, err := model.ParseID(req.Patient, "patient")
	if err != nil {
		return nil, err
	}
	scheduled, err := model.ParseDate(req.ScheduledDate)
	if err != nil {
		return nil, apperrors.Validation("scheduledDate must be a date or RFC3339 timestamp")
	}

	visit := &model.Visit{
		Patient:           patientID,
		ScheduledDate:     scheduled,
		Status:            model.VisitStatusScheduled,
		Responses:         model.Responses{},
		CompletedSections: []int{},
		Notes:             req.Notes,
	}
	if req.Status != "" {
		if !req.Status.Valid() {
			return nil, apperrors.Validation("unknown visit status %q", req.Status)
		}
		if !req.Status.Initial() {
			return nil, apperrors.Validation("a visit cannot be created as %s", req.Status)
		}
		visit.Status = req.Status
	}
	if req.Provider != "" {
		pid, err := model.ParseID(req.Provider, "provider")
		if err != nil {
			return nil, err
		}
		visit.Provider = &pid
	}
	if req.TemplateID != "" {
		tid, err := model.ParseID(req.TemplateID, "template")
		if err != nil {
			return nil, err
		}
		tpl, err := s.templates.Get(ctx, tid)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil, apperrors.Validation("template %s does not exist", req.TemplateID)
			}
			return nil, fmt.Errorf("failed to get template: %w", err)
		}
		if !tpl.Active {
			return nil, apperrors.Validation("template %q is not active", tpl.Name)
		}
		if visit.Status == model.VisitStatusCompleted {
			if err := requireAnswers(tpl, visit.Responses); err != nil {
				return nil, err
			}
		}
		visit.TemplateID = &tid
	}

	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.Validation("patient %s does not exist", req.Patient)
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	if visit.Status == model.VisitStatusCompleted {
		now := s.now()
		visit.CompletedAt = &now
	}

	if err := s.repo.Create(ctx, visit); err != nil {
		return nil, fmt.Errorf("failed to create visit: %w", err)
	}
	visit.PatientInfo = patient.Summary()

	s.auditor.Record(ctx, model.AuditActionCreate, model.AuditEntityVisit, visit.ID.Hex(), req)
	s.emit(ctx, model.EventVisitCreated, visit)
	return visit, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Visit, error) {
	visit, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.attachPatients(ctx, []*model.Visit{visit}); err != nil {
		return nil, err
	}
	return visit, nil
}

func (s *Service) get(ctx context.Context, id string) (*model.Visit, error) {
	oid, err := model.ParseID(id, "visit")
	if err != nil {
		return nil, err
	}
	visit, err := s.repo.Get(ctx, oid)
	if err != nil {
		return nil, fmt.Errorf("failed to get visit: %w", err)
	}
	if visit.Responses == nil {
		visit.Responses = model.Responses{}
	}
	if visit.CompletedSections == nil {
		visit.CompletedSections = []int{}
	}
	return visit, nil
}

// Update is a shallow merge of the supplied fields, guarded by the status
// transition rules.
func (s *Service) Update(ctx context.Context, id string, req *model.UpdateVisitRequest) (*model.Visit, error) {
	visit, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := visit.Status

	if req.ScheduledDate != nil {
		scheduled, err := model.ParseDate(*req.ScheduledDate)
		if err != nil {
			return nil, apperrors.Validation("scheduledDate must be a date or RFC3339 timestamp")
		}
		visit.ScheduledDate = scheduled
	}
	if req.Provider != nil {
		if *req.Provider == "" {
			visit.Provider = nil
		} else {
			pid, err := model.ParseID(*req.Provider, "provider")
			if err != nil {
				return nil, err
			}
			visit.Provider = &pid
		}
	}
	if req.TemplateID != nil {
		if err := s.changeTemplate(ctx, visit, *req.TemplateID); err != nil {
			return nil, err
		}
	}
	if req.Notes != nil {
		visit.Notes = *req.Notes
	}

	next := visit.Status
	if req.Status != nil {
		next = *req.Status
	}
	if err := s.apply(ctx, visit, next, req.Responses, req.CompletedSections); err != nil {
		return nil, err
	}

	return s.save(ctx, visit, previous, req)
}

func (s *Service) changeTemplate(ctx context.Context, visit *model.Visit, templateID string) error {
	if templateID == "" {
		visit.TemplateID = nil
		return nil
	}
	tid, err := model.ParseID(templateID, "template")
	if err != nil {
		return err
	}
	if visit.TemplateID != nil && *visit.TemplateID == tid {
		return nil
	}
	if len(visit.Responses) > 0 {
		return apperrors.Validation("cannot change the template of a visit that has responses")
	}
	if _, err := s.templates.Get(ctx, tid); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.Validation("template %s does not exist", templateID)
		}
		return fmt.Errorf("failed to get template: %w", err)
	}
	visit.TemplateID = &tid
	return nil
}

// RecordResponses replaces the stored responses and completed sections and
// marks the visit in progress.
func (s *Service) RecordResponses(ctx context.Context, id string, req *model.RecordResponsesRequest) (*model.Visit, error) {
	return s.progress(ctx, id, model.VisitStatusInProgress, req)
}

// Complete replaces the stored responses and completed sections and marks
// the visit completed.
func (s *Service) Complete(ctx context.Context, id string, req *model.RecordResponsesRequest) (*model.Visit, error) {
	return s.progress(ctx, id, model.VisitStatusCompleted, req)
}

func (s *Service) progress(ctx context.Context, id string, status model.VisitStatus, req *model.RecordResponsesRequest) (*model.Visit, error) {
	visit, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := visit.Status

	responses := req.Responses
	if responses == nil {
		responses = model.Responses{}
	}
	sections := req.CompletedSections
	if sections == nil {
		sections = []int{}
	}
	if err := s.apply(ctx, visit, status, &responses, &sections); err != nil {
		return nil, err
	}

	return s.save(ctx, visit, previous, req)
}

// apply validates and installs a status change together with optional
// replacement responses and completed sections.
func (s *Service) apply(ctx context.Context, visit *model.Visit, next model.VisitStatus, responses *model.Responses, sections *[]int) error {
	if !next.Valid() {
		return apperrors.Validation("unknown visit status %q", next)
	}
	if !visit.Status.CanTransitionTo(next) {
		return apperrors.Validation("cannot change visit status from %s to %s", visit.Status, next)
	}

	tpl, err := s.templateOf(ctx, visit)
	if err != nil {
		return err
	}

	answers := visit.Responses
	if responses != nil {
		answers = *responses
		if answers == nil {
			answers = model.Responses{}
		}
		if tpl != nil {
			if answers, err = tpl.Conform(answers); err != nil {
				return apperrors.Validation("%s", err.Error())
			}
		}
	}
	completed := visit.CompletedSections
	if sections != nil {
		count := -1
		if tpl != nil {
			count = len(tpl.Sections)
		}
		if completed, err = model.NormalizeSections(*sections, count); err != nil {
			return apperrors.Validation("%s", err.Error())
		}
	}

	// A completed visit keeps every required answer, including when its
	// responses are rewritten after completion.
	if next == model.VisitStatusCompleted && (visit.Status != next || responses != nil) {
		if err := requireAnswers(tpl, answers); err != nil {
			return err
		}
	}

	visit.Responses = answers
	visit.CompletedSections = completed
	if next == model.VisitStatusCompleted && visit.Status != model.VisitStatusCompleted {
		now := s.now()
		visit.CompletedAt = &now
	}
	visit.Status = next
	return nil
}

func requireAnswers(tpl *model.Template, responses model.Responses) error {
	if tpl == nil {
		return nil
	}
	if missing := tpl.MissingRequired(responses); len(missing) > 0 {
		return apperrors.Validation("required questions are unanswered: %v", missing)
	}
	return nil
}

func (s *Service) templateOf(ctx context.Context, visit *model.Visit) (*model.Template, error) {
	if visit.TemplateID == nil {
		return nil, nil
	}
	tpl, err := s.templates.Get(ctx, *visit.TemplateID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.Validation("visit template %s no longer exists", visit.TemplateID.Hex())
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return tpl, nil
}

func (s *Service) save(ctx context.Context, visit *model.Visit, previous model.VisitStatus, changes interface{}) (*model.Visit, error) {
	if err := s.repo.Update(ctx, visit); err != nil {
		return nil, fmt.Errorf("failed to update visit: %w", err)
	}

	s.auditor.Record(ctx, model.AuditActionUpdate, model.AuditEntityVisit, visit.ID.Hex(), changes)
	if visit.Status != previous {
		switch visit.Status {
		case model.VisitStatusCompleted:
			s.emit(ctx, model.EventVisitCompleted, visit)
		case model.VisitStatusCancelled:
			s.emit(ctx, model.EventVisitCancelled, visit)
		}
	}

	if err := s.attachPatients(ctx, []*model.Visit{visit}); err != nil {
		return nil, err
	}
	return visit, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	oid, err := model.ParseID(id, "visit")
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, oid); err != nil {
		return fmt.Errorf("failed to delete visit: %w", err)
	}
	s.auditor.Record(ctx, model.AuditActionDelete, model.AuditEntityVisit, id, nil)
	return nil
}

// List resolves a text search to the matching patients before querying
// visits.
func (s *Service) List(ctx context.Context, opts model.ListOptions) (*model.Page[*model.Visit], error) {
	filter := repository.VisitFilter{ListOptions: opts}
	if opts.Search != "" {
		ids, err := s.patients.FindIDsBySearch(ctx, opts.Search)
		if err != nil {
			return nil, fmt.Errorf("failed to search patients: %w", err)
		}
		if ids == nil {
			ids = []primitive.ObjectID{}
		}
		filter.PatientIDs = ids
	}
	return s.list(ctx, filter)
}

func (s *Service) ListByPatient(ctx context.Context, patientID string, opts model.ListOptions) (*model.Page[*model.Visit], error) {
	pid, err := model.ParseID(patientID, "patient")
	if err != nil {
		return nil, err
	}
	ok, err := s.patients.Exists(ctx, pid)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	if !ok {
		return nil, apperrors.NotFound("patient", nil)
	}

	opts.Search = ""
	return s.list(ctx, repository.VisitFilter{ListOptions: opts, PatientIDs: []primitive.ObjectID{pid}})
}

func (s *Service) list(ctx context.Context, filter repository.VisitFilter) (*model.Page[*model.Visit], error) {
	page, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	if err := s.attachPatients(ctx, page.Items); err != nil {
		return nil, err
	}
	return page, nil
}

// attachPatients fills PatientInfo with one lookup for the whole batch.
func (s *Service) attachPatients(ctx context.Context, visits []*model.Visit) error {
	if len(visits) == 0 {
		return nil
	}
	ids := lo.Uniq(lo.Map(visits, func(v *model.Visit, _ int) primitive.ObjectID { return v.Patient }))
	patients, err := s.patients.GetMany(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load visit patients: %w", err)
	}
	byID := lo.KeyBy(patients, func(p *model.Patient) primitive.ObjectID { return p.ID })
	for _, v := range visits {
		if p, ok := byID[v.Patient]; ok {
			v.PatientInfo = p.Summary()
		}
	}
	return nil
}

func (s *Service) emit(ctx context.Context, eventType string, visit *model.Visit) {
	payload := map[string]interface{}{
		"id":            visit.ID.Hex(),
		"patient":       visit.Patient.Hex(),
		"status":        visit.Status,
		"scheduledDate": visit.ScheduledDate,
	}
	if visit.TemplateID != nil {
		payload["templateId"] = visit.TemplateID.Hex()
	}
	if err := s.events.Emit(ctx, eventType, visit.ID.Hex(), payload); err != nil {
		log.Warn().Err(err).Str("visit_id", visit.ID.Hex()).Str("event", eventType).Msg("failed to emit visit event")
	}
}
