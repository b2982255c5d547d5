package template

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/repository"
	"github.com/jwalitptl/wellness-api/internal/service/audit"
	"github.com/jwalitptl/wellness-api/internal/service/event"
	apperrors "github.com/jwalitptl/wellness-api/pkg/errors"
)

type TemplateService interface {
	Create(ctx context.Context, req *model.CreateTemplateRequest) (*model.Template, error)
	Get(ctx context.Context, id string) (*model.Template, error)
	Update(ctx context.Context, id string, req *model.UpdateTemplateRequest) (*model.Template, error)
	AddSection(ctx context.Context, id string, req *model.AddSectionRequest) (*model.Section, error)
	AddQuestion(ctx context.Context, id, sectionID string, req *model.AddQuestionRequest) (*model.Question, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts model.ListOptions) (*model.Page[*model.Template], error)
}

type Service struct {
	repo    repository.TemplateRepository
	visits  repository.VisitRepository
	auditor audit.Recorder
	events  event.Emitter
}

func NewService(repo repository.TemplateRepository, visits repository.VisitRepository, auditor audit.Recorder, events event.Emitter) *Service {
	return &Service{
		repo:    repo,
		visits:  visits,
		auditor: auditor,
		events:  events,
	}
}

func (s *Service) Create(ctx context.Context, req *model.CreateTemplateRequest) (*model.Template, error) {
	tpl := req.ToTemplate()
	tpl.AssignIDs()
	if err := tpl.Validate(); err != nil {
		return nil, apperrors.Validation("%s", err.Error())
	}
	tpl.Version = 1
	if actor, ok := model.ActorFromContext(ctx); ok && !actor.UserID.IsZero() {
		uid := actor.UserID
		tpl.CreatedBy = &uid
	}

	if err := s.repo.Create(ctx, tpl); err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}

	s.auditor.Record(ctx, model.AuditActionCreate, model.AuditEntityTemplate, tpl.ID.Hex(), tpl)
	return tpl, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Template, error) {
	oid, err := model.ParseID(id, "template")
	if err != nil {
		return nil, err
	}

	tpl, err := s.repo.Get(ctx, oid)
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return tpl, nil
}

// Update merges the supplied fields into the stored template. Supplied
// sections may reorder or edit existing content but never introduce new
// identifiers.
func (s *Service) Update(ctx context.Context, id string, req *model.UpdateTemplateRequest) (*model.Template, error) {
	tpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		tpl.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		tpl.Description = *req.Description
	}
	if req.Active != nil {
		tpl.Active = *req.Active
	}
	if req.Sections != nil {
		if err := s.checkKnownIDs(ctx, tpl, *req.Sections); err != nil {
			return nil, err
		}
		tpl.Sections = *req.Sections
	}

	return tpl, s.save(ctx, tpl, req)
}

// checkKnownIDs accepts only sections and questions the template already
// has, each under its own kind. A question may change type only while no
// visit uses the template.
func (s *Service) checkKnownIDs(ctx context.Context, tpl *model.Template, sections []model.Section) error {
	var retyped []string
	for _, sec := range sections {
		if sec.ID == "" {
			return apperrors.Validation("section %q has no id; add new sections with the sections endpoint", sec.Title)
		}
		if tpl.Section(sec.ID) == nil {
			return apperrors.Validation("unknown section id %q", sec.ID)
		}
		for _, q := range sec.Questions {
			if q.ID == "" {
				return apperrors.Validation("question %q has no id; add new questions with the questions endpoint", q.Text)
			}
			current := tpl.Question(q.ID)
			if current == nil {
				return apperrors.Validation("unknown question id %q", q.ID)
			}
			if current.Type != q.Type {
				retyped = append(retyped, q.ID)
			}
		}
	}
	if len(retyped) == 0 {
		return nil
	}

	n, err := s.visits.CountByTemplate(ctx, tpl.ID)
	if err != nil {
		return fmt.Errorf("failed to count template visits: %w", err)
	}
	if n > 0 {
		return apperrors.Conflict(fmt.Sprintf("question type cannot change for %v while %d visit(s) use the template", retyped, n), nil)
	}
	return nil
}

func (s *Service) AddSection(ctx context.Context, id string, req *model.AddSectionRequest) (*model.Section, error) {
	tpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	questions := make([]model.Question, len(req.Questions))
	for i, q := range req.Questions {
		q.ID = ""
		questions[i] = q
	}
	section := model.Section{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Questions:   questions,
	}
	model.AssignSectionIDs(&section)
	tpl.Sections = append(tpl.Sections, section)

	if err := s.save(ctx, tpl, req); err != nil {
		return nil, err
	}
	return tpl.Section(section.ID), nil
}

func (s *Service) AddQuestion(ctx context.Context, id, sectionID string, req *model.AddQuestionRequest) (*model.Question, error) {
	tpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	section := tpl.Section(sectionID)
	if section == nil {
		return nil, apperrors.NotFound("section", nil)
	}

	q := model.Question{
		ID:       model.NewID(),
		Text:     strings.TrimSpace(req.Text),
		Type:     req.Type,
		Required: req.Required,
		HelpText: req.HelpText,
		Options:  req.Options,
	}
	section.Questions = append(section.Questions, q)

	if err := s.save(ctx, tpl, req); err != nil {
		return nil, err
	}
	return tpl.Question(q.ID), nil
}

// save validates, bumps the version and replaces the stored document.
func (s *Service) save(ctx context.Context, tpl *model.Template, changes interface{}) error {
	if err := tpl.Validate(); err != nil {
		return apperrors.Validation("%s", err.Error())
	}
	tpl.Version++

	if err := s.repo.Replace(ctx, tpl); err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}

	s.auditor.Record(ctx, model.AuditActionUpdate, model.AuditEntityTemplate, tpl.ID.Hex(), changes)
	if err := s.events.Emit(ctx, model.EventTemplateUpdated, tpl.ID.Hex(), map[string]interface{}{
		"id":      tpl.ID.Hex(),
		"name":    tpl.Name,
		"version": tpl.Version,
	}); err != nil {
		log.Warn().Err(err).Str("template_id", tpl.ID.Hex()).Msg("failed to emit template event")
	}
	return nil
}

// Delete removes a template that no visit references.
func (s *Service) Delete(ctx context.Context, id string) error {
	oid, err := model.ParseID(id, "template")
	if err != nil {
		return err
	}

	n, err := s.visits.CountByTemplate(ctx, oid)
	if err != nil {
		return fmt.Errorf("failed to count template visits: %w", err)
	}
	if n > 0 {
		return apperrors.Conflict(fmt.Sprintf("template is used by %d visit(s); deactivate it instead", n), nil)
	}

	if err := s.repo.Delete(ctx, oid); err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}

	s.auditor.Record(ctx, model.AuditActionDelete, model.AuditEntityTemplate, id, nil)
	return nil
}

func (s *Service) List(ctx context.Context, opts model.ListOptions) (*model.Page[*model.Template], error) {
	page, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return page, nil
}
