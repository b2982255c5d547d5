package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/repository"
)

type Service struct {
	repo repository.AuditRepository
}

func NewService(repo repository.AuditRepository) *Service {
	return &Service{repo: repo}
}

type LogOptions struct {
	Changes  interface{}
	Metadata interface{}
}

// Log creates an audit log entry attributed to the actor in ctx.
func (s *Service) Log(ctx context.Context, action, entityType, entityID string, opts *LogOptions) error {
	entry := &model.AuditLog{
		ID:         uuid.NewString(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		CreatedAt:  time.Now().UTC(),
	}

	if actor, ok := model.ActorFromContext(ctx); ok {
		if !actor.UserID.IsZero() {
			entry.UserID = actor.UserID.Hex()
		} else {
			entry.UserID = actor.ExternalID
		}
		entry.UserEmail = actor.Email
		entry.IPAddress = actor.IPAddress
		entry.UserAgent = actor.UserAgent
		entry.RequestID = actor.RequestID
	}

	if opts != nil {
		var err error
		if entry.Changes, err = model.ToJSONMap(opts.Changes); err != nil {
			return fmt.Errorf("failed to encode changes: %w", err)
		}
		if entry.Metadata, err = model.ToJSONMap(opts.Metadata); err != nil {
			return fmt.Errorf("failed to encode metadata: %w", err)
		}
	}

	return s.repo.Create(ctx, entry)
}

func (s *Service) List(ctx context.Context, filter model.AuditFilter) ([]*model.AuditLog, int64, error) {
	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, total, nil
}

// Cleanup removes entries older than the retention window.
func (s *Service) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	return s.repo.Cleanup(ctx, time.Now().UTC().Add(-retention))
}
