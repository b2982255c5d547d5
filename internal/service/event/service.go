package event

import (
	"context"
	"fmt"

	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/repository"
)

// Emitter records domain events for asynchronous publication.
type Emitter interface {
	Emit(ctx context.Context, eventType, aggregateID string, payload interface{}) error
}

type EventService struct {
	outboxRepo repository.OutboxRepository
}

func NewEventService(outboxRepo repository.OutboxRepository) *EventService {
	return &EventService{outboxRepo: outboxRepo}
}

// Emit writes the event to the outbox. The worker publishes it later.
func (s *EventService) Emit(ctx context.Context, eventType, aggregateID string, payload interface{}) error {
	body, err := model.ToJSONMap(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := &model.OutboxEvent{
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     body,
	}
	if err := s.outboxRepo.Create(context.WithoutCancel(ctx), event); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}
