package audit

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Recorder writes audit entries without failing the calling operation.
type Recorder interface {
	Record(ctx context.Context, action, entityType, entityID string, changes interface{})
}

type AuditLogger struct {
	service *Service
}

func NewAuditLogger(service *Service) *AuditLogger {
	return &AuditLogger{service: service}
}

// Record logs the entry synchronously. Failures are logged and dropped.
func (l *AuditLogger) Record(ctx context.Context, action, entityType, entityID string, changes interface{}) {
	var opts *LogOptions
	if changes != nil {
		opts = &LogOptions{Changes: changes}
	}
	if err := l.service.Log(context.WithoutCancel(ctx), action, entityType, entityID, opts); err != nil {
		log.Error().Err(err).
			Str("action", action).
			Str("entity_type", entityType).
			Str("entity_id", entityID).
			Msg("failed to write audit log")
	}
}
