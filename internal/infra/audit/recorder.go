// Package audit funnels the two audit trails behind one best-effort sink.
// Decision rows are append-once and load-bearing for compliance review;
// event rows are a debugging timeline. Neither may fail a job, so every
// write error ends here as a log line.
package audit

import (
	"context"

	"github.com/rs/zerolog"

	"ai-content-boost/internal/domain/model"
	"ai-content-boost/internal/domain/ports/repository"
)

type Sink struct {
	events    repository.EventRepository
	decisions repository.DecisionRepository
	log       *zerolog.Logger
}

func NewSink(events repository.EventRepository, decisions repository.DecisionRepository, logger *zerolog.Logger) *Sink {
	auditLog := logger.With().Str("component", "AuditSink").Logger()
	return &Sink{events: events, decisions: decisions, log: &auditLog}
}

// Event appends a timeline row. Failures are logged and swallowed.
func (s *Sink) Event(ctx context.Context, tenantID, jobID string, kind model.EventKind, detail string) {
	if s == nil || s.events == nil {
		return
	}
	ev := model.NewEvent(tenantID, jobID, kind, detail)
	if err := s.events.Append(ctx, repository.NoTX, ev); err != nil {
		s.log.Warn().Err(err).Str("job_id", jobID).Str("kind", string(kind)).Msg("event append failed")
	}
}

// Decision records an audit decision once per (job, type). A suppressed
// duplicate is normal on worker redelivery and only logged at debug.
func (s *Sink) Decision(ctx context.Context, tenantID, jobID string, decision model.DecisionType, reason string, item model.ContentItem) {
	if s == nil || s.decisions == nil {
		return
	}
	rec := model.NewDecisionRecord(tenantID, jobID, decision, reason, item)
	recorded, err := s.decisions.Record(ctx, repository.NoTX, rec)
	if err != nil {
		s.log.Warn().Err(err).Str("job_id", jobID).Str("decision", string(decision)).Msg("decision record failed")
		return
	}
	if !recorded {
		s.log.Debug().Str("job_id", jobID).Str("decision", string(decision)).Msg("decision already recorded")
	}
}
