package model

import "time"

type EventKind string

const (
	EventQueued           EventKind = "queued"
	EventStarted          EventKind = "started"
	EventStageAnalyse     EventKind = "stage_analyse"
	EventStageDecision    EventKind = "stage_decision"
	EventStageGeneration  EventKind = "stage_generation"
	EventStageApplication EventKind = "stage_application"
	EventFallback         EventKind = "fallback"
	EventDone             EventKind = "done"
	EventError            EventKind = "error"
	EventCanceled         EventKind = "canceled"
	EventRetried          EventKind = "retried"
)

// Event is one best-effort timeline row; losing one never fails a job.
type Event struct {
	ID        int64
	TenantID  string
	JobID     string
	Kind      EventKind
	Detail    string
	CreatedAt time.Time
}

func NewEvent(tenantID, jobID string, kind EventKind, detail string) *Event {
	return &Event{
		TenantID:  tenantID,
		JobID:     jobID,
		Kind:      kind,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
}
