package model

import (
	"time"

	"ai-content-boost/internal/domain"
)

type Stage string

const (
	StageAnalyse     Stage = "analyse"
	StageDecision    Stage = "decision"
	StageGeneration  Stage = "generation"
	StageApplication Stage = "application"
	// StageFollowUp is the catch-all bucket for charges outside the four
	// pipeline stages, currently the repeated backend spend of a re-run.
	StageFollowUp Stage = "follow_up"
)

func ParseStage(s string) (Stage, error) {
	switch Stage(s) {
	case StageAnalyse, StageDecision, StageGeneration, StageApplication, StageFollowUp:
		return Stage(s), nil
	default:
		return "", domain.ErrInvalidArgument
	}
}

// LedgerEntry is one append-only usage charge. At most one entry may exist
// per (tenant, job, stage); later writes for the same triple are suppressed.
type LedgerEntry struct {
	ID               int64
	TenantID         string
	JobID            string
	Stage            Stage
	AmountAEJ        int64
	PromptTokens     int
	CompletionTokens int
	Model            string
	CreatedAt        time.Time
}

func NewLedgerEntry(tenantID, jobID string, stage Stage, amount int64) *LedgerEntry {
	return &LedgerEntry{
		TenantID:  tenantID,
		JobID:     jobID,
		Stage:     stage,
		AmountAEJ: amount,
		CreatedAt: time.Now(),
	}
}

// MonthStart truncates t to the first instant of its calendar month in UTC.
// Quota windows are calendar months.
func MonthStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// UsageSnapshot is the tenant's quota position for one month window.
// LifetimeSpend is the running all-time counter; it plays no part in the
// quota math.
type UsageSnapshot struct {
	TenantID      string
	Month         time.Time
	Quota         int64
	Consumed      int64
	Held          int64
	LifetimeSpend int64
}

func (s UsageSnapshot) Remaining() int64 {
	r := s.Quota - s.Consumed - s.Held
	if r < 0 {
		r = 0
	}
	return r
}
