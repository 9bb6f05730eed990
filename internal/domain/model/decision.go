package model

import (
	"time"

	"github.com/google/uuid"
)

type DecisionType string

const (
	DecisionAnalysed DecisionType = "analysed"
	DecisionModified DecisionType = "modified"
)

// DecisionRecord is an append-once audit row: at most one record per
// (tenant, job, decision type). Content identity is copied verbatim from the
// request's first item so the audit trail survives source-system changes.
type DecisionRecord struct {
	ID           string
	TenantID     string
	JobID        string
	Decision     DecisionType
	Reason       string
	SourceSystem string
	ContentType  string
	ContentID    string
	CreatedAt    time.Time
}

func NewDecisionRecord(tenantID, jobID string, decision DecisionType, reason string, item ContentItem) *DecisionRecord {
	return &DecisionRecord{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		JobID:        jobID,
		Decision:     decision,
		Reason:       reason,
		SourceSystem: item.SourceSystem,
		ContentType:  item.ContentType,
		ContentID:    item.ContentID,
		CreatedAt:    time.Now(),
	}
}
