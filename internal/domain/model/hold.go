package model

import (
	"time"

	"github.com/google/uuid"
)

type HoldStatus string

const (
	HoldStatusHeld     HoldStatus = "held"
	HoldStatusReleased HoldStatus = "released"
)

// QuotaHold reserves estimated AEJ spend against the monthly quota while a
// job is in flight. A job has at most one open hold at a time; releasing is
// idempotent.
type QuotaHold struct {
	ID         string
	TenantID   string
	JobID      string
	AmountAEJ  int64
	Status     HoldStatus
	CreatedAt  time.Time
	ReleasedAt *time.Time
}

func NewQuotaHold(tenantID, jobID string, amount int64) *QuotaHold {
	return &QuotaHold{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		JobID:     jobID,
		AmountAEJ: amount,
		Status:    HoldStatusHeld,
		CreatedAt: time.Now(),
	}
}
