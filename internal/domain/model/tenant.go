package model

import (
	"time"

	"ai-content-boost/internal/domain"
)

// Tenant is a billed client with its own quota and signing secret.
// BalanceAEJ is a monotonic lifetime-spend counter kept for display; quota
// math always derives from the ledger and open holds, never from it.
type Tenant struct {
	ID              string
	Name            string
	PlanCode        string
	MonthlyQuotaAEJ int64
	BalanceAEJ      int64
	Secret          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func NewTenant(id, name, planCode string, monthlyQuota int64, secret string) (*Tenant, error) {
	if id == "" || name == "" || monthlyQuota < 0 || secret == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Tenant{
		ID:              id,
		Name:            name,
		PlanCode:        planCode,
		MonthlyQuotaAEJ: monthlyQuota,
		Secret:          secret,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}
