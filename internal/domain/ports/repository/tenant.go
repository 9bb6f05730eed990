package repository

import (
	"context"

	"ai-content-boost/internal/domain/model"
)

type TenantRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Tenant, error)
	Save(ctx context.Context, tx Tx, tenant *model.Tenant) error
	// AddBalance bumps the display-only lifetime spend counter.
	AddBalance(ctx context.Context, tx Tx, id string, amount int64) error
}
