package repository

import (
	"context"

	"ai-content-boost/internal/domain/model"
)

type FlagRepository interface {
	// Find returns domain.ErrNotFound for unset keys; callers decide the
	// default.
	Find(ctx context.Context, tx Tx, key string) (*model.AdminFlag, error)
	Set(ctx context.Context, tx Tx, key, value string) (*model.AdminFlag, error)
}
