package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ai-content-boost/internal/domain"
	"ai-content-boost/internal/domain/model"
	"ai-content-boost/internal/domain/ports/repository"
)

var _ repository.FlagRepository = (*flagRepo)(nil)

type flagRepo struct {
	pool *pgxpool.Pool
}

func NewFlagRepo(pool *pgxpool.Pool) *flagRepo {
	return &flagRepo{pool: pool}
}

func (r *flagRepo) Find(ctx context.Context, tx repository.Tx, key string) (*model.AdminFlag, error) {
	const q = `SELECT key, value, updated_at FROM admin_flags WHERE key = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, key)
	if err != nil {
		return nil, err
	}
	var f model.AdminFlag
	if err := row.Scan(&f.Key, &f.Value, &f.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

func (r *flagRepo) Set(ctx context.Context, tx repository.Tx, key, value string) (*model.AdminFlag, error) {
	const q = `
INSERT INTO admin_flags (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
RETURNING key, value, updated_at;`
	row, err := pickRow(ctx, r.pool, tx, q, key, value)
	if err != nil {
		return nil, err
	}
	var f model.AdminFlag
	if err := row.Scan(&f.Key, &f.Value, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}
