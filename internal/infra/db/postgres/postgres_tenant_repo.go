package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ai-content-boost/internal/domain"
	"ai-content-boost/internal/domain/model"
	"ai-content-boost/internal/domain/ports/repository"
	"ai-content-boost/internal/infra/security"
)

var _ repository.TenantRepository = (*tenantRepo)(nil)

type tenantRepo struct {
	pool   *pgxpool.Pool
	cipher *security.SecretCipher
}

// NewTenantRepo stores tenants with their signing secret sealed by cipher.
// A nil cipher keeps secrets in plaintext, which is fine for tests and
// local setups.
func NewTenantRepo(pool *pgxpool.Pool, cipher *security.SecretCipher) *tenantRepo {
	return &tenantRepo{pool: pool, cipher: cipher}
}

func (r *tenantRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Tenant, error) {
	const q = `
SELECT id, name, plan_code, monthly_quota_aej, balance_aej, secret, created_at, updated_at
FROM tenants WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	var t model.Tenant
	err = row.Scan(&t.ID, &t.Name, &t.PlanCode, &t.MonthlyQuotaAEJ, &t.BalanceAEJ, &t.Secret, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTenantNotFound
		}
		return nil, err
	}
	if r.cipher != nil {
		t.Secret, err = r.cipher.Open(t.Secret)
		if err != nil {
			return nil, fmt.Errorf("unseal secret for tenant %s: %w", t.ID, err)
		}
	}
	return &t, nil
}

func (r *tenantRepo) Save(ctx context.Context, tx repository.Tx, tenant *model.Tenant) error {
	tenant.UpdatedAt = time.Now()
	secret := tenant.Secret
	if r.cipher != nil {
		var err error
		secret, err = r.cipher.Seal(secret)
		if err != nil {
			return fmt.Errorf("seal secret for tenant %s: %w", tenant.ID, err)
		}
	}
	const q = `
INSERT INTO tenants (id, name, plan_code, monthly_quota_aej, balance_aej, secret, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name,
  plan_code = EXCLUDED.plan_code,
  monthly_quota_aej = EXCLUDED.monthly_quota_aej,
  secret = EXCLUDED.secret,
  updated_at = EXCLUDED.updated_at;`
	_, err := execSQL(ctx, r.pool, tx, q,
		tenant.ID, tenant.Name, tenant.PlanCode, tenant.MonthlyQuotaAEJ, tenant.BalanceAEJ,
		secret, tenant.CreatedAt, tenant.UpdatedAt)
	return err
}

func (r *tenantRepo) AddBalance(ctx context.Context, tx repository.Tx, id string, amount int64) error {
	const q = `UPDATE tenants SET balance_aej = balance_aej + $2, updated_at = now() WHERE id = $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}
