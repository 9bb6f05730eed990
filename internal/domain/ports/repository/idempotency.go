package repository

import "context"

// IdempotencyRepository binds (tenant, token) pairs to job ids, forever.
type IdempotencyRepository interface {
	// FindJobID returns domain.ErrNotFound when the token is unknown.
	FindJobID(ctx context.Context, tx Tx, tenantID, token string) (string, error)
	// Create returns domain.ErrIdempotencyConflict when the pair is already
	// bound.
	Create(ctx context.Context, tx Tx, tenantID, token, jobID string) error
}
