package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrAlreadyExists       = errors.New("entity already exists")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrJobNotFound         = errors.New("job not found")
	ErrTenantNotFound      = errors.New("tenant not found")
	ErrInvalidTransition   = errors.New("invalid job state transition")
	ErrIdempotencyConflict = errors.New("idempotency token already bound to another job")
	ErrDegradedMode        = errors.New("generation backend disabled by degraded mode")
	ErrSchemaViolation     = errors.New("backend output does not match the requested schema")
	ErrQueueFull           = errors.New("worker queue full")
	ErrOperationFailed     = errors.New("operation failed")

	// Storage-layer mapping errors
	ErrInvalidExecContext = errors.New("invalid executor context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)

// QuotaExceededError is returned by admission when the conservative estimate
// does not fit the tenant's remaining monthly budget. It carries the snapshot
// the caller needs to build a rejection payload.
type QuotaExceededError struct {
	TenantID  string
	Quota     int64
	Consumed  int64
	Held      int64
	Requested int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: tenant=%s requested=%d remaining=%d",
		e.TenantID, e.Requested, e.Remaining())
}

// Remaining is the budget still open to new holds, never negative.
func (e *QuotaExceededError) Remaining() int64 {
	r := e.Quota - e.Consumed - e.Held
	if r < 0 {
		r = 0
	}
	return r
}

// ValidationError reports request fields rejected before admission.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %d field(s) rejected", len(e.Fields))
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

func (e *ValidationError) Add(field, reason string) {
	e.Fields[field] = reason
}

func (e *ValidationError) Empty() bool { return len(e.Fields) == 0 }
