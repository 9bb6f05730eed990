package repository

import (
	"context"
	"time"

	"ai-content-boost/internal/domain/model"
)

// DispatchQueueRepository is the durable handoff between admission and the
// execution workers. Delivery is at-least-once: Claim leases an entry by
// pushing its run_at past the lease window, and only Ack removes it, so a
// worker dying mid-run surfaces the entry again after the lease expires.
//
// Enqueue and Remove take the caller's transaction; Claim, Ack and Retry run
// on their own connections because they bracket work that happens outside any
// admission transaction.
type DispatchQueueRepository interface {
	// Enqueue upserts the job's entry: a pending entry is replaced and its
	// attempt counter reset, so re-dispatching a retried job starts clean.
	Enqueue(ctx context.Context, tx Tx, jobID string, runAt time.Time) error
	Remove(ctx context.Context, tx Tx, jobID string) (bool, error)

	// Claim returns the due entry with the earliest run_at, or nil when the
	// queue is idle. The returned Attempts counts this claim too.
	Claim(ctx context.Context, lease time.Duration) (*model.DispatchEntry, error)
	Ack(ctx context.Context, jobID string) error
	// Retry schedules a redelivery sooner than the lease would.
	Retry(ctx context.Context, jobID string, delay time.Duration) error
}
