package model

import "time"

// DispatchEntry is one pending delivery in the durable dispatch queue.
// Attempts counts claims, not failures: a claim leases the entry until RunAt,
// and an unacked lease expiring is what makes delivery at-least-once.
type DispatchEntry struct {
	JobID    string
	RunAt    time.Time
	Attempts int
}
