//go:build !integration

package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"

	"ai-content-boost/internal/domain"
	"ai-content-boost/internal/domain/model"
	"ai-content-boost/internal/domain/ports/repository"
)

// In-memory repositories used by unit tests. They mirror the status guards of
// the Postgres implementations so transition races behave the same way.

type memTenantRepo struct {
	mu      sync.RWMutex
	tenants map[string]*model.Tenant
}

func newMemTenantRepo() *memTenantRepo {
	return &memTenantRepo{tenants: make(map[string]*model.Tenant)}
}

func (m *memTenantRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, domain.ErrTenantNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTenantRepo) Save(ctx context.Context, tx repository.Tx, tenant *model.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *tenant
	m.tenants[tenant.ID] = &cp
	return nil
}

func (m *memTenantRepo) AddBalance(ctx context.Context, tx repository.Tx, id string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	if !ok {
		return domain.ErrTenantNotFound
	}
	t.BalanceAEJ += amount
	return nil
}

type memJobRepo struct {
	mu        sync.RWMutex
	jobs      map[string]*model.Job
	createErr error
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{jobs: make(map[string]*model.Job)}
}

func (m *memJobRepo) Create(ctx context.Context, tx repository.Tx, job *model.Job) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *memJobRepo) FindByID(ctx context.Context, tx repository.Tx, jobID string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memJobRepo) FindForTenant(ctx context.Context, tx repository.Tx, tenantID, jobID string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[jobID]
	if !ok || j.TenantID != tenantID {
		return nil, domain.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memJobRepo) MarkRunning(ctx context.Context, tx repository.Tx, jobID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok || (j.Status != model.JobStatusQueued && j.Status != model.JobStatusRunning) {
		return false, nil
	}
	j.Status = model.JobStatusRunning
	j.Progress = model.ProgressStarted
	j.UpdatedAt = time.Now()
	return true, nil
}

func (m *memJobRepo) SetProgress(ctx context.Context, tx repository.Tx, jobID string, progress int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[jobID]; ok && j.Status == model.JobStatusRunning {
		j.Progress = progress
		j.UpdatedAt = time.Now()
	}
	return nil
}

func (m *memJobRepo) SetMode(ctx context.Context, tx repository.Tx, jobID string, mode model.Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[jobID]; ok {
		j.Mode = mode
		j.UpdatedAt = time.Now()
	}
	return nil
}

func (m *memJobRepo) CompleteWithResult(ctx context.Context, tx repository.Tx, jobID string, result *model.JobResult) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok || j.Status != model.JobStatusRunning {
		return false, nil
	}
	now := time.Now()
	cp := *result
	j.Status = model.JobStatusDone
	j.Progress = model.ProgressDone
	j.Result = &cp
	j.ErrorText = ""
	j.FinishedAt = &now
	j.UpdatedAt = now
	return true, nil
}

func (m *memJobRepo) MarkError(ctx context.Context, tx repository.Tx, jobID, errText string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok || (j.Status != model.JobStatusQueued && j.Status != model.JobStatusRunning) {
		return false, nil
	}
	now := time.Now()
	j.Status = model.JobStatusError
	j.ErrorText = errText
	j.Result = nil
	j.FinishedAt = &now
	j.UpdatedAt = now
	return true, nil
}

func (m *memJobRepo) Cancel(ctx context.Context, tx repository.Tx, jobID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok || (j.Status != model.JobStatusQueued && j.Status != model.JobStatusRunning) {
		return false, nil
	}
	now := time.Now()
	j.Status = model.JobStatusCanceled
	j.FinishedAt = &now
	j.UpdatedAt = now
	return true, nil
}

func (m *memJobRepo) ResetForRetry(ctx context.Context, tx repository.Tx, jobID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok || !j.Status.Terminal() {
		return false, nil
	}
	j.Status = model.JobStatusQueued
	j.Progress = model.ProgressQueued
	j.Result = nil
	j.ErrorText = ""
	j.FinalCost = nil
	j.FinishedAt = nil
	j.UpdatedAt = time.Now()
	return true, nil
}

func (m *memJobRepo) SetFinalCost(ctx context.Context, tx repository.Tx, jobID string, cost int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[jobID]; ok {
		c := cost
		j.FinalCost = &c
		j.UpdatedAt = time.Now()
	}
	return nil
}

type memHoldRepo struct {
	mu    sync.RWMutex
	holds map[string]*model.QuotaHold // keyed by hold id
}

func newMemHoldRepo() *memHoldRepo {
	return &memHoldRepo{holds: make(map[string]*model.QuotaHold)}
}

func (m *memHoldRepo) Create(ctx context.Context, tx repository.Tx, hold *model.QuotaHold) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.holds {
		if h.JobID == hold.JobID && h.Status == model.HoldStatusHeld {
			return domain.ErrAlreadyExists
		}
	}
	cp := *hold
	m.holds[hold.ID] = &cp
	return nil
}

func (m *memHoldRepo) FindOpenByJob(ctx context.Context, tx repository.Tx, jobID string) (*model.QuotaHold, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, h := range m.holds {
		if h.JobID == jobID && h.Status == model.HoldStatusHeld {
			cp := *h
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memHoldRepo) SumOpenByTenant(ctx context.Context, tx repository.Tx, tenantID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sum int64
	for _, h := range m.holds {
		if h.TenantID == tenantID && h.Status == model.HoldStatusHeld {
			sum += h.AmountAEJ
		}
	}
	return sum, nil
}

func (m *memHoldRepo) Release(ctx context.Context, tx repository.Tx, jobID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.holds {
		if h.JobID == jobID && h.Status == model.HoldStatusHeld {
			now := time.Now()
			h.Status = model.HoldStatusReleased
			h.ReleasedAt = &now
			return true, nil
		}
	}
	return false, nil
}

type ledgerKey struct {
	tenantID string
	jobID    string
	stage    model.Stage
}

type memLedgerRepo struct {
	mu      sync.RWMutex
	entries map[ledgerKey]*model.LedgerEntry
	nextID  int64
}

func newMemLedgerRepo() *memLedgerRepo {
	return &memLedgerRepo{entries: make(map[ledgerKey]*model.LedgerEntry)}
}

func (m *memLedgerRepo) Append(ctx context.Context, tx repository.Tx, entry *model.LedgerEntry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := ledgerKey{entry.TenantID, entry.JobID, entry.Stage}
	if _, ok := m.entries[k]; ok {
		return false, nil
	}
	m.nextID++
	cp := *entry
	cp.ID = m.nextID
	m.entries[k] = &cp
	return true, nil
}

func (m *memLedgerRepo) SumByTenantSince(ctx context.Context, tx repository.Tx, tenantID string, since time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sum int64
	for _, e := range m.entries {
		if e.TenantID == tenantID && !e.CreatedAt.Before(since) {
			sum += e.AmountAEJ
		}
	}
	return sum, nil
}

func (m *memLedgerRepo) SumByJob(ctx context.Context, tx repository.Tx, tenantID, jobID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sum int64
	for _, e := range m.entries {
		if e.TenantID == tenantID && e.JobID == jobID {
			sum += e.AmountAEJ
		}
	}
	return sum, nil
}

func (m *memLedgerRepo) ListByJob(ctx context.Context, tx repository.Tx, tenantID, jobID string) ([]*model.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.LedgerEntry
	for _, e := range m.entries {
		if e.TenantID == tenantID && e.JobID == jobID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

type idemKey struct {
	tenantID string
	token    string
}

type memIdempotencyRepo struct {
	mu    sync.RWMutex
	bound map[idemKey]string
}

func newMemIdempotencyRepo() *memIdempotencyRepo {
	return &memIdempotencyRepo{bound: make(map[idemKey]string)}
}

func (m *memIdempotencyRepo) FindJobID(ctx context.Context, tx repository.Tx, tenantID, token string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jobID, ok := m.bound[idemKey{tenantID, token}]
	if !ok {
		return "", domain.ErrNotFound
	}
	return jobID, nil
}

func (m *memIdempotencyRepo) Create(ctx context.Context, tx repository.Tx, tenantID, token, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := idemKey{tenantID, token}
	if _, ok := m.bound[k]; ok {
		return domain.ErrIdempotencyConflict
	}
	m.bound[k] = jobID
	return nil
}

type memQueueRepo struct {
	mu         sync.Mutex
	entries    map[string]*model.DispatchEntry
	enqueueErr error
}

func newMemQueueRepo() *memQueueRepo {
	return &memQueueRepo{entries: make(map[string]*model.DispatchEntry)}
}

func (m *memQueueRepo) Enqueue(ctx context.Context, tx repository.Tx, jobID string, runAt time.Time) error {
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[jobID] = &model.DispatchEntry{JobID: jobID, RunAt: runAt}
	return nil
}

func (m *memQueueRepo) Remove(ctx context.Context, tx repository.Tx, jobID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[jobID]; !ok {
		return false, nil
	}
	delete(m.entries, jobID)
	return true, nil
}

func (m *memQueueRepo) Claim(ctx context.Context, lease time.Duration) (*model.DispatchEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var oldest *model.DispatchEntry
	for _, e := range m.entries {
		if e.RunAt.After(now) {
			continue
		}
		if oldest == nil || e.RunAt.Before(oldest.RunAt) {
			oldest = e
		}
	}
	if oldest == nil {
		return nil, nil
	}
	oldest.RunAt = now.Add(lease)
	oldest.Attempts++
	cp := *oldest
	return &cp, nil
}

func (m *memQueueRepo) Ack(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, jobID)
	return nil
}

func (m *memQueueRepo) Retry(ctx context.Context, jobID string, delay time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[jobID]; ok {
		e.RunAt = time.Now().Add(delay)
	}
	return nil
}

type memFlagRepo struct {
	mu    sync.RWMutex
	flags map[string]*model.AdminFlag
}

func newMemFlagRepo() *memFlagRepo {
	return &memFlagRepo{flags: make(map[string]*model.AdminFlag)}
}

func (m *memFlagRepo) Find(ctx context.Context, tx repository.Tx, key string) (*model.AdminFlag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.flags[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *memFlagRepo) Set(ctx context.Context, tx repository.Tx, key, value string) (*model.AdminFlag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := &model.AdminFlag{Key: key, Value: value, UpdatedAt: time.Now()}
	m.flags[key] = f
	cp := *f
	return &cp, nil
}

type memEventRepo struct {
	mu     sync.Mutex
	events []*model.Event
}

func newMemEventRepo() *memEventRepo { return &memEventRepo{} }

func (m *memEventRepo) Append(ctx context.Context, tx repository.Tx, ev *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ev
	cp.ID = int64(len(m.events) + 1)
	m.events = append(m.events, &cp)
	return nil
}

func (m *memEventRepo) ListByJob(ctx context.Context, tx repository.Tx, tenantID, jobID string) ([]*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Event
	for _, e := range m.events {
		if e.TenantID == tenantID && e.JobID == jobID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memEventRepo) DeleteOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*model.Event
	var gone int64
	for _, e := range m.events {
		if e.CreatedAt.Before(cutoff) {
			gone++
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return gone, nil
}

func (m *memEventRepo) kinds(jobID string) []model.EventKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.EventKind
	for _, e := range m.events {
		if e.JobID == jobID {
			out = append(out, e.Kind)
		}
	}
	return out
}

type decisionKey struct {
	tenantID string
	jobID    string
	decision model.DecisionType
}

type memDecisionRepo struct {
	mu      sync.Mutex
	records map[decisionKey]*model.DecisionRecord
}

func newMemDecisionRepo() *memDecisionRepo {
	return &memDecisionRepo{records: make(map[decisionKey]*model.DecisionRecord)}
}

func (m *memDecisionRepo) Record(ctx context.Context, tx repository.Tx, rec *model.DecisionRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := decisionKey{rec.TenantID, rec.JobID, rec.Decision}
	if _, ok := m.records[k]; ok {
		return false, nil
	}
	cp := *rec
	m.records[k] = &cp
	return true, nil
}

func (m *memDecisionRepo) ListByJob(ctx context.Context, tx repository.Tx, tenantID, jobID string) ([]*model.DecisionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.DecisionRecord
	for _, r := range m.records {
		if r.TenantID == tenantID && r.JobID == jobID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

// memTxManager satisfies repository.TransactionManager without a database;
// the callback simply runs with a nil transaction handle.
type memTxManager struct{}

func (memTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, repository.NoTX)
}
