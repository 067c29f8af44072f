package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Icestreamm/baseer-backend/internal/core/domain"
	output "github.com/Icestreamm/baseer-backend/internal/core/ports/output"
)

// AssessmentStatusRepo keeps assessment progress in memory. Records expire
// ttl after their last update; when full, the least recently updated record
// is evicted, finished ones first.
type AssessmentStatusRepo struct {
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	status    domain.AssessmentStatus
	expiresAt time.Time
}

var _ output.AssessmentStatusRepository = (*AssessmentStatusRepo)(nil)

// NewAssessmentStatusRepo creates a new in-memory store. A zero ttl keeps
// records forever, a zero maxSize means unbounded.
func NewAssessmentStatusRepo(ttl time.Duration, maxSize int) *AssessmentStatusRepo {
	return &AssessmentStatusRepo{
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

func (r *AssessmentStatusRepo) Create(ctx context.Context, status *domain.AssessmentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[status.AssessmentID]; ok && !r.expired(e) && e.status.State == domain.AssessmentProcessing {
		return domain.ErrAssessmentInProgress
	}
	r.put(status)
	return nil
}

func (r *AssessmentStatusRepo) Get(ctx context.Context, id string) (*domain.AssessmentStatus, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrAssessmentNotFound
	}
	if r.expired(e) {
		r.mu.Lock()
		// A put may have replaced the entry since the read lock was released.
		if cur, ok := r.entries[id]; ok && cur == e {
			delete(r.entries, id)
		}
		r.mu.Unlock()
		return nil, domain.ErrAssessmentNotFound
	}
	status := e.status
	return &status, nil
}

// Update stores the record, re-adding it if it was evicted meanwhile.
func (r *AssessmentStatusRepo) Update(ctx context.Context, status *domain.AssessmentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(status)
	return nil
}

// Len reports the number of stored records, expired ones included.
func (r *AssessmentStatusRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// put must be called with mu held.
func (r *AssessmentStatusRepo) put(status *domain.AssessmentStatus) {
	if _, ok := r.entries[status.AssessmentID]; !ok && r.maxSize > 0 && len(r.entries) >= r.maxSize {
		r.evict()
	}
	e := &entry{status: *status}
	if r.ttl > 0 {
		e.expiresAt = r.now().Add(r.ttl)
	}
	r.entries[status.AssessmentID] = e
}

// evict must be called with mu held.
func (r *AssessmentStatusRepo) evict() {
	var victim string
	var victimEntry *entry
	for id, e := range r.entries {
		if r.expired(e) {
			delete(r.entries, id)
			return
		}
		if victimEntry == nil || older(e, victimEntry) {
			victim, victimEntry = id, e
		}
	}
	if victimEntry != nil {
		delete(r.entries, victim)
	}
}

// older orders finished records before processing ones, then by last update.
func older(a, b *entry) bool {
	aDone, bDone := a.status.State.IsTerminal(), b.status.State.IsTerminal()
	if aDone != bDone {
		return aDone
	}
	return a.status.UpdatedAt.Before(b.status.UpdatedAt)
}

func (r *AssessmentStatusRepo) expired(e *entry) bool {
	return !e.expiresAt.IsZero() && r.now().After(e.expiresAt)
}
