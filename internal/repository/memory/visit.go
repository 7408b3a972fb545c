package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/clinicore/visit-api/internal/model"
	"github.com/clinicore/visit-api/internal/repository"
)

// VisitRepository is an in-memory store. A single mutex serializes the
// active-visit check with the insert, which is exactly the atomicity the
// postgres backend gets from its partial unique index.
type VisitRepository struct {
	mu     sync.RWMutex
	visits map[uuid.UUID]*model.Visit
}

func NewVisitRepository() *VisitRepository {
	return &VisitRepository{visits: make(map[uuid.UUID]*model.Visit)}
}

func (r *VisitRepository) CreateVisit(_ context.Context, visit *model.Visit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, v := range r.visits {
		if v.PractitionerRef == visit.PractitionerRef && v.Status.Active() {
			return repository.ErrPractitionerBusy
		}
	}

	r.visits[visit.ID] = visit.Clone()
	return nil
}

func (r *VisitRepository) GetVisit(_ context.Context, id uuid.UUID) (*model.Visit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	visit, ok := r.visits[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return visit.Clone(), nil
}

func (r *VisitRepository) ListVisits(_ context.Context, filter model.VisitFilter) ([]*model.Visit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var visits []*model.Visit
	for _, v := range r.visits {
		if matches(v, filter) {
			visits = append(visits, v.Clone())
		}
	}
	return visits, nil
}

func (r *VisitRepository) UpdateVisit(_ context.Context, id uuid.UUID, mutate func(*model.Visit) error) (*model.Visit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.visits[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	// Mutate a copy so a failed mutation leaves the stored record untouched.
	next := current.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}

	r.visits[id] = next
	return next.Clone(), nil
}

func matches(v *model.Visit, f model.VisitFilter) bool {
	if f.ID != nil && v.ID != *f.ID {
		return false
	}
	if f.PatientRef != nil && v.PatientRef != *f.PatientRef {
		return false
	}
	if f.PractitionerRef != nil && v.PractitionerRef != *f.PractitionerRef {
		return false
	}
	if f.Status != nil && v.Status != *f.Status {
		return false
	}
	if f.PaymentStatus != nil && v.PaymentStatus != *f.PaymentStatus {
		return false
	}
	if f.ScheduledFrom != nil && v.ScheduledDate.Before(*f.ScheduledFrom) {
		return false
	}
	if f.ScheduledTo != nil && v.ScheduledDate.After(*f.ScheduledTo) {
		return false
	}
	return true
}
