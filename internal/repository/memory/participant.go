package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/clinicore/visit-api/internal/model"
	"github.com/clinicore/visit-api/internal/repository"
)

type ParticipantRepository struct {
	mu           sync.RWMutex
	participants map[uuid.UUID]*model.Participant
	byEmail      map[string]uuid.UUID
}

func NewParticipantRepository() *ParticipantRepository {
	return &ParticipantRepository{
		participants: make(map[uuid.UUID]*model.Participant),
		byEmail:      make(map[string]uuid.UUID),
	}
}

func (r *ParticipantRepository) Create(_ context.Context, p *model.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[p.Email]; ok {
		return repository.ErrEmailTaken
	}

	clone := *p
	r.participants[p.ID] = &clone
	r.byEmail[p.Email] = p.ID
	return nil
}

func (r *ParticipantRepository) Get(_ context.Context, id uuid.UUID) (*model.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.participants[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *ParticipantRepository) GetByEmail(_ context.Context, email string) (*model.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *r.participants[id]
	return &clone, nil
}

func (r *ParticipantRepository) Update(_ context.Context, p *model.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.participants[p.ID]; !ok {
		return repository.ErrNotFound
	}
	clone := *p
	r.participants[p.ID] = &clone
	return nil
}

func (r *ParticipantRepository) List(_ context.Context) ([]*model.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Participant, 0, len(r.participants))
	for _, p := range r.participants {
		clone := *p
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
