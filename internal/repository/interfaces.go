package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/clinicore/visit-api/internal/model"
)

// Store-level sentinels. Services translate these into AppErrors; repositories
// stay ignorant of HTTP concerns.
var (
	ErrNotFound = errors.New("record not found")

	// ErrPractitionerBusy is returned by CreateVisit when the practitioner
	// already holds a scheduled or in-progress visit. The check and the
	// insert are a single atomic step in every backend.
	ErrPractitionerBusy = errors.New("practitioner already has an active visit")

	ErrEmailTaken = errors.New("email already registered")
)

// VisitRepository is the narrow store interface the core consumes.
type VisitRepository interface {
	// CreateVisit inserts the visit, atomically rejecting it with
	// ErrPractitionerBusy if the practitioner already has an active visit.
	CreateVisit(ctx context.Context, visit *model.Visit) error
	GetVisit(ctx context.Context, id uuid.UUID) (*model.Visit, error)
	// ListVisits applies the structural filters directly against visit
	// fields and returns matching records in unspecified order.
	ListVisits(ctx context.Context, filter model.VisitFilter) ([]*model.Visit, error)
	// UpdateVisit applies mutate to the current record and persists the
	// result as one atomic unit. If mutate returns an error nothing is
	// written. The returned visit is the persisted state.
	UpdateVisit(ctx context.Context, id uuid.UUID, mutate func(*model.Visit) error) (*model.Visit, error)
}

type ParticipantRepository interface {
	Create(ctx context.Context, p *model.Participant) error
	Get(ctx context.Context, id uuid.UUID) (*model.Participant, error)
	GetByEmail(ctx context.Context, email string) (*model.Participant, error)
	Update(ctx context.Context, p *model.Participant) error
	List(ctx context.Context) ([]*model.Participant, error)
}
