package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/visit-api/internal/model"
	"github.com/clinicore/visit-api/internal/repository"
)

func newVisit(practitioner uuid.UUID, status model.VisitStatus) *model.Visit {
	now := time.Now()
	return &model.Visit{
		ID:              uuid.New(),
		PatientRef:      uuid.New(),
		PractitionerRef: practitioner,
		Status:          status,
		ScheduledDate:   now.Add(time.Hour),
		Treatments:      []model.Treatment{},
		TotalAmount:     decimal.Zero,
		PaymentStatus:   model.PaymentStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestCreateVisitEnforcesOneActivePerPractitioner(t *testing.T) {
	repo := NewVisitRepository()
	practitioner := uuid.New()
	ctx := context.Background()

	require.NoError(t, repo.CreateVisit(ctx, newVisit(practitioner, model.VisitStatusScheduled)))

	err := repo.CreateVisit(ctx, newVisit(practitioner, model.VisitStatusScheduled))
	assert.ErrorIs(t, err, repository.ErrPractitionerBusy)

	// Terminal visits do not occupy the practitioner.
	require.NoError(t, repo.CreateVisit(ctx, newVisit(uuid.New(), model.VisitStatusCompleted)))
}

func TestCreateVisitConcurrentSingleWinner(t *testing.T) {
	repo := NewVisitRepository()
	practitioner := uuid.New()
	ctx := context.Background()

	const workers = 32
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.CreateVisit(ctx, newVisit(practitioner, model.VisitStatusScheduled))
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			} else if !errors.Is(err, repository.ErrPractitionerBusy) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
}

func TestUpdateVisitFailedMutationRollsBack(t *testing.T) {
	repo := NewVisitRepository()
	ctx := context.Background()

	visit := newVisit(uuid.New(), model.VisitStatusScheduled)
	require.NoError(t, repo.CreateVisit(ctx, visit))

	boom := errors.New("boom")
	_, err := repo.UpdateVisit(ctx, visit.ID, func(v *model.Visit) error {
		v.Status = model.VisitStatusCancelled
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := repo.GetVisit(ctx, visit.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VisitStatusScheduled, got.Status)
}

func TestUpdateVisitMissing(t *testing.T) {
	repo := NewVisitRepository()

	_, err := repo.UpdateVisit(context.Background(), uuid.New(), func(*model.Visit) error { return nil })
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetVisitReturnsDetachedCopy(t *testing.T) {
	repo := NewVisitRepository()
	ctx := context.Background()

	visit := newVisit(uuid.New(), model.VisitStatusScheduled)
	visit.Treatments = []model.Treatment{{ID: uuid.New(), Name: "exam"}}
	require.NoError(t, repo.CreateVisit(ctx, visit))

	first, err := repo.GetVisit(ctx, visit.ID)
	require.NoError(t, err)
	first.Treatments[0].Name = "changed"
	first.Status = model.VisitStatusCancelled

	second, err := repo.GetVisit(ctx, visit.ID)
	require.NoError(t, err)
	assert.Equal(t, "exam", second.Treatments[0].Name)
	assert.Equal(t, model.VisitStatusScheduled, second.Status)
}

func TestListVisitsFilters(t *testing.T) {
	repo := NewVisitRepository()
	ctx := context.Background()

	practitioner := uuid.New()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	early := newVisit(practitioner, model.VisitStatusCompleted)
	early.ScheduledDate = base
	late := newVisit(uuid.New(), model.VisitStatusCancelled)
	late.ScheduledDate = base.Add(48 * time.Hour)
	require.NoError(t, repo.CreateVisit(ctx, early))
	require.NoError(t, repo.CreateVisit(ctx, late))

	status := model.VisitStatusCompleted
	got, err := repo.ListVisits(ctx, model.VisitFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, early.ID, got[0].ID)

	got, err = repo.ListVisits(ctx, model.VisitFilter{PractitionerRef: &practitioner})
	require.NoError(t, err)
	require.Len(t, got, 1)

	to := base.Add(time.Hour)
	got, err = repo.ListVisits(ctx, model.VisitFilter{ScheduledTo: &to})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, early.ID, got[0].ID)

	got, err = repo.ListVisits(ctx, model.VisitFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
