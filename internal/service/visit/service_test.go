package visit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/visit-api/internal/model"
	"github.com/clinicore/visit-api/internal/repository/memory"
	"github.com/clinicore/visit-api/internal/service/participant"
	apperrors "github.com/clinicore/visit-api/pkg/errors"
	"github.com/clinicore/visit-api/pkg/security"
)

type fixture struct {
	svc          *Service
	visits       *memory.VisitRepository
	participants *memory.ParticipantRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	visits := memory.NewVisitRepository()
	participants := memory.NewParticipantRepository()
	participantSvc := participant.NewService(participants, security.NewBcryptHasher(4), zerolog.Nop())

	return &fixture{
		svc:          NewService(visits, participantSvc, nil, nil, nil, zerolog.Nop()),
		visits:       visits,
		participants: participants,
	}
}

func (f *fixture) seedParticipant(t *testing.T, name string, role model.Role) uuid.UUID {
	t.Helper()

	p := &model.Participant{
		Base:     model.Base{ID: uuid.New(), CreatedAt: time.Now(), UpdatedAt: time.Now()},
		Name:     name,
		Email:    uuid.NewString() + "@example.com",
		Role:     role,
		IsActive: true,
	}
	if role == model.RolePractitioner {
		p.Specialization = "general"
	}
	require.NoError(t, f.participants.Create(context.Background(), p))
	return p.ID
}

func (f *fixture) createVisit(t *testing.T, patient, practitioner uuid.UUID) *model.Visit {
	t.Helper()

	visit, err := f.svc.Create(context.Background(), &model.CreateVisitRequest{
		PatientRef:      patient,
		PractitionerRef: practitioner,
		ScheduledDate:   time.Now().Add(24 * time.Hour),
		ChiefComplaint:  "headache",
	})
	require.NoError(t, err)
	return visit
}

func TestCreateVisit(t *testing.T) {
	f := newFixture(t)
	patient := f.seedParticipant(t, "Alice", model.RolePatient)
	practitioner := f.seedParticipant(t, "Dr. Smith", model.RolePractitioner)

	visit := f.createVisit(t, patient, practitioner)

	assert.Equal(t, model.VisitStatusScheduled, visit.Status)
	assert.Equal(t, model.PaymentStatusPending, visit.PaymentStatus)
	assert.Equal(t, patient, visit.PatientRef)
	assert.Equal(t, practitioner, visit.PractitionerRef)
	assert.Empty(t, visit.Treatments)
	assert.True(t, visit.TotalAmount.IsZero())
	assert.Nil(t, visit.StartTime)
	assert.Nil(t, visit.EndTime)
}

func TestCreateVisitPastDate(t *testing.T) {
	f := newFixture(t)
	patient := f.seedParticipant(t, "Alice", model.RolePatient)
	practitioner := f.seedParticipant(t, "Dr. Smith", model.RolePractitioner)

	_, err := f.svc.Create(context.Background(), &model.CreateVisitRequest{
		PatientRef:      patient,
		PractitionerRef: practitioner,
		ScheduledDate:   time.Now().Add(-time.Hour),
	})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestCreateVisitUnknownParticipants(t *testing.T) {
	f := newFixture(t)
	patient := f.seedParticipant(t, "Alice", model.RolePatient)
	practitioner := f.seedParticipant(t, "Dr. Smith", model.RolePractitioner)

	tests := []struct {
		name         string
		patient      uuid.UUID
		practitioner uuid.UUID
	}{
		{"missing patient", uuid.New(), practitioner},
		{"missing practitioner", patient, uuid.New()},
		{"patient in practitioner slot", patient, patient},
		{"practitioner in patient slot", practitioner, practitioner},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), &model.CreateVisitRequest{
				PatientRef:      tt.patient,
				PractitionerRef: tt.practitioner,
				ScheduledDate:   time.Now().Add(time.Hour),
			})
			assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
		})
	}
}

func TestCreateVisitDeactivatedPatient(t *testing.T) {
	f := newFixture(t)
	patient := f.seedParticipant(t, "Alice", model.RolePatient)
	practitioner := f.seedParticipant(t, "Dr. Smith", model.RolePractitioner)

	p, err := f.participants.Get(context.Background(), patient)
	require.NoError(t, err)
	p.IsActive = false
	require.NoError(t, f.participants.Update(context.Background(), p))

	_, err = f.svc.Create(context.Background(), &model.CreateVisitRequest{
		PatientRef:      patient,
		PractitionerRef: practitioner,
		ScheduledDate:   time.Now().Add(time.Hour),
	})
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestCreateVisitPractitionerBusy(t *testing.T) {
	f := newFixture(t)
	patient := f.seedParticipant(t, "Alice", model.RolePatient)
	practitioner := f.seedParticipant(t, "Dr. Smith", model.RolePractitioner)

	f.createVisit(t, patient, practitioner)

	_, err := f.svc.Create(context.Background(), &model.CreateVisitRequest{
		PatientRef:      patient,
		PractitionerRef: practitioner,
		ScheduledDate:   time.Now().Add(48 * time.Hour),
	})
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestCreateVisitAllowedAfterTerminal(t *testing.T) {
	f := newFixture(t)
	patient := f.seedParticipant(t, "Alice", model.RolePatient)
	practitioner := f.seedParticipant(t, "Dr. Smith", model.RolePractitioner)

	first := f.createVisit(t, patient, practitioner)
	_, err := f.svc.Cancel(context.Background(), first.ID)
	require.NoError(t, err)

	// A cancelled visit no longer occupies the practitioner.
	f.createVisit(t, patient, practitioner)
}

func TestCreateVisitConcurrent(t *testing.T) {
	f := newFixture(t)
	patient := f.seedParticipant(t, "Alice", model.RolePatient)
	practitioner := f.seedParticipant(t, "Dr. Smith", model.RolePractitioner)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(context.Background(), &model.CreateVisitRequest{
				PatientRef:      patient,
				PractitionerRef: practitioner,
				ScheduledDate:   time.Now().Add(time.Hour),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case apperrors.IsKind(err, apperrors.KindConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created, "exactly one creation may win")
	assert.Equal(t, workers-1, conflicts)
}

func TestTransitions(t *testing.T) {
	f := newFixture(t)
	patient := f.seedParticipant(t, "Alice", model.RolePatient)
	ctx := context.Background()

	t.Run("start then complete", func(t *testing.T) {
		visit := f.createVisit(t, patient, f.seedParticipant(t, "Dr. A", model.RolePractitioner))

		started, err := f.svc.Start(ctx, visit.ID)
		require.NoError(t, err)
		assert.Equal(t, model.VisitStatusInProgress, started.Status)
		require.NotNil(t, started.StartTime)

		completed, err := f.svc.Complete(ctx, visit.ID)
		require.NoError(t, err)
		assert.Equal(t, model.VisitStatusCompleted, completed.Status)
		require.NotNil(t, completed.EndTime)
		require.NotNil(t, completed.DurationMinutes())
	})

	t.Run("complete directly from scheduled", func(t *testing.T) {
		visit := f.createVisit(t, patient, f.seedParticipant(t, "Dr. B", model.RolePractitioner))

		completed, err := f.svc.Complete(ctx, visit.ID)
		require.NoError(t, err)
		assert.Equal(t, model.VisitStatusCompleted, completed.Status)
		assert.Nil(t, completed.StartTime)
		assert.Nil(t, completed.DurationMinutes())
	})

	t.Run("cancel from scheduled", func(t *testing.T) {
		visit := f.createVisit(t, patient, f.seedParticipant(t, "Dr. C", model.RolePractitioner))

		cancelled, err := f.svc.Cancel(ctx, visit.ID)
		require.NoError(t, err)
		assert.Equal(t, model.VisitStatusCancelled, cancelled.Status)
	})

	t.Run("cancel from in_progress", func(t *testing.T) {
		visit := f.createVisit(t, patient, f.seedParticipant(t, "Dr. D", model.RolePractitioner))
		_, err := f.svc.Start(ctx, visit.ID)
		require.NoError(t, err)

		cancelled, err := f.svc.Cancel(ctx, visit.ID)
		require.NoError(t, err)
		assert.Equal(t, model.VisitStatusCancelled, cancelled.Status)
	})

	t.Run("terminal states reject everything", func(t *testing.T) {
		visit := f.createVisit(t, patient, f.seedParticipant(t, "Dr. E", model.RolePractitioner))
		_, err := f.svc.Complete(ctx, visit.ID)
		require.NoError(t, err)

		for _, op := range []func(context.Context, uuid.UUID) (*model.Visit, error){
			f.svc.Start, f.svc.Complete, f.svc.Cancel,
		} {
			_, err := op(ctx, visit.ID)
			assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidTransition))
		}
	})

	t.Run("start twice fails", func(t *testing.T) {
		visit := f.createVisit(t, patient, f.seedParticipant(t, "Dr. F", model.RolePractitioner))
		_, err := f.svc.Start(ctx, visit.ID)
		require.NoError(t, err)

		_, err = f.svc.Start(ctx, visit.ID)
		assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidTransition))
	})

	t.Run("missing visit", func(t *testing.T) {
		_, err := f.svc.Start(ctx, uuid.New())
		assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	})
}

func TestFailedTransitionLeavesVisitUnchanged(t *testing.T) {
	f := newFixture(t)
	patient := f.seedParticipant(t, "Alice", model.RolePatient)
	practitioner := f.seedParticipant(t, "Dr. Smith", model.RolePractitioner)
	ctx := context.Background()

	visit := f.createVisit(t, patient, practitioner)
	_, err := f.svc.Cancel(ctx, visit.ID)
	require.NoError(t, err)

	_, err = f.svc.Start(ctx, visit.ID)
	require.Error(t, err)

	got, err := f.svc.Get(ctx, visit.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VisitStatusCancelled, got.Status)
	assert.Nil(t, got.StartTime)
}

func TestUpdateClinicalFields(t *testing.T) {
	f := newFixture(t)
	patient := f.seedParticipant(t, "Alice", model.RolePatient)
	practitioner := f.seedParticipant(t, "Dr. Smith", model.RolePractitioner)
	ctx := context.Background()

	visit := f.createVisit(t, patient, practitioner)

	diagnosis := "migraine"
	notes := "follow up in two weeks"
	updated, err := f.svc.UpdateClinicalFields(ctx, visit.ID, &model.ClinicalFieldsPatch{
		Diagnosis: &diagnosis,
		Notes:     &notes,
	})
	require.NoError(t, err)
	assert.Equal(t, "migraine", updated.Diagnosis)
	assert.Equal(t, "follow up in two weeks", updated.Notes)
	assert.Equal(t, "headache", updated.ChiefComplaint, "nil field must be left as is")

	empty := ""
	updated, err = f.svc.UpdateClinicalFields(ctx, visit.ID, &model.ClinicalFieldsPatch{
		Notes: &empty,
	})
	require.NoError(t, err)
	assert.Equal(t, "", updated.Notes, "explicit empty string clears the field")
	assert.Equal(t, "migraine", updated.Diagnosis)
}

func TestUpdateClinicalFieldsLimits(t *testing.T) {
	f := newFixture(t)
	patient := f.seedParticipant(t, "Alice", model.RolePatient)
	practitioner := f.seedParticipant(t, "Dr. Smith", model.RolePractitioner)

	visit := f.createVisit(t, patient, practitioner)

	long := make([]byte, MaxDiagnosisLen+1)
	for i := range long {
		long[i] = 'x'
	}
	bad := string(long)

	_, err := f.svc.UpdateClinicalFields(context.Background(), visit.ID, &model.ClinicalFieldsPatch{
		Diagnosis: &bad,
	})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestUpdateClinicalFieldsTerminal(t *testing.T) {
	f := newFixture(t)
	patient := f.seedParticipant(t, "Alice", model.RolePatient)
	practitioner := f.seedParticipant(t, "Dr. Smith", model.RolePractitioner)
	ctx := context.Background()

	visit := f.createVisit(t, patient, practitioner)
	_, err := f.svc.Complete(ctx, visit.ID)
	require.NoError(t, err)

	diagnosis := "late"
	_, err = f.svc.UpdateClinicalFields(ctx, visit.ID, &model.ClinicalFieldsPatch{Diagnosis: &diagnosis})
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidTransition))
}

func TestUpdatePaymentStatus(t *testing.T) {
	f := newFixture(t)
	patient := f.seedParticipant(t, "Alice", model.RolePatient)
	practitioner := f.seedParticipant(t, "Dr. Smith", model.RolePractitioner)
	ctx := context.Background()

	visit := f.createVisit(t, patient, practitioner)
	_, err := f.svc.Complete(ctx, visit.ID)
	require.NoError(t, err)

	// Payment settles independently of the lifecycle; completed is fine.
	updated, err := f.svc.UpdatePaymentStatus(ctx, visit.ID, model.PaymentStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, updated.PaymentStatus)
	assert.Equal(t, model.VisitStatusCompleted, updated.Status)

	_, err = f.svc.UpdatePaymentStatus(ctx, visit.ID, model.PaymentStatus("settled"))
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	_, err = f.svc.UpdatePaymentStatus(ctx, uuid.New(), model.PaymentStatusPaid)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}
