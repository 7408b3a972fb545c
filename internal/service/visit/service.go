package visit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/clinicore/visit-api/internal/email"
	"github.com/clinicore/visit-api/internal/model"
	"github.com/clinicore/visit-api/internal/repository"
	"github.com/clinicore/visit-api/internal/service/participant"
	apperrors "github.com/clinicore/visit-api/pkg/errors"
	"github.com/clinicore/visit-api/pkg/messaging"
	"github.com/clinicore/visit-api/pkg/metrics"
)

// Free-text field limits.
const (
	MaxChiefComplaintLen = 1000
	MaxDiagnosisLen      = 2000
	MaxNotesLen          = 5000
)

// Service owns the visit lifecycle: creation and the status state machine.
// The legal transitions are scheduled -> in_progress -> completed, with
// cancelled reachable from either non-terminal state.
type Service struct {
	repo         repository.VisitRepository
	participants *participant.Service
	broker       messaging.Broker
	emailSvc     email.Service
	metrics      *metrics.Metrics
	logger       zerolog.Logger
}

func NewService(
	repo repository.VisitRepository,
	participants *participant.Service,
	broker messaging.Broker,
	emailSvc email.Service,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		repo:         repo,
		participants: participants,
		broker:       broker,
		emailSvc:     emailSvc,
		metrics:      m,
		logger:       logger,
	}
}

func (s *Service) Create(ctx context.Context, req *model.CreateVisitRequest) (*model.Visit, error) {
	if req.ScheduledDate.Before(time.Now()) {
		return nil, apperrors.Validation("scheduled date cannot be in the past")
	}
	if len(req.ChiefComplaint) > MaxChiefComplaintLen {
		return nil, apperrors.Validation("chief complaint exceeds %d characters", MaxChiefComplaintLen)
	}

	patient, err := s.participants.Resolve(ctx, req.PatientRef)
	if err != nil {
		return nil, err
	}
	if patient.Role != model.RolePatient {
		return nil, apperrors.NotFound("patient")
	}

	practitioner, err := s.participants.Resolve(ctx, req.PractitionerRef)
	if err != nil {
		return nil, err
	}
	if practitioner.Role != model.RolePractitioner {
		return nil, apperrors.NotFound("practitioner")
	}

	now := time.Now()
	visit := &model.Visit{
		ID:              uuid.New(),
		PatientRef:      patient.ID,
		PractitionerRef: practitioner.ID,
		Status:          model.VisitStatusScheduled,
		ScheduledDate:   req.ScheduledDate,
		ChiefComplaint:  req.ChiefComplaint,
		Treatments:      []model.Treatment{},
		TotalAmount:     decimal.Zero,
		PaymentStatus:   model.PaymentStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	// The store enforces the one-active-visit-per-practitioner rule
	// atomically; no pre-check here, so there is no race window.
	if err := s.repo.CreateVisit(ctx, visit); err != nil {
		if errors.Is(err, repository.ErrPractitionerBusy) {
			if s.metrics != nil {
				s.metrics.ActiveVisitConflicts.Inc()
			}
			return nil, apperrors.Conflict("practitioner already has an active visit")
		}
		return nil, apperrors.Internal(err)
	}

	if s.metrics != nil {
		s.metrics.VisitsCreated.Inc()
	}
	s.publish(ctx, messaging.ChannelVisitCreated, visit)

	s.logger.Info().
		Str("visit_id", visit.ID.String()).
		Str("practitioner_id", visit.PractitionerRef.String()).
		Msg("visit created")

	return visit, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	visit, err := s.repo.GetVisit(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("visit")
		}
		return nil, apperrors.Internal(err)
	}
	return visit, nil
}

func (s *Service) List(ctx context.Context, filter model.VisitFilter) ([]*model.Visit, error) {
	visits, err := s.repo.ListVisits(ctx, filter)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return visits, nil
}

// Start moves a scheduled visit to in_progress and records the start time.
func (s *Service) Start(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	visit, err := s.transition(ctx, id, model.VisitStatusInProgress, func(v *model.Visit, now time.Time) {
		v.StartTime = &now
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, messaging.ChannelVisitStarted, visit)
	return visit, nil
}

// Complete closes the visit and records the end time. Legal from scheduled
// or in_progress.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	visit, err := s.transition(ctx, id, model.VisitStatusCompleted, func(v *model.Visit, now time.Time) {
		v.EndTime = &now
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, messaging.ChannelVisitCompleted, visit)
	s.sendReceipt(visit)
	return visit, nil
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	visit, err := s.transition(ctx, id, model.VisitStatusCancelled, nil)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, messaging.ChannelVisitCancelled, visit)
	return visit, nil
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, next model.VisitStatus, apply func(*model.Visit, time.Time)) (*model.Visit, error) {
	var from model.VisitStatus

	visit, err := s.repo.UpdateVisit(ctx, id, func(v *model.Visit) error {
		from = v.Status
		if !v.Status.CanTransitionTo(next) {
			return apperrors.InvalidTransition("cannot move visit from %s to %s", v.Status, next)
		}
		v.Status = next
		if apply != nil {
			apply(v, time.Now())
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("visit")
		}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperrors.Internal(err)
	}

	if s.metrics != nil {
		s.metrics.VisitTransitions.WithLabelValues(string(from), string(next)).Inc()
	}
	s.logger.Info().
		Str("visit_id", id.String()).
		Str("from", string(from)).
		Str("to", string(next)).
		Msg("visit transitioned")

	return visit, nil
}

// UpdateClinicalFields applies a partial update to the free-text clinical
// fields. A nil field is left as is; an empty string clears the field.
func (s *Service) UpdateClinicalFields(ctx context.Context, id uuid.UUID, patch *model.ClinicalFieldsPatch) (*model.Visit, error) {
	if patch.ChiefComplaint != nil && len(*patch.ChiefComplaint) > MaxChiefComplaintLen {
		return nil, apperrors.Validation("chief complaint exceeds %d characters", MaxChiefComplaintLen)
	}
	if patch.Diagnosis != nil && len(*patch.Diagnosis) > MaxDiagnosisLen {
		return nil, apperrors.Validation("diagnosis exceeds %d characters", MaxDiagnosisLen)
	}
	if patch.Notes != nil && len(*patch.Notes) > MaxNotesLen {
		return nil, apperrors.Validation("notes exceed %d characters", MaxNotesLen)
	}

	visit, err := s.repo.UpdateVisit(ctx, id, func(v *model.Visit) error {
		if v.Status.Terminal() {
			return apperrors.InvalidTransition("visit is %s and can no longer be edited", v.Status)
		}
		if patch.ChiefComplaint != nil {
			v.ChiefComplaint = *patch.ChiefComplaint
		}
		if patch.Diagnosis != nil {
			v.Diagnosis = *patch.Diagnosis
		}
		if patch.Notes != nil {
			v.Notes = *patch.Notes
		}
		return nil
	})
	if err != nil {
		return nil, s.mapUpdateErr(err)
	}
	return visit, nil
}

// UpdatePaymentStatus changes the payment state, which is independent of the
// lifecycle status: completed visits still settle their bills.
func (s *Service) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) (*model.Visit, error) {
	if !status.Valid() {
		return nil, apperrors.Validation("unknown payment status %q", status)
	}

	visit, err := s.repo.UpdateVisit(ctx, id, func(v *model.Visit) error {
		v.PaymentStatus = status
		return nil
	})
	if err != nil {
		return nil, s.mapUpdateErr(err)
	}

	s.logger.Info().
		Str("visit_id", id.String()).
		Str("payment_status", string(status)).
		Msg("payment status updated")

	return visit, nil
}

func (s *Service) mapUpdateErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("visit")
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperrors.Internal(err)
}

func (s *Service) publish(ctx context.Context, channel string, visit *model.Visit) {
	if s.broker == nil {
		return
	}
	msg := messaging.Message{Type: channel, Payload: visit}
	if err := s.broker.Publish(ctx, channel, msg); err != nil {
		s.logger.Warn().Err(err).Str("channel", channel).Msg("failed to publish visit event")
	}
}

func (s *Service) sendReceipt(visit *model.Visit) {
	if s.emailSvc == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		patient, err := s.participants.Resolve(ctx, visit.PatientRef)
		if err != nil {
			s.logger.Warn().Err(err).Str("visit_id", visit.ID.String()).Msg("receipt skipped, patient unresolved")
			return
		}
		if err := s.emailSvc.SendVisitReceipt(ctx, patient.Email, visit); err != nil {
			s.logger.Warn().Err(err).Str("visit_id", visit.ID.String()).Msg("failed to send visit receipt")
		}
	}()
}
