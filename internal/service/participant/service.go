package participant

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/visit-api/internal/model"
	"github.com/clinicore/visit-api/internal/repository"
	apperrors "github.com/clinicore/visit-api/pkg/errors"
	"github.com/clinicore/visit-api/pkg/security"
)

// Service owns participant registration and the lookup the visit core uses
// to resolve patient/practitioner references.
type Service struct {
	repo   repository.ParticipantRepository
	hasher security.PasswordHasher
	logger zerolog.Logger
}

func NewService(repo repository.ParticipantRepository, hasher security.PasswordHasher, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		hasher: hasher,
		logger: logger,
	}
}

func (s *Service) Register(ctx context.Context, req *model.RegisterParticipantRequest) (*model.Participant, error) {
	if !req.Role.Valid() {
		return nil, apperrors.Validation("unknown role %q", req.Role)
	}
	if req.Role == model.RolePractitioner && req.Specialization == "" {
		return nil, apperrors.Validation("specialization is required for practitioners")
	}
	if req.Role != model.RolePractitioner && req.Specialization != "" {
		return nil, apperrors.Validation("specialization is only allowed for practitioners")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.Validation("invalid password: %v", err)
	}

	now := time.Now()
	p := &model.Participant{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:           req.Name,
		Email:          req.Email,
		PasswordHash:   hash,
		Role:           req.Role,
		Specialization: req.Specialization,
		IsActive:       true,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, apperrors.Conflict("email %s is already registered", req.Email)
		}
		return nil, apperrors.Internal(err)
	}

	s.logger.Info().
		Str("participant_id", p.ID.String()).
		Str("role", string(p.Role)).
		Msg("participant registered")

	return p, nil
}

// Resolve returns the participant when it exists and is active. Missing and
// deactivated participants are both reported as not found, so callers cannot
// distinguish (or act on) retired accounts.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID) (*model.Participant, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("participant")
		}
		return nil, apperrors.Internal(err)
	}
	if !p.IsActive {
		return nil, apperrors.NotFound("participant")
	}
	return p, nil
}

func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("participant")
		}
		return apperrors.Internal(err)
	}

	p.IsActive = false
	if err := s.repo.Update(ctx, p); err != nil {
		return apperrors.Internal(err)
	}

	s.logger.Info().Str("participant_id", id.String()).Msg("participant deactivated")
	return nil
}

func (s *Service) List(ctx context.Context) ([]*model.Participant, error) {
	participants, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return participants, nil
}
