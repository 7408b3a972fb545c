package auth

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/clinicore/visit-api/internal/model"
	"github.com/clinicore/visit-api/internal/repository"
	"github.com/clinicore/visit-api/pkg/auth"
	apperrors "github.com/clinicore/visit-api/pkg/errors"
	"github.com/clinicore/visit-api/pkg/security"
)

// Service handles credential checks and token issuance. The visit core never
// sees credentials; it only receives the resolved participant identity.
type Service struct {
	repo   repository.ParticipantRepository
	jwtSvc auth.JWTService
	hasher security.PasswordHasher
	logger zerolog.Logger
}

func NewService(repo repository.ParticipantRepository, jwtSvc auth.JWTService, hasher security.PasswordHasher, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		jwtSvc: jwtSvc,
		hasher: hasher,
		logger: logger,
	}
}

func (s *Service) Login(ctx context.Context, email, password string) (*model.TokenResponse, error) {
	p, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Authorization("invalid credentials")
		}
		return nil, apperrors.Internal(err)
	}

	if !p.IsActive {
		return nil, apperrors.Authorization("invalid credentials")
	}

	if err := s.hasher.Compare(p.PasswordHash, password); err != nil {
		return nil, apperrors.Authorization("invalid credentials")
	}

	tokens, err := s.issueTokens(p)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("participant_id", p.ID.String()).
		Str("role", string(p.Role)).
		Msg("participant logged in")

	return tokens, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (*model.TokenResponse, error) {
	claims, err := s.jwtSvc.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Authorization("invalid refresh token")
	}

	p, err := s.repo.Get(ctx, claims.ParticipantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Authorization("invalid refresh token")
		}
		return nil, apperrors.Internal(err)
	}
	if !p.IsActive {
		return nil, apperrors.Authorization("invalid refresh token")
	}

	return s.issueTokens(p)
}

func (s *Service) issueTokens(p *model.Participant) (*model.TokenResponse, error) {
	access, err := s.jwtSvc.GenerateAccessToken(p)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	refresh, err := s.jwtSvc.GenerateRefreshToken(p)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &model.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.jwtSvc.AccessTokenTTL().Seconds()),
	}, nil
}
