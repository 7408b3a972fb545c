package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/visit-api/internal/model"
	"github.com/clinicore/visit-api/internal/repository/memory"
	"github.com/clinicore/visit-api/pkg/auth"
	apperrors "github.com/clinicore/visit-api/pkg/errors"
	"github.com/clinicore/visit-api/pkg/security"
)

func newTestService(t *testing.T) (*Service, *memory.ParticipantRepository, *model.Participant) {
	t.Helper()

	repo := memory.NewParticipantRepository()
	hasher := security.NewBcryptHasher(4)
	jwtSvc := auth.NewJWTService(auth.Config{
		Secret:             "test-secret",
		RefreshSecret:      "test-refresh-secret",
		ExpiryHours:        1,
		RefreshExpiryHours: 24,
	})
	svc := NewService(repo, jwtSvc, hasher, zerolog.Nop())

	hash, err := hasher.Hash("correct-horse")
	require.NoError(t, err)
	p := &model.Participant{
		Base:         model.Base{ID: uuid.New(), CreatedAt: time.Now(), UpdatedAt: time.Now()},
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: hash,
		Role:         model.RolePatient,
		IsActive:     true,
	}
	require.NoError(t, repo.Create(context.Background(), p))

	return svc, repo, p
}

func TestLogin(t *testing.T) {
	svc, _, _ := newTestService(t)

	tokens, err := svc.Login(context.Background(), "alice@example.com", "correct-horse")
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, int64(3600), tokens.ExpiresIn)
}

func TestLoginBadCredentials(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, "alice@example.com", "wrong")
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))

	_, err = svc.Login(ctx, "nobody@example.com", "correct-horse")
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))
}

func TestLoginDeactivated(t *testing.T) {
	svc, repo, p := newTestService(t)
	ctx := context.Background()

	p.IsActive = false
	require.NoError(t, repo.Update(ctx, p))

	_, err := svc.Login(ctx, "alice@example.com", "correct-horse")
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))
}

func TestRefresh(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tokens, err := svc.Login(ctx, "alice@example.com", "correct-horse")
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	// An access token is signed with a different secret and must not refresh.
	_, err = svc.Refresh(ctx, tokens.AccessToken)
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))

	_, err = svc.Refresh(ctx, "garbage")
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))
}
