package participant

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/visit-api/internal/model"
	"github.com/clinicore/visit-api/internal/repository/memory"
	apperrors "github.com/clinicore/visit-api/pkg/errors"
	"github.com/clinicore/visit-api/pkg/security"
)

func newTestService() *Service {
	return NewService(memory.NewParticipantRepository(), security.NewBcryptHasher(4), zerolog.Nop())
}

func TestRegister(t *testing.T) {
	svc := newTestService()

	p, err := svc.Register(context.Background(), &model.RegisterParticipantRequest{
		Name:           "Dr. Smith",
		Email:          "smith@example.com",
		Password:       "secret-pass",
		Role:           model.RolePractitioner,
		Specialization: "cardiology",
	})
	require.NoError(t, err)
	assert.True(t, p.IsActive)
	assert.NotEmpty(t, p.PasswordHash)
	assert.NotEqual(t, "secret-pass", p.PasswordHash)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	tests := []struct {
		name string
		req  *model.RegisterParticipantRequest
	}{
		{"unknown role", &model.RegisterParticipantRequest{
			Name: "x", Email: "x@example.com", Password: "secret-pass", Role: "admin",
		}},
		{"practitioner without specialization", &model.RegisterParticipantRequest{
			Name: "x", Email: "x@example.com", Password: "secret-pass", Role: model.RolePractitioner,
		}},
		{"patient with specialization", &model.RegisterParticipantRequest{
			Name: "x", Email: "x@example.com", Password: "secret-pass",
			Role: model.RolePatient, Specialization: "cardiology",
		}},
		{"short password", &model.RegisterParticipantRequest{
			Name: "x", Email: "x@example.com", Password: "short", Role: model.RolePatient,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.req)
			assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	req := &model.RegisterParticipantRequest{
		Name: "Alice", Email: "alice@example.com", Password: "secret-pass", Role: model.RolePatient,
	}
	_, err := svc.Register(ctx, req)
	require.NoError(t, err)

	_, err = svc.Register(ctx, req)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestResolve(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	p, err := svc.Register(ctx, &model.RegisterParticipantRequest{
		Name: "Alice", Email: "alice@example.com", Password: "secret-pass", Role: model.RolePatient,
	})
	require.NoError(t, err)

	got, err := svc.Resolve(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = svc.Resolve(ctx, uuid.New())
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	require.NoError(t, svc.Deactivate(ctx, p.ID))

	// Deactivated accounts look exactly like missing ones.
	_, err = svc.Resolve(ctx, p.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}
