package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/visit-api/internal/model"
)

func testParticipant() *model.Participant {
	return &model.Participant{
		Base:  model.Base{ID: uuid.New()},
		Name:  "Alice",
		Email: "alice@example.com",
		Role:  model.RolePatient,
	}
}

func newTestJWT() JWTService {
	return NewJWTService(Config{
		Secret:             "access-secret",
		RefreshSecret:      "refresh-secret",
		ExpiryHours:        1,
		RefreshExpiryHours: 24,
	})
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestJWT()
	p := testParticipant()

	token, err := svc.GenerateAccessToken(p)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, p.ID, claims.ParticipantID)
	assert.Equal(t, p.Email, claims.Email)
	assert.Equal(t, model.RolePatient, claims.Role)
}

func TestRefreshTokenUsesSeparateSecret(t *testing.T) {
	svc := newTestJWT()
	p := testParticipant()

	refresh, err := svc.GenerateRefreshToken(p)
	require.NoError(t, err)

	_, err = svc.ValidateToken(refresh)
	assert.Error(t, err, "refresh token must not validate as access token")

	claims, err := svc.ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, p.ID, claims.ParticipantID)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	p := testParticipant()

	token, err := newTestJWT().GenerateAccessToken(p)
	require.NoError(t, err)

	other := NewJWTService(Config{Secret: "different", RefreshSecret: "different", ExpiryHours: 1, RefreshExpiryHours: 1})
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := newTestJWT()

	_, err := svc.ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestAccessTokenTTL(t *testing.T) {
	assert.Equal(t, time.Hour, newTestJWT().AccessTokenTTL())
}
