package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/labstock-api/internal/models"
	appErrors "github.com/noah-isme/labstock-api/pkg/errors"
)

func TestAuthServiceRoundTrip(t *testing.T) {
	svc := NewAuthService(AuthConfig{Secret: "secret", Issuer: "labstock", Audience: []string{"labstock-api"}}, nil)

	token, err := svc.IssueToken(models.ActorClaims{UserID: "u-1", Role: models.RoleAdmin, LabID: "lab-1"}, time.Minute)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.True(t, claims.IsAdmin())
	assert.Equal(t, "lab-1", claims.LabID)
}

func TestAuthServiceRejectsBadTokens(t *testing.T) {
	svc := NewAuthService(AuthConfig{Secret: "secret", Issuer: "labstock"}, nil)

	expired, err := svc.IssueToken(models.ActorClaims{UserID: "u-1", Role: models.RoleFaculty}, -time.Minute)
	require.NoError(t, err)
	_, err = svc.ValidateToken(expired)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	other := NewAuthService(AuthConfig{Secret: "other", Issuer: "labstock"}, nil)
	forged, err := other.IssueToken(models.ActorClaims{UserID: "u-1", Role: models.RoleAdmin}, time.Minute)
	require.NoError(t, err)
	_, err = svc.ValidateToken(forged)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	foreign := NewAuthService(AuthConfig{Secret: "secret", Issuer: "someone-else"}, nil)
	wrongIssuer, err := foreign.IssueToken(models.ActorClaims{UserID: "u-1", Role: models.RoleAdmin}, time.Minute)
	require.NoError(t, err)
	_, err = svc.ValidateToken(wrongIssuer)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	none := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.ActorClaims{})
	signed, err := none.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized, "claims without subject are rejected")
}
