package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinq/vinq-crm/internal/database/models"
)

func newTestJWT() *JWTService {
	return NewJWTService("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
}

func TestJWTService_AccessToken(t *testing.T) {
	svc := newTestJWT()
	userID := uuid.New()

	token, err := svc.GenerateAccessToken(userID, "ana@vinq.com", models.RoleManager)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "ana@vinq.com", claims.Email)
	assert.Equal(t, models.RoleManager, claims.Role)
	assert.Equal(t, TokenAccess, claims.TokenType)
	assert.Equal(t, "vinq-crm", claims.Issuer)
	assert.Equal(t, userID.String(), claims.Subject)
}

func TestJWTService_RefreshToken(t *testing.T) {
	svc := newTestJWT()
	userID := uuid.New()

	token, err := svc.GenerateRefreshToken(userID)
	require.NoError(t, err)

	claims, err := svc.ValidateRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, TokenRefresh, claims.TokenType)
	assert.Empty(t, claims.Email)
}

func TestJWTService_TokenTypesAreNotInterchangeable(t *testing.T) {
	svc := newTestJWT()
	userID := uuid.New()

	access, err := svc.GenerateAccessToken(userID, "a@vinq.com", models.RoleAgent)
	require.NoError(t, err)
	refresh, err := svc.GenerateRefreshToken(userID)
	require.NoError(t, err)

	_, err = svc.ValidateRefreshToken(access)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateAccessToken(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_SameSecretStillChecksType(t *testing.T) {
	svc := NewJWTService("shared", "shared", time.Minute, time.Hour)

	refresh, err := svc.GenerateRefreshToken(uuid.New())
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_ExpiredToken(t *testing.T) {
	svc := NewJWTService("access-secret", "refresh-secret", -time.Minute, -time.Minute)

	token, err := svc.GenerateAccessToken(uuid.New(), "a@vinq.com", models.RoleAgent)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTService_WrongSecret(t *testing.T) {
	token, err := newTestJWT().GenerateAccessToken(uuid.New(), "a@vinq.com", models.RoleAgent)
	require.NoError(t, err)

	other := NewJWTService("different", "different", time.Minute, time.Minute)
	_, err = other.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_RejectsTampering(t *testing.T) {
	svc := newTestJWT()
	token, err := svc.GenerateAccessToken(uuid.New(), "a@vinq.com", models.RoleAgent)
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = svc.ValidateAccessToken(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_RejectsOtherAlgorithms(t *testing.T) {
	svc := newTestJWT()

	claims := Claims{
		UserID:    uuid.New(),
		TokenType: TokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "vinq-crm",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_RejectsForeignIssuer(t *testing.T) {
	claims := Claims{
		UserID:    uuid.New(),
		TokenType: TokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("access-secret"))
	require.NoError(t, err)

	_, err = newTestJWT().ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_InvalidFormat(t *testing.T) {
	svc := newTestJWT()
	for _, raw := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := svc.ValidateAccessToken(raw)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", raw)
	}
}
