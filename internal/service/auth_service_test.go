package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-progress-api/internal/models"
	appErrors "github.com/noah-isme/sma-progress-api/pkg/errors"
)

func signTestToken(t *testing.T, secret string, method jwt.SigningMethod, claims *models.JWTClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func testClaims(role models.UserRole, userID string, ttl time.Duration) *models.JWTClaims {
	now := time.Now()
	return &models.JWTClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "sma-auth",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func TestAuthServiceValidateToken(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret", Issuer: "sma-auth"})
	token := signTestToken(t, "secret", jwt.SigningMethodHS256, testClaims(models.RoleStudent, "student-1", time.Hour))

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "student-1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestAuthServiceValidateTokenRejects(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret", Issuer: "sma-auth"})

	cases := map[string]string{
		"wrong secret": signTestToken(t, "other", jwt.SigningMethodHS256, testClaims(models.RoleAdmin, "admin-1", time.Hour)),
		"expired":      signTestToken(t, "secret", jwt.SigningMethodHS256, testClaims(models.RoleAdmin, "admin-1", -time.Minute)),
		"wrong alg":    signTestToken(t, "secret", jwt.SigningMethodHS512, testClaims(models.RoleAdmin, "admin-1", time.Hour)),
		"no role":      signTestToken(t, "secret", jwt.SigningMethodHS256, testClaims("", "admin-1", time.Hour)),
		"garbage":      "not-a-token",
	}
	for name, token := range cases {
		token := token
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			require.Error(t, err)
			assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
		})
	}
}

func TestAuthServiceValidateTokenIssuer(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret", Issuer: "expected"})
	token := signTestToken(t, "secret", jwt.SigningMethodHS256, testClaims(models.RoleAdmin, "admin-1", time.Hour))
	_, err := svc.ValidateToken(token)
	require.Error(t, err)
}

func TestAuthServiceCanViewStudent(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{})

	require.NoError(t, svc.CanViewStudent(&models.JWTClaims{UserID: "t-1", Role: models.RoleTeacher}, "student-9"))
	require.NoError(t, svc.CanViewStudent(&models.JWTClaims{UserID: "a-1", Role: models.RoleAdmin}, "student-9"))
	require.NoError(t, svc.CanViewStudent(&models.JWTClaims{UserID: "student-9", Role: models.RoleStudent}, "student-9"))
	require.NoError(t, svc.CanViewStudent(&models.JWTClaims{UserID: "user-3", StudentID: "student-9", Role: models.RoleStudent}, "student-9"))

	err := svc.CanViewStudent(&models.JWTClaims{UserID: "student-1", Role: models.RoleStudent}, "student-9")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	assert.ErrorIs(t, svc.CanViewStudent(nil, "student-9"), appErrors.ErrUnauthorized)
}
