package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-progress-api/internal/models"
	appErrors "github.com/noah-isme/sma-progress-api/pkg/errors"
)

// AuthConfig defines how access tokens minted by the auth provider are verified.
type AuthConfig struct {
	AccessTokenSecret string
	Issuer            string
	Leeway            time.Duration
}

// AuthService verifies bearer tokens and answers access questions. Tokens are issued
// elsewhere; this service never stores credentials.
type AuthService struct {
	logger *zap.Logger
	config AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{logger: logger, config: config}
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	if s.config.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(s.config.Leeway))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	}, opts...)
	if err != nil {
		s.logger.Debug("token rejected", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if claims.UserID == "" || claims.Role == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token is missing subject or role")
	}

	return claims, nil
}

// CanViewStudent reports whether the token holder may read a student's progress.
// Staff read any student; a student reads only their own records.
func (s *AuthService) CanViewStudent(claims *models.JWTClaims, studentID string) error {
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	switch claims.Role {
	case models.RoleAdmin, models.RoleTeacher:
		return nil
	case models.RoleStudent:
		if strings.TrimSpace(studentID) != "" && claims.SubjectStudentID() == studentID {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "not allowed to view this student")
}
