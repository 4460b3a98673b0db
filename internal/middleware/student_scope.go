package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-progress-api/internal/models"
	appErrors "github.com/noah-isme/sma-progress-api/pkg/errors"
	"github.com/noah-isme/sma-progress-api/pkg/response"
)

type studentAccessChecker interface {
	CanViewStudent(claims *models.JWTClaims, studentID string) error
}

// StudentScope restricts a route to callers allowed to read the :studentId in its path.
// It must run after JWT.
func StudentScope(checker studentAccessChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFromContext(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if err := checker.CanViewStudent(claims, c.Param("studentId")); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}
