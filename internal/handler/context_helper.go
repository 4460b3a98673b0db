package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sma-progress-api/internal/middleware"
	appErrors "github.com/noah-isme/sma-progress-api/pkg/errors"
)

// bindQuery binds query parameters into dest and validates its `validate` tags.
func bindQuery(c *gin.Context, validate *validator.Validate, dest interface{}) error {
	if err := c.ShouldBindQuery(dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters")
	}
	if err := validate.Struct(dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok || len(fieldErrs) == 0 {
		return "invalid query parameters"
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, lowerFirst(fe.Field())+" failed "+fe.Tag())
	}
	return strings.Join(parts, "; ")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func pathParam(c *gin.Context, name string) (string, error) {
	value := strings.TrimSpace(c.Param(name))
	if value == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, name+" is required")
	}
	return value, nil
}

func responseMeta(c *gin.Context) map[string]interface{} {
	return middleware.ExtractMeta(c)
}
