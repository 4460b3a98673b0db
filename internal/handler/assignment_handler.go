package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sma-progress-api/internal/dto"
	"github.com/noah-isme/sma-progress-api/internal/middleware"
	"github.com/noah-isme/sma-progress-api/internal/models"
	appErrors "github.com/noah-isme/sma-progress-api/pkg/errors"
	"github.com/noah-isme/sma-progress-api/pkg/response"
)

type upcomingService interface {
	UpcomingAssignments(ctx context.Context, studentID string, limit int) ([]models.Assignment, bool, error)
	RefreshUpcoming(ctx context.Context, studentID string) error
}

// AssignmentHandler serves cross-class assignment views.
type AssignmentHandler struct {
	service   upcomingService
	validator *validator.Validate
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(service upcomingService, validate *validator.Validate) *AssignmentHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &AssignmentHandler{service: service, validator: validate}
}

// Upcoming godoc
// @Summary Nearest upcoming assignments across all classes of a student
// @Tags Assignments
// @Produce json
// @Param studentId path string true "Student ID"
// @Param limit query int false "Maximum items (1-50, default 5)"
// @Success 200 {object} response.Envelope{data=dto.UpcomingAssignmentsResponse}
// @Failure 400 {object} response.Envelope
// @Router /students/{studentId}/assignments/upcoming [get]
func (h *AssignmentHandler) Upcoming(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	studentID, err := pathParam(c, "studentId")
	if err != nil {
		response.Error(c, err)
		return
	}
	var query dto.UpcomingQuery
	if err := bindQuery(c, h.validator, &query); err != nil {
		response.Error(c, err)
		return
	}
	limit := query.Limit
	if limit == 0 {
		limit = dto.DefaultUpcomingLimit
	}

	items, cacheHit, err := h.service.UpcomingAssignments(c.Request.Context(), studentID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	if items == nil {
		items = []models.Assignment{}
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, dto.UpcomingAssignmentsResponse{
		StudentID: studentID,
		Limit:     limit,
		Items:     items,
	}, responseMeta(c))
}

// Refresh godoc
// @Summary Drop cached upcoming assignments so the next read recomputes them
// @Tags Assignments
// @Param studentId path string true "Student ID"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /students/{studentId}/assignments/upcoming/refresh [post]
func (h *AssignmentHandler) Refresh(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	studentID, err := pathParam(c, "studentId")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.RefreshUpcoming(c.Request.Context(), studentID); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
