package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sma-progress-api/internal/dto"
	"github.com/noah-isme/sma-progress-api/internal/models"
	"github.com/noah-isme/sma-progress-api/internal/service"
	appErrors "github.com/noah-isme/sma-progress-api/pkg/errors"
	"github.com/noah-isme/sma-progress-api/pkg/response"
)

type progressService interface {
	ResolveSessions(ctx context.Context, classID, studentID, courseID string) (*models.SessionTimeline, error)
	ComputeMetrics(sessions []models.Session, window models.WindowMode) models.ProgressMetrics
	DefaultWindow(kind models.WindowKind) models.WindowMode
}

type timelineExporter interface {
	Enabled() bool
	Render(timeline *models.SessionTimeline, format service.ExportFormat) (*service.ExportResult, error)
}

// ProgressHandler exposes session timelines and progress metrics.
type ProgressHandler struct {
	service   progressService
	exporter  timelineExporter
	validator *validator.Validate
}

// NewProgressHandler constructs the handler. exporter may be nil.
func NewProgressHandler(service progressService, exporter timelineExporter, validate *validator.Validate) *ProgressHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &ProgressHandler{service: service, exporter: exporter, validator: validate}
}

// Sessions godoc
// @Summary Session timeline of a student in a class
// @Tags Progress
// @Produce json
// @Param classId path string true "Class ID"
// @Param studentId path string true "Student ID"
// @Param courseId query string true "Course ID"
// @Param window query string false "Metrics window" Enums(weeks, sessions)
// @Param size query int false "Window size (weeks or sessions)"
// @Success 200 {object} response.Envelope{data=dto.SessionsResponse}
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /classes/{classId}/students/{studentId}/sessions [get]
func (h *ProgressHandler) Sessions(c *gin.Context) {
	timeline, window, ok := h.resolve(c)
	if !ok {
		return
	}
	metrics := h.service.ComputeMetrics(timeline.Sessions, window)
	response.JSON(c, http.StatusOK, dto.SessionsResponse{
		ClassID:        timeline.ClassID,
		StudentID:      timeline.StudentID,
		CourseID:       timeline.CourseID,
		Sessions:       timeline.Sessions,
		CurrentIndex:   timeline.CurrentIndex,
		CurrentSession: timeline.Current(),
		LastAttended:   timeline.LastAttended,
		Metrics:        metrics,
	}, responseMeta(c))
}

// Progress godoc
// @Summary Progress metrics of a student in a class
// @Tags Progress
// @Produce json
// @Param classId path string true "Class ID"
// @Param studentId path string true "Student ID"
// @Param courseId query string true "Course ID"
// @Param window query string false "Metrics window" Enums(weeks, sessions)
// @Param size query int false "Window size (weeks or sessions)"
// @Success 200 {object} response.Envelope{data=dto.ProgressResponse}
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /classes/{classId}/students/{studentId}/progress [get]
func (h *ProgressHandler) Progress(c *gin.Context) {
	timeline, window, ok := h.resolve(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, dto.ProgressResponse{
		ClassID:   timeline.ClassID,
		StudentID: timeline.StudentID,
		CourseID:  timeline.CourseID,
		Metrics:   h.service.ComputeMetrics(timeline.Sessions, window),
	}, responseMeta(c))
}

// Export godoc
// @Summary Download a session timeline
// @Tags Progress
// @Produce text/csv
// @Produce application/pdf
// @Param classId path string true "Class ID"
// @Param studentId path string true "Student ID"
// @Param courseId query string true "Course ID"
// @Param format query string false "File format" Enums(csv, pdf)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{classId}/students/{studentId}/sessions/export [get]
func (h *ProgressHandler) Export(c *gin.Context) {
	if h.exporter == nil || !h.exporter.Enabled() {
		response.Error(c, appErrors.Clone(appErrors.ErrFeatureDisabled, "timeline export is disabled"))
		return
	}
	classID, studentID, err := enrollmentParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var query dto.ExportQuery
	if err := bindQuery(c, h.validator, &query); err != nil {
		response.Error(c, err)
		return
	}
	format := service.ExportFormat(query.Format)
	if format == "" {
		format = service.ExportFormatCSV
	}
	timeline, err := h.service.ResolveSessions(c.Request.Context(), classID, studentID, query.CourseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.exporter.Render(timeline, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Payload)
}

func (h *ProgressHandler) resolve(c *gin.Context) (*models.SessionTimeline, models.WindowMode, bool) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return nil, models.WindowMode{}, false
	}
	classID, studentID, err := enrollmentParams(c)
	if err != nil {
		response.Error(c, err)
		return nil, models.WindowMode{}, false
	}
	var query dto.TimelineQuery
	if err := bindQuery(c, h.validator, &query); err != nil {
		response.Error(c, err)
		return nil, models.WindowMode{}, false
	}
	window := h.window(query)

	timeline, err := h.service.ResolveSessions(c.Request.Context(), classID, studentID, query.CourseID)
	if err != nil {
		response.Error(c, err)
		return nil, models.WindowMode{}, false
	}
	return timeline, window, true
}

func (h *ProgressHandler) window(query dto.TimelineQuery) models.WindowMode {
	kind, ok := models.ParseWindowKind(query.Window)
	if !ok {
		kind = dto.DefaultWindowKind
	}
	window := h.service.DefaultWindow(kind)
	if query.Size > 0 {
		window.N = query.Size
	}
	return window
}

func enrollmentParams(c *gin.Context) (string, string, error) {
	classID, err := pathParam(c, "classId")
	if err != nil {
		return "", "", err
	}
	studentID, err := pathParam(c, "studentId")
	if err != nil {
		return "", "", err
	}
	return classID, studentID, nil
}
