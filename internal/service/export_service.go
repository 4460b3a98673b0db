package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-progress-api/internal/models"
	appErrors "github.com/noah-isme/sma-progress-api/pkg/errors"
	"github.com/noah-isme/sma-progress-api/pkg/export"
)

// ExportFormat enumerates supported timeline export formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult is a rendered timeline ready to be sent as an attachment.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

type tableRenderer interface {
	Render(table export.Table) ([]byte, error)
}

// ExportService renders resolved session timelines into downloadable files.
type ExportService struct {
	csv     tableRenderer
	pdf     tableRenderer
	enabled bool
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to pkg/export.
func NewExportService(enabled bool, logger *zap.Logger, csv, pdf tableRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		csv:     csv,
		pdf:     pdf,
		enabled: enabled,
		logger:  logger,
		now:     time.Now,
	}
}

// Enabled reports whether exports are served.
func (s *ExportService) Enabled() bool {
	return s != nil && s.enabled
}

// Render turns a timeline into the requested format.
func (s *ExportService) Render(timeline *models.SessionTimeline, format ExportFormat) (*ExportResult, error) {
	if !s.Enabled() {
		return nil, appErrors.Clone(appErrors.ErrFeatureDisabled, "timeline export is disabled")
	}
	if timeline == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "timeline is required")
	}
	table := TimelineTable(timeline)

	var (
		payload     []byte
		contentType string
		err         error
	)
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(table)
		contentType = "text/csv; charset=utf-8"
	case ExportFormatPDF:
		payload, err = s.pdf.Render(table)
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", format))
	}
	if err != nil {
		s.logger.Error("render timeline export", zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	return &ExportResult{
		Filename:    s.buildFilename(timeline, format),
		ContentType: contentType,
		Payload:     payload,
	}, nil
}

// TimelineTable flattens a timeline into export rows, one per session.
func TimelineTable(timeline *models.SessionTimeline) export.Table {
	table := export.Table{
		Title:   fmt.Sprintf("Session timeline %s / %s", timeline.ClassID, timeline.StudentID),
		Headers: []string{"Session", "Date", "Topic", "Attendance", "Assignments", "Completed", "Best Score", "Milestone"},
		Rows:    make([][]string, 0, len(timeline.Sessions)),
	}
	for i, session := range timeline.Sessions {
		number := strconv.Itoa(session.SessionNumber)
		if i == timeline.CurrentIndex {
			number += " *"
		}
		table.Rows = append(table.Rows, []string{
			number,
			session.Meeting.Date.UTC().Format("2006-01-02"),
			derefString(session.CoveredTopic),
			attendanceLabel(session.Attendance),
			assignmentSummary(session.Assignments),
			yesNo(session.IsCompleted),
			bestScoreLabel(session.Assignments),
			yesNo(session.IsMilestone),
		})
	}
	return table
}

func (s *ExportService) buildFilename(timeline *models.SessionTimeline, format ExportFormat) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("sessions_%s_%s_%s.%s", sanitizeFilename(timeline.ClassID), sanitizeFilename(timeline.StudentID), timestamp, format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_", "\"", "")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func derefString(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func attendanceLabel(signal *models.AttendanceSignal) string {
	if signal == nil {
		return string(models.AttendanceStatusNotMarked)
	}
	return string(signal.Status)
}

func assignmentSummary(items []models.ClassifiedAssignment) string {
	if len(items) == 0 {
		return "-"
	}
	var completed, overdue int
	for _, item := range items {
		if item.Completed {
			completed++
		}
		if item.Overdue {
			overdue++
		}
	}
	summary := fmt.Sprintf("%d/%d done", completed, len(items))
	if overdue > 0 {
		summary += fmt.Sprintf(", %d overdue", overdue)
	}
	return summary
}

func bestScoreLabel(items []models.ClassifiedAssignment) string {
	var best *float64
	for _, item := range items {
		if item.Score == nil {
			continue
		}
		if best == nil || *item.Score > *best {
			score := *item.Score
			best = &score
		}
	}
	if best == nil {
		return ""
	}
	return strconv.FormatFloat(*best, 'f', -1, 64)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
