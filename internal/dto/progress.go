package dto

import "github.com/noah-isme/sma-progress-api/internal/models"

// Query defaults.
const (
	DefaultUpcomingLimit = 5
	DefaultWindowKind    = models.WindowKindSessions
)

// TimelineQuery captures query parameters of the sessions and progress endpoints.
type TimelineQuery struct {
	CourseID string `form:"courseId" validate:"required,max=64"`
	Window   string `form:"window" validate:"omitempty,oneof=weeks sessions"`
	Size     int    `form:"size" validate:"omitempty,min=1,max=52"`
}

// ExportQuery captures query parameters of the timeline export endpoint.
type ExportQuery struct {
	CourseID string `form:"courseId" validate:"required,max=64"`
	Format   string `form:"format" validate:"omitempty,oneof=csv pdf"`
}

// UpcomingQuery captures query parameters of the upcoming assignments endpoint.
type UpcomingQuery struct {
	Limit int `form:"limit" validate:"omitempty,min=1,max=50"`
}

// SessionsResponse is the resolved timeline together with its default metrics.
type SessionsResponse struct {
	ClassID        string                 `json:"classId"`
	StudentID      string                 `json:"studentId"`
	CourseID       string                 `json:"courseId"`
	Sessions       []models.Session       `json:"sessions"`
	CurrentIndex   int                    `json:"currentIndex"`
	CurrentSession *models.Session        `json:"currentSession"`
	LastAttended   *models.AttendedSignal `json:"lastAttended,omitempty"`
	Metrics        models.ProgressMetrics `json:"metrics"`
}

// ProgressResponse carries only the metrics of a timeline.
type ProgressResponse struct {
	ClassID   string                 `json:"classId"`
	StudentID string                 `json:"studentId"`
	CourseID  string                 `json:"courseId"`
	Metrics   models.ProgressMetrics `json:"metrics"`
}

// UpcomingAssignmentsResponse lists the nearest upcoming assignments of a student.
type UpcomingAssignmentsResponse struct {
	StudentID string              `json:"studentId"`
	Limit     int                 `json:"limit"`
	Items     []models.Assignment `json:"items"`
}
