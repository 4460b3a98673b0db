package upstream

import (
	"time"

	"github.com/noah-isme/sma-progress-api/internal/models"
)

type meetingPayload struct {
	ID      string    `json:"id"`
	ClassID string    `json:"classId"`
	Date    time.Time `json:"date"`
	Slot    *string   `json:"slot"`
}

func (p meetingPayload) toModel(classID string) models.Meeting {
	if p.ClassID != "" {
		classID = p.ClassID
	}
	return models.Meeting{ID: p.ID, ClassID: classID, Date: p.Date, Slot: p.Slot}
}

type attendancePayload struct {
	MeetingID string  `json:"meetingId"`
	Status    string  `json:"status"`
	Notes     *string `json:"notes"`
	CheckedBy *string `json:"checkedBy"`
	Topic     *string `json:"topic"`
}

func (p attendancePayload) toModel(source models.AttendanceSource) models.AttendanceSignal {
	return models.AttendanceSignal{
		MeetingID: p.MeetingID,
		Status:    models.ParseAttendanceStatus(p.Status),
		Notes:     p.Notes,
		CheckedBy: p.CheckedBy,
		Topic:     p.Topic,
		Source:    source,
	}
}

func attendanceModels(payloads []attendancePayload, source models.AttendanceSource) []models.AttendanceSignal {
	out := make([]models.AttendanceSignal, 0, len(payloads))
	for _, p := range payloads {
		if p.MeetingID == "" {
			continue
		}
		out = append(out, p.toModel(source))
	}
	return out
}

type attendanceSummaryPayload struct {
	ClassSummaries []struct {
		ClassID string              `json:"classId"`
		Records []attendancePayload `json:"records"`
	} `json:"classSummaries"`
}

type courseAttendancePayload struct {
	SessionRecords []attendancePayload `json:"sessionRecords"`
}

type coveredTopicPayload struct {
	TopicTitle *string `json:"topicTitle"`
}

type assignmentPayload struct {
	AssignmentID     string     `json:"assignmentId"`
	MeetingID        string     `json:"meetingId"`
	ClassID          string     `json:"classId"`
	Title            string     `json:"title"`
	DueAt            time.Time  `json:"dueAt"`
	SubmittedAt      *time.Time `json:"submittedAt"`
	Score            *float64   `json:"score"`
	Feedback         *string    `json:"feedback"`
	SubmissionStatus string     `json:"submissionStatus"`
}

func (p assignmentPayload) toModel(meetingID string) models.Assignment {
	if p.MeetingID != "" {
		meetingID = p.MeetingID
	}
	return models.Assignment{
		AssignmentID:     p.AssignmentID,
		MeetingID:        meetingID,
		ClassID:          p.ClassID,
		Title:            p.Title,
		DueAt:            p.DueAt,
		SubmittedAt:      p.SubmittedAt,
		Score:            p.Score,
		Feedback:         p.Feedback,
		SubmissionStatus: models.ParseSubmissionStatus(p.SubmissionStatus),
	}
}

type courseAssignmentsPayload struct {
	Assignments []struct {
		MeetingID   string              `json:"meetingId"`
		MeetingDate time.Time           `json:"meetingDate"`
		Assignments []assignmentPayload `json:"assignments"`
	} `json:"assignments"`
}

type classPayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	CourseID string `json:"courseId"`
}
