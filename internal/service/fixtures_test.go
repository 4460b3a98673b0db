package service

import (
	"time"

	"github.com/noah-isme/sma-progress-api/internal/models"
)

var baseDay = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return baseDay.AddDate(0, 0, n)
}

func strPtr(v string) *string { return &v }

func floatPtr(v float64) *float64 { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func meeting(id string, offset int) models.Meeting {
	return models.Meeting{ID: id, ClassID: "class-1", Date: day(offset)}
}

func present(meetingID string, source models.AttendanceSource) models.AttendanceSignal {
	return models.AttendanceSignal{MeetingID: meetingID, Status: models.AttendanceStatusPresent, Source: source}
}

func absent(meetingID string, source models.AttendanceSource) models.AttendanceSignal {
	return models.AttendanceSignal{MeetingID: meetingID, Status: models.AttendanceStatusAbsent, Source: source}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
