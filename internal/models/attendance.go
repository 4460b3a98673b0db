package models

import (
	"strings"
	"time"
)

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent   AttendanceStatus = "PRESENT"
	AttendanceStatusAbsent    AttendanceStatus = "ABSENT"
	AttendanceStatusNotMarked AttendanceStatus = "NOT_MARKED"
)

// ParseAttendanceStatus maps the spellings used by the attendance reports onto a status.
// Anything unrecognised counts as not marked.
func ParseAttendanceStatus(raw string) AttendanceStatus {
	normalised := strings.ToUpper(strings.TrimSpace(raw))
	normalised = strings.NewReplacer(" ", "_", "-", "_").Replace(normalised)
	switch normalised {
	case "PRESENT", "P", "ATTENDED":
		return AttendanceStatusPresent
	case "ABSENT", "A":
		return AttendanceStatusAbsent
	default:
		return AttendanceStatusNotMarked
	}
}

// AttendanceSource identifies which report produced a signal.
type AttendanceSource string

const (
	// AttendanceSourcePrimary is the student's cross-class summary filtered to one class.
	AttendanceSourcePrimary AttendanceSource = "primary"
	// AttendanceSourceSecondary is the per-course session report.
	AttendanceSourceSecondary AttendanceSource = "secondary"
)

// AttendanceSignal is a single attendance observation for a meeting.
type AttendanceSignal struct {
	MeetingID string           `json:"meetingId"`
	Status    AttendanceStatus `json:"status"`
	Notes     *string          `json:"notes,omitempty"`
	CheckedBy *string          `json:"checkedBy,omitempty"`
	Topic     *string          `json:"topic,omitempty"`
	Source    AttendanceSource `json:"source,omitempty"`
}

// Present reports whether the signal marks the student as present.
func (s AttendanceSignal) Present() bool {
	return s.Status == AttendanceStatusPresent
}

// AttendedSignal couples a present signal with the date of its meeting.
type AttendedSignal struct {
	Signal      AttendanceSignal `json:"signal"`
	MeetingDate time.Time        `json:"meetingDate"`
}

// ClassAttendance groups the primary report's records by class.
type ClassAttendance struct {
	ClassID string             `json:"classId"`
	Records []AttendanceSignal `json:"records"`
}

// AttendanceReconciliation is the merged attendance view for one class.
type AttendanceReconciliation struct {
	ByMeeting    map[string]AttendanceSignal
	LastAttended *AttendedSignal
}
