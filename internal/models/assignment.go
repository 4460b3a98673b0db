package models

import (
	"strings"
	"time"
)

// SubmissionStatus is the upstream lifecycle of a submission.
type SubmissionStatus string

const (
	SubmissionStatusPending   SubmissionStatus = "PENDING"
	SubmissionStatusSubmitted SubmissionStatus = "SUBMITTED"
	SubmissionStatusGraded    SubmissionStatus = "GRADED"
)

// ParseSubmissionStatus maps an upstream value to a SubmissionStatus, ignoring case and
// surrounding spaces. Unknown values become PENDING.
func ParseSubmissionStatus(raw string) SubmissionStatus {
	switch SubmissionStatus(strings.ToUpper(strings.TrimSpace(raw))) {
	case SubmissionStatusSubmitted:
		return SubmissionStatusSubmitted
	case SubmissionStatusGraded:
		return SubmissionStatusGraded
	default:
		return SubmissionStatusPending
	}
}

// HasStoredFile reports whether the status implies a file was uploaded.
func (s SubmissionStatus) HasStoredFile() bool {
	return s == SubmissionStatusSubmitted || s == SubmissionStatusGraded
}

// Assignment is a student's assignment attached to a meeting.
type Assignment struct {
	AssignmentID     string           `json:"assignmentId"`
	MeetingID        string           `json:"meetingId"`
	ClassID          string           `json:"classId,omitempty"`
	Title            string           `json:"title"`
	DueAt            time.Time        `json:"dueAt"`
	SubmittedAt      *time.Time       `json:"submittedAt"`
	Score            *float64         `json:"score"`
	Feedback         *string          `json:"feedback"`
	SubmissionStatus SubmissionStatus `json:"submissionStatus"`
}

// MeetingAssignments is one group of the batch assignment response.
type MeetingAssignments struct {
	MeetingID   string       `json:"meetingId"`
	MeetingDate time.Time    `json:"meetingDate"`
	Assignments []Assignment `json:"assignments"`
}

// AssignmentState is the display classification of an assignment.
type AssignmentState string

const (
	AssignmentStateCompleted AssignmentState = "completed"
	AssignmentStateOverdue   AssignmentState = "overdue"
	AssignmentStatePending   AssignmentState = "pending"
)

// ClassifiedAssignment carries an assignment with its completion flags.
// Completed and Overdue are evaluated independently, so both can be true for
// an assignment graded without an uploaded file after its due date.
type ClassifiedAssignment struct {
	Assignment
	Completed bool            `json:"completed"`
	Overdue   bool            `json:"overdue"`
	State     AssignmentState `json:"state"`
}
