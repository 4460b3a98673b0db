package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-progress-api/internal/models"
)

type courseAssignmentFetcher interface {
	GetCourseAssignments(ctx context.Context, studentID, courseID string) ([]models.MeetingAssignments, error)
}

// ClassifyAssignment evaluates completion and lateness at now.
//
// Only a SUBMITTED/GRADED status means a file was stored; submittedAt alone does not.
// Completed: a score exists or a file was stored. Overdue: the due date has passed and
// no file was stored. State prefers completed, then overdue, then pending.
func ClassifyAssignment(assignment models.Assignment, now time.Time) models.ClassifiedAssignment {
	hasFile := assignment.SubmissionStatus.HasStoredFile()
	completed := assignment.Score != nil || hasFile
	overdue := assignment.DueAt.Before(now) && !hasFile

	state := models.AssignmentStatePending
	switch {
	case completed:
		state = models.AssignmentStateCompleted
	case overdue:
		state = models.AssignmentStateOverdue
	}
	return models.ClassifiedAssignment{
		Assignment: assignment,
		Completed:  completed,
		Overdue:    overdue,
		State:      state,
	}
}

// AssignmentLookup holds classified assignments keyed by meeting id. Order lists the
// meeting ids by ascending meeting date as returned by the batch.
type AssignmentLookup struct {
	ByMeeting map[string][]models.ClassifiedAssignment
	Order     []string
}

// For returns the assignments of a meeting, never nil.
func (l AssignmentLookup) For(meetingID string) []models.ClassifiedAssignment {
	if items, ok := l.ByMeeting[meetingID]; ok {
		return items
	}
	return []models.ClassifiedAssignment{}
}

// AssignmentAggregator loads the per-course assignment batch for a student.
type AssignmentAggregator struct {
	fetcher courseAssignmentFetcher
	logger  *zap.Logger
	now     func() time.Time
}

// NewAssignmentAggregator constructs an aggregator.
func NewAssignmentAggregator(fetcher courseAssignmentFetcher, logger *zap.Logger) *AssignmentAggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentAggregator{fetcher: fetcher, logger: logger, now: time.Now}
}

// Aggregate fetches and classifies the batch. A failed batch yields an empty lookup;
// a partially read batch is never merged.
func (a *AssignmentAggregator) Aggregate(ctx context.Context, studentID, courseID string) AssignmentLookup {
	empty := AssignmentLookup{ByMeeting: map[string][]models.ClassifiedAssignment{}}
	if a.fetcher == nil {
		return empty
	}
	groups, err := a.fetcher.GetCourseAssignments(ctx, studentID, courseID)
	if err != nil {
		a.logger.Warn("course assignments unavailable",
			zap.String("student_id", studentID),
			zap.String("course_id", courseID),
			zap.Error(err))
		return empty
	}
	return BuildAssignmentLookup(groups, a.now())
}

// BuildAssignmentLookup sorts the groups by meeting date and classifies every assignment.
// Groups repeating a meeting id are concatenated.
func BuildAssignmentLookup(groups []models.MeetingAssignments, now time.Time) AssignmentLookup {
	ordered := make([]models.MeetingAssignments, len(groups))
	copy(ordered, groups)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].MeetingDate.Before(ordered[j].MeetingDate)
	})

	lookup := AssignmentLookup{ByMeeting: make(map[string][]models.ClassifiedAssignment, len(ordered))}
	for _, group := range ordered {
		if group.MeetingID == "" {
			continue
		}
		if _, seen := lookup.ByMeeting[group.MeetingID]; !seen {
			lookup.Order = append(lookup.Order, group.MeetingID)
			lookup.ByMeeting[group.MeetingID] = make([]models.ClassifiedAssignment, 0, len(group.Assignments))
		}
		for _, assignment := range group.Assignments {
			if assignment.MeetingID == "" {
				assignment.MeetingID = group.MeetingID
			}
			lookup.ByMeeting[group.MeetingID] = append(lookup.ByMeeting[group.MeetingID], ClassifyAssignment(assignment, now))
		}
	}
	return lookup
}

// CrossCheckOrder compares the batch's meeting order with the schedule by meeting id.
// It returns meeting ids unknown to the schedule and whether the shared ids appear in a
// different relative order.
func CrossCheckOrder(sessions []models.Session, lookup AssignmentLookup) (unknown []string, reordered bool) {
	position := make(map[string]int, len(sessions))
	for i, session := range sessions {
		position[session.Meeting.ID] = i
	}
	last := -1
	for _, id := range lookup.Order {
		pos, ok := position[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		if pos < last {
			reordered = true
		}
		last = pos
	}
	return unknown, reordered
}
