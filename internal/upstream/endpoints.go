package upstream

import (
	"context"
	"fmt"

	"github.com/noah-isme/sma-progress-api/internal/models"
)

// GetMeetings returns the raw meeting list of a class.
func (c *Client) GetMeetings(ctx context.Context, classID string) ([]models.Meeting, error) {
	var payload []meetingPayload
	if err := c.getJSON(ctx, SourceMeetings, fmt.Sprintf("/classes/%s/meetings", escape(classID)), &payload); err != nil {
		return nil, err
	}
	meetings := make([]models.Meeting, 0, len(payload))
	for _, p := range payload {
		meetings = append(meetings, p.toModel(classID))
	}
	return meetings, nil
}

// GetCoveredTopic returns the topic recorded for a meeting. A nil title means none was recorded.
func (c *Client) GetCoveredTopic(ctx context.Context, meetingID string) (*string, error) {
	var payload coveredTopicPayload
	if err := c.getJSON(ctx, SourceCoveredTopic, fmt.Sprintf("/meetings/%s/covered-topic", escape(meetingID)), &payload); err != nil {
		return nil, err
	}
	return payload.TopicTitle, nil
}

// GetAttendanceSummary returns the student's attendance summary grouped by class.
func (c *Client) GetAttendanceSummary(ctx context.Context, studentID string) ([]models.ClassAttendance, error) {
	var payload attendanceSummaryPayload
	if err := c.getJSON(ctx, SourceAttendanceSummary, fmt.Sprintf("/students/%s/attendance/summary", escape(studentID)), &payload); err != nil {
		return nil, err
	}
	summaries := make([]models.ClassAttendance, 0, len(payload.ClassSummaries))
	for _, s := range payload.ClassSummaries {
		summaries = append(summaries, models.ClassAttendance{
			ClassID: s.ClassID,
			Records: attendanceModels(s.Records, models.AttendanceSourcePrimary),
		})
	}
	return summaries, nil
}

// GetCourseAttendance returns the per-session attendance report for a course.
func (c *Client) GetCourseAttendance(ctx context.Context, courseID, studentID string) ([]models.AttendanceSignal, error) {
	var payload courseAttendancePayload
	path := fmt.Sprintf("/courses/%s/students/%s/attendance", escape(courseID), escape(studentID))
	if err := c.getJSON(ctx, SourceCourseAttendance, path, &payload); err != nil {
		return nil, err
	}
	return attendanceModels(payload.SessionRecords, models.AttendanceSourceSecondary), nil
}

// GetCourseAssignments returns the student's assignments for a course grouped by meeting.
func (c *Client) GetCourseAssignments(ctx context.Context, studentID, courseID string) ([]models.MeetingAssignments, error) {
	var payload courseAssignmentsPayload
	path := fmt.Sprintf("/students/%s/courses/%s/assignments", escape(studentID), escape(courseID))
	if err := c.getJSON(ctx, SourceCourseAssignments, path, &payload); err != nil {
		return nil, err
	}
	groups := make([]models.MeetingAssignments, 0, len(payload.Assignments))
	for _, g := range payload.Assignments {
		group := models.MeetingAssignments{MeetingID: g.MeetingID, MeetingDate: g.MeetingDate}
		for _, a := range g.Assignments {
			group.Assignments = append(group.Assignments, a.toModel(g.MeetingID))
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// GetStudentClasses lists the classes a student is enrolled in.
func (c *Client) GetStudentClasses(ctx context.Context, studentID string) ([]models.Class, error) {
	var payload []classPayload
	if err := c.getJSON(ctx, SourceStudentClasses, fmt.Sprintf("/students/%s/classes", escape(studentID)), &payload); err != nil {
		return nil, err
	}
	classes := make([]models.Class, 0, len(payload))
	for _, p := range payload {
		classes = append(classes, models.Class{ID: p.ID, Name: p.Name, CourseID: p.CourseID})
	}
	return classes, nil
}

// GetMeetingAssignments lists a student's assignments for one meeting.
func (c *Client) GetMeetingAssignments(ctx context.Context, meetingID, studentID string) ([]models.Assignment, error) {
	var payload []assignmentPayload
	path := fmt.Sprintf("/meetings/%s/students/%s/assignments", escape(meetingID), escape(studentID))
	if err := c.getJSON(ctx, SourceMeetingAssignments, path, &payload); err != nil {
		return nil, err
	}
	assignments := make([]models.Assignment, 0, len(payload))
	for _, p := range payload {
		assignments = append(assignments, p.toModel(meetingID))
	}
	return assignments, nil
}
