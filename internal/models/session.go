package models

// TopicSource names the resolver step that produced a session topic.
type TopicSource string

const (
	TopicSourceNone         TopicSource = ""
	TopicSourceCoveredTopic TopicSource = "covered_topic"
	TopicSourceAttendance   TopicSource = "attendance"
	TopicSourceCatalog      TopicSource = "catalog"
)

// Session is the derived timeline entry for one meeting.
type Session struct {
	SessionNumber int                    `json:"sessionNumber"`
	Meeting       Meeting                `json:"meeting"`
	Assignments   []ClassifiedAssignment `json:"assignments"`
	CoveredTopic  *string                `json:"coveredTopic"`
	TopicSource   TopicSource            `json:"topicSource,omitempty"`
	Attendance    *AttendanceSignal      `json:"attendance,omitempty"`
	IsCompleted   bool                   `json:"isCompleted"`
	IsMilestone   bool                   `json:"isMilestone"`
}

// SessionTimeline is the result of one resolution run.
type SessionTimeline struct {
	ClassID      string          `json:"classId"`
	StudentID    string          `json:"studentId"`
	CourseID     string          `json:"courseId"`
	Sessions     []Session       `json:"sessions"`
	CurrentIndex int             `json:"currentIndex"`
	LastAttended *AttendedSignal `json:"lastAttended,omitempty"`
}

// Current returns the current session, or nil for an empty timeline.
func (t *SessionTimeline) Current() *Session {
	if t == nil || t.CurrentIndex < 0 || t.CurrentIndex >= len(t.Sessions) {
		return nil
	}
	return &t.Sessions[t.CurrentIndex]
}
