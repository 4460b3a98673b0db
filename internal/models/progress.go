package models

import "strings"

// WindowKind selects how sessions are scoped before computing metrics.
type WindowKind string

const (
	WindowKindWeeks    WindowKind = "weeks"
	WindowKindSessions WindowKind = "sessions"
)

// WindowMode is a window kind with its size.
type WindowMode struct {
	Kind WindowKind `json:"kind"`
	N    int        `json:"n"`
}

// LastNWeeks scopes metrics to sessions dated within the last n weeks.
func LastNWeeks(n int) WindowMode {
	return WindowMode{Kind: WindowKindWeeks, N: n}
}

// LastNSessions scopes metrics to the last n sessions dated at or before now.
// Sessions scheduled in the future are never counted, so the window can hold fewer
// than n sessions even when the timeline is longer.
func LastNSessions(n int) WindowMode {
	return WindowMode{Kind: WindowKindSessions, N: n}
}

// ParseWindowKind accepts "weeks" or "sessions" in any case.
func ParseWindowKind(raw string) (WindowKind, bool) {
	switch WindowKind(strings.ToLower(strings.TrimSpace(raw))) {
	case WindowKindWeeks:
		return WindowKindWeeks, true
	case WindowKindSessions:
		return WindowKindSessions, true
	default:
		return "", false
	}
}

// WarningLevel flags at-risk progress.
type WarningLevel string

const (
	WarningLevelMedium WarningLevel = "MEDIUM"
	WarningLevelHigh   WarningLevel = "HIGH"
)

// WeeklyScore is one point of the score series.
type WeeklyScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// ProgressMetrics summarises a windowed slice of a timeline.
type ProgressMetrics struct {
	Window         WindowMode    `json:"window"`
	CompletionRate float64       `json:"completionRate"`
	TotalCount     int           `json:"totalCount"`
	CompletedCount int           `json:"completedCount"`
	PendingCount   int           `json:"pendingCount"`
	OverdueCount   int           `json:"overdueCount"`
	WeeklyScores   []WeeklyScore `json:"weeklyScores"`
	WarningLevel   *WarningLevel `json:"warningLevel"`
}
