package service

import (
	"fmt"
	"time"

	"github.com/noah-isme/sma-progress-api/internal/models"
)

// Default metric settings.
const (
	DefaultWindowWeeks                = 4
	DefaultWindowSessions             = 8
	DefaultWarningScoreThreshold      = 60.0
	DefaultWarningCompletionThreshold = 70.0
)

// WarningThresholds configures the risk classification.
type WarningThresholds struct {
	Score      float64
	Completion float64
}

func (t WarningThresholds) withDefaults() WarningThresholds {
	if t.Score <= 0 {
		t.Score = DefaultWarningScoreThreshold
	}
	if t.Completion <= 0 {
		t.Completion = DefaultWarningCompletionThreshold
	}
	return t
}

// FilterWindow returns the sessions a window covers. Only sessions dated at or before now
// count: the weeks window keeps those within the last N weeks, the sessions window keeps
// the last N of them. A non-positive N keeps every held session.
func FilterWindow(sessions []models.Session, window models.WindowMode, now time.Time) []models.Session {
	held := make([]models.Session, 0, len(sessions))
	for _, session := range sessions {
		if session.Meeting.Date.After(now) {
			continue
		}
		held = append(held, session)
	}
	if window.N <= 0 {
		return held
	}

	switch window.Kind {
	case models.WindowKindWeeks:
		cutoff := now.AddDate(0, 0, -7*window.N)
		filtered := make([]models.Session, 0, len(held))
		for _, session := range held {
			if session.Meeting.Date.Before(cutoff) {
				continue
			}
			filtered = append(filtered, session)
		}
		return filtered
	default:
		if len(held) > window.N {
			return held[len(held)-window.N:]
		}
		return held
	}
}

// ComputeMetrics derives completion, lateness, the score series and the warning level
// for the sessions inside window. It is pure apart from the supplied now.
func ComputeMetrics(sessions []models.Session, window models.WindowMode, now time.Time, thresholds WarningThresholds) models.ProgressMetrics {
	thresholds = thresholds.withDefaults()
	inWindow := FilterWindow(sessions, window, now)

	metrics := models.ProgressMetrics{
		Window:       window,
		WeeklyScores: make([]models.WeeklyScore, 0, len(inWindow)),
	}
	for i, session := range inWindow {
		best := 0.0
		for _, assignment := range session.Assignments {
			metrics.TotalCount++
			if assignment.Completed {
				metrics.CompletedCount++
			}
			if assignment.Overdue {
				metrics.OverdueCount++
			}
			if assignment.Score != nil && *assignment.Score > best {
				best = *assignment.Score
			}
		}
		metrics.WeeklyScores = append(metrics.WeeklyScores, models.WeeklyScore{
			Label: fmt.Sprintf("W%d", i+1),
			Score: best,
		})
	}

	if metrics.TotalCount > 0 {
		metrics.CompletionRate = float64(metrics.CompletedCount) / float64(metrics.TotalCount) * 100
	}
	if pending := metrics.TotalCount - metrics.CompletedCount - metrics.OverdueCount; pending > 0 {
		metrics.PendingCount = pending
	}
	metrics.WarningLevel = classifyWarning(metrics.WeeklyScores, metrics.CompletionRate, thresholds)
	return metrics
}

// classifyWarning applies HIGH before MEDIUM. Score conditions only apply when the series
// is long enough to evaluate them.
func classifyWarning(scores []models.WeeklyScore, completionRate float64, thresholds WarningThresholds) *models.WarningLevel {
	lowCompletion := completionRate < thresholds.Completion
	lowScore := false
	declining := false
	if n := len(scores); n > 0 {
		lowScore = scores[n-1].Score < thresholds.Score
		if n >= 3 {
			declining = scores[n-3].Score > scores[n-2].Score && scores[n-2].Score > scores[n-1].Score
		}
	}

	var level models.WarningLevel
	switch {
	case lowScore && lowCompletion:
		level = models.WarningLevelHigh
	case declining || lowScore || lowCompletion:
		level = models.WarningLevelMedium
	default:
		return nil
	}
	return &level
}
