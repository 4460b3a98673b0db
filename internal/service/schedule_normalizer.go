package service

import (
	"sort"

	"github.com/noah-isme/sma-progress-api/internal/models"
)

// NormalizeSchedule orders meetings by date, keeping fetch order for equal dates,
// and numbers the resulting sessions from 1. The input slice is not modified.
func NormalizeSchedule(meetings []models.Meeting) []models.Session {
	ordered := make([]models.Meeting, len(meetings))
	copy(ordered, meetings)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	sessions := make([]models.Session, len(ordered))
	for i, meeting := range ordered {
		sessions[i] = models.Session{
			SessionNumber: i + 1,
			Meeting:       meeting,
			Assignments:   []models.ClassifiedAssignment{},
		}
	}
	return sessions
}
