package service

import "github.com/noah-isme/sma-progress-api/internal/models"

// ResolveCurrentSession picks the session the student is working through.
//
// It returns -1 for an empty schedule, 0 when nothing was attended, the session after
// the last attended one otherwise, or the last attended session when it is the final one.
func ResolveCurrentSession(sessions []models.Session, lastAttended *models.AttendedSignal) int {
	if len(sessions) == 0 {
		return -1
	}
	if lastAttended == nil {
		return 0
	}

	last := -1
	for i, session := range sessions {
		if session.Meeting.ID == lastAttended.Signal.MeetingID {
			last = i
		}
	}
	if last < 0 {
		return 0
	}
	if last+1 < len(sessions) {
		return last + 1
	}
	return last
}
