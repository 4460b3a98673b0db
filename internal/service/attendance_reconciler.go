package service

import (
	"sort"

	"github.com/noah-isme/sma-progress-api/internal/models"
	"github.com/noah-isme/sma-progress-api/pkg/config"
)

// AttendancePolicy picks the surviving signal when both reports carry the same meeting.
type AttendancePolicy func(primary, secondary models.AttendanceSignal) models.AttendanceSignal

// PreferPrimary keeps the record from the student's cross-class attendance summary,
// filtered to the class being resolved. This is the default business rule;
// it is kept as a named policy so it can be swapped once the rule is confirmed.
func PreferPrimary(primary, _ models.AttendanceSignal) models.AttendanceSignal {
	return primary
}

// PreferSecondary keeps the course report record.
func PreferSecondary(_, secondary models.AttendanceSignal) models.AttendanceSignal {
	return secondary
}

// AttendancePolicyFor maps a configured precedence name to a policy.
func AttendancePolicyFor(name string) AttendancePolicy {
	if name == config.AttendancePrecedenceSecondary {
		return PreferSecondary
	}
	return PreferPrimary
}

// MergeAttendance folds both reports into one signal per meeting. Within one report a
// later record for the same meeting replaces an earlier one; across reports the policy decides.
func MergeAttendance(primary, secondary []models.AttendanceSignal, policy AttendancePolicy) map[string]models.AttendanceSignal {
	if policy == nil {
		policy = PreferPrimary
	}
	primaryByMeeting := indexSignals(primary)
	merged := make(map[string]models.AttendanceSignal, len(primaryByMeeting)+len(secondary))
	for id, signal := range primaryByMeeting {
		merged[id] = signal
	}
	for id, signal := range indexSignals(secondary) {
		if existing, ok := merged[id]; ok {
			merged[id] = policy(existing, signal)
			continue
		}
		merged[id] = signal
	}
	return merged
}

// ReconcileAttendance merges both reports against the normalized schedule. Signals that
// reference meetings missing from the schedule are dropped. LastAttended is the present
// signal with the latest meeting date; for equal dates the later session wins.
func ReconcileAttendance(schedule []models.Session, primary, secondary []models.AttendanceSignal, policy AttendancePolicy) models.AttendanceReconciliation {
	merged := MergeAttendance(primary, secondary, policy)

	known := make(map[string]struct{}, len(schedule))
	for _, session := range schedule {
		known[session.Meeting.ID] = struct{}{}
	}
	for id := range merged {
		if _, ok := known[id]; !ok {
			delete(merged, id)
		}
	}

	attended := make([]models.AttendedSignal, 0, len(merged))
	for i := len(schedule) - 1; i >= 0; i-- {
		meeting := schedule[i].Meeting
		signal, ok := merged[meeting.ID]
		if !ok || !signal.Present() {
			continue
		}
		attended = append(attended, models.AttendedSignal{Signal: signal, MeetingDate: meeting.Date})
	}
	sort.SliceStable(attended, func(i, j int) bool {
		return attended[i].MeetingDate.After(attended[j].MeetingDate)
	})

	result := models.AttendanceReconciliation{ByMeeting: merged}
	if len(attended) > 0 {
		last := attended[0]
		result.LastAttended = &last
	}
	return result
}

func indexSignals(signals []models.AttendanceSignal) map[string]models.AttendanceSignal {
	out := make(map[string]models.AttendanceSignal, len(signals))
	for _, signal := range signals {
		if signal.MeetingID == "" {
			continue
		}
		out[signal.MeetingID] = signal
	}
	return out
}

// StaleAttendanceIDs lists meeting ids present in the reports but absent from the schedule.
func StaleAttendanceIDs(schedule []models.Session, primary, secondary []models.AttendanceSignal) []string {
	known := make(map[string]struct{}, len(schedule))
	for _, session := range schedule {
		known[session.Meeting.ID] = struct{}{}
	}
	seen := map[string]struct{}{}
	var stale []string
	for _, list := range [][]models.AttendanceSignal{primary, secondary} {
		for _, signal := range list {
			if _, ok := known[signal.MeetingID]; ok || signal.MeetingID == "" {
				continue
			}
			if _, dup := seen[signal.MeetingID]; dup {
				continue
			}
			seen[signal.MeetingID] = struct{}{}
			stale = append(stale, signal.MeetingID)
		}
	}
	sort.Strings(stale)
	return stale
}
