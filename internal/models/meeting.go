package models

import "time"

// Meeting is one scheduled class meeting as returned by the schedule source.
type Meeting struct {
	ID      string    `json:"id"`
	ClassID string    `json:"classId,omitempty"`
	Date    time.Time `json:"date"`
	Slot    *string   `json:"slot"`
}
