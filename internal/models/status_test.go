package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSubmissionStatus(t *testing.T) {
	cases := map[string]SubmissionStatus{
		"GRADED":      SubmissionStatusGraded,
		"graded":      SubmissionStatusGraded,
		" Submitted ": SubmissionStatusSubmitted,
		"pending":     SubmissionStatusPending,
		"":            SubmissionStatusPending,
		"late":        SubmissionStatusPending,
	}
	for raw, want := range cases {
		assert.Equal(t, want, ParseSubmissionStatus(raw), raw)
	}
}

func TestLastNSessions(t *testing.T) {
	assert.Equal(t, WindowMode{Kind: WindowKindSessions, N: 8}, LastNSessions(8))
	kind, ok := ParseWindowKind(" Weeks ")
	assert.True(t, ok)
	assert.Equal(t, WindowKindWeeks, kind)
}
