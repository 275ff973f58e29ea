package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    AlertStatus
		to      AlertStatus
		allowed bool
	}{
		{"pending to assigned", AlertStatusPending, AlertStatusAssigned, true},
		{"pending to cancelled", AlertStatusPending, AlertStatusCancelled, true},
		{"pending to resolved skips assignment", AlertStatusPending, AlertStatusResolved, false},
		{"assigned to resolved", AlertStatusAssigned, AlertStatusResolved, true},
		{"assigned to cancelled", AlertStatusAssigned, AlertStatusCancelled, false},
		{"assigned to pending", AlertStatusAssigned, AlertStatusPending, false},
		{"resolved is terminal", AlertStatusResolved, AlertStatusAssigned, false},
		{"cancelled is terminal", AlertStatusCancelled, AlertStatusAssigned, false},
		{"no self transition", AlertStatusResolved, AlertStatusResolved, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestStatusValid(t *testing.T) {
	assert.True(t, AlertStatusPending.Valid())
	assert.True(t, AlertStatusAssigned.Valid())
	assert.True(t, AlertStatusResolved.Valid())
	assert.True(t, AlertStatusCancelled.Valid())
	assert.False(t, AlertStatus("escalated").Valid())
	assert.False(t, AlertStatus("").Valid())
}

func TestMatchesFilter(t *testing.T) {
	pending := Alert{Status: AlertStatusPending}
	assigned := Alert{Status: AlertStatusAssigned}
	resolved := Alert{Status: AlertStatusResolved}
	cancelled := Alert{Status: AlertStatusCancelled}

	// Active is the union of pending and assigned
	assert.True(t, pending.MatchesFilter(AlertFilterActive))
	assert.True(t, assigned.MatchesFilter(AlertFilterActive))
	assert.False(t, resolved.MatchesFilter(AlertFilterActive))
	assert.False(t, cancelled.MatchesFilter(AlertFilterActive))

	// Status filters match exactly one status
	assert.True(t, resolved.MatchesFilter(AlertFilterResolved))
	assert.False(t, resolved.MatchesFilter(AlertFilterCancelled))
	assert.True(t, cancelled.MatchesFilter(AlertFilterCancelled))

	// "all" and an absent filter are unfiltered
	for _, alert := range []Alert{pending, assigned, resolved, cancelled} {
		assert.True(t, alert.MatchesFilter(AlertFilterAll))
		assert.True(t, alert.MatchesFilter(""))
	}

	// Unknown filter values match nothing
	assert.False(t, pending.MatchesFilter(AlertFilter("bogus")))
}
