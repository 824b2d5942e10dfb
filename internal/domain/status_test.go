package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionFollowsTable(t *testing.T) {
	legal := []struct{ from, to IssueStatus }{
		{StatusPending, StatusInProgress},
		{StatusInProgress, StatusWorking},
		{StatusWorking, StatusResolved},
		{StatusResolved, StatusClosed},
	}
	for _, tc := range legal {
		assert.Truef(t, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	for _, from := range IssueStatuses() {
		for _, to := range append(IssueStatuses(), StatusBoosted) {
			allowed := false
			for _, tc := range legal {
				if tc.from == from && tc.to == to {
					allowed = true
				}
			}
			assert.Equalf(t, allowed, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatusesHaveNoSuccessors(t *testing.T) {
	assert.Empty(t, NextStatuses(StatusClosed))
	assert.Empty(t, NextStatuses(StatusRejected))
	assert.Equal(t, []IssueStatus{StatusWorking}, NextStatuses(StatusInProgress))
}

func TestNextStatusesReturnsCopy(t *testing.T) {
	next := NextStatuses(StatusPending)
	next[0] = StatusClosed
	assert.True(t, CanTransition(StatusPending, StatusInProgress))
}

func TestTransitionMessage(t *testing.T) {
	assert.Equal(t, "Work started on the issue", TransitionMessage(StatusInProgress))
	assert.Equal(t, "Work is actively being done on the issue", TransitionMessage(StatusWorking))
	assert.Equal(t, "Issue marked as resolved", TransitionMessage(StatusResolved))
	assert.Equal(t, "Issue closed by staff", TransitionMessage(StatusClosed))
	assert.Equal(t, "Issue status updated", TransitionMessage(IssueStatus("Archived")))
}

func TestParseIssueStatus(t *testing.T) {
	s, ok := ParseIssueStatus("In-progress")
	assert.True(t, ok)
	assert.Equal(t, StatusInProgress, s)

	_, ok = ParseIssueStatus("In Progress")
	assert.False(t, ok)
	_, ok = ParseIssueStatus("Boosted")
	assert.False(t, ok)
}

func TestIssueHasVoted(t *testing.T) {
	issue := &Issue{Voters: []string{"a@example.com"}}
	assert.True(t, issue.HasVoted("a@example.com"))
	assert.False(t, issue.HasVoted("b@example.com"))
	assert.False(t, issue.IsAssigned())
}
