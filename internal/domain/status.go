package domain

// IssueStatus enumerates lifecycle states for issues.
type IssueStatus string

const (
	StatusPending    IssueStatus = "Pending"
	StatusInProgress IssueStatus = "In-progress"
	StatusWorking    IssueStatus = "Working"
	StatusResolved   IssueStatus = "Resolved"
	StatusClosed     IssueStatus = "Closed"
	StatusRejected   IssueStatus = "Rejected"

	// StatusBoosted only appears on timeline entries; boosting never replaces an issue's status.
	StatusBoosted IssueStatus = "Boosted"
)

// Fixed timeline messages for non-table lifecycle events.
const (
	MessageReported = "Issue reported by citizen"
	MessageAssigned = "Issue assigned to staff"
	MessageRejected = "Issue rejected by admin"
	MessageBoosted  = "Issue boosted by citizen payment"

	messageStatusFallback = "Issue status updated"
)

var allowedTransitions = map[IssueStatus][]IssueStatus{
	StatusPending:    {StatusInProgress},
	StatusInProgress: {StatusWorking},
	StatusWorking:    {StatusResolved},
	StatusResolved:   {StatusClosed},
}

var transitionMessages = map[IssueStatus]string{
	StatusInProgress: "Work started on the issue",
	StatusWorking:    "Work is actively being done on the issue",
	StatusResolved:   "Issue marked as resolved",
	StatusClosed:     "Issue closed by staff",
}

// IssueStatuses lists every status an issue document may hold.
func IssueStatuses() []IssueStatus {
	return []IssueStatus{
		StatusPending,
		StatusInProgress,
		StatusWorking,
		StatusResolved,
		StatusClosed,
		StatusRejected,
	}
}

// ParseIssueStatus reports whether s names an issue status.
func ParseIssueStatus(s string) (IssueStatus, bool) {
	for _, status := range IssueStatuses() {
		if string(status) == s {
			return status, true
		}
	}
	return "", false
}

// NextStatuses returns the statuses staff may move an issue to from current.
// Statuses without a table entry (Closed, Rejected) have no successors.
func NextStatuses(current IssueStatus) []IssueStatus {
	next := allowedTransitions[current]
	out := make([]IssueStatus, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether the staff transition table allows current -> next.
func CanTransition(current, next IssueStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// TransitionMessage returns the timeline message recorded for a move into next.
func TransitionMessage(next IssueStatus) string {
	if msg, ok := transitionMessages[next]; ok {
		return msg
	}
	return messageStatusFallback
}
