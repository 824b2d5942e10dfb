package events

import (
	"time"

	"github.com/civicfix/civicfix-server/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIssueReported      EventType = "issue_reported"
	EventIssueStatusChanged EventType = "issue_status_changed"
	EventIssueAssigned      EventType = "issue_assigned"
	EventIssueRejected      EventType = "issue_rejected"
	EventIssueBoosted       EventType = "issue_boosted"
	EventIssueUpvoted       EventType = "issue_upvoted"
	EventIssueDeleted       EventType = "issue_deleted"
)

// AllEventTypes lists every event the lifecycle manager emits.
func AllEventTypes() []EventType {
	return []EventType{
		EventIssueReported,
		EventIssueStatusChanged,
		EventIssueAssigned,
		EventIssueRejected,
		EventIssueBoosted,
		EventIssueUpvoted,
		EventIssueDeleted,
	}
}

// Event represents a committed lifecycle change.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	IssueID   string    `json:"issue_id"`
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// IssueReportedPayload payload.
type IssueReportedPayload struct {
	Title         string               `json:"title"`
	Category      domain.IssueCategory `json:"category"`
	ReporterEmail string               `json:"reporter_email"`
}

// IssueStatusChangedPayload payload.
type IssueStatusChangedPayload struct {
	OldStatus domain.IssueStatus `json:"old_status"`
	NewStatus domain.IssueStatus `json:"new_status"`
	Message   string             `json:"message"`
}

// IssueAssignedPayload payload.
type IssueAssignedPayload struct {
	StaffEmail string `json:"staff_email"`
	StaffName  string `json:"staff_name"`
}

// IssueRejectedPayload payload.
type IssueRejectedPayload struct {
	OldStatus domain.IssueStatus `json:"old_status"`
}

// IssueUpvotedPayload payload.
type IssueUpvotedPayload struct {
	Voter   string `json:"voter"`
	Upvotes int    `json:"upvotes"`
}

// IssueDeletedPayload payload.
type IssueDeletedPayload struct {
	ReporterEmail string `json:"reporter_email"`
}
