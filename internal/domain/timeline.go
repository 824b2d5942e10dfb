package domain

import "time"

// TimelineEntry is an immutable audit record of one lifecycle event.
type TimelineEntry struct {
	ID        string
	IssueID   string
	Status    IssueStatus
	Message   string
	UpdatedBy string
	CreatedAt time.Time
}
