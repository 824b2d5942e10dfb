package dto

import (
	"time"

	"github.com/civicfix/civicfix-server/internal/domain"
)

// CreateIssueRequest payload for POST /api/issues.
type CreateIssueRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Location    string `json:"location"`
	ImageURL    string `json:"image"`
}

// UpdateIssueRequest payload for PATCH /api/issues/:id. Absent fields are left unchanged.
type UpdateIssueRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Location    *string `json:"location"`
	ImageURL    *string `json:"image"`
}

// StatusChangeRequest payload for PATCH /api/staff/issues/:id/status.
type StatusChangeRequest struct {
	Status string `json:"status"`
}

// AssignRequest payload for PATCH /api/admin/issues/:id/assign.
type AssignRequest struct {
	StaffEmail string `json:"staff_email"`
	StaffName  string `json:"staff_name"`
}

// StaffResponse describes the assignee of an issue.
type StaffResponse struct {
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	AssignedAt time.Time `json:"assigned_at"`
}

// IssueResponse is the JSON view of an issue.
type IssueResponse struct {
	ID            string               `json:"id"`
	Title         string               `json:"title"`
	Description   string               `json:"description"`
	Category      domain.IssueCategory `json:"category"`
	Location      string               `json:"location"`
	ImageURL      string               `json:"image,omitempty"`
	ReporterEmail string               `json:"reporter_email"`
	ReporterName  string               `json:"reporter_name,omitempty"`
	Status        domain.IssueStatus   `json:"status"`
	IsBoosted     bool                 `json:"is_boosted"`
	Upvotes       int                  `json:"upvotes"`
	UpvotedBy     []string             `json:"upvoted_by"`
	AssignedStaff *StaffResponse       `json:"assigned_staff"`
	NextStatuses  []domain.IssueStatus `json:"next_statuses"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// TimelineEntryResponse is one audit entry.
type TimelineEntryResponse struct {
	ID        string             `json:"id"`
	IssueID   string             `json:"issue_id"`
	Status    domain.IssueStatus `json:"status"`
	Message   string             `json:"message"`
	UpdatedBy string             `json:"updated_by"`
	CreatedAt time.Time          `json:"created_at"`
}

// PageMeta describes the position of a page within a listing.
type PageMeta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// IssueListResponse is one page of issues.
type IssueListResponse struct {
	Data []IssueResponse `json:"data"`
	Meta PageMeta        `json:"meta"`
}

// NewIssueResponse maps a domain issue.
func NewIssueResponse(issue *domain.Issue) IssueResponse {
	voters := issue.Voters
	if voters == nil {
		voters = []string{}
	}
	resp := IssueResponse{
		ID:            issue.ID,
		Title:         issue.Title,
		Description:   issue.Description,
		Category:      issue.Category,
		Location:      issue.Location,
		ImageURL:      issue.ImageURL,
		ReporterEmail: issue.ReporterEmail,
		ReporterName:  issue.ReporterName,
		Status:        issue.Status,
		IsBoosted:     issue.IsBoosted,
		Upvotes:       issue.Upvotes,
		UpvotedBy:     voters,
		NextStatuses:  domain.NextStatuses(issue.Status),
		CreatedAt:     issue.CreatedAt,
		UpdatedAt:     issue.UpdatedAt,
	}
	if issue.IsAssigned() {
		resp.AssignedStaff = &StaffResponse{
			Email:      issue.AssignedStaff.Email,
			Name:       issue.AssignedStaff.Name,
			AssignedAt: issue.AssignedStaff.AssignedAt,
		}
	}
	return resp
}

// NewIssueResponses maps a slice of issues.
func NewIssueResponses(issues []domain.Issue) []IssueResponse {
	out := make([]IssueResponse, 0, len(issues))
	for i := range issues {
		out = append(out, NewIssueResponse(&issues[i]))
	}
	return out
}

// NewTimelineResponses maps timeline entries in their stored order.
func NewTimelineResponses(entries []domain.TimelineEntry) []TimelineEntryResponse {
	out := make([]TimelineEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, TimelineEntryResponse{
			ID:        e.ID,
			IssueID:   e.IssueID,
			Status:    e.Status,
			Message:   e.Message,
			UpdatedBy: e.UpdatedBy,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}
