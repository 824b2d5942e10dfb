package dto

import (
	"github.com/civicfix/civicfix-server/internal/domain"
	"github.com/civicfix/civicfix-server/internal/service"
)

// AdminDashboardResponse is GET /api/dashboard/admin.
type AdminDashboardResponse struct {
	TotalIssues   int64                        `json:"total_issues"`
	ByStatus      map[domain.IssueStatus]int64 `json:"by_status"`
	BoostedIssues int64                        `json:"boosted_issues"`
	TotalUsers    int64                        `json:"total_users"`
	Citizens      int64                        `json:"citizens"`
	Staff         int64                        `json:"staff"`
	Payments      int64                        `json:"payments"`
	Revenue       int64                        `json:"revenue"`
}

// ScopedDashboardResponse is GET /api/dashboard/citizen and /staff.
type ScopedDashboardResponse struct {
	TotalIssues int64                        `json:"total_issues"`
	ByStatus    map[domain.IssueStatus]int64 `json:"by_status"`
	Upvotes     int64                        `json:"upvotes"`
}

func NewAdminDashboardResponse(d *service.AdminDashboard) AdminDashboardResponse {
	return AdminDashboardResponse{
		TotalIssues:   d.TotalIssues,
		ByStatus:      d.ByStatus,
		BoostedIssues: d.BoostedIssues,
		TotalUsers:    d.TotalUsers,
		Citizens:      d.Citizens,
		Staff:         d.Staff,
		Payments:      d.Payments,
		Revenue:       d.Revenue,
	}
}

func NewScopedDashboardResponse(d *service.ScopedDashboard) ScopedDashboardResponse {
	return ScopedDashboardResponse{TotalIssues: d.TotalIssues, ByStatus: d.ByStatus, Upvotes: d.Upvotes}
}
