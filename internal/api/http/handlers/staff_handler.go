package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/civicfix/civicfix-server/internal/api/dto"
	"github.com/civicfix/civicfix-server/internal/domain"
	"github.com/civicfix/civicfix-server/internal/service"
	apperrors "github.com/civicfix/civicfix-server/pkg/util"
)

// StaffHandler serves the assigned-issue workflow for staff members.
type StaffHandler struct {
	issues *service.IssueService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(issues *service.IssueService) *StaffHandler {
	return &StaffHandler{issues: issues}
}

// AssignedIssues GET /api/staff/issues.
func (h *StaffHandler) AssignedIssues(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	query, err := parseIssueQuery(c)
	if err != nil {
		return err
	}
	email := p.Email()
	query.AssigneeEmail = &email
	page, err := h.issues.ListIssues(c.UserContext(), query)
	if err != nil {
		return err
	}
	return c.JSON(dto.IssueListResponse{
		Data: dto.NewIssueResponses(page.Issues),
		Meta: dto.PageMeta{Total: page.Total, Page: page.Page, Limit: page.Limit, TotalPages: page.TotalPages},
	})
}

// ChangeStatus PATCH /api/staff/issues/:id/status.
// Staff may only move issues assigned to them; the transition itself is checked by the service.
func (h *StaffHandler) ChangeStatus(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.StatusChangeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	requested := strings.TrimSpace(req.Status)
	if requested == "" {
		return apperrors.NewValidationError("status is required", map[string]any{"field": "status"})
	}

	id := c.Params("id")
	issue, err := h.issues.GetIssue(c.UserContext(), id)
	if err != nil {
		return err
	}
	if !issue.IsAssigned() || !strings.EqualFold(issue.AssignedStaff.Email, p.Email()) {
		return apperrors.NewForbidden("issue is not assigned to you")
	}

	updated, err := h.issues.RequestTransition(c.UserContext(), id, domain.IssueStatus(requested), p.Email())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIssueResponse(updated)})
}
