package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/civicfix/civicfix-server/internal/api/dto"
	"github.com/civicfix/civicfix-server/internal/domain"
	"github.com/civicfix/civicfix-server/internal/service"
	apperrors "github.com/civicfix/civicfix-server/pkg/util"
)

// AdminHandler exposes issue triage and account administration.
type AdminHandler struct {
	issues   *service.IssueService
	users    *service.UserService
	payments *service.PaymentService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(issues *service.IssueService, users *service.UserService, payments *service.PaymentService) *AdminHandler {
	return &AdminHandler{issues: issues, users: users, payments: payments}
}

// AssignIssue PATCH /api/admin/issues/:id/assign.
func (h *AdminHandler) AssignIssue(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.StaffEmail == "" {
		return apperrors.NewValidationError("staff_email is required", map[string]any{"field": "staff_email"})
	}
	staff, err := h.users.GetUserByEmail(c.UserContext(), req.StaffEmail)
	if err != nil {
		return err
	}
	if staff.Role != domain.RoleStaff {
		return apperrors.NewValidationError("assignee must be a staff account", map[string]any{"staff_email": staff.Email})
	}
	name := req.StaffName
	if name == "" {
		name = staff.Name
	}
	issue, err := h.issues.Assign(c.UserContext(), c.Params("id"), staff.Email, name, p.Email())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIssueResponse(issue)})
}

// RejectIssue PATCH /api/admin/issues/:id/reject.
func (h *AdminHandler) RejectIssue(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	issue, err := h.issues.Reject(c.UserContext(), c.Params("id"), p.Email())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIssueResponse(issue)})
}

// ListUsers GET /api/admin/users.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	page, err := h.users.ListUsers(c.UserContext(), optionalQuery(c, "role"),
		parseInt(c.Query("page"), 1), parseInt(c.Query("limit"), 0))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": dto.NewUserResponses(page.Users),
		"meta": dto.PageMeta{Total: page.Total, Page: page.Page, Limit: page.Limit, TotalPages: page.TotalPages},
	})
}

// UpdateRole PATCH /api/admin/users/:id/role.
func (h *AdminHandler) UpdateRole(c *fiber.Ctx) error {
	var req dto.UpdateRoleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.users.UpdateRole(c.UserContext(), c.Params("id"), req.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// SetBlocked PATCH /api/admin/users/:id/block.
func (h *AdminHandler) SetBlocked(c *fiber.Ctx) error {
	var req dto.SetBlockedRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Blocked == nil {
		return apperrors.NewValidationError("blocked is required", map[string]any{"field": "blocked"})
	}
	user, err := h.users.SetBlocked(c.UserContext(), c.Params("id"), *req.Blocked)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// ListPayments GET /api/admin/payments.
func (h *AdminHandler) ListPayments(c *fiber.Ctx) error {
	page, err := h.payments.ListPayments(c.UserContext(), parseInt(c.Query("page"), 1), parseInt(c.Query("limit"), 0))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data":    dto.NewPaymentResponses(page.Payments),
		"revenue": page.Revenue,
		"meta":    dto.PageMeta{Total: page.Total, Page: page.Page, Limit: page.Limit, TotalPages: page.TotalPages},
	})
}
