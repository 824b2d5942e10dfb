package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/civicfix/civicfix-server/internal/api/dto"
	"github.com/civicfix/civicfix-server/internal/service"
)

// IssuesHandler serves the public issue feed and citizen issue operations.
type IssuesHandler struct {
	issues *service.IssueService
}

// NewIssuesHandler constructs handler.
func NewIssuesHandler(issues *service.IssueService) *IssuesHandler {
	return &IssuesHandler{issues: issues}
}

// ListIssues GET /api/issues.
func (h *IssuesHandler) ListIssues(c *fiber.Ctx) error {
	query, err := parseIssueQuery(c)
	if err != nil {
		return err
	}
	return h.respondPage(c, query)
}

// MyIssues GET /api/issues/mine.
func (h *IssuesHandler) MyIssues(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	query, err := parseIssueQuery(c)
	if err != nil {
		return err
	}
	email := p.Email()
	query.ReporterEmail = &email
	return h.respondPage(c, query)
}

func (h *IssuesHandler) respondPage(c *fiber.Ctx, query service.IssueQuery) error {
	page, err := h.issues.ListIssues(c.UserContext(), query)
	if err != nil {
		return err
	}
	return c.JSON(dto.IssueListResponse{
		Data: dto.NewIssueResponses(page.Issues),
		Meta: dto.PageMeta{Total: page.Total, Page: page.Page, Limit: page.Limit, TotalPages: page.TotalPages},
	})
}

// GetIssue GET /api/issues/:id.
func (h *IssuesHandler) GetIssue(c *fiber.Ctx) error {
	issue, err := h.issues.GetIssue(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIssueResponse(issue)})
}

// Timeline GET /api/issues/:id/timeline.
func (h *IssuesHandler) Timeline(c *fiber.Ctx) error {
	entries, err := h.issues.Timeline(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTimelineResponses(entries)})
}

// ReportIssue POST /api/issues.
func (h *IssuesHandler) ReportIssue(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CreateIssueRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	issue, err := h.issues.Report(c.UserContext(), service.ReportInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Location:    req.Location,
		ImageURL:    req.ImageURL,
	}, p.User)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewIssueResponse(issue)})
}

// UpdateIssue PATCH /api/issues/:id.
func (h *IssuesHandler) UpdateIssue(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateIssueRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	issue, err := h.issues.UpdateIssue(c.UserContext(), c.Params("id"), p.Email(), service.IssuePatch{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Location:    req.Location,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIssueResponse(issue)})
}

// DeleteIssue DELETE /api/issues/:id.
func (h *IssuesHandler) DeleteIssue(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.issues.Delete(c.UserContext(), c.Params("id"), p.Email()); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Upvote POST /api/issues/:id/upvote.
func (h *IssuesHandler) Upvote(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	issue, err := h.issues.Upvote(c.UserContext(), c.Params("id"), p.Email())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIssueResponse(issue)})
}

func parseIssueQuery(c *fiber.Ctx) (service.IssueQuery, error) {
	boosted, err := optionalBoolQuery(c, "boosted")
	if err != nil {
		return service.IssueQuery{}, err
	}
	return service.IssueQuery{
		Status:   optionalQuery(c, "status"),
		Category: optionalQuery(c, "category"),
		Search:   optionalQuery(c, "search"),
		Boosted:  boosted,
		Page:     parseInt(c.Query("page"), 1),
		Limit:    parseInt(c.Query("limit"), 0),
	}, nil
}
