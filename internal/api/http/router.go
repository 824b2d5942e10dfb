package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/civicfix/civicfix-server/internal/api/http/handlers"
	"github.com/civicfix/civicfix-server/internal/auth"
	"github.com/civicfix/civicfix-server/internal/domain"
	"github.com/civicfix/civicfix-server/internal/ratelimit"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Issues         *handlers.IssuesHandler
	Staff          *handlers.StaffHandler
	Admin          *handlers.AdminHandler
	Payments       *handlers.PaymentsHandler
	Dashboard      *handlers.DashboardHandler
	AuthMiddleware *auth.AuthMiddleware
	ReportLimiter  ratelimit.Limiter
	Logger         *zap.Logger
}

// NewApp builds the fiber app. Immutable is required: issue IDs read from c.Params
// are kept as store keys and event payloads after the handler returns.
func NewApp(name string) *fiber.App {
	return fiber.New(fiber.Config{AppName: name, Immutable: true})
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	api := app.Group("/api")
	authenticated := cfg.AuthMiddleware.Handle

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/me", authenticated, cfg.Auth.Me)

	issues := api.Group("/issues")
	issues.Get("/", cfg.Issues.ListIssues)
	issues.Get("/mine", authenticated, auth.RequireRole(domain.RoleCitizen), cfg.Issues.MyIssues)
	issues.Get("/:id", cfg.Issues.GetIssue)
	issues.Get("/:id/timeline", cfg.Issues.Timeline)
	issues.Post("/", authenticated, auth.RequireRole(domain.RoleCitizen), auth.RequireActive(),
		ReportRateLimit(cfg.ReportLimiter, cfg.Logger), cfg.Issues.ReportIssue)
	issues.Patch("/:id", authenticated, auth.RequireRole(domain.RoleCitizen), cfg.Issues.UpdateIssue)
	issues.Delete("/:id", authenticated, auth.RequireRole(domain.RoleCitizen), cfg.Issues.DeleteIssue)
	issues.Post("/:id/upvote", authenticated, auth.RequireRole(), auth.RequireActive(), cfg.Issues.Upvote)

	staff := api.Group("/staff", authenticated, auth.RequireRole(domain.RoleStaff))
	staff.Get("/issues", cfg.Staff.AssignedIssues)
	staff.Patch("/issues/:id/status", cfg.Staff.ChangeStatus)

	admin := api.Group("/admin", authenticated, auth.RequireRole(domain.RoleAdmin))
	admin.Patch("/issues/:id/assign", cfg.Admin.AssignIssue)
	admin.Patch("/issues/:id/reject", cfg.Admin.RejectIssue)
	admin.Get("/users", cfg.Admin.ListUsers)
	admin.Patch("/users/:id/role", cfg.Admin.UpdateRole)
	admin.Patch("/users/:id/block", cfg.Admin.SetBlocked)
	admin.Get("/payments", cfg.Admin.ListPayments)

	payments := api.Group("/payments")
	payments.Post("/webhook", cfg.Payments.Webhook)
	payments.Get("/me", authenticated, cfg.Payments.MyPayments)

	dashboard := api.Group("/dashboard", authenticated)
	dashboard.Get("/admin", auth.RequireRole(domain.RoleAdmin), cfg.Dashboard.Admin)
	dashboard.Get("/citizen", auth.RequireRole(domain.RoleCitizen), cfg.Dashboard.Citizen)
	dashboard.Get("/staff", auth.RequireRole(domain.RoleStaff), cfg.Dashboard.Staff)
}
