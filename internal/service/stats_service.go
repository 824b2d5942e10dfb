package service

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/civicfix/civicfix-server/internal/domain"
	"github.com/civicfix/civicfix-server/internal/repository"
)

// StatsService computes dashboard counters.
type StatsService struct {
	store repository.Store
}

// StatusCounts maps each issue status to the number of matching issues.
type StatusCounts map[domain.IssueStatus]int64

// AdminDashboard summarizes the whole system.
type AdminDashboard struct {
	TotalIssues   int64
	ByStatus      StatusCounts
	BoostedIssues int64
	TotalUsers    int64
	Citizens      int64
	Staff         int64
	Payments      int64
	Revenue       int64
}

// ScopedDashboard summarizes issues reported by, or assigned to, one person.
type ScopedDashboard struct {
	TotalIssues int64
	ByStatus    StatusCounts
	Upvotes     int64
}

// NewStatsService builds the service.
func NewStatsService(store repository.Store) *StatsService {
	return &StatsService{store: store}
}

// AdminDashboard counts issues per status, users, and payments concurrently.
func (s *StatsService) AdminDashboard(ctx context.Context) (*AdminDashboard, error) {
	repos := s.store.Repos()
	out := &AdminDashboard{}
	g, ctx := errgroup.WithContext(ctx)

	var byStatus StatusCounts
	g.Go(func() error {
		var err error
		byStatus, err = s.countByStatus(ctx, repository.IssueFilter{})
		return err
	})
	g.Go(func() error {
		boosted := true
		n, err := repos.Issues.Count(ctx, repository.IssueFilter{Boosted: &boosted})
		out.BoostedIssues = n
		return err
	})
	g.Go(func() error {
		n, err := repos.Users.Count(ctx, repository.UserFilter{})
		out.TotalUsers = n
		return err
	})
	g.Go(func() error {
		role := domain.RoleCitizen
		n, err := repos.Users.Count(ctx, repository.UserFilter{Role: &role})
		out.Citizens = n
		return err
	})
	g.Go(func() error {
		role := domain.RoleStaff
		n, err := repos.Users.Count(ctx, repository.UserFilter{Role: &role})
		out.Staff = n
		return err
	})
	g.Go(func() error {
		summary, err := repos.Payments.Summary(ctx)
		out.Payments = summary.Count
		out.Revenue = summary.Revenue
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out.ByStatus = byStatus
	out.TotalIssues = byStatus.total()
	return out, nil
}

// CitizenDashboard counts the issues reporterEmail has filed.
func (s *StatsService) CitizenDashboard(ctx context.Context, reporterEmail string) (*ScopedDashboard, error) {
	email := normalizeEmail(reporterEmail)
	return s.scoped(ctx, repository.IssueFilter{ReporterEmail: &email})
}

// StaffDashboard counts the issues assigned to staffEmail.
func (s *StatsService) StaffDashboard(ctx context.Context, staffEmail string) (*ScopedDashboard, error) {
	email := normalizeEmail(staffEmail)
	return s.scoped(ctx, repository.IssueFilter{AssigneeEmail: &email})
}

func (s *StatsService) scoped(ctx context.Context, base repository.IssueFilter) (*ScopedDashboard, error) {
	byStatus, err := s.countByStatus(ctx, base)
	if err != nil {
		return nil, err
	}
	// Upvotes are summed over the most recent issues only; a person rarely has more.
	base.Limit = 100
	issues, err := s.store.Repos().Issues.List(ctx, base)
	if err != nil {
		return nil, err
	}
	var upvotes int64
	for _, issue := range issues {
		upvotes += int64(issue.Upvotes)
	}
	return &ScopedDashboard{TotalIssues: byStatus.total(), ByStatus: byStatus, Upvotes: upvotes}, nil
}

// countByStatus runs one Count per status in parallel.
func (s *StatsService) countByStatus(ctx context.Context, base repository.IssueFilter) (StatusCounts, error) {
	issues := s.store.Repos().Issues
	counts := StatusCounts{}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for _, status := range domain.IssueStatuses() {
		status := status
		filter := base
		filter.Statuses = []domain.IssueStatus{status}
		g.Go(func() error {
			n, err := issues.Count(ctx, filter)
			if err != nil {
				return err
			}
			mu.Lock()
			counts[status] = n
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}

func (c StatusCounts) total() int64 {
	var sum int64
	for _, n := range c {
		sum += n
	}
	return sum
}
