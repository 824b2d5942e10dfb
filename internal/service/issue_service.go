package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/civicfix/civicfix-server/internal/config"
	"github.com/civicfix/civicfix-server/internal/domain"
	"github.com/civicfix/civicfix-server/internal/events"
	"github.com/civicfix/civicfix-server/internal/repository"
	apperrors "github.com/civicfix/civicfix-server/pkg/util"
)

// IssueService is the issue lifecycle manager. Every state change and its timeline
// entry commit in one store transaction; events are published after commit.
type IssueService struct {
	store          repository.Store
	dispatcher     events.Dispatcher
	logger         *zap.Logger
	freeIssueLimit int
	pages          pageRules
	now            func() time.Time
}

// IssueDependencies bundles collaborators for the issue service.
type IssueDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Limits     config.LimitsConfig
}

// ReportInput describes a new issue.
type ReportInput struct {
	Title       string
	Description string
	Category    string
	Location    string
	ImageURL    string
}

// IssuePatch holds reporter edits. Nil fields are left unchanged.
type IssuePatch struct {
	Title       *string
	Description *string
	Category    *string
	Location    *string
	ImageURL    *string
}

// IssueQuery describes a listing request in page terms.
type IssueQuery struct {
	Status        *string
	Category      *string
	Search        *string
	ReporterEmail *string
	AssigneeEmail *string
	Boosted       *bool
	Page          int
	Limit         int
}

// IssuePage is one page of a listing.
type IssuePage struct {
	Issues     []domain.Issue
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// NewIssueService constructs the service.
func NewIssueService(deps IssueDependencies) *IssueService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IssueService{
		store:          deps.Store,
		dispatcher:     deps.Dispatcher,
		logger:         logger,
		freeIssueLimit: deps.Limits.FreeIssueLimit,
		pages:          newPageRules(deps.Limits),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Report creates a Pending issue, its first timeline entry, and bumps the reporter's counter.
func (s *IssueService) Report(ctx context.Context, input ReportInput, reporter *domain.User) (*domain.Issue, error) {
	if reporter == nil {
		return nil, apperrors.NewUnauthorized("reporter required")
	}
	category, err := validateReport(input)
	if err != nil {
		return nil, err
	}

	now := s.now()
	issue := &domain.Issue{
		ID:            uuid.NewString(),
		Title:         strings.TrimSpace(input.Title),
		Description:   strings.TrimSpace(input.Description),
		Category:      category,
		Location:      strings.TrimSpace(input.Location),
		ImageURL:      strings.TrimSpace(input.ImageURL),
		ReporterEmail: reporter.Email,
		ReporterName:  reporter.Name,
		Status:        domain.StatusPending,
		Voters:        []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.store.RunInTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		current, err := repos.Users.GetByEmail(ctx, reporter.Email)
		if err != nil {
			return notFoundAs("user", err)
		}
		if current.IsBlocked {
			return apperrors.NewForbidden("account is blocked")
		}
		if s.freeIssueLimit > 0 && !current.IsPremium && current.IssueCount >= s.freeIssueLimit {
			return apperrors.NewForbidden("free issue limit reached")
		}
		if err := repos.Issues.Create(ctx, issue); err != nil {
			return err
		}
		if err := s.appendEntry(ctx, repos, issue.ID, domain.StatusPending, domain.MessageReported, reporter.Email); err != nil {
			return err
		}
		return repos.Users.AdjustIssueCount(ctx, reporter.Email, 1)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueReported,
		IssueID: issue.ID,
		Actor:   reporter.Email,
		Payload: events.IssueReportedPayload{
			Title:         issue.Title,
			Category:      issue.Category,
			ReporterEmail: issue.ReporterEmail,
		},
	})
	return issue, nil
}

// RequestTransition moves an issue along the staff transition table.
func (s *IssueService) RequestTransition(ctx context.Context, issueID string, requested domain.IssueStatus, actor string) (*domain.Issue, error) {
	var (
		updated *domain.Issue
		from    domain.IssueStatus
		message = domain.TransitionMessage(requested)
	)
	err := s.store.RunInTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		issue, err := repos.Issues.GetByID(ctx, issueID)
		if err != nil {
			return notFoundAs("issue", err)
		}
		from = issue.Status
		if !domain.CanTransition(from, requested) {
			return apperrors.NewInvalidTransition(string(from), string(requested))
		}
		applied, err := repos.Issues.CompareAndSetStatus(ctx, issueID, from, requested)
		if err != nil {
			return err
		}
		if !applied {
			// Another writer moved the issue between the read and the write.
			current, err := repos.Issues.GetByID(ctx, issueID)
			if err != nil {
				return notFoundAs("issue", err)
			}
			return apperrors.NewInvalidTransition(string(current.Status), string(requested))
		}
		if err := s.appendEntry(ctx, repos, issueID, requested, message, actor); err != nil {
			return err
		}
		updated, err = repos.Issues.GetByID(ctx, issueID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueStatusChanged,
		IssueID: issueID,
		Actor:   actor,
		Payload: events.IssueStatusChangedPayload{OldStatus: from, NewStatus: requested, Message: message},
	})
	return updated, nil
}

// Assign hands an unassigned issue to a staff member. Assignment is one-way.
func (s *IssueService) Assign(ctx context.Context, issueID, staffEmail, staffName, actor string) (*domain.Issue, error) {
	staffEmail = normalizeEmail(staffEmail)
	if staffEmail == "" {
		return nil, apperrors.NewValidationError("staff email is required", map[string]any{"field": "staff_email"})
	}
	staffName = strings.TrimSpace(staffName)

	var updated *domain.Issue
	err := s.store.RunInTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		issue, err := repos.Issues.GetByID(ctx, issueID)
		if err != nil {
			return notFoundAs("issue", err)
		}
		if issue.IsAssigned() {
			return apperrors.NewAlreadyAssigned(issueID)
		}
		applied, err := repos.Issues.Assign(ctx, issueID, domain.StaffAssignment{
			Email:      staffEmail,
			Name:       staffName,
			AssignedAt: s.now(),
		})
		if err != nil {
			return err
		}
		if !applied {
			return apperrors.NewAlreadyAssigned(issueID)
		}
		if err := s.appendEntry(ctx, repos, issueID, domain.StatusPending, domain.MessageAssigned, actor); err != nil {
			return err
		}
		updated, err = repos.Issues.GetByID(ctx, issueID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueAssigned,
		IssueID: issueID,
		Actor:   actor,
		Payload: events.IssueAssignedPayload{StaffEmail: staffEmail, StaffName: staffName},
	})
	return updated, nil
}

// Reject sets an issue to Rejected regardless of its current status.
func (s *IssueService) Reject(ctx context.Context, issueID, actor string) (*domain.Issue, error) {
	var (
		updated *domain.Issue
		from    domain.IssueStatus
	)
	err := s.store.RunInTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		issue, err := repos.Issues.GetByID(ctx, issueID)
		if err != nil {
			return notFoundAs("issue", err)
		}
		from = issue.Status
		if err := repos.Issues.SetStatus(ctx, issueID, domain.StatusRejected); err != nil {
			return notFoundAs("issue", err)
		}
		if err := s.appendEntry(ctx, repos, issueID, domain.StatusRejected, domain.MessageRejected, actor); err != nil {
			return err
		}
		updated, err = repos.Issues.GetByID(ctx, issueID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueRejected,
		IssueID: issueID,
		Actor:   actor,
		Payload: events.IssueRejectedPayload{OldStatus: from},
	})
	return updated, nil
}

// Delete removes an issue owned by reporterEmail and decrements their counter.
// Timeline entries are kept.
func (s *IssueService) Delete(ctx context.Context, issueID, reporterEmail string) error {
	reporterEmail = normalizeEmail(reporterEmail)
	err := s.store.RunInTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		issue, err := repos.Issues.GetByID(ctx, issueID)
		if err != nil {
			return notFoundAs("issue", err)
		}
		if !strings.EqualFold(issue.ReporterEmail, reporterEmail) {
			return apperrors.NewForbidden("only the reporter may delete this issue")
		}
		if err := repos.Users.AdjustIssueCount(ctx, issue.ReporterEmail, -1); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return notFoundAs("issue", repos.Issues.Delete(ctx, issueID))
	})
	if err != nil {
		return err
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueDeleted,
		IssueID: issueID,
		Actor:   reporterEmail,
		Payload: events.IssueDeletedPayload{ReporterEmail: reporterEmail},
	})
	return nil
}

// Upvote records voter's vote once.
func (s *IssueService) Upvote(ctx context.Context, issueID, voter string) (*domain.Issue, error) {
	voter = normalizeEmail(voter)
	if voter == "" {
		return nil, apperrors.NewValidationError("voter is required", nil)
	}
	issues := s.store.Repos().Issues

	issue, err := issues.GetByID(ctx, issueID)
	if err != nil {
		return nil, notFoundAs("issue", err)
	}
	if issue.HasVoted(voter) {
		return nil, apperrors.NewAlreadyVoted(issueID)
	}
	applied, err := issues.AddVoter(ctx, issueID, voter)
	if err != nil {
		return nil, err
	}
	if !applied {
		if _, err := issues.GetByID(ctx, issueID); err != nil {
			return nil, notFoundAs("issue", err)
		}
		return nil, apperrors.NewAlreadyVoted(issueID)
	}
	updated, err := issues.GetByID(ctx, issueID)
	if err != nil {
		return nil, notFoundAs("issue", err)
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueUpvoted,
		IssueID: issueID,
		Actor:   voter,
		Payload: events.IssueUpvotedPayload{Voter: voter, Upvotes: updated.Upvotes},
	})
	return updated, nil
}

// Boost marks an issue boosted and records a Boosted timeline entry.
func (s *IssueService) Boost(ctx context.Context, issueID, actor string) (*domain.Issue, error) {
	var updated *domain.Issue
	err := s.store.RunInTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		updated, err = s.boostIn(ctx, repos, issueID, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publishBoosted(ctx, issueID, actor)
	return updated, nil
}

// boostIn performs the boost against repos so payment confirmation can share its transaction.
func (s *IssueService) boostIn(ctx context.Context, repos repository.Repositories, issueID, actor string) (*domain.Issue, error) {
	issue, err := repos.Issues.GetByID(ctx, issueID)
	if err != nil {
		return nil, notFoundAs("issue", err)
	}
	if issue.IsBoosted {
		return nil, apperrors.NewConflict("issue already boosted", map[string]any{"issue_id": issueID})
	}
	applied, err := repos.Issues.MarkBoosted(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, apperrors.NewConflict("issue already boosted", map[string]any{"issue_id": issueID})
	}
	if err := s.appendEntry(ctx, repos, issueID, domain.StatusBoosted, domain.MessageBoosted, actor); err != nil {
		return nil, err
	}
	return repos.Issues.GetByID(ctx, issueID)
}

func (s *IssueService) publishBoosted(ctx context.Context, issueID, actor string) {
	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueBoosted,
		IssueID: issueID,
		Actor:   actor,
	})
}

// UpdateIssue lets the reporter edit an issue while it is still Pending.
func (s *IssueService) UpdateIssue(ctx context.Context, issueID, reporterEmail string, patch IssuePatch) (*domain.Issue, error) {
	var updated *domain.Issue
	err := s.store.RunInTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		issue, err := repos.Issues.GetByID(ctx, issueID)
		if err != nil {
			return notFoundAs("issue", err)
		}
		if !strings.EqualFold(issue.ReporterEmail, normalizeEmail(reporterEmail)) {
			return apperrors.NewForbidden("only the reporter may edit this issue")
		}
		if issue.Status != domain.StatusPending {
			return apperrors.NewInvalidState("only pending issues can be edited",
				map[string]any{"current_status": issue.Status})
		}
		if err := applyPatch(issue, patch); err != nil {
			return err
		}
		issue.UpdatedAt = s.now()
		if err := repos.Issues.UpdateDetails(ctx, issue); err != nil {
			return notFoundAs("issue", err)
		}
		updated = issue
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetIssue returns one issue.
func (s *IssueService) GetIssue(ctx context.Context, issueID string) (*domain.Issue, error) {
	issue, err := s.store.Repos().Issues.GetByID(ctx, issueID)
	if err != nil {
		return nil, notFoundAs("issue", err)
	}
	return issue, nil
}

// ListIssues returns a page of issues, boosted first then newest first.
func (s *IssueService) ListIssues(ctx context.Context, query IssueQuery) (*IssuePage, error) {
	filter, err := query.toFilter()
	if err != nil {
		return nil, err
	}
	page, limit := s.pages.clamp(query.Page, query.Limit)
	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	issues := s.store.Repos().Issues
	items, err := issues.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := issues.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &IssuePage{
		Issues:     items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}, nil
}

// Timeline returns the audit entries of an issue in timestamp order. Entries of a
// deleted issue remain readable.
func (s *IssueService) Timeline(ctx context.Context, issueID string) ([]domain.TimelineEntry, error) {
	entries, err := s.store.Repos().Timeline.ListByIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		if _, err := s.store.Repos().Issues.GetByID(ctx, issueID); err != nil {
			return nil, notFoundAs("issue", err)
		}
	}
	return entries, nil
}

func (s *IssueService) appendEntry(ctx context.Context, repos repository.Repositories, issueID string, status domain.IssueStatus, message, actor string) error {
	return repos.Timeline.Append(ctx, &domain.TimelineEntry{
		ID:        uuid.Must(uuid.NewV7()).String(),
		IssueID:   issueID,
		Status:    status,
		Message:   message,
		UpdatedBy: actor,
		CreatedAt: s.now(),
	})
}

func (s *IssueService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("issue_id", event.IssueID),
			zap.Error(err))
	}
}

func validateReport(input ReportInput) (domain.IssueCategory, error) {
	missing := []string{}
	if strings.TrimSpace(input.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(input.Description) == "" {
		missing = append(missing, "description")
	}
	if strings.TrimSpace(input.Location) == "" {
		missing = append(missing, "location")
	}
	if strings.TrimSpace(input.Category) == "" {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		return "", apperrors.NewValidationError("missing required fields", map[string]any{"fields": missing})
	}
	category, ok := domain.ParseIssueCategory(strings.TrimSpace(input.Category))
	if !ok {
		return "", apperrors.NewValidationError("invalid category", map[string]any{"category": input.Category})
	}
	return category, nil
}

func applyPatch(issue *domain.Issue, patch IssuePatch) error {
	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return apperrors.NewValidationError("title cannot be empty", map[string]any{"field": "title"})
		}
		issue.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		if strings.TrimSpace(*patch.Description) == "" {
			return apperrors.NewValidationError("description cannot be empty", map[string]any{"field": "description"})
		}
		issue.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Category != nil {
		category, ok := domain.ParseIssueCategory(strings.TrimSpace(*patch.Category))
		if !ok {
			return apperrors.NewValidationError("invalid category", map[string]any{"category": *patch.Category})
		}
		issue.Category = category
	}
	if patch.Location != nil {
		if strings.TrimSpace(*patch.Location) == "" {
			return apperrors.NewValidationError("location cannot be empty", map[string]any{"field": "location"})
		}
		issue.Location = strings.TrimSpace(*patch.Location)
	}
	if patch.ImageURL != nil {
		issue.ImageURL = strings.TrimSpace(*patch.ImageURL)
	}
	return nil
}

func (q IssueQuery) toFilter() (repository.IssueFilter, error) {
	filter := repository.IssueFilter{
		Boosted:    q.Boosted,
		SearchTerm: q.Search,
	}
	if value, ok := queryValue(q.Status); ok {
		status, valid := domain.ParseIssueStatus(value)
		if !valid {
			return filter, apperrors.NewValidationError("invalid status", map[string]any{"status": value})
		}
		filter.Statuses = []domain.IssueStatus{status}
	}
	if value, ok := queryValue(q.Category); ok {
		category, valid := domain.ParseIssueCategory(value)
		if !valid {
			return filter, apperrors.NewValidationError("invalid category", map[string]any{"category": value})
		}
		filter.Category = &category
	}
	if q.ReporterEmail != nil {
		email := normalizeEmail(*q.ReporterEmail)
		filter.ReporterEmail = &email
	}
	if q.AssigneeEmail != nil {
		email := normalizeEmail(*q.AssigneeEmail)
		filter.AssigneeEmail = &email
	}
	return filter, nil
}

// queryValue treats an empty value or "all" as no filter.
func queryValue(v *string) (string, bool) {
	if v == nil {
		return "", false
	}
	value := strings.TrimSpace(*v)
	if value == "" || strings.EqualFold(value, "all") {
		return "", false
	}
	return value, true
}

// notFoundAs converts repository.ErrNotFound into a NotFound domain error for resource.
func notFoundAs(resource string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, nil)
	}
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
