package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicfix/civicfix-server/internal/config"
	"github.com/civicfix/civicfix-server/internal/domain"
	"github.com/civicfix/civicfix-server/internal/events"
	"github.com/civicfix/civicfix-server/internal/repository"
	apperrors "github.com/civicfix/civicfix-server/pkg/util"
)

type fixture struct {
	store  *repository.MemoryStore
	issues *IssueService
	events *eventLog
}

type eventLog struct {
	mu    sync.Mutex
	types []events.EventType
}

func (l *eventLog) record(_ context.Context, e events.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.types = append(l.types, e.Type)
	return nil
}

func newFixture(t *testing.T, limits config.LimitsConfig) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	dispatcher := events.NewDispatcher()
	log := &eventLog{}
	for _, et := range events.AllEventTypes() {
		dispatcher.Subscribe(et, log.record)
	}
	return &fixture{
		store:  store,
		issues: NewIssueService(IssueDependencies{Store: store, Dispatcher: dispatcher, Limits: limits}),
		events: log,
	}
}

func (f *fixture) citizen(t *testing.T, email string) *domain.User {
	t.Helper()
	user := &domain.User{ID: "id-" + email, Name: "Citizen", Email: email, Role: domain.RoleCitizen}
	require.NoError(t, f.store.Repos().Users.Create(context.Background(), user))
	return user
}

func (f *fixture) report(t *testing.T, reporter *domain.User) *domain.Issue {
	t.Helper()
	issue, err := f.issues.Report(context.Background(), ReportInput{
		Title:       "Broken streetlight",
		Description: "Dark at night",
		Category:    "Streetlight",
		Location:    "5th Avenue",
	}, reporter)
	require.NoError(t, err)
	return issue
}

func (f *fixture) timeline(t *testing.T, issueID string) []domain.TimelineEntry {
	t.Helper()
	entries, err := f.issues.Timeline(context.Background(), issueID)
	require.NoError(t, err)
	return entries
}

func TestReportCreatesPendingIssueWithEntryAndCounter(t *testing.T) {
	f := newFixture(t, config.LimitsConfig{})
	reporter := f.citizen(t, "c@example.com")

	issue := f.report(t, reporter)
	assert.Equal(t, domain.StatusPending, issue.Status)
	assert.Zero(t, issue.Upvotes)
	assert.Empty(t, issue.Voters)
	assert.False(t, issue.IsBoosted)

	entries := f.timeline(t, issue.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.StatusPending, entries[0].Status)
	assert.Equal(t, "Issue reported by citizen", entries[0].Message)
	assert.Equal(t, "c@example.com", entries[0].UpdatedBy)

	user, err := f.store.Repos().Users.GetByEmail(context.Background(), "c@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, user.IssueCount)
	assert.Equal(t, []events.EventType{events.EventIssueReported}, f.events.types)
}

func TestReportValidation(t *testing.T) {
	f := newFixture(t, config.LimitsConfig{})
	reporter := f.citizen(t, "c@example.com")

	_, err := f.issues.Report(context.Background(), ReportInput{Title: "x"}, reporter)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	_, err = f.issues.Report(context.Background(), ReportInput{
		Title: "x", Description: "y", Location: "z", Category: "Potholes",
	}, reporter)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	count, err := f.store.Repos().Issues.Count(context.Background(), repository.IssueFilter{})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestReportEnforcesFreeLimitAndBlock(t *testing.T) {
	f := newFixture(t, config.LimitsConfig{FreeIssueLimit: 1})
	ctx := context.Background()
	reporter := f.citizen(t, "c@example.com")
	f.report(t, reporter)

	_, err := f.issues.Report(ctx, ReportInput{Title: "a", Description: "b", Location: "c", Category: "Road"}, reporter)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	require.NoError(t, f.store.Repos().Users.SetPremium(ctx, "c@example.com", true))
	f.report(t, reporter)

	require.NoError(t, f.store.Repos().Users.SetBlocked(ctx, reporter.ID, true))
	_, err = f.issues.Report(ctx, ReportInput{Title: "a", Description: "b", Location: "c", Category: "Road"}, reporter)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestLegalPathAppendsOneEntryPerTransition(t *testing.T) {
	f := newFixture(t, config.LimitsConfig{})
	issue := f.report(t, f.citizen(t, "c@example.com"))
	path := []domain.IssueStatus{domain.StatusInProgress, domain.StatusWorking, domain.StatusResolved, domain.StatusClosed}

	for n, next := range path {
		updated, err := f.issues.RequestTransition(context.Background(), issue.ID, next, "staff@example.com")
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)

		entries := f.timeline(t, issue.ID)
		require.Len(t, entries, n+2)
		last := entries[len(entries)-1]
		assert.Equal(t, next, last.Status)
		assert.Equal(t, domain.TransitionMessage(next), last.Message)
		assert.Equal(t, "staff@example.com", last.UpdatedBy)
	}

	_, err := f.issues.RequestTransition(context.Background(), issue.ID, domain.StatusPending, "staff@example.com")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
}

func TestIllegalTransitionsLeaveStateUnchanged(t *testing.T) {
	for _, from := range domain.IssueStatuses() {
		for _, to := range append(domain.IssueStatuses(), domain.StatusBoosted, domain.IssueStatus("Archived")) {
			if domain.CanTransition(from, to) {
				continue
			}
			f := newFixture(t, config.LimitsConfig{})
			issue := f.report(t, f.citizen(t, "c@example.com"))
			require.NoError(t, f.store.Repos().Issues.SetStatus(context.Background(), issue.ID, from))

			_, err := f.issues.RequestTransition(context.Background(), issue.ID, to, "staff")
			require.Truef(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition), "%s -> %s", from, to)

			got, err := f.issues.GetIssue(context.Background(), issue.ID)
			require.NoError(t, err)
			assert.Equal(t, from, got.Status)
			assert.Len(t, f.timeline(t, issue.ID), 1)
		}
	}
}

func TestSkippingWorkingFails(t *testing.T) {
	f := newFixture(t, config.LimitsConfig{})
	ctx := context.Background()
	issue := f.report(t, f.citizen(t, "c@example.com"))
	assert.Len(t, f.timeline(t, issue.ID), 1)

	_, err := f.issues.RequestTransition(ctx, issue.ID, domain.StatusInProgress, "staff")
	require.NoError(t, err)
	assert.Len(t, f.timeline(t, issue.ID), 2)

	_, err = f.issues.RequestTransition(ctx, issue.ID, domain.StatusResolved, "staff")
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeInvalidTransition, domainErr.Code)
	assert.Equal(t, "In-progress", domainErr.Details["current_status"])

	got, err := f.issues.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, got.Status)
	assert.Len(t, f.timeline(t, issue.ID), 2)
}

func TestTransitionUnknownIssue(t *testing.T) {
	f := newFixture(t, config.LimitsConfig{})
	_, err := f.issues.RequestTransition(context.Background(), "missing", domain.StatusInProgress, "staff")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	_, err = f.issues.Timeline(context.Background(), "missing")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestConcurrentTransitionsRecordOnce(t *testing.T) {
	f := newFixture(t, config.LimitsConfig{})
	issue := f.report(t, f.citizen(t, "c@example.com"))

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.issues.RequestTransition(context.Background(), issue.ID, domain.StatusInProgress, "staff")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, f.timeline(t, issue.ID), 2)
}

func TestDoubleUpvote(t *testing.T) {
	f := newFixture(t, config.LimitsConfig{})
	ctx := context.Background()
	issue := f.report(t, f.citizen(t, "c@example.com"))

	updated, err := f.issues.Upvote(ctx, issue.ID, "v@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Upvotes)

	_, err = f.issues.Upvote(ctx, issue.ID, "V@example.com")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAlreadyVoted))

	got, err := f.issues.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Upvotes)
	assert.Equal(t, []string{"v@example.com"}, got.Voters)

	_, err = f.issues.Upvote(ctx, "missing", "v@example.com")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestConcurrentUpvotesCountEachVoterOnce(t *testing.T) {
	f := newFixture(t, config.LimitsConfig{})
	issue := f.report(t, f.citizen(t, "c@example.com"))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.issues.Upvote(context.Background(), issue.ID, "same@example.com")
		}()
	}
	wg.Wait()

	got, err := f.issues.GetIssue(context.Background(), issue.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Upvotes)
	assert.Len(t, got.Voters, 1)
}

func TestDoubleAssignKeepsFirst(t *testing.T) {
	f := newFixture(t, config.LimitsConfig{})
	ctx := context.Background()
	issue := f.report(t, f.citizen(t, "c@example.com"))

	updated, err := f.issues.Assign(ctx, issue.ID, "first@example.com", "First", "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, "first@example.com", updated.AssignedStaff.Email)

	_, err = f.issues.Assign(ctx, issue.ID, "second@example.com", "Second", "admin@example.com")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAlreadyAssigned))

	got, err := f.issues.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, "first@example.com", got.AssignedStaff.Email)
	assert.Equal(t, "First", got.AssignedStaff.Name)

	entries := f.timeline(t, issue.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.StatusPending, entries[1].Status)
	assert.Equal(t, "Issue assigned to staff", entries[1].Message)
}

func TestRejectPendingIssue(t *testing.T) {
	f := newFixture(t, config.LimitsConfig{})
	issue := f.report(t, f.citizen(t, "c@example.com"))

	updated, err := f.issues.Reject(context.Background(), issue.ID, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, updated.Status)

	entries := f.timeline(t, issue.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.StatusRejected, entries[1].Status)
	assert.Equal(t, "Issue rejected by admin", entries[1].Message)
}

func TestRejectIsUnconditional(t *testing.T) {
	f := newFixture(t, config.LimitsConfig{})
	issue := f.report(t, f.citizen(t, "c@example.com"))
	require.NoError(t, f.store.Repos().Issues.SetStatus(context.Background(), issue.ID, domain.StatusClosed))

	updated, err := f.issues.Reject(context.Background(), issue.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, updated.Status)
}

func TestDeleteDecrementsCounterAndKeepsTimeline(t *testing.T) {
	f := newFixture(t, config.LimitsConfig{})
	ctx := context.Background()
	reporter := f.citizen(t, "c@example.com")
	f.report(t, reporter)
	f.report(t, reporter)
	issue := f.report(t, reporter)

	user, err := f.store.Repos().Users.GetByEmail(ctx, reporter.Email)
	require.NoError(t, err)
	require.Equal(t, 3, user.IssueCount)

	err = f.issues.Delete(ctx, issue.ID, "someone@example.com")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	require.NoError(t, f.issues.Delete(ctx, issue.ID, reporter.Email))

	user, err = f.store.Repos().Users.GetByEmail(ctx, reporter.Email)
	require.NoError(t, err)
	assert.Equal(t, 2, user.IssueCount)

	_, err = f.issues.GetIssue(ctx, issue.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	assert.Len(t, f.timeline(t, issue.ID), 1)

	err = f.issues.Delete(ctx, issue.ID, reporter.Email)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestBoostOrdersFirstAndRecordsEntry(t *testing.T) {
	f := newFixture(t, config.LimitsConfig{})
	ctx := context.Background()
	reporter := f.citizen(t, "c@example.com")
	older := f.report(t, reporter)
	f.report(t, reporter)

	boosted, err := f.issues.Boost(ctx, older.ID, "c@example.com")
	require.NoError(t, err)
	assert.True(t, boosted.IsBoosted)
	assert.Equal(t, domain.StatusPending, boosted.Status)

	_, err = f.issues.Boost(ctx, older.ID, "c@example.com")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	entries := f.timeline(t, older.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.StatusBoosted, entries[1].Status)
	assert.Equal(t, "Issue boosted by citizen payment", entries[1].Message)

	page, err := f.issues.ListIssues(ctx, IssueQuery{})
	require.NoError(t, err)
	require.Len(t, page.Issues, 2)
	assert.Equal(t, older.ID, page.Issues[0].ID)
}

func TestUpdateIssueOnlyWhilePending(t *testing.T) {
	f := newFixture(t, config.LimitsConfig{})
	ctx := context.Background()
	reporter := f.citizen(t, "c@example.com")
	issue := f.report(t, reporter)

	title := "Two broken streetlights"
	updated, err := f.issues.UpdateIssue(ctx, issue.ID, reporter.Email, IssuePatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, issue.Description, updated.Description)
	assert.Len(t, f.timeline(t, issue.ID), 1)

	_, err = f.issues.UpdateIssue(ctx, issue.ID, "other@example.com", IssuePatch{Title: &title})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = f.issues.RequestTransition(ctx, issue.ID, domain.StatusInProgress, "staff")
	require.NoError(t, err)
	_, err = f.issues.UpdateIssue(ctx, issue.ID, reporter.Email, IssuePatch{Title: &title})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
}

func TestListIssuesPagingAndFilters(t *testing.T) {
	f := newFixture(t, config.LimitsConfig{DefaultPageLimit: 10, MaxPageLimit: 100})
	ctx := context.Background()
	reporter := f.citizen(t, "c@example.com")
	for i := 0; i < 3; i++ {
		f.report(t, reporter)
	}

	page, err := f.issues.ListIssues(ctx, IssueQuery{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Issues, 1)

	page, err = f.issues.ListIssues(ctx, IssueQuery{Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 10, page.Limit)
	assert.Equal(t, 1, page.Page)

	all := "all"
	search := "STREETLIGHT"
	page, err = f.issues.ListIssues(ctx, IssueQuery{Status: &all, Search: &search})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)

	bad := "Finished"
	_, err = f.issues.ListIssues(ctx, IssueQuery{Status: &bad})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}
