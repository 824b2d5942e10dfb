package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicfix/civicfix-server/internal/domain"
)

func seedIssue(t *testing.T, store *MemoryStore, id string, created time.Time, boosted bool) {
	t.Helper()
	err := store.Repos().Issues.Create(context.Background(), &domain.Issue{
		ID:            id,
		Title:         "Issue " + id,
		Description:   "pothole on main street",
		Category:      domain.CategoryRoad,
		ReporterEmail: "citizen@example.com",
		Status:        domain.StatusPending,
		IsBoosted:     boosted,
		CreatedAt:     created,
	})
	require.NoError(t, err)
}

func TestMemoryListOrdersBoostedFirstThenNewest(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seedIssue(t, store, "old", base, false)
	seedIssue(t, store, "new", base.Add(2*time.Hour), false)
	seedIssue(t, store, "boosted-old", base.Add(-time.Hour), true)

	issues, err := store.Repos().Issues.List(context.Background(), IssueFilter{})
	require.NoError(t, err)
	require.Len(t, issues, 3)
	assert.Equal(t, []string{"boosted-old", "new", "old"}, []string{issues[0].ID, issues[1].ID, issues[2].ID})

	page, err := store.Repos().Issues.List(context.Background(), IssueFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "old", page[0].ID)
}

func TestMemoryFilterBySearchAndStatus(t *testing.T) {
	store := NewMemoryStore()
	seedIssue(t, store, "a", time.Now(), false)
	term := "POTHOLE"
	count, err := store.Repos().Issues.Count(context.Background(), IssueFilter{SearchTerm: &term})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	count, err = store.Repos().Issues.Count(context.Background(), IssueFilter{Statuses: []domain.IssueStatus{domain.StatusClosed}})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMemoryConditionalWrites(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seedIssue(t, store, "x", time.Now(), false)
	issues := store.Repos().Issues

	ok, err := issues.CompareAndSetStatus(ctx, "x", domain.StatusWorking, domain.StatusResolved)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = issues.CompareAndSetStatus(ctx, "x", domain.StatusPending, domain.StatusInProgress)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = issues.AddVoter(ctx, "x", "v@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = issues.AddVoter(ctx, "x", "v@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = issues.Assign(ctx, "x", domain.StaffAssignment{Email: "s1@example.com", Name: "One"})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = issues.Assign(ctx, "x", domain.StaffAssignment{Email: "s2@example.com", Name: "Two"})
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := issues.GetByID(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, got.Status)
	assert.Equal(t, 1, got.Upvotes)
	assert.Len(t, got.Voters, 1)
	assert.Equal(t, "s1@example.com", got.AssignedStaff.Email)
}

func TestMemoryReadsReturnCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seedIssue(t, store, "x", time.Now(), false)
	_, err := store.Repos().Issues.AddVoter(ctx, "x", "v@example.com")
	require.NoError(t, err)

	got, err := store.Repos().Issues.GetByID(ctx, "x")
	require.NoError(t, err)
	got.Voters[0] = "tampered"

	again, err := store.Repos().Issues.GetByID(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "v@example.com", again.Voters[0])
}

func TestMemoryTransactionRollsBack(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.RunInTransaction(ctx, func(ctx context.Context, repos Repositories) error {
		require.NoError(t, repos.Issues.Create(ctx, &domain.Issue{ID: "tx", Status: domain.StatusPending}))
		require.NoError(t, repos.Timeline.Append(ctx, &domain.TimelineEntry{ID: "e1", IssueID: "tx"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Repos().Issues.GetByID(ctx, "tx")
	assert.ErrorIs(t, err, ErrNotFound)
	entries, err := store.Repos().Timeline.ListByIssue(ctx, "tx")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMemoryIssueCountClampsAtZero(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	users := store.Repos().Users
	require.NoError(t, users.Create(ctx, &domain.User{ID: "u1", Email: "c@example.com", Role: domain.RoleCitizen}))
	assert.ErrorIs(t, users.Create(ctx, &domain.User{ID: "u2", Email: "C@example.com"}), ErrDuplicate)

	require.NoError(t, users.AdjustIssueCount(ctx, "c@example.com", 1))
	require.NoError(t, users.AdjustIssueCount(ctx, "c@example.com", -1))
	require.NoError(t, users.AdjustIssueCount(ctx, "c@example.com", -1))

	u, err := users.GetByEmail(ctx, "c@example.com")
	require.NoError(t, err)
	assert.Zero(t, u.IssueCount)
	assert.ErrorIs(t, users.AdjustIssueCount(ctx, "missing@example.com", 1), ErrNotFound)
}

func TestMemoryPaymentsUniqueBySession(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	payments := store.Repos().Payments
	require.NoError(t, payments.Create(ctx, &domain.Payment{ID: "p1", SessionID: "cs_1", Amount: 500}))
	assert.ErrorIs(t, payments.Create(ctx, &domain.Payment{ID: "p2", SessionID: "cs_1", Amount: 500}), ErrDuplicate)
	require.NoError(t, payments.Create(ctx, &domain.Payment{ID: "p3", SessionID: "cs_2", Amount: 1000}))

	summary, err := payments.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, PaymentSummary{Count: 2, Revenue: 1500}, summary)
}
