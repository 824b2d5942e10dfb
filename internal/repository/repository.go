package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/civicfix/civicfix-server/internal/domain"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key (user email, payment session) already exists.
	ErrDuplicate = errors.New("duplicate record")
)

const defaultListLimit = 20

// IssueFilter captures listing parameters. Nil fields do not filter.
type IssueFilter struct {
	Statuses      []domain.IssueStatus
	Category      *domain.IssueCategory
	ReporterEmail *string
	AssigneeEmail *string
	Boosted       *bool
	SearchTerm    *string
	Limit         int
	Offset        int
}

// search returns the trimmed, lower-cased search term or "".
func (f IssueFilter) search() string {
	if f.SearchTerm == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*f.SearchTerm))
}

// UserFilter captures user listing parameters.
type UserFilter struct {
	Role   *domain.Role
	Limit  int
	Offset int
}

// PaymentFilter captures payment listing parameters.
type PaymentFilter struct {
	UserEmail *string
	Limit     int
	Offset    int
}

// PaymentSummary aggregates confirmed payments.
type PaymentSummary struct {
	Count   int64
	Revenue int64
}

// IssueRepository persists issue snapshots. Conditional writes report whether they applied.
type IssueRepository interface {
	Create(ctx context.Context, issue *domain.Issue) error
	GetByID(ctx context.Context, id string) (*domain.Issue, error)
	// List orders boosted issues first, then newest first.
	List(ctx context.Context, filter IssueFilter) ([]domain.Issue, error)
	Count(ctx context.Context, filter IssueFilter) (int64, error)
	UpdateDetails(ctx context.Context, issue *domain.Issue) error
	// CompareAndSetStatus moves the issue to "to" only while its status is still "from".
	CompareAndSetStatus(ctx context.Context, id string, from, to domain.IssueStatus) (bool, error)
	SetStatus(ctx context.Context, id string, to domain.IssueStatus) error
	// Assign sets the assignee only while none is set.
	Assign(ctx context.Context, id string, assignment domain.StaffAssignment) (bool, error)
	// AddVoter increments the vote count and records voter unless voter already voted.
	AddVoter(ctx context.Context, id, voter string) (bool, error)
	// MarkBoosted flips isBoosted from false to true.
	MarkBoosted(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}

// TimelineRepository is the append-only audit log. Entries are never updated or removed.
type TimelineRepository interface {
	Append(ctx context.Context, entry *domain.TimelineEntry) error
	// ListByIssue returns entries in timestamp order.
	ListByIssue(ctx context.Context, issueID string) ([]domain.TimelineEntry, error)
}

// UserRepository persists accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
	Count(ctx context.Context, filter UserFilter) (int64, error)
	UpdateRole(ctx context.Context, id string, role domain.Role) error
	SetBlocked(ctx context.Context, id string, blocked bool) error
	SetPremium(ctx context.Context, email string, premium bool) error
	// AdjustIssueCount adds delta to the reported-issue counter, never going below zero.
	AdjustIssueCount(ctx context.Context, email string, delta int) error
}

// PaymentRepository persists confirmed payments.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetBySessionID(ctx context.Context, sessionID string) (*domain.Payment, error)
	List(ctx context.Context, filter PaymentFilter) ([]domain.Payment, error)
	Summary(ctx context.Context) (PaymentSummary, error)
}

// Repositories bundles the repositories bound to one store handle or transaction.
type Repositories struct {
	Issues   IssueRepository
	Timeline TimelineRepository
	Users    UserRepository
	Payments PaymentRepository
}

// Store is a persistence backend.
type Store interface {
	Repos() Repositories
	// RunInTransaction runs fn so that all of its writes commit together or not at all.
	// Repositories passed to fn must be used with the ctx passed to fn.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

var nowUTC = func() time.Time { return time.Now().UTC() }

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
