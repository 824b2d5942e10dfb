package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/civicfix/civicfix-server/internal/domain"
)

// MemoryStore keeps all records in process memory. Transactions are serialized and
// roll back to a snapshot on error.
type MemoryStore struct {
	mu    sync.RWMutex
	txMu  sync.Mutex
	state *memoryState
}

type memoryState struct {
	issues   map[string]domain.Issue
	timeline []domain.TimelineEntry
	users    map[string]domain.User
	payments []domain.Payment
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memoryState{
		issues: make(map[string]domain.Issue),
		users:  make(map[string]domain.User),
	}}
}

func (s *memoryState) clone() *memoryState {
	out := &memoryState{
		issues:   make(map[string]domain.Issue, len(s.issues)),
		timeline: append([]domain.TimelineEntry(nil), s.timeline...),
		users:    make(map[string]domain.User, len(s.users)),
		payments: append([]domain.Payment(nil), s.payments...),
	}
	for id, issue := range s.issues {
		out.issues[id] = copyIssue(issue)
	}
	for id, user := range s.users {
		out.users[id] = user
	}
	return out
}

func copyIssue(issue domain.Issue) domain.Issue {
	issue.Voters = append([]string(nil), issue.Voters...)
	if issue.AssignedStaff != nil {
		assignment := *issue.AssignedStaff
		issue.AssignedStaff = &assignment
	}
	return issue
}

// Repos implements Store.
func (s *MemoryStore) Repos() Repositories {
	return Repositories{
		Issues:   &memoryIssues{s: s},
		Timeline: &memoryTimeline{s: s},
		Users:    &memoryUsers{s: s},
		Payments: &memoryPayments{s: s},
	}
}

// RunInTransaction implements Store.
func (s *MemoryStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()

	if err := fn(ctx, s.Repos()); err != nil {
		s.mu.Lock()
		s.state = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close implements Store.
func (s *MemoryStore) Close(context.Context) error { return nil }

type memoryIssues struct{ s *MemoryStore }

func (r *memoryIssues) Create(_ context.Context, issue *domain.Issue) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.state.issues[issue.ID]; exists {
		return ErrDuplicate
	}
	r.s.state.issues[issue.ID] = copyIssue(*issue)
	return nil
}

func (r *memoryIssues) GetByID(_ context.Context, id string) (*domain.Issue, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	issue, ok := r.s.state.issues[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := copyIssue(issue)
	return &out, nil
}

func (r *memoryIssues) matching(filter IssueFilter) []domain.Issue {
	search := filter.search()
	var out []domain.Issue
	for _, issue := range r.s.state.issues {
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, issue.Status) {
			continue
		}
		if filter.Category != nil && issue.Category != *filter.Category {
			continue
		}
		if filter.ReporterEmail != nil && issue.ReporterEmail != *filter.ReporterEmail {
			continue
		}
		if filter.AssigneeEmail != nil && (issue.AssignedStaff == nil || issue.AssignedStaff.Email != *filter.AssigneeEmail) {
			continue
		}
		if filter.Boosted != nil && issue.IsBoosted != *filter.Boosted {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(issue.Title), search) &&
			!strings.Contains(strings.ToLower(issue.Description), search) {
			continue
		}
		out = append(out, copyIssue(issue))
	}
	return out
}

func (r *memoryIssues) List(_ context.Context, filter IssueFilter) ([]domain.Issue, error) {
	r.s.mu.RLock()
	issues := r.matching(filter)
	r.s.mu.RUnlock()

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].IsBoosted != issues[j].IsBoosted {
			return issues[i].IsBoosted
		}
		if !issues[i].CreatedAt.Equal(issues[j].CreatedAt) {
			return issues[i].CreatedAt.After(issues[j].CreatedAt)
		}
		return issues[i].ID < issues[j].ID
	})

	limit, offset := normalizePage(filter.Limit, filter.Offset)
	if offset >= len(issues) {
		return []domain.Issue{}, nil
	}
	end := offset + limit
	if end > len(issues) {
		end = len(issues)
	}
	return issues[offset:end], nil
}

func (r *memoryIssues) Count(_ context.Context, filter IssueFilter) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.matching(filter))), nil
}

func (r *memoryIssues) update(id string, apply func(issue *domain.Issue) bool) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	issue, ok := r.s.state.issues[id]
	if !ok {
		return false, ErrNotFound
	}
	issue = copyIssue(issue)
	if !apply(&issue) {
		return false, nil
	}
	r.s.state.issues[id] = issue
	return true, nil
}

func (r *memoryIssues) UpdateDetails(_ context.Context, patch *domain.Issue) error {
	_, err := r.update(patch.ID, func(issue *domain.Issue) bool {
		issue.Title = patch.Title
		issue.Description = patch.Description
		issue.Category = patch.Category
		issue.Location = patch.Location
		issue.ImageURL = patch.ImageURL
		issue.UpdatedAt = patch.UpdatedAt
		return true
	})
	return err
}

func (r *memoryIssues) CompareAndSetStatus(_ context.Context, id string, from, to domain.IssueStatus) (bool, error) {
	applied, err := r.update(id, func(issue *domain.Issue) bool {
		if issue.Status != from {
			return false
		}
		issue.Status = to
		issue.UpdatedAt = nowUTC()
		return true
	})
	if err == ErrNotFound {
		return false, nil
	}
	return applied, err
}

func (r *memoryIssues) SetStatus(_ context.Context, id string, to domain.IssueStatus) error {
	_, err := r.update(id, func(issue *domain.Issue) bool {
		issue.Status = to
		issue.UpdatedAt = nowUTC()
		return true
	})
	return err
}

func (r *memoryIssues) Assign(_ context.Context, id string, assignment domain.StaffAssignment) (bool, error) {
	applied, err := r.update(id, func(issue *domain.Issue) bool {
		if issue.IsAssigned() {
			return false
		}
		a := assignment
		issue.AssignedStaff = &a
		issue.UpdatedAt = nowUTC()
		return true
	})
	if err == ErrNotFound {
		return false, nil
	}
	return applied, err
}

func (r *memoryIssues) AddVoter(_ context.Context, id, voter string) (bool, error) {
	applied, err := r.update(id, func(issue *domain.Issue) bool {
		if issue.HasVoted(voter) {
			return false
		}
		issue.Voters = append(issue.Voters, voter)
		issue.Upvotes++
		return true
	})
	if err == ErrNotFound {
		return false, nil
	}
	return applied, err
}

func (r *memoryIssues) MarkBoosted(_ context.Context, id string) (bool, error) {
	applied, err := r.update(id, func(issue *domain.Issue) bool {
		if issue.IsBoosted {
			return false
		}
		issue.IsBoosted = true
		issue.UpdatedAt = nowUTC()
		return true
	})
	if err == ErrNotFound {
		return false, nil
	}
	return applied, err
}

func (r *memoryIssues) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.state.issues[id]; !ok {
		return ErrNotFound
	}
	delete(r.s.state.issues, id)
	return nil
}

type memoryTimeline struct{ s *MemoryStore }

func (r *memoryTimeline) Append(_ context.Context, entry *domain.TimelineEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.state.timeline = append(r.s.state.timeline, *entry)
	return nil
}

func (r *memoryTimeline) ListByIssue(_ context.Context, issueID string) ([]domain.TimelineEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.TimelineEntry{}
	for _, entry := range r.s.state.timeline {
		if entry.IssueID == issueID {
			out = append(out, entry)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type memoryUsers struct{ s *MemoryStore }

func (r *memoryUsers) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.state.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return ErrDuplicate
		}
	}
	r.s.state.users[user.ID] = *user
	return nil
}

func (r *memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	user, ok := r.s.state.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (r *memoryUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, user := range r.s.state.users {
		if strings.EqualFold(user.Email, email) {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryUsers) matching(filter UserFilter) []domain.User {
	var out []domain.User
	for _, user := range r.s.state.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		out = append(out, user)
	}
	return out
}

func (r *memoryUsers) List(_ context.Context, filter UserFilter) ([]domain.User, error) {
	r.s.mu.RLock()
	users := r.matching(filter)
	r.s.mu.RUnlock()

	sort.SliceStable(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.After(users[j].CreatedAt)
		}
		return users[i].Email < users[j].Email
	})
	limit, offset := normalizePage(filter.Limit, filter.Offset)
	if offset >= len(users) {
		return []domain.User{}, nil
	}
	end := offset + limit
	if end > len(users) {
		end = len(users)
	}
	return users[offset:end], nil
}

func (r *memoryUsers) Count(_ context.Context, filter UserFilter) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.matching(filter))), nil
}

func (r *memoryUsers) updateWhere(match func(domain.User) bool, apply func(*domain.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, user := range r.s.state.users {
		if match(user) {
			apply(&user)
			user.UpdatedAt = nowUTC()
			r.s.state.users[id] = user
			return nil
		}
	}
	return ErrNotFound
}

func (r *memoryUsers) UpdateRole(_ context.Context, id string, role domain.Role) error {
	return r.updateWhere(func(u domain.User) bool { return u.ID == id }, func(u *domain.User) { u.Role = role })
}

func (r *memoryUsers) SetBlocked(_ context.Context, id string, blocked bool) error {
	return r.updateWhere(func(u domain.User) bool { return u.ID == id }, func(u *domain.User) { u.IsBlocked = blocked })
}

func (r *memoryUsers) SetPremium(_ context.Context, email string, premium bool) error {
	return r.updateWhere(func(u domain.User) bool { return strings.EqualFold(u.Email, email) },
		func(u *domain.User) { u.IsPremium = premium })
}

func (r *memoryUsers) AdjustIssueCount(_ context.Context, email string, delta int) error {
	return r.updateWhere(func(u domain.User) bool { return strings.EqualFold(u.Email, email) },
		func(u *domain.User) {
			u.IssueCount += delta
			if u.IssueCount < 0 {
				u.IssueCount = 0
			}
		})
}

type memoryPayments struct{ s *MemoryStore }

func (r *memoryPayments) Create(_ context.Context, payment *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.state.payments {
		if existing.SessionID == payment.SessionID {
			return ErrDuplicate
		}
	}
	r.s.state.payments = append(r.s.state.payments, *payment)
	return nil
}

func (r *memoryPayments) GetBySessionID(_ context.Context, sessionID string) (*domain.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.state.payments {
		if p.SessionID == sessionID {
			out := p
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryPayments) List(_ context.Context, filter PaymentFilter) ([]domain.Payment, error) {
	r.s.mu.RLock()
	var payments []domain.Payment
	for _, p := range r.s.state.payments {
		if filter.UserEmail != nil && !strings.EqualFold(p.UserEmail, *filter.UserEmail) {
			continue
		}
		payments = append(payments, p)
	}
	r.s.mu.RUnlock()

	sort.SliceStable(payments, func(i, j int) bool { return payments[i].CreatedAt.After(payments[j].CreatedAt) })
	limit, offset := normalizePage(filter.Limit, filter.Offset)
	if offset >= len(payments) {
		return []domain.Payment{}, nil
	}
	end := offset + limit
	if end > len(payments) {
		end = len(payments)
	}
	return payments[offset:end], nil
}

func (r *memoryPayments) Summary(context.Context) (PaymentSummary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	summary := PaymentSummary{Count: int64(len(r.s.state.payments))}
	for _, p := range r.s.state.payments {
		summary.Revenue += p.Amount
	}
	return summary, nil
}

func containsStatus(statuses []domain.IssueStatus, status domain.IssueStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
