package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/civicfix/civicfix-server/internal/domain"
	"github.com/civicfix/civicfix-server/internal/repository"
	apperrors "github.com/civicfix/civicfix-server/pkg/util"
)

// PaymentService applies processor-confirmed payments.
type PaymentService struct {
	store  repository.Store
	issues *IssueService
	logger *zap.Logger
	pages  pageRules
	now    func() time.Time
}

// PaymentConfirmation is a verified webhook body.
type PaymentConfirmation struct {
	SessionID string
	Type      string
	IssueID   string
	Email     string
	Amount    int64
	Currency  string
}

// PaymentResult reports what a confirmation did.
type PaymentResult struct {
	Payment *domain.Payment
	// Duplicate is true when the session was already applied and nothing changed.
	Duplicate bool
	Issue     *domain.Issue
}

// PaymentPage is one page of a payment listing.
type PaymentPage struct {
	Payments   []domain.Payment
	Total      int64
	Revenue    int64
	Page       int
	Limit      int
	TotalPages int
}

// NewPaymentService builds the service. Boosts go through issues so they share its timeline rules.
func NewPaymentService(store repository.Store, issues *IssueService, logger *zap.Logger) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		store:  store,
		issues: issues,
		logger: logger,
		pages:  issues.pages,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ConfirmPayment records a payment and applies its effect in one transaction.
// A replayed session id is acknowledged without repeating side effects.
func (s *PaymentService) ConfirmPayment(ctx context.Context, input PaymentConfirmation) (*PaymentResult, error) {
	payment, err := s.validate(input)
	if err != nil {
		return nil, err
	}

	result := &PaymentResult{Payment: payment}
	err = s.store.RunInTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if existing, err := repos.Payments.GetBySessionID(ctx, payment.SessionID); err == nil {
			result.Payment = existing
			result.Duplicate = true
			return nil
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		payer, err := repos.Users.GetByEmail(ctx, payment.UserEmail)
		if err != nil {
			return notFoundAs("user", err)
		}
		if payer.IsBlocked {
			return apperrors.NewForbidden("account is blocked")
		}

		switch payment.Type {
		case domain.PaymentTypeBoost:
			issue, err := s.issues.boostIn(ctx, repos, payment.IssueID, payment.UserEmail)
			if err != nil {
				return err
			}
			result.Issue = issue
		case domain.PaymentTypeSubscription:
			if err := repos.Users.SetPremium(ctx, payment.UserEmail, true); err != nil {
				return notFoundAs("user", err)
			}
		}

		if err := repos.Payments.Create(ctx, payment); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperrors.NewConflict("payment session already recorded", map[string]any{"session_id": payment.SessionID})
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Duplicate {
		s.logger.Info("payment session replayed", zap.String("session_id", payment.SessionID))
		return result, nil
	}
	if result.Issue != nil {
		s.issues.publishBoosted(ctx, result.Issue.ID, payment.UserEmail)
	}
	s.logger.Info("payment confirmed",
		zap.String("session_id", payment.SessionID),
		zap.String("type", string(payment.Type)),
		zap.Int64("amount", payment.Amount))
	return result, nil
}

func (s *PaymentService) validate(input PaymentConfirmation) (*domain.Payment, error) {
	sessionID := strings.TrimSpace(input.SessionID)
	email := normalizeEmail(input.Email)
	if sessionID == "" || email == "" {
		return nil, apperrors.NewValidationError("session_id and email are required", nil)
	}
	if input.Amount < 0 {
		return nil, apperrors.NewValidationError("amount cannot be negative", map[string]any{"amount": input.Amount})
	}

	payment := &domain.Payment{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		UserEmail: email,
		Amount:    input.Amount,
		Currency:  strings.ToLower(strings.TrimSpace(input.Currency)),
		CreatedAt: s.now(),
	}
	switch domain.PaymentType(strings.ToLower(strings.TrimSpace(input.Type))) {
	case domain.PaymentTypeBoost:
		payment.Type = domain.PaymentTypeBoost
		payment.IssueID = strings.TrimSpace(input.IssueID)
		if payment.IssueID == "" {
			return nil, apperrors.NewValidationError("issue_id is required for boost payments", nil)
		}
	case domain.PaymentTypeSubscription:
		payment.Type = domain.PaymentTypeSubscription
	default:
		return nil, apperrors.NewValidationError("invalid payment type", map[string]any{"type": input.Type})
	}
	return payment, nil
}

// ListPayments returns a page of all payments with the overall revenue.
func (s *PaymentService) ListPayments(ctx context.Context, page, limit int) (*PaymentPage, error) {
	repos := s.store.Repos()
	summary, err := repos.Payments.Summary(ctx)
	if err != nil {
		return nil, err
	}
	page, limit = s.pages.clamp(page, limit)
	items, err := repos.Payments.List(ctx, repository.PaymentFilter{Limit: limit, Offset: (page - 1) * limit})
	if err != nil {
		return nil, err
	}
	return &PaymentPage{
		Payments:   items,
		Total:      summary.Count,
		Revenue:    summary.Revenue,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(summary.Count, limit),
	}, nil
}

// ListPaymentsForUser returns the caller's own payments, newest first.
func (s *PaymentService) ListPaymentsForUser(ctx context.Context, email string) ([]domain.Payment, error) {
	email = normalizeEmail(email)
	return s.store.Repos().Payments.List(ctx, repository.PaymentFilter{
		UserEmail: &email,
		Limit:     s.pages.maxLimit,
	})
}
