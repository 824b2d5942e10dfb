package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicfix/civicfix-server/internal/config"
	"github.com/civicfix/civicfix-server/internal/domain"
	"github.com/civicfix/civicfix-server/internal/events"
	apperrors "github.com/civicfix/civicfix-server/pkg/util"
)

func TestConfirmBoostPaymentIsIdempotent(t *testing.T) {
	f := newFixture(t, config.LimitsConfig{})
	ctx := context.Background()
	reporter := f.citizen(t, "c@example.com")
	issue := f.report(t, reporter)
	payments := NewPaymentService(f.store, f.issues, nil)

	confirmation := PaymentConfirmation{
		SessionID: "cs_1",
		Type:      "boost",
		IssueID:   issue.ID,
		Email:     "C@example.com",
		Amount:    10000,
		Currency:  "BDT",
	}
	result, err := payments.ConfirmPayment(ctx, confirmation)
	require.NoError(t, err)
	assert.False(t, result.Duplicate)
	require.NotNil(t, result.Issue)
	assert.True(t, result.Issue.IsBoosted)
	assert.Equal(t, "bdt", result.Payment.Currency)

	again, err := payments.ConfirmPayment(ctx, confirmation)
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.Equal(t, result.Payment.ID, again.Payment.ID)

	assert.Len(t, f.timeline(t, issue.ID), 2)
	assert.Contains(t, f.events.types, events.EventIssueBoosted)

	page, err := payments.ListPayments(ctx, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
	assert.EqualValues(t, 10000, page.Revenue)
}

func TestConfirmBoostOfBoostedIssueRollsBack(t *testing.T) {
	f := newFixture(t, config.LimitsConfig{})
	ctx := context.Background()
	issue := f.report(t, f.citizen(t, "c@example.com"))
	payments := NewPaymentService(f.store, f.issues, nil)

	_, err := f.issues.Boost(ctx, issue.ID, "c@example.com")
	require.NoError(t, err)

	_, err = payments.ConfirmPayment(ctx, PaymentConfirmation{
		SessionID: "cs_2", Type: "boost", IssueID: issue.ID, Email: "c@example.com", Amount: 100,
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	list, err := payments.ListPaymentsForUser(ctx, "c@example.com")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestConfirmSubscriptionSetsPremium(t *testing.T) {
	f := newFixture(t, config.LimitsConfig{FreeIssueLimit: 1})
	ctx := context.Background()
	reporter := f.citizen(t, "c@example.com")
	f.report(t, reporter)
	payments := NewPaymentService(f.store, f.issues, nil)

	_, err := payments.ConfirmPayment(ctx, PaymentConfirmation{
		SessionID: "cs_sub", Type: "subscription", Email: "c@example.com", Amount: 1000, Currency: "usd",
	})
	require.NoError(t, err)

	user, err := f.store.Repos().Users.GetByEmail(ctx, "c@example.com")
	require.NoError(t, err)
	assert.True(t, user.IsPremium)
	f.report(t, reporter)

	mine, err := payments.ListPaymentsForUser(ctx, "C@EXAMPLE.COM")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, domain.PaymentTypeSubscription, mine[0].Type)
}

func TestConfirmPaymentValidation(t *testing.T) {
	f := newFixture(t, config.LimitsConfig{})
	payments := NewPaymentService(f.store, f.issues, nil)
	ctx := context.Background()

	cases := []PaymentConfirmation{
		{Type: "boost", Email: "c@example.com", IssueID: "x"},
		{SessionID: "cs", Type: "boost", Email: "c@example.com"},
		{SessionID: "cs", Type: "donation", Email: "c@example.com"},
		{SessionID: "cs", Type: "subscription", Email: "c@example.com", Amount: -1},
	}
	for _, tc := range cases {
		_, err := payments.ConfirmPayment(ctx, tc)
		assert.Truef(t, apperrors.HasCode(err, apperrors.CodeValidationFailed), "%+v", tc)
	}

	_, err := payments.ConfirmPayment(ctx, PaymentConfirmation{SessionID: "cs", Type: "subscription", Email: "ghost@example.com"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}
