package dto

import (
	"time"

	"github.com/civicfix/civicfix-server/internal/domain"
)

// PaymentWebhookRequest is the body the payment processor posts once a checkout completes.
type PaymentWebhookRequest struct {
	SessionID string `json:"session_id"`
	Type      string `json:"type"`
	IssueID   string `json:"issue_id"`
	Email     string `json:"email"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

// PaymentResponse is the JSON view of a payment.
type PaymentResponse struct {
	ID        string             `json:"id"`
	SessionID string             `json:"session_id"`
	Type      domain.PaymentType `json:"type"`
	IssueID   string             `json:"issue_id,omitempty"`
	Email     string             `json:"email"`
	Amount    int64              `json:"amount"`
	Currency  string             `json:"currency"`
	CreatedAt time.Time          `json:"created_at"`
}

// PaymentWebhookResponse acknowledges a webhook delivery.
type PaymentWebhookResponse struct {
	Payment   PaymentResponse `json:"payment"`
	Duplicate bool            `json:"duplicate"`
	Issue     *IssueResponse  `json:"issue,omitempty"`
}

// NewPaymentResponse maps a domain payment.
func NewPaymentResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:        p.ID,
		SessionID: p.SessionID,
		Type:      p.Type,
		IssueID:   p.IssueID,
		Email:     p.UserEmail,
		Amount:    p.Amount,
		Currency:  p.Currency,
		CreatedAt: p.CreatedAt,
	}
}

// NewPaymentResponses maps a slice of payments.
func NewPaymentResponses(payments []domain.Payment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(payments))
	for i := range payments {
		out = append(out, NewPaymentResponse(&payments[i]))
	}
	return out
}
