package domain

import "time"

// PaymentType names what a confirmed payment unlocks.
type PaymentType string

const (
	PaymentTypeBoost        PaymentType = "boost"
	PaymentTypeSubscription PaymentType = "subscription"
)

// Payment is a processor-confirmed payment. SessionID is unique per checkout.
type Payment struct {
	ID        string
	SessionID string
	Type      PaymentType
	IssueID   string
	UserEmail string
	Amount    int64
	Currency  string
	CreatedAt time.Time
}
