package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Order status values. An order only ever moves forward:
// pending -> awaiting_confirmation -> paid -> fulfilled | failed.
const (
	StatusPending              = "pending"
	StatusAwaitingConfirmation = "awaiting_confirmation"
	StatusPaid                 = "paid"
	StatusFulfilled            = "fulfilled"
	StatusFailed               = "failed"
)

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID            string    `bun:"id,pk" json:"id"`
	EventID       string    `bun:"event_id,notnull" json:"event_id"`
	BuyerEmail    string    `bun:"buyer_email,notnull" json:"buyer_email"`
	BuyerUserID   string    `bun:"buyer_user_id,nullzero" json:"buyer_user_id,omitempty"`
	Amount        float64   `bun:"amount,notnull" json:"amount"`
	Currency      string    `bun:"currency,notnull" json:"currency"`
	Status        string    `bun:"status,notnull" json:"status"`
	TxnReference  string    `bun:"txn_reference,nullzero" json:"txn_reference,omitempty"`
	FailureReason string    `bun:"failure_reason,nullzero" json:"failure_reason,omitempty"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}

// Confirmable reports whether a payment reference may still be accepted
// for this order.
func (o *Order) Confirmable() bool {
	return o.Status == StatusPending || o.Status == StatusAwaitingConfirmation
}

type OrderRequest struct {
	EventID string  `json:"eventId"`
	Amount  float64 `json:"amount"`
	Email   string  `json:"email"`
	UserID  string  `json:"userId,omitempty"`
}

type ConfirmRequest struct {
	TxnID string `json:"txnId"`
}

type OrderResponse struct {
	Order
	PaymentLink string `json:"payment_link,omitempty"`
}
