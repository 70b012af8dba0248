package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Booking is the durable proof-of-attendance record written once an order
// has been fulfilled. Bookings are immutable; there is no cancellation flow.
type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID           string    `bun:"id,pk" json:"id"`
	OrderID      string    `bun:"order_id,nullzero" json:"order_id,omitempty"`
	UserID       string    `bun:"user_id,notnull" json:"user_id"`
	EventID      string    `bun:"event_id,notnull" json:"event_id"`
	TxnReference string    `bun:"txn_reference,notnull" json:"txn_reference"`
	CreatedAt    time.Time `bun:"created_at,notnull" json:"created_at"`
}
