package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ms-booking/internal/models"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DB is the booking ledger: the authoritative store for orders and
// bookings. Status transitions are single conditional UPDATEs so that
// concurrent callers racing on the same order observe exactly one winner.
type DB struct {
	Bun *bun.DB
}

// ---------------- ORDERS ----------------

// CreateOrder persists a new order. The caller supplies the id and
// timestamps; the ledger enforces the field invariants.
func (d *DB) CreateOrder(order *models.Order) error {
	if order.EventID == "" {
		return &ValidationError{Field: "eventId", Reason: "must not be empty"}
	}
	if order.Amount <= 0 {
		return &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	if order.BuyerEmail == "" {
		return &ValidationError{Field: "email", Reason: "must not be empty"}
	}
	order.Status = models.StatusPending
	_, err := d.Bun.NewInsert().Model(order).Exec(context.Background())
	return err
}

// GetOrderByID fetches one order by its id.
func (d *DB) GetOrderByID(id string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("id = ?", id).
		Limit(1).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// MarkPaid records the buyer-supplied transaction reference and moves the
// order to paid. The status check and the write are one UPDATE, so two
// concurrent confirmations of the same order cannot both win: the loser
// gets ErrAlreadyProcessed and the stored reference is the winner's.
func (d *DB) MarkPaid(id, txnReference string) (*models.Order, error) {
	if txnReference == "" {
		return nil, &ValidationError{Field: "txnId", Reason: "must not be empty"}
	}

	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("status = ?", models.StatusPaid).
		Set("txn_reference = ?", txnReference).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("status IN (?)", bun.In([]string{models.StatusPending, models.StatusAwaitingConfirmation})).
		Exec(context.Background())
	if err != nil {
		return nil, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		// Lost the race, or the order was never there. Disambiguate.
		order, err := d.GetOrderByID(id)
		if err != nil {
			return nil, err
		}
		switch order.Status {
		case models.StatusPaid, models.StatusFulfilled, models.StatusFailed:
			return order, ErrAlreadyProcessed
		default:
			return nil, ErrInvalidTransition
		}
	}

	return d.GetOrderByID(id)
}

// MarkFulfilled moves a paid order to fulfilled after the ticket has been
// rendered and delivered. A failed order is paid-equivalent (the reference
// is already recorded), so retried fulfillments pass the same gate.
func (d *DB) MarkFulfilled(id string) (*models.Order, error) {
	return d.transition(id, models.StatusFulfilled, "")
}

// MarkFailed records an unsuccessful fulfillment attempt. The transaction
// reference stays in place so the confirmation can be safely re-issued.
func (d *DB) MarkFailed(id, reason string) (*models.Order, error) {
	if reason == "" {
		reason = "fulfillment failed"
	}
	return d.transition(id, models.StatusFailed, reason)
}

func (d *DB) transition(id, target, reason string) (*models.Order, error) {
	q := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("status = ?", target).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("status IN (?)", bun.In([]string{models.StatusPaid, models.StatusFailed}))
	if target == models.StatusFailed {
		q = q.Set("failure_reason = ?", reason)
	} else {
		q = q.Set("failure_reason = NULL")
	}

	res, err := q.Exec(context.Background())
	if err != nil {
		return nil, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		order, err := d.GetOrderByID(id)
		if err != nil {
			return nil, err
		}
		if order.Status == target {
			return order, ErrAlreadyProcessed
		}
		return nil, ErrInvalidTransition
	}

	return d.GetOrderByID(id)
}

// ---------------- BOOKINGS ----------------

// CreateBooking writes the durable attendance record. It does not guard
// against duplicate bookings for the same user and event; the source
// system never did, and the lifecycle service only calls this once per
// fulfilled order.
func (d *DB) CreateBooking(orderID, userID, eventID, txnReference string) (*models.Booking, error) {
	if eventID == "" {
		return nil, &ValidationError{Field: "eventId", Reason: "must not be empty"}
	}
	if txnReference == "" {
		return nil, &ValidationError{Field: "txnId", Reason: "must not be empty"}
	}
	if userID == "" {
		return nil, &ValidationError{Field: "userId", Reason: "must not be empty"}
	}

	booking := &models.Booking{
		ID:           uuid.NewString(),
		OrderID:      orderID,
		UserID:       userID,
		EventID:      eventID,
		TxnReference: txnReference,
		CreatedAt:    time.Now(),
	}
	if _, err := d.Bun.NewInsert().Model(booking).Exec(context.Background()); err != nil {
		return nil, err
	}
	return booking, nil
}

// ListBookingsForUser returns all bookings for a user, newest first.
func (d *DB) ListBookingsForUser(userID string) ([]models.Booking, error) {
	bookings := []models.Booking{}
	err := d.Bun.NewSelect().
		Model(&bookings).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return bookings, nil
}
