package db_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"ms-booking/internal/booking/db"
	"ms-booking/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	// One connection, or each pooled conn gets its own empty :memory: db.
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	for _, m := range []interface{}{(*models.Order)(nil), (*models.Booking)(nil)} {
		_, err = bunDB.NewCreateTable().Model(m).Exec(context.Background())
		if err != nil {
			t.Fatalf("Failed to create table for %T: %v", m, err)
		}
	}

	return &db.DB{Bun: bunDB}, bunDB
}

func newOrder() *models.Order {
	return &models.Order{
		ID:         uuid.New().String(),
		EventID:    "EV-1",
		BuyerEmail: "a@b.com",
		Amount:     250,
		Currency:   "INR",
		CreatedAt:  time.Now(),
	}
}

func TestCreateOrderValidation(t *testing.T) {
	ledger, bunDB := setupTestDB(t)
	defer bunDB.Close()

	order := newOrder()
	order.Amount = 0
	err := ledger.CreateOrder(order)
	assert.True(t, db.IsValidation(err))

	order = newOrder()
	order.EventID = ""
	err = ledger.CreateOrder(order)
	assert.True(t, db.IsValidation(err))

	order = newOrder()
	order.BuyerEmail = ""
	err = ledger.CreateOrder(order)
	assert.True(t, db.IsValidation(err))

	order = newOrder()
	err = ledger.CreateOrder(order)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusPending, order.Status)
}

func TestGetOrderByID(t *testing.T) {
	ledger, bunDB := setupTestDB(t)
	defer bunDB.Close()

	order := newOrder()
	require.NoError(t, ledger.CreateOrder(order))

	got, err := ledger.GetOrderByID(order.ID)
	assert.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	assert.Equal(t, models.StatusPending, got.Status)

	_, err = ledger.GetOrderByID("non-existent")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestMarkPaid(t *testing.T) {
	ledger, bunDB := setupTestDB(t)
	defer bunDB.Close()

	order := newOrder()
	require.NoError(t, ledger.CreateOrder(order))

	paid, err := ledger.MarkPaid(order.ID, "TXN123")
	assert.NoError(t, err)
	assert.Equal(t, models.StatusPaid, paid.Status)
	assert.Equal(t, "TXN123", paid.TxnReference)

	// Second confirmation loses; the stored reference is untouched.
	replay, err := ledger.MarkPaid(order.ID, "TXN999")
	assert.ErrorIs(t, err, db.ErrAlreadyProcessed)
	assert.Equal(t, "TXN123", replay.TxnReference)

	_, err = ledger.MarkPaid("non-existent", "TXN123")
	assert.ErrorIs(t, err, db.ErrNotFound)

	_, err = ledger.MarkPaid(order.ID, "")
	assert.True(t, db.IsValidation(err))
}

func TestMarkPaidConcurrent(t *testing.T) {
	ledger, bunDB := setupTestDB(t)
	defer bunDB.Close()

	order := newOrder()
	require.NoError(t, ledger.CreateOrder(order))

	const attempts = 8
	var wg sync.WaitGroup
	winners := make(chan string, attempts)
	losers := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		txn := uuid.New().String()
		go func(txn string) {
			defer wg.Done()
			_, err := ledger.MarkPaid(order.ID, txn)
			if err == nil {
				winners <- txn
			} else {
				losers <- err
			}
		}(txn)
	}
	wg.Wait()
	close(winners)
	close(losers)

	assert.Equal(t, 1, len(winners), "exactly one confirmation must win")
	winner := <-winners

	for err := range losers {
		assert.ErrorIs(t, err, db.ErrAlreadyProcessed)
	}

	final, err := ledger.GetOrderByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, final.Status)
	assert.Equal(t, winner, final.TxnReference)
}

func TestMarkFulfilledTransitions(t *testing.T) {
	ledger, bunDB := setupTestDB(t)
	defer bunDB.Close()

	order := newOrder()
	require.NoError(t, ledger.CreateOrder(order))

	// Fulfilling a pending order is a logic bug.
	_, err := ledger.MarkFulfilled(order.ID)
	assert.ErrorIs(t, err, db.ErrInvalidTransition)

	_, err = ledger.MarkPaid(order.ID, "TXN123")
	require.NoError(t, err)

	fulfilled, err := ledger.MarkFulfilled(order.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusFulfilled, fulfilled.Status)
	assert.Equal(t, "TXN123", fulfilled.TxnReference)

	_, err = ledger.MarkFulfilled(order.ID)
	assert.ErrorIs(t, err, db.ErrAlreadyProcessed)

	// A fulfilled order never moves to failed.
	_, err = ledger.MarkFailed(order.ID, "too late")
	assert.ErrorIs(t, err, db.ErrInvalidTransition)
}

func TestMarkFailedThenRetry(t *testing.T) {
	ledger, bunDB := setupTestDB(t)
	defer bunDB.Close()

	order := newOrder()
	require.NoError(t, ledger.CreateOrder(order))
	_, err := ledger.MarkPaid(order.ID, "TXN123")
	require.NoError(t, err)

	failed, err := ledger.MarkFailed(order.ID, "smtp unreachable")
	assert.NoError(t, err)
	assert.Equal(t, models.StatusFailed, failed.Status)
	assert.Equal(t, "smtp unreachable", failed.FailureReason)
	assert.Equal(t, "TXN123", failed.TxnReference)

	// Failed is paid-equivalent: a retried fulfillment can complete.
	fulfilled, err := ledger.MarkFulfilled(order.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusFulfilled, fulfilled.Status)
	assert.Empty(t, fulfilled.FailureReason)
}

func TestBookings(t *testing.T) {
	ledger, bunDB := setupTestDB(t)
	defer bunDB.Close()

	_, err := ledger.CreateBooking("ORD-1", "user123", "EV-1", "")
	assert.True(t, db.IsValidation(err))

	first, err := ledger.CreateBooking("ORD-1", "user123", "EV-1", "TXN1")
	require.NoError(t, err)

	// Force distinct timestamps so the ordering assertion is meaningful.
	_, err = bunDB.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("created_at = ?", time.Now().Add(-time.Hour)).
		Where("id = ?", first.ID).
		Exec(context.Background())
	require.NoError(t, err)

	second, err := ledger.CreateBooking("ORD-2", "user123", "EV-2", "TXN2")
	require.NoError(t, err)

	_, err = ledger.CreateBooking("ORD-3", "someone-else", "EV-1", "TXN3")
	require.NoError(t, err)

	bookings, err := ledger.ListBookingsForUser("user123")
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, second.ID, bookings[0].ID, "newest booking first")
	assert.Equal(t, first.ID, bookings[1].ID)

	none, err := ledger.ListBookingsForUser("nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}
