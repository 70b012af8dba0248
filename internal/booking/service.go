package booking

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"ms-booking/internal/booking/db"
	"ms-booking/internal/kafka"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/payment"
	"ms-booking/internal/ticket"
	"ms-booking/internal/utils"
)

// ErrReferenceMismatch means the order was already fulfilled with a
// different transaction reference than the one submitted.
var ErrReferenceMismatch = errors.New("order already fulfilled with a different transaction reference")

// FulfillmentError means the payment was recorded but the ticket could not
// be rendered or delivered. The order stays retriable: re-issuing the same
// confirmation runs fulfillment again.
type FulfillmentError struct {
	OrderID string
	Err     error
}

func (e *FulfillmentError) Error() string {
	return fmt.Sprintf("payment recorded for %s but ticket not delivered: %v", e.OrderID, e.Err)
}

func (e *FulfillmentError) Unwrap() error { return e.Err }

// Ledger is the slice of the booking ledger the lifecycle service uses.
// It is the only component that mutates order status.
type Ledger interface {
	CreateOrder(order *models.Order) error
	GetOrderByID(id string) (*models.Order, error)
	MarkPaid(id, txnReference string) (*models.Order, error)
	MarkFulfilled(id string) (*models.Order, error)
	MarkFailed(id, reason string) (*models.Order, error)
	CreateBooking(orderID, userID, eventID, txnReference string) (*models.Booking, error)
	ListBookingsForUser(userID string) ([]models.Booking, error)
}

type Catalog interface {
	GetEvent(id string) (*models.Event, error)
}

type Renderer interface {
	Render(order models.Order) (ticket.Artifact, error)
}

type Dispatcher interface {
	Send(artifact ticket.Artifact, recipient string, order models.Order) error
}

type Publisher interface {
	Publish(topic string, key string, value []byte) error
}

// ConfirmLock bounds concurrent confirmation attempts per order. The
// ledger's conditional updates remain the source of truth; the lock only
// stops a double-submit from doing fulfillment work twice in parallel.
type ConfirmLock interface {
	Lock(orderID string) (bool, error)
	Unlock(orderID string) error
}

type OrderService struct {
	DB       Ledger
	Catalog  Catalog
	Renderer Renderer
	Mailer   Dispatcher
	Kafka    Publisher
	Lock     ConfirmLock
	Payee    payment.Payee
	Logger   *logger.Logger
}

func NewOrderService(ledger Ledger, catalog Catalog, renderer Renderer, mailer Dispatcher,
	producer Publisher, lock ConfirmLock, payee payment.Payee, log *logger.Logger) *OrderService {
	return &OrderService{
		DB:       ledger,
		Catalog:  catalog,
		Renderer: renderer,
		Mailer:   mailer,
		Kafka:    producer,
		Lock:     lock,
		Payee:    payee,
		Logger:   log,
	}
}

// CreateOrder validates the event reference, persists a pending order and
// returns it together with the UPI payment link for the client to redirect
// to. The order id is the payment-system reference (tr).
func (s *OrderService) CreateOrder(req models.OrderRequest) (*models.Order, string, error) {
	if req.EventID == "" {
		return nil, "", &db.ValidationError{Field: "eventId", Reason: "must not be empty"}
	}
	if _, err := s.Catalog.GetEvent(req.EventID); err != nil {
		return nil, "", err
	}

	order := &models.Order{
		ID:          utils.GenerateOrderID(),
		EventID:     req.EventID,
		BuyerEmail:  req.Email,
		BuyerUserID: req.UserID,
		Amount:      math.Round(req.Amount*100) / 100,
		Currency:    s.Payee.Currency,
		Status:      models.StatusPending,
		CreatedAt:   time.Now(),
	}

	if err := s.DB.CreateOrder(order); err != nil {
		return nil, "", err
	}

	s.Logger.LogOrder("CREATE", order.ID, fmt.Sprintf("event=%s amount=%.2f", order.EventID, order.Amount))
	s.publish(kafka.TopicOrderCreated, order)

	return order, payment.BuildLink(*order, s.Payee), nil
}

// ConfirmPayment accepts a buyer-supplied transaction reference and runs
// fulfillment: record paid, render the ticket, mail it, mark fulfilled and
// write the booking. The call is idempotent:
//
//   - a fulfilled order returns as-is, with no second notification;
//   - a paid or failed order re-runs fulfillment with the stored reference;
//   - concurrent confirmations of a fresh order produce exactly one winner.
func (s *OrderService) ConfirmPayment(orderID, txnReference string) (*models.Order, error) {
	if txnReference == "" {
		return nil, &db.ValidationError{Field: "txnId", Reason: "must not be empty"}
	}

	if s.Lock != nil {
		ok, err := s.Lock.Lock(orderID)
		if err != nil {
			return nil, fmt.Errorf("confirm lock for %s: %w", orderID, err)
		}
		if !ok {
			// Another confirmation is in flight; report current state.
			s.Logger.LogOrder("CONFIRM", orderID, "confirmation already in progress")
			return s.DB.GetOrderByID(orderID)
		}
		defer func() { _ = s.Lock.Unlock(orderID) }()
	}

	order, err := s.DB.MarkPaid(orderID, txnReference)
	switch {
	case errors.Is(err, db.ErrAlreadyProcessed):
		// Replay. The stored reference stays authoritative; the submitted
		// one is only checked against a completed order.
		if order.Status == models.StatusFulfilled {
			if order.TxnReference != txnReference {
				return order, ErrReferenceMismatch
			}
			s.Logger.LogOrder("CONFIRM", orderID, "already fulfilled, idempotent replay")
			return order, nil
		}
		s.Logger.LogOrder("CONFIRM", orderID, fmt.Sprintf("retrying fulfillment from status=%s", order.Status))
		return s.fulfill(order)
	case err != nil:
		return nil, err
	}

	s.Logger.LogOrder("CONFIRM", orderID, fmt.Sprintf("payment recorded, txn=%s", txnReference))
	s.publish(kafka.TopicOrderPaid, order)

	return s.fulfill(order)
}

// fulfill renders and delivers the ticket for a paid (or previously
// failed) order, then marks it fulfilled and writes the booking record.
// The order snapshot is immutable here, so rendering and sending run
// outside any lock on the ledger row.
func (s *OrderService) fulfill(order *models.Order) (*models.Order, error) {
	artifact, err := s.Renderer.Render(*order)
	if err != nil {
		return s.fail(order, fmt.Errorf("render: %w", err))
	}

	if err := s.Mailer.Send(artifact, order.BuyerEmail, *order); err != nil {
		return s.fail(order, fmt.Errorf("send: %w", err))
	}
	s.Logger.LogMail(order.BuyerEmail, order.ID, "ticket delivered")

	updated, err := s.DB.MarkFulfilled(order.ID)
	if errors.Is(err, db.ErrAlreadyProcessed) {
		// A concurrent retry got there first; the booking already exists.
		return updated, nil
	}
	if err != nil {
		return nil, err
	}

	userID := updated.BuyerUserID
	if userID == "" {
		userID = updated.BuyerEmail
	}
	if _, err := s.DB.CreateBooking(updated.ID, userID, updated.EventID, updated.TxnReference); err != nil {
		// The ticket is out and the order is fulfilled; a missing booking
		// row is recoverable and must not fail the confirmation.
		s.Logger.Error("ORDER", fmt.Sprintf("booking record for %s not written: %v", updated.ID, err))
	}

	s.Logger.LogOrder("FULFILL", updated.ID, "ticket issued")
	s.publish(kafka.TopicOrderFulfilled, updated)

	return updated, nil
}

// fail records the fulfillment failure and surfaces a retriable error. The
// payment stays recorded; the caller is told to re-issue the confirmation.
func (s *OrderService) fail(order *models.Order, cause error) (*models.Order, error) {
	failed, err := s.DB.MarkFailed(order.ID, cause.Error())
	if err != nil && !errors.Is(err, db.ErrAlreadyProcessed) {
		s.Logger.Error("ORDER", fmt.Sprintf("mark failed for %s: %v", order.ID, err))
		failed = order
	}

	s.Logger.Error("ORDER", fmt.Sprintf("fulfillment of %s failed: %v", order.ID, cause))
	s.publish(kafka.TopicOrderFailed, failed)

	return failed, &FulfillmentError{OrderID: order.ID, Err: cause}
}

func (s *OrderService) GetOrder(id string) (*models.Order, error) {
	return s.DB.GetOrderByID(id)
}

func (s *OrderService) ListBookings(userID string) ([]models.Booking, error) {
	return s.DB.ListBookingsForUser(userID)
}

// PaymentLink rebuilds the deep link for an existing order.
func (s *OrderService) PaymentLink(order models.Order) string {
	return payment.BuildLink(order, s.Payee)
}

func (s *OrderService) publish(topic string, order *models.Order) {
	if s.Kafka == nil || order == nil {
		return
	}
	value, err := json.Marshal(order)
	if err != nil {
		return
	}
	if err := s.Kafka.Publish(topic, order.ID, value); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("publish %s for %s: %v", topic, order.ID, err))
	}
}
