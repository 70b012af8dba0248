package api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"ms-booking/internal/booking"
	booking_api "ms-booking/internal/booking/api"
	bookingdb "ms-booking/internal/booking/db"
	"ms-booking/internal/catalog"
	catalog_api "ms-booking/internal/catalog/api"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/payment"
	"ms-booking/internal/ticket"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"
)

// fakeRenderer writes a stub document through the real artifact store, so
// the download endpoint serves real bytes without needing a font file.
type fakeRenderer struct {
	store *ticket.Store
	fail  bool
	calls int
}

func (f *fakeRenderer) Render(order models.Order) (ticket.Artifact, error) {
	f.calls++
	if f.fail {
		return ticket.Artifact{}, &ticket.RenderError{Err: fmt.Errorf("font unavailable")}
	}
	return f.store.Write(order.ID, []byte("%PDF stub ticket "+order.ID))
}

type fakeMailer struct {
	mu    sync.Mutex
	sends []string
}

func (f *fakeMailer) Send(artifact ticket.Artifact, recipient string, order models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, recipient)
	return nil
}

type noopLock struct{}

func (noopLock) Lock(string) (bool, error) { return true, nil }
func (noopLock) Unlock(string) error       { return nil }

type testEnv struct {
	router   *chi.Mux
	renderer *fakeRenderer
	mailer   *fakeMailer
	store    *ticket.Store
	catalog  *catalog.Store
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	sqldb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = bunDB.Close() })

	for _, m := range []interface{}{(*models.Event)(nil), (*models.Order)(nil), (*models.Booking)(nil)} {
		_, err := bunDB.NewCreateTable().Model(m).Exec(context.Background())
		require.NoError(t, err)
	}

	store, err := ticket.NewStore(t.TempDir())
	require.NoError(t, err)

	log := logger.NewLogger()
	t.Cleanup(log.Close)

	renderer := &fakeRenderer{store: store}
	mailer := &fakeMailer{}
	catalogStore := &catalog.Store{Bun: bunDB}
	ledger := &bookingdb.DB{Bun: bunDB}
	payee := payment.Payee{Handle: "dripsync@okaxis", Name: "DripSync Events", Currency: "INR"}

	svc := booking.NewOrderService(ledger, catalogStore, renderer, mailer, nil, noopLock{}, payee, log)

	handler := &booking_api.Handler{OrderService: svc, Tickets: store, Logger: log}
	eventHandler := &catalog_api.Handler{Store: catalogStore, Logger: log}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", handler.CreateOrder)
			r.Get("/{orderId}", handler.GetOrder)
			r.Post("/{orderId}/confirm", handler.ConfirmPayment)
			r.Get("/{orderId}/ticket", handler.GetTicket)
		})
		r.Get("/bookings/{userId}", handler.ListBookings)
		r.Route("/events", func(r chi.Router) {
			r.Get("/", eventHandler.ListEvents)
			r.Post("/", eventHandler.CreateEvent)
		})
	})

	return &testEnv{router: r, renderer: renderer, mailer: mailer, store: store, catalog: catalogStore}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seedEvent(t *testing.T) models.Event {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/events", models.EventRequest{
		Title: "Launch Night",
		Price: 250,
		Venue: "Phoenix Arena",
		Date:  "2026-09-12",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var event models.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &event))
	return event
}

func (e *testEnv) createOrder(t *testing.T, eventID string) models.OrderResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/orders", models.OrderRequest{
		EventID: eventID,
		Amount:  250,
		Email:   "buyer@example.com",
		UserID:  "user123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp models.OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreateOrderEndpoint(t *testing.T) {
	env := setupEnv(t)
	event := env.seedEvent(t)

	resp := env.createOrder(t, event.ID)

	assert.Equal(t, models.StatusPending, resp.Status)
	assert.Equal(t, event.ID, resp.EventID)
	assert.Contains(t, resp.PaymentLink, "upi://pay?")
	assert.Contains(t, resp.PaymentLink, "tr="+resp.ID)
}

func TestCreateOrderRejectsBadInput(t *testing.T) {
	env := setupEnv(t)
	event := env.seedEvent(t)

	rec := env.do(t, http.MethodPost, "/api/orders", models.OrderRequest{
		EventID: event.ID,
		Amount:  0,
		Email:   "buyer@example.com",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/orders", models.OrderRequest{
		EventID: "EV-unknown",
		Amount:  250,
		Email:   "buyer@example.com",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConfirmEndpointFulfills(t *testing.T) {
	env := setupEnv(t)
	event := env.seedEvent(t)
	order := env.createOrder(t, event.ID)

	rec := env.do(t, http.MethodPost, "/api/orders/"+order.ID+"/confirm",
		models.ConfirmRequest{TxnID: "TXN123"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		OK    bool         `json:"ok"`
		Order models.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, models.StatusFulfilled, resp.Order.Status)
	assert.Equal(t, "TXN123", resp.Order.TxnReference)

	assert.Equal(t, []string{"buyer@example.com"}, env.mailer.sends)
	assert.True(t, env.store.Exists(order.ID))
}

func TestConfirmEndpointIdempotent(t *testing.T) {
	env := setupEnv(t)
	event := env.seedEvent(t)
	order := env.createOrder(t, event.ID)

	rec := env.do(t, http.MethodPost, "/api/orders/"+order.ID+"/confirm",
		models.ConfirmRequest{TxnID: "TXN123"})
	require.Equal(t, http.StatusOK, rec.Code)

	// Resubmitting the same confirmation is a no-op success.
	rec = env.do(t, http.MethodPost, "/api/orders/"+order.ID+"/confirm",
		models.ConfirmRequest{TxnID: "TXN123"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.mailer.sends, 1, "no second notification on replay")
	assert.Equal(t, 1, env.renderer.calls)

	// A different reference against a fulfilled order is a conflict.
	rec = env.do(t, http.MethodPost, "/api/orders/"+order.ID+"/confirm",
		models.ConfirmRequest{TxnID: "TXN999"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestConfirmEndpointErrors(t *testing.T) {
	env := setupEnv(t)
	event := env.seedEvent(t)
	order := env.createOrder(t, event.ID)

	rec := env.do(t, http.MethodPost, "/api/orders/ORD-unknown/confirm",
		models.ConfirmRequest{TxnID: "TXN123"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/orders/"+order.ID+"/confirm",
		models.ConfirmRequest{TxnID: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfirmEndpointRetriableFailure(t *testing.T) {
	env := setupEnv(t)
	event := env.seedEvent(t)
	order := env.createOrder(t, event.ID)

	env.renderer.fail = true
	rec := env.do(t, http.MethodPost, "/api/orders/"+order.ID+"/confirm",
		models.ConfirmRequest{TxnID: "TXN123"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "retry")

	// The payment stayed recorded; the same confirmation completes now.
	env.renderer.fail = false
	rec = env.do(t, http.MethodPost, "/api/orders/"+order.ID+"/confirm",
		models.ConfirmRequest{TxnID: "TXN123"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Order models.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.StatusFulfilled, resp.Order.Status)
	assert.Equal(t, "TXN123", resp.Order.TxnReference)
}

func TestGetOrderEndpoint(t *testing.T) {
	env := setupEnv(t)
	event := env.seedEvent(t)
	order := env.createOrder(t, event.ID)

	rec := env.do(t, http.MethodGet, "/api/orders/"+order.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, order.ID, got.ID)

	rec = env.do(t, http.MethodGet, "/api/orders/ORD-unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetTicketEndpoint(t *testing.T) {
	env := setupEnv(t)
	event := env.seedEvent(t)
	order := env.createOrder(t, event.ID)

	// No ticket before fulfillment.
	rec := env.do(t, http.MethodGet, "/api/orders/"+order.ID+"/ticket", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/orders/"+order.ID+"/confirm",
		models.ConfirmRequest{TxnID: "TXN123"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/orders/"+order.ID+"/ticket", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "ticket-"+order.ID+".pdf")
	assert.Contains(t, rec.Body.String(), "%PDF")
}

func TestListBookingsEndpoint(t *testing.T) {
	env := setupEnv(t)
	event := env.seedEvent(t)
	order := env.createOrder(t, event.ID)

	rec := env.do(t, http.MethodPost, "/api/orders/"+order.ID+"/confirm",
		models.ConfirmRequest{TxnID: "TXN123"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/bookings/user123", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var bookings []models.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bookings))
	require.Len(t, bookings, 1)
	assert.Equal(t, order.ID, bookings[0].OrderID)
	assert.Equal(t, "TXN123", bookings[0].TxnReference)

	rec = env.do(t, http.MethodGet, "/api/bookings/nobody", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestListEventsEndpoint(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodGet, "/api/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	env.seedEvent(t)

	rec = env.do(t, http.MethodGet, "/api/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var events []models.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "Launch Night", events[0].Title)
}

func TestCreateEventValidation(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodPost, "/api/events", models.EventRequest{Price: 100})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/events", models.EventRequest{Title: "Bad", Price: -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
