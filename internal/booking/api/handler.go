package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ms-booking/internal/booking"
	"ms-booking/internal/booking/db"
	"ms-booking/internal/catalog"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/ticket"
	"ms-booking/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	OrderService *booking.OrderService
	Tickets      *ticket.Store
	Logger       *logger.Logger
}

// CreateOrder handles POST /api/orders. The response carries the UPI
// payment link so the client-facing trigger can redirect without building
// the link itself.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateOrder: bad request body: %v", err))
		utils.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, link, err := h.OrderService.CreateOrder(req)
	if err != nil {
		switch {
		case db.IsValidation(err):
			utils.Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, catalog.ErrEventNotFound):
			utils.Error(w, http.StatusNotFound, "event not found")
		default:
			h.Logger.Error("API", fmt.Sprintf("CreateOrder: %v", err))
			utils.Error(w, http.StatusInternalServerError, "could not create order")
		}
		return
	}

	utils.JSON(w, http.StatusCreated, models.OrderResponse{Order: *order, PaymentLink: link})
}

// ConfirmPayment handles POST /api/orders/{orderId}/confirm. A failed
// fulfillment leaves the payment recorded and the order retriable, and the
// client is told so rather than shown a silent success.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	var req models.ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.OrderService.ConfirmPayment(orderID, req.TxnID)
	if err != nil {
		var fe *booking.FulfillmentError
		switch {
		case db.IsValidation(err):
			utils.Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, db.ErrNotFound):
			utils.Error(w, http.StatusNotFound, "order not found")
		case errors.Is(err, booking.ErrReferenceMismatch):
			utils.Error(w, http.StatusConflict, err.Error())
		case errors.Is(err, db.ErrInvalidTransition):
			utils.Error(w, http.StatusConflict, err.Error())
		case errors.As(err, &fe):
			// Payment recorded, ticket not delivered. Resubmitting the
			// same confirmation retries fulfillment.
			utils.Error(w, http.StatusInternalServerError,
				"payment recorded but the ticket could not be delivered yet; please retry the confirmation")
		default:
			h.Logger.Error("API", fmt.Sprintf("ConfirmPayment: %v", err))
			utils.Error(w, http.StatusInternalServerError, "could not confirm payment")
		}
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{"ok": true, "order": order})
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	order, err := h.OrderService.GetOrder(orderID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			utils.Error(w, http.StatusNotFound, "order not found")
			return
		}
		h.Logger.Error("API", fmt.Sprintf("GetOrder: %v", err))
		utils.Error(w, http.StatusInternalServerError, "could not load order")
		return
	}

	utils.JSON(w, http.StatusOK, order)
}

// GetTicket handles GET /api/orders/{orderId}/ticket and streams the
// stored artifact for a fulfilled order.
func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	order, err := h.OrderService.GetOrder(orderID)
	if err != nil {
		utils.Error(w, http.StatusNotFound, "order not found")
		return
	}
	if order.Status != models.StatusFulfilled || !h.Tickets.Exists(orderID) {
		utils.Error(w, http.StatusNotFound, "ticket not available")
		return
	}

	data, err := h.Tickets.Read(orderID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetTicket: read artifact for %s: %v", orderID, err))
		utils.Error(w, http.StatusInternalServerError, "could not read ticket")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.Tickets.Filename(orderID)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID == "" {
		utils.Error(w, http.StatusBadRequest, "user id is required")
		return
	}

	bookings, err := h.OrderService.ListBookings(userID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListBookings: %v", err))
		utils.Error(w, http.StatusInternalServerError, "could not load bookings")
		return
	}

	utils.JSON(w, http.StatusOK, bookings)
}
