package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ms-booking/internal/catalog"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/utils"
)

// Handler exposes the event catalog pass-through. The site's admin screens
// own event content; the booking core only stores what it needs to price
// orders and label tickets.
type Handler struct {
	Store  *catalog.Store
	Logger *logger.Logger
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req models.EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		utils.Error(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Price < 0 {
		utils.Error(w, http.StatusBadRequest, "price must not be negative")
		return
	}

	event := &models.Event{
		ID:        utils.GenerateEventID(),
		Title:     req.Title,
		Price:     req.Price,
		Venue:     req.Venue,
		Date:      req.Date,
		CreatedAt: time.Now(),
	}
	if err := h.Store.CreateEvent(event); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateEvent: %v", err))
		utils.Error(w, http.StatusInternalServerError, "could not create event")
		return
	}

	utils.JSON(w, http.StatusCreated, event)
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Store.ListEvents()
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListEvents: %v", err))
		utils.Error(w, http.StatusInternalServerError, "could not load events")
		return
	}

	utils.JSON(w, http.StatusOK, events)
}
