package handlers

import (
	"context"
	"net/http"
	"time"

	"freshersTicketAPI/services"
)

type EventHandler struct {
	eventService *services.EventService
}

func NewEventHandler(eventService *services.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// GetEventDetails is public: the purchase page shows it before login.
func (h *EventHandler) GetEventDetails(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	details, err := h.eventService.GetDetails(ctx)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load event details")
		return
	}

	respondWithJSON(w, http.StatusOK, details)
}
