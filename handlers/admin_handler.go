package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"freshersTicketAPI/internal/types/accesskey"
	"freshersTicketAPI/internal/types/event"
	"freshersTicketAPI/middleware"
	"freshersTicketAPI/services"
)

// AdminHandler serves the door-staff and event-team surface. Every route
// sits behind AdminAuthMiddleware.
type AdminHandler struct {
	ticketService *services.TicketService
	keyService    *services.AccessKeyService
	eventService  *services.EventService
}

func NewAdminHandler(ticketService *services.TicketService, keyService *services.AccessKeyService, eventService *services.EventService) *AdminHandler {
	return &AdminHandler{
		ticketService: ticketService,
		keyService:    keyService,
		eventService:  eventService,
	}
}

func (h *AdminHandler) GenerateAccessKey(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req accesskey.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	createdBy, _ := middleware.GetAdminEmail(ctx)

	key, err := h.keyService.Generate(ctx, &req, createdBy)
	if err != nil {
		status, msg := statusForError(err)
		respondWithError(w, status, msg)
		return
	}

	respondWithJSON(w, http.StatusCreated, key)
}

func (h *AdminHandler) ListAccessKeys(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	keys, err := h.keyService.List(ctx)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load access keys")
		return
	}

	used := 0
	for _, k := range keys {
		if k.UsedCount > 0 {
			used++
		}
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"keys":   keys,
		"total":  len(keys),
		"used":   used,
		"unused": len(keys) - used,
	})
}

func (h *AdminHandler) DeactivateAccessKey(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	keyID := mux.Vars(r)["keyID"]
	if err := h.keyService.Deactivate(ctx, keyID); err != nil {
		status, msg := statusForError(err)
		respondWithError(w, status, msg)
		return
	}

	admin, _ := middleware.GetAdminEmail(ctx)
	log.Printf("AdminHandler: key %s deactivated by %s", keyID, admin)
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

type scanRequest struct {
	TicketID string `json:"ticketId"`
	Location string `json:"location,omitempty"`
}

// ScanTicket marks a ticket as used at the door. Exactly one concurrent
// scan of the same ticket wins; the rest get a conflict response.
func (h *AdminHandler) ScanTicket(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.TicketID == "" {
		respondWithError(w, http.StatusBadRequest, "Ticket id is required")
		return
	}

	scannedBy, _ := middleware.GetAdminEmail(ctx)

	scanned, err := h.ticketService.Scan(ctx, req.TicketID, scannedBy, req.Location)
	if err != nil {
		middleware.RecordScan(scanOutcome(err))
		status, msg := statusForError(err)
		respondWithError(w, status, msg)
		return
	}
	middleware.RecordScan("success")

	respondWithJSON(w, http.StatusOK, scanned)
}

func (h *AdminHandler) GetAllTickets(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	tickets, err := h.ticketService.AllTickets(ctx)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load tickets")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"tickets": tickets})
}

func (h *AdminHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	stats, err := h.ticketService.Analytics(ctx)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to compute analytics")
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) UpdateEventDetails(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var details event.Details
	if err := json.NewDecoder(r.Body).Decode(&details); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if details.EventName == "" {
		respondWithError(w, http.StatusBadRequest, "Event name is required")
		return
	}

	updated, err := h.eventService.UpdateDetails(ctx, details)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to update event details")
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

func scanOutcome(err error) string {
	switch {
	case errors.Is(err, services.ErrTicketNotFound):
		return "ticket_not_found"
	case errors.Is(err, services.ErrTicketAlreadyScanned):
		return "already_scanned"
	case errors.Is(err, services.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
