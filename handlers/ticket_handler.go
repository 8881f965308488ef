package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"freshersTicketAPI/internal/types/ticket"
	"freshersTicketAPI/middleware"
	"freshersTicketAPI/services"
)

type TicketHandler struct {
	ticketService *services.TicketService
	userService   *services.UserService
	publicOrigin  string
}

func NewTicketHandler(ticketService *services.TicketService, userService *services.UserService, publicOrigin string) *TicketHandler {
	return &TicketHandler{
		ticketService: ticketService,
		userService:   userService,
		publicOrigin:  publicOrigin,
	}
}

type redeemRequest struct {
	AccessKey string `json:"accessKey"`
}

type ticketResponse struct {
	ticket.Stored
	VerificationURL string `json:"verificationUrl"`
}

// RedeemTicket consumes an access key and issues the caller's ticket.
func (h *TicketHandler) RedeemTicket(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.AccessKey == "" {
		respondWithError(w, http.StatusBadRequest, "Access key is required")
		return
	}

	userName := "Guest"
	if profile, err := h.userService.GetProfile(ctx, userID); err == nil && profile.DisplayName != "" {
		userName = profile.DisplayName
	}

	issued, redemption, err := h.ticketService.Redeem(ctx, req.AccessKey, userID, userName)
	if err != nil {
		middleware.RecordRedemption(outcomeForError(err))
		status, msg := statusForError(err)
		respondWithError(w, status, msg)
		return
	}
	middleware.RecordRedemption("success")

	log.Printf("TicketHandler: issued ticket %s to %s", issued.ID, userID)
	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"ticket":        h.withURL(*issued),
		"remainingUses": redemption.RemainingUses,
	})
}

// GetMyTickets lists the caller's tickets.
func (h *TicketHandler) GetMyTickets(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	tickets, err := h.ticketService.ListUserTickets(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load tickets")
		return
	}

	out := make([]ticketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, h.withURL(t))
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"tickets": out})
}

// VerifyTicket is the public, unauthenticated status lookup behind the QR
// code URL. Read-only: door admission goes through the admin scan route.
func (h *TicketHandler) VerifyTicket(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ticketID := mux.Vars(r)["ticketID"]
	if ticketID == "" {
		respondWithError(w, http.StatusBadRequest, "Ticket id is required")
		return
	}

	found, err := h.ticketService.FindTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, services.ErrTicketNotFound) {
			respondWithJSON(w, http.StatusNotFound, map[string]interface{}{
				"valid": false,
				"error": "Ticket not found",
			})
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to verify ticket")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"valid": true,
		"ticket": map[string]interface{}{
			"id":        found.ID,
			"userName":  found.UserName,
			"eventName": found.EventName,
			"eventDate": found.EventDate,
			"eventTime": found.EventTime,
			"venue":     found.Venue,
			"isScanned": found.IsScanned,
			"scannedAt": found.ScannedAt,
		},
	})
}

// withURL attaches the public verification URL, which is also the QR
// payload clients encode.
func (h *TicketHandler) withURL(t ticket.Stored) ticketResponse {
	return ticketResponse{
		Stored:          t,
		VerificationURL: fmt.Sprintf("%s/verify-ticket/%s", h.publicOrigin, t.ID),
	}
}

// statusForError maps domain errors to HTTP statuses. Messages come from
// the sentinel text so each failure is distinguishable to the client.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrKeyNotFound),
		errors.Is(err, services.ErrTicketNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, services.ErrKeyExpired):
		return http.StatusGone, err.Error()
	case errors.Is(err, services.ErrKeyExhausted),
		errors.Is(err, services.ErrKeyAlreadyUsed),
		errors.Is(err, services.ErrDuplicateTicket),
		errors.Is(err, services.ErrTicketAlreadyScanned),
		errors.Is(err, services.ErrKeyCodeTaken):
		return http.StatusConflict, err.Error()
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict, "concurrent update conflict, please retry"
	case errors.Is(err, services.ErrInvalidKeyCode):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func outcomeForError(err error) string {
	switch {
	case errors.Is(err, services.ErrKeyNotFound):
		return "key_not_found"
	case errors.Is(err, services.ErrKeyExpired):
		return "key_expired"
	case errors.Is(err, services.ErrKeyExhausted):
		return "key_exhausted"
	case errors.Is(err, services.ErrKeyAlreadyUsed):
		return "key_already_used"
	case errors.Is(err, services.ErrDuplicateTicket):
		return "duplicate_ticket"
	case errors.Is(err, services.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
