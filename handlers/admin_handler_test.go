package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freshersTicketAPI/internal/rtdb"
	"freshersTicketAPI/middleware"
	"freshersTicketAPI/services"
)

func newAdminEnv(t *testing.T) (*AdminHandler, *services.TicketService) {
	t.Helper()
	store := rtdb.NewMemoryGateway()
	events := services.NewEventService(store)
	tickets := services.NewTicketService(store, events)
	keys := services.NewAccessKeyService(store, events)
	return NewAdminHandler(tickets, keys, events), tickets
}

func asAdmin(r *http.Request, email string) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.UserIDKey, "admin-uid")
	ctx = context.WithValue(ctx, middleware.AdminEmailKey, email)
	return r.WithContext(ctx)
}

func TestGenerateAndListAccessKeys(t *testing.T) {
	h, _ := newAdminEnv(t)

	req := asAdmin(httptest.NewRequest(http.MethodPost, "/api/v1/admin/access-keys", strings.NewReader(`{}`)), "admin@x")
	w := httptest.NewRecorder()
	h.GenerateAccessKey(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		KeyCode   string `json:"keyCode"`
		CreatedBy string `json:"createdBy"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Len(t, created.KeyCode, 32)
	assert.Equal(t, "admin@x", created.CreatedBy)

	req = asAdmin(httptest.NewRequest(http.MethodGet, "/api/v1/admin/access-keys", nil), "admin@x")
	w = httptest.NewRecorder()
	h.ListAccessKeys(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var listed struct {
		Total  int `json:"total"`
		Unused int `json:"unused"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Equal(t, 1, listed.Total)
	assert.Equal(t, 1, listed.Unused)
}

func TestScanTicketEndpoint(t *testing.T) {
	h, tickets := newAdminEnv(t)

	issued, err := tickets.IssueTicket(context.Background(), "u1", "Priya")
	require.NoError(t, err)

	body := `{"ticketId": "` + issued.ID + `", "location": "Gate A"}`
	req := asAdmin(httptest.NewRequest(http.MethodPost, "/api/v1/admin/tickets/scan", strings.NewReader(body)), "door@x")
	w := httptest.NewRecorder()
	h.ScanTicket(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"isScanned":true`)
	assert.Contains(t, w.Body.String(), `"scannedBy":"door@x"`)

	// Second scan of the same ticket is refused.
	req = asAdmin(httptest.NewRequest(http.MethodPost, "/api/v1/admin/tickets/scan", strings.NewReader(body)), "door@x")
	w = httptest.NewRecorder()
	h.ScanTicket(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already scanned")
}

func TestScanTicketEndpoint_NotFound(t *testing.T) {
	h, _ := newAdminEnv(t)

	body := `{"ticketId": "missing"}`
	req := asAdmin(httptest.NewRequest(http.MethodPost, "/api/v1/admin/tickets/scan", strings.NewReader(body)), "door@x")
	w := httptest.NewRecorder()
	h.ScanTicket(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
