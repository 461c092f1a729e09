package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eventra/eventra-api/internal/fingerprint"
	"github.com/eventra/eventra-api/internal/lifecycle"
	"github.com/eventra/eventra-api/internal/models"
	"github.com/eventra/eventra-api/internal/notification"
	"github.com/eventra/eventra-api/internal/registry"
	"github.com/eventra/eventra-api/internal/repository/memory"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inviteFixture struct {
	store  *memory.Store
	svc    *lifecycle.Service
	router *mux.Router
}

func newInviteFixture(t *testing.T) *inviteFixture {
	t.Helper()
	store := memory.NewStore()
	notifications := notification.NewService(store.Notifications(), zerolog.Nop())
	svc := lifecycle.NewService(store.Orders(), store.Invitations(), store.Catalog(), notifications, zerolog.Nop())
	reg := registry.New(store.Invitations(), store.Guests(), zerolog.Nop())
	handler := NewInviteHandler(reg, store.Invitations(), store.Orders(), zerolog.Nop())

	router := mux.NewRouter()
	router.HandleFunc("/invite/{slug}", handler.Preview).Methods(http.MethodGet)
	router.HandleFunc("/invite/{slug}/register", handler.Register).Methods(http.MethodPost)

	return &inviteFixture{store: store, svc: svc, router: router}
}

func (f *inviteFixture) activeInvitation(t *testing.T) models.Invitation {
	t.Helper()
	ctx := context.Background()

	order, err := f.svc.CreateOrder(ctx, "user-1", "basic", "Garden Party")
	require.NoError(t, err)
	_, err = f.svc.FinalizeOrder(ctx, order.ID, "tpl-classic")
	require.NoError(t, err)
	_, err = f.svc.ClaimPayment(ctx, order.ID)
	require.NoError(t, err)
	_, inv, err := f.svc.Approve(ctx, order.ID, "admin-1", "")
	require.NoError(t, err)
	return inv
}

func (f *inviteFixture) register(t *testing.T, slug string, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/invite/"+slug+"/register", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func registerBody(name, canvasSeed string, isTest bool) map[string]interface{} {
	return map[string]interface{}{
		"display_name": name,
		"is_test":      isTest,
		"client_attributes": fingerprint.ClientAttributes{
			UserAgent:        "Mozilla/5.0 (X11; Linux x86_64)",
			ScreenResolution: "1920x1080",
			CanvasHash:       canvasSeed,
			Platform:         "Linux",
		},
	}
}

func TestPreviewReturnsInvitation(t *testing.T) {
	f := newInviteFixture(t)
	inv := f.activeInvitation(t)

	req := httptest.NewRequest(http.MethodGet, "/invite/"+inv.Slug, nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Slug             string `json:"slug"`
		EventTitle       string `json:"event_title"`
		RegularRemaining int    `json:"regular_remaining"`
		TestRemaining    int    `json:"test_remaining"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, inv.Slug, resp.Slug)
	assert.Equal(t, "Garden Party", resp.EventTitle)
	assert.Equal(t, 50, resp.RegularRemaining)
	assert.Equal(t, 5, resp.TestRemaining)
}

func TestPreviewUnknownSlug(t *testing.T) {
	f := newInviteFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/invite/no-such-invite", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPreviewLapsedInvitationGone(t *testing.T) {
	f := newInviteFixture(t)
	f.svc.WithClock(func() time.Time { return time.Now().Add(-400 * time.Hour) })
	inv := f.activeInvitation(t)

	req := httptest.NewRequest(http.MethodGet, "/invite/"+inv.Slug, nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestRegisterCreatedThenRecognized(t *testing.T) {
	f := newInviteFixture(t)
	inv := f.activeInvitation(t)

	rec := f.register(t, inv.Slug, registerBody("Ada", "c-1", false))
	require.Equal(t, http.StatusCreated, rec.Code)

	var first struct {
		GuestID string `json:"guest_id"`
		WasNew  bool   `json:"was_new"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&first))
	assert.True(t, first.WasNew)
	assert.NotEmpty(t, first.GuestID)

	rec = f.register(t, inv.Slug, registerBody("Ada", "c-1", false))
	require.Equal(t, http.StatusOK, rec.Code)

	var second struct {
		GuestID string `json:"guest_id"`
		WasNew  bool   `json:"was_new"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&second))
	assert.False(t, second.WasNew)
	assert.Equal(t, first.GuestID, second.GuestID)
}

func TestRegisterValidation(t *testing.T) {
	f := newInviteFixture(t)
	inv := f.activeInvitation(t)

	rec := f.register(t, inv.Slug, map[string]interface{}{"display_name": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/invite/"+inv.Slug+"/register", bytes.NewReader([]byte("{not json")))
	rec2 := httptest.NewRecorder()
	f.router.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusBadRequest, rec2.Code)
}

func TestRegisterUnknownSlug(t *testing.T) {
	f := newInviteFixture(t)

	rec := f.register(t, "no-such-invite", registerBody("Ada", "c-1", false))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterLimitReached(t *testing.T) {
	f := newInviteFixture(t)
	inv := f.activeInvitation(t)

	for i := 0; i < 5; i++ {
		rec := f.register(t, inv.Slug, registerBody(fmt.Sprintf("tester-%d", i), fmt.Sprintf("t-%d", i), true))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := f.register(t, inv.Slug, registerBody("one too many", "t-overflow", true))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "test guest limit reached")
}

func TestRegisterDeactivatedInvitationGone(t *testing.T) {
	f := newInviteFixture(t)
	inv := f.activeInvitation(t)

	_, err := f.svc.DeactivateInvitation(context.Background(), inv.ID, "admin-1")
	require.NoError(t, err)

	rec := f.register(t, inv.Slug, registerBody("Ada", "c-1", false))
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestRegisterWithoutAnySignal(t *testing.T) {
	f := newInviteFixture(t)
	inv := f.activeInvitation(t)

	payload, err := json.Marshal(map[string]interface{}{"display_name": "Ada"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/invite/"+inv.Slug+"/register", bytes.NewReader(payload))
	req.RemoteAddr = ""
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterFallsBackToRequestIdentity(t *testing.T) {
	f := newInviteFixture(t)
	inv := f.activeInvitation(t)

	payload, err := json.Marshal(map[string]interface{}{"display_name": "Ada"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/invite/"+inv.Slug+"/register", bytes.NewReader(payload))
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 198.51.100.1")
	req.Header.Set("User-Agent", "Mozilla/5.0")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Same forwarded address registers as a repeat visit.
	req = httptest.NewRequest(http.MethodPost, "/invite/"+inv.Slug+"/register", bytes.NewReader(payload))
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	req.Header.Set("User-Agent", "Mozilla/5.0")
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
