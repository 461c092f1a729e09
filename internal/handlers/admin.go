package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/eventra/eventra-api/internal/authz"
	"github.com/eventra/eventra-api/internal/lifecycle"
	"github.com/eventra/eventra-api/internal/models"
	"github.com/eventra/eventra-api/internal/repository"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// AdminHandler exposes the manual decision surface: approvals, rejections,
// link grants, notes, and invitation validity control.
type AdminHandler struct {
	service     *lifecycle.Service
	orders      repository.OrderRepository
	invitations repository.InvitationRepository
	logger      zerolog.Logger
}

func NewAdminHandler(service *lifecycle.Service, orders repository.OrderRepository, invitations repository.InvitationRepository, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		service:     service,
		orders:      orders,
		invitations: invitations,
		logger:      logger,
	}
}

type decisionRequest struct {
	Notes string `json:"notes"`
}

func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	adminID, _ := authz.UserIDFromRequest(r)
	var req decisionRequest
	json.NewDecoder(r.Body).Decode(&req)

	order, inv, err := h.service.Approve(r.Context(), mux.Vars(r)["orderID"], adminID, req.Notes)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Order      models.Order      `json:"order"`
		Invitation models.Invitation `json:"invitation"`
	}{Order: order, Invitation: inv})
}

func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	adminID, _ := authz.UserIDFromRequest(r)
	var req decisionRequest
	json.NewDecoder(r.Body).Decode(&req)

	order, err := h.service.Reject(r.Context(), mux.Vars(r)["orderID"], adminID, req.Notes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

type grantLinksRequest struct {
	RegularDelta int    `json:"regular_delta"`
	TestDelta    int    `json:"test_delta"`
	Notes        string `json:"notes"`
}

func (h *AdminHandler) GrantLinks(w http.ResponseWriter, r *http.Request) {
	adminID, _ := authz.UserIDFromRequest(r)
	var req grantLinksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	order, err := h.service.GrantLinks(r.Context(), mux.Vars(r)["orderID"], adminID, req.RegularDelta, req.TestDelta, req.Notes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

type noteRequest struct {
	Note string `json:"note"`
}

func (h *AdminHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	adminID, _ := authz.UserIDFromRequest(r)
	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Note == "" {
		http.Error(w, "note is required", http.StatusBadRequest)
		return
	}

	order, err := h.service.AddNote(r.Context(), mux.Vars(r)["orderID"], adminID, req.Note)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	status := models.OrderStatus(r.URL.Query().Get("status"))
	orders, err := h.orders.List(r.Context(), status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *AdminHandler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	invitations, err := h.invitations.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invitations)
}

type extendValidityRequest struct {
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *AdminHandler) ExtendValidity(w http.ResponseWriter, r *http.Request) {
	adminID, _ := authz.UserIDFromRequest(r)
	var req extendValidityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ExpiresAt.IsZero() {
		http.Error(w, "expires_at is required", http.StatusBadRequest)
		return
	}

	inv, err := h.service.ExtendValidity(r.Context(), mux.Vars(r)["invitationID"], adminID, req.ExpiresAt)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *AdminHandler) DeactivateInvitation(w http.ResponseWriter, r *http.Request) {
	adminID, _ := authz.UserIDFromRequest(r)

	inv, err := h.service.DeactivateInvitation(r.Context(), mux.Vars(r)["invitationID"], adminID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}
