package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/eventra/eventra-api/internal/authz"
	"github.com/eventra/eventra-api/internal/lifecycle"
	"github.com/eventra/eventra-api/internal/models"
	"github.com/eventra/eventra-api/internal/repository"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type OrderHandler struct {
	service     *lifecycle.Service
	orders      repository.OrderRepository
	invitations repository.InvitationRepository
	logger      zerolog.Logger
}

func NewOrderHandler(service *lifecycle.Service, orders repository.OrderRepository, invitations repository.InvitationRepository, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service:     service,
		orders:      orders,
		invitations: invitations,
		logger:      logger,
	}
}

type createOrderRequest struct {
	PlanCode   string `json:"plan_code"`
	EventTitle string `json:"event_title"`
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "user context missing", http.StatusUnauthorized)
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), userID, req.PlanCode, req.EventTitle)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

type finalizeOrderRequest struct {
	TemplateID string `json:"template_id"`
}

func (h *OrderHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	order, ok := h.loadOwnedOrder(w, r)
	if !ok {
		return
	}

	var req finalizeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TemplateID == "" {
		http.Error(w, "template_id is required", http.StatusBadRequest)
		return
	}

	updated, err := h.service.FinalizeOrder(r.Context(), order.ID, req.TemplateID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// ClaimPayment lets the owner manually claim "payment sent" when no gateway
// callback will arrive. Repeated claims are idempotent.
func (h *OrderHandler) ClaimPayment(w http.ResponseWriter, r *http.Request) {
	order, ok := h.loadOwnedOrder(w, r)
	if !ok {
		return
	}

	updated, err := h.service.ClaimPayment(r.Context(), order.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, ok := h.loadOwnedOrder(w, r)
	if !ok {
		return
	}

	response := struct {
		models.Order
		Invitation *models.Invitation `json:"invitation,omitempty"`
	}{Order: order}

	if inv, err := h.invitations.GetByOrderID(r.Context(), order.ID); err == nil {
		response.Invitation = &inv
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "user context missing", http.StatusUnauthorized)
		return
	}

	orders, err := h.orders.ListByUser(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// loadOwnedOrder fetches the order and enforces that the requester owns it or
// is an admin.
func (h *OrderHandler) loadOwnedOrder(w http.ResponseWriter, r *http.Request) (models.Order, bool) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "user context missing", http.StatusUnauthorized)
		return models.Order{}, false
	}

	orderID := mux.Vars(r)["orderID"]
	order, err := h.orders.GetByID(r.Context(), orderID)
	if err != nil {
		writeDomainError(w, err)
		return models.Order{}, false
	}

	roles, _ := authz.RolesFromRequest(r)
	if order.UserID != userID && !models.HasAtLeast(roles, models.RoleAdmin) {
		http.Error(w, "insufficient permissions", http.StatusForbidden)
		return models.Order{}, false
	}
	return order, true
}
