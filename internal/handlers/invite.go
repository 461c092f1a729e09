package handlers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/eventra/eventra-api/internal/authz"
	"github.com/eventra/eventra-api/internal/fingerprint"
	"github.com/eventra/eventra-api/internal/models"
	"github.com/eventra/eventra-api/internal/registry"
	"github.com/eventra/eventra-api/internal/repository"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// InviteHandler is the guest-facing surface: the public invitation page and
// the registration endpoint, plus the owner's guest listing.
type InviteHandler struct {
	registry    *registry.Registry
	invitations repository.InvitationRepository
	orders      repository.OrderRepository
	logger      zerolog.Logger
}

func NewInviteHandler(reg *registry.Registry, invitations repository.InvitationRepository, orders repository.OrderRepository, logger zerolog.Logger) *InviteHandler {
	return &InviteHandler{
		registry:    reg,
		invitations: invitations,
		orders:      orders,
		logger:      logger,
	}
}

type invitePreviewResponse struct {
	Slug             string                  `json:"slug"`
	EventTitle       string                  `json:"event_title"`
	Status           models.InvitationStatus `json:"status"`
	ExpiresAt        time.Time               `json:"expires_at"`
	RegularRemaining int                     `json:"regular_remaining"`
	TestRemaining    int                     `json:"test_remaining"`
}

func (h *InviteHandler) Preview(w http.ResponseWriter, r *http.Request) {
	inv, err := h.registry.Preview(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			http.Error(w, "invitation not found", http.StatusNotFound)
			return
		}
		writeDomainError(w, err)
		return
	}

	if !inv.AcceptsGuests(time.Now()) {
		http.Error(w, "invitation expired", http.StatusGone)
		return
	}

	writeJSON(w, http.StatusOK, invitePreviewResponse{
		Slug:             inv.Slug,
		EventTitle:       inv.EventTitle,
		Status:           inv.EffectiveStatus(time.Now()),
		ExpiresAt:        inv.ExpiresAt,
		RegularRemaining: inv.Remaining(models.GuestKindRegular),
		TestRemaining:    inv.Remaining(models.GuestKindTest),
	})
}

type registerRequest struct {
	DisplayName      string                       `json:"display_name"`
	IsTest           bool                         `json:"is_test"`
	ClientAttributes fingerprint.ClientAttributes `json:"client_attributes"`
}

type registerResponse struct {
	GuestID     string `json:"guest_id"`
	DisplayName string `json:"display_name"`
	WasNew      bool   `json:"was_new"`
}

func (h *InviteHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.DisplayName) == "" {
		http.Error(w, "display_name is required", http.StatusBadRequest)
		return
	}

	guest, wasNew, err := h.registry.Register(r.Context(), registry.RegisterRequest{
		Slug:        mux.Vars(r)["slug"],
		DisplayName: strings.TrimSpace(req.DisplayName),
		IsTest:      req.IsTest,
		Attributes:  req.ClientAttributes,
		Meta: fingerprint.RequestMeta{
			SourceIP:  clientIP(r),
			UserAgent: r.UserAgent(),
		},
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			http.Error(w, "invitation not found", http.StatusNotFound)
			return
		}
		writeDomainError(w, err)
		return
	}

	status := http.StatusOK
	if wasNew {
		status = http.StatusCreated
	}
	writeJSON(w, status, registerResponse{
		GuestID:     guest.ID,
		DisplayName: guest.DisplayName,
		WasNew:      wasNew,
	})
}

// ListGuests serves the invitation's guest list to its owner or an admin.
func (h *InviteHandler) ListGuests(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "user context missing", http.StatusUnauthorized)
		return
	}

	inv, err := h.invitations.GetByID(r.Context(), mux.Vars(r)["invitationID"])
	if err != nil {
		writeDomainError(w, err)
		return
	}

	order, err := h.orders.GetByID(r.Context(), inv.OrderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	roles, _ := authz.RolesFromRequest(r)
	if order.UserID != userID && !models.HasAtLeast(roles, models.RoleAdmin) {
		http.Error(w, "insufficient permissions", http.StatusForbidden)
		return
	}

	guests, err := h.registry.Guests(r.Context(), inv.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, guests)
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the
// connection's remote address.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
