package handlers

import (
	"net/http"
	"strconv"

	"github.com/eventra/eventra-api/internal/authz"
	"github.com/eventra/eventra-api/internal/notification"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type NotificationHandler struct {
	notifications notification.Service
	logger        zerolog.Logger
}

func NewNotificationHandler(notifications notification.Service, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, logger: logger}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "user context missing", http.StatusUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	notifications, err := h.notifications.ListRecent(r.Context(), userID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "user context missing", http.StatusUnauthorized)
		return
	}

	notif, err := h.notifications.MarkRead(r.Context(), userID, mux.Vars(r)["notificationID"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notif)
}
