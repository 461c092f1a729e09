package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/eventra/eventra-api/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		transitionErr *models.InvalidOrderTransitionError
		mismatchErr   *models.TemplatePlanMismatchError
		limitErr      *models.GuestLimitReachedError
	)

	switch {
	case errors.Is(err, models.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, models.ErrInvitationUnavailable):
		http.Error(w, err.Error(), http.StatusGone)
	case errors.Is(err, models.ErrInvalidSignal):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &limitErr):
		http.Error(w, limitErr.Error(), http.StatusConflict)
	case errors.As(err, &transitionErr):
		http.Error(w, transitionErr.Error(), http.StatusConflict)
	case errors.As(err, &mismatchErr):
		http.Error(w, mismatchErr.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
