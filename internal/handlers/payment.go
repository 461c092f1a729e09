package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/eventra/eventra-api/internal/lifecycle"
	"github.com/eventra/eventra-api/internal/models"
	"github.com/rs/zerolog"
)

// PaymentHandler receives gateway confirmation callbacks. The provider
// reference deduplicates retries from the gateway side.
type PaymentHandler struct {
	service *lifecycle.Service
	logger  zerolog.Logger
}

func NewPaymentHandler(service *lifecycle.Service, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{service: service, logger: logger}
}

func (h *PaymentHandler) Confirmation(w http.ResponseWriter, r *http.Request) {
	var evt models.PaymentEvent
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	if evt.OrderID == "" || evt.ProviderReference == "" {
		http.Error(w, "order_id and provider_reference are required", http.StatusBadRequest)
		return
	}

	order, err := h.service.ConfirmPayment(r.Context(), evt)
	if err != nil {
		h.logger.Warn().Err(err).Str("order_id", evt.OrderID).Str("provider_reference", evt.ProviderReference).Msg("payment confirmation rejected")
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"order_id": order.ID,
		"status":   order.Status,
	})
}
