package routes

import (
	"net/http"

	"github.com/eventra/eventra-api/internal/authz"
	"github.com/eventra/eventra-api/internal/handlers"
	"github.com/eventra/eventra-api/internal/models"
	"github.com/gorilla/mux"
)

// NewRouter sets up the API routes
func NewRouter(
	auth *handlers.AuthHandler,
	orderHandler *handlers.OrderHandler,
	inviteHandler *handlers.InviteHandler,
	paymentHandler *handlers.PaymentHandler,
	adminHandler *handlers.AdminHandler,
	catalogHandler *handlers.CatalogHandler,
	notificationHandler *handlers.NotificationHandler,
) *mux.Router {
	router := mux.NewRouter()

	// Health check route
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	// Public auth endpoints
	router.HandleFunc("/api/signup", auth.SignUp).Methods(http.MethodPost)
	router.HandleFunc("/api/login", auth.Login).Methods(http.MethodPost)

	// Public guest-facing endpoints
	router.HandleFunc("/invite/{slug}", inviteHandler.Preview).Methods(http.MethodGet)
	router.HandleFunc("/invite/{slug}/register", inviteHandler.Register).Methods(http.MethodPost)

	// Payment gateway callback; authenticated by the provider reference,
	// not by a user session.
	router.HandleFunc("/api/payments/confirmation", paymentHandler.Confirmation).Methods(http.MethodPost)

	// Public catalog
	router.HandleFunc("/api/plans", catalogHandler.ListPlans).Methods(http.MethodGet)
	router.HandleFunc("/api/templates", catalogHandler.ListTemplates).Methods(http.MethodGet)

	// Authenticated customer endpoints
	api := router.PathPrefix("/api").Subrouter()
	api.Use(auth.JWTMiddleware)

	api.HandleFunc("/orders", orderHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/orders", orderHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/orders/{orderID}", orderHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/orders/{orderID}/finalize", orderHandler.Finalize).Methods(http.MethodPost)
	api.HandleFunc("/orders/{orderID}/payment-claim", orderHandler.ClaimPayment).Methods(http.MethodPost)
	api.HandleFunc("/invitations/{invitationID}/guests", inviteHandler.ListGuests).Methods(http.MethodGet)
	api.HandleFunc("/notifications", notificationHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{notificationID}/read", notificationHandler.MarkRead).Methods(http.MethodPost)

	// Admin endpoints
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(authz.RequireRole(models.RoleAdmin))

	admin.HandleFunc("/orders", adminHandler.ListOrders).Methods(http.MethodGet)
	admin.HandleFunc("/orders/{orderID}/approve", adminHandler.Approve).Methods(http.MethodPost)
	admin.HandleFunc("/orders/{orderID}/reject", adminHandler.Reject).Methods(http.MethodPost)
	admin.HandleFunc("/orders/{orderID}/grant-links", adminHandler.GrantLinks).Methods(http.MethodPost)
	admin.HandleFunc("/orders/{orderID}/notes", adminHandler.AddNote).Methods(http.MethodPost)
	admin.HandleFunc("/invitations", adminHandler.ListInvitations).Methods(http.MethodGet)
	admin.HandleFunc("/invitations/{invitationID}/extend", adminHandler.ExtendValidity).Methods(http.MethodPost)
	admin.HandleFunc("/invitations/{invitationID}/deactivate", adminHandler.DeactivateInvitation).Methods(http.MethodPost)

	return router
}
