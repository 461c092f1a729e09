// Package lifecycle drives an order from draft through payment and admin
// decision to an activated invitation. Transitions are validated against the
// lifecycle graph up front and enforced again by conditional updates in the
// store, so a race between two admins resolves to exactly one decision.
package lifecycle

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/eventra/eventra-api/internal/models"
	"github.com/eventra/eventra-api/internal/notification"
	"github.com/eventra/eventra-api/internal/repository"
	"github.com/gosimple/slug"
	"github.com/rs/zerolog"
)

const (
	defaultSlugRetries      = 5
	manualClaimRefPrefix    = "claim:"
	slugSuffixBytes         = 4
	fallbackSlugBase        = "invite"
	defaultValidityFallback = 360 * time.Hour
)

type Service struct {
	orders           repository.OrderRepository
	invitations      repository.InvitationRepository
	catalog          repository.CatalogRepository
	notifications    notification.Service
	logger           zerolog.Logger
	slugRetries      int
	validityFallback time.Duration
	now              func() time.Time
}

func NewService(
	orders repository.OrderRepository,
	invitations repository.InvitationRepository,
	catalog repository.CatalogRepository,
	notifications notification.Service,
	logger zerolog.Logger,
) *Service {
	return &Service{
		orders:           orders,
		invitations:      invitations,
		catalog:          catalog,
		notifications:    notifications,
		logger:           logger.With().Str("component", "lifecycle").Logger(),
		slugRetries:      defaultSlugRetries,
		validityFallback: defaultValidityFallback,
		now:              time.Now,
	}
}

// WithClock overrides the service clock; used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithValidityFallback sets the validity window used for plans that do not
// carry their own.
func (s *Service) WithValidityFallback(window time.Duration) *Service {
	if window > 0 {
		s.validityFallback = window
	}
	return s
}

// CreateOrder opens a DRAFT order for the given plan.
func (s *Service) CreateOrder(ctx context.Context, userID, planCode, eventTitle string) (models.Order, error) {
	eventTitle = strings.TrimSpace(eventTitle)
	if eventTitle == "" {
		return models.Order{}, errors.New("event title is required")
	}
	if _, err := s.catalog.GetPlan(ctx, planCode); err != nil {
		return models.Order{}, err
	}
	return s.orders.Create(ctx, userID, planCode, eventTitle)
}

// FinalizeOrder locks in the template choice and moves the order to
// PENDING_PAYMENT. The template's tier must be covered by the order's plan.
func (s *Service) FinalizeOrder(ctx context.Context, orderID, templateID string) (models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return models.Order{}, err
	}
	if err := order.EnsureTransition(models.OrderStatusPendingPayment); err != nil {
		return models.Order{}, err
	}

	plan, err := s.catalog.GetPlan(ctx, order.PlanCode)
	if err != nil {
		return models.Order{}, err
	}
	tmpl, err := s.catalog.GetTemplate(ctx, templateID)
	if err != nil {
		return models.Order{}, err
	}
	if !plan.Tier.Covers(tmpl.Tier) {
		return models.Order{}, &models.TemplatePlanMismatchError{TemplateTier: tmpl.Tier, OrderTier: plan.Tier}
	}

	return s.orders.Finalize(ctx, orderID, templateID)
}

// ConfirmPayment applies an external payment-confirmation event. Replays of
// the same provider reference are no-ops.
func (s *Service) ConfirmPayment(ctx context.Context, evt models.PaymentEvent) (models.Order, error) {
	if strings.TrimSpace(evt.ProviderReference) == "" {
		return models.Order{}, errors.New("provider reference is required")
	}
	if evt.Status != models.PaymentStatusReceived && evt.Status != models.PaymentStatusFailed {
		return models.Order{}, errors.New("payment status must be RECEIVED or FAILED")
	}

	order, applied, err := s.orders.RecordPayment(ctx, evt)
	if err != nil {
		return models.Order{}, err
	}
	if applied && evt.Status == models.PaymentStatusReceived {
		s.notifications.NotifyPaymentConfirmed(ctx, order.UserID, order.ID)
	}
	return order, nil
}

// ClaimPayment records a manual "payment received" claim from the order
// owner. The synthetic provider reference makes repeat claims idempotent.
func (s *Service) ClaimPayment(ctx context.Context, orderID string) (models.Order, error) {
	return s.ConfirmPayment(ctx, models.PaymentEvent{
		OrderID:           orderID,
		ProviderReference: manualClaimRefPrefix + orderID,
		Status:            models.PaymentStatusReceived,
	})
}

// Approve takes the terminal admin decision and activates the invitation.
// The order's move to ACTIVE and the invitation insert happen in one store
// transaction; a slug collision retries the whole transaction with a fresh
// slug. Capacity limits are the plan base plus any links already granted.
func (s *Service) Approve(ctx context.Context, orderID, adminID, note string) (models.Order, models.Invitation, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		s.auditDecision(orderID, adminID, "approve", err)
		return models.Order{}, models.Invitation{}, err
	}
	if err := order.EnsureTransition(models.OrderStatusApproved); err != nil {
		s.auditDecision(orderID, adminID, "approve", err)
		return models.Order{}, models.Invitation{}, err
	}

	plan, err := s.catalog.GetPlan(ctx, order.PlanCode)
	if err != nil {
		s.auditDecision(orderID, adminID, "approve", err)
		return models.Order{}, models.Invitation{}, err
	}

	window := plan.ValidityWindow()
	if window <= 0 {
		window = s.validityFallback
	}

	now := s.now()
	seed := models.Invitation{
		RegularLimit: plan.BaseRegularLimit,
		TestLimit:    plan.BaseTestLimit,
		ActivatedAt:  now,
		ExpiresAt:    now.Add(window),
	}

	var (
		activated models.Order
		inv       models.Invitation
	)
	for attempt := 0; attempt < s.slugRetries; attempt++ {
		seed.Slug, err = generateSlug(order.EventTitle)
		if err != nil {
			break
		}
		activated, inv, err = s.orders.ActivateWithInvitation(ctx, orderID, adminID, note, seed)
		if !errors.Is(err, repository.ErrSlugTaken) {
			break
		}
	}
	s.auditDecision(orderID, adminID, "approve", err)
	if err != nil {
		return models.Order{}, models.Invitation{}, err
	}

	s.notifications.NotifyOrderApproved(ctx, activated.UserID, activated.ID, inv.Slug)
	return activated, inv, nil
}

// Reject closes the order permanently. No invitation is ever created for a
// rejected order.
func (s *Service) Reject(ctx context.Context, orderID, adminID, note string) (models.Order, error) {
	order, err := s.orders.Reject(ctx, orderID, adminID, note, s.now())
	s.auditDecision(orderID, adminID, "reject", err)
	if err != nil {
		return models.Order{}, err
	}
	s.notifications.NotifyOrderRejected(ctx, order.UserID, order.ID, note)
	return order, nil
}

// GrantLinks raises an order's quota. Grants are additive only; revocation is
// not supported.
func (s *Service) GrantLinks(ctx context.Context, orderID, adminID string, regularDelta, testDelta int, note string) (models.Order, error) {
	if regularDelta < 0 || testDelta < 0 {
		return models.Order{}, errors.New("link grants cannot be negative")
	}
	if regularDelta == 0 && testDelta == 0 {
		return models.Order{}, errors.New("at least one delta must be positive")
	}

	order, err := s.orders.GrantLinks(ctx, orderID, regularDelta, testDelta, note)
	s.auditDecision(orderID, adminID, "grant_links", err)
	if err != nil {
		return models.Order{}, err
	}
	s.notifications.NotifyLinksGranted(ctx, order.UserID, order.ID, regularDelta, testDelta)
	return order, nil
}

func (s *Service) AddNote(ctx context.Context, orderID, adminID, note string) (models.Order, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return models.Order{}, errors.New("note cannot be empty")
	}
	order, err := s.orders.AddNote(ctx, orderID, note)
	s.auditDecision(orderID, adminID, "add_note", err)
	return order, err
}

// ExtendValidity pushes an invitation's expiry forward.
func (s *Service) ExtendValidity(ctx context.Context, invitationID, adminID string, newExpiresAt time.Time) (models.Invitation, error) {
	if !newExpiresAt.After(s.now()) {
		return models.Invitation{}, errors.New("new expiry must be in the future")
	}

	inv, err := s.invitations.ExtendValidity(ctx, invitationID, newExpiresAt)
	s.auditInvitation(invitationID, adminID, "extend_validity", err)
	if err != nil {
		return models.Invitation{}, err
	}

	if order, oErr := s.orders.GetByID(ctx, inv.OrderID); oErr == nil {
		s.notifications.NotifyValidityExtended(ctx, order.UserID, inv.ID, newExpiresAt)
	}
	return inv, nil
}

func (s *Service) DeactivateInvitation(ctx context.Context, invitationID, adminID string) (models.Invitation, error) {
	inv, err := s.invitations.Deactivate(ctx, invitationID)
	s.auditInvitation(invitationID, adminID, "deactivate", err)
	return inv, err
}

// auditDecision records every admin-triggered order transition, successful or
// not.
func (s *Service) auditDecision(orderID, adminID, action string, err error) {
	evt := s.logger.Info()
	if err != nil {
		evt = s.logger.Warn().Err(err)
	}
	evt.Str("order_id", orderID).Str("admin_id", adminID).Str("action", action).Msg("admin order action")
}

func (s *Service) auditInvitation(invitationID, adminID, action string, err error) {
	evt := s.logger.Info()
	if err != nil {
		evt = s.logger.Warn().Err(err)
	}
	evt.Str("invitation_id", invitationID).Str("admin_id", adminID).Str("action", action).Msg("admin invitation action")
}

// generateSlug builds a URL-safe, human-shareable slug from the event title
// plus a short random suffix. The suffix keeps titles from colliding; the
// store's unique constraint is still the final authority.
func generateSlug(eventTitle string) (string, error) {
	base := slug.Make(eventTitle)
	if base == "" {
		base = fallbackSlugBase
	}

	suffix := make([]byte, slugSuffixBytes)
	if _, err := rand.Read(suffix); err != nil {
		return "", err
	}
	return base + "-" + hex.EncodeToString(suffix), nil
}
