package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/eventra/eventra-api/internal/models"
	"github.com/eventra/eventra-api/internal/repository"
	"github.com/rs/zerolog"
)

type Event struct {
	UserID   string
	Event    models.NotificationEvent
	Severity models.NotificationSeverity
	Title    string
	Message  string
	Metadata map[string]interface{}
}

type Service interface {
	Publish(ctx context.Context, evt Event) (models.Notification, error)
	NotifyPaymentConfirmed(ctx context.Context, userID, orderID string) error
	NotifyOrderApproved(ctx context.Context, userID, orderID, invitationSlug string) error
	NotifyOrderRejected(ctx context.Context, userID, orderID, reason string) error
	NotifyLinksGranted(ctx context.Context, userID, orderID string, regularDelta, testDelta int) error
	NotifyValidityExtended(ctx context.Context, userID, invitationID string, newExpiry time.Time) error
	ListRecent(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) (models.Notification, error)
}

type service struct {
	repo      repository.NotificationRepository
	logger    zerolog.Logger
	notifiers []Notifier
}

func NewService(repo repository.NotificationRepository, logger zerolog.Logger, notifiers ...Notifier) Service {
	active := make([]Notifier, 0, len(notifiers))
	for _, notifier := range notifiers {
		if notifier != nil {
			active = append(active, notifier)
		}
	}
	return &service{
		repo:      repo,
		logger:    logger.With().Str("component", "notification_service").Logger(),
		notifiers: active,
	}
}

func (s *service) Publish(ctx context.Context, evt Event) (models.Notification, error) {
	if evt.Event == "" {
		return models.Notification{}, fmt.Errorf("event type is required")
	}
	if evt.Severity == "" {
		evt.Severity = models.NotificationSeverityInfo
	}
	title := strings.TrimSpace(evt.Title)
	message := strings.TrimSpace(evt.Message)
	if title == "" {
		title = string(evt.Event)
	}
	params := repository.CreateNotificationParams{
		Event:    evt.Event,
		Severity: evt.Severity,
		Title:    title,
		Message:  message,
		Metadata: evt.Metadata,
	}
	if uid := strings.TrimSpace(evt.UserID); uid != "" {
		params.UserID = &uid
	}

	notif, err := s.repo.Create(ctx, params)
	if err != nil {
		s.logger.Error().Err(err).Str("event_type", string(evt.Event)).Msg("failed to persist notification")
		return models.Notification{}, err
	}
	for _, notifier := range s.notifiers {
		if err := notifier.Notify(ctx, notif); err != nil {
			logNotifyError(s.logger, err, notifierChannelName(notifier), notif)
		}
	}
	return notif, nil
}

func (s *service) NotifyPaymentConfirmed(ctx context.Context, userID, orderID string) error {
	_, err := s.Publish(ctx, Event{
		UserID:   userID,
		Event:    models.NotificationEventPaymentConfirmed,
		Severity: models.NotificationSeverityInfo,
		Title:    "Payment received",
		Message:  "Your payment was received. The order is now awaiting approval.",
		Metadata: map[string]interface{}{"order_id": orderID},
	})
	return err
}

func (s *service) NotifyOrderApproved(ctx context.Context, userID, orderID, invitationSlug string) error {
	_, err := s.Publish(ctx, Event{
		UserID:   userID,
		Event:    models.NotificationEventOrderApproved,
		Severity: models.NotificationSeverityInfo,
		Title:    "Order approved",
		Message:  fmt.Sprintf("Your invitation is live at /invite/%s.", invitationSlug),
		Metadata: map[string]interface{}{
			"order_id":        orderID,
			"invitation_slug": invitationSlug,
		},
	})
	return err
}

func (s *service) NotifyOrderRejected(ctx context.Context, userID, orderID, reason string) error {
	message := "Your order was rejected."
	if reason = strings.TrimSpace(reason); reason != "" {
		message = fmt.Sprintf("Your order was rejected: %s", reason)
	}
	_, err := s.Publish(ctx, Event{
		UserID:   userID,
		Event:    models.NotificationEventOrderRejected,
		Severity: models.NotificationSeverityWarning,
		Title:    "Order rejected",
		Message:  message,
		Metadata: map[string]interface{}{"order_id": orderID},
	})
	return err
}

func (s *service) NotifyLinksGranted(ctx context.Context, userID, orderID string, regularDelta, testDelta int) error {
	_, err := s.Publish(ctx, Event{
		UserID:   userID,
		Event:    models.NotificationEventLinksGranted,
		Severity: models.NotificationSeverityInfo,
		Title:    "Extra links granted",
		Message:  fmt.Sprintf("An admin granted %d extra regular and %d extra test guest slots.", regularDelta, testDelta),
		Metadata: map[string]interface{}{
			"order_id":      orderID,
			"regular_delta": regularDelta,
			"test_delta":    testDelta,
		},
	})
	return err
}

func (s *service) NotifyValidityExtended(ctx context.Context, userID, invitationID string, newExpiry time.Time) error {
	_, err := s.Publish(ctx, Event{
		UserID:   userID,
		Event:    models.NotificationEventValidityExtended,
		Severity: models.NotificationSeverityInfo,
		Title:    "Invitation extended",
		Message:  fmt.Sprintf("Your invitation now stays open until %s.", newExpiry.Format(time.RFC1123)),
		Metadata: map[string]interface{}{
			"invitation_id": invitationID,
			"expires_at":    newExpiry,
		},
	})
	return err
}

func (s *service) ListRecent(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	return s.repo.ListRecent(ctx, userID, limit)
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID string) (models.Notification, error) {
	return s.repo.MarkRead(ctx, userID, notificationID)
}
