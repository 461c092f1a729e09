package notification

import (
	"context"
	"fmt"

	"github.com/eventra/eventra-api/internal/models"
	"github.com/rs/zerolog"
)

// Notifier is a delivery channel for persisted notifications. Delivery
// mechanics (email, SMS, push) live outside the core; channels are injected
// at startup and failures never fail the triggering request.
type Notifier interface {
	Notify(ctx context.Context, notification models.Notification) error
}

func logNotifyError(logger zerolog.Logger, err error, channel string, notif models.Notification) {
	if err == nil {
		return
	}
	logger.Warn().
		Err(err).
		Str("notification_id", notif.ID).
		Str("event_type", string(notif.EventType)).
		Str("channel", channel).
		Msg("failed to deliver notification")
}

func notifierChannelName(n Notifier) string {
	type named interface {
		String() string
	}
	if v, ok := n.(named); ok {
		return v.String()
	}
	return fmt.Sprintf("%T", n)
}
