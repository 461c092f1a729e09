package models

import (
	"encoding/json"
	"time"
)

type NotificationSeverity string

const (
	NotificationSeverityInfo    NotificationSeverity = "info"
	NotificationSeverityWarning NotificationSeverity = "warning"
	NotificationSeverityError   NotificationSeverity = "error"
)

type NotificationEvent string

const (
	NotificationEventOrderApproved     NotificationEvent = "order_approved"
	NotificationEventOrderRejected     NotificationEvent = "order_rejected"
	NotificationEventLinksGranted      NotificationEvent = "links_granted"
	NotificationEventInvitationExpired NotificationEvent = "invitation_expired"
	NotificationEventValidityExtended  NotificationEvent = "validity_extended"
	NotificationEventPaymentConfirmed  NotificationEvent = "payment_confirmed"
)

type Notification struct {
	ID        string               `json:"id"`
	UserID    *string              `json:"user_id,omitempty"`
	EventType NotificationEvent    `json:"event_type"`
	Severity  NotificationSeverity `json:"severity"`
	Title     string               `json:"title"`
	Message   string               `json:"message"`
	Metadata  json.RawMessage      `json:"metadata,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	ReadAt    *time.Time           `json:"read_at,omitempty"`
}
