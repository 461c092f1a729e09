package memory

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/eventra/eventra-api/internal/models"
	"github.com/eventra/eventra-api/internal/repository"
	"github.com/google/uuid"
)

type notificationRepo struct {
	s *Store
}

// Notifications returns the notification feed view of the store.
func (s *Store) Notifications() repository.NotificationRepository {
	return notificationRepo{s: s}
}

func (r notificationRepo) Create(ctx context.Context, params repository.CreateNotificationParams) (models.Notification, error) {
	var metadata json.RawMessage
	if len(params.Metadata) > 0 {
		bytes, err := json.Marshal(params.Metadata)
		if err != nil {
			return models.Notification{}, err
		}
		metadata = bytes
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	notif := &models.Notification{
		ID:        uuid.NewString(),
		UserID:    params.UserID,
		EventType: params.Event,
		Severity:  params.Severity,
		Title:     params.Title,
		Message:   params.Message,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
	r.s.notifications[notif.ID] = notif
	return cloneNotification(notif), nil
}

func (r notificationRepo) ListRecent(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var notifications []models.Notification
	for _, notif := range r.s.notifications {
		if notif.UserID == nil || *notif.UserID == userID {
			notifications = append(notifications, cloneNotification(notif))
		}
	}
	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	if len(notifications) > limit {
		notifications = notifications[:limit]
	}
	return notifications, nil
}

func (r notificationRepo) MarkRead(ctx context.Context, userID, notificationID string) (models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	notif, ok := r.s.notifications[notificationID]
	if !ok || (notif.UserID != nil && *notif.UserID != userID) || notif.ReadAt != nil {
		return models.Notification{}, models.ErrNotFound
	}
	now := time.Now()
	notif.ReadAt = &now
	return cloneNotification(notif), nil
}

func cloneNotification(n *models.Notification) models.Notification {
	out := *n
	if n.UserID != nil {
		v := *n.UserID
		out.UserID = &v
	}
	if n.ReadAt != nil {
		v := *n.ReadAt
		out.ReadAt = &v
	}
	out.Metadata = append(json.RawMessage(nil), n.Metadata...)
	return out
}
