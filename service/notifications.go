package service

import (
	"context"

	"github.com/agrosite/agrosite/store"
)

// NotificationService manages in-app notifications.
type NotificationService struct {
	store store.Store
}

// List returns notifications for userID, or all when userID is nil.
func (s *NotificationService) List(ctx context.Context, userID *int64) ([]store.Notification, error) {
	return s.store.Notifications().List(ctx, userID)
}

func (s *NotificationService) Get(ctx context.Context, id int64) (*store.Notification, error) {
	return s.store.Notifications().GetByID(ctx, id)
}

// Create stores n as unread. An empty type defaults to info.
func (s *NotificationService) Create(ctx context.Context, n *store.Notification) error {
	if n.Type == "" {
		n.Type = store.NotificationInfo
	}
	if !n.Type.Valid() {
		return ErrInvalidNotificationType
	}
	n.IsRead = false
	return s.store.Notifications().Create(ctx, n)
}

// MarkRead marks one notification as read and returns it.
func (s *NotificationService) MarkRead(ctx context.Context, id int64) (*store.Notification, error) {
	if err := s.store.Notifications().MarkRead(ctx, id); err != nil {
		return nil, err
	}
	return s.store.Notifications().GetByID(ctx, id)
}

// MarkAllRead marks every unread notification of userID as read, or every
// notification when userID is nil, and reports how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID *int64) (int64, error) {
	return s.store.Notifications().MarkAllRead(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, id int64) error {
	return s.store.Notifications().Delete(ctx, id)
}
