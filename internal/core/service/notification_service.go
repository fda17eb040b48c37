package service

import (
	"context"

	"github.com/rl1809/order-desk/internal/core/domain"
	"github.com/rl1809/order-desk/internal/port"
)

const notificationListLimit = 50

type NotificationService struct {
	store port.Store
}

func NewNotificationService(store port.Store) *NotificationService {
	return &NotificationService{store: store}
}

// List returns the actor's latest notifications, newest first.
func (s *NotificationService) List(ctx context.Context, actor domain.Actor) ([]domain.Notification, error) {
	var out []domain.Notification
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		var err error
		out, err = repo.ListNotifications(ctx, actor.ID, notificationListLimit)
		return err
	})
	return out, err
}

func (s *NotificationService) UnreadCount(ctx context.Context, actor domain.Actor) (int, error) {
	var n int
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		var err error
		n, err = repo.CountUnread(ctx, actor.ID)
		return err
	})
	return n, err
}

func (s *NotificationService) MarkAsRead(ctx context.Context, actor domain.Actor, notificationID string) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		n, err := repo.GetNotification(ctx, notificationID)
		if err != nil {
			return err
		}
		if n == nil {
			return &domain.NotFoundError{Entity: "notification", Ref: notificationID}
		}
		if n.UserID != actor.ID {
			return &domain.AuthorizationError{Action: "mark another user's notification as read"}
		}
		return repo.MarkRead(ctx, actor.ID, []string{notificationID})
	})
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, actor domain.Actor) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, repo port.Repository) error {
		return repo.MarkRead(ctx, actor.ID, nil)
	})
}
