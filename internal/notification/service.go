// Package notification keeps each user's inbox and pushes new messages to
// their registered browsers.
package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"turf-booking-backend/internal/apperr"
	"turf-booking-backend/internal/model"
)

// Dispatcher queues a stored notification for push delivery.
type Dispatcher interface {
	Dispatch(n model.Notification) bool
}

// Service stores notifications and hands them to the push dispatcher.
type Service struct {
	db         *gorm.DB
	dispatcher Dispatcher
	logger     *zap.Logger
}

// NewService creates a notification service. dispatcher may be nil, in which
// case notifications only reach the inbox.
func NewService(db *gorm.DB, dispatcher Dispatcher, logger *zap.Logger) *Service {
	return &Service{db: db, dispatcher: dispatcher, logger: logger}
}

// Notify stores n and queues it for push delivery. Failures are logged and
// never reach the caller.
func (s *Service) Notify(ctx context.Context, n model.Notification) {
	n.ID = 0
	n.Read = false
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		s.logger.Error("failed to store notification",
			zap.Int64("user_id", n.UserID),
			zap.String("type", string(n.Type)),
			zap.Error(err),
		)
		return
	}
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(n)
	}
}

// List returns a user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID int64, unreadOnly bool) ([]model.Notification, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var notifications []model.Notification
	if err := q.Order("created_at DESC, id DESC").Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// UnreadCount returns how many of a user's notifications are unread.
func (s *Service) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one of the user's notifications as read.
func (s *Service) MarkRead(ctx context.Context, userID, id int64) error {
	res := s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return fmt.Errorf("failed to mark notification %d read: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead marks every notification of the user as read.
func (s *Service) MarkAllRead(ctx context.Context, userID int64) error {
	if err := s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error; err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

// Delete removes one of the user's notifications.
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.Notification{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete notification %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotificationNotFound
	}
	return nil
}

// Subscribe registers or refreshes a browser push subscription for userID.
func (s *Service) Subscribe(ctx context.Context, sub model.PushSubscription) error {
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth"}),
	}).Create(&sub).Error; err != nil {
		return fmt.Errorf("failed to save push subscription: %w", err)
	}
	return nil
}

// Unsubscribe removes the caller's subscription for endpoint.
func (s *Service) Unsubscribe(ctx context.Context, userID int64, endpoint string) error {
	if err := s.db.WithContext(ctx).
		Where("endpoint = ? AND user_id = ?", endpoint, userID).
		Delete(&model.PushSubscription{}).Error; err != nil {
		return fmt.Errorf("failed to delete push subscription: %w", err)
	}
	return nil
}
