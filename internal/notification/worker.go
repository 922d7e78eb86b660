package notification

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"turf-booking-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// pushPayload is the JSON body delivered to the service worker.
type pushPayload struct {
	Type        model.NotificationType `json:"type"`
	Message     string                 `json:"message"`
	RelatedID   int64                  `json:"relatedId"`
	RelatedType string                 `json:"relatedType"`
	Actionable  bool                   `json:"actionable"`
}

// WorkerPool pushes persisted notifications to the recipients' browsers.
type WorkerPool struct {
	size    int
	jobs    chan model.Notification
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
	logger  *zap.Logger
}

// NewWorkerPool creates a new worker pool. queueSize bounds the number of
// notifications waiting for a worker.
func NewWorkerPool(size, queueSize int, db *gorm.DB, webpushOptions *webpush.Options, logger *zap.Logger) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if queueSize < size {
		queueSize = size
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan model.Notification, queueSize),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		logger:  logger,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.logger.Debug("push worker started", zap.Int("worker", id))
	for {
		select {
		case n := <-wp.jobs:
			wp.sendNotificationsForUser(ctx, n)
		case <-ctx.Done():
			wp.logger.Debug("push worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Dispatch queues n for push delivery. It never blocks: when the queue is
// full the push is dropped, the inbox copy is unaffected.
func (wp *WorkerPool) Dispatch(n model.Notification) bool {
	select {
	case wp.jobs <- n:
		return true
	default:
		wp.logger.Warn("push queue full, dropping notification",
			zap.Int64("user_id", n.UserID),
			zap.Int64("notification_id", n.ID),
		)
		return false
	}
}

func (wp *WorkerPool) sendNotificationsForUser(ctx context.Context, n model.Notification) {
	var subscriptions []model.PushSubscription
	if err := wp.db.WithContext(ctx).Where("user_id = ?", n.UserID).Find(&subscriptions).Error; err != nil {
		wp.logger.Error("failed to fetch push subscriptions", zap.Int64("user_id", n.UserID), zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(pushPayload{
		Type:        n.Type,
		Message:     n.Message,
		RelatedID:   n.RelatedID,
		RelatedType: n.RelatedType,
		Actionable:  n.Actionable,
	})
	if err != nil {
		wp.logger.Error("failed to encode push payload", zap.Error(err))
		return
	}

	wp.logger.Debug("sending push notifications",
		zap.Int64("user_id", n.UserID),
		zap.Int("subscriptions", len(subscriptions)),
	)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.logger.Warn("failed to send push notification", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		wp.logger.Info("push subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			wp.logger.Error("failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}
