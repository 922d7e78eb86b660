package model

import "time"

// NotificationType categorises inbox messages.
type NotificationType string

const (
	NotificationInfo     NotificationType = "INFO"
	NotificationAlert    NotificationType = "ALERT"
	NotificationRequest  NotificationType = "REQUEST"
	NotificationApproval NotificationType = "APPROVAL"
)

// RelatedBooking is the RelatedType used for booking notifications.
const RelatedBooking = "BOOKING"

// Notification is a message delivered to a user's inbox.
type Notification struct {
	ID          int64            `gorm:"primaryKey" json:"id"`
	UserID      int64            `gorm:"not null;index:idx_notifications_user_created,priority:1" json:"userId"`
	Type        NotificationType `gorm:"size:32;not null" json:"type"`
	Message     string           `gorm:"type:text;not null" json:"message"`
	RelatedID   int64            `json:"relatedId"`
	RelatedType string           `gorm:"size:32" json:"relatedType"`
	Actionable  bool             `gorm:"not null" json:"actionable"`
	Read        bool             `gorm:"column:is_read;not null" json:"read"`
	CreatedAt   time.Time        `gorm:"not null;index:idx_notifications_user_created,priority:2" json:"createdAt"`
}
