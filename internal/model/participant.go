package model

import "time"

// ParticipantStatus is the state of one payer's share.
type ParticipantStatus string

const (
	ParticipantSent     ParticipantStatus = "SENT"
	ParticipantPending  ParticipantStatus = "PENDING"
	ParticipantPaid     ParticipantStatus = "PAID"
	ParticipantDeclined ParticipantStatus = "DECLINED"
	ParticipantRejected ParticipantStatus = "REJECTED"
)

// ParseParticipantStatus maps a raw status string onto the enum.
func ParseParticipantStatus(raw string) (ParticipantStatus, bool) {
	switch s := ParticipantStatus(raw); s {
	case ParticipantSent, ParticipantPending, ParticipantPaid, ParticipantDeclined, ParticipantRejected:
		return s, true
	}
	return "", false
}

// Participant is a user sharing the payment of one booking.
type Participant struct {
	ID               int64             `gorm:"primaryKey" json:"id"`
	BookingID        int64             `gorm:"not null;uniqueIndex:idx_participants_booking_user,priority:1" json:"bookingId"`
	UserID           int64             `gorm:"not null;index;uniqueIndex:idx_participants_booking_user,priority:2" json:"userId"`
	ShareAmount      int64             `gorm:"not null" json:"shareAmount"`
	Status           ParticipantStatus `gorm:"size:16;not null" json:"status"`
	PaymentReference string            `gorm:"size:128" json:"paymentReference,omitempty"`
	PaidAt           *time.Time        `json:"paidAt,omitempty"`
	CreatedAt        time.Time         `gorm:"not null" json:"createdAt"`
	UpdatedAt        time.Time         `gorm:"not null" json:"updatedAt"`
}

// TableName keeps the participants table name explicit.
func (Participant) TableName() string {
	return "booking_participants"
}
