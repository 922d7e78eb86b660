package model

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingExpired   BookingStatus = "EXPIRED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingCompleted BookingStatus = "COMPLETED"
)

// ActiveBookingStatuses are the statuses that keep a slot occupied.
var ActiveBookingStatuses = []BookingStatus{BookingPending, BookingConfirmed, BookingCompleted}

// Terminal reports whether no further transition is possible.
func (s BookingStatus) Terminal() bool {
	switch s {
	case BookingExpired, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

// Booking is a customer's reservation of one slot.
type Booking struct {
	ID int64 `gorm:"primaryKey" json:"id"`
	// HolderID is nil for walk-in bookings created by the turf owner.
	HolderID      *int64 `gorm:"index" json:"holderId"`
	CustomerName  string `gorm:"size:128" json:"customerName,omitempty"`
	CustomerPhone string `gorm:"size:32" json:"customerPhone,omitempty"`
	TurfID        int64  `gorm:"not null;index" json:"turfId"`
	SlotID        int64  `gorm:"not null;index" json:"slotId"`

	Status      BookingStatus `gorm:"size:20;not null;index:idx_bookings_status_expiry,priority:1" json:"status"`
	TotalAmount int64         `gorm:"not null" json:"totalAmount"`
	ExpiresAt   *time.Time    `gorm:"index:idx_bookings_status_expiry,priority:2" json:"expiresAt,omitempty"`

	CheckInSecret    *string `gorm:"size:64;uniqueIndex" json:"checkInSecret,omitempty"`
	PaymentReference string  `gorm:"size:128" json:"paymentReference,omitempty"`

	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
	CheckedInAt *time.Time `json:"checkedInAt,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updatedAt"`
}

// HeldBy reports whether userID is the booking holder.
func (b Booking) HeldBy(userID int64) bool {
	return b.HolderID != nil && *b.HolderID == userID
}
