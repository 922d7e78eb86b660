package model

import "time"

// Slot is a fixed time interval at a turf. Lock fields describe the
// temporary claim held while a customer pays.
type Slot struct {
	ID        int64  `gorm:"primaryKey" json:"id"`
	TurfID    int64  `gorm:"not null;uniqueIndex:idx_slots_turf_date_start,priority:1" json:"turfId"`
	Date      string `gorm:"column:slot_date;size:10;not null;index;uniqueIndex:idx_slots_turf_date_start,priority:2" json:"date"`
	StartTime string `gorm:"size:5;not null;uniqueIndex:idx_slots_turf_date_start,priority:3" json:"startTime"`
	EndTime   string `gorm:"size:5;not null" json:"endTime"`

	// Available is false once a booking for the slot has been confirmed.
	Available     bool       `gorm:"not null" json:"available"`
	Locked        bool       `gorm:"not null;index:idx_slots_lock_expiry,priority:1" json:"locked"`
	LockedBy      *int64     `json:"lockedBy,omitempty"`
	LockedAt      *time.Time `json:"lockedAt,omitempty"`
	LockExpiresAt *time.Time `gorm:"index:idx_slots_lock_expiry,priority:2" json:"lockExpiresAt,omitempty"`

	// CustomPrice overrides the turf base price when positive.
	CustomPrice int64     `gorm:"not null;default:0" json:"customPrice"`
	Version     int64     `gorm:"not null;default:0" json:"version"`
	CreatedAt   time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"not null" json:"updatedAt"`
}

// Lockable reports whether holderID may claim the slot at now, ignoring
// existing bookings.
func (s Slot) Lockable(holderID int64, now time.Time) bool {
	if !s.Available {
		return false
	}
	if !s.Locked {
		return true
	}
	if s.LockedBy != nil && *s.LockedBy == holderID {
		return true
	}
	return s.LockExpiresAt == nil || !s.LockExpiresAt.After(now)
}
