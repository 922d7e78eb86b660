package model

import "time"

// Turf is a bookable physical resource owned by a single user.
type Turf struct {
	ID       int64  `gorm:"primaryKey" json:"id"`
	OwnerID  int64  `gorm:"index;not null" json:"ownerId"`
	Name     string `gorm:"size:128;not null" json:"name"`
	Location string `gorm:"size:256" json:"location"`
	// BasePrice is in minor currency units.
	BasePrice int64     `gorm:"not null;default:0" json:"basePrice"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}
