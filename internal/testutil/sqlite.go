// Package testutil provides a throwaway sqlite database for package tests.
package testutil

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"turf-booking-backend/internal/db"
	"turf-booking-backend/internal/model"
	"turf-booking-backend/internal/parse"
)

// NewDB opens a fresh, migrated in-memory sqlite database private to t.
// The pool is capped at one connection so concurrent transactions run one
// after another, the way row locks serialize them on postgres.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to open in-memory sqlite")

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gormDB))
	return gormDB
}

// SeedTurf inserts a turf owned by ownerID.
func SeedTurf(t *testing.T, gormDB *gorm.DB, ownerID, basePrice int64) model.Turf {
	t.Helper()
	turf := model.Turf{OwnerID: ownerID, Name: "Arena", Location: "Downtown", BasePrice: basePrice}
	require.NoError(t, gormDB.Create(&turf).Error)
	return turf
}

// SeedSlot inserts an available, unlocked slot on turfID.
func SeedSlot(t *testing.T, gormDB *gorm.DB, turfID int64, start string, customPrice int64) model.Slot {
	t.Helper()
	begin, err := parse.ParseClock(start)
	require.NoError(t, err)
	slot := model.Slot{
		TurfID:      turfID,
		Date:        "2026-03-01",
		StartTime:   begin.String(),
		EndTime:     begin.Add(60).String(),
		Available:   true,
		CustomPrice: customPrice,
	}
	require.NoError(t, gormDB.Create(&slot).Error)
	return slot
}

// ReloadSlot fetches the current state of a slot.
func ReloadSlot(t *testing.T, gormDB *gorm.DB, id int64) model.Slot {
	t.Helper()
	var slot model.Slot
	require.NoError(t, gormDB.First(&slot, id).Error)
	return slot
}

// ReloadBooking fetches the current state of a booking.
func ReloadBooking(t *testing.T, gormDB *gorm.DB, id int64) model.Booking {
	t.Helper()
	var booking model.Booking
	require.NoError(t, gormDB.First(&booking, id).Error)
	return booking
}

// Clock is a settable time source for tests.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock frozen at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
