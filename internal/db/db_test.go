package db_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"turf-booking-backend/internal/db"
	"turf-booking-backend/internal/model"
	"turf-booking-backend/internal/testutil"
)

func TestLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, db.LogLevel("silent"))
	assert.Equal(t, logger.Error, db.LogLevel("ERROR"))
	assert.Equal(t, logger.Info, db.LogLevel("info"))
	assert.Equal(t, logger.Warn, db.LogLevel(""))
}

func TestMigrate_OneActiveBookingPerSlot(t *testing.T) {
	gormDB := testutil.NewDB(t)
	require.NoError(t, db.Migrate(gormDB), "migrations are repeatable")

	turf := testutil.SeedTurf(t, gormDB, 1, 1000)
	slot := testutil.SeedSlot(t, gormDB, turf.ID, "10:00", 0)
	holder := int64(7)

	expired := model.Booking{HolderID: &holder, TurfID: turf.ID, SlotID: slot.ID, Status: model.BookingExpired, TotalAmount: 1000}
	require.NoError(t, gormDB.Create(&expired).Error)

	active := model.Booking{HolderID: &holder, TurfID: turf.ID, SlotID: slot.ID, Status: model.BookingPending, TotalAmount: 1000}
	require.NoError(t, gormDB.Create(&active).Error, "history does not block a new booking")

	second := model.Booking{HolderID: &holder, TurfID: turf.ID, SlotID: slot.ID, Status: model.BookingConfirmed, TotalAmount: 1000}
	assert.Error(t, gormDB.Create(&second).Error, "a second active booking violates the partial index")
}
