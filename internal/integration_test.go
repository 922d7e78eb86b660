package internal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"turf-booking-backend/internal/apperr"
	"turf-booking-backend/internal/booking"
	"turf-booking-backend/internal/lock"
	"turf-booking-backend/internal/model"
	"turf-booking-backend/internal/notification"
	"turf-booking-backend/internal/schedule"
	"turf-booking-backend/internal/settlement"
	"turf-booking-backend/internal/store"
	"turf-booking-backend/internal/sweeper"
	"turf-booking-backend/internal/testutil"
)

// TestBookingLifecycle walks one slot through an abandoned hold, its reclaim
// by the sweeper, a split-payment booking by another user and the final
// check-in, verifying the database state at each step.
func TestBookingLifecycle(t *testing.T) {
	// --- Test Setup ---
	const (
		owner = int64(1)
		alice = int64(10)
		bob   = int64(11)
		carol = int64(12)
	)
	ctx := context.Background()
	testDB := testutil.NewDB(t)
	clock := testutil.NewClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	logger := zap.NewNop()

	st := store.NewGormStore(testDB)
	locks := lock.NewManager(15*time.Minute, clock.Now, logger)
	bookings := booking.NewService(st, locks, 1000, clock.Now, logger)
	notifications := notification.NewService(testDB, nil, logger)
	settlements := settlement.NewService(st, bookings, notifications, clock.Now, logger)
	scheduler := schedule.NewService(st, logger)
	sweeperSvc := sweeper.NewService(testDB, locks, time.Minute, clock.Now, logger)

	turf, err := scheduler.CreateTurf(ctx, owner, "Arena", "Downtown", 1500)
	require.NoError(t, err)
	slots, err := scheduler.Generate(ctx, owner, turf.ID, schedule.GenerateRequest{
		Date:            "2026-03-01",
		StartTime:       "18:00",
		EndTime:         "21:00",
		DurationMinutes: 60,
	})
	require.NoError(t, err)
	require.Len(t, slots, 3)
	slot := slots[0]
	assert.Equal(t, "18:00", slot.StartTime)

	// --- Cycle 1: Alice holds the slot and walks away ---
	var abandoned *model.Booking
	t.Run("Cycle 1: Hold Is Abandoned", func(t *testing.T) {
		abandoned, err = bookings.Initiate(ctx, booking.InitiateRequest{HolderID: alice, TurfID: turf.ID, SlotID: slot.ID})
		require.NoError(t, err)
		assert.Equal(t, model.BookingPending, abandoned.Status)
		assert.Equal(t, int64(1500), abandoned.TotalAmount)

		_, err := bookings.Initiate(ctx, booking.InitiateRequest{HolderID: bob, TurfID: turf.ID, SlotID: slot.ID})
		assert.ErrorIs(t, err, apperr.ErrSlotAlreadyLocked)

		clock.Advance(16 * time.Minute)
		res, err := sweeperSvc.RunOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, res.ReleasedLocks)
		assert.Equal(t, int64(1), res.ExpiredBookings)

		assert.Equal(t, model.BookingExpired, testutil.ReloadBooking(t, testDB, abandoned.ID).Status)
		reclaimed := testutil.ReloadSlot(t, testDB, slot.ID)
		assert.True(t, reclaimed.Available)
		assert.False(t, reclaimed.Locked)
		assert.Nil(t, reclaimed.LockedBy)
	})

	// --- Cycle 2: Bob books it and splits the bill with Carol ---
	var split *model.Booking
	t.Run("Cycle 2: Split Payment", func(t *testing.T) {
		split, err = bookings.Initiate(ctx, booking.InitiateRequest{HolderID: bob, TurfID: turf.ID, SlotID: slot.ID})
		require.NoError(t, err)

		participants, err := settlements.AddParticipant(ctx, split.ID, bob, carol)
		require.NoError(t, err)
		require.Len(t, participants, 2)
		for _, p := range participants {
			assert.Equal(t, int64(750), p.ShareAmount)
		}

		_, err = settlements.UpdateParticipantStatus(ctx, split.ID, carol, "DECLINED")
		require.NoError(t, err)
		_, err = settlements.UpdateParticipantStatus(ctx, split.ID, carol, "PENDING")
		require.NoError(t, err)

		carolID := carol
		b, err := settlements.HandlePaymentEvent(ctx, settlement.PaymentEvent{
			BookingID: split.ID,
			Status:    settlement.PaymentSuccess,
			PaymentID: "pay_carol",
			UserID:    &carolID,
		})
		require.NoError(t, err)
		assert.Equal(t, model.BookingPending, b.Status)

		b, err = settlements.Settle(ctx, split.ID, bob, "pay_bob")
		require.NoError(t, err)
		assert.Equal(t, model.BookingConfirmed, b.Status)

		stored := testutil.ReloadBooking(t, testDB, split.ID)
		assert.Equal(t, model.BookingConfirmed, stored.Status)
		require.NotNil(t, stored.CheckInSecret)
		assert.False(t, testutil.ReloadSlot(t, testDB, slot.ID).Available)

		bobInbox, err := notifications.List(ctx, bob, false)
		require.NoError(t, err)
		assert.Len(t, bobInbox, 3)
		carolInbox, err := notifications.List(ctx, carol, false)
		require.NoError(t, err)
		assert.Len(t, carolInbox, 2)
	})

	// --- Cycle 3: Sweeps leave the confirmed booking alone ---
	t.Run("Cycle 3: Confirmed Booking Survives Sweeps", func(t *testing.T) {
		clock.Advance(time.Hour)
		res, err := sweeperSvc.RunOnce(ctx)
		require.NoError(t, err)
		assert.Zero(t, res.ReleasedLocks)
		assert.Zero(t, res.ExpiredBookings)
		assert.Equal(t, model.BookingConfirmed, testutil.ReloadBooking(t, testDB, split.ID).Status)
	})

	// --- Cycle 4: Bob checks in at the turf ---
	t.Run("Cycle 4: Check In", func(t *testing.T) {
		stored := testutil.ReloadBooking(t, testDB, split.ID)
		done, err := bookings.CheckIn(ctx, *stored.CheckInSecret)
		require.NoError(t, err)
		assert.Equal(t, model.BookingCompleted, done.Status)
		require.NotNil(t, done.CheckedInAt)

		_, err = bookings.CheckIn(ctx, *stored.CheckInSecret)
		assert.ErrorIs(t, err, apperr.ErrAlreadyCheckedIn)

		mine, err := bookings.ListByUser(ctx, alice)
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, model.BookingExpired, mine[0].Status)
	})
}
