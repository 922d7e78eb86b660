package settlement_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"turf-booking-backend/internal/apperr"
	"turf-booking-backend/internal/booking"
	"turf-booking-backend/internal/lock"
	"turf-booking-backend/internal/model"
	"turf-booking-backend/internal/settlement"
	"turf-booking-backend/internal/store"
	"turf-booking-backend/internal/testutil"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

const (
	ownerID = int64(1)
	alice   = int64(10)
	bob     = int64(11)
	carol   = int64(12)
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []model.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n model.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) For(userID int64) []model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Notification
	for _, n := range r.sent {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

type fixture struct {
	db       *gorm.DB
	bookings *booking.Service
	svc      *settlement.Service
	notifier *recordingNotifier
	turf     model.Turf
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	clock := testutil.NewClock(t0)
	st := store.NewGormStore(db)
	locks := lock.NewManager(15*time.Minute, clock.Now, zap.NewNop())
	bookings := booking.NewService(st, locks, 1000, clock.Now, zap.NewNop())
	notifier := &recordingNotifier{}
	return &fixture{
		db:       db,
		bookings: bookings,
		svc:      settlement.NewService(st, bookings, notifier, clock.Now, zap.NewNop()),
		notifier: notifier,
		turf:     testutil.SeedTurf(t, db, ownerID, 1200),
	}
}

func (f *fixture) initiate(t *testing.T, start string, holder int64) *model.Booking {
	t.Helper()
	slot := testutil.SeedSlot(t, f.db, f.turf.ID, start, 0)
	b, err := f.bookings.Initiate(context.Background(), booking.InitiateRequest{HolderID: holder, TurfID: f.turf.ID, SlotID: slot.ID})
	require.NoError(t, err)
	return b
}

func TestShare(t *testing.T) {
	testCases := []struct {
		total int64
		n     int
		want  int64
	}{
		{total: 1200, n: 2, want: 600},
		{total: 1000, n: 3, want: 333},
		{total: 1001, n: 2, want: 501},
		{total: 100, n: 8, want: 13},
		{total: 100, n: 7, want: 14},
		{total: 5, n: 1, want: 5},
	}
	for _, tc := range testCases {
		got := settlement.Share(tc.total, tc.n)
		assert.Equal(t, tc.want, got, "Share(%d, %d)", tc.total, tc.n)

		diff := got*int64(tc.n) - tc.total
		if diff < 0 {
			diff = -diff
		}
		assert.LessOrEqual(t, diff, int64(tc.n), "rounding drift is bounded by one unit per payer")
	}
}

func TestSplitPayment_TwoPayers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.initiate(t, "18:00", alice)

	participants, err := f.svc.AddParticipant(ctx, b.ID, alice, bob)
	require.NoError(t, err)
	require.Len(t, participants, 2)
	assert.Equal(t, alice, participants[0].UserID)
	assert.Equal(t, model.ParticipantPending, participants[0].Status)
	assert.Equal(t, bob, participants[1].UserID)
	assert.Equal(t, model.ParticipantSent, participants[1].Status)
	for _, p := range participants {
		assert.Equal(t, int64(600), p.ShareAmount)
	}

	invites := f.notifier.For(bob)
	require.Len(t, invites, 1)
	assert.Equal(t, model.NotificationRequest, invites[0].Type)
	assert.True(t, invites[0].Actionable)

	got, err := f.svc.Settle(ctx, b.ID, bob, "pay_bob")
	require.NoError(t, err)
	assert.Equal(t, model.BookingPending, got.Status, "one unpaid share keeps the booking pending")
	assert.True(t, testutil.ReloadSlot(t, f.db, b.SlotID).Available)
	require.Len(t, f.notifier.For(alice), 1)
	assert.Equal(t, model.NotificationInfo, f.notifier.For(alice)[0].Type)

	got, err = f.svc.Settle(ctx, b.ID, alice, "pay_alice")
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, got.Status)
	assert.Equal(t, model.BookingConfirmed, testutil.ReloadBooking(t, f.db, b.ID).Status)
	assert.False(t, testutil.ReloadSlot(t, f.db, b.SlotID).Available)

	assert.Len(t, f.notifier.For(alice), 2)
	assert.Len(t, f.notifier.For(bob), 2)

	_, err = f.svc.Settle(ctx, b.ID, bob, "again")
	assert.ErrorIs(t, err, apperr.ErrBookingState)
}

func TestAddParticipant_RecomputesShares(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.initiate(t, "18:00", alice)

	_, err := f.svc.AddParticipant(ctx, b.ID, alice, bob)
	require.NoError(t, err)
	participants, err := f.svc.AddParticipant(ctx, b.ID, alice, carol)
	require.NoError(t, err)

	require.Len(t, participants, 3)
	for _, p := range participants {
		assert.Equal(t, int64(400), p.ShareAmount)
	}
}

func TestAddParticipant_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.initiate(t, "18:00", alice)

	_, err := f.svc.AddParticipant(ctx, b.ID, alice, alice)
	assert.ErrorIs(t, err, apperr.ErrHolderIsParticipant)

	_, err = f.svc.AddParticipant(ctx, b.ID, bob, carol)
	assert.ErrorIs(t, err, apperr.ErrNotBookingHolder)

	_, err = f.svc.AddParticipant(ctx, b.ID, alice, bob)
	require.NoError(t, err)
	_, err = f.svc.AddParticipant(ctx, b.ID, alice, bob)
	assert.ErrorIs(t, err, apperr.ErrDuplicateParticipant)

	_, err = f.svc.AddParticipant(ctx, 9999, alice, bob)
	assert.ErrorIs(t, err, apperr.ErrBookingNotFound)

	confirmed := f.initiate(t, "19:00", alice)
	_, err = f.bookings.Confirm(ctx, confirmed.ID, "pay")
	require.NoError(t, err)
	_, err = f.svc.AddParticipant(ctx, confirmed.ID, alice, bob)
	assert.ErrorIs(t, err, apperr.ErrBookingState)
}

func TestUpdateParticipantStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.initiate(t, "18:00", alice)
	_, err := f.svc.AddParticipant(ctx, b.ID, alice, bob)
	require.NoError(t, err)

	_, err = f.svc.UpdateParticipantStatus(ctx, b.ID, bob, "MAYBE")
	assert.ErrorIs(t, err, apperr.ErrInvalidStatus)

	_, err = f.svc.UpdateParticipantStatus(ctx, b.ID, bob, "PAID")
	assert.ErrorIs(t, err, apperr.ErrBookingState, "a share is paid only through payment")
	assert.NotErrorIs(t, err, apperr.ErrInvalidStatus)

	_, err = f.svc.UpdateParticipantStatus(ctx, b.ID, carol, "PENDING")
	assert.ErrorIs(t, err, apperr.ErrParticipantNotFound)

	p, err := f.svc.UpdateParticipantStatus(ctx, b.ID, bob, "PENDING")
	require.NoError(t, err)
	assert.Equal(t, model.ParticipantPending, p.Status)
	assert.Empty(t, f.notifier.For(alice))

	p, err = f.svc.UpdateParticipantStatus(ctx, b.ID, bob, "DECLINED")
	require.NoError(t, err)
	assert.Equal(t, model.ParticipantDeclined, p.Status)

	alerts := f.notifier.For(alice)
	require.Len(t, alerts, 1)
	assert.Equal(t, model.NotificationAlert, alerts[0].Type)
	assert.Equal(t, b.ID, alerts[0].RelatedID)
	assert.Equal(t, model.RelatedBooking, alerts[0].RelatedType)
}

func TestUpdateParticipantStatus_PaidShareIsFinal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.initiate(t, "18:00", alice)
	_, err := f.svc.AddParticipant(ctx, b.ID, alice, bob)
	require.NoError(t, err)
	_, err = f.svc.Settle(ctx, b.ID, bob, "pay_bob")
	require.NoError(t, err)

	_, err = f.svc.UpdateParticipantStatus(ctx, b.ID, bob, "DECLINED")
	assert.ErrorIs(t, err, apperr.ErrBookingState)
}

func TestSettle_SinglePayer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.initiate(t, "18:00", alice)

	_, err := f.svc.Settle(ctx, b.ID, bob, "pay")
	assert.ErrorIs(t, err, apperr.ErrNotBookingHolder)

	got, err := f.svc.Settle(ctx, b.ID, alice, "pay")
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, got.Status)
	require.NotNil(t, got.CheckInSecret)
	require.Len(t, f.notifier.For(alice), 1)
}

func TestSettle_StrangerWithParticipants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.initiate(t, "18:00", alice)
	_, err := f.svc.AddParticipant(ctx, b.ID, alice, bob)
	require.NoError(t, err)

	_, err = f.svc.Settle(ctx, b.ID, carol, "pay")
	assert.ErrorIs(t, err, apperr.ErrParticipantNotFound)
}

func TestSettle_RepeatedShareIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.initiate(t, "18:00", alice)
	_, err := f.svc.AddParticipant(ctx, b.ID, alice, bob)
	require.NoError(t, err)

	_, err = f.svc.Settle(ctx, b.ID, bob, "pay_1")
	require.NoError(t, err)
	got, err := f.svc.Settle(ctx, b.ID, bob, "pay_2")
	require.NoError(t, err)
	assert.Equal(t, model.BookingPending, got.Status)
	assert.Len(t, f.notifier.For(alice), 1, "the holder hears about a share once")
}

func TestHandlePaymentEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("success without payer settles for the holder", func(t *testing.T) {
		b := f.initiate(t, "06:00", alice)
		got, err := f.svc.HandlePaymentEvent(ctx, settlement.PaymentEvent{BookingID: b.ID, Status: "SUCCESS", PaymentID: "gw_1"})
		require.NoError(t, err)
		assert.Equal(t, model.BookingConfirmed, got.Status)
		assert.Equal(t, "gw_1", testutil.ReloadBooking(t, f.db, b.ID).PaymentReference)
	})

	t.Run("success for a participant share", func(t *testing.T) {
		b := f.initiate(t, "07:00", alice)
		_, err := f.svc.AddParticipant(ctx, b.ID, alice, bob)
		require.NoError(t, err)

		payer := bob
		got, err := f.svc.HandlePaymentEvent(ctx, settlement.PaymentEvent{BookingID: b.ID, Status: "success", PaymentID: "gw_2", UserID: &payer})
		require.NoError(t, err)
		assert.Equal(t, model.BookingPending, got.Status)
	})

	t.Run("failure alerts the holder", func(t *testing.T) {
		b := f.initiate(t, "08:00", carol)
		got, err := f.svc.HandlePaymentEvent(ctx, settlement.PaymentEvent{BookingID: b.ID, Status: "FAILED", PaymentID: "gw_3"})
		require.NoError(t, err)
		assert.Equal(t, model.BookingPending, got.Status)

		alerts := f.notifier.For(carol)
		require.Len(t, alerts, 1)
		assert.Equal(t, model.NotificationAlert, alerts[0].Type)
	})

	t.Run("unknown status", func(t *testing.T) {
		b := f.initiate(t, "09:00", alice)
		_, err := f.svc.HandlePaymentEvent(ctx, settlement.PaymentEvent{BookingID: b.ID, Status: "REFUNDED"})
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	})

	t.Run("unknown booking", func(t *testing.T) {
		_, err := f.svc.HandlePaymentEvent(ctx, settlement.PaymentEvent{BookingID: 9999, Status: "SUCCESS"})
		assert.ErrorIs(t, err, apperr.ErrBookingNotFound)
	})
}

func TestListParticipants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.initiate(t, "18:00", alice)

	participants, err := f.svc.ListParticipants(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, participants)

	_, err = f.svc.AddParticipant(ctx, b.ID, alice, bob)
	require.NoError(t, err)
	participants, err = f.svc.ListParticipants(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, participants, 2)

	_, err = f.svc.ListParticipants(ctx, 9999)
	assert.ErrorIs(t, err, apperr.ErrBookingNotFound)
}
