package schedule_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"turf-booking-backend/internal/apperr"
	"turf-booking-backend/internal/schedule"
	"turf-booking-backend/internal/store"
	"turf-booking-backend/internal/testutil"
)

const ownerID = int64(1)

func newService(t *testing.T) *schedule.Service {
	t.Helper()
	return schedule.NewService(store.NewGormStore(testutil.NewDB(t)), zap.NewNop())
}

func TestCreateAndListTurfs(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.CreateTurf(ctx, ownerID, "  ", "nowhere", 100)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	turf, err := svc.CreateTurf(ctx, ownerID, " Arena ", "Downtown", 1500)
	require.NoError(t, err)
	assert.Equal(t, "Arena", turf.Name)
	assert.NotZero(t, turf.ID)

	turfs, err := svc.ListTurfs(ctx)
	require.NoError(t, err)
	require.Len(t, turfs, 1)
	assert.Equal(t, int64(1500), turfs[0].BasePrice)
}

func TestGenerate_Defaults(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	turf, err := svc.CreateTurf(ctx, ownerID, "Arena", "", 0)
	require.NoError(t, err)

	slots, err := svc.Generate(ctx, ownerID, turf.ID, schedule.GenerateRequest{Date: "2026-03-01"})
	require.NoError(t, err)

	require.Len(t, slots, 17)
	assert.Equal(t, "06:00", slots[0].StartTime)
	assert.Equal(t, "07:00", slots[0].EndTime)
	assert.Equal(t, "22:00", slots[16].StartTime)
	assert.Equal(t, "23:00", slots[16].EndTime)
	for _, s := range slots {
		assert.True(t, s.Available)
		assert.False(t, s.Locked)
		assert.Equal(t, int64(schedule.DefaultPrice), s.CustomPrice)
		assert.Equal(t, "2026-03-01", s.Date)
	}
}

func TestGenerate_CustomRangeAndIdempotent(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	turf, err := svc.CreateTurf(ctx, ownerID, "Arena", "", 0)
	require.NoError(t, err)

	req := schedule.GenerateRequest{Date: "2026-03-02", StartTime: "18:00", EndTime: "20:15", DurationMinutes: 45, Price: 900}
	slots, err := svc.Generate(ctx, ownerID, turf.ID, req)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, []string{"18:00", "18:45", "19:30"}, []string{slots[0].StartTime, slots[1].StartTime, slots[2].StartTime})
	assert.Equal(t, "20:15", slots[2].EndTime)

	again, err := svc.Generate(ctx, ownerID, turf.ID, req)
	require.NoError(t, err)
	assert.Len(t, again, 3, "existing slots are not duplicated")

	listed, err := svc.ListSlots(ctx, turf.ID, "2026-03-02")
	require.NoError(t, err)
	assert.Len(t, listed, 3)

	empty, err := svc.ListSlots(ctx, turf.ID, "2026-03-03")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGenerate_Rejections(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	turf, err := svc.CreateTurf(ctx, ownerID, "Arena", "", 0)
	require.NoError(t, err)

	testCases := []struct {
		name    string
		owner   int64
		turfID  int64
		req     schedule.GenerateRequest
		wantErr error
	}{
		{"negative duration", ownerID, turf.ID, schedule.GenerateRequest{Date: "2026-03-01", DurationMinutes: -30}, apperr.ErrInvalidInput},
		{"end before start", ownerID, turf.ID, schedule.GenerateRequest{Date: "2026-03-01", StartTime: "20:00", EndTime: "08:00"}, apperr.ErrInvalidInput},
		{"bad date", ownerID, turf.ID, schedule.GenerateRequest{Date: "01/03/2026"}, apperr.ErrInvalidInput},
		{"too many slots", ownerID, turf.ID, schedule.GenerateRequest{Date: "2026-03-01", StartTime: "00:00", EndTime: "23:00", DurationMinutes: 10}, apperr.ErrInvalidInput},
		{"bad time", ownerID, turf.ID, schedule.GenerateRequest{Date: "2026-03-01", StartTime: "6am"}, apperr.ErrInvalidInput},
		{"not the owner", ownerID + 1, turf.ID, schedule.GenerateRequest{Date: "2026-03-01"}, apperr.ErrNotTurfOwner},
		{"missing turf", ownerID, 9999, schedule.GenerateRequest{Date: "2026-03-01"}, apperr.ErrTurfNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Generate(ctx, tc.owner, tc.turfID, tc.req)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestGenerate_AtSlotCap(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	turf, err := svc.CreateTurf(ctx, ownerID, "Arena", "", 0)
	require.NoError(t, err)

	slots, err := svc.Generate(ctx, ownerID, turf.ID, schedule.GenerateRequest{
		Date:            "2026-03-01",
		StartTime:       "06:00",
		EndTime:         "22:40",
		DurationMinutes: 10,
	})
	require.NoError(t, err)
	assert.Len(t, slots, 100)

	_, err = svc.Generate(ctx, ownerID, turf.ID, schedule.GenerateRequest{
		Date:            "2026-03-02",
		StartTime:       "06:00",
		EndTime:         "22:50",
		DurationMinutes: 10,
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	none, err := svc.ListSlots(ctx, turf.ID, "2026-03-02")
	require.NoError(t, err)
	assert.Empty(t, none, "a rejected range creates nothing")
}

func TestOwnerTurfs(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	mine, err := svc.CreateTurf(ctx, ownerID, "Arena", "Downtown", 1000)
	require.NoError(t, err)
	_, err = svc.CreateTurf(ctx, ownerID+1, "Other", "Uptown", 900)
	require.NoError(t, err)

	owned, err := svc.ListOwnedTurfs(ctx, ownerID)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, mine.ID, owned[0].ID)

	got, err := svc.GetTurf(ctx, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, "Arena", got.Name)

	_, err = svc.GetOwnedTurf(ctx, ownerID+1, mine.ID)
	assert.ErrorIs(t, err, apperr.ErrNotTurfOwner)
	_, err = svc.GetOwnedTurf(ctx, ownerID, 9999)
	assert.ErrorIs(t, err, apperr.ErrTurfNotFound)

	updated, err := svc.UpdateTurf(ctx, ownerID, mine.ID, " Arena Two ", "Harbour", 1400)
	require.NoError(t, err)
	assert.Equal(t, "Arena Two", updated.Name)
	assert.Equal(t, "Harbour", updated.Location)
	assert.Equal(t, int64(1400), updated.BasePrice)
	assert.Equal(t, ownerID, updated.OwnerID)

	_, err = svc.UpdateTurf(ctx, ownerID+1, mine.ID, "Stolen", "", 1)
	assert.ErrorIs(t, err, apperr.ErrNotTurfOwner)
	_, err = svc.UpdateTurf(ctx, ownerID, mine.ID, "", "", 1)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = svc.UpdateTurf(ctx, ownerID, mine.ID, "Arena", "", -5)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestListSlots_Rejections(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.ListSlots(ctx, 9999, "2026-03-01")
	assert.ErrorIs(t, err, apperr.ErrTurfNotFound)

	_, err = svc.ListSlots(ctx, 1, "tomorrow")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}
