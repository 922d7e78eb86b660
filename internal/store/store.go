package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"turf-booking-backend/internal/apperr"
	"turf-booking-backend/internal/model"
)

// Store defines the read and bulk-write operations on turfs, slots, bookings
// and participants. State transitions live in the lock, booking and
// settlement packages, which run them inside their own transactions.
type Store interface {
	DB() *gorm.DB

	CreateTurf(ctx context.Context, turf *model.Turf) error
	GetTurf(ctx context.Context, id int64) (*model.Turf, error)
	ListTurfs(ctx context.Context) ([]model.Turf, error)
	ListTurfsByOwner(ctx context.Context, ownerID int64) ([]model.Turf, error)
	UpdateTurf(ctx context.Context, turf *model.Turf) error

	GetSlot(ctx context.Context, id int64) (*model.Slot, error)
	ListSlots(ctx context.Context, turfID int64, date string) ([]model.Slot, error)
	InsertSlots(ctx context.Context, slots []model.Slot) (int64, error)

	GetBooking(ctx context.Context, id int64) (*model.Booking, error)
	ListBookingsByUser(ctx context.Context, userID int64) ([]model.Booking, error)
	ListParticipants(ctx context.Context, bookingID int64) ([]model.Participant, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) CreateTurf(ctx context.Context, turf *model.Turf) error {
	if err := s.db.WithContext(ctx).Create(turf).Error; err != nil {
		return fmt.Errorf("failed to create turf: %w", err)
	}
	return nil
}

func (s *gormStore) GetTurf(ctx context.Context, id int64) (*model.Turf, error) {
	return FindTurf(s.db.WithContext(ctx), id)
}

func (s *gormStore) ListTurfs(ctx context.Context) ([]model.Turf, error) {
	var turfs []model.Turf
	if err := s.db.WithContext(ctx).Order("id").Find(&turfs).Error; err != nil {
		return nil, fmt.Errorf("failed to list turfs: %w", err)
	}
	return turfs, nil
}

func (s *gormStore) ListTurfsByOwner(ctx context.Context, ownerID int64) ([]model.Turf, error) {
	var turfs []model.Turf
	if err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("id").Find(&turfs).Error; err != nil {
		return nil, fmt.Errorf("failed to list turfs of owner %d: %w", ownerID, err)
	}
	return turfs, nil
}

// UpdateTurf writes the editable turf details. Ownership is never changed.
func (s *gormStore) UpdateTurf(ctx context.Context, turf *model.Turf) error {
	if err := s.db.WithContext(ctx).Model(turf).
		Select("name", "location", "base_price").
		Updates(turf).Error; err != nil {
		return fmt.Errorf("failed to update turf %d: %w", turf.ID, err)
	}
	return nil
}

func (s *gormStore) GetSlot(ctx context.Context, id int64) (*model.Slot, error) {
	var slot model.Slot
	if err := s.db.WithContext(ctx).First(&slot, id).Error; err != nil {
		return nil, notFound(err, apperr.ErrSlotNotFound.Withf("slot %d not found", id))
	}
	return &slot, nil
}

func (s *gormStore) ListSlots(ctx context.Context, turfID int64, date string) ([]model.Slot, error) {
	var slots []model.Slot
	if err := s.db.WithContext(ctx).
		Where("turf_id = ? AND slot_date = ?", turfID, date).
		Order("start_time").
		Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	return slots, nil
}

// InsertSlots creates the given slots, skipping any (turf, date, start) that
// already exists. It returns the number of rows inserted.
func (s *gormStore) InsertSlots(ctx context.Context, slots []model.Slot) (int64, error) {
	if len(slots) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "turf_id"}, {Name: "slot_date"}, {Name: "start_time"}},
		DoNothing: true,
	}).Create(&slots)
	if res.Error != nil {
		return 0, fmt.Errorf("batch insert slots failed: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *gormStore) GetBooking(ctx context.Context, id int64) (*model.Booking, error) {
	var booking model.Booking
	if err := s.db.WithContext(ctx).First(&booking, id).Error; err != nil {
		return nil, notFound(err, apperr.ErrBookingNotFound.Withf("booking %d not found", id))
	}
	return &booking, nil
}

// ListBookingsByUser returns the bookings a user holds or shares, newest first.
func (s *gormStore) ListBookingsByUser(ctx context.Context, userID int64) ([]model.Booking, error) {
	shared := s.db.Model(&model.Participant{}).Select("booking_id").Where("user_id = ?", userID)

	var bookings []model.Booking
	if err := s.db.WithContext(ctx).
		Where("holder_id = ?", userID).
		Or("id IN (?)", shared).
		Order("created_at DESC, id DESC").
		Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("failed to list bookings for user %d: %w", userID, err)
	}
	return bookings, nil
}

func (s *gormStore) ListParticipants(ctx context.Context, bookingID int64) ([]model.Participant, error) {
	return FindParticipants(s.db.WithContext(ctx), bookingID)
}

// --- Transaction-scoped helpers ---

// FindTurf loads a turf through tx.
func FindTurf(tx *gorm.DB, id int64) (*model.Turf, error) {
	var turf model.Turf
	if err := tx.First(&turf, id).Error; err != nil {
		return nil, notFound(err, apperr.ErrTurfNotFound.Withf("turf %d not found", id))
	}
	return &turf, nil
}

// BookingForUpdate loads a booking and holds its row lock until tx ends.
func BookingForUpdate(tx *gorm.DB, id int64) (*model.Booking, error) {
	var booking model.Booking
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&booking, id).Error; err != nil {
		return nil, notFound(err, apperr.ErrBookingNotFound.Withf("booking %d not found", id))
	}
	return &booking, nil
}

// FindParticipants lists the participants of a booking in insertion order.
func FindParticipants(tx *gorm.DB, bookingID int64) ([]model.Participant, error) {
	var participants []model.Participant
	if err := tx.Where("booking_id = ?", bookingID).Order("id").Find(&participants).Error; err != nil {
		return nil, fmt.Errorf("failed to list participants of booking %d: %w", bookingID, err)
	}
	return participants, nil
}

func notFound(err error, nf *apperr.Error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nf
	}
	return fmt.Errorf("%s: %w", nf.Message, err)
}
