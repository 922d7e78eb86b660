// Package booking drives a booking through its lifecycle: initiation under a
// slot lock, confirmation, cancellation, check-in and owner walk-ins.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"turf-booking-backend/internal/apperr"
	"turf-booking-backend/internal/lock"
	"turf-booking-backend/internal/metrics"
	"turf-booking-backend/internal/model"
	"turf-booking-backend/internal/store"
)

// Service implements the booking state machine
// PENDING -> {CONFIRMED, EXPIRED, CANCELLED}, CONFIRMED -> COMPLETED.
type Service struct {
	store        store.Store
	locks        *lock.Manager
	defaultPrice int64
	now          func() time.Time
	logger       *zap.Logger

	transitions metric.Int64Counter
}

// NewService creates a booking service. defaultPrice is charged when neither
// the slot nor its turf carries a price.
func NewService(st store.Store, locks *lock.Manager, defaultPrice int64, now func() time.Time, logger *zap.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:        st,
		locks:        locks,
		defaultPrice: defaultPrice,
		now:          now,
		logger:       logger,
		transitions:  metrics.Counter("booking.transitions", "Booking status transitions", logger),
	}
}

func (s *Service) record(ctx context.Context, status model.BookingStatus) {
	s.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(status))))
}

// InitiateRequest describes a customer's request to reserve a slot.
type InitiateRequest struct {
	HolderID int64
	TurfID   int64
	SlotID   int64
	// Amount is optional. When positive it must match the computed price.
	Amount int64
}

// Initiate locks the slot for the holder and creates a PENDING booking that
// expires together with the lock. Both writes commit together or not at all.
func (s *Service) Initiate(ctx context.Context, req InitiateRequest) (*model.Booking, error) {
	s.logger.Info("initiating booking",
		zap.Int64("holder_id", req.HolderID),
		zap.Int64("slot_id", req.SlotID),
	)

	var booking *model.Booking
	err := s.store.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slot, err := s.locks.Acquire(ctx, tx, req.SlotID, req.HolderID)
		if err != nil {
			return err
		}
		if slot.TurfID != req.TurfID {
			return apperr.ErrInvalidRequest.Withf("slot %d does not belong to turf %d", req.SlotID, req.TurfID)
		}

		amount, err := s.price(tx, slot)
		if err != nil {
			return err
		}
		if req.Amount > 0 && req.Amount != amount {
			return apperr.ErrInvalidRequest.Withf("amount %d does not match slot price %d", req.Amount, amount)
		}

		holder := req.HolderID
		expires := *slot.LockExpiresAt
		booking = &model.Booking{
			HolderID:    &holder,
			TurfID:      req.TurfID,
			SlotID:      slot.ID,
			Status:      model.BookingPending,
			TotalAmount: amount,
			ExpiresAt:   &expires,
		}
		if err := tx.Create(booking).Error; err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, model.BookingPending)
	s.logger.Info("created pending booking",
		zap.Int64("booking_id", booking.ID),
		zap.Timep("expires_at", booking.ExpiresAt),
	)
	return booking, nil
}

// price resolves the amount due for a slot: its custom price, then the turf
// base price, then the configured default.
func (s *Service) price(tx *gorm.DB, slot *model.Slot) (int64, error) {
	if slot.CustomPrice > 0 {
		return slot.CustomPrice, nil
	}
	turf, err := store.FindTurf(tx, slot.TurfID)
	if err != nil {
		return 0, err
	}
	if turf.BasePrice > 0 {
		return turf.BasePrice, nil
	}
	return s.defaultPrice, nil
}

// Confirm confirms a PENDING booking after a successful payment.
func (s *Service) Confirm(ctx context.Context, bookingID int64, paymentRef string) (*model.Booking, error) {
	var booking *model.Booking
	err := s.store.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		booking, err = store.BookingForUpdate(tx, bookingID)
		if err != nil {
			return err
		}
		return s.ConfirmTx(ctx, tx, booking, paymentRef)
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// ConfirmTx confirms booking inside tx, which must already hold the booking
// row lock. The slot becomes permanently unavailable and booking is updated in
// place.
func (s *Service) ConfirmTx(ctx context.Context, tx *gorm.DB, booking *model.Booking, paymentRef string) error {
	if booking.Status != model.BookingPending {
		s.logger.Warn("booking is not pending",
			zap.Int64("booking_id", booking.ID),
			zap.String("status", string(booking.Status)),
		)
		return apperr.ErrBookingState.Withf("booking %d is %s, not PENDING", booking.ID, booking.Status)
	}

	if err := s.locks.Confirm(ctx, tx, booking.SlotID); err != nil {
		return err
	}

	now := s.now().UTC()
	secret := uuid.NewString()
	res := tx.Model(&model.Booking{}).
		Where("id = ? AND status = ?", booking.ID, model.BookingPending).
		Updates(map[string]any{
			"status":            model.BookingConfirmed,
			"confirmed_at":      now,
			"check_in_secret":   secret,
			"payment_reference": paymentRef,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to confirm booking %d: %w", booking.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrBookingState.Withf("booking %d is no longer PENDING", booking.ID)
	}

	booking.Status = model.BookingConfirmed
	booking.ConfirmedAt = &now
	booking.CheckInSecret = &secret
	booking.PaymentReference = paymentRef

	s.record(ctx, model.BookingConfirmed)
	s.logger.Info("confirmed booking",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("slot_id", booking.SlotID),
	)
	return nil
}

// Cancel cancels a PENDING booking on behalf of its holder and returns the
// slot to the pool when the holder still has it locked.
func (s *Service) Cancel(ctx context.Context, bookingID, requesterID int64) (*model.Booking, error) {
	s.logger.Info("cancelling booking", zap.Int64("booking_id", bookingID), zap.Int64("requester_id", requesterID))

	var booking *model.Booking
	err := s.store.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		booking, err = store.BookingForUpdate(tx, bookingID)
		if err != nil {
			return err
		}
		if !booking.HeldBy(requesterID) {
			return apperr.ErrNotBookingHolder
		}
		if booking.Status != model.BookingPending {
			return apperr.ErrBookingState.Withf("booking %d is %s and cannot be cancelled", booking.ID, booking.Status)
		}

		now := s.now().UTC()
		if err := tx.Model(&model.Booking{}).
			Where("id = ?", booking.ID).
			Updates(map[string]any{"status": model.BookingCancelled, "cancelled_at": now}).Error; err != nil {
			return fmt.Errorf("failed to cancel booking %d: %w", booking.ID, err)
		}
		booking.Status = model.BookingCancelled
		booking.CancelledAt = &now

		if err := s.locks.Release(ctx, tx, booking.SlotID, requesterID); err != nil {
			if !errors.Is(err, apperr.ErrNotHolder) {
				return err
			}
			// The lock expired and someone else claimed the slot.
			s.logger.Warn("slot lock held by another user, leaving it in place",
				zap.Int64("booking_id", booking.ID),
				zap.Int64("slot_id", booking.SlotID),
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, model.BookingCancelled)
	return booking, nil
}

// CheckIn completes the CONFIRMED booking identified by its check-in secret.
func (s *Service) CheckIn(ctx context.Context, secret string) (*model.Booking, error) {
	if secret == "" {
		return nil, apperr.ErrInvalidCode
	}

	var booking model.Booking
	err := s.store.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("check_in_secret = ?", secret).Limit(1).Find(&booking)
		if res.Error != nil {
			return fmt.Errorf("failed to look up check-in code: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.ErrInvalidCode
		}
		if booking.CheckedInAt != nil {
			return apperr.ErrAlreadyCheckedIn
		}
		if booking.Status != model.BookingConfirmed {
			return apperr.ErrNotConfirmed
		}

		now := s.now().UTC()
		upd := tx.Model(&model.Booking{}).
			Where("id = ? AND status = ? AND checked_in_at IS NULL", booking.ID, model.BookingConfirmed).
			Updates(map[string]any{"status": model.BookingCompleted, "checked_in_at": now})
		if upd.Error != nil {
			return fmt.Errorf("failed to check in booking %d: %w", booking.ID, upd.Error)
		}
		if upd.RowsAffected == 0 {
			return apperr.ErrAlreadyCheckedIn
		}
		booking.Status = model.BookingCompleted
		booking.CheckedInAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, model.BookingCompleted)
	s.logger.Info("checked in booking", zap.Int64("booking_id", booking.ID))
	return &booking, nil
}

// WalkInRequest describes a booking the turf owner makes for an offline
// customer.
type WalkInRequest struct {
	OwnerID       int64
	TurfID        int64
	SlotID        int64
	CustomerName  string
	CustomerPhone string
}

// WalkIn creates a CONFIRMED booking without a holder. The slot goes through
// the same lock as online bookings so it cannot race with them.
func (s *Service) WalkIn(ctx context.Context, req WalkInRequest) (*model.Booking, error) {
	s.logger.Info("creating walk-in booking",
		zap.Int64("owner_id", req.OwnerID),
		zap.Int64("slot_id", req.SlotID),
	)

	var booking *model.Booking
	err := s.store.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		turf, err := store.FindTurf(tx, req.TurfID)
		if err != nil {
			return err
		}
		if turf.OwnerID != req.OwnerID {
			return apperr.ErrNotTurfOwner
		}

		slot, err := s.locks.Acquire(ctx, tx, req.SlotID, req.OwnerID)
		if err != nil {
			return err
		}
		if slot.TurfID != turf.ID {
			return apperr.ErrInvalidRequest.Withf("slot %d does not belong to turf %d", req.SlotID, turf.ID)
		}
		amount, err := s.price(tx, slot)
		if err != nil {
			return err
		}
		if err := s.locks.Confirm(ctx, tx, slot.ID); err != nil {
			return err
		}

		now := s.now().UTC()
		secret := uuid.NewString()
		booking = &model.Booking{
			CustomerName:  req.CustomerName,
			CustomerPhone: req.CustomerPhone,
			TurfID:        turf.ID,
			SlotID:        slot.ID,
			Status:        model.BookingConfirmed,
			TotalAmount:   amount,
			CheckInSecret: &secret,
			ConfirmedAt:   &now,
		}
		if err := tx.Create(booking).Error; err != nil {
			return fmt.Errorf("failed to create walk-in booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, model.BookingConfirmed)
	return booking, nil
}

// Get returns a booking by id.
func (s *Service) Get(ctx context.Context, bookingID int64) (*model.Booking, error) {
	return s.store.GetBooking(ctx, bookingID)
}

// ListByUser returns the bookings a user holds or participates in.
func (s *Service) ListByUser(ctx context.Context, userID int64) ([]model.Booking, error) {
	return s.store.ListBookingsByUser(ctx, userID)
}
