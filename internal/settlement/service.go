// Package settlement splits the price of a PENDING booking between several
// payers and confirms the booking once every share is paid.
package settlement

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"turf-booking-backend/internal/apperr"
	"turf-booking-backend/internal/model"
	"turf-booking-backend/internal/store"
)

// Confirmer confirms a booking inside a transaction that holds its row lock.
type Confirmer interface {
	ConfirmTx(ctx context.Context, tx *gorm.DB, booking *model.Booking, paymentRef string) error
}

// Notifier delivers inbox messages. Delivery is fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification)
}

// Service manages booking participants and their payments.
type Service struct {
	store     store.Store
	confirmer Confirmer
	notifier  Notifier
	now       func() time.Time
	logger    *zap.Logger
}

// NewService creates a settlement service.
func NewService(st store.Store, confirmer Confirmer, notifier Notifier, now func() time.Time, logger *zap.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: st, confirmer: confirmer, notifier: notifier, now: now, logger: logger}
}

// Share divides total between n payers, rounding half up to the minor unit.
// Every payer owes the same share, so the shares may sum to slightly more or
// less than total.
func Share(total int64, n int) int64 {
	if n <= 0 {
		return total
	}
	count := int64(n)
	share := total / count
	if (total%count)*2 >= count {
		share++
	}
	return share
}

func bookingMessage(userID, bookingID int64, typ model.NotificationType, actionable bool, format string, args ...any) model.Notification {
	return model.Notification{
		UserID:      userID,
		Type:        typ,
		Message:     fmt.Sprintf(format, args...),
		RelatedID:   bookingID,
		RelatedType: model.RelatedBooking,
		Actionable:  actionable,
	}
}

func (s *Service) send(ctx context.Context, outbox []model.Notification) {
	for _, n := range outbox {
		s.notifier.Notify(ctx, n)
	}
}

// AddParticipant invites userID to share the payment of a PENDING booking.
// requesterID must be the booking holder. The first invitation also enrols
// the holder, and every share is recomputed as total / participants.
func (s *Service) AddParticipant(ctx context.Context, bookingID, requesterID, userID int64) ([]model.Participant, error) {
	s.logger.Info("adding participant", zap.Int64("booking_id", bookingID), zap.Int64("user_id", userID))

	var participants []model.Participant
	err := s.store.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := store.BookingForUpdate(tx, bookingID)
		if err != nil {
			return err
		}
		if !booking.HeldBy(requesterID) {
			return apperr.ErrNotBookingHolder
		}
		if booking.Status != model.BookingPending {
			return apperr.ErrBookingState.Withf("cannot add participants to a %s booking", booking.Status)
		}
		if booking.HeldBy(userID) {
			return apperr.ErrHolderIsParticipant
		}

		existing, err := store.FindParticipants(tx, bookingID)
		if err != nil {
			return err
		}
		for _, p := range existing {
			if p.UserID == userID {
				return apperr.ErrDuplicateParticipant
			}
		}

		var added []model.Participant
		if len(existing) == 0 {
			added = append(added, model.Participant{
				BookingID: bookingID,
				UserID:    *booking.HolderID,
				Status:    model.ParticipantPending,
			})
		}
		added = append(added, model.Participant{
			BookingID: bookingID,
			UserID:    userID,
			Status:    model.ParticipantSent,
		})

		share := Share(booking.TotalAmount, len(existing)+len(added))
		for i := range added {
			added[i].ShareAmount = share
		}
		if err := tx.Create(&added).Error; err != nil {
			return fmt.Errorf("failed to add participant: %w", err)
		}
		if err := tx.Model(&model.Participant{}).
			Where("booking_id = ?", bookingID).
			Update("share_amount", share).Error; err != nil {
			return fmt.Errorf("failed to update shares: %w", err)
		}

		participants, err = store.FindParticipants(tx, bookingID)
		if err != nil {
			return err
		}
		s.logger.Info("added participant",
			zap.Int64("booking_id", bookingID),
			zap.Int64("user_id", userID),
			zap.Int64("share_amount", share),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, bookingMessage(userID, bookingID, model.NotificationRequest, true,
		"You have been requested to split payment for booking #%d", bookingID))
	return participants, nil
}

// UpdateParticipantStatus records a participant's response to an invitation.
// PAID can only be reached through Settle.
func (s *Service) UpdateParticipantStatus(ctx context.Context, bookingID, userID int64, raw string) (*model.Participant, error) {
	status, ok := model.ParseParticipantStatus(raw)
	if !ok {
		return nil, apperr.ErrInvalidStatus.Withf("invalid participant status %q", raw)
	}
	if status == model.ParticipantPaid {
		return nil, apperr.ErrBookingState.Withf("PAID is reachable only through payment")
	}

	var (
		participant model.Participant
		holderID    *int64
	)
	err := s.store.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := store.BookingForUpdate(tx, bookingID)
		if err != nil {
			return err
		}
		if booking.Status.Terminal() || booking.Status == model.BookingConfirmed {
			return apperr.ErrBookingState.Withf("participants of a %s booking cannot change", booking.Status)
		}
		holderID = booking.HolderID

		res := tx.Where("booking_id = ? AND user_id = ?", bookingID, userID).Limit(1).Find(&participant)
		if res.Error != nil {
			return fmt.Errorf("failed to load participant: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.ErrParticipantNotFound
		}
		if participant.Status == model.ParticipantPaid {
			return apperr.ErrBookingState.Withf("participant %d has already paid", userID)
		}

		if err := tx.Model(&participant).Update("status", status).Error; err != nil {
			return fmt.Errorf("failed to update participant status: %w", err)
		}
		participant.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("participant status updated",
		zap.Int64("booking_id", bookingID),
		zap.Int64("user_id", userID),
		zap.String("status", string(status)),
	)
	if (status == model.ParticipantDeclined || status == model.ParticipantRejected) && holderID != nil {
		s.notifier.Notify(ctx, bookingMessage(*holderID, bookingID, model.NotificationAlert, true,
			"A participant declined the split payment request for booking #%d", bookingID))
	}
	return &participant, nil
}

// Settle records a payment by payerID. A booking without participants is
// paid in full by its holder. Otherwise the payer's share is marked PAID and
// the booking is confirmed in the same transaction as the last share.
func (s *Service) Settle(ctx context.Context, bookingID, payerID int64, paymentRef string) (*model.Booking, error) {
	s.logger.Info("settling payment", zap.Int64("booking_id", bookingID), zap.Int64("payer_id", payerID))

	var (
		booking *model.Booking
		outbox  []model.Notification
	)
	err := s.store.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		booking, err = store.BookingForUpdate(tx, bookingID)
		if err != nil {
			return err
		}
		if booking.Status != model.BookingPending {
			return apperr.ErrBookingState.Withf("booking %d is %s, not PENDING", booking.ID, booking.Status)
		}

		participants, err := store.FindParticipants(tx, bookingID)
		if err != nil {
			return err
		}

		if len(participants) == 0 {
			if !booking.HeldBy(payerID) {
				return apperr.ErrNotBookingHolder.Withf("only the holder can pay booking %d in full", booking.ID)
			}
			if err := s.confirmer.ConfirmTx(ctx, tx, booking, paymentRef); err != nil {
				return err
			}
			outbox = append(outbox, bookingMessage(payerID, booking.ID, model.NotificationInfo, false,
				"Booking #%d is paid and confirmed!", booking.ID))
			return nil
		}

		idx := -1
		for i, p := range participants {
			if p.UserID == payerID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return apperr.ErrParticipantNotFound.Withf("user %d is not a participant of booking %d", payerID, booking.ID)
		}

		payer := &participants[idx]
		if payer.Status != model.ParticipantPaid {
			now := s.now().UTC()
			if err := tx.Model(payer).Updates(map[string]any{
				"status":            model.ParticipantPaid,
				"payment_reference": paymentRef,
				"paid_at":           now,
			}).Error; err != nil {
				return fmt.Errorf("failed to record payment: %w", err)
			}
			payer.Status = model.ParticipantPaid
			if !booking.HeldBy(payerID) && booking.HolderID != nil {
				outbox = append(outbox, bookingMessage(*booking.HolderID, booking.ID, model.NotificationInfo, false,
					"A participant has paid their share for booking #%d", booking.ID))
			}
		}

		for _, p := range participants {
			if p.Status != model.ParticipantPaid {
				return nil
			}
		}
		if err := s.confirmer.ConfirmTx(ctx, tx, booking, paymentRef); err != nil {
			return err
		}
		for _, p := range participants {
			outbox = append(outbox, bookingMessage(p.UserID, booking.ID, model.NotificationInfo, false,
				"Booking #%d is fully paid and confirmed!", booking.ID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.send(ctx, outbox)
	return booking, nil
}

// ListParticipants returns the participants of a booking.
func (s *Service) ListParticipants(ctx context.Context, bookingID int64) ([]model.Participant, error) {
	if _, err := s.store.GetBooking(ctx, bookingID); err != nil {
		return nil, err
	}
	return s.store.ListParticipants(ctx, bookingID)
}
