package settlement

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"turf-booking-backend/internal/apperr"
	"turf-booking-backend/internal/model"
)

// Payment event statuses reported by the gateway.
const (
	PaymentSuccess = "SUCCESS"
	PaymentFailed  = "FAILED"
)

// PaymentEvent is the gateway's report on one payment attempt.
type PaymentEvent struct {
	BookingID int64  `json:"bookingId" binding:"required"`
	Status    string `json:"status" binding:"required"`
	PaymentID string `json:"paymentId"`
	// UserID identifies the payer of a split share; the holder is assumed
	// when it is missing.
	UserID *int64 `json:"userId,omitempty"`
}

// HandlePaymentEvent applies a gateway event. A successful payment settles the
// payer's share; a failed one alerts the holder and leaves the booking to
// expire.
func (s *Service) HandlePaymentEvent(ctx context.Context, ev PaymentEvent) (*model.Booking, error) {
	booking, err := s.store.GetBooking(ctx, ev.BookingID)
	if err != nil {
		return nil, err
	}

	switch strings.ToUpper(ev.Status) {
	case PaymentSuccess:
		payer := booking.HolderID
		if ev.UserID != nil {
			payer = ev.UserID
		}
		if payer == nil {
			return nil, apperr.ErrBookingState.Withf("booking %d has no holder to pay for it", booking.ID)
		}
		return s.Settle(ctx, booking.ID, *payer, ev.PaymentID)

	case PaymentFailed:
		s.logger.Warn("payment failed",
			zap.Int64("booking_id", booking.ID),
			zap.String("payment_id", ev.PaymentID),
		)
		if booking.HolderID != nil {
			s.notifier.Notify(ctx, bookingMessage(*booking.HolderID, booking.ID, model.NotificationAlert, false,
				"Payment failed for booking #%d", booking.ID))
		}
		return booking, nil
	}

	return nil, apperr.ErrInvalidRequest.Withf("unknown payment status %q", ev.Status)
}
