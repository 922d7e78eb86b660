package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"turf-booking-backend/internal/booking"
	"turf-booking-backend/internal/model"
)

// bookingView hides the check-in secret from everyone but the holder.
func bookingView(b model.Booking, callerID int64) model.Booking {
	if !b.HeldBy(callerID) {
		b.CheckInSecret = nil
	}
	return b
}

type initiateBookingRequest struct {
	TurfID      int64 `json:"turfId" binding:"required"`
	SlotID      int64 `json:"slotId" binding:"required"`
	TotalAmount int64 `json:"totalAmount"`
}

// InitiateBooking handles POST /api/bookings/initiate.
func (h *Handler) InitiateBooking(c *gin.Context) {
	var req initiateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	b, err := h.bookings.Initiate(c.Request.Context(), booking.InitiateRequest{
		HolderID: caller(c),
		TurfID:   req.TurfID,
		SlotID:   req.SlotID,
		Amount:   req.TotalAmount,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// GetMyBookings handles GET /api/bookings/my.
func (h *Handler) GetMyBookings(c *gin.Context) {
	me := caller(c)
	bookings, err := h.bookings.ListByUser(c.Request.Context(), me)
	if err != nil {
		h.respondError(c, err)
		return
	}
	views := make([]model.Booking, 0, len(bookings))
	for _, b := range bookings {
		views = append(views, bookingView(b, me))
	}
	c.JSON(http.StatusOK, views)
}

// GetBooking handles GET /api/bookings/:id.
func (h *Handler) GetBooking(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	b, err := h.bookings.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookingView(*b, caller(c)))
}

type payRequest struct {
	PaymentID string `json:"paymentId"`
}

// PayBooking handles POST /api/bookings/:id/pay. The caller pays either the
// whole booking or their split share.
func (h *Handler) PayBooking(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req payRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badRequest(c, err)
			return
		}
	}

	me := caller(c)
	b, err := h.settlement.Settle(c.Request.Context(), id, me, req.PaymentID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookingView(*b, me))
}

// CancelBooking handles POST /api/bookings/:id/cancel.
func (h *Handler) CancelBooking(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	b, err := h.bookings.Cancel(c.Request.Context(), id, caller(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type walkInRequest struct {
	TurfID        int64  `json:"turfId" binding:"required"`
	SlotID        int64  `json:"slotId" binding:"required"`
	CustomerName  string `json:"customerName"`
	CustomerPhone string `json:"customerPhone"`
}

// CreateWalkIn handles POST /api/owner/bookings.
func (h *Handler) CreateWalkIn(c *gin.Context) {
	var req walkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	b, err := h.bookings.WalkIn(c.Request.Context(), booking.WalkInRequest{
		OwnerID:       caller(c),
		TurfID:        req.TurfID,
		SlotID:        req.SlotID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

type checkInRequest struct {
	Secret string `json:"secret" binding:"required"`
}

// CheckIn handles POST /api/checkin.
func (h *Handler) CheckIn(c *gin.Context) {
	var req checkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	b, err := h.bookings.CheckIn(c.Request.Context(), req.Secret)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"bookingId":   b.ID,
		"turfId":      b.TurfID,
		"slotId":      b.SlotID,
		"status":      b.Status,
		"checkedInAt": b.CheckedInAt,
	})
}
