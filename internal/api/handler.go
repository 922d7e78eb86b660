package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"turf-booking-backend/internal/apperr"
	"turf-booking-backend/internal/booking"
	"turf-booking-backend/internal/mw"
	"turf-booking-backend/internal/notification"
	"turf-booking-backend/internal/schedule"
	"turf-booking-backend/internal/settlement"
)

// Services bundles the domain services the API exposes.
type Services struct {
	Schedule      *schedule.Service
	Bookings      *booking.Service
	Settlement    *settlement.Service
	Notifications *notification.Service
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	schedule      *schedule.Service
	bookings      *booking.Service
	settlement    *settlement.Service
	notifications *notification.Service
	webpush       *webpush.Options
	webhookToken  string
	logger        *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(svc Services, webpushOptions *webpush.Options, webhookToken string, logger *zap.Logger) *Handler {
	return &Handler{
		schedule:      svc.Schedule,
		bookings:      svc.Bookings,
		settlement:    svc.Settlement,
		notifications: svc.Notifications,
		webpush:       webpushOptions,
		webhookToken:  webhookToken,
		logger:        logger,
	}
}

// respondError writes err as JSON. Domain errors map onto their status code;
// anything else is logged and reported as an internal error.
func (h *Handler) respondError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		c.AbortWithStatusJSON(apperr.HTTPStatus(err), gin.H{"error": appErr.Message, "code": appErr.Code})
		return
	}
	h.logger.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": apperr.ErrInvalidRequest.Code})
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + name, "code": apperr.ErrInvalidRequest.Code})
		return 0, false
	}
	return id, true
}

func caller(c *gin.Context) int64 {
	id, _ := mw.Caller(c)
	return id
}
