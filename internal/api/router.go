package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"turf-booking-backend/config"
	"turf-booking-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg config.ServerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	caching := mw.Cache(cache.New(ttl, 2*ttl), ttl)

	authenticated := mw.CallerID(cfg.UserIDHeader)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		// Unauthenticated: gateway callbacks and push bootstrap.
		api.POST("/payments/webhook", h.PaymentWebhook)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)

		auth := api.Group("", authenticated)

		auth.GET("/turfs", caching, h.GetTurfs)
		auth.POST("/turfs", caching, h.CreateTurf)
		auth.GET("/turfs/:id", caching, h.GetTurf)
		auth.POST("/turfs/:id/slots/generate", h.GenerateSlots)
		auth.GET("/turfs/:id/slots", h.GetSlots)

		auth.POST("/bookings/initiate", h.InitiateBooking)
		auth.GET("/bookings/my", h.GetMyBookings)
		auth.GET("/bookings/:id", h.GetBooking)
		auth.POST("/bookings/:id/pay", h.PayBooking)
		auth.POST("/bookings/:id/cancel", h.CancelBooking)

		auth.GET("/bookings/:id/participants", h.GetParticipants)
		auth.POST("/bookings/:id/participants", h.AddParticipant)
		auth.PUT("/bookings/:id/participants/me", h.UpdateMyParticipantStatus)

		auth.GET("/owner/turfs", h.GetOwnedTurfs)
		auth.GET("/owner/turfs/:id", h.GetOwnedTurf)
		auth.PUT("/owner/turfs/:id", caching, h.UpdateTurf)
		auth.POST("/owner/bookings", h.CreateWalkIn)
		auth.POST("/checkin", h.CheckIn)

		auth.GET("/notifications", h.GetNotifications)
		auth.PUT("/notifications/read-all", h.MarkAllNotificationsRead)
		auth.PUT("/notifications/:id/read", h.MarkNotificationRead)
		auth.DELETE("/notifications/:id", h.DeleteNotification)

		auth.PUT("/push-subscriptions", h.PutSubscription)
		auth.DELETE("/push-subscriptions", h.DeleteSubscription)
	}

	return r
}
