package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"turf-booking-backend/internal/settlement"
)

// WebhookTokenHeader carries the shared secret configured for the payment
// gateway.
const WebhookTokenHeader = "X-Webhook-Token"

// PaymentWebhook handles POST /api/payments/webhook.
func (h *Handler) PaymentWebhook(c *gin.Context) {
	if h.webhookToken != "" {
		got := c.GetHeader(WebhookTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookToken)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook token", "code": "UNAUTHENTICATED"})
			return
		}
	}

	var ev settlement.PaymentEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		h.badRequest(c, err)
		return
	}

	h.logger.Info("payment webhook received",
		zap.Int64("booking_id", ev.BookingID),
		zap.String("status", ev.Status),
		zap.String("payment_id", ev.PaymentID),
	)
	b, err := h.settlement.HandlePaymentEvent(c.Request.Context(), ev)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookingId": b.ID, "status": b.Status})
}
