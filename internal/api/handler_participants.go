package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetParticipants handles GET /api/bookings/:id/participants.
func (h *Handler) GetParticipants(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	participants, err := h.settlement.ListParticipants(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, participants)
}

type addParticipantRequest struct {
	UserID int64 `json:"userId" binding:"required"`
}

// AddParticipant handles POST /api/bookings/:id/participants. Only the
// booking holder may invite.
func (h *Handler) AddParticipant(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req addParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	participants, err := h.settlement.AddParticipant(c.Request.Context(), id, caller(c), req.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, participants)
}

type participantStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateMyParticipantStatus handles PUT /api/bookings/:id/participants/me.
func (h *Handler) UpdateMyParticipantStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req participantStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	participant, err := h.settlement.UpdateParticipantStatus(c.Request.Context(), id, caller(c), req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, participant)
}
