package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"turf-booking-backend/internal/schedule"
)

// GetTurfs handles GET /api/turfs.
func (h *Handler) GetTurfs(c *gin.Context) {
	turfs, err := h.schedule.ListTurfs(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, turfs)
}

// GetTurf handles GET /api/turfs/:id.
func (h *Handler) GetTurf(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	turf, err := h.schedule.GetTurf(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, turf)
}

// GetOwnedTurfs handles GET /api/owner/turfs.
func (h *Handler) GetOwnedTurfs(c *gin.Context) {
	turfs, err := h.schedule.ListOwnedTurfs(c.Request.Context(), caller(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, turfs)
}

// GetOwnedTurf handles GET /api/owner/turfs/:id.
func (h *Handler) GetOwnedTurf(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	turf, err := h.schedule.GetOwnedTurf(c.Request.Context(), caller(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, turf)
}

// UpdateTurf handles PUT /api/owner/turfs/:id.
func (h *Handler) UpdateTurf(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req createTurfRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	turf, err := h.schedule.UpdateTurf(c.Request.Context(), caller(c), id, req.Name, req.Location, req.BasePrice)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, turf)
}

type createTurfRequest struct {
	Name      string `json:"name" binding:"required"`
	Location  string `json:"location"`
	BasePrice int64  `json:"basePrice"`
}

// CreateTurf handles POST /api/turfs. The caller becomes the owner.
func (h *Handler) CreateTurf(c *gin.Context) {
	var req createTurfRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	turf, err := h.schedule.CreateTurf(c.Request.Context(), caller(c), req.Name, req.Location, req.BasePrice)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, turf)
}

type generateSlotsRequest struct {
	Date                string `json:"date" binding:"required"`
	StartTime           string `json:"startTime"`
	EndTime             string `json:"endTime"`
	SlotDurationMinutes int    `json:"slotDurationMinutes"`
	PricePerSlot        int64  `json:"pricePerSlot"`
}

// GenerateSlots handles POST /api/turfs/:id/slots/generate.
func (h *Handler) GenerateSlots(c *gin.Context) {
	turfID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req generateSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	slots, err := h.schedule.Generate(c.Request.Context(), caller(c), turfID, schedule.GenerateRequest{
		Date:            req.Date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		DurationMinutes: req.SlotDurationMinutes,
		Price:           req.PricePerSlot,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, slots)
}

// GetSlots handles GET /api/turfs/:id/slots?date=YYYY-MM-DD.
func (h *Handler) GetSlots(c *gin.Context) {
	turfID, ok := idParam(c, "id")
	if !ok {
		return
	}
	slots, err := h.schedule.ListSlots(c.Request.Context(), turfID, c.Query("date"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, slots)
}
