// Package schedule manages turfs and the slots customers can book on them.
package schedule

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"turf-booking-backend/internal/apperr"
	"turf-booking-backend/internal/model"
	"turf-booking-backend/internal/parse"
	"turf-booking-backend/internal/store"
)

// Generation defaults.
const (
	DefaultStart    = "06:00"
	DefaultEnd      = "23:00"
	DefaultDuration = 60
	DefaultPrice    = 500

	// maxSlotsPerDay bounds a single generation request.
	maxSlotsPerDay = 100
)

// GenerateRequest describes the slots to create for one day. Zero values
// select the defaults above.
type GenerateRequest struct {
	Date            string
	StartTime       string
	EndTime         string
	DurationMinutes int
	Price           int64
}

func (r *GenerateRequest) applyDefaults() {
	if r.StartTime == "" {
		r.StartTime = DefaultStart
	}
	if r.EndTime == "" {
		r.EndTime = DefaultEnd
	}
	if r.DurationMinutes == 0 {
		r.DurationMinutes = DefaultDuration
	}
	if r.Price == 0 {
		r.Price = DefaultPrice
	}
}

// Service creates turfs and generates their slots.
type Service struct {
	store  store.Store
	logger *zap.Logger
}

// NewService creates a schedule service.
func NewService(st store.Store, logger *zap.Logger) *Service {
	return &Service{store: st, logger: logger}
}

// CreateTurf registers a turf owned by ownerID.
func (s *Service) CreateTurf(ctx context.Context, ownerID int64, name, location string, basePrice int64) (*model.Turf, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.ErrInvalidRequest.Withf("turf name is required")
	}
	if basePrice < 0 {
		return nil, apperr.ErrInvalidRequest.Withf("base price cannot be negative")
	}

	turf := &model.Turf{OwnerID: ownerID, Name: name, Location: strings.TrimSpace(location), BasePrice: basePrice}
	if err := s.store.CreateTurf(ctx, turf); err != nil {
		return nil, err
	}
	s.logger.Info("created turf", zap.Int64("turf_id", turf.ID), zap.Int64("owner_id", ownerID))
	return turf, nil
}

// ListTurfs returns every turf.
func (s *Service) ListTurfs(ctx context.Context) ([]model.Turf, error) {
	return s.store.ListTurfs(ctx)
}

// GetTurf returns one turf.
func (s *Service) GetTurf(ctx context.Context, turfID int64) (*model.Turf, error) {
	return s.store.GetTurf(ctx, turfID)
}

// ListOwnedTurfs returns the turfs owned by ownerID.
func (s *Service) ListOwnedTurfs(ctx context.Context, ownerID int64) ([]model.Turf, error) {
	return s.store.ListTurfsByOwner(ctx, ownerID)
}

// GetOwnedTurf returns a turf only when ownerID owns it.
func (s *Service) GetOwnedTurf(ctx context.Context, ownerID, turfID int64) (*model.Turf, error) {
	turf, err := s.store.GetTurf(ctx, turfID)
	if err != nil {
		return nil, err
	}
	if turf.OwnerID != ownerID {
		return nil, apperr.ErrNotTurfOwner
	}
	return turf, nil
}

// UpdateTurf replaces the name, location and base price of a turf owned by
// ownerID. Existing slots keep their own prices.
func (s *Service) UpdateTurf(ctx context.Context, ownerID, turfID int64, name, location string, basePrice int64) (*model.Turf, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.ErrInvalidRequest.Withf("turf name is required")
	}
	if basePrice < 0 {
		return nil, apperr.ErrInvalidRequest.Withf("base price cannot be negative")
	}

	turf, err := s.GetOwnedTurf(ctx, ownerID, turfID)
	if err != nil {
		return nil, err
	}
	turf.Name = name
	turf.Location = strings.TrimSpace(location)
	turf.BasePrice = basePrice
	if err := s.store.UpdateTurf(ctx, turf); err != nil {
		return nil, err
	}
	s.logger.Info("updated turf", zap.Int64("turf_id", turf.ID), zap.Int64("owner_id", ownerID))
	return s.store.GetTurf(ctx, turfID)
}

// Generate creates back-to-back slots of req.DurationMinutes between
// req.StartTime and req.EndTime on req.Date. Slots that already exist are
// kept as they are, so generating the same day twice is harmless. It returns
// every slot of the day.
func (s *Service) Generate(ctx context.Context, ownerID, turfID int64, req GenerateRequest) ([]model.Slot, error) {
	req.applyDefaults()

	date, err := parse.ParseDate(req.Date)
	if err != nil {
		return nil, apperr.ErrInvalidRequest.Wrap(err).Withf("invalid date %q", req.Date)
	}
	start, err := parse.ParseClock(req.StartTime)
	if err != nil {
		return nil, apperr.ErrInvalidRequest.Wrap(err).Withf("invalid start time %q", req.StartTime)
	}
	end, err := parse.ParseClock(req.EndTime)
	if err != nil {
		return nil, apperr.ErrInvalidRequest.Wrap(err).Withf("invalid end time %q", req.EndTime)
	}
	if req.DurationMinutes <= 0 {
		return nil, apperr.ErrInvalidRequest.Withf("slot duration must be greater than 0")
	}
	if end < start {
		return nil, apperr.ErrInvalidRequest.Withf("end time cannot be before start time")
	}
	if req.Price < 0 {
		return nil, apperr.ErrInvalidRequest.Withf("price cannot be negative")
	}
	if n := int(end-start) / req.DurationMinutes; n > maxSlotsPerDay {
		return nil, apperr.ErrInvalidRequest.Withf("range would create %d slots, at most %d per day are allowed", n, maxSlotsPerDay)
	}

	turf, err := s.store.GetTurf(ctx, turfID)
	if err != nil {
		return nil, err
	}
	if turf.OwnerID != ownerID {
		return nil, apperr.ErrNotTurfOwner
	}

	var slots []model.Slot
	for cur := start; cur.Add(req.DurationMinutes) <= end; cur = cur.Add(req.DurationMinutes) {
		slots = append(slots, model.Slot{
			TurfID:      turfID,
			Date:        date,
			StartTime:   cur.String(),
			EndTime:     cur.Add(req.DurationMinutes).String(),
			Available:   true,
			CustomPrice: req.Price,
		})
	}

	created, err := s.store.InsertSlots(ctx, slots)
	if err != nil {
		return nil, err
	}
	s.logger.Info("generated slots",
		zap.Int64("turf_id", turfID),
		zap.String("date", date),
		zap.Int("requested", len(slots)),
		zap.Int64("created", created),
	)
	return s.store.ListSlots(ctx, turfID, date)
}

// ListSlots returns the slots of a turf on one date, in start-time order.
func (s *Service) ListSlots(ctx context.Context, turfID int64, rawDate string) ([]model.Slot, error) {
	date, err := parse.ParseDate(rawDate)
	if err != nil {
		return nil, apperr.ErrInvalidRequest.Wrap(err).Withf("invalid date %q", rawDate)
	}
	if _, err := s.store.GetTurf(ctx, turfID); err != nil {
		return nil, err
	}
	return s.store.ListSlots(ctx, turfID, date)
}
