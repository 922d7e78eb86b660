// Package sweeper periodically reclaims slot locks whose TTL elapsed and
// expires PENDING bookings that were never paid.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"turf-booking-backend/internal/lock"
	"turf-booking-backend/internal/metrics"
	"turf-booking-backend/internal/model"
)

// DefaultInterval is the pause between two sweeps.
const DefaultInterval = time.Minute

// Result summarises one sweep.
type Result struct {
	// Skipped is true when another sweep was still running.
	Skipped         bool
	ReleasedLocks   int
	ExpiredBookings int64
}

// Service runs the sweep on a fixed interval. At most one sweep runs at a
// time, whether triggered by the loop or by RunOnce.
type Service struct {
	db       *gorm.DB
	locks    *lock.Manager
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger

	running sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	releasedCounter metric.Int64Counter
	expiredCounter  metric.Int64Counter
}

// NewService creates a sweeper. A non-positive interval selects
// DefaultInterval.
func NewService(db *gorm.DB, locks *lock.Manager, interval time.Duration, now func() time.Time, logger *zap.Logger) *Service {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if now == nil {
		now = time.Now
	}
	return &Service{
		db:              db,
		locks:           locks,
		interval:        interval,
		now:             now,
		logger:          logger,
		releasedCounter: metrics.Counter("sweeper.locks_released", "Expired slot locks released", logger),
		expiredCounter:  metrics.Counter("sweeper.bookings_expired", "Pending bookings expired", logger),
	}
}

// Start launches the sweep loop in the background. Calling Start on a running
// sweeper does nothing.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		s.Run(ctx)
	}(s.done)
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Run sweeps immediately and then on every interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	s.logger.Info("starting expiry sweeper", zap.Duration("interval", s.interval))

	s.sweep(ctx)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiry sweeper shutting down")
			return
		case <-timer.C:
			s.sweep(ctx)
			timer.Reset(s.interval)
		}
	}
}

func (s *Service) sweep(ctx context.Context) {
	// Errors are already logged; the next tick retries.
	_, _ = s.RunOnce(ctx)
}

// RunOnce performs a single sweep. When a sweep is already running it returns
// immediately with Skipped set. The two passes are independent: a failure in
// one does not prevent the other, and both errors are returned.
func (s *Service) RunOnce(ctx context.Context) (Result, error) {
	if !s.running.TryLock() {
		s.logger.Debug("sweep already in progress, skipping")
		return Result{Skipped: true}, nil
	}
	defer s.running.Unlock()

	now := s.now().UTC()
	var res Result

	released, lockErr := s.locks.ReleaseExpired(ctx, s.db, now)
	if lockErr != nil {
		s.logger.Error("failed to release expired locks", zap.Error(lockErr))
	} else if len(released) > 0 {
		res.ReleasedLocks = len(released)
		s.releasedCounter.Add(ctx, int64(len(released)))
		s.logger.Info("released expired slot locks", zap.Int("count", len(released)), zap.Int64s("slot_ids", released))
	}

	expired, bookingErr := s.expireBookings(ctx, now)
	if bookingErr != nil {
		s.logger.Error("failed to expire pending bookings", zap.Error(bookingErr))
	} else if expired > 0 {
		res.ExpiredBookings = expired
		s.expiredCounter.Add(ctx, expired)
		s.logger.Info("expired pending bookings", zap.Int64("count", expired))
	}

	return res, errors.Join(lockErr, bookingErr)
}

// expireBookings moves every PENDING booking past its deadline to EXPIRED.
// Slots are left alone; their locks are handled by the first pass.
func (s *Service) expireBookings(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&model.Booking{}).
		Where("status = ? AND expires_at < ?", model.BookingPending, now).
		Update("status", model.BookingExpired)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to expire bookings: %w", res.Error)
	}
	return res.RowsAffected, nil
}
