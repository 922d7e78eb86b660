// Package lock implements the exclusive, time-bounded claims customers hold on
// a slot while they pay. It is the single place that writes slot lock fields.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"turf-booking-backend/internal/apperr"
	"turf-booking-backend/internal/model"
)

// DefaultTTL is how long a claim survives without confirmation.
const DefaultTTL = 15 * time.Minute

// Manager acquires, releases and confirms slot claims. Every method takes the
// transaction it must run in so callers can combine a claim with their own
// writes in one commit.
type Manager struct {
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// NewManager creates a lock manager. A non-positive ttl selects DefaultTTL; a
// nil clock selects time.Now.
func NewManager(ttl time.Duration, now func() time.Time, logger *zap.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Manager{ttl: ttl, now: now, logger: logger}
}

// TTL returns the claim duration used by Acquire.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

func clearedLock() map[string]any {
	return map[string]any{
		"locked":          false,
		"locked_by":       nil,
		"locked_at":       nil,
		"lock_expires_at": nil,
		"version":         gorm.Expr("version + 1"),
	}
}

// Acquire claims slotID for holderID until now+ttl.
//
// The slot row is read with SELECT ... FOR UPDATE and written back with a
// compare-and-swap on its version, so of any number of concurrent callers
// exactly one succeeds.
func (m *Manager) Acquire(ctx context.Context, tx *gorm.DB, slotID, holderID int64) (*model.Slot, error) {
	now := m.now().UTC()
	tx = tx.WithContext(ctx)

	var slot model.Slot
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&slot, slotID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrSlotNotFound.Withf("slot %d not found", slotID)
		}
		return nil, fmt.Errorf("failed to lock slot %d: %w", slotID, err)
	}

	if !slot.Available {
		m.logger.Warn("slot is not available", zap.Int64("slot_id", slotID))
		return nil, apperr.ErrSlotUnavailable
	}
	if !slot.Lockable(holderID, now) {
		m.logger.Warn("slot is already locked",
			zap.Int64("slot_id", slotID),
			zap.Int64p("locked_by", slot.LockedBy),
		)
		return nil, apperr.ErrSlotAlreadyLocked
	}

	var active int64
	if err := tx.Model(&model.Booking{}).
		Where("slot_id = ? AND status IN ?", slotID, model.ActiveBookingStatuses).
		Count(&active).Error; err != nil {
		return nil, fmt.Errorf("failed to check bookings for slot %d: %w", slotID, err)
	}
	if active > 0 {
		m.logger.Warn("slot already has a booking", zap.Int64("slot_id", slotID))
		return nil, apperr.ErrSlotAlreadyBooked
	}

	expires := now.Add(m.ttl)
	res := tx.Model(&model.Slot{}).
		Where("id = ? AND version = ?", slot.ID, slot.Version).
		Updates(map[string]any{
			"locked":          true,
			"locked_by":       holderID,
			"locked_at":       now,
			"lock_expires_at": expires,
			"version":         gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to lock slot %d: %w", slotID, res.Error)
	}
	if res.RowsAffected == 0 {
		// Another writer changed the row between our read and write.
		return nil, apperr.ErrSlotAlreadyLocked
	}

	slot.Locked = true
	slot.LockedBy = &holderID
	slot.LockedAt = &now
	slot.LockExpiresAt = &expires
	slot.Version++

	m.logger.Info("locked slot",
		zap.Int64("slot_id", slotID),
		zap.Int64("holder_id", holderID),
		zap.Time("expires_at", expires),
	)
	return &slot, nil
}

// Release drops holderID's claim on slotID. Releasing an unlocked slot is a
// no-op. When the claim belongs to someone else nothing changes and
// apperr.ErrNotHolder is returned.
func (m *Manager) Release(ctx context.Context, tx *gorm.DB, slotID, holderID int64) error {
	tx = tx.WithContext(ctx)

	res := tx.Model(&model.Slot{}).
		Where("id = ? AND locked = ? AND locked_by = ?", slotID, true, holderID).
		Updates(clearedLock())
	if res.Error != nil {
		return fmt.Errorf("failed to release slot %d: %w", slotID, res.Error)
	}
	if res.RowsAffected > 0 {
		m.logger.Info("released slot lock", zap.Int64("slot_id", slotID), zap.Int64("holder_id", holderID))
		return nil
	}

	var slot model.Slot
	if err := tx.Select("id", "locked", "locked_by").First(&slot, slotID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrSlotNotFound.Withf("slot %d not found", slotID)
		}
		return fmt.Errorf("failed to read slot %d: %w", slotID, err)
	}
	if slot.Locked {
		return apperr.ErrNotHolder
	}
	return nil
}

// Confirm marks slotID permanently unavailable and clears its lock. It fails
// with apperr.ErrSlotAlreadyBooked when the slot was already taken.
func (m *Manager) Confirm(ctx context.Context, tx *gorm.DB, slotID int64) error {
	updates := clearedLock()
	updates["available"] = false

	res := tx.WithContext(ctx).Model(&model.Slot{}).
		Where("id = ? AND available = ?", slotID, true).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to confirm slot %d: %w", slotID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrSlotAlreadyBooked
	}
	m.logger.Info("marked slot unavailable", zap.Int64("slot_id", slotID))
	return nil
}

// ReleaseExpired clears every claim whose TTL elapsed before now and returns
// the ids of the slots it returned to the pool. Bookings are not touched.
func (m *Manager) ReleaseExpired(ctx context.Context, db *gorm.DB, now time.Time) ([]int64, error) {
	var released []int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var expired []model.Slot
		if err := tx.Select("id", "locked_by", "locked_at").
			Where("locked = ? AND lock_expires_at < ?", true, now).
			Find(&expired).Error; err != nil {
			return fmt.Errorf("failed to find expired locks: %w", err)
		}
		if len(expired) == 0 {
			return nil
		}

		ids := make([]int64, 0, len(expired))
		for _, slot := range expired {
			m.logger.Debug("releasing expired lock",
				zap.Int64("slot_id", slot.ID),
				zap.Int64p("locked_by", slot.LockedBy),
				zap.Timep("locked_at", slot.LockedAt),
			)
			ids = append(ids, slot.ID)
		}

		// Re-check the expiry so a claim renewed since the read survives.
		if err := tx.Model(&model.Slot{}).
			Where("id IN ? AND locked = ? AND lock_expires_at < ?", ids, true, now).
			Updates(clearedLock()).Error; err != nil {
			return fmt.Errorf("failed to release expired locks: %w", err)
		}
		released = ids
		return nil
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}
