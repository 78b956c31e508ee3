package store

import (
	"context"
	"errors"
	"time"

	"eventcontrol/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the gorm-backed persistence layer for events, entries, wallets,
// budgets and the payout ledger.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// GetEvent returns (nil, nil) when the event does not exist.
func (s *Store) GetEvent(ctx context.Context, id uint) (*models.Event, error) {
	var ev models.Event
	err := s.db.WithContext(ctx).First(&ev, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// MarkEnded flips status active -> ended. The WHERE clause makes the update
// conditional; RowsAffected tells us whether this caller won the transition.
func (s *Store) MarkEnded(ctx context.Context, id uint) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ? AND status = ?", id, models.EventStatusActive).
		Update("status", models.EventStatusEnded)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// FinishEvent moves an ended event to a terminal status and stamps settled_at.
// Already-terminal events are left untouched.
func (s *Store) FinishEvent(ctx context.Context, id uint, status string, winningOutcome *int64) error {
	updates := map[string]interface{}{
		"status":     status,
		"settled_at": time.Now(),
	}
	if winningOutcome != nil {
		updates["winning_outcome"] = *winningOutcome
	}
	return s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ? AND status NOT IN ?", id, []string{models.EventStatusCancelled, models.EventStatusCompleted}).
		Updates(updates).Error
}

// ListEntries returns all entries for an event in insertion order. Payouts
// and ledger rows follow this order.
func (s *Store) ListEntries(ctx context.Context, eventID uint) ([]models.EventEntry, error) {
	var entries []models.EventEntry
	err := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("id asc").
		Find(&entries).Error
	return entries, err
}

func (s *Store) UpdateEntryPayment(ctx context.Context, entryID uint, status, signature, reason string) error {
	return s.db.WithContext(ctx).
		Model(&models.EventEntry{}).
		Where("id = ?", entryID).
		Updates(map[string]interface{}{
			"payment_status":     status,
			"transfer_signature": signature,
			"fail_reason":        reason,
		}).Error
}

// UserAddress returns the user's registered payout address, or "" when the
// user never registered one.
func (s *Store) UserAddress(ctx context.Context, userID string) (string, error) {
	var wallet models.UserWallet
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return wallet.Address, nil
}

func (s *Store) AppendTransaction(ctx context.Context, tx *models.LedgerTransaction) error {
	return s.db.WithContext(ctx).Create(tx).Error
}

// AdjustBudget adds delta to the community's cumulative spend, creating the
// budget row on first touch.
func (s *Store) AdjustBudget(ctx context.Context, communityID string, delta float64) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "community_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"spent_total": gorm.Expr("community_budgets.spent_total + ?", delta),
			}),
		}).
		Create(&models.CommunityBudget{CommunityID: communityID, SpentTotal: delta}).Error
}

// ListExpiredActive returns ids of active events whose deadline has passed.
func (s *Store) ListExpiredActive(ctx context.Context, now time.Time) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("status = ? AND deadline <= ?", models.EventStatusActive, now).
		Order("deadline asc").
		Pluck("id", &ids).Error
	return ids, err
}

// ListStuckEnded returns events that have sat in the transient ended state
// since before olderThan.
func (s *Store) ListStuckEnded(ctx context.Context, olderThan time.Time) ([]models.Event, error) {
	var events []models.Event
	err := s.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", models.EventStatusEnded, olderThan).
		Order("id asc").
		Find(&events).Error
	return events, err
}
