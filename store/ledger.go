package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/nuobot/models"
)

// Ledger performs atomic balance mutations keyed by (group, user).
//
// Balance reads followed by conditional writes (the debit contract) are not
// serialized against concurrent debits on the same key; only the increment
// itself is a single store-side statement.
type Ledger struct {
	db *gorm.DB
}

// NewLedger creates a ledger over an injected database handle.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// GetBalance returns the current balance. ok is false when the account has
// never been touched (no points row exists).
func (l *Ledger) GetBalance(ctx context.Context, groupID, userID string) (int, bool, error) {
	var row models.UserPoints
	err := l.db.WithContext(ctx).
		Where("user_id = ? AND group_id = ?", userID, groupID).
		First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return row.Points, true, nil
}

// EnsureStatus upserts the account status marker. Duplicate-key safe, so it can
// be called concurrently for the same key.
func (l *Ledger) EnsureStatus(ctx context.Context, groupID, userID string) error {
	status := models.UserStatus{UserID: userID, GroupID: groupID, IsReusable: true}
	return l.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&status).Error
}

// Initialize creates the status marker and a zero balance if absent.
// Calling it twice yields the same state as calling it once.
func (l *Ledger) Initialize(ctx context.Context, groupID, userID string) error {
	if err := l.EnsureStatus(ctx, groupID, userID); err != nil {
		return err
	}
	points := models.UserPoints{UserID: userID, GroupID: groupID, Points: 0}
	return l.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&points).Error
}

// Adjust applies points += delta as a single atomic update, creating the
// account lazily on first reference. delta may be negative; sufficiency checks
// are the caller's contract, not enforced here.
func (l *Ledger) Adjust(ctx context.Context, groupID, userID string, delta int) (bool, error) {
	if err := l.Initialize(ctx, groupID, userID); err != nil {
		return false, err
	}
	res := l.db.WithContext(ctx).
		Model(&models.UserPoints{}).
		Where("user_id = ? AND group_id = ?", userID, groupID).
		Update("points", gorm.Expr("points + ?", delta))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SetExact overwrites the balance after ensuring initialization.
func (l *Ledger) SetExact(ctx context.Context, groupID, userID string, points int) error {
	if err := l.Initialize(ctx, groupID, userID); err != nil {
		return err
	}
	return l.db.WithContext(ctx).
		Model(&models.UserPoints{}).
		Where("user_id = ? AND group_id = ?", userID, groupID).
		Update("points", points).Error
}

// ResetAccount removes the account status for a key; the points row goes with
// it through the cascading foreign key, and the check-in record is removed in
// the same transaction.
func (l *Ledger) ResetAccount(ctx context.Context, groupID, userID string) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND group_id = ?", userID, groupID).
			Delete(&models.UserStatus{}).Error; err != nil {
			return err
		}
		// Belt and braces for stores migrated without FK constraints.
		if err := tx.Where("user_id = ? AND group_id = ?", userID, groupID).
			Delete(&models.UserPoints{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ? AND group_id = ?", userID, groupID).
			Delete(&models.CheckinRecord{}).Error
	})
}
