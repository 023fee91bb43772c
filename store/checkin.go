package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/nuobot/models"
)

// Checkins persists daily check-in records.
type Checkins struct {
	db *gorm.DB
}

// NewCheckins creates the check-in record store.
func NewCheckins(db *gorm.DB) *Checkins {
	return &Checkins{db: db}
}

// Get returns the record for a key, or nil when the user has never checked in.
func (c *Checkins) Get(ctx context.Context, groupID, userID string) (*models.CheckinRecord, error) {
	var rec models.CheckinRecord
	err := c.db.WithContext(ctx).
		Where("user_id = ? AND group_id = ?", userID, groupID).
		First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Upsert writes the record as a single insert-or-update statement. There is
// never a window between insert and update.
func (c *Checkins) Upsert(ctx context.Context, rec *models.CheckinRecord) error {
	return c.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "group_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"last_checkin_date", "total_days", "streak_days", "updated_at",
			}),
		}).
		Create(rec).Error
}
