package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/nuobot/models"
)

// Prompts is the durable side of the per-user system prompt override.
type Prompts struct {
	db *gorm.DB
}

// NewPrompts creates the system prompt store.
func NewPrompts(db *gorm.DB) *Prompts {
	return &Prompts{db: db}
}

// Get returns the stored prompt. ok is false when the user never set one.
func (p *Prompts) Get(ctx context.Context, groupID, userID string) (string, bool, error) {
	var row models.UserSystemPrompt
	err := p.db.WithContext(ctx).
		Where("user_id = ? AND group_id = ?", userID, groupID).
		First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return row.SystemPrompt, true, nil
}

// Set stores or replaces the prompt for a key.
func (p *Prompts) Set(ctx context.Context, groupID, userID, prompt string) error {
	row := models.UserSystemPrompt{UserID: userID, GroupID: groupID, SystemPrompt: prompt}
	return p.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "group_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"system_prompt", "updated_at"}),
		}).
		Create(&row).Error
}
