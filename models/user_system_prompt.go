package models

import "time"

// UserSystemPrompt is the durable copy of a user's purchased persona override.
// A short-TTL cached copy lives in Redis; this row is the source of truth.
type UserSystemPrompt struct {
	UserID       string    `gorm:"primaryKey;size:64" json:"user_id"`
	GroupID      string    `gorm:"primaryKey;size:64" json:"group_id"`
	SystemPrompt string    `gorm:"type:text;not null" json:"system_prompt"`
	UpdatedAt    time.Time `json:"updated_at"`
}
