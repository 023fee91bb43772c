package models

import "time"

// UserPoints holds the points balance per user per group.
type UserPoints struct {
	UserID    string    `gorm:"primaryKey;size:64" json:"user_id"`
	GroupID   string    `gorm:"primaryKey;size:64" json:"group_id"`
	Points    int       `gorm:"not null;default:0" json:"points"`
	UpdatedAt time.Time `json:"updated_at"`
}
