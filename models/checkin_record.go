package models

import "time"

// CheckinRecord stores daily check-in state per user per group.
// last_checkin_date only moves forward; total_days >= streak_days always holds.
type CheckinRecord struct {
	UserID          string    `gorm:"primaryKey;size:64" json:"user_id"`
	GroupID         string    `gorm:"primaryKey;size:64" json:"group_id"`
	LastCheckinDate time.Time `gorm:"type:date;not null" json:"last_checkin_date"`
	TotalDays       int       `gorm:"not null;default:0" json:"total_days"`
	StreakDays      int       `gorm:"not null;default:0" json:"streak_days"`
	UpdatedAt       time.Time `json:"updated_at"`
}
