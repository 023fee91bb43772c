package models

import "time"

// UserStatus marks an account as touched in a given group. Its existence is the
// precondition for a points row; deleting it cascades to user_points.
type UserStatus struct {
	UserID     string      `gorm:"primaryKey;size:64" json:"user_id"`
	GroupID    string      `gorm:"primaryKey;size:64" json:"group_id"`
	IsReusable bool        `gorm:"not null;default:true" json:"is_reusable"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	Points     *UserPoints `gorm:"foreignKey:UserID,GroupID;references:UserID,GroupID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName keeps the singular table name used by the schema.
func (UserStatus) TableName() string {
	return "user_status"
}
