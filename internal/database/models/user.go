package models

import (
	"time"
)

// User represents a broker account in the system
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Nickname     string    `gorm:"size:100" json:"nickname"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relations
	Settings *UserSettings `gorm:"foreignKey:UserID" json:"settings,omitempty"`
}

// UserSettings stores broker-specific settings
type UserSettings struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"uniqueIndex;not null" json:"user_id"`

	// ValidateDrafts enables the fact-check pass after each generation
	ValidateDrafts bool `gorm:"default:true" json:"validate_drafts"`
	// AgentName is the signature name used in generated replies
	AgentName string `gorm:"size:100;default:'Alex'" json:"agent_name"`

	Theme string `gorm:"size:50;default:'dark'" json:"theme"`
	Font  string `gorm:"size:50;default:'system'" json:"font"`
}
